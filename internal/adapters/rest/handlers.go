// Package rest is the administrative request surface. Each handler is
// thin glue over a session-manager contract.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/app"
	"github.com/sehatlink/teleconsult/internal/app/orch"
	"github.com/sehatlink/teleconsult/internal/domain"
)

type Handlers struct {
	Sessions *app.SessionManager
	Orch     *orch.Orchestrator
}

func NewHandlers(sessions *app.SessionManager, o *orch.Orchestrator) *Handlers {
	return &Handlers{Sessions: sessions, Orch: o}
}

// StartSession handles POST /consultations/start/:appointmentId.
func (h *Handlers) StartSession(c *gin.Context) {
	ident := identityFrom(c)
	state, err := h.Sessions.StartSession(c.Request.Context(), domain.AppointmentID(c.Param("appointmentId")), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultation": state})
}

// GetSession handles GET /consultations/:id.
func (h *Handlers) GetSession(c *gin.Context) {
	ident := identityFrom(c)
	cons, err := h.Sessions.GetSession(c.Request.Context(), domain.ConsultationID(c.Param("id")), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultation": cons})
}

// EndSession handles POST /consultations/:id/end. After the durable end
// succeeds, the room's live members are told the session is over.
func (h *Handlers) EndSession(c *gin.Context) {
	ident := identityFrom(c)
	cons, err := h.Sessions.EndSession(c.Request.Context(), domain.ConsultationID(c.Param("id")), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	if h.Orch != nil {
		h.Orch.NotifySessionEnded(cons.RoomID)
	}
	c.JSON(http.StatusOK, gin.H{"consultation": cons})
}

type chatRequest struct {
	Text string `json:"text" binding:"required"`
	Kind string `json:"kind"`
}

// PostChatMessage handles POST /consultations/:id/message.
func (h *Handlers) PostChatMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Validation("message text is required"))
		return
	}
	ident := identityFrom(c)
	msg, err := h.Sessions.AppendChatMessage(c.Request.Context(), domain.ConsultationID(c.Param("id")), ident, req.Text, req.Kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_message": msg})
}

type vitalRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Value string `json:"value" binding:"required"`
	Unit  string `json:"unit" binding:"required"`
}

// PostVital handles POST /consultations/:id/vitals.
func (h *Handlers) PostVital(c *gin.Context) {
	var req vitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Validation("kind, value and unit are required"))
		return
	}
	ident := identityFrom(c)
	v, err := h.Sessions.RecordVital(c.Request.Context(), domain.ConsultationID(c.Param("id")), ident, req.Kind, req.Value, req.Unit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vital": v})
}

type issueRequest struct {
	Kind        string `json:"kind" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// PostTechnicalIssue handles POST /consultations/:id/technical-issue.
func (h *Handlers) PostTechnicalIssue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Validation("kind and description are required"))
		return
	}
	ident := identityFrom(c)
	issue, err := h.Sessions.ReportTechnicalIssue(c.Request.Context(), domain.ConsultationID(c.Param("id")), ident, req.Kind, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

// ListChatMessages handles GET /consultations/:id/messages.
func (h *Handlers) ListChatMessages(c *gin.Context) {
	ident := identityFrom(c)
	msgs, err := h.Sessions.ListChatMessages(c.Request.Context(), domain.ConsultationID(c.Param("id")), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindAccessDenied:
		status = http.StatusForbidden
	case domain.KindInvalidState:
		status = http.StatusConflict
	case domain.KindValidationFailed:
		status = http.StatusBadRequest
	case domain.KindTransientStore:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "rest").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{
		"error":   string(domain.KindOf(err)),
		"message": err.Error(),
	})
}
