package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/domain"
)

// SessionManager owns the consultation state machine and its coupling to
// the appointment state machine. It mutates durable state only; live
// room membership is the orchestrator's business.
type SessionManager struct {
	store Store
	now   func() time.Time
}

func NewSessionManager(store Store) *SessionManager {
	return &SessionManager{store: store, now: time.Now}
}

// SessionState is the caller-facing result of StartSession.
type SessionState struct {
	ConsultationID domain.ConsultationID     `json:"consultation_id"`
	RoomID         domain.RoomID             `json:"room_id"`
	Status         domain.ConsultationStatus `json:"status"`
	Participants   []domain.Participant      `json:"participants"`
}

// StartSession creates or reuses the consultation for an appointment and
// registers the requester as a durable participant. It is idempotent:
// calling it again for the same participant changes nothing, which is
// what makes retries after a failed write safe.
func (m *SessionManager) StartSession(ctx context.Context, appointmentID domain.AppointmentID, ident domain.Identity) (*SessionState, error) {
	var state *SessionState
	err := m.store.Transaction(ctx, func(tx Store) error {
		appt, err := tx.AppointmentByID(ctx, appointmentID)
		if err != nil {
			return err
		}
		if ident.Role != domain.RoleAdmin && !appt.Involves(ident.ID) {
			return domain.AccessDenied("user %s is not booked on appointment %s", ident.ID, appointmentID)
		}

		cons, err := tx.ConsultationByAppointment(ctx, appointmentID)
		switch {
		case err == nil:
		case domain.IsKind(err, domain.KindNotFound):
			cons = m.newConsultation(appt)
			if err := tx.CreateConsultation(ctx, cons); err != nil {
				return err
			}
		default:
			return err
		}

		if cons.Status.Terminal() {
			return domain.InvalidState("consultation %s already %s", cons.ID, cons.Status)
		}

		if !cons.HasParticipant(ident.ID) {
			p := domain.Participant{UserID: ident.ID, Role: ident.Role, JoinedAt: m.now()}
			if err := tx.AddParticipant(ctx, cons.ID, p); err != nil {
				return err
			}
			cons.Participants = append(cons.Participants, p)
		}

		// First successful join flips waiting -> active.
		if cons.Status == domain.ConsultationWaiting {
			now := m.now()
			cons.Status = domain.ConsultationActive
			cons.StartTime = &now
			if err := tx.SaveConsultation(ctx, cons); err != nil {
				return err
			}
		}

		if appt.Status == domain.AppointmentConfirmed {
			appt.Status = domain.AppointmentInProgress
			if err := tx.SaveAppointment(ctx, appt); err != nil {
				return err
			}
		}

		state = &SessionState{
			ConsultationID: cons.ID,
			RoomID:         cons.RoomID,
			Status:         cons.Status,
			Participants:   cons.Participants,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.lifecycle").
		Str("appointment", string(appointmentID)).
		Str("consultation", string(state.ConsultationID)).
		Str("user", string(ident.ID)).
		Str("status", string(state.Status)).
		Msg("session started")
	return state, nil
}

func (m *SessionManager) newConsultation(appt *domain.Appointment) *domain.Consultation {
	room := domain.RoomID(appt.ConsultationToken)
	if room == "" {
		room = domain.NewRoomID(appt.ID, m.now())
	}
	return &domain.Consultation{
		ID:            domain.ConsultationID(uuid.NewString()),
		AppointmentID: appt.ID,
		RoomID:        room,
		Status:        domain.ConsultationWaiting,
	}
}

// EndSession moves the consultation to its terminal ended state and
// completes the linked appointment. Only a participant logged with the
// doctor role may end a session.
func (m *SessionManager) EndSession(ctx context.Context, id domain.ConsultationID, ident domain.Identity) (*domain.Consultation, error) {
	var ended *domain.Consultation
	err := m.store.Transaction(ctx, func(tx Store) error {
		cons, err := tx.ConsultationByID(ctx, id)
		if err != nil {
			return err
		}
		role, ok := cons.ParticipantRole(ident.ID)
		if !ok || role != domain.RoleDoctor {
			return domain.AccessDenied("user %s is not a doctor participant of consultation %s", ident.ID, id)
		}
		if cons.Status.Terminal() {
			return domain.InvalidState("consultation %s already %s", id, cons.Status)
		}

		now := m.now()
		cons.Status = domain.ConsultationEnded
		cons.EndTime = &now
		cons.ComputeDuration()
		if err := tx.SaveConsultation(ctx, cons); err != nil {
			return err
		}

		appt, err := tx.AppointmentByID(ctx, cons.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status == domain.AppointmentInProgress {
			appt.Status = domain.AppointmentCompleted
			if err := tx.SaveAppointment(ctx, appt); err != nil {
				return err
			}
		}
		ended = cons
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.lifecycle").
		Str("consultation", string(id)).
		Str("user", string(ident.ID)).
		Msg("session ended")
	return ended, nil
}

// GetSession returns the full consultation for a participant or an admin.
func (m *SessionManager) GetSession(ctx context.Context, id domain.ConsultationID, ident domain.Identity) (*domain.Consultation, error) {
	cons, err := m.store.ConsultationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ident.Role != domain.RoleAdmin && !cons.HasParticipant(ident.ID) {
		return nil, domain.AccessDenied("user %s is not a participant of consultation %s", ident.ID, id)
	}
	return cons, nil
}

// AppendChatMessage appends one entry to the durable chat log.
func (m *SessionManager) AppendChatMessage(ctx context.Context, id domain.ConsultationID, ident domain.Identity, text, kind string) (domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, domain.Validation("message text is required")
	}
	ck, err := domain.ParseChatKind(kind)
	if err != nil {
		return domain.ChatMessage{}, domain.Validation("%v", err)
	}
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    ident.ID,
		Text:      text,
		Kind:      ck,
		Timestamp: m.now(),
	}
	if err := m.appendAsParticipant(ctx, id, ident.ID, func(tx Store) error {
		return tx.AppendChatMessage(ctx, id, msg)
	}); err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// AppendChatByRoom is the relay-side variant: the sender is known only by
// its channel identity and the consultation only by room id.
func (m *SessionManager) AppendChatByRoom(ctx context.Context, room domain.RoomID, sender domain.UserID, text string) (domain.ChatMessage, error) {
	cons, err := m.store.ConsultationByRoom(ctx, room)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return m.AppendChatMessage(ctx, cons.ID, domain.Identity{ID: sender}, text, string(domain.ChatText))
}

// RecordVital appends one vitals entry. Only doctors and assistants
// record vitals, and they must be logged participants.
func (m *SessionManager) RecordVital(ctx context.Context, id domain.ConsultationID, ident domain.Identity, kind, value, unit string) (domain.Vital, error) {
	vk, err := domain.ParseVitalKind(kind)
	if err != nil {
		return domain.Vital{}, domain.Validation("%v", err)
	}
	if value == "" || unit == "" {
		return domain.Vital{}, domain.Validation("vital value and unit are required")
	}
	if ident.Role != domain.RoleDoctor && ident.Role != domain.RoleAssistant {
		return domain.Vital{}, domain.AccessDenied("role %s may not record vitals", ident.Role)
	}
	v := domain.Vital{
		ID:         uuid.NewString(),
		Kind:       vk,
		Value:      value,
		Unit:       unit,
		RecordedBy: ident.ID,
		RecordedAt: m.now(),
	}
	if err := m.appendAsParticipant(ctx, id, ident.ID, func(tx Store) error {
		return tx.AppendVital(ctx, id, v)
	}); err != nil {
		return domain.Vital{}, err
	}
	return v, nil
}

// ReportTechnicalIssue appends one technical-issue entry.
func (m *SessionManager) ReportTechnicalIssue(ctx context.Context, id domain.ConsultationID, ident domain.Identity, kind, description string) (domain.TechnicalIssue, error) {
	ik, err := domain.ParseIssueKind(kind)
	if err != nil {
		return domain.TechnicalIssue{}, domain.Validation("%v", err)
	}
	if strings.TrimSpace(description) == "" {
		return domain.TechnicalIssue{}, domain.Validation("issue description is required")
	}
	issue := domain.TechnicalIssue{
		ID:          uuid.NewString(),
		Kind:        ik,
		Description: description,
		ReportedBy:  ident.ID,
		ReportedAt:  m.now(),
	}
	if err := m.appendAsParticipant(ctx, id, ident.ID, func(tx Store) error {
		return tx.AppendIssue(ctx, id, issue)
	}); err != nil {
		return domain.TechnicalIssue{}, err
	}
	return issue, nil
}

// ListChatMessages returns the chat log for a participant or an admin.
func (m *SessionManager) ListChatMessages(ctx context.Context, id domain.ConsultationID, ident domain.Identity) ([]domain.ChatMessage, error) {
	cons, err := m.GetSession(ctx, id, ident)
	if err != nil {
		return nil, err
	}
	return cons.ChatMessages, nil
}

// appendAsParticipant runs one append under the participant gate. The
// gate and the insert share a transaction so the membership check cannot
// go stale between read and write.
func (m *SessionManager) appendAsParticipant(ctx context.Context, id domain.ConsultationID, uid domain.UserID, insert func(tx Store) error) error {
	return m.store.Transaction(ctx, func(tx Store) error {
		cons, err := tx.ConsultationByID(ctx, id)
		if err != nil {
			return err
		}
		if !cons.HasParticipant(uid) {
			return domain.AccessDenied("user %s is not a participant of consultation %s", uid, id)
		}
		return insert(tx)
	})
}
