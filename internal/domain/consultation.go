package domain

import (
	"fmt"
	"math"
	"time"
)

type (
	ConsultationID string
	RoomID         string
)

type ConsultationStatus string

const (
	ConsultationWaiting   ConsultationStatus = "waiting"
	ConsultationActive    ConsultationStatus = "active"
	ConsultationEnded     ConsultationStatus = "ended"
	ConsultationCancelled ConsultationStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s ConsultationStatus) Terminal() bool {
	return s == ConsultationEnded || s == ConsultationCancelled
}

// Participant is one row of the durable participant log. It records who
// ever joined the consultation, not who is live right now.
type Participant struct {
	UserID   UserID     `json:"user_id"`
	Role     Role       `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

type ChatKind string

const (
	ChatText   ChatKind = "text"
	ChatFile   ChatKind = "file"
	ChatSystem ChatKind = "system"
)

func ParseChatKind(s string) (ChatKind, error) {
	switch ChatKind(s) {
	case ChatText, ChatFile, ChatSystem:
		return ChatKind(s), nil
	case "":
		return ChatText, nil
	}
	return "", fmt.Errorf("unknown chat kind %q", s)
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    UserID    `json:"sender"`
	Text      string    `json:"text"`
	Kind      ChatKind  `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

type VitalKind string

const (
	VitalBloodPressure    VitalKind = "blood_pressure"
	VitalHeartRate        VitalKind = "heart_rate"
	VitalTemperature      VitalKind = "temperature"
	VitalOxygenSaturation VitalKind = "oxygen_saturation"
	VitalWeight           VitalKind = "weight"
	VitalHeight           VitalKind = "height"
)

func ParseVitalKind(s string) (VitalKind, error) {
	switch VitalKind(s) {
	case VitalBloodPressure, VitalHeartRate, VitalTemperature,
		VitalOxygenSaturation, VitalWeight, VitalHeight:
		return VitalKind(s), nil
	}
	return "", fmt.Errorf("unknown vital kind %q", s)
}

type Vital struct {
	ID         string    `json:"id"`
	Kind       VitalKind `json:"kind"`
	Value      string    `json:"value"`
	Unit       string    `json:"unit"`
	RecordedBy UserID    `json:"recorded_by"`
	RecordedAt time.Time `json:"recorded_at"`
}

type IssueKind string

const (
	IssueAudio      IssueKind = "audio"
	IssueVideo      IssueKind = "video"
	IssueConnection IssueKind = "connection"
	IssueOther      IssueKind = "other"
)

func ParseIssueKind(s string) (IssueKind, error) {
	switch IssueKind(s) {
	case IssueAudio, IssueVideo, IssueConnection, IssueOther:
		return IssueKind(s), nil
	}
	return "", fmt.Errorf("unknown issue kind %q", s)
}

type TechnicalIssue struct {
	ID          string    `json:"id"`
	Kind        IssueKind `json:"kind"`
	Description string    `json:"description"`
	ReportedBy  UserID    `json:"reported_by"`
	ReportedAt  time.Time `json:"reported_at"`
	Resolved    bool      `json:"resolved"`
}

// Consultation is the durable session record paired with one appointment.
// The room id is immutable once set; chat/vitals/issue logs are append-only.
type Consultation struct {
	ID            ConsultationID     `json:"id"`
	AppointmentID AppointmentID      `json:"appointment_id"`
	RoomID        RoomID             `json:"room_id"`
	Status        ConsultationStatus `json:"status"`
	StartTime     *time.Time         `json:"start_time,omitempty"`
	EndTime       *time.Time         `json:"end_time,omitempty"`
	// DurationMinutes is always recomputed from start/end, never hand-set.
	DurationMinutes *int `json:"duration_minutes,omitempty"`

	Participants []Participant    `json:"participants"`
	ChatMessages []ChatMessage    `json:"chat_messages"`
	Vitals       []Vital          `json:"vitals"`
	Issues       []TechnicalIssue `json:"technical_issues"`
}

// HasParticipant reports whether uid appears in the durable participant log.
func (c *Consultation) HasParticipant(uid UserID) bool {
	for _, p := range c.Participants {
		if p.UserID == uid {
			return true
		}
	}
	return false
}

// ParticipantRole returns the logged role of uid, if any.
func (c *Consultation) ParticipantRole(uid UserID) (Role, bool) {
	for _, p := range c.Participants {
		if p.UserID == uid {
			return p.Role, true
		}
	}
	return "", false
}

// ComputeDuration derives the duration in whole minutes from start/end.
func (c *Consultation) ComputeDuration() {
	if c.StartTime == nil || c.EndTime == nil {
		c.DurationMinutes = nil
		return
	}
	mins := int(math.Round(c.EndTime.Sub(*c.StartTime).Seconds() / 60))
	c.DurationMinutes = &mins
}

// NewRoomID builds a room id for appointments booked without a
// correlation token.
func NewRoomID(appointmentID AppointmentID, now time.Time) RoomID {
	return RoomID(fmt.Sprintf("room_%s_%d", appointmentID, now.UnixMilli()))
}
