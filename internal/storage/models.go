package storage

import (
	"time"

	"github.com/sehatlink/teleconsult/internal/domain"
)

// Row types are kept free of gorm associations on purpose: children of
// a consultation are append-only logs, written by explicit inserts and
// read by explicit queries, never auto-saved alongside the parent.

type appointmentRow struct {
	ID                string `gorm:"primaryKey"`
	PatientID         string `gorm:"index"`
	DoctorID          string `gorm:"index"`
	AssistantID       string
	AppointmentDate   time.Time
	TimeSlot          string
	Status            string `gorm:"index"`
	ConsultationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (appointmentRow) TableName() string { return "appointments" }

func (r *appointmentRow) toDomain() *domain.Appointment {
	return &domain.Appointment{
		ID:                domain.AppointmentID(r.ID),
		PatientID:         domain.UserID(r.PatientID),
		DoctorID:          domain.UserID(r.DoctorID),
		AssistantID:       domain.UserID(r.AssistantID),
		Date:              r.AppointmentDate,
		TimeSlot:          r.TimeSlot,
		Status:            domain.AppointmentStatus(r.Status),
		ConsultationToken: r.ConsultationToken,
	}
}

func appointmentFromDomain(a *domain.Appointment) *appointmentRow {
	return &appointmentRow{
		ID:                string(a.ID),
		PatientID:         string(a.PatientID),
		DoctorID:          string(a.DoctorID),
		AssistantID:       string(a.AssistantID),
		AppointmentDate:   a.Date,
		TimeSlot:          a.TimeSlot,
		Status:            string(a.Status),
		ConsultationToken: a.ConsultationToken,
	}
}

type consultationRow struct {
	ID              string `gorm:"primaryKey"`
	AppointmentID   string `gorm:"uniqueIndex"`
	RoomID          string `gorm:"uniqueIndex"`
	Status          string `gorm:"index"`
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (consultationRow) TableName() string { return "consultations" }

func consultationFromDomain(c *domain.Consultation) *consultationRow {
	return &consultationRow{
		ID:              string(c.ID),
		AppointmentID:   string(c.AppointmentID),
		RoomID:          string(c.RoomID),
		Status:          string(c.Status),
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		DurationMinutes: c.DurationMinutes,
	}
}

type participantRow struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConsultationID string `gorm:"index;uniqueIndex:idx_consultation_user"`
	UserID         string `gorm:"uniqueIndex:idx_consultation_user"`
	Role           string
	JoinedAt       time.Time
	LeftAt         *time.Time
}

func (participantRow) TableName() string { return "consultation_participants" }

type chatMessageRow struct {
	ID             string `gorm:"primaryKey"`
	ConsultationID string `gorm:"index"`
	SenderID       string
	Text           string
	Kind           string
	Timestamp      time.Time `gorm:"index"`
}

func (chatMessageRow) TableName() string { return "chat_messages" }

type vitalRow struct {
	ID             string `gorm:"primaryKey"`
	ConsultationID string `gorm:"index"`
	Kind           string
	Value          string
	Unit           string
	RecordedBy     string
	RecordedAt     time.Time
}

func (vitalRow) TableName() string { return "vitals" }

type issueRow struct {
	ID             string `gorm:"primaryKey"`
	ConsultationID string `gorm:"index"`
	Kind           string
	Description    string
	ReportedBy     string
	ReportedAt     time.Time
	Resolved       bool
}

func (issueRow) TableName() string { return "technical_issues" }
