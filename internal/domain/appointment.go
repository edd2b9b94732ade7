package domain

import "time"

type AppointmentID string

type AppointmentStatus string

const (
	AppointmentPending    AppointmentStatus = "pending"
	AppointmentConfirmed  AppointmentStatus = "confirmed"
	AppointmentInProgress AppointmentStatus = "in-progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
	AppointmentNoShow     AppointmentStatus = "no-show"
)

// Appointment is the durable booking record. It is created by the
// scheduling collaborator; the coordinator only reads it and drives the
// confirmed -> in-progress -> completed transitions.
type Appointment struct {
	ID          AppointmentID
	PatientID   UserID
	DoctorID    UserID
	AssistantID UserID // optional, empty when no assistant is assigned
	Date        time.Time
	TimeSlot    string
	Status      AppointmentStatus

	// ConsultationToken is the session-correlation token generated at
	// booking time. It becomes the room id of the consultation.
	ConsultationToken string
}

// Involves reports whether the given user is booked on this appointment.
func (a *Appointment) Involves(uid UserID) bool {
	if uid == "" {
		return false
	}
	return a.PatientID == uid || a.DoctorID == uid || a.AssistantID == uid
}
