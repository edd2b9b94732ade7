package app

import (
	"context"

	"github.com/sehatlink/teleconsult/internal/domain"
)

// Store is the durable-store collaborator. Implementations must make
// "read current status, decide transition, write new status" atomic per
// document: reads performed inside Transaction take per-row locks, so
// two concurrent StartSession calls for one appointment serialize.
//
// Implementations translate their own failures into domain errors:
// missing rows become KindNotFound, anything else KindTransientStore.
type Store interface {
	// Transaction runs fn against a transactional view of the store.
	// fn returning an error rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	AppointmentByID(ctx context.Context, id domain.AppointmentID) (*domain.Appointment, error)
	SaveAppointment(ctx context.Context, a *domain.Appointment) error

	ConsultationByID(ctx context.Context, id domain.ConsultationID) (*domain.Consultation, error)
	ConsultationByAppointment(ctx context.Context, id domain.AppointmentID) (*domain.Consultation, error)
	ConsultationByRoom(ctx context.Context, room domain.RoomID) (*domain.Consultation, error)
	CreateConsultation(ctx context.Context, c *domain.Consultation) error
	SaveConsultation(ctx context.Context, c *domain.Consultation) error

	AddParticipant(ctx context.Context, id domain.ConsultationID, p domain.Participant) error
	AppendChatMessage(ctx context.Context, id domain.ConsultationID, m domain.ChatMessage) error
	AppendVital(ctx context.Context, id domain.ConsultationID, v domain.Vital) error
	AppendIssue(ctx context.Context, id domain.ConsultationID, i domain.TechnicalIssue) error
}
