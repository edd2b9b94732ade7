// Package storage implements the durable-store collaborator on
// Postgres via gorm. Reads made inside a transaction take FOR UPDATE
// row locks, which serializes concurrent lifecycle transitions on the
// same appointment or consultation.
package storage

import (
	"context"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/sehatlink/teleconsult/internal/app"
	"github.com/sehatlink/teleconsult/internal/domain"
)

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&appointmentRow{},
		&consultationRow{},
		&participantRow{},
		&chatMessageRow{},
		&vitalRow{},
		&issueRow{},
	); err != nil {
		return nil, err
	}
	return db, nil
}

type Store struct {
	db   *gorm.DB
	inTx bool
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// Transaction runs fn against a transactional Store. Nested calls reuse
// the surrounding transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx app.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.TransientStore(err, "transaction failed")
}

// locked adds a FOR UPDATE clause when running inside a transaction.
func (s *Store) locked(q *gorm.DB) *gorm.DB {
	if s.inTx {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *Store) AppointmentByID(ctx context.Context, id domain.AppointmentID) (*domain.Appointment, error) {
	var row appointmentRow
	err := s.locked(s.db.WithContext(ctx)).First(&row, "id = ?", string(id)).Error
	if err != nil {
		return nil, translate(err, "appointment %s", id)
	}
	return row.toDomain(), nil
}

func (s *Store) SaveAppointment(ctx context.Context, a *domain.Appointment) error {
	row := appointmentFromDomain(a)
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return translate(err, "appointment %s", a.ID)
	}
	return nil
}

func (s *Store) ConsultationByID(ctx context.Context, id domain.ConsultationID) (*domain.Consultation, error) {
	var row consultationRow
	err := s.locked(s.db.WithContext(ctx)).First(&row, "id = ?", string(id)).Error
	if err != nil {
		return nil, translate(err, "consultation %s", id)
	}
	return s.assemble(ctx, &row)
}

func (s *Store) ConsultationByAppointment(ctx context.Context, id domain.AppointmentID) (*domain.Consultation, error) {
	var row consultationRow
	err := s.locked(s.db.WithContext(ctx)).First(&row, "appointment_id = ?", string(id)).Error
	if err != nil {
		return nil, translate(err, "consultation for appointment %s", id)
	}
	return s.assemble(ctx, &row)
}

func (s *Store) ConsultationByRoom(ctx context.Context, room domain.RoomID) (*domain.Consultation, error) {
	var row consultationRow
	err := s.locked(s.db.WithContext(ctx)).First(&row, "room_id = ?", string(room)).Error
	if err != nil {
		return nil, translate(err, "consultation for room %s", room)
	}
	return s.assemble(ctx, &row)
}

func (s *Store) CreateConsultation(ctx context.Context, c *domain.Consultation) error {
	row := consultationFromDomain(c)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.InvalidState("consultation for appointment %s or room %s already exists", c.AppointmentID, c.RoomID)
		}
		return translate(err, "consultation %s", c.ID)
	}
	return nil
}

// SaveConsultation persists the scalar fields of the record. The room id
// is immutable once set and the log tables are written via the Append
// methods only.
func (s *Store) SaveConsultation(ctx context.Context, c *domain.Consultation) error {
	err := s.db.WithContext(ctx).Model(&consultationRow{ID: string(c.ID)}).Updates(map[string]any{
		"status":           string(c.Status),
		"start_time":       c.StartTime,
		"end_time":         c.EndTime,
		"duration_minutes": c.DurationMinutes,
	}).Error
	if err != nil {
		return translate(err, "consultation %s", c.ID)
	}
	return nil
}

func (s *Store) AddParticipant(ctx context.Context, id domain.ConsultationID, p domain.Participant) error {
	row := &participantRow{
		ConsultationID: string(id),
		UserID:         string(p.UserID),
		Role:           string(p.Role),
		JoinedAt:       p.JoinedAt,
		LeftAt:         p.LeftAt,
	}
	err := s.db.WithContext(ctx).Create(row).Error
	if err != nil {
		// The unique (consultation, user) index makes a concurrent
		// duplicate join a no-op rather than a failure.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return translate(err, "participant %s of consultation %s", p.UserID, id)
	}
	return nil
}

func (s *Store) AppendChatMessage(ctx context.Context, id domain.ConsultationID, m domain.ChatMessage) error {
	row := &chatMessageRow{
		ID:             m.ID,
		ConsultationID: string(id),
		SenderID:       string(m.Sender),
		Text:           m.Text,
		Kind:           string(m.Kind),
		Timestamp:      m.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err, "chat message for consultation %s", id)
	}
	return nil
}

func (s *Store) AppendVital(ctx context.Context, id domain.ConsultationID, v domain.Vital) error {
	row := &vitalRow{
		ID:             v.ID,
		ConsultationID: string(id),
		Kind:           string(v.Kind),
		Value:          v.Value,
		Unit:           v.Unit,
		RecordedBy:     string(v.RecordedBy),
		RecordedAt:     v.RecordedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err, "vital for consultation %s", id)
	}
	return nil
}

func (s *Store) AppendIssue(ctx context.Context, id domain.ConsultationID, i domain.TechnicalIssue) error {
	row := &issueRow{
		ID:             i.ID,
		ConsultationID: string(id),
		Kind:           string(i.Kind),
		Description:    i.Description,
		ReportedBy:     string(i.ReportedBy),
		ReportedAt:     i.ReportedAt,
		Resolved:       i.Resolved,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err, "issue for consultation %s", id)
	}
	return nil
}

// assemble loads the append-only logs and builds the domain record.
func (s *Store) assemble(ctx context.Context, row *consultationRow) (*domain.Consultation, error) {
	cons := &domain.Consultation{
		ID:              domain.ConsultationID(row.ID),
		AppointmentID:   domain.AppointmentID(row.AppointmentID),
		RoomID:          domain.RoomID(row.RoomID),
		Status:          domain.ConsultationStatus(row.Status),
		StartTime:       row.StartTime,
		EndTime:         row.EndTime,
		DurationMinutes: row.DurationMinutes,
	}
	db := s.db.WithContext(ctx)

	var participants []participantRow
	if err := db.Where("consultation_id = ?", row.ID).Order("joined_at").Find(&participants).Error; err != nil {
		return nil, translate(err, "participants of consultation %s", row.ID)
	}
	for _, p := range participants {
		cons.Participants = append(cons.Participants, domain.Participant{
			UserID:   domain.UserID(p.UserID),
			Role:     domain.Role(p.Role),
			JoinedAt: p.JoinedAt,
			LeftAt:   p.LeftAt,
		})
	}

	var messages []chatMessageRow
	if err := db.Where("consultation_id = ?", row.ID).Order("timestamp").Find(&messages).Error; err != nil {
		return nil, translate(err, "chat log of consultation %s", row.ID)
	}
	for _, m := range messages {
		cons.ChatMessages = append(cons.ChatMessages, domain.ChatMessage{
			ID:        m.ID,
			Sender:    domain.UserID(m.SenderID),
			Text:      m.Text,
			Kind:      domain.ChatKind(m.Kind),
			Timestamp: m.Timestamp,
		})
	}

	var vitals []vitalRow
	if err := db.Where("consultation_id = ?", row.ID).Order("recorded_at").Find(&vitals).Error; err != nil {
		return nil, translate(err, "vitals of consultation %s", row.ID)
	}
	for _, v := range vitals {
		cons.Vitals = append(cons.Vitals, domain.Vital{
			ID:         v.ID,
			Kind:       domain.VitalKind(v.Kind),
			Value:      v.Value,
			Unit:       v.Unit,
			RecordedBy: domain.UserID(v.RecordedBy),
			RecordedAt: v.RecordedAt,
		})
	}

	var issues []issueRow
	if err := db.Where("consultation_id = ?", row.ID).Order("reported_at").Find(&issues).Error; err != nil {
		return nil, translate(err, "issues of consultation %s", row.ID)
	}
	for _, i := range issues {
		cons.Issues = append(cons.Issues, domain.TechnicalIssue{
			ID:          i.ID,
			Kind:        domain.IssueKind(i.Kind),
			Description: i.Description,
			ReportedBy:  domain.UserID(i.ReportedBy),
			ReportedAt:  i.ReportedAt,
			Resolved:    i.Resolved,
		})
	}
	return cons, nil
}

func translate(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(format+" not found", args...)
	}
	return domain.TransientStore(err, format, args...)
}
