package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatlink/teleconsult/internal/domain"
)

// memStore is an in-memory Store for exercising the lifecycle manager
// without a database. Single-goroutine tests, so no locking.
type memStore struct {
	appointments  map[domain.AppointmentID]*domain.Appointment
	consultations map[domain.ConsultationID]*domain.Consultation

	failSaveAppointment bool
	failAppendChat      bool
}

func newMemStore() *memStore {
	return &memStore{
		appointments:  make(map[domain.AppointmentID]*domain.Appointment),
		consultations: make(map[domain.ConsultationID]*domain.Consultation),
	}
}

func (s *memStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(s)
}

func (s *memStore) AppointmentByID(_ context.Context, id domain.AppointmentID) (*domain.Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return nil, domain.NotFound("appointment %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) SaveAppointment(_ context.Context, a *domain.Appointment) error {
	if s.failSaveAppointment {
		return domain.TransientStore(assert.AnError, "appointment %s", a.ID)
	}
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (s *memStore) ConsultationByID(_ context.Context, id domain.ConsultationID) (*domain.Consultation, error) {
	c, ok := s.consultations[id]
	if !ok {
		return nil, domain.NotFound("consultation %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ConsultationByAppointment(_ context.Context, id domain.AppointmentID) (*domain.Consultation, error) {
	for _, c := range s.consultations {
		if c.AppointmentID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.NotFound("consultation for appointment %s not found", id)
}

func (s *memStore) ConsultationByRoom(_ context.Context, room domain.RoomID) (*domain.Consultation, error) {
	for _, c := range s.consultations {
		if c.RoomID == room {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.NotFound("consultation for room %s not found", room)
}

func (s *memStore) CreateConsultation(_ context.Context, c *domain.Consultation) error {
	for _, existing := range s.consultations {
		if existing.RoomID == c.RoomID || existing.AppointmentID == c.AppointmentID {
			return domain.InvalidState("consultation for appointment %s or room %s already exists", c.AppointmentID, c.RoomID)
		}
	}
	cp := *c
	s.consultations[c.ID] = &cp
	return nil
}

func (s *memStore) SaveConsultation(_ context.Context, c *domain.Consultation) error {
	stored, ok := s.consultations[c.ID]
	if !ok {
		return domain.NotFound("consultation %s not found", c.ID)
	}
	stored.Status = c.Status
	stored.StartTime = c.StartTime
	stored.EndTime = c.EndTime
	stored.DurationMinutes = c.DurationMinutes
	return nil
}

func (s *memStore) AddParticipant(_ context.Context, id domain.ConsultationID, p domain.Participant) error {
	stored, ok := s.consultations[id]
	if !ok {
		return domain.NotFound("consultation %s not found", id)
	}
	for _, existing := range stored.Participants {
		if existing.UserID == p.UserID {
			return nil
		}
	}
	stored.Participants = append(stored.Participants, p)
	return nil
}

func (s *memStore) AppendChatMessage(_ context.Context, id domain.ConsultationID, m domain.ChatMessage) error {
	if s.failAppendChat {
		return domain.TransientStore(assert.AnError, "chat message for consultation %s", id)
	}
	stored, ok := s.consultations[id]
	if !ok {
		return domain.NotFound("consultation %s not found", id)
	}
	stored.ChatMessages = append(stored.ChatMessages, m)
	return nil
}

func (s *memStore) AppendVital(_ context.Context, id domain.ConsultationID, v domain.Vital) error {
	stored, ok := s.consultations[id]
	if !ok {
		return domain.NotFound("consultation %s not found", id)
	}
	stored.Vitals = append(stored.Vitals, v)
	return nil
}

func (s *memStore) AppendIssue(_ context.Context, id domain.ConsultationID, i domain.TechnicalIssue) error {
	stored, ok := s.consultations[id]
	if !ok {
		return domain.NotFound("consultation %s not found", id)
	}
	stored.Issues = append(stored.Issues, i)
	return nil
}

var (
	doctor    = domain.Identity{ID: "doctor-1", Role: domain.RoleDoctor}
	patient   = domain.Identity{ID: "patient-1", Role: domain.RolePatient}
	assistant = domain.Identity{ID: "assistant-1", Role: domain.RoleAssistant}
	admin     = domain.Identity{ID: "admin-1", Role: domain.RoleAdmin}
	stranger  = domain.Identity{ID: "stranger-1", Role: domain.RolePatient}
)

func seedAppointment(s *memStore) *domain.Appointment {
	a := &domain.Appointment{
		ID:                "appt-1",
		PatientID:         patient.ID,
		DoctorID:          doctor.ID,
		AssistantID:       assistant.ID,
		Date:              time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		TimeSlot:          "09:00-09:30",
		Status:            domain.AppointmentConfirmed,
		ConsultationToken: "room-token-1",
	}
	s.appointments[a.ID] = a
	return a
}

func TestStartSession_CreatesConsultationAndActivates(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)

	assert.Equal(t, domain.RoomID("room-token-1"), state.RoomID)
	assert.Equal(t, domain.ConsultationActive, state.Status)
	require.Len(t, state.Participants, 1)
	assert.Equal(t, doctor.ID, state.Participants[0].UserID)
	assert.Equal(t, domain.RoleDoctor, state.Participants[0].Role)

	stored := store.consultations[state.ConsultationID]
	require.NotNil(t, stored)
	require.NotNil(t, stored.StartTime)
	assert.Equal(t, domain.AppointmentInProgress, store.appointments["appt-1"].Status)
}

func TestStartSession_SecondParticipantReusesConsultation(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	first, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)
	second, err := m.StartSession(context.Background(), "appt-1", patient)
	require.NoError(t, err)

	assert.Equal(t, first.ConsultationID, second.ConsultationID)
	assert.Equal(t, first.RoomID, second.RoomID)
	assert.Equal(t, domain.ConsultationActive, second.Status)
	assert.Len(t, second.Participants, 2)
	assert.Len(t, store.consultations, 1)
}

func TestStartSession_IdempotentForSameParticipant(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	first, err := m.StartSession(context.Background(), "appt-1", patient)
	require.NoError(t, err)
	again, err := m.StartSession(context.Background(), "appt-1", patient)
	require.NoError(t, err)

	assert.Equal(t, first.ConsultationID, again.ConsultationID)
	assert.Len(t, again.Participants, 1)
	assert.Len(t, store.consultations[again.ConsultationID].Participants, 1)
}

func TestStartSession_GeneratesRoomIDWithoutToken(t *testing.T) {
	store := newMemStore()
	appt := seedAppointment(store)
	appt.ConsultationToken = ""
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)
	assert.Contains(t, string(state.RoomID), "room_appt-1_")
}

func TestStartSession_Errors(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	_, err := m.StartSession(context.Background(), "missing", doctor)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = m.StartSession(context.Background(), "appt-1", stranger)
	assert.Equal(t, domain.KindAccessDenied, domain.KindOf(err))

	// Admin bypasses the booking check.
	_, err = m.StartSession(context.Background(), "appt-1", admin)
	assert.NoError(t, err)
}

func TestStartSession_TerminalConsultationRejected(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)
	store.consultations[state.ConsultationID].Status = domain.ConsultationEnded

	_, err = m.StartSession(context.Background(), "appt-1", patient)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestStartSession_AppointmentSaveFailureSurfacesAndRetries(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	store.failSaveAppointment = true
	_, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.Error(t, err)
	assert.Equal(t, domain.KindTransientStore, domain.KindOf(err))

	// Retry is safe: the join is idempotent.
	store.failSaveAppointment = false
	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)
	assert.Len(t, state.Participants, 1)
	assert.Equal(t, domain.AppointmentInProgress, store.appointments["appt-1"].Status)
}

func TestEndSession_DoctorOnly(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)
	_, err = m.StartSession(context.Background(), "appt-1", patient)
	require.NoError(t, err)

	_, err = m.EndSession(context.Background(), state.ConsultationID, patient)
	assert.Equal(t, domain.KindAccessDenied, domain.KindOf(err))

	cons, err := m.EndSession(context.Background(), state.ConsultationID, doctor)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsultationEnded, cons.Status)
	require.NotNil(t, cons.EndTime)
	require.NotNil(t, cons.DurationMinutes)
	assert.Equal(t, domain.AppointmentCompleted, store.appointments["appt-1"].Status)
}

func TestEndSession_Errors(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	_, err := m.EndSession(context.Background(), "missing", doctor)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)
	_, err = m.EndSession(context.Background(), state.ConsultationID, doctor)
	require.NoError(t, err)

	// Ended is absorbing.
	_, err = m.EndSession(context.Background(), state.ConsultationID, doctor)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestEndSession_DurationRounding(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	base := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)

	// 9m40s rounds up to 10 minutes.
	m.now = func() time.Time { return base.Add(9*time.Minute + 40*time.Second) }
	cons, err := m.EndSession(context.Background(), state.ConsultationID, doctor)
	require.NoError(t, err)
	require.NotNil(t, cons.DurationMinutes)
	assert.Equal(t, 10, *cons.DurationMinutes)
}

func TestEndSession_NoStartTimeLeavesDurationUnset(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	cons := &domain.Consultation{
		ID:            "cons-1",
		AppointmentID: "appt-1",
		RoomID:        "room-token-1",
		Status:        domain.ConsultationActive,
		Participants: []domain.Participant{
			{UserID: doctor.ID, Role: domain.RoleDoctor, JoinedAt: time.Now()},
		},
	}
	store.consultations[cons.ID] = cons

	ended, err := m.EndSession(context.Background(), "cons-1", doctor)
	require.NoError(t, err)
	assert.Nil(t, ended.DurationMinutes)
}

func TestGetSession_ParticipantOrAdmin(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)

	_, err = m.GetSession(context.Background(), state.ConsultationID, stranger)
	assert.Equal(t, domain.KindAccessDenied, domain.KindOf(err))

	_, err = m.GetSession(context.Background(), state.ConsultationID, admin)
	assert.NoError(t, err)
}

func TestAppendChatMessage(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)

	msg, err := m.AppendChatMessage(context.Background(), state.ConsultationID, doctor, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, doctor.ID, msg.Sender)
	assert.Equal(t, domain.ChatText, msg.Kind)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Len(t, store.consultations[state.ConsultationID].ChatMessages, 1)

	_, err = m.AppendChatMessage(context.Background(), state.ConsultationID, stranger, "hi", "")
	assert.Equal(t, domain.KindAccessDenied, domain.KindOf(err))

	_, err = m.AppendChatMessage(context.Background(), state.ConsultationID, doctor, "  ", "")
	assert.Equal(t, domain.KindValidationFailed, domain.KindOf(err))

	_, err = m.AppendChatMessage(context.Background(), state.ConsultationID, doctor, "x", "emoji")
	assert.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
}

func TestAppendChatByRoom(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)

	msg, err := m.AppendChatByRoom(context.Background(), state.RoomID, doctor.ID, "over the wire")
	require.NoError(t, err)
	assert.Equal(t, "over the wire", msg.Text)

	_, err = m.AppendChatByRoom(context.Background(), "no-such-room", doctor.ID, "lost")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestRecordVital(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", assistant)
	require.NoError(t, err)
	_, err = m.StartSession(context.Background(), "appt-1", patient)
	require.NoError(t, err)

	v, err := m.RecordVital(context.Background(), state.ConsultationID, assistant, "heart_rate", "72", "bpm")
	require.NoError(t, err)
	assert.Equal(t, domain.VitalHeartRate, v.Kind)
	assert.Len(t, store.consultations[state.ConsultationID].Vitals, 1)

	_, err = m.RecordVital(context.Background(), state.ConsultationID, assistant, "mood", "great", "n/a")
	assert.Equal(t, domain.KindValidationFailed, domain.KindOf(err))

	// Patients do not record vitals.
	_, err = m.RecordVital(context.Background(), state.ConsultationID, patient, "heart_rate", "72", "bpm")
	assert.Equal(t, domain.KindAccessDenied, domain.KindOf(err))
}

func TestReportTechnicalIssue(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", patient)
	require.NoError(t, err)

	issue, err := m.ReportTechnicalIssue(context.Background(), state.ConsultationID, patient, "audio", "echo on the line")
	require.NoError(t, err)
	assert.Equal(t, domain.IssueAudio, issue.Kind)
	assert.False(t, issue.Resolved)

	_, err = m.ReportTechnicalIssue(context.Background(), state.ConsultationID, patient, "telepathy", "weak signal")
	assert.Equal(t, domain.KindValidationFailed, domain.KindOf(err))

	_, err = m.ReportTechnicalIssue(context.Background(), state.ConsultationID, patient, "audio", "")
	assert.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
}

func TestListChatMessages(t *testing.T) {
	store := newMemStore()
	seedAppointment(store)
	m := NewSessionManager(store)

	state, err := m.StartSession(context.Background(), "appt-1", doctor)
	require.NoError(t, err)
	_, err = m.AppendChatMessage(context.Background(), state.ConsultationID, doctor, "first", "")
	require.NoError(t, err)

	msgs, err := m.ListChatMessages(context.Background(), state.ConsultationID, doctor)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = m.ListChatMessages(context.Background(), state.ConsultationID, stranger)
	assert.Equal(t, domain.KindAccessDenied, domain.KindOf(err))
}
