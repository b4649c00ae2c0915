package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/internal/realtime"
	"github.com/noah-isme/sma-dismissal-api/internal/repository"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

// memoryQueue mimics the conditional semantics of the queue and position
// statements against an in-memory table.
type memoryQueue struct {
	mu       sync.Mutex
	entries  map[string]*models.QueueEntry
	seq      map[string]int
	schools  map[string]string
	closed   map[string]bool
	students map[string]models.Student
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{
		entries:  make(map[string]*models.QueueEntry),
		seq:      make(map[string]int),
		schools:  make(map[string]string),
		closed:   make(map[string]bool),
		students: make(map[string]models.Student),
	}
}

func (m *memoryQueue) addSession(sessionID, schoolID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schools[sessionID] = schoolID
}

func (m *memoryQueue) completeSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[sessionID] = true
}

func (m *memoryQueue) sessionStatus(sessionID string) models.SessionStatus {
	if m.closed[sessionID] {
		return models.SessionStatusCompleted
	}
	return models.SessionStatusActive
}

func (m *memoryQueue) setStatus(id string, status models.EntryStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id].Status = status
}

func (m *memoryQueue) status(id string) models.EntryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[id].Status
}

func (m *memoryQueue) GetByID(ctx context.Context, id string) (*models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *entry
	copy.SessionStatus = m.sessionStatus(entry.SessionID)
	return &copy, nil
}

func (m *memoryQueue) sorted(sessionID string) []*models.QueueEntry {
	out := make([]*models.QueueEntry, 0)
	for _, entry := range m.entries {
		if entry.SessionID == sessionID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memoryQueue) List(ctx context.Context, sessionID string, filter models.EntryFilter) ([]models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.QueueEntry, 0)
	for _, entry := range m.sorted(sessionID) {
		if filter.Status != nil && entry.Status != *filter.Status {
			continue
		}
		result = append(result, *entry)
	}
	return result, nil
}

func (m *memoryQueue) EnrolledStudentIDs(ctx context.Context, sessionID string, studentIDs []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}
	found := make(map[string]struct{})
	for _, entry := range m.entries {
		if entry.SessionID != sessionID {
			continue
		}
		if _, ok := wanted[entry.StudentID]; ok {
			found[entry.StudentID] = struct{}{}
		}
	}
	return found, nil
}

func (m *memoryQueue) ReservePositions(ctx context.Context, sessionID string, n int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schools[sessionID]; !ok || m.closed[sessionID] {
		return 0, sql.ErrNoRows
	}
	m.seq[sessionID] += n
	return m.seq[sessionID] - n + 1, nil
}

func (m *memoryQueue) Insert(ctx context.Context, entry models.NewEntry) (*models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.entries {
		if existing.SessionID == entry.SessionID && existing.StudentID == entry.StudentID {
			return nil, sql.ErrNoRows
		}
	}
	student := m.students[entry.StudentID]
	created := &models.QueueEntry{
		ID:            entry.ID,
		SessionID:     entry.SessionID,
		StudentID:     entry.StudentID,
		GuardianID:    entry.GuardianID,
		GuardianName:  entry.GuardianName,
		CheckInTime:   entry.CheckInTime,
		CheckInMethod: entry.CheckInMethod,
		Status:        entry.Status,
		DismissedAt:   entry.DismissedAt,
		Position:      entry.Position,
		CreatedAt:     entry.CheckInTime,
		UpdatedAt:     entry.CheckInTime,
		SchoolID:      m.schools[entry.SessionID],
		StudentName:   student.FullName,
		Grade:         student.Grade,
		HomeroomID:    student.HomeroomID,
		HomeroomName:  student.HomeroomName,
	}
	m.entries[created.ID] = created
	copy := *created
	return &copy, nil
}

func applyTransition(entry *models.QueueEntry, params repository.EntryTransition) {
	at := params.At
	entry.Status = params.To
	entry.UpdatedAt = at
	switch params.To {
	case models.EntryStatusCalled:
		entry.CalledAt = &at
		entry.Zone = params.Zone
	case models.EntryStatusReleased:
		entry.ReleasedAt = &at
	case models.EntryStatusDismissed:
		entry.DismissedAt = &at
	case models.EntryStatusHeld:
		entry.HoldReason = params.Reason
	case models.EntryStatusDelayed:
		entry.DelayedUntil = params.Until
	}
}

func (m *memoryQueue) Transition(ctx context.Context, params repository.EntryTransition) ([]models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.QueueEntry, 0)
	for _, id := range params.IDs {
		entry, ok := m.entries[id]
		if !ok || !entry.Status.In(params.Allowed) {
			continue
		}
		if params.SchoolID != "" && entry.SchoolID != params.SchoolID {
			continue
		}
		if m.closed[entry.SessionID] {
			continue
		}
		applyTransition(entry, params)
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (m *memoryQueue) TransitionOne(ctx context.Context, params repository.EntryTransition) (*models.QueueEntry, error) {
	entries, err := m.Transition(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sql.ErrNoRows
	}
	return &entries[0], nil
}

func (m *memoryQueue) CallNext(ctx context.Context, sessionID string, count int, zone *string, at time.Time) ([]models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.QueueEntry, 0, count)
	if m.closed[sessionID] {
		return result, nil
	}
	for _, entry := range m.sorted(sessionID) {
		if len(result) == count {
			break
		}
		if entry.Status != models.EntryStatusWaiting {
			continue
		}
		applyTransition(entry, repository.EntryTransition{To: models.EntryStatusCalled, At: at, Zone: zone})
		result = append(result, *entry)
	}
	return result, nil
}

func (m *memoryQueue) Stats(ctx context.Context, sessionID string) (*models.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.QueueStats{SessionID: sessionID, ByStatus: make(map[models.EntryStatus]int)}
	for _, status := range models.EntryStatuses {
		stats.ByStatus[status] = 0
	}
	var waited float64
	var dismissed int
	for _, entry := range m.sorted(sessionID) {
		stats.Total++
		stats.ByStatus[entry.Status]++
		if entry.DismissedAt != nil {
			dismissed++
			waited += entry.DismissedAt.Sub(entry.CheckInTime).Seconds()
		}
	}
	if dismissed > 0 {
		stats.AverageWaitSeconds = waited / float64(dismissed)
	}
	return stats, nil
}

type sessionAccessStub struct {
	sessions map[string]*models.Session
}

func (s *sessionAccessStub) Get(ctx context.Context, caller *models.Caller, id string) (*models.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if err := authorizeSchool(caller, session.SchoolID); err != nil {
		return nil, err
	}
	copy := *session
	return &copy, nil
}

type membershipStub struct {
	members map[string]bool
	roles   []models.UserRole
}

func (m *membershipStub) HasMembership(ctx context.Context, schoolID, userID string, roles []models.UserRole) (bool, error) {
	m.roles = roles
	return m.members[schoolID+"/"+userID], nil
}

type recordingHub struct {
	mu         sync.Mutex
	deliveries []realtime.Delivery
}

func (h *recordingHub) Publish(deliveries []realtime.Delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliveries = append(h.deliveries, deliveries...)
}

func (h *recordingHub) events(topicKey string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0)
	for _, d := range h.deliveries {
		if d.Topic.Key() == topicKey {
			out = append(out, d.Message.Event)
		}
	}
	return out
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (e *recordingEmitter) Emit(event models.DomainEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

type memoryActivity struct {
	mu   sync.Mutex
	logs []models.ActivityLog
}

func (m *memoryActivity) Append(ctx context.Context, logs []models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, logs...)
	return nil
}

func (m *memoryActivity) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ActivityLog, 0)
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].SessionID == sessionID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

const (
	testSchoolID  = "school-1"
	testSessionID = "session-1"
)

var testNow = time.Date(2024, 5, 14, 19, 0, 0, 0, time.UTC)

type queueFixture struct {
	svc      *QueueService
	store    *memoryQueue
	session  *models.Session
	members  *membershipStub
	hub      *recordingHub
	emitter  *recordingEmitter
	activity *memoryActivity
	cache    *memoryCache
	office   *models.Caller
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	store := newMemoryQueue()
	store.addSession(testSessionID, testSchoolID)
	session := &models.Session{ID: testSessionID, SchoolID: testSchoolID, Status: models.SessionStatusActive, SessionDate: testNow.Truncate(24 * time.Hour)}
	members := &membershipStub{members: map[string]bool{testSchoolID + "/office-1": true}}
	hub := &recordingHub{}
	emitter := &recordingEmitter{}
	activity := &memoryActivity{}
	cache := newMemoryCache()

	svc := NewQueueService(
		store,
		store,
		&sessionAccessStub{sessions: map[string]*models.Session{testSessionID: session}},
		members,
		NewActivityService(activity, 50, zap.NewNop()),
		NewCacheService(cache, nil, time.Minute, zap.NewNop(), true),
		NewBroadcaster(hub, emitter, zap.NewNop()),
		nil,
		nil,
		zap.NewNop(),
		QueueConfig{},
	)
	svc.now = func() time.Time { return testNow }

	return &queueFixture{
		svc:      svc,
		store:    store,
		session:  session,
		members:  members,
		hub:      hub,
		emitter:  emitter,
		activity: activity,
		cache:    cache,
		office:   &models.Caller{UserID: "office-1", Role: models.RoleOffice, SchoolID: testSchoolID},
	}
}

func testStudent(id string) models.Student {
	homeroom := "homeroom-" + id
	return models.Student{ID: id, SchoolID: testSchoolID, FullName: "Student " + id, HomeroomID: &homeroom, DismissalType: models.DismissalTypeCar, Active: true}
}

func (f *queueFixture) enroll(t *testing.T, guardianID string, ids ...string) *EnrollResult {
	t.Helper()
	students := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		student := testStudent(id)
		f.store.students[id] = student
		students = append(students, student)
	}
	var guardian *string
	if guardianID != "" {
		guardian = &guardianID
	}
	result, err := f.svc.Enroll(context.Background(), Enrollment{
		Session:      f.session,
		Students:     students,
		GuardianID:   guardian,
		GuardianName: "Guardian",
		Method:       models.CheckInMethodApp,
		Actor:        f.office,
	})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return result
}
