package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/internal/realtime"
	"github.com/noah-isme/sma-dismissal-api/internal/repository"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

const defaultDelayOffset = 2 * time.Minute

// dismissRoles may dismiss any entry of a school they belong to.
var dismissRoles = []models.UserRole{models.RoleOffice, models.RoleAdmin}

type queueStore interface {
	GetByID(ctx context.Context, id string) (*models.QueueEntry, error)
	List(ctx context.Context, sessionID string, filter models.EntryFilter) ([]models.QueueEntry, error)
	EnrolledStudentIDs(ctx context.Context, sessionID string, studentIDs []string) (map[string]struct{}, error)
	Insert(ctx context.Context, entry models.NewEntry) (*models.QueueEntry, error)
	Transition(ctx context.Context, params repository.EntryTransition) ([]models.QueueEntry, error)
	TransitionOne(ctx context.Context, params repository.EntryTransition) (*models.QueueEntry, error)
	CallNext(ctx context.Context, sessionID string, count int, zone *string, at time.Time) ([]models.QueueEntry, error)
	Stats(ctx context.Context, sessionID string) (*models.QueueStats, error)
}

type positionReserver interface {
	ReservePositions(ctx context.Context, sessionID string, n int) (int, error)
}

type sessionAccess interface {
	Get(ctx context.Context, caller *models.Caller, id string) (*models.Session, error)
}

type membershipChecker interface {
	HasMembership(ctx context.Context, schoolID, userID string, roles []models.UserRole) (bool, error)
}

// QueueConfig tunes queue behaviour.
type QueueConfig struct {
	DelayOffset   time.Duration
	StatsCacheTTL time.Duration
}

// QueueService owns queue entry state transitions.
type QueueService struct {
	entries     queueStore
	positions   positionReserver
	sessions    sessionAccess
	members     membershipChecker
	activity    *ActivityService
	cache       *CacheService
	broadcaster *Broadcaster
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         QueueConfig
	now         func() time.Time
}

// NewQueueService constructs the service.
func NewQueueService(
	entries queueStore,
	positions positionReserver,
	sessions sessionAccess,
	members membershipChecker,
	activity *ActivityService,
	cache *CacheService,
	broadcaster *Broadcaster,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg QueueConfig,
) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DelayOffset <= 0 {
		cfg.DelayOffset = defaultDelayOffset
	}
	return &QueueService{
		entries:     entries,
		positions:   positions,
		sessions:    sessions,
		members:     members,
		activity:    activity,
		cache:       cache,
		broadcaster: broadcaster,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Enrollment describes students to add to a session queue.
type Enrollment struct {
	Session      *models.Session
	Students     []models.Student
	GuardianID   *string
	GuardianName string
	Method       models.CheckInMethod
	// Status defaults to waiting. Dismissed entries get dismissed_at = now.
	Status models.EntryStatus
	Actor  *models.Caller
}

// EnrollResult lists created entries and how many students were already queued.
type EnrollResult struct {
	Entries []models.QueueEntry
	Skipped int
}

// Enroll queues every student not already in the session. Positions for the
// batch are reserved in one step so they increase in student order.
func (s *QueueService) Enroll(ctx context.Context, req Enrollment) (*EnrollResult, error) {
	if req.Session.Status == models.SessionStatusCompleted {
		return nil, errSessionCompleted
	}
	result := &EnrollResult{Entries: make([]models.QueueEntry, 0, len(req.Students))}
	students := uniqueStudents(req.Students)
	result.Skipped = len(req.Students) - len(students)
	if len(students) == 0 {
		return result, nil
	}
	status := req.Status
	if status == "" {
		status = models.EntryStatusWaiting
	}

	ids := make([]string, len(students))
	for i := range students {
		ids[i] = students[i].ID
	}
	enrolled, err := s.entries.EnrolledStudentIDs(ctx, req.Session.ID, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing entries")
	}
	fresh := make([]models.Student, 0, len(students))
	for _, student := range students {
		if _, ok := enrolled[student.ID]; ok {
			result.Skipped++
			continue
		}
		fresh = append(fresh, student)
	}
	if len(fresh) == 0 {
		return result, nil
	}

	first, err := s.positions.ReservePositions(ctx, req.Session.ID, len(fresh))
	if err != nil {
		if isNoRows(err) {
			return nil, errSessionCompleted
		}
		return nil, appErrors.Internal(err, "failed to reserve queue positions")
	}

	now := s.now().UTC()
	var dismissedAt *time.Time
	if status == models.EntryStatusDismissed {
		dismissedAt = &now
	}
	for i, student := range fresh {
		entry, err := s.entries.Insert(ctx, models.NewEntry{
			ID:            uuid.NewString(),
			SessionID:     req.Session.ID,
			StudentID:     student.ID,
			GuardianID:    req.GuardianID,
			GuardianName:  req.GuardianName,
			CheckInTime:   now,
			CheckInMethod: req.Method,
			Status:        status,
			DismissedAt:   dismissedAt,
			Position:      first + i,
		})
		if err != nil {
			if isNoRows(err) {
				result.Skipped++
				continue
			}
			return nil, appErrors.Internal(err, "failed to enroll student")
		}
		result.Entries = append(result.Entries, *entry)
	}

	if len(result.Entries) > 0 {
		action, activity := realtime.ActionCheckedIn, models.ActivityCheckedIn
		if status == models.EntryStatusDismissed {
			action, activity = realtime.ActionDismissed, models.ActivityDismissed
		}
		s.activity.RecordEntries(ctx, activity, req.Actor, result.Entries, map[string]interface{}{"method": req.Method})
		s.metrics.RecordTransitions(string(status), len(result.Entries))
		s.cache.Invalidate(ctx, StatsCacheKey(req.Session.ID))
		s.broadcaster.QueueChanged(action, req.Session.SchoolID, result.Entries, len(result.Entries) > 1)
	}
	return result, nil
}

func uniqueStudents(students []models.Student) []models.Student {
	seen := make(map[string]struct{}, len(students))
	out := make([]models.Student, 0, len(students))
	for _, student := range students {
		if _, ok := seen[student.ID]; ok {
			continue
		}
		seen[student.ID] = struct{}{}
		out = append(out, student)
	}
	return out
}

// List returns a session queue ordered by position.
func (s *QueueService) List(ctx context.Context, caller *models.Caller, sessionID string, query dto.QueueQuery) ([]models.QueueEntry, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid queue filter")
	}
	if _, err := s.sessions.Get(ctx, caller, sessionID); err != nil {
		return nil, err
	}
	var filter models.EntryFilter
	if query.Status != "" {
		status := models.EntryStatus(query.Status)
		filter.Status = &status
	}
	entries, err := s.entries.List(ctx, sessionID, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list queue")
	}
	return entries, nil
}

// Stats aggregates a session queue, served from cache when fresh. The bool
// reports a cache hit.
func (s *QueueService) Stats(ctx context.Context, caller *models.Caller, sessionID string) (*models.QueueStats, bool, error) {
	if _, err := s.sessions.Get(ctx, caller, sessionID); err != nil {
		return nil, false, err
	}
	key := StatsCacheKey(sessionID)
	var cached models.QueueStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}
	stats, err := s.entries.Stats(ctx, sessionID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to compute queue stats")
	}
	stats.GeneratedAt = s.now().UTC()
	s.cache.Set(ctx, key, stats, s.cfg.StatsCacheTTL)
	return stats, false, nil
}

// Activity returns the newest activity rows of a session.
func (s *QueueService) Activity(ctx context.Context, caller *models.Caller, sessionID string, limit int) ([]models.ActivityLog, error) {
	if _, err := s.sessions.Get(ctx, caller, sessionID); err != nil {
		return nil, err
	}
	return s.activity.List(ctx, sessionID, limit)
}

// Call marks an entry called at a zone. Re-calling overwrites the zone and
// timestamp; dismissed entries stay dismissed.
func (s *QueueService) Call(ctx context.Context, caller *models.Caller, entryID string, req dto.CallEntryRequest) (*models.QueueEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid call payload")
	}
	return s.transitionOne(ctx, caller, entryID, repository.EntryTransition{
		Allowed: models.CallableStatuses,
		To:      models.EntryStatusCalled,
		Zone:    strPtr(req.Zone),
	}, realtime.ActionCalled, models.ActivityCalled, nil)
}

// Release sends a waiting or called entry toward pickup.
func (s *QueueService) Release(ctx context.Context, caller *models.Caller, entryID string) (*models.QueueEntry, error) {
	return s.transitionOne(ctx, caller, entryID, repository.EntryTransition{
		Allowed: models.ReleasableStatuses,
		To:      models.EntryStatusReleased,
	}, realtime.ActionReleased, models.ActivityReleased, nil)
}

// Dismiss completes pickup. The caller must be the entry's guardian, office
// staff of its school or a superadmin.
func (s *QueueService) Dismiss(ctx context.Context, caller *models.Caller, entryID string) (*models.QueueEntry, error) {
	return s.transitionOne(ctx, caller, entryID, repository.EntryTransition{
		Allowed: models.DismissableStatuses,
		To:      models.EntryStatusDismissed,
	}, realtime.ActionDismissed, models.ActivityDismissed, s.authorizeDismiss)
}

// Hold parks an entry with a reason. There is no resume transition.
func (s *QueueService) Hold(ctx context.Context, caller *models.Caller, entryID string, req dto.HoldEntryRequest) (*models.QueueEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hold payload")
	}
	reason := req.Reason
	return s.transitionOne(ctx, caller, entryID, repository.EntryTransition{
		Allowed: models.HoldableStatuses,
		To:      models.EntryStatusHeld,
		Reason:  &reason,
	}, realtime.ActionHeld, models.ActivityHeld, nil)
}

// Delay marks an entry delayed for the configured offset. The entry is not
// re-queued when the delay expires.
func (s *QueueService) Delay(ctx context.Context, caller *models.Caller, entryID string) (*models.QueueEntry, error) {
	until := s.now().UTC().Add(s.cfg.DelayOffset)
	return s.transitionOne(ctx, caller, entryID, repository.EntryTransition{
		Allowed: models.HoldableStatuses,
		To:      models.EntryStatusDelayed,
		Until:   &until,
	}, realtime.ActionDelayed, models.ActivityDelayed, nil)
}

type entryGuard func(ctx context.Context, caller *models.Caller, entry *models.QueueEntry) error

func (s *QueueService) transitionOne(ctx context.Context, caller *models.Caller, entryID string, params repository.EntryTransition, action, activity string, guard entryGuard) (*models.QueueEntry, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	current, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "queue entry not found")
		}
		return nil, appErrors.Internal(err, "failed to load queue entry")
	}
	if guard == nil {
		if err := authorizeSchool(caller, current.SchoolID); err != nil {
			return nil, err
		}
	} else if err := guard(ctx, caller, current); err != nil {
		return nil, err
	}
	if current.SessionStatus == models.SessionStatusCompleted {
		return nil, errSessionCompleted
	}
	if !current.Status.In(params.Allowed) {
		return nil, invalidEntryState(current.Status, params.To)
	}

	params.IDs = []string{current.ID}
	params.At = s.now().UTC()
	updated, err := s.entries.TransitionOne(ctx, params)
	if err != nil {
		if isNoRows(err) {
			return nil, invalidEntryState(current.Status, params.To)
		}
		return nil, appErrors.Internal(err, "failed to update queue entry")
	}

	s.afterTransition(ctx, caller, current.SessionID, current.SchoolID, action, activity, []models.QueueEntry{*updated}, false, params)
	return updated, nil
}

var errSessionCompleted = appErrors.Clone(appErrors.ErrInvalidState, "session is completed")

func invalidEntryState(from, to models.EntryStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidState, "entry cannot move from "+string(from)+" to "+string(to))
}

func (s *QueueService) authorizeDismiss(ctx context.Context, caller *models.Caller, entry *models.QueueEntry) error {
	if caller.IsSuperAdmin() {
		return nil
	}
	if entry.GuardianID != nil && *entry.GuardianID == caller.UserID {
		return nil
	}
	if caller.SchoolID != entry.SchoolID {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to dismiss this student")
	}
	ok, err := s.members.HasMembership(ctx, entry.SchoolID, caller.UserID, dismissRoles)
	if err != nil {
		return appErrors.Internal(err, "failed to verify membership")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to dismiss this student")
	}
	return nil
}

// CallBatch calls up to count waiting entries in position order.
func (s *QueueService) CallBatch(ctx context.Context, caller *models.Caller, sessionID string, req dto.CallBatchRequest) (*dto.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid call batch payload")
	}
	session, err := s.sessions.Get(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted {
		return nil, errSessionCompleted
	}
	now := s.now().UTC()
	zone := strPtr(req.Zone)
	entries, err := s.entries.CallNext(ctx, session.ID, req.Count, zone, now)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to call entries")
	}
	s.afterTransition(ctx, caller, session.ID, session.SchoolID, realtime.ActionCalled, models.ActivityCalled, entries, true,
		repository.EntryTransition{To: models.EntryStatusCalled, Zone: zone})
	return &dto.BatchResult{Requested: req.Count, Updated: len(entries), Entries: entries}, nil
}

// ReleaseBatch releases every listed entry that is waiting or called.
func (s *QueueService) ReleaseBatch(ctx context.Context, caller *models.Caller, req dto.BatchEntriesRequest) (*dto.BatchResult, error) {
	return s.transitionBatch(ctx, caller, req, repository.EntryTransition{
		Allowed: models.ReleasableStatuses,
		To:      models.EntryStatusReleased,
	}, realtime.ActionReleased, models.ActivityReleased)
}

// DismissBatch dismisses every listed entry that is not yet dismissed.
func (s *QueueService) DismissBatch(ctx context.Context, caller *models.Caller, req dto.BatchEntriesRequest) (*dto.BatchResult, error) {
	return s.transitionBatch(ctx, caller, req, repository.EntryTransition{
		Allowed: models.DismissableStatuses,
		To:      models.EntryStatusDismissed,
	}, realtime.ActionDismissed, models.ActivityDismissed)
}

// transitionBatch applies one transition to many entries of the caller's
// school and returns the subset that changed. Entries in other statuses, other
// schools or completed sessions are skipped silently.
func (s *QueueService) transitionBatch(ctx context.Context, caller *models.Caller, req dto.BatchEntriesRequest, params repository.EntryTransition, action, activity string) (*dto.BatchResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	params.IDs = uniqueStrings(req.EntryIDs)
	params.At = s.now().UTC()
	if !caller.IsSuperAdmin() {
		params.SchoolID = caller.SchoolID
	}
	entries, err := s.entries.Transition(ctx, params)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update queue entries")
	}

	bySession := make(map[string][]models.QueueEntry)
	order := make([]string, 0, 1)
	for _, entry := range entries {
		if _, ok := bySession[entry.SessionID]; !ok {
			order = append(order, entry.SessionID)
		}
		bySession[entry.SessionID] = append(bySession[entry.SessionID], entry)
	}
	for _, sessionID := range order {
		group := bySession[sessionID]
		s.afterTransition(ctx, caller, sessionID, group[0].SchoolID, action, activity, group, true, params)
	}
	return &dto.BatchResult{Requested: len(req.EntryIDs), Updated: len(entries), Entries: entries}, nil
}

func (s *QueueService) afterTransition(ctx context.Context, caller *models.Caller, sessionID, schoolID, action, activity string, entries []models.QueueEntry, batch bool, params repository.EntryTransition) {
	if len(entries) == 0 {
		return
	}
	details := map[string]interface{}{}
	if params.Zone != nil {
		details["zone"] = *params.Zone
	}
	if params.Reason != nil {
		details["reason"] = *params.Reason
	}
	if params.Until != nil {
		details["delayedUntil"] = params.Until.Format(time.RFC3339)
	}
	s.activity.RecordEntries(ctx, activity, caller, entries, details)
	s.metrics.RecordTransitions(string(params.To), len(entries))
	s.cache.Invalidate(ctx, StatsCacheKey(sessionID))
	s.broadcaster.QueueChanged(action, schoolID, entries, batch)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
