package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/internal/realtime"
	"github.com/noah-isme/sma-dismissal-api/internal/repository"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
	"github.com/noah-isme/sma-dismissal-api/pkg/schooltime"
)

const (
	startTriggerManual    = "manual"
	startTriggerScheduler = "scheduler"
)

type sessionStore interface {
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Ensure(ctx context.Context, schoolID string, date time.Time, status models.SessionStatus, now time.Time) (*models.Session, bool, error)
	Transition(ctx context.Context, params repository.TransitionParams) (*models.Session, error)
}

type schoolLookup interface {
	Get(ctx context.Context, id string) (*models.School, error)
	Location(school *models.School) *time.Location
}

type statsSource interface {
	Stats(ctx context.Context, sessionID string) (*models.QueueStats, error)
}

// SessionService manages the per-school, per-day dismissal session.
type SessionService struct {
	sessions    sessionStore
	schools     schoolLookup
	stats       statsSource
	activity    *ActivityService
	broadcaster *Broadcaster
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionService constructs the service.
func NewSessionService(sessions sessionStore, schools schoolLookup, stats statsSource, activity *ActivityService, broadcaster *Broadcaster, metrics *MetricsService, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:    sessions,
		schools:     schools,
		stats:       stats,
		activity:    activity,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Today returns the caller's school session for the school-local date,
// creating it pending when missing.
func (s *SessionService) Today(ctx context.Context, caller *models.Caller, schoolID string) (*models.Session, error) {
	if err := authorizeSchool(caller, schoolID); err != nil {
		return nil, err
	}
	school, err := s.schools.Get(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return s.EnsureToday(ctx, school)
}

// EnsureToday gets or creates the pending session of the school's local today.
func (s *SessionService) EnsureToday(ctx context.Context, school *models.School) (*models.Session, error) {
	session, _, err := s.ensure(ctx, school, models.SessionStatusPending, s.now())
	return session, err
}

func (s *SessionService) ensure(ctx context.Context, school *models.School, status models.SessionStatus, now time.Time) (*models.Session, bool, error) {
	now = now.UTC()
	date := schooltime.LocalDate(now, s.schools.Location(school))
	session, created, err := s.sessions.Ensure(ctx, school.ID, date, status, now)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to open dismissal session")
	}
	return session, created, nil
}

// Get returns a session the caller may access.
func (s *SessionService) Get(ctx context.Context, caller *models.Caller, id string) (*models.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeSchool(caller, session.SchoolID); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) load(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Internal(err, "failed to load session")
	}
	return session, nil
}

// SetStatus moves a session along pending -> active -> completed. Completing
// a session snapshots its queue stats.
func (s *SessionService) SetStatus(ctx context.Context, caller *models.Caller, id string, status models.SessionStatus) (*models.Session, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown session status")
	}
	session, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransition(status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session cannot move from "+string(session.Status)+" to "+string(status))
	}

	params := repository.TransitionParams{ID: session.ID, From: session.Status, To: status, At: s.now().UTC()}
	if status == models.SessionStatusCompleted {
		params.Stats = s.snapshot(ctx, session.ID)
	}
	updated, err := s.sessions.Transition(ctx, params)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "session status changed concurrently")
		}
		return nil, appErrors.Internal(err, "failed to update session")
	}

	s.activity.RecordSession(ctx, models.ActivitySessionStatus, updated.ID, caller, map[string]interface{}{
		"from": session.Status,
		"to":   status,
	})
	s.broadcaster.SessionChanged(realtime.EventSessionUpdated, *updated)
	if status == models.SessionStatusActive {
		s.metrics.RecordSessionStarted(startTriggerManual)
		s.broadcaster.SessionChanged(realtime.EventDismissalStarted, *updated)
	}
	return updated, nil
}

// AutoStart activates the school's session for the local date of now. A
// pending session is activated and a missing one is created active; active
// and completed sessions are left alone. started reports whether this call
// activated the session.
func (s *SessionService) AutoStart(ctx context.Context, school *models.School, now time.Time) (*models.Session, bool, error) {
	session, created, err := s.ensure(ctx, school, models.SessionStatusActive, now)
	if err != nil {
		return nil, false, err
	}
	if !created {
		if session.Status != models.SessionStatusPending {
			return session, false, nil
		}
		session, err = s.sessions.Transition(ctx, repository.TransitionParams{
			ID:   session.ID,
			From: models.SessionStatusPending,
			To:   models.SessionStatusActive,
			At:   now.UTC(),
		})
		if err != nil {
			if isNoRows(err) {
				return nil, false, nil
			}
			return nil, false, appErrors.Internal(err, "failed to start session")
		}
	}

	s.activity.RecordSession(ctx, models.ActivitySessionStarted, session.ID, nil, map[string]interface{}{
		"trigger": startTriggerScheduler,
	})
	s.metrics.RecordSessionStarted(startTriggerScheduler)
	return session, true, nil
}

func (s *SessionService) snapshot(ctx context.Context, sessionID string) []byte {
	stats, err := s.stats.Stats(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to snapshot session stats", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	stats.GeneratedAt = s.now().UTC()
	raw, err := json.Marshal(stats)
	if err != nil {
		return nil
	}
	return raw
}
