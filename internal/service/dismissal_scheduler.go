package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/internal/realtime"
	"github.com/noah-isme/sma-dismissal-api/pkg/schooltime"
)

type autoStartSchools interface {
	ListAutoStart(ctx context.Context) ([]models.School, error)
	Location(school *models.School) *time.Location
}

type sessionStarter interface {
	AutoStart(ctx context.Context, school *models.School, now time.Time) (*models.Session, bool, error)
}

type sessionNotifier interface {
	SessionChanged(event string, session models.Session)
}

// SchedulerConfig controls the auto-start loop.
type SchedulerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// SchedulerOption customises the scheduler.
type SchedulerOption func(*DismissalScheduler)

// WithSchedulerClock overrides the wall clock.
func WithSchedulerClock(clock func() time.Time) SchedulerOption {
	return func(s *DismissalScheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// DismissalScheduler starts each school's session when the school-local
// clock reaches its configured dismissal time. Missed minutes are not
// caught up.
type DismissalScheduler struct {
	schools  autoStartSchools
	sessions sessionStarter
	notifier sessionNotifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      SchedulerConfig
	clock    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDismissalScheduler constructs a stopped scheduler.
func NewDismissalScheduler(schools autoStartSchools, sessions sessionStarter, notifier sessionNotifier, cfg SchedulerConfig, metrics *MetricsService, logger *zap.Logger, opts ...SchedulerOption) *DismissalScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DismissalScheduler{
		schools:  schools,
		sessions: sessions,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start runs one tick immediately and then one per interval until Stop or
// ctx cancellation. Ticks run in their own goroutines and may overlap.
func (s *DismissalScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.spawn(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.spawn(ctx)
			}
		}
	}()
	s.logger.Info("dismissal scheduler started", zap.Duration("interval", s.cfg.Interval))
}

// Stop cancels the loop and waits for running ticks.
func (s *DismissalScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("dismissal scheduler stopped")
}

func (s *DismissalScheduler) spawn(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		tickCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		s.Tick(tickCtx, s.clock())
	}()
}

// Tick starts every school whose local clock equals its dismissal time at
// now and returns how many sessions it activated.
func (s *DismissalScheduler) Tick(ctx context.Context, now time.Time) int {
	begin := time.Now()
	schools, err := s.schools.ListAutoStart(ctx)
	if err != nil {
		s.logger.Error("scheduler tick abandoned", zap.Error(err))
		s.metrics.RecordSchedulerTick("failed", time.Since(begin))
		return 0
	}

	started, failed := 0, 0
	for i := range schools {
		school := &schools[i]
		if !s.due(school, now) {
			continue
		}
		session, ok, err := s.sessions.AutoStart(ctx, school, now)
		if err != nil {
			failed++
			s.logger.Error("failed to auto-start dismissal",
				zap.String("school_id", school.ID),
				zap.Error(err),
			)
			continue
		}
		if !ok || session == nil {
			continue
		}
		started++
		s.logger.Info("dismissal auto-started",
			zap.String("school_id", school.ID),
			zap.String("session_id", session.ID),
		)
		if s.notifier != nil {
			s.notifier.SessionChanged(realtime.EventDismissalStarted, *session)
		}
	}

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	s.metrics.RecordSchedulerTick(outcome, time.Since(begin))
	return started
}

func (s *DismissalScheduler) due(school *models.School, now time.Time) bool {
	if school.DismissalTime == nil {
		return false
	}
	configured, err := schooltime.NormalizeClock(*school.DismissalTime)
	if err != nil {
		s.logger.Warn("invalid dismissal time",
			zap.String("school_id", school.ID),
			zap.String("dismissal_time", *school.DismissalTime),
		)
		return false
	}
	return schooltime.LocalClock(now, s.schools.Location(school)) == configured
}
