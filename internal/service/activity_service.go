package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

type activityStore interface {
	Append(ctx context.Context, logs []models.ActivityLog) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ActivityLog, error)
}

// ActivityService records and reads the session activity feed.
type ActivityService struct {
	repo   activityStore
	limit  int
	logger *zap.Logger
}

// NewActivityService constructs the service. limit caps feed reads.
func NewActivityService(repo activityStore, limit int, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 100
	}
	return &ActivityService{repo: repo, limit: limit, logger: logger}
}

// RecordEntries appends one row per entry. Failures are logged only.
func (s *ActivityService) RecordEntries(ctx context.Context, action string, actor *models.Caller, entries []models.QueueEntry, details map[string]interface{}) {
	if s == nil || len(entries) == 0 {
		return
	}
	raw := encodeDetails(details)
	logs := make([]models.ActivityLog, 0, len(entries))
	for i := range entries {
		entryID := entries[i].ID
		studentID := entries[i].StudentID
		logs = append(logs, models.ActivityLog{
			SessionID: entries[i].SessionID,
			EntryID:   &entryID,
			StudentID: &studentID,
			ActorID:   actorID(actor),
			Action:    action,
			Details:   raw,
		})
	}
	s.append(ctx, logs)
}

// RecordSession appends one session-level row.
func (s *ActivityService) RecordSession(ctx context.Context, action, sessionID string, actor *models.Caller, details map[string]interface{}) {
	if s == nil {
		return
	}
	s.append(ctx, []models.ActivityLog{{
		SessionID: sessionID,
		ActorID:   actorID(actor),
		Action:    action,
		Details:   encodeDetails(details),
	}})
}

// List returns the newest rows of a session, at most the configured limit.
func (s *ActivityService) List(ctx context.Context, sessionID string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	logs, err := s.repo.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load activity")
	}
	return logs, nil
}

func (s *ActivityService) append(ctx context.Context, logs []models.ActivityLog) {
	if err := s.repo.Append(ctx, logs); err != nil {
		s.logger.Warn("failed to record activity",
			zap.String("action", logs[0].Action),
			zap.String("session_id", logs[0].SessionID),
			zap.Error(err),
		)
	}
}

func actorID(actor *models.Caller) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}

func encodeDetails(details map[string]interface{}) json.RawMessage {
	if len(details) == 0 {
		return nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return raw
}
