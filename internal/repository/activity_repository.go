package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

// ActivityRepository appends to and reads the dismissal activity log.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Append inserts log rows in one statement.
func (r *ActivityRepository) Append(ctx context.Context, logs []models.ActivityLog) error {
	if len(logs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range logs {
		if logs[i].ID == "" {
			logs[i].ID = uuid.NewString()
		}
		if logs[i].CreatedAt.IsZero() {
			logs[i].CreatedAt = now
		}
		if len(logs[i].Details) == 0 {
			logs[i].Details = json.RawMessage(`{}`)
		}
	}
	const query = `INSERT INTO dismissal_activity_logs (id, session_id, entry_id, student_id, actor_id, action, details, created_at)
	VALUES (:id, :session_id, :entry_id, :student_id, :actor_id, :action, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, logs); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// ListBySession returns the newest log rows of a session.
func (r *ActivityRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ActivityLog, error) {
	const query = `SELECT id, session_id, entry_id, student_id, actor_id, action, details, created_at
	FROM dismissal_activity_logs WHERE session_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2`
	logs := make([]models.ActivityLog, 0)
	if err := r.db.SelectContext(ctx, &logs, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return logs, nil
}
