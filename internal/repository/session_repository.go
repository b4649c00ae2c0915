package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

const sessionColumns = `id, school_id, session_date, status, started_at, ended_at,
	COALESCE(stats, 'null'::jsonb) AS stats, position_seq, created_at, updated_at`

// SessionRepository persists dismissal sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByID fetches a session by identifier.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM dismissal_sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindBySchoolDate fetches the session of a school for a local date.
func (r *SessionRepository) FindBySchoolDate(ctx context.Context, schoolID string, date time.Time) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM dismissal_sessions WHERE school_id = $1 AND session_date = $2`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, schoolID, date); err != nil {
		return nil, err
	}
	return &session, nil
}

// Ensure returns the session of a school for a local date, inserting it with
// the given status when missing. created reports whether this call inserted it.
// Concurrent callers converge on one row through the (school_id, session_date)
// unique constraint.
func (r *SessionRepository) Ensure(ctx context.Context, schoolID string, date time.Time, status models.SessionStatus, now time.Time) (*models.Session, bool, error) {
	var startedAt *time.Time
	if status == models.SessionStatusActive {
		startedAt = &now
	}
	query := `INSERT INTO dismissal_sessions (id, school_id, session_date, status, started_at, position_seq, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, 0, $6, $6)
	ON CONFLICT (school_id, session_date) DO NOTHING
	RETURNING ` + sessionColumns

	var session models.Session
	err := r.db.GetContext(ctx, &session, query, uuid.NewString(), schoolID, date, status, startedAt, now)
	if err == nil {
		return &session, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert session: %w", err)
	}

	existing, err := r.FindBySchoolDate(ctx, schoolID, date)
	if err != nil {
		return nil, false, fmt.Errorf("load existing session: %w", err)
	}
	return existing, false, nil
}

// TransitionParams describes a conditional session status change.
type TransitionParams struct {
	ID    string
	From  models.SessionStatus
	To    models.SessionStatus
	At    time.Time
	Stats []byte
}

// Transition moves a session from one status to another. It returns
// sql.ErrNoRows when the session is missing or no longer in From.
func (r *SessionRepository) Transition(ctx context.Context, params TransitionParams) (*models.Session, error) {
	query := `UPDATE dismissal_sessions SET
		status = $3,
		started_at = CASE WHEN $3 = 'active' THEN COALESCE(started_at, $4) ELSE started_at END,
		ended_at = CASE WHEN $3 = 'completed' THEN $4 ELSE ended_at END,
		stats = COALESCE($5::jsonb, stats),
		updated_at = $4
	WHERE id = $1 AND status = $2
	RETURNING ` + sessionColumns

	var stats *string
	if len(params.Stats) > 0 {
		raw := string(params.Stats)
		stats = &raw
	}

	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, params.ID, params.From, params.To, params.At, stats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("transition session: %w", err)
	}
	return &session, nil
}

// ReservePositions atomically advances the session's position counter by n
// and returns the first reserved position. It returns sql.ErrNoRows when the
// session is missing or completed.
func (r *SessionRepository) ReservePositions(ctx context.Context, sessionID string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve positions: count must be positive")
	}
	const query = `UPDATE dismissal_sessions SET position_seq = position_seq + $2, updated_at = NOW()
	WHERE id = $1 AND status <> 'completed' RETURNING position_seq`
	var last int
	if err := r.db.GetContext(ctx, &last, query, sessionID, n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("reserve positions: %w", err)
	}
	return last - n + 1, nil
}
