package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

const changeRequestColumns = `id, session_id, school_id, student_id, requester_id, from_type, to_type, bus_route,
	note, status, reviewer_id, reviewed_at, created_at`

// ChangeRequestRepository persists dismissal change requests.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

// Create inserts a new change request.
func (r *ChangeRequestRepository) Create(ctx context.Context, req *models.ChangeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.ChangeRequestPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO dismissal_change_requests
	(id, session_id, school_id, student_id, requester_id, from_type, to_type, bus_route, note, status, created_at)
	VALUES (:id, :session_id, :school_id, :student_id, :requester_id, :from_type, :to_type, :bus_route, :note, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a change request.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM dismissal_change_requests WHERE id = $1`
	var req models.ChangeRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns change requests matching the filter, newest first.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + changeRequestColumns + ` FROM dismissal_change_requests`)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	builder.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit))

	requests := make([]models.ChangeRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// Resolve records a decision on a pending request. Approval rewrites the
// student's dismissal type in the same transaction, so a request that lost a
// concurrent review never touches the roster. It returns sql.ErrNoRows when
// the request is missing or was already resolved.
func (r *ChangeRequestRepository) Resolve(ctx context.Context, id string, status models.ChangeRequestStatus, reviewerID string, at time.Time) (resolved *models.ChangeRequest, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin resolve change request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `UPDATE dismissal_change_requests
	SET status = $2, reviewer_id = $3, reviewed_at = $4
	WHERE id = $1 AND status = 'pending'
	RETURNING ` + changeRequestColumns
	var req models.ChangeRequest
	if err = tx.GetContext(ctx, &req, query, id, status, reviewerID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve change request: %w", err)
	}

	if req.Status == models.ChangeRequestApproved {
		const rosterQuery = `UPDATE students SET dismissal_type = $2, bus_route = $3, updated_at = $4 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, rosterQuery, req.StudentID, req.ToType, req.BusRoute, at); err != nil {
			return nil, fmt.Errorf("update dismissal type: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit change request: %w", err)
	}
	return &req, nil
}
