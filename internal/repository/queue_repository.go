package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

// entryProjection reads queue entries aliased as e, denormalised with the
// owning school and the student's roster attributes.
const entryProjection = `SELECT e.id, e.session_id, e.student_id, e.guardian_id, e.guardian_name, e.check_in_time,
	e.check_in_method, e.status, e.zone, e.called_at, e.released_at, e.dismissed_at, e.hold_reason,
	e.delayed_until, e.position, e.created_at, e.updated_at,
	ds.school_id, ds.status AS session_status, st.full_name AS student_name, st.grade, st.homeroom_id, st.homeroom_name
FROM e
JOIN dismissal_sessions ds ON ds.id = e.session_id
JOIN students st ON st.id = e.student_id`

// QueueRepository persists queue entries. Every mutation is a single
// conditional statement so concurrent writers never clobber each other.
type QueueRepository struct {
	db *sqlx.DB
}

// NewQueueRepository constructs the repository.
func NewQueueRepository(db *sqlx.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

func selectEntries(where string) string {
	return `WITH e AS (SELECT * FROM queue_entries WHERE ` + where + `) ` + entryProjection + ` ORDER BY e.position ASC`
}

// GetByID fetches one entry.
func (r *QueueRepository) GetByID(ctx context.Context, id string) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	if err := r.db.GetContext(ctx, &entry, selectEntries("id = $1"), id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByIDs fetches entries by identifier, in position order.
func (r *QueueRepository) ListByIDs(ctx context.Context, ids []string) ([]models.QueueEntry, error) {
	entries := make([]models.QueueEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}
	if err := r.db.SelectContext(ctx, &entries, selectEntries("id = ANY($1)"), pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list entries by id: %w", err)
	}
	return entries, nil
}

// List returns a session's entries ordered by position.
func (r *QueueRepository) List(ctx context.Context, sessionID string, filter models.EntryFilter) ([]models.QueueEntry, error) {
	where := "session_id = $1"
	args := []interface{}{sessionID}
	if filter.Status != nil {
		where += " AND status = $2"
		args = append(args, *filter.Status)
	}
	entries := make([]models.QueueEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, selectEntries(where), args...); err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return entries, nil
}

// EnrolledStudentIDs returns the subset of studentIDs already queued in the session.
func (r *QueueRepository) EnrolledStudentIDs(ctx context.Context, sessionID string, studentIDs []string) (map[string]struct{}, error) {
	enrolled := make(map[string]struct{})
	if len(studentIDs) == 0 {
		return enrolled, nil
	}
	const query = `SELECT student_id FROM queue_entries WHERE session_id = $1 AND student_id = ANY($2)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, sessionID, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("check enrolled students: %w", err)
	}
	for _, id := range ids {
		enrolled[id] = struct{}{}
	}
	return enrolled, nil
}

// Insert creates an entry unless the student is already queued in the
// session. It returns sql.ErrNoRows when the row was skipped.
func (r *QueueRepository) Insert(ctx context.Context, entry models.NewEntry) (*models.QueueEntry, error) {
	query := `WITH e AS (
	INSERT INTO queue_entries (id, session_id, student_id, guardian_id, guardian_name, check_in_time,
		check_in_method, status, dismissed_at, position, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $6, $6)
	ON CONFLICT (session_id, student_id) DO NOTHING
	RETURNING *
) ` + entryProjection

	var created models.QueueEntry
	err := r.db.GetContext(ctx, &created, query,
		entry.ID,
		entry.SessionID,
		entry.StudentID,
		entry.GuardianID,
		entry.GuardianName,
		entry.CheckInTime,
		entry.CheckInMethod,
		entry.Status,
		entry.DismissedAt,
		entry.Position,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("insert queue entry: %w", err)
	}
	return &created, nil
}

// EntryTransition describes a conditional status change over a set of entries.
type EntryTransition struct {
	IDs      []string
	Allowed  []models.EntryStatus
	To       models.EntryStatus
	At       time.Time
	SchoolID string
	Zone     *string
	Reason   *string
	Until    *time.Time
}

// Transition moves every listed entry whose status is in Allowed to To and
// returns only the entries that changed. Entries of completed sessions are
// never touched. When SchoolID is set, entries of other schools are left
// untouched too.
func (r *QueueRepository) Transition(ctx context.Context, params EntryTransition) ([]models.QueueEntry, error) {
	entries := make([]models.QueueEntry, 0, len(params.IDs))
	if len(params.IDs) == 0 {
		return entries, nil
	}

	set, args := transitionSet(params)
	args = append([]interface{}{pq.Array(params.IDs), pq.Array(models.StatusStrings(params.Allowed))}, args...)
	open := "status <> 'completed'"
	if params.SchoolID != "" {
		args = append(args, params.SchoolID)
		open += fmt.Sprintf(" AND school_id = $%d", len(args))
	}
	where := "id = ANY($1) AND status = ANY($2) AND session_id IN (SELECT id FROM dismissal_sessions WHERE " + open + ")"

	query := `WITH e AS (
	UPDATE queue_entries SET ` + set + `
	WHERE ` + where + `
	RETURNING *
) ` + entryProjection + ` ORDER BY e.position ASC`

	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("transition entries to %s: %w", params.To, err)
	}
	return entries, nil
}

// TransitionOne is Transition for a single entry. It returns sql.ErrNoRows
// when the entry is missing or its status is not allowed.
func (r *QueueRepository) TransitionOne(ctx context.Context, params EntryTransition) (*models.QueueEntry, error) {
	entries, err := r.Transition(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sql.ErrNoRows
	}
	return &entries[0], nil
}

// transitionSet renders the SET clause. Placeholders start at $3.
func transitionSet(params EntryTransition) (string, []interface{}) {
	parts := []string{"status = $3", "updated_at = $4"}
	args := []interface{}{params.To, params.At}
	switch params.To {
	case models.EntryStatusCalled:
		args = append(args, params.Zone)
		parts = append(parts, "called_at = $4", "zone = $5")
	case models.EntryStatusReleased:
		parts = append(parts, "released_at = $4")
	case models.EntryStatusDismissed:
		parts = append(parts, "dismissed_at = $4")
	case models.EntryStatusHeld:
		args = append(args, params.Reason)
		parts = append(parts, "hold_reason = $5")
	case models.EntryStatusDelayed:
		args = append(args, params.Until)
		parts = append(parts, "delayed_until = $5")
	}
	return strings.Join(parts, ", "), args
}

// CallNext calls up to count waiting entries of a session in position order.
// A completed session yields no entries.
func (r *QueueRepository) CallNext(ctx context.Context, sessionID string, count int, zone *string, at time.Time) ([]models.QueueEntry, error) {
	query := `WITH next AS (
	SELECT id FROM queue_entries
	WHERE session_id = $1 AND status = 'waiting'
		AND EXISTS (SELECT 1 FROM dismissal_sessions WHERE id = $1 AND status <> 'completed')
	ORDER BY position ASC
	LIMIT $2
	FOR UPDATE SKIP LOCKED
), e AS (
	UPDATE queue_entries q SET status = 'called', called_at = $3, zone = $4, updated_at = $3
	FROM next WHERE q.id = next.id
	RETURNING q.*
) ` + entryProjection + ` ORDER BY e.position ASC`

	entries := make([]models.QueueEntry, 0, count)
	if err := r.db.SelectContext(ctx, &entries, query, sessionID, count, at, zone); err != nil {
		return nil, fmt.Errorf("call next entries: %w", err)
	}
	return entries, nil
}

// Stats aggregates per-status counts and the mean wait of dismissed entries.
func (r *QueueRepository) Stats(ctx context.Context, sessionID string) (*models.QueueStats, error) {
	const countQuery = `SELECT status, COUNT(*) AS count FROM queue_entries WHERE session_id = $1 GROUP BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, countQuery, sessionID); err != nil {
		return nil, fmt.Errorf("count queue statuses: %w", err)
	}

	const waitQuery = `SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (dismissed_at - check_in_time))), 0)
	FROM queue_entries WHERE session_id = $1 AND dismissed_at IS NOT NULL`
	var avgWait float64
	if err := r.db.GetContext(ctx, &avgWait, waitQuery, sessionID); err != nil {
		return nil, fmt.Errorf("average wait: %w", err)
	}

	stats := &models.QueueStats{
		SessionID:          sessionID,
		ByStatus:           make(map[models.EntryStatus]int, len(models.EntryStatuses)),
		AverageWaitSeconds: avgWait,
	}
	for _, status := range models.EntryStatuses {
		stats.ByStatus[status] = 0
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.Total += c.Count
	}
	return stats, nil
}
