package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

var entryCols = []string{
	"id", "session_id", "student_id", "guardian_id", "guardian_name", "check_in_time",
	"check_in_method", "status", "zone", "called_at", "released_at", "dismissed_at", "hold_reason",
	"delayed_until", "position", "created_at", "updated_at",
	"school_id", "session_status", "student_name", "grade", "homeroom_id", "homeroom_name",
}

func addEntryRow(rows *sqlmock.Rows, id string, status models.EntryStatus, position int) *sqlmock.Rows {
	now := time.Date(2026, 10, 16, 19, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, "session-1", "student-"+id, nil, "Car 412", now,
		"car_number", string(status), nil, nil, nil, nil, nil,
		nil, position, now, now,
		"school-1", "active", "Student "+id, "3", "homeroom-3a", "3A",
	)
}

func TestQueueRepositoryInsertSkipsDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO queue_entries")).
		WillReturnRows(addEntryRow(sqlmock.NewRows(entryCols), "e1", models.EntryStatusWaiting, 1))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (session_id, student_id) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows(entryCols))

	entry := models.NewEntry{ID: "e1", SessionID: "session-1", StudentID: "student-e1", CheckInTime: time.Now(), Status: models.EntryStatusWaiting, Position: 1}
	created, err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Position)
	assert.Equal(t, "3A", *created.HomeroomName)

	_, err = repo.Insert(context.Background(), entry)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryEnrolledStudentIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM queue_entries WHERE session_id = $1")).
		WithArgs("session-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("student-2"))

	enrolled, err := repo.EnrolledStudentIDs(context.Background(), "session-1", []string{"student-1", "student-2"})
	require.NoError(t, err)
	assert.Len(t, enrolled, 1)
	assert.Contains(t, enrolled, "student-2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryTransitionScopesToSchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	at := time.Now()
	mock.ExpectQuery(`UPDATE queue_entries SET status = \$3, updated_at = \$4, dismissed_at = \$4\s+WHERE id = ANY\(\$1\) AND status = ANY\(\$2\) AND session_id IN \(SELECT id FROM dismissal_sessions WHERE status <> 'completed' AND school_id = \$5\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.EntryStatusDismissed, at, "school-1").
		WillReturnRows(addEntryRow(sqlmock.NewRows(entryCols), "e1", models.EntryStatusDismissed, 1))

	entries, err := repo.Transition(context.Background(), EntryTransition{
		IDs:      []string{"e1", "e2"},
		Allowed:  models.DismissableStatuses,
		To:       models.EntryStatusDismissed,
		At:       at,
		SchoolID: "school-1",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
	assert.Equal(t, models.SessionStatusActive, entries[0].SessionStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryTransitionSkipsCompletedSessions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	at := time.Now()
	mock.ExpectQuery(`WHERE id = ANY\(\$1\) AND status = ANY\(\$2\) AND session_id IN \(SELECT id FROM dismissal_sessions WHERE status <> 'completed'\)\s+RETURNING`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.EntryStatusReleased, at).
		WillReturnRows(sqlmock.NewRows(entryCols))

	entries, err := repo.Transition(context.Background(), EntryTransition{
		IDs:     []string{"e1"},
		Allowed: models.ReleasableStatuses,
		To:      models.EntryStatusReleased,
		At:      at,
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryTransitionOneNoMatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	zone := "A"
	mock.ExpectQuery(regexp.QuoteMeta("called_at = $4, zone = $5")).
		WillReturnRows(sqlmock.NewRows(entryCols))

	_, err := repo.TransitionOne(context.Background(), EntryTransition{
		IDs:     []string{"e1"},
		Allowed: models.CallableStatuses,
		To:      models.EntryStatusCalled,
		At:      time.Now(),
		Zone:    &zone,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryCallNextOrdersByPosition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	rows := sqlmock.NewRows(entryCols)
	addEntryRow(rows, "e1", models.EntryStatusCalled, 1)
	addEntryRow(rows, "e2", models.EntryStatusCalled, 2)
	addEntryRow(rows, "e3", models.EntryStatusCalled, 3)
	mock.ExpectQuery(`ORDER BY position ASC\s+LIMIT \$2\s+FOR UPDATE SKIP LOCKED`).
		WithArgs("session-1", 3, sqlmock.AnyArg(), nil).
		WillReturnRows(rows)

	entries, err := repo.CallNext(context.Background(), "session-1", 3, nil, time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, entries[2].Position)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("waiting", 3).
			AddRow("dismissed", 2))
	mock.ExpectQuery(regexp.QuoteMeta("AVG(EXTRACT(EPOCH FROM (dismissed_at - check_in_time)))")).
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(150.5))

	stats, err := repo.Stats(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.ByStatus[models.EntryStatusWaiting])
	assert.Equal(t, 0, stats.ByStatus[models.EntryStatusHeld])
	assert.InDelta(t, 150.5, stats.AverageWaitSeconds, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryCallNextSkipsCompletedSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQueueRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("EXISTS (SELECT 1 FROM dismissal_sessions WHERE id = $1 AND status <> 'completed')")).
		WithArgs("session-1", 5, sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows(entryCols))

	entries, err := repo.CallNext(context.Background(), "session-1", 5, nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}
