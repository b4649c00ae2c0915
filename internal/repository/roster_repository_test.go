package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

var studentCols = []string{"id", "school_id", "full_name", "grade", "homeroom_id", "homeroom_name", "dismissal_type", "bus_route", "active"}

func TestRosterRepositoryFamilyGroupStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM family_groups WHERE school_id = $1 AND car_number = $2")).
		WithArgs("school-1", "412").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "name", "car_number"}).AddRow("fg-1", "school-1", "Garcia Family", "412"))
	mock.ExpectQuery(regexp.QuoteMeta("JOIN family_group_students fgs")).
		WithArgs("fg-1", models.DismissalTypeCar).
		WillReturnRows(sqlmock.NewRows(studentCols).
			AddRow("s1", "school-1", "Ana Garcia", "2", "hr-2", "2B", "car", nil, true).
			AddRow("s2", "school-1", "Luis Garcia", "4", "hr-4", "4A", "car", nil, true))

	group, err := repo.FamilyGroupByCarNumber(context.Background(), "school-1", "412")
	require.NoError(t, err)
	assert.Equal(t, "Garcia Family", group.Name)

	students, err := repo.FamilyGroupStudents(context.Background(), group.ID, models.DismissalTypeCar)
	require.NoError(t, err)
	assert.Len(t, students, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryGuardianByCarNumberMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM school_memberships sm")).
		WithArgs("school-1", "999", models.RoleParent).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "full_name"}))

	_, err := repo.GuardianByCarNumber(context.Background(), "school-1", "999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryWalkersFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("st.dismissal_type = 'walker' AND st.grade = $2")).
		WithArgs("school-1", "3").
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow("s9", "school-1", "Mia Chen", "3", "hr-3", "3C", "walker", nil, true))

	students, err := repo.Walkers(context.Background(), "school-1", models.StudentFilter{Grade: "3"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, models.DismissalTypeWalker, students[0].DismissalType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryHasMembership(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM school_memberships")).
		WithArgs("school-1", "user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasMembership(context.Background(), "school-1", "user-1", models.StaffRoles)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
