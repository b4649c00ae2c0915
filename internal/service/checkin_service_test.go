package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

type rosterStub struct {
	groups      map[string]models.FamilyGroup
	groupKids   map[string][]models.Student
	guardians   map[string]models.Guardian
	guardianKid map[string][]models.Student
	buses       map[string][]models.Student
	walkers     []models.Student
	walkerCalls []models.StudentFilter
}

func (r *rosterStub) GuardianStudents(ctx context.Context, schoolID, guardianID string, dismissalType models.DismissalType) ([]models.Student, error) {
	return r.guardianKid[guardianID], nil
}

func (r *rosterStub) FamilyGroupByCarNumber(ctx context.Context, schoolID, carNumber string) (*models.FamilyGroup, error) {
	group, ok := r.groups[carNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &group, nil
}

func (r *rosterStub) FamilyGroupStudents(ctx context.Context, groupID string, dismissalType models.DismissalType) ([]models.Student, error) {
	return r.groupKids[groupID], nil
}

func (r *rosterStub) GuardianByCarNumber(ctx context.Context, schoolID, carNumber string) (*models.Guardian, error) {
	guardian, ok := r.guardians[carNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &guardian, nil
}

func (r *rosterStub) BusStudents(ctx context.Context, schoolID, route string) ([]models.Student, error) {
	return r.buses[route], nil
}

func (r *rosterStub) Walkers(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, error) {
	r.walkerCalls = append(r.walkerCalls, filter)
	return r.walkers, nil
}

type schoolGetterStub struct {
	school *models.School
}

func (s *schoolGetterStub) Get(ctx context.Context, id string) (*models.School, error) {
	if s.school == nil || s.school.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}
	copy := *s.school
	return &copy, nil
}

type sessionOpenerStub struct {
	session *models.Session
	calls   int
}

func (s *sessionOpenerStub) EnsureToday(ctx context.Context, school *models.School) (*models.Session, error) {
	s.calls++
	return s.session, nil
}

type checkInFixture struct {
	*queueFixture
	checkins *CheckInService
	roster   *rosterStub
	school   *models.School
}

func newCheckInFixture(t *testing.T, mode models.DismissalMode) *checkInFixture {
	t.Helper()
	qf := newQueueFixture(t)
	roster := &rosterStub{
		groups:      map[string]models.FamilyGroup{},
		groupKids:   map[string][]models.Student{},
		guardians:   map[string]models.Guardian{},
		guardianKid: map[string][]models.Student{},
		buses:       map[string][]models.Student{},
	}
	school := &models.School{ID: testSchoolID, Name: "Oak Elementary", Timezone: "America/Chicago", DismissalMode: mode, Status: models.SchoolStatusActive}
	svc := NewCheckInService(roster, &schoolGetterStub{school: school}, &sessionOpenerStub{session: qf.session}, qf.svc, nil, nil, zap.NewNop())
	return &checkInFixture{queueFixture: qf, checkins: svc, roster: roster, school: school}
}

func (f *checkInFixture) students(ids ...string) []models.Student {
	out := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		student := testStudent(id)
		f.store.students[id] = student
		out = append(out, student)
	}
	return out
}

func TestCarCheckInResolvesFamilyGroup(t *testing.T) {
	f := newCheckInFixture(t, models.DismissalModeNoApp)
	f.roster.groups["412"] = models.FamilyGroup{ID: "group-1", SchoolID: testSchoolID, Name: "The Parkers", CarNumber: "412"}
	f.roster.groupKids["group-1"] = f.students("peter", "may")
	f.enroll(t, "", "earlier")
	ctx := context.Background()

	result, err := f.checkins.CarCheckIn(ctx, f.office, dto.CarCheckInRequest{SchoolID: testSchoolID, CarNumber: "412"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.False(t, result.AlreadySubmitted)
	assert.Equal(t, "The Parkers", result.GuardianName)
	assert.Equal(t, []int{2, 3}, positions(result.Entries))
	for _, entry := range result.Entries {
		assert.Equal(t, models.EntryStatusWaiting, entry.Status)
		assert.Equal(t, models.CheckInMethodCarNumber, entry.CheckInMethod)
		assert.Nil(t, entry.GuardianID)
	}

	again, err := f.checkins.CarCheckIn(ctx, f.office, dto.CarCheckInRequest{SchoolID: testSchoolID, CarNumber: "412"})
	require.NoError(t, err)
	assert.Empty(t, again.Entries)
	assert.True(t, again.AlreadySubmitted)
	assert.Equal(t, 2, again.Skipped)
}

func TestCarCheckInUnknownNumberIsNotFound(t *testing.T) {
	f := newCheckInFixture(t, models.DismissalModeNoApp)

	_, err := f.checkins.CarCheckIn(context.Background(), f.office, dto.CarCheckInRequest{SchoolID: testSchoolID, CarNumber: "999"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCarCheckInAppModeUsesGuardian(t *testing.T) {
	f := newCheckInFixture(t, models.DismissalModeApp)
	f.roster.guardians["77"] = models.Guardian{UserID: "parent-1", FullName: "Jane Doe"}
	f.roster.guardianKid["parent-1"] = f.students("a")

	result, err := f.checkins.CarCheckIn(context.Background(), f.office, dto.CarCheckInRequest{SchoolID: testSchoolID, CarNumber: "77"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.NotNil(t, result.Entries[0].GuardianID)
	assert.Equal(t, "parent-1", *result.Entries[0].GuardianID)
	assert.Equal(t, "Jane Doe", result.Entries[0].GuardianName)
}

func TestAppCheckInUsesCaller(t *testing.T) {
	f := newCheckInFixture(t, models.DismissalModeApp)
	f.roster.guardianKid["parent-1"] = f.students("a", "b")
	parent := &models.Caller{UserID: "parent-1", Role: models.RoleParent, SchoolID: testSchoolID, FullName: "Jane Doe"}

	result, err := f.checkins.AppCheckIn(context.Background(), parent, dto.AppCheckInRequest{SchoolID: testSchoolID, Method: models.CheckInMethodQR})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, models.CheckInMethodQR, result.Entries[0].CheckInMethod)
	assert.Equal(t, "Jane Doe", result.GuardianName)

	stranger := &models.Caller{UserID: "parent-2", Role: models.RoleParent, SchoolID: testSchoolID}
	_, err = f.checkins.AppCheckIn(context.Background(), stranger, dto.AppCheckInRequest{SchoolID: testSchoolID})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	foreign := &models.Caller{UserID: "parent-1", Role: models.RoleParent, SchoolID: "school-2"}
	_, err = f.checkins.AppCheckIn(context.Background(), foreign, dto.AppCheckInRequest{SchoolID: testSchoolID})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestBusCheckIn(t *testing.T) {
	f := newCheckInFixture(t, models.DismissalModeApp)
	f.roster.buses["12"] = f.students("a", "b")

	result, err := f.checkins.BusCheckIn(context.Background(), f.office, dto.BusCheckInRequest{SchoolID: testSchoolID, BusNumber: "12"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "Bus #12", result.GuardianName)
	assert.Nil(t, result.Entries[0].GuardianID)

	again, err := f.checkins.BusCheckIn(context.Background(), f.office, dto.BusCheckInRequest{SchoolID: testSchoolID, BusNumber: "12"})
	require.NoError(t, err)
	assert.True(t, again.AlreadySubmitted)

	_, err = f.checkins.BusCheckIn(context.Background(), f.office, dto.BusCheckInRequest{SchoolID: testSchoolID, BusNumber: "3"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestReleaseWalkersCreatesDismissedEntries(t *testing.T) {
	f := newCheckInFixture(t, models.DismissalModeApp)
	f.roster.walkers = f.students("w1", "w2")

	result, err := f.checkins.ReleaseWalkers(context.Background(), f.office, dto.WalkerReleaseRequest{SchoolID: testSchoolID, Grade: "3"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "Walkers - Grade 3", result.GuardianName)
	assert.Equal(t, models.StudentFilter{Grade: "3"}, f.roster.walkerCalls[0])
	for _, entry := range result.Entries {
		assert.Equal(t, models.EntryStatusDismissed, entry.Status)
		require.NotNil(t, entry.DismissedAt)
		assert.Equal(t, testNow, *entry.DismissedAt)
		assert.Equal(t, models.CheckInMethodWalker, entry.CheckInMethod)
	}
	require.NotEmpty(t, f.activity.logs)
	assert.Equal(t, models.ActivityDismissed, f.activity.logs[0].Action)
}

func TestWalkerLabel(t *testing.T) {
	room := "Room 4B"
	students := []models.Student{{ID: "w1", HomeroomName: &room}}

	assert.Equal(t, "Walkers", walkerLabel(models.StudentFilter{}, students))
	assert.Equal(t, "Walkers - Grade 2", walkerLabel(models.StudentFilter{Grade: "2"}, students))
	assert.Equal(t, "Walkers - Room 4B", walkerLabel(models.StudentFilter{HomeroomID: "hr-4b"}, students))
	assert.Equal(t, "Walkers - hr-4b", walkerLabel(models.StudentFilter{HomeroomID: "hr-4b"}, nil))
}

func TestCheckInAfterSessionCompletedIsRejected(t *testing.T) {
	f := newCheckInFixture(t, models.DismissalModeNoApp)
	f.roster.groups["412"] = models.FamilyGroup{ID: "group-1", SchoolID: testSchoolID, Name: "The Parkers", CarNumber: "412"}
	f.roster.groupKids["group-1"] = f.students("peter", "may")
	f.roster.walkers = f.students("w1")
	f.session.Status = models.SessionStatusCompleted
	f.store.completeSession(testSessionID)
	ctx := context.Background()

	_, err := f.checkins.CarCheckIn(ctx, f.office, dto.CarCheckInRequest{SchoolID: testSchoolID, CarNumber: "412"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))

	_, err = f.checkins.ReleaseWalkers(ctx, f.office, dto.WalkerReleaseRequest{SchoolID: testSchoolID})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))

	queue, err := f.svc.List(ctx, f.office, testSessionID, dto.QueueQuery{})
	require.NoError(t, err)
	assert.Empty(t, queue)
}
