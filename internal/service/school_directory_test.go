package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

type schoolRepoStub struct {
	schools map[string]models.School
	lookups int
}

func (s *schoolRepoStub) GetByID(ctx context.Context, id string) (*models.School, error) {
	s.lookups++
	school, ok := s.schools[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &school, nil
}

func (s *schoolRepoStub) ListAutoStart(ctx context.Context) ([]models.School, error) {
	out := make([]models.School, 0, len(s.schools))
	for _, school := range s.schools {
		out = append(out, school)
	}
	return out, nil
}

func TestSchoolDirectoryCachesLookups(t *testing.T) {
	repo := &schoolRepoStub{schools: map[string]models.School{
		testSchoolID: {ID: testSchoolID, Name: "Lincoln", Timezone: "America/New_York", DismissalMode: models.DismissalModeApp},
	}}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, zap.NewNop(), true)
	dir := NewSchoolDirectory(repo, cache, time.Minute, zap.NewNop())

	first, err := dir.Get(context.Background(), testSchoolID)
	require.NoError(t, err)
	second, err := dir.Get(context.Background(), testSchoolID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.lookups)

	_, err = dir.Get(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSchoolDirectoryWithoutCache(t *testing.T) {
	repo := &schoolRepoStub{schools: map[string]models.School{testSchoolID: {ID: testSchoolID}}}
	dir := NewSchoolDirectory(repo, nil, time.Minute, nil)

	_, err := dir.Get(context.Background(), testSchoolID)
	require.NoError(t, err)
	_, err = dir.Get(context.Background(), testSchoolID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lookups)
}

func TestSchoolDirectoryLocationFallsBackToUTC(t *testing.T) {
	dir := NewSchoolDirectory(&schoolRepoStub{}, nil, 0, zap.NewNop())

	assert.Equal(t, time.UTC, dir.Location(&models.School{ID: "x", Timezone: "Mars/Olympus"}))
	assert.Equal(t, "America/Chicago", dir.Location(&models.School{Timezone: "America/Chicago"}).String())
}
