package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
	"github.com/noah-isme/sma-dismissal-api/pkg/schooltime"
)

type schoolStore interface {
	GetByID(ctx context.Context, id string) (*models.School, error)
	ListAutoStart(ctx context.Context) ([]models.School, error)
}

// SchoolDirectory serves school dismissal configuration with a read cache.
type SchoolDirectory struct {
	repo   schoolStore
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewSchoolDirectory constructs the directory. cache may be nil.
func NewSchoolDirectory(repo schoolStore, cache *CacheService, ttl time.Duration, logger *zap.Logger) *SchoolDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolDirectory{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Get returns a school by id.
func (d *SchoolDirectory) Get(ctx context.Context, id string) (*models.School, error) {
	key := SchoolCacheKey(id)
	var cached models.School
	if d.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	school, err := d.repo.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Internal(err, "failed to load school")
	}
	d.cache.Set(ctx, key, school, d.ttl)
	return school, nil
}

// ListAutoStart returns active schools that have a dismissal time.
func (d *SchoolDirectory) ListAutoStart(ctx context.Context) ([]models.School, error) {
	schools, err := d.repo.ListAutoStart(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list schools")
	}
	return schools, nil
}

// Location resolves the school's timezone, falling back to UTC.
func (d *SchoolDirectory) Location(school *models.School) *time.Location {
	loc, err := schooltime.LoadLocation(school.Timezone)
	if err != nil {
		d.logger.Warn("invalid school timezone, using UTC",
			zap.String("school_id", school.ID),
			zap.String("timezone", school.Timezone),
			zap.Error(err),
		)
	}
	return loc
}
