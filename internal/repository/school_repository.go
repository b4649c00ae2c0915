package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

const schoolColumns = `id, name, COALESCE(timezone, 'UTC') AS timezone,
	to_char(dismissal_time, 'HH24:MI') AS dismissal_time, dismissal_mode, status`

// SchoolRepository reads school dismissal configuration.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// GetByID loads one school.
func (r *SchoolRepository) GetByID(ctx context.Context, id string) (*models.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// ListAutoStart lists active schools that configured a dismissal time.
func (r *SchoolRepository) ListAutoStart(ctx context.Context) ([]models.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools
	WHERE status = $1 AND dismissal_time IS NOT NULL
	ORDER BY id`
	schools := make([]models.School, 0)
	if err := r.db.SelectContext(ctx, &schools, query, models.SchoolStatusActive); err != nil {
		return nil, fmt.Errorf("list auto start schools: %w", err)
	}
	return schools, nil
}
