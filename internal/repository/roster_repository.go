package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

const studentColumns = `st.id, st.school_id, st.full_name, st.grade, st.homeroom_id, st.homeroom_name,
	st.dismissal_type, st.bus_route, st.active`

// RosterRepository reads the roster tables owned by the roster subsystem.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// GetStudent loads one student.
func (r *RosterRepository) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students st WHERE st.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// GuardianStudents lists active students of a dismissal type linked to the
// guardian through an approved relationship.
func (r *RosterRepository) GuardianStudents(ctx context.Context, schoolID, guardianID string, dismissalType models.DismissalType) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + `
	FROM students st
	JOIN guardian_students gs ON gs.student_id = st.id
	WHERE gs.guardian_id = $1 AND gs.status = 'approved'
		AND st.school_id = $2 AND st.active = TRUE AND st.dismissal_type = $3
	ORDER BY st.full_name ASC`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, guardianID, schoolID, dismissalType); err != nil {
		return nil, fmt.Errorf("list guardian students: %w", err)
	}
	return students, nil
}

// FamilyGroupByCarNumber resolves a car number in a no-app school.
func (r *RosterRepository) FamilyGroupByCarNumber(ctx context.Context, schoolID, carNumber string) (*models.FamilyGroup, error) {
	const query = `SELECT id, school_id, name, car_number FROM family_groups WHERE school_id = $1 AND car_number = $2`
	var group models.FamilyGroup
	if err := r.db.GetContext(ctx, &group, query, schoolID, carNumber); err != nil {
		return nil, err
	}
	return &group, nil
}

// FamilyGroupStudents lists active students of a dismissal type in a family group.
func (r *RosterRepository) FamilyGroupStudents(ctx context.Context, groupID string, dismissalType models.DismissalType) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + `
	FROM students st
	JOIN family_group_students fgs ON fgs.student_id = st.id
	WHERE fgs.family_group_id = $1 AND st.active = TRUE AND st.dismissal_type = $2
	ORDER BY st.full_name ASC`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, groupID, dismissalType); err != nil {
		return nil, fmt.Errorf("list family group students: %w", err)
	}
	return students, nil
}

// GuardianByCarNumber resolves a car number to a parent membership in an app school.
func (r *RosterRepository) GuardianByCarNumber(ctx context.Context, schoolID, carNumber string) (*models.Guardian, error) {
	const query = `SELECT sm.user_id, u.full_name
	FROM school_memberships sm
	JOIN users u ON u.id = sm.user_id
	WHERE sm.school_id = $1 AND sm.car_number = $2 AND sm.role = $3
	ORDER BY sm.created_at ASC
	LIMIT 1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, schoolID, carNumber, models.RoleParent); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// BusStudents lists active bus riders on a route.
func (r *RosterRepository) BusStudents(ctx context.Context, schoolID, route string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + `
	FROM students st
	WHERE st.school_id = $1 AND st.active = TRUE AND st.dismissal_type = 'bus' AND st.bus_route = $2
	ORDER BY st.full_name ASC`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, schoolID, route); err != nil {
		return nil, fmt.Errorf("list bus students: %w", err)
	}
	return students, nil
}

// Walkers lists active walkers, optionally for one grade or homeroom.
func (r *RosterRepository) Walkers(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, error) {
	conditions := []string{"st.school_id = $1", "st.active = TRUE", "st.dismissal_type = 'walker'"}
	args := []interface{}{schoolID}
	if filter.Grade != "" {
		args = append(args, filter.Grade)
		conditions = append(conditions, fmt.Sprintf("st.grade = $%d", len(args)))
	}
	if filter.HomeroomID != "" {
		args = append(args, filter.HomeroomID)
		conditions = append(conditions, fmt.Sprintf("st.homeroom_id = $%d", len(args)))
	}
	query := `SELECT ` + studentColumns + ` FROM students st WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY st.full_name ASC`

	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list walkers: %w", err)
	}
	return students, nil
}

// HasMembership reports whether the user holds one of roles at the school.
func (r *RosterRepository) HasMembership(ctx context.Context, schoolID, userID string, roles []models.UserRole) (bool, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	const query = `SELECT EXISTS (
		SELECT 1 FROM school_memberships WHERE school_id = $1 AND user_id = $2 AND role = ANY($3)
	)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, schoolID, userID, pq.Array(names)); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

// IsGuardianOf reports whether guardianID has an approved link to studentID.
func (r *RosterRepository) IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM guardian_students WHERE guardian_id = $1 AND student_id = $2 AND status = 'approved'
	)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, guardianID, studentID); err != nil {
		return false, fmt.Errorf("check guardianship: %w", err)
	}
	return ok, nil
}
