package models

// DismissalType is how a student normally leaves school.
type DismissalType string

const (
	DismissalTypeCar    DismissalType = "car"
	DismissalTypeBus    DismissalType = "bus"
	DismissalTypeWalker DismissalType = "walker"
)

// Valid reports whether t is a known dismissal type.
func (t DismissalType) Valid() bool {
	switch t {
	case DismissalTypeCar, DismissalTypeBus, DismissalTypeWalker:
		return true
	}
	return false
}

// Student is the roster view of a student used for dismissal.
type Student struct {
	ID            string        `db:"id" json:"id"`
	SchoolID      string        `db:"school_id" json:"schoolId"`
	FullName      string        `db:"full_name" json:"fullName"`
	Grade         *string       `db:"grade" json:"grade,omitempty"`
	HomeroomID    *string       `db:"homeroom_id" json:"homeroomId,omitempty"`
	HomeroomName  *string       `db:"homeroom_name" json:"homeroomName,omitempty"`
	DismissalType DismissalType `db:"dismissal_type" json:"dismissalType"`
	BusRoute      *string       `db:"bus_route" json:"busRoute,omitempty"`
	Active        bool          `db:"active" json:"active"`
}

// FamilyGroup bundles students under a shared car number in no-app schools.
type FamilyGroup struct {
	ID        string `db:"id" json:"id"`
	SchoolID  string `db:"school_id" json:"schoolId"`
	Name      string `db:"name" json:"name"`
	CarNumber string `db:"car_number" json:"carNumber"`
}

// Guardian identifies a parent resolved from a school membership.
type Guardian struct {
	UserID   string `db:"user_id" json:"userId"`
	FullName string `db:"full_name" json:"fullName"`
}

// StudentFilter narrows walker releases.
type StudentFilter struct {
	Grade      string
	HomeroomID string
}
