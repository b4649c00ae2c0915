package models

// DismissalMode decides how car numbers resolve at the curb.
type DismissalMode string

const (
	// DismissalModeApp resolves car numbers to parent memberships.
	DismissalModeApp DismissalMode = "app"
	// DismissalModeNoApp resolves car numbers to family groups.
	DismissalModeNoApp DismissalMode = "no_app"
)

// SchoolStatusActive marks schools eligible for automatic dismissal start.
const SchoolStatusActive = "active"

// School holds the dismissal configuration of a school.
type School struct {
	ID            string        `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Timezone      string        `db:"timezone" json:"timezone"`
	DismissalTime *string       `db:"dismissal_time" json:"dismissalTime,omitempty"`
	DismissalMode DismissalMode `db:"dismissal_mode" json:"dismissalMode"`
	Status        string        `db:"status" json:"status"`
}
