package models

import "time"

// EntryStatus is the pickup state of a queue entry.
type EntryStatus string

const (
	EntryStatusWaiting   EntryStatus = "waiting"
	EntryStatusCalled    EntryStatus = "called"
	EntryStatusReleased  EntryStatus = "released"
	EntryStatusDelayed   EntryStatus = "delayed"
	EntryStatusHeld      EntryStatus = "held"
	EntryStatusDismissed EntryStatus = "dismissed"
)

// EntryStatuses lists every entry status in display order.
var EntryStatuses = []EntryStatus{
	EntryStatusWaiting,
	EntryStatusCalled,
	EntryStatusReleased,
	EntryStatusDelayed,
	EntryStatusHeld,
	EntryStatusDismissed,
}

// Allowed prior statuses per transition. Dismissed never appears: it is terminal.
var (
	CallableStatuses    = []EntryStatus{EntryStatusWaiting, EntryStatusCalled, EntryStatusReleased, EntryStatusDelayed, EntryStatusHeld}
	ReleasableStatuses  = []EntryStatus{EntryStatusWaiting, EntryStatusCalled}
	DismissableStatuses = []EntryStatus{EntryStatusWaiting, EntryStatusCalled, EntryStatusReleased, EntryStatusDelayed, EntryStatusHeld}
	HoldableStatuses    = []EntryStatus{EntryStatusWaiting, EntryStatusCalled, EntryStatusDelayed, EntryStatusHeld}
)

// Valid reports whether s is a known entry status.
func (s EntryStatus) Valid() bool {
	for _, known := range EntryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// In reports whether s is one of set.
func (s EntryStatus) In(set []EntryStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// StatusStrings converts statuses for use as a postgres text array.
func StatusStrings(set []EntryStatus) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}

// CheckInMethod records how an entry entered the queue.
type CheckInMethod string

const (
	CheckInMethodApp       CheckInMethod = "app"
	CheckInMethodQR        CheckInMethod = "qr"
	CheckInMethodSMS       CheckInMethod = "sms"
	CheckInMethodCarNumber CheckInMethod = "car_number"
	CheckInMethodBusNumber CheckInMethod = "bus_number"
	CheckInMethodWalker    CheckInMethod = "walker"
	CheckInMethodManual    CheckInMethod = "manual"
)

// QueueEntry is one pickup unit for one student within a session. Student
// fields are joined from the roster for display and broadcast routing.
type QueueEntry struct {
	ID            string        `db:"id" json:"id"`
	SessionID     string        `db:"session_id" json:"sessionId"`
	StudentID     string        `db:"student_id" json:"studentId"`
	GuardianID    *string       `db:"guardian_id" json:"guardianId,omitempty"`
	GuardianName  string        `db:"guardian_name" json:"guardianName"`
	CheckInTime   time.Time     `db:"check_in_time" json:"checkInTime"`
	CheckInMethod CheckInMethod `db:"check_in_method" json:"checkInMethod"`
	Status        EntryStatus   `db:"status" json:"status"`
	Zone          *string       `db:"zone" json:"zone,omitempty"`
	CalledAt      *time.Time    `db:"called_at" json:"calledAt,omitempty"`
	ReleasedAt    *time.Time    `db:"released_at" json:"releasedAt,omitempty"`
	DismissedAt   *time.Time    `db:"dismissed_at" json:"dismissedAt,omitempty"`
	HoldReason    *string       `db:"hold_reason" json:"holdReason,omitempty"`
	DelayedUntil  *time.Time    `db:"delayed_until" json:"delayedUntil,omitempty"`
	Position      int           `db:"position" json:"position"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`

	SchoolID      string        `db:"school_id" json:"schoolId"`
	SessionStatus SessionStatus `db:"session_status" json:"-"`
	StudentName   string        `db:"student_name" json:"studentName"`
	Grade         *string       `db:"grade" json:"grade,omitempty"`
	HomeroomID    *string       `db:"homeroom_id" json:"homeroomId,omitempty"`
	HomeroomName  *string       `db:"homeroom_name" json:"homeroomName,omitempty"`
}

// NewEntry describes an entry to insert during enrollment.
type NewEntry struct {
	ID            string
	SessionID     string
	StudentID     string
	GuardianID    *string
	GuardianName  string
	CheckInTime   time.Time
	CheckInMethod CheckInMethod
	Status        EntryStatus
	DismissedAt   *time.Time
	Position      int
}

// EntryFilter constrains queue listings.
type EntryFilter struct {
	Status *EntryStatus
}
