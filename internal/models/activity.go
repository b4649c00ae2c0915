package models

import (
	"encoding/json"
	"time"
)

// Activity actions recorded for queue and session mutations.
const (
	ActivityCheckedIn      = "checked_in"
	ActivityCalled         = "called"
	ActivityReleased       = "released"
	ActivityDismissed      = "dismissed"
	ActivityHeld           = "held"
	ActivityDelayed        = "delayed"
	ActivitySessionStarted = "session_started"
	ActivitySessionStatus  = "session_status_changed"
)

// ActivityLog is an append-only audit record for a session.
type ActivityLog struct {
	ID        string          `db:"id" json:"id"`
	SessionID string          `db:"session_id" json:"sessionId"`
	EntryID   *string         `db:"entry_id" json:"entryId,omitempty"`
	StudentID *string         `db:"student_id" json:"studentId,omitempty"`
	ActorID   *string         `db:"actor_id" json:"actorId,omitempty"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}
