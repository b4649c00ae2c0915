package models

import (
	"encoding/json"
	"time"
)

// SessionStatus is the lifecycle state of a dismissal session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusPending, SessionStatusActive, SessionStatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a session may move from s to next.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case SessionStatusPending:
		return next == SessionStatusActive || next == SessionStatusCompleted
	case SessionStatusActive:
		return next == SessionStatusCompleted
	}
	return false
}

// Session is one school's dismissal for one local calendar day.
type Session struct {
	ID          string          `db:"id" json:"id"`
	SchoolID    string          `db:"school_id" json:"schoolId"`
	SessionDate time.Time       `db:"session_date" json:"sessionDate"`
	Status      SessionStatus   `db:"status" json:"status"`
	StartedAt   *time.Time      `db:"started_at" json:"startedAt,omitempty"`
	EndedAt     *time.Time      `db:"ended_at" json:"endedAt,omitempty"`
	Stats       json.RawMessage `db:"stats" json:"stats,omitempty"`
	PositionSeq int             `db:"position_seq" json:"-"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// QueueStats aggregates a session's queue.
type QueueStats struct {
	SessionID          string              `json:"sessionId"`
	Total              int                 `json:"total"`
	ByStatus           map[EntryStatus]int `json:"byStatus"`
	AverageWaitSeconds float64             `json:"averageWaitSeconds"`
	GeneratedAt        time.Time           `json:"generatedAt"`
}

// StatusCount is one row of a grouped status count.
type StatusCount struct {
	Status EntryStatus `db:"status"`
	Count  int         `db:"count"`
}
