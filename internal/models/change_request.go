package models

import "time"

// ChangeRequestStatus is the review state of a change request.
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "pending"
	ChangeRequestApproved ChangeRequestStatus = "approved"
	ChangeRequestDenied   ChangeRequestStatus = "denied"
)

// ChangeRequest asks to alter a student's dismissal type for a session.
type ChangeRequest struct {
	ID          string              `db:"id" json:"id"`
	SessionID   string              `db:"session_id" json:"sessionId"`
	SchoolID    string              `db:"school_id" json:"schoolId"`
	StudentID   string              `db:"student_id" json:"studentId"`
	RequesterID string              `db:"requester_id" json:"requesterId"`
	FromType    DismissalType       `db:"from_type" json:"fromType"`
	ToType      DismissalType       `db:"to_type" json:"toType"`
	BusRoute    *string             `db:"bus_route" json:"busRoute,omitempty"`
	Note        *string             `db:"note" json:"note,omitempty"`
	Status      ChangeRequestStatus `db:"status" json:"status"`
	ReviewerID  *string             `db:"reviewer_id" json:"reviewerId,omitempty"`
	ReviewedAt  *time.Time          `db:"reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"createdAt"`
}

// ChangeRequestFilter constrains change request listings.
type ChangeRequestFilter struct {
	SchoolID    string
	SessionID   string
	RequesterID string
	Status      *ChangeRequestStatus
	Limit       int
}
