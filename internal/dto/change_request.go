package dto

import "github.com/noah-isme/sma-dismissal-api/internal/models"

// SubmitChangeRequest is sent by a parent to change today's pickup type.
type SubmitChangeRequest struct {
	StudentID string               `json:"studentId" validate:"required"`
	ToType    models.DismissalType `json:"toType" validate:"required,oneof=car bus walker"`
	BusRoute  string               `json:"busRoute" validate:"required_if=ToType bus,max=32"`
	Note      string               `json:"note" validate:"omitempty,max=500"`
}

// ResolveChangeRequest records a reviewer decision.
type ResolveChangeRequest struct {
	Decision models.ChangeRequestStatus `json:"decision" validate:"required,oneof=approved denied"`
}

// ChangeRequestQuery filters change request listings.
type ChangeRequestQuery struct {
	SchoolID  string `form:"schoolId"`
	SessionID string `form:"sessionId"`
	Status    string `form:"status" validate:"omitempty,oneof=pending approved denied"`
}
