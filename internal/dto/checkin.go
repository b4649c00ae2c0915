package dto

import "github.com/noah-isme/sma-dismissal-api/internal/models"

// AppCheckInRequest is sent by a guardian arriving at school.
type AppCheckInRequest struct {
	SchoolID string               `json:"schoolId" validate:"required"`
	Method   models.CheckInMethod `json:"method" validate:"omitempty,oneof=app qr sms"`
}

// CarCheckInRequest is entered by office staff at the curb.
type CarCheckInRequest struct {
	SchoolID  string `json:"schoolId" validate:"required"`
	CarNumber string `json:"carNumber" validate:"required,max=32"`
}

// BusCheckInRequest releases every student riding a bus route.
type BusCheckInRequest struct {
	SchoolID  string `json:"schoolId" validate:"required"`
	BusNumber string `json:"busNumber" validate:"required,max=32"`
}

// WalkerReleaseRequest releases walkers, optionally for one grade or homeroom.
type WalkerReleaseRequest struct {
	SchoolID   string `json:"schoolId" validate:"required"`
	Grade      string `json:"grade" validate:"omitempty,max=16"`
	HomeroomID string `json:"homeroomId" validate:"omitempty,max=64"`
}

// CheckInResult reports what a check-in enrolled. AlreadySubmitted is set when
// the code resolved to students that were all enrolled before.
type CheckInResult struct {
	SessionID        string              `json:"sessionId"`
	GuardianName     string              `json:"guardianName"`
	Entries          []models.QueueEntry `json:"entries"`
	Skipped          int                 `json:"skipped"`
	AlreadySubmitted bool                `json:"alreadySubmitted"`
}
