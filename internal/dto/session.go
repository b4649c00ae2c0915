package dto

import "github.com/noah-isme/sma-dismissal-api/internal/models"

// UpdateSessionStatusRequest changes a session's lifecycle state.
type UpdateSessionStatusRequest struct {
	Status models.SessionStatus `json:"status" validate:"required,oneof=pending active completed"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ExportFile is a rendered session report.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
