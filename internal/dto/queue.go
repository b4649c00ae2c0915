package dto

import "github.com/noah-isme/sma-dismissal-api/internal/models"

// CallEntryRequest assigns a pickup zone when calling one entry.
type CallEntryRequest struct {
	Zone string `json:"zone" validate:"omitempty,max=64"`
}

// CallBatchRequest calls the next waiting entries in position order.
type CallBatchRequest struct {
	Count int    `json:"count" validate:"required,min=1,max=200"`
	Zone  string `json:"zone" validate:"omitempty,max=64"`
}

// HoldEntryRequest holds an entry with a reason.
type HoldEntryRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// BatchEntriesRequest applies one transition to many entries.
type BatchEntriesRequest struct {
	EntryIDs []string `json:"entryIds" validate:"required,min=1,max=500,dive,required"`
}

// BatchResult returns the subset of entries that transitioned.
type BatchResult struct {
	Requested int                 `json:"requested"`
	Updated   int                 `json:"updated"`
	Entries   []models.QueueEntry `json:"entries"`
}

// QueueQuery filters queue listings.
type QueueQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=waiting called released delayed held dismissed"`
}
