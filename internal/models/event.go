package models

import (
	"encoding/json"
	"time"
)

// DomainEvent is published for downstream consumers such as notification senders.
type DomainEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	SchoolID   string          `json:"schoolId"`
	SessionID  string          `json:"sessionId,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}
