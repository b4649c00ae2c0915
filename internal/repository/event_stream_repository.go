package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

// ErrStreamDisabled is returned when no Redis client is configured.
var ErrStreamDisabled = errors.New("event stream disabled")

// EventStreamRepository appends domain events to a capped Redis stream.
type EventStreamRepository struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewEventStreamRepository constructs the repository.
func NewEventStreamRepository(client *redis.Client, stream string, maxLen int64) *EventStreamRepository {
	if stream == "" {
		stream = "dismissal:events"
	}
	return &EventStreamRepository{client: client, stream: stream, maxLen: maxLen}
}

// Enabled reports whether events can be appended.
func (r *EventStreamRepository) Enabled() bool {
	return r != nil && r.client != nil
}

// Append writes the event and returns the stream id assigned by Redis.
func (r *EventStreamRepository) Append(ctx context.Context, event models.DomainEvent) (string, error) {
	if !r.Enabled() {
		return "", ErrStreamDisabled
	}
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: streamValues(event),
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return id, nil
}

func streamValues(event models.DomainEvent) map[string]interface{} {
	payload := event.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return map[string]interface{}{
		"id":          event.ID,
		"type":        event.Type,
		"school_id":   event.SchoolID,
		"session_id":  event.SessionID,
		"payload":     string(payload),
		"occurred_at": event.OccurredAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
