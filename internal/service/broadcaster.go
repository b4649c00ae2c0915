package service

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/internal/realtime"
)

type realtimePublisher interface {
	Publish(deliveries []realtime.Delivery)
}

type eventEmitter interface {
	Emit(event models.DomainEvent)
}

// Broadcaster fans committed changes out to websocket subscribers and the
// domain event stream. It is called after the store commits and never fails
// the caller. A nil Broadcaster is a no-op.
type Broadcaster struct {
	hub    realtimePublisher
	events eventEmitter
	logger *zap.Logger
	now    func() time.Time
}

// NewBroadcaster constructs a broadcaster. Either sink may be nil.
func NewBroadcaster(hub realtimePublisher, events eventEmitter, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{hub: hub, events: events, logger: logger, now: time.Now}
}

// QueueChanged publishes a queue mutation.
func (b *Broadcaster) QueueChanged(action, schoolID string, entries []models.QueueEntry, batch bool) {
	if b == nil || len(entries) == 0 {
		return
	}
	at := b.now().UTC()
	b.publish(realtime.Route(realtime.QueueChange{
		Action:   action,
		SchoolID: schoolID,
		Entries:  entries,
		Batch:    batch,
		At:       at,
	}))
	b.emit("queue."+action, schoolID, entries[0].SessionID, entries, at)
}

// SessionChanged publishes a session lifecycle event.
func (b *Broadcaster) SessionChanged(event string, session models.Session) {
	if b == nil {
		return
	}
	at := b.now().UTC()
	b.publish(realtime.RouteSession(event, session, at))
	b.emit(event, session.SchoolID, session.ID, session, at)
}

// ChangeRequestChanged publishes a change request submission or resolution.
func (b *Broadcaster) ChangeRequestChanged(event string, req models.ChangeRequest) {
	if b == nil {
		return
	}
	at := b.now().UTC()
	b.publish(realtime.RouteChangeRequest(event, req, at))
	b.emit(event, req.SchoolID, req.SessionID, req, at)
}

func (b *Broadcaster) publish(deliveries []realtime.Delivery) {
	if b.hub == nil || len(deliveries) == 0 {
		return
	}
	b.hub.Publish(deliveries)
}

func (b *Broadcaster) emit(eventType, schoolID, sessionID string, payload interface{}, at time.Time) {
	if b.events == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn("failed to encode domain event", zap.String("type", eventType), zap.Error(err))
		return
	}
	b.events.Emit(models.DomainEvent{
		Type:       eventType,
		SchoolID:   schoolID,
		SessionID:  sessionID,
		Payload:    raw,
		OccurredAt: at,
	})
}
