package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/internal/realtime"
)

type streamStub struct {
	mu       sync.Mutex
	enabled  bool
	failures int
	events   []models.DomainEvent
}

func (s *streamStub) Enabled() bool { return s.enabled }

func (s *streamStub) Append(ctx context.Context, event models.DomainEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return "", errors.New("stream unavailable")
	}
	s.events = append(s.events, event)
	return "1-0", nil
}

func (s *streamStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEventDispatcherPublishesWithRetry(t *testing.T) {
	stream := &streamStub{enabled: true, failures: 1}
	dispatcher := NewEventDispatcher(stream, EventDispatcherConfig{Workers: 1, Retries: 2, RetryDelay: time.Millisecond}, NewMetricsService(), zap.NewNop())
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	dispatcher.Emit(models.DomainEvent{Type: realtime.EventDismissalStarted, SchoolID: testSchoolID})
	require.Eventually(t, func() bool { return stream.count() == 1 }, time.Second, 5*time.Millisecond)

	stream.mu.Lock()
	defer stream.mu.Unlock()
	assert.NotEmpty(t, stream.events[0].ID)
	assert.False(t, stream.events[0].OccurredAt.IsZero())
}

func TestEventDispatcherDropsWhenStreamDisabled(t *testing.T) {
	stream := &streamStub{}
	dispatcher := NewEventDispatcher(stream, EventDispatcherConfig{}, nil, zap.NewNop())
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	dispatcher.Emit(models.DomainEvent{Type: realtime.EventSessionUpdated})
	assert.Equal(t, 0, stream.count())
}

func TestBroadcasterFansOutAndEmits(t *testing.T) {
	hub := &recordingHub{}
	emitter := &recordingEmitter{}
	b := NewBroadcaster(hub, emitter, zap.NewNop())
	b.now = func() time.Time { return testNow }

	guardian := "parent-1"
	entry := models.QueueEntry{ID: "e1", SessionID: testSessionID, SchoolID: testSchoolID, GuardianID: &guardian}
	b.QueueChanged(realtime.ActionCalled, testSchoolID, []models.QueueEntry{entry}, false)

	require.Len(t, hub.deliveries, 3)
	assert.Equal(t, testNow, hub.deliveries[0].Message.SentAt)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, "queue.called", emitter.events[0].Type)
	assert.Equal(t, testSessionID, emitter.events[0].SessionID)
	assert.JSONEq(t, `[{"id":"e1"}]`, filterIDs(t, emitter.events[0].Payload))

	b.QueueChanged(realtime.ActionCalled, testSchoolID, nil, false)
	assert.Len(t, hub.deliveries, 3)

	var nilBroadcaster *Broadcaster
	nilBroadcaster.SessionChanged(realtime.EventSessionUpdated, models.Session{})
}

func filterIDs(t *testing.T, raw []byte) string {
	t.Helper()
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &entries))
	out := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]interface{}{"id": entry["id"]})
	}
	encoded, err := json.Marshal(out)
	require.NoError(t, err)
	return string(encoded)
}
