package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

type recorderStub struct {
	mu          sync.Mutex
	delivered   int
	dropped     int
	connections int
}

func (r *recorderStub) RecordRealtimeDelivery(event string, delivered, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered += delivered
	r.dropped += dropped
}

func (r *recorderStub) SetRealtimeConnections(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections = n
}

func newHubServer(t *testing.T, hub *Hub, caller models.Caller) *httptest.Server {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, caller)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHubSubscribeAndPublish(t *testing.T) {
	metrics := &recorderStub{}
	hub := NewHub(HubConfig{}, nil, metrics)
	defer hub.Close()
	srv := newHubServer(t, hub, models.Caller{UserID: "t1", Role: models.RoleTeacher, SchoolID: "s1"})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "schoolId": "s1", "role": "teacher", "homeroomId": "hr-3a"}))
	ack := readMessage(t, conn)
	assert.Equal(t, "subscribed", ack["event"])

	homeroom := "hr-3a"
	other := "hr-4b"
	hub.Publish(Route(QueueChange{Action: ActionCalled, SchoolID: "s1", Entries: []models.QueueEntry{
		{ID: "e-other", HomeroomID: &other},
		{ID: "e-mine", HomeroomID: &homeroom},
	}, Batch: true}))

	msg := readMessage(t, conn)
	assert.Equal(t, EventStudentCalled, msg["event"])
	data := msg["data"].(map[string]interface{})
	assert.Equal(t, "e-mine", data["id"])

	metrics.mu.Lock()
	assert.Equal(t, 1, metrics.delivered)
	assert.Equal(t, 1, metrics.connections)
	metrics.mu.Unlock()
}

func TestHubRejectsForeignSchool(t *testing.T) {
	hub := NewHub(HubConfig{}, nil, nil)
	defer hub.Close()
	srv := newHubServer(t, hub, models.Caller{UserID: "p1", Role: models.RoleParent, SchoolID: "s1"})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "schoolId": "s2", "role": "parent"}))
	reply := readMessage(t, conn)
	assert.Equal(t, "error", reply["event"])
	assert.Equal(t, 0, hub.Subscribers(ParentTopic{SchoolID: "s2", GuardianID: "p1"}))
}

func TestHubPublishWithoutSubscribersIsNoop(t *testing.T) {
	metrics := &recorderStub{}
	hub := NewHub(HubConfig{}, nil, metrics)
	hub.Publish(RouteSession(EventDismissalStarted, models.Session{SchoolID: "s1"}, time.Now()))
	assert.Equal(t, 0, metrics.delivered)
	assert.Equal(t, 0, metrics.dropped)
}

func TestClientEnqueueDropsWhenFull(t *testing.T) {
	hub := NewHub(HubConfig{ClientBuffer: 1}, nil, nil)
	client := &Client{hub: hub, send: make(chan []byte, 1), done: make(chan struct{}), topics: map[string]struct{}{}}

	assert.True(t, client.enqueue([]byte("a")))
	assert.False(t, client.enqueue([]byte("b")))
}
