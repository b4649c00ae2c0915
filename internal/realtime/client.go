package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

// Client is one websocket connection. All writes go through writeLoop.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	caller models.Caller

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// guarded by hub.mu
	topics map[string]struct{}
}

type inbound struct {
	Type string `json:"type"`
}

func newClient(hub *Hub, conn *websocket.Conn, caller models.Caller) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		caller: caller,
		send:   make(chan []byte, hub.cfg.ClientBuffer),
		done:   make(chan struct{}),
		topics: make(map[string]struct{}),
	}
}

// enqueue never blocks. It reports false when the frame was dropped.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("websocket closed unexpectedly", zap.String("user_id", c.caller.UserID), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var head inbound
	if err := json.Unmarshal(raw, &head); err != nil {
		c.reply("error", errorPayload(appErrors.Clone(appErrors.ErrValidation, "malformed message")))
		return
	}

	switch head.Type {
	case "subscribe":
		var msg dto.SubscribeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply("error", errorPayload(appErrors.Clone(appErrors.ErrValidation, "malformed subscribe message")))
			return
		}
		topics, err := Authorize(c.caller, msg)
		if err != nil {
			c.reply("error", errorPayload(err))
			return
		}
		keys := c.hub.subscribe(c, topics...)
		c.reply("subscribed", map[string]interface{}{"topics": keys})
	case "ping":
		c.reply("pong", nil)
	default:
		c.reply("error", errorPayload(appErrors.Clone(appErrors.ErrValidation, "unsupported message type")))
	}
}

func (c *Client) reply(event string, data interface{}) {
	frame, err := json.Marshal(Message{Event: event, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func errorPayload(err error) *appErrors.Error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.FromError(err)
}
