package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

type realtimeHub interface {
	Serve(conn *websocket.Conn, caller models.Caller)
}

// RealtimeHandler upgrades authenticated requests to websocket subscriptions.
type RealtimeHandler struct {
	hub      realtimeHub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewRealtimeHandler constructs the handler. checkOrigin may be nil to allow
// same-origin requests only.
func NewRealtimeHandler(hub realtimeHub, checkOrigin func(r *http.Request) bool, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Stream godoc
// @Summary Open a realtime subscription
// @Description Upgrade to a websocket, then send {"type":"subscribe","schoolId","role","homeroomId"}.
// @Tags Realtime
// @Param token query string false "Access token when no Authorization header can be sent"
// @Success 101
// @Failure 401 {object} response.Envelope
// @Router /ws [get]
func (h *RealtimeHandler) Stream(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.String("user_id", caller.UserID), zap.Error(err))
		return
	}
	h.hub.Serve(conn, *caller)
}
