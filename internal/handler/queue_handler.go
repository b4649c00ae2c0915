package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/middleware"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
	"github.com/noah-isme/sma-dismissal-api/pkg/response"
)

type queueService interface {
	List(ctx context.Context, caller *models.Caller, sessionID string, query dto.QueueQuery) ([]models.QueueEntry, error)
	Stats(ctx context.Context, caller *models.Caller, sessionID string) (*models.QueueStats, bool, error)
	Activity(ctx context.Context, caller *models.Caller, sessionID string, limit int) ([]models.ActivityLog, error)
	Call(ctx context.Context, caller *models.Caller, entryID string, req dto.CallEntryRequest) (*models.QueueEntry, error)
	Release(ctx context.Context, caller *models.Caller, entryID string) (*models.QueueEntry, error)
	Dismiss(ctx context.Context, caller *models.Caller, entryID string) (*models.QueueEntry, error)
	Hold(ctx context.Context, caller *models.Caller, entryID string, req dto.HoldEntryRequest) (*models.QueueEntry, error)
	Delay(ctx context.Context, caller *models.Caller, entryID string) (*models.QueueEntry, error)
	CallBatch(ctx context.Context, caller *models.Caller, sessionID string, req dto.CallBatchRequest) (*dto.BatchResult, error)
	ReleaseBatch(ctx context.Context, caller *models.Caller, req dto.BatchEntriesRequest) (*dto.BatchResult, error)
	DismissBatch(ctx context.Context, caller *models.Caller, req dto.BatchEntriesRequest) (*dto.BatchResult, error)
}

// QueueHandler exposes queue reads and transitions.
type QueueHandler struct {
	service queueService
}

// NewQueueHandler constructs the handler.
func NewQueueHandler(service queueService) *QueueHandler {
	return &QueueHandler{service: service}
}

// List godoc
// @Summary List a session queue in position order
// @Tags Queue
// @Produce json
// @Param id path string true "Session ID"
// @Param status query string false "Entry status"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/queue [get]
func (h *QueueHandler) List(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var query dto.QueueQuery
	if !bindQuery(c, &query) {
		return
	}
	entries, err := h.service.List(c.Request.Context(), caller, c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries, map[string]interface{}{"count": len(entries)})
}

// Stats godoc
// @Summary Queue counts by status and average wait
// @Tags Queue
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/stats [get]
func (h *QueueHandler) Stats(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	stats, cacheHit, err := h.service.Stats(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.OK(c, stats, middleware.ExtractMeta(c))
}

// Activity godoc
// @Summary Newest activity rows of a session
// @Tags Queue
// @Produce json
// @Param id path string true "Session ID"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/activity [get]
func (h *QueueHandler) Activity(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	logs, err := h.service.Activity(c.Request.Context(), caller, c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}

// Call godoc
// @Summary Call one entry to a pickup zone
// @Tags Queue
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.CallEntryRequest false "Zone"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /queue/{id}/call [post]
func (h *QueueHandler) Call(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.CallEntryRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	h.respondEntry(c, func(ctx context.Context) (*models.QueueEntry, error) {
		return h.service.Call(ctx, caller, c.Param("id"), req)
	})
}

// Release godoc
// @Summary Release a waiting or called entry
// @Tags Queue
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /queue/{id}/release [post]
func (h *QueueHandler) Release(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	h.respondEntry(c, func(ctx context.Context) (*models.QueueEntry, error) {
		return h.service.Release(ctx, caller, c.Param("id"))
	})
}

// Dismiss godoc
// @Summary Confirm the student has left
// @Tags Queue
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /queue/{id}/dismiss [post]
func (h *QueueHandler) Dismiss(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	h.respondEntry(c, func(ctx context.Context) (*models.QueueEntry, error) {
		return h.service.Dismiss(ctx, caller, c.Param("id"))
	})
}

// Hold godoc
// @Summary Hold an entry with a reason
// @Tags Queue
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.HoldEntryRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /queue/{id}/hold [post]
func (h *QueueHandler) Hold(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.HoldEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respondEntry(c, func(ctx context.Context) (*models.QueueEntry, error) {
		return h.service.Hold(ctx, caller, c.Param("id"), req)
	})
}

// Delay godoc
// @Summary Delay an entry by the configured offset
// @Tags Queue
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /queue/{id}/delay [post]
func (h *QueueHandler) Delay(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	h.respondEntry(c, func(ctx context.Context) (*models.QueueEntry, error) {
		return h.service.Delay(ctx, caller, c.Param("id"))
	})
}

// CallBatch godoc
// @Summary Call the next waiting entries
// @Tags Queue
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.CallBatchRequest true "Count and zone"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/queue/call-batch [post]
func (h *QueueHandler) CallBatch(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.CallBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.CallBatch(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ReleaseBatch godoc
// @Summary Release many entries; ineligible ones are skipped
// @Tags Queue
// @Accept json
// @Produce json
// @Param payload body dto.BatchEntriesRequest true "Entry IDs"
// @Success 200 {object} response.Envelope
// @Router /queue/release-batch [post]
func (h *QueueHandler) ReleaseBatch(c *gin.Context) {
	h.batch(c, h.service.ReleaseBatch)
}

// DismissBatch godoc
// @Summary Dismiss many entries; ineligible ones are skipped
// @Tags Queue
// @Accept json
// @Produce json
// @Param payload body dto.BatchEntriesRequest true "Entry IDs"
// @Success 200 {object} response.Envelope
// @Router /queue/dismiss-batch [post]
func (h *QueueHandler) DismissBatch(c *gin.Context) {
	h.batch(c, h.service.DismissBatch)
}

type batchFunc func(ctx context.Context, caller *models.Caller, req dto.BatchEntriesRequest) (*dto.BatchResult, error)

func (h *QueueHandler) batch(c *gin.Context, run batchFunc) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.BatchEntriesRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := run(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *QueueHandler) respondEntry(c *gin.Context, run func(ctx context.Context) (*models.QueueEntry, error)) {
	entry, err := run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}
