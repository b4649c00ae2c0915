package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/pkg/response"
)

type sessionService interface {
	Today(ctx context.Context, caller *models.Caller, schoolID string) (*models.Session, error)
	Get(ctx context.Context, caller *models.Caller, id string) (*models.Session, error)
	SetStatus(ctx context.Context, caller *models.Caller, id string, status models.SessionStatus) (*models.Session, error)
}

type exportService interface {
	SessionReport(ctx context.Context, caller *models.Caller, sessionID string, query dto.ExportQuery) (*dto.ExportFile, error)
}

// SessionHandler exposes dismissal session endpoints.
type SessionHandler struct {
	service sessionService
	exports exportService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionService, exports exportService) *SessionHandler {
	return &SessionHandler{service: service, exports: exports}
}

// Today godoc
// @Summary Get or create today's dismissal session
// @Tags Sessions
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schools/{schoolId}/sessions/today [get]
func (h *SessionHandler) Today(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	session, err := h.service.Today(c.Request.Context(), caller, c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Get godoc
// @Summary Get a dismissal session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	session, err := h.service.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// UpdateStatus godoc
// @Summary Change a session status
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/status [patch]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateSessionStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.service.SetStatus(c.Request.Context(), caller, c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Export godoc
// @Summary Download a session report
// @Tags Sessions
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /sessions/{id}/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var query dto.ExportQuery
	if !bindQuery(c, &query) {
		return
	}
	file, err := h.exports.SessionReport(c.Request.Context(), caller, c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
