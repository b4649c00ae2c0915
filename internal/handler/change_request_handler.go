package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/pkg/response"
)

type changeRequestService interface {
	Submit(ctx context.Context, caller *models.Caller, req dto.SubmitChangeRequest) (*models.ChangeRequest, error)
	List(ctx context.Context, caller *models.Caller, query dto.ChangeRequestQuery) ([]models.ChangeRequest, error)
	Resolve(ctx context.Context, caller *models.Caller, id string, req dto.ResolveChangeRequest) (*models.ChangeRequest, error)
}

// ChangeRequestHandler exposes pickup change requests.
type ChangeRequestHandler struct {
	service changeRequestService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(service changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

// Submit godoc
// @Summary Request a different pickup type for today
// @Tags Change Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitChangeRequest true "Change request"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Submit(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitChangeRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.service.Submit(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List change requests
// @Tags Change Requests
// @Produce json
// @Param schoolId query string false "School ID (superadmin only)"
// @Param sessionId query string false "Session ID"
// @Param status query string false "pending, approved or denied"
// @Success 200 {object} response.Envelope
// @Router /change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var query dto.ChangeRequestQuery
	if !bindQuery(c, &query) {
		return
	}
	items, err := h.service.List(c.Request.Context(), caller, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items, map[string]interface{}{"count": len(items)})
}

// Resolve godoc
// @Summary Approve or deny a pending change request
// @Tags Change Requests
// @Accept json
// @Produce json
// @Param id path string true "Change request ID"
// @Param payload body dto.ResolveChangeRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /change-requests/{id}/resolve [post]
func (h *ChangeRequestHandler) Resolve(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.ResolveChangeRequest
	if !bindJSON(c, &req) {
		return
	}
	resolved, err := h.service.Resolve(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resolved)
}
