package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/pkg/response"
)

type checkInService interface {
	AppCheckIn(ctx context.Context, caller *models.Caller, req dto.AppCheckInRequest) (*dto.CheckInResult, error)
	CarCheckIn(ctx context.Context, caller *models.Caller, req dto.CarCheckInRequest) (*dto.CheckInResult, error)
	BusCheckIn(ctx context.Context, caller *models.Caller, req dto.BusCheckInRequest) (*dto.CheckInResult, error)
	ReleaseWalkers(ctx context.Context, caller *models.Caller, req dto.WalkerReleaseRequest) (*dto.CheckInResult, error)
}

// CheckInHandler enrolls students into today's queue.
type CheckInHandler struct {
	service checkInService
}

// NewCheckInHandler constructs the handler.
func NewCheckInHandler(service checkInService) *CheckInHandler {
	return &CheckInHandler{service: service}
}

// App godoc
// @Summary Guardian check-in from the mobile app
// @Tags Check-ins
// @Accept json
// @Produce json
// @Param payload body dto.AppCheckInRequest true "School and method"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Already submitted"
// @Failure 404 {object} response.Envelope
// @Router /checkins/app [post]
func (h *CheckInHandler) App(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.AppCheckInRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.AppCheckIn(c.Request.Context(), caller, req)
	respondCheckIn(c, result, err)
}

// Car godoc
// @Summary Check in by car number
// @Tags Check-ins
// @Accept json
// @Produce json
// @Param payload body dto.CarCheckInRequest true "School and car number"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Already submitted"
// @Failure 404 {object} response.Envelope
// @Router /checkins/car [post]
func (h *CheckInHandler) Car(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.CarCheckInRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.CarCheckIn(c.Request.Context(), caller, req)
	respondCheckIn(c, result, err)
}

// Bus godoc
// @Summary Check in every rider of a bus route
// @Tags Check-ins
// @Accept json
// @Produce json
// @Param payload body dto.BusCheckInRequest true "School and bus number"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /checkins/bus [post]
func (h *CheckInHandler) Bus(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.BusCheckInRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.BusCheckIn(c.Request.Context(), caller, req)
	respondCheckIn(c, result, err)
}

// Walkers godoc
// @Summary Release walkers, optionally by grade or homeroom
// @Tags Check-ins
// @Accept json
// @Produce json
// @Param payload body dto.WalkerReleaseRequest true "School and filter"
// @Success 201 {object} response.Envelope
// @Router /checkins/walkers [post]
func (h *CheckInHandler) Walkers(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	var req dto.WalkerReleaseRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.ReleaseWalkers(c.Request.Context(), caller, req)
	respondCheckIn(c, result, err)
}

func respondCheckIn(c *gin.Context, result *dto.CheckInResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if len(result.Entries) == 0 {
		status = http.StatusOK
	}
	response.JSON(c, status, result)
}
