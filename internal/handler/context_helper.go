package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-dismissal-api/internal/middleware"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
	"github.com/noah-isme/sma-dismissal-api/pkg/response"
)

// callerFromContext returns the authenticated caller or writes 401.
func callerFromContext(c *gin.Context) (*models.Caller, bool) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return caller, true
}

// bindJSON decodes the request body or writes 400.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return false
	}
	return true
}

// bindQuery decodes query parameters or writes 400.
func bindQuery(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return false
	}
	return true
}
