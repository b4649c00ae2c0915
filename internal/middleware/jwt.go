package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
	"github.com/noah-isme/sma-dismissal-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// streamTokenParam carries the token on websocket upgrades, where browsers
// cannot set an Authorization header.
const streamTokenParam = "token"

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(auth TokenValidator) gin.HandlerFunc {
	return authenticate(auth, false)
}

// StreamJWT is JWT that also accepts the token as a query parameter.
func StreamJWT(auth TokenValidator) gin.HandlerFunc {
	return authenticate(auth, true)
}

func authenticate(auth TokenValidator, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c, allowQuery)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if allowQuery {
			if token := strings.TrimSpace(c.Query(streamTokenParam)); token != "" {
				return token, nil
			}
		}
		return "", appErrors.ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(c *gin.Context) (*models.Caller, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims == nil {
		return nil, false
	}
	caller := claims.Caller()
	return &caller, true
}
