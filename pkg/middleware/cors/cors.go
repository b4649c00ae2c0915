package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Policy decides which browser origins may call the API.
type Policy struct {
	allowAll bool
	origins  map[string]struct{}
}

// NewPolicy builds a policy. An empty list allows every origin.
func NewPolicy(allowedOrigins []string) *Policy {
	p := &Policy{
		allowAll: len(allowedOrigins) == 0,
		origins:  make(map[string]struct{}, len(allowedOrigins)),
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			p.allowAll = true
			continue
		}
		p.origins[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return p
}

// Allowed reports whether origin passes the policy. Requests without an
// Origin header (native clients, curl) are always allowed.
func (p *Policy) Allowed(origin string) bool {
	if origin == "" || p.allowAll {
		return true
	}
	_, ok := p.origins[strings.TrimRight(origin, "/")]
	return ok
}

// CheckOrigin adapts the policy for websocket upgraders.
func (p *Policy) CheckOrigin(r *http.Request) bool {
	return p.Allowed(r.Header.Get("Origin"))
}

// New returns a CORS middleware that honors a list of allowed origins.
func New(allowedOrigins []string) gin.HandlerFunc {
	policy := NewPolicy(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && policy.Allowed(origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		case origin == "" && policy.allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
