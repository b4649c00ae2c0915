package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

type validatorStub struct {
	tokens map[string]*models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := v.tokens[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type observerStub struct {
	paths []string
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
}

func newTestRouter(auth gin.HandlerFunc, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{auth}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, caller.UserID)
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTRequiresBearerHeader(t *testing.T) {
	stub := validatorStub{tokens: map[string]*models.JWTClaims{
		"good": {UserID: "office-1", Role: models.RoleOffice, SchoolID: "school-1"},
	}}
	r := newTestRouter(JWT(stub))

	cases := map[string]struct {
		header string
		status int
	}{
		"missing":   {"", http.StatusUnauthorized},
		"malformed": {"Token good", http.StatusUnauthorized},
		"invalid":   {"Bearer bad", http.StatusUnauthorized},
		"valid":     {"Bearer good", http.StatusOK},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected?token=good", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamJWTAcceptsQueryToken(t *testing.T) {
	stub := validatorStub{tokens: map[string]*models.JWTClaims{
		"good": {UserID: "parent-1", Role: models.RoleParent, SchoolID: "school-1"},
	}}
	r := newTestRouter(StreamJWT(stub))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected?token=good", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "parent-1", rec.Body.String())
}

func TestRequireRoles(t *testing.T) {
	stub := validatorStub{tokens: map[string]*models.JWTClaims{
		"office":  {UserID: "office-1", Role: models.RoleOffice, SchoolID: "school-1"},
		"teacher": {UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: "school-1"},
	}}
	r := newTestRouter(JWT(stub), RequireRoles(models.StaffRoles...))

	for token, status := range map[string]int{"office": http.StatusOK, "teacher": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, token)
	}
}

func TestMetricsCollapsesUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin.php", nil))

	assert.Equal(t, []string{"/sessions/:id", unmatchedRoute}, observer.paths)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/stats", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, processingKey)
}
