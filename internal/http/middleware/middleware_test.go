package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/haulops/internal/logger"
	"github.com/nurpe/haulops/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubParser struct {
	token     string
	principal model.Principal
}

func (s stubParser) Parse(token string) (model.Principal, error) {
	if token != s.token {
		return model.Principal{}, errors.New("invalid token")
	}
	return s.principal, nil
}

func TestAuth(t *testing.T) {
	companyID := uuid.New()
	want := model.Principal{UserID: uuid.New(), Role: model.RoleOperator, CompanyID: &companyID, CompanyType: model.CompanyTypeTransport}

	router := gin.New()
	router.Use(Auth(stubParser{token: "good", principal: want}))
	router.GET("/me", func(c *gin.Context) {
		got, ok := MustPrincipal(c)
		require.True(t, ok)
		assert.Equal(t, want, got)
		assert.Equal(t, want.UserID.String(), c.GetString(logger.UserIDKey))
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer good", want: http.StatusNoContent},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestMustPrincipal_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := MustPrincipal(c)
	assert.False(t, ok)
}

type recordedRequest struct {
	method, route string
	status        int
}

type recorder struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (r *recorder) ObserveRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedRequest{method: method, route: route, status: status})
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	rec := &recorder{}
	router := gin.New()
	router.Use(Metrics(rec))
	router.GET("/operations/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/operations/1", "/operations/2", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, rec.seen, 3)
	assert.Equal(t, recordedRequest{method: "GET", route: "/operations/:id", status: http.StatusOK}, rec.seen[0])
	assert.Equal(t, "/operations/:id", rec.seen[1].route)
	assert.Equal(t, recordedRequest{method: "GET", route: "", status: http.StatusNotFound}, rec.seen[2])
}
