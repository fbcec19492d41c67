package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/customs-pricing/internal/config"
	"github.com/ignatzorin/customs-pricing/internal/http/handlers"
	"github.com/ignatzorin/customs-pricing/internal/service"
)

func testRouter() http.Handler {
	cfg := &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitLimit:  10,
		RateLimitPeriod: time.Minute,
	}
	return SetupRouter(
		cfg,
		nil,
		handlers.NewEstimateHandler(nil),
		handlers.NewRubricHandler(nil, nil),
		service.NewTokenManager("router-secret"),
		nil,
	)
}

func TestSetupRouter_AdminRequiresToken(t *testing.T) {
	r := testRouter()

	for _, path := range []string{"/api/admin/rubric", "/api/admin/rubric/versions", "/api/admin/snapshots/export"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestSetupRouter_RejectsMalformedIDs(t *testing.T) {
	r := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/123", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetupRouter_Metrics(t *testing.T) {
	r := testRouter()

	// Метрика HTTP появляется после первого обработанного запроса
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/snapshots/123", nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
