package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/customs-pricing/internal/http/middleware"
	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/service"
)

type mockEstimator struct {
	mock.Mock
}

func (m *mockEstimator) Preview(ctx context.Context, in service.PreviewInput) (*service.EstimateResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EstimateResult), args.Error(1)
}

func (m *mockEstimator) EstimateQuestion(ctx context.Context, questionID uuid.UUID, in service.QuestionEstimateInput) (*service.EstimateResult, error) {
	args := m.Called(ctx, questionID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EstimateResult), args.Error(1)
}

func (m *mockEstimator) GetSnapshot(ctx context.Context, id uuid.UUID) (*models.PricingSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PricingSnapshot), args.Error(1)
}

func (m *mockEstimator) ListSnapshots(ctx context.Context, questionID uuid.UUID, limit, offset int) ([]models.PricingSnapshot, error) {
	args := m.Called(ctx, questionID, limit, offset)
	return args.Get(0).([]models.PricingSnapshot), args.Error(1)
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestEstimateHandler_Preview_OK(t *testing.T) {
	estimates := new(mockEstimator)
	h := NewEstimateHandler(estimates)
	r := newTestEngine()
	r.POST("/api/estimate", h.Preview)

	estimates.On("Preview", mock.Anything, mock.MatchedBy(func(in service.PreviewInput) bool {
		return in.IsUrgent &&
			len(in.Attachments) == 1 &&
			in.Attachments[0].Type == "application/pdf" &&
			in.CustomerType == models.CustomerTypeCorporate
	})).Return(&service.EstimateResult{PriceFinal: 2450, IsUrgent: true}, nil).Once()

	w := doJSON(r, http.MethodPost, "/api/estimate", `{
		"question": "Нужна классификация товара по ГТИП",
		"isUrgent": true,
		"attachmentsMeta": [{"name": "invoice.pdf", "size": 2048}],
		"customerType": "corporate"
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 2450.0, body["price_final"])
	assert.Equal(t, true, body["is_urgent"])
	assert.Nil(t, body["snapshot_id"])
	estimates.AssertExpectations(t)
}

func TestEstimateHandler_Preview_MissingQuestion(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.POST("/api/estimate", NewEstimateHandler(estimates).Preview)

	w := doJSON(r, http.MethodPost, "/api/estimate", `{"isUrgent": false}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperror.ErrCodeValidation), decodeBody(t, w)["code"])
	estimates.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything)
}

func TestEstimateHandler_Preview_InvalidCustomerType(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.POST("/api/estimate", NewEstimateHandler(estimates).Preview)

	w := doJSON(r, http.MethodPost, "/api/estimate", `{"question": "текст вопроса", "customerType": "vip"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	estimates.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything)
}

func TestEstimateHandler_Preview_TooManyAttachments(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.POST("/api/estimate", NewEstimateHandler(estimates).Preview)

	items := make([]string, 31)
	for i := range items {
		items[i] = `{"name": "f.pdf", "size": 1}`
	}
	w := doJSON(r, http.MethodPost, "/api/estimate",
		`{"question": "текст вопроса", "attachmentsMeta": [`+strings.Join(items, ",")+`]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEstimateHandler_Preview_NoActiveVersion(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.POST("/api/estimate", NewEstimateHandler(estimates).Preview)

	estimates.On("Preview", mock.Anything, mock.Anything).Return(nil, apperror.ErrNoActiveVersion).Once()

	w := doJSON(r, http.MethodPost, "/api/estimate", `{"question": "текст вопроса"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(apperror.ErrCodeConfigMissing), body["code"])
	assert.Contains(t, body["error"], "seed")
}

func TestEstimateHandler_Preview_MasksDatabaseError(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.POST("/api/estimate", NewEstimateHandler(estimates).Preview)

	cause := errors.New("pq: password authentication failed for user admin")
	estimates.On("Preview", mock.Anything, mock.Anything).
		Return(nil, apperror.Wrap(cause, apperror.ErrCodeDatabaseError, "не удалось загрузить рубрику")).Once()

	w := doJSON(r, http.MethodPost, "/api/estimate", `{"question": "текст вопроса"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestEstimateHandler_EstimateQuestion_EmptyBody(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.POST("/api/questions/:id/estimate", NewEstimateHandler(estimates).EstimateQuestion)

	questionID := uuid.New()
	snapshotID := uuid.New()
	estimates.On("EstimateQuestion", mock.Anything, questionID, service.QuestionEstimateInput{}).
		Return(&service.EstimateResult{PriceFinal: 1600, SnapshotID: &snapshotID}, nil).Once()

	w := doJSON(r, http.MethodPost, "/api/questions/"+questionID.String()+"/estimate", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, snapshotID.String(), decodeBody(t, w)["snapshot_id"])
	estimates.AssertExpectations(t)
}

func TestEstimateHandler_EstimateQuestion_Overrides(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.POST("/api/questions/:id/estimate", NewEstimateHandler(estimates).EstimateQuestion)

	questionID := uuid.New()
	tenantID := uuid.New()
	estimates.On("EstimateQuestion", mock.Anything, questionID, mock.MatchedBy(func(in service.QuestionEstimateInput) bool {
		return in.IsUrgent != nil && *in.IsUrgent && in.TenantID != nil && *in.TenantID == tenantID
	})).Return(&service.EstimateResult{PriceFinal: 2400, IsUrgent: true}, nil).Once()

	w := doJSON(r, http.MethodPost, "/api/questions/"+questionID.String()+"/estimate",
		`{"isUrgent": true, "tenantId": "`+tenantID.String()+`"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	estimates.AssertExpectations(t)
}

func TestEstimateHandler_EstimateQuestion_InvalidID(t *testing.T) {
	r := newTestEngine()
	r.POST("/api/questions/:id/estimate", NewEstimateHandler(new(mockEstimator)).EstimateQuestion)

	w := doJSON(r, http.MethodPost, "/api/questions/not-a-uuid/estimate", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEstimateHandler_EstimateQuestion_NotFound(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.POST("/api/questions/:id/estimate", NewEstimateHandler(estimates).EstimateQuestion)

	estimates.On("EstimateQuestion", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperror.ErrQuestionNotFound).Once()

	w := doJSON(r, http.MethodPost, "/api/questions/"+uuid.NewString()+"/estimate", "{}")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperror.ErrCodeNotFound), decodeBody(t, w)["code"])
}

func TestEstimateHandler_GetSnapshot(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.GET("/api/snapshots/:id", NewEstimateHandler(estimates).GetSnapshot)

	id := uuid.New()
	estimates.On("GetSnapshot", mock.Anything, id).
		Return(&models.PricingSnapshot{ID: id, PriceFinal: 1650, ScoringSource: "model"}, nil).Once()

	w := doJSON(r, http.MethodGet, "/api/snapshots/"+id.String(), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
}

func TestEstimateHandler_ListSnapshots_ClampsLimit(t *testing.T) {
	estimates := new(mockEstimator)
	r := newTestEngine()
	r.GET("/api/questions/:id/snapshots", NewEstimateHandler(estimates).ListSnapshots)

	questionID := uuid.New()
	estimates.On("ListSnapshots", mock.Anything, questionID, 100, 10).
		Return([]models.PricingSnapshot{}, nil).Once()

	w := doJSON(r, http.MethodGet, "/api/questions/"+questionID.String()+"/snapshots?limit=500&offset=10", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 100.0, body["limit"])
	assert.Equal(t, []interface{}{}, body["snapshots"])
	estimates.AssertExpectations(t)
}
