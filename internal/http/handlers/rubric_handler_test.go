package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/customs-pricing/internal/http/middleware"
	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
	"github.com/ignatzorin/customs-pricing/internal/repository"
	"github.com/ignatzorin/customs-pricing/internal/service"
)

type mockRubricAdmin struct {
	mock.Mock
}

func (m *mockRubricAdmin) Get(ctx context.Context) (*service.RubricView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RubricView), args.Error(1)
}

func (m *mockRubricAdmin) GetVersion(ctx context.Context, id uuid.UUID) (*service.RubricView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RubricView), args.Error(1)
}

func (m *mockRubricAdmin) ListVersions(ctx context.Context, limit, offset int) ([]models.PricingVersion, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.PricingVersion), args.Int(1), args.Error(2)
}

func (m *mockRubricAdmin) Create(ctx context.Context, in repository.CreateVersionInput) (uuid.UUID, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRubricAdmin) Activate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRubricAdmin) Seed(ctx context.Context, createdBy *uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, createdBy)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) ExportXLSX(ctx context.Context, from, to time.Time) (string, []byte, error) {
	args := m.Called(ctx, from, to)
	return args.String(0), args.Get(1).([]byte), args.Error(2)
}

// withUser имитирует AuthMiddleware.
func withUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Set(middleware.ContextRoleKey, service.RoleAdmin)
		c.Next()
	}
}

func TestRubricHandler_Get_SeedDefaults(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.GET("/api/admin/rubric", NewRubricHandler(rubric, nil).Get)

	rubric.On("Get", mock.Anything).Return(&service.RubricView{
		Criteria:     pricing.SeedRubric(),
		ExtConfig:    pricing.DefaultExtConfig(),
		SeedDefaults: true,
	}, nil).Once()

	w := doJSON(r, http.MethodGet, "/api/admin/rubric", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["seed_defaults"])
	assert.Nil(t, body["version"])
	assert.Len(t, body["criteria"], len(pricing.SeedRubric()))
}

func TestRubricHandler_Create(t *testing.T) {
	rubric := new(mockRubricAdmin)
	userID := uuid.New()
	r := newTestEngine()
	r.POST("/api/admin/rubric", withUser(userID), NewRubricHandler(rubric, nil).Create)

	versionID := uuid.New()
	rubric.On("Create", mock.Anything, mock.MatchedBy(func(in repository.CreateVersionInput) bool {
		return in.Name == "v2" &&
			in.CreatedBy != nil && *in.CreatedBy == userID &&
			in.BaseHourlyRate == 1500 &&
			len(in.Criteria) == 2 &&
			in.Criteria[0].Key == "gtip" && in.Criteria[0].Enabled &&
			in.Criteria[1].OrderIndex == 1 && !in.Criteria[1].Enabled &&
			in.Ext.PointsPerHour == pricing.DefaultExtConfig().PointsPerHour
	})).Return(versionID, nil).Once()

	w := doJSON(r, http.MethodPost, "/api/admin/rubric", `{
		"versionName": "v2",
		"base_hourly_rate": 1500,
		"min_price": 1600,
		"urgent_multiplier": 1.5,
		"rounding_step": 50,
		"criteria": [
			{"key": "gtip", "title_tr": "GTİP", "weight": 20},
			{"title_en": "Archive search", "weight": 5, "enabled": false}
		]
	}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, versionID.String(), decodeBody(t, w)["version_id"])
	rubric.AssertExpectations(t)
}

func TestRubricHandler_Create_RejectsUnknownExtConfigKeys(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.POST("/api/admin/rubric", NewRubricHandler(rubric, nil).Create)

	bodies := []string{
		`{"extConfig": {"pointsPerHourTypo": 99}}`,
		`{"extConfig": {"pointsPerHour": 10, "term": {"hoursPerDay": 4, "urgentFactor": 0.5, "bogus": 1}}}`,
		`{"extConfig": {"pointsPerHour": 10, "optionals": {"legall": {"enabled": true}}}}`,
	}
	for _, body := range bodies {
		w := doJSON(r, http.MethodPost, "/api/admin/rubric", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, string(apperror.ErrCodeValidation), decodeBody(t, w)["code"], body)
	}
	rubric.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRubricHandler_Create_DecodesExtConfig(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.POST("/api/admin/rubric", NewRubricHandler(rubric, nil).Create)

	ext := pricing.DefaultExtConfig()
	ext.PointsPerHour = 12
	ext.Optionals.Legal.Enabled = false
	raw, err := json.Marshal(ext)
	require.NoError(t, err)

	rubric.On("Create", mock.Anything, mock.MatchedBy(func(in repository.CreateVersionInput) bool {
		return in.Ext.PointsPerHour == 12 && !in.Ext.Optionals.Legal.Enabled && in.Ext.Optionals.Language.Enabled
	})).Return(uuid.New(), nil).Once()

	w := doJSON(r, http.MethodPost, "/api/admin/rubric", `{"versionName": "v3", "extConfig": `+string(raw)+`}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	rubric.AssertExpectations(t)
}

func TestRubricHandler_Create_NegativeWeight(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.POST("/api/admin/rubric", NewRubricHandler(rubric, nil).Create)

	w := doJSON(r, http.MethodPost, "/api/admin/rubric", `{"criteria": [{"key": "gtip", "weight": -1}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	rubric.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRubricHandler_Create_ValidationFromService(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.POST("/api/admin/rubric", NewRubricHandler(rubric, nil).Create)

	rubric.On("Create", mock.Anything, mock.Anything).
		Return(uuid.Nil, apperror.New(apperror.ErrCodeValidation, "множитель срочности должен быть не меньше 1")).Once()

	w := doJSON(r, http.MethodPost, "/api/admin/rubric", `{"urgent_multiplier": 0.5}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "множитель срочности должен быть не меньше 1", decodeBody(t, w)["error"])
}

func TestRubricHandler_ListVersions(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.GET("/api/admin/rubric/versions", NewRubricHandler(rubric, nil).ListVersions)

	versions := []models.PricingVersion{{ID: uuid.New(), Name: "seed", IsActive: true}}
	rubric.On("ListVersions", mock.Anything, 1, 0).Return(versions, 3, nil).Once()

	w := doJSON(r, http.MethodGet, "/api/admin/rubric/versions?limit=1", "")

	require.Equal(t, http.StatusOK, w.Code)
	pagination := decodeBody(t, w)["pagination"].(map[string]interface{})
	assert.Equal(t, 3.0, pagination["total"])
	assert.Equal(t, true, pagination["has_more"])
}

func TestRubricHandler_Activate(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.POST("/api/admin/rubric/versions/:id/activate", NewRubricHandler(rubric, nil).Activate)

	id := uuid.New()
	rubric.On("Activate", mock.Anything, id).Return(nil).Once()

	w := doJSON(r, http.MethodPost, "/api/admin/rubric/versions/"+id.String()+"/activate", "")

	assert.Equal(t, http.StatusOK, w.Code)
	rubric.AssertExpectations(t)
}

func TestRubricHandler_Activate_NotFound(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.POST("/api/admin/rubric/versions/:id/activate", NewRubricHandler(rubric, nil).Activate)

	rubric.On("Activate", mock.Anything, mock.Anything).Return(apperror.ErrVersionNotFound).Once()

	w := doJSON(r, http.MethodPost, "/api/admin/rubric/versions/"+uuid.NewString()+"/activate", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRubricHandler_Seed_AlreadySeeded(t *testing.T) {
	rubric := new(mockRubricAdmin)
	r := newTestEngine()
	r.POST("/api/admin/rubric/seed", NewRubricHandler(rubric, nil).Seed)

	rubric.On("Seed", mock.Anything, (*uuid.UUID)(nil)).Return(uuid.Nil, apperror.ErrAlreadySeeded).Once()

	w := doJSON(r, http.MethodPost, "/api/admin/rubric/seed", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(apperror.ErrCodeConflict), decodeBody(t, w)["code"])
}

func TestRubricHandler_ExportSnapshots(t *testing.T) {
	exporter := new(mockExporter)
	r := newTestEngine()
	r.GET("/api/admin/snapshots/export", NewRubricHandler(nil, exporter).ExportSnapshots)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	exporter.On("ExportXLSX", mock.Anything, from, to).
		Return("pricing_snapshots_20240101_20240201.xlsx", []byte("PK"), nil).Once()

	w := doJSON(r, http.MethodGet, "/api/admin/snapshots/export?from=2024-01-01&to=2024-02-01", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "pricing_snapshots_20240101_20240201.xlsx")
	assert.Equal(t, "PK", w.Body.String())
}

func TestRubricHandler_ExportSnapshots_BadRange(t *testing.T) {
	exporter := new(mockExporter)
	r := newTestEngine()
	r.GET("/api/admin/snapshots/export", NewRubricHandler(nil, exporter).ExportSnapshots)

	for _, query := range []string{"from=01.02.2024", "from=2024-02-01&to=2024-01-01"} {
		w := doJSON(r, http.MethodGet, "/api/admin/snapshots/export?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	exporter.AssertNotCalled(t, "ExportXLSX", mock.Anything, mock.Anything, mock.Anything)
}
