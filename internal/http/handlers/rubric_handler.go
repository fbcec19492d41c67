package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/customs-pricing/internal/dto"
	"github.com/ignatzorin/customs-pricing/internal/http/handlers/common"
	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/repository"
	"github.com/ignatzorin/customs-pricing/internal/service"
)

const (
	exportDateLayout  = "2006-01-02"
	defaultExportDays = 30
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// RubricAdmin - управление версиями рубрики.
type RubricAdmin interface {
	Get(ctx context.Context) (*service.RubricView, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*service.RubricView, error)
	ListVersions(ctx context.Context, limit, offset int) ([]models.PricingVersion, int, error)
	Create(ctx context.Context, in repository.CreateVersionInput) (uuid.UUID, error)
	Activate(ctx context.Context, id uuid.UUID) error
	Seed(ctx context.Context, createdBy *uuid.UUID) (uuid.UUID, error)
}

// SnapshotExporter выгружает снимки расчётов в xlsx.
type SnapshotExporter interface {
	ExportXLSX(ctx context.Context, from, to time.Time) (string, []byte, error)
}

type RubricHandler struct {
	rubric   RubricAdmin
	exporter SnapshotExporter
}

func NewRubricHandler(rubric RubricAdmin, exporter SnapshotExporter) *RubricHandler {
	return &RubricHandler{rubric: rubric, exporter: exporter}
}

// Get GET /api/admin/rubric
func (h *RubricHandler) Get(c *gin.Context) {
	view, err := h.rubric.Get(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Create POST /api/admin/rubric
func (h *RubricHandler) Create(c *gin.Context) {
	var req dto.RubricWriteRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	in, err := req.ToInput(common.OptionalUserID(c))
	if err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error()))
		return
	}

	id, err := h.rubric.Create(c.Request.Context(), in)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.VersionCreatedResponse{VersionID: id})
}

// ListVersions GET /api/admin/rubric/versions
func (h *RubricHandler) ListVersions(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	versions, total, err := h.rubric.ListVersions(c.Request.Context(), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VersionListResponse{
		Versions:   versions,
		Pagination: dto.NewPagination(total, limit, offset),
	})
}

// GetVersion GET /api/admin/rubric/versions/:id
func (h *RubricHandler) GetVersion(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "неверный version_id"))
		return
	}

	view, err := h.rubric.GetVersion(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Activate POST /api/admin/rubric/versions/:id/activate
func (h *RubricHandler) Activate(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "неверный version_id"))
		return
	}

	if err := h.rubric.Activate(c.Request.Context(), id); err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "версия активирована", Data: dto.VersionCreatedResponse{VersionID: id}})
}

// Seed POST /api/admin/rubric/seed
func (h *RubricHandler) Seed(c *gin.Context) {
	id, err := h.rubric.Seed(c.Request.Context(), common.OptionalUserID(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.VersionCreatedResponse{VersionID: id})
}

// ExportSnapshots GET /api/admin/snapshots/export?from=2024-01-01&to=2024-02-01
// Границы - даты UTC, to не включается. По умолчанию последние 30 дней.
func (h *RubricHandler) ExportSnapshots(c *gin.Context) {
	to := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -defaultExportDays)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(exportDateLayout, raw)
		if err != nil {
			common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "from должен быть в формате YYYY-MM-DD"))
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(exportDateLayout, raw)
		if err != nil {
			common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "to должен быть в формате YYYY-MM-DD"))
			return
		}
		to = parsed
	}
	if !from.Before(to) {
		common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "from должен быть раньше to"))
		return
	}

	filename, data, err := h.exporter.ExportXLSX(c.Request.Context(), from, to)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
