package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/customs-pricing/internal/dto"
	"github.com/ignatzorin/customs-pricing/internal/http/handlers/common"
	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/service"
	"github.com/ignatzorin/customs-pricing/internal/validation"
)

// Estimator - расчёт стоимости и история снимков.
type Estimator interface {
	Preview(ctx context.Context, in service.PreviewInput) (*service.EstimateResult, error)
	EstimateQuestion(ctx context.Context, questionID uuid.UUID, in service.QuestionEstimateInput) (*service.EstimateResult, error)
	GetSnapshot(ctx context.Context, id uuid.UUID) (*models.PricingSnapshot, error)
	ListSnapshots(ctx context.Context, questionID uuid.UUID, limit, offset int) ([]models.PricingSnapshot, error)
}

type EstimateHandler struct {
	estimates Estimator
}

func NewEstimateHandler(estimates Estimator) *EstimateHandler {
	return &EstimateHandler{estimates: estimates}
}

// Preview POST /api/estimate
func (h *EstimateHandler) Preview(c *gin.Context) {
	var req dto.EstimateRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	if err := validation.ValidateAttachmentsCount(len(req.AttachmentsMeta)); err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, err.Error()))
		return
	}
	for _, a := range req.AttachmentsMeta {
		if err := validation.ValidateAttachment(a.Name, a.Size); err != nil {
			common.Fail(c, apperror.New(apperror.ErrCodeValidation, err.Error()))
			return
		}
	}
	if err := validation.ValidateCustomerType(req.CustomerType, models.ValidCustomerTypes); err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, err.Error()))
		return
	}

	attachments := req.Attachments()
	for i := range attachments {
		attachments[i].Type = validation.AttachmentType(attachments[i].Name, attachments[i].Type)
	}

	result, err := h.estimates.Preview(c.Request.Context(), service.PreviewInput{
		Text:         req.Question,
		IsUrgent:     req.IsUrgent,
		Attachments:  attachments,
		TenantID:     req.TenantID,
		CustomerType: req.CustomerType,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// EstimateQuestion POST /api/questions/:id/estimate
func (h *EstimateHandler) EstimateQuestion(c *gin.Context) {
	questionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "неверный question_id"))
		return
	}

	var req dto.QuestionEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeValidation, "ошибка валидации запроса: "+err.Error()))
		return
	}
	if err := validation.ValidateCustomerType(req.CustomerType, models.ValidCustomerTypes); err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, err.Error()))
		return
	}

	result, err := h.estimates.EstimateQuestion(c.Request.Context(), questionID, service.QuestionEstimateInput{
		IsUrgent:     req.IsUrgent,
		TenantID:     req.TenantID,
		CustomerType: req.CustomerType,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSnapshot GET /api/snapshots/:id
func (h *EstimateHandler) GetSnapshot(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "неверный snapshot_id"))
		return
	}

	snapshot, err := h.estimates.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// ListSnapshots GET /api/questions/:id/snapshots
func (h *EstimateHandler) ListSnapshots(c *gin.Context) {
	questionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "неверный question_id"))
		return
	}

	limit, offset := common.GetPagination(c)
	snapshots, err := h.estimates.ListSnapshots(c.Request.Context(), questionID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SnapshotListResponse{Snapshots: snapshots, Limit: limit, Offset: offset})
}

