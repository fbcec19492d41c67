package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/customs-pricing/internal/models"
)

// Pagination represents pagination metadata
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPagination считает has_more по общему числу записей.
func NewPagination(total, limit, offset int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// VersionCreatedResponse - ответ на запись или инициализацию рубрики.
type VersionCreatedResponse struct {
	VersionID uuid.UUID `json:"version_id"`
}

// VersionListResponse - страница истории версий.
type VersionListResponse struct {
	Versions   []models.PricingVersion `json:"versions"`
	Pagination Pagination              `json:"pagination"`
}

// SnapshotListResponse - снимки расчётов вопроса.
type SnapshotListResponse struct {
	Snapshots []models.PricingSnapshot `json:"snapshots"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
}
