package dto

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ignatzorin/customs-pricing/internal/pricing"
	"github.com/ignatzorin/customs-pricing/internal/repository"
)

// AttachmentMetaRequest - метаданные вложения, содержимое не передаётся.
type AttachmentMetaRequest struct {
	Name string `json:"name" binding:"required,max=255"`
	Size int64  `json:"size" binding:"gte=0"`
	Type string `json:"type" binding:"max=255"`
}

// EstimateRequest - расчёт по произвольному тексту.
type EstimateRequest struct {
	Question        string                  `json:"question" binding:"required"`
	IsUrgent        bool                    `json:"isUrgent"`
	AttachmentsMeta []AttachmentMetaRequest `json:"attachmentsMeta" binding:"omitempty,dive"`
	TenantID        *uuid.UUID              `json:"tenantId"`
	CustomerType    string                  `json:"customerType"`
}

// Attachments переводит метаданные запроса во вход оценщика.
func (r EstimateRequest) Attachments() []pricing.Attachment {
	out := make([]pricing.Attachment, 0, len(r.AttachmentsMeta))
	for _, a := range r.AttachmentsMeta {
		out = append(out, pricing.Attachment{Name: a.Name, Size: a.Size, Type: a.Type})
	}
	return out
}

// QuestionEstimateRequest переопределяет параметры сохранённого вопроса. Тело может отсутствовать.
type QuestionEstimateRequest struct {
	IsUrgent     *bool      `json:"isUrgent"`
	TenantID     *uuid.UUID `json:"tenantId"`
	CustomerType string     `json:"customerType"`
}

// RubricCriterionRequest - критерий в теле записи рубрики.
type RubricCriterionRequest struct {
	Key           string  `json:"key" binding:"max=64"`
	TitleTR       string  `json:"title_tr" binding:"max=255"`
	TitleEN       string  `json:"title_en" binding:"max=255"`
	DescriptionTR string  `json:"description_tr"`
	DescriptionEN string  `json:"description_en"`
	IsOptional    bool    `json:"is_optional"`
	OrderIndex    *int    `json:"order_index"`
	Weight        float64 `json:"weight" binding:"gte=0"`
	Enabled       *bool   `json:"enabled"`
}

// RubricWriteRequest - создание новой версии рубрики.
type RubricWriteRequest struct {
	VersionName        string                   `json:"versionName" binding:"max=128"`
	Notes              *string                  `json:"notes"`
	BaseHourlyRate     float64                  `json:"base_hourly_rate" binding:"gte=0"`
	MinPrice           float64                  `json:"min_price" binding:"gte=0"`
	UrgentMultiplier   float64                  `json:"urgent_multiplier" binding:"gte=0"`
	RoundingStep       float64                  `json:"rounding_step" binding:"gte=0"`
	AutoPriceThreshold *float64                 `json:"auto_price_threshold"`
	Criteria           []RubricCriterionRequest `json:"criteria" binding:"omitempty,dive"`
	ExtConfig          json.RawMessage          `json:"extConfig"`
}

// ToInput собирает вход репозитория. Без extConfig берётся стартовая конфигурация,
// без order_index используется позиция в массиве, без enabled критерий включён.
// extConfig разбирается строго, неизвестные ключи дают pricing.ErrInvalidConfig.
func (r RubricWriteRequest) ToInput(createdBy *uuid.UUID) (repository.CreateVersionInput, error) {
	criteria := make([]repository.CriterionInput, 0, len(r.Criteria))
	for i, c := range r.Criteria {
		order := i
		if c.OrderIndex != nil {
			order = *c.OrderIndex
		}
		enabled := true
		if c.Enabled != nil {
			enabled = *c.Enabled
		}
		criteria = append(criteria, repository.CriterionInput{
			Key:           c.Key,
			TitleTR:       c.TitleTR,
			TitleEN:       c.TitleEN,
			DescriptionTR: c.DescriptionTR,
			DescriptionEN: c.DescriptionEN,
			IsOptional:    c.IsOptional,
			OrderIndex:    order,
			Weight:        c.Weight,
			Enabled:       enabled,
		})
	}

	ext := pricing.DefaultExtConfig()
	if raw := bytes.TrimSpace(r.ExtConfig); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		decoded, err := pricing.DecodeExtConfig(raw)
		if err != nil {
			return repository.CreateVersionInput{}, err
		}
		ext = decoded
	}

	return repository.CreateVersionInput{
		Name:               r.VersionName,
		Notes:              r.Notes,
		CreatedBy:          createdBy,
		BaseHourlyRate:     r.BaseHourlyRate,
		MinPrice:           r.MinPrice,
		UrgentMultiplier:   r.UrgentMultiplier,
		RoundingStep:       r.RoundingStep,
		AutoPriceThreshold: r.AutoPriceThreshold,
		Criteria:           criteria,
		Ext:                ext,
	}, nil
}
