package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PricingVersion описывает версию тарифной рубрики.
// После создания меняется только флаг is_active.
type PricingVersion struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Name               string     `db:"name" json:"name"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy          *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	BaseHourlyRate     float64    `db:"base_hourly_rate" json:"base_hourly_rate"`
	MinPrice           float64    `db:"min_price" json:"min_price"`
	UrgentMultiplier   float64    `db:"urgent_multiplier" json:"urgent_multiplier"`
	RoundingStep       float64    `db:"rounding_step" json:"rounding_step"`
	AutoPriceThreshold *float64   `db:"auto_price_threshold" json:"auto_price_threshold,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// Criterion описывает критерий рубрики, общий для всех версий.
type Criterion struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Key           string    `db:"key" json:"key"`
	TitleTR       string    `db:"title_tr" json:"title_tr"`
	TitleEN       string    `db:"title_en" json:"title_en"`
	DescriptionTR string    `db:"description_tr" json:"description_tr"`
	DescriptionEN string    `db:"description_en" json:"description_en"`
	IsOptional    bool      `db:"is_optional" json:"is_optional"`
	OrderIndex    int       `db:"order_index" json:"order_index"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// RubricCriterion - критерий вместе с весом и флагом из конкретной версии.
type RubricCriterion struct {
	CriterionID   uuid.UUID `db:"criterion_id" json:"criterion_id"`
	Key           string    `db:"key" json:"key"`
	TitleTR       string    `db:"title_tr" json:"title_tr"`
	TitleEN       string    `db:"title_en" json:"title_en"`
	DescriptionTR string    `db:"description_tr" json:"description_tr"`
	DescriptionEN string    `db:"description_en" json:"description_en"`
	IsOptional    bool      `db:"is_optional" json:"is_optional"`
	OrderIndex    int       `db:"order_index" json:"order_index"`
	Weight        float64   `db:"weight" json:"weight"`
	Enabled       bool      `db:"enabled" json:"enabled"`
}

// Title возвращает заголовок критерия, предпочитая турецкий.
func (c RubricCriterion) Title() string {
	if c.TitleTR != "" {
		return c.TitleTR
	}
	if c.TitleEN != "" {
		return c.TitleEN
	}
	return c.Key
}

// Question - минимальная проекция вопроса клиента, нужная для расчёта.
type Question struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	TenantID              *uuid.UUID `db:"tenant_id" json:"tenant_id,omitempty"`
	Text                  string     `db:"text" json:"text"`
	IsUrgent              bool       `db:"is_urgent" json:"is_urgent"`
	CustomerType          string     `db:"customer_type" json:"customer_type"`
	AssignedWorkerID      *uuid.UUID `db:"assigned_worker_id" json:"assigned_worker_id,omitempty"`
	WorkerHourlyRate      *float64   `db:"worker_hourly_rate" json:"worker_hourly_rate,omitempty"`
	LastPricingEstimateID *uuid.UUID `db:"last_pricing_estimate_id" json:"last_pricing_estimate_id,omitempty"`
}

// QuestionAttachment - метаданные вложения (содержимое в расчёт не передаётся).
type QuestionAttachment struct {
	Name     string `db:"name" json:"name"`
	Size     int64  `db:"size" json:"size"`
	MimeType string `db:"mime_type" json:"type"`
}

// TenantPricing хранит настройки валюты и кредитов арендатора.
type TenantPricing struct {
	TenantID           uuid.UUID `db:"id" json:"tenant_id"`
	Currency           string    `db:"currency" json:"currency"`
	PricingMultiplier  float64   `db:"pricing_multiplier" json:"pricing_multiplier"`
	CreditPrice        float64   `db:"credit_price" json:"credit_price"`
	CorporateDiscount  float64   `db:"corporate_discount" json:"corporate_discount"`
	IndividualDiscount float64   `db:"individual_discount" json:"individual_discount"`
}

// FXRate - курс базовой валюты к валюте отображения на момент as_of.
type FXRate struct {
	Base  string    `db:"base" json:"base"`
	Quote string    `db:"quote" json:"quote"`
	Rate  float64   `db:"rate" json:"rate"`
	AsOf  time.Time `db:"as_of" json:"as_of"`
}

// PricingSnapshot - неизменяемая запись одного расчёта стоимости.
type PricingSnapshot struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	QuestionID       uuid.UUID       `db:"question_id" json:"question_id"`
	PricingVersionID uuid.UUID       `db:"pricing_version_id" json:"pricing_version_id"`
	IsUrgent         bool            `db:"is_urgent" json:"is_urgent"`
	ScoringSource    string          `db:"scoring_source" json:"scoring_source"`
	SBase            float64         `db:"s_base" json:"S_base"`
	Factor           float64         `db:"f" json:"f"`
	SEff             float64         `db:"s_eff" json:"S_eff"`
	SOptNonLang      float64         `db:"s_opt_nonlang" json:"S_opt_nonlang"`
	SLang            float64         `db:"s_lang" json:"S_lang"`
	SFinal           float64         `db:"s_final" json:"S_final"`
	Hours            float64         `db:"hours" json:"hours"`
	NormalDays       int             `db:"normal_days" json:"normal_days"`
	UrgentDays       int             `db:"urgent_days" json:"urgent_days"`
	HourlyRate       float64         `db:"hourly_rate" json:"hourly"`
	HourlySource     string          `db:"hourly_source" json:"hourly_source"`
	MinPrice         float64         `db:"min_price" json:"min_price"`
	RoundingStep     float64         `db:"rounding_step" json:"rounding_step"`
	UrgentMultiplier float64         `db:"urgent_multiplier" json:"urgent_multiplier"`
	PriceNormalRaw   float64         `db:"price_normal_raw" json:"price_normal_raw"`
	PriceUrgentRaw   float64         `db:"price_urgent_raw" json:"price_urgent_raw"`
	PriceNormal      float64         `db:"price_normal" json:"price_normal"`
	PriceUrgent      float64         `db:"price_urgent" json:"price_urgent"`
	PriceFinal       float64         `db:"price_final" json:"price_final"`
	AutoPriced       bool            `db:"auto_priced" json:"auto_priced"`
	GtipPresent      bool            `db:"gtip_present" json:"gtip_present"`
	GtipDifficulty   float64         `db:"gtip_difficulty" json:"gtip_difficulty"`
	GtipCount        int             `db:"gtip_count" json:"gtip_count"`
	Currency         *string         `db:"currency" json:"currency,omitempty"`
	FXRate           *float64        `db:"fx_rate" json:"fx_rate,omitempty"`
	FXAsOf           *time.Time      `db:"fx_as_of" json:"fx_as_of,omitempty"`
	TenantMultiplier *float64        `db:"tenant_multiplier" json:"tenant_multiplier,omitempty"`
	DisplayAmount    *float64        `db:"display_amount" json:"display_amount,omitempty"`
	Credits          *int64          `db:"credits" json:"credits,omitempty"`
	KGtip            *float64        `db:"k_gtip" json:"k_gtip,omitempty"`
	KValuation       *float64        `db:"k_valuation" json:"k_valuation,omitempty"`
	KLegal           *float64        `db:"k_legal" json:"k_legal,omitempty"`
	KProcess         *float64        `db:"k_process" json:"k_process,omitempty"`
	KTax             *float64        `db:"k_tax" json:"k_tax,omitempty"`
	KDocuments       *float64        `db:"k_documents" json:"k_documents,omitempty"`
	KLanguage        *float64        `db:"k_language" json:"k_language,omitempty"`
	KPermits         *float64        `db:"k_permits" json:"k_permits,omitempty"`
	KOrigin          *float64        `db:"k_origin" json:"k_origin,omitempty"`
	KDataQuality     *float64        `db:"k_data_quality" json:"k_data_quality,omitempty"`
	KInternational   *float64        `db:"k_international" json:"k_international,omitempty"`
	Details          json.RawMessage `db:"details" json:"details"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}
