package pricing

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/customs-pricing/internal/models"
)

// ActiveConfig - активная версия рубрики со всеми критериями и расширенной конфигурацией.
type ActiveConfig struct {
	Version  models.PricingVersion    `json:"version"`
	Criteria []models.RubricCriterion `json:"criteria"`
	Ext      ExtConfig                `json:"extConfig"`
}

// EnabledCriteria возвращает включённые критерии в порядке рубрики.
func (a *ActiveConfig) EnabledCriteria() []models.RubricCriterion {
	out := make([]models.RubricCriterion, 0, len(a.Criteria))
	for _, c := range a.Criteria {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// ScoreRequestFor собирает запрос к оценщику по включённым критериям и доп. модулям.
func (a *ActiveConfig) ScoreRequestFor(text string, attachments []Attachment) ScoreRequest {
	req := ScoreRequest{
		Text:        text,
		Attachments: attachments,
	}
	for _, c := range a.EnabledCriteria() {
		req.Criteria = append(req.Criteria, CriterionPrompt{
			Key:     c.Key,
			Title:   c.Title(),
			Anchors: HintsFor(c.Key),
		})
	}
	for _, e := range a.Ext.ExtraOptionals {
		if e.Enabled {
			req.Extras = append(req.Extras, e.Title)
		}
	}
	return req
}

// HourlyRate - выбранная ставка и её источник.
type HourlyRate struct {
	Rate   float64
	Source string
}

// ResolveHourlyRate: ставка назначенного исполнителя, затем ставка версии, затем значение по умолчанию.
func ResolveHourlyRate(workerRate *float64, versionRate, fallback float64) HourlyRate {
	if workerRate != nil && *workerRate > 0 {
		return HourlyRate{Rate: *workerRate, Source: models.HourlySourceWorker}
	}
	if versionRate > 0 {
		return HourlyRate{Rate: versionRate, Source: models.HourlySourceVersion}
	}
	return HourlyRate{Rate: fallback, Source: models.HourlySourceDefault}
}

// Estimate - объект details ответа. Имена полей JSON стабильны, новые поля только добавляются.
type Estimate struct {
	SBase            float64                 `json:"S_base"`
	Factor           float64                 `json:"f"`
	SEff             float64                 `json:"S_eff"`
	SOptNonLang      float64                 `json:"S_opt_nonlang"`
	SLang            float64                 `json:"S_lang"`
	SFinal           float64                 `json:"S_final"`
	Hours            float64                 `json:"hours"`
	NormalDays       int                     `json:"normal_days"`
	UrgentDays       int                     `json:"urgent_days"`
	Hourly           float64                 `json:"hourly"`
	HourlySource     string                  `json:"hourly_source"`
	MinPrice         float64                 `json:"min_price"`
	RoundingStep     float64                 `json:"rounding_step"`
	UrgentMultiplier float64                 `json:"urgent_multiplier"`
	PriceNormal      float64                 `json:"price_normal"`
	PriceUrgent      float64                 `json:"price_urgent"`
	PriceNormalRaw   float64                 `json:"price_normal_raw"`
	PriceUrgentRaw   float64                 `json:"price_urgent_raw"`
	PriceFinal       float64                 `json:"price_final"`
	IsUrgent         bool                    `json:"is_urgent"`
	VersionID        uuid.UUID               `json:"version_id"`
	PerCriterion     []CriterionContribution `json:"perCriterion"`
	PerCriterionMap  map[string]float64      `json:"perCriterion_map"`
	Optionals        OptionalsDetail         `json:"optionals"`
	Gtip             GtipInference           `json:"gtip"`
	ScoringSource    string                  `json:"scoring_source"`
	AutoPriced       bool                    `json:"auto_priced"`
}

// Compute проводит оценки через агрегирование и нормализацию цены.
func Compute(active *ActiveConfig, scores *ScoreResult, rate HourlyRate, isUrgent bool) Estimate {
	b := Aggregate(active.Criteria, active.Ext, scores)

	v := active.Version
	p := Normalize(PriceInput{
		SFinal:             b.SFinal,
		PointsPerHour:      active.Ext.PointsPerHour,
		HoursPerDay:        active.Ext.Term.HoursPerDay,
		UrgentFactor:       active.Ext.Term.UrgentFactor,
		HourlyRate:         rate.Rate,
		MinPrice:           v.MinPrice,
		UrgentMultiplier:   v.UrgentMultiplier,
		RoundingStep:       v.RoundingStep,
		AutoPriceThreshold: v.AutoPriceThreshold,
		IsUrgent:           isUrgent,
	})

	source := models.ScoringSourceHeuristic
	if scores != nil && scores.Source != "" {
		source = scores.Source
	}

	return Estimate{
		SBase:            b.SBase,
		Factor:           b.Factor,
		SEff:             b.SEff,
		SOptNonLang:      b.SOptNonLang,
		SLang:            b.SLang,
		SFinal:           b.SFinal,
		Hours:            p.Hours,
		NormalDays:       p.NormalDays,
		UrgentDays:       p.UrgentDays,
		Hourly:           rate.Rate,
		HourlySource:     rate.Source,
		MinPrice:         v.MinPrice,
		RoundingStep:     v.RoundingStep,
		UrgentMultiplier: v.UrgentMultiplier,
		PriceNormal:      p.PriceNormal,
		PriceUrgent:      p.PriceUrgent,
		PriceNormalRaw:   p.PriceNormalRaw,
		PriceUrgentRaw:   p.PriceUrgentRaw,
		PriceFinal:       p.PriceFinal,
		IsUrgent:         isUrgent,
		VersionID:        v.ID,
		PerCriterion:     b.PerCriterion,
		PerCriterionMap:  b.ScoreMap,
		Optionals:        b.Optionals,
		Gtip:             b.Gtip,
		ScoringSource:    source,
		AutoPriced:       p.AutoPriced,
	}
}

// CriterionScore возвращает оценку критерия по ключу или nil, если критерий не оценивался.
func (e Estimate) CriterionScore(key string) *float64 {
	v, ok := e.PerCriterionMap[key]
	if !ok {
		return nil
	}
	return &v
}
