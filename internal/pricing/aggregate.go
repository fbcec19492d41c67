package pricing

import (
	"math"

	"github.com/ignatzorin/customs-pricing/internal/models"
)

// ExtraPlaceholderScore - оценка доп. модуля, если модель её не вернула.
const ExtraPlaceholderScore = 5.0

// CriterionContribution - вклад одного критерия в базовый балл.
type CriterionContribution struct {
	Key          string  `json:"key"`
	Title        string  `json:"title"`
	WeightPct    float64 `json:"weight_pct"`
	Score        float64 `json:"score0_10"`
	Contribution float64 `json:"contribution"`
	Forced       bool    `json:"forced,omitempty"`
}

// ModuleDetail - вклад одного дополнительного модуля.
type ModuleDetail struct {
	Enabled     bool     `json:"enabled"`
	Explanation string   `json:"explanation,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	WeightMax   float64  `json:"weightMax"`
	Value       float64  `json:"value"`
}

// ExtraDetail - вклад доп. модуля администратора.
type ExtraDetail struct {
	Title       string  `json:"title"`
	Explanation string  `json:"explanation,omitempty"`
	Enabled     bool    `json:"enabled"`
	Score       float64 `json:"score"`
	WeightMax   float64 `json:"weightMax"`
	Value       float64 `json:"value"`
	Placeholder bool    `json:"placeholder"`
}

// GtipDetail - бонус за дополнительные коды классификации.
type GtipDetail struct {
	Enabled      bool    `json:"enabled"`
	Explanation  string  `json:"explanation,omitempty"`
	Count        int     `json:"count"`
	PerExtraCode float64 `json:"perExtraCode"`
	MaxBonus     float64 `json:"maxBonus"`
	Value        float64 `json:"value"`
}

// LanguageGapDetail - слагаемое языкового разрыва.
type LanguageGapDetail struct {
	Enabled     bool     `json:"enabled"`
	Explanation string   `json:"explanation,omitempty"`
	WeightMax   float64  `json:"weightMax"`
	Denominator float64  `json:"denominator"`
	Ratio       float64  `json:"ratio"`
	RatioHint   *float64 `json:"ratio_hint,omitempty"`
	Value       float64  `json:"value"`
}

// OptionalsDetail - подробности по всем дополнительным модулям.
type OptionalsDetail struct {
	Legal       ModuleDetail      `json:"legal"`
	Language    ModuleDetail      `json:"language"`
	Gtip        GtipDetail        `json:"gtip"`
	LanguageGap LanguageGapDetail `json:"languageGap"`
	Extras      []ExtraDetail     `json:"extras"`
}

// GtipInference - выведенные сигналы о кодах классификации.
type GtipInference struct {
	Present    bool    `json:"present"`
	Difficulty float64 `json:"difficulty"`
	Count      int     `json:"count"`
}

// Breakdown - все промежуточные величины агрегирования.
type Breakdown struct {
	PerCriterion []CriterionContribution
	ScoreMap     map[string]float64
	SBase        float64
	Factor       float64
	SEff         float64
	SOptNonLang  float64
	SLang        float64
	SFinal       float64
	Optionals    OptionalsDetail
	Gtip         GtipInference
}

// Aggregate объединяет оценки критериев в итоговый составной балл.
func Aggregate(criteria []models.RubricCriterion, cfg ExtConfig, scores *ScoreResult) Breakdown {
	if scores == nil {
		scores = &ScoreResult{}
	}

	b := Breakdown{
		PerCriterion: make([]CriterionContribution, 0, len(criteria)),
		ScoreMap:     make(map[string]float64, len(criteria)),
		Gtip: GtipInference{
			Present:    scores.GtipPresent,
			Difficulty: ClampScore(scores.GtipDifficulty),
			Count:      scores.GtipCount,
		},
	}

	var weightSum float64
	for _, c := range criteria {
		if c.Enabled && c.Weight > 0 {
			weightSum += c.Weight
		}
	}

	gtip := cfg.Optionals.Gtip
	for _, c := range criteria {
		if !c.Enabled {
			continue
		}
		score := ClampScore(scores.Scores[c.Key])
		item := CriterionContribution{
			Key:   c.Key,
			Title: c.Title(),
			Score: score,
		}
		if weightSum > 0 && c.Weight > 0 {
			w := c.Weight / weightSum
			item.WeightPct = w * 100
			item.Contribution = w * score * 10
		}
		if c.Key == models.CriterionGtip && gtip.Enabled && b.Gtip.Present {
			forced := math.Max(item.Contribution, gtip.BaseIfPresent+b.Gtip.Difficulty)
			if gtip.MaxBase > 0 {
				forced = math.Min(forced, gtip.MaxBase)
			}
			item.Forced = forced != item.Contribution
			item.Contribution = forced
		}
		b.ScoreMap[c.Key] = score
		b.SBase += item.Contribution
		b.PerCriterion = append(b.PerCriterion, item)
	}

	b.Factor = cfg.FactorFor(b.SBase)
	b.SEff = b.SBase * b.Factor

	b.Optionals = optionalBonuses(cfg, scores, b.Gtip)
	b.SOptNonLang = b.Optionals.Legal.Value + b.Optionals.Language.Value + b.Optionals.Gtip.Value
	for _, e := range b.Optionals.Extras {
		b.SOptNonLang += e.Value
	}

	gap := cfg.Optionals.LanguageGap
	b.Optionals.LanguageGap = LanguageGapDetail{
		Enabled:     gap.Enabled,
		Explanation: gap.Explanation,
		WeightMax:   gap.WeightMax,
		RatioHint:   scores.LangGapRatio,
	}
	if gap.Enabled {
		denom := LanguageGapDenominator(cfg)
		ratio := clamp01((b.SBase + b.SOptNonLang) / denom)
		b.Optionals.LanguageGap.Denominator = denom
		b.Optionals.LanguageGap.Ratio = ratio
		b.Optionals.LanguageGap.Value = ratio * gap.WeightMax
		b.SLang = b.Optionals.LanguageGap.Value
	}

	b.SFinal = b.SEff + b.SOptNonLang + b.SLang
	return b
}

// LanguageGapDenominator - 100 плюс максимумы всех остальных включённых модулей.
func LanguageGapDenominator(cfg ExtConfig) float64 {
	denom := 100.0
	o := cfg.Optionals
	if o.Legal.Enabled {
		denom += o.Legal.WeightMax
	}
	if o.Language.Enabled {
		denom += o.Language.WeightMax
	}
	if o.Gtip.Enabled {
		denom += o.Gtip.MaxBonus
	}
	for _, e := range cfg.ExtraOptionals {
		if e.Enabled {
			denom += e.WeightMax
		}
	}
	return denom
}

func optionalBonuses(cfg ExtConfig, scores *ScoreResult, gtip GtipInference) OptionalsDetail {
	o := cfg.Optionals
	out := OptionalsDetail{
		Legal:    weightModule(o.Legal, scores.LegalScore),
		Language: weightModule(o.Language, scores.LanguageScore),
		Gtip: GtipDetail{
			Enabled:      o.Gtip.Enabled,
			Explanation:  o.Gtip.Explanation,
			Count:        gtip.Count,
			PerExtraCode: o.Gtip.PerExtraCode,
			MaxBonus:     o.Gtip.MaxBonus,
		},
		Extras: make([]ExtraDetail, 0, len(cfg.ExtraOptionals)),
	}
	if o.Gtip.Enabled {
		extra := math.Max(0, float64(gtip.Count-1)) * o.Gtip.PerExtraCode
		out.Gtip.Value = math.Min(o.Gtip.MaxBonus, extra)
	}

	for _, e := range cfg.ExtraOptionals {
		d := ExtraDetail{
			Title:       e.Title,
			Explanation: e.Explanation,
			Enabled:     e.Enabled,
			WeightMax:   e.WeightMax,
		}
		if e.Enabled {
			score, ok := scores.Extras[e.Title]
			if !ok {
				score = ExtraPlaceholderScore
				d.Placeholder = true
			}
			d.Score = ClampScore(score)
			d.Value = d.Score / 10 * e.WeightMax
		}
		out.Extras = append(out.Extras, d)
	}
	return out
}

func weightModule(m WeightModule, score float64) ModuleDetail {
	d := ModuleDetail{
		Enabled:     m.Enabled,
		Explanation: m.Explanation,
		WeightMax:   m.WeightMax,
	}
	if m.Enabled {
		s := ClampScore(score)
		d.Score = &s
		d.Value = s / 10 * m.WeightMax
	}
	return d
}
