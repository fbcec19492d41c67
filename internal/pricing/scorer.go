package pricing

import (
	"context"
	"errors"
	"math"
)

// ErrMissingCredential - провайдер модели включён, но ключ доступа не задан.
var ErrMissingCredential = errors.New("scoring provider credential is missing")

// UniformityThreshold - стандартное отклонение, ниже которого оценки считаются подозрительно ровными.
const UniformityThreshold = 0.75

// minScoresForUniformity - при меньшем числе критериев ровность не проверяется.
const minScoresForUniformity = 3

// Attachment - метаданные вложения. Содержимое файла в оценку не передаётся.
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// CriterionPrompt - критерий с опорными примерами для шкалы 0/2/5/8/10.
type CriterionPrompt struct {
	Key     string
	Title   string
	Anchors Anchors
}

// ScoreRequest - вход оценщика критериев.
type ScoreRequest struct {
	Text        string
	Attachments []Attachment
	Criteria    []CriterionPrompt
	Extras      []string
	// Strict просит модель использовать весь диапазон шкалы (повторный запрос).
	Strict bool
}

// Keys возвращает ключи критериев запроса.
func (r ScoreRequest) Keys() []string {
	keys := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		keys = append(keys, c.Key)
	}
	return keys
}

// ScoreResult - оценки 0–10 по ключам критериев и побочные сигналы.
type ScoreResult struct {
	Scores         map[string]float64
	GtipPresent    bool
	GtipDifficulty float64
	GtipCount      int
	LegalScore     float64
	LanguageScore  float64
	LangGapRatio   *float64
	Extras         map[string]float64
	Source         string
}

// Empty сообщает, что модель не вернула ни одной оценки.
func (r *ScoreResult) Empty() bool {
	return r == nil || len(r.Scores) == 0
}

// Scorer оценивает сложность запроса по критериям рубрики.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error)
}

// StdDev - стандартное отклонение генеральной совокупности.
func StdDev(values map[string]float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

// IsUniform проверяет, что оценки подозрительно одинаковые (например, все 5).
func IsUniform(scores map[string]float64) bool {
	if len(scores) < minScoresForUniformity {
		return false
	}
	return StdDev(scores) < UniformityThreshold
}

// ClampScore ограничивает оценку шкалой 0–10.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(10, v))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
