package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig возвращается при невалидной расширенной конфигурации.
var ErrInvalidConfig = errors.New("invalid ext config")

var validate = validator.New()

// Band - полоса прогрессивного коэффициента вида {"range": "lo-hi", "factor": f}.
type Band struct {
	Range  string  `json:"range" validate:"required"`
	Factor float64 `json:"factor" validate:"gt=0"`
}

// Bounds разбирает диапазон полосы.
func (b Band) Bounds() (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(b.Range), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: диапазон %q должен иметь вид lo-hi", ErrInvalidConfig, b.Range)
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: диапазон %q: %v", ErrInvalidConfig, b.Range, err)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: диапазон %q: %v", ErrInvalidConfig, b.Range, err)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: диапазон %q: lo больше hi", ErrInvalidConfig, b.Range)
	}
	return lo, hi, nil
}

// Term - константы перевода часов в рабочие дни.
type Term struct {
	HoursPerDay  float64 `json:"hoursPerDay" validate:"gt=0"`
	UrgentFactor float64 `json:"urgentFactor" validate:"gt=0"`
}

// GtipModule - бонус за коды классификации (ГТИП).
type GtipModule struct {
	Enabled       bool    `json:"enabled"`
	Explanation   string  `json:"explanation"`
	BaseIfPresent float64 `json:"baseIfPresent" validate:"gte=0"`
	MaxBase       float64 `json:"maxBase" validate:"gte=0"`
	PerExtraCode  float64 `json:"perExtraCode" validate:"gte=0"`
	MaxBonus      float64 `json:"maxBonus" validate:"gte=0"`
}

// WeightModule - модуль с одним параметром максимального веса.
type WeightModule struct {
	Enabled     bool    `json:"enabled"`
	Explanation string  `json:"explanation"`
	WeightMax   float64 `json:"weightMax" validate:"gte=0"`
}

// Optionals - фиксированный набор дополнительных модулей.
type Optionals struct {
	Gtip        GtipModule   `json:"gtip"`
	Legal       WeightModule `json:"legal"`
	Language    WeightModule `json:"language"`
	LanguageGap WeightModule `json:"languageGap"`
}

// ExtraOptional - дополнительный модуль, заданный администратором.
type ExtraOptional struct {
	Title       string  `json:"title" validate:"required"`
	Explanation string  `json:"explanation"`
	WeightMax   float64 `json:"weightMax" validate:"gte=0"`
	Enabled     bool    `json:"enabled"`
}

// ExtConfig - расширенная конфигурация версии.
type ExtConfig struct {
	PointsPerHour  float64         `json:"pointsPerHour" validate:"gt=0"`
	Term           Term            `json:"term"`
	Progressive    []Band          `json:"progressive" validate:"required,min=1,dive"`
	Optionals      Optionals       `json:"optionals"`
	ExtraOptionals []ExtraOptional `json:"extraOptionals" validate:"dive"`
}

// DefaultExtConfig возвращает конфигурацию стартовой рубрики.
func DefaultExtConfig() ExtConfig {
	return ExtConfig{
		PointsPerHour: 10,
		Term:          Term{HoursPerDay: 4, UrgentFactor: 0.5},
		Progressive: []Band{
			{Range: "0-20", Factor: 1.0},
			{Range: "21-40", Factor: 1.3},
			{Range: "41-60", Factor: 1.7},
			{Range: "61-70", Factor: 2.2},
			{Range: "71-85", Factor: 2.6},
			{Range: "86-100", Factor: 3.0},
		},
		Optionals: Optionals{
			Gtip: GtipModule{
				Enabled:       true,
				Explanation:   "Наличие и сложность кодов ГТИП",
				BaseIfPresent: 10,
				MaxBase:       20,
				PerExtraCode:  2,
				MaxBonus:      10,
			},
			Legal:       WeightModule{Enabled: true, Explanation: "Юридическая сложность", WeightMax: 10},
			Language:    WeightModule{Enabled: true, Explanation: "Языковая нагрузка", WeightMax: 5},
			LanguageGap: WeightModule{Enabled: true, Explanation: "Языковой разрыв", WeightMax: 5},
		},
		ExtraOptionals: []ExtraOptional{},
	}
}

// DecodeExtConfig строго разбирает JSON: неизвестные ключи отклоняются.
func DecodeExtConfig(raw []byte) (ExtConfig, error) {
	var cfg ExtConfig
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return ExtConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return ExtConfig{}, err
	}
	return cfg, nil
}

// Validate проверяет числовые ограничения, непрерывность полос и уникальность доп. модулей.
func (c ExtConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	prevHi := -1
	for i, band := range c.Progressive {
		lo, hi, err := band.Bounds()
		if err != nil {
			return err
		}
		if lo != prevHi+1 {
			return fmt.Errorf("%w: полоса %d (%s) должна начинаться с %d", ErrInvalidConfig, i, band.Range, prevHi+1)
		}
		prevHi = hi
	}
	if prevHi != 100 {
		return fmt.Errorf("%w: полосы должны покрывать диапазон до 100, последняя заканчивается на %d", ErrInvalidConfig, prevHi)
	}

	seen := make(map[string]struct{}, len(c.ExtraOptionals))
	for _, extra := range c.ExtraOptionals {
		title := strings.TrimSpace(extra.Title)
		if _, dup := seen[title]; dup {
			return fmt.Errorf("%w: дублирующийся доп. модуль %q", ErrInvalidConfig, title)
		}
		seen[title] = struct{}{}
	}
	return nil
}

// FactorFor возвращает коэффициент полосы, содержащей округлённый базовый балл.
// Если ни одна полоса не подошла, используется последняя.
func (c ExtConfig) FactorFor(sBase float64) float64 {
	if len(c.Progressive) == 0 {
		return 1
	}
	point := clampInt(roundHalfUp(sBase), 0, 100)
	for _, band := range c.Progressive {
		lo, hi, err := band.Bounds()
		if err != nil {
			continue
		}
		if point >= lo && point <= hi {
			return band.Factor
		}
	}
	return c.Progressive[len(c.Progressive)-1].Factor
}
