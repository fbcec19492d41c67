package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// rawPricePrecision - количество знаков, до которого округляется сырая цена
// перед округлением вверх, чтобы шум float не добавлял лишний шаг. Шум для цен
// до миллионов меньше 1e-9.
const rawPricePrecision = 9

// PriceInput - параметры перевода балла в часы, дни и цену.
type PriceInput struct {
	SFinal             float64
	PointsPerHour      float64
	HoursPerDay        float64
	UrgentFactor       float64
	HourlyRate         float64
	MinPrice           float64
	UrgentMultiplier   float64
	RoundingStep       float64
	AutoPriceThreshold *float64
	IsUrgent           bool
}

// PriceResult - часы, сроки и цены для обычного и срочного режимов.
type PriceResult struct {
	Hours          float64
	NormalDays     int
	UrgentDays     int
	PriceNormalRaw float64
	PriceUrgentRaw float64
	PriceNormal    float64
	PriceUrgent    float64
	PriceFinal     float64
	AutoPriced     bool
}

// Normalize переводит составной балл в часы, дни и округлённые цены.
func Normalize(in PriceInput) PriceResult {
	pointsPerHour := in.PointsPerHour
	if pointsPerHour <= 0 {
		pointsPerHour = DefaultExtConfig().PointsPerHour
	}
	hoursPerDay := in.HoursPerDay
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultExtConfig().Term.HoursPerDay
	}
	urgentFactor := in.UrgentFactor
	if urgentFactor <= 0 {
		urgentFactor = DefaultExtConfig().Term.UrgentFactor
	}
	urgentMultiplier := in.UrgentMultiplier
	if urgentMultiplier <= 0 {
		urgentMultiplier = 1
	}

	var res PriceResult
	res.Hours = math.Max(0, in.SFinal) / pointsPerHour

	res.NormalDays = int(math.Ceil(res.Hours / hoursPerDay))
	if res.NormalDays < 1 {
		res.NormalDays = 1
	}
	res.UrgentDays = int(math.Ceil(float64(res.NormalDays) * urgentFactor))
	if res.UrgentDays < 1 {
		res.UrgentDays = 1
	}

	base := res.Hours * in.HourlyRate
	res.PriceNormalRaw = math.Max(in.MinPrice, base)
	res.PriceUrgentRaw = math.Max(in.MinPrice, base*urgentMultiplier)
	res.PriceNormal = RoundUpToStep(res.PriceNormalRaw, in.RoundingStep)
	res.PriceUrgent = RoundUpToStep(res.PriceUrgentRaw, in.RoundingStep)

	res.PriceFinal = res.PriceNormal
	if in.IsUrgent {
		res.PriceFinal = res.PriceUrgent
	}
	res.AutoPriced = in.AutoPriceThreshold == nil || res.PriceFinal <= *in.AutoPriceThreshold
	return res
}

// RoundUpToStep округляет сумму вверх до кратного шагу. Шаг <= 0 означает
// округление вверх до целой денежной единицы. Вниз не округляет никогда.
func RoundUpToStep(amount, step float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	value := decimal.NewFromFloat(amount).Round(rawPricePrecision)

	unit := decimal.NewFromInt(1)
	if step > 0 && !math.IsInf(step, 0) {
		unit = decimal.NewFromFloat(step)
	}
	return value.Div(unit).Ceil().Mul(unit).InexactFloat64()
}
