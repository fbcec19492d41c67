package pricing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency - валюта, в которой считаются все цены движка.
const BaseCurrency = "TRY"

// ErrInvalidRate возвращается при нулевом или отрицательном курсе.
var ErrInvalidRate = errors.New("fx rate must be positive")

// TenantSettings - валютные и кредитные настройки арендатора.
type TenantSettings struct {
	Currency           string
	Multiplier         float64
	CreditPrice        float64
	CorporateDiscount  float64
	IndividualDiscount float64
}

// FXQuote - курс: сколько единиц базовой валюты стоит одна единица валюты отображения.
type FXQuote struct {
	Currency string    `json:"currency"`
	Rate     float64   `json:"rate"`
	AsOf     time.Time `json:"as_of"`
}

// DisplayPrice - зафиксированная на момент расчёта цена в валюте арендатора.
type DisplayPrice struct {
	Currency    string     `json:"currency"`
	Amount      float64    `json:"amount"`
	FXRate      float64    `json:"fx_rate"`
	FXAsOf      *time.Time `json:"fx_as_of,omitempty"`
	Multiplier  float64    `json:"multiplier"`
	Credits     *int64     `json:"credits,omitempty"`
	CreditPrice float64    `json:"credit_price,omitempty"`
	Discount    float64    `json:"discount,omitempty"`
}

// NeedsFX сообщает, нужен ли курс для валюты арендатора.
func (t TenantSettings) NeedsFX(base string) bool {
	cur := strings.ToUpper(strings.TrimSpace(t.Currency))
	return cur != "" && cur != strings.ToUpper(base)
}

// DiscountFor возвращает долю скидки для типа клиента, ограниченную [0, 1].
func (t TenantSettings) DiscountFor(corporate bool) float64 {
	if corporate {
		return clamp01(t.CorporateDiscount)
	}
	return clamp01(t.IndividualDiscount)
}

// ConvertDisplay пересчитывает цену из базовой валюты в валюту арендатора.
// quote может быть nil, если валюта совпадает с базовой.
func ConvertDisplay(price float64, base string, t TenantSettings, quote *FXQuote, corporate bool) (DisplayPrice, error) {
	multiplier := t.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	out := DisplayPrice{
		Currency:   strings.ToUpper(base),
		FXRate:     1,
		Multiplier: multiplier,
	}

	amount := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(multiplier))
	if t.NeedsFX(base) {
		if quote == nil || quote.Rate <= 0 {
			return DisplayPrice{}, ErrInvalidRate
		}
		asOf := quote.AsOf
		out.Currency = strings.ToUpper(t.Currency)
		out.FXRate = quote.Rate
		out.FXAsOf = &asOf
		amount = amount.Div(decimal.NewFromFloat(quote.Rate))
	}
	out.Amount = amount.Round(2).InexactFloat64()

	if t.CreditPrice > 0 {
		discount := t.DiscountFor(corporate)
		credits := Credits(price, t.CreditPrice, discount, multiplier)
		out.Credits = &credits
		out.CreditPrice = t.CreditPrice
		out.Discount = discount
	}
	return out, nil
}

// Credits: цена со скидкой делится на цену кредита, умножается на множитель
// арендатора и округляется до целого кредита.
func Credits(price, creditPrice, discount, multiplier float64) int64 {
	if creditPrice <= 0 {
		return 0
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	net := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(1 - clamp01(discount)))
	credits := net.Div(decimal.NewFromFloat(creditPrice)).Mul(decimal.NewFromFloat(multiplier))
	return credits.Round(0).IntPart()
}
