package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/customs-pricing/internal/logger"
	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
	"github.com/ignatzorin/customs-pricing/internal/repository"
)

type TenantRepository interface {
	GetPricing(ctx context.Context, tenantID uuid.UUID) (*models.TenantPricing, error)
}

type FXRateRepository interface {
	Latest(ctx context.Context, base, quote string) (*models.FXRate, error)
}

// CurrencyService пересчитывает итоговую цену в валюту и кредиты арендатора.
type CurrencyService struct {
	tenants TenantRepository
	rates   FXRateRepository
	cache   RateCache
	ttl     time.Duration
	base    string
}

func NewCurrencyService(tenants TenantRepository, rates FXRateRepository, cache RateCache, ttl time.Duration, base string) *CurrencyService {
	if base == "" {
		base = pricing.BaseCurrency
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CurrencyService{tenants: tenants, rates: rates, cache: cache, ttl: ttl, base: base}
}

// Display возвращает блок display для ответа. Без арендатора или курса возвращает nil без ошибки.
func (s *CurrencyService) Display(ctx context.Context, tenantID *uuid.UUID, price float64, corporate bool) (*pricing.DisplayPrice, error) {
	if tenantID == nil {
		return nil, nil
	}

	tenant, err := s.tenants.GetPricing(ctx, *tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "арендатор не найден")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить настройки арендатора")
	}

	settings := pricing.TenantSettings{
		Currency:           tenant.Currency,
		Multiplier:         tenant.PricingMultiplier,
		CreditPrice:        tenant.CreditPrice,
		CorporateDiscount:  tenant.CorporateDiscount,
		IndividualDiscount: tenant.IndividualDiscount,
	}

	var quote *pricing.FXQuote
	if settings.NeedsFX(s.base) {
		quote, err = s.quote(ctx, settings.Currency)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"tenant_id": tenantID,
				"currency":  settings.Currency,
				"error":     err,
			}).Warn("курс валюты недоступен, блок display не формируется")
			return nil, nil
		}
	}

	display, err := pricing.ConvertDisplay(price, s.base, settings, quote, corporate)
	if err != nil {
		logger.Log.WithError(err).Warn("не удалось пересчитать цену в валюту арендатора")
		return nil, nil
	}
	return &display, nil
}

func (s *CurrencyService) quote(ctx context.Context, currency string) (*pricing.FXQuote, error) {
	key := FXRateCacheKey(s.base, currency)
	if q, ok := s.cache.GetRate(ctx, key); ok {
		return q, nil
	}

	rate, err := s.rates.Latest(ctx, s.base, currency)
	if err != nil {
		return nil, err
	}
	q := pricing.FXQuote{Currency: rate.Quote, Rate: rate.Rate, AsOf: rate.AsOf}
	s.cache.SetRate(ctx, key, q, s.ttl)
	return &q, nil
}
