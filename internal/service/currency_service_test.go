package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/repository"
)

type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) GetPricing(ctx context.Context, tenantID uuid.UUID) (*models.TenantPricing, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantPricing), args.Error(1)
}

type mockFXRepo struct {
	mock.Mock
}

func (m *mockFXRepo) Latest(ctx context.Context, base, quote string) (*models.FXRate, error) {
	args := m.Called(ctx, base, quote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FXRate), args.Error(1)
}

func newCurrencyService(t *testing.T) (*CurrencyService, *mockTenantRepo, *mockFXRepo) {
	tenants, rates := new(mockTenantRepo), new(mockFXRepo)
	svc := NewCurrencyService(tenants, rates, NewMemoryRateCache(newTestCache(t)), time.Minute, "TRY")
	return svc, tenants, rates
}

func TestCurrencyService_NoTenant(t *testing.T) {
	svc, tenants, _ := newCurrencyService(t)

	display, err := svc.Display(context.Background(), nil, 1600, false)
	require.NoError(t, err)
	assert.Nil(t, display)
	tenants.AssertNotCalled(t, "GetPricing", mock.Anything, mock.Anything)
}

func TestCurrencyService_ConvertsAndCachesRate(t *testing.T) {
	svc, tenants, rates := newCurrencyService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	asOf := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	tenants.On("GetPricing", ctx, tenantID).Return(&models.TenantPricing{
		TenantID:           tenantID,
		Currency:           "EUR",
		PricingMultiplier:  1.2,
		CreditPrice:        100,
		CorporateDiscount:  0.1,
		IndividualDiscount: 0,
	}, nil)
	rates.On("Latest", ctx, "TRY", "EUR").Return(&models.FXRate{Base: "TRY", Quote: "EUR", Rate: 40, AsOf: asOf}, nil).Once()

	display, err := svc.Display(ctx, &tenantID, 18500, true)
	require.NoError(t, err)
	require.NotNil(t, display)
	assert.Equal(t, "EUR", display.Currency)
	assert.InDelta(t, 555.0, display.Amount, 1e-9)
	assert.Equal(t, 40.0, display.FXRate)
	require.NotNil(t, display.FXAsOf)
	assert.True(t, asOf.Equal(*display.FXAsOf))
	require.NotNil(t, display.Credits)
	assert.Equal(t, int64(200), *display.Credits)

	_, err = svc.Display(ctx, &tenantID, 1600, false)
	require.NoError(t, err)
	rates.AssertNumberOfCalls(t, "Latest", 1)
}

func TestCurrencyService_MissingRateOmitsDisplay(t *testing.T) {
	svc, tenants, rates := newCurrencyService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	tenants.On("GetPricing", ctx, tenantID).Return(&models.TenantPricing{TenantID: tenantID, Currency: "USD"}, nil)
	rates.On("Latest", ctx, "TRY", "USD").Return(nil, repository.ErrFXRateNotFound)

	display, err := svc.Display(ctx, &tenantID, 1600, false)
	require.NoError(t, err)
	assert.Nil(t, display)
}

func TestCurrencyService_BaseCurrencyNeedsNoRate(t *testing.T) {
	svc, tenants, rates := newCurrencyService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	tenants.On("GetPricing", ctx, tenantID).Return(&models.TenantPricing{TenantID: tenantID, Currency: "TRY", PricingMultiplier: 1}, nil)

	display, err := svc.Display(ctx, &tenantID, 2150, false)
	require.NoError(t, err)
	require.NotNil(t, display)
	assert.Equal(t, "TRY", display.Currency)
	assert.Equal(t, 2150.0, display.Amount)
	assert.Nil(t, display.Credits)
	rates.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything, mock.Anything)
}

func TestCurrencyService_UnknownTenant(t *testing.T) {
	svc, tenants, _ := newCurrencyService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	tenants.On("GetPricing", ctx, tenantID).Return(nil, repository.ErrTenantNotFound)

	_, err := svc.Display(ctx, &tenantID, 1600, false)
	assert.True(t, apperror.IsNotFound(err))
}
