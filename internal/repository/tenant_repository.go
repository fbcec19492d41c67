package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/customs-pricing/internal/models"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrFXRateNotFound = errors.New("fx rate not found")
)

type TenantRepository struct {
	db *sqlx.DB
}

func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetPricing возвращает валютные и кредитные настройки арендатора.
func (r *TenantRepository) GetPricing(ctx context.Context, tenantID uuid.UUID) (*models.TenantPricing, error) {
	var t models.TenantPricing
	err := r.db.GetContext(ctx, &t, `
		SELECT id, currency, pricing_multiplier, credit_price, corporate_discount, individual_discount
		FROM tenants WHERE id = $1
	`, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("tenant repository: get pricing: %w", err)
	}
	return &t, nil
}

type FXRateRepository struct {
	db *sqlx.DB
}

func NewFXRateRepository(db *sqlx.DB) *FXRateRepository {
	return &FXRateRepository{db: db}
}

// Latest возвращает самый свежий курс пары.
func (r *FXRateRepository) Latest(ctx context.Context, base, quote string) (*models.FXRate, error) {
	var rate models.FXRate
	err := r.db.GetContext(ctx, &rate, `
		SELECT base, quote, rate, as_of FROM fx_rates
		WHERE base = $1 AND quote = $2
		ORDER BY as_of DESC
		LIMIT 1
	`, strings.ToUpper(base), strings.ToUpper(quote))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFXRateNotFound
		}
		return nil, fmt.Errorf("fx repository: latest: %w", err)
	}
	return &rate, nil
}
