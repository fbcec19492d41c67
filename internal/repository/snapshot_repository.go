package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/repository/common"
)

var ErrSnapshotNotFound = errors.New("pricing snapshot not found")

var snapshotColumns = []string{
	"id", "question_id", "pricing_version_id", "is_urgent", "scoring_source",
	"s_base", "f", "s_eff", "s_opt_nonlang", "s_lang", "s_final",
	"hours", "normal_days", "urgent_days",
	"hourly_rate", "hourly_source", "min_price", "rounding_step", "urgent_multiplier",
	"price_normal_raw", "price_urgent_raw", "price_normal", "price_urgent", "price_final", "auto_priced",
	"gtip_present", "gtip_difficulty", "gtip_count",
	"currency", "fx_rate", "fx_as_of", "tenant_multiplier", "display_amount", "credits",
	"k_gtip", "k_valuation", "k_legal", "k_process", "k_tax", "k_documents",
	"k_language", "k_permits", "k_origin", "k_data_quality", "k_international",
	"details",
}

var insertSnapshotQuery = fmt.Sprintf(
	"INSERT INTO pricing_snapshots (%s) VALUES (:%s) RETURNING created_at",
	strings.Join(snapshotColumns, ", "),
	strings.Join(snapshotColumns, ", :"),
)

type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create вставляет снимок. Снимки никогда не обновляются.
func (r *SnapshotRepository) Create(ctx context.Context, s *models.PricingSnapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	rows, err := r.db.NamedQueryContext(ctx, insertSnapshotQuery, s)
	if err != nil {
		return fmt.Errorf("snapshot repository: create: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&s.CreatedAt); err != nil {
			return fmt.Errorf("snapshot repository: create scan: %w", err)
		}
	}
	return rows.Err()
}

// GetByID возвращает снимок по ID.
func (r *SnapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PricingSnapshot, error) {
	return common.GetByID[models.PricingSnapshot](ctx, r.db, "pricing_snapshots", id, ErrSnapshotNotFound)
}

// ListByQuestion возвращает снимки вопроса от новых к старым.
func (r *SnapshotRepository) ListByQuestion(ctx context.Context, questionID uuid.UUID, limit, offset int) ([]models.PricingSnapshot, error) {
	snapshots := []models.PricingSnapshot{}
	err := r.db.SelectContext(ctx, &snapshots, `
		SELECT * FROM pricing_snapshots WHERE question_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, questionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("snapshot repository: list by question: %w", err)
	}
	return snapshots, nil
}

// ListCreatedBetween возвращает снимки за период [from, to) для выгрузки.
func (r *SnapshotRepository) ListCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]models.PricingSnapshot, error) {
	snapshots := []models.PricingSnapshot{}
	err := r.db.SelectContext(ctx, &snapshots, `
		SELECT * FROM pricing_snapshots
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot repository: list between: %w", err)
	}
	return snapshots, nil
}
