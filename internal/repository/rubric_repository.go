package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/customs-pricing/internal/logger"
	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
	"github.com/ignatzorin/customs-pricing/internal/repository/common"
)

var (
	ErrNoActiveVersion = errors.New("no active pricing version")
	ErrVersionNotFound = errors.New("pricing version not found")
	ErrAlreadySeeded   = errors.New("pricing rubric already seeded")
	ErrKeyExhausted    = errors.New("could not generate unique criterion key")
)

// rubricLockID - ключ pg_advisory_xact_lock, сериализующий запись версий.
const rubricLockID int64 = 7_420_002

const maxKeyAttempts = 5

// CriterionInput - критерий новой версии. Пустой Key означает новый критерий.
type CriterionInput struct {
	Key           string  `json:"key"`
	TitleTR       string  `json:"title_tr"`
	TitleEN       string  `json:"title_en"`
	DescriptionTR string  `json:"description_tr"`
	DescriptionEN string  `json:"description_en"`
	IsOptional    bool    `json:"is_optional"`
	OrderIndex    int     `json:"order_index"`
	Weight        float64 `json:"weight"`
	Enabled       bool    `json:"enabled"`
}

// CreateVersionInput - всё, что нужно для новой версии рубрики.
type CreateVersionInput struct {
	Name               string
	Notes              *string
	CreatedBy          *uuid.UUID
	BaseHourlyRate     float64
	MinPrice           float64
	UrgentMultiplier   float64
	RoundingStep       float64
	AutoPriceThreshold *float64
	Criteria           []CriterionInput
	Ext                pricing.ExtConfig
}

type RubricRepository struct {
	db     *sqlx.DB
	newKey func() string
}

func NewRubricRepository(db *sqlx.DB) *RubricRepository {
	return &RubricRepository{db: db, newKey: generateCriterionKey}
}

func generateCriterionKey() string {
	return "c_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// GetActiveConfig возвращает активную версию с критериями и расширенной конфигурацией.
func (r *RubricRepository) GetActiveConfig(ctx context.Context) (*pricing.ActiveConfig, error) {
	var version models.PricingVersion
	err := r.db.GetContext(ctx, &version, `SELECT * FROM pricing_versions WHERE is_active LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveVersion
		}
		return nil, fmt.Errorf("rubric repository: get active version: %w", err)
	}
	return r.loadConfig(ctx, version)
}

// GetVersionConfig возвращает конфигурацию конкретной версии.
func (r *RubricRepository) GetVersionConfig(ctx context.Context, id uuid.UUID) (*pricing.ActiveConfig, error) {
	version, err := common.GetByID[models.PricingVersion](ctx, r.db, "pricing_versions", id, ErrVersionNotFound)
	if err != nil {
		return nil, err
	}
	return r.loadConfig(ctx, *version)
}

func (r *RubricRepository) loadConfig(ctx context.Context, version models.PricingVersion) (*pricing.ActiveConfig, error) {
	criteria := []models.RubricCriterion{}
	err := r.db.SelectContext(ctx, &criteria, `
		SELECT c.id AS criterion_id, c.key, c.title_tr, c.title_en, c.description_tr, c.description_en,
		       c.is_optional, c.order_index, i.weight, i.enabled
		FROM pricing_version_items i
		JOIN criteria c ON c.id = i.criterion_id
		WHERE i.version_id = $1
		ORDER BY c.order_index, c.key
	`, version.ID)
	if err != nil {
		return nil, fmt.Errorf("rubric repository: list version items: %w", err)
	}

	ext := pricing.DefaultExtConfig()
	var raw []byte
	err = r.db.GetContext(ctx, &raw, `SELECT config FROM pricing_ext_configs WHERE version_id = $1`, version.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("rubric repository: get ext config: %w", err)
	default:
		decoded, decErr := pricing.DecodeExtConfig(raw)
		if decErr != nil {
			logger.Log.WithFields(logrus.Fields{
				"version_id": version.ID,
				"error":      decErr,
			}).Warn("расширенная конфигурация версии невалидна, используются значения по умолчанию")
		} else {
			ext = decoded
		}
	}

	return &pricing.ActiveConfig{Version: version, Criteria: criteria, Ext: ext}, nil
}

// ListVersions возвращает версии от новых к старым и общее количество.
func (r *RubricRepository) ListVersions(ctx context.Context, limit, offset int) ([]models.PricingVersion, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM pricing_versions`); err != nil {
		return nil, 0, fmt.Errorf("rubric repository: count versions: %w", err)
	}

	versions := []models.PricingVersion{}
	err := r.db.SelectContext(ctx, &versions, `
		SELECT * FROM pricing_versions ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("rubric repository: list versions: %w", err)
	}
	return versions, total, nil
}

// ListCriteria возвращает все когда-либо созданные критерии.
func (r *RubricRepository) ListCriteria(ctx context.Context) ([]models.Criterion, error) {
	criteria := []models.Criterion{}
	if err := r.db.SelectContext(ctx, &criteria, `SELECT * FROM criteria ORDER BY order_index, key`); err != nil {
		return nil, fmt.Errorf("rubric repository: list criteria: %w", err)
	}
	return criteria, nil
}

// CreateVersion создаёт новую активную версию, деактивируя текущую.
func (r *RubricRepository) CreateVersion(ctx context.Context, in CreateVersionInput) (uuid.UUID, error) {
	return r.createVersion(ctx, in, false)
}

// SeedVersion создаёт первую версию. Если версии уже есть, возвращает ErrAlreadySeeded.
func (r *RubricRepository) SeedVersion(ctx context.Context, in CreateVersionInput) (uuid.UUID, error) {
	return r.createVersion(ctx, in, true)
}

func (r *RubricRepository) createVersion(ctx context.Context, in CreateVersionInput, seed bool) (uuid.UUID, error) {
	if err := checkDuplicateKeys(in.Criteria); err != nil {
		return uuid.Nil, err
	}
	extJSON, err := json.Marshal(in.Ext)
	if err != nil {
		return uuid.Nil, fmt.Errorf("rubric repository: marshal ext config: %w", err)
	}

	var versionID uuid.UUID
	err = common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockRubric(ctx, tx); err != nil {
			return err
		}

		if seed {
			var count int
			if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM pricing_versions`); err != nil {
				return fmt.Errorf("rubric repository: count versions: %w", err)
			}
			if count > 0 {
				return ErrAlreadySeeded
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE pricing_versions SET is_active = FALSE WHERE is_active`); err != nil {
			return fmt.Errorf("rubric repository: deactivate: %w", err)
		}

		err := tx.QueryRowxContext(ctx, `
			INSERT INTO pricing_versions (name, notes, created_by, is_active, base_hourly_rate, min_price,
				urgent_multiplier, rounding_step, auto_price_threshold)
			VALUES ($1, $2, $3, TRUE, $4, $5, $6, $7, $8)
			RETURNING id
		`, in.Name, in.Notes, in.CreatedBy, in.BaseHourlyRate, in.MinPrice,
			in.UrgentMultiplier, in.RoundingStep, in.AutoPriceThreshold,
		).Scan(&versionID)
		if err != nil {
			return fmt.Errorf("rubric repository: insert version: %w", err)
		}

		items := common.NewBatchInserter(tx,
			`INSERT INTO pricing_version_items (version_id, criterion_id, weight, enabled)`, 4, 100)
		for _, c := range in.Criteria {
			criterionID, err := r.resolveCriterion(ctx, tx, c)
			if err != nil {
				return err
			}
			if err := items.Add(ctx, versionID, criterionID, c.Weight, c.Enabled); err != nil {
				return fmt.Errorf("rubric repository: insert items: %w", err)
			}
		}
		if err := items.Flush(ctx); err != nil {
			return fmt.Errorf("rubric repository: insert items: %w", err)
		}
		if items.Inserted() != len(in.Criteria) {
			return fmt.Errorf("%w: записано %d элементов версии из %d", common.ErrInvariant, items.Inserted(), len(in.Criteria))
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pricing_ext_configs (version_id, config) VALUES ($1, $2)
		`, versionID, extJSON); err != nil {
			return fmt.Errorf("rubric repository: insert ext config: %w", err)
		}

		return verifySingleActive(ctx, tx)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return versionID, nil
}

// ActivateVersion делает указанную версию единственной активной.
func (r *RubricRepository) ActivateVersion(ctx context.Context, id uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockRubric(ctx, tx); err != nil {
			return err
		}

		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM pricing_versions WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("rubric repository: check version: %w", err)
		}
		if !exists {
			return ErrVersionNotFound
		}

		if _, err := tx.ExecContext(ctx, `UPDATE pricing_versions SET is_active = FALSE WHERE is_active AND id <> $1`, id); err != nil {
			return fmt.Errorf("rubric repository: deactivate: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE pricing_versions SET is_active = TRUE WHERE id = $1`, id); err != nil {
			return fmt.Errorf("rubric repository: activate: %w", err)
		}

		return verifySingleActive(ctx, tx)
	})
}

// resolveCriterion находит критерий по ключу и обновляет его метаданные, иначе создаёт.
func (r *RubricRepository) resolveCriterion(ctx context.Context, tx *sqlx.Tx, c CriterionInput) (uuid.UUID, error) {
	key := strings.TrimSpace(c.Key)
	if key != "" {
		var id uuid.UUID
		err := tx.GetContext(ctx, &id, `SELECT id FROM criteria WHERE key = $1`, key)
		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx, `
				UPDATE criteria
				SET title_tr = $2, title_en = $3, description_tr = $4, description_en = $5,
				    is_optional = $6, order_index = $7
				WHERE id = $1
			`, id, c.TitleTR, c.TitleEN, c.DescriptionTR, c.DescriptionEN, c.IsOptional, c.OrderIndex)
			if err != nil {
				return uuid.Nil, fmt.Errorf("rubric repository: update criterion %s: %w", key, err)
			}
			return id, nil
		case !errors.Is(err, sql.ErrNoRows):
			return uuid.Nil, fmt.Errorf("rubric repository: find criterion %s: %w", key, err)
		}
	} else {
		generated, err := r.freeKey(ctx, tx)
		if err != nil {
			return uuid.Nil, err
		}
		key = generated
	}

	var id uuid.UUID
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO criteria (key, title_tr, title_en, description_tr, description_en, is_optional, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, key, c.TitleTR, c.TitleEN, c.DescriptionTR, c.DescriptionEN, c.IsOptional, c.OrderIndex).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("rubric repository: insert criterion %s: %w", key, err)
	}
	return id, nil
}

// freeKey подбирает незанятый сгенерированный ключ.
func (r *RubricRepository) freeKey(ctx context.Context, tx *sqlx.Tx) (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := r.newKey()
		var taken bool
		if err := tx.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM criteria WHERE key = $1)`, key); err != nil {
			return "", fmt.Errorf("rubric repository: check key: %w", err)
		}
		if !taken {
			return key, nil
		}
	}
	return "", ErrKeyExhausted
}

func lockRubric(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, rubricLockID); err != nil {
		return fmt.Errorf("rubric repository: lock: %w", err)
	}
	return nil
}

// verifySingleActive проверяет инвариант до фиксации транзакции.
func verifySingleActive(ctx context.Context, tx *sqlx.Tx) error {
	var active int
	if err := tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM pricing_versions WHERE is_active`); err != nil {
		return fmt.Errorf("rubric repository: verify active: %w", err)
	}
	if active != 1 {
		return fmt.Errorf("%w: активных версий %d", common.ErrInvariant, active)
	}
	return nil
}

func checkDuplicateKeys(criteria []CriterionInput) error {
	seen := make(map[string]struct{}, len(criteria))
	for _, c := range criteria {
		key := strings.TrimSpace(c.Key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: ключ критерия %q повторяется", common.ErrInvalidInput, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
