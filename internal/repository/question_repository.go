package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/customs-pricing/internal/models"
)

var ErrQuestionNotFound = errors.New("question not found")

type QuestionRepository struct {
	db *sqlx.DB
}

func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// GetByID возвращает вопрос вместе со ставкой назначенного исполнителя.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	var q models.Question
	err := r.db.GetContext(ctx, &q, `
		SELECT q.id, q.tenant_id, q.text, q.is_urgent, q.customer_type, q.assigned_worker_id,
		       w.hourly_rate AS worker_hourly_rate, q.last_pricing_estimate_id
		FROM questions q
		LEFT JOIN workers w ON w.id = q.assigned_worker_id
		WHERE q.id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("question repository: get: %w", err)
	}
	return &q, nil
}

// ListAttachments возвращает метаданные вложений вопроса.
func (r *QuestionRepository) ListAttachments(ctx context.Context, questionID uuid.UUID) ([]models.QuestionAttachment, error) {
	attachments := []models.QuestionAttachment{}
	err := r.db.SelectContext(ctx, &attachments, `
		SELECT name, size, mime_type FROM question_attachments WHERE question_id = $1 ORDER BY created_at, name
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("question repository: list attachments: %w", err)
	}
	return attachments, nil
}

// SetLastEstimate переставляет указатель на последний расчёт.
func (r *QuestionRepository) SetLastEstimate(ctx context.Context, questionID, snapshotID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE questions SET last_pricing_estimate_id = $2 WHERE id = $1`, questionID, snapshotID)
	if err != nil {
		return fmt.Errorf("question repository: set last estimate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}
