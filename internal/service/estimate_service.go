package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/customs-pricing/internal/logger"
	"github.com/ignatzorin/customs-pricing/internal/metrics"
	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
	"github.com/ignatzorin/customs-pricing/internal/repository"
	"github.com/ignatzorin/customs-pricing/internal/validation"
)

type QuestionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
	ListAttachments(ctx context.Context, questionID uuid.UUID) ([]models.QuestionAttachment, error)
	SetLastEstimate(ctx context.Context, questionID, snapshotID uuid.UUID) error
}

type SnapshotRepository interface {
	Create(ctx context.Context, s *models.PricingSnapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PricingSnapshot, error)
	ListByQuestion(ctx context.Context, questionID uuid.UUID, limit, offset int) ([]models.PricingSnapshot, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]models.PricingSnapshot, error)
}

type ActiveConfigProvider interface {
	Active(ctx context.Context) (*pricing.ActiveConfig, error)
}

type DisplayConverter interface {
	Display(ctx context.Context, tenantID *uuid.UUID, price float64, corporate bool) (*pricing.DisplayPrice, error)
}

// PreviewInput - расчёт по произвольному тексту без сохранения.
type PreviewInput struct {
	Text         string
	IsUrgent     bool
	Attachments  []pricing.Attachment
	TenantID     *uuid.UUID
	CustomerType string
}

// QuestionEstimateInput переопределяет параметры сохранённого вопроса.
type QuestionEstimateInput struct {
	IsUrgent     *bool
	TenantID     *uuid.UUID
	CustomerType string
}

// EstimateResult - ответ расчёта стоимости.
type EstimateResult struct {
	Details    pricing.Estimate      `json:"details"`
	PriceFinal float64               `json:"price_final"`
	IsUrgent   bool                  `json:"is_urgent"`
	SnapshotID *uuid.UUID            `json:"snapshot_id"`
	Display    *pricing.DisplayPrice `json:"display,omitempty"`
}

type EstimateService struct {
	rubric            ActiveConfigProvider
	scorer            pricing.Scorer
	questions         QuestionRepository
	snapshots         SnapshotRepository
	currency          DisplayConverter
	defaultHourlyRate float64
}

func NewEstimateService(
	rubric ActiveConfigProvider,
	scorer pricing.Scorer,
	questions QuestionRepository,
	snapshots SnapshotRepository,
	currency DisplayConverter,
	defaultHourlyRate float64,
) *EstimateService {
	return &EstimateService{
		rubric:            rubric,
		scorer:            scorer,
		questions:         questions,
		snapshots:         snapshots,
		currency:          currency,
		defaultHourlyRate: defaultHourlyRate,
	}
}

// Preview считает стоимость для текста из формы. Снимок не создаётся.
func (s *EstimateService) Preview(ctx context.Context, in PreviewInput) (*EstimateResult, error) {
	if err := validation.ValidateQuestionText(in.Text); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	active, err := s.rubric.Active(ctx)
	if err != nil {
		return nil, err
	}

	est, err := s.compute(ctx, active, in.Text, in.Attachments, nil, in.IsUrgent)
	if err != nil {
		return nil, err
	}

	display, err := s.currency.Display(ctx, in.TenantID, est.PriceFinal, in.CustomerType == models.CustomerTypeCorporate)
	if err != nil {
		return nil, err
	}
	return newEstimateResult(est, display, nil), nil
}

// EstimateQuestion считает стоимость сохранённого вопроса, пишет снимок и переставляет указатель.
func (s *EstimateService) EstimateQuestion(ctx context.Context, questionID uuid.UUID, in QuestionEstimateInput) (*EstimateResult, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return nil, apperror.ErrQuestionNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить вопрос")
	}

	stored, err := s.questions.ListAttachments(ctx, questionID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить вложения")
	}
	attachments := make([]pricing.Attachment, 0, len(stored))
	for _, a := range stored {
		attachments = append(attachments, pricing.Attachment{
			Name: a.Name,
			Size: a.Size,
			Type: validation.AttachmentType(a.Name, a.MimeType),
		})
	}

	isUrgent := question.IsUrgent
	if in.IsUrgent != nil {
		isUrgent = *in.IsUrgent
	}
	tenantID := question.TenantID
	if in.TenantID != nil {
		tenantID = in.TenantID
	}
	customerType := question.CustomerType
	if in.CustomerType != "" {
		customerType = in.CustomerType
	}

	active, err := s.rubric.Active(ctx)
	if err != nil {
		return nil, err
	}

	est, err := s.compute(ctx, active, question.Text, attachments, question.WorkerHourlyRate, isUrgent)
	if err != nil {
		return nil, err
	}

	display, err := s.currency.Display(ctx, tenantID, est.PriceFinal, customerType == models.CustomerTypeCorporate)
	if err != nil {
		return nil, err
	}

	snapshotID := s.recordSnapshot(ctx, questionID, est, display)
	return newEstimateResult(est, display, snapshotID), nil
}

func (s *EstimateService) compute(
	ctx context.Context,
	active *pricing.ActiveConfig,
	text string,
	attachments []pricing.Attachment,
	workerRate *float64,
	isUrgent bool,
) (pricing.Estimate, error) {
	start := time.Now()

	scores, err := s.scorer.Score(ctx, active.ScoreRequestFor(text, attachments))
	if err != nil {
		return pricing.Estimate{}, err
	}

	rate := pricing.ResolveHourlyRate(workerRate, active.Version.BaseHourlyRate, s.defaultHourlyRate)
	est := pricing.Compute(active, scores, rate, isUrgent)

	metrics.EstimateComputed(est.ScoringSource, time.Since(start))
	return est, nil
}

// recordSnapshot пишет снимок. Ошибка записи не ломает ответ: расчёт возвращается без snapshot_id.
func (s *EstimateService) recordSnapshot(ctx context.Context, questionID uuid.UUID, est pricing.Estimate, display *pricing.DisplayPrice) *uuid.UUID {
	snapshot, err := buildSnapshot(questionID, est, display)
	if err == nil {
		err = s.snapshots.Create(ctx, snapshot)
	}
	if err != nil {
		metrics.SnapshotFailed()
		logger.Log.WithFields(logrus.Fields{
			"question_id": questionID,
			"version_id":  est.VersionID,
			"error":       err,
		}).Error("не удалось сохранить снимок расчёта")
		return nil
	}

	if err := s.questions.SetLastEstimate(ctx, questionID, snapshot.ID); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"question_id": questionID,
			"snapshot_id": snapshot.ID,
			"error":       err,
		}).Warn("не удалось обновить ссылку на последний расчёт")
	}
	return &snapshot.ID
}

func newEstimateResult(est pricing.Estimate, display *pricing.DisplayPrice, snapshotID *uuid.UUID) *EstimateResult {
	return &EstimateResult{
		Details:    est,
		PriceFinal: est.PriceFinal,
		IsUrgent:   est.IsUrgent,
		SnapshotID: snapshotID,
		Display:    display,
	}
}

// snapshotDetails - содержимое колонки details: полный расчёт и зафиксированный курс.
type snapshotDetails struct {
	pricing.Estimate
	Display *pricing.DisplayPrice `json:"display,omitempty"`
}

func buildSnapshot(questionID uuid.UUID, est pricing.Estimate, display *pricing.DisplayPrice) (*models.PricingSnapshot, error) {
	details, err := json.Marshal(snapshotDetails{Estimate: est, Display: display})
	if err != nil {
		return nil, err
	}

	s := &models.PricingSnapshot{
		ID:               uuid.New(),
		QuestionID:       questionID,
		PricingVersionID: est.VersionID,
		IsUrgent:         est.IsUrgent,
		ScoringSource:    est.ScoringSource,
		SBase:            est.SBase,
		Factor:           est.Factor,
		SEff:             est.SEff,
		SOptNonLang:      est.SOptNonLang,
		SLang:            est.SLang,
		SFinal:           est.SFinal,
		Hours:            est.Hours,
		NormalDays:       est.NormalDays,
		UrgentDays:       est.UrgentDays,
		HourlyRate:       est.Hourly,
		HourlySource:     est.HourlySource,
		MinPrice:         est.MinPrice,
		RoundingStep:     est.RoundingStep,
		UrgentMultiplier: est.UrgentMultiplier,
		PriceNormalRaw:   est.PriceNormalRaw,
		PriceUrgentRaw:   est.PriceUrgentRaw,
		PriceNormal:      est.PriceNormal,
		PriceUrgent:      est.PriceUrgent,
		PriceFinal:       est.PriceFinal,
		AutoPriced:       est.AutoPriced,
		GtipPresent:      est.Gtip.Present,
		GtipDifficulty:   est.Gtip.Difficulty,
		GtipCount:        est.Gtip.Count,
		Details:          details,
	}

	columns := map[string]**float64{
		models.CriterionGtip:          &s.KGtip,
		models.CriterionValuation:     &s.KValuation,
		models.CriterionLegal:         &s.KLegal,
		models.CriterionProcess:       &s.KProcess,
		models.CriterionTax:           &s.KTax,
		models.CriterionDocuments:     &s.KDocuments,
		models.CriterionLanguage:      &s.KLanguage,
		models.CriterionPermits:       &s.KPermits,
		models.CriterionOrigin:        &s.KOrigin,
		models.CriterionDataQuality:   &s.KDataQuality,
		models.CriterionInternational: &s.KInternational,
	}
	for key, col := range columns {
		*col = est.CriterionScore(key)
	}

	if display != nil {
		currency := display.Currency
		rate := display.FXRate
		multiplier := display.Multiplier
		amount := display.Amount
		s.Currency = &currency
		s.FXRate = &rate
		s.FXAsOf = display.FXAsOf
		s.TenantMultiplier = &multiplier
		s.DisplayAmount = &amount
		s.Credits = display.Credits
	}
	return s, nil
}

// GetSnapshot возвращает сохранённый расчёт для повторного показа.
func (s *EstimateService) GetSnapshot(ctx context.Context, id uuid.UUID) (*models.PricingSnapshot, error) {
	snapshot, err := s.snapshots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil, apperror.ErrSnapshotNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить расчёт")
	}
	return snapshot, nil
}

// ListSnapshots возвращает историю расчётов вопроса.
func (s *EstimateService) ListSnapshots(ctx context.Context, questionID uuid.UUID, limit, offset int) ([]models.PricingSnapshot, error) {
	snapshots, err := s.snapshots.ListByQuestion(ctx, questionID, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить расчёты")
	}
	return snapshots, nil
}
