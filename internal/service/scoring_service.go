package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/customs-pricing/internal/logger"
	"github.com/ignatzorin/customs-pricing/internal/metrics"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
)

// ScoringService оценивает критерии моделью с одним строгим повтором и эвристическим запасным путём.
type ScoringService struct {
	model     pricing.Scorer
	heuristic pricing.Scorer
}

// NewScoringService: model == nil означает оценку только эвристикой.
func NewScoringService(model pricing.Scorer) *ScoringService {
	return &ScoringService{
		model:     model,
		heuristic: pricing.NewHeuristicScorer(),
	}
}

// Score возвращает оценки по всем критериям запроса.
// Ошибку возвращает только при отсутствии ключа доступа к модели.
func (s *ScoringService) Score(ctx context.Context, req pricing.ScoreRequest) (*pricing.ScoreResult, error) {
	if s.model == nil {
		return s.heuristic.Score(ctx, req)
	}

	res, err := s.model.Score(ctx, req)
	if errors.Is(err, pricing.ErrMissingCredential) {
		return nil, apperror.Wrap(err, apperror.ErrCodeScoringDisabled, apperror.ErrScoringUnavailable.Message)
	}
	if reason := s.rejectReason(res, err); reason != "" {
		return s.fallback(ctx, req, reason, err)
	}

	if pricing.IsUniform(res.Scores) {
		metrics.ScoringRetry()
		logger.Log.WithFields(logrus.Fields{
			"stddev": pricing.StdDev(res.Scores),
			"count":  len(res.Scores),
		}).Info("оценки модели слишком ровные, повторный строгий запрос")

		strict := req
		strict.Strict = true
		res, err = s.model.Score(ctx, strict)
		if reason := s.rejectReason(res, err); reason != "" {
			return s.fallback(ctx, req, reason, err)
		}
		if pricing.IsUniform(res.Scores) {
			return s.fallback(ctx, req, "uniform", nil)
		}
	}

	s.fillMissing(res, req)
	return res, nil
}

func (s *ScoringService) rejectReason(res *pricing.ScoreResult, err error) string {
	switch {
	case err != nil:
		return "model_error"
	case res.Empty():
		return "empty"
	default:
		return ""
	}
}

func (s *ScoringService) fallback(ctx context.Context, req pricing.ScoreRequest, reason string, cause error) (*pricing.ScoreResult, error) {
	metrics.ScoringFallback(reason)
	fields := logrus.Fields{"reason": reason}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	logger.Log.WithFields(fields).Warn("оценка моделью недоступна, используется эвристика")
	return s.heuristic.Score(ctx, req)
}

// fillMissing дополняет эвристикой критерии, которые модель пропустила.
func (s *ScoringService) fillMissing(res *pricing.ScoreResult, req pricing.ScoreRequest) {
	var missing []string
	for _, key := range req.Keys() {
		if _, ok := res.Scores[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return
	}

	h := pricing.HeuristicScores(req.Text, req.Attachments, missing)
	for _, key := range missing {
		res.Scores[key] = h.Scores[key]
	}
	logger.Log.WithField("keys", missing).Debug("пропущенные моделью критерии оценены эвристикой")
}
