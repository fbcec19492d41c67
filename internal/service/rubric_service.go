package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ignatzorin/customs-pricing/internal/logger"
	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
	"github.com/ignatzorin/customs-pricing/internal/repository"
	"github.com/ignatzorin/customs-pricing/internal/repository/common"
)

// Параметры версии, создаваемой при первичной инициализации.
const (
	seedMinPrice         = 1600
	seedUrgentMultiplier = 1.5
	seedRoundingStep     = 50
)

// activeLoadTimeout ограничивает общую загрузку активной версии, она не зависит от отмены запроса.
const activeLoadTimeout = 10 * time.Second

type RubricRepository interface {
	GetActiveConfig(ctx context.Context) (*pricing.ActiveConfig, error)
	GetVersionConfig(ctx context.Context, id uuid.UUID) (*pricing.ActiveConfig, error)
	ListVersions(ctx context.Context, limit, offset int) ([]models.PricingVersion, int, error)
	ListCriteria(ctx context.Context) ([]models.Criterion, error)
	CreateVersion(ctx context.Context, in repository.CreateVersionInput) (uuid.UUID, error)
	SeedVersion(ctx context.Context, in repository.CreateVersionInput) (uuid.UUID, error)
	ActivateVersion(ctx context.Context, id uuid.UUID) error
}

// RubricView - ответ чтения рубрики для администратора.
type RubricView struct {
	Version      *models.PricingVersion   `json:"version"`
	Criteria     []models.RubricCriterion `json:"criteria"`
	ExtConfig    pricing.ExtConfig        `json:"extConfig"`
	SeedDefaults bool                     `json:"seed_defaults,omitempty"`
}

type RubricService struct {
	repo              RubricRepository
	cache             *CacheService
	ttl               time.Duration
	defaultHourlyRate float64
	loads             singleflight.Group
}

func NewRubricService(repo RubricRepository, cache *CacheService, ttl time.Duration, defaultHourlyRate float64) *RubricService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RubricService{
		repo:              repo,
		cache:             cache,
		ttl:               ttl,
		defaultHourlyRate: defaultHourlyRate,
	}
}

// Active возвращает активную конфигурацию. Параллельные промахи кэша грузят её один раз.
func (s *RubricService) Active(ctx context.Context) (*pricing.ActiveConfig, error) {
	key := ActiveRubricCacheKey()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*pricing.ActiveConfig), nil
	}

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
		// Результат ждут все запросы, отмена первого не должна ронять остальные
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activeLoadTimeout)
		defer cancel()
		cfg, err := s.repo.GetActiveConfig(loadCtx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, cfg, s.ttl)
		return cfg, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveVersion) {
			return nil, apperror.ErrNoActiveVersion
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить рубрику")
	}
	return v.(*pricing.ActiveConfig), nil
}

// Get возвращает активную рубрику. Пока не создан ни один критерий, отдаёт стартовую рубрику с флагом seed_defaults.
func (s *RubricService) Get(ctx context.Context) (*RubricView, error) {
	cfg, err := s.Active(ctx)
	if err == nil {
		version := cfg.Version
		return &RubricView{Version: &version, Criteria: cfg.Criteria, ExtConfig: cfg.Ext}, nil
	}
	if !errors.Is(err, apperror.ErrNoActiveVersion) {
		return nil, err
	}

	criteria, listErr := s.repo.ListCriteria(ctx)
	if listErr != nil {
		return nil, apperror.Wrap(listErr, apperror.ErrCodeDatabaseError, "не удалось загрузить критерии")
	}
	if len(criteria) > 0 {
		return nil, err
	}
	return &RubricView{
		Criteria:     pricing.SeedRubric(),
		ExtConfig:    pricing.DefaultExtConfig(),
		SeedDefaults: true,
	}, nil
}

// GetVersion возвращает конфигурацию любой версии, в том числе неактивной.
func (s *RubricService) GetVersion(ctx context.Context, id uuid.UUID) (*RubricView, error) {
	cfg, err := s.repo.GetVersionConfig(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			return nil, apperror.ErrVersionNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить версию")
	}
	version := cfg.Version
	return &RubricView{Version: &version, Criteria: cfg.Criteria, ExtConfig: cfg.Ext}, nil
}

// ListVersions возвращает историю версий.
func (s *RubricService) ListVersions(ctx context.Context, limit, offset int) ([]models.PricingVersion, int, error) {
	versions, total, err := s.repo.ListVersions(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить версии")
	}
	return versions, total, nil
}

// Create проверяет и сохраняет новую версию, она сразу становится активной.
func (s *RubricService) Create(ctx context.Context, in repository.CreateVersionInput) (uuid.UUID, error) {
	if err := validateVersionInput(&in); err != nil {
		return uuid.Nil, err
	}

	id, err := s.repo.CreateVersion(ctx, in)
	if err != nil {
		return uuid.Nil, mapRubricWriteError(err)
	}
	s.cache.InvalidateRubric()

	logger.Log.WithFields(logrus.Fields{
		"version_id": id,
		"name":       in.Name,
		"criteria":   len(in.Criteria),
	}).Info("создана новая версия рубрики")
	return id, nil
}

// Activate делает версию активной (откат к предыдущей).
func (s *RubricService) Activate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.ActivateVersion(ctx, id); err != nil {
		return mapRubricWriteError(err)
	}
	s.cache.InvalidateRubric()

	logger.Log.WithField("version_id", id).Info("версия рубрики активирована")
	return nil
}

// Seed создаёт первую версию из стартовой рубрики.
func (s *RubricService) Seed(ctx context.Context, createdBy *uuid.UUID) (uuid.UUID, error) {
	seed := pricing.SeedCriteria()
	criteria := make([]repository.CriterionInput, 0, len(seed))
	for i, c := range seed {
		criteria = append(criteria, repository.CriterionInput{
			Key:           c.Key,
			TitleTR:       c.TitleTR,
			TitleEN:       c.TitleEN,
			DescriptionTR: c.DescriptionTR,
			DescriptionEN: c.DescriptionEN,
			OrderIndex:    i,
			Weight:        c.Weight,
			Enabled:       true,
		})
	}

	id, err := s.repo.SeedVersion(ctx, repository.CreateVersionInput{
		Name:             "seed",
		CreatedBy:        createdBy,
		BaseHourlyRate:   s.defaultHourlyRate,
		MinPrice:         seedMinPrice,
		UrgentMultiplier: seedUrgentMultiplier,
		RoundingStep:     seedRoundingStep,
		Criteria:         criteria,
		Ext:              pricing.DefaultExtConfig(),
	})
	if err != nil {
		return uuid.Nil, mapRubricWriteError(err)
	}
	s.cache.InvalidateRubric()

	logger.Log.WithField("version_id", id).Info("рубрика инициализирована стартовыми значениями")
	return id, nil
}

func validateVersionInput(in *repository.CreateVersionInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		in.Name = "v" + time.Now().UTC().Format("20060102-150405")
	}
	if in.BaseHourlyRate < 0 || in.MinPrice < 0 || in.RoundingStep < 0 {
		return apperror.New(apperror.ErrCodeValidation, "ставка, минимальная цена и шаг округления не могут быть отрицательными")
	}
	if in.UrgentMultiplier == 0 {
		in.UrgentMultiplier = 1
	}
	if in.UrgentMultiplier < 1 {
		return apperror.New(apperror.ErrCodeValidation, "множитель срочности должен быть не меньше 1")
	}
	if in.AutoPriceThreshold != nil && *in.AutoPriceThreshold < 0 {
		return apperror.New(apperror.ErrCodeValidation, "порог автоцены не может быть отрицательным")
	}
	for i, c := range in.Criteria {
		if c.Weight < 0 {
			return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("критерий %d: вес не может быть отрицательным", i))
		}
		if strings.TrimSpace(c.Key) == "" && strings.TrimSpace(c.TitleTR) == "" && strings.TrimSpace(c.TitleEN) == "" {
			return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("критерий %d: нужен ключ или заголовок", i))
		}
	}
	if err := in.Ext.Validate(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return nil
}

func mapRubricWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadySeeded):
		return apperror.ErrAlreadySeeded
	case errors.Is(err, repository.ErrVersionNotFound):
		return apperror.ErrVersionNotFound
	case errors.Is(err, common.ErrInvalidInput):
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	default:
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить рубрику")
	}
}
