package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/repository"
	"moral-torture-machine/pkg/story"

	"go.uber.org/zap"
)

// AdminService manages the dilemma and story catalogues.
type AdminService interface {
	// ImportDilemmas stores dilemmas under language-suffixed ids.
	ImportDilemmas(ctx context.Context, language string, dilemmas []models.Dilemma) (int, error)
	// ImportStoryFlows validates and stores flows under language-suffixed ids.
	ImportStoryFlows(ctx context.Context, language string, flows []models.StoryFlow) (int, error)
	// DeleteDilemmas removes dilemmas of language, or all when language is empty.
	DeleteDilemmas(ctx context.Context, language string) (int64, error)
	DeleteStoryFlows(ctx context.Context, language string) (int64, error)
}

type adminServiceImpl struct {
	dilemmas repository.DilemmaRepository
	flows    repository.StoryFlowRepository
	logger   *zap.Logger
}

var _ AdminService = (*adminServiceImpl)(nil)

// NewAdminService creates an AdminService.
func NewAdminService(dilemmas repository.DilemmaRepository, flows repository.StoryFlowRepository, logger *zap.Logger) AdminService {
	return &adminServiceImpl{dilemmas: dilemmas, flows: flows, logger: logger.Named("AdminService")}
}

// baseIDFor returns the id without language suffix. Records exported from
// the database already carry baseId; seed files only have _id.
func baseIDFor(id, baseID, language string) string {
	if baseID != "" {
		return baseID
	}
	return models.BaseIDOf(id, language)
}

// LocalizeDilemmas rewrites ids to <baseId>-<language> and sets the language.
func LocalizeDilemmas(language string, dilemmas []models.Dilemma) ([]models.Dilemma, error) {
	out := make([]models.Dilemma, 0, len(dilemmas))
	for i, d := range dilemmas {
		base := baseIDFor(d.ID, d.BaseID, language)
		if base == "" {
			return nil, fmt.Errorf("%w: dilemma #%d has no _id", models.ErrInvalidInput, i+1)
		}
		if strings.TrimSpace(d.Dilemma) == "" || d.FirstAnswer == "" || d.SecondAnswer == "" {
			return nil, fmt.Errorf("%w: dilemma %q is missing text or answers", models.ErrInvalidInput, base)
		}
		d.BaseID = base
		d.ID = models.LocalizedID(base, language)
		if err := ValidateDilemmaID(d.ID); err != nil {
			return nil, fmt.Errorf("dilemma %q: %w", base, err)
		}
		d.Language = language
		if d.Source == "" {
			d.Source = models.DilemmaSourceSeed
		}
		out = append(out, d)
	}
	return out, nil
}

// LocalizeStoryFlows rewrites flow ids like LocalizeDilemmas and validates every flow.
func LocalizeStoryFlows(language string, flows []models.StoryFlow) ([]models.StoryFlow, error) {
	out := make([]models.StoryFlow, 0, len(flows))
	var problems []error
	for i, f := range flows {
		base := baseIDFor(f.ID, f.BaseID, language)
		if base == "" {
			problems = append(problems, fmt.Errorf("story flow #%d has no _id", i+1))
			continue
		}
		f.BaseID = base
		f.ID = models.LocalizedID(base, language)
		f.Language = language
		if len(f.ID) > maxFlowIDLength {
			problems = append(problems, fmt.Errorf("story flow %q: id longer than %d characters", base, maxFlowIDLength))
			continue
		}
		if err := story.Validate(&f); err != nil {
			problems = append(problems, fmt.Errorf("story flow %q: %w", base, err))
			continue
		}
		out = append(out, f)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidStory, errors.Join(problems...))
	}
	return out, nil
}

func validateOptionalLanguage(language string) error {
	if language == "" {
		return nil
	}
	return ValidateLanguage(language)
}

func (s *adminServiceImpl) ImportDilemmas(ctx context.Context, language string, dilemmas []models.Dilemma) (int, error) {
	if err := ValidateLanguage(language); err != nil {
		return 0, err
	}
	localized, err := LocalizeDilemmas(language, dilemmas)
	if err != nil {
		return 0, err
	}
	n, err := s.dilemmas.Upsert(ctx, localized)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Dilemmas imported", zap.String("language", language), zap.Int("count", n))
	return n, nil
}

func (s *adminServiceImpl) ImportStoryFlows(ctx context.Context, language string, flows []models.StoryFlow) (int, error) {
	if err := ValidateLanguage(language); err != nil {
		return 0, err
	}
	localized, err := LocalizeStoryFlows(language, flows)
	if err != nil {
		s.logger.Warn("Story flow import rejected", zap.String("language", language), zap.Error(err))
		return 0, err
	}
	n, err := s.flows.Upsert(ctx, localized)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Story flows imported", zap.String("language", language), zap.Int("count", n))
	return n, nil
}

func (s *adminServiceImpl) DeleteDilemmas(ctx context.Context, language string) (int64, error) {
	if err := validateOptionalLanguage(language); err != nil {
		return 0, err
	}
	return s.dilemmas.DeleteByLanguage(ctx, language)
}

func (s *adminServiceImpl) DeleteStoryFlows(ctx context.Context, language string) (int64, error) {
	if err := validateOptionalLanguage(language); err != nil {
		return 0, err
	}
	return s.flows.DeleteByLanguage(ctx, language)
}
