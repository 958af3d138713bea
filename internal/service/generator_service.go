package service

import (
	"context"
	"strings"
	"time"

	"moral-torture-machine/internal/ai"
	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/repository"
	"moral-torture-machine/pkg/client"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PromptSampleSize is how many dilemmas are sampled as prompt context.
const PromptSampleSize = 5

// DefaultDuplicateThreshold is the similarity above which a generated dilemma is dropped.
const DefaultDuplicateThreshold = 0.8

// GeneratorConfig tunes dilemma generation.
type GeneratorConfig struct {
	Temperature float32
	// Persist stores parsed, non-duplicate generated dilemmas.
	Persist            bool
	DuplicateThreshold float64
}

// GeneratedResult is a completion plus the stored dilemma id, if any.
type GeneratedResult struct {
	Completion *ai.Completion
	StoredID   string
}

// GeneratorService creates new dilemmas with the language model.
type GeneratorService interface {
	Generate(ctx context.Context, language string) (*GeneratedResult, error)
}

type generatorServiceImpl struct {
	repo   repository.DilemmaRepository
	ai     ai.Completer
	cfg    GeneratorConfig
	logger *zap.Logger
}

var _ GeneratorService = (*generatorServiceImpl)(nil)

// NewGeneratorService creates a GeneratorService.
func NewGeneratorService(repo repository.DilemmaRepository, completer ai.Completer, cfg GeneratorConfig, logger *zap.Logger) GeneratorService {
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = DefaultDuplicateThreshold
	}
	return &generatorServiceImpl{
		repo:   repo,
		ai:     completer,
		cfg:    cfg,
		logger: logger.Named("GeneratorService"),
	}
}

func (s *generatorServiceImpl) Generate(ctx context.Context, language string) (*GeneratedResult, error) {
	if err := ValidateLanguage(language); err != nil {
		return nil, err
	}
	logFields := []zap.Field{zap.String("language", language)}

	samples, err := s.repo.Sample(ctx, language, PromptSampleSize)
	if err != nil {
		// Generation still works without style examples.
		s.logger.Warn("Could not fetch sample dilemmas", append(logFields, zap.Error(err))...)
		samples = nil
	}
	s.logger.Info("Generating dilemma", append(logFields, zap.Int("samples", len(samples)))...)

	completion, err := s.ai.Complete(ctx, ai.Request{
		Messages:    []ai.Message{{Role: "user", Content: ai.GeneratePrompt(language, samples)}},
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	res := &GeneratedResult{Completion: completion}
	if s.cfg.Persist {
		res.StoredID = s.persist(ctx, language, completion.Content, samples)
	}
	return res, nil
}

// persist stores a generated dilemma unless it is unparsable or too close to a
// sample. Failures are logged; the caller still gets the completion.
func (s *generatorServiceImpl) persist(ctx context.Context, language, content string, samples []models.Dilemma) string {
	gen, err := client.ParseGeneratedDilemma(content)
	if err != nil {
		dilemmasGeneratedTotal.WithLabelValues(language, "unparsable").Inc()
		s.logger.Warn("Generated dilemma is not valid JSON, not storing", zap.String("language", language), zap.Error(err))
		return ""
	}
	for _, sample := range samples {
		if sim := Similarity(gen.Dilemma, sample.Dilemma); sim >= s.cfg.DuplicateThreshold {
			dilemmasGeneratedTotal.WithLabelValues(language, "duplicate").Inc()
			s.logger.Info("Generated dilemma too similar to an existing one, not storing",
				zap.String("language", language), zap.String("similar_to", sample.ID), zap.Float64("similarity", sim))
			return ""
		}
	}

	baseID := "ai-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	d := models.Dilemma{
		ID:           models.LocalizedID(baseID, language),
		BaseID:       baseID,
		Language:     language,
		Dilemma:      gen.Dilemma,
		FirstAnswer:  gen.FirstAnswer,
		SecondAnswer: gen.SecondAnswer,
		TeaseOption1: gen.TeaseOption1,
		TeaseOption2: gen.TeaseOption2,
		Source:       models.DilemmaSourceAI,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.repo.Upsert(ctx, []models.Dilemma{d}); err != nil {
		dilemmasGeneratedTotal.WithLabelValues(language, "store_failed").Inc()
		s.logger.Error("Failed to store generated dilemma", zap.String("dilemma_id", d.ID), zap.Error(err))
		return ""
	}
	dilemmasGeneratedTotal.WithLabelValues(language, "stored").Inc()
	s.logger.Info("Generated dilemma stored for curation", zap.String("dilemma_id", d.ID))
	return d.ID
}

// Similarity is 1 minus the normalized Levenshtein distance of the
// case-folded texts. Identical texts score 1.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// ModelOf returns the model that produced a completion, for analytics.
func ModelOf(c *ai.Completion) string {
	if c == nil || c.Model == "" {
		return "unknown"
	}
	return c.Model
}
