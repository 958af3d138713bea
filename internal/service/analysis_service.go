package service

import (
	"context"
	"fmt"
	"strings"

	"moral-torture-machine/internal/ai"
	"moral-torture-machine/internal/models"
	"moral-torture-machine/pkg/profile"

	"go.uber.org/zap"
)

// MaxAnswers caps the answers accepted by /analyze-results.
const MaxAnswers = 100

// AnalysisResult is the body of /analyze-results.
type AnalysisResult struct {
	Analysis string          `json:"analysis"`
	Averages profile.Profile `json:"averages"`
	Model    string          `json:"-"`
}

// AnalysisService turns a session's answers into a written moral profile.
type AnalysisService interface {
	Analyze(ctx context.Context, language string, answers []map[string]float64, choices []models.DilemmaWithChoice) (*AnalysisResult, error)
}

type analysisServiceImpl struct {
	ai          ai.Completer
	temperature float32
	logger      *zap.Logger
}

var _ AnalysisService = (*analysisServiceImpl)(nil)

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(completer ai.Completer, temperature float32, logger *zap.Logger) AnalysisService {
	return &analysisServiceImpl{ai: completer, temperature: temperature, logger: logger.Named("AnalysisService")}
}

func (s *analysisServiceImpl) Analyze(ctx context.Context, language string, answers []map[string]float64, choices []models.DilemmaWithChoice) (*AnalysisResult, error) {
	if err := ValidateLanguage(language); err != nil {
		return nil, err
	}
	if err := requireAnswerCount(len(answers)); err != nil {
		return nil, err
	}

	avg, err := profile.AverageMap(answers)
	if err != nil {
		return nil, err
	}
	averages := avg.Rounded()

	completion, err := s.ai.Complete(ctx, ai.Request{
		Messages:    []ai.Message{{Role: "user", Content: ai.AnalyzePrompt(language, averages, choices)}},
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Results analyzed",
		zap.String("language", language),
		zap.Int("answers", len(answers)),
		zap.Int("choices", len(choices)),
		zap.String("model", completion.Model),
	)
	return &AnalysisResult{
		Analysis: strings.TrimSpace(completion.Content),
		Averages: averages,
		Model:    completion.Model,
	}, nil
}

func requireAnswerCount(n int) error {
	if n == 0 {
		return models.ErrNoAnswers
	}
	if n > MaxAnswers {
		return fmt.Errorf("%w: %d answers, limit %d", models.ErrTooManyAnswers, n, MaxAnswers)
	}
	return nil
}
