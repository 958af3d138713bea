package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"moral-torture-machine/internal/ai"
	"moral-torture-machine/internal/mocks"
	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const generatedJSON = `{"dilemma": "A stranger drops a wallet full of cash on a crowded train.", "firstAnswer": "Return it", "secondAnswer": "Keep it", "teaseOption1": "Saint.", "teaseOption2": "Rent is due."}`

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	samples := []models.Dilemma{{ID: "s1-en", Dilemma: "Would you steal bread to feed your family?"}}

	t.Run("Builds the prompt from samples and returns the completion", func(t *testing.T) {
		repo := new(mocks.DilemmaRepository)
		completer := new(mocks.Completer)
		repo.On("Sample", ctx, "en", service.PromptSampleSize).Return(samples, nil)
		completer.On("Complete", ctx, mock.MatchedBy(func(req ai.Request) bool {
			return len(req.Messages) == 1 &&
				req.Messages[0].Role == "user" &&
				strings.Contains(req.Messages[0].Content, "Would you steal bread")
		})).Return(&ai.Completion{Model: "llama-3.1-8b-instant", Content: generatedJSON}, nil)

		svc := service.NewGeneratorService(repo, completer, service.GeneratorConfig{}, zap.NewNop())
		res, err := svc.Generate(ctx, "en")
		require.NoError(t, err)
		assert.Equal(t, "llama-3.1-8b-instant", service.ModelOf(res.Completion))
		assert.Empty(t, res.StoredID)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("Sample failure does not block generation", func(t *testing.T) {
		repo := new(mocks.DilemmaRepository)
		completer := new(mocks.Completer)
		repo.On("Sample", ctx, "it", service.PromptSampleSize).Return(nil, errors.New("db down"))
		completer.On("Complete", ctx, mock.Anything).Return(&ai.Completion{Model: "m", Content: generatedJSON}, nil)

		svc := service.NewGeneratorService(repo, completer, service.GeneratorConfig{}, zap.NewNop())
		_, err := svc.Generate(ctx, "it")
		require.NoError(t, err)
	})

	t.Run("AI failure is returned", func(t *testing.T) {
		repo := new(mocks.DilemmaRepository)
		completer := new(mocks.Completer)
		repo.On("Sample", ctx, "en", service.PromptSampleSize).Return(samples, nil)
		completer.On("Complete", ctx, mock.Anything).Return(nil, &ai.ExhaustedError{Reasons: []string{"m: HTTP 500"}})

		svc := service.NewGeneratorService(repo, completer, service.GeneratorConfig{}, zap.NewNop())
		_, err := svc.Generate(ctx, "en")
		assert.ErrorIs(t, err, models.ErrAIUnavailable)
	})

	t.Run("Persists a new dilemma", func(t *testing.T) {
		repo := new(mocks.DilemmaRepository)
		completer := new(mocks.Completer)
		repo.On("Sample", ctx, "en", service.PromptSampleSize).Return(samples, nil)
		completer.On("Complete", ctx, mock.Anything).Return(&ai.Completion{Model: "m", Content: "```json\n" + generatedJSON + "\n```"}, nil)
		repo.On("Upsert", ctx, mock.MatchedBy(func(ds []models.Dilemma) bool {
			d := ds[0]
			return len(ds) == 1 &&
				strings.HasPrefix(d.ID, "ai-") && strings.HasSuffix(d.ID, "-en") &&
				d.Language == "en" && d.Source == models.DilemmaSourceAI &&
				d.FirstAnswer == "Return it" && d.YesCount == 0
		})).Return(1, nil).Once()

		svc := service.NewGeneratorService(repo, completer, service.GeneratorConfig{Persist: true}, zap.NewNop())
		res, err := svc.Generate(ctx, "en")
		require.NoError(t, err)
		assert.NotEmpty(t, res.StoredID)
		repo.AssertExpectations(t)
	})

	t.Run("Drops near duplicates", func(t *testing.T) {
		repo := new(mocks.DilemmaRepository)
		completer := new(mocks.Completer)
		dup := `{"dilemma": "Would you steal bread to feed your family??", "firstAnswer": "Yes", "secondAnswer": "No"}`
		repo.On("Sample", ctx, "en", service.PromptSampleSize).Return(samples, nil)
		completer.On("Complete", ctx, mock.Anything).Return(&ai.Completion{Model: "m", Content: dup}, nil)

		svc := service.NewGeneratorService(repo, completer, service.GeneratorConfig{Persist: true}, zap.NewNop())
		res, err := svc.Generate(ctx, "en")
		require.NoError(t, err)
		assert.Empty(t, res.StoredID)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("Unparsable output is returned but not stored", func(t *testing.T) {
		repo := new(mocks.DilemmaRepository)
		completer := new(mocks.Completer)
		repo.On("Sample", ctx, "en", service.PromptSampleSize).Return(samples, nil)
		completer.On("Complete", ctx, mock.Anything).Return(&ai.Completion{Model: "m", Content: "I cannot do that"}, nil)

		svc := service.NewGeneratorService(repo, completer, service.GeneratorConfig{Persist: true}, zap.NewNop())
		res, err := svc.Generate(ctx, "en")
		require.NoError(t, err)
		assert.Equal(t, "I cannot do that", res.Completion.Content)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, service.Similarity("Same text", "same text"))
	assert.Equal(t, 1.0, service.Similarity("", ""))
	assert.InDelta(t, 0.0, service.Similarity("abc", "xyz"), 1e-9)
	assert.Greater(t, service.Similarity("Would you lie?", "Would you lie??"), 0.9)
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("Averages and analysis", func(t *testing.T) {
		completer := new(mocks.Completer)
		completer.On("Complete", ctx, mock.MatchedBy(func(req ai.Request) bool {
			return strings.Contains(req.Messages[0].Content, "Empathy: 2.33") &&
				strings.Contains(req.Messages[0].Content, "They chose: 'No'")
		})).Return(&ai.Completion{Model: "m", Content: "  You hesitate.  "}, nil)

		svc := service.NewAnalysisService(completer, 0.8, zap.NewNop())
		res, err := svc.Analyze(ctx, "en",
			[]map[string]float64{{"Empathy": 2}, {"Empathy": 2}, {"Empathy": 3}},
			[]models.DilemmaWithChoice{{Dilemma: "d", FirstAnswer: "Yes", SecondAnswer: "No", ChosenAnswer: "No"}},
		)
		require.NoError(t, err)
		assert.Equal(t, "You hesitate.", res.Analysis)
		assert.Equal(t, 2.33, res.Averages["Empathy"])
		completer.AssertExpectations(t)
	})

	t.Run("Answer count limits", func(t *testing.T) {
		completer := new(mocks.Completer)
		svc := service.NewAnalysisService(completer, 0.8, zap.NewNop())

		_, err := svc.Analyze(ctx, "en", nil, nil)
		assert.ErrorIs(t, err, models.ErrNoAnswers)

		tooMany := make([]map[string]float64, service.MaxAnswers+1)
		_, err = svc.Analyze(ctx, "en", tooMany, nil)
		assert.ErrorIs(t, err, models.ErrTooManyAnswers)

		exactly := make([]map[string]float64, service.MaxAnswers)
		for i := range exactly {
			exactly[i] = map[string]float64{"Honesty": 1}
		}
		completer.On("Complete", ctx, mock.Anything).Return(&ai.Completion{Content: "ok"}, nil).Once()
		_, err = svc.Analyze(ctx, "en", exactly, nil)
		assert.NoError(t, err)
	})

	t.Run("Overflowing averages never reach the model", func(t *testing.T) {
		completer := new(mocks.Completer)
		svc := service.NewAnalysisService(completer, 0.8, zap.NewNop())

		_, err := svc.Analyze(ctx, "en", []map[string]float64{{"Empathy": 1.7e308}, {"Empathy": 1.7e308}}, nil)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})
}
