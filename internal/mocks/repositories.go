package mocks

import (
	"context"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/repository"

	"github.com/stretchr/testify/mock"
)

// DilemmaRepository mocks repository.DilemmaRepository.
type DilemmaRepository struct {
	mock.Mock
}

var _ repository.DilemmaRepository = (*DilemmaRepository)(nil)

func (m *DilemmaRepository) ListIDs(ctx context.Context, language string) ([]string, error) {
	args := m.Called(ctx, language)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *DilemmaRepository) GetByID(ctx context.Context, id string) (*models.Dilemma, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*models.Dilemma)
	return d, args.Error(1)
}

func (m *DilemmaRepository) Sample(ctx context.Context, language string, n int) ([]models.Dilemma, error) {
	args := m.Called(ctx, language, n)
	out, _ := args.Get(0).([]models.Dilemma)
	return out, args.Error(1)
}

func (m *DilemmaRepository) IncrementVote(ctx context.Context, id string, yes bool) (*models.VoteTally, error) {
	args := m.Called(ctx, id, yes)
	t, _ := args.Get(0).(*models.VoteTally)
	return t, args.Error(1)
}

func (m *DilemmaRepository) Upsert(ctx context.Context, dilemmas []models.Dilemma) (int, error) {
	args := m.Called(ctx, dilemmas)
	return args.Int(0), args.Error(1)
}

func (m *DilemmaRepository) DeleteByLanguage(ctx context.Context, language string) (int64, error) {
	args := m.Called(ctx, language)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *DilemmaRepository) List(ctx context.Context, language string) ([]models.Dilemma, error) {
	args := m.Called(ctx, language)
	out, _ := args.Get(0).([]models.Dilemma)
	return out, args.Error(1)
}

// StoryFlowRepository mocks repository.StoryFlowRepository.
type StoryFlowRepository struct {
	mock.Mock
}

var _ repository.StoryFlowRepository = (*StoryFlowRepository)(nil)

func (m *StoryFlowRepository) ListIDs(ctx context.Context, language string) ([]string, error) {
	args := m.Called(ctx, language)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *StoryFlowRepository) GetByID(ctx context.Context, id string) (*models.StoryFlow, error) {
	args := m.Called(ctx, id)
	f, _ := args.Get(0).(*models.StoryFlow)
	return f, args.Error(1)
}

func (m *StoryFlowRepository) Upsert(ctx context.Context, flows []models.StoryFlow) (int, error) {
	args := m.Called(ctx, flows)
	return args.Int(0), args.Error(1)
}

func (m *StoryFlowRepository) DeleteByLanguage(ctx context.Context, language string) (int64, error) {
	args := m.Called(ctx, language)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *StoryFlowRepository) List(ctx context.Context, language string) ([]models.StoryFlow, error) {
	args := m.Called(ctx, language)
	out, _ := args.Get(0).([]models.StoryFlow)
	return out, args.Error(1)
}

// StoryNodeVoteRepository mocks repository.StoryNodeVoteRepository.
type StoryNodeVoteRepository struct {
	mock.Mock
}

var _ repository.StoryNodeVoteRepository = (*StoryNodeVoteRepository)(nil)

func (m *StoryNodeVoteRepository) Increment(ctx context.Context, flowID, nodeID string, first bool) (*models.StoryNodeStats, error) {
	args := m.Called(ctx, flowID, nodeID, first)
	s, _ := args.Get(0).(*models.StoryNodeStats)
	return s, args.Error(1)
}

func (m *StoryNodeVoteRepository) Get(ctx context.Context, flowID, nodeID string) (*models.StoryNodeStats, error) {
	args := m.Called(ctx, flowID, nodeID)
	s, _ := args.Get(0).(*models.StoryNodeStats)
	return s, args.Error(1)
}

// AnalyticsRepository mocks repository.AnalyticsRepository.
type AnalyticsRepository struct {
	mock.Mock
}

var _ repository.AnalyticsRepository = (*AnalyticsRepository)(nil)

func (m *AnalyticsRepository) Insert(ctx context.Context, event *models.AnalyticsEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *AnalyticsRepository) DeleteExpired(ctx context.Context, nowMs int64) (int64, error) {
	args := m.Called(ctx, nowMs)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *AnalyticsRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}
