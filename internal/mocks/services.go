package mocks

import (
	"context"

	"moral-torture-machine/internal/ai"
	"moral-torture-machine/internal/messaging"
	"moral-torture-machine/internal/models"

	"github.com/stretchr/testify/mock"
)

// Completer mocks ai.Completer.
type Completer struct {
	mock.Mock
}

var _ ai.Completer = (*Completer)(nil)

func (m *Completer) Complete(ctx context.Context, req ai.Request) (*ai.Completion, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*ai.Completion)
	return c, args.Error(1)
}

// AnalyticsPublisher mocks messaging.AnalyticsPublisher.
type AnalyticsPublisher struct {
	mock.Mock
}

var _ messaging.AnalyticsPublisher = (*AnalyticsPublisher)(nil)

func (m *AnalyticsPublisher) Publish(ctx context.Context, event *models.AnalyticsEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *AnalyticsPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// TallyBroadcaster records broadcast vote tallies.
type TallyBroadcaster struct {
	mock.Mock
}

func (m *TallyBroadcaster) BroadcastTally(tally models.VoteTally) {
	m.Called(tally)
}
