package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/repository"
	"moral-torture-machine/pkg/story"

	"go.uber.org/zap"
)

const (
	maxFlowIDLength = 100
	maxNodeIDLength = 20
)

// StoryService serves story flows and records node votes.
type StoryService interface {
	// GetFlow returns flow <flowID>-<language>, or a random flow of language when flowID is empty.
	GetFlow(ctx context.Context, language, flowID string) (*models.StoryFlow, error)
	// Vote resolves a choice on a node of the flow with the full id flowID.
	Vote(ctx context.Context, flowID, nodeID, vote string) (*models.StoryVoteResult, error)
	Stats(ctx context.Context, flowID, nodeID string) (*models.StoryNodeStats, error)
}

type storyServiceImpl struct {
	flows  repository.StoryFlowRepository
	votes  repository.StoryNodeVoteRepository
	logger *zap.Logger
}

var _ StoryService = (*storyServiceImpl)(nil)

// NewStoryService creates a StoryService.
func NewStoryService(flows repository.StoryFlowRepository, votes repository.StoryNodeVoteRepository, logger *zap.Logger) StoryService {
	return &storyServiceImpl{flows: flows, votes: votes, logger: logger.Named("StoryService")}
}

func (s *storyServiceImpl) GetFlow(ctx context.Context, language, flowID string) (*models.StoryFlow, error) {
	if err := ValidateLanguage(language); err != nil {
		return nil, err
	}
	logFields := []zap.Field{zap.String("language", language), zap.String("flow_id", flowID)}

	if flowID != "" {
		id := models.LocalizedID(flowID, language)
		flow, err := s.flows.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrStoryNotFound) {
				s.logger.Warn("Story flow not found", logFields...)
			}
			return nil, err
		}
		return flow, nil
	}

	ids, err := s.flows.ListIDs(ctx, language)
	if err != nil {
		return nil, fmt.Errorf("failed to list story flows: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Warn("No story flows found for language", logFields...)
		return nil, fmt.Errorf("%w: %s", models.ErrNoStoryFlows, language)
	}
	flow, err := s.flows.GetByID(ctx, ids[rand.IntN(len(ids))])
	if err != nil {
		if errors.Is(err, models.ErrStoryNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrNoStoryFlows, language)
		}
		return nil, err
	}
	return flow, nil
}

func validateStoryIDs(flowID, nodeID string) error {
	if flowID == "" || len(flowID) > maxFlowIDLength {
		return fmt.Errorf("%w: flowId must be 1-%d characters", models.ErrInvalidInput, maxFlowIDLength)
	}
	if nodeID == "" || len(nodeID) > maxNodeIDLength {
		return fmt.Errorf("%w: nodeId must be 1-%d characters", models.ErrInvalidInput, maxNodeIDLength)
	}
	return nil
}

func (s *storyServiceImpl) Vote(ctx context.Context, flowID, nodeID, vote string) (*models.StoryVoteResult, error) {
	if err := validateStoryIDs(flowID, nodeID); err != nil {
		return nil, err
	}
	first, err := story.ParseVote(vote)
	if err != nil {
		return nil, err
	}
	logFields := []zap.Field{zap.String("flow_id", flowID), zap.String("node_id", nodeID), zap.Bool("first", first)}

	flow, err := s.flows.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	res, err := story.ResolveVote(flow, nodeID, vote)
	if err != nil {
		s.logger.Warn("Story vote rejected", append(logFields, zap.Error(err))...)
		return nil, err
	}

	// The tally is informational; the traversal result is returned regardless.
	if _, err := s.votes.Increment(ctx, flowID, nodeID, first); err != nil {
		s.logger.Error("Failed to record story node vote", append(logFields, zap.Error(err))...)
	}
	voteLabel := models.StoryVoteSecond
	if first {
		voteLabel = models.StoryVoteFirst
	}
	storyNodeVotesTotal.WithLabelValues(voteLabel, strconv.FormatBool(res.IsComplete)).Inc()

	next := ""
	if res.NextNodeID != nil {
		next = *res.NextNodeID
	}
	s.logger.Info("Story vote processed", append(logFields, zap.String("next_node_id", next), zap.Bool("complete", res.IsComplete))...)
	return res, nil
}

func (s *storyServiceImpl) Stats(ctx context.Context, flowID, nodeID string) (*models.StoryNodeStats, error) {
	if err := validateStoryIDs(flowID, nodeID); err != nil {
		return nil, err
	}
	flow, err := s.flows.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if _, ok := flow.Node(nodeID); !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrNodeNotFound, nodeID)
	}
	return s.votes.Get(ctx, flowID, nodeID)
}
