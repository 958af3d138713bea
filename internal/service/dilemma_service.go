package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/repository"

	"go.uber.org/zap"
)

// MaxExcludedIDs caps the exclude list of /get-dilemma.
const MaxExcludedIDs = 1000

const maxDilemmaIDLength = 100

var dilemmaIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// TallyBroadcaster receives every new vote tally.
type TallyBroadcaster interface {
	BroadcastTally(tally models.VoteTally)
}

// DilemmaService serves random dilemmas and records votes.
type DilemmaService interface {
	// RandomDilemma picks a dilemma of language not in exclude. When every
	// dilemma is excluded the whole pool is used again.
	RandomDilemma(ctx context.Context, language string, exclude []string) (*models.Dilemma, error)
	Vote(ctx context.Context, dilemmaID, vote string) (*models.VoteTally, error)
}

type dilemmaServiceImpl struct {
	repo        repository.DilemmaRepository
	broadcaster TallyBroadcaster
	logger      *zap.Logger
}

var _ DilemmaService = (*dilemmaServiceImpl)(nil)

// NewDilemmaService creates a DilemmaService. broadcaster may be nil.
func NewDilemmaService(repo repository.DilemmaRepository, broadcaster TallyBroadcaster, logger *zap.Logger) DilemmaService {
	return &dilemmaServiceImpl{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger.Named("DilemmaService"),
	}
}

// ParseExcludeList splits a comma separated id list, dropping blanks and duplicates.
func ParseExcludeList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *dilemmaServiceImpl) RandomDilemma(ctx context.Context, language string, exclude []string) (*models.Dilemma, error) {
	if err := ValidateLanguage(language); err != nil {
		return nil, err
	}
	if len(exclude) > MaxExcludedIDs {
		return nil, fmt.Errorf("%w: %d ids, limit %d", models.ErrTooManyExcluded, len(exclude), MaxExcludedIDs)
	}
	logFields := []zap.Field{zap.String("language", language), zap.Int("excluded", len(exclude))}

	ids, err := s.repo.ListIDs(ctx, language)
	if err != nil {
		s.logger.Error("Failed to list dilemma ids", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to list dilemmas: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Warn("No dilemmas found for language", logFields...)
		return nil, fmt.Errorf("%w: %s", models.ErrNoDilemmas, language)
	}

	available := ids
	if len(exclude) > 0 {
		excluded := make(map[string]struct{}, len(exclude))
		for _, id := range exclude {
			excluded[id] = struct{}{}
		}
		available = make([]string, 0, len(ids))
		for _, id := range ids {
			if _, skip := excluded[id]; !skip {
				available = append(available, id)
			}
		}
	}
	poolReset := len(available) == 0
	if poolReset {
		s.logger.Info("All dilemmas seen, resetting pool", logFields...)
		available = ids
	}

	id := available[rand.IntN(len(available))]
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDilemmaNotFound) {
			// The cached id pool can briefly lag behind deletions.
			s.logger.Warn("Dilemma from id pool not found", append(logFields, zap.String("dilemma_id", id))...)
			return nil, fmt.Errorf("%w: %s", models.ErrNoDilemmas, language)
		}
		return nil, fmt.Errorf("failed to load dilemma %s: %w", id, err)
	}

	dilemmasServedTotal.WithLabelValues(language, strconv.FormatBool(poolReset)).Inc()
	s.logger.Debug("Dilemma selected", append(logFields, zap.String("dilemma_id", d.ID), zap.Int("pool", len(available)))...)
	return d, nil
}

// ValidateDilemmaID checks the id format accepted by /vote.
func ValidateDilemmaID(id string) error {
	if id == "" || len(id) > maxDilemmaIDLength || !dilemmaIDPattern.MatchString(id) {
		return fmt.Errorf("%w: dilemma id must be 1-%d characters of [a-zA-Z0-9_-]", models.ErrInvalidInput, maxDilemmaIDLength)
	}
	return nil
}

// ParseVote converts "yes"/"no" (any case) into a side.
func ParseVote(vote string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(vote)) {
	case models.VoteYes:
		return true, nil
	case models.VoteNo:
		return false, nil
	}
	return false, fmt.Errorf("%w: must be 'yes' or 'no'", models.ErrInvalidVote)
}

func (s *dilemmaServiceImpl) Vote(ctx context.Context, dilemmaID, vote string) (*models.VoteTally, error) {
	if err := ValidateDilemmaID(dilemmaID); err != nil {
		return nil, err
	}
	yes, err := ParseVote(vote)
	if err != nil {
		return nil, err
	}

	tally, err := s.repo.IncrementVote(ctx, dilemmaID, yes)
	if err != nil {
		if !errors.Is(err, models.ErrDilemmaNotFound) {
			s.logger.Error("Failed to record vote", zap.String("dilemma_id", dilemmaID), zap.Error(err))
		}
		return nil, err
	}

	voteLabel := models.VoteNo
	if yes {
		voteLabel = models.VoteYes
	}
	votesTotal.WithLabelValues(voteLabel).Inc()
	s.logger.Info("Vote recorded", zap.String("dilemma_id", dilemmaID), zap.String("vote", voteLabel))

	if s.broadcaster != nil {
		s.broadcaster.BroadcastTally(*tally)
	}
	return tally, nil
}
