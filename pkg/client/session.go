package client

import (
	"context"
	"errors"
	"fmt"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/pkg/profile"

	"go.uber.org/zap"
)

// RoundLength is the number of dilemmas in an evaluation round.
const RoundLength = 5

// MalfunctionID marks the placeholder dilemma shown when fetching fails.
const MalfunctionID = "malfunction"

// ErrNoCurrentDilemma is returned by Choose before Next.
var ErrNoCurrentDilemma = errors.New("no current dilemma")

// MalfunctionDilemma is shown when the server could not be reached.
func MalfunctionDilemma() *models.Dilemma {
	return &models.Dilemma{
		ID:           MalfunctionID,
		Dilemma:      "⚠ The machine has malfunctioned. Your soul remains unjudged... for now.",
		FirstAnswer:  "OK",
		SecondAnswer: "OK",
	}
}

// ChoiceResult is what the player sees after answering.
type ChoiceResult struct {
	Tease         string
	YesCount      int64
	NoCount       int64
	YesShare      float64
	NoShare       float64
	VoteRecorded  bool
	RoundComplete bool
}

// Session runs one evaluation round: fetch, answer, vote, repeat.
type Session struct {
	client   *Client
	seen     *SeenStore
	language string
	logger   *zap.Logger

	current     *models.Dilemma
	answered    bool
	malfunction bool
	answers     []models.TraitVector
	choices     []models.DilemmaWithChoice
}

// NewSession starts a round. seen may be nil.
func NewSession(c *Client, seen *SeenStore, language string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if seen == nil {
		seen, _ = OpenSeenStore("")
	}
	if language == "" {
		language = c.Language()
	}
	return &Session{client: c, seen: seen, language: language, logger: logger.Named("Session")}
}

// Language returns the round language.
func (s *Session) Language() string { return s.language }

// Current returns the dilemma on screen.
func (s *Session) Current() *models.Dilemma { return s.current }

// Malfunctioned reports whether the current dilemma is the placeholder.
func (s *Session) Malfunctioned() bool { return s.malfunction }

// Played returns how many dilemmas were answered.
func (s *Session) Played() int { return len(s.answers) }

// Complete reports whether the round is over.
func (s *Session) Complete() bool { return len(s.answers) >= RoundLength }

// Next fetches an unseen dilemma. When every retry fails the malfunction
// placeholder is returned instead of an error.
func (s *Session) Next(ctx context.Context) (*models.Dilemma, error) {
	d, err := s.client.GetDilemma(ctx, s.language, s.seen.Seen(s.language))
	switch {
	case err == nil:
		s.current, s.malfunction = d, false
		if markErr := s.seen.Mark(s.language, d.ID); markErr != nil {
			s.logger.Warn("Failed to persist seen dilemma", zap.String("dilemma_id", d.ID), zap.Error(markErr))
		}
	case errors.Is(err, ErrMaxRetries):
		s.logger.Error("Dilemma fetch exhausted retries", zap.Error(err))
		s.current, s.malfunction = MalfunctionDilemma(), true
	default:
		return nil, err
	}
	s.answered = false
	return s.current, nil
}

// Choose answers the current dilemma. first means "yes". A failed vote is
// logged and does not fail the choice.
func (s *Session) Choose(ctx context.Context, first bool) (*ChoiceResult, error) {
	if s.current == nil {
		return nil, ErrNoCurrentDilemma
	}
	if s.answered {
		return nil, fmt.Errorf("dilemma %s already answered", s.current.ID)
	}
	s.answered = true
	d := s.current

	if s.malfunction {
		return &ChoiceResult{RoundComplete: s.Complete()}, nil
	}

	chosen := d.Choice(first)
	s.answers = append(s.answers, chosen)
	s.choices = append(s.choices, models.DilemmaWithChoice{
		Dilemma:      d.Dilemma,
		FirstAnswer:  d.FirstAnswer,
		SecondAnswer: d.SecondAnswer,
		ChosenAnswer: d.Answer(first),
		ChosenValues: chosen.Map(),
	})

	res := &ChoiceResult{Tease: d.Tease(first)}
	if _, err := s.client.Vote(ctx, d.ID, first); err != nil {
		s.logger.Warn("Vote failed", zap.String("dilemma_id", d.ID), zap.Error(err))
	} else {
		if first {
			d.YesCount++
		} else {
			d.NoCount++
		}
		res.VoteRecorded = true
	}
	res.YesCount, res.NoCount = d.YesCount, d.NoCount
	res.YesShare, res.NoShare = d.VoteShare()
	res.RoundComplete = s.Complete()
	return res, nil
}

// Answers returns the chosen trait vectors so far.
func (s *Session) Answers() []models.TraitVector {
	out := make([]models.TraitVector, len(s.answers))
	copy(out, s.answers)
	return out
}

// Profile averages the answers of the round.
func (s *Session) Profile() (profile.Profile, error) {
	return profile.Average(s.answers)
}

// Analyze sends the round to /analyze-results.
func (s *Session) Analyze(ctx context.Context) (*AnalysisResponse, error) {
	if len(s.answers) == 0 {
		return nil, models.ErrNoAnswers
	}
	maps := make([]map[string]float64, 0, len(s.answers))
	for _, a := range s.answers {
		maps = append(maps, a.Map())
	}
	return s.client.AnalyzeResults(ctx, s.language, maps, s.choices)
}

// Reset clears answers and starts a new server session id.
func (s *Session) Reset() {
	s.current, s.answered, s.malfunction = nil, false, false
	s.answers, s.choices = nil, nil
	s.client.ResetSession()
}
