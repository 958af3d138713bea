package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/pkg/client"
	"moral-torture-machine/pkg/profile"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRound struct {
	played     int
	current    *models.Dilemma
	answers    []models.TraitVector
	analyzeErr error
}

func (r *fakeRound) Next(context.Context) (*models.Dilemma, error) {
	r.current = &models.Dilemma{
		ID:                 "d",
		Dilemma:            "Steal bread to feed your family?",
		FirstAnswer:        "Steal",
		SecondAnswer:       "Starve",
		TeaseOption1:       "Robin Hood would be proud.",
		TeaseOption2:       "Principles taste bland.",
		FirstAnswerEmpathy: 8,
		YesCount:           3,
		NoCount:            1,
	}
	return r.current, nil
}

func (r *fakeRound) Choose(_ context.Context, first bool) (*client.ChoiceResult, error) {
	r.played++
	r.answers = append(r.answers, r.current.Choice(first))
	yes, no := r.current.VoteShare()
	return &client.ChoiceResult{
		Tease:         r.current.Tease(first),
		YesCount:      r.current.YesCount,
		NoCount:       r.current.NoCount,
		YesShare:      yes,
		NoShare:       no,
		VoteRecorded:  true,
		RoundComplete: r.Complete(),
	}, nil
}

func (r *fakeRound) Complete() bool { return r.played >= client.RoundLength }
func (r *fakeRound) Played() int    { return r.played }

func (r *fakeRound) Profile() (profile.Profile, error) { return profile.Average(r.answers) }

func (r *fakeRound) Analyze(context.Context) (*client.AnalysisResponse, error) {
	if r.analyzeErr != nil {
		return nil, r.analyzeErr
	}
	return &client.AnalysisResponse{Analysis: "You bleed for strangers."}, nil
}

// run executes cmd synchronously and feeds its message back into the model.
func run(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next
}

func press(t *testing.T, m tea.Model, key string) (tea.Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	return m.Update(msg)
}

func TestPlayModel_FullRound(t *testing.T) {
	round := &fakeRound{}
	var m tea.Model = NewPlayModel(context.Background(), round)
	m = run(t, m, m.Init())

	for i := 0; i < client.RoundLength; i++ {
		view := m.View()
		require.Contains(t, view, "Steal bread")
		require.Contains(t, view, "Dilemma ")

		var cmd tea.Cmd
		m, cmd = press(t, m, "1")
		m = run(t, m, cmd)
		view = m.View()
		assert.Contains(t, view, "Robin Hood would be proud.")
		assert.Contains(t, view, "75%")

		m, cmd = press(t, m, "enter")
		m = run(t, m, cmd)
	}

	view := m.View()
	assert.Contains(t, view, "Your moral profile")
	assert.Contains(t, view, "Empathy")
	assert.Contains(t, view, "You bleed for strangers.")
	assert.Equal(t, client.RoundLength, round.played)

	_, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestPlayModel_AnalysisFailureKeepsProfile(t *testing.T) {
	round := &fakeRound{played: client.RoundLength - 1, answers: []models.TraitVector{{Empathy: 2}}}
	var m tea.Model = NewPlayModel(context.Background(), round)
	round.analyzeErr = errors.New("all models rate limited")
	m = run(t, m, m.Init())

	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)
	assert.Contains(t, m.View(), "Principles taste bland.")
	assert.Contains(t, m.View(), "face your judgement")

	m, cmd = press(t, m, "enter")
	m = run(t, m, cmd)
	view := m.View()
	assert.Contains(t, view, "Empathy")
	assert.Contains(t, view, "Analysis unavailable")
}

func TestPlayModel_IgnoresKeysWhileLoading(t *testing.T) {
	var m tea.Model = NewPlayModel(context.Background(), &fakeRound{})
	m, cmd := press(t, m, "1")
	assert.Nil(t, cmd)
	assert.Equal(t, playLoading, m.(PlayModel).state)
}

type fakeStoryAPI struct {
	flow    *models.StoryFlow
	votes   []string
	voteErr error
}

func (f *fakeStoryAPI) GetStoryFlow(context.Context, string, string) (*models.StoryFlow, error) {
	if f.flow == nil {
		return nil, models.ErrNoStoryFlows
	}
	return f.flow, nil
}

func (f *fakeStoryAPI) StoryNodeVote(_ context.Context, flowID, nodeID string, first bool) (*models.StoryVoteResult, error) {
	vote := models.StoryVoteSecond
	if first {
		vote = models.StoryVoteFirst
	}
	f.votes = append(f.votes, flowID+"/"+nodeID+"/"+vote)
	return &models.StoryVoteResult{}, f.voteErr
}

func (f *fakeStoryAPI) AnalyzeResults(_ context.Context, _ string, answers []map[string]float64, choices []models.DilemmaWithChoice) (*client.AnalysisResponse, error) {
	return &client.AnalysisResponse{Analysis: strings.Repeat("judged ", len(choices))}, nil
}

func storyFlow() *models.StoryFlow {
	return &models.StoryFlow{
		ID:    "trolley-en",
		Title: "The Trolley",
		Nodes: map[string]models.StoryNode{
			"1": {Dilemma: "Pull the lever?", FirstAnswer: "Pull", SecondAnswer: "Wait", NextNodeOnFirst: "2", NextNodeOnSecond: "3", TeaseOption1: "Decisive.", FirstAnswerJustice: 6},
			"2": {Dilemma: "Confess to the police?", FirstAnswer: "Confess", SecondAnswer: "Hide", IsLeaf: true, TeaseOption2: "Coward.", SecondAnswerHonesty: 1},
			"3": {Dilemma: "Look away?", FirstAnswer: "Yes", SecondAnswer: "No", IsLeaf: true},
		},
	}
}

func TestStoryModel_Walk(t *testing.T) {
	api := &fakeStoryAPI{flow: storyFlow()}
	var m tea.Model = NewStoryModel(context.Background(), api, "en", "")
	m = run(t, m, m.Init())
	assert.Contains(t, m.View(), "THE TROLLEY")
	assert.Contains(t, m.View(), "Pull the lever?")

	m, cmd := press(t, m, "1")
	assert.Contains(t, m.View(), "Decisive.")
	m = run(t, m, cmd)

	m, cmd = press(t, m, "enter")
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Confess to the police?")
	assert.Contains(t, m.View(), "Chapter 2")

	m, cmd = press(t, m, "2")
	assert.Contains(t, m.View(), "Coward.")
	assert.Contains(t, m.View(), "see where your choices led")
	m = run(t, m, cmd)

	m, cmd = press(t, m, "enter")
	m = run(t, m, cmd)
	view := m.View()
	assert.Contains(t, view, "The story ends after 2 choices")
	assert.Contains(t, view, "judged judged")
	assert.Contains(t, view, "Justice")

	assert.Equal(t, []string{"trolley-en/1/first", "trolley-en/2/second"}, api.votes)
}

func TestStoryModel_VoteFailureDoesNotBlock(t *testing.T) {
	api := &fakeStoryAPI{flow: storyFlow(), voteErr: errors.New("offline")}
	var m tea.Model = NewStoryModel(context.Background(), api, "en", "trolley")
	m = run(t, m, m.Init())

	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)
	assert.Contains(t, m.View(), "could not be recorded")

	m, _ = press(t, m, "enter")
	assert.Contains(t, m.View(), "Look away?")
}

func TestStoryModel_NoFlows(t *testing.T) {
	var m tea.Model = NewStoryModel(context.Background(), &fakeStoryAPI{}, "de", "")
	m = run(t, m, m.Init())
	assert.Contains(t, m.View(), "The story collapsed")
}

var (
	_ Generator     = (*client.Client)(nil)
	_ DilemmaSource = (*client.Client)(nil)
)

type fakeGenerator struct {
	calls   int
	failing int
}

func (g *fakeGenerator) GenerateDilemma(_ context.Context, language string) (*models.GeneratedDilemma, error) {
	g.calls++
	if g.calls <= g.failing {
		return nil, fmt.Errorf("generate dilemma: %w", client.ErrMaxRetries)
	}
	return &models.GeneratedDilemma{
		Dilemma:      fmt.Sprintf("  Clone #%d of yourself (%s)?  ", g.calls, language),
		FirstAnswer:  "Clone",
		SecondAnswer: "Refuse",
		TeaseOption1: "Narcissist.",
		TeaseOption2: "Afraid of the competition?",
	}, nil
}

type fakeDilemmaSource struct {
	excludes [][]string
	err      error
}

func (f *fakeDilemmaSource) GetDilemma(_ context.Context, _ string, exclude []string) (*models.Dilemma, error) {
	f.excludes = append(f.excludes, exclude)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Dilemma{
		ID:           fmt.Sprintf("diary%d-en", len(f.excludes)),
		Dilemma:      "Read your partner's diary?",
		FirstAnswer:  "Read",
		SecondAnswer: "Respect",
		TeaseOption1: "Snoop.",
		TeaseOption2: "Saint, or scared?",
	}, nil
}

func TestInfiniteModel_Loop(t *testing.T) {
	gen := &fakeGenerator{}
	var m tea.Model = NewInfiniteModel(context.Background(), gen, "it")
	m = run(t, m, m.Init())
	view := m.View()
	assert.Contains(t, view, "INFINITE DILEMMAS")
	assert.Contains(t, view, "Nightmare #1")
	assert.Contains(t, view, "Clone #1 of yourself (it)?")

	m, cmd := press(t, m, "1")
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "You chose: Clone")
	assert.Contains(t, m.View(), "Narcissist.")

	m, cmd = press(t, m, "enter")
	m = run(t, m, cmd)
	assert.Contains(t, m.View(), "Clone #2 of yourself (it)?")

	m, _ = press(t, m, "2")
	assert.Contains(t, m.View(), "Afraid of the competition?")
	assert.Equal(t, 2, gen.calls)
}

func TestInfiniteModel_FailureRetriesOnEnter(t *testing.T) {
	gen := &fakeGenerator{failing: 1}
	var m tea.Model = NewInfiniteModel(context.Background(), gen, "en")
	m = run(t, m, m.Init())
	assert.Contains(t, m.View(), "Failed to summon a dilemma")

	m, cmd := press(t, m, "1")
	assert.Nil(t, cmd)

	m, cmd = press(t, m, "enter")
	m = run(t, m, cmd)
	assert.Contains(t, m.View(), "Clone #2 of yourself (en)?")
	assert.Contains(t, m.View(), "Nightmare #1")
}

func TestPassModel_TeasesWithoutRepeating(t *testing.T) {
	src := &fakeDilemmaSource{}
	var m tea.Model = NewPassModel(context.Background(), src, "en")
	m = run(t, m, m.Init())
	assert.Contains(t, m.View(), "PASS THE PHONE")
	assert.Contains(t, m.View(), "Read your partner's diary?")

	m, cmd := press(t, m, "2")
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Saint, or scared?")
	assert.NotContains(t, m.View(), "souls answered")

	m, cmd = press(t, m, "enter")
	m = run(t, m, cmd)
	m, cmd = press(t, m, "enter")
	assert.Nil(t, cmd, "enter does nothing before a choice")
	m, _ = press(t, m, "1")
	m, cmd = press(t, m, "enter")
	_ = run(t, m, cmd)

	require.Len(t, src.excludes, 3)
	assert.Empty(t, src.excludes[0])
	assert.Equal(t, []string{"diary1-en"}, src.excludes[1])
	assert.Equal(t, []string{"diary1-en", "diary2-en"}, src.excludes[2])
}

func TestPassModel_MalfunctionKeepsPlaying(t *testing.T) {
	src := &fakeDilemmaSource{err: client.ErrMaxRetries}
	var m tea.Model = NewPassModel(context.Background(), src, "en")
	m = run(t, m, m.Init())
	assert.Contains(t, m.View(), "The machine has malfunctioned")

	m, _ = press(t, m, "1")
	assert.Contains(t, m.View(), "You chose: OK")

	src.err = nil
	m, cmd := press(t, m, "enter")
	m = run(t, m, cmd)
	assert.Contains(t, m.View(), "Read your partner's diary?")
	assert.Contains(t, m.View(), "Nightmare #2")
	assert.Empty(t, src.excludes[1], "the placeholder is never excluded")
}

func TestStyles_Bar(t *testing.T) {
	s := DefaultStyles()
	assert.Equal(t, 10, len([]rune(stripANSI(s.Bar(0.5, 10)))))
	assert.Equal(t, strings.Repeat("█", 10), stripANSI(s.Bar(2, 10)))
	assert.Equal(t, strings.Repeat("░", 10), stripANSI(s.Bar(-1, 10)))
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
