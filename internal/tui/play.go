package tui

import (
	"context"
	"fmt"
	"strings"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/pkg/client"
	"moral-torture-machine/pkg/profile"

	tea "github.com/charmbracelet/bubbletea"
)

// Round is one evaluation round. *client.Session implements it.
type Round interface {
	Next(ctx context.Context) (*models.Dilemma, error)
	Choose(ctx context.Context, first bool) (*client.ChoiceResult, error)
	Complete() bool
	Played() int
	Profile() (profile.Profile, error)
	Analyze(ctx context.Context) (*client.AnalysisResponse, error)
}

type playState int

const (
	playLoading playState = iota
	playChoosing
	playRevealed
	playAnalyzing
	playResults
	playFailed
)

type dilemmaMsg struct{ dilemma *models.Dilemma }

type choiceMsg struct{ result *client.ChoiceResult }

type analysisMsg struct {
	averages profile.Profile
	analysis string
	err      error
}

type errMsg struct{ err error }

// PlayModel is the evaluation mode: RoundLength dilemmas, then the profile.
type PlayModel struct {
	ctx     context.Context
	round   Round
	styles  Styles
	state   playState
	loading string

	dilemma *models.Dilemma
	first   bool
	result  *client.ChoiceResult

	averages profile.Profile
	analysis string
	err      error
}

// NewPlayModel creates the evaluation screen over round.
func NewPlayModel(ctx context.Context, round Round) PlayModel {
	return PlayModel{ctx: ctx, round: round, styles: DefaultStyles(), state: playLoading, loading: LoadingMessage()}
}

func (m PlayModel) fetch() tea.Msg {
	d, err := m.round.Next(m.ctx)
	if err != nil {
		return errMsg{err}
	}
	return dilemmaMsg{d}
}

func (m PlayModel) choose(first bool) tea.Cmd {
	return func() tea.Msg {
		res, err := m.round.Choose(m.ctx, first)
		if err != nil {
			return errMsg{err}
		}
		return choiceMsg{res}
	}
}

// analyze computes the local profile first so the bars still show when the
// AI analysis is unavailable.
func (m PlayModel) analyze() tea.Msg {
	avg, err := m.round.Profile()
	if err != nil {
		return analysisMsg{err: err}
	}
	msg := analysisMsg{averages: avg.Rounded()}
	resp, err := m.round.Analyze(m.ctx)
	if err != nil {
		msg.err = err
		return msg
	}
	msg.analysis = resp.Analysis
	return msg
}

// Init fetches the first dilemma.
func (m PlayModel) Init() tea.Cmd {
	return m.fetch
}

// Update handles keys and async results.
func (m PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case dilemmaMsg:
		m.dilemma, m.result, m.state = msg.dilemma, nil, playChoosing
	case choiceMsg:
		m.result, m.state = msg.result, playRevealed
	case analysisMsg:
		m.averages, m.analysis, m.err = msg.averages, msg.analysis, msg.err
		m.state = playResults
	case errMsg:
		m.err, m.state = msg.err, playFailed
	}
	return m, nil
}

func (m PlayModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" || key == "esc" {
		return m, tea.Quit
	}
	switch m.state {
	case playChoosing:
		switch key {
		case "1", "y", "left":
			m.first, m.state = true, playLoading
			return m, m.choose(true)
		case "2", "n", "right":
			m.first, m.state = false, playLoading
			return m, m.choose(false)
		}
	case playRevealed:
		if key == "enter" || key == " " {
			if m.round.Complete() {
				m.state, m.loading = playAnalyzing, LoadingMessage()
				return m, m.analyze
			}
			m.state, m.loading = playLoading, LoadingMessage()
			return m, m.fetch
		}
	case playResults, playFailed:
		if key == "enter" {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the current screen.
func (m PlayModel) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("MORAL TORTURE MACHINE"))
	b.WriteString("\n")

	switch m.state {
	case playLoading, playAnalyzing:
		b.WriteString(s.Muted.Render(m.loading))
	case playChoosing:
		b.WriteString(s.Subtitle.Render(fmt.Sprintf("Dilemma %d of %d", m.round.Played()+1, client.RoundLength)))
		b.WriteString("\n\n")
		b.WriteString(m.renderDilemma())
	case playRevealed:
		b.WriteString(m.renderReveal())
	case playResults:
		b.WriteString(m.renderResults())
	case playFailed:
		b.WriteString(s.Error.Render("The machine choked on your soul: " + m.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(s.Muted.Render("enter/q to leave"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m PlayModel) renderDilemma() string {
	s := m.styles
	d := m.dilemma
	var b strings.Builder
	b.WriteString(s.Dilemma.Render(d.Dilemma))
	b.WriteString("\n\n")
	b.WriteString(s.Option.Render(s.Key.Render("[1]") + " " + d.FirstAnswer))
	b.WriteString("\n")
	b.WriteString(s.Option.Render(s.Key.Render("[2]") + " " + d.SecondAnswer))
	b.WriteString("\n\n")
	b.WriteString(s.Muted.Render("1/2 to choose, q to quit"))
	return b.String()
}

func (m PlayModel) renderReveal() string {
	s := m.styles
	d := m.dilemma
	var b strings.Builder
	b.WriteString(s.Dilemma.Render(d.Dilemma))
	b.WriteString("\n\n")
	b.WriteString(s.Option.Render("You chose: " + d.Answer(m.first)))
	b.WriteString("\n\n")
	if m.result.Tease != "" {
		b.WriteString(s.Tease.Render(m.result.Tease))
		b.WriteString("\n\n")
	}
	b.WriteString(s.Tally(d.FirstAnswer, d.SecondAnswer, m.result.YesShare, m.result.NoShare, m.result.YesCount+m.result.NoCount))
	if !m.result.VoteRecorded {
		b.WriteString("\n")
		b.WriteString(s.Muted.Render("(your vote could not be recorded)"))
	}
	b.WriteString("\n\n")
	next := "enter for the next dilemma"
	if m.round.Complete() {
		next = "enter to face your judgement"
	}
	b.WriteString(s.Muted.Render(next))
	return b.String()
}

func (m PlayModel) renderResults() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Subtitle.Render("Your moral profile"))
	b.WriteString("\n\n")
	if len(m.averages) > 0 {
		b.WriteString(s.Profile(m.averages))
		b.WriteString("\n\n")
	}
	switch {
	case m.analysis != "":
		b.WriteString(s.Box.Render(s.Dilemma.Render(m.analysis)))
	case m.err != nil:
		b.WriteString(s.Error.Render("Analysis unavailable: " + m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(s.Muted.Render("enter/q to leave"))
	return b.String()
}
