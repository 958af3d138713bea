package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/pkg/client"
	"moral-torture-machine/pkg/profile"
	"moral-torture-machine/pkg/story"

	tea "github.com/charmbracelet/bubbletea"
)

// StoryAPI is the part of the HTTP client used by story mode. *client.Client
// implements it.
type StoryAPI interface {
	GetStoryFlow(ctx context.Context, language, flowID string) (*models.StoryFlow, error)
	StoryNodeVote(ctx context.Context, flowID, nodeID string, first bool) (*models.StoryVoteResult, error)
	AnalyzeResults(ctx context.Context, language string, answers []map[string]float64, choices []models.DilemmaWithChoice) (*client.AnalysisResponse, error)
}

type storyState int

const (
	storyLoading storyState = iota
	storyChoosing
	storyRevealed
	storyAnalyzing
	storyFinished
	storyFailed
)

type flowMsg struct{ flow *models.StoryFlow }

// voteRecordedMsg reports the server side vote. Its failure never blocks the
// walk, which is resolved locally.
type voteRecordedMsg struct{ err error }

// StoryModel walks one branching story.
type StoryModel struct {
	ctx      context.Context
	api      StoryAPI
	language string
	flowID   string
	styles   Styles
	state    storyState
	loading  string

	walker   *story.Walker
	step     story.Step
	voteErr  error
	averages profile.Profile
	analysis string
	err      error
}

// NewStoryModel creates the story screen. An empty flowID picks a random flow.
func NewStoryModel(ctx context.Context, api StoryAPI, language, flowID string) StoryModel {
	return StoryModel{
		ctx:      ctx,
		api:      api,
		language: language,
		flowID:   flowID,
		styles:   DefaultStyles(),
		state:    storyLoading,
		loading:  LoadingMessage(),
	}
}

func (m StoryModel) fetch() tea.Msg {
	flow, err := m.api.GetStoryFlow(m.ctx, m.language, m.flowID)
	if err != nil {
		return errMsg{err}
	}
	return flowMsg{flow}
}

func (m StoryModel) recordVote(flowID, nodeID string, first bool) tea.Cmd {
	return func() tea.Msg {
		_, err := m.api.StoryNodeVote(m.ctx, flowID, nodeID, first)
		return voteRecordedMsg{err}
	}
}

func (m StoryModel) analyze() tea.Msg {
	answers := m.walker.Answers()
	avg, err := profile.Average(answers)
	if err != nil {
		return analysisMsg{err: err}
	}
	maps := make([]map[string]float64, 0, len(answers))
	for _, a := range answers {
		maps = append(maps, a.Map())
	}
	msg := analysisMsg{averages: avg.Rounded()}
	resp, err := m.api.AnalyzeResults(m.ctx, m.language, maps, m.walker.History())
	if err != nil {
		msg.err = err
		return msg
	}
	msg.analysis = resp.Analysis
	return msg
}

// Init fetches the flow.
func (m StoryModel) Init() tea.Cmd {
	return m.fetch
}

// Update handles keys and async results.
func (m StoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case flowMsg:
		w, err := story.NewWalker(msg.flow)
		if err != nil {
			m.err, m.state = err, storyFailed
			return m, nil
		}
		m.walker, m.state = w, storyChoosing
	case voteRecordedMsg:
		m.voteErr = msg.err
	case analysisMsg:
		m.averages, m.analysis, m.err = msg.averages, msg.analysis, msg.err
		m.state = storyFinished
	case errMsg:
		m.err, m.state = msg.err, storyFailed
	}
	return m, nil
}

func (m StoryModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" || key == "esc" {
		return m, tea.Quit
	}
	switch m.state {
	case storyChoosing:
		var first bool
		switch key {
		case "1", "left":
			first = true
		case "2", "right":
			first = false
		default:
			return m, nil
		}
		step, err := m.walker.Choose(first)
		if err != nil {
			m.err, m.state = err, storyFailed
			return m, nil
		}
		m.step, m.state, m.voteErr = step, storyRevealed, nil
		return m, m.recordVote(m.walker.Flow().ID, step.NodeID, first)
	case storyRevealed:
		if key != "enter" && key != " " {
			return m, nil
		}
		if err := m.walker.Advance(); err != nil {
			if errors.Is(err, models.ErrStoryComplete) {
				m.state, m.loading = storyAnalyzing, LoadingMessage()
				return m, m.analyze
			}
			m.err, m.state = err, storyFailed
			return m, nil
		}
		m.state = storyChoosing
	case storyFinished, storyFailed:
		if key == "enter" {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the current screen.
func (m StoryModel) View() string {
	s := m.styles
	var b strings.Builder
	title := "STORY MODE"
	if m.walker != nil {
		title = strings.ToUpper(m.walker.Flow().Title)
	}
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")

	switch m.state {
	case storyLoading, storyAnalyzing:
		b.WriteString(s.Muted.Render(m.loading))
	case storyChoosing:
		_, node := m.walker.Current()
		b.WriteString(s.Subtitle.Render(fmt.Sprintf("Chapter %d", len(m.walker.Path())+1)))
		b.WriteString("\n\n")
		b.WriteString(s.Dilemma.Render(node.Dilemma))
		b.WriteString("\n\n")
		b.WriteString(s.Option.Render(s.Key.Render("[1]") + " " + node.FirstAnswer))
		b.WriteString("\n")
		b.WriteString(s.Option.Render(s.Key.Render("[2]") + " " + node.SecondAnswer))
		b.WriteString("\n\n")
		b.WriteString(s.Muted.Render("1/2 to choose, q to quit"))
	case storyRevealed:
		b.WriteString(s.Dilemma.Render(m.step.Node.Dilemma))
		b.WriteString("\n\n")
		b.WriteString(s.Option.Render("You chose: " + m.step.Node.Answer(m.step.First)))
		b.WriteString("\n\n")
		if m.step.Tease != "" {
			b.WriteString(s.Tease.Render(m.step.Tease))
			b.WriteString("\n\n")
		}
		if m.voteErr != nil {
			b.WriteString(s.Muted.Render("(your choice could not be recorded)"))
			b.WriteString("\n")
		}
		next := "enter to continue"
		if m.step.Complete {
			next = "enter to see where your choices led"
		}
		b.WriteString(s.Muted.Render(next))
	case storyFinished:
		b.WriteString(s.Subtitle.Render(fmt.Sprintf("The story ends after %d choices", len(m.walker.Path()))))
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
	case storyFailed:
		b.WriteString(s.Error.Render("The story collapsed: " + m.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(s.Muted.Render("enter/q to leave"))
	}
	b.WriteString("\n")
	return b.String()
}
