package tui

import (
	"context"
	"fmt"
	"strings"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/pkg/client"

	tea "github.com/charmbracelet/bubbletea"
)

// Generator produces fresh AI dilemmas. *client.Client implements it.
type Generator interface {
	GenerateDilemma(ctx context.Context, language string) (*models.GeneratedDilemma, error)
}

// DilemmaSource serves stored dilemmas. *client.Client implements it.
type DilemmaSource interface {
	GetDilemma(ctx context.Context, language string, exclude []string) (*models.Dilemma, error)
}

type teaseState int

const (
	teaseLoading teaseState = iota
	teaseChoosing
	teaseRevealed
	teaseFailed
)

// TeaseModel is an endless loop of dilemmas answered only with a tease.
// Nothing is voted and no profile is kept.
type TeaseModel struct {
	ctx     context.Context
	title   string
	styles  Styles
	state   teaseState
	loading string

	next func(ctx context.Context, shown []string) (*models.Dilemma, error)
	// onFail replaces a failed fetch with a placeholder dilemma. When nil the
	// failure is shown and enter retries.
	onFail func(error) *models.Dilemma

	shown   []string
	count   int
	dilemma *models.Dilemma
	first   bool
	err     error
}

// NewInfiniteModel creates the infinite mode: every dilemma is freshly
// generated by the AI.
func NewInfiniteModel(ctx context.Context, gen Generator, language string) TeaseModel {
	return TeaseModel{
		ctx:     ctx,
		title:   "INFINITE DILEMMAS",
		styles:  DefaultStyles(),
		state:   teaseLoading,
		loading: LoadingMessage(),
		next: func(ctx context.Context, _ []string) (*models.Dilemma, error) {
			g, err := gen.GenerateDilemma(ctx, language)
			if err != nil {
				return nil, err
			}
			return &models.Dilemma{
				Dilemma:      strings.TrimSpace(g.Dilemma),
				FirstAnswer:  g.FirstAnswer,
				SecondAnswer: g.SecondAnswer,
				TeaseOption1: g.TeaseOption1,
				TeaseOption2: g.TeaseOption2,
			}, nil
		},
	}
}

// NewPassModel creates pass-the-phone: stored dilemmas for a group, one
// reader at a time. Dilemmas shown in this sitting are not repeated until the
// pool runs out.
func NewPassModel(ctx context.Context, src DilemmaSource, language string) TeaseModel {
	return TeaseModel{
		ctx:     ctx,
		title:   "PASS THE PHONE",
		styles:  DefaultStyles(),
		state:   teaseLoading,
		loading: LoadingMessage(),
		next: func(ctx context.Context, shown []string) (*models.Dilemma, error) {
			return src.GetDilemma(ctx, language, shown)
		},
		onFail: func(error) *models.Dilemma { return client.MalfunctionDilemma() },
	}
}

func (m TeaseModel) fetch() tea.Cmd {
	shown := append([]string(nil), m.shown...)
	return func() tea.Msg {
		d, err := m.next(m.ctx, shown)
		if err != nil {
			if m.onFail != nil {
				return dilemmaMsg{m.onFail(err)}
			}
			return errMsg{err}
		}
		return dilemmaMsg{d}
	}
}

// Init fetches the first dilemma.
func (m TeaseModel) Init() tea.Cmd {
	return m.fetch()
}

// Update handles keys and async results.
func (m TeaseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case dilemmaMsg:
		m.dilemma, m.err, m.state = msg.dilemma, nil, teaseChoosing
		m.count++
		if id := msg.dilemma.ID; id != "" && id != client.MalfunctionID {
			m.shown = append(m.shown, id)
		}
	case errMsg:
		m.err, m.state = msg.err, teaseFailed
	}
	return m, nil
}

func (m TeaseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" || key == "esc" {
		return m, tea.Quit
	}
	switch m.state {
	case teaseChoosing:
		switch key {
		case "1", "y", "left":
			m.first, m.state = true, teaseRevealed
		case "2", "n", "right":
			m.first, m.state = false, teaseRevealed
		}
	case teaseRevealed, teaseFailed:
		if key == "enter" || key == " " {
			m.state, m.loading = teaseLoading, LoadingMessage()
			return m, m.fetch()
		}
	}
	return m, nil
}

// View renders the current screen.
func (m TeaseModel) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Title.Render(m.title))
	b.WriteString("\n")

	switch m.state {
	case teaseLoading:
		b.WriteString(s.Muted.Render(m.loading))
	case teaseChoosing:
		d := m.dilemma
		b.WriteString(s.Subtitle.Render(fmt.Sprintf("Nightmare #%d", m.count)))
		b.WriteString("\n\n")
		b.WriteString(s.Dilemma.Render(d.Dilemma))
		b.WriteString("\n\n")
		b.WriteString(s.Option.Render(s.Key.Render("[1]") + " " + d.FirstAnswer))
		b.WriteString("\n")
		b.WriteString(s.Option.Render(s.Key.Render("[2]") + " " + d.SecondAnswer))
		b.WriteString("\n\n")
		b.WriteString(s.Muted.Render("1/2 to choose, q to quit"))
	case teaseRevealed:
		d := m.dilemma
		b.WriteString(s.Dilemma.Render(d.Dilemma))
		b.WriteString("\n\n")
		b.WriteString(s.Option.Render("You chose: " + d.Answer(m.first)))
		b.WriteString("\n\n")
		if tease := d.Tease(m.first); tease != "" {
			b.WriteString(s.Tease.Render(tease))
			b.WriteString("\n\n")
		}
		b.WriteString(s.Muted.Render("enter for the next one, q to quit"))
	case teaseFailed:
		b.WriteString(s.Error.Render("Failed to summon a dilemma: " + m.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(s.Muted.Render("enter to try again, q to quit"))
	}
	b.WriteString("\n")
	return b.String()
}
