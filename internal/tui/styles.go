// Package tui renders the terminal play, story, infinite and pass-the-phone modes.
package tui

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"moral-torture-machine/pkg/profile"

	"github.com/charmbracelet/lipgloss"
)

var (
	Blood    = lipgloss.Color("#b71c1c")
	Ember    = lipgloss.Color("#ff5252")
	Bone     = lipgloss.Color("#e0e0e0")
	Ash      = lipgloss.Color("#757575")
	Bile     = lipgloss.Color("#9ccc65")
	Bruise   = lipgloss.Color("#7e57c2")
	Midnight = lipgloss.Color("#121212")
)

var loadingMessages = []string{
	"Extracting moral fibers...",
	"Torturing your conscience...",
	"Summoning ethical dilemmas...",
	"Analyzing your soul...",
	"Preparing psychological torment...",
	"Loading existential dread...",
	"Calculating moral decay...",
	"Harvesting ethical nightmares...",
	"Initializing guilt processor...",
	"Awakening dormant demons...",
}

// LoadingMessage returns one of the loading lines at random.
func LoadingMessage() string {
	return loadingMessages[rand.IntN(len(loadingMessages))]
}

// Styles groups the lipgloss styles shared by every screen.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Dilemma  lipgloss.Style
	Option   lipgloss.Style
	Key      lipgloss.Style
	Tease    lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	BarFill  lipgloss.Style
	BarEmpty lipgloss.Style
	Trait    lipgloss.Style
	Box      lipgloss.Style
}

// DefaultStyles returns the dark red palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Ember).MarginBottom(1),
		Subtitle: lipgloss.NewStyle().Foreground(Ash).Italic(true),
		Dilemma:  lipgloss.NewStyle().Foreground(Bone).Width(72),
		Option:   lipgloss.NewStyle().Foreground(Bone).PaddingLeft(2),
		Key:      lipgloss.NewStyle().Bold(true).Foreground(Blood),
		Tease:    lipgloss.NewStyle().Italic(true).Foreground(Bruise).Width(72),
		Muted:    lipgloss.NewStyle().Foreground(Ash),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(Ember),
		BarFill:  lipgloss.NewStyle().Foreground(Blood),
		BarEmpty: lipgloss.NewStyle().Foreground(Ash),
		Trait:    lipgloss.NewStyle().Foreground(Bile).Width(16),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Blood).
			Padding(1, 2),
	}
}

// Bar draws a horizontal bar for fraction in [0,1].
func (s Styles) Bar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return s.BarFill.Render(strings.Repeat("█", filled)) + s.BarEmpty.Render(strings.Repeat("░", width-filled))
}

// Tally renders the community yes/no split.
func (s Styles) Tally(yesLabel, noLabel string, yesShare, noShare float64, votes int64) string {
	if votes == 0 {
		return s.Muted.Render("You are the first to answer this one.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %3.0f%%\n", s.Trait.Render(yesLabel), s.Bar(yesShare, 30), yesShare*100)
	fmt.Fprintf(&b, "%s %s %3.0f%%\n", s.Trait.Render(noLabel), s.Bar(noShare, 30), noShare*100)
	b.WriteString(s.Muted.Render(fmt.Sprintf("%d souls answered", votes)))
	return b.String()
}

// Profile renders one bar per trait, scaled to the chart full mark, and the
// dominant trait.
func (s Styles) Profile(p profile.Profile) string {
	var b strings.Builder
	for _, point := range profile.ChartData(p) {
		fraction := 0.0
		if point.FullMark > 0 {
			fraction = point.Value / point.FullMark
		}
		fmt.Fprintf(&b, "%s %s %5.2f\n", s.Trait.Render(point.Trait), s.Bar(fraction, 30), point.Value)
	}
	if trait, v := profile.Dominant(p); trait != "" {
		b.WriteString("\n")
		b.WriteString(s.Subtitle.Render(fmt.Sprintf("Dominant trait: %s (%.2f)", trait, v)))
	}
	return b.String()
}
