// Package rendering holds the styles, key bindings and small widgets shared by the client's views.
package rendering

import (
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	TERM_WIDTH, TERM_HEIGHT, _ = term.GetSize(int(os.Stdout.Fd()))

	HighlightedColor = lipgloss.Color("33")
	DisabledColor    = lipgloss.Color("240")
	ErrorColor       = lipgloss.Color("#E0245E")

	HealthyColor  = lipgloss.Color("#3BB143")
	HurtColor     = lipgloss.Color("#F28C28")
	CriticalColor = lipgloss.Color("#D2042D")

	PanelStyle            = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).Padding(1, 2).AlignHorizontal(lipgloss.Center)
	HighlightedPanelStyle = PanelStyle.Background(HighlightedColor).Foreground(lipgloss.Color("255"))
	DisabledPanelStyle    = PanelStyle.Foreground(DisabledColor).BorderForeground(DisabledColor)

	ButtonStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Width(30).Padding(1, 3).Align(lipgloss.Center)
	ErrorStyle  = lipgloss.NewStyle().Border(lipgloss.BlockBorder(), true).BorderForeground(ErrorColor).Padding(0, 2)

	HighlightedItemStyle = lipgloss.NewStyle().PaddingLeft(4).Foreground(HighlightedColor)
	ItemStyle            = lipgloss.NewStyle().PaddingLeft(4)
)

var (
	SelectKey = key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	)
	MoveLeftKey = key.NewBinding(
		key.WithKeys("left", "h"),
	)
	MoveRightKey = key.NewBinding(
		key.WithKeys("right", "l"),
	)
	MoveSlotKey = key.NewBinding(
		key.WithKeys("1", "2", "3", "4"),
		key.WithHelp("1-4", "use move"),
	)
	FleeKey = key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "flee"),
	)
	QuitKey = key.NewBinding(
		key.WithKeys("q", tea.KeyCtrlC.String()),
		key.WithHelp("q", "quit"),
	)
)

func Center(width int, height int, text string) string {
	return lipgloss.PlaceVertical(height, lipgloss.Center, lipgloss.PlaceHorizontal(width, lipgloss.Center, text))
}

func GlobalCenter(text string) string {
	return Center(TERM_WIDTH, TERM_HEIGHT, text)
}

// HpColor is green above half health, orange above a fifth and red below that.
func HpColor(current int, max int) lipgloss.Color {
	if max <= 0 {
		return CriticalColor
	}

	perc := float64(current) / float64(max)
	switch {
	case perc > 0.5:
		return HealthyColor
	case perc > 0.2:
		return HurtColor
	}
	return CriticalColor
}

// HpBar renders a health bar of the given width colored by HpColor.
func HpBar(current int, max int, width int) string {
	bar := progress.New(progress.WithSolidFill(string(HpColor(current, max))), progress.WithoutPercentage())
	bar.Width = width

	perc := 0.0
	if max > 0 {
		perc = float64(current) / float64(max)
	}
	return bar.ViewAs(perc)
}
