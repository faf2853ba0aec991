package rendering

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type SimpleItem interface {
	list.Item
	Value() string
}

type simpleDelegate struct {
	HighlightedItemStyle lipgloss.Style
	ItemStyle            lipgloss.Style

	spacing int
}

func NewSimpleDelegate() list.ItemDelegate {
	return simpleDelegate{
		HighlightedItemStyle: HighlightedItemStyle,
		ItemStyle:            ItemStyle,
		spacing:              1,
	}
}

func (d simpleDelegate) Height() int {
	// at least one line, whichever style is shorter
	return max(1, min(d.ItemStyle.GetHeight(), d.HighlightedItemStyle.GetHeight()))
}
func (d simpleDelegate) Spacing() int                            { return d.spacing }
func (d simpleDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d simpleDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(SimpleItem)
	if !ok {
		fmt.Fprint(w, "Invalid Item!")
		return
	}

	if index == m.Index() {
		fmt.Fprint(w, d.HighlightedItemStyle.Render("> "+i.Value()))
	} else {
		fmt.Fprint(w, d.ItemStyle.Render("  "+i.Value()))
	}
}
