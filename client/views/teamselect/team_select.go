// Package teamselect is the first screen of the client: pick a pokemon from your team to battle with.
package teamselect

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/client/rendering"
	"github.com/nathanieltooley/pokebattle/client/views/battleview"
	"github.com/nathanieltooley/pokebattle/storage"
	"github.com/rs/zerolog/log"
)

type Client interface {
	battleview.Client
	Team(ctx context.Context) ([]storage.Pokemon, error)
	StartBattle(ctx context.Context, pokemonID int) (battle.BattleState, error)
}

type pokemonItem struct {
	storage.Pokemon
}

func (i pokemonItem) FilterValue() string { return i.Name }
func (i pokemonItem) Value() string {
	return fmt.Sprintf("%s  Lv. %d  %s", battle.FormatName(i.Name), i.Level, battle.FormatTypes(i.Types))
}

type (
	teamLoadedMsg struct {
		team []storage.Pokemon
	}
	battleStartedMsg struct {
		state battle.BattleState
	}
	errMsg struct {
		err error
	}
)

type Model struct {
	client Client

	list     list.Model
	loading  bool
	starting bool
	err      error
}

func NewModel(client Client) Model {
	teamList := list.New(nil, rendering.NewSimpleDelegate(), rendering.TERM_WIDTH/2, max(rendering.TERM_HEIGHT/2, 10))
	teamList.Title = "Choose your Pokémon"
	teamList.SetShowStatusBar(false)
	teamList.SetFilteringEnabled(false)
	teamList.DisableQuitKeybindings()

	return Model{
		client:  client,
		list:    teamList,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadTeam
}

func (m Model) loadTeam() tea.Msg {
	team, err := m.client.Team(context.Background())
	if err != nil {
		return errMsg{err}
	}
	return teamLoadedMsg{team}
}

func (m Model) startBattle(pokemonID int) tea.Cmd {
	return func() tea.Msg {
		state, err := m.client.StartBattle(context.Background(), pokemonID)
		if err != nil {
			return errMsg{err}
		}
		return battleStartedMsg{state}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case teamLoadedMsg:
		m.loading = false
		items := make([]list.Item, len(msg.team))
		for i, poke := range msg.team {
			items[i] = pokemonItem{poke}
		}
		return m, m.list.SetItems(items)
	case battleStartedMsg:
		log.Info().Str("battleId", msg.state.ID).Msg("Battle started")
		view := battleview.NewModel(m.client, msg.state)
		return view, view.Init()
	case errMsg:
		log.Err(msg.err).Msg("Team select request failed")
		m.loading = false
		m.starting = false
		m.err = msg.err
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, rendering.QuitKey) {
			return m, tea.Quit
		}
		if m.starting {
			return m, nil
		}
		if key.Matches(msg, rendering.SelectKey) {
			item, ok := m.list.SelectedItem().(pokemonItem)
			if !ok {
				return m, nil
			}
			m.starting = true
			m.err = nil
			return m, m.startBattle(item.ID)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var body string
	switch {
	case m.loading:
		body = "Loading your team..."
	case len(m.list.Items()) == 0 && m.err == nil:
		body = "You don't have any Pokémon in your team! Catch a Pokémon first."
	case m.starting:
		body = lipgloss.JoinVertical(lipgloss.Center, m.list.View(), "Starting battle...")
	default:
		body = m.list.View()
	}

	if m.err != nil {
		body = lipgloss.JoinVertical(lipgloss.Center, body, rendering.ErrorStyle.Render(m.err.Error()))
	}

	return rendering.GlobalCenter(lipgloss.JoinVertical(lipgloss.Center, body, "↑/↓ choose • enter battle • q quit"))
}
