// Package battleview shows a running battle and sends the player's moves to the server.
package battleview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/client/rendering"
	"github.com/rs/zerolog/log"
)

const (
	POLL_INTERVAL = 500 * time.Millisecond
	LOG_LINES     = 5

	pokemonPanelWidth = 30
	moveButtonWidth   = 18
)

type Client interface {
	Battle(ctx context.Context, battleID string) (battle.BattleState, error)
	Move(ctx context.Context, battleID string, moveIndex int) (battle.BattleState, error)
	Flee(ctx context.Context, battleID string) (battle.BattleState, error)
	EndBattle(ctx context.Context, battleID string) error
}

type (
	stateMsg struct {
		state battle.BattleState
	}
	errMsg struct {
		err error
	}
	pollMsg struct{}
)

type Model struct {
	client Client
	state  battle.BattleState

	moveFocus int
	// a request is in flight, so no new action may be sent
	busy bool
	err  error
}

func NewModel(client Client, state battle.BattleState) Model {
	return Model{
		client: client,
		state:  state,
	}
}

func (m Model) State() battle.BattleState {
	return m.state
}

func (m Model) waitingOnOpponent() bool {
	return m.state.BattleStatus == battle.StatusActive && !m.state.IsUserTurn
}

func (m Model) Init() tea.Cmd {
	if m.waitingOnOpponent() {
		return poll()
	}
	return nil
}

func poll() tea.Cmd {
	return tea.Tick(POLL_INTERVAL, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

func (m Model) request(do func(ctx context.Context) (battle.BattleState, error)) tea.Cmd {
	return func() tea.Msg {
		state, err := do(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return stateMsg{state}
	}
}

func (m Model) fetch() tea.Cmd {
	return m.request(func(ctx context.Context) (battle.BattleState, error) {
		return m.client.Battle(ctx, m.state.ID)
	})
}

func (m Model) useMove(index int) tea.Cmd {
	return m.request(func(ctx context.Context) (battle.BattleState, error) {
		return m.client.Move(ctx, m.state.ID, index)
	})
}

func (m Model) flee() tea.Cmd {
	return m.request(func(ctx context.Context) (battle.BattleState, error) {
		return m.client.Flee(ctx, m.state.ID)
	})
}

// quit ends the battle on the server before leaving. Failing to end it is only logged, the server
// evicts idle battles anyway.
func (m Model) quit() tea.Cmd {
	return func() tea.Msg {
		if err := m.client.EndBattle(context.Background(), m.state.ID); err != nil {
			log.Err(err).Str("battleId", m.state.ID).Msg("Failed to end battle")
		}
		return tea.Quit()
	}
}

func (m Model) canAct() bool {
	return !m.busy && m.state.BattleStatus == battle.StatusActive && m.state.IsUserTurn
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.busy = false
		m.err = nil
		m.state = msg.state
		if m.waitingOnOpponent() {
			return m, poll()
		}
		return m, nil
	case errMsg:
		log.Err(msg.err).Str("battleId", m.state.ID).Msg("Battle request failed")
		m.busy = false
		m.err = msg.err
		// keep waiting for the opponent even if one poll failed
		if m.waitingOnOpponent() {
			return m, poll()
		}
		return m, nil
	case pollMsg:
		if !m.waitingOnOpponent() {
			return m, nil
		}
		return m, m.fetch()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, rendering.QuitKey) {
		return m, m.quit()
	}
	if !m.canAct() {
		return m, nil
	}

	moves := m.state.UserPokemon.Moves
	switch {
	case key.Matches(msg, rendering.MoveSlotKey):
		index := int(msg.String()[0] - '1')
		if index >= len(moves) || !moves[index].Usable() {
			return m, nil
		}
		m.moveFocus = index
		m.busy = true
		return m, m.useMove(index)
	case key.Matches(msg, rendering.MoveLeftKey):
		if len(moves) > 0 {
			m.moveFocus = (m.moveFocus - 1 + len(moves)) % len(moves)
		}
	case key.Matches(msg, rendering.MoveRightKey):
		if len(moves) > 0 {
			m.moveFocus = (m.moveFocus + 1) % len(moves)
		}
	case key.Matches(msg, rendering.SelectKey):
		if m.moveFocus >= len(moves) || !moves[m.moveFocus].Usable() {
			return m, nil
		}
		m.busy = true
		return m, m.useMove(m.moveFocus)
	case key.Matches(msg, rendering.FleeKey):
		m.busy = true
		return m, m.flee()
	}

	return m, nil
}

func pokemonPanel(title string, poke battle.BattlePokemon) string {
	info := fmt.Sprintf("%s\n%s Lv. %d\n%s", title, poke.Name, poke.Level, battle.FormatTypes(poke.Types))
	hp := fmt.Sprintf("HP %d/%d", poke.CurrentHP, poke.MaxHP)
	bar := rendering.HpBar(poke.CurrentHP, poke.MaxHP, pokemonPanelWidth-6)

	return rendering.PanelStyle.Width(pokemonPanelWidth).Render(lipgloss.JoinVertical(lipgloss.Center, info, bar, hp))
}

func (m Model) movesView() string {
	buttons := make([]string, len(m.state.UserPokemon.Moves))
	for i, move := range m.state.UserPokemon.Moves {
		label := fmt.Sprintf("%d. %s\n%d/%d PP", i+1, move.Name, move.CurrentPP, move.PP)

		style := rendering.PanelStyle
		switch {
		case !m.canAct() || !move.Usable():
			style = rendering.DisabledPanelStyle
		case i == m.moveFocus:
			style = rendering.HighlightedPanelStyle
		}
		buttons[i] = style.Width(moveButtonWidth).Render(label)
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, buttons...)
}

func resultLine(status battle.Status) string {
	switch status {
	case battle.StatusUserWon:
		return "You won the battle!"
	case battle.StatusOpponentWon:
		return "You lost the battle..."
	case battle.StatusFled:
		return "You fled from the battle."
	}
	return ""
}

func (m Model) View() string {
	battleLog := rendering.ButtonStyle.Width(pokemonPanelWidth * 2).Align(lipgloss.Left).
		Render(strings.Join(m.state.RecentMessages(LOG_LINES), "\n"))

	var footer string
	switch {
	case m.state.BattleStatus.Terminal():
		footer = lipgloss.JoinVertical(lipgloss.Center, resultLine(m.state.BattleStatus), "q quit")
	case m.waitingOnOpponent():
		footer = lipgloss.JoinVertical(lipgloss.Center, m.movesView(), fmt.Sprintf("%s is thinking...", m.state.OpponentPokemon.Name))
	default:
		footer = lipgloss.JoinVertical(lipgloss.Center, m.movesView(), "1-4 or ←/→ + enter use move • f flee • q quit")
	}

	view := lipgloss.JoinVertical(
		lipgloss.Center,

		fmt.Sprintf("Turn: %d", m.state.TurnCount),
		lipgloss.JoinHorizontal(
			lipgloss.Center,
			pokemonPanel("Wild", m.state.OpponentPokemon),
			pokemonPanel("Yours", m.state.UserPokemon),
		),
		battleLog,
		footer,
	)

	if m.err != nil {
		view = lipgloss.JoinVertical(lipgloss.Center, view, rendering.ErrorStyle.Render(m.err.Error()))
	}

	return rendering.GlobalCenter(view)
}
