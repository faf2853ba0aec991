package bot

import (
	"fmt"
	"strings"

	"github.com/nathanieltooley/pokebattle/battle"
)

const (
	hpBarCells = 10
	logLines   = 5
	filledCell = "🟩"
	emptyCell  = "⬛"
)

// HpBar draws hp as ten cells, rounding down.
func HpBar(poke battle.BattlePokemon) string {
	filled := min(max(poke.HpPercent()/10, 0), hpBarCells)
	return strings.Repeat(filledCell, filled) + strings.Repeat(emptyCell, hpBarCells-filled)
}

func resultLine(status battle.Status) string {
	switch status {
	case battle.StatusUserWon:
		return "🏆 You won the battle!"
	case battle.StatusOpponentWon:
		return "😢 You lost the battle!"
	case battle.StatusFled:
		return "🏃 You fled from the battle!"
	}
	return ""
}

func writePanel(b *strings.Builder, title string, poke battle.BattlePokemon) {
	fmt.Fprintf(b, "**%s %s (Lv. %d)**\n", title, poke.Name, poke.Level)
	fmt.Fprintf(b, "Type: %s\n", battle.FormatTypes(poke.Types))
	fmt.Fprintf(b, "HP: %d/%d\n", poke.CurrentHP, poke.MaxHP)
	fmt.Fprintf(b, "%s\n", HpBar(poke))
}

// RenderBattle renders the opponent, the user's pokemon, the tail of the battle log and the
// moves that can be picked.
func RenderBattle(state battle.BattleState) string {
	var b strings.Builder

	writePanel(&b, "Wild", state.OpponentPokemon)
	b.WriteString("\n")
	writePanel(&b, "Your", state.UserPokemon)

	b.WriteString("\n**Battle Log**\n")
	for _, line := range state.RecentMessages(logLines) {
		b.WriteString(line + "\n")
	}

	if state.BattleStatus.Terminal() {
		fmt.Fprintf(&b, "\n**Battle Result**\n%s\n", resultLine(state.BattleStatus))
		return b.String()
	}

	b.WriteString("\n**Moves**\n")
	for i, move := range state.UserPokemon.Moves {
		label := fmt.Sprintf("%d. %s (%d/%d)", i+1, move.Name, move.CurrentPP, move.PP)
		if !state.IsUserTurn || !move.Usable() {
			label = "~~" + label + "~~"
		}
		b.WriteString(label + "\n")
	}

	if state.IsUserTurn {
		b.WriteString("\nUse `!move <number>` to attack or `!flee` to run away.")
	} else {
		fmt.Fprintf(&b, "\n%s is thinking... use `!status` to see what happened.", state.OpponentPokemon.Name)
	}

	return b.String()
}
