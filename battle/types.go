package battle

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusUserWon     Status = "userWon"
	StatusOpponentWon Status = "opponentWon"
	StatusFled        Status = "fled"
)

// Terminal reports whether no more actions can be taken in a battle with this status.
func (s Status) Terminal() bool {
	return s != StatusActive
}

type BattleMove struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Power       int    `json:"power"`
	PP          int    `json:"pp"`
	Accuracy    int    `json:"accuracy"`
	Type        string `json:"type"`
	DamageClass string `json:"damageClass"`
	CurrentPP   int    `json:"currentPp"`
}

func (m BattleMove) Usable() bool {
	return m.CurrentPP > 0
}

type BattlePokemon struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Level         int          `json:"level"`
	Types         []string     `json:"types"`
	CurrentHP     int          `json:"currentHp"`
	MaxHP         int          `json:"maxHp"`
	ImageURLFront string       `json:"imageUrlFront"`
	ImageURLBack  string       `json:"imageUrlBack"`
	Moves         []BattleMove `json:"moves"`
}

func (p BattlePokemon) Fainted() bool {
	return p.CurrentHP <= 0
}

func (p BattlePokemon) HasType(typeName string) bool {
	return lo.Contains(p.Types, typeName)
}

// ApplyDamage lowers current hp, never below zero.
func (p *BattlePokemon) ApplyDamage(damage int) {
	p.CurrentHP = max(p.CurrentHP-damage, 0)
}

// HpPercent is the remaining hp as a whole percentage, rounded down.
func (p BattlePokemon) HpPercent() int {
	if p.MaxHP <= 0 {
		return 0
	}
	return p.CurrentHP * 100 / p.MaxHP
}

// UsableMoves returns the indices of every move with pp left.
func (p BattlePokemon) UsableMoves() []int {
	return lo.FilterMap(p.Moves, func(m BattleMove, i int) (int, bool) {
		return i, m.Usable()
	})
}

func (p BattlePokemon) Clone() BattlePokemon {
	p.Types = slices.Clone(p.Types)
	p.Moves = slices.Clone(p.Moves)
	return p
}

type BattleState struct {
	ID              string        `json:"id"`
	UserID          int           `json:"userId"`
	UserPokemon     BattlePokemon `json:"userPokemon"`
	OpponentPokemon BattlePokemon `json:"opponentPokemon"`
	IsUserTurn      bool          `json:"isUserTurn"`
	Messages        []string      `json:"messages"`
	BattleStatus    Status        `json:"battleStatus"`
	TurnCount       int           `json:"turnCount"`
}

// Clone returns a deep copy so callers can never mutate stored state.
func (s BattleState) Clone() BattleState {
	s.UserPokemon = s.UserPokemon.Clone()
	s.OpponentPokemon = s.OpponentPokemon.Clone()
	s.Messages = slices.Clone(s.Messages)
	return s
}

// RecentMessages returns at most the last n log lines.
func (s BattleState) RecentMessages(n int) []string {
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

func (s *BattleState) log(format string, args ...any) {
	s.Messages = append(s.Messages, fmt.Sprintf(format, args...))
}
