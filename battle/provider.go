package battle

import (
	"context"

	"github.com/nathanieltooley/pokebattle/storage"
)

// MoveRef points at a move in a species' move pool.
type MoveRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Species is the static reference data of a pokemon kind.
type Species struct {
	ID          int
	Name        string
	Types       []string
	FrontSprite string
	BackSprite  string
	BaseStats   map[string]int
	MovePool    []MoveRef
}

// BaseStat returns the named base stat, or fallback when the species does not list it.
func (s Species) BaseStat(name string, fallback int) int {
	stat, ok := s.BaseStats[name]
	if !ok {
		return fallback
	}
	return stat
}

// MoveData is a move as the provider reports it. Power and Accuracy are nil for moves that
// have none (status moves, never-miss moves).
type MoveData struct {
	ID          int
	Name        string
	Power       *int
	PP          int
	Accuracy    *int
	Type        string
	DamageClass string
}

// DataProvider resolves species and moves. Implementations must be safe for concurrent use.
type DataProvider interface {
	FetchSpecies(ctx context.Context, idOrName string) (Species, error)
	FetchMove(ctx context.Context, ref MoveRef) (MoveData, error)
}

// Roster is the slice of persistence the engine needs.
type Roster interface {
	GetUser(ctx context.Context, id int) (storage.User, error)
	GetUserTeam(ctx context.Context, userID int) ([]storage.Pokemon, error)
	GetPokemonByID(ctx context.Context, id int) (storage.Pokemon, error)
	CreateActivity(ctx context.Context, activity storage.Activity) (storage.Activity, error)
}
