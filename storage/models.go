// Package storage holds the persistence collaborators of the battle engine: trainers, their
// pokemon and teams, and the activity feed written when a battle is won or lost.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyRegistered = errors.New("trainer already registered")
)

const (
	ActivityTypeBattle   = "battle"
	ActivityTypeRegister = "register"
)

type User struct {
	ID             int    `json:"id"`
	Username       string `json:"username"`
	DiscordID      string `json:"discordId"`
	Avatar         string `json:"avatar,omitempty"`
	TrainerLevel   int    `json:"trainerLevel"`
	Pokecoins      int    `json:"pokecoins"`
	PokemonCaught  int    `json:"pokemonCaught"`
	BattleWins     int    `json:"battleWins"`
	TournamentWins int    `json:"tournamentWins"`
}

// Pokemon is a pokemon owned by a trainer. A Level of 0 means the level was never set.
type Pokemon struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Types    []string `json:"types"`
	ImageURL string   `json:"imageUrl,omitempty"`
	UserID   int      `json:"userId"`
}

type Activity struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	UserID      int    `json:"userId"`
}

// Storage is implemented by every backend in this package.
type Storage interface {
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByDiscordID(ctx context.Context, discordID string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)

	GetPokemonByID(ctx context.Context, id int) (Pokemon, error)
	CreatePokemon(ctx context.Context, pokemon Pokemon) (Pokemon, error)

	GetUserTeam(ctx context.Context, userID int) ([]Pokemon, error)
	AddPokemonToTeam(ctx context.Context, userID int, pokemonID int) error

	CreateActivity(ctx context.Context, activity Activity) (Activity, error)
	RecentActivities(ctx context.Context, limit int) ([]Activity, error)

	Close() error
}

// Registry is the part of a Storage that signing up a trainer touches.
type Registry interface {
	GetUserByDiscordID(ctx context.Context, discordID string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	CreatePokemon(ctx context.Context, pokemon Pokemon) (Pokemon, error)
	AddPokemonToTeam(ctx context.Context, userID int, pokemonID int) error
	CreateActivity(ctx context.Context, activity Activity) (Activity, error)
}

// Timestamp formats t the way activities are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
