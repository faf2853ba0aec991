package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type seedPokemon struct {
	name  string
	level int
	types []string
}

var starterTeam = []seedPokemon{
	{name: "Pikachu", level: 12, types: []string{"electric"}},
	{name: "Charmander", level: 10, types: []string{"fire"}},
	{name: "Bulbasaur", level: 9, types: []string{"grass", "poison"}},
}

// SeedDemoTrainer makes sure a playable trainer exists. It is a no-op when a trainer with the
// given discord id is already present.
func SeedDemoTrainer(ctx context.Context, s Registry, username string, discordID string) (User, error) {
	user, err := s.GetUserByDiscordID(ctx, discordID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	user, err = s.CreateUser(ctx, User{Username: username, DiscordID: discordID, TrainerLevel: 1})
	if err != nil {
		return User{}, fmt.Errorf("creating demo trainer: %w", err)
	}

	return user, giveStarterTeam(ctx, s, user)
}

// RegisterTrainer signs up a new trainer with the starter team and records a register activity.
// A discord id that is already known fails with ErrAlreadyRegistered.
func RegisterTrainer(ctx context.Context, s Registry, username string, discordID string) (User, error) {
	_, err := s.GetUserByDiscordID(ctx, discordID)
	if err == nil {
		return User{}, fmt.Errorf("discord id %q: %w", discordID, ErrAlreadyRegistered)
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	user, err := s.CreateUser(ctx, User{Username: username, DiscordID: discordID, TrainerLevel: 1})
	if err != nil {
		return User{}, fmt.Errorf("creating trainer: %w", err)
	}

	if err := giveStarterTeam(ctx, s, user); err != nil {
		return User{}, err
	}

	_, err = s.CreateActivity(ctx, Activity{
		Type:        ActivityTypeRegister,
		Description: fmt.Sprintf("%s registered as a new trainer!", username),
		Timestamp:   Timestamp(time.Now()),
		UserID:      user.ID,
	})
	if err != nil {
		return User{}, fmt.Errorf("recording registration: %w", err)
	}

	return user, nil
}

func giveStarterTeam(ctx context.Context, s Registry, user User) error {
	for _, seed := range starterTeam {
		poke, err := s.CreatePokemon(ctx, Pokemon{
			Name:   seed.name,
			Level:  seed.level,
			Types:  seed.types,
			UserID: user.ID,
		})
		if err != nil {
			return fmt.Errorf("creating %s: %w", seed.name, err)
		}

		if err := s.AddPokemonToTeam(ctx, user.ID, poke.ID); err != nil {
			return err
		}
	}

	return nil
}
