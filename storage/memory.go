package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// MemoryStorage keeps everything in process memory. It is used when no database is configured
// and in tests.
type MemoryStorage struct {
	mu sync.RWMutex

	users      map[int]User
	pokemon    map[int]Pokemon
	teams      map[int][]int
	activities []Activity

	nextUserID     int
	nextPokemonID  int
	nextActivityID int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:          make(map[int]User),
		pokemon:        make(map[int]Pokemon),
		teams:          make(map[int][]int),
		nextUserID:     1,
		nextPokemonID:  1,
		nextActivityID: 1,
	}
}

func (m *MemoryStorage) GetUser(_ context.Context, id int) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return user, nil
}

func (m *MemoryStorage) GetUserByDiscordID(_ context.Context, discordID string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := lo.FindKeyBy(m.users, func(_ int, u User) bool {
		return u.DiscordID == discordID
	})
	if !ok {
		return User{}, fmt.Errorf("discord user %s: %w", discordID, ErrNotFound)
	}
	return m.users[user], nil
}

func (m *MemoryStorage) CreateUser(_ context.Context, user User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == user.Username {
			return User{}, fmt.Errorf("username %q is already taken", user.Username)
		}
		if user.DiscordID != "" && existing.DiscordID == user.DiscordID {
			return User{}, fmt.Errorf("discord id %q is already registered", user.DiscordID)
		}
	}

	if user.TrainerLevel == 0 {
		user.TrainerLevel = 1
	}
	user.ID = m.nextUserID
	m.nextUserID++
	m.users[user.ID] = user

	return user, nil
}

func (m *MemoryStorage) GetPokemonByID(_ context.Context, id int) (Pokemon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	poke, ok := m.pokemon[id]
	if !ok {
		return Pokemon{}, fmt.Errorf("pokemon %d: %w", id, ErrNotFound)
	}
	return clonePokemon(poke), nil
}

func (m *MemoryStorage) CreatePokemon(_ context.Context, poke Pokemon) (Pokemon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	poke = clonePokemon(poke)
	poke.ID = m.nextPokemonID
	m.nextPokemonID++
	m.pokemon[poke.ID] = poke

	return clonePokemon(poke), nil
}

func (m *MemoryStorage) GetUserTeam(_ context.Context, userID int) ([]Pokemon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.FilterMap(m.teams[userID], func(id int, _ int) (Pokemon, bool) {
		poke, ok := m.pokemon[id]
		return clonePokemon(poke), ok
	}), nil
}

func (m *MemoryStorage) AddPokemonToTeam(_ context.Context, userID int, pokemonID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if _, ok := m.pokemon[pokemonID]; !ok {
		return fmt.Errorf("pokemon %d: %w", pokemonID, ErrNotFound)
	}

	// Adding a member twice is a no-op
	if slices.Contains(m.teams[userID], pokemonID) {
		return nil
	}
	m.teams[userID] = append(m.teams[userID], pokemonID)

	return nil
}

func (m *MemoryStorage) CreateActivity(_ context.Context, activity Activity) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity.ID = m.nextActivityID
	m.nextActivityID++
	m.activities = append(m.activities, activity)

	return activity, nil
}

// RecentActivities returns up to limit activities, newest first.
func (m *MemoryStorage) RecentActivities(_ context.Context, limit int) ([]Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	activities := slices.Clone(m.activities)
	slices.SortStableFunc(activities, func(a, b Activity) int {
		if a.Timestamp == b.Timestamp {
			return b.ID - a.ID
		}
		if a.Timestamp > b.Timestamp {
			return -1
		}
		return 1
	})

	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func clonePokemon(p Pokemon) Pokemon {
	p.Types = slices.Clone(p.Types)
	return p
}
