package battle

import (
	"fmt"
	"sync"
	"time"
)

// Clock returns the current time. Swapped out in tests.
type Clock func() time.Time

type storedBattle struct {
	// Serializes every mutation of this battle
	mu      sync.Mutex
	state   BattleState
	touched time.Time
	removed bool
}

// Store is the registry of live battles. Reads hand out deep copies; writes go through Update so
// that one battle is only ever mutated by one caller at a time.
type Store struct {
	mu      sync.RWMutex
	battles map[string]*storedBattle
	clock   Clock

	// Called with every committed state while the battle is still locked
	onChange func(BattleState)
}

func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}

	return &Store{
		battles: make(map[string]*storedBattle),
		clock:   clock,
	}
}

// Insert stores a new battle and returns the id it was stored under. If the id is already taken
// a numeric suffix is appended.
func (s *Store) Insert(state BattleState) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := state.ID
	for n := 1; ; n++ {
		if _, taken := s.battles[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s_%d", state.ID, n)
	}

	state.ID = id
	s.battles[id] = &storedBattle{state: state.Clone(), touched: s.clock()}

	return id
}

func (s *Store) lookup(id string) (*storedBattle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	battle, ok := s.battles[id]
	return battle, ok
}

func (s *Store) Get(id string) (BattleState, bool) {
	battle, ok := s.lookup(id)
	if !ok {
		return BattleState{}, false
	}

	battle.mu.Lock()
	defer battle.mu.Unlock()

	if battle.removed {
		return BattleState{}, false
	}
	return battle.state.Clone(), true
}

// Update runs mutate against a copy of the battle and commits the copy only if mutate succeeds,
// so a rejected action never leaves partial changes behind.
func (s *Store) Update(id string, mutate func(state *BattleState) error) (BattleState, error) {
	battle, ok := s.lookup(id)
	if !ok {
		return BattleState{}, fmt.Errorf("battle %s %w", id, ErrNotFound)
	}

	battle.mu.Lock()
	defer battle.mu.Unlock()

	if battle.removed {
		return BattleState{}, fmt.Errorf("battle %s %w", id, ErrNotFound)
	}

	next := battle.state.Clone()
	if err := mutate(&next); err != nil {
		return BattleState{}, err
	}

	battle.state = next
	battle.touched = s.clock()

	if s.onChange != nil {
		s.onChange(next.Clone())
	}

	return next.Clone(), nil
}

// Delete removes a battle. Deleting a battle that does not exist is not an error.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	battle, ok := s.battles[id]
	delete(s.battles, id)
	s.mu.Unlock()

	if !ok {
		return false
	}

	battle.mu.Lock()
	battle.removed = true
	battle.mu.Unlock()

	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.battles)
}

// Sweep deletes every battle that has not been touched for longer than ttl and returns their ids.
func (s *Store) Sweep(ttl time.Duration) []string {
	cutoff := s.clock().Add(-ttl)

	s.mu.RLock()
	var expired []string
	for id, battle := range s.battles {
		battle.mu.Lock()
		if battle.touched.Before(cutoff) {
			expired = append(expired, id)
		}
		battle.mu.Unlock()
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.Delete(id)
	}

	return expired
}
