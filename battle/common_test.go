package battle_test

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/storage"
)

const iterCount = 1000

type lowSource struct{}

func (lowSource) Uint64() uint64 {
	return 0
}

type highSource struct{}

func (highSource) Uint64() uint64 {
	return math.MaxUint64
}

// scriptedDice hands out queued floats first and then keeps returning fallback.
// IntN always returns 0.
type scriptedDice struct {
	mu       sync.Mutex
	floats   []float64
	fallback float64
	drawn    int
}

func (d *scriptedDice) Float64() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.drawn++
	if len(d.floats) == 0 {
		return d.fallback
	}
	f := d.floats[0]
	d.floats = d.floats[1:]
	return f
}

func (d *scriptedDice) IntN(int) int {
	return 0
}

func (d *scriptedDice) queue(floats ...float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.floats = append(d.floats, floats...)
}

func ptr(i int) *int {
	return &i
}

type fakeProvider struct {
	species map[string]battle.Species
	// returned for any numeric id not in species
	wild       battle.Species
	moves      map[string]battle.MoveData
	brokenMove string

	speciesCalls atomic.Int32
	moveCalls    atomic.Int32
}

func (p *fakeProvider) FetchSpecies(_ context.Context, idOrName string) (battle.Species, error) {
	p.speciesCalls.Add(1)

	if s, ok := p.species[idOrName]; ok {
		return s, nil
	}
	if id, err := strconv.Atoi(idOrName); err == nil && p.wild.Name != "" {
		wild := p.wild
		wild.ID = id
		return wild, nil
	}
	return battle.Species{}, fmt.Errorf("species %s: status 404", idOrName)
}

func (p *fakeProvider) FetchMove(_ context.Context, ref battle.MoveRef) (battle.MoveData, error) {
	p.moveCalls.Add(1)

	if ref.Name == p.brokenMove {
		return battle.MoveData{}, fmt.Errorf("move %s: connection reset", ref.Name)
	}
	move, ok := p.moves[ref.Name]
	if !ok {
		return battle.MoveData{}, fmt.Errorf("move %s: status 404", ref.Name)
	}
	return move, nil
}

func (p *fakeProvider) calls() int {
	return int(p.speciesCalls.Load() + p.moveCalls.Load())
}

func refs(names ...string) []battle.MoveRef {
	out := make([]battle.MoveRef, len(names))
	for i, name := range names {
		out[i] = battle.MoveRef{Name: name, URL: "https://pokeapi.test/move/" + name}
	}
	return out
}

// newProvider knows a sturdy pikachu, a sturdy wild rattata, and a few moves.
func newProvider() *fakeProvider {
	return &fakeProvider{
		species: map[string]battle.Species{
			"pikachu": {
				ID:          25,
				Name:        "pikachu",
				Types:       []string{"electric"},
				FrontSprite: "front/25.png",
				BackSprite:  "back/25.png",
				BaseStats:   map[string]int{"hp": 255},
				MovePool:    refs("thunder-shock", "quick-attack"),
			},
		},
		wild: battle.Species{
			Name:      "rattata",
			Types:     []string{"normal"},
			BaseStats: map[string]int{"hp": 255},
			MovePool:  refs("tackle"),
		},
		moves: map[string]battle.MoveData{
			"thunder-shock": {ID: 84, Name: "thunder-shock", Power: ptr(10), PP: 30, Accuracy: ptr(100), Type: "electric", DamageClass: "special"},
			"quick-attack":  {ID: 98, Name: "quick-attack", Power: ptr(10), PP: 30, Accuracy: ptr(100), Type: "normal", DamageClass: "physical"},
			"tackle":        {ID: 33, Name: "tackle", Power: ptr(10), PP: 35, Accuracy: ptr(100), Type: "normal", DamageClass: "physical"},
			"hyper-beam":    {ID: 63, Name: "hyper-beam", Power: ptr(250), PP: 5, Accuracy: ptr(100), Type: "normal", DamageClass: "special"},
			"growl":         {ID: 45, Name: "growl", PP: 40, Accuracy: ptr(100), Type: "normal", DamageClass: "status"},
		},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	service   *battle.Service
	store     *storage.MemoryStorage
	provider  *fakeProvider
	dice      *scriptedDice
	scheduler *battle.ManualScheduler
	clock     *fakeClock

	user    storage.User
	pikachu storage.Pokemon
}

// newHarness builds a service around a trainer owning a level 50 pikachu. Dice default to
// "always hit, never crit, middle spread, flee succeeds".
func newHarness(t *testing.T, opts ...battle.Option) *harness {
	t.Helper()

	ctx := context.Background()
	h := &harness{
		store:     storage.NewMemoryStorage(),
		provider:  newProvider(),
		dice:      &scriptedDice{fallback: 0.5},
		scheduler: &battle.ManualScheduler{},
		clock:     newFakeClock(),
	}

	user, err := h.store.CreateUser(ctx, storage.User{Username: "ash", DiscordID: "1001"})
	if err != nil {
		t.Fatalf("creating user: %s", err)
	}
	pikachu, err := h.store.CreatePokemon(ctx, storage.Pokemon{Name: "Pikachu", Level: 50, Types: []string{"electric"}, UserID: user.ID})
	if err != nil {
		t.Fatalf("creating pokemon: %s", err)
	}
	if err := h.store.AddPokemonToTeam(ctx, user.ID, pikachu.ID); err != nil {
		t.Fatalf("adding to team: %s", err)
	}

	h.user = user
	h.pikachu = pikachu

	opts = append([]battle.Option{
		battle.WithDice(h.dice),
		battle.WithScheduler(h.scheduler),
		battle.WithClock(h.clock.Now),
	}, opts...)
	h.service = battle.NewService(h.store, h.provider, opts...)

	return h
}

func (h *harness) start(t *testing.T) battle.BattleState {
	t.Helper()

	state, err := h.service.StartBattle(context.Background(), h.user.ID, h.pikachu.ID)
	if err != nil {
		t.Fatalf("starting battle: %s", err)
	}
	return state
}

func countMessages(messages []string, want string) int {
	n := 0
	for _, m := range messages {
		if m == want {
			n++
		}
	}
	return n
}
