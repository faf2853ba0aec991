package battle_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/storage"
)

func TestStartBattle(t *testing.T) {
	h := newHarness(t)

	state := h.start(t)

	if !strings.HasPrefix(state.ID, "battle_1_") {
		t.Fatalf("unexpected battle id %q", state.ID)
	}
	if state.BattleStatus != battle.StatusActive || !state.IsUserTurn || state.TurnCount != 0 {
		t.Fatalf("bad initial state: %+v", state)
	}
	if len(state.Messages) != 1 || state.Messages[0] != "A wild Rattata appeared!" {
		t.Fatalf("unexpected opening log: %v", state.Messages)
	}
	if state.UserPokemon.Name != "Pikachu" || state.UserPokemon.Level != 50 {
		t.Fatalf("unexpected user pokemon: %+v", state.UserPokemon)
	}
	// IntN always rolls 0: the lowest level offset and species #1
	if state.OpponentPokemon.Level != 48 || state.OpponentPokemon.ID != 1 {
		t.Fatalf("unexpected opponent: %+v", state.OpponentPokemon)
	}

	stored, err := h.service.GetBattleState(state.ID)
	if err != nil {
		t.Fatalf("battle was not stored: %s", err)
	}
	if stored.OpponentPokemon.CurrentHP != state.OpponentPokemon.MaxHP {
		t.Fatalf("opponent should start at full hp")
	}
}

func TestStartBattleIDsAreUnique(t *testing.T) {
	h := newHarness(t)

	first := h.start(t)
	second := h.start(t)

	if first.ID == second.ID {
		t.Fatalf("two battles started in the same millisecond share id %q", first.ID)
	}
	if h.service.ActiveBattles() != 2 {
		t.Fatalf("expected 2 live battles, got %d", h.service.ActiveBattles())
	}
}

func TestStartBattleNotInTeam(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	other, _ := h.store.CreateUser(ctx, storage.User{Username: "gary", DiscordID: "2002"})
	eevee, _ := h.store.CreatePokemon(ctx, storage.Pokemon{Name: "Eevee", Level: 20, UserID: other.ID})
	_ = h.store.AddPokemonToTeam(ctx, other.ID, eevee.ID)

	_, err := h.service.StartBattle(ctx, h.user.ID, eevee.ID)
	if !errors.Is(err, battle.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if h.provider.calls() != 0 {
		t.Fatalf("provider was called %d times before the ownership check", h.provider.calls())
	}
}

func TestStartBattleMissingRecords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.service.StartBattle(ctx, 999, h.pikachu.ID); !errors.Is(err, battle.ErrNotFound) {
		t.Fatalf("unknown user: expected ErrNotFound, got %v", err)
	}
	if _, err := h.service.StartBattle(ctx, h.user.ID, 999); !errors.Is(err, battle.ErrNotFound) {
		t.Fatalf("unknown pokemon: expected ErrNotFound, got %v", err)
	}
	if h.provider.calls() != 0 {
		t.Fatalf("provider should not be called, was called %d times", h.provider.calls())
	}
}

func TestStartBattleDataFetchError(t *testing.T) {
	h := newHarness(t)
	h.provider.brokenMove = "tackle"

	_, err := h.service.StartBattle(context.Background(), h.user.ID, h.pikachu.ID)
	if !errors.Is(err, battle.ErrDataFetch) {
		t.Fatalf("expected ErrDataFetch, got %v", err)
	}
	if h.service.ActiveBattles() != 0 {
		t.Fatalf("a failed start must not store a battle")
	}
}

func TestOpponentLevelRange(t *testing.T) {
	h := newHarness(t, battle.WithDice(battle.NewSeededDice(3, 4)))
	ctx := context.Background()

	weak, _ := h.store.CreatePokemon(ctx, storage.Pokemon{Name: "Pikachu", Level: 0, UserID: h.user.ID})
	_ = h.store.AddPokemonToTeam(ctx, h.user.ID, weak.ID)

	for range 200 {
		state, err := h.service.StartBattle(ctx, h.user.ID, h.pikachu.ID)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if lvl := state.OpponentPokemon.Level; lvl < 48 || lvl > 52 {
			t.Fatalf("opponent level %d outside [48, 52]", lvl)
		}
		if id := state.OpponentPokemon.ID; id < 1 || id > 151 {
			t.Fatalf("opponent species %d outside [1, 151]", id)
		}

		state, err = h.service.StartBattle(ctx, h.user.ID, weak.ID)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if state.UserPokemon.Level != battle.DEFAULT_LEVEL {
			t.Fatalf("unset level should battle at %d, got %d", battle.DEFAULT_LEVEL, state.UserPokemon.Level)
		}
		if lvl := state.OpponentPokemon.Level; lvl < 5 || lvl > 7 {
			t.Fatalf("opponent level %d outside [5, 7]", lvl)
		}
	}
}

func TestTurnAlternation(t *testing.T) {
	h := newHarness(t)
	state := h.start(t)

	state, err := h.service.ExecuteMove(context.Background(), state.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if state.IsUserTurn || state.TurnCount != 1 {
		t.Fatalf("after the user move: isUserTurn=%v turnCount=%d", state.IsUserTurn, state.TurnCount)
	}
	if countMessages(state.Messages, "Pikachu used Thunder Shock!") != 1 {
		t.Fatalf("missing move log: %v", state.Messages)
	}
	if countMessages(state.Messages, "Rattata used Tackle!") != 0 {
		t.Fatalf("opponent turn leaked into the move response: %v", state.Messages)
	}
	if state.UserPokemon.Moves[0].CurrentPP != 29 {
		t.Fatalf("expected 29 pp left, got %d", state.UserPokemon.Moves[0].CurrentPP)
	}
	if state.OpponentPokemon.CurrentHP >= state.OpponentPokemon.MaxHP {
		t.Fatalf("opponent took no damage")
	}

	if h.scheduler.Pending() != 1 {
		t.Fatalf("expected a scheduled opponent turn, got %d", h.scheduler.Pending())
	}
	h.scheduler.RunPending()

	state, _ = h.service.GetBattleState(state.ID)
	if !state.IsUserTurn || state.TurnCount != 2 {
		t.Fatalf("after the opponent move: isUserTurn=%v turnCount=%d", state.IsUserTurn, state.TurnCount)
	}
	if countMessages(state.Messages, "Rattata used Tackle!") != 1 {
		t.Fatalf("missing opponent log: %v", state.Messages)
	}
	if state.OpponentPokemon.Moves[0].CurrentPP != 34 {
		t.Fatalf("opponent pp not spent")
	}
	if state.UserPokemon.CurrentHP >= state.UserPokemon.MaxHP {
		t.Fatalf("user took no damage")
	}
}

func TestExecuteMoveChecks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	state := h.start(t)

	if _, err := h.service.ExecuteMove(ctx, "battle_404", 0); !errors.Is(err, battle.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, index := range []int{-1, 2, 4} {
		if _, err := h.service.ExecuteMove(ctx, state.ID, index); !errors.Is(err, battle.ErrInvalidMove) {
			t.Fatalf("index %d: expected ErrInvalidMove, got %v", index, err)
		}
	}

	if _, err := h.service.ExecuteMove(ctx, state.ID, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, err := h.service.ExecuteMove(ctx, state.ID, 0); !errors.Is(err, battle.ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
}

func TestNoPPNeverGoesNegative(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.provider.moves["thunder-shock"] = battle.MoveData{ID: 84, Name: "thunder-shock", Power: ptr(10), PP: 1, Accuracy: ptr(100), Type: "electric"}
	state := h.start(t)

	if _, err := h.service.ExecuteMove(ctx, state.ID, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	h.scheduler.RunPending()

	before, _ := h.service.GetBattleState(state.ID)
	for range 10 {
		_, err := h.service.ExecuteMove(ctx, state.ID, 0)
		if !errors.Is(err, battle.ErrNoPP) || !errors.Is(err, battle.ErrInvalidMove) {
			t.Fatalf("expected ErrNoPP, got %v", err)
		}
	}

	after, _ := h.service.GetBattleState(state.ID)
	if pp := after.UserPokemon.Moves[0].CurrentPP; pp != 0 {
		t.Fatalf("pp changed to %d", pp)
	}
	if len(after.Messages) != len(before.Messages) || after.TurnCount != before.TurnCount || !after.IsUserTurn {
		t.Fatalf("a rejected move changed the battle")
	}
}

func TestWinEndsBattleImmediately(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.provider.species["pikachu"] = withMoves(h.provider.species["pikachu"], "hyper-beam")
	h.provider.wild.BaseStats = map[string]int{"hp": 1}
	state := h.start(t)

	state, err := h.service.ExecuteMove(ctx, state.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if state.BattleStatus != battle.StatusUserWon {
		t.Fatalf("expected userWon, got %s", state.BattleStatus)
	}
	if state.OpponentPokemon.CurrentHP != 0 {
		t.Fatalf("hp should floor at 0, got %d", state.OpponentPokemon.CurrentHP)
	}
	if countMessages(state.Messages, "Rattata fainted!") != 1 {
		t.Fatalf("missing faint log: %v", state.Messages)
	}
	if h.scheduler.Pending() != 0 {
		t.Fatalf("no opponent turn should follow a knockout")
	}

	activities, _ := h.store.RecentActivities(ctx, 10)
	if len(activities) != 1 || activities[0].Description != "You won a battle against Rattata!" || activities[0].Type != "battle" {
		t.Fatalf("unexpected activities: %+v", activities)
	}

	checkTerminal(t, h, state.ID)
}

func TestLossRecordsActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.provider.species["pikachu"] = battle.Species{
		ID:        25,
		Name:      "pikachu",
		Types:     []string{"electric"},
		BaseStats: map[string]int{"hp": 1},
		MovePool:  refs("thunder-shock"),
	}
	h.provider.wild.MovePool = refs("hyper-beam")
	state := h.start(t)

	if _, err := h.service.ExecuteMove(ctx, state.ID, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	h.scheduler.RunPending()

	state, _ = h.service.GetBattleState(state.ID)
	if state.BattleStatus != battle.StatusOpponentWon {
		t.Fatalf("expected opponentWon, got %s", state.BattleStatus)
	}
	if state.UserPokemon.CurrentHP != 0 || countMessages(state.Messages, "Pikachu fainted!") != 1 {
		t.Fatalf("user pokemon should have fainted: %v", state.Messages)
	}
	if state.TurnCount != 1 {
		t.Fatalf("a knockout does not finish the turn, got turn count %d", state.TurnCount)
	}

	activities, _ := h.store.RecentActivities(ctx, 10)
	if len(activities) != 1 || activities[0].Description != "You lost a battle against Rattata." {
		t.Fatalf("unexpected activities: %+v", activities)
	}

	checkTerminal(t, h, state.ID)
}

func TestFleeAlwaysSucceeds(t *testing.T) {
	h := newHarness(t)
	h.dice.fallback = 0

	for range iterCount {
		state := h.start(t)

		state, err := h.service.Flee(context.Background(), state.ID)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if state.BattleStatus != battle.StatusFled {
			t.Fatalf("expected fled, got %s", state.BattleStatus)
		}
		if countMessages(state.Messages, "Got away safely!") != 1 || len(state.Messages) != 2 {
			t.Fatalf("unexpected log: %v", state.Messages)
		}
		if h.scheduler.Pending() != 0 {
			t.Fatalf("fleeing should not hand the opponent a turn")
		}

		h.service.EndBattle(state.ID)
	}
}

func TestFleeFailureGivesOpponentATurn(t *testing.T) {
	h := newHarness(t)
	state := h.start(t)
	h.dice.queue(0.9)

	state, err := h.service.Flee(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if state.BattleStatus != battle.StatusActive || state.IsUserTurn || state.TurnCount != 1 {
		t.Fatalf("bad state after a failed flee: %+v", state)
	}
	if state.Messages[len(state.Messages)-1] != "Couldn't escape!" {
		t.Fatalf("unexpected log: %v", state.Messages)
	}

	h.scheduler.RunPending()
	state, _ = h.service.GetBattleState(state.ID)
	if !state.IsUserTurn || state.TurnCount != 2 || countMessages(state.Messages, "Rattata used Tackle!") != 1 {
		t.Fatalf("opponent did not take its free turn: %+v", state)
	}
}

func TestOpponentWithoutPP(t *testing.T) {
	h := newHarness(t)
	h.provider.moves["tackle"] = battle.MoveData{ID: 33, Name: "tackle", Power: ptr(10), PP: 0, Accuracy: ptr(100), Type: "normal"}
	state := h.start(t)

	if _, err := h.service.ExecuteMove(context.Background(), state.ID, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	h.scheduler.RunPending()

	state, _ = h.service.GetBattleState(state.ID)
	if !state.IsUserTurn || state.UserPokemon.CurrentHP != state.UserPokemon.MaxHP {
		t.Fatalf("opponent without pp should just pass: %+v", state)
	}
	if countMessages(state.Messages, "Rattata has no moves left!") != 1 {
		t.Fatalf("missing log: %v", state.Messages)
	}
}

func TestStaleOpponentTurn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// battle removed before the opponent gets to move
	state := h.start(t)
	if _, err := h.service.ExecuteMove(ctx, state.ID, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	h.service.EndBattle(state.ID)
	h.scheduler.RunPending()

	if _, err := h.service.GetBattleState(state.ID); !errors.Is(err, battle.ErrNotFound) {
		t.Fatalf("ended battle came back: %v", err)
	}

	// battle fled before the opponent gets to move
	state = h.start(t)
	if _, err := h.service.ExecuteMove(ctx, state.ID, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	fled, err := h.service.Flee(ctx, state.ID)
	if err != nil || fled.BattleStatus != battle.StatusFled {
		t.Fatalf("flee failed: %v", err)
	}
	h.scheduler.RunPending()

	after, _ := h.service.GetBattleState(state.ID)
	if len(after.Messages) != len(fled.Messages) || after.TurnCount != fled.TurnCount {
		t.Fatalf("stale opponent turn changed a finished battle: %v", after.Messages)
	}
}

func TestEndBattleIsIdempotent(t *testing.T) {
	h := newHarness(t)
	state := h.start(t)

	h.service.EndBattle(state.ID)
	h.service.EndBattle(state.ID)
	h.service.EndBattle("battle_never_existed")

	if _, err := h.service.GetBattleState(state.ID); !errors.Is(err, battle.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEvictIdle(t *testing.T) {
	h := newHarness(t, battle.WithTTL(30*time.Minute))

	idle := h.start(t)
	h.clock.Advance(20 * time.Minute)
	busy := h.start(t)
	h.clock.Advance(15 * time.Minute)

	evicted := h.service.EvictIdle()
	if len(evicted) != 1 || evicted[0] != idle.ID {
		t.Fatalf("expected only %s to be evicted, got %v", idle.ID, evicted)
	}
	if _, err := h.service.GetBattleState(busy.ID); err != nil {
		t.Fatalf("busy battle was evicted: %s", err)
	}

	// Acting on a battle keeps it alive
	h.clock.Advance(10 * time.Minute)
	if _, err := h.service.ExecuteMove(context.Background(), busy.ID, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	h.clock.Advance(25 * time.Minute)
	if evicted := h.service.EvictIdle(); len(evicted) != 0 {
		t.Fatalf("recently used battle was evicted")
	}
}

func TestNoTTLKeepsBattles(t *testing.T) {
	h := newHarness(t)
	state := h.start(t)
	h.clock.Advance(24 * time.Hour)

	if evicted := h.service.EvictIdle(); len(evicted) != 0 {
		t.Fatalf("battles should never expire without a ttl")
	}
	if _, err := h.service.GetBattleState(state.ID); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

type failingActivities struct {
	*storage.MemoryStorage
}

func (failingActivities) CreateActivity(context.Context, storage.Activity) (storage.Activity, error) {
	return storage.Activity{}, errors.New("database is down")
}

func TestActivityFailureDoesNotFailMove(t *testing.T) {
	h := newHarness(t)
	h.provider.species["pikachu"] = withMoves(h.provider.species["pikachu"], "hyper-beam")
	h.provider.wild.BaseStats = map[string]int{"hp": 1}
	service := battle.NewService(failingActivities{h.store}, h.provider, battle.WithDice(h.dice), battle.WithScheduler(h.scheduler))

	state, err := service.StartBattle(context.Background(), h.user.ID, h.pikachu.ID)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	state, err = service.ExecuteMove(context.Background(), state.ID, 0)
	if err != nil {
		t.Fatalf("activity failure leaked into the move: %s", err)
	}
	if state.BattleStatus != battle.StatusUserWon {
		t.Fatalf("expected userWon, got %s", state.BattleStatus)
	}
}

func TestReturnedStateIsACopy(t *testing.T) {
	h := newHarness(t)
	state := h.start(t)

	state.UserPokemon.Moves[0].CurrentPP = 0
	state.Messages[0] = "tampered"
	state.UserPokemon.Types[0] = "ghost"

	stored, _ := h.service.GetBattleState(state.ID)
	if stored.UserPokemon.Moves[0].CurrentPP == 0 || stored.Messages[0] == "tampered" || stored.UserPokemon.Types[0] == "ghost" {
		t.Fatalf("stored battle was changed through a returned copy")
	}
}

func TestConcurrentMovesAreSerialized(t *testing.T) {
	h := newHarness(t)
	state := h.start(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.service.ExecuteMove(context.Background(), state.ID, 0)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if !errors.Is(err, battle.ErrNotYourTurn) {
				t.Errorf("unexpected error: %s", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one move to go through, got %d", succeeded)
	}

	stored, _ := h.service.GetBattleState(state.ID)
	if stored.UserPokemon.Moves[0].CurrentPP != 29 || stored.TurnCount != 1 {
		t.Fatalf("concurrent moves corrupted the battle: %+v", stored)
	}
}

func TestHubSeesEveryChange(t *testing.T) {
	h := newHarness(t)
	state := h.start(t)

	updates, cancel := h.service.Hub().Subscribe(state.ID)
	defer cancel()

	if _, err := h.service.ExecuteMove(context.Background(), state.ID, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if update := <-updates; update.TurnCount != 1 || update.IsUserTurn {
		t.Fatalf("unexpected first update: %+v", update)
	}

	h.scheduler.RunPending()
	if update := <-updates; update.TurnCount != 2 || !update.IsUserTurn {
		t.Fatalf("unexpected second update: %+v", update)
	}

	h.service.EndBattle(state.ID)
	if _, open := <-updates; open {
		t.Fatalf("ending the battle should close subscriptions")
	}
}

func withMoves(species battle.Species, moves ...string) battle.Species {
	species.MovePool = refs(moves...)
	return species
}

func checkTerminal(t *testing.T, h *harness, battleID string) {
	t.Helper()
	ctx := context.Background()

	for range 3 {
		if _, err := h.service.ExecuteMove(ctx, battleID, 0); !errors.Is(err, battle.ErrBattleEnded) {
			t.Fatalf("move on a finished battle: expected ErrBattleEnded, got %v", err)
		}
		if _, err := h.service.Flee(ctx, battleID); !errors.Is(err, battle.ErrBattleEnded) {
			t.Fatalf("flee on a finished battle: expected ErrBattleEnded, got %v", err)
		}
	}
}
