package battle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/nathanieltooley/pokebattle/storage"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var serviceLogger = func() logr.Logger {
	return internalLogger.WithName("service")
}

const (
	FLEE_CHANCE = 0.75

	MIN_OPPONENT_LEVEL    = 5
	OPPONENT_LEVEL_SPREAD = 2
	// Opponents are drawn from the first generation only
	OPPONENT_SPECIES_COUNT = 151

	DEFAULT_OPPONENT_DELAY = time.Second
)

// Service owns every live battle and is the only way to change one. It is safe for concurrent use.
type Service struct {
	roster    Roster
	provider  DataProvider
	factory   *Factory
	store     *Store
	hub       *Hub
	dice      Dice
	clock     Clock
	scheduler Scheduler

	opponentDelay time.Duration
	ttl           time.Duration
}

type Option func(*Service)

func WithDice(dice Dice) Option {
	return func(s *Service) { s.dice = dice }
}

func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithScheduler(scheduler Scheduler) Option {
	return func(s *Service) { s.scheduler = scheduler }
}

func WithOpponentDelay(delay time.Duration) Option {
	return func(s *Service) { s.opponentDelay = delay }
}

// WithTTL evicts battles nobody has touched for ttl. Zero keeps battles until they are ended.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func NewService(roster Roster, provider DataProvider, opts ...Option) *Service {
	seed := CreateRandomStateSeed()
	s := &Service{
		roster:        roster,
		provider:      provider,
		dice:          NewDice(&seed),
		clock:         time.Now,
		scheduler:     TimerScheduler{},
		hub:           NewHub(),
		opponentDelay: DEFAULT_OPPONENT_DELAY,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.factory = NewFactory(provider, s.dice)
	s.store = NewStore(s.clock)
	s.store.onChange = s.hub.Publish

	return s
}

func (s *Service) Hub() *Hub {
	return s.hub
}

// StartBattle starts a battle between the user's pokemon and a random wild opponent.
// Ownership is checked before any species data is fetched.
func (s *Service) StartBattle(ctx context.Context, userID int, pokemonID int) (BattleState, error) {
	if _, err := s.roster.GetUser(ctx, userID); err != nil {
		return BattleState{}, fromStorage(err, "user %d", userID)
	}

	owned, err := s.roster.GetPokemonByID(ctx, pokemonID)
	if err != nil {
		return BattleState{}, fromStorage(err, "pokemon %d", pokemonID)
	}

	team, err := s.roster.GetUserTeam(ctx, userID)
	if err != nil {
		return BattleState{}, fromStorage(err, "team of user %d", userID)
	}
	if !lo.ContainsBy(team, func(p storage.Pokemon) bool { return p.ID == pokemonID }) {
		return BattleState{}, fmt.Errorf("pokemon %d is not in your team: %w", pokemonID, ErrNotFound)
	}

	level := owned.Level
	if level < 1 {
		level = DEFAULT_LEVEL
	}

	opponentLevel := max(level+rollInclusive(s.dice, -OPPONENT_LEVEL_SPREAD, OPPONENT_LEVEL_SPREAD), MIN_OPPONENT_LEVEL)
	opponentSpecies := rollInclusive(s.dice, 1, OPPONENT_SPECIES_COUNT)

	var userSpecies, wildSpecies Species
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		species, err := s.provider.FetchSpecies(groupCtx, speciesKey(owned.Name))
		if err != nil {
			return fmt.Errorf("%w: species %s: %w", ErrDataFetch, owned.Name, err)
		}
		userSpecies = species
		return nil
	})
	group.Go(func() error {
		species, err := s.provider.FetchSpecies(groupCtx, fmt.Sprint(opponentSpecies))
		if err != nil {
			return fmt.Errorf("%w: species %d: %w", ErrDataFetch, opponentSpecies, err)
		}
		wildSpecies = species
		return nil
	})
	if err := group.Wait(); err != nil {
		return BattleState{}, err
	}

	// Built one after the other so a seeded battle always gets the same moves
	userPokemon, err := s.factory.CreateBattlePokemon(ctx, userSpecies, level)
	if err != nil {
		return BattleState{}, err
	}
	opponentPokemon, err := s.factory.CreateBattlePokemon(ctx, wildSpecies, opponentLevel)
	if err != nil {
		return BattleState{}, err
	}

	state := BattleState{
		ID:              fmt.Sprintf("battle_%d_%d", userID, s.clock().UnixMilli()),
		UserID:          userID,
		UserPokemon:     userPokemon,
		OpponentPokemon: opponentPokemon,
		IsUserTurn:      true,
		Messages:        []string{},
		BattleStatus:    StatusActive,
	}
	state.log("A wild %s appeared!", opponentPokemon.Name)

	state.ID = s.store.Insert(state)

	serviceLogger().Info("battle started",
		"battleId", state.ID,
		"userId", userID,
		"userPokemon", userPokemon.Name,
		"opponent", opponentPokemon.Name,
		"opponentLevel", opponentLevel)

	return state, nil
}

// ExecuteMove uses the user's move at moveIndex. If the opponent survives, its reply is scheduled
// and never part of the returned state.
func (s *Service) ExecuteMove(ctx context.Context, battleID string, moveIndex int) (BattleState, error) {
	var userWon bool

	state, err := s.store.Update(battleID, func(state *BattleState) error {
		if err := checkUserCanAct(state); err != nil {
			return err
		}
		if moveIndex < 0 || moveIndex >= len(state.UserPokemon.Moves) {
			return fmt.Errorf("%w: no move in slot %d", ErrInvalidMove, moveIndex)
		}

		move := &state.UserPokemon.Moves[moveIndex]
		if !move.Usable() {
			return fmt.Errorf("%s: %w", move.Name, ErrNoPP)
		}
		move.CurrentPP--

		s.attack(state, &state.UserPokemon, &state.OpponentPokemon, *move)

		if state.OpponentPokemon.Fainted() {
			state.log("%s fainted!", state.OpponentPokemon.Name)
			state.BattleStatus = StatusUserWon
			userWon = true
			return nil
		}

		state.IsUserTurn = false
		state.TurnCount++
		return nil
	})
	if err != nil {
		return BattleState{}, err
	}

	if userWon {
		serviceLogger().Info("battle won", "battleId", battleID, "turns", state.TurnCount)
		s.recordResult(ctx, state, fmt.Sprintf("You won a battle against %s!", state.OpponentPokemon.Name))
		return state, nil
	}

	s.scheduleOpponentTurn(battleID)
	return state, nil
}

// Flee tries to run away. On failure the opponent gets a free turn.
func (s *Service) Flee(ctx context.Context, battleID string) (BattleState, error) {
	fled := false

	state, err := s.store.Update(battleID, func(state *BattleState) error {
		if err := checkActive(state); err != nil {
			return err
		}

		if s.dice.Float64() < FLEE_CHANCE {
			state.log("Got away safely!")
			state.BattleStatus = StatusFled
			fled = true
			return nil
		}

		state.log("Couldn't escape!")
		state.IsUserTurn = false
		state.TurnCount++
		return nil
	})
	if err != nil {
		return BattleState{}, err
	}

	if fled {
		serviceLogger().Info("user fled", "battleId", battleID)
		return state, nil
	}

	s.scheduleOpponentTurn(battleID)
	return state, nil
}

func (s *Service) GetBattleState(battleID string) (BattleState, error) {
	state, ok := s.store.Get(battleID)
	if !ok {
		return BattleState{}, fmt.Errorf("battle %s %w", battleID, ErrNotFound)
	}
	return state, nil
}

// EndBattle discards a battle. Ending a battle that does not exist is fine.
func (s *Service) EndBattle(battleID string) {
	if s.store.Delete(battleID) {
		serviceLogger().V(1).Info("battle ended", "battleId", battleID)
	}
	s.hub.CloseBattle(battleID)
}

func (s *Service) ActiveBattles() int {
	return s.store.Len()
}

// RunJanitor evicts idle battles every interval until ctx is done. It returns immediately when no
// ttl is configured.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}

// EvictIdle removes battles idle for longer than the configured ttl.
func (s *Service) EvictIdle() []string {
	if s.ttl <= 0 {
		return nil
	}

	expired := s.store.Sweep(s.ttl)
	for _, id := range expired {
		s.hub.CloseBattle(id)
	}
	if len(expired) > 0 {
		serviceLogger().Info("evicted idle battles", "count", len(expired), "ttl", s.ttl.String())
	}

	return expired
}

func (s *Service) scheduleOpponentTurn(battleID string) {
	s.scheduler.Schedule(s.opponentDelay, func() {
		s.opponentTurn(battleID)
	})
}

// opponentTurn plays the wild pokemon's move. Stale calls, for battles that ended or were removed
// in the meantime, do nothing.
func (s *Service) opponentTurn(battleID string) {
	var opponentWon bool

	state, err := s.store.Update(battleID, func(state *BattleState) error {
		if state.BattleStatus.Terminal() || state.IsUserTurn {
			return errStaleTurn
		}

		usable := state.OpponentPokemon.UsableMoves()
		if len(usable) == 0 {
			state.log("%s has no moves left!", state.OpponentPokemon.Name)
			state.IsUserTurn = true
			return nil
		}

		move := &state.OpponentPokemon.Moves[usable[s.dice.IntN(len(usable))]]
		move.CurrentPP--

		s.attack(state, &state.OpponentPokemon, &state.UserPokemon, *move)

		if state.UserPokemon.Fainted() {
			state.log("%s fainted!", state.UserPokemon.Name)
			state.BattleStatus = StatusOpponentWon
			opponentWon = true
			return nil
		}

		state.IsUserTurn = true
		state.TurnCount++
		return nil
	})
	if err != nil {
		serviceLogger().V(1).Info("skipped opponent turn", "battleId", battleID, "reason", err.Error())
		return
	}

	if opponentWon {
		serviceLogger().Info("battle lost", "battleId", battleID, "turns", state.TurnCount)
		s.recordResult(context.Background(), state, fmt.Sprintf("You lost a battle against %s.", state.OpponentPokemon.Name))
	}
}

var errStaleTurn = errors.New("opponent turn is stale")

// attack applies one move and narrates it.
func (s *Service) attack(state *BattleState, attacker *BattlePokemon, defender *BattlePokemon, move BattleMove) {
	result := Damage(*attacker, *defender, move, s.dice)
	defender.ApplyDamage(result.Damage)

	state.log("%s used %s!", attacker.Name, move.Name)

	switch {
	case result.Missed:
		state.log("%s's attack missed!", attacker.Name)
		return
	case result.Immune():
		state.log("It doesn't affect %s...", defender.Name)
		return
	}

	if result.Critical {
		state.log("A critical hit!")
	}
	if result.Effectiveness > NEUTRAL_EFFECTIVENESS {
		state.log("It's super effective!")
	} else if result.Effectiveness < NEUTRAL_EFFECTIVENESS {
		state.log("It's not very effective...")
	}
}

// recordResult writes the win/loss activity. A failed write is logged and otherwise ignored.
func (s *Service) recordResult(ctx context.Context, state BattleState, description string) {
	_, err := s.roster.CreateActivity(ctx, storage.Activity{
		Type:        storage.ActivityTypeBattle,
		Description: description,
		Timestamp:   storage.Timestamp(s.clock()),
		UserID:      state.UserID,
	})
	if err != nil {
		serviceLogger().Error(err, "could not record battle result", "battleId", state.ID, "userId", state.UserID)
	}
}

func checkActive(state *BattleState) error {
	if state.BattleStatus.Terminal() {
		return fmt.Errorf("battle %s: %w", state.ID, ErrBattleEnded)
	}
	return nil
}

func checkUserCanAct(state *BattleState) error {
	if err := checkActive(state); err != nil {
		return err
	}
	if !state.IsUserTurn {
		return ErrNotYourTurn
	}
	return nil
}

// speciesKey turns a stored pokemon name into the key the provider looks species up by.
func speciesKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
