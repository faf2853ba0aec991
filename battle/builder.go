package battle

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

var builderLogger = func() logr.Logger {
	return internalLogger.WithName("pokemon-builder")
}

const (
	DEFAULT_LEVEL    = 5
	DEFAULT_BASE_HP  = 50
	DEFAULT_POWER    = 40
	DEFAULT_ACCURACY = 100
	MAX_MOVES        = 4
)

// MaxHP is the simplified hp formula used for every battle pokemon.
func MaxHP(baseHP int, level int) int {
	return (2*baseHP*level)/100 + level + 10
}

// PokemonBuilder assembles a BattlePokemon from species data.
type PokemonBuilder struct {
	poke   BattlePokemon
	baseHP int
}

func NewPokeBuilder(species Species) *PokemonBuilder {
	poke := BattlePokemon{
		ID:            species.ID,
		Name:          FormatName(species.Name),
		Level:         DEFAULT_LEVEL,
		Types:         slices.Clone(species.Types),
		ImageURLFront: species.FrontSprite,
		ImageURLBack:  species.BackSprite,
	}

	return &PokemonBuilder{poke: poke, baseHP: species.BaseStat("hp", DEFAULT_BASE_HP)}
}

// SetLevel sets the level, where anything below 1 means "unknown" and falls back to DEFAULT_LEVEL.
func (pb *PokemonBuilder) SetLevel(level int) *PokemonBuilder {
	if level < 1 {
		level = DEFAULT_LEVEL
	}
	pb.poke.Level = level
	return pb
}

func (pb *PokemonBuilder) SetMoves(moves ...BattleMove) *PokemonBuilder {
	pb.poke.Moves = slices.Clone(moves)
	return pb
}

func (pb *PokemonBuilder) Build() BattlePokemon {
	pb.poke.MaxHP = MaxHP(pb.baseHP, pb.poke.Level)
	pb.poke.CurrentHP = pb.poke.MaxHP

	builderLogger().V(1).Info("built pokemon", "name", pb.poke.Name, "level", pb.poke.Level, "maxHp", pb.poke.MaxHP, "moves", len(pb.poke.Moves))

	return pb.poke.Clone()
}

// NewBattleMove converts provider move data, filling in the defaults for missing power and accuracy.
func NewBattleMove(data MoveData) BattleMove {
	power := DEFAULT_POWER
	if data.Power != nil && *data.Power > 0 {
		power = *data.Power
	}

	accuracy := DEFAULT_ACCURACY
	if data.Accuracy != nil && *data.Accuracy > 0 {
		accuracy = *data.Accuracy
	}

	return BattleMove{
		ID:          data.ID,
		Name:        FormatName(data.Name),
		Power:       power,
		PP:          data.PP,
		Accuracy:    accuracy,
		Type:        data.Type,
		DamageClass: data.DamageClass,
		CurrentPP:   data.PP,
	}
}

// Factory turns species data into battle-ready pokemon, resolving their moves through a DataProvider.
type Factory struct {
	provider   DataProvider
	dice       Dice
	fetchLimit int
}

func NewFactory(provider DataProvider, dice Dice) *Factory {
	return &Factory{provider: provider, dice: dice, fetchLimit: MAX_MOVES}
}

// CreateBattlePokemon builds a pokemon at level with up to MAX_MOVES moves picked at random from
// the species' move pool. Any failed move lookup aborts the whole build with ErrDataFetch.
func (f *Factory) CreateBattlePokemon(ctx context.Context, species Species, level int) (BattlePokemon, error) {
	picked := pickMoveIndices(len(species.MovePool), MAX_MOVES, f.dice)
	moves := make([]BattleMove, len(picked))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.fetchLimit)

	for slot, poolIndex := range picked {
		ref := species.MovePool[poolIndex]
		group.Go(func() error {
			data, err := f.provider.FetchMove(groupCtx, ref)
			if err != nil {
				return fmt.Errorf("%w: move %s: %w", ErrDataFetch, ref.Name, err)
			}

			moves[slot] = NewBattleMove(data)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return BattlePokemon{}, err
	}

	return NewPokeBuilder(species).SetLevel(level).SetMoves(moves...).Build(), nil
}

// pickMoveIndices picks count distinct indices out of [0, poolSize). Pools that are already small
// enough are returned whole and in order.
func pickMoveIndices(poolSize int, count int, dice Dice) []int {
	indices := make([]int, poolSize)
	for i := range indices {
		indices[i] = i
	}

	if poolSize <= count {
		return indices
	}

	// Partial Fisher-Yates: the first count slots end up as a uniform sample
	for i := range count {
		j := i + dice.IntN(poolSize-i)
		indices[i], indices[j] = indices[j], indices[i]
	}

	return indices[:count]
}
