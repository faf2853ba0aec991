// Package bot is the chat front end for battles. It turns "!" commands into engine calls and
// renders the result as plain text.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/storage"
	"github.com/rs/zerolog"
)

const (
	CMD_REGISTER = "!register"
	CMD_BATTLE   = "!battle"
	CMD_MOVE     = "!move"
	CMD_FLEE     = "!flee"
	CMD_END      = "!end"
	CMD_STATUS   = "!status"
	CMD_TEAM     = "!team"
	CMD_HELP     = "!help"
)

const (
	msgNotRegistered     = "You need to register first! Use `!register` to sign up."
	msgAlreadyRegistered = "You are already registered! Use `!battle` to start a battle."
	msgRegisterFailed    = "An error occurred while registering. Please try again later."
	msgEmptyTeam         = "You don't have any Pokémon in your team! Catch a Pokémon first."
	msgPokemonNotFound   = "Pokémon not found! Make sure to use a valid Pokémon ID."
	msgNotInTeam         = "This Pokémon is not in your team!"
	msgNoBattle          = "You're not in a battle! Use `!battle` to start one."
	msgBattleNotFound    = "Battle not found!"
	msgNotYourTurn       = "It's not your turn!"
	msgBattleEnded       = "This battle has ended!"
	msgNoPP              = "That move has no PP left!"
	msgInvalidMove       = "Invalid move! Pick a number between 1 and 4."
	msgDataFetch         = "Couldn't reach the Pokédex. Please try again later."
	msgStartFailed       = "An error occurred while starting the battle. Please try again later."
	msgBattleError       = "An error occurred during the battle. Please try again later."
)

type Message struct {
	AuthorID string `json:"authorId"`
	// Display name used when the author registers
	Username string `json:"username,omitempty"`
	Content  string `json:"content"`
}

type Reply struct {
	Content   string `json:"content"`
	BattleID  string `json:"battleId,omitempty"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

// Empty replies are never sent back to the channel.
func (r Reply) Empty() bool {
	return r.Content == ""
}

type Users interface {
	storage.Registry
	GetUserTeam(ctx context.Context, userID int) ([]storage.Pokemon, error)
	GetPokemonByID(ctx context.Context, id int) (storage.Pokemon, error)
}

type Battles interface {
	StartBattle(ctx context.Context, userID int, pokemonID int) (battle.BattleState, error)
	ExecuteMove(ctx context.Context, battleID string, moveIndex int) (battle.BattleState, error)
	Flee(ctx context.Context, battleID string) (battle.BattleState, error)
	GetBattleState(battleID string) (battle.BattleState, error)
	EndBattle(battleID string)
}

// Bot remembers the battle each author is currently fighting. It is safe for concurrent use.
type Bot struct {
	users   Users
	battles Battles
	logger  zerolog.Logger

	mu     sync.Mutex
	active map[string]string
}

func New(users Users, battles Battles, logger zerolog.Logger) *Bot {
	return &Bot{
		users:   users,
		battles: battles,
		logger:  logger.With().Str("component", "bot").Logger(),
		active:  make(map[string]string),
	}
}

// Handle answers a single chat message. Messages that are not commands get an empty reply.
func (b *Bot) Handle(ctx context.Context, msg Message) Reply {
	content := strings.ToLower(strings.TrimSpace(msg.Content))
	if !strings.HasPrefix(content, "!") {
		return Reply{}
	}

	args := strings.Fields(content)
	b.logger.Info().Str("author", msg.AuthorID).Str("content", content).Msg("command received")

	switch args[0] {
	case CMD_REGISTER:
		return b.handleRegister(ctx, msg)
	case CMD_BATTLE:
		return b.handleBattle(ctx, msg.AuthorID, args[1:])
	case CMD_MOVE:
		return b.handleMove(ctx, msg.AuthorID, args[1:])
	case CMD_FLEE:
		return b.withActive(msg.AuthorID, func(battleID string) Reply {
			state, err := b.battles.Flee(ctx, battleID)
			return b.stateReply(msg.AuthorID, state, err)
		})
	case CMD_STATUS:
		return b.withActive(msg.AuthorID, func(battleID string) Reply {
			state, err := b.battles.GetBattleState(battleID)
			return b.stateReply(msg.AuthorID, state, err)
		})
	case CMD_END:
		return b.withActive(msg.AuthorID, func(battleID string) Reply {
			b.battles.EndBattle(battleID)
			b.forget(msg.AuthorID)
			return Reply{Content: "Battle ended.", BattleID: battleID}
		})
	case CMD_TEAM:
		return b.handleTeam(ctx, msg.AuthorID)
	case CMD_HELP:
		return Reply{Content: helpText}
	}

	return Reply{}
}

// ActiveBattle returns the battle the author is fighting, if any.
func (b *Bot) ActiveBattle(authorID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.active[authorID]
	return id, ok
}

func (b *Bot) remember(authorID string, battleID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active[authorID] = battleID
}

func (b *Bot) forget(authorID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, authorID)
}

func (b *Bot) withActive(authorID string, action func(battleID string) Reply) Reply {
	battleID, ok := b.ActiveBattle(authorID)
	if !ok {
		return Reply{Content: msgNoBattle, Ephemeral: true}
	}
	return action(battleID)
}

func (b *Bot) trainer(ctx context.Context, authorID string) (storage.User, []storage.Pokemon, *Reply) {
	user, err := b.users.GetUserByDiscordID(ctx, authorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, nil, &Reply{Content: msgNotRegistered}
		}
		b.logger.Err(err).Str("author", authorID).Msg("failed to look up trainer")
		return storage.User{}, nil, &Reply{Content: msgStartFailed}
	}

	team, err := b.users.GetUserTeam(ctx, user.ID)
	if err != nil {
		b.logger.Err(err).Int("user", user.ID).Msg("failed to load team")
		return storage.User{}, nil, &Reply{Content: msgStartFailed}
	}

	return user, team, nil
}

func (b *Bot) handleBattle(ctx context.Context, authorID string, args []string) Reply {
	user, team, reply := b.trainer(ctx, authorID)
	if reply != nil {
		return *reply
	}

	var pokemonID int
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return Reply{Content: msgPokemonNotFound}
		}
		if _, err := b.users.GetPokemonByID(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return Reply{Content: msgPokemonNotFound}
			}
			b.logger.Err(err).Int("pokemon", id).Msg("failed to look up pokemon")
			return Reply{Content: msgStartFailed}
		}
		pokemonID = id
	} else {
		if len(team) == 0 {
			return Reply{Content: msgEmptyTeam}
		}
		pokemonID = team[0].ID
	}

	state, err := b.battles.StartBattle(ctx, user.ID, pokemonID)
	if err != nil {
		switch {
		case errors.Is(err, battle.ErrNotFound):
			return Reply{Content: msgNotInTeam}
		case errors.Is(err, battle.ErrDataFetch):
			return Reply{Content: msgDataFetch}
		}
		b.logger.Err(err).Int("user", user.ID).Int("pokemon", pokemonID).Msg("failed to start battle")
		return Reply{Content: msgStartFailed}
	}

	if previous, ok := b.ActiveBattle(authorID); ok {
		b.battles.EndBattle(previous)
	}
	b.remember(authorID, state.ID)

	return Reply{Content: RenderBattle(state), BattleID: state.ID}
}

func (b *Bot) handleRegister(ctx context.Context, msg Message) Reply {
	username := strings.TrimSpace(msg.Username)
	if username == "" {
		username = "trainer_" + msg.AuthorID
	}

	user, err := storage.RegisterTrainer(ctx, b.users, username, msg.AuthorID)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyRegistered) {
			return Reply{Content: msgAlreadyRegistered, Ephemeral: true}
		}
		b.logger.Err(err).Str("author", msg.AuthorID).Msg("failed to register trainer")
		return Reply{Content: msgRegisterFailed}
	}

	b.logger.Info().Int("user", user.ID).Str("author", msg.AuthorID).Msg("trainer registered")
	return Reply{Content: fmt.Sprintf(
		"Welcome %s! You are now registered as a Pokémon trainer. Use `!team` to view your team and `!battle` to start battling!",
		username,
	)}
}

func (b *Bot) handleMove(ctx context.Context, authorID string, args []string) Reply {
	return b.withActive(authorID, func(battleID string) Reply {
		if len(args) == 0 {
			return Reply{Content: msgInvalidMove, Ephemeral: true}
		}
		number, err := strconv.Atoi(args[0])
		if err != nil || number < 1 {
			return Reply{Content: msgInvalidMove, Ephemeral: true}
		}

		state, err := b.battles.ExecuteMove(ctx, battleID, number-1)
		return b.stateReply(authorID, state, err)
	})
}

func (b *Bot) handleTeam(ctx context.Context, authorID string) Reply {
	_, team, reply := b.trainer(ctx, authorID)
	if reply != nil {
		return *reply
	}
	if len(team) == 0 {
		return Reply{Content: msgEmptyTeam}
	}

	var sb strings.Builder
	sb.WriteString("**Your Team**\n")
	for _, poke := range team {
		fmt.Fprintf(&sb, "#%d %s (Lv. %d) %s\n", poke.ID, battle.FormatName(poke.Name), poke.Level, battle.FormatTypes(poke.Types))
	}
	return Reply{Content: sb.String()}
}

// stateReply renders a battle after an action, or explains why the action was refused.
func (b *Bot) stateReply(authorID string, state battle.BattleState, err error) Reply {
	if err != nil {
		if errors.Is(err, battle.ErrNotFound) {
			b.forget(authorID)
		}
		return Reply{Content: errorMessage(err), Ephemeral: true}
	}

	return Reply{Content: RenderBattle(state), BattleID: state.ID}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, battle.ErrNotFound):
		return msgBattleNotFound
	case errors.Is(err, battle.ErrNotYourTurn):
		return msgNotYourTurn
	case errors.Is(err, battle.ErrBattleEnded):
		return msgBattleEnded
	case errors.Is(err, battle.ErrNoPP):
		return msgNoPP
	case errors.Is(err, battle.ErrInvalidMove):
		return msgInvalidMove
	case errors.Is(err, battle.ErrDataFetch):
		return msgDataFetch
	}
	return msgBattleError
}

var helpText = strings.Join([]string{
	"**Pokémon Battle Commands**",
	"`!register` Register as a trainer to start your journey.",
	"`!battle [pokemonId]` Start a battle. Without an id your first team member is used.",
	"`!move <1-4>` Use one of your moves.",
	"`!flee` Try to run away.",
	"`!status` Show the current battle.",
	"`!end` Leave the battle.",
	"`!team` View your current Pokémon team.",
	"`!help` Display this help message.",
}, "\n")
