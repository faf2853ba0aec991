package battle

import (
	"errors"
	"fmt"

	"github.com/nathanieltooley/pokebattle/storage"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrBattleEnded = errors.New("battle has already ended")
	ErrNotYourTurn = errors.New("it's not your turn")
	ErrInvalidMove = errors.New("invalid move")
	// ErrNoPP also matches ErrInvalidMove
	ErrNoPP      = fmt.Errorf("%w: no pp left", ErrInvalidMove)
	ErrDataFetch = errors.New("failed to fetch pokemon data")
)

// fromStorage maps a persistence failure onto the engine's errors.
func fromStorage(err error, format string, args ...any) error {
	subject := fmt.Sprintf(format, args...)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s %w", subject, ErrNotFound)
	}
	return fmt.Errorf("loading %s: %w", subject, err)
}
