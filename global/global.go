// Package global holds process wide setup shared by the server and the terminal client:
// configuration, logging, and the battle dice.
package global

import (
	"io"
	"os"

	"github.com/go-logr/zerologr"
	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CreateLogger logs human readable lines to console and json lines to a rolling file in LogDir.
func CreateLogger(config GlobalConfig, console io.Writer, fileName string) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if config.Debug {
		level = zerolog.DebugLevel
	}

	fileWriter, err := NewRollingFileWriter(config.LogDir, fileName)
	if err != nil {
		return zerolog.Nop(), err
	}

	writers := []io.Writer{fileWriter}
	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: console})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Caller().Logger().Level(level), nil
}

// Init installs logger as the global zerolog logger and as the battle engine's logger.
func Init(logger zerolog.Logger) {
	log.Logger = logger

	// V(1) and V(2) engine logs map to debug and trace
	zerologr.SetMaxV(2)
	battle.SetInternalLogger(zerologr.New(&logger))
}

// InitFromConfig is Init for the common case of logging to stdout and the log dir. When the log
// dir can not be used it falls back to stdout only.
func InitFromConfig(config GlobalConfig, fileName string) zerolog.Logger {
	logger, err := CreateLogger(config, os.Stdout, fileName)
	if err != nil {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		logger.Err(err).Str("logDir", config.LogDir).Msg("could not open log file, logging to stdout only")
	}

	Init(logger)
	return logger
}

// NewDice returns the dice battles are rolled with: seeded from RandomSeed when set, random otherwise.
func NewDice(config GlobalConfig) battle.Dice {
	if config.RandomSeed != 0 {
		return battle.NewSeededDice(config.RandomSeed, config.RandomSeed)
	}

	seed := battle.CreateRandomStateSeed()
	return battle.NewDice(&seed)
}
