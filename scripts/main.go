package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/global"
	"github.com/nathanieltooley/pokebattle/pokeapi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Development helpers for poking at battle data without running the server.
//
//	go run ./scripts species <name|id> [level]
//	go run ./scripts chart <attackType> <defenseType>...
func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	args := os.Args[1:]
	if len(args) < 1 {
		log.Fatal().Msg("Not enough arguments")
	}

	scriptName := args[0]

	switch scriptName {
	case "species":
		if len(args) < 2 {
			log.Fatal().Msg("Usage: species <name|id> [level]")
		}
		level := battle.DEFAULT_LEVEL
		if len(args) > 2 {
			if _, err := fmt.Sscan(args[2], &level); err != nil {
				log.Fatal().Err(err).Msg("Invalid level")
			}
		}
		speciesMain(args[1], level)
	case "chart":
		if len(args) < 3 {
			log.Fatal().Msg("Usage: chart <attackType> <defenseType>...")
		}
		chartMain(args[1], args[2:])
	default:
		log.Fatal().Str("script", scriptName).Msg("Unknown script")
	}
}

// speciesMain builds a battle pokemon the way a battle would and prints it.
func speciesMain(idOrName string, level int) {
	config, err := global.LoadConfig(global.DefaultConfigLocation())
	if err != nil {
		config = global.DefaultConfig()
	}

	client := pokeapi.NewClient(pokeapi.Config{
		BaseURL: config.PokeAPIBaseURL,
		Timeout: config.RequestTimeout(),
		Retries: config.FetchRetries,
	}, log.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	species, err := client.FetchSpecies(ctx, idOrName)
	if err != nil {
		log.Fatal().Err(err).Str("species", idOrName).Msg("Failed to fetch species")
	}
	log.Info().Int("moves", len(species.MovePool)).Msgf("Fetched %s", species.Name)

	poke, err := battle.NewFactory(client, global.NewDice(config)).CreateBattlePokemon(ctx, species, level)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pokemon")
	}

	out, err := json.MarshalIndent(poke, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode pokemon")
	}
	fmt.Println(string(out))
}

func chartMain(attackType string, defenseTypes []string) {
	attackType = strings.ToLower(attackType)
	for i, t := range defenseTypes {
		defenseTypes[i] = strings.ToLower(t)
	}

	multiplier := battle.DefenseEffectiveness(attackType, defenseTypes)
	fmt.Printf("%s -> %s: x%g\n", battle.FormatName(attackType), battle.FormatTypes(defenseTypes), multiplier)
}
