package global

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DEFAULT_OPPONENT_DELAY_MS = 1000
	DEFAULT_FETCH_RETRIES     = 2
)

type GlobalConfig struct {
	ListenAddr            string
	PokeAPIBaseURL        string
	DatabaseURL           string
	OpponentDelayMs       int
	BattleTTLMinutes      int
	DefaultUserID         int
	RequestTimeoutSeconds int
	CacheTTLMinutes       int
	FetchRetries          int
	Debug                 bool
	LogDir                string
	// Non-zero seeds make every battle reproducible
	RandomSeed uint64
}

func DefaultConfig() GlobalConfig {
	return populateConfig(GlobalConfig{OpponentDelayMs: DEFAULT_OPPONENT_DELAY_MS, FetchRetries: DEFAULT_FETCH_RETRIES})
}

func (c GlobalConfig) OpponentDelay() time.Duration {
	return time.Duration(c.OpponentDelayMs) * time.Millisecond
}

func (c GlobalConfig) BattleTTL() time.Duration {
	return time.Duration(c.BattleTTLMinutes) * time.Minute
}

func (c GlobalConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c GlobalConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func DefaultConfigDir() string {
	configDir, _ := os.UserConfigDir()
	return filepath.Join(configDir, "pokebattle")
}

func DefaultConfigLocation() string {
	if location := os.Getenv("POKEBATTLE_CONFIG"); location != "" {
		return location
	}
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// LoadConfig reads the config file at location, writing one with default values if it is missing
// or empty, and then applies environment overrides.
func LoadConfig(location string) (GlobalConfig, error) {
	if err := os.MkdirAll(filepath.Dir(location), 0750); err != nil {
		return GlobalConfig{}, err
	}

	configContents, err := os.ReadFile(location)
	if err != nil && !os.IsNotExist(err) {
		return GlobalConfig{}, err
	}

	// Fields missing from the file keep their default, explicit zeroes are kept
	config := DefaultConfig()
	if len(configContents) > 0 {
		if err := json.Unmarshal(configContents, &config); err != nil {
			return GlobalConfig{}, err
		}
		config = populateConfig(config)
	} else {
		config = DefaultConfig()
		if err := SaveConfig(location, config); err != nil {
			return GlobalConfig{}, err
		}
	}

	return applyEnv(config), nil
}

func SaveConfig(location string, config GlobalConfig) error {
	jsonString, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(location, jsonString, 0640)
}

func populateConfig(config GlobalConfig) GlobalConfig {
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.PokeAPIBaseURL == "" {
		config.PokeAPIBaseURL = "https://pokeapi.co/api/v2"
	}
	if config.OpponentDelayMs < 0 {
		config.OpponentDelayMs = DEFAULT_OPPONENT_DELAY_MS
	}
	// A negative ttl turns expiry off, zero means "use the default"
	if config.BattleTTLMinutes == 0 {
		config.BattleTTLMinutes = 30
	}
	if config.DefaultUserID == 0 {
		config.DefaultUserID = 1
	}
	if config.RequestTimeoutSeconds <= 0 {
		config.RequestTimeoutSeconds = 10
	}
	if config.CacheTTLMinutes <= 0 {
		config.CacheTTLMinutes = 60
	}
	if config.FetchRetries < 0 {
		config.FetchRetries = DEFAULT_FETCH_RETRIES
	}
	if config.LogDir == "" {
		config.LogDir = filepath.Join(DefaultConfigDir(), "logs")
	}

	return config
}

func applyEnv(config GlobalConfig) GlobalConfig {
	if port := os.Getenv("PORT"); port != "" {
		config.ListenAddr = ":" + port
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.DatabaseURL = dbURL
	}
	if baseURL := os.Getenv("POKEAPI_BASE_URL"); baseURL != "" {
		config.PokeAPIBaseURL = baseURL
	}
	if debug, err := strconv.ParseBool(os.Getenv("POKEBATTLE_DEBUG")); err == nil {
		config.Debug = debug
	}

	return config
}
