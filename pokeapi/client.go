// Package pokeapi fetches species and move data from PokeAPI (https://pokeapi.co).
package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const DefaultBaseURL = "https://pokeapi.co/api/v2"

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	// Extra attempts after a network error or a 5xx response
	Retries      int
	RetryBackoff time.Duration
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d for %s", e.StatusCode, e.URL)
}

func (e *StatusError) temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client implements battle.DataProvider.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *responseCache
	logger     zerolog.Logger
}

func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 200 * time.Millisecond
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache:  newResponseCache(config.CacheTTL),
		logger: logger.With().Str("component", "pokeapi").Logger(),
	}
}

// FetchSpecies looks a pokemon up by pokedex number or name.
func (c *Client) FetchSpecies(ctx context.Context, idOrName string) (battle.Species, error) {
	key := strings.ToLower(strings.TrimSpace(idOrName))
	if key == "" {
		return battle.Species{}, errors.New("empty species identifier")
	}

	var resp pokemonResponse
	if err := c.getJSON(ctx, c.url("pokemon", key), &resp); err != nil {
		return battle.Species{}, fmt.Errorf("failed to fetch pokemon %s: %w", key, err)
	}

	return resp.toSpecies(), nil
}

// FetchMove resolves a move reference, preferring its url and falling back to its name.
func (c *Client) FetchMove(ctx context.Context, ref battle.MoveRef) (battle.MoveData, error) {
	url := ref.URL
	if url == "" {
		if ref.Name == "" {
			return battle.MoveData{}, errors.New("empty move reference")
		}
		url = c.url("move", ref.Name)
	}

	var resp moveResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return battle.MoveData{}, fmt.Errorf("failed to fetch move %s: %w", ref.Name, err)
	}

	return battle.MoveData{
		ID:          resp.ID,
		Name:        resp.Name,
		Power:       resp.Power,
		PP:          resp.PP,
		Accuracy:    resp.Accuracy,
		Type:        resp.Type.Name,
		DamageClass: resp.DamageClass.Name,
	}, nil
}

func (c *Client) url(resource string, key string) string {
	return fmt.Sprintf("%s/%s/%s/", strings.TrimRight(c.config.BaseURL, "/"), resource, key)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if body, ok := c.cache.get(url); ok {
		return json.Unmarshal(body, out)
	}

	var body []byte
	var err error
	for attempt := 0; attempt <= c.config.Retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn().Err(err).Str("url", url).Int("attempt", attempt).Msg("retrying request")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryBackoff * time.Duration(attempt)):
			}
		}

		body, err = c.get(ctx, url)
		if err == nil || !retryable(ctx, err) {
			break
		}
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}

	c.cache.put(url, body)
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.Debug().Str("url", url).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("pokeapi request")

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.temporary()
	}
	// transport level failure
	return true
}

func (p pokemonResponse) toSpecies() battle.Species {
	return battle.Species{
		ID:   p.ID,
		Name: p.Name,
		Types: lo.Map(p.Types, func(slot typeSlot, _ int) string {
			return slot.Type.Name
		}),
		FrontSprite: p.Sprites.FrontDefault,
		BackSprite:  p.Sprites.BackDefault,
		BaseStats: lo.SliceToMap(p.Stats, func(stat baseStat) (string, int) {
			return stat.Stat.Name, stat.BaseStat
		}),
		MovePool: lo.Map(p.Moves, func(slot moveSlot, _ int) battle.MoveRef {
			return battle.MoveRef{Name: slot.Move.Name, URL: slot.Move.URL}
		}),
	}
}
