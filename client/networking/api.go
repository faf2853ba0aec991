// Package networking talks to the battle server's REST api.
package networking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/storage"
)

const (
	DEFAULT_SERVER = "http://localhost:8080"
	DEFAULT_USER   = 1

	userIDHeader = "X-User-ID"
)

// ApiError is a non-2xx answer from the server.
type ApiError struct {
	StatusCode int
	Message    string
}

func (e *ApiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return e.Message
}

type Client struct {
	baseURL    string
	userID     int
	httpClient *http.Client
}

func NewClient(baseURL string, userID int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientFromEnv reads POKEBATTLE_SERVER and POKEBATTLE_USER.
func NewClientFromEnv() *Client {
	server := os.Getenv("POKEBATTLE_SERVER")
	if server == "" {
		server = DEFAULT_SERVER
	}

	userID, err := strconv.Atoi(os.Getenv("POKEBATTLE_USER"))
	if err != nil || userID < 1 {
		userID = DEFAULT_USER
	}

	return NewClient(server, userID)
}

func (c *Client) UserID() int {
	return c.userID
}

func (c *Client) Team(ctx context.Context) ([]storage.Pokemon, error) {
	var team []storage.Pokemon
	err := c.do(ctx, http.MethodGet, "/team", &team)
	return team, err
}

func (c *Client) StartBattle(ctx context.Context, pokemonID int) (battle.BattleState, error) {
	var state battle.BattleState
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/battles/start/%d", pokemonID), &state)
	return state, err
}

func (c *Client) Battle(ctx context.Context, battleID string) (battle.BattleState, error) {
	var state battle.BattleState
	err := c.do(ctx, http.MethodGet, "/battles/"+battleID, &state)
	return state, err
}

func (c *Client) Move(ctx context.Context, battleID string, moveIndex int) (battle.BattleState, error) {
	var state battle.BattleState
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/battles/%s/move/%d", battleID, moveIndex), &state)
	return state, err
}

func (c *Client) Flee(ctx context.Context, battleID string) (battle.BattleState, error) {
	var state battle.BattleState
	err := c.do(ctx, http.MethodPost, "/battles/"+battleID+"/flee", &state)
	return state, err
}

func (c *Client) EndBattle(ctx context.Context, battleID string) error {
	return c.do(ctx, http.MethodPost, "/battles/"+battleID+"/end", nil)
}

func (c *Client) do(ctx context.Context, method string, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set(userIDHeader, strconv.Itoa(c.userID))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting battle server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &ApiError{StatusCode: resp.StatusCode}
		var body struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Message = body.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
