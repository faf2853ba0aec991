package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pikachuJSON = `{
	"id": 25,
	"name": "pikachu",
	"types": [{"slot": 1, "type": {"name": "electric", "url": "https://pokeapi.co/api/v2/type/13/"}}],
	"stats": [
		{"base_stat": 35, "stat": {"name": "hp"}},
		{"base_stat": 55, "stat": {"name": "attack"}}
	],
	"moves": [
		{"move": {"name": "thunder-shock", "url": "%[1]s/move/thunder-shock/"}},
		{"move": {"name": "growl", "url": "%[1]s/move/growl/"}}
	],
	"sprites": {"front_default": "https://img/front/25.png", "back_default": "https://img/back/25.png"}
}`

const growlJSON = `{
	"id": 45,
	"name": "growl",
	"power": null,
	"pp": 40,
	"accuracy": 100,
	"type": {"name": "normal"},
	"damage_class": {"name": "status"}
}`

type fakeAPI struct {
	server *httptest.Server
	hits   atomic.Int32
	fails  atomic.Int32
}

// newFakeAPI serves pikachu and growl. The first `failures` requests get a 503.
func newFakeAPI(t *testing.T, failures int32) *fakeAPI {
	api := &fakeAPI{}
	api.fails.Store(failures)

	mux := http.NewServeMux()
	mux.HandleFunc("/pokemon/{key}/", func(w http.ResponseWriter, r *http.Request) {
		api.hits.Add(1)
		if api.fails.Add(-1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		key := r.PathValue("key")
		if key != "pikachu" && key != "25" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, pikachuJSON, api.server.URL)
	})
	mux.HandleFunc("/move/growl/", func(w http.ResponseWriter, r *http.Request) {
		api.hits.Add(1)
		fmt.Fprint(w, growlJSON)
	})

	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)

	return api
}

func newTestClient(api *fakeAPI, retries int) *Client {
	return NewClient(Config{
		BaseURL:      api.server.URL,
		Timeout:      time.Second,
		CacheTTL:     time.Minute,
		Retries:      retries,
		RetryBackoff: time.Millisecond,
	}, zerolog.Nop())
}

func TestFetchSpecies(t *testing.T) {
	api := newFakeAPI(t, 0)
	client := newTestClient(api, 0)

	species, err := client.FetchSpecies(context.Background(), "Pikachu")
	require.NoError(t, err)

	assert.Equal(t, 25, species.ID)
	assert.Equal(t, "pikachu", species.Name)
	assert.Equal(t, []string{"electric"}, species.Types)
	assert.Equal(t, 35, species.BaseStat("hp", 50))
	assert.Equal(t, 50, species.BaseStat("speed", 50))
	assert.Equal(t, "https://img/back/25.png", species.BackSprite)
	require.Len(t, species.MovePool, 2)
	assert.Equal(t, battle.MoveRef{Name: "growl", URL: api.server.URL + "/move/growl/"}, species.MovePool[1])
}

func TestFetchMove(t *testing.T) {
	api := newFakeAPI(t, 0)
	client := newTestClient(api, 0)

	move, err := client.FetchMove(context.Background(), battle.MoveRef{Name: "growl"})
	require.NoError(t, err)

	assert.Equal(t, 45, move.ID)
	assert.Nil(t, move.Power)
	require.NotNil(t, move.Accuracy)
	assert.Equal(t, 100, *move.Accuracy)
	assert.Equal(t, "status", move.DamageClass)

	// null power falls back to the default once it becomes a battle move
	assert.Equal(t, battle.DEFAULT_POWER, battle.NewBattleMove(move).Power)
}

func TestResponsesAreCached(t *testing.T) {
	api := newFakeAPI(t, 0)
	client := newTestClient(api, 0)

	for range 5 {
		_, err := client.FetchSpecies(context.Background(), "pikachu")
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, api.hits.Load())
	assert.Equal(t, 1, client.cache.len())
}

func TestCacheExpires(t *testing.T) {
	api := newFakeAPI(t, 0)
	client := newTestClient(api, 0)

	now := time.Now()
	client.cache.now = func() time.Time { return now }

	_, err := client.FetchSpecies(context.Background(), "pikachu")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = client.FetchSpecies(context.Background(), "pikachu")
	require.NoError(t, err)

	assert.EqualValues(t, 2, api.hits.Load())
}

func TestNotFoundIsNotRetried(t *testing.T) {
	api := newFakeAPI(t, 0)
	client := newTestClient(api, 3)

	_, err := client.FetchSpecies(context.Background(), "missingno")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.EqualValues(t, 1, api.hits.Load())
}

func TestServerErrorsAreRetried(t *testing.T) {
	api := newFakeAPI(t, 2)
	client := newTestClient(api, 2)

	species, err := client.FetchSpecies(context.Background(), "25")
	require.NoError(t, err)

	assert.Equal(t, "pikachu", species.Name)
	assert.EqualValues(t, 3, api.hits.Load())
}

func TestRetriesRunOut(t *testing.T) {
	api := newFakeAPI(t, 10)
	client := newTestClient(api, 1)

	_, err := client.FetchSpecies(context.Background(), "pikachu")
	require.Error(t, err)

	assert.EqualValues(t, 2, api.hits.Load())
	assert.Equal(t, 0, client.cache.len())
}

func TestCancelledContext(t *testing.T) {
	api := newFakeAPI(t, 0)
	client := newTestClient(api, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchSpecies(ctx, "pikachu")
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmptyIdentifiers(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())

	_, err := client.FetchSpecies(context.Background(), "  ")
	assert.Error(t, err)

	_, err = client.FetchMove(context.Background(), battle.MoveRef{})
	assert.Error(t, err)
}
