// Package api serves battles over HTTP. It is a thin layer over battle.Service: path parsing,
// caller identification, JSON encoding and error mapping.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/bot"
	"github.com/nathanieltooley/pokebattle/storage"
	"github.com/rs/zerolog"
)

const (
	UserIDHeader = "X-User-ID"
	// Query fallback for clients that cannot set headers, like browser websockets
	UserIDQuery = "userId"

	RECENT_ACTIVITY_LIMIT = 10
)

type Options struct {
	// Used when a request does not identify its user
	DefaultUserID int
	// Bounds battle creation, which waits on the species provider
	StartTimeout time.Duration
}

type Server struct {
	battles *battle.Service
	store   storage.Storage
	chat    *bot.Bot
	logger  zerolog.Logger
	options Options

	router *mux.Router
}

func NewServer(battles *battle.Service, store storage.Storage, chat *bot.Bot, logger zerolog.Logger, options Options) *Server {
	if options.DefaultUserID == 0 {
		options.DefaultUserID = 1
	}

	s := &Server{
		battles: battles,
		store:   store,
		chat:    chat,
		logger:  logger,
		options: options,
		router:  mux.NewRouter(),
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestContext, s.accessLog, s.recoverPanics)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/team", s.handleTeam).Methods(http.MethodGet)
	s.router.HandleFunc("/activities", s.handleActivities).Methods(http.MethodGet)
	s.router.HandleFunc("/interactions", s.handleInteraction).Methods(http.MethodPost)

	battles := s.router.PathPrefix("/battles").Subrouter()
	battles.HandleFunc("/start/{pokemonId}", s.handleStart).Methods(http.MethodPost)
	battles.HandleFunc("/{battleId}", s.handleGet).Methods(http.MethodGet)
	battles.HandleFunc("/{battleId}/move/{moveIndex}", s.handleMove).Methods(http.MethodPost)
	battles.HandleFunc("/{battleId}/flee", s.handleFlee).Methods(http.MethodPost)
	battles.HandleFunc("/{battleId}/end", s.handleEnd).Methods(http.MethodPost)
	battles.HandleFunc("/{battleId}/ws", s.handleStream).Methods(http.MethodGet)

	// Subrouters don't inherit these from their parent
	for _, router := range []*mux.Router{s.router, battles} {
		router.NotFoundHandler = http.HandlerFunc(routeNotFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "route not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// userID identifies the caller from the user header, the user query parameter, or the default.
func (s *Server) userID(r *http.Request) (int, error) {
	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		raw = r.URL.Query().Get(UserIDQuery)
	}
	if raw == "" {
		return s.options.DefaultUserID, nil
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid user id %q", errBadRequest, raw)
	}
	return id, nil
}

// ownedBattle loads a battle and hides it from everyone but its owner.
func (s *Server) ownedBattle(r *http.Request) (battle.BattleState, error) {
	userID, err := s.userID(r)
	if err != nil {
		return battle.BattleState{}, err
	}

	battleID := mux.Vars(r)["battleId"]
	state, err := s.battles.GetBattleState(battleID)
	if err != nil {
		return battle.BattleState{}, err
	}
	if state.UserID != userID {
		return battle.BattleState{}, fmt.Errorf("battle %s %w", battleID, battle.ErrNotFound)
	}

	return state, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"activeBattles": s.battles.ActiveBattles(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pokemonID, err := intVar(r, "pokemonId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.options.StartTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.StartTimeout)
		defer cancel()
	}

	state, err := s.battles.StartBattle(ctx, userID, pokemonID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, state)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	state, err := s.ownedBattle(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ownedBattle(r); err != nil {
		writeError(w, r, err)
		return
	}
	moveIndex, err := intVar(r, "moveIndex")
	if err != nil {
		writeError(w, r, err)
		return
	}

	state, err := s.battles.ExecuteMove(r.Context(), mux.Vars(r)["battleId"], moveIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleFlee(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ownedBattle(r); err != nil {
		writeError(w, r, err)
		return
	}

	state, err := s.battles.Flee(r.Context(), mux.Vars(r)["battleId"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleEnd is idempotent: ending an unknown battle still succeeds.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	battleID := mux.Vars(r)["battleId"]
	if state, err := s.battles.GetBattleState(battleID); err == nil && state.UserID != userID {
		writeError(w, r, fmt.Errorf("battle %s %w", battleID, battle.ErrNotFound))
		return
	}

	s.battles.EndBattle(battleID)
	writeMessage(w, http.StatusOK, "Battle ended")
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.store.GetUser(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.store.GetUserTeam(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if team == nil {
		team = []storage.Pokemon{}
	}

	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.store.RecentActivities(r.Context(), RECENT_ACTIVITY_LIMIT)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if activities == nil {
		activities = []storage.Activity{}
	}

	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var msg bot.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if msg.AuthorID == "" {
		writeError(w, r, fmt.Errorf("%w: authorId is required", errBadRequest))
		return
	}

	reply := s.chat.Handle(r.Context(), msg)
	if reply.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}
