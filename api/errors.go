package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/storage"
	"github.com/rs/zerolog"
)

var errBadRequest = errors.New("bad request")

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// statusFor maps an error onto the http status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, battle.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, battle.ErrBattleEnded), errors.Is(err, battle.ErrNotYourTurn):
		return http.StatusConflict
	case errors.Is(err, battle.ErrInvalidMove):
		return http.StatusBadRequest
	case errors.Is(err, battle.ErrDataFetch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Err(err).Msg("request failed")
		message = "internal server error"
	} else {
		zerolog.Ctx(r.Context()).Debug().Err(err).Int("status", status).Msg("request rejected")
	}

	writeMessage(w, status, message)
}

// intVar reads a numeric path variable.
func intVar(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", errBadRequest, name, raw)
	}
	return value, nil
}
