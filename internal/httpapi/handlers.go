package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/hub"
	"github.com/DoyleJ11/dipclient/internal/room"
	"github.com/DoyleJ11/dipclient/internal/scenario"
	"github.com/DoyleJ11/dipclient/pkg/types"
)

func GenerateCode() (string, error) {
	const charset = scenario.CodeAlphabet

	code := make([]byte, scenario.CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type handlers struct {
	hub      *hub.Hub
	template *scenario.Scenario
	logger   *zap.Logger
}

// CreateLobby opens a new room playing the server's template scenario under
// a fresh code.
func (hd *handlers) CreateLobby(w http.ResponseWriter, r *http.Request) {
	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to generate code", nil)
			return
		}
		if hd.hub.Room(r.Context(), c) == nil {
			code = c
			break
		}
		hd.logger.Debug("collision on code, regenerating", zap.String("code", c))
	}

	sc := hd.template.Clone()
	sc.Code = code
	sc.Started = false
	reply := make(chan *room.Room, 1)
	hd.hub.Inbox() <- hub.CreateRoom{Scenario: sc, Reply: reply}
	rm := <-reply
	if rm == nil {
		writeError(w, http.StatusInternalServerError, "failed to create lobby", nil)
		return
	}

	lobby, err := ask(r.Context(), rm, func(reply chan types.Lobby) room.Msg { return room.GetLobby{Reply: reply} })
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusCreated, types.LobbyResponse{Envelope: types.Envelope{OK: true}, Lobby: lobby})
}

func (hd *handlers) GetLobby(w http.ResponseWriter, r *http.Request) {
	rm := hd.room(w, r)
	if rm == nil {
		return
	}
	lobby, err := ask(r.Context(), rm, func(reply chan types.Lobby) room.Msg { return room.GetLobby{Reply: reply} })
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, types.LobbyResponse{Envelope: types.Envelope{OK: true}, Lobby: lobby, GameID: lobby.GameID})
}

func (hd *handlers) StartLobby(w http.ResponseWriter, r *http.Request) {
	rm := hd.room(w, r)
	if rm == nil {
		return
	}
	res, err := ask(r.Context(), rm, func(reply chan room.Result[types.Lobby]) room.Msg {
		return room.StartGame{Username: usernameFrom(r.Context()), Reply: reply}
	})
	if !hd.check(w, res.Err, err) {
		return
	}
	writeJSON(w, http.StatusOK, types.LobbyResponse{Envelope: types.Envelope{OK: true}, Lobby: res.Value, GameID: res.Value.GameID})
}

func (hd *handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	rm := hd.room(w, r)
	if rm == nil {
		return
	}
	res, err := ask(r.Context(), rm, func(reply chan room.Result[types.GameResponse]) room.Msg {
		return room.GetGame{Username: usernameFrom(r.Context()), Reply: reply}
	})
	if !hd.check(w, res.Err, err) {
		return
	}
	res.Value.OK = true
	writeJSON(w, http.StatusOK, res.Value)
}

func (hd *handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	rm := hd.room(w, r)
	if rm == nil {
		return
	}
	res, err := ask(r.Context(), rm, func(reply chan room.Result[types.OrdersResponse]) room.Msg {
		return room.GetOrders{Username: usernameFrom(r.Context()), Reply: reply}
	})
	if !hd.check(w, res.Err, err) {
		return
	}
	res.Value.OK = true
	writeJSON(w, http.StatusOK, res.Value)
}

func (hd *handlers) SubmitOrders(w http.ResponseWriter, r *http.Request) {
	rm := hd.room(w, r)
	if rm == nil {
		return
	}
	var body types.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}
	res, err := ask(r.Context(), rm, func(reply chan room.Result[types.SubmitResponse]) room.Msg {
		return room.SubmitOrders{Username: usernameFrom(r.Context()), Orders: body.Orders, Wait: body.Wait, Reply: reply}
	})
	if !hd.check(w, res.Err, err) {
		return
	}
	res.Value.OK = true
	if res.Value.OrdersSubmitted == nil {
		res.Value.OrdersSubmitted = []string{}
	}
	writeJSON(w, http.StatusOK, res.Value)
}

func (hd *handlers) ProcessPhase(w http.ResponseWriter, r *http.Request) {
	rm := hd.room(w, r)
	if rm == nil {
		return
	}
	res, err := ask(r.Context(), rm, func(reply chan room.Result[types.ProcessResponse]) room.Msg {
		return room.ProcessPhase{Username: usernameFrom(r.Context()), Reply: reply}
	})
	if !hd.check(w, res.Err, err) {
		return
	}
	res.Value.OK = true
	writeJSON(w, http.StatusOK, res.Value)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (hd *handlers) room(w http.ResponseWriter, r *http.Request) *room.Room {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	rm := hd.hub.Room(r.Context(), code)
	if rm == nil {
		writeError(w, http.StatusNotFound, "Lobby not found", nil)
	}
	return rm
}

// check writes the error response for a failed room call and reports
// whether the handler may continue.
func (hd *handlers) check(w http.ResponseWriter, roomErr, callErr error) bool {
	if callErr != nil {
		writeError(w, http.StatusServiceUnavailable, callErr.Error(), nil)
		return false
	}
	if roomErr == nil {
		return true
	}

	var invalid *room.InvalidOrdersError
	switch {
	case errors.As(roomErr, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error(), types.InvalidOrdersDetails{InvalidOrders: invalid.Invalid})
	case errors.Is(roomErr, room.ErrNotInGame), errors.Is(roomErr, room.ErrNotHost):
		writeError(w, http.StatusForbidden, roomErr.Error(), nil)
	default:
		writeError(w, http.StatusBadRequest, roomErr.Error(), nil)
	}
	return false
}

// ask sends a request to a room and waits for its reply.
func ask[T any](ctx context.Context, rm *room.Room, build func(reply chan T) room.Msg) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case rm.Inbox() <- build(reply):
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details any) {
	env := types.Envelope{OK: false, Error: msg}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			env.Details = raw
		}
	}
	writeJSON(w, status, env)
}
