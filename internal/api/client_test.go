package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/dipclient/internal/state"
	"github.com/DoyleJ11/dipclient/internal/submission"
	"github.com/DoyleJ11/dipclient/pkg/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "tok-123")
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchLobbyConvertsWireState(t *testing.T) {
	power := "FRANCE"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/lobby/ABCD", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, types.LobbyResponse{
			Envelope: types.Envelope{OK: true},
			Lobby: types.Lobby{
				Code:    "ABCD",
				Status:  types.LobbyStarted,
				MapName: "standard",
				NPowers: 7,
				Players: []types.Player{
					{Username: "u1", DisplayName: "Ann", IsHost: true, Power: &power},
					{Username: "u2", DisplayName: "Bob"},
				},
			},
		})
	})

	lobby, err := c.FetchLobby(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, state.StatusStarted, lobby.Status)
	assert.Equal(t, 7, lobby.PowerCount)
	p, ok := lobby.Find("u1")
	require.True(t, ok)
	assert.Equal(t, "FRANCE", p.Power)
	assert.True(t, p.IsHost)
	p, _ = lobby.Find("u2")
	assert.Empty(t, p.Power)
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, types.Envelope{OK: false, Error: "You are not in this game"})
	})

	_, err := c.FetchGame(context.Background(), "ABCD")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "You are not in this game", apiErr.Message)
}

func TestFetchGameAndOrders(t *testing.T) {
	you := "FRANCE"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/lobby/ABCD/game":
			writeJSON(w, http.StatusOK, types.GameResponse{
				Envelope:  types.Envelope{OK: true},
				Phase:     "S1901M",
				YourPower: &you,
				Powers: map[string]types.Power{
					"FRANCE": {Units: []string{"A PAR"}, Centers: []string{"PAR"}, OrderIsSet: 2, Wait: true},
				},
			})
		case "/api/lobby/ABCD/orders":
			writeJSON(w, http.StatusOK, types.OrdersResponse{
				Envelope:           types.Envelope{OK: true},
				Phase:              "S1901M",
				Power:              "FRANCE",
				OrderableLocations: []string{"PAR"},
				PossibleOrders:     map[string][]string{"PAR": {"A PAR H"}},
			})
		default:
			http.NotFound(w, r)
		}
	})

	game, err := c.FetchGame(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.Equal(t, "S1901M", game.Phase)
	assert.Equal(t, "FRANCE", game.YourPower)
	assert.True(t, game.Powers["FRANCE"].OrderIsSet)

	legal, err := c.FetchLegalOrders(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.Equal(t, []string{"PAR"}, legal.Orderable)
	assert.Equal(t, []string{"A PAR H"}, legal.Possible["PAR"])
}

func TestSubmitOrdersAlignsResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.SubmitRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Wait)
		writeJSON(w, http.StatusOK, types.SubmitResponse{
			Envelope:        types.Envelope{OK: true},
			OrdersSubmitted: req.Orders[:1],
		})
	})

	res, err := c.SubmitOrders(context.Background(), "ABCD", []string{"A PAR H", "A MAR H"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "not accepted"}, res.Results)
}

func TestSubmitEmptyBatchSendsEmptyList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.JSONEq(t, `[]`, string(raw["orders"]))
		writeJSON(w, http.StatusOK, types.SubmitResponse{Envelope: types.Envelope{OK: true}})
	})

	res, err := c.SubmitOrders(context.Background(), "ABCD", nil, false)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestSubmitRejectionCarriesReasons(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		details, _ := json.Marshal(types.InvalidOrdersDetails{InvalidOrders: []types.InvalidOrder{
			{Order: "A MAR - MUN", Reason: "Not in possible orders"},
		}})
		writeJSON(w, http.StatusBadRequest, types.Envelope{OK: false, Error: "1 invalid order(s)", Details: details})
	})

	_, err := c.SubmitOrders(context.Background(), "ABCD", []string{"A PAR H", "A MAR - MUN"}, false)
	var subErr *submission.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, []string{"", "Not in possible orders"}, subErr.Reasons)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestForceProcess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/lobby/ABCD/process", r.URL.Path)
		writeJSON(w, http.StatusOK, types.ProcessResponse{
			Envelope:      types.Envelope{OK: true},
			PreviousPhase: "S1901M",
			NewPhase:      "F1901M",
		})
	})

	res, err := c.ForceProcess(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.Equal(t, "F1901M", res.NewPhase)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8432", "")
	require.Error(t, err)
}

func TestUsernameReadsSubject(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	name, err := Username(tok)
	require.NoError(t, err)
	assert.Equal(t, "user_42", name)

	_, err = Username("")
	require.ErrorIs(t, err, ErrMissingToken)
	_, err = Username("not-a-jwt")
	require.Error(t, err)
}
