package types

import "encoding/json"

// Every response carries {"ok": bool}; failures add "error" and sometimes
// "details".
type Envelope struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

type Player struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	IsHost      bool    `json:"is_host"`
	Power       *string `json:"power"`
}

// Lobby status values on the wire.
const (
	LobbyWaiting = "waiting"
	LobbyStarted = "started"
)

type Lobby struct {
	Code         string   `json:"code"`
	MapName      string   `json:"map_name"`
	Assignment   string   `json:"assignment"`
	NPowers      int      `json:"n_powers"`
	Status       string   `json:"status"`
	Players      []Player `json:"players"`
	PlayerCount  int      `json:"player_count"`
	HostUsername string   `json:"host_username"`
	GameID       *string  `json:"game_id"`
}

// GET /api/lobby/{code} and POST /api/lobby/{code}/start
type LobbyResponse struct {
	Envelope
	Lobby  Lobby   `json:"lobby"`
	GameID *string `json:"game_id,omitempty"`
}

// GET /api/lobby/{code}/orders
type OrdersResponse struct {
	Envelope
	Code                  string              `json:"code"`
	Phase                 string              `json:"phase"`
	Power                 string              `json:"power"`
	Units                 []string            `json:"units"`
	Centers               []string            `json:"centers"`
	OrderableLocations    []string            `json:"orderable_locations"`
	PossibleOrders        map[string][]string `json:"possible_orders"`
	AllPossibleOrders     map[string][]string `json:"all_possible_orders,omitempty"`
	AllOrderableLocations map[string][]string `json:"all_orderable_locations,omitempty"`
}

// POST /api/lobby/{code}/orders
type SubmitRequest struct {
	Orders []string `json:"orders"`
	Wait   bool     `json:"wait"`
}

type SubmitResponse struct {
	Envelope
	Code            string   `json:"code"`
	Power           string   `json:"power"`
	OrdersSubmitted []string `json:"orders_submitted"`
	Wait            bool     `json:"wait"`
}

type InvalidOrder struct {
	Order       string   `json:"order"`
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions"`
}

// Details of a 400 response to an order submission.
type InvalidOrdersDetails struct {
	InvalidOrders []InvalidOrder `json:"invalid_orders"`
}

// POST /api/lobby/{code}/process
type ProcessResponse struct {
	Envelope
	Code          string `json:"code"`
	PreviousPhase string `json:"previous_phase"`
	NewPhase      string `json:"new_phase"`
	IsDone        bool   `json:"is_done"`
}

// Feed message types.
const (
	FeedChanged = "changed"
	FeedError   = "error"
)

// FeedMessage is pushed over the lobby websocket whenever server state moves.
type FeedMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Version int    `json:"version"`
	Status  string `json:"status,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Error   string `json:"error,omitempty"`
}
