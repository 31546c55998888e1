package types

type Power struct {
	Units      []string            `json:"units"`
	Centers    []string            `json:"centers"`
	Homes      []string            `json:"homes"`
	Influence  []string            `json:"influence"`
	Retreats   map[string][]string `json:"retreats"`
	IsYou      bool                `json:"is_you"`
	Controller *string             `json:"controller"`
	// 0 = not set, 1 = set empty, 2 = set
	OrderIsSet int  `json:"order_is_set"`
	Wait       bool `json:"wait"`
}

// GET /api/lobby/{code}/game
type GameResponse struct {
	Envelope
	Code      string           `json:"code"`
	GameID    string           `json:"game_id"`
	MapName   string           `json:"map_name"`
	YourPower *string          `json:"your_power"`
	Phase     string           `json:"phase"`
	Status    string           `json:"status"`
	IsDone    bool             `json:"is_done"`
	Powers    map[string]Power `json:"powers"`
}
