package room

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/DoyleJ11/dipclient/internal/scenario"
	"github.com/DoyleJ11/dipclient/pkg/types"
)

var ErrNotStarted = errors.New("game not started")
var ErrAlreadyStarted = errors.New("game already started")
var ErrNotInGame = errors.New("you are not in this game")
var ErrNotHost = errors.New("only the host can do that")
var ErrGameOver = errors.New("game is over")
var ErrNoPowers = errors.New("no powers left to assign")

// CompletedPhase is reported once the last scripted phase has been processed.
const CompletedPhase = "COMPLETED"

// InvalidOrdersError lists the submitted orders that are not legal this
// phase. Nothing from the batch is recorded.
type InvalidOrdersError struct {
	Invalid []types.InvalidOrder
}

func (e *InvalidOrdersError) Error() string {
	return fmt.Sprintf("%d invalid order(s)", len(e.Invalid))
}

// State is the playback position of one scripted game. It is owned by the
// room goroutine; the functions below never block.
type State struct {
	Scenario  *scenario.Scenario
	Started   bool
	GameID    string
	Phase     int
	Done      bool
	Submitted map[string][]string // power -> orders of the current phase
	Waiting   map[string]bool
}

func NewState(sc *scenario.Scenario) State {
	return State{
		Scenario:  sc,
		Started:   sc.Started,
		Submitted: map[string][]string{},
		Waiting:   map[string]bool{},
	}
}

func (s State) PhaseName() string {
	if s.Done {
		return CompletedPhase
	}
	return s.Scenario.Phases[s.Phase].Name
}

func (s State) player(username string) (scenario.Player, bool) {
	for _, p := range s.Scenario.Players {
		if p.Username == username {
			return p, true
		}
	}
	return scenario.Player{}, false
}

func (s State) powerOf(username string) (string, error) {
	p, ok := s.player(username)
	if !ok || p.Power == "" {
		return "", ErrNotInGame
	}
	return p.Power, nil
}

// currentPowers is the scripted data of the current phase. After the last
// phase the final position stays on display.
func (s State) currentPowers() map[string]scenario.PowerPhase {
	return s.Scenario.Phases[s.Phase].Powers
}

func (s State) Lobby() types.Lobby {
	out := types.Lobby{
		Code:         s.Scenario.Code,
		MapName:      s.Scenario.Map,
		Assignment:   "manual",
		NPowers:      len(s.Scenario.Powers()),
		Status:       types.LobbyWaiting,
		HostUsername: s.Scenario.Host,
		PlayerCount:  len(s.Scenario.Players),
	}
	if s.Started {
		out.Status = types.LobbyStarted
		id := s.GameID
		out.GameID = &id
	}
	for _, p := range s.Scenario.Players {
		wp := types.Player{Username: p.Username, DisplayName: p.DisplayName, IsHost: p.Username == s.Scenario.Host}
		if s.Started && p.Power != "" {
			power := p.Power
			wp.Power = &power
		}
		if wp.DisplayName == "" {
			wp.DisplayName = p.Username
		}
		out.Players = append(out.Players, wp)
	}
	return out
}

// Start assigns any unassigned player a free power and opens the first phase.
func Start(s State, username, gameID string) (State, error) {
	switch {
	case s.Started:
		return s, ErrAlreadyStarted
	case username != s.Scenario.Host:
		return s, ErrNotHost
	}

	sc := s.Scenario.Clone()
	taken := map[string]bool{}
	for _, p := range sc.Players {
		if p.Power != "" {
			taken[p.Power] = true
		}
	}
	free := slices.DeleteFunc(sc.Powers(), func(p string) bool { return taken[p] })
	for i := range sc.Players {
		if sc.Players[i].Power != "" {
			continue
		}
		if len(free) == 0 {
			return s, ErrNoPowers
		}
		sc.Players[i].Power, free = free[0], free[1:]
	}

	s.Scenario = sc
	s.Started = true
	s.GameID = gameID
	return s, nil
}

func Game(s State, username string) (types.GameResponse, error) {
	if !s.Started {
		return types.GameResponse{}, ErrNotStarted
	}
	out := types.GameResponse{
		Code:    s.Scenario.Code,
		GameID:  s.GameID,
		MapName: s.Scenario.Map,
		Phase:   s.PhaseName(),
		Status:  "active",
		IsDone:  s.Done,
		Powers:  map[string]types.Power{},
	}
	if s.Done {
		out.Status = "completed"
	}
	you, _ := s.powerOf(username)
	if you != "" {
		out.YourPower = &you
	}

	controllers := map[string]string{}
	for _, p := range s.Scenario.Players {
		controllers[p.Power] = p.Username
	}
	for name, pp := range s.currentPowers() {
		wp := types.Power{
			Units:    slices.Clone(pp.Units),
			Centers:  slices.Clone(pp.Centers),
			Homes:    slices.Clone(pp.Homes),
			Retreats: pp.Retreats,
			IsYou:    name == you,
			Wait:     s.Waiting[name],
		}
		if c, ok := controllers[name]; ok {
			wp.Controller = &c
		}
		if orders, ok := s.Submitted[name]; ok {
			wp.OrderIsSet = 2
			if len(orders) == 0 {
				wp.OrderIsSet = 1
			}
		}
		out.Powers[name] = wp
	}
	return out, nil
}

func Orders(s State, username string) (types.OrdersResponse, error) {
	if !s.Started {
		return types.OrdersResponse{}, ErrNotStarted
	}
	power, err := s.powerOf(username)
	if err != nil {
		return types.OrdersResponse{}, err
	}
	out := types.OrdersResponse{
		Code:           s.Scenario.Code,
		Phase:          s.PhaseName(),
		Power:          power,
		PossibleOrders: map[string][]string{},
	}
	if s.Done {
		out.OrderableLocations = []string{}
		return out, nil
	}
	pp := s.currentPowers()[power]
	out.Units = slices.Clone(pp.Units)
	out.Centers = slices.Clone(pp.Centers)
	for loc, texts := range pp.Possible {
		if len(texts) == 0 {
			continue
		}
		out.OrderableLocations = append(out.OrderableLocations, loc)
		out.PossibleOrders[loc] = slices.Clone(texts)
	}
	slices.Sort(out.OrderableLocations)
	return out, nil
}

// Submit records a power's whole batch for the phase, replacing any earlier
// batch. The second result reports whether every power is now ready.
func Submit(s State, username string, texts []string, wait bool) (State, bool, error) {
	if !s.Started {
		return s, false, ErrNotStarted
	}
	if s.Done {
		return s, false, ErrGameOver
	}
	power, err := s.powerOf(username)
	if err != nil {
		return s, false, err
	}

	possible := s.currentPowers()[power].Possible
	var invalid []types.InvalidOrder
	for _, text := range texts {
		if legal(possible, text) {
			continue
		}
		inv := types.InvalidOrder{Order: text, Reason: "Not in possible orders"}
		if f := strings.Fields(text); len(f) >= 2 {
			loc := possible[f[1]]
			inv.Suggestions = slices.Clone(loc[:min(5, len(loc))])
		}
		invalid = append(invalid, inv)
	}
	if len(invalid) > 0 {
		return s, false, &InvalidOrdersError{Invalid: invalid}
	}

	s.Submitted = maps.Clone(s.Submitted)
	s.Waiting = maps.Clone(s.Waiting)
	s.Submitted[power] = slices.Clone(texts)
	s.Waiting[power] = wait
	return s, allReady(s), nil
}

// Process moves to the next scripted phase, or ends the game after the last.
func Process(s State, username string) (State, error) {
	switch {
	case !s.Started:
		return s, ErrNotStarted
	case username != s.Scenario.Host:
		return s, ErrNotHost
	case s.Done:
		return s, ErrGameOver
	}
	return advance(s), nil
}

func advance(s State) State {
	if s.Phase+1 < len(s.Scenario.Phases) {
		s.Phase++
	} else {
		s.Done = true
	}
	s.Submitted = map[string][]string{}
	s.Waiting = map[string]bool{}
	return s
}

// allReady is true when every controlled power with something to order has
// submitted without asking to wait.
func allReady(s State) bool {
	powers := s.currentPowers()
	for _, p := range s.Scenario.Players {
		if p.Power == "" || len(powers[p.Power].Possible) == 0 {
			continue
		}
		if _, ok := s.Submitted[p.Power]; !ok || s.Waiting[p.Power] {
			return false
		}
	}
	return true
}

func legal(possible map[string][]string, text string) bool {
	for _, texts := range possible {
		if slices.Contains(texts, text) {
			return true
		}
	}
	return false
}
