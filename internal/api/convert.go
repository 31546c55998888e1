package api

import (
	"github.com/DoyleJ11/dipclient/internal/state"
	"github.com/DoyleJ11/dipclient/pkg/types"
)

func lobbyFromWire(l types.Lobby) state.LobbyState {
	out := state.LobbyState{
		Code:         l.Code,
		Status:       state.StatusForming,
		MapName:      l.MapName,
		PowerCount:   l.NPowers,
		HostUsername: l.HostUsername,
		Assignment:   l.Assignment,
		Players:      make([]state.Player, 0, len(l.Players)),
	}
	if l.Status == types.LobbyStarted {
		out.Status = state.StatusStarted
	}
	if l.GameID != nil {
		out.GameID = *l.GameID
	}
	for _, p := range l.Players {
		out.Players = append(out.Players, state.Player{
			Username:    p.Username,
			DisplayName: p.DisplayName,
			IsHost:      p.IsHost,
			Power:       deref(p.Power),
		})
	}
	return out
}

func gameFromWire(g types.GameResponse) state.GameSnapshot {
	out := state.GameSnapshot{
		Code:      g.Code,
		GameID:    g.GameID,
		Phase:     g.Phase,
		Status:    g.Status,
		YourPower: deref(g.YourPower),
		IsDone:    g.IsDone,
		Powers:    make(map[string]state.PowerState, len(g.Powers)),
	}
	for name, p := range g.Powers {
		out.Powers[name] = state.PowerState{
			Units:      p.Units,
			Centers:    p.Centers,
			Homes:      p.Homes,
			Retreats:   p.Retreats,
			Controller: deref(p.Controller),
			OrderIsSet: p.OrderIsSet != 0,
			Wait:       p.Wait,
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
