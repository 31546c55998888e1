// Package state holds the value objects the sync loop replaces wholesale on
// every successful poll.
package state

import (
	"maps"
	"slices"
)

type LobbyStatus string

const (
	StatusForming LobbyStatus = "forming"
	StatusStarted LobbyStatus = "started"
)

type Player struct {
	Username    string
	DisplayName string
	IsHost      bool
	Power       string // empty until the game starts
}

type LobbyState struct {
	Code         string
	Status       LobbyStatus
	Players      []Player
	MapName      string
	PowerCount   int
	HostUsername string
	GameID       string
	Assignment   string
}

// Find looks a player up by username.
func (l LobbyState) Find(username string) (Player, bool) {
	for _, p := range l.Players {
		if p.Username == username {
			return p, true
		}
	}
	return Player{}, false
}

func (l LobbyState) Clone() LobbyState {
	l.Players = slices.Clone(l.Players)
	return l
}

type PowerState struct {
	Units      []string
	Centers    []string
	Homes      []string
	Retreats   map[string][]string
	Controller string
	OrderIsSet bool
	Wait       bool
}

func (p PowerState) Clone() PowerState {
	p.Units = slices.Clone(p.Units)
	p.Centers = slices.Clone(p.Centers)
	p.Homes = slices.Clone(p.Homes)
	if p.Retreats != nil {
		r := make(map[string][]string, len(p.Retreats))
		for k, v := range p.Retreats {
			r[k] = slices.Clone(v)
		}
		p.Retreats = r
	}
	return p
}

type GameSnapshot struct {
	Code      string
	GameID    string
	Phase     string
	Status    string
	YourPower string
	IsDone    bool
	Powers    map[string]PowerState
}

func (g GameSnapshot) Clone() GameSnapshot {
	if g.Powers != nil {
		powers := make(map[string]PowerState, len(g.Powers))
		for name, p := range g.Powers {
			powers[name] = p.Clone()
		}
		g.Powers = powers
	}
	return g
}

// LegalOrders is the server-computed legal-continuations index for the
// local power.
type LegalOrders struct {
	Phase     string
	Power     string
	Orderable []string
	Possible  map[string][]string
}

func (o LegalOrders) Clone() LegalOrders {
	o.Orderable = slices.Clone(o.Orderable)
	if o.Possible != nil {
		possible := make(map[string][]string, len(o.Possible))
		for k, v := range maps.All(o.Possible) {
			possible[k] = slices.Clone(v)
		}
		o.Possible = possible
	}
	return o
}

// SubmitResult is aligned with the submitted orders; an empty entry means
// the order was accepted.
type SubmitResult struct {
	Results []string
}

type ProcessResult struct {
	PreviousPhase string
	NewPhase      string
	IsDone        bool
}
