// Package scenario loads the scripted lobbies the development server plays
// back: a roster and a fixed sequence of phases with each power's units and
// legal orders.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// CodeAlphabet leaves out characters that read alike (I, L, O, 0, 1).
const CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const CodeLength = 4

var ErrInvalid = errors.New("invalid scenario")

//go:embed default.yaml
var defaultYAML []byte

type Player struct {
	Username    string `yaml:"username"`
	DisplayName string `yaml:"display_name"`
	Power       string `yaml:"power"`
}

type PowerPhase struct {
	Units    []string            `yaml:"units"`
	Centers  []string            `yaml:"centers"`
	Homes    []string            `yaml:"homes"`
	Retreats map[string][]string `yaml:"retreats"`
	// Possible maps each orderable location to its legal orders.
	Possible map[string][]string `yaml:"possible"`
}

type Phase struct {
	Name   string                `yaml:"name"`
	Powers map[string]PowerPhase `yaml:"powers"`
}

type Scenario struct {
	Code    string   `yaml:"code"`
	Map     string   `yaml:"map"`
	Host    string   `yaml:"host"`
	Started bool     `yaml:"started"`
	Players []Player `yaml:"players"`
	Phases  []Phase  `yaml:"phases"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Default is the built-in two-player opening.
func Default() *Scenario {
	sc, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in scenario: %v", err))
	}
	return sc
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	sc.Code = strings.ToUpper(strings.TrimSpace(sc.Code))
	if sc.Map == "" {
		sc.Map = "standard"
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) Validate() error {
	if sc.Code != "" && !ValidCode(sc.Code) {
		return fmt.Errorf("%w: code %q", ErrInvalid, sc.Code)
	}
	if len(sc.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrInvalid)
	}
	if len(sc.Phases) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalid)
	}
	seen := map[string]bool{}
	for _, p := range sc.Players {
		if p.Username == "" {
			return fmt.Errorf("%w: player without username", ErrInvalid)
		}
		if seen[p.Username] {
			return fmt.Errorf("%w: duplicate player %s", ErrInvalid, p.Username)
		}
		seen[p.Username] = true
	}
	if !seen[sc.Host] {
		return fmt.Errorf("%w: host %q is not a player", ErrInvalid, sc.Host)
	}
	for i, ph := range sc.Phases {
		if ph.Name == "" {
			return fmt.Errorf("%w: phase %d has no name", ErrInvalid, i)
		}
		for power, pp := range ph.Powers {
			for loc := range pp.Possible {
				if loc != strings.ToUpper(loc) {
					return fmt.Errorf("%w: %s %s: location %q must be upper case", ErrInvalid, ph.Name, power, loc)
				}
			}
		}
	}
	return nil
}

// Powers lists the powers of the first phase in name order.
func (sc *Scenario) Powers() []string {
	var out []string
	for name := range sc.Phases[0].Powers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Clone returns a copy that shares nothing mutable with sc.
func (sc *Scenario) Clone() *Scenario {
	out := *sc
	out.Players = slices.Clone(sc.Players)
	out.Phases = make([]Phase, len(sc.Phases))
	for i, ph := range sc.Phases {
		powers := make(map[string]PowerPhase, len(ph.Powers))
		for name, pp := range ph.Powers {
			possible := make(map[string][]string, len(pp.Possible))
			for loc, texts := range pp.Possible {
				possible[loc] = slices.Clone(texts)
			}
			retreats := make(map[string][]string, len(pp.Retreats))
			for unit, locs := range pp.Retreats {
				retreats[unit] = slices.Clone(locs)
			}
			powers[name] = PowerPhase{
				Units:    slices.Clone(pp.Units),
				Centers:  slices.Clone(pp.Centers),
				Homes:    slices.Clone(pp.Homes),
				Retreats: retreats,
				Possible: possible,
			}
		}
		out.Phases[i] = Phase{Name: ph.Name, Powers: powers}
	}
	return &out
}

func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(CodeAlphabet, c) {
			return false
		}
	}
	return true
}
