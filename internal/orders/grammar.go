package orders

import "strings"

type Type string

const (
	TypeHold        Type = "hold"
	TypeMove        Type = "move"
	TypeSupportHold Type = "support_hold"
	TypeSupportMove Type = "support_move"
	TypeConvoy      Type = "convoy"
	TypeRetreat     Type = "retreat"
	TypeBuild       Type = "build"
	TypeDisband     Type = "disband"
	TypeWaive       Type = "waive"
)

type StepKind string

const (
	StepUnit                 StepKind = "unit"
	StepDestination          StepKind = "destination"
	StepSupportedUnit        StepKind = "supported_unit"
	StepSupportedDestination StepKind = "supported_destination"
	StepConvoyedUnit         StepKind = "convoyed_unit"
	StepTarget               StepKind = "target"
)

// Grammar describes the selections needed to finish one order type.
type Grammar struct {
	Type  Type
	Steps []StepKind
}

func (g Grammar) StepCount() int { return len(g.Steps) }

// Last reports whether step is the final selection of the grammar.
func (g Grammar) Last(step int) bool { return step == len(g.Steps)-1 }

// Grammars is ordered the way order types are offered to a player.
var Grammars = []Grammar{
	{Type: TypeHold, Steps: []StepKind{StepUnit}},
	{Type: TypeMove, Steps: []StepKind{StepUnit, StepDestination}},
	{Type: TypeSupportHold, Steps: []StepKind{StepUnit, StepSupportedUnit}},
	{Type: TypeSupportMove, Steps: []StepKind{StepUnit, StepSupportedUnit, StepSupportedDestination}},
	{Type: TypeConvoy, Steps: []StepKind{StepUnit, StepConvoyedUnit, StepDestination}},
	{Type: TypeRetreat, Steps: []StepKind{StepUnit, StepDestination}},
	{Type: TypeBuild, Steps: []StepKind{StepTarget}},
	{Type: TypeDisband, Steps: []StepKind{StepTarget}},
	{Type: TypeWaive, Steps: []StepKind{StepTarget}},
}

func Lookup(t Type) (Grammar, bool) {
	for _, g := range Grammars {
		if g.Type == t {
			return g, true
		}
	}
	return Grammar{}, false
}

var typeAliases = map[string]Type{
	"H":            TypeHold,
	"HOLD":         TypeHold,
	"-":            TypeMove,
	"M":            TypeMove,
	"MOVE":         TypeMove,
	"S":            TypeSupportHold,
	"SH":           TypeSupportHold,
	"SUPPORT_HOLD": TypeSupportHold,
	"SM":           TypeSupportMove,
	"SUPPORT_MOVE": TypeSupportMove,
	"C":            TypeConvoy,
	"CONVOY":       TypeConvoy,
	"R":            TypeRetreat,
	"RETREAT":      TypeRetreat,
	"B":            TypeBuild,
	"BUILD":        TypeBuild,
	"D":            TypeDisband,
	"DISBAND":      TypeDisband,
	"W":            TypeWaive,
	"WAIVE":        TypeWaive,
}

// ParseType accepts either the long name or the order-text action letter.
func ParseType(s string) (Type, bool) {
	t, ok := typeAliases[strings.ToUpper(strings.TrimSpace(s))]
	return t, ok
}
