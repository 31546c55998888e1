package builder

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/dipclient/internal/orders"
)

var ErrIllegalContinuation = errors.New("illegal continuation")
var ErrInvalidTypeForLocation = errors.New("order type not legal for location")
var ErrBuildInProgress = errors.New("order already in progress")
var ErrChoicePending = errors.New("disambiguation pending")
var ErrUnsupportedCommand = errors.New("unsupported command")

type State string

const (
	StateIdle          State = "idle"
	StateSelectingType State = "selecting_type"
	StateBuildingPath  State = "building_path"
	StateAwaiting      State = "awaiting_disambiguation"
	StateComplete      State = "complete"
)

// Choice is one candidate offered while disambiguating a step.
type Choice struct {
	Token orders.Token
	Via   bool
	Label string
}

func (c Choice) same(o Choice) bool { return c.Token == o.Token && c.Via == o.Via }

// Session is the in-progress order. Step is the index of the next path step
// while building, and the step being disambiguated while awaiting.
type Session struct {
	State      State
	Origin     string
	Type       orders.Type
	Step       int
	Path       []orders.Token
	Candidates []Choice
	Order      *orders.Order

	// legal orders still consistent with Type and Path
	matches []orders.Order
}

func (s Session) Clone() Session {
	s.Path = slices.Clone(s.Path)
	s.Candidates = slices.Clone(s.Candidates)
	s.matches = slices.Clone(s.matches)
	if s.Order != nil {
		o := *s.Order
		o.Path = slices.Clone(o.Path)
		s.Order = &o
	}
	return s
}

type CommandType string

const (
	CmdBegin   CommandType = "Begin"
	CmdExtend  CommandType = "Extend"
	CmdResolve CommandType = "Resolve"
	CmdCancel  CommandType = "Cancel"
)

type Command struct {
	Type      CommandType
	OrderType orders.Type
	Token     string
	Choice    Choice
}

type EventType string

const (
	EvtUnitSelected            EventType = "UnitSelected"
	EvtPathExtended            EventType = "PathExtended"
	EvtDisambiguationRequested EventType = "DisambiguationRequested"
	EvtOrderCompleted          EventType = "OrderCompleted"
	EvtCancelled               EventType = "Cancelled"
)

type Event struct {
	Type       EventType
	Step       int
	Token      orders.Token
	Candidates []Choice
	Order      *orders.Order
}

/*
	Extend (Idle)          -> UnitSelected                    (SelectingType)
	Begin  (SelectingType) -> PathExtended [+ OrderCompleted]  (unit step consumed)
	Begin  (Idle)          -> nothing                          (BuildingPath, step 0)
	Extend (BuildingPath)  -> PathExtended [+ OrderCompleted] | DisambiguationRequested
	Resolve(Awaiting)      -> PathExtended [+ OrderCompleted]
	Cancel (any)           -> Cancelled
*/

// Apply runs one command against s. On error the returned session is s.
func Apply(s Session, idx *orders.Index, cmd Command) ([]Event, Session, error) {
	switch cmd.Type {
	case CmdBegin:
		return begin(s, idx, cmd.OrderType)
	case CmdExtend:
		return extend(s, idx, cmd.Token)
	case CmdResolve:
		return resolve(s, cmd.Choice)
	case CmdCancel:
		if s.State == StateIdle {
			return nil, s, nil
		}
		return []Event{{Type: EvtCancelled}}, Session{State: StateIdle}, nil
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func begin(s Session, idx *orders.Index, t orders.Type) ([]Event, Session, error) {
	g, ok := orders.Lookup(t)
	if !ok {
		return nil, s, fmt.Errorf("%w: unknown type %q", ErrInvalidTypeForLocation, t)
	}

	switch s.State {
	case StateSelectingType:
		if !slices.Contains(idx.TypesAt(s.Origin), t) {
			return nil, s, fmt.Errorf("%w: %s at %s", ErrInvalidTypeForLocation, t, s.Origin)
		}
		next := Session{
			State:   StateBuildingPath,
			Origin:  s.Origin,
			Type:    t,
			matches: idx.Orders(s.Origin),
		}
		next.matches = ofType(next.matches, t)
		// the selection already names the unit
		events, out, err := consume(next, g, s.Origin)
		if err != nil {
			return nil, s, err
		}
		return events, out, nil

	case StateIdle, StateComplete:
		matches := idx.OrdersOfType(t)
		if len(matches) == 0 {
			return nil, s, fmt.Errorf("%w: no unit can %s", ErrInvalidTypeForLocation, t)
		}
		return nil, Session{State: StateBuildingPath, Type: t, matches: matches}, nil

	default:
		return nil, s, ErrBuildInProgress
	}
}

func extend(s Session, idx *orders.Index, token string) ([]Event, Session, error) {
	switch s.State {
	case StateIdle, StateComplete, StateSelectingType:
		origin, ok := idx.OriginFor(token)
		if !ok || len(idx.TypesAt(origin)) == 0 {
			return nil, s, fmt.Errorf("%w: %s is not orderable", ErrIllegalContinuation, orders.Normalize(token))
		}
		next := Session{State: StateSelectingType, Origin: origin}
		return []Event{{Type: EvtUnitSelected, Token: orders.Token{Loc: origin}}}, next, nil

	case StateBuildingPath:
		g, _ := orders.Lookup(s.Type)
		events, out, err := consume(s, g, token)
		if err != nil {
			return nil, s, err
		}
		return events, out, nil

	case StateAwaiting:
		return nil, s, ErrChoicePending

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func resolve(s Session, choice Choice) ([]Event, Session, error) {
	if s.State != StateAwaiting {
		return nil, s, fmt.Errorf("%w: no choice pending", ErrIllegalContinuation)
	}

	var picked *Choice
	for i, c := range s.Candidates {
		if c.same(choice) || (choice.Token.Loc == "" && choice.Label != "" && c.Label == choice.Label) {
			picked = &s.Candidates[i]
			break
		}
	}
	if picked == nil {
		return nil, s, fmt.Errorf("%w: %q is not a candidate", ErrIllegalContinuation, choiceName(choice))
	}

	g, _ := orders.Lookup(s.Type)
	resumed := s.Clone()
	resumed.State = StateBuildingPath
	resumed.Candidates = nil
	events, out, err := apply(resumed, g, *picked)
	if err != nil {
		return nil, s, err
	}
	return events, out, nil
}

// consume matches a raw selection against the current step.
func consume(s Session, g orders.Grammar, token string) ([]Event, Session, error) {
	step := s.Step
	var next []orders.Order
	for _, m := range s.matches {
		if step < len(m.Path) && m.Path[step].Matches(token) {
			next = append(next, m)
		}
	}
	if len(next) == 0 {
		return nil, s, fmt.Errorf("%w: %s for step %d of %s", ErrIllegalContinuation, orders.Normalize(token), step, s.Type)
	}

	choices := candidates(next, step, g.Last(step))
	if len(choices) > 1 {
		out := s.Clone()
		out.State = StateAwaiting
		out.Candidates = choices
		out.matches = next
		return []Event{{Type: EvtDisambiguationRequested, Step: step, Candidates: slices.Clone(choices)}}, out, nil
	}

	s.matches = next
	return apply(s, g, choices[0])
}

// apply commits choice as the token for the current step.
func apply(s Session, g orders.Grammar, choice Choice) ([]Event, Session, error) {
	step := s.Step
	last := g.Last(step)

	var next []orders.Order
	for _, m := range s.matches {
		if m.Path[step] == choice.Token && (!last || m.Via == choice.Via) {
			next = append(next, m)
		}
	}
	if len(next) == 0 {
		return nil, s, fmt.Errorf("%w: %s", ErrIllegalContinuation, choiceName(choice))
	}

	out := Session{
		State:  StateBuildingPath,
		Origin: s.Origin,
		Type:   s.Type,
		Step:   step + 1,
		Path:   append(slices.Clone(s.Path), choice.Token),
	}
	if step == 0 {
		out.Origin = next[0].Origin
	}
	events := []Event{{Type: EvtPathExtended, Step: step, Token: choice.Token}}

	if !last {
		out.matches = next
		return events, out, nil
	}

	order := orders.Order{Origin: out.Origin, Type: out.Type, Path: slices.Clone(out.Path), Via: choice.Via}
	out.State = StateComplete
	out.Order = &order
	events = append(events, Event{Type: EvtOrderCompleted, Order: &order})
	return events, out, nil
}

// candidates lists the distinct tokens legal at step. The via flag only
// distinguishes candidates on the final step.
func candidates(matches []orders.Order, step int, last bool) []Choice {
	var out []Choice
	for _, m := range matches {
		c := Choice{Token: m.Path[step], Via: last && m.Via}
		if !slices.ContainsFunc(out, c.same) {
			out = append(out, c)
		}
	}

	sameToken := true
	for _, c := range out {
		if c.Token != out[0].Token {
			sameToken = false
		}
	}
	for i := range out {
		switch {
		case sameToken && out[i].Via:
			out[i].Label = "via convoy"
		case sameToken:
			out[i].Label = "direct"
		case out[i].Via:
			out[i].Label = out[i].Token.String() + " via convoy"
		default:
			out[i].Label = out[i].Token.String()
		}
	}
	return out
}

func ofType(in []orders.Order, t orders.Type) []orders.Order {
	var out []orders.Order
	for _, o := range in {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}

func choiceName(c Choice) string {
	if c.Label != "" {
		return c.Label
	}
	return c.Token.String()
}
