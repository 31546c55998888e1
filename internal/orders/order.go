package orders

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedOrder = errors.New("malformed order text")

// Token is one selection in an order path. Unit is set when the step names a
// unit ("A" or "F"); Loc may carry a coast suffix such as "SPA/NC".
type Token struct {
	Unit string
	Loc  string
}

func (t Token) String() string {
	if t.Unit == "" {
		return t.Loc
	}
	return t.Unit + " " + t.Loc
}

// Matches reports whether a raw map selection refers to this token. A bare
// province matches any of its coasts.
func (t Token) Matches(selection string) bool {
	sel := Normalize(selection)
	return t.Loc == sel || Base(t.Loc) == sel
}

// Base strips the coast suffix from a location.
func Base(loc string) string {
	if i := strings.IndexByte(loc, '/'); i >= 0 {
		return loc[:i]
	}
	return loc
}

func Normalize(loc string) string {
	return strings.ToUpper(strings.TrimSpace(loc))
}

// Order is a finished order. Origin is the orderable location it is keyed by.
type Order struct {
	Origin string
	Type   Type
	Path   []Token
	Via    bool
}

// Text serializes the order into the server's order syntax.
func (o Order) Text() string {
	at := func(i int) Token {
		if i < len(o.Path) {
			return o.Path[i]
		}
		return Token{}
	}
	unit := at(0).String()

	switch o.Type {
	case TypeHold:
		return unit + " H"
	case TypeMove:
		s := unit + " - " + at(1).Loc
		if o.Via {
			s += " VIA"
		}
		return s
	case TypeSupportHold:
		return unit + " S " + at(1).String()
	case TypeSupportMove:
		return unit + " S " + at(1).String() + " - " + at(2).Loc
	case TypeConvoy:
		return unit + " C " + at(1).String() + " - " + at(2).Loc
	case TypeRetreat:
		return unit + " R " + at(1).Loc
	case TypeBuild:
		return unit + " B"
	case TypeDisband:
		return unit + " D"
	case TypeWaive:
		return "WAIVE"
	default:
		return ""
	}
}

func (o Order) clone() Order {
	o.Path = append([]Token(nil), o.Path...)
	return o
}

// Parse reads a legal order string as listed for origin. When origin is empty
// it is derived from the acting unit's location.
func Parse(origin, text string) (Order, error) {
	f := strings.Fields(strings.ToUpper(text))
	origin = Normalize(origin)

	if len(f) == 1 && f[0] == "WAIVE" {
		if origin == "" {
			return Order{}, fmt.Errorf("%w: %q has no location", ErrMalformedOrder, text)
		}
		return Order{Origin: origin, Type: TypeWaive, Path: []Token{{Loc: origin}}}, nil
	}
	if len(f) < 3 || !isUnit(f[0]) {
		return Order{}, fmt.Errorf("%w: %q", ErrMalformedOrder, text)
	}

	self := Token{Unit: f[0], Loc: f[1]}
	if origin == "" {
		origin = Base(self.Loc)
	}
	o := Order{Origin: origin, Path: []Token{self}}

	switch {
	case len(f) == 3 && f[2] == "H":
		o.Type = TypeHold
	case len(f) == 3 && f[2] == "B":
		o.Type = TypeBuild
	case len(f) == 3 && f[2] == "D":
		o.Type = TypeDisband
	case len(f) == 4 && f[2] == "R":
		o.Type = TypeRetreat
		o.Path = append(o.Path, Token{Loc: f[3]})
	case (len(f) == 4 || len(f) == 5) && f[2] == "-":
		if len(f) == 5 && f[4] != "VIA" {
			return Order{}, fmt.Errorf("%w: %q", ErrMalformedOrder, text)
		}
		o.Type = TypeMove
		o.Via = len(f) == 5
		o.Path = append(o.Path, Token{Loc: f[3]})
	case len(f) == 5 && f[2] == "S" && isUnit(f[3]):
		o.Type = TypeSupportHold
		o.Path = append(o.Path, Token{Unit: f[3], Loc: f[4]})
	case len(f) == 7 && f[2] == "S" && isUnit(f[3]) && f[5] == "-":
		o.Type = TypeSupportMove
		o.Path = append(o.Path, Token{Unit: f[3], Loc: f[4]}, Token{Loc: f[6]})
	case len(f) == 7 && f[2] == "C" && isUnit(f[3]) && f[5] == "-":
		o.Type = TypeConvoy
		o.Path = append(o.Path, Token{Unit: f[3], Loc: f[4]}, Token{Loc: f[6]})
	default:
		return Order{}, fmt.Errorf("%w: %q", ErrMalformedOrder, text)
	}
	return o, nil
}

func isUnit(s string) bool { return s == "A" || s == "F" }
