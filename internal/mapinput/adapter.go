package mapinput

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/builder"
	"github.com/DoyleJ11/dipclient/internal/lobbysync"
	"github.com/DoyleJ11/dipclient/internal/orders"
	"github.com/DoyleJ11/dipclient/internal/state"
)

var ErrNoRegion = errors.New("nothing clickable there")
var ErrNoChoicePending = errors.New("no choice pending")
var ErrNoCandidate = errors.New("no candidate at that location")
var ErrAmbiguousClick = errors.New("several candidates at that location; pick one from the list")

// Target is the order-entry surface the adapter drives.
type Target interface {
	Input(ctx context.Context, decide lobbysync.Decide) (lobbysync.BuildReply, error)
}

// PointerEvent is a click on the map at (X, Y). When Choice is positive it is
// a click on the Choice-th entry (counting from 1) of the rendered candidate
// list instead.
type PointerEvent struct {
	X      float64
	Y      float64
	Choice int
}

func Click(x, y float64) PointerEvent { return PointerEvent{X: x, Y: y} }

func Choose(n int) PointerEvent { return PointerEvent{Choice: n} }

type Adapter struct {
	layout *Layout
	target Target
	logger *zap.Logger
}

func NewAdapter(layout *Layout, target Target, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{layout: layout, target: target, logger: logger}
}

// Regions lists the clickable locations, or nil without a layout.
func (a *Adapter) Regions() []string {
	if a.layout == nil {
		return nil
	}
	return a.layout.Regions()
}

// Handle routes ev to Extend when no choice is pending and to Resolve when
// one is. The target makes that call against its live session.
func (a *Adapter) Handle(ctx context.Context, ev PointerEvent) (lobbysync.BuildReply, error) {
	return a.target.Input(ctx, func(session builder.Session, game *state.GameSnapshot) (builder.Command, error) {
		return a.route(ev, session, game)
	})
}

func (a *Adapter) route(ev PointerEvent, session builder.Session, game *state.GameSnapshot) (builder.Command, error) {
	pending := session.State == builder.StateAwaiting

	if ev.Choice > 0 {
		if !pending {
			return builder.Command{}, ErrNoChoicePending
		}
		if ev.Choice > len(session.Candidates) {
			return builder.Command{}, fmt.Errorf("%w: choice %d of %d", ErrNoCandidate, ev.Choice, len(session.Candidates))
		}
		return builder.Command{Type: builder.CmdResolve, Choice: session.Candidates[ev.Choice-1]}, nil
	}

	if a.layout == nil {
		return builder.Command{}, ErrNoRegion
	}
	loc, ok := a.layout.Locate(Point{X: ev.X, Y: ev.Y}, unitLocations(game))
	if !ok {
		return builder.Command{}, ErrNoRegion
	}
	a.logger.Debug("map click", zap.Float64("x", ev.X), zap.Float64("y", ev.Y), zap.String("loc", loc), zap.Bool("pending", pending))

	if !pending {
		return builder.Command{Type: builder.CmdExtend, Token: loc}, nil
	}
	choice, err := pick(session.Candidates, loc)
	if err != nil {
		return builder.Command{}, err
	}
	return builder.Command{Type: builder.CmdResolve, Choice: choice}, nil
}

// pick finds the candidate at loc: an exact location match first, then the
// only candidate inside the same province.
func pick(candidates []builder.Choice, loc string) (builder.Choice, error) {
	var exact, sameProvince []builder.Choice
	for _, c := range candidates {
		switch {
		case c.Token.Loc == loc:
			exact = append(exact, c)
		case orders.Base(c.Token.Loc) == orders.Base(loc):
			sameProvince = append(sameProvince, c)
		}
	}
	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) > 1:
		return builder.Choice{}, ErrAmbiguousClick
	case len(sameProvince) == 1:
		return sameProvince[0], nil
	case len(sameProvince) > 1:
		return builder.Choice{}, ErrAmbiguousClick
	}
	return builder.Choice{}, fmt.Errorf("%w: %s", ErrNoCandidate, loc)
}

// unitLocations lists where units are drawn, for every power.
func unitLocations(game *state.GameSnapshot) []string {
	if game == nil {
		return nil
	}
	var out []string
	for _, p := range game.Powers {
		for _, u := range p.Units {
			fields := strings.Fields(strings.TrimPrefix(u, "*"))
			if len(fields) == 2 {
				out = append(out, fields[1])
			}
		}
	}
	return out
}
