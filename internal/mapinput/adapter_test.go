package mapinput

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/dipclient/internal/builder"
	"github.com/DoyleJ11/dipclient/internal/lobbysync"
	"github.com/DoyleJ11/dipclient/internal/orders"
	"github.com/DoyleJ11/dipclient/internal/state"
)

type fakeTarget struct {
	session  builder.Session
	game     *state.GameSnapshot
	extended []string
	resolved []builder.Choice
}

func (f *fakeTarget) Input(ctx context.Context, decide lobbysync.Decide) (lobbysync.BuildReply, error) {
	cmd, err := decide(f.session, f.game)
	if err != nil {
		return lobbysync.BuildReply{}, err
	}
	switch cmd.Type {
	case builder.CmdExtend:
		f.extended = append(f.extended, cmd.Token)
	case builder.CmdResolve:
		f.resolved = append(f.resolved, cmd.Choice)
	}
	return lobbysync.BuildReply{}, nil
}

func withUnits(units ...string) *state.GameSnapshot {
	return &state.GameSnapshot{
		Phase:  "S1901M",
		Powers: map[string]state.PowerState{"FRANCE": {Units: units}},
	}
}

func awaiting(candidates ...builder.Choice) builder.Session {
	return builder.Session{State: builder.StateAwaiting, Candidates: candidates}
}

func TestClickWithoutPendingChoiceExtends(t *testing.T) {
	target := &fakeTarget{game: withUnits("A PAR")}
	a := NewAdapter(loadMini(t), target, nil)

	_, err := a.Handle(context.Background(), Click(102, 50))
	require.NoError(t, err)
	_, err = a.Handle(context.Background(), Click(150, 50))
	require.NoError(t, err)

	assert.Equal(t, []string{"PAR", "BUR"}, target.extended)
	assert.Empty(t, target.resolved)
}

func TestPlainPointerEventIsMapClick(t *testing.T) {
	target := &fakeTarget{}
	a := NewAdapter(loadMini(t), target, nil)

	_, err := a.Handle(context.Background(), PointerEvent{X: 150, Y: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{"BUR"}, target.extended)

	// with a coast choice pending, a click elsewhere must not pick the first entry
	nc := builder.Choice{Token: orders.Token{Unit: "F", Loc: "STP/NC"}, Label: "F STP/NC"}
	sc := builder.Choice{Token: orders.Token{Unit: "F", Loc: "STP/SC"}, Label: "F STP/SC"}
	target.session = awaiting(nc, sc)
	_, err = a.Handle(context.Background(), PointerEvent{X: 150, Y: 50})
	assert.ErrorIs(t, err, ErrNoCandidate)
	assert.Empty(t, target.resolved)
}

func TestClickOffMap(t *testing.T) {
	target := &fakeTarget{}
	a := NewAdapter(loadMini(t), target, nil)

	_, err := a.Handle(context.Background(), Click(999, 999))
	assert.ErrorIs(t, err, ErrNoRegion)
	assert.Empty(t, target.extended)
}

func TestClickResolvesCoastCandidate(t *testing.T) {
	army := builder.Choice{Token: orders.Token{Unit: "A", Loc: "STP"}, Label: "A STP"}
	fleet := builder.Choice{Token: orders.Token{Unit: "F", Loc: "STP/NC"}, Label: "F STP/NC"}
	target := &fakeTarget{session: awaiting(army, fleet)}
	a := NewAdapter(loadMini(t), target, nil)

	_, err := a.Handle(context.Background(), Click(250, 10))
	require.NoError(t, err)
	_, err = a.Handle(context.Background(), Click(250, 60))
	require.NoError(t, err)

	require.Len(t, target.resolved, 2)
	assert.Equal(t, fleet, target.resolved[0])
	assert.Equal(t, army, target.resolved[1])
	assert.Empty(t, target.extended)
}

func TestClickOnProvinceWithSingleCoastCandidate(t *testing.T) {
	sc := builder.Choice{Token: orders.Token{Unit: "F", Loc: "STP/SC"}, Label: "F STP/SC"}
	target := &fakeTarget{session: awaiting(sc)}
	a := NewAdapter(loadMini(t), target, nil)

	_, err := a.Handle(context.Background(), Click(250, 60))
	require.NoError(t, err)
	assert.Equal(t, []builder.Choice{sc}, target.resolved)
}

func TestViaAmbiguityNeedsChoiceList(t *testing.T) {
	direct := builder.Choice{Token: orders.Token{Loc: "MAR"}, Label: "direct"}
	via := builder.Choice{Token: orders.Token{Loc: "MAR"}, Via: true, Label: "via convoy"}
	target := &fakeTarget{session: awaiting(direct, via)}
	a := NewAdapter(loadMini(t), target, nil)

	_, err := a.Handle(context.Background(), Click(50, 180))
	assert.ErrorIs(t, err, ErrAmbiguousClick)

	_, err = a.Handle(context.Background(), Choose(2))
	require.NoError(t, err)
	assert.Equal(t, []builder.Choice{via}, target.resolved)

	_, err = a.Handle(context.Background(), Choose(3))
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestClickOnNonCandidate(t *testing.T) {
	direct := builder.Choice{Token: orders.Token{Loc: "MAR"}, Label: "direct"}
	target := &fakeTarget{session: awaiting(direct)}
	a := NewAdapter(loadMini(t), target, nil)

	_, err := a.Handle(context.Background(), Click(150, 50))
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestChooseWithoutPendingChoice(t *testing.T) {
	target := &fakeTarget{}
	a := NewAdapter(loadMini(t), target, nil)

	_, err := a.Handle(context.Background(), Choose(1))
	assert.ErrorIs(t, err, ErrNoChoicePending)
}

func TestRegionsWithoutLayout(t *testing.T) {
	assert.Nil(t, NewAdapter(nil, &fakeTarget{}, nil).Regions())
	assert.Len(t, NewAdapter(loadMini(t), &fakeTarget{}, nil).Regions(), 5)
}
