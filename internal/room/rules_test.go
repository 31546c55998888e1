package room

import (
	"errors"
	"testing"

	"github.com/DoyleJ11/dipclient/internal/scenario"
)

func started(t *testing.T) State {
	t.Helper()
	s, err := Start(NewState(scenario.Default()), "alice", "game-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func TestStart_HostOnlyAndOnce(t *testing.T) {
	s := NewState(scenario.Default())
	if _, err := Start(s, "bob", "g"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host start: want ErrNotHost, got %v", err)
	}
	s, err := Start(s, "alice", "g")
	if err != nil {
		t.Fatalf("host start: %v", err)
	}
	if !s.Started || s.GameID != "g" {
		t.Fatalf("want started with game id, got %+v", s)
	}
	if _, err := Start(s, "alice", "g2"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second start: want ErrAlreadyStarted, got %v", err)
	}
}

func TestStart_AssignsFreePowers(t *testing.T) {
	sc := scenario.Default()
	sc.Players[1].Power = ""
	s, err := Start(NewState(sc), "alice", "g")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := s.Scenario.Players[1].Power; got != "ENGLAND" {
		t.Fatalf("bob: want ENGLAND, got %q", got)
	}
	if sc.Players[1].Power != "" {
		t.Fatalf("start must not mutate the template scenario")
	}
}

func TestLobby_HidesPowersUntilStarted(t *testing.T) {
	l := NewState(scenario.Default()).Lobby()
	if l.Status != "waiting" || l.GameID != nil {
		t.Fatalf("want waiting lobby without game id, got %+v", l)
	}
	for _, p := range l.Players {
		if p.Power != nil {
			t.Fatalf("power shown before start: %+v", p)
		}
	}

	l = started(t).Lobby()
	if l.Status != "started" || l.Players[0].Power == nil || *l.Players[0].Power != "FRANCE" {
		t.Fatalf("want started lobby with powers, got %+v", l)
	}
	if !l.Players[0].IsHost || l.Players[1].IsHost {
		t.Fatalf("host flag wrong: %+v", l.Players)
	}
}

func TestOrders_ForOwnPowerOnly(t *testing.T) {
	if _, err := Orders(NewState(scenario.Default()), "alice"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("want ErrNotStarted, got %v", err)
	}
	s := started(t)
	o, err := Orders(s, "alice")
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if o.Power != "FRANCE" || o.Phase != "S1901M" {
		t.Fatalf("unexpected orders header: %+v", o)
	}
	want := []string{"BRE", "MAR", "PAR"}
	if len(o.OrderableLocations) != 3 || o.OrderableLocations[0] != want[0] || o.OrderableLocations[2] != want[2] {
		t.Fatalf("orderable: want %v, got %v", want, o.OrderableLocations)
	}
	if _, err := Orders(s, "mallory"); !errors.Is(err, ErrNotInGame) {
		t.Fatalf("stranger: want ErrNotInGame, got %v", err)
	}
}

func TestSubmit_RejectsWholeBatchOnInvalidOrder(t *testing.T) {
	s := started(t)
	_, _, err := Submit(s, "alice", []string{"A PAR - BUR", "A PAR - MUN"}, false)
	var inv *InvalidOrdersError
	if !errors.As(err, &inv) {
		t.Fatalf("want InvalidOrdersError, got %v", err)
	}
	if len(inv.Invalid) != 1 || inv.Invalid[0].Order != "A PAR - MUN" {
		t.Fatalf("unexpected invalid list: %+v", inv.Invalid)
	}
	if len(inv.Invalid[0].Suggestions) != 5 {
		t.Fatalf("want 5 suggestions, got %v", inv.Invalid[0].Suggestions)
	}
	if len(s.Submitted) != 0 {
		t.Fatalf("nothing should be recorded")
	}
}

func TestSubmit_AllReadyWhenEveryPowerIn(t *testing.T) {
	s := started(t)
	s, ready, err := Submit(s, "alice", []string{"A PAR - BUR"}, false)
	if err != nil || ready {
		t.Fatalf("first power: want not ready, got ready=%v err=%v", ready, err)
	}
	s, ready, err = Submit(s, "bob", nil, true)
	if err != nil || ready {
		t.Fatalf("waiting power: want not ready, got ready=%v err=%v", ready, err)
	}
	_, ready, err = Submit(s, "bob", []string{}, false)
	if err != nil || !ready {
		t.Fatalf("all in: want ready, got ready=%v err=%v", ready, err)
	}
}

func TestGame_OrderIsSetFlags(t *testing.T) {
	s := started(t)
	s, _, _ = Submit(s, "alice", []string{"A PAR H"}, false)
	s, _, _ = Submit(s, "bob", []string{}, true)

	g, err := Game(s, "alice")
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	if g.YourPower == nil || *g.YourPower != "FRANCE" {
		t.Fatalf("your power: got %v", g.YourPower)
	}
	if g.Powers["FRANCE"].OrderIsSet != 2 || g.Powers["ENGLAND"].OrderIsSet != 1 {
		t.Fatalf("order_is_set: %+v", g.Powers)
	}
	if !g.Powers["ENGLAND"].Wait || !g.Powers["FRANCE"].IsYou {
		t.Fatalf("flags: %+v", g.Powers)
	}
}

func TestProcess_WalksPhasesThenCompletes(t *testing.T) {
	s := started(t)
	if _, err := Process(s, "bob"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host: want ErrNotHost, got %v", err)
	}
	for _, want := range []string{"F1901M", "W1901A", CompletedPhase} {
		var err error
		s, err = Process(s, "alice")
		if err != nil {
			t.Fatalf("process to %s: %v", want, err)
		}
		if got := s.PhaseName(); got != want {
			t.Fatalf("want phase %s, got %s", want, got)
		}
	}
	if !s.Done {
		t.Fatalf("want done")
	}
	if _, err := Process(s, "alice"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("after end: want ErrGameOver, got %v", err)
	}
	o, err := Orders(s, "alice")
	if err != nil || len(o.OrderableLocations) != 0 {
		t.Fatalf("finished game should have no orderable locations: %+v %v", o, err)
	}
}
