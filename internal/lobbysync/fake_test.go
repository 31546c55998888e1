package lobbysync

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/dipclient/internal/orders"
	"github.com/DoyleJ11/dipclient/internal/state"
)

type fakeService struct {
	mu sync.Mutex

	lobby state.LobbyState
	game  state.GameSnapshot
	legal state.LegalOrders

	lobbyErr  error
	gameErr   error
	ordersErr error
	submitErr error
	submitRes func(texts []string) state.SubmitResult

	// one-shot: the next FetchGame signals entered, then blocks on release
	gameGate *gate

	calls     map[string]int
	submitted [][]string
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func startedFixture() *fakeService {
	return &fakeService{
		lobby: state.LobbyState{
			Code:         "ABCD",
			Status:       state.StatusStarted,
			HostUsername: "alice",
			Players: []state.Player{
				{Username: "alice", IsHost: true, Power: "FRANCE"},
				{Username: "bob", Power: "ENGLAND"},
			},
		},
		game: state.GameSnapshot{Code: "ABCD", Phase: "S1901M", Status: "active"},
		legal: state.LegalOrders{
			Phase:     "S1901M",
			Power:     "FRANCE",
			Orderable: []string{"PAR", "MAR", "BRE"},
			Possible: map[string][]string{
				"PAR": {"A PAR H", "A PAR - BUR", "A PAR - MAR", "A PAR - MAR VIA", "A PAR S A MAR", "A PAR S A MAR - BUR"},
				"MAR": {"A MAR H", "A MAR - BUR", "A MAR S A PAR - BUR"},
				"BRE": {"F BRE H", "F BRE - MAO"},
			},
		},
		calls: map[string]int{},
	}
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) update(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// advance moves the fake server to phase with the given legal orders.
func (f *fakeService) advance(phase string, possible map[string][]string) {
	f.update(func(f *fakeService) {
		f.game.Phase = phase
		f.legal.Phase = phase
		f.legal.Possible = possible
		f.legal.Orderable = f.legal.Orderable[:0]
		for loc := range possible {
			f.legal.Orderable = append(f.legal.Orderable, loc)
		}
		slices.Sort(f.legal.Orderable)
	})
}

func (f *fakeService) FetchLobby(ctx context.Context, code string) (state.LobbyState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["lobby"]++
	return f.lobby.Clone(), f.lobbyErr
}

func (f *fakeService) StartLobby(ctx context.Context, code string) (state.LobbyState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["start"]++
	f.lobby.Status = state.StatusStarted
	for i := range f.lobby.Players {
		f.lobby.Players[i].Power = []string{"FRANCE", "ENGLAND", "GERMANY"}[i%3]
	}
	return f.lobby.Clone(), nil
}

func (f *fakeService) FetchGame(ctx context.Context, code string) (state.GameSnapshot, error) {
	f.mu.Lock()
	f.calls["game"]++
	g, err := f.game.Clone(), f.gameErr
	gt := f.gameGate
	f.gameGate = nil
	f.mu.Unlock()

	if gt != nil {
		close(gt.entered)
		<-gt.release
	}
	return g, err
}

func (f *fakeService) FetchLegalOrders(ctx context.Context, code string) (state.LegalOrders, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["orders"]++
	return f.legal.Clone(), f.ordersErr
}

func (f *fakeService) SubmitOrders(ctx context.Context, code string, texts []string, wait bool) (state.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["submit"]++
	f.submitted = append(f.submitted, slices.Clone(texts))
	if f.submitErr != nil {
		return state.SubmitResult{}, f.submitErr
	}
	if f.submitRes != nil {
		return f.submitRes(texts), nil
	}
	return state.SubmitResult{Results: make([]string, len(texts))}, nil
}

func (f *fakeService) ForceProcess(ctx context.Context, code string) (state.ProcessResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["process"]++
	prev := f.game.Phase
	f.game.Phase = "F1901M"
	f.legal.Phase = "F1901M"
	return state.ProcessResult{PreviousPhase: prev, NewPhase: "F1901M"}, nil
}

type memDrafts struct {
	mu     sync.Mutex
	saved  map[string][]orders.Order
	purged []string
}

func newMemDrafts() *memDrafts { return &memDrafts{saved: map[string][]orders.Order{}} }

func (m *memDrafts) Save(ctx context.Context, code, phase string, built []orders.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[code+"/"+phase] = slices.Clone(built)
	return nil
}

func (m *memDrafts) Load(ctx context.Context, code, phase string) ([]orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.saved[code+"/"+phase]), nil
}

func (m *memDrafts) Purge(ctx context.Context, code, keepPhase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, keepPhase)
	for key := range m.saved {
		if key != code+"/"+keepPhase {
			delete(m.saved, key)
		}
	}
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// startSync runs a manually ticked sync for username against svc.
func startSync(t *testing.T, svc Service, username string, opts ...Option) *Sync {
	t.Helper()
	s := New(Config{Code: "abcd", Username: username}, svc, opts...)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s
}

func tick(t *testing.T, s *Sync) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Tick(ctx))
	return view(t, s)
}

func view(t *testing.T, s *Sync) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := s.View(ctx)
	require.NoError(t, err)
	return v
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}
