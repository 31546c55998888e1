package lobbysync

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/dipclient/internal/orders"
	"github.com/DoyleJ11/dipclient/internal/state"
)

// startFetch begins a poll, or marks that another one is needed once the
// current poll lands. done is closed after a poll that started after this
// call has been handled.
func (s *Sync) startFetch(done chan struct{}) {
	if s.fetching {
		s.refetch = true
		if done != nil {
			s.pendingWaiters = append(s.pendingWaiters, done)
		}
		return
	}
	if done != nil {
		s.inflightWaiters = append(s.inflightWaiters, done)
	}
	s.launchFetch()
}

func (s *Sync) launchFetch() {
	s.fetching = true
	s.timer.Stop()

	gen, code := s.gen, s.cfg.Code
	started := s.lobby != nil && s.lobby.Status == state.StatusStarted
	wantOrders := !(s.role.known && s.role.observer)
	username := s.cfg.Username

	s.goHelper(func(ctx context.Context) {
		msg := s.fetch(ctx, code, username, started, wantOrders)
		msg.gen = gen
		s.post(msg)
	})
}

// fetch runs on a helper goroutine and must not touch loop state.
func (s *Sync) fetch(ctx context.Context, code, username string, started, wantOrders bool) fetched {
	msg := fetched{code: code}

	if !started {
		lobby, err := s.svc.FetchLobby(ctx, code)
		if err != nil {
			msg.err = fmt.Errorf("%w: lobby: %w", ErrTransientFetch, err)
			return msg
		}
		msg.lobby = &lobby
		if lobby.Status != state.StatusStarted {
			return msg
		}
		_, wantOrders = lobby.Find(username)
	}

	var game state.GameSnapshot
	var legal state.LegalOrders
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if game, err = s.svc.FetchGame(gctx, code); err != nil {
			return fmt.Errorf("game: %w", err)
		}
		return nil
	})
	if wantOrders {
		g.Go(func() error {
			var err error
			if legal, err = s.svc.FetchLegalOrders(gctx, code); err != nil {
				return fmt.Errorf("orders: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		msg.err = fmt.Errorf("%w: %w", ErrTransientFetch, err)
		return msg
	}
	if wantOrders && legal.Phase != game.Phase {
		msg.err = fmt.Errorf("%w: %w: game %s, orders %s", ErrTransientFetch, ErrTornSnapshot, game.Phase, legal.Phase)
		return msg
	}

	msg.game = &game
	if wantOrders {
		msg.legal = &legal
	}
	return msg
}

func (s *Sync) applyFetched(msg fetched) {
	s.fetching = false
	waiters := s.inflightWaiters
	s.inflightWaiters = nil

	switch {
	case msg.code != s.cfg.Code || msg.gen != s.gen:
		s.metrics.poll("stale")
		s.logger.Debug("discarding stale poll", zap.Uint64("gen", msg.gen), zap.Uint64("current", s.gen))

	case msg.err != nil:
		s.failures++
		s.lastFetchErr = msg.err
		s.metrics.poll("error")
		s.logger.Warn("poll failed", zap.Error(msg.err), zap.Int("failures", s.failures))
		s.notify("Connection problem: " + msg.err.Error())

	default:
		if s.failures > 0 {
			s.logger.Info("poll recovered", zap.Int("after_failures", s.failures))
		}
		s.failures = 0
		s.lastFetchErr = nil
		s.lastSync = s.now()
		s.metrics.poll("ok")
		s.applySnapshot(msg.lobby, msg.game, msg.legal)
	}

	for _, ch := range waiters {
		close(ch)
	}

	if s.refetch {
		s.refetch = false
		s.inflightWaiters = s.pendingWaiters
		s.pendingWaiters = nil
		s.launchFetch()
		return
	}
	s.schedule()
}

func (s *Sync) applySnapshot(lobby *state.LobbyState, game *state.GameSnapshot, legal *state.LegalOrders) {
	if lobby != nil {
		wasStarted := s.lobby != nil && s.lobby.Status == state.StatusStarted
		l := lobby.Clone()
		s.lobby = &l
		if !wasStarted && l.Status == state.StatusStarted {
			s.logger.Info("game started", zap.String("game_id", l.GameID))
		}
	}
	if game != nil {
		g := game.Clone()
		s.game = &g
	}
	s.deriveRole()
	if game == nil {
		return
	}

	switch {
	case game.Phase != s.phase:
		s.adoptPhase(game.Phase, legal)
	case s.indexPending && legal != nil:
		s.installIndex(*legal)
	}
}

// deriveRole matches the authenticated username against the roster. A user
// not on the roster, or without a power, only observes.
func (s *Sync) deriveRole() {
	if s.lobby == nil || s.lobby.Status != state.StatusStarted {
		return
	}
	p, ok := s.lobby.Find(s.cfg.Username)
	power := p.Power
	if ok && power == "" {
		if s.game == nil {
			return
		}
		power = s.game.YourPower
	}
	r := role{known: true, power: power, observer: power == ""}
	if r != s.role {
		s.logger.Info("role resolved", zap.String("power", r.power), zap.Bool("observer", r.observer))
	}
	s.role = r
}

// adoptPhase moves every piece of per-phase state to phase. legal may be nil
// when the phase is known before its orders are; the index is then installed
// by a later poll.
func (s *Sync) adoptPhase(phase string, legal *state.LegalOrders) {
	prev := s.phase
	s.phase = phase
	if prev != "" {
		s.metrics.phaseChanged()
		s.logger.Info("phase changed", zap.String("from", prev), zap.String("to", phase))
	}

	s.builder.Reset(orders.EmptyIndex(phase))
	s.sub.Reset(phase, nil)
	s.indexPending = false

	switch {
	case legal != nil && legal.Phase == phase:
		s.installIndex(*legal)
	case !s.role.observer:
		s.indexPending = true
	}

	s.purgeDrafts()
}

func (s *Sync) installIndex(legal state.LegalOrders) {
	idx, skipped := orders.NewIndex(legal.Phase, legal.Orderable, legal.Possible)
	if len(skipped) > 0 {
		s.logger.Warn("ignoring unparseable legal orders", zap.Strings("orders", skipped))
	}
	s.builder.Reset(idx)
	s.sub.SetOrderable(idx.Orderable())
	s.indexPending = false
	s.restoreDrafts()
}

func (s *Sync) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.cfg.RequestTimeout)
}

func (s *Sync) saveDrafts() {
	if s.drafts == nil || s.sub.Phase() == "" {
		return
	}
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.drafts.Save(ctx, s.cfg.Code, s.sub.Phase(), s.sub.Set().Orders()); err != nil {
		s.logger.Warn("saving drafts failed", zap.Error(err))
	}
}

func (s *Sync) restoreDrafts() {
	if s.drafts == nil {
		return
	}
	ctx, cancel := s.storeCtx()
	defer cancel()
	saved, err := s.drafts.Load(ctx, s.cfg.Code, s.phase)
	if err != nil {
		s.logger.Warn("loading drafts failed", zap.Error(err))
		return
	}
	if len(saved) == 0 {
		return
	}
	total := len(saved)
	idx := s.builder.Index()
	legal := slices.DeleteFunc(saved, func(o orders.Order) bool { return !idx.Allows(o.Origin, o.Text()) })
	n := s.sub.Restore(legal)
	s.logger.Info("restored drafts", zap.Int("kept", n), zap.Int("saved", total))
}

func (s *Sync) purgeDrafts() {
	if s.drafts == nil {
		return
	}
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.drafts.Purge(ctx, s.cfg.Code, s.phase); err != nil {
		s.logger.Warn("purging drafts failed", zap.Error(err))
	}
}
