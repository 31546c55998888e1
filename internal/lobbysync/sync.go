// Package lobbysync keeps a client's lobby, game and order-entry state in
// step with the server. One goroutine owns all of it; user commands and
// network results reach that goroutine through its inbox.
package lobbysync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/builder"
	"github.com/DoyleJ11/dipclient/internal/orders"
	"github.com/DoyleJ11/dipclient/internal/state"
	"github.com/DoyleJ11/dipclient/internal/submission"
)

var ErrTransientFetch = errors.New("poll failed")
var ErrTornSnapshot = errors.New("game and orders disagree on phase")
var ErrObserver = errors.New("observers cannot give orders")
var ErrNotStarted = errors.New("game has not started")
var ErrGameOver = errors.New("game is over")
var ErrNotHost = errors.New("only the host can do that")
var ErrNoLobby = errors.New("lobby not loaded yet")
var ErrAlreadyStarted = errors.New("game already started")
var ErrStaleResponse = errors.New("response arrived after state moved on")
var ErrStopped = errors.New("sync stopped")
var ErrNotRunning = errors.New("sync not running")

// Service is the server as seen by the sync loop.
type Service interface {
	FetchLobby(ctx context.Context, code string) (state.LobbyState, error)
	StartLobby(ctx context.Context, code string) (state.LobbyState, error)
	FetchGame(ctx context.Context, code string) (state.GameSnapshot, error)
	FetchLegalOrders(ctx context.Context, code string) (state.LegalOrders, error)
	SubmitOrders(ctx context.Context, code string, texts []string, wait bool) (state.SubmitResult, error)
	ForceProcess(ctx context.Context, code string) (state.ProcessResult, error)
}

// DraftStore keeps the built orders of the current phase across restarts.
type DraftStore interface {
	Save(ctx context.Context, code, phase string, built []orders.Order) error
	Load(ctx context.Context, code, phase string) ([]orders.Order, error)
	Purge(ctx context.Context, code, keepPhase string) error
}

type Config struct {
	Code     string
	Username string
	// Interval <= 0 disables the timer; polls then only run on Tick/Nudge.
	Interval       time.Duration
	MaxInterval    time.Duration
	Backoff        float64
	RequestTimeout time.Duration
	NoticeTTL      time.Duration
}

type Option func(*Sync)

func WithLogger(l *zap.Logger) Option { return func(s *Sync) { s.logger = l } }

func WithDrafts(d DraftStore) Option { return func(s *Sync) { s.drafts = d } }

func WithMetrics(m *Metrics) Option { return func(s *Sync) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Sync) { s.now = now } }

type role struct {
	known    bool
	power    string
	observer bool
}

type Sync struct {
	cfg     Config
	svc     Service
	logger  *zap.Logger
	drafts  DraftStore
	metrics *Metrics
	now     func() time.Time

	inbox   chan Msg
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
	timer   *time.Timer
	helpers sync.WaitGroup

	// owned by the loop goroutine
	lobby        *state.LobbyState
	game         *state.GameSnapshot
	role         role
	phase        string
	indexPending bool
	gen          uint64
	builder      *builder.Builder
	sub          *submission.Submission

	fetching        bool
	refetch         bool
	inflightWaiters []chan struct{}
	pendingWaiters  []chan struct{}
	failures        int
	lastFetchErr    error
	lastSync        time.Time
	notices         []Notice
}

func New(cfg Config, svc Service, opts ...Option) *Sync {
	cfg.Code = strings.ToUpper(strings.TrimSpace(cfg.Code))
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = 5 * time.Second
	}
	s := &Sync{
		cfg:     cfg,
		svc:     svc,
		logger:  zap.NewNop(),
		now:     time.Now,
		inbox:   make(chan Msg, 64),
		done:    make(chan struct{}),
		builder: builder.New(nil),
		sub:     submission.New("", nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("code", cfg.Code))
	return s
}

// Start launches the sync loop. The loop runs until Stop or until parent is
// cancelled.
func (s *Sync) Start(parent context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("sync already started")
	}
	s.ctx, s.cancel = context.WithCancel(parent)
	go s.loop()
	return nil
}

// Stop ends polling and waits for the loop and any request in flight to
// exit.
func (s *Sync) Stop() {
	if !s.running.Load() {
		return
	}
	s.cancel()
	<-s.done
	s.helpers.Wait()
}

func (s *Sync) loop() {
	defer close(s.done)

	s.timer = time.NewTimer(0)
	if s.cfg.Interval <= 0 {
		s.timer.Stop()
	}
	defer s.timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-s.timer.C:
			s.startFetch(nil)

		case m := <-s.inbox:
			s.handle(m)
		}
	}
}

func (s *Sync) handle(m Msg) {
	switch msg := m.(type) {
	case tickReq:
		s.startFetch(msg.done)
	case fetched:
		s.applyFetched(msg)
	case buildReq:
		var r BuildReply
		var err error
		if msg.decide != nil {
			r, err = s.handleInput(msg.decide)
		} else {
			r, err = s.handleBuild(msg.cmd)
		}
		msg.reply <- buildResult{reply: r, err: err}
	case editReq:
		msg.reply <- s.handleEdit(msg)
	case submitReq:
		s.handleSubmit(msg)
	case submitDone:
		s.applySubmit(msg)
	case startReq:
		s.handleStart(msg)
	case startDone:
		s.applyStart(msg)
	case processReq:
		s.handleProcess(msg)
	case processDone:
		s.applyProcess(msg)
	case viewReq:
		msg.reply <- s.view()
	}
}

func (s *Sync) shutdown() {
	for _, ch := range s.inflightWaiters {
		close(ch)
	}
	for _, ch := range s.pendingWaiters {
		close(ch)
	}
	s.inflightWaiters, s.pendingWaiters = nil, nil
	s.logger.Info("sync stopped")
}

// goHelper runs a network request off the loop. Its result comes back
// through post.
func (s *Sync) goHelper(fn func(ctx context.Context)) {
	s.helpers.Add(1)
	go func() {
		defer s.helpers.Done()
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RequestTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// post delivers a network continuation back to the loop.
func (s *Sync) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Sync) schedule() {
	if s.cfg.Interval <= 0 {
		return
	}
	s.timer.Reset(pollDelay(s.cfg.Interval, s.cfg.MaxInterval, s.cfg.Backoff, s.failures))
}

func call[T any](ctx context.Context, s *Sync, build func(reply chan T) Msg) (T, error) {
	var zero T
	if !s.running.Load() {
		return zero, ErrNotRunning
	}
	reply := make(chan T, 1)
	select {
	case s.inbox <- build(reply):
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrStopped
	}
}

// Tick polls now and returns once a poll started after the call has been
// applied, discarded as stale, or has failed. Failures are not returned;
// they show up in the View.
func (s *Sync) Tick(ctx context.Context) error {
	if !s.running.Load() {
		return ErrNotRunning
	}
	done := make(chan struct{})
	select {
	case s.inbox <- tickReq{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

// Nudge requests an early poll without waiting for it.
func (s *Sync) Nudge() {
	if !s.running.Load() {
		return
	}
	select {
	case s.inbox <- tickReq{}:
	default:
	}
}

func (s *Sync) Begin(ctx context.Context, t orders.Type) (BuildReply, error) {
	return s.build(ctx, builder.Command{Type: builder.CmdBegin, OrderType: t})
}

func (s *Sync) Extend(ctx context.Context, token string) (BuildReply, error) {
	return s.build(ctx, builder.Command{Type: builder.CmdExtend, Token: token})
}

func (s *Sync) Resolve(ctx context.Context, choice builder.Choice) (BuildReply, error) {
	return s.build(ctx, builder.Command{Type: builder.CmdResolve, Choice: choice})
}

func (s *Sync) Cancel(ctx context.Context) (BuildReply, error) {
	return s.build(ctx, builder.Command{Type: builder.CmdCancel})
}

func (s *Sync) build(ctx context.Context, cmd builder.Command) (BuildReply, error) {
	res, err := call(ctx, s, func(reply chan buildResult) Msg { return buildReq{cmd: cmd, reply: reply} })
	if err != nil {
		return BuildReply{}, err
	}
	return res.reply, res.err
}

// Decide picks the builder command for an input from the live session and
// game snapshot. It runs on the sync loop and must not block.
type Decide func(session builder.Session, game *state.GameSnapshot) (builder.Command, error)

// Input runs the command decide picks. Deciding and running happen in one
// loop step, so a poll cannot land in between.
func (s *Sync) Input(ctx context.Context, decide Decide) (BuildReply, error) {
	res, err := call(ctx, s, func(reply chan buildResult) Msg { return buildReq{decide: decide, reply: reply} })
	if err != nil {
		return BuildReply{}, err
	}
	return res.reply, res.err
}

func (s *Sync) RemoveOrder(ctx context.Context, origin string) error {
	err, cerr := call(ctx, s, func(reply chan error) Msg { return editReq{remove: origin, reply: reply} })
	if cerr != nil {
		return cerr
	}
	return err
}

func (s *Sync) ClearOrders(ctx context.Context) error {
	err, cerr := call(ctx, s, func(reply chan error) Msg { return editReq{clear: true, reply: reply} })
	if cerr != nil {
		return cerr
	}
	return err
}

// Submit sends every built order of the phase as one batch and waits for the
// server's answer. On failure the orders stay built and the session unlocks.
func (s *Sync) Submit(ctx context.Context, wait bool) ([]submission.Result, error) {
	res, err := call(ctx, s, func(reply chan submitResult) Msg { return submitReq{wait: wait, reply: reply} })
	if err != nil {
		return nil, err
	}
	return res.results, res.err
}

// StartGame asks the server to start the lobby. Host only.
func (s *Sync) StartGame(ctx context.Context) error {
	err, cerr := call(ctx, s, func(reply chan error) Msg { return startReq{reply: reply} })
	if cerr != nil {
		return cerr
	}
	return err
}

// Process force-advances the current phase. Host only.
func (s *Sync) Process(ctx context.Context) (state.ProcessResult, error) {
	res, err := call(ctx, s, func(reply chan processResult) Msg { return processReq{reply: reply} })
	if err != nil {
		return state.ProcessResult{}, err
	}
	return res.res, res.err
}

func (s *Sync) View(ctx context.Context) (View, error) {
	return call(ctx, s, func(reply chan View) Msg { return viewReq{reply: reply} })
}
