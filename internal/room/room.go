package room

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/scenario"
	"github.com/DoyleJ11/dipclient/pkg/types"
)

type Msg interface{ isRoomMsg() }

// Result carries a reply or the error that prevented it.
type Result[T any] struct {
	Value T
	Err   error
}

type Join struct {
	ClientID string
	Outbox   chan types.FeedMessage // where this client wants change notices
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type GetLobby struct {
	Reply chan types.Lobby
}

func (GetLobby) isRoomMsg() {}

type StartGame struct {
	Username string
	Reply    chan Result[types.Lobby]
}

func (StartGame) isRoomMsg() {}

type GetGame struct {
	Username string
	Reply    chan Result[types.GameResponse]
}

func (GetGame) isRoomMsg() {}

type GetOrders struct {
	Username string
	Reply    chan Result[types.OrdersResponse]
}

func (GetOrders) isRoomMsg() {}

type SubmitOrders struct {
	Username string
	Orders   []string
	Wait     bool
	Reply    chan Result[types.SubmitResponse]
}

func (SubmitOrders) isRoomMsg() {}

type ProcessPhase struct {
	Username string
	Reply    chan Result[types.ProcessResponse]
}

func (ProcessPhase) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type View struct {
	Version    int
	NumClients int
	State      State
}

// Room plays back one scenario. All state lives on its goroutine.
type Room struct {
	code    string
	inbox   chan Msg
	state   State
	version int
	clients map[string]chan types.FeedMessage
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
}

func NewRoom(parent context.Context, sc *scenario.Scenario, logger *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	if logger == nil {
		logger = zap.NewNop()
	}

	st := NewState(sc.Clone())
	if st.Started {
		st.GameID = uuid.NewString()
	}
	r := &Room{
		code:    sc.Code,
		inbox:   make(chan Msg, 64),
		state:   st,
		clients: make(map[string]chan types.FeedMessage),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(zap.String("code", sc.Code)),
	}

	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- r.notice()

			case Leave:
				delete(r.clients, msg.ClientID)

			case GetLobby:
				msg.Reply <- r.state.Lobby()

			case StartGame:
				next, err := Start(r.state, msg.Username, uuid.NewString())
				if err != nil {
					msg.Reply <- Result[types.Lobby]{Err: err}
					break
				}
				r.commit(next, "game started")
				msg.Reply <- Result[types.Lobby]{Value: r.state.Lobby()}

			case GetGame:
				g, err := Game(r.state, msg.Username)
				msg.Reply <- Result[types.GameResponse]{Value: g, Err: err}

			case GetOrders:
				o, err := Orders(r.state, msg.Username)
				msg.Reply <- Result[types.OrdersResponse]{Value: o, Err: err}

			case SubmitOrders:
				r.submit(msg)

			case ProcessPhase:
				prev := r.state.PhaseName()
				next, err := Process(r.state, msg.Username)
				if err != nil {
					msg.Reply <- Result[types.ProcessResponse]{Err: err}
					break
				}
				r.commit(next, "phase processed")
				msg.Reply <- Result[types.ProcessResponse]{Value: types.ProcessResponse{
					Code:          r.Code(),
					PreviousPhase: prev,
					NewPhase:      r.state.PhaseName(),
					IsDone:        r.state.Done,
				}}

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					State:      r.state,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) submit(msg SubmitOrders) {
	next, ready, err := Submit(r.state, msg.Username, msg.Orders, msg.Wait)
	if err != nil {
		msg.Reply <- Result[types.SubmitResponse]{Err: err}
		return
	}
	power, _ := next.powerOf(msg.Username)
	resp := types.SubmitResponse{
		Code:            r.Code(),
		Power:           power,
		OrdersSubmitted: next.Submitted[power],
		Wait:            msg.Wait,
	}
	if ready {
		// everyone is in: resolve like the host would
		next = advance(next)
	}
	r.commit(next, "orders submitted")
	msg.Reply <- Result[types.SubmitResponse]{Value: resp}
}

// commit installs next, bumps the version and tells every subscriber.
func (r *Room) commit(next State, what string) {
	r.state = next
	r.version++
	r.logger.Info(what, zap.Int("version", r.version), zap.String("phase", r.state.PhaseName()))
	r.broadcast(r.notice())
}

func (r *Room) notice() types.FeedMessage {
	msg := types.FeedMessage{
		Type:    types.FeedChanged,
		Code:    r.Code(),
		Version: r.version,
		Status:  types.LobbyWaiting,
	}
	if r.state.Started {
		msg.Status = types.LobbyStarted
		msg.Phase = r.state.PhaseName()
	}
	return msg
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch) // no more notices
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) broadcast(msg types.FeedMessage) {
	for id, ch := range r.clients {
		select {
		case ch <- msg:
		default:
			// slow subscriber: drop it
			close(ch)
			delete(r.clients, id)
		}
	}
}

// Inbox exposes the room's mailbox to the hub, handlers and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has shut down and stopped reading its inbox.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }
