package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/room"
	"github.com/DoyleJ11/dipclient/internal/scenario"
)

type HubMsg interface{ isHubMsg() }

// CreateRoom opens a room for Scenario under Scenario.Code. An existing room
// with that code is returned as is.
type CreateRoom struct {
	Scenario *scenario.Scenario
	Reply    chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type ListRooms struct {
	Reply chan []string
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

func NewHub(parent context.Context, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Room looks up a room by code; nil when there is none.
func (h *Hub) Room(ctx context.Context, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	select {
	case h.inbox <- GetRoom{Code: code, Reply: reply}:
	case <-ctx.Done():
		return nil
	}
	select {
	case r := <-reply:
		return r
	case <-ctx.Done():
		return nil
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if r := h.rooms[msg.Scenario.Code]; r != nil {
					msg.Reply <- r
					break
				}
				r := room.NewRoom(h.ctx, msg.Scenario, h.logger)
				h.rooms[msg.Scenario.Code] = r
				h.logger.Info("room created", zap.String("code", msg.Scenario.Code))
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case ListRooms:
				codes := make([]string, 0, len(h.rooms))
				for code := range h.rooms {
					codes = append(codes, code)
				}
				msg.Reply <- codes

			case RemoveRoom:
				if r := h.rooms[msg.Code]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, r := range h.rooms {
		r.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}
