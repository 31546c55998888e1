package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/hub"
	"github.com/DoyleJ11/dipclient/internal/room"
	"github.com/DoyleJ11/dipclient/pkg/types"
)

// Handler streams a room's change notices. Clients only listen; anything
// they send is answered with an error frame.
func Handler(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "code"))
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		rm := h.Room(r.Context(), code)
		if rm == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// dev server: any origin may listen
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.FeedMessage, 8)
		clientID := uuid.NewString()
		log := logger.With(zap.String("code", code), zap.String("client", clientID))

		select {
		case rm.Inbox() <- room.Join{ClientID: clientID, Outbox: out}:
		case <-rm.Done():
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer func() {
			select {
			case rm.Inbox() <- room.Leave{ClientID: clientID}:
			case <-rm.Done():
			}
		}()
		log.Debug("feed subscriber joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				var msg types.FeedMessage
				var ok bool
				select {
				case msg, ok = <-out:
				case <-rm.Done():
				}
				if !ok {
					// room closed our outbox or shut down: it is gone or we were too slow
					conn.Close(websocket.StatusGoingAway, "room closed")
					return
				}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				err := conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
		}()

		// Reader loop
		for {
			_, _, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("feed subscriber left")
				default:
					log.Debug("feed read failed", zap.Error(err))
				}
				return
			}
			payload, _ := json.Marshal(types.FeedMessage{Type: types.FeedError, Code: code, Error: "feed is read-only"})
			_ = conn.Write(r.Context(), websocket.MessageText, payload)
		}
	}
}
