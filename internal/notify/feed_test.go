package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/dipclient/pkg/types"
)

type chanNudger chan struct{}

func (c chanNudger) Nudge() {
	select {
	case c <- struct{}{}:
	default:
	}
}

func waitNudge(t *testing.T, c chanNudger) {
	t.Helper()
	select {
	case <-c:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for nudge")
	}
}

func TestNewFeedBuildsWebsocketURL(t *testing.T) {
	base, _ := url.Parse("https://dip.example.com/base")
	f, err := NewFeed(base, "abcd", "tok", chanNudger(nil))
	require.NoError(t, err)
	assert.Equal(t, "wss://dip.example.com/base/api/lobby/ABCD/ws", f.URL())

	base, _ = url.Parse("ftp://x")
	_, err = NewFeed(base, "abcd", "tok", chanNudger(nil))
	assert.Error(t, err)
}

func TestFeedNudgesOnChangeAndReconnects(t *testing.T) {
	var conns atomic.Int32
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		assert.Equal(t, "/api/lobby/ABCD/ws", r.URL.Path)
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conns.Add(1)
		payload, _ := json.Marshal(types.FeedMessage{Type: types.FeedChanged, Code: "ABCD", Version: 1})
		_ = conn.Write(r.Context(), websocket.MessageText, payload)
		// drop the connection so the client has to come back
		conn.Close(websocket.StatusGoingAway, "restart")
	}))
	defer srv.Close()

	base, _ := url.Parse(srv.URL)
	nudges := make(chanNudger, 16)
	f, err := NewFeed(base, "ABCD", "tok", nudges, WithBackoff(5*time.Millisecond, 20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	waitNudge(t, nudges)
	waitNudge(t, nudges)
	require.Eventually(t, func() bool { return conns.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "Bearer tok", auth.Load())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFeedRetriesWhenServerIsDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base, _ := url.Parse(srv.URL)
	srv.Close()

	f, err := NewFeed(base, "ABCD", "", chanNudger(nil), WithBackoff(time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Run(ctx), context.DeadlineExceeded)
}
