// Package notify subscribes to a lobby's websocket change feed and asks the
// sync loop to poll as soon as the server reports a change. The feed only
// speeds polling up; state always comes from the REST snapshots.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/pkg/types"
)

// Nudger is poked on every change notification.
type Nudger interface {
	Nudge()
}

type Feed struct {
	url        string
	token      string
	target     Nudger
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
	idle       time.Duration
}

type Option func(*Feed)

func WithLogger(l *zap.Logger) Option { return func(f *Feed) { f.logger = l } }

// WithBackoff bounds the wait between reconnect attempts.
func WithBackoff(lo, hi time.Duration) Option {
	return func(f *Feed) { f.minBackoff, f.maxBackoff = lo, hi }
}

// WithIdleTimeout drops a connection that has been silent for d.
func WithIdleTimeout(d time.Duration) Option { return func(f *Feed) { f.idle = d } }

// NewFeed builds the feed for code on the server at base (http or https).
func NewFeed(base *url.URL, code, token string, target Nudger, opts ...Option) (*Feed, error) {
	u := *base
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported feed scheme %q", u.Scheme)
	}
	u = *u.JoinPath("api", "lobby", strings.ToUpper(strings.TrimSpace(code)), "ws")

	f := &Feed{
		url:        u.String(),
		token:      token,
		target:     target,
		logger:     zap.NewNop(),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
		idle:       2 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Feed) URL() string { return f.url }

// Run keeps a connection open until ctx is done, reconnecting with capped
// exponential backoff.
func (f *Feed) Run(ctx context.Context) error {
	backoff := f.minBackoff
	for {
		connected, err := f.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = f.minBackoff
		}
		f.logger.Debug("feed disconnected", zap.Error(err), zap.Duration("retry_in", backoff))

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff = min(backoff*2, f.maxBackoff)
	}
}

// session runs one connection. connected reports whether the dial worked.
func (f *Feed) session(ctx context.Context) (connected bool, err error) {
	header := http.Header{}
	if f.token != "" {
		header.Set("Authorization", "Bearer "+f.token)
	}
	conn, _, err := websocket.Dial(ctx, f.url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return false, fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	f.logger.Info("feed connected", zap.String("url", f.url))

	// a reconnect may have missed changes
	f.target.Nudge()

	for {
		readCtx, cancel := context.WithTimeout(ctx, f.idle)
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return true, nil
			}
			return true, err
		}

		var msg types.FeedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Warn("bad feed message", zap.Error(err))
			continue
		}
		switch msg.Type {
		case types.FeedChanged:
			f.logger.Debug("feed change", zap.Int("version", msg.Version), zap.String("status", msg.Status), zap.String("phase", msg.Phase))
			f.target.Nudge()
		case types.FeedError:
			return true, errors.New(msg.Error)
		}
	}
}
