package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/state"
	"github.com/DoyleJ11/dipclient/internal/submission"
	"github.com/DoyleJ11/dipclient/pkg/types"
)

var ErrMissingToken = errors.New("missing auth token")

// APIError is a non-ok response from the server.
type APIError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client speaks the lobby REST API on behalf of one authenticated session.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

func WithLogger(l *zap.Logger) Option { return func(cl *Client) { cl.logger = l } }

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http = &http.Client{Timeout: d} }
}

func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   u,
		token:  token,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

func (c *Client) FetchLobby(ctx context.Context, code string) (state.LobbyState, error) {
	var resp types.LobbyResponse
	if err := c.do(ctx, http.MethodGet, lobbyPath(code, ""), nil, &resp); err != nil {
		return state.LobbyState{}, err
	}
	return lobbyFromWire(resp.Lobby), nil
}

func (c *Client) StartLobby(ctx context.Context, code string) (state.LobbyState, error) {
	var resp types.LobbyResponse
	if err := c.do(ctx, http.MethodPost, lobbyPath(code, "start"), struct{}{}, &resp); err != nil {
		return state.LobbyState{}, err
	}
	return lobbyFromWire(resp.Lobby), nil
}

func (c *Client) FetchGame(ctx context.Context, code string) (state.GameSnapshot, error) {
	var resp types.GameResponse
	if err := c.do(ctx, http.MethodGet, lobbyPath(code, "game"), nil, &resp); err != nil {
		return state.GameSnapshot{}, err
	}
	return gameFromWire(resp), nil
}

func (c *Client) FetchLegalOrders(ctx context.Context, code string) (state.LegalOrders, error) {
	var resp types.OrdersResponse
	if err := c.do(ctx, http.MethodGet, lobbyPath(code, "orders"), nil, &resp); err != nil {
		return state.LegalOrders{}, err
	}
	return state.LegalOrders{
		Phase:     resp.Phase,
		Power:     resp.Power,
		Orderable: resp.OrderableLocations,
		Possible:  resp.PossibleOrders,
	}, nil
}

// SubmitOrders sends the whole batch in one request. A 400 listing invalid
// orders comes back as a *submission.SubmissionError with reasons aligned to
// texts.
func (c *Client) SubmitOrders(ctx context.Context, code string, texts []string, wait bool) (state.SubmitResult, error) {
	if texts == nil {
		texts = []string{}
	}
	var resp types.SubmitResponse
	err := c.do(ctx, http.MethodPost, lobbyPath(code, "orders"), types.SubmitRequest{Orders: texts, Wait: wait}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && len(apiErr.Details) > 0 {
			var details types.InvalidOrdersDetails
			if json.Unmarshal(apiErr.Details, &details) == nil && len(details.InvalidOrders) > 0 {
				return state.SubmitResult{}, &submission.SubmissionError{
					Reasons: rejectionReasons(texts, details.InvalidOrders),
					Err:     err,
				}
			}
		}
		return state.SubmitResult{}, err
	}

	accepted := make(map[string]bool, len(resp.OrdersSubmitted))
	for _, o := range resp.OrdersSubmitted {
		accepted[o] = true
	}
	results := make([]string, len(texts))
	for i, text := range texts {
		if !accepted[text] {
			results[i] = "not accepted"
		}
	}
	return state.SubmitResult{Results: results}, nil
}

func (c *Client) ForceProcess(ctx context.Context, code string) (state.ProcessResult, error) {
	var resp types.ProcessResponse
	if err := c.do(ctx, http.MethodPost, lobbyPath(code, "process"), struct{}{}, &resp); err != nil {
		return state.ProcessResult{}, err
	}
	return state.ProcessResult{
		PreviousPhase: resp.PreviousPhase,
		NewPhase:      resp.NewPhase,
		IsDone:        resp.IsDone,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &APIError{Status: res.StatusCode, Message: "response is not json"}
	}
	if res.StatusCode >= 400 || !env.OK {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return &APIError{Status: res.StatusCode, Message: msg, Details: env.Details}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func lobbyPath(code, action string) string {
	p := "api/lobby/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(code)))
	if action != "" {
		p += "/" + action
	}
	return p
}

func rejectionReasons(texts []string, invalid []types.InvalidOrder) []string {
	byText := make(map[string]string, len(invalid))
	for _, inv := range invalid {
		reason := inv.Reason
		if reason == "" {
			reason = "rejected"
		}
		byText[inv.Order] = reason
	}
	reasons := make([]string, len(texts))
	for i, text := range texts {
		reasons[i] = byText[text]
	}
	return reasons
}
