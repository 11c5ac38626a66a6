package mixam

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

	"github.com/angelmondragon/storyprint-backend/pkg/config"
	"github.com/angelmondragon/storyprint-backend/pkg/metrics"
)

const (
	defaultBaseURL         = "https://mixam.co.uk"
	defaultTimeout         = 30 * time.Second
	maxResponseBytes int64 = 1 << 20
)

var errCredentialsRequired = errors.New("mixam api token or username/password is required")

type metricsRecorder interface {
	Observe(operation string, elapsed time.Duration, err error)
}

// Client talks to the Mixam public order API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *tokenSource
	metrics    metricsRecorder
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithMetrics records per-call latency and outcome.
func WithMetrics(m *metrics.BrokerMetrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock overrides time.Now for token expiry and interaction timing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the broker client. A static API token wins over the
// username/password exchange when both are configured.
func NewClient(cfg config.MixamConfig, opts ...Option) (*Client, error) {
	if !cfg.HasCredentials() {
		return nil, errCredentialsRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		now:        time.Now,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		client.baseURL = strings.TrimSpace(cfg.BaseURL)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if token := strings.TrimSpace(cfg.APIToken); token != "" {
		client.tokens = staticTokenSource(token)
	} else {
		client.tokens = client.passwordTokenSource(strings.TrimSpace(cfg.Username), cfg.Password)
	}
	return client, nil
}

type call struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	summary string
}

// do executes one API call and always returns the matching Interaction.
func (c *Client) do(ctx context.Context, req call, out any) (Interaction, error) {
	if c == nil {
		err := &Error{Op: req.op, Reason: "mixam client not configured"}
		return Interaction{Operation: req.op, Method: req.method, Path: req.path, Error: err.Error()}, err
	}
	started := c.now()
	interaction := Interaction{
		Operation:      req.op,
		Method:         req.method,
		Path:           req.path,
		RequestSummary: req.summary,
		StartedAt:      started,
	}

	err := c.roundTrip(ctx, req, out, &interaction)
	interaction.Duration = c.now().Sub(started)
	if err != nil {
		interaction.Error = err.Error()
	}
	if c.metrics != nil {
		c.metrics.Observe(req.op, interaction.Duration, err)
	}
	return interaction, err
}

func (c *Client) roundTrip(ctx context.Context, req call, out any, interaction *Interaction) error {
	if c.httpClient == nil || c.tokens == nil {
		return &Error{Op: req.op, Reason: "mixam client not configured"}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &Error{Op: req.op, Reason: fmt.Sprintf("%s: %v", opAuthenticate, err), Err: err}
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return &Error{Op: req.op, Reason: fmt.Sprintf("marshal request: %v", err), Err: err}
		}
		body = bytes.NewReader(payload)
	}

	target := c.buildURL(req.path)
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return &Error{Op: req.op, Reason: fmt.Sprintf("build request: %v", err), Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Error{Op: req.op, Reason: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	interaction.HTTPStatus = resp.StatusCode
	interaction.ResponseSnippet = snippet(raw)
	if readErr != nil {
		return &Error{Op: req.op, StatusCode: resp.StatusCode, Reason: fmt.Sprintf("read response: %v", readErr), Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: req.op, StatusCode: resp.StatusCode, Reason: reasonFromBody(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: req.op, StatusCode: resp.StatusCode, Reason: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

// reasonFromBody prefers the broker's structured message and falls back to
// the raw body.
func reasonFromBody(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, candidate := range []string{payload.Message, payload.Error, payload.Detail} {
			if strings.TrimSpace(candidate) != "" {
				return strings.TrimSpace(candidate)
			}
		}
	}
	text := strings.TrimSpace(snippet(body))
	if text == "" {
		return "empty response"
	}
	return text
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}
