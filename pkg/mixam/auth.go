package mixam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	authPath          = "/api/public/auth/token"
	defaultTokenTTL   = time.Hour
	tokenRefreshSlack = time.Minute
)

// tokenSource caches a bearer token until shortly before it expires.
type tokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
	fetch  func(context.Context) (string, time.Time, error)
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.expiry.Sub(t.now()) > tokenRefreshSlack {
		return t.token, nil
	}

	token, expiry, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expiry = expiry
	return token, nil
}

func staticTokenSource(token string) *tokenSource {
	return &tokenSource{
		now: time.Now,
		fetch: func(context.Context) (string, time.Time, error) {
			return token, time.Now().Add(100 * 365 * 24 * time.Hour), nil
		},
	}
}

func (c *Client) passwordTokenSource(username, password string) *tokenSource {
	return &tokenSource{
		now: c.now,
		fetch: func(ctx context.Context) (string, time.Time, error) {
			return c.exchangeCredentials(ctx, username, password)
		},
	}
}

func (c *Client) exchangeCredentials(ctx context.Context, username, password string) (string, time.Time, error) {
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", time.Time{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(authPath), bytes.NewReader(payload))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token exchange status %d: %s", resp.StatusCode, reasonFromBody(body))
	}

	var out struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if out.Token == "" {
		return "", time.Time{}, fmt.Errorf("token response missing token")
	}
	ttl := time.Duration(out.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return out.Token, c.now().Add(ttl), nil
}
