package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Tokens is the credential pair returned by sign-in and refresh.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

// refreshTransport attaches the bearer access token and, when the server
// answers 401, refreshes the tokens once and retries the request.
type refreshTransport struct {
	base       http.RoundTripper
	refreshURL string

	mu        sync.Mutex
	tokens    Tokens
	onRefresh func(Tokens)
}

func (t *refreshTransport) current() Tokens {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens
}

func (t *refreshTransport) set(tokens Tokens) {
	t.mu.Lock()
	t.tokens = tokens
	t.mu.Unlock()
}

func (t *refreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	sent := t.current()
	resp, err := t.send(req, sent.AccessToken)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || sent.RefreshToken == "" {
		return resp, err
	}
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	drain(resp)
	fresh, err := t.refresh(req, sent)
	if err != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		retry.Body = body
	}
	return t.send(retry, fresh.AccessToken)
}

func (t *refreshTransport) send(req *http.Request, access string) (*http.Response, error) {
	r := req.Clone(req.Context())
	if access != "" {
		r.Header.Set("Authorization", "Bearer "+access)
	}
	return t.base.RoundTrip(r)
}

// refresh exchanges the refresh token for new tokens. Concurrent callers
// that saw the same expired token share one exchange.
func (t *refreshTransport) refresh(req *http.Request, sent Tokens) (Tokens, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tokens.AccessToken != sent.AccessToken {
		return t.tokens, nil
	}

	data, err := json.Marshal(map[string]string{"refresh_token": t.tokens.RefreshToken})
	if err != nil {
		return Tokens{}, fmt.Errorf("marshaling refresh request: %w", err)
	}
	r, err := http.NewRequestWithContext(req.Context(), http.MethodPost, t.refreshURL, bytes.NewReader(data))
	if err != nil {
		return Tokens{}, fmt.Errorf("creating refresh request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return Tokens{}, fmt.Errorf("refreshing token: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return Tokens{}, decodeError(resp)
	}

	var fresh Tokens
	if err := json.NewDecoder(resp.Body).Decode(&fresh); err != nil {
		return Tokens{}, fmt.Errorf("decoding refresh response: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = t.tokens.RefreshToken
	}
	t.tokens = fresh
	if t.onRefresh != nil {
		t.onRefresh(fresh)
	}
	return fresh, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
