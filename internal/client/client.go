// Package client provides an HTTP client for the house-market REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/evcraddock/house-market/internal/analytics"
	"github.com/evcraddock/house-market/internal/inquiry"
	"github.com/evcraddock/house-market/internal/preference"
	"github.com/evcraddock/house-market/internal/profile"
	"github.com/evcraddock/house-market/internal/property"
	"github.com/evcraddock/house-market/internal/viewing"
)

// APIError is an error response from the server. Error returns the
// server's message unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Client is an HTTP client for the house-market API.
type Client struct {
	baseURL    string
	transport  *refreshTransport
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTokens sets the initial credentials.
func WithTokens(t Tokens) Option {
	return func(c *Client) { c.transport.tokens = t }
}

// OnRefresh registers fn to receive tokens obtained by a refresh.
func OnRefresh(fn func(Tokens)) Option {
	return func(c *Client) { c.transport.onRefresh = fn }
}

// WithHTTPTransport replaces the underlying round tripper.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport.base = rt }
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	t := &refreshTransport{base: http.DefaultTransport, refreshURL: baseURL + "/api/auth/refresh"}
	c := &Client{
		baseURL:    baseURL,
		transport:  t,
		httpClient: &http.Client{Timeout: 30 * time.Second, Transport: t},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Tokens returns the current credentials.
func (c *Client) Tokens() Tokens { return c.transport.current() }

// SignUp registers an account. A confirmation code is emailed.
func (c *Client) SignUp(ctx context.Context, email, password, name string) error {
	body := map[string]string{"email": email, "password": password, "name": name}
	return c.send(ctx, http.MethodPost, "/api/auth/signup", body, nil)
}

// ConfirmSignUp confirms an account with the emailed code.
func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	return c.send(ctx, http.MethodPost, "/api/auth/confirm", map[string]string{"email": email, "code": code}, nil)
}

// ResendCode emails a new confirmation code.
func (c *Client) ResendCode(ctx context.Context, email string) error {
	return c.send(ctx, http.MethodPost, "/api/auth/resend", map[string]string{"email": email}, nil)
}

// SignIn exchanges credentials for tokens and keeps them for later requests.
func (c *Client) SignIn(ctx context.Context, email, password string) (Tokens, error) {
	var t Tokens
	if err := c.send(ctx, http.MethodPost, "/api/auth/signin", map[string]string{"email": email, "password": password}, &t); err != nil {
		return Tokens{}, err
	}
	c.transport.set(t)
	return t, nil
}

// SignOut ends the server session and forgets the tokens.
func (c *Client) SignOut(ctx context.Context) error {
	body := map[string]string{"refresh_token": c.Tokens().RefreshToken}
	if err := c.send(ctx, http.MethodPost, "/api/auth/signout", body, nil); err != nil {
		return err
	}
	c.transport.set(Tokens{})
	return nil
}

// ForgotPassword requests a reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.send(ctx, http.MethodPost, "/api/auth/forgot", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password with the emailed reset code.
func (c *Client) ResetPassword(ctx context.Context, email, code, password string) error {
	body := map[string]string{"email": email, "code": code, "password": password}
	return c.send(ctx, http.MethodPost, "/api/auth/reset", body, nil)
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*profile.User, error) {
	var u profile.User
	if err := c.send(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile changes the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, in profile.Update) (*profile.User, error) {
	var u profile.User
	if err := c.send(ctx, http.MethodPut, "/api/profile", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListProperties returns listings matching opts.
func (c *Client) ListProperties(ctx context.Context, opts property.ListOptions) ([]*property.Property, error) {
	path := "/api/properties"
	if q := opts.Query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	var props []*property.Property
	if err := c.send(ctx, http.MethodGet, path, nil, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// MyProperties returns the signed-in user's listings.
func (c *Client) MyProperties(ctx context.Context) ([]*property.Property, error) {
	var props []*property.Property
	if err := c.send(ctx, http.MethodGet, "/api/properties/mine", nil, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// GetProperty returns one listing.
func (c *Client) GetProperty(ctx context.Context, id string) (*property.Property, error) {
	var p property.Property
	if err := c.send(ctx, http.MethodGet, "/api/properties/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProperty creates a listing without images.
func (c *Client) CreateProperty(ctx context.Context, in property.Input) (*property.Property, error) {
	var p property.Property
	if err := c.send(ctx, http.MethodPost, "/api/properties", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProperty changes a listing.
func (c *Client) UpdateProperty(ctx context.Context, id string, patch property.Patch) (*property.Property, error) {
	var p property.Property
	if err := c.send(ctx, http.MethodPut, "/api/properties/"+url.PathEscape(id), patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProperty removes a listing.
func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/properties/"+url.PathEscape(id), nil, nil)
}

// ViewProperty records a view and reports whether it was counted.
func (c *Client) ViewProperty(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Counted bool `json:"counted"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/properties/"+url.PathEscape(id)+"/view", nil, &resp); err != nil {
		return false, err
	}
	return resp.Counted, nil
}

// SendInquiry sends an inquiry about a listing.
func (c *Client) SendInquiry(ctx context.Context, propertyID string, in inquiry.Input) (*inquiry.Inquiry, error) {
	var q inquiry.Inquiry
	if err := c.send(ctx, http.MethodPost, "/api/properties/"+url.PathEscape(propertyID)+"/inquiries", in, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListInquiries returns received or sent inquiries. box is "received" or "sent".
func (c *Client) ListInquiries(ctx context.Context, box string) ([]*inquiry.Inquiry, error) {
	var qs []*inquiry.Inquiry
	if err := c.send(ctx, http.MethodGet, "/api/inquiries?box="+url.QueryEscape(box), nil, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// InquiryUpdate changes the status or priority of an inquiry.
type InquiryUpdate struct {
	Status   inquiry.Status   `json:"status,omitempty"`
	Priority inquiry.Priority `json:"priority,omitempty"`
}

// UpdateInquiry applies u to an inquiry.
func (c *Client) UpdateInquiry(ctx context.Context, id string, u InquiryUpdate) (*inquiry.Inquiry, error) {
	var q inquiry.Inquiry
	if err := c.send(ctx, http.MethodPatch, "/api/inquiries/"+url.PathEscape(id), u, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// DeleteInquiry removes an inquiry.
func (c *Client) DeleteInquiry(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/inquiries/"+url.PathEscape(id), nil, nil)
}

// RequestViewing asks to tour a listing.
func (c *Client) RequestViewing(ctx context.Context, propertyID string, in viewing.Input) (*viewing.Viewing, error) {
	var v viewing.Viewing
	if err := c.send(ctx, http.MethodPost, "/api/properties/"+url.PathEscape(propertyID)+"/viewings", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListViewings returns viewings. role is "owner" or "requester".
func (c *Client) ListViewings(ctx context.Context, role string) ([]*viewing.Viewing, error) {
	var vs []*viewing.Viewing
	if err := c.send(ctx, http.MethodGet, "/api/viewings?role="+url.QueryEscape(role), nil, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

// UpdateViewingStatus sets the status of a viewing.
func (c *Client) UpdateViewingStatus(ctx context.Context, id string, status viewing.Status) (*viewing.Viewing, error) {
	var v viewing.Viewing
	body := map[string]viewing.Status{"status": status}
	if err := c.send(ctx, http.MethodPatch, "/api/viewings/"+url.PathEscape(id), body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteViewing removes a viewing request.
func (c *Client) DeleteViewing(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/viewings/"+url.PathEscape(id), nil, nil)
}

// GetPreferences returns the signed-in user's saved listings.
func (c *Client) GetPreferences(ctx context.Context) (*preference.Preference, error) {
	var p preference.Preference
	if err := c.send(ctx, http.MethodGet, "/api/preferences", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// TogglePreference adds or removes propertyID from list on the server.
func (c *Client) TogglePreference(ctx context.Context, list preference.List, propertyID string) (*preference.Preference, error) {
	var p preference.Preference
	path := "/api/preferences/" + string(list) + "/" + url.PathEscape(propertyID)
	if err := c.send(ctx, http.MethodPost, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Analytics returns the signed-in lister's dashboard.
func (c *Client) Analytics(ctx context.Context) (*analytics.Dashboard, error) {
	var d analytics.Dashboard
	if err := c.send(ctx, http.MethodGet, "/api/analytics", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// send performs a request with an optional JSON body and decodes the response.
func (c *Client) send(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "err", cerr)
		}
	}()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: "server error: " + http.StatusText(resp.StatusCode)}
}
