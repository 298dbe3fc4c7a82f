// Package backend is the HTTP client for the studio REST backend: the Twitch Drops
// endpoints plus the public site data (maintenance, news, newsletter, player count).
package backend

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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Its-donkey/quinfall-site/internal/ui/model"
)

// Backend paths.
const (
	PathSteamAuth    = "/steam/auth"
	PathSteamLogout  = "/steam/logout"
	PathTwitchAuth   = "/twitch/auth"
	PathTwitchLogout = "/twitch/logout"
	PathCollect      = "/twitch/collect"
	PathMaintenance  = "/maintenance"
	PathPlayerCount  = "/steam/player-count"
	PathNews         = "/news"
	PathSubscription = "/subscription"
)

// ClaimAttemptHeader identifies a single claim attempt so the backend can deduplicate.
const ClaimAttemptHeader = "X-Claim-Attempt"

const maxBodyBytes = 1 << 20

var (
	// ErrNotFound is returned when the backend answers 404.
	ErrNotFound = errors.New("backend: not found")
	// ErrInvalidPayload is returned when a response body does not have the expected shape.
	ErrInvalidPayload = errors.New("backend: invalid data format")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %d %s", e.Status, http.StatusText(e.Status))
}

// Observer receives one call per backend request. internal/metrics implements it.
type Observer interface {
	ObserveBackendCall(endpoint, outcome string, elapsed time.Duration)
}

// CollectResponse is the body of POST /twitch/collect.
type CollectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Client talks to the studio backend.
type Client struct {
	base       string
	httpClient *http.Client
	logger     logrus.FieldLogger
	observer   Observer
	now        func() time.Time
	attemptIDs bool
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Native callers that need the claim
// endpoint to see the player's session should pass a client with a cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver records per-request metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithClaimAttemptID tags every claim with a fresh ClaimAttemptHeader. The header is not
// CORS-safelisted, so only enable it when the backend shares the page's origin or answers
// preflights for it.
func WithClaimAttemptID() Option {
	return func(c *Client) {
		c.attemptIDs = true
	}
}

// SameOrigin reports whether base, resolved against page, has the page's scheme and host.
func SameOrigin(base string, page *url.URL) bool {
	if page == nil {
		return false
	}
	ref, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return false
	}
	resolved := page.ResolveReference(ref)
	return strings.EqualFold(resolved.Scheme, page.Scheme) && strings.EqualFold(resolved.Host, page.Host)
}

// New builds a Client rooted at base, e.g. "https://api.example.com" or "/api".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimSuffix(strings.TrimSpace(base), "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logrus.StandardLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Base returns the configured base URL.
func (c *Client) Base() string {
	return c.base
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base + path
}

// SteamAuthURL is the full-page navigation target that starts a Steam link.
func (c *Client) SteamAuthURL() string { return c.URL(PathSteamAuth) }

// SteamLogoutURL ends the Steam session.
func (c *Client) SteamLogoutURL() string { return c.URL(PathSteamLogout) }

// TwitchAuthURL starts a Twitch link. Only meaningful once Steam is linked.
func (c *Client) TwitchAuthURL() string { return c.URL(PathTwitchAuth) }

// TwitchLogoutURL unlinks Twitch.
func (c *Client) TwitchLogoutURL() string { return c.URL(PathTwitchLogout) }

// Collect posts a reward claim with the browser's credentials. The body is decoded
// whatever the status code; a body that is not the expected JSON is an error.
func (c *Client) Collect(ctx context.Context) (CollectResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(PathCollect), nil)
	if err != nil {
		return CollectResponse{}, fmt.Errorf("build collect request: %w", err)
	}
	if c.attemptIDs {
		req.Header.Set(ClaimAttemptHeader, uuid.NewString())
	}
	includeCredentials(req)

	var out CollectResponse
	status, err := c.do(req, PathCollect, &out)
	if err != nil {
		return CollectResponse{}, err
	}
	c.logger.WithFields(logrus.Fields{"status": status, "success": out.Success}).Debug("backend: collect settled")
	return out, nil
}

// Maintenance fetches the maintenance switch.
func (c *Client) Maintenance(ctx context.Context) (model.Maintenance, error) {
	var out model.Maintenance
	if err := c.getJSON(ctx, PathMaintenance, PathMaintenance, &out); err != nil {
		return model.Maintenance{}, err
	}
	if strings.TrimSpace(out.Message) == "" {
		out.Message = model.DefaultMaintenanceMessage
	}
	return out, nil
}

// PlayerCount fetches the current Steam player count.
func (c *Client) PlayerCount(ctx context.Context) (int, error) {
	var out model.PlayerCountResponse
	if err := c.getJSON(ctx, PathPlayerCount, PathPlayerCount, &out); err != nil {
		return 0, err
	}
	if out.PlayerCount == nil {
		return 0, ErrInvalidPayload
	}
	return int(*out.PlayerCount), nil
}

// News lists published posts.
func (c *Client) News(ctx context.Context) ([]model.News, error) {
	var out []model.News
	if err := c.getJSON(ctx, PathNews, PathNews, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewsByID fetches a single post.
func (c *Client) NewsByID(ctx context.Context, id string) (model.News, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.News{}, ErrNotFound
	}
	var out model.News
	if err := c.getJSON(ctx, PathNews+"/"+url.PathEscape(id), PathNews+"/:id", &out); err != nil {
		return model.News{}, err
	}
	return out, nil
}

// Subscribe creates a newsletter subscription.
func (c *Client) Subscribe(ctx context.Context, email string) (model.Subscription, error) {
	payload, err := json.Marshal(model.SubscriptionRequest{Email: strings.TrimSpace(email)})
	if err != nil {
		return model.Subscription{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(PathSubscription), bytes.NewReader(payload))
	if err != nil {
		return model.Subscription{}, fmt.Errorf("build subscription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out model.Subscription
	if _, err := c.do(req, PathSubscription, &out); err != nil {
		return model.Subscription{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	_, err = c.do(req, endpoint, dst)
	return err
}

// do sends req and decodes the body into dst. For the collect endpoint a non-2xx status
// with a decodable body is not an error; every other endpoint turns it into *APIError.
func (c *Client) do(req *http.Request, endpoint string, dst any) (int, error) {
	start := c.now()
	outcome := "error"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveBackendCall(endpoint, outcome, c.now().Sub(start))
		}
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s: %w", endpoint, err)
	}
	outcome = fmt.Sprintf("%dxx", resp.StatusCode/100)

	if resp.StatusCode == http.StatusNotFound && endpoint != PathCollect {
		return resp.StatusCode, ErrNotFound
	}
	if (resp.StatusCode < 200 || resp.StatusCode >= 300) && endpoint != PathCollect {
		var apiErr model.ErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(apiErr.Message)}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		c.logger.WithError(err).WithField("endpoint", endpoint).Warn("backend: undecodable response")
		return resp.StatusCode, fmt.Errorf("decode %s: %w", endpoint, errors.Join(ErrInvalidPayload, err))
	}
	return resp.StatusCode, nil
}
