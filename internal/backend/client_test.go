package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveBackendCall(endpoint, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, endpoint+" "+outcome)
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger, _ := logtest.NewNullLogger()
	return New(srv.URL+"/", append([]Option{WithLogger(logger)}, opts...)...)
}

func TestRedirectURLs(t *testing.T) {
	c := New("https://api.example.com/")
	assert.Equal(t, "https://api.example.com/steam/auth", c.SteamAuthURL())
	assert.Equal(t, "https://api.example.com/steam/logout", c.SteamLogoutURL())
	assert.Equal(t, "https://api.example.com/twitch/auth", c.TwitchAuthURL())
	assert.Equal(t, "https://api.example.com/twitch/logout", c.TwitchLogoutURL())
	assert.Equal(t, "/api/news", New("/api").URL("news"))
}

func TestCollectSendsNoCustomHeaderByDefault(t *testing.T) {
	attempts := make(chan []string, 1)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathCollect, r.URL.Path)
		attempts <- r.Header.Values(ClaimAttemptHeader)
		_ = json.NewEncoder(w).Encode(CollectResponse{Success: true, Message: "granted"})
	}))

	resp, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, CollectResponse{Success: true, Message: "granted"}, resp)
	assert.Empty(t, <-attempts)
}

func TestCollectSendsAttemptIDWhenEnabled(t *testing.T) {
	attempts := make(chan string, 2)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts <- r.Header.Get(ClaimAttemptHeader)
		_ = json.NewEncoder(w).Encode(CollectResponse{Success: true})
	}), WithClaimAttemptID())

	_, err := c.Collect(context.Background())
	require.NoError(t, err)
	_, err = c.Collect(context.Background())
	require.NoError(t, err)

	first, second := <-attempts, <-attempts
	_, parseErr := uuid.Parse(first)
	assert.NoError(t, parseErr)
	assert.NotEqual(t, first, second)
}

func TestSameOrigin(t *testing.T) {
	page, err := url.Parse("https://quinfall.test/twitch-drops")
	require.NoError(t, err)

	cases := map[string]bool{
		"/api":                         true,
		"https://quinfall.test/api":    true,
		"https://QUINFALL.test/api":    true,
		"http://quinfall.test/api":     false,
		"https://api.quinfall.test":    false,
		"https://quinfall.test:8443/a": false,
	}
	for base, want := range cases {
		assert.Equal(t, want, SameOrigin(base, page), base)
	}
	assert.False(t, SameOrigin("/api", nil))
}

func TestCollectDecodesRejectionWhateverTheStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false,"message":"Watch more"}`))
	}))

	resp, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Watch more", resp.Message)
}

func TestCollectUndecodableBodyIsAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))

	_, err := c.Collect(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestCollectTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL).Collect(context.Background())

	assert.Error(t, err)
}

func TestCollectUsesCookieJar(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
	})
	mux.HandleFunc(PathCollect, func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("sid")
		ok := err == nil && cookie.Value == "abc"
		_ = json.NewEncoder(w).Encode(CollectResponse{Success: ok})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	hc := &http.Client{Jar: jar}
	loginResp, err := hc.Get(srv.URL + "/login")
	require.NoError(t, err)
	loginResp.Body.Close()

	resp, err := New(srv.URL, WithHTTPClient(hc)).Collect(context.Background())

	require.NoError(t, err)
	assert.True(t, resp.Success, "session cookie should reach the claim endpoint")
}

func TestMaintenanceDefaultsMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"isActive":true,"message":"","activatedAt":null,"activatedBy":null}`))
	}))

	m, err := c.Maintenance(context.Background())

	require.NoError(t, err)
	assert.True(t, m.IsActive)
	assert.Contains(t, m.Message, "scheduled maintenance")
}

func TestPlayerCount(t *testing.T) {
	serve := func(payload string) *Client {
		return newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(payload))
		}))
	}

	n, err := serve(`{"playerCount":1234}`).PlayerCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234, n)

	_, err = serve(`{"playerCount":"lots"}`).PlayerCount(context.Background())
	assert.Error(t, err)

	_, err = serve(`{}`).PlayerCount(context.Background())
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNewsByIDNotFound(t *testing.T) {
	obs := &recordingObserver{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news/missing", r.URL.Path)
		http.NotFound(w, r)
	}), WithObserver(obs))

	_, err := c.NewsByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"/news/:id 4xx"}, obs.calls)

	_, err = c.NewsByID(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribeSurfacesBackendMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email == "taken@example.com" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Email already subscribed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"_id":"1","email":"` + req.Email + `","status":"Active"}`))
	}))

	sub, err := c.Subscribe(context.Background(), " new@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", sub.Email)

	_, err = c.Subscribe(context.Background(), "taken@example.com")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Email already subscribed", apiErr.Message)
}
