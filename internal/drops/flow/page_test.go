package flow

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Its-donkey/quinfall-site/internal/backend"
	"github.com/Its-donkey/quinfall-site/internal/drops"
	"github.com/Its-donkey/quinfall-site/internal/drops/claim"
	"github.com/Its-donkey/quinfall-site/internal/drops/linkstate"
)

type recorder struct {
	mu       sync.Mutex
	targets  []string
	replaced []string
}

func (r *recorder) Navigate(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
}

func (r *recorder) ReplaceState(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaced = append(r.replaced, path)
}

type stubCollector struct {
	mu    sync.Mutex
	resp  backend.CollectResponse
	err   error
	calls int
}

func (s *stubCollector) Collect(context.Context) (backend.CollectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.resp, s.err
}

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

var endpoints = Endpoints{
	SteamAuth:    "https://api.test/steam/auth",
	SteamLogout:  "https://api.test/steam/logout",
	TwitchAuth:   "https://api.test/twitch/auth",
	TwitchLogout: "https://api.test/twitch/logout",
}

type harness struct {
	storage   *linkstate.MemoryStorage
	rec       *recorder
	collector *stubCollector
}

func newHarness() *harness {
	return &harness{
		storage:   linkstate.NewMemoryStorage(),
		rec:       &recorder{},
		collector: &stubCollector{resp: backend.CollectResponse{Success: true}},
	}
}

// load simulates one page load against the shared storage.
func (h *harness) load(t *testing.T, rawURL string) (*Page, View) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	store := linkstate.NewStore(h.storage, linkstate.WithLogger(logger))
	coordinator := claim.New(h.collector,
		claim.WithLogger(logger),
		claim.WithTicker(func(time.Duration) claim.Ticker { return idleTicker{} }),
	)
	t.Cleanup(coordinator.Close)
	page := New(Config{
		Store:       store,
		History:     h.rec,
		Coordinator: coordinator,
		Navigator:   h.rec,
		Endpoints:   endpoints,
		Logger:      logger,
	})
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return page, page.Init(u)
}

func (h *harness) persist(t *testing.T, s linkstate.State) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, h.storage.SetItem(linkstate.StorageKey, string(data)))
}

func TestIdempotentReload(t *testing.T) {
	h := newHarness()
	h.persist(t, linkstate.State{SteamLinked: true, SteamUsername: "gabe", TwitchLinked: true, TwitchUsername: "gabe_tv"})

	first, _ := h.load(t, "https://quinfall.test/twitch-drops")
	second, _ := h.load(t, "https://quinfall.test/twitch-drops")

	assert.Equal(t, first.Link(), second.Link())
	assert.True(t, second.Link().TwitchLinked)
	assert.Empty(t, h.rec.replaced)
}

func TestCallbackTakesPrecedenceOverStoredState(t *testing.T) {
	h := newHarness()
	h.persist(t, linkstate.State{SteamLinked: true, TwitchLinked: true, TwitchUsername: "old"})

	page, view := h.load(t, "https://quinfall.test/twitch-drops?steamId=123&username=gabe&twitchLinked=false")

	assert.False(t, page.Link().TwitchLinked)
	assert.Equal(t, PartiallyLinked, view.Phase)
	assert.Equal(t, "gabe", view.SteamUsername)
	assert.Equal(t, []string{"/twitch-drops"}, h.rec.replaced)
}

func TestConflictLeavesStoredStateAndShowsMessage(t *testing.T) {
	h := newHarness()
	prior := linkstate.State{SteamLinked: true, SteamUsername: "gabe"}
	h.persist(t, prior)

	page, view := h.load(t, "https://quinfall.test/twitch-drops?error=TwitchAlreadyLinked")

	assert.Equal(t, prior, page.Link())
	assert.Equal(t, drops.Message{Text: drops.TwitchAlreadyLinkedMsg, Tone: drops.ToneError}, view.Message)
	assert.Equal(t, []string{"/twitch-drops"}, h.rec.replaced)
}

func TestCooldownIsTheSameForAcceptedAndRejectedClaims(t *testing.T) {
	for name, resp := range map[string]backend.CollectResponse{
		"accepted": {Success: true},
		"rejected": {Success: false},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.collector.resp = resp
			page, view := h.load(t, "/twitch-drops?steamId=1&twitchLinked=true")
			require.Equal(t, Ready, view.Phase)

			_, issued := page.Claim(context.Background())

			require.True(t, issued)
			assert.Equal(t, 10, page.View().Cooldown)
		})
	}
}

func TestClaimedIsTerminal(t *testing.T) {
	h := newHarness()
	page, _ := h.load(t, "/twitch-drops?steamId=1&twitchLinked=true")

	_, issued := page.Claim(context.Background())
	require.True(t, issued)
	view := page.View()
	assert.Equal(t, Claimed, view.Phase)
	assert.Equal(t, StepCompleted, view.Steps[2].Status)
	assert.False(t, view.CanClaim)

	_, issued = page.Claim(context.Background())
	assert.False(t, issued)
	assert.Equal(t, 1, h.collector.calls)
}

func TestNetworkFailureShowsGenericMessage(t *testing.T) {
	h := newHarness()
	h.collector.err = errors.New("connection refused")
	page, _ := h.load(t, "/twitch-drops?steamId=1&twitchLinked=true")

	result, issued := page.Claim(context.Background())

	require.True(t, issued)
	assert.Equal(t, drops.KindNetworkError, result.Kind)
	view := page.View()
	assert.Equal(t, Cooling, view.Phase)
	assert.Equal(t, drops.DefaultServerError, view.Message.Text)
}

func TestTwitchLinkNeverInvocableWithoutSteam(t *testing.T) {
	h := newHarness()
	check := func(page *Page) {
		t.Helper()
		if !page.Link().SteamLinked {
			before := len(h.rec.targets)
			assert.False(t, page.TwitchLinkAllowed())
			assert.False(t, page.View().CanConnectTwitch)
			assert.False(t, page.ConnectTwitch())
			assert.Len(t, h.rec.targets, before, "no navigation to twitch auth")
		}
	}

	steps := []string{
		"/twitch-drops",
		"/twitch-drops?error=SteamAlreadyLinked",
		"/twitch-drops?steamId=1&twitchLinked=true",
		"disconnect-steam",
		"/twitch-drops?twitchLinked=true&twitchUsername=x",
		"/twitch-drops?steamId=2",
		"disconnect-twitch",
		"connect-steam",
		"/twitch-drops",
	}
	var page *Page
	for _, step := range steps {
		switch step {
		case "disconnect-steam":
			page.DisconnectSteam()
		case "disconnect-twitch":
			page.DisconnectTwitch()
		case "connect-steam":
			page.ConnectSteam()
		default:
			page, _ = h.load(t, step)
		}
		check(page)
	}
	for _, target := range h.rec.targets {
		if target == endpoints.TwitchAuth {
			t.Fatalf("twitch auth reached: %v", h.rec.targets)
		}
	}
}

func TestConnectTwitchNavigatesOnceSteamLinked(t *testing.T) {
	h := newHarness()
	page, view := h.load(t, "/twitch-drops?steamId=1&username=gabe")

	require.True(t, view.CanConnectTwitch)
	assert.True(t, page.ConnectTwitch())
	assert.Equal(t, []string{endpoints.TwitchAuth}, h.rec.targets)
}

func TestURLHygieneAfterAnyCallback(t *testing.T) {
	for _, raw := range []string{
		"https://quinfall.test/twitch-drops?steamId=1&twitchLinked=true",
		"https://quinfall.test/twitch-drops?error=SteamAlreadyLinked",
		"https://quinfall.test/twitch-drops?error=Weird",
	} {
		h := newHarness()
		h.load(t, raw)
		require.Len(t, h.rec.replaced, 1, raw)
		cleaned, err := url.Parse(h.rec.replaced[0])
		require.NoError(t, err)
		assert.Empty(t, cleaned.RawQuery, raw)
		assert.Equal(t, "/twitch-drops", cleaned.Path)
	}
}

func TestDisconnectActions(t *testing.T) {
	h := newHarness()
	page, _ := h.load(t, "/twitch-drops?steamId=1&username=gabe&twitchLinked=true&twitchUsername=gabe_tv")

	page.DisconnectTwitch()
	assert.Equal(t, linkstate.State{SteamLinked: true, SteamUsername: "gabe"}, page.Link())
	raw, ok, err := h.storage.GetItem(linkstate.StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"steamLinked":true,"username":"gabe","twitchLinked":false,"twitchUsername":""}`, raw)

	page.DisconnectSteam()
	assert.Equal(t, linkstate.State{}, page.Link())
	_, ok, _ = h.storage.GetItem(linkstate.StorageKey)
	assert.False(t, ok)

	assert.Equal(t, []string{endpoints.TwitchLogout, endpoints.SteamLogout}, h.rec.targets)
}

func TestSnapshotSteps(t *testing.T) {
	cases := []struct {
		name  string
		link  linkstate.State
		claim claim.State
		phase Phase
		steps [3]StepStatus
	}{
		{"locked", linkstate.State{}, claim.State{}, Locked, [3]StepStatus{StepActive, StepLocked, StepLocked}},
		{"partial", linkstate.State{SteamLinked: true}, claim.State{}, PartiallyLinked, [3]StepStatus{StepCompleted, StepActive, StepLocked}},
		{"ready", linkstate.State{SteamLinked: true, TwitchLinked: true}, claim.State{}, Ready, [3]StepStatus{StepCompleted, StepCompleted, StepActive}},
		{"cooling", linkstate.State{SteamLinked: true, TwitchLinked: true}, claim.State{CooldownSecondsRemaining: 4}, Cooling, [3]StepStatus{StepCompleted, StepCompleted, StepActive}},
		{"claimed", linkstate.State{SteamLinked: true, TwitchLinked: true}, claim.State{RewardsCollected: true, CooldownSecondsRemaining: 9}, Claimed, [3]StepStatus{StepCompleted, StepCompleted, StepCompleted}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Snapshot(tc.link, tc.claim)
			assert.Equal(t, tc.phase, v.Phase)
			for i, want := range tc.steps {
				assert.Equal(t, want, v.Steps[i].Status, "step %d", i+1)
			}
			assert.Equal(t, tc.phase == Ready, v.CanClaim)
		})
	}
}
