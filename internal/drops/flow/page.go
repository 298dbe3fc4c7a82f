// Package flow wires the link-state store, the redirect interpreter and the claim
// coordinator into the controller behind the Twitch Drops page.
package flow

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/Its-donkey/quinfall-site/internal/drops"
	"github.com/Its-donkey/quinfall-site/internal/drops/callback"
	"github.com/Its-donkey/quinfall-site/internal/drops/claim"
	"github.com/Its-donkey/quinfall-site/internal/drops/linkstate"
)

// Navigator performs a full-page navigation. The call does not return to the page in a
// browser; tests record the target.
type Navigator interface {
	Navigate(target string)
}

// Endpoints are the redirect targets for the link and unlink actions.
type Endpoints struct {
	SteamAuth    string
	SteamLogout  string
	TwitchAuth   string
	TwitchLogout string
}

// Page is the Twitch Drops page controller. One Page lives for one page load.
type Page struct {
	store       *linkstate.Store
	interpreter *callback.Interpreter
	coordinator *claim.Coordinator
	navigator   Navigator
	endpoints   Endpoints
	logger      logrus.FieldLogger
}

// Config bundles the collaborators of a Page.
type Config struct {
	Store       *linkstate.Store
	History     callback.History
	Coordinator *claim.Coordinator
	Navigator   Navigator
	Endpoints   Endpoints
	Logger      logrus.FieldLogger
}

// New builds a Page. Store and Coordinator are required.
func New(cfg Config) *Page {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Page{
		store:       cfg.Store,
		interpreter: callback.NewInterpreter(cfg.Store, cfg.History, logger),
		coordinator: cfg.Coordinator,
		navigator:   cfg.Navigator,
		endpoints:   cfg.Endpoints,
		logger:      logger,
	}
}

// Init interprets the page URL and must run before the first render.
func (p *Page) Init(location *url.URL) View {
	outcome := p.interpreter.Interpret(location)
	if !outcome.Message.Empty() {
		p.coordinator.Announce(outcome.Message)
	}
	return p.View()
}

// Link returns the current link state.
func (p *Page) Link() linkstate.State {
	return p.store.State()
}

// ConnectSteam starts a fresh Steam link. Any stored record is dropped first so a
// cancelled login cannot leave a stale link behind.
func (p *Page) ConnectSteam() {
	p.store.Clear()
	p.navigate(p.endpoints.SteamAuth)
}

// DisconnectSteam forgets both identities and ends the backend session.
func (p *Page) DisconnectSteam() {
	p.store.Clear()
	p.navigate(p.endpoints.SteamLogout)
}

// ConnectTwitch starts the Twitch link. It reports false, without navigating, while
// Steam is not linked.
func (p *Page) ConnectTwitch() bool {
	if !p.TwitchLinkAllowed() {
		p.logger.Debug("drops: twitch link requested before steam link")
		return false
	}
	p.navigate(p.endpoints.TwitchAuth)
	return true
}

// TwitchLinkAllowed reports whether the Twitch-link action is invocable.
func (p *Page) TwitchLinkAllowed() bool {
	link := p.store.State()
	return link.SteamLinked && !link.TwitchLinked
}

// DisconnectTwitch keeps the Steam link and drops the Twitch one.
func (p *Page) DisconnectTwitch() {
	link := p.store.State()
	link.TwitchLinked = false
	link.TwitchUsername = ""
	p.store.Save(link)
	p.navigate(p.endpoints.TwitchLogout)
}

// Claim issues a reward claim when the page is Ready. It reports false when the action
// was not invocable.
func (p *Page) Claim(ctx context.Context) (drops.Result, bool) {
	return p.coordinator.Claim(ctx, p.store.State())
}

// View builds the render snapshot.
func (p *Page) View() View {
	return Snapshot(p.store.State(), p.coordinator.State())
}

func (p *Page) navigate(target string) {
	if p.navigator == nil || target == "" {
		return
	}
	p.logger.WithField("target", target).Debug("drops: navigating")
	p.navigator.Navigate(target)
}
