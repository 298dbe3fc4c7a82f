//go:build js && wasm

package wasm

import (
	"context"
	"net/url"
	"strings"
	"syscall/js"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Its-donkey/quinfall-site/internal/backend"
	"github.com/Its-donkey/quinfall-site/internal/drops/claim"
	"github.com/Its-donkey/quinfall-site/internal/drops/flow"
	"github.com/Its-donkey/quinfall-site/internal/drops/linkstate"
	"github.com/Its-donkey/quinfall-site/internal/drops/view"
)

const claimTimeout = 15 * time.Second

// dropsApp binds the Twitch Drops controller to the page DOM.
type dropsApp struct {
	page    *flow.Page
	panel   js.Value
	logger  logrus.FieldLogger
	handler js.Func
	renders chan struct{}
}

func newDropsApp(root js.Value, location *url.URL, logger logrus.FieldLogger) *dropsApp {
	apiBase := resolveAPIBase(root.Get("dataset").Get("apiBase"), location)
	opts := []backend.Option{backend.WithLogger(logger)}
	if backend.SameOrigin(apiBase, location) {
		opts = append(opts, backend.WithClaimAttemptID())
	}
	client := backend.New(apiBase, opts...)

	app := &dropsApp{
		panel:   document().Call("getElementById", "drops-panel"),
		logger:  logger,
		renders: make(chan struct{}, 1),
	}
	coordinator := claim.New(client,
		claim.WithLogger(logger),
		claim.WithOnChange(func(claim.State) { app.scheduleRender() }),
	)
	app.page = flow.New(flow.Config{
		Store:       linkstate.NewStore(newStorage(), linkstate.WithLogger(logger)),
		History:     browserHistory{},
		Coordinator: coordinator,
		Navigator:   browserNavigator{},
		Endpoints: flow.Endpoints{
			SteamAuth:    client.SteamAuthURL(),
			SteamLogout:  client.SteamLogoutURL(),
			TwitchAuth:   client.TwitchAuthURL(),
			TwitchLogout: client.TwitchLogoutURL(),
		},
		Logger: logger,
	})

	logger.WithField("api_base", apiBase).Info("drops: client started")
	return app
}

// resolveAPIBase turns the data-api-base attribute into an absolute URL. A missing
// attribute means the same-origin /api proxy.
func resolveAPIBase(attr js.Value, location *url.URL) string {
	raw := "/api"
	if attr.Type() == js.TypeString && strings.TrimSpace(attr.String()) != "" {
		raw = strings.TrimSpace(attr.String())
	}
	ref, err := url.Parse(raw)
	if err != nil || location == nil {
		return raw
	}
	return location.ResolveReference(ref).String()
}

// start interprets the landing URL, paints the first frame and wires the buttons.
func (a *dropsApp) start(root js.Value, location *url.URL) {
	a.page.Init(location)
	a.render()
	go a.renderLoop()

	a.handler = js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		target := args[0].Get("target")
		if !target.Truthy() || target.Get("closest").Type() != js.TypeFunction {
			return nil
		}
		button := target.Call("closest", "[data-action]")
		if !button.Truthy() || button.Get("disabled").Truthy() {
			return nil
		}
		args[0].Call("preventDefault")
		a.dispatch(button.Get("dataset").Get("action").String())
		return nil
	})
	root.Call("addEventListener", "click", a.handler)
}

func (a *dropsApp) dispatch(action string) {
	switch action {
	case view.ActionConnectSteam:
		a.page.ConnectSteam()
	case view.ActionDisconnectSteam:
		a.page.DisconnectSteam()
	case view.ActionConnectTwitch:
		a.page.ConnectTwitch()
	case view.ActionDisconnectTwitch:
		a.page.DisconnectTwitch()
	case view.ActionClaim:
		// The fetch transport blocks, so the request cannot run on the event callback.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), claimTimeout)
			defer cancel()
			result, ok := a.page.Claim(ctx)
			if ok {
				a.logger.WithField("result", result.Kind.String()).Info("drops: claim finished")
			}
		}()
	default:
		a.logger.WithField("action", action).Warn("drops: unknown action")
	}
	a.scheduleRender()
}

// scheduleRender coalesces render requests from the coordinator and the click handler.
func (a *dropsApp) scheduleRender() {
	select {
	case a.renders <- struct{}{}:
	default:
	}
}

func (a *dropsApp) renderLoop() {
	for range a.renders {
		a.render()
	}
}

func (a *dropsApp) render() {
	if !a.panel.Truthy() {
		return
	}
	markup, err := view.HTML(a.page.View())
	if err != nil {
		a.logger.WithError(err).Error("drops: render")
		return
	}
	a.panel.Set("innerHTML", string(markup))
}
