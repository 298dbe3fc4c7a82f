// Package callback interprets the query parameters an identity provider appends when it
// redirects the browser back to the Twitch Drops page.
package callback

import (
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Its-donkey/quinfall-site/internal/drops"
	"github.com/Its-donkey/quinfall-site/internal/drops/linkstate"
)

// Query parameter names set by the backend's OAuth redirects.
const (
	ParamSteamID        = "steamId"
	ParamUsername       = "username"
	ParamTwitchLinked   = "twitchLinked"
	ParamTwitchUsername = "twitchUsername"
	ParamError          = "error"
)

// Conflict codes carried in the error parameter.
const (
	ErrTwitchAlreadyLinked = "TwitchAlreadyLinked"
	ErrSteamAlreadyLinked  = "SteamAlreadyLinked"
)

var callbackParams = []string{ParamSteamID, ParamUsername, ParamTwitchLinked, ParamTwitchUsername, ParamError}

// Type tags a parsed Callback.
type Type int

const (
	// None means the URL carries no callback.
	None Type = iota
	// Linked is a successful Steam link completion.
	Linked
	// Conflict is a rejected link attempt.
	Conflict
	// Unrecognised means callback parameters were present but meant nothing to us.
	Unrecognised
)

// Callback is the typed form of the redirect parameters.
type Callback struct {
	Type     Type
	Identity linkstate.Callback
	// Code is the raw error code for Conflict and Unrecognised callbacks.
	Code string
}

// Parse converts the raw query into a Callback. A conflict error wins over a steamId
// arriving in the same redirect.
func Parse(values url.Values) Callback {
	code := strings.TrimSpace(values.Get(ParamError))
	switch code {
	case ErrTwitchAlreadyLinked, ErrSteamAlreadyLinked:
		return Callback{Type: Conflict, Code: code}
	}
	if strings.TrimSpace(values.Get(ParamSteamID)) != "" {
		return Callback{
			Type: Linked,
			Identity: linkstate.Callback{
				SteamUsername:  values.Get(ParamUsername),
				TwitchLinked:   values.Get(ParamTwitchLinked) == "true",
				TwitchUsername: values.Get(ParamTwitchUsername),
			},
		}
	}
	for _, name := range callbackParams {
		if values.Has(name) {
			return Callback{Type: Unrecognised, Code: code}
		}
	}
	return Callback{Type: None}
}

// Result converts a conflict into the tagged boundary result.
func (c Callback) Result() (drops.Result, bool) {
	switch c.Code {
	case ErrTwitchAlreadyLinked:
		return drops.Result{Kind: drops.KindConflict, Detail: drops.TwitchAlreadyLinkedMsg}, true
	case ErrSteamAlreadyLinked:
		return drops.Result{Kind: drops.KindConflict, Detail: drops.SteamAlreadyLinkedMsg}, true
	}
	return drops.Result{}, false
}

// History replaces the current browser history entry.
type History interface {
	ReplaceState(path string)
}

// Outcome reports what a page load ended up with.
type Outcome struct {
	State linkstate.State
	// Message is set for conflicts.
	Message drops.Message
	// Cleaned is true when the URL was rewritten.
	Cleaned bool
}

// Interpreter folds redirect results into the link-state store.
type Interpreter struct {
	store   *linkstate.Store
	history History
	logger  logrus.FieldLogger
}

// NewInterpreter builds an Interpreter. A nil logger uses the logrus standard logger.
func NewInterpreter(store *linkstate.Store, history History, logger logrus.FieldLogger) *Interpreter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Interpreter{store: store, history: history, logger: logger}
}

// Interpret runs the page-load sequence for location. Callback parameters always take
// precedence over the persisted record; the record is consulted only when the URL carries
// no successful link.
func (i *Interpreter) Interpret(location *url.URL) Outcome {
	var out Outcome
	cb := Callback{Type: None}
	if location != nil {
		cb = Parse(location.Query())
	}

	switch cb.Type {
	case Linked:
		out.State = i.store.SetFromCallback(cb.Identity)
		out.Cleaned = i.clean(location)
		i.logger.WithFields(logrus.Fields{
			"steam_user":    cb.Identity.SteamUsername,
			"twitch_linked": cb.Identity.TwitchLinked,
		}).Info("drops: steam link completed")
		return out
	case Conflict:
		if result, ok := cb.Result(); ok {
			out.Message = result.Message()
		}
		out.Cleaned = i.clean(location)
		i.logger.WithField("code", cb.Code).Info("drops: link rejected")
	case Unrecognised:
		out.Cleaned = i.clean(location)
		i.logger.WithField("code", cb.Code).Warn("drops: ignoring unrecognised callback")
	}

	out.State = i.restore()
	return out
}

func (i *Interpreter) restore() linkstate.State {
	stored := i.store.Load()
	if !stored.SteamLinked {
		i.store.Clear()
		return linkstate.State{}
	}
	return stored
}

func (i *Interpreter) clean(location *url.URL) bool {
	if i.history == nil || location == nil {
		return false
	}
	path := location.Path
	if path == "" {
		path = "/"
	}
	i.history.ReplaceState(path)
	return true
}
