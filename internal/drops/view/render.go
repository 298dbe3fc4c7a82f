// Package view renders the Twitch Drops panel. The same markup is produced by the site
// server for the first frame and by the WASM client on every state change.
package view

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/Its-donkey/quinfall-site/internal/drops/flow"
)

// Actions carried in data-action attributes.
const (
	ActionConnectSteam     = "connect-steam"
	ActionDisconnectSteam  = "disconnect-steam"
	ActionConnectTwitch    = "connect-twitch"
	ActionDisconnectTwitch = "disconnect-twitch"
	ActionClaim            = "claim"
)

//go:embed panel.tmpl
var panelSource string

type stepData struct {
	View   flow.View
	Number int
}

var panel = template.Must(template.New("drops").Funcs(template.FuncMap{
	"stepData": func(v flow.View, n int) stepData {
		return stepData{View: v, Number: n}
	},
	"claimLabel": ClaimLabel,
}).Parse(panelSource))

// ClaimLabel is the text of the claim button.
func ClaimLabel(v flow.View) string {
	switch {
	case v.Claiming:
		return "Claiming…"
	case v.Phase == flow.Claimed:
		return "Rewards claimed"
	case v.Cooldown > 0:
		return fmt.Sprintf("Try again in %ds", v.Cooldown)
	default:
		return "Claim rewards"
	}
}

// Render writes the panel markup for v.
func Render(w io.Writer, v flow.View) error {
	if err := panel.ExecuteTemplate(w, "panel", v); err != nil {
		return fmt.Errorf("render drops panel: %w", err)
	}
	return nil
}

// HTML returns the panel markup for v.
func HTML(v flow.View) (template.HTML, error) {
	var buf bytes.Buffer
	if err := Render(&buf, v); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
