package server

import (
	"net/http"

	"github.com/Its-donkey/quinfall-site/internal/drops/callback"
	"github.com/Its-donkey/quinfall-site/internal/drops/claim"
	"github.com/Its-donkey/quinfall-site/internal/drops/flow"
	"github.com/Its-donkey/quinfall-site/internal/drops/linkstate"
	"github.com/Its-donkey/quinfall-site/internal/drops/view"
)

const dropsDescription = "Link your Steam and Twitch accounts to claim Quinfall Twitch Drops rewards in game."

// handleTwitchDrops serves the drops page shell. Stored link state lives in the browser,
// so the first frame is locked unless the request carries link callback parameters; the
// WASM client takes over once loaded.
func (s *server) handleTwitchDrops(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, HEAD")
		return
	}

	link, attempt := firstFrame(callback.Parse(r.URL.Query()))
	panel, err := view.HTML(flow.Snapshot(link, attempt))
	if err != nil {
		s.logger.WithError(err).Error("drops: render panel")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	base := s.buildBasePageData(r, s.pageTitle("Twitch Drops"), dropsDescription, "/twitch-drops")
	w.Header().Set("Cache-Control", "no-store")
	s.renderPage(w, "drops", http.StatusOK, dropsPageData{
		basePageData: base,
		APIBase:      s.publicAPIBase,
		WASMPath:     "/main.wasm",
		Panel:        panel,
	})
}

// firstFrame derives the server-rendered panel state from the redirect parameters.
func firstFrame(cb callback.Callback) (linkstate.State, claim.State) {
	switch cb.Type {
	case callback.Linked:
		return linkstate.FromCallback(cb.Identity), claim.State{}
	case callback.Conflict:
		if res, ok := cb.Result(); ok {
			return linkstate.State{}, claim.State{LastMessage: res.Message()}
		}
	}
	return linkstate.State{}, claim.State{}
}
