package server

import (
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/Its-donkey/quinfall-site/internal/backend"
)

const (
	newsletterSuccess      = "You have successfully subscribed to the newsletter!"
	newsletterFailed       = "Failed to create subscription!"
	newsletterInvalidEmail = "Please enter a valid email address."

	querySubscribed     = "subscribed"
	querySubscribeError = "subscribe_error"
)

// handleSubscribe accepts the footer newsletter form and redirects back to the page it
// was posted from with the outcome in the query string.
func (s *server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	target := safeReturnPath(r.PostFormValue("return"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		s.redirectWithNewsletter(w, r, target, querySubscribeError, newsletterInvalidEmail)
		return
	}

	_, err := s.backend.Subscribe(r.Context(), email)
	if s.metrics != nil {
		s.metrics.ObserveSubscription(err == nil)
	}
	if err != nil {
		msg := newsletterFailed
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
			msg = apiErr.Message
		}
		s.logger.WithError(err).Warn("newsletter: subscribe failed")
		s.redirectWithNewsletter(w, r, target, querySubscribeError, msg)
		return
	}
	s.redirectWithNewsletter(w, r, target, querySubscribed, "1")
}

func (s *server) redirectWithNewsletter(w http.ResponseWriter, r *http.Request, target, key, value string) {
	values := url.Values{}
	values.Set(key, value)
	http.Redirect(w, r, target+"?"+values.Encode(), http.StatusSeeOther)
}

// safeReturnPath only allows same-site absolute paths.
func safeReturnPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return u.Path
}

func newsletterFromQuery(r *http.Request) newsletterView {
	if r == nil {
		return newsletterView{}
	}
	q := r.URL.Query()
	if q.Get(querySubscribed) == "1" {
		return newsletterView{Success: newsletterSuccess}
	}
	if msg := strings.TrimSpace(q.Get(querySubscribeError)); msg != "" {
		return newsletterView{Error: truncateWithEllipsis(msg, 200)}
	}
	return newsletterView{}
}
