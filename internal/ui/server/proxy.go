package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/Its-donkey/quinfall-site/internal/backend"
)

// apiProxyHandler forwards /api/* to the studio backend so the browser reaches the
// OAuth and claim endpoints on the site's own origin, where the session cookie lives.
func apiProxyHandler(target *url.URL, allowedOrigins []string, logger logrus.FieldLogger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WithError(err).WithField("path", r.URL.Path).Warn("backend proxy failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"Server error. Try again later."}`))
	}

	var handler http.Handler = http.StripPrefix("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Host = target.Host
		proxy.ServeHTTP(w, r)
	}))

	if len(allowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", backend.ClaimAttemptHeader},
			AllowCredentials: true,
		}).Handler(handler)
	}
	return handler
}
