package server

import (
	"net/http"
	"strings"

	"github.com/Its-donkey/quinfall-site/internal/ui/model"
)

// maintenanceExempt lists paths that keep working while the site is in maintenance.
var maintenanceExempt = []string{
	"/healthz",
	"/metrics",
	"/robots.txt",
	"/favicon.ico",
	"/styles.css",
	"/images/",
	"/api/",
	"/dashboard",
}

func isMaintenanceExempt(path string) bool {
	for _, prefix := range maintenanceExempt {
		if path == prefix || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// maintenanceGate replaces every public page with the maintenance screen while the
// backend reports maintenance mode.
func (s *server) maintenanceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMaintenanceExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		status := s.cache.Maintenance(r.Context())
		if !status.IsActive {
			next.ServeHTTP(w, r)
			return
		}

		message := strings.TrimSpace(status.Message)
		if message == "" {
			message = model.DefaultMaintenanceMessage
		}
		w.Header().Set("Retry-After", "300")
		w.Header().Set("Cache-Control", "no-store")
		s.render(w, "maintenance", "maintenance", http.StatusServiceUnavailable, maintenancePageData{
			SiteName:       s.siteName,
			StylesheetPath: s.stylesPath,
			Message:        message,
		})
	})
}
