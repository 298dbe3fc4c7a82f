package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Its-donkey/quinfall-site/internal/config"
	"github.com/Its-donkey/quinfall-site/internal/metrics"
	"github.com/Its-donkey/quinfall-site/internal/ui/model"
	"github.com/Its-donkey/quinfall-site/logging"
)

// Backend is the subset of the studio backend the site server renders from.
// *backend.Client implements it.
type Backend interface {
	Maintenance(ctx context.Context) (model.Maintenance, error)
	PlayerCount(ctx context.Context) (int, error)
	News(ctx context.Context) ([]model.News, error)
	NewsByID(ctx context.Context, id string) (model.News, error)
	Subscribe(ctx context.Context, email string) (model.Subscription, error)
}

// Options configures the site HTTP server.
type Options struct {
	Config  config.Config
	Backend Backend
	Logger  *logging.Logger
	Metrics *metrics.Collector
	// TemplatesDir overrides the compiled-in templates.
	TemplatesDir string
	Templates    map[string]*template.Template
	// AllowedOrigins enables CORS on /api/ for separately hosted frontends.
	AllowedOrigins []string
	Now            func() time.Time
}

type server struct {
	backend         Backend
	templates       map[string]*template.Template
	assetsDir       string
	wasmPath        string
	stylesPath      string
	siteName        string
	siteDescription string
	publicAPIBase   string
	primaryHost     string
	cache           *siteCache
	metrics         *metrics.Collector
	logger          logrus.FieldLogger
	now             func() time.Time
}

const siteDescription = "The Quinfall is a fantasy MMORPG of vast seas, sieges and guilds. Read the latest news and claim your Twitch Drops."

// NewHandler builds the site's HTTP handler without starting a listener.
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Backend == nil {
		return nil, errors.New("server: backend is required")
	}
	cfg := opts.Config

	tmpl := opts.Templates
	if tmpl == nil {
		loaded, err := loadTemplates(opts.TemplatesDir)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		tmpl = loaded
	}

	assetsPath, err := filepath.Abs(cfg.App.Assets)
	if err != nil {
		return nil, fmt.Errorf("resolve assets dir: %w", err)
	}
	wasmPath, err := filepath.Abs(cfg.App.WASM)
	if err != nil {
		return nil, fmt.Errorf("resolve wasm bundle: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New("site", logrus.InfoLevel)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	name := strings.TrimSpace(cfg.App.Name)
	if name == "" {
		name = "Quinfall"
	}

	srv := &server{
		backend:         opts.Backend,
		templates:       tmpl,
		assetsDir:       assetsPath,
		wasmPath:        wasmPath,
		stylesPath:      "/styles.css",
		siteName:        name,
		siteDescription: siteDescription,
		publicAPIBase:   cfg.Backend.PublicAPIBase,
		primaryHost:     canonicalHostFromURL(cfg.App.SiteURL),
		metrics:         opts.Metrics,
		logger:          logger.Category("site"),
		now:             now,
	}
	srv.cache = newSiteCache(opts.Backend, cfg.MaintenanceTTL(), cfg.PlayerCountTTL(), opts.Metrics, logger.Category("cache"))

	apiTarget, err := url.Parse(cfg.Backend.APIBase)
	if err != nil || apiTarget.Scheme == "" || apiTarget.Host == "" {
		return nil, fmt.Errorf("invalid backend api base %q: %w", cfg.Backend.APIBase, errors.Join(config.ErrMissingAPIBase, err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleHome)
	mux.HandleFunc("/news", srv.handleNewsList)
	mux.HandleFunc("/news/", srv.handleNewsDetail)
	mux.HandleFunc("/twitch-drops", srv.handleTwitchDrops)
	mux.HandleFunc("/privacy-policy", srv.handleLegal)
	mux.HandleFunc("/legal-notice", srv.handleLegal)
	mux.HandleFunc("/subscribe", srv.handleSubscribe)
	mux.Handle("/styles.css", srv.assetHandler("styles.css", "text/css"))
	mux.Handle("/wasm_exec.js", srv.assetHandler("wasm_exec.js", "application/javascript"))
	mux.Handle("/main.wasm", srv.wasmHandler())
	mux.Handle("/images/", http.StripPrefix("/images/", http.FileServer(http.Dir(filepath.Join(assetsPath, "images")))))
	mux.HandleFunc("/robots.txt", srv.handleRobots)
	mux.HandleFunc("/sitemap.xml", srv.handleSitemap)
	mux.HandleFunc("/healthz", srv.handleHealth)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}
	mux.Handle("/api/", apiProxyHandler(apiTarget, opts.AllowedOrigins, logger.Category("proxy")))
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	httpLogger := logging.NewHTTPLogger(logger)
	httpLogger.Route = routeLabel
	if opts.Metrics != nil {
		httpLogger.Observe = opts.Metrics.ObserveHTTP
	}
	return httpLogger.Middleware(srv.maintenanceGate(mux)), nil
}

// Run starts the site HTTP server and blocks until ctx is cancelled or the listener fails.
func Run(ctx context.Context, opts Options) error {
	handler, err := NewHandler(opts)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              opts.Config.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	entry := logrus.FieldLogger(logrus.StandardLogger())
	if opts.Logger != nil {
		entry = opts.Logger.Category("general")
	}
	entry.WithFields(logrus.Fields{
		"addr":    opts.Config.ListenAddr(),
		"backend": opts.Config.Backend.APIBase,
	}).Infof("Serving %s site on http://%s", opts.Config.App.Name, opts.Config.ListenAddr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *server) assetHandler(name, contentType string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(s.assetsDir, name)
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		http.ServeFile(w, r, path)
	})
}

func (s *server) wasmHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/wasm")
		http.ServeFile(w, r, s.wasmPath)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *server) render(w http.ResponseWriter, name, entry string, status int, data any) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.logger.WithField("template", name).Error("render: template missing")
		http.Error(w, "template missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, entry, data); err != nil {
		s.logger.WithError(err).WithField("template", name).Error("render failed")
	}
}

func (s *server) renderPage(w http.ResponseWriter, name string, status int, data any) {
	s.render(w, name, "base", status, data)
}

func (s *server) notFound(w http.ResponseWriter, r *http.Request) {
	page := s.buildBasePageData(r, s.pageTitle("Page not found"), "", r.URL.Path)
	page.Robots = "noindex"
	s.renderPage(w, "not_found", http.StatusNotFound, page)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// routeLabel collapses request paths into the fixed set of routes used as metric labels.
func routeLabel(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/"):
		return "/api/*"
	case strings.HasPrefix(path, "/news/"):
		return "/news/{slug}"
	case strings.HasPrefix(path, "/images/"):
		return "/images/*"
	}
	switch path {
	case "/", "/news", "/twitch-drops", "/privacy-policy", "/legal-notice", "/subscribe",
		"/styles.css", "/wasm_exec.js", "/main.wasm", "/favicon.ico", "/robots.txt",
		"/sitemap.xml", "/healthz", "/metrics":
		return path
	}
	return "other"
}
