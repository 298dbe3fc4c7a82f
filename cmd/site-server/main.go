package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Its-donkey/quinfall-site/internal/backend"
	"github.com/Its-donkey/quinfall-site/internal/config"
	"github.com/Its-donkey/quinfall-site/internal/metrics"
	uiserver "github.com/Its-donkey/quinfall-site/internal/ui/server"
	"github.com/Its-donkey/quinfall-site/logging"
)

const serviceName = "quinfall-site"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type serveFlags struct {
	configPath     string
	addr           string
	port           string
	apiBase        string
	publicAPIBase  string
	siteURL        string
	templatesDir   string
	assetsDir      string
	logLevel       string
	logDir         string
	allowedOrigins []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "site-server",
		Short:         "Quinfall game site server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), serviceName, version)
		},
	}
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the public site, the Twitch Drops page and the /api proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "path to config.json (optional)")
	flags.StringVar(&f.addr, "addr", "", "listen address (defaults to config server.addr)")
	flags.StringVar(&f.port, "port", "", "listen port, e.g. 8080 (defaults to config server.port)")
	flags.StringVar(&f.apiBase, "api-base", "", "studio backend base URL")
	flags.StringVar(&f.publicAPIBase, "public-api-base", "", "backend base URL as seen by browsers (defaults to /api)")
	flags.StringVar(&f.siteURL, "site-url", "", "public site origin used for absolute links, e.g. https://quinfall.com")
	flags.StringVar(&f.templatesDir, "templates", "", "override the compiled-in html templates")
	flags.StringVar(&f.assetsDir, "assets", "", "directory holding styles.css and wasm_exec.js")
	flags.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&f.logDir, "log-dir", "", "directory for rotated log files; empty logs to stdout only")
	flags.StringSliceVar(&f.allowedOrigins, "allowed-origin", nil, "origin allowed to call /api cross-origin (repeatable)")
	return cmd
}

// loadConfig reads the config file and environment, then applies explicit flags.
func loadConfig(f serveFlags) (config.Config, error) {
	path := f.configPath
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}

	return config.LoadWith(path, func(cfg *config.Config) {
		applyFlags(cfg, f)
	})
}

func applyFlags(cfg *config.Config, f serveFlags) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.Addr, f.addr)
	if port := strings.TrimSpace(f.port); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}
	set(&cfg.Backend.APIBase, strings.TrimSuffix(strings.TrimSpace(f.apiBase), "/"))
	set(&cfg.Backend.PublicAPIBase, strings.TrimSuffix(strings.TrimSpace(f.publicAPIBase), "/"))
	set(&cfg.App.SiteURL, strings.TrimSuffix(strings.TrimSpace(f.siteURL), "/"))
	set(&cfg.App.Assets, f.assetsDir)
	set(&cfg.Logging.Level, f.logLevel)
	set(&cfg.Logging.Dir, f.logDir)
}

func serve(parent context.Context, cfg config.Config, f serveFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		// If a second signal arrives, force exit immediately.
		<-sigCh
		fmt.Fprintln(os.Stderr, "second interrupt received, forcing shutdown")
		os.Exit(1)
	}()
	defer func() {
		signal.Stop(sigCh)
		cancel()
	}()

	logger, err := logging.NewFromOptions(serviceName, logging.Options{
		Dir:        cfg.Logging.Dir,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 28,
		Stdout:     true,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	collector := metrics.New(serviceName, version)
	client := backend.New(cfg.Backend.APIBase,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout()}),
		backend.WithLogger(logger.Category("backend")),
		backend.WithObserver(collector),
	)

	logger.Category("general").WithFields(logrus.Fields{
		"version":         version,
		"public_api_base": cfg.Backend.PublicAPIBase,
	}).Info("starting site server")

	err = uiserver.Run(ctx, uiserver.Options{
		Config:         cfg,
		Backend:        client,
		Logger:         logger,
		Metrics:        collector,
		TemplatesDir:   f.templatesDir,
		AllowedOrigins: f.allowedOrigins,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
