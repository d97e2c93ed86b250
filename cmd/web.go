package cmd

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/rubiojr/fingertips/cmd/web/components"
	"github.com/rubiojr/fingertips/pkg/api"
	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/config"
	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/realtime"
	"github.com/rubiojr/fingertips/pkg/table"
	"github.com/rubiojr/fingertips/pkg/version"
	"github.com/urfave/cli/v3"
)

//go:embed web/static/*
var staticFS embed.FS

// WebCommand creates the web command with both API and UI
func WebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start the selection page and its API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on (defaults to web.port)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (defaults to web.host)",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Use the cached helper files instead of refreshing metadata at startup",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if v := c.String("host"); v != "" {
				cfg.Web.Host = v
			}
			if v := c.String("port"); v != "" {
				cfg.Web.Port = v
			}
			return startWebServer(ctx, cfg, c.Bool("offline"))
		},
	}
}

// startWebServer serves the page and the API until interrupted
func startWebServer(ctx context.Context, cfg *config.Config, offline bool) error {
	l := log.ForService("web")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, err := table.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("invalid output_format in config: %w", err)
	}

	store := catalog.NewStore(cfg.HelpersDir())
	var cat *catalog.Catalog
	if offline {
		cat, err = store.Load()
		if err != nil {
			return fmt.Errorf("loading helper files (run without --offline to fetch them): %w", err)
		}
	} else {
		cat, err = loadCatalog(ctx, cfg, true)
		if err != nil {
			return err
		}
	}

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := history.Close(); err != nil {
			l.Warnf("failed to close history database: %v", err)
		}
	}()

	hub := realtime.NewHub(64)
	runner := api.NewRunner(ctx, newClient(cfg), cfg.ProcessedDir(),
		api.WithHub(hub),
		api.WithHistory(history),
		api.WithFormat(format),
	)
	apiServer := api.NewServer(cat, runner, hub, history)

	go func() {
		if err := catalog.Watch(ctx, store, apiServer.SetCatalog); err != nil {
			l.Warnf("helper file watcher stopped: %v", err)
		}
	}()

	r := apiServer.Router()
	r.Handle("/", templ.Handler(components.Page(components.PageData{
		Title:   "Fingertips indicator downloader",
		Version: version.APIVersion(),
		Offline: offline,
	})))
	r.Get("/static/*", handleStatic)

	addr := fmt.Sprintf("%s:%s", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Infof("starting web server on http://%s", addr)
		l.Infof("  GET  /                                 selection page")
		l.Infof("  GET  /api/area-types                   selectable area types")
		l.Infof("  GET  /api/area-types/{id}/indicators   grouped indicators")
		l.Infof("  POST /api/downloads                    start a download")
		l.Infof("  GET  /api/downloads                    download history")
		l.Infof("  GET  /api/downloads/current            current download")
		l.Infof("  GET  /api/events                       progress (WebSocket)")
		l.Infof("  GET  /health                           health check")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	l.Infof("shutting down web server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	runner.Wait()
	return err
}

// handleStatic serves static assets from embedded files
func handleStatic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	content, err := staticFS.ReadFile("web/static/" + name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(name, ".css") {
		w.Header().Set("Content-Type", "text/css")
	} else if strings.HasSuffix(name, ".js") {
		w.Header().Set("Content-Type", "application/javascript")
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := w.Write(content); err != nil {
		log.ForService("web").Warnf("writing static content: %v", err)
	}
}
