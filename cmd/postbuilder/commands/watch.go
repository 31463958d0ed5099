package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	MetricsListen string `name:"metrics-listen" help:"Serve Prometheus metrics on this address (overrides metrics.listen)"`
	NoHistory     bool   `name:"no-history" help:"Do not record rebuilds in the history database"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadedConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRunner(g, cfg, "", !w.NoHistory)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	listen := w.MetricsListen
	if listen == "" {
		listen = cfg.Metrics.Listen
	}
	if listen != "" {
		srv := &http.Server{Addr: listen, Handler: metricsMux(r), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			g.Logger.Info("Serving metrics", slog.String("addr", listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				g.Logger.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Initial build; fatal errors are reported and watching continues.
	if _, err := r.once(ctx, nil); err != nil {
		g.Logger.Error("Initial build failed", logfields.Error(err))
	}

	watcher, err := watch.New([]string{cfg.ContentDir, cfg.LayoutsDir}, func(ctx context.Context, changed []string) error {
		g.Logger.Info("Rebuilding", logfields.Documents(len(changed)))
		_, err := r.once(ctx, nil)
		return err
	}, watch.Options{Debounce: cfg.Debounce(), Logger: g.Logger})
	if err != nil {
		return err
	}
	g.Logger.Info("Watching for changes", logfields.Path(cfg.ContentDir))
	return watcher.Run(ctx)
}

func metricsMux(r *runner) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(r.reg))
	return mux
}
