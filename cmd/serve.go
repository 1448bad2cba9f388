package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/oilchange-tracker/internal/assetcache"
	"github.com/ukydev/oilchange-tracker/internal/config"
	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/handlers"
	"github.com/ukydev/oilchange-tracker/internal/middleware"
	"github.com/ukydev/oilchange-tracker/internal/models"
	"github.com/ukydev/oilchange-tracker/internal/notify"
	"github.com/ukydev/oilchange-tracker/internal/render"
	"github.com/ukydev/oilchange-tracker/internal/scheduler"
)

const (
	shutdownTimeout = 15 * time.Second
	// writeLimit caps form submissions per client and minute.
	writeLimit = 60
)

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web application",
		Long:  `Serve the tracker pages, the JSON API and the offline asset cache, and run the reminder digest.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().String("port", "", "port to listen on (overrides PORT)")
	return cmd
}

func proxyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serve a remote tracker through the offline asset cache",
		Long:  `Forward every request to a tracker running at --origin and keep the application assets cached on disk, so the pages keep loading while the origin is unreachable.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}
			origin, _ := cmd.Flags().GetString("origin")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runProxy(ctx, cfg, origin)
		},
	}
	cmd.Flags().String("origin", "", "base URL of the tracker to forward to")
	cmd.Flags().String("port", "", "port to listen on (overrides PORT)")
	_ = cmd.MarkFlagRequired("origin")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	routes := handlers.New(a.maintenance, a.warranties, a.backup, renderer,
		handlers.WithAssetsDir(cfg.AssetsDir)).Routes()

	cache, cleanup, err := openCache(ctx, cfg, assetcache.HandlerFetcher{Handler: routes}, renderer)
	if err != nil {
		return err
	}
	defer cleanup()

	notifier := dialNotifier(ctx, cfg)
	defer notifier.Close()

	if cfg.ReminderSchedule != "" {
		sched := scheduler.New(cfg.ReminderSchedule, cfg.Location, a.maintenance, a.warranties, notifier)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	return listen(ctx, newServer(cfg, cache.Middleware(routes)))
}

func runProxy(ctx context.Context, cfg config.Config, origin string) error {
	fetcher, err := assetcache.NewOriginFetcher(origin)
	if err != nil {
		return err
	}
	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	cache, cleanup, err := openCache(ctx, cfg, fetcher, renderer)
	if err != nil {
		return err
	}
	defer cleanup()

	log.WithField("origin", fetcher.Origin.String()).Info("Proxying tracker")
	proxy := httputil.NewSingleHostReverseProxy(fetcher.Origin)
	return listen(ctx, newServer(cfg, cache.Middleware(proxy)))
}

func newRenderer(cfg config.Config) (*render.Renderer, error) {
	branding, err := config.LoadBranding(cfg.BrandingFile)
	if err != nil {
		return nil, err
	}
	return render.New(branding, render.WithPrintDelay(cfg.PrintDelay))
}

// offlinePage answers navigations when neither the network nor the cache can.
func offlinePage(r *render.Renderer, clock func() time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := r.Offline(w, models.DateOf(clock())); err != nil {
			log.WithError(err).Error("Failed to render offline page")
		}
	})
}

// openCache opens, fills and activates the asset cache. Memory storage
// gets a throwaway directory that cleanup removes.
func openCache(ctx context.Context, cfg config.Config, fetcher assetcache.Fetcher, r *render.Renderer) (*assetcache.Cache, func(), error) {
	root := filepath.Join(cfg.Storage.Dir, "cache")
	removeRoot := false
	if cfg.Storage.Driver == db.DriverMemory {
		tmp, err := os.MkdirTemp("", "tracker-cache-*")
		if err != nil {
			return nil, nil, fmt.Errorf("create cache dir: %w", err)
		}
		root, removeRoot = tmp, true
	}

	cache, err := assetcache.New(root, cfg.CacheVersion, fetcher,
		assetcache.WithOfflinePage(offlinePage(r, cfg.Clock())))
	if err != nil {
		return nil, nil, err
	}

	cached := cache.Install(ctx)
	removed, err := cache.Activate()
	if err != nil {
		log.WithError(err).Warn("Failed to prune old asset caches")
	}
	log.WithFields(log.Fields{
		"version": cache.Version(),
		"cached":  cached,
		"pruned":  removed,
	}).Info("Asset cache ready")

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := cache.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close asset cache")
		}
		if removeRoot {
			_ = os.RemoveAll(root)
		}
	}
	return cache, cleanup, nil
}

func dialNotifier(ctx context.Context, cfg config.Config) notify.Notifier {
	if cfg.MQTTBroker == "" {
		return notify.Nop{}
	}
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	n, err := notify.DialMQTT(dialCtx, cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
	if err != nil {
		log.WithError(err).Warn("MQTT broker unavailable, reminders will only be logged")
		return notify.Nop{}
	}
	return n
}

// withMiddleware wraps h in the request pipeline shared by serve and proxy.
func withMiddleware(h http.Handler, trustProxy bool) http.Handler {
	limiter := middleware.NewRateLimitMiddleware()
	limiter.TrustProxy = trustProxy
	h = limiter.RateLimit(writeLimit, time.Minute)(h)
	h = middleware.Logger(h)
	h = middleware.Recoverer(h)
	return middleware.RequestID(h)
}

func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           withMiddleware(h, cfg.TrustProxy),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// listen serves until ctx is cancelled and then shuts srv down.
func listen(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.WithField("addr", srv.Addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
