package application

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/cargo-loader/internal/api"
	"github.com/eugenenazirov/cargo-loader/internal/config"
	"github.com/eugenenazirov/cargo-loader/internal/manifest"
	"github.com/eugenenazirov/cargo-loader/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration. Manifests listed in the configuration are loaded from disk
// into the store before the server is built.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	handler := api.NewHandler(store, api.WithDefaultAlgorithm(cfg.Algorithm))

	if err := preloadManifests(cfg.Manifests, store, handler, logger); err != nil {
		return nil, fmt.Errorf("failed to preload manifests: %w", err)
	}

	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage: store,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler constructs the root HTTP handler that routes API requests
// and answers the bare root path with a short banner.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "cargo-loader: POST /api/load to pack cargo into trolleys")
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

func preloadManifests(manifests map[string][]string, store storage.Storage, handler *api.Handler, logger *zap.Logger) error {
	names := make([]string, 0, len(manifests))
	for name := range manifests {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		items, err := manifest.LoadFiles(manifests[name]...)
		if err != nil {
			return fmt.Errorf("manifest %s: %w", name, err)
		}
		if err := store.PutManifest(name, items); err != nil {
			return fmt.Errorf("manifest %s: %w", name, err)
		}
		handler.MarkManifestUpdated(name)
		logger.Info("manifest loaded",
			zap.String("manifest", name),
			zap.Int("items", len(items)),
			zap.Strings("files", manifests[name]),
		)
	}
	return nil
}
