package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/remote-config-demo/internal/api"
	"github.com/eugenenazirov/remote-config-demo/internal/config"
	"github.com/eugenenazirov/remote-config-demo/internal/fetcher"
	"github.com/eugenenazirov/remote-config-demo/internal/remoteconfig"
	"github.com/eugenenazirov/remote-config-demo/internal/screen"
	"github.com/eugenenazirov/remote-config-demo/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg      config.Config
	storage  storage.Storage
	resolver *remoteconfig.Resolver
	fetcher  *fetcher.Client
	screen   *screen.Screen
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	toasts := screen.NewToastSink()
	resolver := remoteconfig.New(logger, remoteconfig.WithNotifier(toasts.Notify))
	if err := resolver.Initialize(cfg.Defaults, cfg.MinFetchIntervalSeconds); err != nil {
		return nil, fmt.Errorf("failed to initialize remote config: %w", err)
	}

	interval, err := resolver.MinimumFetchInterval()
	if err != nil {
		return nil, fmt.Errorf("failed to read fetch interval: %w", err)
	}

	store := storage.NewMemoryStorage()
	client := fetcher.NewClient(selectSource(cfg, logger), store, logger,
		fetcher.WithSettings(fetcher.Settings{MinimumFetchInterval: interval}),
	)

	sc := screen.New(resolver, client, toasts, logger, screen.Config{
		VersionCode:  cfg.VersionCode,
		PackageName:  cfg.PackageName,
		FetchTimeout: cfg.FetchTimeout,
	})

	handler := api.NewHandler(sc, resolver)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		cfg:      cfg,
		storage:  store,
		resolver: resolver,
		fetcher:  client,
		screen:   sc,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

func selectSource(cfg config.Config, logger *zap.Logger) fetcher.Source {
	switch {
	case cfg.RemoteURL != "":
		logger.Info("fetching remote config over HTTP", zap.String("url", cfg.RemoteURL))
		return fetcher.NewHTTPSource(fetcher.HTTPSourceConfig{
			BaseURL:    cfg.RemoteURL,
			Path:       cfg.RemotePath,
			Timeout:    cfg.FetchTimeout,
			RetryCount: cfg.FetchRetries,
		})
	case cfg.RemoteFile != "":
		logger.Info("fetching remote config from file", zap.String("path", cfg.RemoteFile))
		return fetcher.NewFileSource(cfg.RemoteFile)
	default:
		logger.Warn("no remote config source configured, serving defaults only")
		return fetcher.UnavailableSource()
	}
}

// BuildRootHandler mounts the API under /api/ and sends the bare root to the
// welcome screen.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/screen", http.StatusFound)
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

// Refresh triggers a fetch the same way the screen's refresh action does.
func (a *App) Refresh(ctx context.Context) (<-chan struct{}, error) {
	return a.screen.Refresh(ctx)
}

// Start starts the HTTP server in a goroutine and logs the listening address.
// When configured, the first fetch is kicked off as the screen opens.
func (a *App) Start() error {
	if a.cfg.FetchOnStart {
		if _, err := a.Refresh(context.Background()); err != nil {
			return fmt.Errorf("failed to start initial fetch: %w", err)
		}
	}

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

// Close tears down the remote config state. In-flight fetches are discarded.
func (a *App) Close() {
	a.resolver.Close()
}
