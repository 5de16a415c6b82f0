package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/remote-config-demo/internal/remoteconfig"
	"github.com/eugenenazirov/remote-config-demo/internal/storage"
)

var (
	// ErrUnexpectedStatus is returned when the remote service answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected response status from remote config service")
	// ErrNoSource is returned by fetches when no remote source is configured.
	ErrNoSource = errors.New("no remote config source configured")
)

// Result carries the values produced by a fetch.
type Result struct {
	Values    map[remoteconfig.Key]string
	Fresh     bool
	FetchedAt time.Time
}

// Fetcher retrieves remote configuration values.
type Fetcher interface {
	Fetch(ctx context.Context) (Result, error)
}

// Source loads raw entries keyed by wire name.
type Source interface {
	Load(ctx context.Context) (map[string]string, error)
}

type unavailableSource struct{}

// UnavailableSource returns a Source whose loads always fail with ErrNoSource,
// leaving the application on its defaults.
func UnavailableSource() Source {
	return unavailableSource{}
}

func (unavailableSource) Load(context.Context) (map[string]string, error) {
	return nil, ErrNoSource
}

// Settings mirrors the remote config client settings object.
type Settings struct {
	MinimumFetchInterval time.Duration
}

// ClientOption configures Client behaviour.
type ClientOption func(*Client)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithSettings sets the initial client settings.
func WithSettings(settings Settings) ClientOption {
	return func(c *Client) {
		c.settings = settings
	}
}

// Client fetches from a Source and serves the last fetched values while the
// minimum fetch interval has not elapsed.
type Client struct {
	source Source
	store  storage.Storage
	logger *zap.Logger
	clock  func() time.Time

	mu       sync.RWMutex
	settings Settings
}

// NewClient constructs a Client backed by source and store.
func NewClient(source Source, store storage.Storage, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		source: source,
		store:  store,
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSettings replaces the client settings.
func (c *Client) SetSettings(settings Settings) error {
	if settings.MinimumFetchInterval < 0 {
		return fmt.Errorf("minimum fetch interval must be >= 0, got %s", settings.MinimumFetchInterval)
	}
	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()
	return nil
}

// Settings returns the current client settings.
func (c *Client) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Fetch loads values from the source unless the last successful fetch is
// younger than the minimum fetch interval, in which case the cached values are
// returned with Fresh set to false.
func (c *Client) Fetch(ctx context.Context) (Result, error) {
	now := c.clock()
	interval := c.Settings().MinimumFetchInterval

	if last, ok := c.store.LastFetched(); ok && interval > 0 && now.Sub(last.FetchedAt) < interval {
		c.logger.Debug("serving cached remote config",
			zap.Time("fetched_at", last.FetchedAt),
			zap.Duration("min_fetch_interval", interval),
		)
		return Result{Values: last.Values, Fresh: false, FetchedAt: last.FetchedAt}, nil
	}

	raw, err := c.source.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load remote config: %w", err)
	}

	values := c.decode(raw)
	if err := c.store.SaveFetched(values, now); err != nil {
		return Result{}, fmt.Errorf("save fetched values: %w", err)
	}

	c.logger.Debug("fetched remote config", zap.Int("entries", len(values)))
	return Result{Values: values, Fresh: true, FetchedAt: now}, nil
}

func (c *Client) decode(raw map[string]string) map[remoteconfig.Key]string {
	values := make(map[remoteconfig.Key]string, len(raw))
	for name, value := range raw {
		key, err := remoteconfig.ParseKey(name)
		if err != nil {
			c.logger.Debug("skipping unknown remote config entry", zap.String("key", name))
			continue
		}
		values[key] = value
	}
	return values
}
