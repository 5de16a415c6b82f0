package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultPath    = "/v1/config"
	defaultTimeout = 10 * time.Second
)

// HTTPSourceConfig configures the remote config HTTP endpoint.
type HTTPSourceConfig struct {
	BaseURL    string
	Path       string
	Timeout    time.Duration
	RetryCount int
}

// HTTPSource loads entries from the remote config service over HTTP.
type HTTPSource struct {
	client *resty.Client
	path   string
}

type entriesResponse struct {
	Entries map[string]string `json:"entries"`
}

// NewHTTPSource creates an HTTPSource with the provided configuration.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json")

	return &HTTPSource{client: cli, path: "/" + strings.TrimLeft(cfg.Path, "/")}
}

// Load issues GET <base>/<path> and returns the decoded entries.
func (s *HTTPSource) Load(ctx context.Context) (map[string]string, error) {
	var body entriesResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(s.path)
	if err != nil {
		return nil, fmt.Errorf("remote config request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode())
	}

	if body.Entries == nil {
		return map[string]string{}, nil
	}
	return body.Entries, nil
}
