package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/remote-config-demo/internal/config"
	"github.com/eugenenazirov/remote-config-demo/internal/fetcher"
	"github.com/eugenenazirov/remote-config-demo/internal/remoteconfig"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(app.Close)

	if app.server == nil || app.router == nil || app.handler == nil || app.screen == nil {
		t.Fatalf("expected server, router, handler, and screen to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
	if app.resolver.State() != remoteconfig.StateReady {
		t.Fatalf("expected ready resolver, got %s", app.resolver.State())
	}
	if got := app.fetcher.Settings().MinimumFetchInterval; got != 30*time.Second {
		t.Fatalf("expected fetch interval to follow config, got %s", got)
	}
}

func TestNewRejectsInvalidFetchInterval(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.MinFetchIntervalSeconds = -1

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for negative fetch interval")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestSelectSource(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := baseTestConfig(":0")
	if _, ok := selectSource(cfg, logger).(*fetcher.HTTPSource); ok {
		t.Fatalf("expected no HTTP source without a URL")
	}

	cfg.RemoteURL = "http://localhost:9000"
	if _, ok := selectSource(cfg, logger).(*fetcher.HTTPSource); !ok {
		t.Fatalf("expected HTTP source for a remote URL")
	}

	cfg.RemoteURL = ""
	cfg.RemoteFile = "remote.yaml"
	if _, ok := selectSource(cfg, logger).(*fetcher.FileSource); !ok {
		t.Fatalf("expected file source for a remote file")
	}
}

func TestRefreshActivatesFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remote.yaml")
	content := "entries:\n  welcome_message: \"Hello from disk\"\n  welcome_message_caps: \"TRUE\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg := baseTestConfig(":0")
	cfg.RemoteFile = path
	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(app.Close)

	done, err := app.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("fetch did not complete in time")
	}

	welcome, err := app.resolver.WelcomeDisplay()
	if err != nil {
		t.Fatalf("WelcomeDisplay returned error: %v", err)
	}
	if welcome.Text != "Hello from disk" || !welcome.AllCaps {
		t.Fatalf("unexpected welcome display: %+v", welcome)
	}
	if _, ok := app.storage.LastFetched(); !ok {
		t.Fatalf("expected fetched values to be stored")
	}
}

func TestBuildRootHandler(t *testing.T) {
	apiInvoked := false
	handler := BuildRootHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiInvoked = r.URL.Path == "/api/health"
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("redirects root to the screen", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusFound {
			t.Fatalf("expected status 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/api/screen" {
			t.Fatalf("unexpected redirect target %q", loc)
		}
	})

	t.Run("returns not found for unknown paths", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("forwards api traffic", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusNoContent || !apiInvoked {
			t.Fatalf("expected API handler to be invoked, got %d", rec.Code)
		}
	})
}

func TestCloseUninitializesResolver(t *testing.T) {
	app, err := New(baseTestConfig(":0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	app.Close()
	if app.resolver.State() != remoteconfig.StateUninitialized {
		t.Fatalf("expected uninitialized resolver after Close, got %s", app.resolver.State())
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                    port,
		ShutdownGracePeriod:     50 * time.Millisecond,
		ReadHeaderTimeout:       20 * time.Millisecond,
		WriteTimeout:            30 * time.Millisecond,
		IdleTimeout:             40 * time.Millisecond,
		EnableRequestLogging:    false,
		RateLimitRPS:            0,
		RateLimitBurst:          0,
		MinFetchIntervalSeconds: 30,
		FetchTimeout:            time.Second,
		VersionCode:             1,
		PackageName:             "com.example.app",
		Defaults:                config.DefaultValues(),
	}
}
