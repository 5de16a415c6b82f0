package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/remote-config-demo/internal/api"
	"github.com/eugenenazirov/remote-config-demo/internal/config"
	"github.com/eugenenazirov/remote-config-demo/internal/fetcher"
	"github.com/eugenenazirov/remote-config-demo/internal/remoteconfig"
	"github.com/eugenenazirov/remote-config-demo/internal/screen"
	"github.com/eugenenazirov/remote-config-demo/internal/storage"
)

// remoteService plays the remote config backend.
type remoteService struct {
	mu      sync.Mutex
	entries map[string]string
	hits    int
}

func (s *remoteService) set(entries map[string]string) {
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

func (s *remoteService) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": s.entries})
}

type harness struct {
	router   http.Handler
	resolver *remoteconfig.Resolver
	screen   *screen.Screen
}

func newHarness(t *testing.T, remoteURL string, intervalSeconds int) *harness {
	t.Helper()

	logger := zaptest.NewLogger(t)
	toasts := screen.NewToastSink()
	resolver := remoteconfig.New(logger, remoteconfig.WithNotifier(toasts.Notify))
	if err := resolver.Initialize(config.DefaultValues(), intervalSeconds); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	t.Cleanup(resolver.Close)

	interval, err := resolver.MinimumFetchInterval()
	if err != nil {
		t.Fatalf("MinimumFetchInterval returned error: %v", err)
	}
	source := fetcher.NewHTTPSource(fetcher.HTTPSourceConfig{BaseURL: remoteURL, Timeout: time.Second})
	client := fetcher.NewClient(source, storage.NewMemoryStorage(), logger,
		fetcher.WithSettings(fetcher.Settings{MinimumFetchInterval: interval}),
	)

	sc := screen.New(resolver, client, toasts, logger, screen.Config{
		VersionCode:  1,
		PackageName:  "com.example.remoteconfigtest",
		FetchTimeout: time.Second,
	})
	handler := api.NewHandler(sc, resolver)
	return &harness{
		router:   api.NewRouter(handler, logger, api.WithRateLimit(0, 0)),
		resolver: resolver,
		screen:   sc,
	}
}

// refresh triggers a fetch the way POST /api/fetch does and waits for it.
func (h *harness) refresh(t *testing.T) {
	t.Helper()

	done, err := h.screen.Refresh(t.Context())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch did not complete in time")
	}
}

func getView(t *testing.T, handler http.Handler) screen.View {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screen", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from screen, got %d", rec.Code)
	}

	var view screen.View
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return view
}

func TestIntegrationFlow(t *testing.T) {
	remote := &remoteService{}
	remote.set(map[string]string{
		"welcome_message":      "Remote says hi",
		"welcome_message_caps": "True",
		"new_version_code":     "2",
	})
	server := httptest.NewServer(remote)
	t.Cleanup(server.Close)

	h := newHarness(t, server.URL, 0)

	view := getView(t, h.router)
	if view.Headline != "Welcome to my awesome app!" || view.AllCaps || view.UpdateDialog != nil {
		t.Fatalf("expected default screen, got %+v", view)
	}

	h.refresh(t)

	view = getView(t, h.router)
	if view.Headline != "Remote says hi" || !view.AllCaps {
		t.Fatalf("expected remote welcome, got %+v", view)
	}
	if view.Toast != "Fetch and activate succeeded" {
		t.Fatalf("unexpected toast %q", view.Toast)
	}
	if view.UpdateDialog == nil || view.UpdateDialog.Version != 2 {
		t.Fatalf("expected update dialog for version 2, got %+v", view.UpdateDialog)
	}
	if view.UpdateDialog.StoreURL != "market://details?id=com.example.remoteconfigtest" {
		t.Fatalf("unexpected store URL %q", view.UpdateDialog.StoreURL)
	}

	server.Close()
	h.refresh(t)

	view = getView(t, h.router)
	if view.Headline != "Remote says hi" {
		t.Fatalf("expected failed fetch to keep the active values, got %q", view.Headline)
	}
	if view.Toast != "Fetch failed" {
		t.Fatalf("unexpected toast %q", view.Toast)
	}
}

func TestIntegrationFetchIntervalServesCachedValues(t *testing.T) {
	remote := &remoteService{}
	remote.set(map[string]string{"welcome_message": "first"})
	server := httptest.NewServer(remote)
	t.Cleanup(server.Close)

	h := newHarness(t, server.URL, 3600)

	h.refresh(t)
	remote.set(map[string]string{"welcome_message": "second"})
	h.refresh(t)

	if got := getView(t, h.router).Headline; got != "first" {
		t.Fatalf("expected cached values inside the fetch interval, got %q", got)
	}

	remote.mu.Lock()
	hits := remote.hits
	remote.mu.Unlock()
	if hits != 1 {
		t.Fatalf("expected a single remote hit, got %d", hits)
	}
}
