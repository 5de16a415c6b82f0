package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eugenenazirov/remote-config-demo/internal/remoteconfig"
	"github.com/eugenenazirov/remote-config-demo/internal/screen"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Screen is the welcome screen driven by the HTTP surface.
type Screen interface {
	Refresh(ctx context.Context) (<-chan struct{}, error)
	View() (screen.View, error)
	UpdateCheck(currentVersionCode int) (*screen.UpdateDialog, error)
}

// ConfigReader exposes the active remote configuration.
type ConfigReader interface {
	Snapshot() (remoteconfig.Snapshot, error)
	State() remoteconfig.State
}

// Handler wires the screen and resolver into HTTP handlers.
type Handler struct {
	screen Screen
	config ConfigReader

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(sc Screen, config ConfigReader, opts ...HandlerOption) *Handler {
	h := &Handler{
		screen: sc,
		config: config,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetScreen(w http.ResponseWriter, r *http.Request) {
	_ = r
	view, err := h.screen.View()
	if err != nil {
		writeResolverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	if _, err := h.screen.Refresh(r.Context()); err != nil {
		writeResolverError(w, err)
		return
	}

	view, err := h.screen.View()
	if err != nil {
		writeResolverError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	snapshot, err := h.config.Snapshot()
	if err != nil {
		writeResolverError(w, err)
		return
	}

	resp := configResponse{
		State:  h.config.State().String(),
		Values: snapshot.WireValues(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("version_code"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "version_code query parameter is required")
		return
	}

	current, err := strconv.Atoi(raw)
	if err != nil || current < 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "version_code must be a non-negative integer")
		return
	}

	dialog, err := h.screen.UpdateCheck(current)
	if err != nil {
		writeResolverError(w, err)
		return
	}

	resp := updateCheckResponse{
		VersionCode:    current,
		UpdateRequired: dialog != nil,
		Dialog:         dialog,
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type configResponse struct {
	State  string            `json:"state"`
	Values map[string]string `json:"values"`
}

type updateCheckResponse struct {
	VersionCode    int                  `json:"versionCode"`
	UpdateRequired bool                 `json:"updateRequired"`
	Dialog         *screen.UpdateDialog `json:"dialog,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeResolverError(w http.ResponseWriter, err error) {
	if errors.Is(err, remoteconfig.ErrNotInitialized) {
		writeError(w, http.StatusServiceUnavailable, "Not ready", err.Error(), "retry once the remote config defaults are installed")
		return
	}
	writeInternalError(w, err)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
