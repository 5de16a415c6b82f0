package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/remote-config-demo/internal/fetcher"
	"github.com/eugenenazirov/remote-config-demo/internal/remoteconfig"
)

const (
	toastFetchSucceeded = "Fetch and activate succeeded"
	toastFetchFailed    = "Fetch failed"

	updateDialogTitle = "Update"
	storeURLPrefix    = "market://details?id="
)

// UpdateDialog is the mandatory update prompt.
type UpdateDialog struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Version  int    `json:"version"`
	StoreURL string `json:"storeUrl"`
}

// View is everything the welcome screen renders.
type View struct {
	Headline     string        `json:"headline"`
	AllCaps      bool          `json:"allCaps"`
	Loading      bool          `json:"loading"`
	VersionLabel string        `json:"versionLabel"`
	Toast        string        `json:"toast,omitempty"`
	UpdateDialog *UpdateDialog `json:"updateDialog,omitempty"`
}

// ToastSink records the latest fetch outcome notification.
type ToastSink struct {
	mu   sync.RWMutex
	last string
}

// NewToastSink creates an empty ToastSink.
func NewToastSink() *ToastSink {
	return &ToastSink{}
}

// Notify implements remoteconfig.Notifier.
func (s *ToastSink) Notify(n remoteconfig.Notification) {
	text := toastFetchFailed
	if n.Succeeded {
		text = toastFetchSucceeded
	}
	s.mu.Lock()
	s.last = text
	s.mu.Unlock()
}

// Last returns the most recent toast text.
func (s *ToastSink) Last() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Config describes the host application.
type Config struct {
	VersionCode  int
	PackageName  string
	FetchTimeout time.Duration
}

// Screen drives the welcome screen: it triggers fetches and renders the
// resolver's answers.
type Screen struct {
	resolver *remoteconfig.Resolver
	fetcher  fetcher.Fetcher
	toasts   *ToastSink
	logger   *zap.Logger
	cfg      Config
}

// New creates a Screen.
func New(resolver *remoteconfig.Resolver, f fetcher.Fetcher, toasts *ToastSink, logger *zap.Logger, cfg Config) *Screen {
	if toasts == nil {
		toasts = NewToastSink()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screen{
		resolver: resolver,
		fetcher:  f,
		toasts:   toasts,
		logger:   logger,
		cfg:      cfg,
	}
}

// Refresh starts a fetch and returns a channel closed once its outcome has
// been delivered to the resolver. A newer Refresh supersedes an older one.
func (s *Screen) Refresh(ctx context.Context) (<-chan struct{}, error) {
	handle, err := s.resolver.BeginFetch()
	if err != nil {
		return nil, fmt.Errorf("begin fetch: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		fetchCtx := context.WithoutCancel(ctx)
		if s.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, s.cfg.FetchTimeout)
			defer cancel()
		}

		result, err := s.fetcher.Fetch(fetchCtx)
		if err != nil {
			s.resolver.CompleteFetch(handle, remoteconfig.Failure(err))
			return
		}
		s.logger.Debug("config params updated", zap.Bool("updated", result.Fresh))
		s.resolver.CompleteFetch(handle, remoteconfig.Success(result.Values))
	}()

	return done, nil
}

// View renders the current state of the screen.
func (s *Screen) View() (View, error) {
	view := View{
		VersionLabel: fmt.Sprintf("Version: %d", s.cfg.VersionCode),
		Toast:        s.toasts.Last(),
	}

	if s.resolver.State() == remoteconfig.StateLoading {
		phrase, err := s.resolver.LoadingPhrase()
		if err != nil {
			return View{}, err
		}
		view.Headline = phrase
		view.Loading = true
		return view, nil
	}

	welcome, err := s.resolver.WelcomeDisplay()
	if err != nil {
		return View{}, err
	}
	view.Headline = welcome.Text
	view.AllCaps = welcome.AllCaps

	dialog, err := s.UpdateCheck(s.cfg.VersionCode)
	if err != nil {
		return View{}, err
	}
	view.UpdateDialog = dialog
	return view, nil
}

// UpdateCheck returns the update dialog to show for currentVersionCode, or nil
// when no update is required. An unparsable advertised version never prompts.
func (s *Screen) UpdateCheck(currentVersionCode int) (*UpdateDialog, error) {
	prompt, err := s.resolver.ShouldPromptUpdate(currentVersionCode)
	if err != nil {
		if errors.Is(err, remoteconfig.ErrParse) {
			s.logger.Warn("ignoring unparsable version code", zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	if !prompt {
		return nil, nil
	}

	latest, err := s.resolver.GetInt(remoteconfig.NewVersionCode)
	if err != nil {
		return nil, err
	}
	return &UpdateDialog{
		Title:    updateDialogTitle,
		Message:  fmt.Sprintf("This version is obsolete, please update to version: %d", latest),
		Version:  latest,
		StoreURL: StoreURL(s.cfg.PackageName),
	}, nil
}

// StoreURL returns the store listing link for packageName.
func StoreURL(packageName string) string {
	return storeURLPrefix + packageName
}
