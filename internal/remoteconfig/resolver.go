package remoteconfig

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State describes where the resolver is in its fetch lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateLoading
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateLoading:
		return "loading"
	default:
		return "uninitialized"
	}
}

// FetchHandle identifies one in-flight fetch. Only the most recently started
// handle is honored on completion.
type FetchHandle struct {
	seq uint64
}

// Outcome is the result of a fetch delivered to CompleteFetch.
type Outcome struct {
	values Snapshot
	reason error
}

// Success builds an outcome carrying freshly fetched values.
func Success(values map[Key]string) Outcome {
	return Outcome{values: NewSnapshot(values)}
}

// Failure builds an outcome for a failed fetch.
func Failure(reason error) Outcome {
	if reason == nil {
		reason = ErrFetchFailed
	}
	return Outcome{reason: reason}
}

// Succeeded reports whether the outcome carries values.
func (o Outcome) Succeeded() bool {
	return o.reason == nil
}

// Reason returns the failure reason, nil on success.
func (o Outcome) Reason() error {
	return o.reason
}

// Notification is emitted once for every honored fetch completion.
type Notification struct {
	Succeeded bool
	Reason    error
	At        time.Time
}

// Notifier receives fetch outcome notifications.
type Notifier func(Notification)

// Welcome is the display-ready welcome text.
type Welcome struct {
	Text    string
	AllCaps bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNotifier registers the receiver of fetch outcome notifications.
func WithNotifier(notify Notifier) Option {
	return func(r *Resolver) {
		r.notify = notify
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) {
		r.clock = clock
	}
}

// Resolver holds the active configuration snapshot and answers display
// questions from it.
type Resolver struct {
	logger *zap.Logger
	notify Notifier
	clock  func() time.Time

	mu               sync.Mutex
	state            State
	defaults         Snapshot
	minFetchInterval time.Duration
	current          uint64
	pending          bool

	active atomic.Pointer[Snapshot]
}

// New constructs an uninitialized Resolver.
func New(logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize installs the defaults and the minimum fetch interval. It must be
// called exactly once before any other operation.
func (r *Resolver) Initialize(defaults map[Key]string, minFetchIntervalSeconds int) error {
	if minFetchIntervalSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidFetchInterval, minFetchIntervalSeconds)
	}
	for key := range defaults {
		if !key.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUninitialized {
		return ErrAlreadyInitialized
	}

	r.defaults = NewSnapshot(defaults)
	r.minFetchInterval = time.Duration(minFetchIntervalSeconds) * time.Second
	r.state = StateReady
	snapshot := r.defaults
	r.active.Store(&snapshot)

	r.logger.Debug("remote config initialized",
		zap.Int("defaults", r.defaults.Len()),
		zap.Duration("min_fetch_interval", r.minFetchInterval),
	)
	return nil
}

// Close returns the resolver to the uninitialized state. Pending handles
// become stale.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateUninitialized
	r.defaults = Snapshot{}
	r.minFetchInterval = 0
	r.current++
	r.pending = false
	r.active.Store(nil)
}

// BeginFetch marks the resolver as loading and returns the handle that the
// eventual CompleteFetch must present. Any earlier handle becomes stale.
func (r *Resolver) BeginFetch() (FetchHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized {
		return FetchHandle{}, ErrNotInitialized
	}

	if r.pending {
		r.logger.Debug("fetch restarted, previous result will be ignored", zap.Uint64("stale_seq", r.current))
	}
	r.current++
	r.pending = true
	r.state = StateLoading

	return FetchHandle{seq: r.current}, nil
}

// CompleteFetch delivers the outcome of the fetch started with handle. It
// reports whether the outcome was honored; stale or already completed handles
// are ignored. A failed outcome leaves the active snapshot untouched.
func (r *Resolver) CompleteFetch(handle FetchHandle, outcome Outcome) bool {
	r.mu.Lock()
	if r.state == StateUninitialized || !r.pending || handle.seq != r.current {
		r.mu.Unlock()
		r.logger.Debug("ignoring stale fetch completion", zap.Uint64("seq", handle.seq))
		return false
	}

	r.pending = false
	r.state = StateReady

	if outcome.Succeeded() {
		merged, err := Merge(r.defaults, outcome.values)
		if err != nil {
			outcome = Failure(err)
		} else {
			r.active.Store(&merged)
		}
	}
	r.mu.Unlock()

	note := Notification{
		Succeeded: outcome.Succeeded(),
		Reason:    outcome.Reason(),
		At:        r.clock(),
	}
	if note.Succeeded {
		r.logger.Info("config params activated", zap.Uint64("seq", handle.seq))
	} else {
		r.logger.Warn("config fetch failed, keeping active values", zap.Uint64("seq", handle.seq), zap.Error(note.Reason))
	}
	if r.notify != nil {
		r.notify(note)
	}
	return true
}

// State returns the current lifecycle state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// MinimumFetchInterval returns the throttle configured at initialization.
func (r *Resolver) MinimumFetchInterval() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized {
		return 0, ErrNotInitialized
	}
	return r.minFetchInterval, nil
}

// Snapshot returns the active snapshot.
func (r *Resolver) Snapshot() (Snapshot, error) {
	active := r.active.Load()
	if active == nil {
		return Snapshot{}, ErrNotInitialized
	}
	return *active, nil
}

// GetString returns the raw value of key, or an empty string when the key has
// no value at all.
func (r *Resolver) GetString(key Key) (string, error) {
	snapshot, err := r.Snapshot()
	if err != nil {
		return "", err
	}
	value, _ := snapshot.Get(key)
	return value, nil
}

// GetBoolean reports whether key holds the literal "true" in any letter case.
func (r *Resolver) GetBoolean(key Key) (bool, error) {
	value, err := r.GetString(key)
	if err != nil {
		return false, err
	}
	return parseBool(value), nil
}

// GetInt parses key as a base-10 integer. A non-numeric value yields ErrParse
// and the caller picks the fallback.
func (r *Resolver) GetInt(key Key) (int, error) {
	value, err := r.GetString(key)
	if err != nil {
		return 0, err
	}
	return parseInt(key, value)
}

// LoadingPhrase returns the text shown while a fetch is in flight.
func (r *Resolver) LoadingPhrase() (string, error) {
	return r.GetString(LoadingPhrase)
}

// ShouldPromptUpdate reports whether the advertised version code is strictly
// greater than currentVersionCode. Both sides compare as integers.
func (r *Resolver) ShouldPromptUpdate(currentVersionCode int) (bool, error) {
	latest, err := r.GetInt(NewVersionCode)
	if err != nil {
		return false, err
	}
	return latest > currentVersionCode, nil
}

// WelcomeDisplay returns the welcome text and whether to render it in capitals.
func (r *Resolver) WelcomeDisplay() (Welcome, error) {
	snapshot, err := r.Snapshot()
	if err != nil {
		return Welcome{}, err
	}
	text, _ := snapshot.Get(WelcomeMessage)
	caps, _ := snapshot.Get(WelcomeMessageCaps)
	return Welcome{Text: text, AllCaps: parseBool(caps)}, nil
}

func parseBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

func parseInt(key Key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrParse, key, value)
	}
	return n, nil
}
