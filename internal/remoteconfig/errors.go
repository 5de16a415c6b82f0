package remoteconfig

import "errors"

var (
	// ErrNotInitialized is returned when the resolver is used before Initialize.
	ErrNotInitialized = errors.New("remote config resolver is not initialized")
	// ErrAlreadyInitialized is returned when Initialize is called more than once.
	ErrAlreadyInitialized = errors.New("remote config resolver is already initialized")
	// ErrInvalidFetchInterval is returned for a negative minimum fetch interval.
	ErrInvalidFetchInterval = errors.New("minimum fetch interval must be >= 0")
	// ErrParse is returned when a value cannot be read as the requested type.
	ErrParse = errors.New("config value cannot be parsed")
	// ErrFetchFailed is the reason recorded for a failure outcome without one.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrUnknownKey is returned for a parameter name outside the known key set.
	ErrUnknownKey = errors.New("unknown config key")
)
