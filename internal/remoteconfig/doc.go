// Package remoteconfig resolves the active remote configuration. It merges
// fetched values over baked-in defaults, suppresses stale fetch completions
// and derives the welcome text and update prompt decisions from the active
// snapshot.
package remoteconfig
