// Package application provides application initialization and dependency wiring.
// It composes the fetch source, storage, remote config resolver, welcome
// screen, API router and HTTP server, keeping the main package focused on CLI
// parsing and orchestration.
package application
