// Package screen renders the welcome screen from the active remote
// configuration and runs the fetch triggered by its refresh button.
package screen
