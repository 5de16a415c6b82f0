// Package fetcher implements the remote config fetch client: an HTTP or file
// backed source plus the minimum-fetch-interval throttle that serves the last
// fetched values while the interval has not elapsed.
package fetcher
