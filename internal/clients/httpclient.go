// Package clients holds the three outbound HTTP clients the Detection
// Orchestrator drives every tick: the upstream delays feed, the journey
// matcher, and the claims oracle. Each is a thin net/http wrapper with no
// retry logic of its own — retry/backoff policy belongs to the orchestrator
// and the outbox relay, not the transport layer.
package clients

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// newHTTPClient builds the shared *http.Client used by all three clients,
// enforcing the configured request timeout at the transport level.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// normalizeBaseURL strips a trailing slash from a configured base URL.
func normalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// isTimeout reports whether err resulted from the request deadline or
// context cancellation expiring, as opposed to any other transport failure.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isTimeout(urlErr.Err)
	}
	return false
}
