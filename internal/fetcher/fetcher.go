// Package fetcher holds helpers shared by the source-type implementations:
// HTTP error classification and the outbound client defaults.
package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent identifies the worker to origin servers when no
// per-deployment agent is configured.
const DefaultUserAgent = "collector-worker/1.0"

// MaxBodyBytes caps how much of a response body a fetcher will read.
const MaxBodyBytes = 10 << 20

// NewHTTPClient builds the outbound client used by all fetchers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   15 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// RetryableStatus reports whether an HTTP status is worth another attempt on
// a later run. Server-side failures and throttling qualify; client errors
// (bad URL, revoked credentials) do not.
func RetryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// RetryableError reports whether a transport error is transient.
// Cancellation is never retryable: the caller gave up, not the origin.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
