// Package httpc provides HTTP clients with timeouts set.
// Use this instead of http.DefaultClient.
package httpc

import (
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client is the shared client for short API calls.
var Client = NewClient(DefaultTimeout)

// NewClient creates a client whose requests give up after timeout.
// A zero timeout leaves only the dial and TLS limits, which suits downloads.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(),
	}
}

// NewResty wraps NewClient in a resty client for JSON APIs.
func NewResty(timeout time.Duration) *resty.Client {
	return resty.NewWithClient(NewClient(timeout))
}

// RetryableStatus reports whether a response status is worth retrying:
// rate limiting and server errors.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

// RetryCondition retries transport errors and retryable statuses.
func RetryCondition(r *resty.Response, err error) bool {
	if err != nil || r == nil {
		return true
	}
	return RetryableStatus(r.StatusCode())
}

// Transport returns a transport with connect, TLS and idle limits.
func Transport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
