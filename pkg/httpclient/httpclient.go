package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewHttpClient returns a client tuned for many short-lived probe requests.
// Per-request deadlines come from the request context, not the client.
func NewHttpClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxIdleConns:        10000,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
	}
}
