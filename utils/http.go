// utils/http.go
package utils

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// NewHTTPClient builds the client shared by the outbound API integrations.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// DrainAndClose empties and closes a response body so the connection can be reused.
func DrainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// StatusError reads at most 1KB of a non-2xx body into an error.
func StatusError(resp *http.Response, what string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s returned %d: %s", what, resp.StatusCode, string(body))
}
