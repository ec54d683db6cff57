// internal/common/http/client.go
package http

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Client is an http.Client that waits on a token bucket before every request.
// Request deadlines come from the request context.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client allowing rps requests per second with the given
// burst. rps <= 0 disables limiting.
func NewClient(rps float64, burst int) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Do blocks until the limiter admits the request or its context ends.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}
