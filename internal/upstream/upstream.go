package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"weather-history/internal/apperrors"
)

// Client executes outbound requests behind a circuit breaker and maps
// transport failures and non-2xx statuses onto the shared error kinds.
// Each request is a single attempt; retry policy belongs to callers, and
// none of them retries.
type Client struct {
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewClient(httpClient *http.Client, name string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		http:    httpClient,
		circuit: cb,
	}
}

// Do performs the request. The returned response has a 2xx status and an
// open body the caller must close.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstreamUnavailable, err, "request to %s failed", req.URL.Host)
	}
	return result.(*http.Response), nil
}
