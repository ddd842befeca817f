package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/msoedov/agentic-security/internal/log"
)

// DefaultTimeout is the per-request timeout used when a caller does not
// configure one explicitly.
const DefaultTimeout = 30 * time.Second

// Client sends Requests over a real HTTP transport with a bounded retry
// policy for transport errors only; it never retries on a completed
// response, regardless of status code.
type Client struct {
	HTTPClient *http.Client
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient builds a Client with the package's default timeout and retry policy.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		MaxRetries: 2,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Do sends req, retrying only on transport-level failures (the server was
// never reached or the round trip otherwise errored before a status line
// came back). A non-2xx response is returned as-is, not retried.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error

	attempts := c.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Debug(ctx, "retrying transport error",
				log.Int("attempt", attempt),
				log.Cause(lastErr),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.RetryDelay):
			}
		}

		resp, err := c.doOnce(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}

	for name, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
