package feed

import (
	"context"
	"fmt"
	"time"

	"TradeGate/internal/service/ratelimit"
	xhttp "TradeGate/pkg/http"
)

// HTTPBase centralizes client construction, rate limiting and bounded
// retry for the upstream feed clients (model provider, cohort analytics).
type HTTPBase struct {
	baseURL string
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	retry   Retry
}

// Retry bounds a feed fetch: exponential backoff doubling from Min up to
// Max, at most MaxAttempts tries, and a hard ceiling MaxElapsed on the
// total wait. After that the error surfaces and the caller skips the
// current bar's cycle.
type Retry struct {
	MaxAttempts int
	Min         time.Duration
	Max         time.Duration
	MaxElapsed  time.Duration
}

// NewHTTPBase builds the shared client with a per-request timeout.
func NewHTTPBase(baseURL string, timeout time.Duration, retry Retry) *HTTPBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	if retry.Min <= 0 {
		retry.Min = 200 * time.Millisecond
	}
	if retry.Max < retry.Min {
		retry.Max = retry.Min
	}
	return &HTTPBase{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: ratelimit.New(),
		retry:   retry,
	}
}

// PostJSON posts the payload to path under the base URL and decodes the
// JSON response into dest, retrying transient failures with exponential
// backoff. Rate-limited and failed attempts count against the same
// ceiling; the last error is returned once the budget is spent.
func (b *HTTPBase) PostJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("feed http client not initialized")
	}

	deadline := time.Now().Add(b.retry.MaxElapsed)
	wait := b.retry.Min

	var err error
	for attempt := 1; attempt <= b.retry.MaxAttempts; attempt++ {
		if !b.limiter.Allow(path, 10, 10) {
			err = fmt.Errorf("rate limited: %s", path)
		} else {
			err = b.client.PostJSON(ctx, b.baseURL+path, payload, dest)
			if err == nil {
				return nil
			}
		}

		if attempt == b.retry.MaxAttempts {
			break
		}
		if b.retry.MaxElapsed > 0 && time.Now().Add(wait).After(deadline) {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
		if wait > b.retry.Max {
			wait = b.retry.Max
		}
	}
	return fmt.Errorf("post %s: %w", path, err)
}
