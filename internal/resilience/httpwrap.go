package resilience

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// HTTPClient retries outbound provider calls (QR confirmation, e-invoice
// submission) with exponential backoff, optionally gated by a Breaker.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
	Fallback    func(context.Context, *http.Request, error) (*http.Response, error)
}

// Do sends the request, retrying transport errors and 5xx responses. The body
// is buffered once so every attempt replays the same bytes. With the breaker
// open the call fails fast with ErrOpenCircuit unless a fallback is set.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}

	attempts := cl.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	base := cl.BaseBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	replay, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for n := 1; n <= attempts; n++ {
		if cl.Breaker != nil && !cl.Breaker.Allow(ctx) {
			lastErr = ErrOpenCircuit
			break
		}

		resp, err := cl.attempt(ctx, req, replay)
		retryable := err != nil || resp.StatusCode >= 500
		if cl.Breaker != nil {
			cl.Breaker.Report(ctx, !retryable)
		}
		if !retryable {
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.New(resp.Status)
		}

		if n == attempts {
			break
		}
		if err := sleepCtx(ctx, Backoff(base, n, cl.Jitter)); err != nil {
			return nil, err
		}
	}

	if cl.Fallback != nil {
		return cl.Fallback(ctx, req, lastErr)
	}
	return nil, lastErr
}

func (cl HTTPClient) attempt(ctx context.Context, req *http.Request, replay func() io.ReadCloser) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	clone := req.Clone(ctx)
	if replay != nil {
		clone.Body = replay()
		clone.GetBody = func() (io.ReadCloser, error) { return replay(), nil }
	}
	return cl.Client.Do(clone)
}

// bufferBody drains the request body into memory and returns a factory for
// fresh readers over it. Bodiless requests return a nil factory.
func bufferBody(req *http.Request) (func() io.ReadCloser, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	src := req.Body
	if req.GetBody != nil {
		fresh, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		src = fresh
	}
	data, err := io.ReadAll(src)
	_ = src.Close()
	if err != nil {
		return nil, err
	}

	replay := func() io.ReadCloser { return io.NopCloser(bytes.NewReader(data)) }
	req.Body = replay()
	req.GetBody = func() (io.ReadCloser, error) { return replay(), nil }
	return replay, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
