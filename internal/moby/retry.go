package moby

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	maxRetryAfter = time.Minute
	maxBackoff    = 30 * time.Second
)

// doWithRetry makes up to MaxRetries+1 attempts. Transport timeouts and
// dial/read/write failures are retried, as are 408, 429 and 5xx. A
// Retry-After header replaces the jittered backoff for that wait.
//
// The final response is returned even when its status was retryable so
// the caller classifies it.
func (c *client) doWithRetry(
	ctx context.Context,
	op string,
	do func(ctx context.Context) (*http.Response, error),
) (*http.Response, error) {
	attempts := c.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := do(ctx)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.logger.Debug("upstream attempt",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)

		final := attempt >= attempts
		var wait time.Duration

		switch {
		case err != nil:
			if ctx.Err() != nil || !retryableNetError(err) {
				return nil, err
			}
			lastErr = err
		case !retryableStatus(status) || final:
			return resp, nil
		default:
			lastErr = fmt.Errorf("upstream status %d", status)
			wait = retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
		}

		if final {
			break
		}
		if wait > 0 {
			c.logger.Info("honoring Retry-After",
				zap.String("op", op),
				zap.Duration("wait", wait),
			)
		} else {
			wait = jitteredBackoff(c.cfg.BaseBackoff, attempt)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.Warn("upstream retries exhausted",
		zap.String("op", op),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}

func retryableNetError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial", "read", "write":
			return true
		}
	}
	return false
}

func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500 && status <= 599
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP
// date, capped at maxRetryAfter. Zero means absent or unusable.
func retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = time.Until(t)
	}
	return max(0, min(d, maxRetryAfter))
}

// jitteredBackoff picks uniformly from [0, base<<(attempt-1)), capped at
// maxBackoff.
func jitteredBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	ceiling := base << min(attempt-1, 10)
	if ceiling <= 0 || ceiling > maxBackoff {
		ceiling = maxBackoff
	}
	return rand.N(ceiling)
}
