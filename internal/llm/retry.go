package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// transientMarkers identifies retryable failure messages from the reasoning
// service: rate limits, timeouts, and connection problems. Anything else is
// surfaced immediately without retry.
var transientMarkers = []string{
	"rate limit",
	"too many requests",
	"429",
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"broken pipe",
	"unexpected eof",
	"502",
	"503",
	"504",
}

// isTransient reports whether an error is worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// withRetry runs fn with the gateway's retry policy. Transient errors are
// retried with delay Delay * Backoff^(i-1) before attempt i; other errors
// stop the loop immediately. The returned error is the last one observed.
func (g *Gateway) withRetry(ctx context.Context, op string, fn func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = g.policy.Delay
	expo.Multiplier = g.policy.Backoff
	expo.RandomizationFactor = 0
	expo.MaxInterval = time.Minute
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(g.policy.MaxRetries)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		g.logger.Warn("reasoning call failed, retrying",
			"op", op,
			"attempt", attempt,
			"max_retries", g.policy.MaxRetries,
			"wait", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err != nil {
		g.logger.Error("reasoning call failed", "op", op, "attempts", attempt, "error", err)
	}
	return err
}
