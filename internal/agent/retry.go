package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	maxRetries    = 3
	baseDelay     = 2 * time.Second
	maxDelay      = 30 * time.Second
	jitterPercent = 30 // ±30% jitter
)

// retryableMarkers are substrings of transient provider and network errors.
var retryableMarkers = []string{
	// rate limits
	"429", "rate limit", "rate_limit",
	// Anthropic overloaded
	"529", "overloaded",
	// server errors
	"500", "502", "503", "504",
	// local model server warming up
	"model is loading", "server busy",
	// network
	"connection refused", "connection reset", "timeout", "EOF", "temporary failure",
}

// isRetryableError reports whether a chat call failure is worth retrying.
// Cancellation never is.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// retryDelay returns the delay for attempt n (0-indexed) with jitter.
func retryDelay(attempt int) time.Duration {
	delay := baseDelay
	for range attempt {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}
	spread := int64(delay) * jitterPercent / 100
	return delay + time.Duration(rand.Int64N(2*spread+1)-spread)
}

// sleepWithContext sleeps for d, but returns early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// formatRetryMessage creates a user-friendly retry message.
func formatRetryMessage(attempt, maxAttempts int, delay time.Duration, err error) string {
	return fmt.Sprintf("Retrying (%d/%d) in %s... (%s)",
		attempt+1, maxAttempts, delay.Round(time.Millisecond), truncateError(err))
}

func truncateError(err error) string {
	r := []rune(err.Error())
	if len(r) > 80 {
		return string(r[:80]) + "..."
	}
	return string(r)
}
