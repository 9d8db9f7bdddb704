package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

type outcome int

const (
	outcomeOK outcome = iota
	outcomeRateLimited
	outcomeFatal
)

// callResult is the typed result of one remote attempt.
type callResult struct {
	outcome       outcome
	retryAfter    time.Duration // only for outcomeRateLimited
	hasRetryAfter bool          // false means use the policy default
	err           error
}

func ok() callResult { return callResult{outcome: outcomeOK} }

func rateLimited(after time.Duration) callResult {
	return callResult{outcome: outcomeRateLimited, retryAfter: after, hasRetryAfter: true}
}

func rateLimitedDefault() callResult { return callResult{outcome: outcomeRateLimited} }

func fatal(err error) callResult { return callResult{outcome: outcomeFatal, err: err} }

// RetryPolicy controls how rate-limited calls are retried.
//
// MaxAttempts of zero retries forever.
type RetryPolicy struct {
	DefaultDelay time.Duration
	MaxAttempts  int
	OnRateLimit  func(attempt int, wait time.Duration)
}

// withRetry repeats call while it reports a rate limit, sleeping the indicated delay between attempts.
// Fatal results are returned immediately.
func withRetry(ctx context.Context, policy RetryPolicy, call func() callResult) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("request canceled: %w", err)
		}

		res := call()
		switch res.outcome {
		case outcomeOK:
			return nil
		case outcomeFatal:
			return res.err
		}

		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return fmt.Errorf("%w: gave up after %d attempts", shared.ErrRateLimited, attempt)
		}

		wait := policy.DefaultDelay
		if res.hasRetryAfter {
			wait = max(res.retryAfter, 0)
		}
		if policy.OnRateLimit != nil {
			policy.OnRateLimit(attempt, wait)
		}

		if err := sleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
// found is false when the header is absent or unusable.
func parseRetryAfter(resp *http.Response) (delay time.Duration, found bool) {
	if resp == nil {
		return 0, false
	}

	retryAfter := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if retryAfter == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		return max(time.Until(when), 0), true
	}

	return 0, false
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
