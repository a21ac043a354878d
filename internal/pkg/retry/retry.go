// internal/pkg/retry/retry.go
package retry

import (
	"context"
	"time"

	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

// Policy bounds how an operation is replayed after a retryable failure
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
	// Retryable classifies errors; apperrors.IsRetryable when nil.
	Retryable func(error) bool
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy is used when callers pass a zero Policy
var DefaultPolicy = Policy{
	MaxAttempts:    5,
	InitialBackoff: 20 * time.Millisecond,
	MaximumBackoff: 500 * time.Millisecond,
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. The last error is returned unchanged.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	policy = policy.normalized()

	attempts := 0
	backoff := policy.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= policy.MaxAttempts || !policy.Retryable(err) {
			return err
		}

		if policy.OnRetry != nil {
			policy.OnRetry(attempts, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = minDuration(backoff*2, policy.MaximumBackoff)
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultPolicy.InitialBackoff
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = p.InitialBackoff
	}
	if p.Retryable == nil {
		p.Retryable = apperrors.IsRetryable
	}
	return p
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
