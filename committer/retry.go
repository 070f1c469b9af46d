package committer

import (
	"context"
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/lakecommit/logger"
)

var _ Committer[any, any] = (*retryCommitter[any, any])(nil)

type retryCommitter[C, G any] struct {
	Committer[C, G]

	b           backoff.Backoff
	maxAttempts int
	logger      logger.Logger
}

// WithRetry wraps a Committer so transient Commit failures are retried with
// backoff before propagating. Commit is required to be at-least-once-safe,
// so re-invoking it with the same batch is always legal.
// Grouping, combining and Close pass through untouched.
func WithRetry[C, G any](c Committer[C, G], b backoff.Backoff, maxAttempts int, l logger.Logger) Committer[C, G] {
	if l == nil {
		l = logger.NewNoopLogger()
	}

	return &retryCommitter[C, G]{
		Committer:   c,
		b:           b,
		maxAttempts: maxAttempts,
		logger:      l,
	}
}

func (r *retryCommitter[C, G]) Commit(ctx context.Context, committables []G) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = r.Committer.Commit(ctx, committables)
		if lastErr == nil {
			return nil
		}

		if attempt >= r.maxAttempts {
			return lastErr
		}

		r.logger.Warn(
			"commit failed, retrying",
			"error", lastErr,
			"attempt", attempt,
			"committables", len(committables),
		)

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(r.b.Next(uint(attempt))):
		}
	}
}
