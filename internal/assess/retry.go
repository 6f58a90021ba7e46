package assess

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/utils"
)

// Retry policy for assessment-service calls. Only transient failures are
// retried; validation and configuration errors fail the posting immediately.
const (
	maxAttempts    = 3
	initialBackoff = 2 * time.Second
	maxBackoff     = 60 * time.Second
)

// backoffWait is swapped out in tests.
var backoffWait = utils.WaitFor

// withRetry runs fn up to maxAttempts times with exponential backoff. The
// backoff sleep is context-cancellable.
func withRetry(ctx context.Context, logger *zap.Logger, op string, fn func() error) error {
	backoff := initialBackoff

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		logger.Warn("transient failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		if waitErr := backoffWait(ctx, backoff); waitErr != nil {
			return waitErr
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return err
}
