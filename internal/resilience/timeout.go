package resilience

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
)

// WithTimeout bounds one processing attempt to d. On expiry the attempt's
// context is canceled, the attempt is abandoned, and a timeout error
// carrying the operation name is returned. A timeout is a normal failure
// from the circuit breaker's perspective.
//
// The attempt runs in its own goroutine so a processor that ignores
// cancellation cannot wedge the caller; its eventual return value is
// discarded. A panic inside the attempt is recovered on that goroutine
// and surfaced as an internal error, since a panic escaping here would
// bypass the request-level recovery and kill the process.
func WithTimeout(ctx context.Context, name string, d time.Duration, fn func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- apperrors.Internalf("operation %q panicked: %v", name, p)
			}
		}()
		done <- fn(attemptCtx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Wrapf(err, apperrors.ErrCodeTimeout, "operation %q timed out after %s", name, d)
		}
		return err
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return apperrors.Timeout("operation \"" + name + "\" timed out after " + d.String())
		}
		return apperrors.Wrap(attemptCtx.Err(), apperrors.ErrCodeCanceled, "operation \""+name+"\" canceled")
	}
}
