package errors

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
)

// Categorize maps an arbitrary processing error into the error taxonomy.
// AppErrors keep their own code; well-known sentinel errors from the
// runtime and the resilience layer are translated; anything else is
// treated as transient so the retry budget, not the error shape, decides
// when a delivery is abandoned.
func Categorize(err error) ErrorCode {
	if err == nil {
		return ""
	}

	if code := GetCode(err); code != "" {
		return code
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return ErrCodeCanceled
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrCodeCircuitOpen
	}

	return ErrCodeTransient
}

// IsRetryable reports whether an error category counts against the retry
// budget rather than being dropped (validation) or dead-lettered at once
// (permanent).
func IsRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeTransient, ErrCodeTimeout, ErrCodeCircuitOpen, ErrCodeBulkheadRejected, ErrCodeCanceled, ErrCodeInternal:
		return true
	default:
		return false
	}
}

// RoutesToDLQImmediately reports whether an error category bypasses the
// retry budget and parks the delivery in the dead letter queue now.
func RoutesToDLQImmediately(code ErrorCode) bool {
	return code == ErrCodePermanent
}
