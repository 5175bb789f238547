package errors

import (
	"context"
	"errors"
	"net"
)

// Classify converts any error produced while compiling into a *CompileError.
// Cancellation of ctx wins over whatever the transport reported, since a
// cancelled caller must see Cancelled rather than a side effect of the abort.
// Unclassified errors are transport failures and become Network.
func Classify(ctx context.Context, err error) *CompileError {
	if err == nil {
		return nil
	}

	cancelled := errors.Is(err, context.Canceled) ||
		(ctx != nil && errors.Is(ctx.Err(), context.Canceled))

	var ce *CompileError
	if errors.As(err, &ce) {
		if cancelled && ce.Type == ErrorTypeNetwork {
			return NewCancelled(err)
		}
		return ce
	}

	if cancelled {
		return NewCancelled(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewNetwork("compile request timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewNetwork("compile request timed out", err)
	}

	return NewNetwork("compile service unreachable", err)
}

// As extracts the *CompileError from err's chain.
func As(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Kind returns the classified type of err, or "" for nil and foreign errors.
func Kind(err error) ErrorType {
	if ce, ok := As(err); ok {
		return ce.Type
	}
	return ""
}

// IsRetryable determines if err warrants another attempt.
// Conservative default: unknown errors are not retried.
func IsRetryable(err error) bool {
	if ce, ok := As(err); ok {
		return ce.IsRetryable()
	}
	return false
}

// IsCancelled reports whether err is a cancellation, classified or raw.
func IsCancelled(err error) bool {
	if ce, ok := As(err); ok {
		return ce.Type == ErrorTypeCancelled
	}
	return errors.Is(err, context.Canceled)
}

// IsUserFacing reports whether err should be surfaced as a failure.
// Cancellation is expected bookkeeping, not a failure.
func IsUserFacing(err error) bool {
	return err != nil && !IsCancelled(err)
}
