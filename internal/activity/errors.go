package activity

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
)

// Error tags used as Temporal application error types.
const (
	tagValidation = "Validation"
	tagStorage    = "Storage"
)

// ErrInvalidOutput indicates the activity produced a result that failed validation.
var ErrInvalidOutput = errors.New("render produced an invalid result")

// nonRetryable wraps an error as a Temporal non-retryable application error.
// The tag parameter categorizes the error type for monitoring and debugging.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// retryable wraps an error as a Temporal application error that the
// activity retry policy may retry.
func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}

// compileFailure maps a classified compile error onto Temporal's retry
// semantics. The error kind becomes the application error type and any
// service log travels in the error details.
func compileFailure(ctx context.Context, err error) error {
	ce := compileerrors.Classify(ctx, err)

	if ce.Type == compileerrors.ErrorTypeCancelled {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ce
	}

	var details []any
	if ce.HasLog() {
		details = append(details, ce.Log)
	}

	return temporal.NewApplicationErrorWithOptions(ce.Message, string(ce.Type), temporal.ApplicationErrorOptions{
		NonRetryable:   !ce.IsRetryable(),
		Cause:          ce,
		Details:        details,
		NextRetryDelay: ce.GetRetryAfter(),
	})
}
