package service

import (
	"context"
	"errors"

	dErrors "passport/pkg/domain-errors"
	"passport/pkg/platform/sentinel"
)

// translateStoreErr maps infrastructure failures to coded errors. Errors that
// already carry a code pass through unchanged.
//
// A caller that abandons the request gets CodeTimeout. A store call that ran
// out of time or found the backend down gets CodeUnavailable, which callers
// may retry with the same arguments.
func translateStoreErr(err error, record string) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, record+" not found")
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return dErrors.Wrap(err, dErrors.CodeConflict, record+" already exists")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, record+" storage unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+record)
	}
}

// outcome labels an operation result for metrics and spans.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}
