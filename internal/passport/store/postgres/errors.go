package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"passport/pkg/platform/sentinel"
)

const (
	uniqueViolation       = pq.ErrorCode("23505")
	serializationFailure  = pq.ErrorCode("40001")
	connectionClass       = pq.ErrorClass("08")
	insufficientResources = pq.ErrorClass("53")
	operatorIntervention  = pq.ErrorClass("57")
)

// classify maps driver errors onto sentinels. Context errors pass through so
// the service can tell cancellation from a slow backend.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == uniqueViolation:
			return fmt.Errorf("%s: %w", pqErr.Message, sentinel.ErrAlreadyExists)
		case pqErr.Code == serializationFailure:
			return fmt.Errorf("%s: %w", pqErr.Message, sentinel.ErrVersionMismatch)
		case pqErr.Code.Class() == connectionClass,
			pqErr.Code.Class() == insufficientResources,
			pqErr.Code.Class() == operatorIntervention:
			return fmt.Errorf("%s: %w", pqErr.Message, sentinel.ErrUnavailable)
		}
		return err
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%v: %w", err, sentinel.ErrUnavailable)
	}
	return err
}
