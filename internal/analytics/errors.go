package analytics

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when the end date precedes the start date or
	// when an average is requested over zero days.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrEmptyResult means the query matched no rows. Callers render it as a
	// successful response without a payload.
	ErrEmptyResult = errors.New("no data found")
	// ErrInvalidGroupBy is returned for a group-by column outside the allowlist.
	ErrInvalidGroupBy = errors.New("unsupported group_by column")
	// ErrIngestorStopped is returned by Enqueue once Stop has been called.
	ErrIngestorStopped = errors.New("ingestor stopped")
)

// UpstreamError annotates a failed data source call with the operation name.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call ran out of time. Timeouts are transient;
// the caller may retry.
func (e *UpstreamError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
