package events

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperationKind is returned when an event's op tag is not one
	// of create, update or delete.
	ErrInvalidOperationKind = errors.New("invalid operation kind")

	// ErrTimestampOutOfRange is returned when a raw timestamp does not map to
	// a representable calendar time.
	ErrTimestampOutOfRange = errors.New("timestamp out of range")

	// ErrTimestampNotNumeric is returned when an event's ts is present but
	// is not an epoch number.
	ErrTimestampNotNumeric = errors.New("timestamp is not numeric")

	// ErrUnknownTimeUnit is returned for a unit other than ms or us.
	ErrUnknownTimeUnit = errors.New("unknown time unit")
)

// OperationKindError locates an event with an unrecognized op tag.
type OperationKindError struct {
	Index int
	ID    RecordID
	Tag   string
}

func (e *OperationKindError) Error() string {
	return fmt.Sprintf("event %d (id %q): %v: %q", e.Index, e.ID, ErrInvalidOperationKind, e.Tag)
}

func (e *OperationKindError) Unwrap() error {
	return ErrInvalidOperationKind
}

// TimestampConversionError reports a raw timestamp that could not be turned
// into an absolute time. It is row-scoped: callers keep the row with a null
// timestamp.
type TimestampConversionError struct {
	Raw  int64
	Text string // the ts as written when it was not numeric
	Unit TimeUnit
	Err  error
}

func (e *TimestampConversionError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("convert timestamp %s (%s): %v", e.Text, e.Unit, e.Err)
	}
	return fmt.Sprintf("convert timestamp %d (%s): %v", e.Raw, e.Unit, e.Err)
}

func (e *TimestampConversionError) Unwrap() error {
	return e.Err
}
