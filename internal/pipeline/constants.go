package pipeline

import "github.com/dvloznov/ledger-reconciler/internal/events"

// Default values for a reconciliation run.
const (
	// DefaultTimeUnit is the epoch unit of the "ts" field in the change logs.
	DefaultTimeUnit = events.UnitMillisecond
)
