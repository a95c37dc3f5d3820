package pipeline

import (
	"context"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
)

// EventSource provides the raw change events of one entity type.
// This interface enables mocking and testing of change-log loading.
type EventSource interface {
	// Load returns every change event recorded for the entity kind.
	Load(ctx context.Context, kind entity.Kind) ([]events.ChangeEvent, error)
}

// ResultSink accepts the tables of a finished run.
type ResultSink interface {
	// Write publishes all output tables of a run.
	Write(ctx context.Context, res *Result) error
}
