package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/events"
)

// ErrMalformedPayload is returned when an event's nested payload is missing
// or does not decode into the entity's columns.
var ErrMalformedPayload = errors.New("malformed payload")

// PayloadFields maps each operation kind to the event field holding its
// nested payload.
type PayloadFields map[events.OperationKind]string

// DefaultPayloadFields matches the change logs: creates carry "data",
// updates and deletes carry "set".
var DefaultPayloadFields = PayloadFields{
	events.OpCreate: "data",
	events.OpUpdate: "set",
	events.OpDelete: "set",
}

// Builder flattens one kind-partitioned group of events into typed rows.
type Builder struct {
	Fields PayloadFields
	Unit   events.TimeUnit
	Log    zerolog.Logger
}

// Table is the output of Build.
type Table[R any] struct {
	Rows []R

	// TimestampErrors holds the row-scoped conversion failures. The affected
	// rows are kept with a nil TS.
	TimestampErrors []error
}

// Build unnests the kind's payload field into R's columns and stamps each
// row with its id, kind and converted timestamp. An empty group yields an
// empty table.
func Build[R any, PR Row[R]](b Builder, kind events.OperationKind, evts []events.ChangeEvent) (Table[R], error) {
	fields := b.Fields
	if fields == nil {
		fields = DefaultPayloadFields
	}
	field, ok := fields[kind]
	if !ok {
		return Table[R]{}, fmt.Errorf("Build: no payload field for kind %q: %w", kind, events.ErrInvalidOperationKind)
	}

	table := Table[R]{Rows: make([]R, 0, len(evts))}
	for i, ev := range evts {
		raw, ok := ev.Payload(field)
		if !ok {
			return Table[R]{}, fmt.Errorf("Build: %s event %d (id %q): missing %q: %w", kind, i, ev.ID, field, ErrMalformedPayload)
		}
		if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '{' {
			return Table[R]{}, fmt.Errorf("Build: %s event %d (id %q): %q is not an object: %w", kind, i, ev.ID, field, ErrMalformedPayload)
		}

		var row R
		if err := json.Unmarshal(raw, &row); err != nil {
			return Table[R]{}, fmt.Errorf("Build: %s event %d (id %q): %w: %v", kind, i, ev.ID, ErrMalformedPayload, err)
		}

		meta := PR(&row).Meta()
		meta.ID = ev.ID
		meta.Op = kind
		ts, err := ev.Timestamp(b.Unit)
		if err != nil {
			b.Log.Warn().
				Err(err).
				Str("record_id", string(ev.ID)).
				Str("op", kind.String()).
				Msg("Timestamp conversion failed, keeping row with null timestamp")
			table.TimestampErrors = append(table.TimestampErrors, err)
		}
		meta.TS = ts

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
