package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
	"github.com/dvloznov/ledger-reconciler/internal/reconcile"
)

// entityTables is what one entity pipeline hands to the join stage.
type entityTables[R any] struct {
	reconciled []R // input to denormalization
	snapshot   []R // forward-filled, published
	stats      EntityStats
}

// runEntity takes one entity's raw events through split, build, key
// propagation and forward-fill.
func runEntity[R any, PR entity.Row[R]](
	ctx context.Context,
	schema entity.Schema[R],
	evts []events.ChangeEvent,
	b entity.Builder,
) (entityTables[R], error) {
	log := b.Log

	// Step 1: split by operation kind.
	parts, err := events.Split(evts)
	if err != nil {
		return entityTables[R]{}, fmt.Errorf("%s: split: %w", schema.Kind, err)
	}
	if err := ctx.Err(); err != nil {
		return entityTables[R]{}, err
	}

	// Step 2: unnest payloads into typed rows.
	creates, err := entity.Build[R, PR](b, events.OpCreate, parts.Create)
	if err != nil {
		return entityTables[R]{}, fmt.Errorf("%s: %w", schema.Kind, err)
	}
	updates, err := entity.Build[R, PR](b, events.OpUpdate, parts.Update)
	if err != nil {
		return entityTables[R]{}, fmt.Errorf("%s: %w", schema.Kind, err)
	}
	deletes, err := entity.Build[R, PR](b, events.OpDelete, parts.Delete)
	if err != nil {
		return entityTables[R]{}, fmt.Errorf("%s: %w", schema.Kind, err)
	}
	if len(deletes.Rows) > 0 {
		log.Debug().Int("deletes", len(deletes.Rows)).Msg("Delete events are not part of the reconciled table")
	}
	if err := ctx.Err(); err != nil {
		return entityTables[R]{}, err
	}

	// Step 3: propagate keys and order by time.
	reconciled, rep := reconcile.Reconcile[R, PR](schema, creates.Rows, updates.Rows, log)

	// Step 4: forward-fill the published snapshot.
	snapshot := reconcile.ForwardFill(schema, reconciled)

	stats := EntityStats{
		Events:           len(evts),
		Creates:          rep.Creates,
		Updates:          rep.Updates,
		Deletes:          len(deletes.Rows),
		Unmatched:        rep.Unmatched,
		DuplicateCreates: rep.DuplicateCreates,
		TimestampErrors:  len(creates.TimestampErrors) + len(updates.TimestampErrors) + len(deletes.TimestampErrors),
	}
	logStats(log, stats)

	return entityTables[R]{reconciled: reconciled, snapshot: snapshot, stats: stats}, nil
}

func logStats(log zerolog.Logger, s EntityStats) {
	ev := log.Info()
	if s.TimestampErrors > 0 {
		ev = log.Warn()
	}
	ev.Int("events", s.Events).
		Int("creates", s.Creates).
		Int("updates", s.Updates).
		Int("deletes", s.Deletes).
		Int("unmatched", s.Unmatched).
		Int("timestamp_errors", s.TimestampErrors).
		Msg("Entity reconciled")
}

// IsFatal reports whether err aborts a run rather than degrading a row.
func IsFatal(err error) bool {
	return errors.Is(err, events.ErrInvalidOperationKind) || errors.Is(err, entity.ErrMalformedPayload)
}
