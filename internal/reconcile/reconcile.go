// Package reconcile merges one entity's create and update rows into a single
// time-ordered table in which every update row carries the identifying keys
// of the create row it belongs to.
package reconcile

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
)

// Report summarizes a reconciliation.
type Report struct {
	Creates int
	Updates int

	// Unmatched counts update rows whose record id has no create row. They
	// are kept with null keys.
	Unmatched int

	// DuplicateCreates counts create rows ignored because an earlier create
	// row had the same record id.
	DuplicateCreates int
}

// Reconcile left-joins updates to creates on record id, replaces each
// update row's key columns with the create row's, appends the patched
// updates after the creates and stable-sorts the result by timestamp.
// Rows without a timestamp sort last.
//
// The input slices are not modified.
func Reconcile[R any, PR entity.Row[R]](s entity.Schema[R], creates, updates []R, log zerolog.Logger) ([]R, Report) {
	rep := Report{Creates: len(creates), Updates: len(updates)}

	byID := make(map[events.RecordID]int, len(creates))
	for i := range creates {
		id := PR(&creates[i]).Meta().ID
		if _, dup := byID[id]; dup {
			rep.DuplicateCreates++
			log.Warn().
				Str("record_id", string(id)).
				Msg("Duplicate create event, keeping the first")
			continue
		}
		byID[id] = i
	}

	out := make([]R, 0, len(creates)+len(updates))
	out = append(out, creates...)
	for _, u := range updates {
		patched := u
		var src *R
		if i, ok := byID[PR(&patched).Meta().ID]; ok {
			src = &creates[i]
		} else {
			rep.Unmatched++
		}
		s.CopyKeys(&patched, src)
		out = append(out, patched)
	}

	SortByTimestamp[R, PR](out)

	if rep.Unmatched > 0 {
		log.Info().
			Int("unmatched", rep.Unmatched).
			Strs("keys", s.Keys).
			Msg("Update events without a create event keep null keys")
	}
	return out, rep
}

// SortByTimestamp stable-sorts rows by ascending timestamp in place. Rows
// with a null timestamp go last in their original relative order.
func SortByTimestamp[R any, PR entity.Row[R]](rows []R) {
	slices.SortStableFunc(rows, func(a, b R) int {
		ta, tb := PR(&a).Meta().TS, PR(&b).Meta().TS
		switch {
		case ta == nil && tb == nil:
			return 0
		case ta == nil:
			return 1
		case tb == nil:
			return -1
		default:
			return ta.Compare(*tb)
		}
	})
}

// ForwardFill returns a copy of rows in which every null column holds the
// nearest preceding non-null value of that column. Leading nulls stay null.
// Rows are expected to be in timestamp order already.
func ForwardFill[R any](s entity.Schema[R], rows []R) []R {
	out := slices.Clone(rows)
	for i := 1; i < len(out); i++ {
		s.FillFrom(&out[i], &out[i-1])
	}
	return out
}
