// Package ledger joins the reconciled entity tables into one wide,
// time-ordered view and derives the transaction ledger from it.
package ledger

import (
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
)

// DenormalizedRow is one account row joined with at most one card row and
// at most one savings row.
type DenormalizedRow struct {
	Account entity.AccountRow
	Card    *entity.CardRow    // nil when no card row matched
	Savings *entity.SavingsRow // nil when no savings row matched

	TransactionTS    *time.Time
	TransactionValue *float64
}

// Denormalize left-outer-joins accounts to cards on card id, then the result
// to savings on savings account id. Each account row produces one output row
// per matching right-side row, or a single row with a nil side when nothing
// matches. Null keys never match. Output keeps account order, with matches
// in right-side table order.
func Denormalize(accounts []entity.AccountRow, cards []entity.CardRow, savings []entity.SavingsRow) []DenormalizedRow {
	cardsByID := index(cards, func(c *entity.CardRow) *string { return c.CardID })
	savingsByID := index(savings, func(s *entity.SavingsRow) *string { return s.SavingsAccountID })

	out := make([]DenormalizedRow, 0, len(accounts))
	for _, acc := range accounts {
		for _, c := range matches(cards, cardsByID, acc.CardID) {
			for _, s := range matches(savings, savingsByID, acc.SavingsAccountID) {
				row := DenormalizedRow{Account: acc, Card: c, Savings: s}
				d := Derive(row)
				row.TransactionTS, row.TransactionValue = d.TS, d.Value
				out = append(out, row)
			}
		}
	}
	return out
}

func index[R any](rows []R, key func(*R) *string) map[string][]int {
	idx := make(map[string][]int)
	for i := range rows {
		if k := key(&rows[i]); k != nil {
			idx[*k] = append(idx[*k], i)
		}
	}
	return idx
}

// matches returns pointers to the rows whose key equals k, or a single nil
// entry when there are none so the caller still emits the left row.
func matches[R any](rows []R, idx map[string][]int, k *string) []*R {
	if k == nil {
		return []*R{nil}
	}
	positions := idx[*k]
	if len(positions) == 0 {
		return []*R{nil}
	}
	out := make([]*R, len(positions))
	for i, p := range positions {
		out[i] = &rows[p]
	}
	return out
}
