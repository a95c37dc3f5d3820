package ledger

import "time"

// Derived holds the per-row transaction fields.
type Derived struct {
	TS    *time.Time
	Value *float64
}

// Derive computes the transaction timestamp and value of a denormalized row.
//
// The timestamp is the account row's, falling back to the card row's. The
// savings timestamp is never consulted. The value is the null-aware sum of the
// card's credit used and the savings balance.
func Derive(row DenormalizedRow) Derived {
	var d Derived

	d.TS = row.Account.TS
	if d.TS == nil && row.Card != nil {
		d.TS = row.Card.TS
	}

	var creditUsed, balance *float64
	if row.Card != nil {
		creditUsed = row.Card.CreditUsed
	}
	if row.Savings != nil {
		balance = row.Savings.Balance
	}
	d.Value = AddNullable(creditUsed, balance)

	return d
}

// AddNullable returns nil when both operands are nil, otherwise the sum with
// nil operands counted as zero.
func AddNullable(x, y *float64) *float64 {
	if x == nil && y == nil {
		return nil
	}
	var sum float64
	if x != nil {
		sum += *x
	}
	if y != nil {
		sum += *y
	}
	return &sum
}
