package ledger

import (
	"slices"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/events"
)

// TransactionRecord is the transaction-relevant projection of a
// DenormalizedRow. Side-specific fields are nil when that side did not join.
type TransactionRecord struct {
	AccountRecordID events.RecordID
	CardRecordID    *events.RecordID
	SavingsRecordID *events.RecordID

	AccountOp events.OperationKind
	CardOp    *events.OperationKind
	SavingsOp *events.OperationKind

	CreditUsed *float64
	Balance    *float64

	Value     float64
	Timestamp time.Time
}

// VolumeAggregate is the number of transactions sharing one timestamp.
type VolumeAggregate struct {
	Timestamp time.Time
	Count     int
}

// FilterTransactions keeps rows with both derived fields set, orders them by
// transaction timestamp (stable), then keeps those where the card side or
// the account side is an update. Creation-only rows are not transactions.
func FilterTransactions(rows []DenormalizedRow) []TransactionRecord {
	valid := make([]DenormalizedRow, 0, len(rows))
	for _, r := range rows {
		if r.TransactionTS != nil && r.TransactionValue != nil {
			valid = append(valid, r)
		}
	}
	slices.SortStableFunc(valid, func(a, b DenormalizedRow) int {
		return a.TransactionTS.Compare(*b.TransactionTS)
	})

	out := make([]TransactionRecord, 0, len(valid))
	for _, r := range valid {
		if !isTransaction(r) {
			continue
		}
		out = append(out, toRecord(r))
	}
	return out
}

func isTransaction(r DenormalizedRow) bool {
	if r.Card != nil && r.Card.Op == events.OpUpdate {
		return true
	}
	return r.Account.Op == events.OpUpdate
}

func toRecord(r DenormalizedRow) TransactionRecord {
	rec := TransactionRecord{
		AccountRecordID: r.Account.ID,
		AccountOp:       r.Account.Op,
		Value:           *r.TransactionValue,
		Timestamp:       *r.TransactionTS,
	}
	if r.Card != nil {
		id, op := r.Card.ID, r.Card.Op
		rec.CardRecordID, rec.CardOp = &id, &op
		rec.CreditUsed = r.Card.CreditUsed
	}
	if r.Savings != nil {
		id, op := r.Savings.ID, r.Savings.Op
		rec.SavingsRecordID, rec.SavingsOp = &id, &op
		rec.Balance = r.Savings.Balance
	}
	return rec
}

// AggregateVolume counts transactions per distinct timestamp, ascending.
// Timestamps without transactions do not appear.
func AggregateVolume(txs []TransactionRecord) []VolumeAggregate {
	counts := make(map[time.Time]int)
	var stamps []time.Time
	for _, tx := range txs {
		ts := tx.Timestamp.UTC()
		if _, seen := counts[ts]; !seen {
			stamps = append(stamps, ts)
		}
		counts[ts]++
	}
	slices.SortFunc(stamps, func(a, b time.Time) int { return a.Compare(b) })

	out := make([]VolumeAggregate, len(stamps))
	for i, ts := range stamps {
		out[i] = VolumeAggregate{Timestamp: ts, Count: counts[ts]}
	}
	return out
}
