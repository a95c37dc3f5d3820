package sink

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
)

// Output table names inside the dataset.
const (
	accountsTableID     = "accounts_snapshot"
	savingsTableID      = "savings_snapshot"
	cardsTableID        = "cards_snapshot"
	denormalizedTableID = "denormalized"
	transactionsTableID = "transactions"
	volumeTableID       = "transaction_volume"
)

// Every row carries run_id and seq (position in its table) so a run's
// output can be read back in order.

type AccountSnapshotRow struct {
	RunID string                 `bigquery:"run_id"`
	Seq   int64                  `bigquery:"seq"`
	ID    string                 `bigquery:"id"`
	Op    string                 `bigquery:"op"`
	TS    bigquery.NullTimestamp `bigquery:"ts"`

	AccountID        bigquery.NullString `bigquery:"account_id"`
	Name             bigquery.NullString `bigquery:"name"`
	Address          bigquery.NullString `bigquery:"address"`
	PhoneNumber      bigquery.NullString `bigquery:"phone_number"`
	Email            bigquery.NullString `bigquery:"email"`
	CardID           bigquery.NullString `bigquery:"card_id"`
	SavingsAccountID bigquery.NullString `bigquery:"savings_account_id"`
}

type SavingsSnapshotRow struct {
	RunID string                 `bigquery:"run_id"`
	Seq   int64                  `bigquery:"seq"`
	ID    string                 `bigquery:"id"`
	Op    string                 `bigquery:"op"`
	TS    bigquery.NullTimestamp `bigquery:"ts"`

	SavingsAccountID    bigquery.NullString  `bigquery:"savings_account_id"`
	Balance             bigquery.NullFloat64 `bigquery:"balance"`
	InterestRatePercent bigquery.NullFloat64 `bigquery:"interest_rate_percent"`
	Status              bigquery.NullString  `bigquery:"status"`
}

type CardSnapshotRow struct {
	RunID string                 `bigquery:"run_id"`
	Seq   int64                  `bigquery:"seq"`
	ID    string                 `bigquery:"id"`
	Op    string                 `bigquery:"op"`
	TS    bigquery.NullTimestamp `bigquery:"ts"`

	CardID       bigquery.NullString  `bigquery:"card_id"`
	CardNumber   bigquery.NullString  `bigquery:"card_number"`
	CreditUsed   bigquery.NullFloat64 `bigquery:"credit_used"`
	MonthlyLimit bigquery.NullFloat64 `bigquery:"monthly_limit"`
	Status       bigquery.NullString  `bigquery:"status"`
}

type DenormalizedRow struct {
	RunID string `bigquery:"run_id"`
	Seq   int64  `bigquery:"seq"`

	IDAccount        string                 `bigquery:"id_account"`
	OpAccount        string                 `bigquery:"op_account"`
	TSAccount        bigquery.NullTimestamp `bigquery:"ts_account"`
	AccountID        bigquery.NullString    `bigquery:"account_id"`
	Name             bigquery.NullString    `bigquery:"name"`
	Address          bigquery.NullString    `bigquery:"address"`
	PhoneNumber      bigquery.NullString    `bigquery:"phone_number"`
	Email            bigquery.NullString    `bigquery:"email"`
	CardID           bigquery.NullString    `bigquery:"card_id"`
	SavingsAccountID bigquery.NullString    `bigquery:"savings_account_id"`

	IDCard       bigquery.NullString    `bigquery:"id_card"`
	OpCard       bigquery.NullString    `bigquery:"op_card"`
	TSCard       bigquery.NullTimestamp `bigquery:"ts_card"`
	CardNumber   bigquery.NullString    `bigquery:"card_number"`
	CreditUsed   bigquery.NullFloat64   `bigquery:"credit_used"`
	MonthlyLimit bigquery.NullFloat64   `bigquery:"monthly_limit"`
	Status       bigquery.NullString    `bigquery:"status"`

	ID                  bigquery.NullString    `bigquery:"id"`
	Op                  bigquery.NullString    `bigquery:"op"`
	TS                  bigquery.NullTimestamp `bigquery:"ts"`
	Balance             bigquery.NullFloat64   `bigquery:"balance"`
	InterestRatePercent bigquery.NullFloat64   `bigquery:"interest_rate_percent"`
	StatusSaving        bigquery.NullString    `bigquery:"status_saving"`

	TSTransaction  bigquery.NullTimestamp `bigquery:"ts_transaction"`
	TransactionVal bigquery.NullFloat64   `bigquery:"transaction_val"`
}

type TransactionRow struct {
	RunID string `bigquery:"run_id"`
	Seq   int64  `bigquery:"seq"`

	IDAccount string              `bigquery:"id_account"`
	IDCard    bigquery.NullString `bigquery:"id_card"`
	ID        bigquery.NullString `bigquery:"id"`
	OpAccount string              `bigquery:"op_account"`
	OpCard    bigquery.NullString `bigquery:"op_card"`
	Op        bigquery.NullString `bigquery:"op"`

	CreditUsed     bigquery.NullFloat64 `bigquery:"credit_used"`
	Balance        bigquery.NullFloat64 `bigquery:"balance"`
	TransactionVal float64              `bigquery:"transaction_val"`
	TSTransaction  time.Time            `bigquery:"ts_transaction"`
	Day            civil.Date           `bigquery:"day"`
}

type VolumeRow struct {
	RunID            string     `bigquery:"run_id"`
	Seq              int64      `bigquery:"seq"`
	TSTransaction    time.Time  `bigquery:"ts_transaction"`
	TransactionCount int64      `bigquery:"transaction_count"`
	Day              civil.Date `bigquery:"day"`
}

func toAccountRows(runID string, rows []entity.AccountRow) []*AccountSnapshotRow {
	out := make([]*AccountSnapshotRow, len(rows))
	for i, r := range rows {
		out[i] = &AccountSnapshotRow{
			RunID:            runID,
			Seq:              int64(i),
			ID:               string(r.ID),
			Op:               string(r.Op),
			TS:               nullTS(r.TS),
			AccountID:        nullString(r.AccountID),
			Name:             nullString(r.Name),
			Address:          nullString(r.Address),
			PhoneNumber:      nullString(r.PhoneNumber),
			Email:            nullString(r.Email),
			CardID:           nullString(r.CardID),
			SavingsAccountID: nullString(r.SavingsAccountID),
		}
	}
	return out
}

func toSavingsRows(runID string, rows []entity.SavingsRow) []*SavingsSnapshotRow {
	out := make([]*SavingsSnapshotRow, len(rows))
	for i, r := range rows {
		out[i] = &SavingsSnapshotRow{
			RunID:               runID,
			Seq:                 int64(i),
			ID:                  string(r.ID),
			Op:                  string(r.Op),
			TS:                  nullTS(r.TS),
			SavingsAccountID:    nullString(r.SavingsAccountID),
			Balance:             nullFloat(r.Balance),
			InterestRatePercent: nullFloat(r.InterestRatePercent),
			Status:              nullString(r.Status),
		}
	}
	return out
}

func toCardRows(runID string, rows []entity.CardRow) []*CardSnapshotRow {
	out := make([]*CardSnapshotRow, len(rows))
	for i, r := range rows {
		out[i] = &CardSnapshotRow{
			RunID:        runID,
			Seq:          int64(i),
			ID:           string(r.ID),
			Op:           string(r.Op),
			TS:           nullTS(r.TS),
			CardID:       nullString(r.CardID),
			CardNumber:   nullString(r.CardNumber),
			CreditUsed:   nullFloat(r.CreditUsed),
			MonthlyLimit: nullFloat(r.MonthlyLimit),
			Status:       nullString(r.Status),
		}
	}
	return out
}

func toDenormalizedRows(runID string, rows []ledger.DenormalizedRow) []*DenormalizedRow {
	out := make([]*DenormalizedRow, len(rows))
	for i, r := range rows {
		a := r.Account
		row := &DenormalizedRow{
			RunID:            runID,
			Seq:              int64(i),
			IDAccount:        string(a.ID),
			OpAccount:        string(a.Op),
			TSAccount:        nullTS(a.TS),
			AccountID:        nullString(a.AccountID),
			Name:             nullString(a.Name),
			Address:          nullString(a.Address),
			PhoneNumber:      nullString(a.PhoneNumber),
			Email:            nullString(a.Email),
			CardID:           nullString(a.CardID),
			SavingsAccountID: nullString(a.SavingsAccountID),
			TSTransaction:    nullTS(r.TransactionTS),
			TransactionVal:   nullFloat(r.TransactionValue),
		}
		if c := r.Card; c != nil {
			row.IDCard = bigquery.NullString{StringVal: string(c.ID), Valid: true}
			row.OpCard = bigquery.NullString{StringVal: string(c.Op), Valid: true}
			row.TSCard = nullTS(c.TS)
			row.CardNumber = nullString(c.CardNumber)
			row.CreditUsed = nullFloat(c.CreditUsed)
			row.MonthlyLimit = nullFloat(c.MonthlyLimit)
			row.Status = nullString(c.Status)
		}
		if s := r.Savings; s != nil {
			row.ID = bigquery.NullString{StringVal: string(s.ID), Valid: true}
			row.Op = bigquery.NullString{StringVal: string(s.Op), Valid: true}
			row.TS = nullTS(s.TS)
			row.Balance = nullFloat(s.Balance)
			row.InterestRatePercent = nullFloat(s.InterestRatePercent)
			row.StatusSaving = nullString(s.Status)
		}
		out[i] = row
	}
	return out
}

func toTransactionRows(runID string, txs []ledger.TransactionRecord) []*TransactionRow {
	out := make([]*TransactionRow, len(txs))
	for i, tx := range txs {
		out[i] = &TransactionRow{
			RunID:          runID,
			Seq:            int64(i),
			IDAccount:      string(tx.AccountRecordID),
			IDCard:         nullRecordID(tx.CardRecordID),
			ID:             nullRecordID(tx.SavingsRecordID),
			OpAccount:      string(tx.AccountOp),
			OpCard:         nullOp(tx.CardOp),
			Op:             nullOp(tx.SavingsOp),
			CreditUsed:     nullFloat(tx.CreditUsed),
			Balance:        nullFloat(tx.Balance),
			TransactionVal: tx.Value,
			TSTransaction:  tx.Timestamp,
			Day:            civil.DateOf(tx.Timestamp.UTC()),
		}
	}
	return out
}

func toVolumeRows(runID string, vol []ledger.VolumeAggregate) []*VolumeRow {
	out := make([]*VolumeRow, len(vol))
	for i, v := range vol {
		out[i] = &VolumeRow{
			RunID:            runID,
			Seq:              int64(i),
			TSTransaction:    v.Timestamp,
			TransactionCount: int64(v.Count),
			Day:              civil.DateOf(v.Timestamp.UTC()),
		}
	}
	return out
}

// batches groups every table of a result with its destination.
func batches(res *pipeline.Result) []tableBatch {
	return []tableBatch{
		{accountsTableID, AccountSnapshotRow{}, anyRows(toAccountRows(res.RunID, res.Accounts))},
		{savingsTableID, SavingsSnapshotRow{}, anyRows(toSavingsRows(res.RunID, res.Savings))},
		{cardsTableID, CardSnapshotRow{}, anyRows(toCardRows(res.RunID, res.Cards))},
		{denormalizedTableID, DenormalizedRow{}, anyRows(toDenormalizedRows(res.RunID, res.Denormalized))},
		{transactionsTableID, TransactionRow{}, anyRows(toTransactionRows(res.RunID, res.Transactions))},
		{volumeTableID, VolumeRow{}, anyRows(toVolumeRows(res.RunID, res.Volume))},
	}
}

func anyRows[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func nullFloat(f *float64) bigquery.NullFloat64 {
	if f == nil {
		return bigquery.NullFloat64{}
	}
	return bigquery.NullFloat64{Float64: *f, Valid: true}
}

func nullTS(t *time.Time) bigquery.NullTimestamp {
	if t == nil {
		return bigquery.NullTimestamp{}
	}
	return bigquery.NullTimestamp{Timestamp: *t, Valid: true}
}

func nullRecordID(id *events.RecordID) bigquery.NullString {
	if id == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: string(*id), Valid: true}
}

func nullOp(k *events.OperationKind) bigquery.NullString {
	if k == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: string(*k), Valid: true}
}
