// Package sink publishes the output tables of a reconciliation run.
package sink

import (
	"strconv"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
)

// Null is how a missing value is rendered in text output.
const Null = "NULL"

const timeLayout = "2006-01-02 15:04:05.000"

// Table is a rendered output table.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Tables renders every output table of res in display order.
func Tables(res *pipeline.Result) []Table {
	return []Table{
		accountsTable(res.Accounts),
		savingsTable(res.Savings),
		cardsTable(res.Cards),
		denormalizedTable(res.Denormalized),
		transactionsTable(res.Transactions),
		volumeTable(res.Volume),
	}
}

func accountsTable(rows []entity.AccountRow) Table {
	t := Table{
		Title:  "Accounts Table",
		Header: append(metaHeader(""), "account_id", "name", "address", "phone_number", "email", "card_id", "savings_account_id"),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, append(metaCells(&r.RowMeta),
			str(r.AccountID), str(r.Name), str(r.Address), str(r.PhoneNumber), str(r.Email), str(r.CardID), str(r.SavingsAccountID)))
	}
	return t
}

func savingsTable(rows []entity.SavingsRow) Table {
	t := Table{
		Title:  "Savings Account Table",
		Header: append(metaHeader(""), "savings_account_id", "balance", "interest_rate_percent", "status"),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, append(metaCells(&r.RowMeta),
			str(r.SavingsAccountID), num(r.Balance), num(r.InterestRatePercent), str(r.Status)))
	}
	return t
}

func cardsTable(rows []entity.CardRow) Table {
	t := Table{
		Title:  "Cards Table",
		Header: append(metaHeader(""), "card_id", "card_number", "credit_used", "monthly_limit", "status"),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, append(metaCells(&r.RowMeta),
			str(r.CardID), str(r.CardNumber), num(r.CreditUsed), num(r.MonthlyLimit), str(r.Status)))
	}
	return t
}

// denormalizedTable uses the join's column naming: colliding account and
// card columns get _account and _card suffixes, savings columns keep their
// names except status, which collides with the card's.
func denormalizedTable(rows []ledger.DenormalizedRow) Table {
	header := append(metaHeader("_account"), "account_id", "name", "address", "phone_number", "email", "card_id", "savings_account_id")
	header = append(header, metaHeader("_card")...)
	header = append(header, "card_number", "credit_used", "monthly_limit", "status")
	header = append(header, metaHeader("")...)
	header = append(header, "balance", "interest_rate_percent", "status_saving", "ts_transaction", "transaction_val")

	t := Table{Title: "Complete Denormalized Table", Header: header}
	for _, r := range rows {
		a := r.Account
		cells := append(metaCells(&a.RowMeta),
			str(a.AccountID), str(a.Name), str(a.Address), str(a.PhoneNumber), str(a.Email), str(a.CardID), str(a.SavingsAccountID))

		if c := r.Card; c != nil {
			cells = append(cells, metaCells(&c.RowMeta)...)
			cells = append(cells, str(c.CardNumber), num(c.CreditUsed), num(c.MonthlyLimit), str(c.Status))
		} else {
			cells = append(cells, nulls(7)...)
		}

		if s := r.Savings; s != nil {
			cells = append(cells, metaCells(&s.RowMeta)...)
			cells = append(cells, num(s.Balance), num(s.InterestRatePercent), str(s.Status))
		} else {
			cells = append(cells, nulls(6)...)
		}

		cells = append(cells, ts(r.TransactionTS), num(r.TransactionValue))
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func transactionsTable(txs []ledger.TransactionRecord) Table {
	t := Table{
		Title: "Transaction Table",
		Header: []string{
			"id_account", "id_card", "id", "op_account", "op_card", "op",
			"credit_used", "balance", "transaction_val", "ts_transaction",
		},
	}
	for _, tx := range txs {
		t.Rows = append(t.Rows, []string{
			string(tx.AccountRecordID), recordID(tx.CardRecordID), recordID(tx.SavingsRecordID),
			string(tx.AccountOp), op(tx.CardOp), op(tx.SavingsOp),
			num(tx.CreditUsed), num(tx.Balance), num(&tx.Value), ts(&tx.Timestamp),
		})
	}
	return t
}

func volumeTable(vol []ledger.VolumeAggregate) Table {
	t := Table{
		Title:  "Transaction Volume Table",
		Header: []string{"ts_transaction", "transaction_count"},
	}
	for _, v := range vol {
		t.Rows = append(t.Rows, []string{ts(&v.Timestamp), strconv.Itoa(v.Count)})
	}
	return t
}

func metaHeader(suffix string) []string {
	return []string{"id" + suffix, "op" + suffix, "ts" + suffix}
}

func metaCells(m *entity.RowMeta) []string {
	return []string{string(m.ID), string(m.Op), ts(m.TS)}
}

func nulls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Null
	}
	return out
}

func str(s *string) string {
	if s == nil {
		return Null
	}
	return *s
}

func num(f *float64) string {
	if f == nil {
		return Null
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func ts(t *time.Time) string {
	if t == nil {
		return Null
	}
	return t.UTC().Format(timeLayout)
}

func recordID(id *events.RecordID) string {
	if id == nil {
		return Null
	}
	return string(*id)
}

func op(k *events.OperationKind) string {
	if k == nil {
		return Null
	}
	return string(*k)
}
