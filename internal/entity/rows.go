package entity

import (
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/events"
)

// Kind names one of the three entity change logs.
type Kind string

const (
	Accounts Kind = "accounts"
	Cards    Kind = "cards"
	Savings  Kind = "savings"
)

// Dir returns the directory (or object prefix) the kind's change log lives in.
func (k Kind) Dir() string {
	if k == Savings {
		return "savings_accounts"
	}
	return string(k)
}

// RowMeta carries the columns every entity row has regardless of payload.
type RowMeta struct {
	ID events.RecordID
	Op events.OperationKind
	TS *time.Time // nil when the event had no timestamp or it failed to convert
}

// Meta gives generic code access to the embedded metadata.
func (m *RowMeta) Meta() *RowMeta { return m }

// Row is satisfied by pointers to the entity row types.
type Row[R any] interface {
	*R
	Meta() *RowMeta
}

// CardRow is a flattened cards change event.
type CardRow struct {
	RowMeta `json:"-"`

	CardID       *string  `json:"card_id"`
	CardNumber   *string  `json:"card_number"`
	CreditUsed   *float64 `json:"credit_used"`
	MonthlyLimit *float64 `json:"monthly_limit"`
	Status       *string  `json:"status"`
}

// AccountRow is a flattened accounts change event. CardID and
// SavingsAccountID are the foreign keys used for denormalization.
type AccountRow struct {
	RowMeta `json:"-"`

	AccountID        *string `json:"account_id"`
	Name             *string `json:"name"`
	Address          *string `json:"address"`
	PhoneNumber      *string `json:"phone_number"`
	Email            *string `json:"email"`
	CardID           *string `json:"card_id"`
	SavingsAccountID *string `json:"savings_account_id"`
}

// SavingsRow is a flattened savings account change event.
type SavingsRow struct {
	RowMeta `json:"-"`

	SavingsAccountID    *string  `json:"savings_account_id"`
	Balance             *float64 `json:"balance"`
	InterestRatePercent *float64 `json:"interest_rate_percent"`
	Status              *string  `json:"status"`
}
