package entity

// Schema describes how key propagation and forward-fill treat one entity
// type.
type Schema[R any] struct {
	Kind Kind

	// Keys names the identifying columns copied from create rows onto
	// update rows.
	Keys []string

	// CopyKeys overwrites dst's key columns with src's. A nil src clears
	// them.
	CopyKeys func(dst, src *R)

	// FillFrom replaces each nil column of row with prev's value.
	FillFrom func(row, prev *R)
}

var CardSchema = Schema[CardRow]{
	Kind: Cards,
	Keys: []string{"card_id", "card_number"},
	CopyKeys: func(dst, src *CardRow) {
		if src == nil {
			dst.CardID, dst.CardNumber = nil, nil
			return
		}
		dst.CardID, dst.CardNumber = src.CardID, src.CardNumber
	},
	FillFrom: func(row, prev *CardRow) {
		fillMeta(&row.RowMeta, &prev.RowMeta)
		fill(&row.CardID, prev.CardID)
		fill(&row.CardNumber, prev.CardNumber)
		fill(&row.CreditUsed, prev.CreditUsed)
		fill(&row.MonthlyLimit, prev.MonthlyLimit)
		fill(&row.Status, prev.Status)
	},
}

var AccountSchema = Schema[AccountRow]{
	Kind: Accounts,
	Keys: []string{"account_id"},
	CopyKeys: func(dst, src *AccountRow) {
		if src == nil {
			dst.AccountID = nil
			return
		}
		dst.AccountID = src.AccountID
	},
	FillFrom: func(row, prev *AccountRow) {
		fillMeta(&row.RowMeta, &prev.RowMeta)
		fill(&row.AccountID, prev.AccountID)
		fill(&row.Name, prev.Name)
		fill(&row.Address, prev.Address)
		fill(&row.PhoneNumber, prev.PhoneNumber)
		fill(&row.Email, prev.Email)
		fill(&row.CardID, prev.CardID)
		fill(&row.SavingsAccountID, prev.SavingsAccountID)
	},
}

var SavingsSchema = Schema[SavingsRow]{
	Kind: Savings,
	Keys: []string{"savings_account_id"},
	CopyKeys: func(dst, src *SavingsRow) {
		if src == nil {
			dst.SavingsAccountID = nil
			return
		}
		dst.SavingsAccountID = src.SavingsAccountID
	},
	FillFrom: func(row, prev *SavingsRow) {
		fillMeta(&row.RowMeta, &prev.RowMeta)
		fill(&row.SavingsAccountID, prev.SavingsAccountID)
		fill(&row.Balance, prev.Balance)
		fill(&row.InterestRatePercent, prev.InterestRatePercent)
		fill(&row.Status, prev.Status)
	},
}

// id and op are never null, only the timestamp can be carried forward.
func fillMeta(row, prev *RowMeta) {
	fill(&row.TS, prev.TS)
}

func fill[T any](dst **T, prev *T) {
	if *dst == nil {
		*dst = prev
	}
}
