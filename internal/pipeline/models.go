package pipeline

import (
	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
)

// Input holds the fully materialized change logs of one run.
type Input struct {
	Accounts []events.ChangeEvent
	Cards    []events.ChangeEvent
	Savings  []events.ChangeEvent
}

// Options tunes a run. The zero value uses millisecond timestamps, the
// default payload field names and a generated run id.
type Options struct {
	RunID         string
	Unit          events.TimeUnit
	PayloadFields entity.PayloadFields
}

// EntityStats summarizes one entity pipeline.
type EntityStats struct {
	Events           int
	Creates          int
	Updates          int
	Deletes          int
	Unmatched        int
	DuplicateCreates int
	TimestampErrors  int
}

// Result is the set of output tables of one run.
//
// Accounts, Savings and Cards are the forward-filled entity snapshots.
// Denormalized is built from the reconciled tables before forward-fill.
type Result struct {
	RunID string

	Accounts []entity.AccountRow
	Savings  []entity.SavingsRow
	Cards    []entity.CardRow

	Denormalized []ledger.DenormalizedRow
	Transactions []ledger.TransactionRecord
	Volume       []ledger.VolumeAggregate

	Stats map[entity.Kind]EntityStats
}
