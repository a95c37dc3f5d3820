package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
)

// Run reconciles the three change logs and derives the transaction ledger.
//
// The accounts, cards and savings pipelines run concurrently; the join stage
// starts once all three have finished. An invalid operation kind or a
// malformed payload in any log aborts the run.
func Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	unit := opts.Unit
	if unit == "" {
		unit = DefaultTimeUnit
	}
	fields := opts.PayloadFields
	if fields == nil {
		fields = entity.DefaultPayloadFields
	}

	base := logger.FromContext(ctx)
	builder := func(kind entity.Kind) entity.Builder {
		return entity.Builder{
			Fields: fields,
			Unit:   unit,
			Log:    logger.WithRun(base, runID, string(kind)),
		}
	}

	var (
		accounts entityTables[entity.AccountRow]
		cards    entityTables[entity.CardRow]
		savings  entityTables[entity.SavingsRow]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = runEntity(gctx, entity.AccountSchema, in.Accounts, builder(entity.Accounts))
		return err
	})
	g.Go(func() error {
		var err error
		cards, err = runEntity(gctx, entity.CardSchema, in.Cards, builder(entity.Cards))
		return err
	})
	g.Go(func() error {
		var err error
		savings, err = runEntity(gctx, entity.SavingsSchema, in.Savings, builder(entity.Savings))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	denormalized := ledger.Denormalize(accounts.reconciled, cards.reconciled, savings.reconciled)
	txs := ledger.FilterTransactions(denormalized)
	volume := ledger.AggregateVolume(txs)

	runLog := logger.WithRun(base, runID, "")
	runLog.Info().
		Int("denormalized", len(denormalized)).
		Int("transactions", len(txs)).
		Int("timestamps", len(volume)).
		Msg("Ledger derived")

	return &Result{
		RunID:        runID,
		Accounts:     accounts.snapshot,
		Savings:      savings.snapshot,
		Cards:        cards.snapshot,
		Denormalized: denormalized,
		Transactions: txs,
		Volume:       volume,
		Stats: map[entity.Kind]EntityStats{
			entity.Accounts: accounts.stats,
			entity.Cards:    cards.stats,
			entity.Savings:  savings.stats,
		},
	}, nil
}

// LoadInput reads all three change logs from src.
func LoadInput(ctx context.Context, src EventSource) (Input, error) {
	var in Input
	var err error

	if in.Accounts, err = src.Load(ctx, entity.Accounts); err != nil {
		return Input{}, fmt.Errorf("LoadInput: %s: %w", entity.Accounts, err)
	}
	if in.Cards, err = src.Load(ctx, entity.Cards); err != nil {
		return Input{}, fmt.Errorf("LoadInput: %s: %w", entity.Cards, err)
	}
	if in.Savings, err = src.Load(ctx, entity.Savings); err != nil {
		return Input{}, fmt.Errorf("LoadInput: %s: %w", entity.Savings, err)
	}
	return in, nil
}

// Execute loads the change logs from src, runs the reconciliation and hands
// the result to sink.
func Execute(ctx context.Context, src EventSource, sink ResultSink, opts Options) (*Result, error) {
	in, err := LoadInput(ctx, src)
	if err != nil {
		return nil, err
	}

	res, err := Run(ctx, in, opts)
	if err != nil {
		return nil, err
	}

	if err := sink.Write(ctx, res); err != nil {
		return res, fmt.Errorf("Execute: writing result: %w", err)
	}
	return res, nil
}
