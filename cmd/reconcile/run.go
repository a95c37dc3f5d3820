package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-reconciler/internal/config"
	"github.com/dvloznov/ledger-reconciler/internal/loader"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
	"github.com/dvloznov/ledger-reconciler/internal/sink"
)

type runFlags struct {
	source    string
	unit      string
	sink      string
	bqProject string
	bqDataset string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the change logs, reconcile them and write the output tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&f.source, "source", "", "directory or gs:// URI holding the change logs (env LEDGER_SOURCE)")
	cmd.Flags().StringVar(&f.unit, "unit", "", "timestamp unit of the change logs: ms or us (env LEDGER_TIMESTAMP_UNIT)")
	cmd.Flags().StringVar(&f.sink, "sink", "", "where to write the output tables: table or bigquery (env LEDGER_SINK)")
	cmd.Flags().StringVar(&f.bqProject, "bq-project", "", "BigQuery project for the bigquery sink (env LEDGER_BQ_PROJECT)")
	cmd.Flags().StringVar(&f.bqDataset, "bq-dataset", "", "BigQuery dataset for the bigquery sink (env LEDGER_BQ_DATASET)")
	return cmd
}

// apply overrides cfg with the flags that were set explicitly.
func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = f.source
	}
	if flags.Changed("unit") {
		cfg.TimestampUnit = f.unit
	}
	if flags.Changed("sink") {
		cfg.Sink = f.sink
	}
	if flags.Changed("bq-project") {
		cfg.BQProject = f.bqProject
	}
	if flags.Changed("bq-dataset") {
		cfg.BQDataset = f.bqDataset
	}
}

func run(ctx context.Context, cfg config.Config, out, logOut io.Writer) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logger.NewConsole(logOut).Level(level)

	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	unit, err := cfg.Unit()
	if err != nil {
		return err
	}

	src, closeSrc, err := openSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer closeSrc()

	dst, closeDst, err := openSink(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer closeDst()

	log.Info().
		Str("source", cfg.Source).
		Str("sink", cfg.Sink).
		Str("unit", string(unit)).
		Msg("Starting reconcile run")

	res, err := pipeline.Execute(ctx, src, dst, pipeline.Options{Unit: unit})
	if err != nil {
		log.Error().Err(err).Bool("fatal_input", pipeline.IsFatal(err)).Msg("Reconcile run failed")
		return err
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("transactions", len(res.Transactions)).
		Msg("Reconcile run completed")
	return nil
}

func openSource(ctx context.Context, source string) (pipeline.EventSource, func() error, error) {
	if !loader.IsGCSURI(source) {
		return loader.NewDirLoader(source), noClose, nil
	}
	l, err := loader.NewGCSLoader(ctx, source)
	if err != nil {
		return nil, nil, fmt.Errorf("opening source: %w", err)
	}
	return l, l.Close, nil
}

func openSink(ctx context.Context, cfg config.Config, out io.Writer) (pipeline.ResultSink, func() error, error) {
	if cfg.Sink != config.SinkBigQuery {
		return sink.NewTableSink(out), noClose, nil
	}
	s, err := sink.NewBigQuerySink(ctx, cfg.BQProject, cfg.BQDataset)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sink: %w", err)
	}
	return s, s.Close, nil
}

func noClose() error { return nil }
