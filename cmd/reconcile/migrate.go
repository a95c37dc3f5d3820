package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-reconciler/internal/config"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/sink"
)

func newMigrateCmd() *cobra.Command {
	var project, dataset string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the BigQuery dataset and output tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bq-project") {
				cfg.BQProject = project
			}
			if cmd.Flags().Changed("bq-dataset") {
				cfg.BQDataset = dataset
			}
			cfg.Sink = config.SinkBigQuery
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, err := logger.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			log := logger.NewConsole(cmd.ErrOrStderr()).Level(level)
			ctx := logger.WithContext(cmd.Context(), log)

			s, err := sink.NewBigQuerySink(ctx, cfg.BQProject, cfg.BQDataset)
			if err != nil {
				return err
			}
			defer s.Close()

			log.Info().Str("project", cfg.BQProject).Str("dataset", cfg.BQDataset).Msg("Migrating output tables")
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset %s.%s is up to date.\n", cfg.BQProject, cfg.BQDataset)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "bq-project", "", "BigQuery project (env LEDGER_BQ_PROJECT)")
	cmd.Flags().StringVar(&dataset, "bq-dataset", "", "BigQuery dataset (env LEDGER_BQ_DATASET)")
	return cmd
}
