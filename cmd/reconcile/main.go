package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitError      = 1
	exitBadChanges = 2 // a change log contained an invalid record
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "reconcile",
		Short:         "Reconcile entity change logs into a transaction ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reconcile %s\n", version)
		},
	}
}

func exitCode(err error) int {
	if pipeline.IsFatal(err) {
		return exitBadChanges
	}
	return exitError
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
