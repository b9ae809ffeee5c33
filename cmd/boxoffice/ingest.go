package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/boxoffice-sales/internal/app"
	"github.com/iliyamo/boxoffice-sales/internal/ingest"
)

type ingestOptions struct {
	batchSize int
	quiet     bool
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <file.csv>",
		Short: "Ingest a sales CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				return runIngest(cmd, a, args[0], opts)
			})
		},
	}
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Records per commit (default INGEST_BATCH_SIZE)")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Do not print progress")
	return cmd
}

func runIngest(cmd *cobra.Command, a *app.App, path string, opts ingestOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	orch := a.Orchestrator
	if opts.batchSize > 0 || !opts.quiet {
		var extra []ingest.Option
		if opts.batchSize > 0 {
			extra = append(extra, ingest.WithBatchSize(opts.batchSize))
		}
		if !opts.quiet {
			extra = append(extra, ingest.WithObserver(ingest.ObserverFunc(func(_ context.Context, p ingest.Progress) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rcommitted %d records in %d batches (%.0f%%)", p.Committed, p.Batches, p.Fraction*100)
			})))
		}
		orch = orch.With(extra...)
	}

	rep, err := orch.Ingest(cmd.Context(), f)
	if !opts.quiet {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if rep != nil {
		if perr := printJSON(cmd, rep); perr != nil {
			return perr
		}
	}
	return err
}
