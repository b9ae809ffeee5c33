// Command boxoffice ingests sales exports and maintains daily summaries
// from the command line, against the same store the server uses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/boxoffice-sales/internal/app"
	"github.com/iliyamo/boxoffice-sales/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "boxoffice",
		Short:         "Box office sales ingestion and summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newIngestCmd(), newSummariesCmd(), newRecomputeCmd(), newResetCmd(), newReportCmd())
	return root
}

// withApp builds the application for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
