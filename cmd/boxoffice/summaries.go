package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iliyamo/boxoffice-sales/internal/app"
	"github.com/iliyamo/boxoffice-sales/internal/model"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
)

type summaryFilter struct {
	date  string
	event string
	ptype string
}

func (f summaryFilter) toFilter() (repository.Filter, error) {
	filter := repository.Filter{}
	if f.date != "" {
		filter[model.FieldTransactionDate] = f.date
	}
	if f.event != "" {
		filter[model.FieldEventName] = f.event
	}
	switch model.PerformanceType(f.ptype) {
	case "":
	case model.Matinee, model.Evening:
		filter[model.FieldPerformanceType] = f.ptype
	default:
		return nil, fmt.Errorf("invalid --type %q: want Matinee or Evening", f.ptype)
	}
	return filter, nil
}

func newSummariesCmd() *cobra.Command {
	var f summaryFilter
	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "List daily event summaries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := f.toFilter()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				buckets, err := a.Aggregator.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tEVENT\tTYPE\tGROSS\tSOLD\tCOMP")
				for _, b := range buckets {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
						b.Key.TransactionDate, b.Key.EventName, b.Key.PerformanceType,
						b.TotalSoldGrossValue.StringFixed(2), b.TotalSoldTickets, b.TotalCompTickets)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&f.date, "date", "", "Transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.event, "event", "", "Event name")
	cmd.Flags().StringVar(&f.ptype, "type", "", "Performance type: Matinee or Evening")
	return cmd
}

func newRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild every daily summary from stored sales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.Aggregator.Recompute(cmd.Context())
				if err != nil {
					return err
				}
				if a.Cache != nil {
					_ = a.Cache.Invalidate(cmd.Context())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d summary buckets\n", n)
				return nil
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all sales and summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete data without --yes")
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Aggregator.Reset(cmd.Context()); err != nil {
					return err
				}
				if a.Cache != nil {
					_ = a.Cache.Invalidate(cmd.Context())
				}
				fmt.Fprintln(cmd.OutOrStdout(), "sales and summaries deleted")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [event]",
		Short: "Print the company overview, or the report of one event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				if len(args) == 1 {
					rep, err := a.Reports.Event(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, rep)
				}
				o, err := a.Reports.Company(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, o)
			})
		},
	}
	return cmd
}
