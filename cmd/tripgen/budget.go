package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/models"
)

func newBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect the daily cost and hourly request limits",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show today's usage against the limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg, false, nil)
			if err != nil {
				return err
			}
			defer a.close()

			now := time.Now()
			hourCount, err := a.window.Count(ctx, now)
			if err != nil {
				return err
			}
			st, err := a.budget.Status(ctx, ledger.DayKey(now), hourCount)
			if err != nil {
				return err
			}
			return writeBudgetStatus(os.Stdout, st)
		},
	}

	cmd.AddCommand(statusCmd)
	return cmd
}

func writeBudgetStatus(out io.Writer, st models.BudgetStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tLIMIT\tLIMIT VALUE\tUSED\tREMAINING")
	fmt.Fprintf(w, "%s\tdaily cost\t%s\t%s\t%s\n", st.Day,
		limitStr(st.Policy.DailyCostLimit.IsNegative(), st.Policy.DailyCostLimit.StringFixed(2)),
		st.CostUsed.StringFixed(4),
		limitStr(st.Policy.DailyCostLimit.IsNegative(), st.CostRemaining.StringFixed(4)))
	fmt.Fprintf(w, "%s\thourly requests\t%s\t%d\t%s\n", st.Day,
		limitStr(st.Policy.HourlyRequestLimit < 0, fmt.Sprint(st.Policy.HourlyRequestLimit)),
		st.RequestsThisHour,
		limitStr(st.Policy.HourlyRequestLimit < 0, fmt.Sprint(st.RequestsRemaining)))
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\nNext request: %s\n", st.DecisionLabel)
	return err
}

func limitStr(unlimited bool, v string) string {
	if unlimited {
		return "unlimited"
	}
	return v
}
