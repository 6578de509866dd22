package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/models"
)

func newUsageCmd() *cobra.Command {
	var (
		day string
		all bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recorded spend and request counts by day",
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

			if all {
				days, err := a.ledger.Days(ctx)
				if err != nil {
					return err
				}
				var usages []models.DayUsage
				for _, d := range days {
					u, _, err := a.ledger.Day(ctx, d)
					if err != nil {
						return err
					}
					usages = append(usages, u)
				}
				return writeDaySummary(os.Stdout, usages)
			}

			if day == "" {
				day = ledger.DayKey(time.Now())
			}
			if _, err := ledger.ParseDay(day); err != nil {
				return err
			}
			u, ok, err := a.ledger.Day(ctx, day)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("No usage recorded for %s.\n", day)
				return nil
			}
			return writeDayDetail(os.Stdout, u)
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "day to show (YYYY-MM-DD, default: today UTC)")
	cmd.Flags().BoolVar(&all, "all", false, "summarize every recorded day")
	return cmd
}

func writeDaySummary(out io.Writer, usages []models.DayUsage) error {
	if len(usages) == 0 {
		_, err := fmt.Fprintln(out, "No usage recorded.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tREQUESTS\tCOST")
	for _, u := range usages {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.Day, humanize.Comma(u.Requests), u.Cost.StringFixed(4))
	}
	return w.Flush()
}

func writeDayDetail(out io.Writer, u models.DayUsage) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Day:\t%s\n", u.Day)
	fmt.Fprintf(w, "Requests:\t%d\n", u.Requests)
	fmt.Fprintf(w, "Cost:\t%s\n", u.Cost.StringFixed(4))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "MODEL\tREQUESTS")
	for _, k := range sortedKeys(u.Models) {
		fmt.Fprintf(w, "%s\t%d\n", k, u.Models[k])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "REQUEST TYPE\tREQUESTS")
	for _, k := range sortedKeys(u.RequestTypes) {
		fmt.Fprintf(w, "%s\t%d\n", k, u.RequestTypes[k])
	}
	return w.Flush()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
