package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tripcraft/tripgen/pkg/audit"
	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/models"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the generation audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(),
		newAuditShowCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func newAuditSearchCmd() *cobra.Command {
	var (
		day         string
		state       string
		requestType string
		since       string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				Day:         day,
				State:       state,
				RequestType: requestType,
				Limit:       limit,
			}
			if day != "" {
				if _, err := ledger.ParseDay(day); err != nil {
					return err
				}
			}
			if since != "" {
				t, err := time.Parse(ledger.DayLayout, since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatAuditEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "filter by day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&state, "state", "", "filter by terminal state (completed, denied, rejected, failed)")
	cmd.Flags().StringVar(&requestType, "type", "", "filter by request type")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newAuditShowCmd() *cobra.Command {
	var requestID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a single audit entry by request ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestID == "" {
				return fmt.Errorf("--request-id is required")
			}

			l, cleanup, err := openAuditLogger(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := l.Query(context.Background(), models.AuditQueryOpts{
				RequestID: requestID,
				Limit:     1,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No entry found for that request ID.")
				return nil
			}
			fmt.Print(formatAuditEntry(entries[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&requestID, "request-id", "", "request ID to show")
	return cmd
}

func newAuditStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show audit log counts by day and state",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Print(formatAuditStats(stats))
			return nil
		},
	}
}

func newAuditCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d audit entries.\n", deleted)
			return nil
		},
	}
}

func openAuditLogger(cmd *cobra.Command) (*audit.Logger, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-12s %-10s %-24s %-20s %8s %10s %-20s\n",
		"REQUEST ID", "TYPE", "STATE", "KIND", "MODEL", "LATENCY", "COST", "TIME")
	b.WriteString(strings.Repeat("-", 147) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-36s %-12s %-10s %-24s %-20s %6dms %10s %-20s\n",
			e.RequestID, e.RequestType, e.State, defaultStr(e.ErrorKind, "-"),
			defaultStr(e.Model, "-"), e.LatencyMs, e.Cost.StringFixed(4),
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func formatAuditEntry(e models.AuditEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request ID:    %s\n", e.RequestID)
	fmt.Fprintf(&b, "Day:           %s\n", e.Day)
	fmt.Fprintf(&b, "Request type:  %s\n", e.RequestType)
	fmt.Fprintf(&b, "Destination:   %s\n", e.Destination)
	fmt.Fprintf(&b, "State:         %s\n", e.State)
	if e.ErrorKind != "" {
		fmt.Fprintf(&b, "Error kind:    %s\n", e.ErrorKind)
	}
	fmt.Fprintf(&b, "Model:         %s\n", defaultStr(e.Model, "-"))
	fmt.Fprintf(&b, "Provider:      %s\n", defaultStr(e.Provider, "-"))
	fmt.Fprintf(&b, "Attempts:      %d\n", e.Attempts)
	fmt.Fprintf(&b, "Latency:       %dms\n", e.LatencyMs)
	fmt.Fprintf(&b, "Tokens:        %d prompt / %d completion\n", e.PromptTokens, e.CompletionTokens)
	fmt.Fprintf(&b, "Cost:          %s\n", e.Cost.String())
	fmt.Fprintf(&b, "Time:          %s\n", e.CreatedAt.Format(time.RFC3339))
	if e.Prompt != "" {
		fmt.Fprintf(&b, "\n--- Prompt ---\n%s\n", e.Prompt)
	}
	return b.String()
}

func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-12s %8s\n", "DAY", "STATE", "COUNT")
	b.WriteString(strings.Repeat("-", 34) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-12s %-12s %8d\n", s.Day, s.State, s.Count)
	}
	return b.String()
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
