package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tripcraft/tripgen/pkg/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve tripgen tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, true, nil)
			if err != nil {
				return err
			}
			defer a.close()

			var auditor mcp.AuditSearcher
			if a.auditor != nil {
				auditor = a.auditor
			}
			return mcp.New(a.orch, auditor, version).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
