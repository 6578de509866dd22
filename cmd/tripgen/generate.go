package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tripcraft/tripgen/pkg/server"
)

func newGenerateCmd() *cobra.Command {
	var (
		tripPath    string
		requestType string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one itinerary from a trip constraints JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tripPath == "" {
				return fmt.Errorf("--trip is required")
			}
			data, err := os.ReadFile(tripPath)
			if err != nil {
				return fmt.Errorf("read trip: %w", err)
			}
			var req server.ItineraryRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse trip %s: %w", tripPath, err)
			}
			if requestType != "" {
				req.RequestType = requestType
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg, true, nil)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.orch.GenerateItinerary(ctx, req.TripConstraintSet, req.RequestType)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Println(res.Content)
			fmt.Fprintf(os.Stderr, "\n%s via %s: %d prompt / %d completion tokens, cost %s, %d attempt(s)\n",
				res.Model, res.Provider, res.Usage.PromptTokens, res.Usage.CompletionTokens,
				res.Cost.StringFixed(6), res.Attempts)
			return nil
		},
	}

	cmd.Flags().StringVar(&tripPath, "trip", "", "trip constraints JSON file")
	cmd.Flags().StringVar(&requestType, "type", "", "request type (overrides the file)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
