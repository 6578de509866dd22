package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tripcraft/tripgen/pkg/generation"
	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/models"
)

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"tripgen_generate_itinerary": handleGenerate,
	"tripgen_usage":              handleUsage,
	"tripgen_budget":             handleBudget,
	"tripgen_audit_search":       handleAuditSearch,
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

var toolDefinitions = []ToolDefinition{
	{
		Name:        "tripgen_generate_itinerary",
		Description: "Generate a day-by-day itinerary for one or more families travelling together. Subject to the daily cost and hourly request limits.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"destination", "duration_days", "families"},
			"properties": map[string]any{
				"request_type":           prop("string", "Routing key for model selection (optional)"),
				"destination":            prop("string", "Trip destination"),
				"duration_days":          prop("integer", "Number of days, at least 1"),
				"families":               prop("array", "Families with members (age, dietary_restrictions, accessibility_needs)"),
				"preferences":            prop("object", "accommodation_type, transportation_mode, activity_types, dining_preferences, pacing"),
				"additional_preferences": prop("object", "Free-form key/value preferences"),
				"total_budget":           prop("string", "Total trip budget as a decimal string"),
				"currency":               prop("string", "ISO currency code (optional)"),
			},
		},
	},
	{
		Name:        "tripgen_usage",
		Description: "Show recorded AI spend and request counts for a UTC day.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"day": prop("string", "Day in YYYY-MM-DD format (optional, defaults to today)"),
			},
		},
	},
	{
		Name:        "tripgen_budget",
		Description: "Show today's spend and this hour's requests against the configured limits.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "tripgen_audit_search",
		Description: "Search the generation audit log with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"day":          prop("string", "Day in YYYY-MM-DD format (optional)"),
				"state":        prop("string", "completed, denied, rejected or failed (optional)"),
				"request_type": prop("string", "Filter by request type (optional)"),
				"since":        prop("string", "Start date in YYYY-MM-DD format (optional)"),
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

type generateArgs struct {
	RequestType string `json:"request_type"`
	models.TripConstraintSet
}

func handleGenerate(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args generateArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	res, err := s.gen.GenerateItinerary(ctx, args.TripConstraintSet, args.RequestType)
	if err != nil {
		return errorResult(generation.Kind(err) + ": " + err.Error())
	}
	return textResult(formatResult(res))
}

type usageArgs struct {
	Day string `json:"day"`
}

func handleUsage(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args usageArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	day := args.Day
	if day == "" {
		day = ledger.DayKey(time.Now())
	}
	if _, err := ledger.ParseDay(day); err != nil {
		return errorResult(err.Error())
	}
	u, ok, err := s.gen.Usage(ctx, day)
	if err != nil {
		return errorResult("Error fetching usage: " + err.Error())
	}
	if !ok {
		return textResult("No usage recorded for " + day + ".")
	}
	return textResult(formatUsage(u))
}

func handleBudget(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	st, err := s.gen.Status(ctx)
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	return textResult(formatBudgetStatus(st))
}

type auditSearchArgs struct {
	Day         string `json:"day"`
	State       string `json:"state"`
	RequestType string `json:"request_type"`
	Since       string `json:"since"`
}

func handleAuditSearch(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.auditor == nil {
		return textResult("Audit logging is not configured.")
	}
	var args auditSearchArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	opts := models.AuditQueryOpts{
		Day:         args.Day,
		State:       args.State,
		RequestType: args.RequestType,
		Limit:       50,
	}
	if args.Since != "" {
		t, err := time.Parse(ledger.DayLayout, args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	entries, err := s.auditor.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching audit log: " + err.Error())
	}
	return textResult(formatAuditEntries(entries))
}
