package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tripcraft/tripgen/pkg/models"
)

func formatResult(r *models.GenerationResult) string {
	var b strings.Builder
	b.WriteString(r.Content)
	if !strings.HasSuffix(r.Content, "\n") {
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\n---\nrequest %s | %s via %s | %d prompt / %d completion tokens | cost %s\n",
		r.RequestID, r.Model, r.Provider, r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Cost.StringFixed(6))
	return b.String()
}

func formatUsage(u models.DayUsage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage for %s\n", u.Day)
	fmt.Fprintf(&b, "  Requests: %d\n", u.Requests)
	fmt.Fprintf(&b, "  Cost:     %s\n", u.Cost.StringFixed(4))
	writeCounts(&b, "Models", u.Models)
	writeCounts(&b, "Request types", u.RequestTypes)
	return b.String()
}

func writeCounts(b *strings.Builder, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "  %-25s %8d\n", k, counts[k])
	}
}

func formatBudgetStatus(st models.BudgetStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Budget status for %s\n", st.Day)
	if st.Policy.DailyCostLimit.IsNegative() {
		fmt.Fprintf(&b, "  Daily cost:      %s used (no limit)\n", st.CostUsed.StringFixed(4))
	} else {
		fmt.Fprintf(&b, "  Daily cost:      %s of %s used, %s remaining\n",
			st.CostUsed.StringFixed(4), st.Policy.DailyCostLimit.StringFixed(2), st.CostRemaining.StringFixed(4))
	}
	if st.Policy.HourlyRequestLimit < 0 {
		fmt.Fprintf(&b, "  Hourly requests: %d this hour (no limit)\n", st.RequestsThisHour)
	} else {
		fmt.Fprintf(&b, "  Hourly requests: %d of %d, %d remaining\n",
			st.RequestsThisHour, st.Policy.HourlyRequestLimit, st.RequestsRemaining)
	}
	fmt.Fprintf(&b, "  Next request:    %s\n", st.DecisionLabel)
	return b.String()
}

func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-12s %-10s %-22s %-20s %10s %-20s\n",
		"Request ID", "Type", "State", "Kind", "Model", "Cost", "Time")
	b.WriteString(strings.Repeat("-", 136) + "\n")
	for _, e := range entries {
		kind := e.ErrorKind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(&b, "%-36s %-12s %-10s %-22s %-20s %10s %-20s\n",
			e.RequestID, e.RequestType, e.State, kind, e.Model,
			e.Cost.StringFixed(4), e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
