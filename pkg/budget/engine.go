// Package budget decides whether a generation may proceed given the day's
// spend and the current hour's request count.
package budget

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/logger"
	"github.com/tripcraft/tripgen/pkg/models"
)

var warnThreshold = decimal.NewFromFloat(0.80)

// PolicySource supplies the current policy. It is consulted on every check
// so limits can change between requests.
type PolicySource interface {
	Policy() models.BudgetPolicy
}

// StaticPolicy is a PolicySource that never changes.
type StaticPolicy models.BudgetPolicy

// Policy returns p.
func (p StaticPolicy) Policy() models.BudgetPolicy { return models.BudgetPolicy(p) }

// PolicyFunc adapts a function to PolicySource.
type PolicyFunc func() models.BudgetPolicy

// Policy calls f.
func (f PolicyFunc) Policy() models.BudgetPolicy { return f() }

// Engine evaluates requests against the ledger and policy. It only reads
// the ledger.
type Engine struct {
	source PolicySource
	ledger ledger.Ledger
	log    *logger.Logger
}

// New creates an Engine.
func New(source PolicySource, l ledger.Ledger) *Engine {
	return &Engine{
		source: source,
		ledger: l,
		log:    logger.Get().With("component", "budget"),
	}
}

// Check returns the admission decision for day given hourCount requests in
// the current hour. The daily limit is evaluated first, so a request over
// both limits is reported as DeniedDailyBudget.
func (e *Engine) Check(ctx context.Context, day string, hourCount int) (models.Decision, error) {
	p := e.source.Policy()

	if !p.DailyCostLimit.IsNegative() {
		spent, err := e.ledger.DailyCost(ctx, day)
		if err != nil {
			return models.Allowed, fmt.Errorf("budget check: %w", err)
		}
		if spent.GreaterThanOrEqual(p.DailyCostLimit) {
			return models.DeniedDailyBudget, nil
		}
		if spent.GreaterThanOrEqual(p.DailyCostLimit.Mul(warnThreshold)) {
			e.log.Warnw("approaching daily cost limit",
				"day", day, "spent", spent.StringFixed(4), "limit", p.DailyCostLimit.StringFixed(2))
		}
	}

	if p.HourlyRequestLimit >= 0 && hourCount >= p.HourlyRequestLimit {
		return models.DeniedHourlyRate, nil
	}
	return models.Allowed, nil
}

// Status reports usage against the policy for day.
func (e *Engine) Status(ctx context.Context, day string, hourCount int) (models.BudgetStatus, error) {
	p := e.source.Policy()

	spent, err := e.ledger.DailyCost(ctx, day)
	if err != nil {
		return models.BudgetStatus{}, fmt.Errorf("budget status: %w", err)
	}
	decision, err := e.Check(ctx, day, hourCount)
	if err != nil {
		return models.BudgetStatus{}, err
	}

	st := models.BudgetStatus{
		Day:              day,
		Policy:           p,
		CostUsed:         spent,
		CostRemaining:    decimal.Zero,
		RequestsThisHour: hourCount,
		Decision:         decision,
		DecisionLabel:    decision.String(),
	}
	if p.DailyCostLimit.IsNegative() {
		st.CostRemaining = decimal.NewFromInt(-1)
	} else if remaining := p.DailyCostLimit.Sub(spent); remaining.IsPositive() {
		st.CostRemaining = remaining
	}
	if p.HourlyRequestLimit < 0 {
		st.RequestsRemaining = -1
	} else if remaining := p.HourlyRequestLimit - hourCount; remaining > 0 {
		st.RequestsRemaining = remaining
	}
	return st, nil
}
