package budget

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/models"
)

const today = "2026-03-01"

func setup(t *testing.T) (ledger.Ledger, context.Context) {
	t.Helper()
	l, err := ledger.NewSQLite(filepath.Join(t.TempDir(), "budget_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, context.Background()
}

func policy(daily string, hourly int) StaticPolicy {
	return StaticPolicy{DailyCostLimit: decimal.RequireFromString(daily), HourlyRequestLimit: hourly}
}

func record(t *testing.T, l ledger.Ledger, day, cost string) {
	t.Helper()
	require.NoError(t, l.Record(context.Background(), day, "gpt-4o-mini", "itinerary", decimal.RequireFromString(cost)))
}

func TestCheckAllowed(t *testing.T) {
	l, ctx := setup(t)
	record(t, l, today, "1.50")

	got, err := New(policy("10", 100), l).Check(ctx, today, 5)
	require.NoError(t, err)
	assert.Equal(t, models.Allowed, got)
}

func TestCheckDailyAtLimit(t *testing.T) {
	l, ctx := setup(t)
	record(t, l, today, "10.00")

	got, err := New(policy("10", 100), l).Check(ctx, today, 0)
	require.NoError(t, err)
	assert.Equal(t, models.DeniedDailyBudget, got, "spend at the limit denies")
}

func TestCheckHourlyAtLimit(t *testing.T) {
	l, ctx := setup(t)
	e := New(policy("10", 3), l)

	got, err := e.Check(ctx, today, 3)
	require.NoError(t, err)
	assert.Equal(t, models.DeniedHourlyRate, got)

	got, err = e.Check(ctx, today, 2)
	require.NoError(t, err)
	assert.Equal(t, models.Allowed, got, "below the hourly limit")
}

func TestCheckDailyWinsTieBreak(t *testing.T) {
	l, ctx := setup(t)
	record(t, l, today, "12")

	got, err := New(policy("10", 3), l).Check(ctx, today, 50)
	require.NoError(t, err)
	assert.Equal(t, models.DeniedDailyBudget, got, "daily limit is checked first")
}

func TestCheckOtherDayUnaffected(t *testing.T) {
	l, ctx := setup(t)
	record(t, l, "2026-02-28", "99")

	got, err := New(policy("10", 100), l).Check(ctx, today, 0)
	require.NoError(t, err)
	assert.Equal(t, models.Allowed, got, "yesterday's spend must not block today")
}

func TestCheckDoesNotMutateLedger(t *testing.T) {
	l, ctx := setup(t)

	e := New(policy("10", 100), l)
	for i := 0; i < 3; i++ {
		_, err := e.Check(ctx, today, i)
		require.NoError(t, err)
	}
	days, err := l.Days(ctx)
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestNegativeLimitsDisableChecks(t *testing.T) {
	l, ctx := setup(t)
	record(t, l, today, "1000")

	got, err := New(policy("-1", -1), l).Check(ctx, today, 10000)
	require.NoError(t, err)
	assert.Equal(t, models.Allowed, got)
}

func TestZeroLimitsDenyEverything(t *testing.T) {
	l, ctx := setup(t)

	got, err := New(policy("0", 100), l).Check(ctx, today, 0)
	require.NoError(t, err)
	assert.Equal(t, models.DeniedDailyBudget, got)

	got, err = New(policy("10", 0), l).Check(ctx, today, 0)
	require.NoError(t, err)
	assert.Equal(t, models.DeniedHourlyRate, got)
}

func TestPolicyReReadBetweenChecks(t *testing.T) {
	l, ctx := setup(t)
	record(t, l, today, "5")

	limit := decimal.RequireFromString("4")
	e := New(PolicyFunc(func() models.BudgetPolicy {
		return models.BudgetPolicy{DailyCostLimit: limit, HourlyRequestLimit: 100}
	}), l)

	got, err := e.Check(ctx, today, 0)
	require.NoError(t, err)
	require.Equal(t, models.DeniedDailyBudget, got)

	limit = decimal.RequireFromString("20")
	got, err = e.Check(ctx, today, 0)
	require.NoError(t, err)
	assert.Equal(t, models.Allowed, got, "raised limit applies to the next check")
}

func TestStatus(t *testing.T) {
	l, ctx := setup(t)
	record(t, l, today, "1.50")

	st, err := New(policy("10", 100), l).Status(ctx, today, 40)
	require.NoError(t, err)
	assert.True(t, st.CostUsed.Equal(decimal.RequireFromString("1.5")), st.CostUsed.String())
	assert.True(t, st.CostRemaining.Equal(decimal.RequireFromString("8.5")), st.CostRemaining.String())
	assert.Equal(t, 60, st.RequestsRemaining)
	assert.Equal(t, "allowed", st.DecisionLabel)
}

func TestStatusFloorsRemaining(t *testing.T) {
	l, ctx := setup(t)
	record(t, l, today, "15")

	st, err := New(policy("10", 5), l).Status(ctx, today, 9)
	require.NoError(t, err)
	assert.True(t, st.CostRemaining.IsZero(), st.CostRemaining.String())
	assert.Zero(t, st.RequestsRemaining)
}

type failingLedger struct{ ledger.Ledger }

func (failingLedger) DailyCost(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("db down")
}

func TestCheckPropagatesLedgerError(t *testing.T) {
	_, err := New(policy("10", 100), failingLedger{}).Check(context.Background(), today, 0)
	assert.Error(t, err)
}
