// Package ledger keeps the day-keyed record of AI spend and request counts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tripcraft/tripgen/pkg/models"
)

// DayLayout is the format of a day key.
const DayLayout = "2006-01-02"

var (
	// ErrNegativeCost is returned when a record would decrease spend.
	ErrNegativeCost = errors.New("ledger: negative cost")
	// ErrInvalidRecord is returned for a record missing its day, model or request type.
	ErrInvalidRecord = errors.New("ledger: invalid record")
)

// Ledger records and queries daily usage. All implementations apply a
// record atomically: a concurrent reader never sees cost, requests, models
// and request types out of step with each other.
type Ledger interface {
	// Record adds one request and its cost to the given day.
	Record(ctx context.Context, day, model, requestType string, cost decimal.Decimal) error
	// DailyCost returns the accumulated cost for a day, or zero if unseen.
	DailyCost(ctx context.Context, day string) (decimal.Decimal, error)
	// DailyRequestCount returns the request count for a day, or zero if unseen.
	DailyRequestCount(ctx context.Context, day string) (int64, error)
	// Day returns a copy of a day's full entry. The bool is false if unseen.
	Day(ctx context.Context, day string) (models.DayUsage, bool, error)
	// Days returns every recorded day key in ascending order.
	Days(ctx context.Context) ([]string, error)
	// Close releases resources.
	Close() error
}

// DayKey returns the UTC calendar day of t.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay validates a day key.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q (use YYYY-MM-DD): %w", day, err)
	}
	return t, nil
}

func validate(day, model, requestType string, cost decimal.Decimal) error {
	if day == "" || model == "" || requestType == "" {
		return fmt.Errorf("%w: day=%q model=%q request_type=%q", ErrInvalidRecord, day, model, requestType)
	}
	if cost.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeCost, cost)
	}
	return nil
}
