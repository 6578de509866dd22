package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tripcraft/tripgen/pkg/models"
)

// MemoryLedger is a process-local Ledger guarded by a single RWMutex.
type MemoryLedger struct {
	mu   sync.RWMutex
	days map[string]*models.DayUsage
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *MemoryLedger {
	return &MemoryLedger{days: make(map[string]*models.DayUsage)}
}

// Record adds one request to day under the write lock.
func (l *MemoryLedger) Record(_ context.Context, day, model, requestType string, cost decimal.Decimal) error {
	if err := validate(day, model, requestType, cost); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.days[day]
	if !ok {
		u := models.NewDayUsage(day)
		entry = &u
		l.days[day] = entry
	}
	entry.Cost = entry.Cost.Add(cost)
	entry.Requests++
	entry.Models[model]++
	entry.RequestTypes[requestType]++
	return nil
}

// DailyCost returns the day's cost without creating an entry.
func (l *MemoryLedger) DailyCost(_ context.Context, day string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if entry, ok := l.days[day]; ok {
		return entry.Cost, nil
	}
	return decimal.Zero, nil
}

// DailyRequestCount returns the day's request count without creating an entry.
func (l *MemoryLedger) DailyRequestCount(_ context.Context, day string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if entry, ok := l.days[day]; ok {
		return entry.Requests, nil
	}
	return 0, nil
}

// Day returns a snapshot of the day's entry.
func (l *MemoryLedger) Day(_ context.Context, day string) (models.DayUsage, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.days[day]
	if !ok {
		return models.NewDayUsage(day), false, nil
	}
	return entry.Clone(), true, nil
}

// Days returns all recorded day keys, sorted.
func (l *MemoryLedger) Days(_ context.Context) ([]string, error) {
	l.mu.RLock()
	days := make([]string, 0, len(l.days))
	for d := range l.days {
		days = append(days, d)
	}
	l.mu.RUnlock()
	sort.Strings(days)
	return days, nil
}

// Close is a no-op.
func (l *MemoryLedger) Close() error { return nil }
