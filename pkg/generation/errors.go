package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/tripcraft/tripgen/pkg/models"
	"github.com/tripcraft/tripgen/pkg/planner"
)

var (
	// ErrBudgetExceeded means the day's recorded spend reached the daily limit.
	ErrBudgetExceeded = errors.New("daily cost limit reached")
	// ErrRateLimited means the hourly request limit was reached.
	ErrRateLimited = errors.New("hourly request limit reached")
	// ErrGenerationUnavailable means no itinerary could be produced after
	// admission: every attempt failed or no provider could be resolved.
	ErrGenerationUnavailable = errors.New("itinerary generation unavailable")
)

// Error kinds reported by Kind and used as log and metric labels.
const (
	KindInvalidConstraint     = "invalid_constraint"
	KindBudgetExceeded        = "budget_exceeded"
	KindRateLimited           = "rate_limited"
	KindGenerationUnavailable = "generation_unavailable"
	KindCancelled             = "cancelled"
	KindInternal              = "internal"
)

// DeniedError is returned when admission control refuses a request.
type DeniedError struct {
	Decision models.Decision
	Day      string
}

func (e *DeniedError) Error() string {
	if e.Decision == models.DeniedHourlyRate {
		return fmt.Sprintf("%v (day %s)", ErrRateLimited, e.Day)
	}
	return fmt.Sprintf("%v (day %s)", ErrBudgetExceeded, e.Day)
}

// Is matches ErrBudgetExceeded or ErrRateLimited depending on the decision.
func (e *DeniedError) Is(target error) bool {
	switch target {
	case ErrBudgetExceeded:
		return e.Decision == models.DeniedDailyBudget
	case ErrRateLimited:
		return e.Decision == models.DeniedHourlyRate
	}
	return false
}

// UnavailableError wraps the last provider failure of an admitted request.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", ErrGenerationUnavailable, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrGenerationUnavailable, e.Err}
}

// Kind maps err to one of the Kind* labels. A nil error has no kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, planner.ErrInvalidConstraint):
		return KindInvalidConstraint
	case errors.Is(err, ErrBudgetExceeded):
		return KindBudgetExceeded
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrGenerationUnavailable):
		return KindGenerationUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}
