// Package planner validates trip constraints and aggregates per-family needs.
package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tripcraft/tripgen/pkg/models"
)

// ErrInvalidConstraint is the sentinel matched by every InvalidConstraintError.
var ErrInvalidConstraint = errors.New("invalid trip constraints")

// InvalidConstraintError describes malformed caller input.
type InvalidConstraintError struct {
	Field  string
	Reason string
}

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("invalid trip constraints: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is match ErrInvalidConstraint.
func (e *InvalidConstraintError) Is(target error) bool {
	return target == ErrInvalidConstraint
}

func invalid(field, format string, args ...any) error {
	return &InvalidConstraintError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the mandatory parts of a constraint set. Whitespace-only
// strings count as empty; non-blank strings are never rewritten.
func Validate(set models.TripConstraintSet) error {
	if strings.TrimSpace(set.Destination) == "" {
		return invalid("destination", "must not be empty")
	}
	if set.DurationDays < 1 {
		return invalid("duration_days", "must be at least 1, got %d", set.DurationDays)
	}
	if set.TotalBudget.IsNegative() {
		return invalid("total_budget", "must not be negative")
	}
	if len(set.Families) == 0 {
		return invalid("families", "at least one family is required")
	}
	for i, f := range set.Families {
		if strings.TrimSpace(f.Name) == "" {
			return invalid(fmt.Sprintf("families[%d].name", i), "must not be empty")
		}
		if len(f.Members) == 0 {
			return invalid(fmt.Sprintf("families[%d].members", i), "family %q has no members", f.Name)
		}
		for j, m := range f.Members {
			if m.Age < 0 {
				return invalid(fmt.Sprintf("families[%d].members[%d].age", i, j), "must not be negative, got %d", m.Age)
			}
		}
	}
	return nil
}

// Aggregate collapses each family's member restrictions and needs into
// family-scoped sets. Families are never merged with each other.
func Aggregate(families []models.Family) ([]models.FamilyConstraints, error) {
	out := make([]models.FamilyConstraints, 0, len(families))
	for i, f := range families {
		if len(f.Members) == 0 {
			return nil, invalid(fmt.Sprintf("families[%d].members", i), "family %q has no members", f.Name)
		}
		fc := models.FamilyConstraints{
			Name:       f.Name,
			MemberAges: make([]int, 0, len(f.Members)),
		}
		var dietary, access []string
		for _, m := range f.Members {
			fc.MemberAges = append(fc.MemberAges, m.Age)
			dietary = append(dietary, m.DietaryRestrictions...)
			access = append(access, m.AccessibilityNeeds...)
		}
		fc.DietaryRestrictions = set(dietary)
		fc.AccessibilityNeeds = set(access)
		out = append(out, fc)
	}
	return out, nil
}

// DistinctNeeds returns every restriction and need across all families.
func DistinctNeeds(families []models.FamilyConstraints) []string {
	var all []string
	for _, f := range families {
		all = append(all, f.DietaryRestrictions...)
		all = append(all, f.AccessibilityNeeds...)
	}
	return set(all)
}

// set drops blank entries, dedups by exact string and sorts. Entries are
// kept as given. Never returns nil.
func set(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
