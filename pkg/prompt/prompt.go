// Package prompt renders trip constraints into the text sent to a model.
//
// The rendered itinerary prompt always contains, verbatim: the destination,
// the phrase "<N>-day itinerary", every family name, every dietary
// restriction and accessibility need, every activity type, and the word
// "budget". Optional preferences that are missing render as
// NoPreference rather than being dropped.
package prompt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tripcraft/tripgen/pkg/models"
	"github.com/tripcraft/tripgen/pkg/planner"
)

// NoPreference is rendered for any optional preference the caller left empty.
const NoPreference = "no preference specified"

// None is rendered for an empty restriction or need set.
const None = "none"

const systemPrompt = `You are an experienced family travel planner. You build practical, safe day-by-day itineraries for groups of families travelling together.
Treat every dietary restriction and accessibility need as a hard requirement. Never suggest a meal, venue or transport option that conflicts with one.
Answer in Markdown.`

// Prompt is a rendered system and user prompt pair.
type Prompt struct {
	System string
	User   string
}

// Preferences are the optional trip-level preferences plus free-form extras.
type Preferences struct {
	models.TripPreferences
	Additional map[string]string
}

// Budget is the total trip budget. A zero Amount means unspecified.
type Budget struct {
	Amount   decimal.Decimal
	Currency string
}

// SystemPrompt returns the fixed role instructions.
func SystemPrompt() string { return systemPrompt }

// Build validates set, aggregates its families and renders the prompt.
func Build(set models.TripConstraintSet) (Prompt, error) {
	if err := planner.Validate(set); err != nil {
		return Prompt{}, err
	}
	families, err := planner.Aggregate(set.Families)
	if err != nil {
		return Prompt{}, err
	}
	user := CreateItineraryPrompt(
		set.Destination,
		set.DurationDays,
		families,
		Preferences{TripPreferences: set.Preferences, Additional: set.Additional},
		Budget{Amount: set.TotalBudget, Currency: set.Currency},
	)
	return Prompt{System: systemPrompt, User: user}, nil
}

// CreateItineraryPrompt renders the itinerary request for already
// aggregated families.
func CreateItineraryPrompt(destination string, durationDays int, families []models.FamilyConstraints, prefs Preferences, budget Budget) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a %d-day itinerary for a family trip to %s.\n\n", durationDays, destination)

	b.WriteString("TRIP OVERVIEW\n")
	fmt.Fprintf(&b, "- Destination: %s\n", destination)
	fmt.Fprintf(&b, "- Duration: %d %s\n", durationDays, plural(durationDays, "day", "days"))
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.Name)
	}
	fmt.Fprintf(&b, "- Travelling families: %d (%s)\n", len(families), strings.Join(names, ", "))
	fmt.Fprintf(&b, "- Total budget: %s\n\n", formatBudget(budget))

	b.WriteString("FAMILIES\n")
	for _, f := range families {
		writeFamily(&b, f)
	}

	b.WriteString("TRIP PREFERENCES\n")
	fmt.Fprintf(&b, "- Accommodation: %s\n", orNoPreference(prefs.AccommodationType))
	fmt.Fprintf(&b, "- Transportation: %s\n", orNoPreference(prefs.TransportationMode))
	fmt.Fprintf(&b, "- Activity types: %s\n", listOrNoPreference(prefs.ActivityTypes))
	fmt.Fprintf(&b, "- Dining: %s\n", listOrNoPreference(prefs.DiningPreferences))
	fmt.Fprintf(&b, "- Pacing: %s\n\n", orNoPreference(prefs.Pacing))

	if len(prefs.Additional) > 0 {
		b.WriteString("ADDITIONAL PREFERENCES\n")
		keys := make([]string, 0, len(prefs.Additional))
		for k := range prefs.Additional {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, orNoPreference(prefs.Additional[k]))
		}
		b.WriteString("\n")
	}

	b.WriteString("REQUIREMENTS\n")
	fmt.Fprintf(&b, "1. Plan all %d days, each with morning, afternoon and evening activities.\n", durationDays)
	b.WriteString("2. Every meal suggestion must satisfy the dietary restrictions of every family present.\n")
	b.WriteString("3. Every venue and transfer must accommodate the accessibility needs listed above.\n")
	b.WriteString("4. Match activities to the ages of the members, noting any that suit only some of them.\n")
	b.WriteString("5. Stay within the total budget and include an estimated cost breakdown per day.\n")
	b.WriteString("6. Finish with practical safety notes for the destination.\n")

	return b.String()
}

func writeFamily(b *strings.Builder, f models.FamilyConstraints) {
	fmt.Fprintf(b, "Family: %s\n", f.Name)
	ages := make([]string, 0, len(f.MemberAges))
	for _, a := range f.MemberAges {
		ages = append(ages, strconv.Itoa(a))
	}
	fmt.Fprintf(b, "- Members: %d (ages %s)\n", len(f.MemberAges), strings.Join(ages, ", "))
	fmt.Fprintf(b, "- Dietary restrictions: %s\n", listOrNone(f.DietaryRestrictions))
	fmt.Fprintf(b, "- Accessibility needs: %s\n\n", listOrNone(f.AccessibilityNeeds))
}

func formatBudget(b Budget) string {
	if b.Amount.IsZero() {
		return NoPreference
	}
	s := b.Amount.StringFixed(2)
	if b.Currency != "" {
		s += " " + strings.ToUpper(b.Currency)
	}
	return s
}

func orNoPreference(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoPreference
	}
	return s
}

func listOrNoPreference(values []string) string {
	if s := joinNonBlank(values); s != "" {
		return s
	}
	return NoPreference
}

func listOrNone(values []string) string {
	if s := joinNonBlank(values); s != "" {
		return s
	}
	return None
}

func joinNonBlank(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
