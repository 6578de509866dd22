package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcraft/tripgen/pkg/models"
	"github.com/tripcraft/tripgen/pkg/planner"
)

func parisTrip() models.TripConstraintSet {
	return models.TripConstraintSet{
		Destination:  "Paris",
		DurationDays: 7,
		Families: []models.Family{
			{Name: "Smith", Members: []models.Member{
				{Age: 41, DietaryRestrictions: []string{"vegetarian"}},
				{Age: 8},
			}},
			{Name: "Johnson", Members: []models.Member{
				{Age: 68, AccessibilityNeeds: []string{"wheelchair"}},
			}},
		},
		Preferences: models.TripPreferences{ActivityTypes: []string{"museums"}},
	}
}

func TestBuildParisContract(t *testing.T) {
	p, err := Build(parisTrip())
	require.NoError(t, err)

	for _, want := range []string{"Paris", "7-day itinerary", "Smith", "Johnson", "vegetarian", "wheelchair", "museums"} {
		assert.Contains(t, p.User, want)
	}
	assert.Contains(t, strings.ToLower(p.User), "budget")
	assert.Equal(t, SystemPrompt(), p.System)
}

func TestMissingPreferencesRenderNoPreference(t *testing.T) {
	set := parisTrip()
	set.Preferences = models.TripPreferences{}

	p, err := Build(set)
	require.NoError(t, err)

	assert.Contains(t, p.User, "- Accommodation: "+NoPreference)
	assert.Contains(t, p.User, "- Activity types: "+NoPreference)
	assert.Contains(t, p.User, "- Total budget: "+NoPreference)
}

func TestEmptyNeedsRenderNone(t *testing.T) {
	p, err := Build(parisTrip())
	require.NoError(t, err)

	// Johnson has no dietary restrictions and Smith has no accessibility needs.
	assert.Contains(t, p.User, "Family: Smith\n- Members: 2 (ages 41, 8)\n- Dietary restrictions: vegetarian\n- Accessibility needs: none\n")
	assert.Contains(t, p.User, "Family: Johnson\n- Members: 1 (ages 68)\n- Dietary restrictions: none\n- Accessibility needs: wheelchair\n")
}

func TestBudgetRendering(t *testing.T) {
	set := parisTrip()
	set.TotalBudget = decimal.RequireFromString("4500")
	set.Currency = "eur"

	p, err := Build(set)
	require.NoError(t, err)
	assert.Contains(t, p.User, "- Total budget: 4500.00 EUR")
}

func TestAdditionalPreferencesSorted(t *testing.T) {
	set := parisTrip()
	set.Additional = map[string]string{"weather": "avoid rain", "arrival": "", "celebration": "birthday on day 3"}

	p, err := Build(set)
	require.NoError(t, err)

	iArrival := strings.Index(p.User, "- arrival: "+NoPreference)
	iCeleb := strings.Index(p.User, "- celebration: birthday on day 3")
	iWeather := strings.Index(p.User, "- weather: avoid rain")
	require.True(t, iArrival >= 0 && iCeleb >= 0 && iWeather >= 0, p.User)
	assert.Less(t, iArrival, iCeleb)
	assert.Less(t, iCeleb, iWeather)
}

func TestSingleDayWording(t *testing.T) {
	set := parisTrip()
	set.DurationDays = 1

	p, err := Build(set)
	require.NoError(t, err)
	assert.Contains(t, p.User, "1-day itinerary")
	assert.Contains(t, p.User, "- Duration: 1 day\n")
}

func TestBuildRejectsEmptyFamily(t *testing.T) {
	set := parisTrip()
	set.Families = append(set.Families, models.Family{Name: "Ghost"})

	_, err := Build(set)
	assert.True(t, errors.Is(err, planner.ErrInvalidConstraint))
}

func TestEveryDistinctNeedAppears(t *testing.T) {
	set := parisTrip()
	set.Families[0].Members[1].DietaryRestrictions = []string{"peanut allergy", "gluten-free"}
	set.Families[1].Members[0].AccessibilityNeeds = append(set.Families[1].Members[0].AccessibilityNeeds, "step-free access")

	p, err := Build(set)
	require.NoError(t, err)

	fams, err := planner.Aggregate(set.Families)
	require.NoError(t, err)
	for _, need := range planner.DistinctNeeds(fams) {
		assert.Contains(t, p.User, need)
	}
}

func TestBuildRendersCallerStringsVerbatim(t *testing.T) {
	set := parisTrip()
	set.Destination = "Paris "
	set.Families[0].Name = "Smith-Ortega  "
	set.Families[0].Members[0].DietaryRestrictions = []string{" low sodium"}
	set.Preferences.Pacing = "relaxed "

	p, err := Build(set)
	require.NoError(t, err)
	for _, want := range []string{"Paris ", "Smith-Ortega  ", " low sodium", "relaxed "} {
		assert.Contains(t, p.User, want)
	}
}
