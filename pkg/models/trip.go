package models

import "github.com/shopspring/decimal"

// Member is one traveller in a family group.
type Member struct {
	Name                string   `json:"name,omitempty"`
	Age                 int      `json:"age"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	AccessibilityNeeds  []string `json:"accessibility_needs,omitempty"`
}

// Family is a named group of members travelling together.
type Family struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// TripPreferences are the optional trip-level preferences. Empty fields are
// rendered as "no preference specified".
type TripPreferences struct {
	AccommodationType  string   `json:"accommodation_type,omitempty"`
	TransportationMode string   `json:"transportation_mode,omitempty"`
	ActivityTypes      []string `json:"activity_types,omitempty"`
	DiningPreferences  []string `json:"dining_preferences,omitempty"`
	Pacing             string   `json:"pacing,omitempty"`
}

// TripConstraintSet is everything a single itinerary generation needs.
// Additional holds free-form preferences that are only ever rendered as text.
type TripConstraintSet struct {
	Destination  string            `json:"destination"`
	DurationDays int               `json:"duration_days"`
	Families     []Family          `json:"families"`
	Preferences  TripPreferences   `json:"preferences"`
	Additional   map[string]string `json:"additional_preferences,omitempty"`
	TotalBudget  decimal.Decimal   `json:"total_budget"`
	Currency     string            `json:"currency,omitempty"`
}

// FamilyConstraints is the aggregated view of one family: per-family sets of
// dietary restrictions and accessibility needs, with ages kept per member.
type FamilyConstraints struct {
	Name                string   `json:"name"`
	MemberAges          []int    `json:"member_ages"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	AccessibilityNeeds  []string `json:"accessibility_needs"`
}
