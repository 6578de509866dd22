package models

import "github.com/shopspring/decimal"

// BudgetPolicy holds the spend and throughput ceilings shared by all tenants.
// A negative value disables the corresponding check.
type BudgetPolicy struct {
	DailyCostLimit     decimal.Decimal `json:"daily_cost_limit" yaml:"daily_cost_limit" envconfig:"DAILY_COST_LIMIT"`
	HourlyRequestLimit int             `json:"hourly_request_limit" yaml:"hourly_request_limit" envconfig:"HOURLY_REQUEST_LIMIT"`
}

// Decision is the outcome of an admission check.
type Decision int

const (
	Allowed Decision = iota
	DeniedDailyBudget
	DeniedHourlyRate
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedDailyBudget:
		return "denied_daily_budget"
	case DeniedHourlyRate:
		return "denied_hourly_rate"
	default:
		return "unknown"
	}
}

// BudgetStatus shows current usage against the policy for one day.
type BudgetStatus struct {
	Day               string          `json:"day"`
	Policy            BudgetPolicy    `json:"policy"`
	CostUsed          decimal.Decimal `json:"cost_used"`
	CostRemaining     decimal.Decimal `json:"cost_remaining"`
	RequestsThisHour  int             `json:"requests_this_hour"`
	RequestsRemaining int             `json:"requests_remaining"`
	Decision          Decision        `json:"-"`
	DecisionLabel     string          `json:"decision"`
}
