package models

import "github.com/shopspring/decimal"

// DayUsage is the accumulated AI spend for one UTC calendar day.
// Requests always equals the sum of Models and the sum of RequestTypes.
type DayUsage struct {
	Day          string           `json:"day"`
	Cost         decimal.Decimal  `json:"cost"`
	Requests     int64            `json:"requests"`
	Models       map[string]int64 `json:"models"`
	RequestTypes map[string]int64 `json:"request_types"`
}

// NewDayUsage returns an empty entry for day.
func NewDayUsage(day string) DayUsage {
	return DayUsage{
		Day:          day,
		Cost:         decimal.Zero,
		Models:       make(map[string]int64),
		RequestTypes: make(map[string]int64),
	}
}

// Clone returns a deep copy so callers can't mutate ledger state.
func (u DayUsage) Clone() DayUsage {
	out := u
	out.Models = make(map[string]int64, len(u.Models))
	for k, v := range u.Models {
		out.Models[k] = v
	}
	out.RequestTypes = make(map[string]int64, len(u.RequestTypes))
	for k, v := range u.RequestTypes {
		out.RequestTypes[k] = v
	}
	return out
}

// Consistent reports whether the request counters agree with each other.
func (u DayUsage) Consistent() bool {
	var byModel, byType int64
	for _, v := range u.Models {
		byModel += v
	}
	for _, v := range u.RequestTypes {
		byType += v
	}
	return byModel == u.Requests && byType == u.Requests
}

// TokenUsage holds the token counts a provider reported for one completion.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// Total returns prompt plus completion tokens.
func (t TokenUsage) Total() int64 {
	return t.PromptTokens + t.CompletionTokens
}
