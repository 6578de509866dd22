package models

import "github.com/shopspring/decimal"

// ModelPricing defines the cost per 1K tokens for a model.
type ModelPricing struct {
	Model           string          `yaml:"model" json:"model"`
	PromptPer1K     decimal.Decimal `yaml:"prompt_per_1k" json:"prompt_per_1k"`
	CompletionPer1K decimal.Decimal `yaml:"completion_per_1k" json:"completion_per_1k"`
}
