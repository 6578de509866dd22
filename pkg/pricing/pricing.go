// Package pricing converts provider token counts into monetary cost.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tripcraft/tripgen/pkg/models"
)

// ErrUnknownModel is returned when a model has no configured price.
var ErrUnknownModel = errors.New("no pricing for model")

var thousand = decimal.NewFromInt(1000)

// Rates are per-token prices.
type Rates struct {
	Prompt     decimal.Decimal
	Completion decimal.Decimal
}

// Cost returns prompt_tokens*prompt_rate + completion_tokens*completion_rate.
func (r Rates) Cost(u models.TokenUsage) decimal.Decimal {
	return decimal.NewFromInt(u.PromptTokens).Mul(r.Prompt).
		Add(decimal.NewFromInt(u.CompletionTokens).Mul(r.Completion))
}

// Table is a static lookup of model prices.
type Table struct {
	rates map[string]Rates
	per1K map[string]models.ModelPricing
}

// New builds a Table from per-1K-token prices.
func New(prices []models.ModelPricing) (*Table, error) {
	t := &Table{
		rates: make(map[string]Rates, len(prices)),
		per1K: make(map[string]models.ModelPricing, len(prices)),
	}
	for _, p := range prices {
		if p.Model == "" {
			return nil, fmt.Errorf("pricing entry without model")
		}
		if p.PromptPer1K.IsNegative() || p.CompletionPer1K.IsNegative() {
			return nil, fmt.Errorf("pricing for %s: negative rate", p.Model)
		}
		if _, dup := t.rates[p.Model]; dup {
			return nil, fmt.Errorf("pricing for %s: duplicate entry", p.Model)
		}
		t.rates[p.Model] = Rates{
			Prompt:     p.PromptPer1K.Div(thousand),
			Completion: p.CompletionPer1K.Div(thousand),
		}
		t.per1K[p.Model] = p
	}
	return t, nil
}

// PricePerToken returns the per-token rates for model.
func (t *Table) PricePerToken(model string) (Rates, error) {
	r, ok := t.rates[model]
	if !ok {
		return Rates{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return r, nil
}

// Blended returns the sum of prompt and completion prices per 1K tokens,
// used to rank models by cost.
func (t *Table) Blended(model string) (decimal.Decimal, bool) {
	p, ok := t.per1K[model]
	if !ok {
		return decimal.Zero, false
	}
	return p.PromptPer1K.Add(p.CompletionPer1K), true
}

// Has reports whether model is priced.
func (t *Table) Has(model string) bool {
	_, ok := t.rates[model]
	return ok
}
