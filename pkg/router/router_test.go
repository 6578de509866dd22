package router

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcraft/tripgen/pkg/config"
	"github.com/tripcraft/tripgen/pkg/models"
	"github.com/tripcraft/tripgen/pkg/pricing"
)

func prices(t *testing.T) *pricing.Table {
	t.Helper()
	tbl, err := pricing.New([]models.ModelPricing{
		{Model: "gpt-4o", PromptPer1K: decimal.RequireFromString("0.0025"), CompletionPer1K: decimal.RequireFromString("0.01")},
		{Model: "gpt-4o-mini", PromptPer1K: decimal.RequireFromString("0.00015"), CompletionPer1K: decimal.RequireFromString("0.0006")},
		{Model: "claude-3-5-haiku", PromptPer1K: decimal.RequireFromString("0.0008"), CompletionPer1K: decimal.RequireFromString("0.004")},
		{Model: "gemini-2.0-flash", PromptPer1K: decimal.RequireFromString("0.0001"), CompletionPer1K: decimal.RequireFromString("0.0004")},
	})
	require.NoError(t, err)
	return tbl
}

func baseConfig() *config.Config {
	return &config.Config{
		Providers: []config.ProviderConfig{
			{Name: "openai", Type: "openai", APIKey: "sk-1"},
			{Name: "anthropic", Type: "anthropic", APIKey: "sk-2"},
			{Name: "google", Type: "gemini", APIKey: "g-3"},
		},
		Routes: []config.RouteConfig{
			{
				RequestType: "itinerary",
				Targets: []config.RouteTarget{
					{Provider: "openai", Model: "gpt-4o"},
					{Provider: "anthropic", Model: "claude-3-5-haiku"},
					{Provider: "openai", Model: "gpt-4o-mini"},
				},
			},
			{
				RequestType: "default",
				Targets: []config.RouteTarget{
					{Provider: "google", Model: "gemini-2.0-flash"},
				},
			},
		},
	}
}

func TestSelectCheapest(t *testing.T) {
	r := New(baseConfig(), prices(t))
	route, err := r.Select("itinerary")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", route.Model)
	assert.Equal(t, "openai", route.Provider.Name)
}

func TestSelectFallsBackToDefault(t *testing.T) {
	r := New(baseConfig(), prices(t))
	route, err := r.Select("general")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", route.Model)
	assert.Equal(t, "google", route.Provider.Name)
}

func TestSelectSkipsUnpricedAndUnknown(t *testing.T) {
	cfg := baseConfig()
	cfg.Routes[0].Targets = []config.RouteTarget{
		{Provider: "openai", Model: "gpt-unpriced"},
		{Provider: "ghost", Model: "gpt-4o-mini"},
		{Provider: "anthropic", Model: "claude-3-5-haiku"},
	}
	r := New(cfg, prices(t))
	routes, err := r.Candidates("itinerary")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "claude-3-5-haiku", routes[0].Model)
}

func TestSelectTieKeepsConfigOrder(t *testing.T) {
	tbl, err := pricing.New([]models.ModelPricing{
		{Model: "a", PromptPer1K: decimal.NewFromInt(1), CompletionPer1K: decimal.NewFromInt(1)},
		{Model: "b", PromptPer1K: decimal.NewFromInt(1), CompletionPer1K: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	cfg := &config.Config{
		Providers: []config.ProviderConfig{{Name: "p"}},
		Routes: []config.RouteConfig{{RequestType: "itinerary", Targets: []config.RouteTarget{
			{Provider: "p", Model: "b"}, {Provider: "p", Model: "a"},
		}}},
	}
	route, err := New(cfg, tbl).Select("itinerary")
	require.NoError(t, err)
	assert.Equal(t, "b", route.Model, "first listed model wins a tie")
}

func TestSelectNoRoute(t *testing.T) {
	cfg := baseConfig()
	cfg.Routes = cfg.Routes[:1]
	_, err := New(cfg, prices(t)).Select("general")
	assert.ErrorIs(t, err, ErrNoRoute)

	_, err = New(&config.Config{}, prices(t)).Select("itinerary")
	assert.ErrorIs(t, err, ErrNoRoute, "no providers configured")
}
