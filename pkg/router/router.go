package router

import (
	"errors"
	"fmt"

	"github.com/tripcraft/tripgen/pkg/config"
	"github.com/tripcraft/tripgen/pkg/pricing"
)

// DefaultRequestType is the route used when a request type has none of its own.
const DefaultRequestType = "default"

// ErrNoRoute is returned when no priced model is configured for a request type.
var ErrNoRoute = errors.New("no route")

// Route is a resolved provider and model.
type Route struct {
	Provider config.ProviderConfig
	Model    string
}

// Router picks the cheapest configured model for a request type.
type Router struct {
	cfg    *config.Config
	prices *pricing.Table
}

// New creates a Router from the given configuration and price table.
func New(cfg *config.Config, prices *pricing.Table) *Router {
	return &Router{cfg: cfg, prices: prices}
}

// Select returns the lowest-cost route for requestType. Candidates come from
// the request type's route, or the "default" route if it has none. Targets
// with an unknown provider or no price are skipped. Ties keep config order.
func (r *Router) Select(requestType string) (Route, error) {
	routes, err := r.Candidates(requestType)
	if err != nil {
		return Route{}, err
	}

	best := routes[0]
	bestCost, _ := r.prices.Blended(best.Model)
	for _, rt := range routes[1:] {
		c, _ := r.prices.Blended(rt.Model)
		if c.LessThan(bestCost) {
			best, bestCost = rt, c
		}
	}
	return best, nil
}

// Candidates returns every usable route for requestType in config order.
func (r *Router) Candidates(requestType string) ([]Route, error) {
	if len(r.cfg.Providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrNoRoute)
	}

	providerIndex := make(map[string]config.ProviderConfig, len(r.cfg.Providers))
	for _, p := range r.cfg.Providers {
		providerIndex[p.Name] = p
	}

	targets, ok := r.targets(requestType)
	if !ok {
		targets, ok = r.targets(DefaultRequestType)
	}
	if !ok {
		return nil, fmt.Errorf("%w: request type %q has no route and no default route", ErrNoRoute, requestType)
	}

	var routes []Route
	for _, t := range targets {
		provider, ok := providerIndex[t.Provider]
		if !ok || !r.prices.Has(t.Model) {
			continue
		}
		routes = append(routes, Route{Provider: provider, Model: t.Model})
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: request type %q has no priced targets", ErrNoRoute, requestType)
	}
	return routes, nil
}

func (r *Router) targets(requestType string) ([]config.RouteTarget, bool) {
	for _, route := range r.cfg.Routes {
		if route.RequestType == requestType {
			return route.Targets, true
		}
	}
	return nil, false
}
