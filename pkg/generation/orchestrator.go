// Package generation runs an itinerary request through admission control,
// prompt synthesis, provider dispatch and cost recording.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcraft/tripgen/pkg/budget"
	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/llm"
	"github.com/tripcraft/tripgen/pkg/logger"
	"github.com/tripcraft/tripgen/pkg/metrics"
	"github.com/tripcraft/tripgen/pkg/models"
	"github.com/tripcraft/tripgen/pkg/pricing"
	"github.com/tripcraft/tripgen/pkg/prompt"
	"github.com/tripcraft/tripgen/pkg/router"
	"github.com/tripcraft/tripgen/pkg/window"
)

// RouteSelector resolves a request type to a provider and model.
type RouteSelector interface {
	Select(requestType string) (router.Route, error)
}

// PriceLookup returns per-token rates for a model.
type PriceLookup interface {
	PricePerToken(model string) (pricing.Rates, error)
}

// ClientSource returns the client for a provider name.
type ClientSource interface {
	Client(name string) (llm.Client, error)
}

// Auditor stores one entry per finished request.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditEntry) error
}

// Deps are the collaborators of an Orchestrator. Auditor, Metrics, Clock
// and Logger are optional.
type Deps struct {
	Ledger  ledger.Ledger
	Budget  *budget.Engine
	Window  window.Counter
	Router  RouteSelector
	Prices  PriceLookup
	Clients ClientSource
	Auditor Auditor
	Metrics *metrics.Metrics
	Clock   func() time.Time
	Logger  *logger.Logger
}

// Defaults applied by New.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 1
	DefaultRequestType = "itinerary"
)

// Options tune provider dispatch. Zero values take the package defaults.
type Options struct {
	// Timeout bounds each provider attempt.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a transient failure.
	// Nil means DefaultMaxRetries; use Retries(0) to disable retrying.
	MaxRetries         *int
	MaxTokens          int64
	DefaultRequestType string
}

// Retries returns a pointer to n for Options.MaxRetries.
func Retries(n int) *int { return &n }

// Orchestrator produces itineraries. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	deps       Deps
	opts       Options
	maxRetries int
	log        *logger.Logger
	now        func() time.Time
}

// New creates an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	maxRetries := DefaultMaxRetries
	if opts.MaxRetries != nil {
		maxRetries = max(*opts.MaxRetries, 0)
	}
	if opts.DefaultRequestType == "" {
		opts.DefaultRequestType = DefaultRequestType
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Orchestrator{
		deps:       deps,
		opts:       opts,
		maxRetries: maxRetries,
		log:        log.With("component", "generation"),
		now:        now,
	}
}

// run carries one request through its states.
type run struct {
	id          string
	day         string
	requestType string
	destination string
	started     time.Time
	state       State
	route       router.Route
	prompt      string
	attempts    int
	usage       models.TokenUsage
	cost        decimal.Decimal
	latency     time.Duration
	log         *logger.Logger
}

// GenerateItinerary admits, builds, dispatches and records one itinerary
// request. Denied and rejected requests leave the ledger untouched. A
// dispatched request records whatever the provider billed, even when it
// then fails without usable content.
func (o *Orchestrator) GenerateItinerary(ctx context.Context, set models.TripConstraintSet, requestType string) (*models.GenerationResult, error) {
	if requestType == "" {
		requestType = o.opts.DefaultRequestType
	}
	now := o.now()
	r := &run{
		id:          uuid.NewString(),
		day:         ledger.DayKey(now),
		requestType: requestType,
		destination: set.Destination,
		started:     now,
		state:       Received,
	}
	r.log = o.log.With("request_id", r.id, "request_type", requestType, "day", r.day)

	if err := ctx.Err(); err != nil {
		return nil, o.finish(ctx, r, Failed, err)
	}

	hourCount, err := o.deps.Window.Count(ctx, now)
	if err != nil {
		return nil, o.finish(ctx, r, Failed, fmt.Errorf("count hourly requests: %w", err))
	}
	decision, err := o.deps.Budget.Check(ctx, r.day, hourCount)
	if err != nil {
		return nil, o.finish(ctx, r, Failed, err)
	}
	r.state = BudgetChecked
	if decision != models.Allowed {
		return nil, o.finish(ctx, r, Denied, &DeniedError{Decision: decision, Day: r.day})
	}

	p, err := prompt.Build(set)
	if err != nil {
		return nil, o.finish(ctx, r, Rejected, err)
	}
	r.prompt = p.User
	r.state = PromptBuilt

	route, err := o.deps.Router.Select(requestType)
	if err != nil {
		return nil, o.finish(ctx, r, Failed, &UnavailableError{Err: err})
	}
	r.route = route
	rates, err := o.deps.Prices.PricePerToken(route.Model)
	if err != nil {
		return nil, o.finish(ctx, r, Failed, &UnavailableError{Err: err})
	}
	client, err := o.deps.Clients.Client(route.Provider.Name)
	if err != nil {
		return nil, o.finish(ctx, r, Failed, &UnavailableError{Err: err})
	}

	// Last point where the caller can withdraw without being charged.
	if err := ctx.Err(); err != nil {
		return nil, o.finish(ctx, r, Failed, err)
	}

	// Once dispatched the call runs to completion and is recorded even if
	// the caller goes away; only the per-attempt timeout bounds it.
	dctx := context.WithoutCancel(ctx)
	r.state = Dispatched
	if err := o.deps.Window.Add(dctx, now); err != nil {
		r.log.Warnw("hourly window update failed", "error", err)
	}

	completion, err := o.dispatch(dctx, r, client, llm.Request{
		System:    p.System,
		User:      p.User,
		Model:     route.Model,
		MaxTokens: o.opts.MaxTokens,
	})
	r.cost = rates.Cost(r.usage)
	if err != nil {
		// Tokens billed by failed attempts are still spend.
		if r.usage.Total() > 0 {
			if rerr := o.deps.Ledger.Record(dctx, r.day, route.Model, requestType, r.cost); rerr != nil {
				r.log.Errorw("billed usage not recorded after provider failure",
					"model", route.Model, "cost", r.cost.String(), "error", rerr)
			}
		}
		return nil, o.finish(dctx, r, Failed, &UnavailableError{Attempts: r.attempts, Err: err})
	}

	if err := o.deps.Ledger.Record(dctx, r.day, route.Model, requestType, r.cost); err != nil {
		r.log.Errorw("usage not recorded after provider success",
			"model", route.Model, "cost", r.cost.String(), "error", err)
		return nil, o.finish(dctx, r, Failed, fmt.Errorf("record usage: %w", err))
	}
	r.state = Recorded

	result := &models.GenerationResult{
		RequestID:   r.id,
		Content:     completion.Content,
		Model:       route.Model,
		Provider:    route.Provider.Name,
		RequestType: requestType,
		Usage:       r.usage,
		Cost:        r.cost,
		Day:         r.day,
		Attempts:    r.attempts,
		Latency:     r.latency,
	}
	o.finish(dctx, r, Completed, nil)
	return result, nil
}

// dispatch calls the provider, retrying transient failures up to maxRetries
// times with the same prompt and model. Usage reported by every attempt,
// failed ones included, is summed into r.usage.
func (o *Orchestrator) dispatch(ctx context.Context, r *run, client llm.Client, req llm.Request) (llm.Completion, error) {
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			o.deps.Metrics.Retried(r.route.Provider.Name, r.route.Model)
			r.log.Warnw("retrying provider call",
				"provider", r.route.Provider.Name, "model", r.route.Model,
				"attempt", attempt+1, "error", lastErr)
		}
		r.attempts++
		start := time.Now()
		completion, err := client.Complete(ctx, req, o.opts.Timeout)
		r.latency = time.Since(start)
		r.usage.PromptTokens += completion.Usage.PromptTokens
		r.usage.CompletionTokens += completion.Usage.CompletionTokens
		if err == nil {
			return completion, nil
		}
		lastErr = err
		if !llm.IsTransient(err) {
			break
		}
	}
	return llm.Completion{}, lastErr
}

// finish moves r to a terminal state, then logs, counts and audits it.
// It returns err unchanged.
func (o *Orchestrator) finish(ctx context.Context, r *run, state State, err error) error {
	r.state = state
	kind := Kind(err)

	switch state {
	case Completed:
		o.deps.Metrics.Completed(r.route.Model, r.usage, r.cost, r.latency)
		r.log.Infow("itinerary generated",
			"model", r.route.Model, "provider", r.route.Provider.Name,
			"prompt_tokens", r.usage.PromptTokens, "completion_tokens", r.usage.CompletionTokens,
			"cost", r.cost.String(), "attempts", r.attempts, "latency", r.latency)
	case Denied:
		o.deps.Metrics.Denied(kind)
		r.log.Warnw("generation denied", "kind", kind, "day", r.day)
	case Rejected:
		r.log.Infow("generation rejected", "kind", kind, "error", err)
	default:
		if kind == KindCancelled {
			r.log.Infow("generation cancelled before dispatch", "error", err)
		} else {
			r.log.Errorw("generation failed", "kind", kind, "attempts", r.attempts, "error", err)
		}
	}

	outcome := state.String()
	if kind == KindCancelled {
		outcome = KindCancelled
	}
	o.deps.Metrics.Outcome(r.requestType, outcome)
	o.audit(ctx, r, kind)
	return err
}

func (o *Orchestrator) audit(ctx context.Context, r *run, kind string) {
	if o.deps.Auditor == nil {
		return
	}
	entry := models.AuditEntry{
		RequestID:        r.id,
		Day:              r.day,
		RequestType:      r.requestType,
		Destination:      r.destination,
		Model:            r.route.Model,
		Provider:         r.route.Provider.Name,
		State:            r.state.String(),
		ErrorKind:        kind,
		Prompt:           r.prompt,
		PromptTokens:     r.usage.PromptTokens,
		CompletionTokens: r.usage.CompletionTokens,
		Cost:             r.cost,
		Attempts:         r.attempts,
		LatencyMs:        r.latency.Milliseconds(),
		CreatedAt:        r.started,
	}
	if err := o.deps.Auditor.Log(context.WithoutCancel(ctx), entry); err != nil {
		r.log.Warnw("audit write failed", "error", err)
	}
}

// DailyCost returns the recorded spend for day.
func (o *Orchestrator) DailyCost(ctx context.Context, day string) (decimal.Decimal, error) {
	return o.deps.Ledger.DailyCost(ctx, day)
}

// DailyRequestCount returns the number of recorded generations for day.
func (o *Orchestrator) DailyRequestCount(ctx context.Context, day string) (int64, error) {
	return o.deps.Ledger.DailyRequestCount(ctx, day)
}

// Usage returns the ledger snapshot for day and whether the day has records.
func (o *Orchestrator) Usage(ctx context.Context, day string) (models.DayUsage, bool, error) {
	return o.deps.Ledger.Day(ctx, day)
}

// Status reports today's usage against the current policy.
func (o *Orchestrator) Status(ctx context.Context) (models.BudgetStatus, error) {
	now := o.now()
	hourCount, err := o.deps.Window.Count(ctx, now)
	if err != nil {
		return models.BudgetStatus{}, fmt.Errorf("count hourly requests: %w", err)
	}
	return o.deps.Budget.Status(ctx, ledger.DayKey(now), hourCount)
}
