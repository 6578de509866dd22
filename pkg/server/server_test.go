package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcraft/tripgen/pkg/generation"
	"github.com/tripcraft/tripgen/pkg/models"
	"github.com/tripcraft/tripgen/pkg/planner"
)

type stubGenerator struct {
	err     error
	gotSet  models.TripConstraintSet
	gotType string
	usage   map[string]models.DayUsage
}

func (g *stubGenerator) GenerateItinerary(_ context.Context, set models.TripConstraintSet, requestType string) (*models.GenerationResult, error) {
	g.gotSet = set
	g.gotType = requestType
	if g.err != nil {
		return nil, g.err
	}
	return &models.GenerationResult{
		RequestID:   "req-1",
		Content:     "Day 1: Park Güell",
		Model:       "planner-small",
		RequestType: requestType,
		Cost:        decimal.RequireFromString("0.42"),
		Day:         "2026-03-14",
		Attempts:    1,
	}, nil
}

func (g *stubGenerator) Usage(_ context.Context, day string) (models.DayUsage, bool, error) {
	u, ok := g.usage[day]
	return u, ok, nil
}

func (g *stubGenerator) Status(context.Context) (models.BudgetStatus, error) {
	return models.BudgetStatus{Day: "2026-03-14", DecisionLabel: "allowed", RequestsRemaining: 7}, nil
}

const body = `{"request_type":"itinerary","destination":"Barcelona","duration_days":3,
	"families":[{"name":"Garcia","members":[{"age":40},{"age":7,"dietary_restrictions":["vegetarian"]}]}],
	"preferences":{"pacing":"relaxed"},"total_budget":"3000","currency":"EUR"}`

func setupServer(g *stubGenerator) *Server {
	s := New(":0", g, http.NotFoundHandler(), "/metrics")
	s.now = func() time.Time { return time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC) }
	return s
}

func post(s *Server, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/itineraries", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGenerateItinerary(t *testing.T) {
	g := &stubGenerator{}
	rec := post(setupServer(g), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "itinerary", g.gotType)
	assert.Equal(t, "Barcelona", g.gotSet.Destination)
	assert.Len(t, g.gotSet.Families, 1)
	assert.True(t, g.gotSet.TotalBudget.Equal(decimal.NewFromInt(3000)), g.gotSet.TotalBudget.String())

	var res models.GenerationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Day 1: Park Güell", res.Content)
}

func TestGenerateErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		code       int
		retryAfter string
	}{
		{"invalid", &planner.InvalidConstraintError{Field: "families", Reason: "empty"}, http.StatusBadRequest, ""},
		{"budget", &generation.DeniedError{Decision: models.DeniedDailyBudget}, http.StatusTooManyRequests, "3600"},
		{"rate", &generation.DeniedError{Decision: models.DeniedHourlyRate}, http.StatusTooManyRequests, "3600"},
		{"unavailable", &generation.UnavailableError{Attempts: 2, Err: errors.New("timeout")}, http.StatusServiceUnavailable, ""},
		{"cancelled", context.Canceled, 499, ""},
		{"internal", errors.New("disk full"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(setupServer(&stubGenerator{err: tt.err}), body)
			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))

			var payload struct {
				Error struct {
					Type string `json:"type"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, generation.Kind(tt.err), payload.Error.Type)
		})
	}
}

func TestGenerateBadBody(t *testing.T) {
	rec := post(setupServer(&stubGenerator{}), "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateMethodNotAllowed(t *testing.T) {
	rec := get(setupServer(&stubGenerator{}), "/v1/itineraries")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUsage(t *testing.T) {
	g := &stubGenerator{usage: map[string]models.DayUsage{
		"2026-03-14": {
			Day:          "2026-03-14",
			Cost:         decimal.RequireFromString("1.25"),
			Requests:     2,
			Models:       map[string]int64{"planner-small": 2},
			RequestTypes: map[string]int64{"itinerary": 2},
		},
	}}
	s := setupServer(g)

	for _, path := range []string{"/v1/usage/2026-03-14", "/v1/usage/today"} {
		rec := get(s, path)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var u models.DayUsage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
		assert.EqualValues(t, 2, u.Requests, path)
		assert.True(t, u.Cost.Equal(decimal.RequireFromString("1.25")), path)
	}

	rec := get(s, "/v1/usage/2026-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	var u models.DayUsage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Zero(t, u.Requests, "unseen day reads as zero")
	assert.Equal(t, "2026-01-01", u.Day)

	assert.Equal(t, http.StatusBadRequest, get(s, "/v1/usage/yesterday").Code)
}

func TestBudget(t *testing.T) {
	rec := get(setupServer(&stubGenerator{}), "/v1/budget")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"decision":"allowed"`)
}

func TestHealthz(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(setupServer(&stubGenerator{}), "/healthz").Code)
}

func TestSecondsUntilMidnight(t *testing.T) {
	assert.Equal(t, 30, secondsUntilMidnight(time.Date(2026, 3, 14, 23, 59, 30, 0, time.UTC)))
}
