// Package server exposes itinerary generation and usage reporting over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tripcraft/tripgen/pkg/generation"
	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/logger"
	"github.com/tripcraft/tripgen/pkg/models"
)

const maxBodyBytes = 1 << 20

// Generator is the subset of the orchestrator the server needs.
type Generator interface {
	GenerateItinerary(ctx context.Context, set models.TripConstraintSet, requestType string) (*models.GenerationResult, error)
	Usage(ctx context.Context, day string) (models.DayUsage, bool, error)
	Status(ctx context.Context) (models.BudgetStatus, error)
}

// Server is the tripgen HTTP API.
type Server struct {
	listen string
	gen    Generator
	mux    *http.ServeMux
	log    *logger.Logger
	now    func() time.Time
}

// New creates a Server. When metrics is non-nil it is mounted at
// metricsPath.
func New(listen string, gen Generator, metrics http.Handler, metricsPath string) *Server {
	s := &Server{
		listen: listen,
		gen:    gen,
		mux:    http.NewServeMux(),
		log:    logger.Get().With("component", "server"),
		now:    time.Now,
	}
	s.mux.HandleFunc("POST /v1/itineraries", s.handleGenerate)
	s.mux.HandleFunc("GET /v1/usage/{day}", s.handleUsage)
	s.mux.HandleFunc("GET /v1/budget", s.handleBudget)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metrics != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		s.mux.Handle("GET "+metricsPath, metrics)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("tripgen listening", "addr", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// ItineraryRequest is the body of POST /v1/itineraries.
type ItineraryRequest struct {
	RequestType string `json:"request_type,omitempty"`
	models.TripConstraintSet
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req ItineraryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, generation.KindInvalidConstraint, "invalid request body")
		return
	}

	res, err := s.gen.GenerateItinerary(r.Context(), req.TripConstraintSet, req.RequestType)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	kind := generation.Kind(err)
	switch kind {
	case generation.KindInvalidConstraint:
		writeJSONError(w, http.StatusBadRequest, kind, err.Error())
	case generation.KindBudgetExceeded:
		w.Header().Set("Retry-After", strconv.Itoa(secondsUntilMidnight(s.now())))
		writeJSONError(w, http.StatusTooManyRequests, kind, "daily cost limit reached")
	case generation.KindRateLimited:
		w.Header().Set("Retry-After", "3600")
		writeJSONError(w, http.StatusTooManyRequests, kind, "hourly request limit reached")
	case generation.KindGenerationUnavailable:
		writeJSONError(w, http.StatusServiceUnavailable, kind, "itinerary generation unavailable, try again later")
	case generation.KindCancelled:
		// 499: client closed request.
		writeJSONError(w, 499, kind, "request cancelled")
	default:
		s.log.Errorw("generation error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, kind, "internal error")
	}
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	day := r.PathValue("day")
	if day == "today" {
		day = ledger.DayKey(s.now())
	}
	if _, err := ledger.ParseDay(day); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_day", err.Error())
		return
	}

	usage, ok, err := s.gen.Usage(r.Context(), day)
	if err != nil {
		s.log.Errorw("usage lookup failed", "day", day, "error", err)
		writeJSONError(w, http.StatusInternalServerError, generation.KindInternal, "usage lookup failed")
		return
	}
	if !ok {
		usage = models.NewDayUsage(day)
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	st, err := s.gen.Status(r.Context())
	if err != nil {
		s.log.Errorw("budget status failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, generation.KindInternal, "budget status failed")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func secondsUntilMidnight(now time.Time) int {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	secs := int(midnight.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":%q,"code":%d}}`, message, kind, code)
}
