// Package api - Thin JSON API over the dose-rate calculator
// The API is ONLY responsible for: request decoding, calculator orchestration,
// response serialization. It never performs physics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"dose-calculator/adapters/storage"
	"dose-calculator/core/engine"
	"dose-calculator/core/source"
	"dose-calculator/internal/errors"
	"dose-calculator/internal/logging"
)

// NeutronNotice is reported instead of a dose rate for neutron-only isotopes
const NeutronNotice = "only flux for neutrons"

// Server is the API server
type Server struct {
	calc    *engine.Calculator
	store   storage.ReportStore
	metrics *Metrics
	mux     *http.ServeMux
	srv     *http.Server
	version string
	log     *zap.Logger

	// now is replaceable so tests can pin "today"
	now func() time.Time
}

// NewServer creates a new API server without report history
func NewServer(version string, calc *engine.Calculator) *Server {
	return NewServerWithStore(version, calc, nil, nil)
}

// NewServerWithStore creates a new API server. A non-nil store keeps every
// estimate and enables the /reports routes. Nil metrics get a private
// registry.
func NewServerWithStore(version string, calc *engine.Calculator, store storage.ReportStore, metrics *Metrics) *Server {
	if metrics == nil {
		// a fresh registry never reports a conflict
		metrics, _ = NewMetrics(prometheus.NewRegistry())
	}

	s := &Server{
		calc:    calc,
		store:   store,
		metrics: metrics,
		mux:     http.NewServeMux(),
		version: version,
		log:     logging.Named("api"),
		now:     time.Now,
	}
	s.srv = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.handle("POST /estimate", s.handleEstimate)
	s.handle("POST /decay", s.handleDecay)

	// Catalogue
	s.handle("GET /sources", s.handleSources)
	s.handle("GET /isotopes", s.handleIsotopes)

	// Supporting endpoints
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /version", s.handleVersion)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	if s.store != nil {
		s.handle("GET /reports", s.handleListReports)
		s.handle("GET /reports/{id}", s.handleGetReport)
	}
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.metrics.Instrument(pattern, traced(pattern, h)))
}

// handleEstimate handles POST /estimate
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	requestID := uuid.NewString()

	var body EstimateRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := body.toRequest(s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.calc.Estimate(ctx, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveEstimate(report.Source.Isotope, report.DoseApplicable)

	resp := &EstimateResponse{Report: report}
	if !report.DoseApplicable {
		resp.Notice = NeutronNotice
	}

	if s.store != nil {
		stored := &storage.StoredReport{
			Label:    body.Label,
			Request:  req,
			Report:   report,
			Metadata: map[string]string{"request_id": requestID, "origin": "api"},
		}
		if err := s.store.Save(ctx, stored); err != nil {
			s.writeError(w, err)
			return
		}
		resp.ReportID = stored.ID
	}

	resp.Metadata = s.metadata(requestID, start)
	s.writeJSON(w, resp, http.StatusOK)
}

// handleDecay handles POST /decay
func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body EstimateRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := body.toRequest(s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}

	d, err := s.calc.Decay(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, &DecayResponse{
		Decay:    d,
		Metadata: s.metadata(uuid.NewString(), start),
	}, http.StatusOK)
}

// handleSources handles GET /sources
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.calc.Catalogue().Sources(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, &SourcesResponse{Sources: sources, Count: len(sources)}, http.StatusOK)
}

// handleIsotopes handles GET /isotopes
func (s *Server) handleIsotopes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cat := s.calc.Catalogue()

	names, err := cat.Isotopes(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	isotopes := make([]IsotopeInfo, 0, len(names))
	for _, name := range names {
		halfLife, err := cat.HalfLife(ctx, name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		lines, err := cat.Lines(ctx, name)
		if err != nil && !errors.IsType(err, errors.TypeNotFound) {
			s.writeError(w, err)
			return
		}
		isotopes = append(isotopes, IsotopeInfo{
			Name:         name,
			HalfLifeDays: halfLife,
			Lines:        len(lines),
			NeutronOnly:  source.IsNeutronOnly(name),
		})
	}

	s.writeJSON(w, &IsotopesResponse{Isotopes: isotopes, Count: len(isotopes)}, http.StatusOK)
}

// handleListReports handles GET /reports?isotope=&label=&limit=
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &storage.ListFilter{
		Isotope: q.Get("isotope"),
		Label:   q.Get("label"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, errors.Validation("limit", "limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	reports, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	}, http.StatusOK)
}

// handleGetReport handles GET /reports/{id}
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, report, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "dose-calculator",
		"api_version": "v1",
	}, http.StatusOK)
}

func (s *Server) metadata(requestID string, start time.Time) *ResponseMetadata {
	return &ResponseMetadata{
		RequestID:     requestID,
		EngineVersion: s.version,
		DurationMs:    time.Since(start).Milliseconds(),
	}
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Parsing("invalid JSON body", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

// writeError maps a domain error onto an HTTP status
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	} else {
		s.log.Debug("request rejected", zap.String("code", body.Code), zap.Error(err))
	}
	s.writeJSON(w, &ErrorResponse{Error: body}, status)
}

func errorStatus(err error) (int, ErrorBody) {
	e, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError, ErrorBody{Code: string(errors.TypeInternal), Message: err.Error()}
	}

	body := ErrorBody{Code: string(e.Type), Message: e.Error(), Field: e.Field()}
	switch e.Type {
	case errors.TypeValidation, errors.TypeConfig, errors.TypeParsing:
		return http.StatusBadRequest, body
	case errors.TypeNotFound:
		return http.StatusNotFound, body
	default:
		return http.StatusInternalServerError, body
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server and blocks until it stops
func (s *Server) ListenAndServe(addr string) error {
	s.srv.Addr = addr
	s.log.Info("listening", zap.String("addr", addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown gracefully stops a running server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
