package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
	"github.com/couchcryptid/cafepick-api/internal/service"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Readiness combines checkers; the first failure wins.
type Readiness []ReadinessChecker

func (rs Readiness) CheckReadiness(ctx context.Context) error {
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CafeService is the query side the API exposes.
type CafeService interface {
	ListCafes(ctx context.Context, req service.ListRequest) (service.ListResult, error)
	Recommend(ctx context.Context, q domain.Query, topN int) ([]domain.ScoredVenue, error)
	RecommendPlaces(ctx context.Context, q domain.Query, topN int) ([]domain.PlaceRecommendation, error)
	Cafe(ctx context.Context, id, cityHint string) (domain.Venue, error)
	Areas(ctx context.Context, city string) ([]domain.Area, error)
	Cities(ctx context.Context) ([]string, error)
	TransitPoints(ctx context.Context, city, district, query string) ([]domain.TransitPoint, error)
}

// Options configures the listener and CORS.
type Options struct {
	Addr        string
	CORSOrigins []string
}

// Server exposes the café API under /api plus health, readiness and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	svc        CafeService
	logger     *slog.Logger
}

// NewServer wires the routes and middleware.
func NewServer(opts Options, svc CafeService, ready ReadinessChecker, logger *slog.Logger, metrics *observability.Metrics) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 45 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	router.Use(requestID, instrument(logger, metrics), cors(opts.CORSOrigins))

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", handleReady(ready)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cafes", s.handleListCafes).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/cafes/recommend", s.handleRecommend).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/cafes/{id}", s.handleCafe).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/areas", s.handleAreas).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/transit", s.handleTransit).Methods(http.MethodGet, http.MethodOptions)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleListCafes(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q, err := parseQuery(values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lp, err := parseList(values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.ListCafes(r.Context(), service.ListRequest{Query: q, Limit: lp.limit, Offset: lp.offset})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q, err := parseQuery(values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rp, err := parseRecommend(values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if rp.source == sourcePlaces {
		recs, err := s.svc.RecommendPlaces(r.Context(), q, rp.topN)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"source": sourcePlaces, "recommendations": recs})
		return
	}

	recs, err := s.svc.Recommend(r.Context(), q, rp.topN)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": sourceStore, "recommendations": recs})
}

func (s *Server) handleCafe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	v, err := s.svc.Cafe(r.Context(), id, r.URL.Query().Get("city"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleAreas summarizes one city, or without ?city= also lists every city
// code the store can serve.
func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	areas, err := s.svc.Areas(r.Context(), city)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body := map[string]any{"areas": areas}
	if city == "" {
		cities, err := s.svc.Cities(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body["cities"] = cities
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTransit(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	points, err := s.svc.TransitPoints(r.Context(), values.Get("city"), values.Get("district"), values.Get("query"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transit_points": points})
}

// writeError maps err to a status code and writes {"error": ...}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var pe *paramError
	switch {
	case errors.As(err, &pe), errors.Is(err, domain.ErrUnknownCity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPlacesDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client gone
}
