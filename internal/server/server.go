package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/archive-enricher/internal/coordinator"
	"github.com/jonathan/archive-enricher/internal/cost"
	"github.com/jonathan/archive-enricher/internal/observability"
	"github.com/jonathan/archive-enricher/internal/server/ratelimit"
	"github.com/jonathan/archive-enricher/internal/types"
)

// ReviewService is the review workflow surface the API exposes.
type ReviewService interface {
	List(ctx context.Context, status types.ReviewTaskStatus, limit, offset int) ([]types.ReviewTask, error)
	Get(ctx context.Context, taskID uuid.UUID) (*types.ReviewTask, error)
	Assign(ctx context.Context, taskID uuid.UUID, assignee string) (*types.ReviewTask, error)
	Approve(ctx context.Context, taskID uuid.UUID, reviewer, notes string, corrections map[string]any) (*types.ReviewTask, error)
	Reject(ctx context.Context, taskID uuid.UUID, reviewer, notes string) (*types.ReviewTask, error)
}

// JobService creates jobs from submitted batches.
type JobService interface {
	CreateJob(ctx context.Context, batch *coordinator.Batch) (*types.EnrichmentJob, error)
}

// JobStore reads job state and cost records.
type JobStore interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.EnrichmentJob, error)
	ListCostRecords(ctx context.Context, jobID uuid.UUID) ([]types.CostRecord, error)
}

// Deps holds the services the server fronts. Construction happens in the
// command layer so the server stays testable with fakes.
type Deps struct {
	Review         ReviewService
	Coordinator    JobService
	Jobs           JobStore
	Ledger         *cost.Ledger
	Estimator      *cost.Estimator
	JWT            *JWTService
	RPCCounters    *observability.RPCCounters
	WorkerCounters *observability.WorkerCounters
	Logger         *log.Logger
}

// Config holds server configuration
type Config struct {
	Port int
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	deps        Deps
	rateLimiter *ratelimit.Limiter
	logger      *log.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	s := &Server{
		deps:        deps,
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		logger:      deps.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Review workflow
	mux.HandleFunc("GET /review/queue", s.handleReviewQueue)
	mux.HandleFunc("GET /review/{id}", s.handleGetReviewTask)
	mux.HandleFunc("POST /review/{id}/assign", s.requireAuth(s.handleAssignReviewTask))
	mux.HandleFunc("POST /review/{id}/approve", s.requireAuth(s.handleApproveReviewTask))
	mux.HandleFunc("POST /review/{id}/reject", s.requireAuth(s.handleRejectReviewTask))

	// Cost visibility
	mux.HandleFunc("GET /cost/budget/daily", s.handleDailyBudget)
	mux.HandleFunc("POST /cost/estimate/document", s.handleEstimateDocument)
	mux.HandleFunc("GET /cost/job/{id}", s.handleJobCost)

	// Jobs
	mux.HandleFunc("POST /jobs", s.requireAuth(s.handleCreateJob))
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the configured middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Printf("server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatalf("server error: %v", err)
		}
	}()

	<-stop
	s.logger.Printf("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Printf("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("[%s] %s %s in %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

// withRateLimit refuses clients that exceed their endpoint tier's budget.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			clientID = host
		}
		if !s.rateLimiter.Allow(clientID, r.Method, r.URL.Path) {
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the bearer token and hands the reviewer identity to
// the wrapped handler.
func (s *Server) requireAuth(next func(w http.ResponseWriter, r *http.Request, reviewer string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.errorResponse(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.deps.JWT.ValidateToken(token)
		if err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "invalid token: "+err.Error())
			return
		}
		next(w, r, claims.Reviewer)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics exposes the process-local RPC and worker counters.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	metrics := map[string]int64{}
	if s.deps.RPCCounters != nil {
		for k, v := range s.deps.RPCCounters.Snapshot() {
			metrics[k] = v
		}
	}
	if s.deps.WorkerCounters != nil {
		for k, v := range s.deps.WorkerCounters.Snapshot() {
			metrics[k] = v
		}
	}
	s.jsonResponse(w, http.StatusOK, metrics)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// pathID parses the {id} path segment as a uuid.
func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}
