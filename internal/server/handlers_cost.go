package server

import (
	"encoding/json"
	"net/http"
)

// DailyBudgetResponse reports today's spend against the configured budget.
type DailyBudgetResponse struct {
	SpentUSD     float64 `json:"spent_usd"`
	RemainingUSD float64 `json:"remaining_usd"`
	Exhausted    bool    `json:"exhausted"`
}

// EstimateRequest asks for a per-document cost projection.
type EstimateRequest struct {
	DocLengthChars      int  `json:"doc_length_chars"`
	EnableOptionalPhase bool `json:"enable_optional_phase"`
}

// handleDailyBudget reports the ledger's running daily totals.
func (s *Server) handleDailyBudget(w http.ResponseWriter, r *http.Request) {
	spent, err := s.deps.Ledger.DailySpent(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	remaining, err := s.deps.Ledger.DailyRemaining(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, DailyBudgetResponse{
		SpentUSD:     spent,
		RemainingUSD: remaining,
		Exhausted:    remaining <= 0,
	})
}

// handleEstimateDocument projects one document's cost through the pipeline.
func (s *Server) handleEstimateDocument(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.DocLengthChars <= 0 {
		s.errorResponse(w, http.StatusBadRequest, "doc_length_chars must be positive")
		return
	}

	breakdown, err := s.deps.Estimator.EstimateDocument(req.DocLengthChars, req.EnableOptionalPhase)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, breakdown)
}

// handleJobCost lists a job's recorded spend.
func (s *Server) handleJobCost(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.deps.Jobs.GetJob(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.errorResponse(w, http.StatusNotFound, "job not found")
		return
	}

	records, err := s.deps.Jobs.ListCostRecords(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"job_id":             job.ID,
		"aggregate_cost_usd": job.AggregateCostUSD,
		"records":            records,
	})
}
