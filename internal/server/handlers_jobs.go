package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/archive-enricher/internal/coordinator"
)

// handleCreateJob registers a batch and enqueues its documents.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request, reviewer string) {
	var batch coordinator.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	job, err := s.deps.Coordinator.CreateJob(r.Context(), &batch)
	if err != nil {
		status := HTTPStatus(err)
		if batch.Validate() != nil {
			status = http.StatusBadRequest
		}
		s.errorResponse(w, status, err.Error())
		return
	}

	s.logger.Printf("job %s submitted by %s", job.ID, reviewer)
	s.jsonResponse(w, http.StatusCreated, job)
}

// handleGetJob returns one job's progress summary.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
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
	s.jsonResponse(w, http.StatusOK, job)
}
