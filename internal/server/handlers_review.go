package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jonathan/archive-enricher/internal/types"
)

// ReviewQueueResponse is the paginated review queue listing.
type ReviewQueueResponse struct {
	Tasks  []types.ReviewTask `json:"tasks"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// ReviewActionRequest is the body for approve and reject actions.
type ReviewActionRequest struct {
	Notes       string         `json:"notes,omitempty"`
	Corrections map[string]any `json:"corrections,omitempty"`
}

// handleReviewQueue lists review tasks, pending first by default.
func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	status := types.ReviewTaskStatus(r.URL.Query().Get("status"))
	if r.URL.Query().Get("status") == "" {
		status = types.ReviewTaskPending
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	tasks, err := s.deps.Review.List(r.Context(), status, limit, offset)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if tasks == nil {
		tasks = []types.ReviewTask{}
	}
	s.jsonResponse(w, http.StatusOK, ReviewQueueResponse{Tasks: tasks, Limit: limit, Offset: offset})
}

// handleGetReviewTask returns one review task.
func (s *Server) handleGetReviewTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.deps.Review.Get(r.Context(), taskID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

// handleAssignReviewTask claims a task for the authenticated reviewer.
func (s *Server) handleAssignReviewTask(w http.ResponseWriter, r *http.Request, reviewer string) {
	taskID, err := pathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.deps.Review.Assign(r.Context(), taskID, reviewer)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

// handleApproveReviewTask resolves a task, applying any corrections.
func (s *Server) handleApproveReviewTask(w http.ResponseWriter, r *http.Request, reviewer string) {
	taskID, err := pathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req ReviewActionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	task, err := s.deps.Review.Approve(r.Context(), taskID, reviewer, req.Notes, req.Corrections)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

// handleRejectReviewTask resolves a task by re-enqueueing its document.
func (s *Server) handleRejectReviewTask(w http.ResponseWriter, r *http.Request, reviewer string) {
	taskID, err := pathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req ReviewActionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	task, err := s.deps.Review.Reject(r.Context(), taskID, reviewer, req.Notes)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}
