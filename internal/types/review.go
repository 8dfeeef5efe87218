package types

import (
	"time"

	"github.com/google/uuid"
)

// ReviewTaskStatus represents the lifecycle of a human-review task.
type ReviewTaskStatus string

const (
	ReviewTaskPending    ReviewTaskStatus = "pending"
	ReviewTaskInProgress ReviewTaskStatus = "in_progress"
	ReviewTaskApproved   ReviewTaskStatus = "approved"
	ReviewTaskRejected   ReviewTaskStatus = "rejected"
)

// ReviewReason explains why a document was routed to human review.
type ReviewReason string

const (
	ReasonBelowThreshold  ReviewReason = "below_threshold"
	ReasonBudgetExhausted ReviewReason = "budget_exhausted"
)

// Field issue codes attached to flagged fields on a review task. A field that
// is missing because an optional phase was skipped is "absent", never an error.
const (
	IssueMissing       = "missing"
	IssueLowConfidence = "low_confidence"
	IssueAbsent        = "absent"
)

// FlaggedField identifies one schema path a reviewer should look at.
type FlaggedField struct {
	Path  string `json:"path"`
	Issue string `json:"issue"`
}

// ReviewTask is a unit of human-review work created when an enriched document
// falls below the completeness threshold. Status transitions to approved or
// rejected happen only through reviewer actions on the review API.
type ReviewTask struct {
	ID            uuid.UUID        `json:"id"`
	DocumentID    string           `json:"document_id"`
	JobID         uuid.UUID        `json:"job_id"`
	Reason        ReviewReason     `json:"reason"`
	FlaggedFields []FlaggedField   `json:"flagged_fields,omitempty"`
	Status        ReviewTaskStatus `json:"status"`
	Assignee      string           `json:"assignee,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Corrections   map[string]any   `json:"corrections,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
