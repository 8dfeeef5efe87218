package types

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus represents whether a document needs human review.
type ReviewStatus string

const (
	ReviewStatusApproved    ReviewStatus = "approved"
	ReviewStatusPending     ReviewStatus = "pending"
	ReviewStatusNotRequired ReviewStatus = "not_required"
)

// QualityMetrics holds the validator's assessment of an enriched document.
// Completeness is always within [0, 1].
type QualityMetrics struct {
	Completeness        float64            `json:"completeness" bson:"completeness"`
	FieldConfidence     map[string]float64 `json:"field_confidence,omitempty" bson:"field_confidence,omitempty"`
	MissingFields       []string           `json:"missing_fields,omitempty" bson:"missing_fields,omitempty"`
	LowConfidenceFields []string           `json:"low_confidence_fields,omitempty" bson:"low_confidence_fields,omitempty"`
}

// EnrichedDocument is the output of one document's pipeline run. It is upserted
// by (job_id, document_id) so reprocessing the same queue message never creates
// a duplicate. Once approved it is immutable.
type EnrichedDocument struct {
	DocumentID    string         `json:"document_id" bson:"document_id"`
	JobID         uuid.UUID      `json:"job_id" bson:"job_id"`
	CollectionID  string         `json:"collection_id,omitempty" bson:"collection_id,omitempty"`
	RawInput      string         `json:"raw_input,omitempty" bson:"raw_input,omitempty"`
	Fields        map[string]any `json:"fields" bson:"fields"`
	Quality       QualityMetrics `json:"quality" bson:"quality"`
	ReviewStatus  ReviewStatus   `json:"review_status" bson:"review_status"`
	SchemaVersion string         `json:"schema_version" bson:"schema_version"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}
