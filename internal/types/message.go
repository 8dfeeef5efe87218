package types

import (
	"github.com/go-playground/validator/v10"
)

// TaskMessage is the wire format for one document-enrichment task on the
// queue. One message is produced per document; consumption must be idempotent.
type TaskMessage struct {
	OCRJobID     string            `json:"ocr_job_id" validate:"required"`
	CollectionID string            `json:"collection_id,omitempty"`
	DocumentID   string            `json:"document_id" validate:"required"`
	OCRPayload   string            `json:"ocr_payload" validate:"required"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate checks the message precondition fields using the validator.
// A message failing validation is a document-level error, not a retryable one.
func (m *TaskMessage) Validate() error {
	validate := validator.New()
	return validate.Struct(m)
}
