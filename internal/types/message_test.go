package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskMessageValidate_AllFieldsPresent(t *testing.T) {
	msg := &TaskMessage{
		OCRJobID:     "batch-2024-001",
		CollectionID: "estate-papers",
		DocumentID:   "doc-0001",
		OCRPayload:   "My dearest Margaret, I write to you from...",
	}

	assert.NoError(t, msg.Validate())
}

func TestTaskMessageValidate_MissingDocumentID(t *testing.T) {
	msg := &TaskMessage{
		OCRJobID:   "batch-2024-001",
		OCRPayload: "some text",
	}

	assert.Error(t, msg.Validate())
}

func TestTaskMessageValidate_MissingPayload(t *testing.T) {
	msg := &TaskMessage{
		OCRJobID:   "batch-2024-001",
		DocumentID: "doc-0001",
	}

	assert.Error(t, msg.Validate())
}

func TestTaskMessageValidate_CollectionOptional(t *testing.T) {
	msg := &TaskMessage{
		OCRJobID:   "batch-2024-001",
		DocumentID: "doc-0001",
		OCRPayload: "text",
	}

	assert.NoError(t, msg.Validate())
}
