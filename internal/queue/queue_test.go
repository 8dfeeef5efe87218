package queue

import (
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/archive-enricher/internal/types"
)

func TestDecodeDelivery_ValidPayload(t *testing.T) {
	msg := types.TaskMessage{
		OCRJobID:     "batch-2024-001",
		CollectionID: "estate-papers",
		DocumentID:   "doc-0001",
		OCRPayload:   "My dearest Margaret...",
		Metadata:     map[string]string{"source": "scanner-3"},
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	d := DecodeDelivery(redis.XMessage{
		ID:     "1693500000000-0",
		Values: map[string]any{"payload": string(raw)},
	})

	require.NoError(t, d.Err)
	assert.Equal(t, "1693500000000-0", d.ID)
	require.NotNil(t, d.Message)
	assert.Equal(t, "doc-0001", d.Message.DocumentID)
	assert.Equal(t, "scanner-3", d.Message.Metadata["source"])
}

func TestDecodeDelivery_MissingPayloadField(t *testing.T) {
	d := DecodeDelivery(redis.XMessage{
		ID:     "1693500000000-1",
		Values: map[string]any{"body": "{}"},
	})

	assert.Error(t, d.Err)
	assert.Nil(t, d.Message)
	assert.Equal(t, "1693500000000-1", d.ID, "the id survives so the entry can still be acked")
}

func TestDecodeDelivery_NonStringPayload(t *testing.T) {
	d := DecodeDelivery(redis.XMessage{
		ID:     "1693500000000-2",
		Values: map[string]any{"payload": 42},
	})

	assert.Error(t, d.Err)
	assert.Nil(t, d.Message)
}

func TestDecodeDelivery_MalformedJSON(t *testing.T) {
	d := DecodeDelivery(redis.XMessage{
		ID:     "1693500000000-3",
		Values: map[string]any{"payload": "{truncated"},
	})

	assert.Error(t, d.Err)
	assert.Nil(t, d.Message)
}
