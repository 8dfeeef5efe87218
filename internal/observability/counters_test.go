package observability

import (
	"bytes"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/archive-enricher/internal/types"
)

func TestRPCCounters_Snapshot(t *testing.T) {
	c := NewRPCCounters()
	c.Attempts.Add(3)
	c.Successes.Add(2)
	c.RecordFailure("timeout")
	c.BytesSent.Add(128)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap["rpc_attempts"])
	assert.Equal(t, int64(2), snap["rpc_successes"])
	assert.Equal(t, int64(1), snap["rpc_failures"])
	assert.Equal(t, int64(1), snap["rpc_failures_timeout"])
	assert.Equal(t, int64(128), snap["rpc_bytes_sent"])
}

func TestRPCCounters_ConcurrentRecordFailure(t *testing.T) {
	c := NewRPCCounters()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordFailure("overloaded")
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, int64(50), snap["rpc_failures"])
	assert.Equal(t, int64(50), snap["rpc_failures_overloaded"])
}

func TestPrinter_PrintJobSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintJobSummary(&types.EnrichmentJob{
		ID:             uuid.New(),
		SourceBatchID:  "batch-7",
		Status:         types.JobStatusProcessing,
		TotalDocuments: 10,
		ProcessedCount: 4,
	})

	out := buf.String()
	assert.Contains(t, out, "batch-7")
	assert.Contains(t, out, "4/10")
}

func TestPrinter_NilValuesAreSilent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintJobSummary(nil)
	p.PrintDocumentQuality(nil)
	p.PrintReviewTask(nil)

	assert.Empty(t, buf.String())
}
