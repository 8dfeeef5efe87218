// Package observability provides process-local counters and formatted output
// utilities for verbose CLI mode.
package observability

import (
	"sync"
	"sync/atomic"
)

// RPCCounters tracks the RPC client's side effects: attempts, outcomes,
// reconnections, and bytes moved. All fields are safe for concurrent use.
type RPCCounters struct {
	Attempts      atomic.Int64
	Successes     atomic.Int64
	Failures      atomic.Int64
	Reconnects    atomic.Int64
	BytesSent     atomic.Int64
	BytesReceived atomic.Int64

	mu              sync.Mutex
	failuresByClass map[string]int64
}

// NewRPCCounters creates a zeroed counter set.
func NewRPCCounters() *RPCCounters {
	return &RPCCounters{failuresByClass: make(map[string]int64)}
}

// RecordFailure increments the failure total and the per-class count.
func (c *RPCCounters) RecordFailure(class string) {
	c.Failures.Add(1)
	c.mu.Lock()
	c.failuresByClass[class]++
	c.mu.Unlock()
}

// Snapshot returns a point-in-time copy of all counters, suitable for the
// metrics endpoint.
func (c *RPCCounters) Snapshot() map[string]int64 {
	snap := map[string]int64{
		"rpc_attempts":       c.Attempts.Load(),
		"rpc_successes":      c.Successes.Load(),
		"rpc_failures":       c.Failures.Load(),
		"rpc_reconnects":     c.Reconnects.Load(),
		"rpc_bytes_sent":     c.BytesSent.Load(),
		"rpc_bytes_received": c.BytesReceived.Load(),
	}
	c.mu.Lock()
	for class, n := range c.failuresByClass {
		snap["rpc_failures_"+class] = n
	}
	c.mu.Unlock()
	return snap
}

// NewWorkerCounters creates a zeroed counter set.
func NewWorkerCounters() *WorkerCounters {
	return &WorkerCounters{}
}

// WorkerCounters tracks document outcomes for one worker process.
type WorkerCounters struct {
	Processed atomic.Int64
	Approved  atomic.Int64
	Review    atomic.Int64
	Errors    atomic.Int64
	Requeued  atomic.Int64
}

// Snapshot returns a point-in-time copy of all counters.
func (c *WorkerCounters) Snapshot() map[string]int64 {
	return map[string]int64{
		"documents_processed": c.Processed.Load(),
		"documents_approved":  c.Approved.Load(),
		"documents_review":    c.Review.Load(),
		"documents_errors":    c.Errors.Load(),
		"documents_requeued":  c.Requeued.Load(),
	}
}
