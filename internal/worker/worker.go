// Package worker runs the competing-consumer loop: it pulls task messages
// from the queue, drives each document through the orchestrator, folds the
// outcome into its job, and acknowledges only terminal outcomes.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/archive-enricher/internal/enrich"
	"github.com/jonathan/archive-enricher/internal/observability"
	"github.com/jonathan/archive-enricher/internal/queue"
	"github.com/jonathan/archive-enricher/internal/types"
)

// Source is the queue surface the worker consumes from.
type Source interface {
	EnsureGroup(ctx context.Context) error
	Fetch(ctx context.Context, consumer string, count int, block time.Duration) ([]queue.Delivery, error)
	Ack(ctx context.Context, id string) error
	Claim(ctx context.Context, consumer string, minIdle time.Duration, count int) ([]queue.Delivery, error)
}

// JobStore resolves and updates enrichment jobs.
type JobStore interface {
	GetJobByBatchID(ctx context.Context, batchID string) (*types.EnrichmentJob, error)
	MarkDocumentProcessed(ctx context.Context, jobID uuid.UUID, outcome types.DocumentOutcome, costUSD float64, counted bool) (*types.EnrichmentJob, error)
}

// Processor runs one document to a terminal outcome.
type Processor interface {
	Process(ctx context.Context, msg *types.TaskMessage, job *types.EnrichmentJob) (*enrich.Outcome, error)
}

// Options configures a Worker.
type Options struct {
	Consumer    string
	Concurrency int
	// FetchBlock is how long one Fetch waits for new entries.
	FetchBlock time.Duration
	// DocumentDeadline bounds one document's total processing time.
	DocumentDeadline time.Duration
	// ClaimInterval is how often stale pending entries are reclaimed from
	// crashed consumers. ClaimMinIdle should exceed DocumentDeadline.
	ClaimInterval time.Duration
	ClaimMinIdle  time.Duration
	Counters      *observability.WorkerCounters
	Logger        *log.Logger
}

// Worker is one competing consumer. Multiple workers with distinct consumer
// names share the group; each entry is delivered to exactly one of them.
type Worker struct {
	source    Source
	jobs      JobStore
	processor Processor
	opts      Options
	wg        sync.WaitGroup
	sem       chan struct{}
}

// New builds a Worker, applying defaults for unset options.
func New(source Source, jobs JobStore, processor Processor, opts Options) *Worker {
	if opts.Consumer == "" {
		opts.Consumer = "worker-1"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.FetchBlock <= 0 {
		opts.FetchBlock = 5 * time.Second
	}
	if opts.DocumentDeadline <= 0 {
		opts.DocumentDeadline = 10 * time.Minute
	}
	if opts.ClaimInterval <= 0 {
		opts.ClaimInterval = time.Minute
	}
	if opts.ClaimMinIdle <= 0 {
		opts.ClaimMinIdle = opts.DocumentDeadline + time.Minute
	}
	if opts.Counters == nil {
		opts.Counters = observability.NewWorkerCounters()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Worker{
		source:    source,
		jobs:      jobs,
		processor: processor,
		opts:      opts,
		sem:       make(chan struct{}, opts.Concurrency),
	}
}

// Run consumes until the context is canceled, then waits for in-flight
// documents to finish. Fetch errors are logged and retried with a short
// pause so a Redis blip never kills the worker.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.source.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("ensuring consumer group: %w", err)
	}

	claimTicker := time.NewTicker(w.opts.ClaimInterval)
	defer claimTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case <-claimTicker.C:
			w.claimStale(ctx)
		default:
		}

		deliveries, err := w.source.Fetch(ctx, w.opts.Consumer, 1, w.opts.FetchBlock)
		if err != nil {
			if ctx.Err() != nil {
				w.wg.Wait()
				return ctx.Err()
			}
			w.opts.Logger.Printf("fetch failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		for _, d := range deliveries {
			w.dispatch(ctx, d)
		}
	}
}

// dispatch hands one delivery to a goroutine, bounded by the concurrency
// semaphore so a worker never holds more documents than configured.
func (w *Worker) dispatch(ctx context.Context, d queue.Delivery) {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()
		w.handle(ctx, d)
	}()
}

// claimStale reclaims entries abandoned by crashed or stalled consumers.
func (w *Worker) claimStale(ctx context.Context) {
	deliveries, err := w.source.Claim(ctx, w.opts.Consumer, w.opts.ClaimMinIdle, w.opts.Concurrency)
	if err != nil {
		w.opts.Logger.Printf("claim failed: %v", err)
		return
	}
	for _, d := range deliveries {
		w.opts.Counters.Requeued.Add(1)
		w.opts.Logger.Printf("reclaimed stale entry %s", d.ID)
		w.dispatch(ctx, d)
	}
}

// handle drives one delivery to a terminal state. The entry is acknowledged
// only after the document resolved and its job was updated; a panic or an
// infrastructural error leaves it pending so the group redelivers it.
func (w *Worker) handle(ctx context.Context, d queue.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			w.opts.Logger.Printf("panic processing entry %s, leaving pending: %v", d.ID, r)
		}
	}()

	// Entries that can never decode are acknowledged immediately, or the
	// group would redeliver them forever.
	if d.Err != nil {
		w.opts.Logger.Printf("dropping undecodable entry %s: %v", d.ID, d.Err)
		w.opts.Counters.Errors.Add(1)
		w.ack(ctx, d.ID)
		return
	}

	job, err := w.jobs.GetJobByBatchID(ctx, d.Message.OCRJobID)
	if err != nil {
		w.opts.Logger.Printf("resolving job for entry %s failed, leaving pending: %v", d.ID, err)
		return
	}
	if job == nil {
		w.opts.Logger.Printf("dropping entry %s: no job for batch %s", d.ID, d.Message.OCRJobID)
		w.opts.Counters.Errors.Add(1)
		w.ack(ctx, d.ID)
		return
	}

	dctx, cancel := context.WithTimeout(ctx, w.opts.DocumentDeadline)
	defer cancel()

	outcome, err := w.processor.Process(dctx, d.Message, job)
	if err != nil {
		w.opts.Logger.Printf("document %s failed, leaving pending: %v", d.Message.DocumentID, err)
		return
	}

	// Error outcomes store no document, so they are always counted; stored
	// outcomes are counted only on first insert to keep redelivery idempotent.
	counted := outcome.Inserted || outcome.Status == types.OutcomeError
	if _, err := w.jobs.MarkDocumentProcessed(ctx, job.ID, outcome.Status, outcome.CostUSD, counted); err != nil {
		w.opts.Logger.Printf("updating job %s for document %s failed, leaving pending: %v", job.ID, d.Message.DocumentID, err)
		return
	}

	w.opts.Counters.Processed.Add(1)
	switch outcome.Status {
	case types.OutcomeApproved:
		w.opts.Counters.Approved.Add(1)
	case types.OutcomeReviewPending:
		w.opts.Counters.Review.Add(1)
	case types.OutcomeError:
		w.opts.Counters.Errors.Add(1)
	}

	w.ack(ctx, d.ID)
}

func (w *Worker) ack(ctx context.Context, id string) {
	if err := w.source.Ack(ctx, id); err != nil {
		w.opts.Logger.Printf("acking %s failed: %v", id, err)
	}
}
