package store

import (
	"context"

	"github.com/jonathan/archive-enricher/internal/types"
)

// Sink routes orchestrator outputs to their backing stores: enriched
// documents to MongoDB, review tasks and cost records to PostgreSQL.
type Sink struct {
	PG    *DB
	Mongo *Mongo
}

func (s *Sink) StoreDocument(ctx context.Context, doc *types.EnrichedDocument) (bool, error) {
	return s.Mongo.UpsertDocument(ctx, doc)
}

func (s *Sink) CreateReviewTask(ctx context.Context, task *types.ReviewTask) error {
	return s.PG.CreateReviewTask(ctx, task)
}

func (s *Sink) RecordCost(ctx context.Context, rec *types.CostRecord) error {
	return s.PG.InsertCostRecord(ctx, rec)
}
