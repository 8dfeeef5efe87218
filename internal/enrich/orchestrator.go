// Package enrich implements the per-document enrichment state machine:
// phase-1 extraction fan-out, paid synthesis, budget-gated analysis, merge,
// completeness scoring, and routing to storage or human review.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/archive-enricher/internal/agents"
	"github.com/jonathan/archive-enricher/internal/cost"
	"github.com/jonathan/archive-enricher/internal/schema"
	"github.com/jonathan/archive-enricher/internal/types"
	"github.com/google/uuid"
)

// Invoker dispatches one tool call to a remote agent and returns its raw
// result. Implemented by rpc.Client; faked in tests.
type Invoker interface {
	Invoke(ctx context.Context, agentID, tool string, args map[string]any, timeout time.Duration) (json.RawMessage, error)
}

// Sink persists the outputs of a document run. StoreDocument upserts by
// (job_id, document_id) and reports whether a new document was inserted,
// which keeps job counters idempotent under queue redelivery.
type Sink interface {
	StoreDocument(ctx context.Context, doc *types.EnrichedDocument) (inserted bool, err error)
	CreateReviewTask(ctx context.Context, task *types.ReviewTask) error
	RecordCost(ctx context.Context, rec *types.CostRecord) error
}

// Config holds the routing thresholds.
type Config struct {
	CompletenessThreshold  float64
	LowConfidenceThreshold float64
}

// Outcome is the terminal resolution of one document run.
type Outcome struct {
	Status   types.DocumentOutcome
	Document *types.EnrichedDocument
	Review   *types.ReviewTask
	CostUSD  float64
	Inserted bool
}

// Orchestrator runs the three-phase pipeline for one document at a time.
// It is safe for concurrent use; all per-document state is local to Process.
type Orchestrator struct {
	invoker   Invoker
	sink      Sink
	ledger    *cost.Ledger
	estimator *cost.Estimator
	schema    *schema.Schema
	catalog   agents.Catalog
	cfg       Config
	logger    *log.Logger
}

// New builds an Orchestrator. A nil logger falls back to the default logger.
func New(invoker Invoker, sink Sink, ledger *cost.Ledger, estimator *cost.Estimator, sch *schema.Schema, catalog agents.Catalog, cfg Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		invoker:   invoker,
		sink:      sink,
		ledger:    ledger,
		estimator: estimator,
		schema:    sch,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
	}
}

// agentResult is the payload every agent tool returns: nested document
// fields, per-path confidence, and token usage for billing.
type agentResult struct {
	Fields     map[string]any     `json:"fields"`
	Confidence map[string]float64 `json:"confidence"`
	Usage      agentUsage         `json:"usage"`
}

type agentUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// phaseOutput is one agent call's contribution after fallback substitution.
type phaseOutput struct {
	fields     map[string]any
	confidence map[string]float64
	costUSD    float64
	fellBack   bool
}

// Process runs one document through the pipeline to a terminal outcome.
// The returned error is infrastructural (storage unavailable); the caller
// must not acknowledge the message in that case. Document-level failures
// are reported through Outcome.Status, never as an error.
func (o *Orchestrator) Process(ctx context.Context, msg *types.TaskMessage, job *types.EnrichmentJob) (*Outcome, error) {
	if err := msg.Validate(); err != nil {
		o.logger.Printf("document %s: malformed task message: %v", msg.DocumentID, err)
		return &Outcome{Status: types.OutcomeError}, nil
	}

	fields := map[string]any{}
	confidence := map[string]float64{}
	var spentUSD float64

	// Phase 1: three independent extraction calls. A single agent's
	// failure substitutes its fallback and never aborts the phase.
	phase1 := []struct {
		call     agents.ToolCall
		fallback func() map[string]any
	}{
		{o.catalog.Classify, agents.FallbackClassification},
		{o.catalog.Entities, agents.FallbackEntities},
		{o.catalog.Structure, agents.FallbackStructure},
	}
	outputs := make([]phaseOutput, len(phase1))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range phase1 {
		g.Go(func() error {
			args := map[string]any{"text": msg.OCRPayload}
			res, callCost := o.call(gctx, job, msg.DocumentID, p.call, args)
			if res == nil {
				outputs[i] = phaseOutput{fields: p.fallback(), fellBack: true}
				return nil
			}
			outputs[i] = phaseOutput{fields: res.Fields, confidence: res.Confidence, costUSD: callCost}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic merge order: classification, entities, structure.
	for _, out := range outputs {
		Merge(fields, out.fields, false)
		mergeConfidence(confidence, out.confidence, false)
		spentUSD += out.costUSD
	}

	// Zero-budget state vetoes the paid phases outright; the document is
	// routed to review with whatever phase-1 data exists.
	exhausted, err := o.ledger.Exhausted(ctx)
	if err != nil {
		o.logger.Printf("document %s: budget check failed, proceeding: %v", msg.DocumentID, err)
	}
	if exhausted {
		return o.resolve(ctx, msg, job, fields, confidence, spentUSD, types.ReasonBudgetExhausted, o.skippedPaths(true, true))
	}

	// Phase 2: mandatory paid synthesis, consumes phase-1 outputs.
	synthArgs := map[string]any{"text": msg.OCRPayload}
	if doc, ok := fields["document"].(map[string]any); ok {
		synthArgs["extracted"] = doc
	}
	if res, callCost := o.call(ctx, job, msg.DocumentID, o.catalog.Synthesize, synthArgs); res != nil {
		Merge(fields, res.Fields, true)
		mergeConfidence(confidence, res.Confidence, true)
		spentUSD += callCost
	} else {
		Merge(fields, agents.FallbackSynthesis(), true)
	}

	// Phase 3: optional paid analysis, gated by the ledger. Skipping it
	// leaves its schema fields absent, lowering completeness without error.
	phase3Ran := false
	estimate, err := o.estimator.Estimate(o.catalog.Analyze.Model, len(msg.OCRPayload), o.catalog.Analyze.Tool)
	if err != nil {
		o.logger.Printf("document %s: analysis estimate failed, skipping phase 3: %v", msg.DocumentID, err)
	} else {
		ok, gateErr := o.ledger.ShouldRunOptionalPhase(ctx, spentUSD, estimate)
		if gateErr != nil {
			o.logger.Printf("document %s: optional phase gate failed, skipping phase 3: %v", msg.DocumentID, gateErr)
		} else if ok {
			analyzeArgs := map[string]any{"text": msg.OCRPayload}
			if doc, docOK := fields["document"].(map[string]any); docOK {
				analyzeArgs["extracted"] = doc
			}
			if res, callCost := o.call(ctx, job, msg.DocumentID, o.catalog.Analyze, analyzeArgs); res != nil {
				Merge(fields, res.Fields, true)
				mergeConfidence(confidence, res.Confidence, true)
				spentUSD += callCost
				phase3Ran = true
			}
		}
	}

	return o.resolve(ctx, msg, job, fields, confidence, spentUSD, types.ReasonBelowThreshold, o.skippedPaths(false, !phase3Ran))
}

// call invokes one tool and parses its result. It returns (nil, 0) when the
// call or its payload failed after the client's retries; the caller
// substitutes the phase fallback. Successful paid calls are billed to the
// ledger and recorded for the job's cost audit trail.
func (o *Orchestrator) call(ctx context.Context, job *types.EnrichmentJob, documentID string, tc agents.ToolCall, args map[string]any) (*agentResult, float64) {
	raw, err := o.invoker.Invoke(ctx, string(tc.Agent), tc.Tool, args, tc.Timeout)
	if err != nil {
		o.logger.Printf("document %s: %s/%s failed: %v", documentID, tc.Agent, tc.Tool, err)
		return nil, 0
	}

	var res agentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		o.logger.Printf("document %s: %s/%s returned unparseable result: %v", documentID, tc.Agent, tc.Tool, err)
		return nil, 0
	}
	if res.Fields == nil {
		o.logger.Printf("document %s: %s/%s returned no fields", documentID, tc.Agent, tc.Tool)
		return nil, 0
	}

	callCost, err := o.estimator.Cost(tc.Model, res.Usage.InputTokens, res.Usage.OutputTokens)
	if err != nil {
		o.logger.Printf("document %s: cost lookup for model %s failed: %v", documentID, tc.Model, err)
		callCost = 0
	}
	if err := o.ledger.RecordSpend(ctx, callCost); err != nil {
		o.logger.Printf("document %s: recording spend failed: %v", documentID, err)
	}

	rec := &types.CostRecord{
		ID:           uuid.New(),
		JobID:        job.ID,
		DocumentID:   documentID,
		Model:        tc.Model,
		Task:         tc.Tool,
		InputTokens:  res.Usage.InputTokens,
		OutputTokens: res.Usage.OutputTokens,
		CostUSD:      callCost,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.sink.RecordCost(ctx, rec); err != nil {
		o.logger.Printf("document %s: recording cost failed: %v", documentID, err)
	}

	return &res, callCost
}

// resolve scores the merged document and routes it: at or above the
// completeness threshold it is stored review-not-required, below it a
// review task is created and the document is stored pending.
func (o *Orchestrator) resolve(ctx context.Context, msg *types.TaskMessage, job *types.EnrichmentJob, fields map[string]any, confidence map[string]float64, spentUSD float64, reason types.ReviewReason, absent map[string]bool) (*Outcome, error) {
	report := o.schema.Score(fields, confidence, o.cfg.LowConfidenceThreshold)

	now := time.Now().UTC()
	doc := &types.EnrichedDocument{
		DocumentID:   msg.DocumentID,
		JobID:        job.ID,
		CollectionID: msg.CollectionID,
		RawInput:     msg.OCRPayload,
		Fields:       fields,
		Quality: types.QualityMetrics{
			Completeness:        report.Completeness,
			FieldConfidence:     confidence,
			MissingFields:       report.MissingFields,
			LowConfidenceFields: report.LowConfidenceFields,
		},
		ReviewStatus:  types.ReviewStatusNotRequired,
		SchemaVersion: o.schema.Version,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	outcome := &Outcome{Document: doc, CostUSD: spentUSD}

	needsReview := report.Completeness < o.cfg.CompletenessThreshold || reason == types.ReasonBudgetExhausted
	if needsReview {
		doc.ReviewStatus = types.ReviewStatusPending
		outcome.Status = types.OutcomeReviewPending
		outcome.Review = &types.ReviewTask{
			ID:            uuid.New(),
			DocumentID:    msg.DocumentID,
			JobID:         job.ID,
			Reason:        reason,
			FlaggedFields: flaggedFields(report, absent),
			Status:        types.ReviewTaskPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	} else {
		outcome.Status = types.OutcomeApproved
	}

	inserted, err := o.sink.StoreDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("storing document %s: %w", msg.DocumentID, err)
	}
	outcome.Inserted = inserted

	if outcome.Review != nil {
		if err := o.sink.CreateReviewTask(ctx, outcome.Review); err != nil {
			return nil, fmt.Errorf("creating review task for document %s: %w", msg.DocumentID, err)
		}
	}

	return outcome, nil
}

// skippedPaths returns the required paths left unfilled because a paid phase
// was skipped. Those fields are flagged "absent" rather than "missing".
func (o *Orchestrator) skippedPaths(phase2Skipped, phase3Skipped bool) map[string]bool {
	absent := map[string]bool{}
	for _, path := range o.schema.RequiredPaths() {
		if phase3Skipped && strings.HasPrefix(path, "document.analysis.") {
			absent[path] = true
		}
		if phase2Skipped {
			switch path {
			case "document.summary", "document.keywords", "document.subjects":
				absent[path] = true
			}
		}
	}
	return absent
}

// flaggedFields builds the reviewer-facing field list from a score report.
func flaggedFields(report schema.Report, absent map[string]bool) []types.FlaggedField {
	flagged := make([]types.FlaggedField, 0, len(report.MissingFields)+len(report.LowConfidenceFields))
	for _, path := range report.MissingFields {
		issue := types.IssueMissing
		if absent[path] {
			issue = types.IssueAbsent
		}
		flagged = append(flagged, types.FlaggedField{Path: path, Issue: issue})
	}
	for _, path := range report.LowConfidenceFields {
		flagged = append(flagged, types.FlaggedField{Path: path, Issue: types.IssueLowConfidence})
	}
	return flagged
}

// mergeConfidence mirrors the field-ownership rule for confidence entries.
func mergeConfidence(dst, src map[string]float64, fromAnalysis bool) {
	for path, c := range src {
		if _, exists := dst[path]; exists && !fromAnalysis {
			continue
		}
		dst[path] = c
	}
}
