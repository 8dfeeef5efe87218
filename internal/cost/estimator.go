package cost

import (
	"fmt"
	"math"
)

// charsPerToken is the deterministic character-to-token approximation used
// for pre-call estimates. Four characters per token tracks English prose
// closely enough for budget gating.
const charsPerToken = 4

// outputRatios approximate how much text each task produces relative to its
// input. Classification emits a few fields; deep analysis emits paragraphs.
var outputRatios = map[string]float64{
	"classify_document":    0.02,
	"extract_entities":     0.15,
	"parse_structure":      0.10,
	"summarize_document":   0.25,
	"analyze_significance": 0.40,
}

const defaultOutputRatio = 0.20

// TokensForChars converts a character count to an estimated token count.
func TokensForChars(chars int) int {
	if chars <= 0 {
		return 0
	}
	return int(math.Ceil(float64(chars) / charsPerToken))
}

// Estimator computes pre-call USD estimates from the model catalog. It is
// pure and stateless; the same inputs always produce the same estimate.
type Estimator struct {
	catalog Catalog
}

// NewEstimator creates an estimator over the given catalog. A nil catalog
// uses the default pricing.
func NewEstimator(catalog Catalog) *Estimator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Estimator{catalog: catalog}
}

// Estimate returns the estimated USD cost of running task on model with
// inputChars of input.
func (e *Estimator) Estimate(model string, inputChars int, task string) (float64, error) {
	info, ok := e.catalog.Get(model)
	if !ok {
		return 0, fmt.Errorf("unknown model %q", model)
	}
	if info.ZeroCost() {
		return 0, nil
	}

	ratio, ok := outputRatios[task]
	if !ok {
		ratio = defaultOutputRatio
	}

	inTokens := float64(TokensForChars(inputChars))
	outTokens := inTokens * ratio

	return inTokens*info.InputUSDPerMTok/1_000_000 + outTokens*info.OutputUSDPerMTok/1_000_000, nil
}

// Cost computes the actual USD cost from reported token usage.
func (e *Estimator) Cost(model string, inputTokens, outputTokens int) (float64, error) {
	info, ok := e.catalog.Get(model)
	if !ok {
		return 0, fmt.Errorf("unknown model %q", model)
	}
	return float64(inputTokens)*info.InputUSDPerMTok/1_000_000 +
		float64(outputTokens)*info.OutputUSDPerMTok/1_000_000, nil
}

// PhaseEstimate is one line of a per-document cost breakdown.
type PhaseEstimate struct {
	Phase   int     `json:"phase"`
	Model   string  `json:"model"`
	Task    string  `json:"task"`
	CostUSD float64 `json:"cost_usd"`
}

// Breakdown is the estimated cost of enriching one document.
type Breakdown struct {
	Phases   []PhaseEstimate `json:"phases"`
	TotalUSD float64         `json:"total_usd"`
}

// documentPhases describes the estimator's view of the pipeline: which task
// runs on which model in which phase. Kept in sync with agents.DefaultCatalog.
var documentPhases = []struct {
	phase    int
	model    string
	task     string
	optional bool
}{
	{1, "extractor-local", "classify_document", false},
	{1, "extractor-local", "extract_entities", false},
	{1, "extractor-local", "parse_structure", false},
	{2, "synthesizer-v2", "summarize_document", false},
	{3, "analyst-deep", "analyze_significance", true},
}

// EstimateDocument sums phase-level estimates for a document of docChars
// characters. When phase3Enabled is false the optional phase is omitted.
func (e *Estimator) EstimateDocument(docChars int, phase3Enabled bool) (*Breakdown, error) {
	b := &Breakdown{}
	for _, p := range documentPhases {
		if p.optional && !phase3Enabled {
			continue
		}
		costUSD, err := e.Estimate(p.model, docChars, p.task)
		if err != nil {
			return nil, err
		}
		b.Phases = append(b.Phases, PhaseEstimate{Phase: p.phase, Model: p.model, Task: p.task, CostUSD: costUSD})
		b.TotalUSD += costUSD
	}
	return b, nil
}
