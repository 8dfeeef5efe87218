// Package cost provides pre-call cost estimation and the budget ledger that
// gates expensive optional work.
package cost

// ModelInfo holds the pricing for one agent model.
type ModelInfo struct {
	InputUSDPerMTok  float64
	OutputUSDPerMTok float64
}

// ZeroCost reports whether the model bills nothing (locally hosted agents).
func (m ModelInfo) ZeroCost() bool {
	return m.InputUSDPerMTok == 0 && m.OutputUSDPerMTok == 0
}

// Catalog maps model identifiers to pricing.
type Catalog map[string]ModelInfo

// DefaultCatalog returns pricing for the models the default agent set runs.
// extractor-local is the zero-cost class for locally hosted phase-1 agents.
func DefaultCatalog() Catalog {
	return Catalog{
		"extractor-local": {InputUSDPerMTok: 0, OutputUSDPerMTok: 0},
		"synthesizer-v2":  {InputUSDPerMTok: 3.0, OutputUSDPerMTok: 15.0},
		"analyst-deep":    {InputUSDPerMTok: 15.0, OutputUSDPerMTok: 75.0},
	}
}

// Get returns pricing for a model.
func (c Catalog) Get(model string) (ModelInfo, bool) {
	info, ok := c[model]
	return info, ok
}
