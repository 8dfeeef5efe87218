// Package agents defines the closed set of remote extraction agents and the
// tools the pipeline invokes on them. Agents are opaque services behind the
// JSON-RPC hub; this package only knows their ids, tools, models, timeouts,
// and the fallback output substituted when a call is abandoned.
package agents

import (
	"fmt"
	"time"
)

// ID identifies a remote agent on the hub.
type ID string

const (
	// AgentClassifier performs document-type classification (phase 1).
	AgentClassifier ID = "classifier-agent"
	// AgentEntities performs named-entity extraction (phase 1).
	AgentEntities ID = "entity-agent"
	// AgentStructure performs structural parsing of the OCR text (phase 1).
	AgentStructure ID = "structure-agent"
	// AgentSynthesis produces the summary and keyword/subject set (phase 2).
	AgentSynthesis ID = "synthesis-agent"
	// AgentAnalysis produces historical significance and context (phase 3).
	AgentAnalysis ID = "analysis-agent"
)

// Phase numbers for the fixed 3-stage pipeline.
const (
	Phase1 = 1
	Phase2 = 2
	Phase3 = 3
)

// ToolCall describes one invokable tool: which agent serves it, the model the
// agent runs, and the per-call timeout. Timeouts are not uniform: cheap
// classification calls get tens of seconds, deep synthesis calls get minutes.
type ToolCall struct {
	Agent   ID
	Tool    string
	Model   string
	Phase   int
	Timeout time.Duration
}

// Catalog is the closed set of tool calls the orchestrator may make, resolved
// at startup. Dispatch is by struct field, never by runtime string lookup.
type Catalog struct {
	Classify   ToolCall
	Entities   ToolCall
	Structure  ToolCall
	Synthesize ToolCall
	Analyze    ToolCall
}

// DefaultCatalog returns the standard agent wiring. Phase-1 agents run
// locally hosted models and bill at zero cost.
func DefaultCatalog() Catalog {
	return Catalog{
		Classify: ToolCall{
			Agent:   AgentClassifier,
			Tool:    "classify_document",
			Model:   "extractor-local",
			Phase:   Phase1,
			Timeout: 30 * time.Second,
		},
		Entities: ToolCall{
			Agent:   AgentEntities,
			Tool:    "extract_entities",
			Model:   "extractor-local",
			Phase:   Phase1,
			Timeout: 45 * time.Second,
		},
		Structure: ToolCall{
			Agent:   AgentStructure,
			Tool:    "parse_structure",
			Model:   "extractor-local",
			Phase:   Phase1,
			Timeout: 45 * time.Second,
		},
		Synthesize: ToolCall{
			Agent:   AgentSynthesis,
			Tool:    "summarize_document",
			Model:   "synthesizer-v2",
			Phase:   Phase2,
			Timeout: 3 * time.Minute,
		},
		Analyze: ToolCall{
			Agent:   AgentAnalysis,
			Tool:    "analyze_significance",
			Model:   "analyst-deep",
			Phase:   Phase3,
			Timeout: 5 * time.Minute,
		},
	}
}

// All returns the catalog's tool calls in pipeline order.
func (c Catalog) All() []ToolCall {
	return []ToolCall{c.Classify, c.Entities, c.Structure, c.Synthesize, c.Analyze}
}

// Validate checks that every tool call is fully specified.
func (c Catalog) Validate() error {
	for _, tc := range c.All() {
		if tc.Agent == "" || tc.Tool == "" || tc.Model == "" {
			return fmt.Errorf("incomplete tool call: agent=%q tool=%q model=%q", tc.Agent, tc.Tool, tc.Model)
		}
		if tc.Timeout <= 0 {
			return fmt.Errorf("tool %s/%s has no timeout", tc.Agent, tc.Tool)
		}
		if tc.Phase < Phase1 || tc.Phase > Phase3 {
			return fmt.Errorf("tool %s/%s has invalid phase %d", tc.Agent, tc.Tool, tc.Phase)
		}
	}
	return nil
}

// DocumentDeadline returns the sum of all per-call timeouts plus slack. The
// worker uses it as the master deadline for one document so a pathological
// sequence of slow calls cannot hold a message forever.
func (c Catalog) DocumentDeadline() time.Duration {
	var total time.Duration
	for _, tc := range c.All() {
		total += tc.Timeout
	}
	return total + 30*time.Second
}
