package agents

// Fallback outputs substituted when an agent call is abandoned after retries.
// These keep a document moving through the pipeline: a bad agent lowers the
// completeness score, it never blocks the document.

// FallbackClassification returns the default document type used when the
// classifier is unreachable.
func FallbackClassification() map[string]any {
	return map[string]any{
		"document": map[string]any{
			"type": "general",
		},
	}
}

// FallbackEntities returns empty entity lists. Empty required lists count as
// absent for completeness, so the miss is visible downstream.
func FallbackEntities() map[string]any {
	return map[string]any{
		"document": map[string]any{
			"entities": map[string]any{
				"people":        []any{},
				"places":        []any{},
				"organizations": []any{},
				"dates":         []any{},
			},
		},
	}
}

// FallbackStructure returns an empty structural parse.
func FallbackStructure() map[string]any {
	return map[string]any{
		"document": map[string]any{
			"structure": map[string]any{
				"sections": []any{},
			},
		},
	}
}

// FallbackSynthesis returns empty analytical output for a failed phase-2 call.
func FallbackSynthesis() map[string]any {
	return map[string]any{
		"document": map[string]any{
			"keywords": []any{},
			"subjects": []any{},
		},
	}
}
