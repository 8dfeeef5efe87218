package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_ObservableFactsFirstWriterWins(t *testing.T) {
	dst := map[string]any{
		"document": map[string]any{
			"date": "March 4, 1911",
		},
	}
	src := map[string]any{
		"document": map[string]any{
			"date":  "1911-03-04",
			"title": "Harbor letter",
		},
	}

	Merge(dst, src, false)

	doc := dst["document"].(map[string]any)
	assert.Equal(t, "March 4, 1911", doc["date"], "the first writer's transcription is kept")
	assert.Equal(t, "Harbor letter", doc["title"], "new fields are always added")
}

func TestMerge_AnalyticalFieldsOverwritePlaceholders(t *testing.T) {
	dst := map[string]any{
		"document": map[string]any{
			"summary":  "",
			"keywords": []any{},
			"date":     "March 4, 1911",
		},
	}
	src := map[string]any{
		"document": map[string]any{
			"summary":  "A complaint about berth assignments.",
			"keywords": []any{"shipping"},
			"date":     "overwritten?",
		},
	}

	Merge(dst, src, true)

	doc := dst["document"].(map[string]any)
	assert.Equal(t, "A complaint about berth assignments.", doc["summary"])
	assert.Equal(t, []any{"shipping"}, doc["keywords"])
	assert.Equal(t, "March 4, 1911", doc["date"], "analysis phases never own observable facts")
}

func TestMerge_AnalysisSubtreeOwnedWholesale(t *testing.T) {
	dst := map[string]any{
		"document": map[string]any{
			"analysis": map[string]any{
				"significance": "placeholder",
			},
		},
	}
	src := map[string]any{
		"document": map[string]any{
			"analysis": map[string]any{
				"significance":       "Documents early berth allocation disputes.",
				"historical_context": "Pre-war port expansion era.",
			},
		},
	}

	Merge(dst, src, true)

	analysis := dst["document"].(map[string]any)["analysis"].(map[string]any)
	assert.Equal(t, "Documents early berth allocation disputes.", analysis["significance"])
	assert.Equal(t, "Pre-war port expansion era.", analysis["historical_context"])
}

func TestMerge_DeepMergeOfObservableSubtrees(t *testing.T) {
	dst := map[string]any{
		"document": map[string]any{
			"entities": map[string]any{
				"people": []any{"J. Aldous"},
			},
		},
	}
	src := map[string]any{
		"document": map[string]any{
			"entities": map[string]any{
				"people": []any{"Someone Else"},
				"places": []any{"Portsmouth"},
			},
		},
	}

	Merge(dst, src, false)

	entities := dst["document"].(map[string]any)["entities"].(map[string]any)
	assert.Equal(t, []any{"J. Aldous"}, entities["people"])
	assert.Equal(t, []any{"Portsmouth"}, entities["places"])
}

func TestMergeConfidence_FollowsOwnership(t *testing.T) {
	dst := map[string]float64{"document.date": 0.9}
	mergeConfidence(dst, map[string]float64{"document.date": 0.5, "document.title": 0.8}, false)
	assert.Equal(t, 0.9, dst["document.date"])
	assert.Equal(t, 0.8, dst["document.title"])

	mergeConfidence(dst, map[string]float64{"document.summary": 0.7, "document.date": 0.1}, true)
	assert.Equal(t, 0.7, dst["document.summary"])
	assert.Equal(t, 0.1, dst["document.date"], "analysis writers overwrite confidence for their outputs")
}
