package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadV1(t *testing.T) *Schema {
	t.Helper()
	path := ResolvePath("schemas/enriched_document.v1.json")
	require.NotEmpty(t, path, "v1 schema document not found")
	s, err := Load(path)
	require.NoError(t, err)
	return s
}

func fullDocument() map[string]any {
	return map[string]any{
		"document": map[string]any{
			"type":     "letter",
			"title":    "Letter to the harbor master",
			"date":     "March 4, 1911",
			"language": "en",
			"summary":  "A complaint about berth assignments.",
			"keywords": []any{"shipping", "harbor"},
			"subjects": []any{"Commerce"},
			"entities": map[string]any{
				"people":        []any{"J. Aldous"},
				"places":        []any{"Portsmouth"},
				"organizations": []any{"Harbor Board"},
			},
			"structure": map[string]any{
				"page_count": 2,
				"sections":   []any{map[string]any{"heading": "Body", "start_page": 1}},
			},
			"analysis": map[string]any{
				"significance":       "Documents early berth allocation disputes.",
				"historical_context": "Pre-war port expansion era.",
			},
		},
	}
}

func TestLoad_V1SchemaDocument(t *testing.T) {
	s := loadV1(t)

	assert.Equal(t, "v1", s.Version)
	paths := s.RequiredPaths()
	assert.Len(t, paths, 14)
	assert.Contains(t, paths, "document.type")
	assert.Contains(t, paths, "document.entities.people")
	assert.Contains(t, paths, "document.structure.page_count")
	assert.Contains(t, paths, "document.analysis.significance")
	assert.NotContains(t, paths, "document.entities", "object fields contribute their descendants, not themselves")
	assert.NotContains(t, paths, "document.entities.dates", "optional fields are not required paths")
}

func TestParse_RejectsMalformedSchemas(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"type": "object", "required": ["a"], "properties": {"a": {"type": "string"}}}`))
	assert.ErrorContains(t, err, "version")

	_, err = Parse([]byte(`{"version": "v9", "type": "object"}`))
	assert.ErrorContains(t, err, "no required fields")
}

func TestScore_CompleteDocument(t *testing.T) {
	s := loadV1(t)

	report := s.Score(fullDocument(), nil, 0.7)

	assert.Equal(t, 1.0, report.Completeness)
	assert.Empty(t, report.MissingFields)
	assert.Empty(t, report.LowConfidenceFields)
}

func TestScore_SkippedAnalysisLowersCompleteness(t *testing.T) {
	s := loadV1(t)
	fields := fullDocument()
	doc := fields["document"].(map[string]any)
	delete(doc, "analysis")

	report := s.Score(fields, nil, 0.7)

	assert.InDelta(t, 12.0/14.0, report.Completeness, 1e-9)
	assert.ElementsMatch(t, []string{
		"document.analysis.significance",
		"document.analysis.historical_context",
	}, report.MissingFields)
}

func TestScore_BlankAndEmptyValuesAreMissing(t *testing.T) {
	s := loadV1(t)
	fields := fullDocument()
	doc := fields["document"].(map[string]any)
	doc["title"] = "   "
	doc["keywords"] = []any{}

	report := s.Score(fields, nil, 0.7)

	assert.Contains(t, report.MissingFields, "document.title")
	assert.Contains(t, report.MissingFields, "document.keywords")
	assert.InDelta(t, 12.0/14.0, report.Completeness, 1e-9)
}

func TestScore_LowConfidenceFieldsCountPresent(t *testing.T) {
	s := loadV1(t)
	confidence := map[string]float64{
		"document.date":     0.4,
		"document.language": 0.95,
	}

	report := s.Score(fullDocument(), confidence, 0.7)

	assert.Equal(t, 1.0, report.Completeness, "low confidence fields still count as present")
	assert.Equal(t, []string{"document.date"}, report.LowConfidenceFields)
}

func TestScore_Deterministic(t *testing.T) {
	s := loadV1(t)
	fields := fullDocument()
	doc := fields["document"].(map[string]any)
	delete(doc, "summary")
	confidence := map[string]float64{"document.type": 0.2}

	first := s.Score(fields, confidence, 0.7)
	second := s.Score(fields, confidence, 0.7)

	assert.Equal(t, first, second)
}

func TestValidate_TypeViolations(t *testing.T) {
	s := loadV1(t)
	fields := fullDocument()
	doc := fields["document"].(map[string]any)
	doc["structure"].(map[string]any)["page_count"] = "two"

	err := s.Validate(fields)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve.Errors)
	assert.Contains(t, ve.Errors[0].Field, "page_count")
}

func TestValidate_MissingFieldsAreNotStructuralErrors(t *testing.T) {
	s := loadV1(t)
	fields := fullDocument()
	doc := fields["document"].(map[string]any)
	delete(doc, "analysis")
	delete(doc, "summary")

	assert.NoError(t, s.Validate(fields), "completeness handles missing fields, not structural validation")
}

func TestResolvePath_MissingFile(t *testing.T) {
	assert.Empty(t, ResolvePath("schemas/no_such_schema.json"))
}
