package schema

import (
	"reflect"
	"strings"
)

// Report is the outcome of scoring a document against a schema version.
// Completeness is presentCount / totalRequiredCount. A field whose agent
// confidence falls below the threshold still counts as present but is
// listed in LowConfidenceFields.
type Report struct {
	Completeness        float64
	MissingFields       []string
	LowConfidenceFields []string
}

// Score computes the completeness of a nested document against the
// schema's required field paths. confidence maps dotted field paths to
// agent-reported confidences; paths without an entry are never flagged.
// Score is pure and deterministic for a given schema version.
func (s *Schema) Score(fields map[string]any, confidence map[string]float64, lowConfidenceThreshold float64) Report {
	report := Report{}
	presentCount := 0
	for _, path := range s.required {
		if !present(valueAt(fields, path)) {
			report.MissingFields = append(report.MissingFields, path)
			continue
		}
		presentCount++
		if c, ok := confidence[path]; ok && c < lowConfidenceThreshold {
			report.LowConfidenceFields = append(report.LowConfidenceFields, path)
		}
	}
	if len(s.required) > 0 {
		report.Completeness = float64(presentCount) / float64(len(s.required))
	}
	return report
}

// valueAt walks the nested document along a dotted path. It returns nil
// when any segment is absent or not an object.
func valueAt(fields map[string]any, path string) any {
	segments := strings.Split(path, ".")
	var current any = fields
	for _, seg := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = obj[seg]
		if !ok {
			return nil
		}
	}
	return current
}

// present reports whether a value counts toward completeness: non-nil,
// non-blank after trimming for strings, non-empty for arrays and maps.
func present(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
