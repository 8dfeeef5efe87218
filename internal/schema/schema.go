// Package schema loads versioned enriched-document schemas and scores
// documents against their required field paths.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled, versioned document schema. The required field
// paths are derived from the JSON Schema's nested "required" arrays;
// structural validation checks the shape of the values that are present,
// while missing fields are the completeness scorer's concern.
type Schema struct {
	Version  string
	required []string
	compiled *gojsonschema.Schema
}

// ResolvePath attempts to find a schema file by trying multiple common
// path resolutions. It tries the path relative to the current working
// directory, then one and two levels up. Returns the first path that
// exists, or empty string if none found. This is useful when commands
// may run from different working directory contexts (e.g., tests).
func ResolvePath(relativePath string) string {
	candidates := []string{
		relativePath,
		filepath.Join("..", relativePath),
		filepath.Join("..", "..", relativePath),
	}

	for _, candidate := range candidates {
		if absPath, err := filepath.Abs(candidate); err == nil {
			if _, err := os.Stat(absPath); err == nil {
				return absPath
			}
		}
	}

	return ""
}

// Load reads and compiles a schema document from disk.
func Load(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse compiles a schema document from raw JSON Schema bytes.
func Parse(raw []byte) (*Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	version, _ := doc["version"].(string)
	if version == "" {
		return nil, fmt.Errorf("schema has no version field")
	}

	required := requiredPaths(doc, "")
	if len(required) == 0 {
		return nil, fmt.Errorf("schema %s declares no required fields", version)
	}
	sort.Strings(required)

	// Compile without the required arrays so Validate reports only
	// type/shape violations. Missing fields lower the completeness
	// score instead of failing validation outright.
	lenient := stripRequired(doc)
	lenientRaw, err := json.Marshal(lenient)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode schema: %w", err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(lenientRaw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", version, err)
	}

	return &Schema{Version: version, required: required, compiled: compiled}, nil
}

// RequiredPaths returns the dotted paths of every required leaf field,
// sorted. The returned slice must not be modified.
func (s *Schema) RequiredPaths() []string {
	return s.required
}

// requiredPaths walks a JSON Schema object and collects the dotted path
// of every required leaf. A required property whose subschema is itself
// an object with properties contributes its own required descendants
// instead; arrays are leaves.
func requiredPaths(node map[string]any, prefix string) []string {
	req, _ := node["required"].([]any)
	props, _ := node["properties"].(map[string]any)

	var paths []string
	for _, r := range req {
		name, ok := r.(string)
		if !ok {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		child, _ := props[name].(map[string]any)
		if child != nil {
			if _, hasProps := child["properties"].(map[string]any); hasProps {
				paths = append(paths, requiredPaths(child, path)...)
				continue
			}
		}
		paths = append(paths, path)
	}
	return paths
}

// stripRequired returns a deep copy of the schema with every "required"
// array removed.
func stripRequired(node map[string]any) map[string]any {
	out := make(map[string]any, len(node))
	for k, v := range node {
		if k == "required" {
			continue
		}
		if child, ok := v.(map[string]any); ok {
			out[k] = stripRequired(child)
			continue
		}
		out[k] = v
	}
	return out
}

// FieldError is a single structural violation at a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates structural violations found in a document.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Validate checks the document's present fields against the schema's
// type constraints. It returns a *ValidationError when the document has
// a field of the wrong shape, and nil when the document conforms.
func (s *Schema) Validate(fields map[string]any) error {
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(fields))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}
