// Package schema builds the per-cell rules applied to gene columns once their
// names and accessions have passed validation.
//
// A GeneSchema is compiled to a JSON Schema document: every gene column is
// required, and each accession is either null (missing) or a string without
// whitespace. Content rows are encoded as JSON objects and checked one by one.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/genecheck/internal/table"
	"github.com/qri-io/jsonschema"
)

// AccessionPattern is the shape every non-missing accession must match.
const AccessionPattern = `^\S+$`

// maxViolations caps how many cell violations a single Validate collects.
const maxViolations = 50

// FieldSpec defines validation rules for a single gene column.
type FieldSpec struct {
	Name       string // Column header name (must match the source exactly)
	AllowEmpty bool   // Missing accessions are accepted
	Pattern    string // Regular expression for non-missing accessions
}

// GeneFieldSpecs returns the default spec for each gene column.
func GeneFieldSpecs(genes []string) []FieldSpec {
	specs := make([]FieldSpec, len(genes))
	for i, g := range genes {
		specs[i] = FieldSpec{Name: g, AllowEmpty: true, Pattern: AccessionPattern}
	}
	return specs
}

// GeneSchema validates the gene columns of a content table.
type GeneSchema struct {
	specs []FieldSpec
	root  *jsonschema.RootSchema
}

// BuildGeneSchema compiles the default schema for the given gene columns.
func BuildGeneSchema(genes []string) (*GeneSchema, error) {
	return Compile(GeneFieldSpecs(genes))
}

// Compile turns field specs into a GeneSchema.
func Compile(specs []FieldSpec) (*GeneSchema, error) {
	properties := make(map[string]interface{}, len(specs))
	required := make([]string, 0, len(specs))

	for _, spec := range specs {
		prop := map[string]interface{}{"type": "string"}
		if spec.AllowEmpty {
			prop["type"] = []string{"string", "null"}
		}
		if spec.Pattern != "" {
			prop["pattern"] = spec.Pattern
		}
		properties[spec.Name] = prop
		required = append(required, spec.Name)
	}

	doc, err := json.Marshal(map[string]interface{}{
		"title":      "gene accessions",
		"type":       "object",
		"properties": properties,
		"required":   required,
	})
	if err != nil {
		return nil, fmt.Errorf("encode gene schema: %w", err)
	}

	root := &jsonschema.RootSchema{}
	if err := json.Unmarshal(doc, root); err != nil {
		return nil, fmt.Errorf("compile gene schema: %w", err)
	}

	return &GeneSchema{specs: specs, root: root}, nil
}

// Validate checks every content row's gene cells. It returns *Error listing
// the violations found, or nil.
func (s *GeneSchema) Validate(content *table.Table) error {
	var violations []ValidationError

	for _, spec := range s.specs {
		if !content.Has(spec.Name) {
			violations = append(violations, ValidationError{
				Field:   spec.Name,
				Message: "missing required column",
			})
		}
	}
	if len(violations) > 0 {
		return &Error{Violations: violations}
	}

	for i := 0; i < content.Len() && len(violations) < maxViolations; i++ {
		doc := make(map[string]interface{}, len(s.specs))
		for _, spec := range s.specs {
			v, _ := content.Cell(i, spec.Name)
			if v == "" {
				doc[spec.Name] = nil
				continue
			}
			doc[spec.Name] = v
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i+1, err)
		}

		errs, err := s.root.ValidateBytes(data)
		if err != nil {
			return fmt.Errorf("validate row %d: %w", i+1, err)
		}
		for _, ve := range errs {
			violations = append(violations, ValidationError{
				Row:     i + 1,
				Field:   strings.TrimLeft(ve.PropertyPath, "/"),
				Value:   formatValue(ve.InvalidValue),
				Message: ve.Message,
			})
		}
	}

	if len(violations) > 0 {
		if len(violations) > maxViolations {
			violations = violations[:maxViolations]
		}
		return &Error{Violations: violations}
	}
	return nil
}

func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
