package core

// validation.go runs the gene-field check on a loaded reference source.
//
// The check is a single pass:
//  1. Discover: columns whose definition cell holds the gene marker
//  2. Names: every gene name must be LOC-NAME (fail fast on the first bad one)
//  3. Duplicates: intra- and inter-genic scans over the content rows
//  4. Gate: unless duplicates are ignored, any finding is reported and fails
//  5. Schema: the gene columns are handed to the schema built for them
//
// Detection is pure. Reporting goes through the Reporter, and the returned
// error never depends on how (or whether) a report was rendered.

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/genecheck/internal/schema"
	"github.com/JonMunkholm/genecheck/internal/table"
)

// Reporter renders duplicate findings for a human. It is called only when
// the findings fail the validation.
type Reporter interface {
	ReportDuplicates(ctx context.Context, findings DuplicateFindings)
}

// GeneSchema validates the gene columns of the content rows.
type GeneSchema interface {
	Validate(content *table.Table) error
}

// SchemaBuilder constructs the schema for a validated gene list.
type SchemaBuilder func(genes []string) (GeneSchema, error)

// DefaultSchemaBuilder builds the accession schema from the schema package.
func DefaultSchemaBuilder(genes []string) (GeneSchema, error) {
	s, err := schema.BuildGeneSchema(genes)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ValidatorConfig configures a Validator. Zero values select defaults.
type ValidatorConfig struct {
	Marker   string        // Definition-row value marking gene columns (default: GENE)
	Logger   *slog.Logger  // Log sink (default: slog.Default())
	Reporter Reporter      // Duplicate report renderer (default: structured log lines)
	Schema   SchemaBuilder // Schema constructor (default: DefaultSchemaBuilder)
}

// Validator checks the gene fields of reference sources. It holds no
// per-call state and is safe for concurrent use.
type Validator struct {
	marker   string
	logger   *slog.Logger
	reporter Reporter
	schema   SchemaBuilder
}

// NewValidator creates a validator from cfg.
func NewValidator(cfg ValidatorConfig) *Validator {
	v := &Validator{
		marker:   cfg.Marker,
		logger:   cfg.Logger,
		reporter: cfg.Reporter,
		schema:   cfg.Schema,
	}
	if v.marker == "" {
		v.marker = string(GeneMarker)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	if v.reporter == nil {
		v.reporter = logReporter{logger: v.logger}
	}
	if v.schema == nil {
		v.schema = DefaultSchemaBuilder
	}
	return v
}

// ValidateGeneFields returns the gene column names of a source, in column
// order, or the first validation error.
func (v *Validator) ValidateGeneFields(ctx context.Context, definition, content *table.Table, ignoreDuplicates bool) ([]string, error) {
	res, err := v.Check(ctx, definition, content, ignoreDuplicates)
	if err != nil {
		return nil, err
	}
	return res.GeneFields, nil
}

// Check is ValidateGeneFields returning the duplicate findings as well.
// Findings are populated on success when duplicates were ignored.
func (v *Validator) Check(ctx context.Context, definition, content *table.Table, ignoreDuplicates bool) (Result, error) {
	genes := DiscoverGeneFields(definition, v.marker)

	if err := ValidateGeneNames(genes); err != nil {
		v.logger.ErrorContext(ctx, "gene field validation failed", "error", err)
		return Result{}, err
	}

	findings, err := FindDuplicates(content, genes, ignoreDuplicates)
	if err != nil {
		v.logger.ErrorContext(ctx, "gene field validation failed", "error", err)
		return Result{}, err
	}

	if !ignoreDuplicates && !findings.Empty() {
		v.reporter.ReportDuplicates(ctx, findings)
		err := &DuplicateAccessionsError{Findings: findings}
		v.logger.ErrorContext(ctx, "gene field validation failed", "error", err)
		return Result{}, err
	}

	if !findings.Empty() {
		v.logger.WarnContext(ctx, "duplicate accessions ignored",
			"intra_genic", len(findings.IntraGenic),
			"inter_genic", len(findings.InterGenic),
		)
	}

	s, err := v.schema(genes)
	if err != nil {
		return Result{}, err
	}
	if err := s.Validate(content); err != nil {
		v.logger.ErrorContext(ctx, "gene schema validation failed", "error", err)
		return Result{}, err
	}

	v.logger.DebugContext(ctx, "gene fields validated", "genes", len(genes), "rows", content.Len())
	return Result{GeneFields: genes, Findings: findings}, nil
}

// logReporter writes findings as structured log records only.
type logReporter struct {
	logger *slog.Logger
}

func (r logReporter) ReportDuplicates(ctx context.Context, findings DuplicateFindings) {
	for _, d := range findings.IntraGenic {
		r.logger.ErrorContext(ctx, "duplicated accessions in gene", "gene", d.Gene, "accessions", d.Accessions)
	}
	for _, d := range findings.SortedInterGenic() {
		r.logger.ErrorContext(ctx, "inter genic duplication", "gene", d.Gene, "accession", d.Accession)
	}
}
