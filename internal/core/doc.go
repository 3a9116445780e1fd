// Package core checks the gene fields of reference sources.
//
// A reference source is a table whose first row names the columns and whose
// second row, the definition row, marks the role of each column. Columns
// marked GENE hold accessions, one per content row.
//
// # Validation
//
// [Validator.ValidateGeneFields] discovers the gene columns, checks that
// every name has the form LOC-NAME (three ASCII letters, a dash, one or more
// ASCII letters or digits), scans for duplicate accessions, and finally
// hands the gene columns to a schema:
//
//	v := core.NewValidator(core.ValidatorConfig{Reporter: console})
//	genes, err := v.ValidateGeneFields(ctx, src.Definition, src.Content, false)
//
// Two kinds of duplicates are detected. An intra-genic duplicate is an
// accession repeated within one gene column. An inter-genic duplicate is an
// accession occurring exactly once in a column that already occurred,
// exactly once, in an earlier gene column. Unless duplicates are ignored,
// any finding is sent to the [Reporter] and fails the validation with
// [DuplicateAccessionsError].
//
// # Service
//
// [Service] wraps the validator for the HTTP server and the CLI: it reads
// the source, bounds concurrency with a [Limiter], and records each run in
// an optional [RunStore].
//
// # Error Handling
//
// Errors are typed ([GeneNameError], [DuplicateAccessionsError],
// [MissingColumnError]) and mapped to coded user messages by [MapError]:
//
//   - GENE001-GENE004: gene name and duplicate errors
//   - SCH001: schema violations
//   - SRC001-SRC004: unreadable sources
//   - VAL001, RUN001-RUN002, RATE001, REQ001: service errors
package core
