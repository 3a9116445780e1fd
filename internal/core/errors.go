package core

import (
	"errors"
	"fmt"
)

// Gene-field validation errors. Use errors.Is to test for them.
var (
	ErrInvalidGeneName       = errors.New("invalid gene name")
	ErrInvalidGeneMarkerName = errors.New("invalid gene marker name")
	ErrDuplicateAccessions   = errors.New("duplicate accessions found")
)

// skipDuplicatesHint is appended to duplicate errors so the caller knows how
// to proceed when the duplication is intentional.
const skipDuplicatesHint = "check the log for details; if the duplication is intentional, re-run with --skip-duplicates"

// GeneNameError reports a gene column whose name is malformed.
// Err is ErrInvalidGeneName or ErrInvalidGeneMarkerName.
type GeneNameError struct {
	Gene string
	Err  error
}

func (e *GeneNameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Gene)
}

func (e *GeneNameError) Unwrap() error {
	return e.Err
}

// DuplicateAccessionsError is returned when duplicate accessions gate the
// validation. Findings holds everything the scan detected.
type DuplicateAccessionsError struct {
	Findings DuplicateFindings
}

func (e *DuplicateAccessionsError) Error() string {
	return fmt.Sprintf("%s (%d intra-genic, %d inter-genic): %s",
		ErrDuplicateAccessions, len(e.Findings.IntraGenic), len(e.Findings.InterGenic), skipDuplicatesHint)
}

func (e *DuplicateAccessionsError) Is(target error) bool {
	return target == ErrDuplicateAccessions
}

// MissingColumnError reports a gene column declared in the definition row
// but absent from the content rows.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column not found: %s", e.Column)
}

// ErrRunNotFound is returned when a validation run ID is unknown to the
// history store.
var ErrRunNotFound = errors.New("run not found")

// ErrHistoryDisabled is returned by history queries when no run store is
// configured.
var ErrHistoryDisabled = errors.New("run history is disabled")

// ErrInvalidRequest wraps malformed request input such as an unparseable run
// ID or query parameter.
var ErrInvalidRequest = errors.New("invalid request")
