package core

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RowOption is a value a definition-row cell can take to declare the role
// of its column.
type RowOption string

// GeneMarker marks a gene column in the definition row.
const GeneMarker RowOption = "GENE"

// GeneName is a parsed gene field name of the form LOC-NAME.
type GeneName struct {
	Location string // Exactly three letters
	Name     string // One or more letters or digits
}

// IntraGenicDuplicate lists the accessions repeated inside one gene column.
// Each accession appears once, in first-seen order.
type IntraGenicDuplicate struct {
	Gene       string   `json:"gene"`
	Accessions []string `json:"accessions"`
}

// InterGenicDuplicate is an accession that is unique within Gene but was
// already seen, uniquely, in an earlier gene column.
type InterGenicDuplicate struct {
	Gene      string `json:"gene"`
	Accession string `json:"accession"`
}

// DuplicateFindings is the outcome of a duplicate scan.
type DuplicateFindings struct {
	IntraGenic []IntraGenicDuplicate `json:"intraGenic"`
	InterGenic []InterGenicDuplicate `json:"interGenic"`
}

// Empty reports whether no duplicates of either kind were found.
func (f DuplicateFindings) Empty() bool {
	return len(f.IntraGenic) == 0 && len(f.InterGenic) == 0
}

// SortedInterGenic returns the inter-genic pairs sorted by gene, then accession.
func (f DuplicateFindings) SortedInterGenic() []InterGenicDuplicate {
	out := append([]InterGenicDuplicate(nil), f.InterGenic...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Gene != out[j].Gene {
			return out[i].Gene < out[j].Gene
		}
		return out[i].Accession < out[j].Accession
	})
	return out
}

// Result is the successful outcome of a gene-field check. Findings may be
// non-empty when duplicates were ignored.
type Result struct {
	GeneFields []string
	Findings   DuplicateFindings
}

// RunStatus is the outcome of a recorded validation run.
type RunStatus string

const (
	RunPassed RunStatus = "passed"
	RunFailed RunStatus = "failed"
)

// Run is one validation of a reference source, as recorded in history.
type Run struct {
	ID               uuid.UUID         `json:"id"`
	SourceName       string            `json:"sourceName"`
	Origin           string            `json:"origin,omitempty"`
	IgnoreDuplicates bool              `json:"ignoreDuplicates"`
	Status           RunStatus         `json:"status"`
	GeneFields       []string          `json:"geneFields"`
	RowCount         int               `json:"rowCount"`
	Findings         DuplicateFindings `json:"findings"`
	ErrorCode        string            `json:"errorCode,omitempty"`
	ErrorMessage     string            `json:"errorMessage,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}
