package core

import (
	"strings"

	"github.com/JonMunkholm/genecheck/internal/table"
)

// geneLocationLen is the required length of the LOC part of a gene name.
const geneLocationLen = 3

// DiscoverGeneFields returns, in table order, the columns of the definition
// table holding marker in any row.
func DiscoverGeneFields(definition *table.Table, marker string) []string {
	genes := []string{}
	for _, col := range definition.Columns() {
		cells, _ := definition.Column(col)
		for _, cell := range cells {
			if cell == marker {
				genes = append(genes, col)
				break
			}
		}
	}
	return genes
}

// ParseGeneName splits a gene column name into location and name.
//
// The name must split on '-' into exactly two non-empty parts, else the
// error wraps ErrInvalidGeneName. The location must be three ASCII letters
// and the name ASCII letters or digits, else it wraps ErrInvalidGeneMarkerName.
func ParseGeneName(gene string) (GeneName, error) {
	parts := strings.Split(gene, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return GeneName{}, &GeneNameError{Gene: gene, Err: ErrInvalidGeneName}
	}

	location, name := parts[0], parts[1]
	if !isAlpha(location) || !isAlnum(name) || len(location) != geneLocationLen {
		return GeneName{}, &GeneNameError{Gene: gene, Err: ErrInvalidGeneMarkerName}
	}

	return GeneName{Location: location, Name: name}, nil
}

// ValidateGeneNames checks every name in order and returns the first failure.
func ValidateGeneNames(genes []string) error {
	for _, gene := range genes {
		if _, err := ParseGeneName(gene); err != nil {
			return err
		}
	}
	return nil
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; !isLetter(c) && !('0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
