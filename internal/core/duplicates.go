package core

import "github.com/JonMunkholm/genecheck/internal/table"

// columnCounts holds a column's non-missing values in first-seen order
// together with how often each occurs.
type columnCounts struct {
	order  []string
	counts map[string]int
}

func countColumn(cells []string) columnCounts {
	cc := columnCounts{counts: make(map[string]int, len(cells))}
	for _, v := range cells {
		if v == "" {
			continue
		}
		if cc.counts[v] == 0 {
			cc.order = append(cc.order, v)
		}
		cc.counts[v]++
	}
	return cc
}

// FindDuplicates scans the gene columns of content in the order given.
//
// Accessions occurring more than once in a column are intra-genic duplicates
// of that column. Accessions occurring exactly once are the column's unique
// values: each one already in the running cross-column set is an inter-genic
// duplicate, unless ignoreDuplicates is set. The column's unique values are
// then added to the running set. Empty cells are not accessions.
//
// Every gene must be a column of content.
func FindDuplicates(content *table.Table, genes []string, ignoreDuplicates bool) (DuplicateFindings, error) {
	var findings DuplicateFindings
	seen := make(map[string]struct{})

	for _, gene := range genes {
		cells, ok := content.Column(gene)
		if !ok {
			return DuplicateFindings{}, &MissingColumnError{Column: gene}
		}
		cc := countColumn(cells)

		var repeated, uniques []string
		for _, v := range cc.order {
			if cc.counts[v] > 1 {
				repeated = append(repeated, v)
			} else {
				uniques = append(uniques, v)
			}
		}

		if len(repeated) > 0 {
			findings.IntraGenic = append(findings.IntraGenic, IntraGenicDuplicate{
				Gene:       gene,
				Accessions: repeated,
			})
		}

		if !ignoreDuplicates {
			for _, v := range uniques {
				if _, dup := seen[v]; dup {
					findings.InterGenic = append(findings.InterGenic, InterGenicDuplicate{
						Gene:      gene,
						Accession: v,
					})
				}
			}
		}

		for _, v := range uniques {
			seen[v] = struct{}{}
		}
	}

	return findings, nil
}
