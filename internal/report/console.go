// Package report renders validation findings and run history for people:
// tables on a terminal, structured records in the log.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Options configures a Console.
type Options struct {
	Out     io.Writer    // Table output; nil logs only
	Logger  *slog.Logger // Default: slog.Default()
	NoColor bool
}

// Console is a core.Reporter printing one table per duplicate report.
// Each report block is written under a lock so concurrent reports do not
// interleave.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger

	title *color.Color
	gene  *color.Color
}

var _ core.Reporter = (*Console)(nil)

// NewConsole creates a Console from opts.
func NewConsole(opts Options) *Console {
	c := &Console{
		out:    opts.Out,
		logger: opts.Logger,
		title:  color.New(color.FgRed, color.Bold),
		gene:   color.New(color.FgYellow),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if opts.NoColor {
		c.title.DisableColor()
		c.gene.DisableColor()
	}
	return c
}

// ReportDuplicates logs every finding and, when an output is set, prints one
// table per gene with intra-genic duplicates followed by a single table of
// inter-genic pairs sorted by gene and accession.
func (c *Console) ReportDuplicates(ctx context.Context, findings core.DuplicateFindings) {
	inter := findings.SortedInterGenic()

	for _, d := range findings.IntraGenic {
		c.logger.ErrorContext(ctx, "duplicated accessions in gene", "gene", d.Gene, "accessions", d.Accessions)
	}
	for _, d := range inter {
		c.logger.ErrorContext(ctx, "inter genic duplication", "gene", d.Gene, "accession", d.Accession)
	}

	if c.out == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range findings.IntraGenic {
		fmt.Fprintf(c.out, "%s %s\n", c.title.Sprint("Duplicated accessions in gene"), c.gene.Sprint(d.Gene))
		t := newTable(c.out, "Accession")
		for _, acc := range d.Accessions {
			t.Append([]string{acc})
		}
		t.Render()
		fmt.Fprintln(c.out)
	}

	if len(inter) > 0 {
		fmt.Fprintln(c.out, c.title.Sprint("Inter genic duplications"))
		t := newTable(c.out, "Gene", "Accession")
		for _, d := range inter {
			t.Append([]string{d.Gene, d.Accession})
		}
		t.Render()
		fmt.Fprintln(c.out)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	t.SetCenterSeparator("|")
	return t
}
