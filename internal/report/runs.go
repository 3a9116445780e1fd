package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// WriteRuns prints recorded runs as a table, newest first as given.
// Ages are relative to now.
func WriteRuns(w io.Writer, runs []core.Run, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}

	t := newTable(w, "ID", "Source", "Status", "Genes", "Rows", "Code", "Age")
	for _, r := range runs {
		t.Append([]string{
			r.ID.String(),
			r.SourceName,
			string(r.Status),
			fmt.Sprint(len(r.GeneFields)),
			humanize.Comma(int64(r.RowCount)),
			r.ErrorCode,
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
		})
	}
	t.Render()
}

// WriteRun prints the outcome of a single validation. Passing runs list the
// gene fields one per line so the output can be piped.
func WriteRun(w io.Writer, run *core.Run, noColor bool) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	faint := color.New(color.Faint)
	if noColor {
		ok.DisableColor()
		bad.DisableColor()
		faint.DisableColor()
	}

	if run.Status == core.RunPassed {
		fmt.Fprintf(w, "%s %s (%s rows, %d gene fields)\n",
			ok.Sprint("passed"), run.SourceName, humanize.Comma(int64(run.RowCount)), len(run.GeneFields))
		for _, g := range run.GeneFields {
			fmt.Fprintln(w, g)
		}
		if n := len(run.Findings.IntraGenic) + len(run.Findings.InterGenic); n > 0 {
			fmt.Fprintln(w, faint.Sprintf("%d duplicate %s ignored", n, plural(n, "finding", "findings")))
		}
		return
	}

	fmt.Fprintf(w, "%s %s [%s]\n", bad.Sprint("failed"), run.SourceName, run.ErrorCode)
	fmt.Fprintln(w, strings.TrimSpace(run.ErrorMessage))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
