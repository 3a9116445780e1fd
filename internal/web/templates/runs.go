// Package templates renders the HTML views of validation runs.
package templates

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
)

const stylesheet = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:60rem;color:#1f2937}
table{border-collapse:collapse;margin:.5rem 0 1.5rem}
th,td{border:1px solid #d1d5db;padding:.25rem .75rem;text-align:left}
th{background:#f3f4f6}
.passed{color:#047857}.failed{color:#b91c1c}
.alert{border:1px solid #fca5a5;background:#fef2f2;padding:.75rem 1rem;border-radius:.25rem}
.muted{color:#6b7280}`

// html accumulates the first write error so markup can be emitted without
// checking every call.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) cell(tag, s string) {
	h.raw("<" + tag + ">")
	h.text(s)
	h.raw("</" + tag + ">")
}

// RunPage is the full report of one run.
func RunPage(run *core.Run, now time.Time) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		h.text(run.SourceName + " - genecheck")
		h.raw(`</title><style>` + stylesheet + `</style></head><body>`)
		if h.err != nil {
			return h.err
		}

		if err := RunCard(run).Render(ctx, w); err != nil {
			return err
		}

		h.raw(`<p class="muted">Run `)
		h.text(run.ID.String())
		h.raw(` recorded `)
		h.text(humanize.RelTime(run.CreatedAt, now, "ago", "from now"))
		if run.Origin != "" {
			h.raw(` from `)
			h.text(run.Origin)
		}
		h.raw(`</p></body></html>`)
		return h.err
	})
}

// RunCard summarises a run and lists its duplicate findings. It is served
// alone as the HTMX response to an upload.
func RunCard(run *core.Run) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section id="run-`)
		h.text(run.ID.String())
		h.raw(`"><h1 class="`)
		h.text(string(run.Status))
		h.raw(`">`)
		h.text(string(run.Status) + ": " + run.SourceName)
		h.raw(`</h1><p>`)
		h.text(humanize.Comma(int64(run.RowCount)) + " rows, " + strconv.Itoa(len(run.GeneFields)) + " gene fields")
		if run.IgnoreDuplicates {
			h.raw(`, duplicates ignored`)
		}
		h.raw(`</p>`)

		if run.Status == core.RunFailed {
			h.raw(`<p class="alert">`)
			if run.ErrorCode != "" {
				h.cell("strong", run.ErrorCode)
				h.raw(` `)
			}
			h.text(run.ErrorMessage)
			h.raw(`</p>`)
		}

		if len(run.GeneFields) > 0 {
			h.raw(`<h2>Gene fields</h2><ul>`)
			for _, g := range run.GeneFields {
				h.cell("li", g)
			}
			h.raw(`</ul>`)
		}

		writeFindings(h, run.Findings)
		h.raw(`</section>`)
		return h.err
	})
}

func writeFindings(h *html, f core.DuplicateFindings) {
	for _, d := range f.IntraGenic {
		h.raw(`<h2>Duplicated accessions in gene `)
		h.text(d.Gene)
		h.raw(`</h2><table><thead><tr><th>Accession</th></tr></thead><tbody>`)
		for _, acc := range d.Accessions {
			h.raw(`<tr>`)
			h.cell("td", acc)
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
	}

	if len(f.InterGenic) == 0 {
		return
	}
	h.raw(`<h2>Inter genic duplications</h2><table><thead><tr><th>Gene</th><th>Accession</th></tr></thead><tbody>`)
	for _, d := range f.SortedInterGenic() {
		h.raw(`<tr>`)
		h.cell("td", d.Gene)
		h.cell("td", d.Accession)
		h.raw(`</tr>`)
	}
	h.raw(`</tbody></table>`)
}

// ErrorAlert is an HTMX error fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert" role="alert"><p>`)
		h.text(message)
		if code != "" {
			h.raw(` <span class="muted">(`)
			h.text(code)
			h.raw(`)</span>`)
		}
		h.raw(`</p>`)
		if action != "" {
			h.cell("p", action)
		}
		h.raw(`</div>`)
		return h.err
	})
}
