package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Source errors. Their texts are matched by core.MapError.
var (
	ErrEmptySource       = errors.New("empty file")
	ErrMissingDefinition = errors.New("missing definition row")
	ErrInvalidCSV        = errors.New("invalid csv")
)

// candidateDelimiters are tried, in order, when ReadOptions.Delimiter is 0.
var candidateDelimiters = []rune{',', ';', '\t'}

// maxSniffBytes bounds how much of the source is inspected to pick a delimiter.
const maxSniffBytes = 64 * 1024

// ReadOptions controls how a reference source is parsed.
type ReadOptions struct {
	// Delimiter separating cells. If 0, it is detected from the header line.
	Delimiter rune
	// MaxBytes rejects sources larger than this many bytes; 0 means unlimited.
	MaxBytes int64
}

// Source is a parsed reference source: the header, the single definition row
// declaring column roles, and the content rows.
type Source struct {
	Definition *Table
	Content    *Table
}

// ReadSource parses a delimited reference source.
//
// Layout:
//
//	row 1      column names
//	row 2      definition markers (e.g. GENE under every gene column)
//	row 3..n   content rows
//
// Cells are cleaned with CleanCell and missing-value spellings become "".
func ReadSource(r io.Reader, opts ReadOptions) (*Source, error) {
	br, err := wrapSource(r, opts.MaxBytes)
	if err != nil {
		return nil, err
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim, err = sniffDelimiter(br)
		if err != nil {
			return nil, err
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	if len(records) == 0 {
		return nil, ErrEmptySource
	}
	if len(records) < 2 {
		return nil, ErrMissingDefinition
	}
	records = append(records[:2], dropBlankRecords(records[2:])...)

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = CleanCell(h)
	}
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}

	body := make([][]string, len(records)-1)
	for i, rec := range records[1:] {
		row := make([]string, len(rec))
		for j, cell := range rec {
			row[j] = normalizeCell(cell)
		}
		body[i] = row
	}

	definition, err := New(header, body[:1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	content, err := New(header, body[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	return &Source{Definition: definition, Content: content}, nil
}

// ParseDelimiter converts a user-supplied delimiter name to a rune.
// Accepts a single character or one of "comma", "semicolon", "tab".
// An empty string returns 0, meaning auto-detect.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "tab", `\t`:
		return '\t', nil
	}
	runes := []rune(s)
	if len(runes) != 1 || runes[0] == '"' || runes[0] == '\r' || runes[0] == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return runes[0], nil
}

// sniffDelimiter picks the candidate delimiter occurring most often in the
// first line. Ties resolve in candidateDelimiters order; comma is the default.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	head, err := br.Peek(maxSniffBytes)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		if errors.Is(err, ErrFileTooLarge) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	line := string(head)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}

	best, bestCount := candidateDelimiters[0], 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best, nil
}

// dropBlankRecords removes records whose cells are all blank.
func dropBlankRecords(records [][]string) [][]string {
	out := records[:0]
	for _, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
