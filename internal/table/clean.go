package table

import "strings"

// missingTokens are cell spellings that mean "no value" in spreadsheet
// exports. They load as the empty string.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"#N/A": {},
	"<NA>": {},
	"NaN":  {},
	"nan":  {},
	"NULL": {},
	"null": {},
	"None": {},
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// IsMissing reports whether a cleaned cell stands for a missing value.
func IsMissing(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

// normalizeCell cleans a raw cell and collapses missing-value spellings to "".
func normalizeCell(raw string) string {
	s := CleanCell(raw)
	if IsMissing(s) {
		return ""
	}
	return s
}
