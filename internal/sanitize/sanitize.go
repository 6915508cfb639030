// Package sanitize redacts personally identifiable information from query
// result payloads before they leave the process. Redaction is pure and
// idempotent: sanitizing twice yields the same output.
package sanitize

import "regexp"

// redaction is one PII pattern and its replacement marker.
type redaction struct {
	re   *regexp.Regexp
	repl string
}

var redactions = []redaction{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`), "[GUID]"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "[IP]"},
	{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`), "[TOKEN]"},
	// BC user security IDs appear as S-1-5-... SIDs in some telemetry dimensions.
	{regexp.MustCompile(`\bS-1-\d+(?:-\d+)+\b`), "[SID]"},
}

// String redacts every PII pattern in a single string.
func String(s string) string {
	for _, r := range redactions {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// Value redacts every string leaf of an arbitrarily nested payload of
// strings, numbers, maps, and slices. Non-string leaves pass through
// untouched; containers are rewritten in place.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case []any:
		for i, e := range t {
			t[i] = Value(e)
		}
		return t
	case [][]any:
		for i, row := range t {
			for j, e := range row {
				row[j] = Value(e)
			}
			t[i] = row
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = Value(e)
		}
		return t
	default:
		return v
	}
}

// Rows redacts every string cell of a tabular result's rows.
func Rows(rows [][]any) [][]any {
	for i, row := range rows {
		for j, cell := range row {
			rows[i][j] = Value(cell)
		}
	}
	return rows
}
