package domain

// TableResult is the tabular payload returned by the analytics backend.
type TableResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// OutcomeType discriminates success from error outcomes.
type OutcomeType string

const (
	// OutcomeSuccess marks a query that executed (or was served from cache).
	OutcomeSuccess OutcomeType = "success"
	// OutcomeError marks a query that failed validation, auth, or execution.
	OutcomeError OutcomeType = "error"
)

// Outcome is the typed result every query entry point returns.
// Request-fatal failures are converted into an error outcome here rather than
// propagated, so callers always receive a parseable object.
type Outcome struct {
	Type       OutcomeType  `json:"type"`
	KQL        string       `json:"kql,omitempty"`
	Result     *TableResult `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
	FromCache  bool         `json:"from_cache"`
	Provenance *Provenance  `json:"pattern,omitempty"`
}
