package adapt

import (
	"strconv"
	"strings"
)

// fallbackRowCap bounds synthesized queries so an unscoped intent cannot
// pull an unbounded result set.
const fallbackRowCap = 100

// tableRule maps intent vocabulary to a base telemetry table. Checked in
// order; "pageview" precedes the "page"→requests rule so the pageViews
// table stays reachable.
type tableRule struct {
	phrases []string
	table   string
}

var tableRules = []tableRule{
	{phrases: []string{"pageview", "page view"}, table: "pageViews"},
	{phrases: []string{"request", "page"}, table: "requests"},
	{phrases: []string{"dependency", "database", "sql"}, table: "dependencies"},
	{phrases: []string{"exception"}, table: "exceptions"},
}

// Synthesize builds a minimal executable KQL query straight from the intent
// vocabulary. Used when no saved or external pattern clears the selection
// threshold. The output always names a base table, filters on a time window
// (1 day when the intent names none), and caps the row count, so it is
// well-formed even for an intent with zero recognized vocabulary.
func Synthesize(intentText string) string {
	lower := strings.ToLower(intentText)

	table := "traces"
	for _, r := range tableRules {
		if containsAny(lower, r.phrases) {
			table = r.table
			break
		}
	}

	ago := "1d"
	if w := matchWindow(lower); w != nil {
		ago = w.ago
	}

	var b strings.Builder
	b.WriteString(table)
	b.WriteString(" | where timestamp > ago(")
	b.WriteString(ago)
	b.WriteString(")")

	switch {
	case strings.Contains(lower, "error"):
		b.WriteString(" | where severityLevel >= 3")
	case strings.Contains(lower, "warning"):
		b.WriteString(" | where severityLevel >= 2")
	}

	b.WriteString(" | take ")
	b.WriteString(strconv.Itoa(fallbackRowCap))
	return b.String()
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
