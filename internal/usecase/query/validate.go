package query

import "strings"

// destructiveVerbs are the KQL control commands a read-only telemetry bridge
// must never forward. The check is a coarse substring scan performed just
// before execution; it is a safety net, not a parser.
var destructiveVerbs = []string{
	".drop",
	".delete",
	".clear",
	".purge",
	".ingest",
	".alter",
	".set-or-replace",
}

// destructiveConstructs returns the control verbs found in the query,
// in the order they are defined. Empty means the query may execute.
func destructiveConstructs(kql string) []string {
	lower := strings.ToLower(kql)
	var found []string
	for _, verb := range destructiveVerbs {
		if strings.Contains(lower, verb) {
			found = append(found, verb)
		}
	}
	return found
}
