package adapt

import (
	"regexp"
	"strings"
)

// Result is the outcome of adapting a pattern: the (possibly rewritten)
// KQL and a human-readable description of each rewrite applied. When no
// rule fired, KQL equals the input verbatim and Modifications is empty.
type Result struct {
	KQL           string
	Modifications []string
}

// agoLiteral matches relative-time literals like ago(7d), ago( 24h ), ago(90m).
var agoLiteral = regexp.MustCompile(`ago\(\s*\d+[smhd]\s*\)`)

const severityFilterStage = "where severityLevel >= 3"

// Apply rewrites a matched pattern's KQL for the given intent.
//
// Two independent rules:
//  1. Time range — if the intent names a recognized window and the KQL
//     contains ago() literals, every literal is replaced with that window.
//     Only the highest-priority window fires. An intent naming no window
//     leaves the pattern's original range untouched: adaptation is
//     intent-driven, never time-window-inferring.
//  2. Error severity — if the intent mentions errors and the KQL does not
//     already reference a severity field, a severity filter is inserted
//     immediately before the first timestamp filter stage. No-op when the
//     pipeline has no such stage to anchor on.
func Apply(kql, intentText string) Result {
	lower := strings.ToLower(intentText)
	out := kql
	var mods []string

	if w := matchWindow(lower); w != nil && agoLiteral.MatchString(out) {
		out = agoLiteral.ReplaceAllString(out, "ago("+w.ago+")")
		mods = append(mods, w.description)
	}

	if strings.Contains(lower, "error") && !strings.Contains(strings.ToLower(out), "severitylevel") {
		if rewritten, ok := injectSeverityFilter(out); ok {
			out = rewritten
			mods = append(mods, "Added error severity filter")
		}
	}

	return Result{KQL: out, Modifications: mods}
}

// injectSeverityFilter inserts a severity stage before the first pipeline
// stage that filters on timestamp. The KQL is treated as opaque stages split
// on '|' and matched by stage kind, so incidental whitespace differences in
// the pattern do not defeat the rewrite. Returns false when the pipeline has
// no timestamp filter stage to anchor on.
func injectSeverityFilter(kql string) (string, bool) {
	stages := strings.Split(kql, "|")
	for i, stage := range stages {
		trimmed := strings.TrimSpace(stage)
		if !strings.HasPrefix(strings.ToLower(trimmed), "where") {
			continue
		}
		if !strings.Contains(strings.ToLower(trimmed), "timestamp") {
			continue
		}

		rebuilt := make([]string, 0, len(stages)+1)
		rebuilt = append(rebuilt, stages[:i]...)
		rebuilt = append(rebuilt, " "+severityFilterStage+" ")
		rebuilt = append(rebuilt, stages[i:]...)
		return strings.Join(rebuilt, "|"), true
	}
	return kql, false
}
