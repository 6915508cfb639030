// Package intent maps free-text requests onto the fixed telemetry keyword
// vocabulary used for pattern matching and query synthesis.
package intent

import "strings"

// rule maps trigger phrases to the keyword bundle they contribute.
// Matching is case-insensitive substring containment against the intent.
type rule struct {
	phrases  []string
	keywords []string
}

// rules is the fixed, ordered vocabulary. Order matters only for the
// resulting keyword order (first contribution wins a slot); membership
// is what the matcher consumes.
var rules = []rule{
	// Relative time windows.
	{phrases: []string{"24 hour", "24h", "last day", "yesterday"}, keywords: []string{"24h", "recent"}},
	{phrases: []string{"last hour", "past hour", "1 hour", "hourly"}, keywords: []string{"1h", "recent", "hourly"}},
	{phrases: []string{"week", "7 day", "7d"}, keywords: []string{"7d", "weekly"}},
	{phrases: []string{"month", "30 day", "30d"}, keywords: []string{"30d", "monthly"}},

	// Severity and status.
	{phrases: []string{"error"}, keywords: []string{"error", "errors", "severitylevel"}},
	{phrases: []string{"warning"}, keywords: []string{"warning", "warnings", "severitylevel"}},
	{phrases: []string{"exception"}, keywords: []string{"exception", "exceptions", "crash"}},
	{phrases: []string{"fail"}, keywords: []string{"fail", "failed", "error"}},

	// Performance.
	{phrases: []string{"slow"}, keywords: []string{"slow", "performance", "duration"}},
	{phrases: []string{"performance"}, keywords: []string{"performance", "duration"}},
	{phrases: []string{"timeout"}, keywords: []string{"timeout", "duration"}},

	// Telemetry table hints.
	{phrases: []string{"page", "view"}, keywords: []string{"pageviews", "page"}},
	{phrases: []string{"request"}, keywords: []string{"requests", "request", "http"}},
	{phrases: []string{"dependency", "database", "sql"}, keywords: []string{"dependencies", "sql", "database"}},
	{phrases: []string{"trace"}, keywords: []string{"traces", "trace"}},

	// Domain terms.
	{phrases: []string{"business central", "bc"}, keywords: []string{"bc", "business central"}},
	{phrases: []string{"user"}, keywords: []string{"user", "users"}},
	{phrases: []string{"session"}, keywords: []string{"session", "sessions"}},

	// Monitoring terms.
	{phrases: []string{"monitor", "health", "availability"}, keywords: []string{"monitoring", "health", "availability"}},
}

// Extract maps an intent string to its deduplicated keyword set.
// The returned slice preserves first-contribution order so downstream
// consumers are deterministic. An empty intent, or one matching no rule,
// yields an empty set — callers must skip pattern matching in that case,
// since similarity scoring divides by the keyword count.
func Extract(intentText string) []string {
	lower := strings.ToLower(intentText)
	if strings.TrimSpace(lower) == "" {
		return nil
	}

	var keywords []string
	seen := make(map[string]struct{})

	for _, r := range rules {
		for _, p := range r.phrases {
			if !strings.Contains(lower, p) {
				continue
			}
			for _, kw := range r.keywords {
				if _, ok := seen[kw]; ok {
					continue
				}
				seen[kw] = struct{}{}
				keywords = append(keywords, kw)
			}
			break
		}
	}

	return keywords
}
