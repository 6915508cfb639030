// Package adapt rewrites a matched pattern's KQL to fit a new request and
// synthesizes a minimal query when no pattern is good enough to reuse.
package adapt

import "strings"

// window is one recognized relative time range. Rules are checked in order
// and the first phrase hit wins, so "last 24 hours" binds to 1d before the
// broader week/month phrases get a chance.
type window struct {
	phrases     []string
	ago         string
	description string
}

var windows = []window{
	{phrases: []string{"24 hour", "24h", "last day", "yesterday"}, ago: "1d", description: "Changed time range to 24 hours"},
	{phrases: []string{"last hour", "past hour", "1 hour", "hourly"}, ago: "1h", description: "Changed time range to 1 hour"},
	{phrases: []string{"week", "7 day", "7d"}, ago: "7d", description: "Changed time range to 7 days"},
	{phrases: []string{"month", "30 day", "30d"}, ago: "30d", description: "Changed time range to 30 days"},
}

// matchWindow returns the first window whose phrase occurs in the
// lower-cased intent, or nil when the intent names no recognized range.
func matchWindow(lowerIntent string) *window {
	for i := range windows {
		for _, p := range windows[i].phrases {
			if strings.Contains(lowerIntent, p) {
				return &windows[i]
			}
		}
	}
	return nil
}
