package adapt

import "testing"

func TestSynthesize_WeekOfTraces(t *testing.T) {
	got := Synthesize("what happened last week")

	want := "traces | where timestamp > ago(7d) | take 100"
	if got != want {
		t.Fatalf("unexpected KQL:\ngot:  %s\nwant: %s", got, want)
	}
}

func TestSynthesize_TableSelection(t *testing.T) {
	cases := []struct {
		intent string
		want   string
	}{
		{"pageview stats", "pageViews"},
		{"page view counts", "pageViews"},
		{"slow requests", "requests"},
		{"which page is popular", "requests"},
		{"database calls", "dependencies"},
		{"long running sql", "dependencies"},
		{"exception details", "exceptions"},
		{"anything else", "traces"},
	}

	for _, tc := range cases {
		t.Run(tc.intent, func(t *testing.T) {
			got := Synthesize(tc.intent)
			if table := got[:len(tc.want)]; table != tc.want {
				t.Fatalf("expected table %s, got query %s", tc.want, got)
			}
		})
	}
}

func TestSynthesize_SeverityFilters(t *testing.T) {
	got := Synthesize("errors in the last hour")
	want := "traces | where timestamp > ago(1h) | where severityLevel >= 3 | take 100"
	if got != want {
		t.Fatalf("unexpected KQL:\ngot:  %s\nwant: %s", got, want)
	}

	got = Synthesize("warnings today")
	want = "traces | where timestamp > ago(1d) | where severityLevel >= 2 | take 100"
	if got != want {
		t.Fatalf("unexpected KQL:\ngot:  %s\nwant: %s", got, want)
	}
}

func TestSynthesize_EmptyIntentStillWellFormed(t *testing.T) {
	got := Synthesize("")

	want := "traces | where timestamp > ago(1d) | take 100"
	if got != want {
		t.Fatalf("unexpected KQL:\ngot:  %s\nwant: %s", got, want)
	}
}
