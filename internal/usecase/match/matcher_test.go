package match

import (
	"testing"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

func local(name, purpose, kql string, tags []string) domain.Candidate {
	return domain.NewLocalCandidate("test", name, purpose, "", kql, tags)
}

func TestRank_EmptyKeywords(t *testing.T) {
	c := local("errors", "find errors", "traces | take 10", []string{"error"})

	if got := Rank(nil, []domain.Candidate{c}, nil); got != nil {
		t.Fatalf("expected no matches for empty keyword set, got %d", len(got))
	}
}

func TestRank_InclusionThreshold(t *testing.T) {
	// Three keywords hitting only the 0.3 KQL bucket: similarity is exactly
	// the inclusion threshold, so the candidate must be excluded.
	excluded := local("x", "", "traces | where alpha and beta and gamma", nil)

	// One tag hit out of three keywords: 1.0/3 ≈ 0.33 clears the threshold.
	included := local("y", "", "requests | take 1", []string{"alpha"})

	keywords := []string{"alpha", "beta", "gamma"}
	got := Rank(keywords, []domain.Candidate{excluded, included}, nil)

	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Candidate.SourceLabel() != "local:test/y" {
		t.Fatalf("expected the tag-hit candidate, got %s", got[0].Candidate.SourceLabel())
	}
	if got[0].Similarity <= InclusionThreshold {
		t.Fatalf("included match must exceed the inclusion threshold, got %f", got[0].Similarity)
	}
}

func TestRank_BucketCompounding(t *testing.T) {
	// One keyword hitting tag + description + KQL compounds to 1.8/1,
	// clamped to 1.0.
	c := local("error report", "error analysis", "traces | where message has 'error'", []string{"error"})

	got := Rank([]string{"error"}, []domain.Candidate{c}, nil)

	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Similarity != 1.0 {
		t.Fatalf("expected similarity clamped to 1.0, got %f", got[0].Similarity)
	}
}

func TestRank_TagContainmentBothDirections(t *testing.T) {
	// Keyword "errors" must hit the shorter tag "error", and keyword "24h"
	// must hit the longer tag "last-24h".
	c := local("x", "", "requests | take 1", []string{"error", "last-24h"})

	got := Rank([]string{"errors", "24h"}, []domain.Candidate{c}, nil)

	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Similarity != 1.0 {
		t.Fatalf("expected both keywords to hit tags (2.0/2), got %f", got[0].Similarity)
	}
	if len(got[0].MatchedKeywords) != 2 {
		t.Fatalf("expected 2 matched keywords, got %v", got[0].MatchedKeywords)
	}
}

func TestRank_StableOrderOnTies(t *testing.T) {
	// Identical scoring shape: a single tag hit each. Discovery order must
	// be preserved — locals in list order, then the external.
	first := local("first", "", "requests | take 1", []string{"alpha"})
	second := local("second", "", "requests | take 1", []string{"alpha"})
	ext := domain.NewExternalCandidate("ref", "alpha-things", "irrelevant body")

	got := Rank([]string{"alpha", "beta"}, []domain.Candidate{first, second}, []domain.Candidate{ext})

	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	wantOrder := []string{"local:test/first", "local:test/second", "external:ref/alpha-things"}
	for i, want := range wantOrder {
		if got[i].Candidate.SourceLabel() != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].Candidate.SourceLabel(), want)
		}
	}
}

func TestRank_ExternalBuckets(t *testing.T) {
	// Filename hit (1.0) + content hit (0.5) over two keywords → 0.75.
	ext := domain.NewExternalCandidate("bctech", "error-dialogs.kql", "traces | where customDimensions.alCategory == 'slow'")

	got := Rank([]string{"error", "slow"}, nil, []domain.Candidate{ext})

	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Similarity != 0.75 {
		t.Fatalf("expected similarity 0.75, got %f", got[0].Similarity)
	}
}

func TestRank_SortsDescending(t *testing.T) {
	weak := local("weak", "", "traces | where alpha", []string{"beta"})
	strong := local("strong", "alpha beta", "traces | where alpha and beta", []string{"alpha", "beta"})

	got := Rank([]string{"alpha", "beta"}, []domain.Candidate{weak, strong}, nil)

	if len(got) < 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].Candidate.SourceLabel() != "local:test/strong" {
		t.Fatalf("expected strongest match first, got %s", got[0].Candidate.SourceLabel())
	}
	if got[0].Similarity < got[1].Similarity {
		t.Fatal("matches not sorted descending")
	}
}
