// Package match scores saved and external query candidates against an
// extracted keyword set and ranks them by similarity.
package match

import (
	"sort"
	"strings"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

const (
	// InclusionThreshold is the minimum similarity (exclusive) for a candidate
	// to appear in the ranking at all. Anything at or below it is noise.
	InclusionThreshold = 0.3

	// SelectionThreshold is the minimum similarity (inclusive) for the top
	// match to be adapted and executed rather than merely listed as an
	// alternative next to a synthesized query.
	SelectionThreshold = 0.5

	// MaxAlternatives is how many runner-up matches are surfaced in provenance.
	MaxAlternatives = 3
)

// Rank scores every candidate against the keyword set and returns the
// matches above the inclusion threshold, sorted descending by similarity.
// The sort is stable: ties keep discovery order, locals before externals.
// An empty keyword set yields no matches — scoring normalizes by keyword
// count, so there is nothing meaningful to rank.
func Rank(keywords []string, locals, externals []domain.Candidate) []domain.PatternMatch {
	if len(keywords) == 0 {
		return nil
	}

	var matches []domain.PatternMatch
	consider := func(c domain.Candidate) {
		total, matched := score(keywords, &c)
		similarity := total / float64(len(keywords))
		if similarity > 1.0 {
			similarity = 1.0
		}
		if similarity <= InclusionThreshold {
			return
		}
		matches = append(matches, domain.PatternMatch{
			Candidate:       c,
			Similarity:      similarity,
			MatchedKeywords: matched,
		})
	}

	for _, c := range locals {
		consider(c)
	}
	for _, c := range externals {
		consider(c)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches
}

// score sums the weighted bucket hits for one candidate. A keyword may earn
// credit from several buckets of the same candidate (tag + description + KQL
// body compound); each bucket pays out at most once per keyword.
func score(keywords []string, c *domain.Candidate) (float64, []string) {
	var total float64
	var matched []string

	for _, kw := range keywords {
		hit := false
		for _, b := range c.MatchBuckets() {
			if bucketMatches(&b, kw) {
				total += b.Weight
				hit = true
			}
		}
		if hit {
			matched = append(matched, kw)
		}
	}

	return total, matched
}

func bucketMatches(b *domain.MatchBucket, keyword string) bool {
	if b.Terms != nil {
		for _, term := range b.Terms {
			// Both directions: "errors" should hit the tag "error" and vice versa.
			if strings.Contains(term, keyword) || strings.Contains(keyword, term) {
				return true
			}
		}
		return false
	}
	return strings.Contains(b.Text, keyword)
}
