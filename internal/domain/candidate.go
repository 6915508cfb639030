package domain

import "strings"

// CandidateKind discriminates the origin of a query candidate.
type CandidateKind string

const (
	// CandidateLocal marks a candidate read from the local saved-query library.
	CandidateLocal CandidateKind = "local"
	// CandidateExternal marks a candidate fetched from a configured external reference.
	CandidateExternal CandidateKind = "external"
)

// MatchBucket is one weighted surface a candidate can be matched on.
// When Terms is non-nil the bucket matches by both-direction containment
// against each term (tag semantics); otherwise by substring containment
// against Text. A keyword earns the bucket's weight at most once.
type MatchBucket struct {
	Terms  []string
	Text   string
	Weight float64
}

// Candidate is a historical query considered for reuse against a new intent.
// It is a tagged variant: local candidates carry tags from their saved-query
// definition, external candidates carry the reference name they were fetched
// from. Both expose the same weighted match buckets so the matcher has a
// single scoring path instead of one per origin.
type Candidate struct {
	kind          CandidateKind
	sourceLabel   string
	referenceName string
	kql           string
	buckets       []MatchBucket
	tags          []string
}

// NewLocalCandidate creates a candidate from a saved-query definition.
// Buckets: tags at 1.0 (both-direction containment), name+purpose+use case
// at 0.5, the KQL body at 0.3.
func NewLocalCandidate(category, name, purpose, useCase, kql string, tags []string) Candidate {
	lowered := make([]string, len(tags))
	for i, t := range tags {
		lowered[i] = strings.ToLower(t)
	}
	return Candidate{
		kind:        CandidateLocal,
		sourceLabel: "local:" + category + "/" + name,
		kql:         kql,
		tags:        tags,
		buckets: []MatchBucket{
			{Terms: lowered, Weight: 1.0},
			{Text: strings.ToLower(name + " " + purpose + " " + useCase), Weight: 0.5},
			{Text: strings.ToLower(kql), Weight: 0.3},
		},
	}
}

// NewExternalCandidate creates a candidate from an external reference file.
// Buckets: file name at 1.0, content at 0.5.
func NewExternalCandidate(referenceName, fileName, content string) Candidate {
	return Candidate{
		kind:          CandidateExternal,
		sourceLabel:   "external:" + referenceName + "/" + fileName,
		referenceName: referenceName,
		kql:           content,
		buckets: []MatchBucket{
			{Text: strings.ToLower(fileName), Weight: 1.0},
			{Text: strings.ToLower(content), Weight: 0.5},
		},
	}
}

// Kind returns the candidate origin discriminator.
func (c *Candidate) Kind() CandidateKind { return c.kind }

// SourceLabel returns the human-readable origin identifier.
func (c *Candidate) SourceLabel() string { return c.sourceLabel }

// ReferenceName returns the external reference display name (empty for local).
func (c *Candidate) ReferenceName() string { return c.referenceName }

// KQL returns the raw query body.
func (c *Candidate) KQL() string { return c.kql }

// MatchBuckets returns the weighted surfaces the matcher scores against.
func (c *Candidate) MatchBuckets() []MatchBucket { return c.buckets }

// Tags returns the saved-query tags (nil for external candidates).
func (c *Candidate) Tags() []string { return c.tags }
