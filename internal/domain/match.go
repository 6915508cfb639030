package domain

// SourceSynthesized is the provenance source when no pattern was good enough
// and the query was synthesized from keywords instead.
const SourceSynthesized = "ai-generated"

// PatternMatch is a scored candidate produced by the matcher.
// Immutable once created; ranked descending by similarity.
type PatternMatch struct {
	Candidate       Candidate
	Similarity      float64
	MatchedKeywords []string
}

// AlternativePattern is the provenance view of a runner-up match.
type AlternativePattern struct {
	Source          string   `json:"source"`
	Similarity      float64  `json:"similarity"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// Provenance records where a returned query came from and what was changed.
type Provenance struct {
	RequestID           string               `json:"request_id,omitempty"`
	Source              string               `json:"source"`
	SourceReferenceName string               `json:"source_reference_name,omitempty"`
	Similarity          *float64             `json:"similarity,omitempty"`
	Modifications       []string             `json:"modifications,omitempty"`
	Alternatives        []AlternativePattern `json:"alternative_patterns,omitempty"`
}
