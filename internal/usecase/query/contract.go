package query

import (
	"context"
	"encoding/json"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

// CandidateSource is a read-only provider of query candidates, re-read on
// every request (no cross-request caching of candidate lists).
type CandidateSource interface {
	List(ctx context.Context) ([]domain.Candidate, error)
}

// Executor runs a KQL query against the analytics backend.
type Executor interface {
	Execute(ctx context.Context, kql, accessToken string) (*domain.TableResult, error)
}

// TokenProvider yields a bearer token on demand, re-authenticating if needed.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// ResultCache memoizes execution results keyed by query content hash.
// Implementations absorb their own I/O failures (miss / no-op).
type ResultCache interface {
	Get(queryText string) (json.RawMessage, bool)
	Set(queryText string, data json.RawMessage, ttlOverride ...int)
}
