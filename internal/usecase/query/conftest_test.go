package query

import (
	"context"
	"encoding/json"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

// stubSource implements CandidateSource with a function field.
type stubSource struct {
	listFunc func(ctx context.Context) ([]domain.Candidate, error)
}

func (s *stubSource) List(ctx context.Context) ([]domain.Candidate, error) {
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(ctx)
}

// stubExecutor implements Executor and counts invocations.
type stubExecutor struct {
	executeFunc func(ctx context.Context, kql, accessToken string) (*domain.TableResult, error)
	calls       int
	lastKQL     string
	lastToken   string
}

func (s *stubExecutor) Execute(ctx context.Context, kql, accessToken string) (*domain.TableResult, error) {
	s.calls++
	s.lastKQL = kql
	s.lastToken = accessToken
	if s.executeFunc == nil {
		return &domain.TableResult{Columns: []string{"timestamp"}, Rows: [][]any{}}, nil
	}
	return s.executeFunc(ctx, kql, accessToken)
}

// stubTokens implements TokenProvider.
type stubTokens struct {
	tokenFunc func(ctx context.Context) (string, error)
}

func (s *stubTokens) Token(ctx context.Context) (string, error) {
	if s.tokenFunc == nil {
		return "test-token", nil
	}
	return s.tokenFunc(ctx)
}

// memCache is an in-memory ResultCache for orchestration tests.
type memCache struct {
	entries map[string]json.RawMessage
	gets    int
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]json.RawMessage{}}
}

func (c *memCache) Get(queryText string) (json.RawMessage, bool) {
	c.gets++
	raw, ok := c.entries[queryText]
	return raw, ok
}

func (c *memCache) Set(queryText string, data json.RawMessage, _ ...int) {
	c.sets++
	c.entries[queryText] = data
}
