package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

func newTestService(locals, externals CandidateSource, exec *stubExecutor, tokens *stubTokens, cache ResultCache) *Service {
	return New(locals, externals, exec, tokens, cache, zap.NewNop())
}

func fixedLocals(cs ...domain.Candidate) *stubSource {
	return &stubSource{listFunc: func(context.Context) ([]domain.Candidate, error) {
		return cs, nil
	}}
}

func TestAsk_AdaptsMatchingPattern(t *testing.T) {
	saved := domain.NewLocalCandidate(
		"errors", "recent-errors",
		"Find recent error traces", "",
		"traces | where timestamp > ago(7d) | where severityLevel >= 3 | take 50",
		[]string{"error", "recent", "24h"},
	)
	exec := &stubExecutor{}
	svc := newTestService(fixedLocals(saved), &stubSource{}, exec, &stubTokens{}, newMemCache())

	got := svc.Ask(context.Background(), "show me errors from the last 24 hours", DefaultOptions())

	if got.Type != domain.OutcomeSuccess {
		t.Fatalf("expected success, got %s: %s", got.Type, got.Error)
	}
	if exec.calls != 1 {
		t.Fatalf("expected 1 execution, got %d", exec.calls)
	}
	if !strings.Contains(exec.lastKQL, "ago(1d)") || strings.Contains(exec.lastKQL, "ago(7d)") {
		t.Fatalf("expected time range adapted to 1d: %s", exec.lastKQL)
	}

	prov := got.Provenance
	if prov == nil {
		t.Fatal("expected provenance")
	}
	if prov.Source != "local:errors/recent-errors" {
		t.Fatalf("unexpected source %s", prov.Source)
	}
	if prov.Similarity == nil || *prov.Similarity < 0.5 {
		t.Fatalf("expected similarity at or above the selection threshold, got %v", prov.Similarity)
	}
	if len(prov.Modifications) == 0 || prov.Modifications[0] != "Changed time range to 24 hours" {
		t.Fatalf("expected time-window modification, got %v", prov.Modifications)
	}
	if prov.RequestID == "" {
		t.Fatal("expected a request id")
	}
}

func TestAsk_SynthesizesWithoutMatch(t *testing.T) {
	exec := &stubExecutor{}
	svc := newTestService(&stubSource{}, &stubSource{}, exec, &stubTokens{}, newMemCache())

	got := svc.Ask(context.Background(), "what happened last week", DefaultOptions())

	if got.Type != domain.OutcomeSuccess {
		t.Fatalf("expected success, got %s: %s", got.Type, got.Error)
	}
	want := "traces | where timestamp > ago(7d) | take 100"
	if got.KQL != want {
		t.Fatalf("unexpected synthesized KQL:\ngot:  %s\nwant: %s", got.KQL, want)
	}
	if got.Provenance.Source != domain.SourceSynthesized {
		t.Fatalf("expected synthesized provenance, got %s", got.Provenance.Source)
	}
	if got.Provenance.Similarity != nil {
		t.Fatal("synthesized queries carry no similarity")
	}
}

func TestAsk_WeakMatchStillSurfacedAsAlternative(t *testing.T) {
	// Three tag hits over eight extracted keywords scores 0.375: above the
	// inclusion threshold, below selection — synthesized query wins, the
	// pattern is surfaced as an alternative.
	weak := domain.NewLocalCandidate("general", "weak", "", "", "pageViews | take 1", []string{"7d", "slow", "http"})
	exec := &stubExecutor{}
	svc := newTestService(fixedLocals(weak), &stubSource{}, exec, &stubTokens{}, newMemCache())

	got := svc.Ask(context.Background(), "slow requests last week", DefaultOptions())

	if got.Provenance.Source != domain.SourceSynthesized {
		t.Fatalf("weak match must not be selected, got source %s", got.Provenance.Source)
	}
	foundAlt := false
	for _, alt := range got.Provenance.Alternatives {
		if alt.Source == "local:general/weak" {
			foundAlt = true
		}
	}
	if !foundAlt {
		t.Fatalf("expected the weak match among alternatives, got %v", got.Provenance.Alternatives)
	}
}

func TestAsk_CacheRoundTrip(t *testing.T) {
	exec := &stubExecutor{executeFunc: func(context.Context, string, string) (*domain.TableResult, error) {
		return &domain.TableResult{
			Columns: []string{"message"},
			Rows:    [][]any{{"hello"}},
		}, nil
	}}
	svc := newTestService(&stubSource{}, &stubSource{}, exec, &stubTokens{}, newMemCache())

	first := svc.Ask(context.Background(), "what happened last week", DefaultOptions())
	second := svc.Ask(context.Background(), "what happened last week", DefaultOptions())

	if exec.calls != 1 {
		t.Fatalf("expected exactly 1 backend execution, got %d", exec.calls)
	}
	if first.FromCache {
		t.Fatal("first call must not be served from cache")
	}
	if !second.FromCache {
		t.Fatal("second call must be served from cache")
	}
	if len(second.Result.Rows) != 1 || second.Result.Rows[0][0] != "hello" {
		t.Fatalf("cached payload mismatch: %v", second.Result.Rows)
	}
}

func TestAsk_BypassCache(t *testing.T) {
	exec := &stubExecutor{}
	svc := newTestService(&stubSource{}, &stubSource{}, exec, &stubTokens{}, newMemCache())

	opts := DefaultOptions()
	opts.BypassCache = true

	svc.Ask(context.Background(), "what happened last week", opts)
	svc.Ask(context.Background(), "what happened last week", opts)

	if exec.calls != 2 {
		t.Fatalf("expected 2 backend executions with cache bypassed, got %d", exec.calls)
	}
}

func TestExecute_RejectsDestructiveQuery(t *testing.T) {
	exec := &stubExecutor{}
	svc := newTestService(&stubSource{}, &stubSource{}, exec, &stubTokens{}, newMemCache())

	got := svc.Execute(context.Background(), ".drop table traces", DefaultOptions())

	if got.Type != domain.OutcomeError {
		t.Fatalf("expected error outcome, got %s", got.Type)
	}
	if !strings.Contains(got.Error, ".drop") {
		t.Fatalf("error must name the offending verb: %s", got.Error)
	}
	if exec.calls != 0 {
		t.Fatal("destructive query must never reach the backend")
	}
}

func TestExecute_UserProvenance(t *testing.T) {
	exec := &stubExecutor{}
	svc := newTestService(&stubSource{}, &stubSource{}, exec, &stubTokens{}, newMemCache())

	got := svc.Execute(context.Background(), "traces | take 5", DefaultOptions())

	if got.Type != domain.OutcomeSuccess {
		t.Fatalf("expected success, got %s: %s", got.Type, got.Error)
	}
	if got.Provenance.Source != "user" {
		t.Fatalf("expected user provenance, got %s", got.Provenance.Source)
	}
	if exec.lastToken != "test-token" {
		t.Fatalf("expected the provider token on the wire, got %s", exec.lastToken)
	}
}

func TestAsk_AuthFailureBecomesErrorOutcome(t *testing.T) {
	tokens := &stubTokens{tokenFunc: func(context.Context) (string, error) {
		return "", errors.New("invalid_client: 7000215")
	}}
	exec := &stubExecutor{}
	svc := newTestService(&stubSource{}, &stubSource{}, exec, tokens, newMemCache())

	got := svc.Ask(context.Background(), "errors today", DefaultOptions())

	if got.Type != domain.OutcomeError {
		t.Fatalf("expected error outcome, got %s", got.Type)
	}
	if !strings.Contains(got.Error, "authentication failed") {
		t.Fatalf("unexpected error text: %s", got.Error)
	}
	if exec.calls != 0 {
		t.Fatal("execution must not run without a token")
	}
}

func TestAsk_ExecutionFailureBecomesErrorOutcome(t *testing.T) {
	exec := &stubExecutor{executeFunc: func(context.Context, string, string) (*domain.TableResult, error) {
		return nil, errors.New("query API error 400: BadArgumentError")
	}}
	svc := newTestService(&stubSource{}, &stubSource{}, exec, &stubTokens{}, newMemCache())

	got := svc.Ask(context.Background(), "errors today", DefaultOptions())

	if got.Type != domain.OutcomeError {
		t.Fatalf("expected error outcome, got %s", got.Type)
	}
	if !strings.Contains(got.Error, "query execution failed") {
		t.Fatalf("unexpected error text: %s", got.Error)
	}
}

func TestAsk_BrokenCandidateSourceDegrades(t *testing.T) {
	locals := &stubSource{listFunc: func(context.Context) ([]domain.Candidate, error) {
		return nil, errors.New("library directory unreadable")
	}}
	exec := &stubExecutor{}
	svc := newTestService(locals, &stubSource{}, exec, &stubTokens{}, newMemCache())

	got := svc.Ask(context.Background(), "errors in the last hour", DefaultOptions())

	if got.Type != domain.OutcomeSuccess {
		t.Fatalf("broken candidate source must not fail the request: %s", got.Error)
	}
	if got.Provenance.Source != domain.SourceSynthesized {
		t.Fatalf("expected fallback synthesis, got %s", got.Provenance.Source)
	}
}

func TestAsk_SanitizesReturnedRows(t *testing.T) {
	exec := &stubExecutor{executeFunc: func(context.Context, string, string) (*domain.TableResult, error) {
		return &domain.TableResult{
			Columns: []string{"user", "client"},
			Rows:    [][]any{{"jane@contoso.com", "10.0.0.1"}},
		}, nil
	}}
	cache := newMemCache()
	svc := newTestService(&stubSource{}, &stubSource{}, exec, &stubTokens{}, cache)

	got := svc.Ask(context.Background(), "what happened last week", DefaultOptions())

	if got.Result.Rows[0][0] != "[EMAIL]" || got.Result.Rows[0][1] != "[IP]" {
		t.Fatalf("expected redacted rows, got %v", got.Result.Rows)
	}

	// The cache keeps the raw payload; a hit is redacted again on the way out.
	hit := svc.Ask(context.Background(), "what happened last week", DefaultOptions())
	if !hit.FromCache {
		t.Fatal("expected a cache hit")
	}
	if hit.Result.Rows[0][0] != "[EMAIL]" {
		t.Fatalf("cache hits must be redacted too, got %v", hit.Result.Rows)
	}
}

func TestAsk_SanitizeDisabled(t *testing.T) {
	exec := &stubExecutor{executeFunc: func(context.Context, string, string) (*domain.TableResult, error) {
		return &domain.TableResult{
			Columns: []string{"user"},
			Rows:    [][]any{{"jane@contoso.com"}},
		}, nil
	}}
	svc := newTestService(&stubSource{}, &stubSource{}, exec, &stubTokens{}, newMemCache()).WithSanitize(false)

	got := svc.Ask(context.Background(), "what happened last week", DefaultOptions())

	if got.Result.Rows[0][0] != "jane@contoso.com" {
		t.Fatalf("expected raw rows with sanitization off, got %v", got.Result.Rows)
	}
}
