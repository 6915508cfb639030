// Package query orchestrates a telemetry request end to end: keyword
// extraction, pattern matching, adaptation or synthesis, the destructive-verb
// safety check, cache lookup, execution, caching, and sanitization.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/domain"
	logpkg "github.com/bcwatch/kqlbridge/internal/logger"
	"github.com/bcwatch/kqlbridge/internal/sanitize"
	"github.com/bcwatch/kqlbridge/internal/usecase/adapt"
	"github.com/bcwatch/kqlbridge/internal/usecase/intent"
	"github.com/bcwatch/kqlbridge/internal/usecase/match"
)

// Options tune a single request.
type Options struct {
	IncludeLocal    bool
	IncludeExternal bool
	BypassCache     bool
}

// DefaultOptions enables both candidate sources and the cache.
func DefaultOptions() Options {
	return Options{IncludeLocal: true, IncludeExternal: true}
}

// Service is the query orchestrator. Every entry point returns a typed
// Outcome — request-fatal failures (auth, transport, validation) become
// error outcomes, never escaped errors, so chat agents and the CLI always
// receive a parseable result.
type Service struct {
	locals       CandidateSource
	externals    CandidateSource
	exec         Executor
	tokens       TokenProvider
	cache        ResultCache
	logger       *zap.Logger
	sanitize     bool
	queriesTotal *prometheus.CounterVec
}

// New creates the orchestrator.
func New(
	locals, externals CandidateSource,
	exec Executor,
	tokens TokenProvider,
	cache ResultCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		locals:    locals,
		externals: externals,
		exec:      exec,
		tokens:    tokens,
		cache:     cache,
		logger:    logger,
		sanitize:  true,
	}
}

// WithSanitize toggles PII redaction of returned payloads.
func (s *Service) WithSanitize(enabled bool) *Service {
	s.sanitize = enabled
	return s
}

// WithMetrics attaches the queries counter vec (labels "outcome", "source").
func (s *Service) WithMetrics(queriesTotal *prometheus.CounterVec) *Service {
	s.queriesTotal = queriesTotal
	return s
}

// Ask handles a natural-language request: pick or synthesize a KQL query,
// then run it through the execution path.
func (s *Service) Ask(ctx context.Context, intentText string, opts Options) *domain.Outcome {
	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))
	ctx = logpkg.ContextWithLogger(ctx, log)

	kql, prov := s.plan(ctx, intentText, opts, log)
	prov.RequestID = requestID

	log.Info("Planned query",
		zap.String("source", prov.Source),
		zap.Int("alternatives", len(prov.Alternatives)),
	)

	outcome := s.run(ctx, kql, opts, log)
	outcome.Provenance = prov
	s.countOutcome(outcome)
	return outcome
}

// Execute handles a raw KQL request through the same execution path,
// attributing provenance to the caller.
func (s *Service) Execute(ctx context.Context, kql string, opts Options) *domain.Outcome {
	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))
	ctx = logpkg.ContextWithLogger(ctx, log)

	outcome := s.run(ctx, kql, opts, log)
	outcome.Provenance = &domain.Provenance{RequestID: requestID, Source: "user"}
	s.countOutcome(outcome)
	return outcome
}

// plan turns an intent into executable KQL plus provenance. A best match at
// or above the selection threshold is adapted; anything weaker falls back to
// keyword synthesis, with the top matches still surfaced as alternatives.
func (s *Service) plan(
	ctx context.Context, intentText string, opts Options, log *zap.Logger,
) (string, *domain.Provenance) {
	keywords := intent.Extract(intentText)

	var matches []domain.PatternMatch
	if len(keywords) > 0 {
		matches = match.Rank(keywords, s.candidates(ctx, s.locals, opts.IncludeLocal, log),
			s.candidates(ctx, s.externals, opts.IncludeExternal, log))
	}

	if len(matches) > 0 && matches[0].Similarity >= match.SelectionThreshold {
		best := matches[0]
		adapted := adapt.Apply(best.Candidate.KQL(), intentText)
		similarity := best.Similarity
		return adapted.KQL, &domain.Provenance{
			Source:              best.Candidate.SourceLabel(),
			SourceReferenceName: best.Candidate.ReferenceName(),
			Similarity:          &similarity,
			Modifications:       adapted.Modifications,
			Alternatives:        alternatives(matches[1:]),
		}
	}

	return adapt.Synthesize(intentText), &domain.Provenance{
		Source:       domain.SourceSynthesized,
		Alternatives: alternatives(matches),
	}
}

// run is the execution path shared by Ask and Execute: validate, consult the
// cache, execute on a miss, cache the fresh result, sanitize, return.
func (s *Service) run(ctx context.Context, kql string, opts Options, log *zap.Logger) *domain.Outcome {
	if verbs := destructiveConstructs(kql); len(verbs) > 0 {
		err := domain.NewDestructiveQuery(verbs)
		log.Warn("Rejected destructive query", zap.Strings("verbs", verbs))
		return &domain.Outcome{Type: domain.OutcomeError, KQL: kql, Error: err.Error()}
	}

	if !opts.BypassCache {
		if raw, ok := s.cache.Get(kql); ok {
			var result domain.TableResult
			if err := json.Unmarshal(raw, &result); err == nil {
				log.Info("Served from cache")
				return s.success(kql, &result, true)
			}
			log.Warn("Discarding undecodable cached payload")
		}
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		log.Error("Token acquisition failed", zap.Error(err))
		return &domain.Outcome{
			Type:  domain.OutcomeError,
			KQL:   kql,
			Error: fmt.Sprintf("authentication failed: %v", err),
		}
	}

	result, err := s.exec.Execute(ctx, kql, token)
	if err != nil {
		log.Error("Query execution failed", zap.Error(err))
		return &domain.Outcome{
			Type:  domain.OutcomeError,
			KQL:   kql,
			Error: fmt.Sprintf("query execution failed: %v", err),
		}
	}

	if raw, err := json.Marshal(result); err == nil {
		s.cache.Set(kql, raw)
	} else {
		log.Warn("Failed to encode result for caching", zap.Error(err))
	}

	return s.success(kql, result, false)
}

// success builds the success outcome, sanitizing the payload on the way out.
// Sanitization applies to cache hits too: redaction is idempotent and the
// cache stores the raw payload.
func (s *Service) success(kql string, result *domain.TableResult, fromCache bool) *domain.Outcome {
	if s.sanitize {
		result.Rows = sanitize.Rows(result.Rows)
	}
	return &domain.Outcome{
		Type:      domain.OutcomeSuccess,
		KQL:       kql,
		Result:    result,
		FromCache: fromCache,
	}
}

// candidates fetches a fresh snapshot from one source, degrading to the
// partial list on error — a broken provider must not fail the request.
func (s *Service) candidates(
	ctx context.Context, src CandidateSource, include bool, log *zap.Logger,
) []domain.Candidate {
	if !include || src == nil {
		return nil
	}
	list, err := src.List(ctx)
	if err != nil {
		log.Warn("Candidate source failed", zap.Error(err))
	}
	return list
}

func alternatives(matches []domain.PatternMatch) []domain.AlternativePattern {
	n := len(matches)
	if n > match.MaxAlternatives {
		n = match.MaxAlternatives
	}
	alts := make([]domain.AlternativePattern, 0, n)
	for _, m := range matches[:n] {
		alts = append(alts, domain.AlternativePattern{
			Source:          m.Candidate.SourceLabel(),
			Similarity:      m.Similarity,
			MatchedKeywords: m.MatchedKeywords,
		})
	}
	return alts
}

func (s *Service) countOutcome(o *domain.Outcome) {
	if s.queriesTotal == nil {
		return
	}
	source := "user"
	if o.Provenance != nil && o.Provenance.Source != "" {
		switch {
		case o.Provenance.Source == domain.SourceSynthesized:
			source = "synthesized"
		case o.Provenance.Source != "user":
			source = "pattern"
		}
	}
	s.queriesTotal.WithLabelValues(string(o.Type), source).Inc()
}
