package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/usecase/query"
)

type queryTelemetryArgs struct {
	Request         string `json:"request" jsonschema:"Natural-language description of the telemetry you want, e.g. 'show me errors from the last 24 hours'"`
	IncludeLocal    *bool  `json:"include_local,omitempty" jsonschema:"Consider local saved queries as patterns (default true)"`
	IncludeExternal *bool  `json:"include_external,omitempty" jsonschema:"Consider external reference queries as patterns (default true)"`
	BypassCache     bool   `json:"bypass_cache,omitempty" jsonschema:"Skip the result cache and force fresh execution"`
}

type executeKQLArgs struct {
	KQL         string `json:"kql" jsonschema:"Raw KQL query text to execute"`
	BypassCache bool   `json:"bypass_cache,omitempty" jsonschema:"Skip the result cache and force fresh execution"`
}

type clearCacheArgs struct {
	ExpiredOnly bool `json:"expired_only,omitempty" jsonschema:"Only sweep expired entries instead of clearing everything"`
}

type emptyArgs struct{}

func (s *Server) register(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name: "query_telemetry",
		Description: "Query Business Central telemetry in natural language. " +
			"Finds the best-matching saved or external KQL pattern, adapts its time " +
			"range and filters to the request, and falls back to synthesizing a query " +
			"from keywords. Returns the result table plus provenance metadata " +
			"(pattern source, similarity, modifications, alternatives).",
	}, s.queryTelemetry)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "execute_kql",
		Description: "Execute a raw KQL query against the telemetry backend. " +
			"Destructive control commands are rejected. Results are cached and " +
			"PII-sanitized the same way natural-language queries are.",
	}, s.executeKQL)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_saved_queries",
		Description: "List the local saved-query library: source, tags, and KQL of every saved query.",
	}, s.listSavedQueries)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_auth_status",
		Description: "Report the current authentication state: mode, whether a live token is held, and its expiry.",
	}, s.getAuthStatus)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "clear_cache",
		Description: "Clear the query result cache, or sweep only expired entries.",
	}, s.clearCache)
}

func (s *Server) queryTelemetry(
	ctx context.Context, _ *mcp.CallToolRequest, args queryTelemetryArgs,
) (*mcp.CallToolResult, any, error) {
	if args.Request == "" {
		return errorResult("'request' is required"), nil, nil
	}

	opts := query.DefaultOptions()
	if args.IncludeLocal != nil {
		opts.IncludeLocal = *args.IncludeLocal
	}
	if args.IncludeExternal != nil {
		opts.IncludeExternal = *args.IncludeExternal
	}
	opts.BypassCache = args.BypassCache

	outcome := s.queries.Ask(ctx, args.Request, opts)
	return jsonResult(outcome)
}

func (s *Server) executeKQL(
	ctx context.Context, _ *mcp.CallToolRequest, args executeKQLArgs,
) (*mcp.CallToolResult, any, error) {
	if args.KQL == "" {
		return errorResult("'kql' is required"), nil, nil
	}

	opts := query.DefaultOptions()
	opts.BypassCache = args.BypassCache

	outcome := s.queries.Execute(ctx, args.KQL, opts)
	return jsonResult(outcome)
}

func (s *Server) listSavedQueries(
	ctx context.Context, _ *mcp.CallToolRequest, _ emptyArgs,
) (*mcp.CallToolResult, any, error) {
	candidates, err := s.saved.List(ctx)
	if err != nil {
		s.logger.Warn("Failed to list saved queries", zap.Error(err))
		return errorResult("failed to list saved queries: " + err.Error()), nil, nil
	}

	type savedView struct {
		Source string   `json:"source"`
		Tags   []string `json:"tags,omitempty"`
		KQL    string   `json:"kql"`
	}
	views := make([]savedView, 0, len(candidates))
	for i := range candidates {
		views = append(views, savedView{
			Source: candidates[i].SourceLabel(),
			Tags:   candidates[i].Tags(),
			KQL:    candidates[i].KQL(),
		})
	}
	return jsonResult(views)
}

func (s *Server) getAuthStatus(
	_ context.Context, _ *mcp.CallToolRequest, _ emptyArgs,
) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.auth.Status())
}

func (s *Server) clearCache(
	_ context.Context, _ *mcp.CallToolRequest, args clearCacheArgs,
) (*mcp.CallToolResult, any, error) {
	if args.ExpiredOnly {
		removed := s.cache.SweepExpired()
		return jsonResult(map[string]int{"removed": removed})
	}

	total, _ := s.cache.Stats()
	s.cache.Clear()
	return jsonResult(map[string]int{"removed": total})
}

// jsonResult renders a payload as a single JSON text content block.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode result: %v", err)), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
