// Package mcp exposes the telemetry bridge as a Model Context Protocol
// server over stdio, so chat-based coding assistants can query BC telemetry.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/domain"
	"github.com/bcwatch/kqlbridge/internal/transport/aad"
	"github.com/bcwatch/kqlbridge/internal/usecase/query"
	"github.com/bcwatch/kqlbridge/internal/version"
)

// QueryRunner is the orchestrator surface the tools call.
type QueryRunner interface {
	Ask(ctx context.Context, intentText string, opts query.Options) *domain.Outcome
	Execute(ctx context.Context, kql string, opts query.Options) *domain.Outcome
}

// AuthReporter reports authentication state without triggering a flow.
type AuthReporter interface {
	Status() aad.Status
}

// CacheAdmin is the cache housekeeping surface.
type CacheAdmin interface {
	Clear()
	SweepExpired() int
	Stats() (total, expired int)
}

// SavedQueryLister returns the local saved-query snapshot.
type SavedQueryLister interface {
	List(ctx context.Context) ([]domain.Candidate, error)
}

// Server wires the orchestrator and its collaborators into MCP tools.
type Server struct {
	queries QueryRunner
	saved   SavedQueryLister
	auth    AuthReporter
	cache   CacheAdmin
	logger  *zap.Logger
}

// NewServer creates the MCP server facade.
func NewServer(
	queries QueryRunner,
	saved SavedQueryLister,
	auth AuthReporter,
	cache CacheAdmin,
	logger *zap.Logger,
) *Server {
	return &Server{
		queries: queries,
		saved:   saved,
		auth:    auth,
		cache:   cache,
		logger:  logger,
	}
}

// Run serves MCP over stdio until the context is canceled or the client
// disconnects. Stdout belongs to the JSON-RPC stream from here on.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "kqlbridge",
		Title:   "Business Central telemetry query bridge",
		Version: version.Version,
	}, nil)

	s.register(srv)

	s.logger.Info("MCP server listening on stdio", zap.String("version", version.Version))
	return srv.Run(ctx, &mcp.StdioTransport{})
}
