package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/config"
	logpkg "github.com/bcwatch/kqlbridge/internal/logger"
	"github.com/bcwatch/kqlbridge/internal/metrics"
	cachestore "github.com/bcwatch/kqlbridge/internal/repository/cache"
	"github.com/bcwatch/kqlbridge/internal/repository/patterns"
	"github.com/bcwatch/kqlbridge/internal/transport/aad"
	"github.com/bcwatch/kqlbridge/internal/transport/kusto"
	queryuc "github.com/bcwatch/kqlbridge/internal/usecase/query"
	"github.com/bcwatch/kqlbridge/internal/version"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "kqlbridge",
		Short:   "Business Central telemetry query bridge (MCP to Application Insights/KQL)",
		Version: fmt.Sprintf("%s (%s, %s)", version.Version, version.Commit, version.Date),
	}

	root.AddCommand(serveCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(kqlCmd())
	root.AddCommand(cacheCmd())
	root.AddCommand(authCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the composition root shared by all commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	queries *queryuc.Service
	cache   *cachestore.Store
	auth    *aad.Provider
	locals  *patterns.LocalProvider
}

func newApp() (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterQueryMetrics()

	cache := cachestore.New(cfg.Cache.Dir, cfg.Cache.TTLSec, cfg.Cache.IsEnabled(), logger).
		WithMetrics(metrics.ResultCacheTotal)

	locals := patterns.NewLocalProvider(cfg.Patterns.LocalDir, logger)

	refs := make([]patterns.Reference, 0, len(cfg.Patterns.External))
	for _, ref := range cfg.Patterns.External {
		refs = append(refs, patterns.Reference{Name: ref.Name, URLs: ref.URLs})
	}
	externals := patterns.NewExternalProvider(
		refs, time.Duration(cfg.Patterns.FetchTimeoutSec)*time.Second, logger,
	)

	executor := kusto.NewClient(&kusto.Config{
		Endpoint: cfg.Insights.Endpoint,
		AppID:    cfg.Insights.AppID,
		Timeout:  time.Duration(cfg.Insights.TimeoutSec) * time.Second,
		Logger:   logger,
	})

	auth, err := aad.New(&aad.Config{
		TenantID:     cfg.Auth.TenantID,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Mode:         aad.Mode(cfg.Auth.Mode),
		Scopes:       cfg.Auth.Scopes,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth provider: %w", err)
	}

	queries := queryuc.New(locals, externals, executor, auth, cache, logger).
		WithSanitize(cfg.Sanitize.IsEnabled()).
		WithMetrics(metrics.QueriesTotal)

	return &app{
		cfg:     cfg,
		logger:  logger,
		queries: queries,
		cache:   cache,
		auth:    auth,
		locals:  locals,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
