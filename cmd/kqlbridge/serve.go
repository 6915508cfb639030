package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/bcwatch/kqlbridge/internal/transport/mcp"
	"github.com/bcwatch/kqlbridge/internal/transport/ops"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio (plus the optional ops HTTP endpoint)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var opsSrv *http.Server
			if a.cfg.Ops.Enabled {
				opsSrv = &http.Server{
					Addr:         fmt.Sprintf(":%d", a.cfg.Ops.Port),
					Handler:      ops.Handler(a.cfg.Ops.APIKeys, a.cache, a.logger),
					ReadTimeout:  time.Duration(a.cfg.Ops.ReadTimeoutSec) * time.Second,
					WriteTimeout: time.Duration(a.cfg.Ops.WriteTimeoutSec) * time.Second,
				}
				go func() {
					a.logger.Info("Starting ops HTTP server", zap.String("addr", opsSrv.Addr))
					if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						a.logger.Error("Ops HTTP server error", zap.Error(err))
					}
				}()
			}

			server := mcpserver.NewServer(a.queries, a.locals, a.auth, a.cache, a.logger)
			runErr := server.Run(ctx)

			if opsSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(
					context.Background(), time.Duration(a.cfg.Ops.ShutdownSec)*time.Second,
				)
				defer cancel()
				if err := opsSrv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("Error during ops server shutdown", zap.Error(err))
				}
			}

			if runErr != nil && ctx.Err() == nil {
				return fmt.Errorf("mcp server: %w", runErr)
			}
			a.logger.Info("Server stopped gracefully")
			return nil
		},
	}
}
