package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	queryuc "github.com/bcwatch/kqlbridge/internal/usecase/query"
)

func queryCmd() *cobra.Command {
	var noCache, noLocal, noExternal bool

	cmd := &cobra.Command{
		Use:   "query <natural-language request>",
		Short: "Run a one-shot natural-language telemetry query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			opts := queryuc.Options{
				IncludeLocal:    !noLocal,
				IncludeExternal: !noExternal,
				BypassCache:     noCache,
			}
			outcome := a.queries.Ask(cmd.Context(), strings.Join(args, " "), opts)
			return printJSON(cmd, outcome)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the result cache")
	cmd.Flags().BoolVar(&noLocal, "no-local", false, "skip local saved queries")
	cmd.Flags().BoolVar(&noExternal, "no-external", false, "skip external reference queries")
	return cmd
}

func kqlCmd() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "kql <query>",
		Short: "Execute a raw KQL query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			opts := queryuc.DefaultOptions()
			opts.BypassCache = noCache
			outcome := a.queries.Execute(cmd.Context(), args[0], opts)
			return printJSON(cmd, outcome)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the result cache")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	cmd.Println(string(raw))
	return nil
}
