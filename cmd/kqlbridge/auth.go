package main

import (
	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect or refresh authentication",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current authentication state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			return printJSON(cmd, a.auth.Status())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Force token (re)acquisition now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.auth.Refresh(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd, a.auth.Status())
		},
	})

	return cmd
}
