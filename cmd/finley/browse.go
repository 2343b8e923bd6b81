package main

import (
	"github.com/spf13/cobra"

	"github.com/finleyhq/finley/internal/tui"
)

func browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse transactions interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return tui.Run(ctx, store)
		},
	}
}
