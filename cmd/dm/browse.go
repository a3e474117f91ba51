package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:     "browse",
	Short:   "Browse dogs interactively",
	GroupID: "dogs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		return tui.Run(cmd.Context(), dm)
	},
}
