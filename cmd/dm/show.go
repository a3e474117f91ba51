package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

var showCmd = &cobra.Command{
	Use:     "show <id>...",
	Short:   "Show dogs by id",
	GroupID: "dogs",
	Args:    cobra.RangeArgs(1, model.MaxBatch),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		dogs, err := fetchDogs(cmd, args)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), dogs)
		}
		for i, d := range dogs {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			printDogDetail(cmd.OutOrStdout(), d, dm.Favorites.IsFavorite(d.ID))
		}
		return nil
	},
}

// fetchDogs resolves ids in argument order and fails on unknown ids.
func fetchDogs(cmd *cobra.Command, ids []string) ([]model.Dog, error) {
	seen := make(map[string]bool, len(ids))
	ids = slices.DeleteFunc(slices.Clone(ids), func(id string) bool {
		dup := seen[id]
		seen[id] = true
		return dup
	})
	dogs, err := dm.Client.Dogs(cmd.Context(), ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Dog, len(dogs))
	for _, d := range dogs {
		byID[d.ID] = d
	}
	out := make([]model.Dog, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("dog %q not found", id)
		}
		out = append(out, d)
	}
	return out, nil
}
