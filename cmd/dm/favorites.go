package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/export"
	"github.com/alfredjeanlab/dogmatch/internal/favorites"
	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/ui"
)

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage your favorite dogs",
	GroupID: "favorites",
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <id>...",
	Short: "Add dogs to favorites",
	Args:  cobra.RangeArgs(1, model.MaxBatch),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		dogs, err := fetchDogs(cmd, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, d := range dogs {
			added, err := dm.Favorites.Add(cmd.Context(), d)
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintf(out, "%s Added %s (%s)\n", ui.FavoriteMark(true), d.Name, d.ID)
			} else {
				fmt.Fprintf(out, "%s is already a favorite\n", d.Name)
			}
		}
		return nil
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:     "remove <id>...",
	Aliases: []string{"rm"},
	Short:   "Remove dogs from favorites",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, id := range args {
			removed, err := dm.Favorites.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(out, "Removed %s\n", id)
			} else {
				fmt.Fprintf(out, "%s is not a favorite\n", id)
			}
		}
		return nil
	},
}

var favoritesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List favorites",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		dogs := dm.Favorites.List()
		match := dm.Favorites.Matched()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), struct {
				Favorites []model.Dog `json:"favorites"`
				Match     *model.Dog  `json:"match"`
			}{dogs, match})
		}
		if len(dogs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No favorites yet. Add some with `dm favorites add <id>`.")
			return nil
		}
		printDogTable(cmd.OutOrStdout(), dogs, func(string) bool { return true }, match)
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMuted(fmt.Sprintf("\n%d of %d favorites", len(dogs), model.MaxFavorites)))
		return nil
	},
}

var favoritesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all favorites and the match",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		n := dm.Favorites.Len()
		if err := dm.Favorites.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d favorites\n", n)
		return nil
	},
}

var favoritesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export favorites as JSONL to stdout, a file, or S3",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("out")
		toS3, _ := cmd.Flags().GetBool("s3")

		var dest export.Destination = export.WriterDestination{W: cmd.OutOrStdout()}
		switch {
		case toS3:
			e := cfg.Export
			d, err := export.NewS3Destination(cmd.Context(), e.S3Bucket, e.S3Prefix, e.S3Region, e.S3Endpoint)
			if err != nil {
				return err
			}
			dest = d
		case path != "":
			dest = export.FileDestination{Path: path}
		}

		res, err := dm.Exporter.Run(cmd.Context(), dm.Favorites, dest)
		if err != nil {
			return err
		}
		if toS3 || path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d favorites to %s (%s)\n", res.Dogs, res.Destination, res.ExportID)
		}
		return nil
	},
}

var favoritesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add favorites from a JSONL export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		snap, err := export.ReadJSONL(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		added := 0
		for _, d := range snap.Favorites {
			ok, err := dm.Favorites.Add(cmd.Context(), d)
			if errors.Is(err, favorites.ErrCapacity) {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderWarn(err.Error()))
				break
			}
			if err != nil {
				return err
			}
			if ok {
				added++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d favorites from %s\n", added, len(snap.Favorites), snap.ExportID)
		return nil
	},
}

var matchCmd = &cobra.Command{
	Use:     "match",
	Short:   "Let the shelter pick your match among your favorites",
	GroupID: "favorites",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		d, err := dm.Match(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), d)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMatch("It's a match!"))
		printDogDetail(cmd.OutOrStdout(), d, true)
		return nil
	},
}

func init() {
	favoritesExportCmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
	favoritesExportCmd.Flags().Bool("s3", false, "upload to the configured S3 bucket")
	favoritesExportCmd.MarkFlagsMutuallyExclusive("out", "s3")

	favoritesCmd.AddCommand(favoritesAddCmd)
	favoritesCmd.AddCommand(favoritesRemoveCmd)
	favoritesCmd.AddCommand(favoritesListCmd)
	favoritesCmd.AddCommand(favoritesClearCmd)
	favoritesCmd.AddCommand(favoritesExportCmd)
	favoritesCmd.AddCommand(favoritesImportCmd)
}
