package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search dogs (flags change the saved filters)",
	Long: `Search the shelter catalog. Filters are saved between runs, so a bare
"dm search" repeats the last search and "dm next" continues it. Changing any
filter, the sort or the page size goes back to the first page.`,
	GroupID: "dogs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		ctx := cmd.Context()
		f := cmd.Flags()
		var u search.Update

		if f.Changed("breed") {
			breeds, _ := f.GetStringSlice("breed")
			u.Breeds = &breeds
		}
		if f.Changed("zip") {
			zips, _ := f.GetStringSlice("zip")
			u.ZipCodes = &zips
		}
		if f.Changed("near-city") {
			city, _ := f.GetString("near-city")
			state, _ := f.GetString("state")
			zips, err := dm.ZipCodesNear(ctx, city, state)
			if err != nil {
				return err
			}
			u.ZipCodes = &zips
		}
		if f.Changed("age-min") {
			n, _ := f.GetInt("age-min")
			u.AgeMin = &n
		}
		if f.Changed("age-max") {
			n, _ := f.GetInt("age-max")
			u.AgeMax = &n
		}
		if f.Changed("sort") {
			raw, _ := f.GetString("sort")
			s, err := model.ParseSort(raw)
			if err != nil {
				return err
			}
			u.Sort = &s
		}
		if f.Changed("size") {
			n, _ := f.GetInt("size")
			u.PageSize = &n
		}

		if _, err := dm.Search.SetCriteria(u); err != nil {
			return err
		}
		return loadAndPrint(cmd)
	},
}

var nextCmd = &cobra.Command{
	Use:     "next",
	Short:   "Show the next page of results",
	GroupID: "dogs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		if !dm.Search.Next() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Already on the last page.")
		}
		return loadAndPrint(cmd)
	},
}

var prevCmd = &cobra.Command{
	Use:     "prev",
	Short:   "Show the previous page of results",
	GroupID: "dogs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		if !dm.Search.Prev() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Already on the first page.")
		}
		return loadAndPrint(cmd)
	},
}

var pageCmd = &cobra.Command{
	Use:     "page <n>",
	Short:   "Jump to page n (clamped to the available pages)",
	GroupID: "dogs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid page %q", args[0])
		}
		dm.Search.SetPage(n)
		return loadAndPrint(cmd)
	},
}

var sortCmd = &cobra.Command{
	Use:   "sort <field>[:asc|desc]",
	Short: "Sort by breed, name or age",
	Long: `Sort results. With a bare field name, picking the current sort field flips
its direction and picking another field sorts it ascending.`,
	GroupID: "dogs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		s, err := model.ParseSort(args[0])
		if err != nil {
			return err
		}
		if strings.Contains(args[0], ":") {
			if _, err := dm.Search.SetCriteria(search.Update{Sort: &s}); err != nil {
				return err
			}
		} else {
			dm.Search.ToggleSort(s.Field)
		}
		return loadAndPrint(cmd)
	},
}

var resetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Clear all filters and restore the default sort",
	GroupID: "dogs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		dm.Search.Reset()
		return loadAndPrint(cmd)
	},
}

var breedsCmd = &cobra.Command{
	Use:     "breeds",
	Short:   "List the breeds you can filter on",
	GroupID: "dogs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		breeds, err := dm.Client.Breeds(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), breeds)
		}
		for _, b := range breeds {
			fmt.Fprintln(cmd.OutOrStdout(), b)
		}
		return nil
	},
}

// loadAndPrint fetches the page the search state points at and prints it.
func loadAndPrint(cmd *cobra.Command) error {
	snap, err := dm.LoadPage(cmd.Context())
	if err != nil {
		return err
	}
	return printPage(cmd.OutOrStdout(), snap, dm.Search)
}

func init() {
	searchCmd.Flags().StringSlice("breed", nil, "breed to include (repeatable; empty clears)")
	searchCmd.Flags().StringSlice("zip", nil, "zip code to include (repeatable; empty clears)")
	searchCmd.Flags().String("near-city", "", "search zip codes of this city")
	searchCmd.Flags().String("state", "", "two-letter state for --near-city")
	searchCmd.Flags().Int("age-min", model.DefaultAgeMin, "minimum age in years")
	searchCmd.Flags().Int("age-max", model.DefaultAgeMax, "maximum age in years")
	searchCmd.Flags().String("sort", model.DefaultSort.String(), "sort as field:dir (breed, name, age)")
	searchCmd.Flags().Int("size", model.DefaultPageSize, "results per page (max 100)")
	searchCmd.MarkFlagsMutuallyExclusive("zip", "near-city")
}
