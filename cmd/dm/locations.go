package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/ui"
)

var locationsCmd = &cobra.Command{
	Use:     "locations",
	Aliases: []string{"loc"},
	Short:   "Look up zip codes and places",
	GroupID: "dogs",
}

var locationsLookupCmd = &cobra.Command{
	Use:   "lookup <zip>...",
	Short: "Show the places for up to 100 zip codes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		locs, err := dm.Client.Locations(cmd.Context(), args)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), locs)
		}
		printLocations(cmd.OutOrStdout(), locs)
		return nil
	},
}

var locationsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find zip codes by city and state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		city, _ := cmd.Flags().GetString("city")
		states, _ := cmd.Flags().GetStringSlice("state")
		size, _ := cmd.Flags().GetInt("size")
		from, _ := cmd.Flags().GetInt("from")

		params := &model.LocationSearchParams{City: strings.TrimSpace(city), Size: size, From: from}
		for _, s := range states {
			params.States = append(params.States, strings.ToUpper(strings.TrimSpace(s)))
		}
		resp, err := dm.Client.SearchLocations(cmd.Context(), params)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		printLocations(cmd.OutOrStdout(), resp.Results)
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMuted(fmt.Sprintf("\n%d of %d places", len(resp.Results), resp.Total)))
		return nil
	},
}

func init() {
	locationsSearchCmd.Flags().String("city", "", "city name")
	locationsSearchCmd.Flags().StringSlice("state", nil, "two-letter state code (repeatable)")
	locationsSearchCmd.Flags().Int("size", 25, "results per page")
	locationsSearchCmd.Flags().Int("from", 0, "result offset")

	locationsCmd.AddCommand(locationsLookupCmd)
	locationsCmd.AddCommand(locationsSearchCmd)
}
