package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/config"
	"github.com/alfredjeanlab/dogmatch/internal/session"
)

type statusJSON struct {
	Session   string `json:"session"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	APIURL    string `json:"api_url"`
	Profile   string `json:"profile"`
	Store     string `json:"store"`
	Events    bool   `json:"events"`
	Favorites int    `json:"favorites"`
	Match     string `json:"match,omitempty"`
	Page      int    `json:"page"`
	Total     int    `json:"total"`
	Sort      string `json:"sort"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show session, storage and search state",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id := dm.Session.Identity()
		s := statusJSON{
			Session:   dm.Session.State().String(),
			Name:      id.Name,
			Email:     id.Email,
			APIURL:    cfg.APIURL,
			Profile:   cfg.Profile,
			Store:     storeDescription(cfg),
			Events:    cfg.NATSURL != "",
			Favorites: dm.Favorites.Len(),
			Page:      dm.Search.Page(),
			Total:     dm.Search.Total(),
			Sort:      dm.Search.Criteria().Sort.String(),
		}
		if m := dm.Favorites.Matched(); m != nil {
			s.Match = m.Name + " (" + m.ID + ")"
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), s)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "dogmatch status")
		if dm.Session.State() == session.StateAuthenticated {
			fmt.Fprintf(out, "  Signed in:  %s <%s>\n", s.Name, s.Email)
		} else {
			fmt.Fprintln(out, "  Signed in:  no")
		}
		fmt.Fprintf(out, "  Service:    %s\n", s.APIURL)
		fmt.Fprintf(out, "  Profile:    %s\n", s.Profile)
		fmt.Fprintf(out, "  Store:      %s\n", s.Store)
		fmt.Fprintf(out, "  Events:     %v\n", s.Events)
		fmt.Fprintf(out, "  Favorites:  %d\n", s.Favorites)
		if s.Match != "" {
			fmt.Fprintf(out, "  Match:      %s\n", s.Match)
		}
		fmt.Fprintf(out, "  Search:     page %d of %d, %d dogs, sort %s\n", s.Page, dm.Search.TotalPages(), s.Total, s.Sort)
		return nil
	},
}

func storeDescription(c *config.Config) string {
	switch dsn := c.StateDSN; {
	case dsn == config.MemoryDSN:
		return "memory"
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	case dsn != "":
		return "sqlite " + dsn
	}
	return "sqlite " + c.SQLitePath()
}
