package main

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/config"
)

// RemotesConfig holds all named remotes and tracks which one is active.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named Fetch service deployment. Unless DOGMATCH_PROFILE is
// set, the active remote's name is also the state profile, so each remote
// keeps its own session, favorites and search.
type Remote struct {
	URL         string `toml:"url"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

var errNoRemote = errors.New("no active remote; specify a name or run 'dm remote use <name>'")

func loadRemotesConfig(path string) (RemotesConfig, error) {
	rc := RemotesConfig{Remotes: map[string]Remote{}}
	if _, err := toml.DecodeFile(path, &rc); err != nil && !errors.Is(err, os.ErrNotExist) {
		return RemotesConfig{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if rc.Remotes == nil {
		rc.Remotes = map[string]Remote{}
	}
	return rc, nil
}

func saveRemotesConfig(path string, rc RemotesConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(rc); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// updateRemotes loads the remotes file, applies fn and saves the result.
// Nothing is written when fn fails.
func updateRemotes(fn func(*RemotesConfig) error) error {
	path := cfg.RemotesPath()
	rc, err := loadRemotesConfig(path)
	if err != nil {
		return err
	}
	if err := fn(&rc); err != nil {
		return err
	}
	return saveRemotesConfig(path, rc)
}

func (rc *RemotesConfig) lookup(name string) (Remote, error) {
	r, ok := rc.Remotes[name]
	if !ok {
		return Remote{}, fmt.Errorf("remote %q not found", name)
	}
	return r, nil
}

// applyActiveRemote fills in the API URL, NATS URL and profile from the
// active remote where the environment does not set them.
func applyActiveRemote(c *config.Config) {
	rc, err := loadRemotesConfig(c.RemotesPath())
	if err != nil || rc.Active == "" {
		return
	}
	r, err := rc.lookup(rc.Active)
	if err != nil {
		return
	}
	if _, set := os.LookupEnv("DOGMATCH_API_URL"); !set && r.URL != "" {
		c.APIURL = strings.TrimRight(r.URL, "/")
	}
	if _, set := os.LookupEnv("DOGMATCH_NATS_URL"); !set && r.NATSURL != "" {
		c.NATSURL = r.NATSURL
	}
	if _, set := os.LookupEnv("DOGMATCH_PROFILE"); !set {
		c.Profile = rc.Active
	}
}

func validateRemoteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid service URL %q (want http:// or https://)", raw)
	}
	return nil
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named Fetch service remotes",
	GroupID: "system",
	// Remote subcommands only touch the remotes file.
	PersistentPreRunE: skipApp,
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, serviceURL := args[0], args[1]
		if err := validateRemoteURL(serviceURL); err != nil {
			return err
		}
		natsURL, _ := cmd.Flags().GetString("nats")
		desc, _ := cmd.Flags().GetString("description")

		err := updateRemotes(func(rc *RemotesConfig) error {
			rc.Remotes[name] = Remote{URL: serviceURL, NATSURL: natsURL, Description: desc}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", name, serviceURL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote (its local state file is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		err := updateRemotes(func(rc *RemotesConfig) error {
			if _, err := rc.lookup(name); err != nil {
				return err
			}
			delete(rc.Remotes, name)
			if rc.Active == name {
				rc.Active = ""
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", name)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadRemotesConfig(cfg.RemotesPath())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rc)
		}
		if len(rc.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tEVENTS\tDESCRIPTION")
		for _, name := range slices.Sorted(maps.Keys(rc.Remotes)) {
			r := rc.Remotes[name]
			marker := "  "
			if name == rc.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, r.URL, r.NATSURL, r.Description)
		}
		return w.Flush()
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active remote (no args goes back to the default service)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		err := updateRemotes(func(rc *RemotesConfig) error {
			if name != "" {
				if _, err := rc.lookup(name); err != nil {
					return err
				}
			}
			rc.Active = name
			return nil
		})
		if err != nil {
			return err
		}
		if name == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "active remote cleared")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", name)
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show details for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadRemotesConfig(cfg.RemotesPath())
		if err != nil {
			return err
		}
		name := rc.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return errNoRemote
		}
		r, err := rc.lookup(name)
		if err != nil {
			return err
		}

		// The state file this remote uses when active, unless a DSN or
		// profile override is in effect.
		state := *cfg
		state.Profile = name

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		active := ""
		if name == rc.Active {
			active = " (active)"
		}
		fmt.Fprintf(w, "name:\t%s%s\n", name, active)
		if r.Description != "" {
			fmt.Fprintf(w, "description:\t%s\n", r.Description)
		}
		fmt.Fprintf(w, "url:\t%s\n", r.URL)
		if r.NATSURL != "" {
			fmt.Fprintf(w, "events:\t%s\n", r.NATSURL)
		}
		fmt.Fprintf(w, "state:\t%s\n", state.SQLitePath())
		return w.Flush()
	},
}

func init() {
	remoteAddCmd.Flags().String("nats", "", "NATS URL for dm watch and event publishing")
	remoteAddCmd.Flags().String("description", "", "human-readable description of the remote")

	remoteCmd.AddCommand(remoteAddCmd)
	remoteCmd.AddCommand(remoteRemoveCmd)
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteUseCmd)
	remoteCmd.AddCommand(remoteShowCmd)
}
