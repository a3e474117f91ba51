package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/app"
	"github.com/alfredjeanlab/dogmatch/internal/client"
	"github.com/alfredjeanlab/dogmatch/internal/config"
	"github.com/alfredjeanlab/dogmatch/internal/session"
	"github.com/alfredjeanlab/dogmatch/internal/ui"
)

var (
	apiURL     string
	stateDSN   string
	jsonOutput bool
	noColor    bool
	verbose    bool

	cfg *config.Config
	dm  *app.App
)

// Exit codes.
const (
	exitError = 1
	exitAuth  = 2
)

var rootCmd = &cobra.Command{
	Use:           "dm <command>",
	Short:         "Find a shelter dog to adopt",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if _, err := a.Open(cmd.Context()); err != nil {
			_ = a.Close()
			return err
		}
		for _, n := range a.Notices() {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderWarn(n))
		}
		dm = a
		return nil
	},
}

// loadConfig reads the environment, then applies the active remote and the
// global flags on top.
func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	applyActiveRemote(c)
	if cmd.Flags().Changed("api-url") {
		c.APIURL = strings.TrimRight(apiURL, "/")
	}
	if cmd.Flags().Changed("store") {
		c.StateDSN = stateDSN
	}
	if verbose {
		c.LogLevel = "debug"
	}
	if noColor || !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	cfg = c
	return nil
}

// skipApp is used by commands that only touch local files or NATS.
func skipApp(cmd *cobra.Command, args []string) error {
	return loadConfig(cmd)
}

func closeApp() {
	if dm != nil {
		if err := dm.Close(); err != nil {
			dm.Logger.Warn("closing", "err", err)
		}
		dm = nil
	}
}

// requireLogin guards commands that need a signed-in user.
func requireLogin() error {
	return dm.Session.Require()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Fetch service URL (default $DOGMATCH_API_URL or the active remote)")
	rootCmd.PersistentFlags().StringVar(&stateDSN, "store", "", `local store: sqlite file path, postgres:// URL, or "memory"`)
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "dogs", Title: "Dogs:"},
		&cobra.Group{ID: "favorites", Title: "Favorites:"},
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Dogs
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(pageCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(breedsCmd)
	rootCmd.AddCommand(locationsCmd)
	rootCmd.AddCommand(browseCmd)

	// Favorites
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(matchCmd)

	// Account
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	// System
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(remoteCmd)
}

// reportError prints err for the user and returns the exit code.
func reportError(w io.Writer, err error) int {
	switch {
	case errors.Is(err, client.ErrAuthExpired):
		fmt.Fprintln(w, ui.RenderWarn("Your session expired. Run `dm login` to sign in again."))
		return exitAuth
	case errors.Is(err, session.ErrNotAuthenticated):
		fmt.Fprintln(w, ui.RenderWarn("Not signed in. Run `dm login --name NAME --email EMAIL` first."))
		return exitAuth
	}
	fmt.Fprintln(w, ui.RenderError("Error: "+err.Error()))
	return exitError
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	closeApp()
	stop()
	if err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}
