package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/session"
	"github.com/alfredjeanlab/dogmatch/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Sign in with your name and email",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")

		if err := dm.Session.Login(cmd.Context(), name, email); err != nil {
			return err
		}
		id := dm.Session.Identity()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", ui.RenderAccent(id.Name), id.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Sign out and remove local session data",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dm.Session.State() != session.StateAuthenticated {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		if err := dm.Session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the signed-in identity",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		id := dm.Session.Identity()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", id.Name, id.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("name", "", "your name")
	loginCmd.Flags().String("email", "", "your email address")
}
