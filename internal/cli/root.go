// Package cli implements boardctl, the operator command line.
//
// Every command builds the same app.App the server uses and calls the
// services directly, so it works against a local SQLite file or a shared
// Redis without the HTTP server running.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "boardctl"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "boardctl - operate a suggestion board",
		Long:          "boardctl creates boards, posts and votes on suggestions, and prints views straight from the board's store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", os.Getenv("BOARD_CONFIG"), "path to a YAML config file")
	cmd.PersistentFlags().String("driver", "", "store driver override (memory, sqlite, redis)")
	cmd.PersistentFlags().String("db", "", "SQLite path override")
	cmd.PersistentFlags().String("as", "", "act as this user id")
	cmd.PersistentFlags().String("name", "", "display name for --as (defaults to the id)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "log store and service activity")

	cmd.AddCommand(
		NewTokenCmd(),
		NewBoardCmd(),
		NewSuggestCmd(),
		NewListCmd(),
		NewVoteCmd(),
		NewBoostCmd(),
		NewDeleteCmd(),
		NewReportCmd(),
		NewViewsCmd(),
		NewEconomyCmd(),
		NewProfileCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
