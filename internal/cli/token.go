package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewTokenCmd creates the token command.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token for --as",
		Long:  "Sign a token for the --as identity with the configured JWT secret. Meant for development and scripting against the HTTP API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer c.Close()

			if c.Who.ID == "" {
				return writeCommandError(cmd, errNoIdentity)
			}
			if c.App.Tokens == nil {
				return writeCommandError(cmd, errors.New("no JWT secret configured (set JWT_SECRET or auth.jwt_secret)"))
			}

			ttl, _ := cmd.Flags().GetDuration("ttl")
			tok, err := c.App.Tokens.GenerateWithDuration(c.Who, ttl)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if c.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"token":      tok,
					"user":       c.Who.ID,
					"expires_in": ttl.String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	return cmd
}
