package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewViewsCmd creates the views command.
func NewViewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views <board>",
		Short: "Show the pending, review and ranked lists for --as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, _ := cmd.Flags().GetBool("follow")
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				if !follow {
					v, err := c.App.Suggestions.Views(ctx, c.Who, args[0])
					if err != nil {
						return err
					}
					return output(cmd, c, v, func(w io.Writer) { formatViews(w, v) })
				}

				ch, err := c.App.Suggestions.WatchViews(ctx, c.Who, args[0])
				if err != nil {
					return err
				}
				for v := range ch {
					if err := output(cmd, c, v, func(w io.Writer) {
						formatViews(w, &v)
						fmt.Fprintln(w, "---")
					}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolP("follow", "f", false, "keep printing as the board changes")
	return cmd
}

// NewEconomyCmd creates the economy command.
func NewEconomyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "economy <board>",
		Short: "Show the boosts and fragments --as can spend on a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				acc, err := c.App.Boards.Economy(ctx, c.Who, args[0])
				if err != nil {
					return err
				}
				return output(cmd, c, acc, func(w io.Writer) { formatAccount(w, acc) })
			})
		},
	}
}

// NewProfileCmd creates the profile command.
func NewProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <board> [user]",
		Short: "Summarise what a member authored on a board",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := ""
			if len(args) == 2 {
				user = args[1]
			}
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				p, err := c.App.Boards.Profile(ctx, c.Who, args[0], user)
				if err != nil {
					return err
				}
				return output(cmd, c, p, func(w io.Writer) {
					fmt.Fprintf(w, "%s: %d suggestion(s), total score %+d\n", p.UserID, p.SuggestionCount, p.TotalScore)
				})
			})
		},
	}
}
