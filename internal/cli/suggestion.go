package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository"
)

// NewSuggestCmd creates the suggest command.
func NewSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <board> <text...>",
		Short: "Post a suggestion",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, _ := cmd.Flags().GetString("image")
			content := model.Content{Text: strings.Join(args[1:], " "), Image: image}
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				sg, err := c.App.Suggestions.Create(ctx, c.Who, args[0], content)
				if err != nil {
					return err
				}
				return output(cmd, c, sg, func(w io.Writer) { formatSuggestion(w, sg) })
			})
		},
	}
	cmd.Flags().String("image", "", "image URL to attach")
	return cmd
}

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <board>",
		Short: "List a board's suggestions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				list, err := c.App.Suggestions.List(ctx, c.Who, args[0],
					repository.ListOptions{Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				if list == nil {
					list = []model.Suggestion{}
				}
				return output(cmd, c, list, func(w io.Writer) {
					if len(list) == 0 {
						fmt.Fprintln(w, "No suggestions")
						return
					}
					for i := range list {
						formatSuggestion(w, &list[i])
					}
				})
			})
		},
	}
	cmd.Flags().Int("limit", 0, "maximum suggestions to show (0 = default)")
	cmd.Flags().Int("offset", 0, "suggestions to skip")
	return cmd
}

// parseVote accepts up/down/neutral as well as 1, 0 and -1. Negative numbers
// need a "--" before them so cobra does not read them as flags.
func parseVote(s string) (int, error) {
	switch strings.ToLower(s) {
	case "up", "+", "+1":
		return model.VoteUp, nil
	case "down", "-":
		return model.VoteDown, nil
	case "neutral", "meh":
		return model.VoteNeutral, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperror.ValidationFailed("value", fmt.Sprintf("unknown vote %q: use up, down or neutral", s))
	}
	return v, nil
}

// NewVoteCmd creates the vote command.
func NewVoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <suggestion> <up|down|neutral>",
		Short: "Vote on a suggestion and earn a fragment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseVote(args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				res, err := c.App.Suggestions.Vote(ctx, c.Who, args[0], value)
				if err != nil {
					return err
				}
				return output(cmd, c, res, func(w io.Writer) {
					formatSuggestion(w, res.Suggestion)
					if res.BoostsEarned > 0 {
						fmt.Fprintf(w, "Earned %d boost(s)!\n", res.BoostsEarned)
					}
					if res.Account != nil {
						formatAccount(w, res.Account)
					}
				})
			})
		},
	}
}

// NewBoostCmd creates the boost command.
func NewBoostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boost <suggestion>",
		Short: "Spend a boost on a suggestion you voted on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				res, err := c.App.Suggestions.Boost(ctx, c.Who, args[0])
				if err != nil {
					return err
				}
				return output(cmd, c, res, func(w io.Writer) {
					formatSuggestion(w, res.Suggestion)
					fmt.Fprintf(w, "Boost applied (%+d)\n", res.Applied)
					formatAccount(w, res.Account)
				})
			})
		},
	}
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <suggestion>",
		Short: "Delete a suggestion (author or admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				err := c.App.Suggestions.Delete(ctx, c.Who, args[0])
				if err != nil && !apperror.HasCode(err, apperror.CodeNotFound) {
					return err
				}
				return output(cmd, c, map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s\n", args[0])
				})
			})
		},
	}
}

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <suggestion> <reason...>",
		Short: "Report a suggestion to the board's admins",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dismiss, _ := cmd.Flags().GetBool("dismiss")
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				var (
					sg  *model.Suggestion
					err error
				)
				if dismiss {
					sg, err = c.App.Suggestions.DismissReports(ctx, c.Who, args[0])
				} else {
					sg, err = c.App.Suggestions.Report(ctx, c.Who, args[0], strings.Join(args[1:], " "))
				}
				if err != nil {
					return err
				}
				return output(cmd, c, sg, func(w io.Writer) {
					fmt.Fprintf(w, "%s has %d report(s)\n", sg.ID, len(sg.Reports))
				})
			})
		},
	}
	cmd.Flags().Bool("dismiss", false, "clear every report instead (admins only)")
	return cmd
}
