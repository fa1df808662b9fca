package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/suggestion-board/internal/model"
)

// NewBoardCmd creates the board command group.
func NewBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Create, join and list boards",
	}
	cmd.AddCommand(
		newBoardCreateCmd(),
		newBoardJoinCmd(),
		newBoardLeaveCmd(),
		newBoardListCmd(),
		newBoardArchiveCmd(),
	)
	return cmd
}

func newBoardCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a board; --as becomes its admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				b, err := c.App.Boards.Create(ctx, c.Who, args[0])
				if err != nil {
					return err
				}
				return output(cmd, c, b, func(w io.Writer) { formatBoard(w, b) })
			})
		},
	}
}

func newBoardJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <board>",
		Short: "Join a board by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				b, err := c.App.Boards.Join(ctx, c.Who, args[0])
				if err != nil {
					return err
				}
				return output(cmd, c, b, func(w io.Writer) { formatBoard(w, b) })
			})
		},
	}
}

func newBoardLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <board>",
		Short: "Leave a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				b, err := c.App.Boards.Leave(ctx, c.Who, args[0])
				if err != nil {
					return err
				}
				return output(cmd, c, b, func(w io.Writer) {
					fmt.Fprintf(w, "Left %s\n", b.Name)
				})
			})
		},
	}
}

func newBoardListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the boards --as belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				boards, err := c.App.Boards.List(ctx, c.Who)
				if err != nil {
					return err
				}
				if boards == nil {
					boards = []model.Board{}
				}
				return output(cmd, c, boards, func(w io.Writer) {
					if len(boards) == 0 {
						fmt.Fprintln(w, "No boards")
						return
					}
					for i := range boards {
						formatBoard(w, &boards[i])
					}
				})
			})
		},
	}
}

func newBoardArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <board>",
		Short: "Archive a board (admins only); --restore brings it back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			restore, _ := cmd.Flags().GetBool("restore")
			return withContext(cmd, func(ctx context.Context, c *CommandContext) error {
				b, err := c.App.Boards.SetArchived(ctx, c.Who, args[0], !restore)
				if err != nil {
					return err
				}
				return output(cmd, c, b, func(w io.Writer) { formatBoard(w, b) })
			})
		},
	}
	cmd.Flags().Bool("restore", false, "unarchive instead")
	return cmd
}
