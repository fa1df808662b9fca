package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/ledger"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/view"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperror.CodeInsufficientBoosts:
			fmt.Fprintln(cmd.ErrOrStderr(), "Hint: every ten votes earn one boost. Check with: boardctl economy <board>")
		case apperror.CodeNotVoted:
			fmt.Fprintln(cmd.ErrOrStderr(), "Hint: vote on the suggestion first, then boost it.")
		}
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output prints v as JSON in JSON mode and calls text otherwise.
func output(cmd *cobra.Command, c *CommandContext, v any, text func(w io.Writer)) error {
	if c.JSONMode {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	text(cmd.OutOrStdout())
	return nil
}

func formatBoard(w io.Writer, b *model.Board) {
	state := ""
	if b.Archived {
		state = " (archived)"
	}
	fmt.Fprintf(w, "%s  %s%s  members=%d admins=%s\n",
		b.ID, b.Name, state, b.MemberCount(), strings.Join(b.AdminIDs, ","))
}

func formatSuggestion(w io.Writer, sg *model.Suggestion) {
	fmt.Fprintf(w, "%s  [%+d]  %s  (by %s)\n", sg.ID, ledger.Score(sg.Votes), sg.Content.Text, sg.AuthorDisplayName)
}

func formatAccount(w io.Writer, acc *model.Account) {
	fmt.Fprintf(w, "boosts=%d fragments=%d/10\n", acc.Boosts, acc.Fragments)
}

func formatViews(w io.Writer, v *view.Views) {
	section := func(title string, entries []view.Entry) {
		fmt.Fprintf(w, "%s (%d)\n", title, len(entries))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(tw, "  %s\t%+d\t%d voters\t%s\n", e.ID, e.Score, e.Voters, e.Content.Text)
		}
		tw.Flush()
	}
	section("Pending", v.Pending)
	section("Review", v.Review)
	section("Ranked", v.Ranked)
}
