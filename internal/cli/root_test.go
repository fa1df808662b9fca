package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/service"
	"github.com/sakif/suggestion-board/internal/view"
)

// executeCommand runs args and returns stdout and stderr separately so JSON
// output can be decoded without log lines mixed in.
func executeCommand(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// board runs one boardctl invocation against dbPath as user.
type board struct {
	t      *testing.T
	dbPath string
}

func newBoard(t *testing.T) *board {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("BOARD_MODE", "multi")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BOARD_CONFIG", "")
	return &board{t: t, dbPath: filepath.Join(dir, "board.db")}
}

func (b *board) run(user string, args ...string) (string, string, error) {
	b.t.Helper()
	full := append([]string{"--db", b.dbPath, "--as", user}, args...)
	return executeCommand(NewRootCmd("test"), full...)
}

// runJSON runs a command in JSON mode and decodes its output into out.
func (b *board) runJSON(out any, user string, args ...string) {
	b.t.Helper()
	stdout, stderr, err := b.run(user, append(args, "--json")...)
	if err != nil {
		b.t.Fatalf("%v: %v\nstderr: %s", args, err, stderr)
	}
	if err := json.Unmarshal([]byte(stdout), out); err != nil {
		b.t.Fatalf("%v: decoding %q: %v", args, stdout, err)
	}
}

func TestRootCommandVersion(t *testing.T) {
	cmd := NewRootCmd("test")

	output, _, err := executeCommand(cmd, "--version")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(output, "boardctl version test") {
		t.Fatalf("unexpected version output: %q", output)
	}
}

func TestCreateVoteBoostFlow(t *testing.T) {
	b := newBoard(t)

	var created model.Board
	b.runJSON(&created, "alice", "board", "create", "Team")
	if created.ID == "" || !created.IsAdmin("alice") {
		t.Fatalf("unexpected board: %+v", created)
	}

	var joined model.Board
	b.runJSON(&joined, "bob", "board", "join", created.ID)
	if !joined.IsMember("bob") {
		t.Fatalf("bob should be a member: %+v", joined)
	}

	var sg model.Suggestion
	b.runJSON(&sg, "alice", "suggest", created.ID, "Pizza", "Friday")
	if sg.Content.Text != "Pizza Friday" {
		t.Fatalf("text = %q", sg.Content.Text)
	}

	var voted service.VoteResult
	b.runJSON(&voted, "bob", "vote", sg.ID, "up")
	if voted.Account == nil || voted.Account.Fragments != 1 {
		t.Fatalf("expected one fragment, got %+v", voted.Account)
	}

	// Bob has no boosts yet.
	_, stderr, err := b.run("bob", "boost", sg.ID)
	if err == nil {
		t.Fatal("expected boost to fail without boosts")
	}
	if !strings.Contains(stderr, "Hint: every ten votes earn one boost") {
		t.Fatalf("missing hint in %q", stderr)
	}

	var views view.Views
	b.runJSON(&views, "bob", "views", created.ID)
	if len(views.Ranked) != 1 || views.Ranked[0].Score != 1 {
		t.Fatalf("unexpected ranked view: %+v", views.Ranked)
	}
	if len(views.Pending) != 0 {
		t.Fatalf("bob already voted, pending should be empty: %+v", views.Pending)
	}

	var acc model.Account
	b.runJSON(&acc, "bob", "economy", created.ID)
	if acc.Fragments != 1 || acc.Boosts != 0 {
		t.Fatalf("unexpected account: %+v", acc)
	}

	var list []model.Board
	b.runJSON(&list, "bob", "board", "list")
	if len(list) != 1 {
		t.Fatalf("expected one board, got %d", len(list))
	}
}

func TestTextOutput(t *testing.T) {
	b := newBoard(t)

	var created model.Board
	b.runJSON(&created, "alice", "board", "create", "Team")

	out, _, err := b.run("alice", "suggest", created.ID, "Tacos")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !strings.Contains(out, "Tacos") || !strings.Contains(out, "[+0]") {
		t.Fatalf("unexpected suggest output: %q", out)
	}

	out, _, err = b.run("alice", "views", created.ID)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	for _, want := range []string{"Pending (0)", "Review (1)", "Ranked (0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("views output missing %q:\n%s", want, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	b := newBoard(t)

	tests := []struct {
		name string
		user string
		args []string
		want string
	}{
		{"missing identity", "", []string{"board", "list"}, "--as is required"},
		{"unknown board", "alice", []string{"views", "nope"}, "not found"},
		{"bad vote", "alice", []string{"vote", "x", "sideways"}, "unknown vote"},
		{"token without secret", "alice", []string{"token"}, "no JWT secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := b.run(tt.user, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Fatalf("stderr %q does not mention %q", stderr, tt.want)
			}
		})
	}
}

func TestTokenCommand(t *testing.T) {
	b := newBoard(t)
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")

	out, _, err := b.run("alice", "token", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Fatalf("expected a JWT, got %q", out)
	}
}

func TestParseVote(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"up", 1, false},
		{"DOWN", -1, false},
		{"neutral", 0, false},
		{"-1", -1, false},
		{"1", 1, false},
		{"sideways", 0, true},
	}
	for _, tt := range tests {
		got, err := parseVote(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseVote(%q) err = %v", tt.in, err)
		}
		if err == nil && got != tt.want {
			t.Fatalf("parseVote(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
