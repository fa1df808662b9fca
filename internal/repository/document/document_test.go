package document

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/docstore/memory"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// createTestSuggestion creates a suggestion and fails the test if it errors.
func createTestSuggestion(t *testing.T, repos *Repositories, boardID, author, text string) *model.Suggestion {
	t.Helper()
	s := &model.Suggestion{BoardID: boardID, AuthorID: author, Content: model.Content{Text: text}}
	if err := repos.Suggestions.Create(context.Background(), s); err != nil {
		t.Fatalf("failed to create test suggestion: %v", err)
	}
	return s
}

// =========================================================================
// SUGGESTIONS
// =========================================================================

func TestSuggestionCreateAndGet(t *testing.T) {
	repos := newTestRepos(t)
	s := createTestSuggestion(t, repos, "b1", "u0", "more coffee")

	if s.ID == "" {
		t.Fatal("expected ID to be generated")
	}
	if s.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := repos.Suggestions.GetByID(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Content.Text != "more coffee" {
		t.Errorf("Text = %q, want %q", got.Content.Text, "more coffee")
	}
	if got.BoardID != "b1" {
		t.Errorf("BoardID = %q, want b1", got.BoardID)
	}
	if got.Votes == nil {
		t.Error("expected an empty votes map, got nil")
	}
}

func TestSuggestionGetNotFound(t *testing.T) {
	repos := newTestRepos(t)

	_, err := repos.Suggestions.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSuggestionVoteSequenceSurvivesRoundTrip(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	s := createTestSuggestion(t, repos, "b1", "u0", "x")

	_, err := repos.Suggestions.Mutate(ctx, s.ID, func(s *model.Suggestion) error {
		s.Votes["u1"] = []int{0, -1}
		s.Votes["u2"] = []int{1}
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	got, err := repos.Suggestions.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if seq := got.Votes["u1"]; len(seq) != 2 || seq[0] != 0 || seq[1] != -1 {
		t.Errorf("u1 sequence = %v, want [0 -1]", seq)
	}
	if seq := got.Votes["u2"]; len(seq) != 1 || seq[0] != 1 {
		t.Errorf("u2 sequence = %v, want [1]", seq)
	}
}

func TestSuggestionMutateAbortAndMissing(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	s := createTestSuggestion(t, repos, "b1", "u0", "x")

	abort := apperror.AlreadyVoted(s.ID)
	_, err := repos.Suggestions.Mutate(ctx, s.ID, func(s *model.Suggestion) error {
		s.Votes["u1"] = []int{1}
		return abort
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	got, _ := repos.Suggestions.GetByID(ctx, s.ID)
	if len(got.Votes) != 0 {
		t.Errorf("aborted mutation was persisted: %v", got.Votes)
	}

	_, err = repos.Suggestions.Mutate(ctx, "missing", func(*model.Suggestion) error { return nil })
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSuggestionListByBoard(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		s := &model.Suggestion{BoardID: "b1", AuthorID: "u0", Content: model.Content{Text: text},
			CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repos.Suggestions.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	createTestSuggestion(t, repos, "b2", "u0", "elsewhere")

	tests := []struct {
		name string
		opts repository.ListOptions
		want []string
	}{
		{"all newest first", repository.ListOptions{}, []string{"third", "second", "first"}},
		{"limit", repository.ListOptions{Limit: 2}, []string{"third", "second"}},
		{"offset", repository.ListOptions{Offset: 1}, []string{"second", "first"}},
		{"offset past end", repository.ListOptions{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repos.Suggestions.ListByBoard(ctx, "b1", tt.opts)
			if err != nil {
				t.Fatalf("ListByBoard() error = %v", err)
			}
			if len(list) != len(tt.want) {
				t.Fatalf("got %d suggestions, want %d", len(list), len(tt.want))
			}
			for i, s := range list {
				if s.Content.Text != tt.want[i] {
					t.Errorf("list[%d] = %q, want %q", i, s.Content.Text, tt.want[i])
				}
			}
		})
	}
}

func TestSuggestionDelete(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	s := createTestSuggestion(t, repos, "b1", "u0", "x")

	if err := repos.Suggestions.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repos.Suggestions.Delete(ctx, s.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestSuggestionWatch(t *testing.T) {
	repos := newTestRepos(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repos.Suggestions.Watch(ctx, "b1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if first := <-ch; len(first) != 0 {
		t.Fatalf("initial list has %d suggestions, want 0", len(first))
	}

	createTestSuggestion(t, repos, "b1", "u0", "live")

	select {
	case list := <-ch:
		if len(list) != 1 || list[0].Content.Text != "live" {
			t.Errorf("unexpected list after create: %+v", list)
		}
	case <-time.After(time.Second):
		t.Fatal("no update after create")
	}
}

// =========================================================================
// BOARDS
// =========================================================================

func TestBoardCreateMakesCreatorAdmin(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	b := &model.Board{Name: "Team", CreatedBy: "u0"}
	if err := repos.Boards.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repos.Boards.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.IsAdmin("u0") || !got.IsMember("u0") {
		t.Errorf("creator should be admin and member: %+v", got)
	}
}

func TestBoardListForMember(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	mine := &model.Board{Name: "Mine", CreatedBy: "u1"}
	theirs := &model.Board{Name: "Theirs", CreatedBy: "u2"}
	for _, b := range []*model.Board{mine, theirs} {
		if err := repos.Boards.Create(ctx, b); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := repos.Boards.ListForMember(ctx, "u1")
	if err != nil {
		t.Fatalf("ListForMember() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Errorf("ListForMember(u1) = %+v, want only %s", list, mine.ID)
	}
}

func TestBoardEnsureIsIdempotent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	first, err := repos.Boards.Ensure(ctx, &model.Board{ID: "global", Name: "Board", AdminIDs: []string{"root"}})
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if !first.IsAdmin("root") {
		t.Errorf("configured admin missing: %+v", first)
	}

	_, err = repos.Boards.Mutate(ctx, "global", func(b *model.Board) error {
		b.Name = "Renamed"
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	second, err := repos.Boards.Ensure(ctx, &model.Board{ID: "global", Name: "Board"})
	if err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	if second.Name != "Renamed" {
		t.Errorf("Ensure overwrote an existing board: name = %q", second.Name)
	}
}

// =========================================================================
// ACCOUNTS
// =========================================================================

func TestAccountGetAbsentIsZero(t *testing.T) {
	repos := newTestRepos(t)

	acc, err := repos.Accounts.Get(context.Background(), model.Account{Key: "b1/u1", BoardID: "b1", UserID: "u1"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if acc.Fragments != 0 || acc.Boosts != 0 || acc.UserID != "u1" {
		t.Errorf("unexpected zero account: %+v", acc)
	}
}

func TestAccountMutateCreatesThenUpdates(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	ref := model.Account{Key: "b1", BoardID: "b1"}

	for i := 0; i < 3; i++ {
		if _, err := repos.Accounts.Mutate(ctx, ref, func(a *model.Account) error {
			a.Fragments++
			return nil
		}); err != nil {
			t.Fatalf("Mutate() error = %v", err)
		}
	}

	acc, err := repos.Accounts.Get(ctx, ref)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if acc.Fragments != 3 {
		t.Errorf("Fragments = %d, want 3", acc.Fragments)
	}
}
