// Package repository declares the typed persistence contracts the services use.
//
// WHY INTERFACES HERE?
// Services depend on these interfaces, never on a concrete store. The one
// production implementation lives in repository/document and maps each record
// onto a docstore.Document, but service tests can hand in a fake that fails
// on demand without touching any storage code.
//
// MUTATIONS:
// Every write that depends on the current state goes through a Mutate
// method. The callback receives a private copy of the latest stored record
// and edits it in place; returning an error aborts the write. The store
// runs the callback inside its atomic per-document update, so two
// concurrent votes on one suggestion can no longer overwrite each other.
package repository

import (
	"context"

	"github.com/sakif/suggestion-board/internal/model"
)

// ListOptions pages a listing. A zero Limit means no limit.
type ListOptions struct {
	Limit  int
	Offset int
}

// SuggestionMutation edits a suggestion in place.
type SuggestionMutation func(s *model.Suggestion) error

// BoardMutation edits a board in place.
type BoardMutation func(b *model.Board) error

// AccountMutation edits an account in place.
type AccountMutation func(a *model.Account) error

type SuggestionRepository interface {
	// Create assigns ID and CreatedAt and stores the suggestion.
	Create(ctx context.Context, s *model.Suggestion) error
	GetByID(ctx context.Context, id string) (*model.Suggestion, error)
	// ListByBoard returns a board's suggestions, newest first.
	ListByBoard(ctx context.Context, boardID string, opts ListOptions) ([]model.Suggestion, error)
	// Mutate fails with NotFound when the suggestion does not exist.
	Mutate(ctx context.Context, id string, fn SuggestionMutation) (*model.Suggestion, error)
	Delete(ctx context.Context, id string) error
	// Watch emits the board's full suggestion list now and after every change.
	// The channel closes when ctx is done.
	Watch(ctx context.Context, boardID string) (<-chan []model.Suggestion, error)
}

type BoardRepository interface {
	// Create assigns ID (when empty) and CreatedAt and makes the creator an admin.
	Create(ctx context.Context, b *model.Board) error
	GetByID(ctx context.Context, id string) (*model.Board, error)
	ListForMember(ctx context.Context, userID string) ([]model.Board, error)
	Mutate(ctx context.Context, id string, fn BoardMutation) (*model.Board, error)
	// Ensure creates b when no board with its ID exists and returns the stored board.
	Ensure(ctx context.Context, b *model.Board) (*model.Board, error)
}

// AccountRepository stores economy accounts. An account is addressed by a
// reference carrying its Key, BoardID and UserID; counters on the reference
// are ignored.
type AccountRepository interface {
	// Get returns the stored account, or a zero account for ref when none exists.
	Get(ctx context.Context, ref model.Account) (*model.Account, error)
	// Mutate creates the account from ref when it does not exist yet.
	Mutate(ctx context.Context, ref model.Account, fn AccountMutation) (*model.Account, error)
}
