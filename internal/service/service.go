// Package service contains the board engine's business rules.
//
// THE LAYERS:
//
//	Handler / CLI   parse input, render output
//	Service         validate, check roles, run ledger/economy transitions
//	Repository      persist whole documents through a docstore.Store
//
// Services take primitives and model types, never HTTP types, so the HTTP
// API and boardctl share every rule here.
//
// WRITE ORDER:
// A vote or boost touches two documents: the suggestion and an economy
// account. Each write is atomic on its own, but nothing spans both. The
// order below keeps a failure between the two writes from minting currency
// out of nothing:
//
//	vote   write the vote, then credit a fragment (a lost credit is tolerated)
//	boost  spend the boost, then write the vote (refunded when the write fails)
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/economy"
	"github.com/sakif/suggestion-board/internal/ledger"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository"
)

// Validation limits.
const (
	MaxTextLength      = 500
	MaxReasonLength    = 200
	MaxBoardNameLength = 60
	DefaultListLimit   = 50
	MaxListLimit       = 200
)

// Board scope modes.
const (
	ModeMulti  = "multi"
	ModeGlobal = "global"
)

// BoardScope decides how board ids are resolved.
//
// In multi mode every request names its board and membership is explicit.
// In global mode every request lands on GlobalID, whatever id it names, and
// any authenticated identity counts as a member.
type BoardScope struct {
	Mode     string
	GlobalID string
	// Name and Admins seed the global board the first time it is created.
	Name   string
	Admins []string
}

// Global reports whether the scope routes everything to one board.
func (b BoardScope) Global() bool { return b.Mode == ModeGlobal }

// Resolve maps a requested board id to the board actually used.
func (b BoardScope) Resolve(boardID string) string {
	if b.Global() {
		return b.GlobalID
	}
	return boardID
}

// Rules are the pluggable parts of the voting engine.
type Rules struct {
	Quorum  ledger.Quorum
	Boost   ledger.BoostRule
	Economy economy.Scope
}

// DefaultRules are the rules used when configuration leaves them empty.
func DefaultRules() Rules {
	return Rules{
		Quorum:  ledger.AtLeastOne,
		Boost:   ledger.Reinforce{},
		Economy: economy.PerMember{},
	}
}

// Deps are the collaborators every service shares. They are built once at
// start-up and injected.
type Deps struct {
	Suggestions repository.SuggestionRepository
	Boards      repository.BoardRepository
	Accounts    repository.AccountRepository
	Rules       Rules
	Scope       BoardScope
	Logger      *slog.Logger
}

// core holds the checks both services run before touching a board.
type core struct {
	Deps
}

func newCore(d Deps) core {
	def := DefaultRules()
	if d.Rules.Quorum == nil {
		d.Rules.Quorum = def.Quorum
	}
	if d.Rules.Boost == nil {
		d.Rules.Boost = def.Boost
	}
	if d.Rules.Economy == nil {
		d.Rules.Economy = def.Economy
	}
	if d.Scope.Mode == "" {
		d.Scope.Mode = ModeMulti
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return core{Deps: d}
}

func requireIdentity(who model.Identity) error {
	if strings.TrimSpace(who.ID) == "" {
		return apperror.Forbidden("an identity is required")
	}
	return nil
}

// loadBoard resolves boardID through the scope and fetches it.
func (c *core) loadBoard(ctx context.Context, boardID string) (*model.Board, error) {
	id := strings.TrimSpace(c.Scope.Resolve(boardID))
	if id == "" {
		return nil, apperror.ValidationFailed("boardId", "board ID is required")
	}
	return c.Boards.GetByID(ctx, id)
}

func (c *core) isMember(b *model.Board, userID string) bool {
	return c.Scope.Global() || b.IsMember(userID)
}

func (c *core) requireMember(b *model.Board, who model.Identity) error {
	if err := requireIdentity(who); err != nil {
		return err
	}
	if !c.isMember(b, who.ID) {
		return apperror.Forbidden(fmt.Sprintf("not a member of board %s", b.ID))
	}
	return nil
}

func (c *core) requireAdmin(b *model.Board, who model.Identity) error {
	if err := requireIdentity(who); err != nil {
		return err
	}
	if !b.IsAdmin(who.ID) {
		return apperror.Forbidden(fmt.Sprintf("only admins of board %s may do this", b.ID))
	}
	return nil
}

func requireActive(b *model.Board) error {
	if b.Archived {
		return apperror.BoardArchived(b.ID)
	}
	return nil
}

// touchMember records an identity on the global board the first time it
// writes there, so member counts used by quorum reflect real participants.
func (c *core) touchMember(ctx context.Context, b *model.Board, userID string) {
	if !c.Scope.Global() || b.IsMember(userID) {
		return
	}
	_, err := c.Boards.Mutate(ctx, b.ID, func(b *model.Board) error {
		b.AddMember(userID)
		return nil
	})
	if err != nil {
		c.Logger.Warn("failed to record global member",
			slog.String("board", b.ID),
			slog.String("user", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	b.AddMember(userID)
}

// accountRef addresses the account userID earns into on boardID.
func (c *core) accountRef(boardID, userID string) model.Account {
	return model.Account{
		Key:     c.Rules.Economy.Key(boardID, userID),
		BoardID: boardID,
		UserID:  c.Rules.Economy.Owner(userID),
	}
}

func clampList(opts repository.ListOptions) repository.ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
