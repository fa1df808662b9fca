package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/ledger"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository"
)

// BoardService manages boards, their rosters and members' economy reads.
type BoardService struct {
	core
}

func NewBoardService(d Deps) *BoardService {
	return &BoardService{core: newCore(d)}
}

// Bootstrap creates the global board when the scope needs one. It is a
// no-op in multi mode and safe to call on every start.
func (s *BoardService) Bootstrap(ctx context.Context) error {
	if !s.Scope.Global() {
		return nil
	}
	name := s.Scope.Name
	if name == "" {
		name = "Suggestions"
	}

	b, err := s.Boards.Ensure(ctx, &model.Board{
		ID:        s.Scope.GlobalID,
		Name:      name,
		AdminIDs:  append([]string(nil), s.Scope.Admins...),
		MemberIDs: append([]string(nil), s.Scope.Admins...),
	})
	if err != nil {
		return fmt.Errorf("ensuring global board: %w", err)
	}

	s.Logger.Info("global board ready",
		slog.String("board", b.ID),
		slog.Int("admins", len(b.AdminIDs)),
	)
	return nil
}

func validateBoardName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "board name is required")
	}
	if utf8.RuneCountInString(name) > MaxBoardNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("board name must be %d characters or less", MaxBoardNameLength))
	}
	return name, nil
}

// Create makes a new board with the caller as its first admin.
func (s *BoardService) Create(ctx context.Context, who model.Identity, name string) (*model.Board, error) {
	if err := requireIdentity(who); err != nil {
		return nil, err
	}
	if s.Scope.Global() {
		return nil, apperror.Forbidden("boards cannot be created while running a single global board")
	}
	name, err := validateBoardName(name)
	if err != nil {
		return nil, err
	}

	b := &model.Board{Name: name, CreatedBy: who.ID}
	if err := s.Boards.Create(ctx, b); err != nil {
		s.Logger.Error("failed to create board",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating board: %w", err)
	}

	s.Logger.Info("board created",
		slog.String("board", b.ID),
		slog.String("creator", who.ID),
	)
	return b, nil
}

// Get returns a board the caller belongs to.
func (s *BoardService) Get(ctx context.Context, who model.Identity, boardID string) (*model.Board, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(b, who); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns the boards the caller belongs to.
func (s *BoardService) List(ctx context.Context, who model.Identity) ([]model.Board, error) {
	if err := requireIdentity(who); err != nil {
		return nil, err
	}
	if s.Scope.Global() {
		b, err := s.loadBoard(ctx, "")
		if err != nil {
			return nil, err
		}
		return []model.Board{*b}, nil
	}

	boards, err := s.Boards.ListForMember(ctx, who.ID)
	if err != nil {
		s.Logger.Error("failed to list boards", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing boards: %w", err)
	}
	return boards, nil
}

// mutate resolves boardID and applies fn atomically. Checks that depend on
// the board's current roster belong inside fn.
func (s *BoardService) mutate(ctx context.Context, boardID string, fn repository.BoardMutation) (*model.Board, error) {
	id := strings.TrimSpace(s.Scope.Resolve(boardID))
	if id == "" {
		return nil, apperror.ValidationFailed("boardId", "board ID is required")
	}
	return s.Boards.Mutate(ctx, id, fn)
}

// Join adds the caller to a board. Joining twice is a no-op.
// This is the membership grant an invite link resolves to.
func (s *BoardService) Join(ctx context.Context, who model.Identity, boardID string) (*model.Board, error) {
	if err := requireIdentity(who); err != nil {
		return nil, err
	}
	b, err := s.mutate(ctx, boardID, func(b *model.Board) error {
		if err := requireActive(b); err != nil {
			return err
		}
		b.AddMember(who.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("member joined", slog.String("board", b.ID), slog.String("user", who.ID))
	return b, nil
}

// Leave removes the caller. The last admin cannot leave while other members remain.
func (s *BoardService) Leave(ctx context.Context, who model.Identity, boardID string) (*model.Board, error) {
	if err := requireIdentity(who); err != nil {
		return nil, err
	}
	b, err := s.mutate(ctx, boardID, func(b *model.Board) error {
		if b.IsAdmin(who.ID) && len(b.AdminIDs) == 1 && b.MemberCount() > 1 {
			return apperror.Forbidden("promote another admin before leaving")
		}
		if !b.RemoveMember(who.ID) {
			return apperror.NotFound("member", who.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("member left", slog.String("board", b.ID), slog.String("user", who.ID))
	return b, nil
}

// Promote makes an existing member an admin.
func (s *BoardService) Promote(ctx context.Context, who model.Identity, boardID, userID string) (*model.Board, error) {
	return s.mutate(ctx, boardID, func(b *model.Board) error {
		if err := s.requireAdmin(b, who); err != nil {
			return err
		}
		if !b.IsMember(userID) {
			return apperror.NotFound("member", userID)
		}
		b.AddAdmin(userID)
		return nil
	})
}

// Kick removes another member. Admins leave through Leave instead.
func (s *BoardService) Kick(ctx context.Context, who model.Identity, boardID, userID string) (*model.Board, error) {
	return s.mutate(ctx, boardID, func(b *model.Board) error {
		if err := s.requireAdmin(b, who); err != nil {
			return err
		}
		if userID == who.ID {
			return apperror.ValidationFailed("userId", "use leave to remove yourself")
		}
		if !b.RemoveMember(userID) {
			return apperror.NotFound("member", userID)
		}
		return nil
	})
}

// Rename changes a board's display name.
func (s *BoardService) Rename(ctx context.Context, who model.Identity, boardID, name string) (*model.Board, error) {
	name, err := validateBoardName(name)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, boardID, func(b *model.Board) error {
		if err := s.requireAdmin(b, who); err != nil {
			return err
		}
		b.Name = name
		return nil
	})
}

// SetArchived archives or restores a board. Archived boards reject every
// suggestion, vote and boost but stay readable.
func (s *BoardService) SetArchived(ctx context.Context, who model.Identity, boardID string, archived bool) (*model.Board, error) {
	b, err := s.mutate(ctx, boardID, func(b *model.Board) error {
		if err := s.requireAdmin(b, who); err != nil {
			return err
		}
		b.Archived = archived
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("board archive state changed",
		slog.String("board", b.ID),
		slog.Bool("archived", archived),
	)
	return b, nil
}

// Economy returns the account the caller earns into on a board.
func (s *BoardService) Economy(ctx context.Context, who model.Identity, boardID string) (*model.Account, error) {
	b, err := s.Get(ctx, who, boardID)
	if err != nil {
		return nil, err
	}
	return s.Accounts.Get(ctx, s.accountRef(b.ID, who.ID))
}

// Profile summarises what userID authored on a board.
func (s *BoardService) Profile(ctx context.Context, who model.Identity, boardID, userID string) (*model.Profile, error) {
	b, err := s.Get(ctx, who, boardID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		userID = who.ID
	}

	all, err := s.Suggestions.ListByBoard(ctx, b.ID, repository.ListOptions{})
	if err != nil {
		if errors.Is(err, apperror.ErrUnavailable) {
			s.Logger.Error("failed to load profile", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	p := &model.Profile{UserID: userID, BoardID: b.ID, History: []model.Suggestion{}}
	for _, sg := range all {
		if sg.AuthorID != userID {
			continue
		}
		p.SuggestionCount++
		p.TotalScore += ledger.Score(sg.Votes)
		p.History = append(p.History, sg)
	}
	return p, nil
}
