package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/economy"
	"github.com/sakif/suggestion-board/internal/ledger"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository"
	"github.com/sakif/suggestion-board/internal/view"
)

// SuggestionService runs the suggestion lifecycle and the vote/boost state machine.
type SuggestionService struct {
	core
	watcher *view.Watcher
	now     func() time.Time
}

func NewSuggestionService(d Deps) *SuggestionService {
	c := newCore(d)
	return &SuggestionService{
		core:    c,
		watcher: view.NewWatcher(c.Suggestions, c.Rules.Quorum, c.Logger),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// VoteResult is what a successful vote produced.
type VoteResult struct {
	Suggestion *model.Suggestion `json:"suggestion"`
	// Account is nil when the vote was stored but crediting the fragment failed.
	Account      *model.Account `json:"account,omitempty"`
	BoostsEarned int            `json:"boostsEarned"`
}

// BoostResult is what a successful boost produced.
type BoostResult struct {
	Suggestion *model.Suggestion `json:"suggestion"`
	Account    *model.Account    `json:"account"`
	Applied    int               `json:"applied"`
}

// loadForWrite fetches a suggestion and its board and runs the checks every
// write shares: the board is active and the caller belongs to it.
func (s *SuggestionService) loadForWrite(ctx context.Context, who model.Identity, id string) (*model.Suggestion, *model.Board, error) {
	sg, b, err := s.load(ctx, who, id)
	if err != nil {
		return nil, nil, err
	}
	if err := requireActive(b); err != nil {
		return nil, nil, err
	}
	return sg, b, nil
}

func (s *SuggestionService) load(ctx context.Context, who model.Identity, id string) (*model.Suggestion, *model.Board, error) {
	if err := requireIdentity(who); err != nil {
		return nil, nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, apperror.ValidationFailed("id", "suggestion ID is required")
	}

	sg, err := s.Suggestions.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.Boards.GetByID(ctx, sg.BoardID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireMember(b, who); err != nil {
		return nil, nil, err
	}
	return sg, b, nil
}

// Create posts a suggestion on a board.
func (s *SuggestionService) Create(ctx context.Context, who model.Identity, boardID string, content model.Content) (*model.Suggestion, error) {
	content.Text = strings.TrimSpace(content.Text)
	content.Image = strings.TrimSpace(content.Image)
	if content.Text == "" && content.Image == "" {
		return nil, apperror.EmptyContent()
	}
	if utf8.RuneCountInString(content.Text) > MaxTextLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("suggestion text must be %d characters or less", MaxTextLength))
	}

	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(b); err != nil {
		return nil, err
	}
	if err := s.requireMember(b, who); err != nil {
		return nil, err
	}
	s.touchMember(ctx, b, who.ID)

	displayName := strings.TrimSpace(who.DisplayName)
	if displayName == "" {
		displayName = who.ID
	}
	sg := &model.Suggestion{
		BoardID:           b.ID,
		AuthorID:          who.ID,
		AuthorDisplayName: displayName,
		Content:           content,
	}
	if err := s.Suggestions.Create(ctx, sg); err != nil {
		s.Logger.Error("failed to create suggestion",
			slog.String("board", b.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating suggestion: %w", err)
	}

	s.Logger.Info("suggestion created",
		slog.String("id", sg.ID),
		slog.String("board", b.ID),
		slog.String("author", who.ID),
	)
	return sg, nil
}

// List returns a board's suggestions, newest first.
func (s *SuggestionService) List(ctx context.Context, who model.Identity, boardID string, opts repository.ListOptions) ([]model.Suggestion, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(b, who); err != nil {
		return nil, err
	}

	list, err := s.Suggestions.ListByBoard(ctx, b.ID, clampList(opts))
	if err != nil {
		s.Logger.Error("failed to list suggestions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	return list, nil
}

// Vote records the caller's first vote and credits one fragment.
//
// SelfVote and AlreadyVoted come back unchanged so callers can treat them
// as no-ops. A second vote never pays twice because the credit only runs
// after CastVote accepted the vote.
func (s *SuggestionService) Vote(ctx context.Context, who model.Identity, id string, value int) (*VoteResult, error) {
	if !ledger.ValidValue(value) {
		return nil, apperror.InvalidVote(value)
	}
	current, b, err := s.loadForWrite(ctx, who, id)
	if err != nil {
		return nil, err
	}
	s.touchMember(ctx, b, who.ID)

	sg, err := s.Suggestions.Mutate(ctx, current.ID, func(sg *model.Suggestion) error {
		return ledger.CastVote(sg, who.ID, value)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("vote recorded",
		slog.String("suggestion", sg.ID),
		slog.String("voter", who.ID),
		slog.Int("value", value),
	)

	// The vote is stored; a caller that goes away now must not cost the fragment.
	result := &VoteResult{Suggestion: sg}
	acc, err := s.Accounts.Mutate(context.WithoutCancel(ctx), s.accountRef(b.ID, who.ID), func(acc *model.Account) error {
		result.BoostsEarned = economy.Earn(acc, 1)
		return nil
	})
	if err != nil {
		// The vote stands; the fragment is lost. Crediting is best-effort.
		s.Logger.Error("failed to credit fragment",
			slog.String("suggestion", sg.ID),
			slog.String("voter", who.ID),
			slog.String("error", err.Error()),
		)
		result.BoostsEarned = 0
		return result, nil
	}
	result.Account = acc

	if result.BoostsEarned > 0 {
		s.Logger.Info("boost earned",
			slog.String("board", b.ID),
			slog.String("account", acc.Key),
			slog.Int("boosts", acc.Boosts),
		)
	}
	return result, nil
}

// Boost spends one boost to append a second value to the caller's vote.
//
// Preconditions are checked in order: the caller holds a boost, has not
// boosted yet, is not the author and has voted. A boost that could never
// apply is rejected without touching the account. The spend happens next;
// if the vote write then fails, the boost is refunded.
func (s *SuggestionService) Boost(ctx context.Context, who model.Identity, id string) (*BoostResult, error) {
	sg, b, err := s.loadForWrite(ctx, who, id)
	if err != nil {
		return nil, err
	}

	ref := s.accountRef(b.ID, who.ID)
	held, err := s.Accounts.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	switch {
	case !economy.CanSpend(*held):
		return nil, apperror.InsufficientBoosts()
	case ledger.BoostUsed(sg.Votes, who.ID):
		return nil, apperror.BoostAlreadyUsed(sg.ID)
	case who.ID == sg.AuthorID:
		return nil, apperror.SelfVote(sg.ID)
	case !ledger.HasVoted(sg.Votes, who.ID):
		return nil, apperror.NotVoted(sg.ID)
	}

	acc, err := s.Accounts.Mutate(ctx, ref, economy.Spend)
	if err != nil {
		return nil, err
	}

	var applied int
	updated, err := s.Suggestions.Mutate(ctx, sg.ID, func(sg *model.Suggestion) error {
		v, err := ledger.ApplyBoost(sg, who.ID, s.Rules.Boost)
		applied = v
		return err
	})
	if err != nil {
		// Refund even when ctx is what failed the write.
		s.refund(context.WithoutCancel(ctx), ref, sg.ID, err)
		return nil, err
	}

	s.Logger.Info("boost applied",
		slog.String("suggestion", updated.ID),
		slog.String("voter", who.ID),
		slog.Int("value", applied),
		slog.String("rule", s.Rules.Boost.Name()),
	)
	return &BoostResult{Suggestion: updated, Account: acc, Applied: applied}, nil
}

func (s *SuggestionService) refund(ctx context.Context, ref model.Account, suggestionID string, cause error) {
	_, err := s.Accounts.Mutate(ctx, ref, func(acc *model.Account) error {
		economy.Refund(acc)
		return nil
	})
	if err != nil {
		s.Logger.Error("failed to refund boost",
			slog.String("suggestion", suggestionID),
			slog.String("account", ref.Key),
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.Logger.Warn("boost refunded",
		slog.String("suggestion", suggestionID),
		slog.String("account", ref.Key),
		slog.String("cause", cause.Error()),
	)
}

// Delete removes a suggestion. Only its author or a board admin may do it.
// A suggestion that is already gone reports NotFound, which callers treat
// as success.
func (s *SuggestionService) Delete(ctx context.Context, who model.Identity, id string) error {
	sg, b, err := s.load(ctx, who, id)
	if err != nil {
		return err
	}
	if sg.AuthorID != who.ID && !b.IsAdmin(who.ID) {
		return apperror.Forbidden("only the author or a board admin may delete a suggestion")
	}

	if err := s.Suggestions.Delete(ctx, sg.ID); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.Logger.Error("failed to delete suggestion",
				slog.String("id", sg.ID),
				slog.String("error", err.Error()),
			)
		}
		return err
	}

	s.Logger.Info("suggestion deleted", slog.String("id", sg.ID), slog.String("by", who.ID))
	return nil
}

// Report flags a suggestion for the board's admins.
func (s *SuggestionService) Report(ctx context.Context, who model.Identity, id, reason string) (*model.Suggestion, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.EmptyReason()
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, apperror.ValidationFailed("reason",
			fmt.Sprintf("report reason must be %d characters or less", MaxReasonLength))
	}
	current, _, err := s.load(ctx, who, id)
	if err != nil {
		return nil, err
	}

	sg, err := s.Suggestions.Mutate(ctx, current.ID, func(sg *model.Suggestion) error {
		sg.Reports = append(sg.Reports, model.Report{
			ReporterID: who.ID,
			Reason:     reason,
			Timestamp:  s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("suggestion reported",
		slog.String("id", sg.ID),
		slog.String("reporter", who.ID),
		slog.Int("reports", len(sg.Reports)),
	)
	return sg, nil
}

// DismissReports clears every report on a suggestion. Admins only.
func (s *SuggestionService) DismissReports(ctx context.Context, who model.Identity, id string) (*model.Suggestion, error) {
	sg, b, err := s.load(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(b, who); err != nil {
		return nil, err
	}

	return s.Suggestions.Mutate(ctx, sg.ID, func(sg *model.Suggestion) error {
		sg.Reports = []model.Report{}
		return nil
	})
}

// Views projects a board's suggestions for the caller.
func (s *SuggestionService) Views(ctx context.Context, who model.Identity, boardID string) (*view.Views, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(b, who); err != nil {
		return nil, err
	}

	list, err := s.Suggestions.ListByBoard(ctx, b.ID, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("loading views: %w", err)
	}
	v := view.Project(b.ID, list, who.ID, s.Rules.Quorum, b.MemberCount())
	return &v, nil
}

// WatchViews streams the caller's views until ctx is done.
func (s *SuggestionService) WatchViews(ctx context.Context, who model.Identity, boardID string) (<-chan view.Views, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(b, who); err != nil {
		return nil, err
	}
	return s.watcher.Watch(ctx, b.ID, who.ID, func(ctx context.Context) (int, error) {
		current, err := s.Boards.GetByID(ctx, b.ID)
		if err != nil {
			return 0, err
		}
		return current.MemberCount(), nil
	})
}
