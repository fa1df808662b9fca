package document

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/xid"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/docstore"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository"
)

var _ repository.BoardRepository = (*BoardRepo)(nil)

// BoardRepo stores boards in the "boards" collection. Boards are never deleted.
type BoardRepo struct {
	store docstore.Store
}

func NewBoardRepo(store docstore.Store) *BoardRepo {
	return &BoardRepo{store: store}
}

func (r *BoardRepo) Create(ctx context.Context, b *model.Board) error {
	prepare(b)
	doc, err := encode(b.ID, "", b)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, docstore.Boards, doc)
}

// prepare fills the fields a new board needs before its first write.
func prepare(b *model.Board) {
	if b.ID == "" {
		b.ID = xid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now()
	}
	if b.CreatedBy != "" {
		b.AddAdmin(b.CreatedBy)
	}
	if b.AdminIDs == nil {
		b.AdminIDs = []string{}
	}
	if b.MemberIDs == nil {
		b.MemberIDs = []string{}
	}
}

func (r *BoardRepo) GetByID(ctx context.Context, id string) (*model.Board, error) {
	doc, err := r.store.Get(ctx, docstore.Boards, id)
	if err != nil {
		return nil, err
	}
	return decode[model.Board](doc)
}

// ListForMember returns the boards userID belongs to, oldest first.
func (r *BoardRepo) ListForMember(ctx context.Context, userID string) ([]model.Board, error) {
	docs, err := r.store.List(ctx, docstore.Boards, docstore.Query{})
	if err != nil {
		return nil, err
	}

	out := []model.Board{}
	for i := range docs {
		b, err := decode[model.Board](&docs[i])
		if err != nil {
			return nil, err
		}
		if b.IsMember(userID) {
			out = append(out, *b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *BoardRepo) Mutate(ctx context.Context, id string, fn repository.BoardMutation) (*model.Board, error) {
	var result *model.Board
	_, err := r.store.Update(ctx, docstore.Boards, id, func(cur *docstore.Document) (*docstore.Document, error) {
		if cur == nil {
			return nil, apperror.NotFound("board", id)
		}
		b, err := decode[model.Board](cur)
		if err != nil {
			return nil, err
		}
		if err := fn(b); err != nil {
			return nil, err
		}
		result = b
		return encode(id, "", b)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Ensure reads first so the common case, an existing board, does not write.
func (r *BoardRepo) Ensure(ctx context.Context, b *model.Board) (*model.Board, error) {
	existing, err := r.GetByID(ctx, b.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	var result *model.Board
	_, err = r.store.Update(ctx, docstore.Boards, b.ID, func(cur *docstore.Document) (*docstore.Document, error) {
		if cur != nil {
			// Another process created it between our read and this update.
			existing, err := decode[model.Board](cur)
			if err != nil {
				return nil, err
			}
			result = existing
			return cur, nil
		}
		fresh := *b
		prepare(&fresh)
		result = &fresh
		return encode(fresh.ID, "", &fresh)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
