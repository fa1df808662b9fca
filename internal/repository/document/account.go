package document

import (
	"context"
	"errors"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/docstore"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo stores economy accounts in the "accounts" collection, keyed by
// the account key the economy scope produced.
type AccountRepo struct {
	store docstore.Store
}

func NewAccountRepo(store docstore.Store) *AccountRepo {
	return &AccountRepo{store: store}
}

func (r *AccountRepo) Get(ctx context.Context, ref model.Account) (*model.Account, error) {
	doc, err := r.store.Get(ctx, docstore.Accounts, ref.Key)
	if errors.Is(err, apperror.ErrNotFound) {
		return blank(ref), nil
	}
	if err != nil {
		return nil, err
	}
	return decode[model.Account](doc)
}

func (r *AccountRepo) Mutate(ctx context.Context, ref model.Account, fn repository.AccountMutation) (*model.Account, error) {
	var result *model.Account
	_, err := r.store.Update(ctx, docstore.Accounts, ref.Key, func(cur *docstore.Document) (*docstore.Document, error) {
		acc := blank(ref)
		if cur != nil {
			stored, err := decode[model.Account](cur)
			if err != nil {
				return nil, err
			}
			acc = stored
		}
		if err := fn(acc); err != nil {
			return nil, err
		}
		result = acc
		return encode(ref.Key, ref.BoardID, acc)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func blank(ref model.Account) *model.Account {
	return &model.Account{Key: ref.Key, BoardID: ref.BoardID, UserID: ref.UserID}
}
