package document

import (
	"context"
	"log/slog"
	"sort"

	"github.com/rs/xid"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/docstore"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository"
)

var _ repository.SuggestionRepository = (*SuggestionRepo)(nil)

// SuggestionRepo stores suggestions in the "suggestions" collection.
type SuggestionRepo struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewSuggestionRepo(store docstore.Store, logger *slog.Logger) *SuggestionRepo {
	return &SuggestionRepo{store: store, logger: logger}
}

func (r *SuggestionRepo) Create(ctx context.Context, s *model.Suggestion) error {
	s.ID = xid.New().String()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	if s.Votes == nil {
		s.Votes = model.Votes{}
	}
	if s.Reports == nil {
		s.Reports = []model.Report{}
	}

	doc, err := encode(s.ID, s.BoardID, s)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, docstore.Suggestions, doc)
}

func (r *SuggestionRepo) GetByID(ctx context.Context, id string) (*model.Suggestion, error) {
	doc, err := r.store.Get(ctx, docstore.Suggestions, id)
	if err != nil {
		return nil, err
	}
	return decode[model.Suggestion](doc)
}

func (r *SuggestionRepo) ListByBoard(ctx context.Context, boardID string, opts repository.ListOptions) ([]model.Suggestion, error) {
	docs, err := r.store.List(ctx, docstore.Suggestions, docstore.Query{Scope: boardID})
	if err != nil {
		return nil, err
	}

	out := make([]model.Suggestion, 0, len(docs))
	for i := range docs {
		s, err := decode[model.Suggestion](&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	sortNewestFirst(out)

	return page(out, opts), nil
}

func (r *SuggestionRepo) Mutate(ctx context.Context, id string, fn repository.SuggestionMutation) (*model.Suggestion, error) {
	var result *model.Suggestion
	_, err := r.store.Update(ctx, docstore.Suggestions, id, func(cur *docstore.Document) (*docstore.Document, error) {
		if cur == nil {
			return nil, apperror.NotFound("suggestion", id)
		}
		s, err := decode[model.Suggestion](cur)
		if err != nil {
			return nil, err
		}
		if err := fn(s); err != nil {
			return nil, err
		}
		result = s
		return encode(id, s.BoardID, s)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SuggestionRepo) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, docstore.Suggestions, id)
}

// Watch turns the store's snapshot feed into decoded suggestion lists.
// Documents that fail to decode are logged and left out of the list.
func (r *SuggestionRepo) Watch(ctx context.Context, boardID string) (<-chan []model.Suggestion, error) {
	snaps, err := r.store.Subscribe(ctx, docstore.Suggestions, docstore.Query{Scope: boardID})
	if err != nil {
		return nil, err
	}

	out := make(chan []model.Suggestion)
	go func() {
		defer close(out)
		for snap := range snaps {
			list := make([]model.Suggestion, 0, len(snap.Docs))
			for i := range snap.Docs {
				s, err := decode[model.Suggestion](&snap.Docs[i])
				if err != nil {
					r.logger.Warn("skipping undecodable suggestion",
						slog.String("id", snap.Docs[i].ID),
						slog.String("error", err.Error()),
					)
					continue
				}
				list = append(list, *s)
			}
			sortNewestFirst(list)

			select {
			case out <- list:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func sortNewestFirst(list []model.Suggestion) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

func page[T any](items []T, opts repository.ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return []T{}
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
