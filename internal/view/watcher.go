package view

import (
	"context"
	"log/slog"

	"github.com/sakif/suggestion-board/internal/ledger"
	"github.com/sakif/suggestion-board/internal/model"
)

// Source streams a board's full suggestion list after every change.
// repository.SuggestionRepository satisfies it.
type Source interface {
	Watch(ctx context.Context, boardID string) (<-chan []model.Suggestion, error)
}

// MemberCount reports a board's current member count. The watcher calls it
// on every recompute so fraction quorums follow joins and leaves.
type MemberCount func(ctx context.Context) (int, error)

// Watcher recomputes a viewer's Views whenever the board's suggestions change.
type Watcher struct {
	source Source
	quorum ledger.Quorum
	logger *slog.Logger
}

func NewWatcher(source Source, quorum ledger.Quorum, logger *slog.Logger) *Watcher {
	return &Watcher{source: source, quorum: quorum, logger: logger}
}

// Watch emits Views for viewerID now and after every change on boardID.
// When members fails, the last known count is kept. The channel closes when
// ctx is done or the source ends.
func (w *Watcher) Watch(ctx context.Context, boardID, viewerID string, members MemberCount) (<-chan Views, error) {
	memberCount, err := members(ctx)
	if err != nil {
		return nil, err
	}
	lists, err := w.source.Watch(ctx, boardID)
	if err != nil {
		return nil, err
	}

	out := make(chan Views, 1)
	go func() {
		defer close(out)
		for list := range lists {
			if n, err := members(ctx); err != nil {
				w.logger.Warn("member count unavailable, keeping last",
					slog.String("board", boardID),
					slog.Int("members", memberCount),
					slog.String("error", err.Error()),
				)
			} else {
				memberCount = n
			}
			v := Project(boardID, list, viewerID, w.quorum, memberCount)
			w.logger.Debug("views recomputed",
				slog.String("board", boardID),
				slog.String("viewer", viewerID),
				slog.Int("pending", len(v.Pending)),
				slog.Int("ranked", len(v.Ranked)),
			)

			// Keep only the newest views for a slow reader.
			select {
			case <-out:
			default:
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
