// Package document implements the repository interfaces on a docstore.Store.
//
// Each record is marshalled to JSON and stored whole. The document Scope is
// the owning board id for suggestions and accounts, and empty for boards, so
// a subscriber can follow one board without decoding the others.
//
// ID GENERATION WITH xid:
// New boards and suggestions get a 20 character, URL-safe xid. xids sort by
// creation time, which keeps the default id ordering of List meaningful.
package document

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/suggestion-board/internal/docstore"
)

// Repositories bundles the three repositories over one store.
type Repositories struct {
	Suggestions *SuggestionRepo
	Boards      *BoardRepo
	Accounts    *AccountRepo
}

// New builds every repository on store.
func New(store docstore.Store, logger *slog.Logger) *Repositories {
	return &Repositories{
		Suggestions: NewSuggestionRepo(store, logger),
		Boards:      NewBoardRepo(store),
		Accounts:    NewAccountRepo(store),
	}
}

func decode[T any](doc *docstore.Document) (*T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return nil, fmt.Errorf("document: decoding %s: %w", doc.ID, err)
	}
	return &v, nil
}

func encode(id, scope string, v any) (*docstore.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("document: encoding %s: %w", id, err)
	}
	return &docstore.Document{ID: id, Scope: scope, Data: data}, nil
}

// now is replaced in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }
