// Package memory is a process-local docstore.Store.
//
// It backs tests and the single-process "local" deployment. Documents are
// copied on the way in and out so callers never share byte slices with the
// store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

// Store keeps documents in nested maps: collection -> id -> document.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]docstore.Document
	hub  *docstore.Hub
	now  func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs: make(map[string]map[string]docstore.Document),
		hub:  docstore.NewHub(),
		now:  time.Now,
	}
}

func (s *Store) Get(_ context.Context, collection, id string) (*docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, apperror.NotFound(collection, id)
	}
	return clone(doc), nil
}

func (s *Store) Put(ctx context.Context, collection string, doc *docstore.Document) error {
	s.mu.Lock()
	stored := s.write(collection, *doc)
	s.mu.Unlock()

	doc.Version, doc.UpdatedAt = stored.Version, stored.UpdatedAt
	s.hub.Broadcast(ctx, collection, stored.Scope, s.List)
	return nil
}

// Update holds the write lock across fn, so concurrent updates of any document
// in this store run one after another.
func (s *Store) Update(ctx context.Context, collection, id string, fn docstore.MutateFunc) (*docstore.Document, error) {
	s.mu.Lock()
	var current *docstore.Document
	if doc, ok := s.docs[collection][id]; ok {
		current = clone(doc)
	}

	next, err := fn(current)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	next.ID = id
	stored := s.write(collection, *next)
	s.mu.Unlock()

	s.hub.Broadcast(ctx, collection, stored.Scope, s.List)
	return clone(stored), nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	doc, ok := s.docs[collection][id]
	if !ok {
		s.mu.Unlock()
		return apperror.NotFound(collection, id)
	}
	delete(s.docs[collection], id)
	s.mu.Unlock()

	s.hub.Broadcast(ctx, collection, doc.Scope, s.List)
	return nil
}

// List returns matching documents ordered by id.
func (s *Store) List(_ context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]docstore.Document, 0, len(s.docs[collection]))
	for _, doc := range s.docs[collection] {
		if q.Matches(doc.Scope) {
			out = append(out, *clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, q docstore.Query) (<-chan docstore.Snapshot, error) {
	sub, ch := s.hub.Add(ctx, collection, q)
	if err := s.hub.Prime(ctx, sub, s.List); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *Store) Close() error {
	s.hub.Close()
	return nil
}

// write stores doc with a bumped version. Callers hold s.mu.
func (s *Store) write(collection string, doc docstore.Document) docstore.Document {
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]docstore.Document)
	}
	doc.Version = s.docs[collection][doc.ID].Version + 1
	doc.UpdatedAt = s.now()
	doc.Data = append([]byte(nil), doc.Data...)
	s.docs[collection][doc.ID] = doc
	return doc
}

func clone(doc docstore.Document) *docstore.Document {
	doc.Data = append([]byte(nil), doc.Data...)
	return &doc
}
