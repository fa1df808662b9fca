// Package docstore is the document store the board engine persists through.
//
// The engine only needs a handful of verbs: get, put, atomic update, delete,
// list and subscribe. Collections hold opaque JSON documents; each document
// carries a Scope (the owning board id, or empty) so a subscriber can follow
// one board without decoding every document.
//
// IMPLEMENTATIONS:
//
//	docstore/memory  process-local, used by tests and single-process demos
//	docstore/sqlite  durable single-file store (modernc.org/sqlite)
//	docstore/redis   shared remote store with a pub/sub change feed
//
// All three make Update an atomic read-modify-write of one document. Nothing
// spans two documents: a vote write and the matching economy write are two
// separate updates.
package docstore

import (
	"context"
	"time"
)

// Collection names used by the engine.
const (
	Boards      = "boards"
	Suggestions = "suggestions"
	Accounts    = "accounts"
)

// Document is one stored record.
type Document struct {
	ID        string
	Scope     string
	Data      []byte
	Version   int64
	UpdatedAt time.Time
}

// Query selects documents in a collection. An empty Scope selects all of them.
type Query struct {
	Scope string
}

// Matches reports whether a document with the given scope falls inside q.
func (q Query) Matches(scope string) bool {
	return q.Scope == "" || q.Scope == scope
}

// Snapshot is the full result of a subscribed query after a change.
type Snapshot struct {
	Collection string
	Scope      string
	Docs       []Document
}

// MutateFunc receives the current document, or nil when it does not exist,
// and returns the document to store. Returning an error aborts the update
// and leaves the stored document untouched.
type MutateFunc func(current *Document) (*Document, error)

// Store is the SyncAdapter contract.
//
// Missing documents are reported as apperror.NotFound. Driver and network
// failures are reported as apperror.Unavailable.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Put(ctx context.Context, collection string, doc *Document) error
	Update(ctx context.Context, collection, id string, fn MutateFunc) (*Document, error)
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, q Query) ([]Document, error)

	// Subscribe delivers a snapshot immediately and then after every change to
	// the selected documents. The channel is closed when ctx is done.
	Subscribe(ctx context.Context, collection string, q Query) (<-chan Snapshot, error)

	Close() error
}
