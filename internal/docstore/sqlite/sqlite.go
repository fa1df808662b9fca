// Package sqlite implements docstore.Store on a single SQLite file.
//
// WHY SQLITE?
// It is the durable "local" deployment: one binary, one file, no server.
// modernc.org/sqlite is a pure Go translation of SQLite, so there is no CGo
// and cross-compiling keeps working.
//
// CONCURRENCY:
// The pool is capped at one connection. Every statement, and every Update
// transaction, therefore runs alone. That is what makes Update an atomic
// read-modify-write, and it also keeps ":memory:" databases coherent (each
// new connection to ":memory:" would otherwise see an empty database).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/docstore"
)

var _ docstore.Store = (*DB)(nil)

// DB wraps the connection pool and the in-process change hub.
type DB struct {
	conn *sql.DB
	hub  *docstore.Hub
	now  func() time.Time
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/board.db"  file-based, persistent
//   - ":memory:"       in-memory, lost on Close (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers in other processes (boardctl next to the server) proceed during a write.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := newWithConn(conn)
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn, hub: docstore.NewHub(), now: time.Now}
}

// Close stops subscriptions and closes the pool.
func (db *DB) Close() error {
	db.hub.Close()
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT    NOT NULL,
			id         TEXT    NOT NULL,
			scope      TEXT    NOT NULL DEFAULT '',
			data       BLOB    NOT NULL,
			version    INTEGER NOT NULL DEFAULT 1,
			updated_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(collection, scope);
	`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	// created_at arrived after the first release; add it to older files in place.
	if err := db.addColumnIfNotExists("documents", "created_at",
		"INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("adding created_at to documents: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDoc(ctx context.Context, q queryer, collection, id string) (*docstore.Document, error) {
	var (
		doc       docstore.Document
		updatedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, scope, data, version, updated_at
		 FROM documents
		 WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&doc.ID, &doc.Scope, &doc.Data, &doc.Version, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(collection, id)
		}
		return nil, apperror.Unavailable("get "+collection, err)
	}
	doc.UpdatedAt = time.UnixMilli(updatedAt)
	return &doc, nil
}

func (db *DB) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return getDoc(ctx, db.conn, collection, id)
}

// Put writes doc whole, replacing any previous version.
func (db *DB) Put(ctx context.Context, collection string, doc *docstore.Document) error {
	now := db.now()
	var version int64
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO documents (collection, id, scope, data, version, updated_at, created_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE
		 SET scope = excluded.scope, data = excluded.data,
		     version = documents.version + 1, updated_at = excluded.updated_at
		 RETURNING version`,
		collection, doc.ID, doc.Scope, doc.Data, now.UnixMilli(), now.UnixMilli(),
	).Scan(&version)
	if err != nil {
		return apperror.Unavailable("put "+collection, err)
	}

	doc.Version, doc.UpdatedAt = version, now
	db.hub.Broadcast(ctx, collection, doc.Scope, db.List)
	return nil
}

// Update runs fn inside a transaction on the single pooled connection.
func (db *DB) Update(ctx context.Context, collection, id string, fn docstore.MutateFunc) (*docstore.Document, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperror.Unavailable("begin "+collection, err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	current, err := getDoc(ctx, tx, collection, id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	next.ID = id
	next.Version = 1
	if current != nil {
		next.Version = current.Version + 1
	}
	next.UpdatedAt = db.now()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (collection, id, scope, data, version, updated_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE
		 SET scope = excluded.scope, data = excluded.data,
		     version = excluded.version, updated_at = excluded.updated_at`,
		collection, id, next.Scope, next.Data, next.Version,
		next.UpdatedAt.UnixMilli(), next.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, apperror.Unavailable("update "+collection, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperror.Unavailable("commit "+collection, err)
	}

	db.hub.Broadcast(ctx, collection, next.Scope, db.List)
	return next, nil
}

// Delete removes a document, reporting NotFound when it was already gone.
func (db *DB) Delete(ctx context.Context, collection, id string) error {
	var scope string
	err := db.conn.QueryRowContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ? RETURNING scope`,
		collection, id,
	).Scan(&scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound(collection, id)
		}
		return apperror.Unavailable("delete "+collection, err)
	}

	db.hub.Broadcast(ctx, collection, scope, db.List)
	return nil
}

// List returns matching documents ordered by id.
func (db *DB) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, scope, data, version, updated_at
		 FROM documents
		 WHERE collection = ? AND (? = '' OR scope = ?)
		 ORDER BY id`,
		collection, q.Scope, q.Scope,
	)
	if err != nil {
		return nil, apperror.Unavailable("list "+collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var (
			doc       docstore.Document
			updatedAt int64
		)
		if err := rows.Scan(&doc.ID, &doc.Scope, &doc.Data, &doc.Version, &updatedAt); err != nil {
			return nil, apperror.Unavailable("scan "+collection, err)
		}
		doc.UpdatedAt = time.UnixMilli(updatedAt)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Unavailable("iterate "+collection, err)
	}

	return docs, nil
}

// Subscribe follows writes made through this *DB. Writes by other processes
// sharing the file are not observed; use the redis store for that.
func (db *DB) Subscribe(ctx context.Context, collection string, q docstore.Query) (<-chan docstore.Snapshot, error) {
	sub, ch := db.hub.Add(ctx, collection, q)
	if err := db.hub.Prime(ctx, sub, db.List); err != nil {
		return nil, err
	}
	return ch, nil
}
