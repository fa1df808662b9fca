// Package redis implements docstore.Store on Redis so several server
// processes can share one board and see each other's changes.
//
// KEY LAYOUT (every key carries the configured prefix):
//
//	doc:{collection}:{id}       hash: scope, data, version, updated_at
//	all:{collection}            set of every id in the collection
//	idx:{collection}:{scope}    set of ids whose document has that scope
//	changes:{collection}        pub/sub channel, payload is the changed scope
//
// Writes publish on the change channel inside the same MULTI, so a
// subscriber in any process re-lists exactly the scopes that changed.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

// maxUpdateAttempts bounds optimistic retries when another writer touches the
// same document between WATCH and EXEC.
const maxUpdateAttempts = 16

// deleteScript removes a document and its index entries and announces the
// change. It returns the deleted document's scope, or nil when it was absent.
// KEYS[1] = document key, KEYS[2] = collection set, KEYS[3] = change channel
// ARGV[1] = id, ARGV[2] = scope index key prefix
var deleteScript = redis.NewScript(`
local scope = redis.call("HGET", KEYS[1], "scope")
if not scope then
	return false
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
redis.call("SREM", ARGV[2] .. scope, ARGV[1])
redis.call("PUBLISH", KEYS[3], scope)
return scope
`)

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, e.g. "board:". Tests use a random prefix.
	Prefix string
}

// Store is a Redis-backed document store.
type Store struct {
	client *redis.Client
	prefix string
	hub    *docstore.Hub
	now    func() time.Time

	listenOnce sync.Once
	listenErr  error
	pubsub     *redis.PubSub
	stop       context.CancelFunc
}

// New connects and pings the server.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connecting to %s: %w", opts.Addr, err)
	}
	return &Store{
		client: client,
		prefix: opts.Prefix,
		hub:    docstore.NewHub(),
		now:    time.Now,
	}, nil
}

func (s *Store) docKey(collection, id string) string {
	return s.prefix + "doc:" + collection + ":" + id
}

func (s *Store) allKey(collection string) string {
	return s.prefix + "all:" + collection
}

func (s *Store) scopePrefix(collection string) string {
	return s.prefix + "idx:" + collection + ":"
}

func (s *Store) channel(collection string) string {
	return s.prefix + "changes:" + collection
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func readDoc(ctx context.Context, r hashReader, key, id string) (*docstore.Document, error) {
	fields, err := r.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decode(id, fields), nil
}

func decode(id string, fields map[string]string) *docstore.Document {
	version, _ := strconv.ParseInt(fields["version"], 10, 64)
	updated, _ := strconv.ParseInt(fields["updated_at"], 10, 64)
	return &docstore.Document{
		ID:        id,
		Scope:     fields["scope"],
		Data:      []byte(fields["data"]),
		Version:   version,
		UpdatedAt: time.UnixMilli(updated),
	}
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	doc, err := readDoc(ctx, s.client, s.docKey(collection, id), id)
	if err != nil {
		return nil, apperror.Unavailable("get "+collection, err)
	}
	if doc == nil {
		return nil, apperror.NotFound(collection, id)
	}
	return doc, nil
}

func (s *Store) Put(ctx context.Context, collection string, doc *docstore.Document) error {
	stored, err := s.Update(ctx, collection, doc.ID, func(*docstore.Document) (*docstore.Document, error) {
		return &docstore.Document{Scope: doc.Scope, Data: doc.Data}, nil
	})
	if err != nil {
		return err
	}
	doc.Version, doc.UpdatedAt = stored.Version, stored.UpdatedAt
	return nil
}

// Update is an optimistic transaction: WATCH the key, read, call fn, then
// MULTI/EXEC. If another client wrote the key in between, EXEC fails and the
// whole cycle runs again with fresh data.
func (s *Store) Update(ctx context.Context, collection, id string, fn docstore.MutateFunc) (*docstore.Document, error) {
	key := s.docKey(collection, id)

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var (
			next  *docstore.Document
			fnErr error
		)
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := readDoc(ctx, tx, key, id)
			if err != nil {
				return err
			}

			next, fnErr = fn(current)
			if fnErr != nil {
				return fnErr
			}
			next.ID = id
			next.Version = 1
			if current != nil {
				next.Version = current.Version + 1
			}
			next.UpdatedAt = s.now()

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key,
					"scope", next.Scope,
					"data", next.Data,
					"version", next.Version,
					"updated_at", next.UpdatedAt.UnixMilli(),
				)
				if current != nil && current.Scope != next.Scope {
					pipe.SRem(ctx, s.scopePrefix(collection)+current.Scope, id)
				}
				pipe.SAdd(ctx, s.allKey(collection), id)
				pipe.SAdd(ctx, s.scopePrefix(collection)+next.Scope, id)
				pipe.Publish(ctx, s.channel(collection), next.Scope)
				return nil
			})
			return err
		}, key)

		switch {
		case fnErr != nil:
			return nil, fnErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		case err != nil:
			return nil, apperror.Unavailable("update "+collection, err)
		}
		return next, nil
	}

	return nil, apperror.Unavailable("update "+collection,
		fmt.Errorf("gave up after %d contended attempts", maxUpdateAttempts))
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	err := deleteScript.Run(ctx, s.client,
		[]string{s.docKey(collection, id), s.allKey(collection), s.channel(collection)},
		id, s.scopePrefix(collection),
	).Err()
	if errors.Is(err, redis.Nil) {
		return apperror.NotFound(collection, id)
	}
	if err != nil {
		return apperror.Unavailable("delete "+collection, err)
	}
	return nil
}

// List returns matching documents ordered by id.
func (s *Store) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	set := s.allKey(collection)
	if q.Scope != "" {
		set = s.scopePrefix(collection) + q.Scope
	}

	ids, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return nil, apperror.Unavailable("list "+collection, err)
	}
	sort.Strings(ids)

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.docKey(collection, id))
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Unavailable("list "+collection, err)
	}

	docs := make([]docstore.Document, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		// Index entries can briefly outlive a document deleted mid-listing.
		if len(fields) == 0 {
			continue
		}
		doc := decode(ids[i], fields)
		if q.Matches(doc.Scope) {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// Subscribe follows changes made by any client of the same Redis server.
func (s *Store) Subscribe(ctx context.Context, collection string, q docstore.Query) (<-chan docstore.Snapshot, error) {
	if err := s.listen(); err != nil {
		return nil, err
	}
	sub, ch := s.hub.Add(ctx, collection, q)
	if err := s.hub.Prime(ctx, sub, s.List); err != nil {
		return nil, err
	}
	return ch, nil
}

// listen starts the single pattern subscription shared by all local
// subscribers. It waits for the server's confirmation so no change published
// after Subscribe returns is missed.
func (s *Store) listen() error {
	s.listenOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		pubsub := s.client.PSubscribe(ctx, s.prefix+"changes:*")
		if _, err := pubsub.Receive(ctx); err != nil {
			cancel()
			pubsub.Close()
			s.listenErr = apperror.Unavailable("subscribe", err)
			return
		}
		s.pubsub, s.stop = pubsub, cancel

		go func() {
			for msg := range pubsub.Channel() {
				collection := strings.TrimPrefix(msg.Channel, s.prefix+"changes:")
				s.hub.Broadcast(ctx, collection, msg.Payload, s.List)
			}
		}()
	})
	return s.listenErr
}

func (s *Store) Close() error {
	if s.stop != nil {
		s.stop()
		s.pubsub.Close()
	}
	s.hub.Close()
	return s.client.Close()
}
