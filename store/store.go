// Package store caches compiled phase tables in a bbolt database.
//
// Entries live in the "tables" bucket keyed by a digest of the rule source
// and the compile settings, JSON-encoded. A cached table is turned back
// into a Grammar with japefsm.Restore, skipping determinization and
// minimization.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/coregx/japefsm"
	"github.com/coregx/japefsm/fsm"
	"github.com/coregx/japefsm/pattern"
)

var bucketTables = []byte("tables")

// Entry is one cached compilation.
type Entry struct {
	Key       string        `json:"key"`
	Phase     string        `json:"phase"`
	CreatedAt time.Time     `json:"created_at"`
	Stats     japefsm.Stats `json:"stats"`
	Table     fsm.Table     `json:"table"`
}

// Store is a bbolt-backed table cache.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTables)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Key derives the cache key of a rule source compiled with cfg. Only the
// settings that change the resulting table take part.
func Key(source []byte, cfg japefsm.Config) string {
	h := sha256.New()
	h.Write(source)
	fmt.Fprintf(h, "\x00minimize=%t", cfg.Minimize)
	return hex.EncodeToString(h.Sum(nil))
}

// Put stores e under key, replacing any previous entry.
func (s *Store) Put(key string, e Entry) error {
	e.Key = key
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTables).Put([]byte(key), data)
	})
}

// Get returns the entry stored under key. ok is false if there is none.
func (s *Store) Get(key string) (e Entry, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTables).Get([]byte(key))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("load entry %s: %w", key, err)
	}
	return e, ok, nil
}

// List returns every entry in key order.
func (s *Store) List() ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTables).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

// Delete removes the entry stored under key. Deleting a missing key is
// not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTables).Delete([]byte(key))
	})
}

// Clear removes every entry and returns how many there were.
func (s *Store) Clear() (int, error) {
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketTables).Stats().KeyN
		if err := tx.DeleteBucket(bucketTables); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketTables)
		return err
	})
	return n, err
}

// Compile returns the grammar for phase, restoring it from the cache when
// an entry for source and cfg exists and compiling and storing it
// otherwise. cached reports a cache hit.
func (s *Store) Compile(phase *pattern.Phase, source []byte, cfg japefsm.Config) (g *japefsm.Grammar, cached bool, err error) {
	key := Key(source, cfg)
	e, ok, err := s.Get(key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		g, err := japefsm.Restore(phase, cfg, e.Table)
		if err == nil {
			cfg.Logger.Debug().Str("key", key[:12]).Str("phase", phase.Name).Msg("cache hit")
			return g, true, nil
		}
		cfg.Logger.Warn().Err(err).Str("key", key[:12]).Msg("stale cache entry, recompiling")
	}

	g, err = japefsm.Compile(phase, cfg)
	if err != nil {
		return nil, false, err
	}
	err = s.Put(key, Entry{
		Phase:     phase.Name,
		CreatedAt: time.Now().UTC(),
		Stats:     g.Stats(),
		Table:     g.Automaton().Table(),
	})
	if err != nil {
		return nil, false, err
	}
	return g, false, nil
}
