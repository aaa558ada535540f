package boltcache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/protextify/edge/core/cache"
)

// Store is a BoltDB-backed cache.Store. Each namespace maps to a bucket;
// entries survive worker restarts so a restarted process serves the same
// cache state it persisted before returning control.
type Store struct {
	db *bbolt.DB
}

var _ cache.Store = (*Store)(nil)

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating cache db dir")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening cache db")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, namespace, key string) (cache.Entry, error) {
	if err := ctx.Err(); err != nil {
		return cache.Entry{}, err
	}

	var ent cache.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return cache.ErrNotFound
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return cache.ErrNotFound
		}
		if err := json.Unmarshal(raw, &ent); err != nil {
			return errors.Wrap(err, "decoding cache entry")
		}
		return nil
	})
	return ent, err
}

func (s *Store) Put(ctx context.Context, namespace string, ent cache.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(ent)
	if err != nil {
		return errors.Wrap(err, "encoding cache entry")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return errors.Wrap(err, "creating namespace bucket")
		}
		return b.Put([]byte(ent.Key), raw)
	})
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *Store) Keys(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

func (s *Store) Drop(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(namespace)); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		return nil
	})
}
