package boltoutbox

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/protextify/edge/core/outbox"
)

var bucketName = []byte("outbox")

// Repository is the durable, page-independent deferred-write queue. Items
// are persisted before the enqueue call returns, so a worker termination
// between events never loses a queued write.
type Repository struct {
	db *bbolt.DB
}

var _ outbox.Repository = (*Repository)(nil)

// Open opens (or creates) the outbox database at path.
func Open(path string) (*Repository, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating outbox db dir")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening outbox db")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating outbox bucket")
	}
	return &Repository{db: db}, nil
}

func (repo *Repository) Close() error {
	return repo.db.Close()
}

func (repo *Repository) Save(ctx context.Context, item outbox.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return errors.Wrap(err, "encoding queue item")
	}
	return repo.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(item.ID), raw)
	})
}

func (repo *Repository) All(ctx context.Context) ([]outbox.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []outbox.Item
	err := repo.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(_, raw []byte) error {
			var item outbox.Item
			if err := json.Unmarshal(raw, &item); err != nil {
				return errors.Wrap(err, "decoding queue item")
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].EnqueuedAt.Before(items[j].EnqueuedAt) })
	return items, nil
}

func (repo *Repository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(id)) == nil {
			return outbox.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}
