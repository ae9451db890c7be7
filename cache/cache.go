// Package cache persists analysis text across runs, keyed by page URL, so an
// unchanged page is not billed to the model twice.
package cache

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const BUCKET_NAME = "analyses"

// Cache maps page URLs to previously generated analysis text.
type Cache interface {
	Get(url string) (string, bool)
	Put(url, analysis string) error
	Len() int
}

// BoltCache is a persistent Cache on a BoltDB file.
type BoltCache struct {
	db *bolt.DB
}

// NewBoltCache opens (or creates) the cache at path. It is up to the caller
// to close the database when it is no longer needed.
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BUCKET_NAME))
		return err
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to create analyses bucket")
	}

	return &BoltCache{
		db: db,
	}, nil
}

func (c *BoltCache) Get(url string) (analysis string, exists bool) {
	c.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket([]byte(BUCKET_NAME)).Get([]byte(url))
		if val != nil {
			analysis = string(val)
			exists = true
		}

		return nil
	})

	return
}

func (c *BoltCache) Put(url, analysis string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BUCKET_NAME)).Put([]byte(url), []byte(analysis))
	})
}

func (c *BoltCache) Len() int {
	var count int
	c.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(BUCKET_NAME)).Stats().KeyN
		return nil
	})

	return count
}

// Close closes the database.
func (c *BoltCache) Close() error {
	return c.db.Close()
}
