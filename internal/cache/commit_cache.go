package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rohankatakam/monorel/internal/commits"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "classified_commits"

// CommitCache persists classification results keyed by commit hash in a
// bbolt file. It satisfies commits.Store.
type CommitCache struct {
	db *bolt.DB
}

type record struct {
	Commit       commits.Commit `json:"commit"`
	Conventional bool           `json:"conventional"`
}

// Open opens (or creates) the cache file at path.
func Open(path string) (*CommitCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open commit cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	return &CommitCache{db: db}, nil
}

// Lookup returns the cached classification for hash.
func (c *CommitCache) Lookup(hash string) (commits.Commit, bool, bool) {
	var rec record
	found := false

	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		data := bucket.Get([]byte(hash))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil || !found {
		return commits.Commit{}, false, false
	}
	return rec.Commit, rec.Conventional, true
}

// Save stores the classification for hash.
func (c *CommitCache) Save(hash string, commit commits.Commit, conventional bool) error {
	data, err := json.Marshal(record{Commit: commit, Conventional: conventional})
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(hash), data)
	})
}

// Len returns the number of cached commits.
func (c *CommitCache) Len() int {
	n := 0
	c.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket([]byte(bucketName)); bucket != nil {
			n = bucket.Stats().KeyN
		}
		return nil
	})
	return n
}

// Close closes the underlying database.
func (c *CommitCache) Close() error {
	return c.db.Close()
}
