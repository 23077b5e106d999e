package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/shared"
	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// boltEntry wraps a stored value with its absolute expiry in epoch milliseconds (0 = never).
type boltEntry struct {
	Value     string `json:"v"`
	ExpiresAt int64  `json:"e,omitempty"`
}

// Bolt implements [Backend] on an embedded bbolt database file.
type Bolt struct {
	db     *bolt.DB
	now    func() time.Time
	logger *log.Logger
}

// NewBolt opens or creates the database at path.
func NewBolt(path string, logger *log.Logger) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Bolt{db: db, now: time.Now, logger: shared.WithLogger(logger, "component", "cache")}, nil
}

func (b *Bolt) Get(_ context.Context, key string) (string, bool, error) {
	var (
		entry boltEntry
		found bool
	)

	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketEntries).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s from bolt: %w", key, err)
	}
	if !found {
		return "", false, nil
	}

	if entry.expired(b.now()) {
		if err := b.evict(key); err != nil {
			b.logger.Warn("failed to evict expired entry", "key", key, "error", err)
		}
		return "", false, nil
	}

	return entry.Value, true, nil
}

func (e boltEntry) expired(now time.Time) bool {
	return e.ExpiresAt > 0 && now.UnixMilli() >= e.ExpiresAt
}

// evict deletes key only if the stored entry is still expired, so a Set that landed after the read survives.
func (b *Bolt) evict(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		v := bucket.Get([]byte(key))
		if v == nil {
			return nil
		}

		var current boltEntry
		if err := json.Unmarshal(v, &current); err != nil {
			return err
		}
		if !current.expired(b.now()) {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

func (b *Bolt) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := boltEntry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = b.now().Add(ttl).UnixMilli()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), data)
	})
}

func (b *Bolt) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(key))
	})
}

// Clear removes every key starting with prefix.
func (b *Bolt) Clear(_ context.Context, prefix string) (int, error) {
	removed := 0
	p := []byte(prefix)

	err := b.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Seek(p) {
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear bolt cache: %w", err)
	}
	return removed, nil
}

func (b *Bolt) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
