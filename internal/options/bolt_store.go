package options

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// boltStore implements Store backed by BoltDB. Each namespace maps to one
// bucket; values are JSON encoded.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create option store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) Get(namespace, key string, out any) (bool, error) {
	if b == nil || b.db == nil {
		return false, ErrClosed
	}
	if err := validateScope(namespace, key); err != nil {
		return false, err
	}

	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("read option %s/%s: %w", namespace, key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode option %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

func (b *boltStore) Set(namespace, key string, val any) error {
	if b == nil || b.db == nil {
		return ErrClosed
	}
	if err := validateScope(namespace, key); err != nil {
		return err
	}

	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode option %s/%s: %w", namespace, key, err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("create namespace bucket: %w", err)
		}
		return bucket.Put([]byte(key), raw)
	})
}

func (b *boltStore) Delete(namespace, key string) error {
	if b == nil || b.db == nil {
		return ErrClosed
	}
	if err := validateScope(namespace, key); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

func (b *boltStore) DeleteAll(namespace string) error {
	if b == nil || b.db == nil {
		return ErrClosed
	}
	if strings.TrimSpace(namespace) == "" {
		return fmt.Errorf("namespace is empty")
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(namespace)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(namespace))
	})
}

func (b *boltStore) Keys(namespace string) ([]string, error) {
	if b == nil || b.db == nil {
		return nil, ErrClosed
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, fmt.Errorf("namespace is empty")
	}

	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list options in %s: %w", namespace, err)
	}
	return keys, nil
}

func validateScope(namespace, key string) error {
	if strings.TrimSpace(namespace) == "" {
		return fmt.Errorf("namespace is empty")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is empty")
	}
	return nil
}
