// Package store keeps the on-disk caches of a data directory in a single
// bbolt file. Values live in nested buckets addressed by their path from the
// root, e.g. {"sublinear", "Paillier", "eq", "64K-4-I"}.
package store

import (
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// FileName is the name of the database inside the data directory.
const FileName = "ordinos.db"

// Bucket is the path of a nested bucket.
type Bucket []string

// DB is a handle on the cache file. It is safe for concurrent use; bbolt
// serializes writers.
type DB struct {
	db   *bbolt.DB
	path string
}

// Open creates the data directory if needed and opens its cache file. Only
// one process can hold the file at a time.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, xerrors.Errorf("creating data directory: %v", err)
	}
	path := filepath.Join(dir, FileName)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %v", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// Path returns the location of the cache file.
func (d *DB) Path() string {
	return d.path
}

// Close releases the file.
func (d *DB) Close() error {
	return d.db.Close()
}

// Get returns a copy of the value stored under key, or nil if the bucket or
// the key doesn't exist.
func (d *DB) Get(b Bucket, key string) ([]byte, error) {
	var out []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		bucket := lookup(tx, b)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	return out, err
}

// Put stores value under key, creating the buckets on the way.
func (d *DB) Put(b Bucket, key string, value []byte) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := create(tx, b)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
}

// Keys lists the keys of the bucket in byte order.
func (d *DB) Keys(b Bucket) ([]string, error) {
	var keys []string
	err := d.db.View(func(tx *bbolt.Tx) error {
		bucket := lookup(tx, b)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Delete removes key from the bucket. Missing keys are ignored.
func (d *DB) Delete(b Bucket, key string) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		bucket := lookup(tx, b)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

func lookup(tx *bbolt.Tx, b Bucket) *bbolt.Bucket {
	if len(b) == 0 {
		return nil
	}
	bucket := tx.Bucket([]byte(b[0]))
	for _, name := range b[1:] {
		if bucket == nil {
			return nil
		}
		bucket = bucket.Bucket([]byte(name))
	}
	return bucket
}

func create(tx *bbolt.Tx, b Bucket) (*bbolt.Bucket, error) {
	if len(b) == 0 {
		return nil, xerrors.New("empty bucket path")
	}
	bucket, err := tx.CreateBucketIfNotExists([]byte(b[0]))
	if err != nil {
		return nil, err
	}
	for _, name := range b[1:] {
		bucket, err = bucket.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return nil, err
		}
	}
	return bucket, nil
}
