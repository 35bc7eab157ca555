package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/UXDProtocol/anchor-comp/pkg/storage/dbconfig"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.etcd.io/bbolt"
)

// Bucket is the BoltDB bucket holding all the pairs.
var Bucket = []byte("journal")

// BoltDBStore is the BoltDB-backed Store.
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore opens (or creates unless ReadOnly is set) the database file
// with its bucket.
func NewBoltDBStore(cfg dbconfig.BoltDBOptions) (*BoltDBStore, error) {
	opts := *bbolt.DefaultOptions
	opts.ReadOnly = cfg.ReadOnly
	if !cfg.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create dir for BoltDB: %w", err)
		}
	}
	db, err := bbolt.Open(cfg.FilePath, 0o600, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB instance: %w", err)
	}
	if cfg.ReadOnly {
		err = db.View(func(tx *bbolt.Tx) error {
			if tx.Bucket(Bucket) == nil {
				return errors.New("journal bucket does not exist")
			}
			return nil
		})
	} else {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(Bucket)
			return err
		})
	}
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return &BoltDBStore{db: db}, nil
}

// Get implements the Store interface.
func (s *BoltDBStore) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		// Values are only valid for the lifetime of transaction.
		val = bytes.Clone(tx.Bucket(Bucket).Get(key))
		return nil
	})
	if err == nil && val == nil {
		err = ErrKeyNotFound
	}
	return val, err
}

// Write implements the Store interface.
func (s *BoltDBStore) Write(batch ...KeyValue) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(Bucket)
		for _, kv := range batch {
			var err error
			if kv.Value == nil {
				err = b.Delete(kv.Key)
			} else {
				err = b.Put(kv.Key, kv.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Iterate implements the Store interface.
func (s *BoltDBStore) Iterate(prefix []byte, reverse bool, f func(k, v []byte) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(Bucket).Cursor()
		var k, v []byte
		next := c.Next
		if !reverse {
			k, v = c.Seek(prefix)
		} else {
			next = c.Prev
			limit := util.BytesPrefix(prefix).Limit
			if limit == nil {
				k, v = c.Last()
			} else if k, _ = c.Seek(limit); k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = next() {
			if !f(k, v) {
				break
			}
		}
		return nil
	})
}

// Close implements the Store interface.
func (s *BoltDBStore) Close() error {
	return s.db.Close()
}
