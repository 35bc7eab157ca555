package storage

import (
	"errors"
	"fmt"

	"github.com/UXDProtocol/anchor-comp/pkg/storage/dbconfig"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore is the LevelDB-backed Store.
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (or creates unless ReadOnly is set) the database in
// the configured directory.
func NewLevelDBStore(cfg dbconfig.LevelDBOptions) (*LevelDBStore, error) {
	opts := &opt.Options{
		Filter:         filter.NewBloomFilter(10),
		ReadOnly:       cfg.ReadOnly,
		ErrorIfMissing: cfg.ReadOnly,
	}
	db, err := leveldb.OpenFile(cfg.DataDirectoryPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB instance: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

// Get implements the Store interface.
func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

// Write implements the Store interface.
func (s *LevelDBStore) Write(batch ...KeyValue) error {
	b := new(leveldb.Batch)
	for _, kv := range batch {
		if kv.Value == nil {
			b.Delete(kv.Key)
		} else {
			b.Put(kv.Key, kv.Value)
		}
	}
	return s.db.Write(b, nil)
}

// Iterate implements the Store interface.
func (s *LevelDBStore) Iterate(prefix []byte, reverse bool, f func(k, v []byte) bool) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	first, next := iter.First, iter.Next
	if reverse {
		first, next = iter.Last, iter.Prev
	}
	for ok := first(); ok; ok = next() {
		if !f(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Close implements the Store interface.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
