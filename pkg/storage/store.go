/*
Package storage provides sorted key-value stores backing the run journal.
*/
package storage

import (
	"errors"
	"fmt"

	"github.com/UXDProtocol/anchor-comp/pkg/storage/dbconfig"
)

// Key prefixes used by the journal.
const (
	// JournalRecord is used for journal entries ordered by their timestamp.
	JournalRecord KeyPrefix = 0x10
	// JournalSignature maps transaction signatures to journal record keys.
	JournalSignature KeyPrefix = 0x11
	// SYSVersion stores the journal schema version.
	SYSVersion KeyPrefix = 0xf0
)

// ErrKeyNotFound is returned by Get for missing keys.
var ErrKeyNotFound = errors.New("key not found")

type (
	// Store is a key-value store with keys kept in byte order.
	Store interface {
		Get(key []byte) ([]byte, error)
		// Write applies the batch atomically, pairs with nil Value are
		// deleted.
		Write(batch ...KeyValue) error
		// Iterate calls f for every key with the prefix in ascending order
		// (descending if reverse is set) until f returns false. Key and value
		// are only valid during the call.
		Iterate(prefix []byte, reverse bool, f func(k, v []byte) bool) error
		Close() error
	}

	// KeyValue is a pair written to the Store.
	KeyValue struct {
		Key   []byte
		Value []byte
	}

	// KeyPrefix is the first byte of every key of some kind.
	KeyPrefix uint8
)

// Bytes returns the bytes representation of KeyPrefix.
func (k KeyPrefix) Bytes() []byte {
	return []byte{byte(k)}
}

// Put returns the pair that stores value under key.
func Put(key, value []byte) KeyValue {
	if value == nil {
		value = []byte{}
	}
	return KeyValue{Key: key, Value: value}
}

// Delete returns the pair removing key.
func Delete(key []byte) KeyValue {
	return KeyValue{Key: key}
}

// NewStore creates storage of the configured type.
func NewStore(cfg dbconfig.DBConfiguration) (Store, error) {
	switch cfg.Type {
	case dbconfig.LevelDB:
		return NewLevelDBStore(cfg.LevelDBOptions)
	case dbconfig.BoltDB:
		return NewBoltDBStore(cfg.BoltDBOptions)
	case dbconfig.InMemoryDB, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
}
