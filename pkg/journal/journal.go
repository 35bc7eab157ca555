/*
Package journal keeps history of program invocations made by the tool in a
key-value store: what was called, where, when and with what outcome.
*/
package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/storage"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Version is the journal schema version.
const Version = "1"

// ErrVersionMismatch is returned when the store holds journal of another
// schema version.
var ErrVersionMismatch = errors.New("journal version mismatch")

// Record is a single invocation.
type Record struct {
	ID        uuid.UUID
	Time      time.Time
	Cluster   string
	Endpoint  string
	Program   string
	ProgramID string
	Method    string
	// Signature is empty if transaction wasn't sent.
	Signature string
	// Error is empty for successful invocations.
	Error string
}

// RecordFor makes a Record of the invocation outcome, zero sig and nil err
// leave Signature and Error empty.
func RecordFor(cluster, endpoint, program, programID, method string, sig solana.Signature, err error) Record {
	rec := Record{
		Cluster:   cluster,
		Endpoint:  endpoint,
		Program:   program,
		ProgramID: programID,
		Method:    method,
	}
	if !sig.IsZero() {
		rec.Signature = sig.String()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// stored is the Borsh layout of Record.
type stored struct {
	ID        [16]byte
	Timestamp int64
	Cluster   string
	Endpoint  string
	Program   string
	ProgramID string
	Method    string
	Signature string
	Error     string
}

// Journal is an append-only invocation log.
type Journal struct {
	lock  sync.Mutex
	store storage.Store
}

// New creates a journal on top of the given store.
func New(s storage.Store) (*Journal, error) {
	v, err := s.Get(storage.SYSVersion.Bytes())
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		if err := s.Write(storage.Put(storage.SYSVersion.Bytes(), []byte(Version))); err != nil {
			return nil, fmt.Errorf("failed to store journal version: %w", err)
		}
	case err != nil:
		return nil, err
	case string(v) != Version:
		return nil, fmt.Errorf("%w: %s, expected %s", ErrVersionMismatch, v, Version)
	}
	return &Journal{store: s}, nil
}

func recordKey(t time.Time, id uuid.UUID) []byte {
	key := make([]byte, 1+8+16)
	key[0] = byte(storage.JournalRecord)
	binary.BigEndian.PutUint64(key[1:], uint64(t.UnixNano()))
	copy(key[9:], id[:])
	return key
}

func signatureKey(sig string) []byte {
	return append(storage.JournalSignature.Bytes(), sig...)
}

// Add appends the record, ID and Time are set if empty. The record with
// all fields set is returned.
func (j *Journal) Add(r Record) (Record, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	buf := new(bytes.Buffer)
	err := bin.NewBorshEncoder(buf).Encode(stored{
		ID:        r.ID,
		Timestamp: r.Time.UnixNano(),
		Cluster:   r.Cluster,
		Endpoint:  r.Endpoint,
		Program:   r.Program,
		ProgramID: r.ProgramID,
		Method:    r.Method,
		Signature: r.Signature,
		Error:     r.Error,
	})
	if err != nil {
		return r, err
	}
	key := recordKey(r.Time, r.ID)

	j.lock.Lock()
	defer j.lock.Unlock()
	batch := []storage.KeyValue{storage.Put(key, buf.Bytes())}
	if r.Signature != "" {
		batch = append(batch, storage.Put(signatureKey(r.Signature), key))
	}
	return r, j.store.Write(batch...)
}

func decode(v []byte) (Record, error) {
	var s stored
	if err := bin.NewBorshDecoder(v).Decode(&s); err != nil {
		return Record{}, err
	}
	return Record{
		ID:        s.ID,
		Time:      time.Unix(0, s.Timestamp),
		Cluster:   s.Cluster,
		Endpoint:  s.Endpoint,
		Program:   s.Program,
		ProgramID: s.ProgramID,
		Method:    s.Method,
		Signature: s.Signature,
		Error:     s.Error,
	}, nil
}

// List returns up to limit latest records, newest first. Non-positive limit
// means all records.
func (j *Journal) List(limit int) ([]Record, error) {
	var (
		res    []Record
		decErr error
	)
	err := j.store.Iterate(storage.JournalRecord.Bytes(), true, func(_, v []byte) bool {
		var r Record
		r, decErr = decode(v)
		if decErr != nil {
			return false
		}
		res = append(res, r)
		return limit <= 0 || len(res) < limit
	})
	if err != nil {
		return nil, err
	}
	if decErr != nil {
		return nil, fmt.Errorf("corrupted journal: %w", decErr)
	}
	return res, nil
}

// Prune removes all records but keep latest ones and returns the number of
// removed records.
func (j *Journal) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	j.lock.Lock()
	defer j.lock.Unlock()

	var (
		batch  []storage.KeyValue
		seen   int
		decErr error
	)
	err := j.store.Iterate(storage.JournalRecord.Bytes(), true, func(k, v []byte) bool {
		seen++
		if seen <= keep {
			return true
		}
		var r Record
		r, decErr = decode(v)
		if decErr != nil {
			return false
		}
		batch = append(batch, storage.Delete(bytes.Clone(k)))
		if r.Signature != "" {
			batch = append(batch, storage.Delete(signatureKey(r.Signature)))
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if decErr != nil {
		return 0, fmt.Errorf("corrupted journal: %w", decErr)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	n := seen - keep
	return n, j.store.Write(batch...)
}

// BySignature returns the record of the given transaction.
func (j *Journal) BySignature(sig string) (Record, error) {
	key, err := j.store.Get(signatureKey(sig))
	if err != nil {
		return Record{}, err
	}
	v, err := j.store.Get(key)
	if err != nil {
		return Record{}, err
	}
	return decode(v)
}

// Close closes the underlying store.
func (j *Journal) Close() error {
	return j.store.Close()
}
