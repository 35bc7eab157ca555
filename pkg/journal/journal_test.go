package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/storage"
	"github.com/UXDProtocol/anchor-comp/pkg/storage/dbconfig"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestJournal(t *testing.T) {
	j, err := New(storage.NewMemoryStore())
	require.NoError(t, err)

	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		r, err := j.Add(Record{
			Time:      base.Add(time.Duration(i) * time.Second),
			Cluster:   "localnet",
			Program:   "AnchorMangov3",
			Method:    "initialize",
			Signature: string(rune('a' + i)),
		})
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, r.ID)
	}
	failed, err := j.Add(Record{Program: "AnchorMangov3", Method: "initialize", Error: "connection refused"})
	require.NoError(t, err)
	require.False(t, failed.Time.IsZero())

	all, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, all, 6)
	require.Equal(t, failed.ID, all[0].ID)
	require.Equal(t, "connection refused", all[0].Error)
	require.Equal(t, "e", all[1].Signature)
	require.Equal(t, "a", all[5].Signature)
	require.True(t, all[5].Time.Equal(base))

	latest, err := j.List(2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, all[:2], latest)

	r, err := j.BySignature("c")
	require.NoError(t, err)
	require.Equal(t, all[3], r)

	_, err = j.BySignature("zzz")
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
	require.NoError(t, j.Close())
}

func TestRecordFor(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sig := solana.Signature{1, 2, 3}
		rec := RecordFor("localnet", "http://127.0.0.1:8899", "basic_0", "Prog", "initialize", sig, nil)
		require.Equal(t, Record{
			Cluster:   "localnet",
			Endpoint:  "http://127.0.0.1:8899",
			Program:   "basic_0",
			ProgramID: "Prog",
			Method:    "initialize",
			Signature: sig.String(),
		}, rec)
	})
	t.Run("not sent", func(t *testing.T) {
		rec := RecordFor("devnet", "", "basic_0", "Prog", "initialize", solana.Signature{}, errors.New("simulation failed"))
		require.Empty(t, rec.Signature)
		require.Equal(t, "simulation failed", rec.Error)
	})
	t.Run("sent and failed", func(t *testing.T) {
		sig := solana.Signature{9}
		rec := RecordFor("devnet", "", "basic_0", "Prog", "initialize", sig, errors.New("timeout"))
		require.Equal(t, sig.String(), rec.Signature)
		require.Equal(t, "timeout", rec.Error)
	})
}

func TestJournalPrune(t *testing.T) {
	j, err := New(storage.NewMemoryStore())
	require.NoError(t, err)

	base := time.Unix(1700000000, 0)
	for i := 0; i < 4; i++ {
		_, err := j.Add(Record{
			Time:      base.Add(time.Duration(i) * time.Second),
			Program:   "AnchorMangov3",
			Method:    "initialize",
			Signature: string(rune('a' + i)),
		})
		require.NoError(t, err)
	}

	n, err := j.Prune(10)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = j.Prune(1)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	all, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "d", all[0].Signature)
	_, err = j.BySignature("a")
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	n, err = j.Prune(-1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	all, err = j.List(0)
	require.NoError(t, err)
	require.Empty(t, all)

	_, err = New(j.store)
	require.NoError(t, err, "version survives pruning")
}

func TestJournalVersion(t *testing.T) {
	s := storage.NewMemoryStore()
	require.NoError(t, s.Write(storage.Put(storage.SYSVersion.Bytes(), []byte("0"))))
	_, err := New(s)
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestJournalReopen(t *testing.T) {
	cfg := dbconfig.DBConfiguration{
		Type:          dbconfig.BoltDB,
		BoltDBOptions: dbconfig.BoltDBOptions{FilePath: filepath.Join(t.TempDir(), "journal.bolt")},
	}
	s, err := storage.NewStore(cfg)
	require.NoError(t, err)
	j, err := New(s)
	require.NoError(t, err)
	r, err := j.Add(Record{Program: "AnchorMangov3", Method: "initialize", Signature: "sig"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	s, err = storage.NewStore(cfg)
	require.NoError(t, err)
	j, err = New(s)
	require.NoError(t, err)
	defer j.Close()
	all, err := j.List(10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, r.ID, all[0].ID)
	require.True(t, r.Time.Equal(all[0].Time))
}
