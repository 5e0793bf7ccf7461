package layoutstore

import (
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/wasmkit/ipint/internal/manifest"
)

func testManifest(arch string) *manifest.Manifest {
	return &manifest.Manifest{
		Version: "dev",
		Arch:    arch,
		Groups: []manifest.Group{
			{ID: "base", Stride: 256, Count: 256, Digest: []byte{1, 2}},
			{ID: "gc", Stride: 256, Count: 31, Digest: []byte{3, 4}},
		},
	}
}

func open(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	return s
}

func TestAppendDeduplicates(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "layout.db"))
	defer s.Close()

	_, err := s.Latest()
	require.ErrorIs(t, err, ErrNotFound)

	m := testManifest("amd64")
	ok, err := s.Append(m)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Append(m)
	require.NoError(t, err)
	require.False(t, ok, "identical layout must not append")

	changed := testManifest("arm64")
	ok, err = s.Append(changed)
	require.NoError(t, err)
	require.True(t, ok)

	hist, err := s.History()
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.Equal(t, uint64(1), hist[0].Seq)
	require.Equal(t, uint64(2), hist[1].Seq)
	require.Empty(t, cmp.Diff(m, hist[0].Manifest))
	require.Empty(t, cmp.Diff(changed, hist[1].Manifest))
	require.False(t, hist[1].Time.Before(hist[0].Time))

	latest, err := s.Latest()
	require.NoError(t, err)
	require.Equal(t, uint64(2), latest.Seq)
	require.Empty(t, cmp.Diff(changed, latest.Manifest))
}

func TestRecordTime(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "layout.db"))
	defer s.Close()

	_, err := s.Append(testManifest("amd64"))
	require.NoError(t, err)

	latest, err := s.Latest()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), latest.Time, time.Minute)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.db")
	m := testManifest("amd64")

	s := open(t, path)
	ok, err := s.Append(m)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Close())

	s = open(t, path)
	defer s.Close()

	hist, err := s.History()
	require.NoError(t, err)
	require.Len(t, hist, 1)

	// Deduplication holds across sessions.
	ok, err = s.Append(m)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSchemaGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.db")

	db, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], 99)
		return meta.Put(schemaKey, v[:])
	}))
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.ErrorContains(t, err, "unsupported layout store schema")
}

func TestCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.db")

	s := open(t, path)
	_, err := s.Append(testManifest("amd64"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	db, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], 2)
		return tx.Bucket(recordsBucket).Put(key[:], []byte("not zstd"))
	}))
	require.NoError(t, db.Close())

	s = open(t, path)
	defer s.Close()

	_, err = s.History()
	require.ErrorContains(t, err, "decompressing layout record")
}
