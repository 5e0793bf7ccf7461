// Package layoutstore journals layout manifests in a local bolt database,
// one record per observed layout change. The journal is how a deployment
// notices that a rebuilt binary rearranged its dispatch tables: recording
// the same layout twice is a no-op, recording a different one appends.
package layoutstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"

	"github.com/wasmkit/ipint/internal/manifest"
)

var (
	recordsBucket = []byte("records")
	metaBucket    = []byte("meta")
	schemaKey     = []byte("schema")
)

const schemaVersion = 1

// ErrNotFound is returned when the journal holds no records.
var ErrNotFound = errors.New("layout record not found")

// envelope is the stored form of one record. The manifest bytes inside are
// the canonical encoding, so journal entries compare exactly.
type envelope struct {
	Time     int64  `cbor:"time"`
	Manifest []byte `cbor:"manifest"`
}

// Record is one journal entry.
type Record struct {
	Seq      uint64
	Time     time.Time
	Manifest *manifest.Manifest
}

// Store is an open layout journal.
type Store struct {
	db  *bolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening layout store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucket); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if v := meta.Get(schemaKey); v != nil {
			if len(v) != 8 || binary.BigEndian.Uint64(v) != schemaVersion {
				return fmt.Errorf("unsupported layout store schema in %s", path)
			}
			return nil
		}
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], schemaVersion)
		return meta.Put(schemaKey, v[:])
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the database and the compression contexts.
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

func (s *Store) seal(e envelope) ([]byte, error) {
	plain, err := cbor.Marshal(e)
	if err != nil {
		return nil, err
	}
	return s.enc.EncodeAll(plain, nil), nil
}

func (s *Store) unseal(b []byte) (envelope, error) {
	plain, err := s.dec.DecodeAll(b, nil)
	if err != nil {
		return envelope{}, fmt.Errorf("decompressing layout record: %w", err)
	}
	var e envelope
	if err := cbor.Unmarshal(plain, &e); err != nil {
		return envelope{}, fmt.Errorf("decoding layout record: %w", err)
	}
	return e, nil
}

// Append journals the manifest if it differs from the latest record.
// It reports whether a record was written.
func (s *Store) Append(m *manifest.Manifest) (bool, error) {
	enc, err := m.Encode()
	if err != nil {
		return false, err
	}
	sealed, err := s.seal(envelope{Time: time.Now().UnixNano(), Manifest: enc})
	if err != nil {
		return false, err
	}

	appended := false
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		if _, v := b.Cursor().Last(); v != nil {
			prev, err := s.unseal(v)
			if err != nil {
				return err
			}
			if bytes.Equal(prev.Manifest, enc) {
				return nil
			}
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		if err := b.Put(key[:], sealed); err != nil {
			return err
		}
		appended = true
		return nil
	})
	return appended, err
}

// Latest returns the most recent record, or ErrNotFound.
func (s *Store) Latest() (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		k, v := tx.Bucket(recordsBucket).Cursor().Last()
		if v == nil {
			return ErrNotFound
		}
		var err error
		rec, err = s.record(k, v)
		return err
	})
	return rec, err
}

// History returns all records, oldest first.
func (s *Store) History() ([]Record, error) {
	var recs []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rec, err := s.record(k, v)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return recs, err
}

func (s *Store) record(k, v []byte) (Record, error) {
	e, err := s.unseal(v)
	if err != nil {
		return Record{}, err
	}
	m, err := manifest.Decode(e.Manifest)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Seq:      binary.BigEndian.Uint64(k),
		Time:     time.Unix(0, e.Time),
		Manifest: m,
	}, nil
}
