package ipint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"time"

	"github.com/wasmkit/ipint/internal/layoutstore"
	"github.com/wasmkit/ipint/internal/manifest"
	"github.com/wasmkit/ipint/internal/version"
)

// ErrNoLayoutRecords reports an empty journal.
var ErrNoLayoutRecords = layoutstore.ErrNotFound

// LayoutJournal persists one record per observed dispatch layout. Recording
// on every start is how a deployment notices that a rebuilt binary
// rearranged its tables: an unchanged layout appends nothing.
//
// A journal is only valid for use by one process at a time; the underlying
// database takes an exclusive lock.
type LayoutJournal struct {
	store *layoutstore.Store
}

// LayoutRecord is one journal entry.
type LayoutRecord struct {
	// Seq is the record's position in the journal, starting at 1.
	Seq uint64
	// Time is when the record was appended.
	Time time.Time
	// Version is the tier version that produced the layout.
	Version string
	// Arch is the instruction set the tables were emitted for.
	Arch string
	// Fingerprint condenses the layout to a comparable identity.
	Fingerprint [32]byte
}

// OpenLayoutJournal opens the journal under dir, creating both as needed.
// The database is scoped per platform, so cross-built binaries sharing a
// home directory keep separate journals.
func OpenLayoutJournal(dir string) (*LayoutJournal, error) {
	// Resolve a potentially relative directory into an absolute one.
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err = mkdir(dir); err != nil {
		return nil, err
	}
	name := "ipint-" + goruntime.GOOS + "-" + goruntime.GOARCH + ".db"
	st, err := layoutstore.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	return &LayoutJournal{store: st}, nil
}

// Record appends the tier's verified layout if it differs from the newest
// record, reporting whether anything was written.
func (j *LayoutJournal) Record(t *Tier) (bool, error) {
	cfg := t.reg.Config()
	if cfg == nil {
		return false, errors.New("tier is not initialized")
	}
	return j.store.Append(manifest.FromConfig(version.Get(), cfg))
}

// Latest returns the newest record, or ErrNoLayoutRecords when the journal
// is empty.
func (j *LayoutJournal) Latest() (LayoutRecord, error) {
	r, err := j.store.Latest()
	if err != nil {
		return LayoutRecord{}, err
	}
	return convertRecord(r)
}

// History returns every record, oldest first.
func (j *LayoutJournal) History() ([]LayoutRecord, error) {
	rs, err := j.store.History()
	if err != nil {
		return nil, err
	}
	out := make([]LayoutRecord, len(rs))
	for i, r := range rs {
		if out[i], err = convertRecord(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Close releases the journal and its lock.
func (j *LayoutJournal) Close() error {
	return j.store.Close()
}

func convertRecord(r layoutstore.Record) (LayoutRecord, error) {
	fp, err := r.Manifest.Fingerprint()
	if err != nil {
		return LayoutRecord{}, err
	}
	return LayoutRecord{
		Seq:         r.Seq,
		Time:        r.Time,
		Version:     r.Manifest.Version,
		Arch:        r.Manifest.Arch,
		Fingerprint: fp,
	}, nil
}

func mkdir(dirname string) error {
	if st, err := os.Stat(dirname); errors.Is(err, os.ErrNotExist) {
		if err = os.MkdirAll(dirname, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %v", dirname, err)
		}
	} else if err != nil {
		return err
	} else if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dirname)
	}
	return nil
}
