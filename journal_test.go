package ipint

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/ipint/internal/dispatch"
)

func TestLayoutJournal(t *testing.T) {
	skipUnlessSupported(t)

	tier, err := NewTier(nil)
	require.NoError(t, err)
	defer tier.Close()

	j, err := OpenLayoutJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	_, err = j.Latest()
	require.ErrorIs(t, err, ErrNoLayoutRecords)

	appended, err := j.Record(tier)
	require.NoError(t, err)
	require.True(t, appended)

	// The same layout again is a no-op.
	appended, err = j.Record(tier)
	require.NoError(t, err)
	require.False(t, appended)

	rec, err := j.Latest()
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.Seq)
	require.Equal(t, runtime.GOARCH, rec.Arch)
	require.NotEqual(t, [32]byte{}, rec.Fingerprint)
	require.False(t, rec.Time.IsZero())

	history, err := j.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, rec, history[0])
}

func TestLayoutJournalRequiresInitializedTier(t *testing.T) {
	j, err := OpenLayoutJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	tier := &Tier{reg: dispatch.NewDisabledRegistry("disabled")}
	_, err = j.Record(tier)
	require.EqualError(t, err, "tier is not initialized")
}

func TestOpenLayoutJournalBadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte{1}, 0o600))

	_, err := OpenLayoutJournal(file)
	require.ErrorContains(t, err, "is not a directory")
}
