package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	// Test binaries carry no ldflags value and no module dependency on
	// ourselves, so the fallback applies.
	require.Equal(t, Default, Get())
}
