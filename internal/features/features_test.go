package features_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/ipint/internal/features"
)

func TestEnable(t *testing.T) {
	features.Enable(features.SIMD, features.Atomics)
	defer features.Disable(features.SIMD, features.Atomics)

	require.True(t, features.Have(features.SIMD))
	require.True(t, features.Have(features.Atomics))
	require.False(t, features.Have(features.GC))
}

func TestEnableIdempotent(t *testing.T) {
	features.Enable(features.GC)
	features.Enable(features.GC)
	defer features.Disable(features.GC)

	n := 0
	for _, f := range features.List() {
		if f == features.GC {
			n++
		}
	}
	require.Equal(t, 1, n)
}

func TestEnableUnrecognized(t *testing.T) {
	features.Enable("not-a-feature")
	require.False(t, features.Have("not-a-feature"))
}

func TestAllocsHave(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("accessing features allocates memory on windows")
	}
	require.Equal(t, 0.0, testing.AllocsPerRun(100, func() {
		features.Have("nope")
	}))
}
