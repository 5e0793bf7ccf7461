package ptrtag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/ipint/internal/ptrtag"
)

func is64bit() bool {
	return ^uintptr(0)>>32 != 0
}

func TestIdentityRoundTrip(t *testing.T) {
	s := ptrtag.Identity()
	for _, p := range []uintptr{0, 1, 0x1000, 0xdeadbeef, 0x7fffffffffff} {
		require.Equal(t, p, s.Untag(s.Tag(p)))
		require.Equal(t, p, s.Tag(p))
	}
}

func TestHighBitsRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		key  uint16
	}{
		{name: "zero key", key: 0},
		{name: "small key", key: 0x7},
		{name: "full key", key: 0xffff},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := ptrtag.HighBits(tc.key)
			for _, p := range []uintptr{0, 1, 0x1000, 0xdeadbeef, 0x7fffffffffff} {
				require.Equal(t, p, s.Untag(s.Tag(p)))
			}
		})
	}
}

func TestHighBitsChangesPointer(t *testing.T) {
	if !is64bit() {
		t.Skip("tagged bits do not exist on 32-bit uintptr")
	}
	s := ptrtag.HighBits(0xa7)
	p := uintptr(0x1000)
	require.NotEqual(t, p, s.Tag(p))
}

func TestUntagRawPointer(t *testing.T) {
	// Stripping a pointer that was never tagged must be harmless.
	s := ptrtag.HighBits(0xa7)
	for _, p := range []uintptr{0, 0x1000, 0x7fffffffffff} {
		require.Equal(t, p, s.Untag(p))
	}
}
