package ipint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/ipint/internal/dispatch"
	"github.com/wasmkit/ipint/internal/fatal"
	"github.com/wasmkit/ipint/internal/features"
	"github.com/wasmkit/ipint/internal/opcode"
	"github.com/wasmkit/ipint/internal/ptrtag"
	"github.com/wasmkit/ipint/internal/table"
)

type abortSentinel struct{ msg string }

// captureAbort runs fn with a trapping fatal hook and returns the message it
// aborted with. The test fails if fn returns without aborting.
func captureAbort(t *testing.T, fn func()) string {
	t.Helper()
	prev := fatal.Swap(func(msg string) { panic(abortSentinel{msg: msg}) })
	defer fatal.Swap(prev)

	var msg string
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a fatal abort")
			s, ok := r.(abortSentinel)
			require.True(t, ok, "unexpected panic: %v", r)
			msg = s.msg
		}()
		fn()
	}()
	return msg
}

// requireNoAbort runs fn and fails the test if the fatal hook fires.
func requireNoAbort(t *testing.T, fn func()) {
	t.Helper()
	prev := fatal.Swap(func(msg string) { panic(abortSentinel{msg: msg}) })
	defer fatal.Swap(prev)
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(abortSentinel); ok {
				t.Fatalf("unexpected fatal abort: %s", s.msg)
			}
			panic(r)
		}
	}()
	fn()
}

func skipUnlessSupported(t *testing.T) {
	t.Helper()
	if !TierSupported {
		t.Skip("dispatch tier not supported in this build")
	}
}

func TestNewTier(t *testing.T) {
	skipUnlessSupported(t)

	tier, err := NewTier(nil)
	require.NoError(t, err)
	defer tier.Close()

	require.True(t, tier.Enabled())
	require.True(t, tier.Initialized())
	requireNoAbort(t, tier.VerifyInitialization)

	layout := tier.Layout()
	require.Len(t, layout, len(opcode.IPInt().Groups))
	require.Equal(t, "base", layout[0].Group)
	require.Equal(t, uint32(256), layout[0].Handlers)
	require.Equal(t, uint32(opcode.WasmStride), layout[0].Stride)
	require.Equal(t, uint32(opcode.HelperStride), layout[len(layout)-1].Stride)
	for _, g := range layout {
		require.NotZero(t, g.Base, g.Group)
		require.NotZero(t, g.Stride, g.Group)
		require.NotZero(t, g.Handlers, g.Group)
		require.NotEqual(t, [32]byte{}, g.Digest, g.Group)
	}
}

func TestNewTierPointerTags(t *testing.T) {
	skipUnlessSupported(t)

	tier, err := NewTier(NewTierConfig().WithPointerTags(ptrtag.HighBits(0x42)))
	require.NoError(t, err)
	defer tier.Close()

	require.True(t, tier.Initialized())
	requireNoAbort(t, tier.VerifyInitialization)
	for _, g := range tier.Layout() {
		// Layout reports raw addresses: tags are stripped before any
		// arithmetic or bookkeeping.
		require.Zero(t, g.Base>>48, g.Group)
	}
}

func TestNewTierFeatures(t *testing.T) {
	skipUnlessSupported(t)
	t.Cleanup(func() { features.Disable(features.SIMD) })

	tier, err := NewTier(NewTierConfig().WithFeatures(features.SIMD))
	require.NoError(t, err)
	defer tier.Close()

	require.True(t, features.Have(features.SIMD))
}

func TestNewTierFatalHook(t *testing.T) {
	skipUnlessSupported(t)

	// Capture the current hook so the test can put it back.
	orig := fatal.Swap(func(msg string) { panic(abortSentinel{msg: msg}) })
	fatal.Swap(orig)
	t.Cleanup(func() { fatal.Swap(orig) })

	tier, err := NewTier(NewTierConfig().WithFatalHook(func(msg string) { panic(abortSentinel{msg: msg}) }))
	require.NoError(t, err)
	defer tier.Close()

	defer func() {
		r := recover()
		s, ok := r.(abortSentinel)
		require.True(t, ok, "expected the configured hook to fire: %v", r)
		require.Equal(t, "boom", s.msg)
	}()
	fatal.Abortf("boom")
}

func TestDisabledTier(t *testing.T) {
	tier := &Tier{reg: dispatch.NewDisabledRegistry("interpreter tier disabled by configuration")}

	require.False(t, tier.Enabled())
	require.False(t, tier.Initialized())
	require.Nil(t, tier.Layout())
	requireNoAbort(t, tier.VerifyInitialization)
	require.NoError(t, tier.Close())
}

func TestTierDetectsSkewedHandler(t *testing.T) {
	skipUnlessSupported(t)

	tab, err := table.NewBuilder(opcode.IPInt()).
		WithHandlerSkew(opcode.GroupConversion, 7, 32).
		Build()
	require.NoError(t, err)
	defer tab.Close()

	reg := dispatch.NewRegistry(opcode.IPInt(), nil)
	msg := captureAbort(t, func() { reg.Initialize(tab) })
	require.Contains(t, msg, "group conversion")
	require.Contains(t, msg, "opcode 7")
	require.False(t, reg.Initialized())
}

func TestInitialize(t *testing.T) {
	skipUnlessSupported(t)
	resetProcessTier()
	t.Cleanup(resetProcessTier)

	require.False(t, Initialized())
	require.NoError(t, Initialize(nil))
	require.True(t, Initialized())
	require.NotNil(t, Layout())
	requireNoAbort(t, VerifyInitialization)

	msg := captureAbort(t, func() { _ = Initialize(nil) })
	require.Equal(t, "BUG: process dispatch tier initialized twice", msg)
	// The losing tier must not displace the live one.
	require.True(t, Initialized())
}

func TestVerifyInitializationRequiresTables(t *testing.T) {
	skipUnlessSupported(t)
	resetProcessTier()

	msg := captureAbort(t, VerifyInitialization)
	require.Equal(t, "dispatch tables were never initialized", msg)
}
