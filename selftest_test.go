package ipint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/ipint/internal/dispatch"
	"github.com/wasmkit/ipint/internal/opcode"
)

func TestSelfTest(t *testing.T) {
	skipUnlessSupported(t)

	tier, err := NewTier(nil)
	require.NoError(t, err)
	defer tier.Close()

	rep, err := tier.SelfTest(context.Background())
	require.NoError(t, err)
	// run plus its call into sum.
	require.Equal(t, uint64(2), rep.Calls)
	require.NotZero(t, rep.Instructions)
	require.NotZero(t, rep.HelperDispatches)
}

func TestSelfTestDisabledTier(t *testing.T) {
	tier := &Tier{reg: dispatch.NewDisabledRegistry("interpreter tier disabled by configuration")}

	_, err := tier.SelfTest(context.Background())
	require.ErrorIs(t, err, ErrTierDisabled)
}

func TestSelfTestUninitialized(t *testing.T) {
	tier := &Tier{reg: dispatch.NewRegistry(opcode.IPInt(), nil)}

	_, err := tier.SelfTest(context.Background())
	require.ErrorIs(t, err, ErrNotInitialized)
}
