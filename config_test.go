package ipint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/ipint/internal/features"
	"github.com/wasmkit/ipint/internal/ptrtag"
)

func TestTierConfig(t *testing.T) {
	tagged := ptrtag.HighBits(0x42)

	tests := []struct {
		name     string
		with     func(*TierConfig) *TierConfig
		expected *TierConfig
	}{
		{
			name:     "WithPointerTags",
			with:     func(c *TierConfig) *TierConfig { return c.WithPointerTags(tagged) },
			expected: &TierConfig{tags: tagged},
		},
		{
			name: "WithFeatures",
			with: func(c *TierConfig) *TierConfig {
				return c.WithFeatures(features.SIMD, features.Atomics)
			},
			expected: &TierConfig{features: []string{features.SIMD, features.Atomics}},
		},
		{
			name: "WithFeatures accumulates",
			with: func(c *TierConfig) *TierConfig {
				return c.WithFeatures(features.SIMD).WithFeatures(features.GC)
			},
			expected: &TierConfig{features: []string{features.SIMD, features.GC}},
		},
		{
			name:     "WithLogName",
			with:     func(c *TierConfig) *TierConfig { return c.WithLogName("engine.ipint") },
			expected: &TierConfig{logName: "engine.ipint"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := &TierConfig{}
			got := tc.with(input)
			require.Equal(t, tc.expected, got)
			// The source wasn't modified.
			require.Equal(t, &TierConfig{}, input)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		c := NewTierConfig()
		require.Equal(t, ptrtag.Identity(), c.tags)
		require.Empty(t, c.features)
		require.Nil(t, c.fatalHook)
		require.Equal(t, "ipint", c.logName)
	})

	// Hook funcs have no useful equality, so the clone contract is checked
	// separately.
	t.Run("WithFatalHook", func(t *testing.T) {
		input := &TierConfig{}
		got := input.WithFatalHook(func(string) { panic("unused") })
		require.NotNil(t, got.fatalHook)
		require.Nil(t, input.fatalHook)
	})
}

func TestTierConfigFromEnvironment(t *testing.T) {
	t.Setenv(features.EnvVarName, "simd,atomics")

	c := NewTierConfig().WithFeaturesFromEnvironment()
	require.Equal(t, []string{"simd", "atomics"}, c.features)
}
