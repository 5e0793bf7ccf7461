//go:build (amd64 || arm64) && !noipint

package ipint

import (
	"github.com/wasmkit/ipint/internal/dispatch"
	"github.com/wasmkit/ipint/internal/opcode"
)

// TierSupported means this build carries the in-place interpreter tier.
const TierSupported = true

// newTierRegistry returns a live registry for the host tables.
func newTierRegistry(c *TierConfig) *dispatch.Registry {
	return dispatch.NewRegistry(opcode.IPInt(), c.tags)
}
