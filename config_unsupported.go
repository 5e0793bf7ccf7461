//go:build (!amd64 && !arm64) || noipint

package ipint

import "github.com/wasmkit/ipint/internal/dispatch"

// TierSupported means this build carries the in-place interpreter tier.
const TierSupported = false

// newTierRegistry returns a disabled registry: verification no-ops and
// initialization is refused.
func newTierRegistry(*TierConfig) *dispatch.Registry {
	return dispatch.NewDisabledRegistry("in-place interpreter tier is not supported on this platform")
}
