//go:build (amd64 || arm64) && !noipint

package ipint

import (
	"fmt"
	"log"
)

// This is an example of bringing the interpreter tier up and reading back
// the layout its verifier proved.
func Example() {
	// Build the dispatch tables and verify every handler landed on its
	// computed slot. Any mismatch aborts instead of returning.
	tier, err := NewTier(NewTierConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer tier.Close()

	// Re-checks are cheap enough for a steady-state health probe.
	tier.VerifyInitialization()

	for _, g := range tier.Layout() {
		fmt.Printf("%s: %d handlers every %d bytes\n", g.Group, g.Handlers, g.Stride)
	}

	// Output:
	// base: 256 handlers every 256 bytes
	// gc: 31 handlers every 256 bytes
	// conversion: 18 handlers every 256 bytes
	// simd: 236 handlers every 256 bytes
	// atomic: 67 handlers every 256 bytes
	// argumint: 18 handlers every 64 bytes
	// mint: 21 handlers every 64 bytes
	// uint: 19 handlers every 64 bytes
}
