// Package ptrtag models the code-pointer authentication transform of the
// host platform as an opaque capability.
//
// Dispatch base addresses may carry an authentication tag in their upper
// bits. Two code addresses can only be compared as integers after both have
// been stripped, so the layout verifier runs entirely in the untagged
// domain and treats the transform itself as exchangeable.
package ptrtag

// tagShift positions the key above the canonical 48-bit user-space address
// range. It is a variable so the package also compiles where uintptr is
// 32 bits wide; the tier itself only runs on 64-bit architectures.
var tagShift uint = 48

var tagMask uintptr

func init() {
	tagMask = uintptr(0xffff) << tagShift
}

// Scheme tags and untags code pointers.
//
// Untag must be the left inverse of Tag over the canonical address range,
// and stripping an already raw pointer must return it unchanged.
type Scheme interface {
	// Tag applies the transform to a raw code pointer.
	Tag(p uintptr) uintptr
	// Untag strips the transform, returning the raw address.
	Untag(p uintptr) uintptr
	// Name identifies the scheme in logs and manifests.
	Name() string
}

// Identity returns the no-op scheme used on platforms without code-pointer
// authentication.
func Identity() Scheme { return identity{} }

type identity struct{}

func (identity) Tag(p uintptr) uintptr   { return p }
func (identity) Untag(p uintptr) uintptr { return p }
func (identity) Name() string            { return "none" }

// HighBits returns a scheme that stores a 16-bit key above the canonical
// address bits, standing in for hardware code-pointer signing.
func HighBits(key uint16) Scheme { return highBits{key: key} }

type highBits struct{ key uint16 }

func (s highBits) Tag(p uintptr) uintptr   { return p | uintptr(s.key)<<tagShift }
func (s highBits) Untag(p uintptr) uintptr { return p &^ tagMask }
func (s highBits) Name() string            { return "highbits" }
