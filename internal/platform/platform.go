// Package platform isolates the runtime-specific memory plumbing that
// dispatch table images are built on.
//
// Note: This is a dependency-free alternative to depending on parts of Go's
// x/sys.
package platform

import "errors"

// MmapCodeSegment returns a writable anonymous private mapping of the given
// size, which the table builder fills with handler stubs.
func MmapCodeSegment(size int) ([]byte, error) {
	if size == 0 {
		panic(errors.New("BUG: MmapCodeSegment with zero length"))
	}
	return mmapCodeSegment(size)
}

// RemapCodeSegment grows a mapping obtained from MmapCodeSegment to size,
// possibly moving it. The previous mapping must not be used afterwards.
func RemapCodeSegment(code []byte, size int) ([]byte, error) {
	if size < len(code) {
		panic(errors.New("BUG: RemapCodeSegment with size less than code"))
	}
	return remapCodeSegment(code, size)
}

// MunmapCodeSegment unmaps the given memory region.
func MunmapCodeSegment(code []byte) error {
	if len(code) == 0 {
		panic(errors.New("BUG: MunmapCodeSegment with zero length"))
	}
	return munmapCodeSegment(code)
}

// mustMunmapCodeSegment panics instead of returning an error to the
// application.
//
// It is less disruptive to the application to leak the previous block if it
// could not be unmapped than to leak the new block and return an error.
func mustMunmapCodeSegment(code []byte) {
	if err := munmapCodeSegment(code); err != nil {
		panic(err)
	}
}
