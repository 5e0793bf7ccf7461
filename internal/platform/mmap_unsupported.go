//go:build !unix

package platform

// Plain heap memory stands in where mmap is unavailable. Table layout, and
// therefore its verification, still works; the image just cannot be sealed.

const MprotectSupported = false

func mmapCodeSegment(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func munmapCodeSegment(code []byte) error {
	return nil
}

func MprotectRX(b []byte) error {
	return nil
}
