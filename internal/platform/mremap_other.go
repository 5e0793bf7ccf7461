//go:build !linux && !freebsd

package platform

func remapCodeSegment(code []byte, size int) ([]byte, error) {
	b, err := mmapCodeSegment(size)
	if err != nil {
		return nil, err
	}
	copy(b, code)
	mustMunmapCodeSegment(code)
	return b, nil
}
