package interp

import "encoding/binary"

// PageSize is the wasm linear memory page size.
const PageSize = 65536

// defaultMaxPages caps growth when a memory declares no maximum.
const defaultMaxPages = 65536

// Memory is a linear memory instance. Loads and stores take the effective
// address already combined from the dynamic operand and the static offset;
// the caller widens to uint64 so the combination cannot wrap.
type Memory struct {
	data []byte
	max  uint32
}

// NewMemory allocates a memory of min pages, growable to max pages. A max
// of zero means the 4GiB WebAssembly ceiling.
func NewMemory(min, max uint32) *Memory {
	if max == 0 {
		max = defaultMaxPages
	}
	if min > max {
		min = max
	}
	return &Memory{data: make([]byte, int(min)*PageSize), max: max}
}

// Pages returns the current size in pages.
func (m *Memory) Pages() uint32 {
	return uint32(len(m.data) / PageSize)
}

// Grow extends the memory by delta pages, returning the previous page count
// or -1 when the maximum would be exceeded.
func (m *Memory) Grow(delta uint32) int32 {
	old := m.Pages()
	if uint64(old)+uint64(delta) > uint64(m.max) {
		return -1
	}
	m.data = append(m.data, make([]byte, int(delta)*PageSize)...)
	return int32(old)
}

// Bytes returns the backing storage.
func (m *Memory) Bytes() []byte {
	return m.data
}

func (m *Memory) inBounds(ea uint64, n uint64) bool {
	return ea+n <= uint64(len(m.data))
}

func (m *Memory) load(ea uint64, n uint64) ([]byte, bool) {
	if !m.inBounds(ea, n) {
		return nil, false
	}
	return m.data[ea : ea+n], true
}

func (m *Memory) loadU8(ea uint64) (uint64, bool) {
	b, ok := m.load(ea, 1)
	if !ok {
		return 0, false
	}
	return uint64(b[0]), true
}

func (m *Memory) loadU16(ea uint64) (uint64, bool) {
	b, ok := m.load(ea, 2)
	if !ok {
		return 0, false
	}
	return uint64(binary.LittleEndian.Uint16(b)), true
}

func (m *Memory) loadU32(ea uint64) (uint64, bool) {
	b, ok := m.load(ea, 4)
	if !ok {
		return 0, false
	}
	return uint64(binary.LittleEndian.Uint32(b)), true
}

func (m *Memory) loadU64(ea uint64) (uint64, bool) {
	b, ok := m.load(ea, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (m *Memory) store8(ea uint64, v uint64) bool {
	b, ok := m.load(ea, 1)
	if !ok {
		return false
	}
	b[0] = byte(v)
	return true
}

func (m *Memory) store16(ea uint64, v uint64) bool {
	b, ok := m.load(ea, 2)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint16(b, uint16(v))
	return true
}

func (m *Memory) store32(ea uint64, v uint64) bool {
	b, ok := m.load(ea, 4)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint32(b, uint32(v))
	return true
}

func (m *Memory) store64(ea uint64, v uint64) bool {
	b, ok := m.load(ea, 8)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint64(b, v)
	return true
}
