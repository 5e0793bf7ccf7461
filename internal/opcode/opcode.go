// Package opcode is the instruction catalogue of the in-place interpreter:
// a closed, ordered enumeration of every opcode group and of the entries
// dispatched through each group's table.
//
// The catalogue is pure data. Entry order is load-bearing: an entry's
// position IS its dispatch index, and the table builder and layout verifier
// both iterate the catalogue in this order. Catalogue defects (duplicate
// names, bad strides) are build-time bugs, so constructors panic instead of
// returning errors.
package opcode

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
)

// Escape bytes in the base group that re-dispatch into the prefixed groups.
const (
	PrefixGC         = 0xfb
	PrefixConversion = 0xfc
	PrefixSIMD       = 0xfd
	PrefixAtomic     = 0xfe
)

// GroupID names one dispatch table.
type GroupID string

const (
	GroupBase       GroupID = "base"
	GroupGC         GroupID = "gc"
	GroupConversion GroupID = "conversion"
	GroupSIMD       GroupID = "simd"
	GroupAtomic     GroupID = "atomic"
	GroupArgumINT   GroupID = "argumint"
	GroupMInt       GroupID = "mint"
	GroupUInt       GroupID = "uint"
)

const (
	// WasmStride is the code quantum reserved for each handler in the wasm
	// opcode groups.
	WasmStride = 256
	// HelperStride is the smaller quantum of the internal marshalling
	// families, whose handler bodies are tiny.
	HelperStride = 64
)

// ReservedName is the display name of unassigned base-group slots.
const ReservedName = "reserved"

// Entry is one opcode within a group.
type Entry struct {
	// Ordinal is the dispatch index within the group. It is not a lookup
	// key: the handler of this entry lives exactly Ordinal strides past the
	// group base.
	Ordinal uint32
	// Name is the instruction name, e.g. "i32_add".
	Name string
	// Reserved marks a slot with no assigned instruction. Reserved slots
	// still occupy one stride and dispatch to a trap stub, keeping the
	// table dense.
	Reserved bool
}

// Group is an ordered, closed run of entries dispatched through one table.
type Group struct {
	ID GroupID
	// Stride is the fixed byte distance between consecutive handler entry
	// points, a power of two chosen to bound every handler body in the
	// group.
	Stride  uint32
	Entries []Entry

	once     sync.Once
	ordinals map[string]uint32
}

// NewGroup builds a group from names in dispatch order. An empty name marks
// a reserved slot. Panics on malformed input: the catalogue is compiled-in
// data, so a bad group is a bug, not a runtime condition.
func NewGroup(id GroupID, stride uint32, names []string) *Group {
	if len(names) == 0 {
		panic(fmt.Errorf("BUG: group %q has no entries", id))
	}
	if stride == 0 || bits.OnesCount32(stride) != 1 {
		panic(fmt.Errorf("BUG: group %q stride %d is not a power of two", id, stride))
	}
	g := &Group{ID: id, Stride: stride, Entries: make([]Entry, len(names))}
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if name == "" {
			g.Entries[i] = Entry{Ordinal: uint32(i), Name: ReservedName, Reserved: true}
			continue
		}
		if _, dup := seen[name]; dup {
			panic(fmt.Errorf("BUG: group %q has duplicate entry %q", id, name))
		}
		seen[name] = struct{}{}
		g.Entries[i] = Entry{Ordinal: uint32(i), Name: name}
	}
	return g
}

// Count returns the number of table slots, reserved ones included.
func (g *Group) Count() int {
	return len(g.Entries)
}

// TableSize returns the byte size of the group's table image.
func (g *Group) TableSize() int {
	return g.Count() * int(g.Stride)
}

// Symbol returns the dispatch symbol of entry i, e.g. "ipint_i32_add".
// Reserved slots get a slot-qualified symbol so every table position has a
// distinct address name.
func (g *Group) Symbol(i uint32) string {
	e := g.Entries[i]
	if e.Reserved {
		return fmt.Sprintf("ipint_%s_reserved_0x%02x", g.ID, i)
	}
	return "ipint_" + e.Name
}

// ValidateSymbol returns the independently recorded layout-check alias of
// entry i. The verifier compares this symbol's address against the
// arithmetic prediction from the group base.
func (g *Group) ValidateSymbol(i uint32) string {
	return g.Symbol(i) + "_validate"
}

// BaseSymbol returns the symbol whose address is the group's table base,
// which is by construction the dispatch symbol of ordinal zero.
func (g *Group) BaseSymbol() string {
	return g.Symbol(0)
}

// OrdinalOf returns the dispatch index of the named entry. The reverse map
// is built lazily on first use; reserved slots are not named.
func (g *Group) OrdinalOf(name string) (uint32, bool) {
	g.once.Do(func() {
		g.ordinals = make(map[string]uint32, len(g.Entries))
		for _, e := range g.Entries {
			if !e.Reserved {
				g.ordinals[e.Name] = e.Ordinal
			}
		}
	})
	ord, ok := g.ordinals[name]
	return ord, ok
}

// Catalogue is the ordered set of groups the builder emits and the verifier
// walks. Group order is as fixed as entry order: it defines the layout of
// the combined image and the iteration order of every check.
type Catalogue struct {
	Groups []*Group
}

// New assembles a catalogue, panicking on duplicate group IDs.
func New(groups ...*Group) *Catalogue {
	seen := make(map[GroupID]struct{}, len(groups))
	for _, g := range groups {
		if g == nil {
			panic(errors.New("BUG: nil group in catalogue"))
		}
		if _, dup := seen[g.ID]; dup {
			panic(fmt.Errorf("BUG: duplicate group %q in catalogue", g.ID))
		}
		seen[g.ID] = struct{}{}
	}
	return &Catalogue{Groups: groups}
}

// Group returns the group with the given id, or nil.
func (c *Catalogue) Group(id GroupID) *Group {
	for _, g := range c.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// EntryCount returns the total number of table slots across all groups.
func (c *Catalogue) EntryCount() int {
	n := 0
	for _, g := range c.Groups {
		n += g.Count()
	}
	return n
}

// TableBytes returns the combined byte size of all group images.
func (c *Catalogue) TableBytes() int {
	n := 0
	for _, g := range c.Groups {
		n += g.TableSize()
	}
	return n
}

// IPInt returns the production catalogue: the five wasm opcode groups plus
// the three internal marshalling families, in table layout order.
func IPInt() *Catalogue {
	return New(
		NewGroup(GroupBase, WasmStride, baseNames[:]),
		NewGroup(GroupGC, WasmStride, gcNames),
		NewGroup(GroupConversion, WasmStride, conversionNames),
		NewGroup(GroupSIMD, WasmStride, simdNames),
		NewGroup(GroupAtomic, WasmStride, atomicNames),
		NewGroup(GroupArgumINT, HelperStride, argumintNames),
		NewGroup(GroupMInt, HelperStride, mintNames),
		NewGroup(GroupUInt, HelperStride, uintNames),
	)
}
