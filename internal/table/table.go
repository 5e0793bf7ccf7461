// Package table builds dispatch table images: one contiguous code segment
// holding, for every catalogue group, a dense run of handler stubs placed at
// a fixed stride from the group base.
//
// Building records every stub address twice, under the entry's dispatch
// symbol and its validate alias. The recorded addresses come from the
// emission cursor, not from stride arithmetic, which is what lets a layout
// verifier detect a stub that drifted from its slot.
//
// The segment is frozen before its digests are computed and before the
// tables are handed to anyone, so what gets verified is exactly what
// dispatch will read.
package table

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/tliron/commonlog"
	"github.com/zeebo/blake3"

	"github.com/wasmkit/ipint/internal/asm"
	"github.com/wasmkit/ipint/internal/opcode"
	"github.com/wasmkit/ipint/internal/ptrtag"
)

var log = commonlog.GetLogger("ipint.table")

// ErrUnsupportedArch is returned by Build when no emitter exists for the
// requested architecture.
var ErrUnsupportedArch = errors.New("no dispatch table emitter for architecture")

// stubMagic brands every emitted stub so table images are recognizable in a
// debugger and digests never collide with unrelated code.
const stubMagic = 0x49504e54 // "IPNT"

// stubMarker packs the stub's identity into the immediate its body loads.
func stubMarker(group int, ordinal uint32) uint64 {
	return uint64(stubMagic)<<32 | uint64(uint16(group))<<16 | uint64(uint16(ordinal))
}

// emitter writes handler stubs for one architecture. Emission is pure byte
// generation: the produced code is never executed by the builder, so any
// emitter can run on any host.
type emitter interface {
	arch() string
	// stub appends the handler body for the given marker to buf.
	stub(buf asm.Buffer, marker uint64) error
	// pad appends n bytes of trap filler.
	pad(buf asm.Buffer, n int)
}

func emitterFor(arch string) (emitter, error) {
	switch arch {
	case "amd64":
		return amd64Emitter{}, nil
	case "arm64":
		return arm64Emitter{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArch, arch)
	}
}

// Supported reports whether dispatch tables can be built for arch.
func Supported(arch string) bool {
	_, err := emitterFor(arch)
	return err == nil
}

// GroupLayout describes where one group's table landed within the segment.
type GroupLayout struct {
	ID     opcode.GroupID
	Stride uint32
	Count  int
	// Offset is the byte position of the group base within the segment.
	Offset int
	// Digest is the BLAKE3 sum of the group's frozen image.
	Digest [32]byte
}

// TableSize returns the byte size of the group's image.
func (l GroupLayout) TableSize() int {
	return l.Count * int(l.Stride)
}

type skewKey struct {
	id      opcode.GroupID
	ordinal uint32
}

// Builder emits the dispatch image for a catalogue. Option methods return a
// derived builder, leaving the receiver untouched.
type Builder struct {
	cat   *opcode.Catalogue
	arch  string
	tag   ptrtag.Scheme
	skews map[skewKey]int
}

// NewBuilder returns a builder targeting the host architecture with untagged
// symbol recording.
func NewBuilder(cat *opcode.Catalogue) *Builder {
	if cat == nil {
		panic(errors.New("BUG: nil catalogue"))
	}
	return &Builder{cat: cat, arch: runtime.GOARCH, tag: ptrtag.Identity()}
}

func (b *Builder) clone() *Builder {
	ret := *b
	ret.skews = make(map[skewKey]int, len(b.skews)+1)
	for k, v := range b.skews {
		ret.skews[k] = v
	}
	return &ret
}

// WithArch selects the instruction set the stubs are emitted for.
func (b *Builder) WithArch(arch string) *Builder {
	ret := b.clone()
	ret.arch = arch
	return ret
}

// WithTagScheme records every symbol address through the given pointer
// tagging scheme, the way a signing toolchain would.
func (b *Builder) WithTagScheme(s ptrtag.Scheme) *Builder {
	ret := b.clone()
	ret.tag = s
	return ret
}

// WithHandlerSkew displaces one handler's recorded position by delta bytes
// past its slot, without moving any other stub. The result is a table whose
// arithmetic no longer matches its recorded symbols, which is the defect a
// layout verifier exists to catch.
func (b *Builder) WithHandlerSkew(id opcode.GroupID, ordinal uint32, delta int) *Builder {
	ret := b.clone()
	ret.skews[skewKey{id: id, ordinal: ordinal}] = delta
	return ret
}

// Build emits, freezes and digests the dispatch image.
//
// The returned Tables own a live memory mapping and must be released with
// Close.
func (b *Builder) Build() (_ *Tables, err error) {
	em, err := emitterFor(b.arch)
	if err != nil {
		return nil, err
	}

	seg := asm.NewCodeSegment(nil)
	if err = seg.Map(b.cat.TableBytes()); err != nil {
		return nil, fmt.Errorf("mapping %d table bytes: %w", b.cat.TableBytes(), err)
	}
	defer func() {
		if err != nil {
			_ = seg.Unmap()
		}
	}()

	marks := make(map[string]int, b.cat.EntryCount()*2)
	layouts := make([]GroupLayout, 0, len(b.cat.Groups))

	off := 0
	for gi, g := range b.cat.Groups {
		buf := seg.Next()
		for i := range g.Entries {
			ordinal := uint32(i)
			slot := buf.Len()
			if skew := b.skews[skewKey{id: g.ID, ordinal: ordinal}]; skew != 0 {
				em.pad(buf, skew)
			}
			mark := buf.Len()
			if err = em.stub(buf, stubMarker(gi, ordinal)); err != nil {
				return nil, fmt.Errorf("emitting %s: %w", g.Symbol(ordinal), err)
			}
			if used := buf.Len() - slot; used > int(g.Stride) {
				return nil, fmt.Errorf("handler %s overruns its slot: %d bytes exceed stride %d",
					g.Symbol(ordinal), used, g.Stride)
			}
			em.pad(buf, slot+int(g.Stride)-buf.Len())
			marks[g.Symbol(ordinal)] = off + mark
			marks[g.ValidateSymbol(ordinal)] = off + mark
		}
		layouts = append(layouts, GroupLayout{ID: g.ID, Stride: g.Stride, Count: g.Count(), Offset: off})
		off += g.TableSize()
	}

	if err = seg.Freeze(); err != nil {
		return nil, fmt.Errorf("freezing dispatch image: %w", err)
	}

	img := seg.Bytes()
	for i := range layouts {
		l := &layouts[i]
		l.Digest = blake3.Sum256(img[l.Offset : l.Offset+l.TableSize()])
	}

	syms := make(map[string]uintptr, len(marks))
	for name, o := range marks {
		syms[name] = b.tag.Tag(seg.Addr() + uintptr(o))
	}

	log.Debugf("built %s dispatch image: %d groups, %d stubs, %d bytes",
		b.arch, len(layouts), b.cat.EntryCount(), off)

	return &Tables{seg: seg, arch: b.arch, groups: layouts, syms: syms}, nil
}

// Tables is a built, frozen dispatch image together with its symbol records.
type Tables struct {
	seg    *asm.CodeSegment
	arch   string
	groups []GroupLayout
	syms   map[string]uintptr
}

// Arch returns the architecture the image was emitted for.
func (t *Tables) Arch() string {
	return t.arch
}

// Groups returns the per-group layouts in emission order.
func (t *Tables) Groups() []GroupLayout {
	return t.groups
}

// Group returns the layout of the given group.
func (t *Tables) Group(id opcode.GroupID) (GroupLayout, bool) {
	for _, l := range t.groups {
		if l.ID == id {
			return l, true
		}
	}
	return GroupLayout{}, false
}

// Lookup resolves a recorded symbol to its address, tagged the way the
// builder's scheme tagged it.
func (t *Tables) Lookup(symbol string) (uintptr, bool) {
	addr, ok := t.syms[symbol]
	return addr, ok
}

// Image returns the frozen bytes of one group's table.
func (t *Tables) Image(id opcode.GroupID) []byte {
	for _, l := range t.groups {
		if l.ID == id {
			return t.seg.Bytes()[l.Offset : l.Offset+l.TableSize()]
		}
	}
	return nil
}

// Size returns the byte size of the whole image.
func (t *Tables) Size() int {
	return int(t.seg.Size())
}

// Close releases the underlying memory mapping.
func (t *Tables) Close() error {
	return t.seg.Unmap()
}
