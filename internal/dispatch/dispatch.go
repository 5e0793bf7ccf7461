// Package dispatch owns the verified view of the handler tables: which
// group lives where, at what stride, and whether the arithmetic the
// interpreter relies on actually matches the code that was emitted.
//
// Initialization is a one-shot, all-or-nothing affair. Resolving a base,
// stripping its pointer tag, and checking every handler slot happens once,
// and any disagreement is a fatal abort rather than an error: a dispatch
// table that fails its layout check cannot be retried into correctness, and
// running on top of it would turn every opcode into a wild jump.
package dispatch

import (
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/wasmkit/ipint/internal/fatal"
	"github.com/wasmkit/ipint/internal/opcode"
	"github.com/wasmkit/ipint/internal/ptrtag"
	"github.com/wasmkit/ipint/internal/table"
)

var log = commonlog.GetLogger("ipint.dispatch")

// Source resolves the symbols of a built table image. *table.Tables is the
// production source; tests substitute synthetic ones.
type Source interface {
	Arch() string
	Groups() []table.GroupLayout
	Lookup(symbol string) (uintptr, bool)
}

var _ Source = (*table.Tables)(nil)

// GroupBase is the verified dispatch anchor of one group. Base is stored
// untagged: consumers do plain arithmetic on it.
type GroupBase struct {
	ID     opcode.GroupID
	Base   uintptr
	Stride uint32
	Count  int
	Digest [32]byte
}

// End returns the first address past the group's table.
func (gb GroupBase) End() uintptr {
	return gb.Base + uintptr(gb.Count)*uintptr(gb.Stride)
}

// Config is the write-once product of initialization. It is built complete,
// published atomically, and never mutated afterwards.
type Config struct {
	arch  string
	bases []GroupBase
	index map[opcode.GroupID]int
}

// Arch returns the architecture the tables were emitted for.
func (c *Config) Arch() string {
	return c.arch
}

// Groups returns a copy of the verified group bases in catalogue order.
func (c *Config) Groups() []GroupBase {
	ret := make([]GroupBase, len(c.bases))
	copy(ret, c.bases)
	return ret
}

// Group returns the verified base of the given group.
func (c *Config) Group(id opcode.GroupID) (GroupBase, bool) {
	i, ok := c.index[id]
	if !ok {
		return GroupBase{}, false
	}
	return c.bases[i], true
}

// HandlerAddr returns the dispatch address of an opcode, the same
// arithmetic the interpreter performs on every instruction.
func (c *Config) HandlerAddr(id opcode.GroupID, ordinal uint32) (uintptr, bool) {
	gb, ok := c.Group(id)
	if !ok || int(ordinal) >= gb.Count {
		return 0, false
	}
	return gb.Base + uintptr(ordinal)*uintptr(gb.Stride), true
}

// OrdinalAt inverts HandlerAddr: it maps an address back to the opcode
// whose slot begins there.
func (c *Config) OrdinalAt(id opcode.GroupID, addr uintptr) (uint32, bool) {
	gb, ok := c.Group(id)
	if !ok || addr < gb.Base || addr >= gb.End() {
		return 0, false
	}
	d := addr - gb.Base
	if d%uintptr(gb.Stride) != 0 {
		return 0, false
	}
	return uint32(d / uintptr(gb.Stride)), true
}

// Registry is the initialization state machine for one table set. The
// process-wide instance lives in the root package; tests create their own.
type Registry struct {
	cat      *opcode.Catalogue
	tag      ptrtag.Scheme
	disabled string

	started uint32
	cfg     atomic.Pointer[Config]
	src     Source
}

// NewRegistry returns a registry for the given catalogue. A nil tag scheme
// means addresses are recorded and compared as-is.
func NewRegistry(cat *opcode.Catalogue, tag ptrtag.Scheme) *Registry {
	if tag == nil {
		tag = ptrtag.Identity()
	}
	return &Registry{cat: cat, tag: tag}
}

// NewDisabledRegistry returns a registry modeling a build without the
// dispatch tier: Initialize aborts, VerifyInitialization is a silent no-op.
func NewDisabledRegistry(reason string) *Registry {
	if reason == "" {
		reason = "dispatch tier disabled"
	}
	return &Registry{disabled: reason}
}

// Enabled reports whether the dispatch tier exists in this build.
func (r *Registry) Enabled() bool {
	return r.disabled == ""
}

// DisabledReason returns why the tier is unavailable, or "".
func (r *Registry) DisabledReason() string {
	return r.disabled
}

// Initialized reports whether Initialize has completed.
func (r *Registry) Initialized() bool {
	return r.cfg.Load() != nil
}

// Config returns the verified configuration, or nil before initialization.
func (r *Registry) Config() *Config {
	return r.cfg.Load()
}

// Initialize resolves every group base from src, strips pointer tags,
// checks every handler slot against the stride arithmetic, and only then
// publishes the write-once Config. Every failure mode is a fatal abort:
// a second call, an unavailable tier, an unresolved symbol, a null base,
// and any slot whose recorded address disagrees with base+ordinal*stride.
func (r *Registry) Initialize(src Source) {
	if !atomic.CompareAndSwapUint32(&r.started, 0, 1) {
		fatal.Abortf("BUG: dispatch tables initialized twice")
	}
	if r.disabled != "" {
		fatal.Abortf("cannot initialize dispatch tables: %s", r.disabled)
	}
	if src == nil {
		fatal.Abortf("BUG: nil dispatch table source")
	}

	layouts := src.Groups()
	if len(layouts) != len(r.cat.Groups) {
		fatal.Abortf("dispatch source carries %d groups, catalogue defines %d", len(layouts), len(r.cat.Groups))
	}

	bases := make([]GroupBase, 0, len(r.cat.Groups))
	index := make(map[opcode.GroupID]int, len(r.cat.Groups))
	for gi, g := range r.cat.Groups {
		l := layouts[gi]
		if l.ID != g.ID || l.Stride != g.Stride || l.Count != g.Count() {
			fatal.Abortf("dispatch source group %s (stride %d, %d entries) does not match catalogue group %s (stride %d, %d entries)",
				l.ID, l.Stride, l.Count, g.ID, g.Stride, g.Count())
		}
		tagged, ok := src.Lookup(g.BaseSymbol())
		if !ok {
			fatal.Abortf("dispatch base symbol %s is unresolved", g.BaseSymbol())
		}
		base := r.tag.Untag(tagged)
		if base == 0 {
			fatal.Abortf("dispatch base symbol %s resolved to null", g.BaseSymbol())
		}
		index[g.ID] = len(bases)
		bases = append(bases, GroupBase{ID: g.ID, Base: base, Stride: g.Stride, Count: g.Count(), Digest: l.Digest})
	}

	// The full slot walk runs against the assembled config so the check
	// covers exactly the addresses dispatch will compute. Publication
	// comes last: an aborted walk must not leave the registry looking
	// initialized.
	cfg := &Config{arch: src.Arch(), bases: bases, index: index}
	r.checkLayout(cfg, src)

	r.src = src
	r.cfg.Store(cfg)

	log.Noticef("dispatch tables initialized: arch %s, %d groups, %d handlers",
		cfg.arch, len(bases), r.cat.EntryCount())
}

func (r *Registry) checkLayout(cfg *Config, src Source) {
	for gi, g := range r.cat.Groups {
		base := cfg.bases[gi].Base
		for i := range g.Entries {
			ordinal := uint32(i)
			sym := g.ValidateSymbol(ordinal)
			tagged, ok := src.Lookup(sym)
			if !ok {
				fatal.Abortf("dispatch validate symbol %s is unresolved", sym)
			}
			want := base + uintptr(ordinal)*uintptr(g.Stride)
			if got := r.tag.Untag(tagged); got != want {
				fatal.Abortf("dispatch layout broken in group %s: opcode %d (%s) recorded at %#x, want %#x (base %#x + %d*%d)",
					g.ID, ordinal, g.Entries[i].Name, got, want, base, ordinal, g.Stride)
			}
		}
		log.Debugf("group %s verified: base %#x, %d handlers at stride %d",
			g.ID, base, g.Count(), g.Stride)
	}
}

// VerifyInitialization re-checks that every group base still resolves to
// the address captured at initialization. The check is cheap, idempotent
// and side-effect free, so it can run at any checkpoint. With the tier
// disabled it returns without doing anything; with the tier enabled but
// never initialized it aborts, since a checkpoint reached in that state
// means startup ordering is broken.
func (r *Registry) VerifyInitialization() {
	if r.disabled != "" {
		return
	}
	cfg := r.cfg.Load()
	if cfg == nil {
		fatal.Abortf("dispatch tables were never initialized")
	}
	for gi, g := range r.cat.Groups {
		tagged, ok := r.src.Lookup(g.BaseSymbol())
		if !ok {
			fatal.Abortf("dispatch base symbol %s vanished after initialization", g.BaseSymbol())
		}
		if got := r.tag.Untag(tagged); got != cfg.bases[gi].Base {
			fatal.Abortf("dispatch base %s moved after initialization: %#x, was %#x",
				g.BaseSymbol(), got, cfg.bases[gi].Base)
		}
	}
}
