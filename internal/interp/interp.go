// Package interp executes raw wasm instruction streams in place, without
// rewriting them into an intermediate representation. Every instruction
// dispatches through the verified table layout: the machine computes the
// handler address from the group base with the same stride arithmetic the
// emitted tables encode, and recovers the handler from that address. A
// machine cannot exist before the tables passed their layout check.
package interp

import (
	"context"
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/wasmkit/ipint/internal/dispatch"
	"github.com/wasmkit/ipint/internal/opcode"
)

var log = commonlog.GetLogger("ipint.interp")

// ValType is a wasm value type, in binary format encoding.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

func (t ValType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("valtype(%#x)", byte(t))
	}
}

func (t ValType) isFloat() bool {
	return t == F32 || t == F64
}

// Global declares one module global and its initial raw bits.
type Global struct {
	Type    ValType
	Mutable bool
	Init    uint64
}

// DataSegment seeds a range of linear memory at instantiation.
type DataSegment struct {
	Offset uint32
	Bytes  []byte
}

// MemoryDecl declares the module memory in pages. Max zero means the
// 4GiB WebAssembly ceiling.
type MemoryDecl struct {
	Min, Max uint32
}

// Func is one function: its signature plus the raw body terminated by an
// end opcode. A nil body marks a host function, fulfilled through the
// machine's slow paths.
type Func struct {
	Name    string
	Params  []ValType
	Results []ValType
	Locals  []ValType
	Body    []byte
}

// Module is the executable unit handed to a machine.
type Module struct {
	Funcs   []Func
	Globals []Global
	Memory  *MemoryDecl
	Data    []DataSegment
}

// SlowPaths receives the operations the dispatch loop hands off rather than
// inlining: memory growth and calls out to host functions.
type SlowPaths interface {
	MemoryGrow(mem *Memory, delta uint32) int32
	CallHost(ctx context.Context, fn *Func, args []uint64) ([]uint64, error)
}

// defaultSlowPaths grows memory in place and rejects host calls.
type defaultSlowPaths struct{}

func (defaultSlowPaths) MemoryGrow(mem *Memory, delta uint32) int32 {
	return mem.Grow(delta)
}

func (defaultSlowPaths) CallHost(_ context.Context, fn *Func, _ []uint64) ([]uint64, error) {
	return nil, fmt.Errorf("host function %q is not provided", fn.Name)
}

// Stats counts dispatch activity since the machine was created.
type Stats struct {
	Instructions     uint64
	Calls            uint64
	HelperDispatches uint64
}

var (
	// ErrNotInitialized is returned when a machine is requested before the
	// dispatch tables were initialized and verified.
	ErrNotInitialized = errors.New("dispatch tables not initialized")
	// ErrTierDisabled is returned when this build carries no dispatch tier.
	ErrTierDisabled = errors.New("in-place interpreter tier disabled")
)

// helperOrdinals caches the marshalling slots the boxed call boundary
// steps through.
type helperOrdinals struct {
	argStack, argEnd             uint32
	mintCall, mintEnd, mintStack uint32
	uintStack, uintRet           uint32
}

// Machine executes one module instance. It is not safe for concurrent use.
type Machine struct {
	mod  *Module
	reg  *dispatch.Registry
	cfg  *dispatch.Config
	slow SlowPaths

	mem     *Memory
	globals []uint64
	funcIdx map[string]int
	meta    []*metadata

	base   dispatch.GroupBase
	conv   dispatch.GroupBase
	helper helperOrdinals

	stats Stats
}

// Option adjusts a machine at construction.
type Option func(*Machine)

// WithSlowPaths replaces the default slow path handler.
func WithSlowPaths(sp SlowPaths) Option {
	return func(m *Machine) { m.slow = sp }
}

func mustOrdinal(g *opcode.Group, name string) uint32 {
	ord, ok := g.OrdinalOf(name)
	if !ok {
		panic(fmt.Errorf("BUG: catalogue group %s lacks %q", g.ID, name))
	}
	return ord
}

// New instantiates mod against an initialized registry. The registry must
// have been initialized from the production catalogue: the machine refuses
// to exist on unverified or partial tables.
func New(mod *Module, reg *dispatch.Registry, opts ...Option) (*Machine, error) {
	if mod == nil {
		return nil, errors.New("nil module")
	}
	if reg == nil {
		return nil, ErrNotInitialized
	}
	if !reg.Enabled() {
		return nil, fmt.Errorf("%w: %s", ErrTierDisabled, reg.DisabledReason())
	}
	cfg := reg.Config()
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	base, ok := cfg.Group(opcode.GroupBase)
	if !ok || base.Count != 256 {
		return nil, errors.New("dispatch config lacks a full base opcode group")
	}
	conv, ok := cfg.Group(opcode.GroupConversion)
	if !ok {
		return nil, errors.New("dispatch config lacks the conversion opcode group")
	}

	m := &Machine{
		mod:     mod,
		reg:     reg,
		cfg:     cfg,
		slow:    defaultSlowPaths{},
		funcIdx: make(map[string]int, len(mod.Funcs)),
		meta:    make([]*metadata, len(mod.Funcs)),
		base:    base,
		conv:    conv,
	}
	for _, opt := range opts {
		opt(m)
	}

	cat := opcode.IPInt()
	arg := cat.Group(opcode.GroupArgumINT)
	mint := cat.Group(opcode.GroupMInt)
	uintg := cat.Group(opcode.GroupUInt)
	m.helper = helperOrdinals{
		argStack:  mustOrdinal(arg, "argumint_stack"),
		argEnd:    mustOrdinal(arg, "argumint_end"),
		mintCall:  mustOrdinal(mint, "mint_call"),
		mintEnd:   mustOrdinal(mint, "mint_end"),
		mintStack: mustOrdinal(mint, "mint_stackzero"),
		uintStack: mustOrdinal(uintg, "uint_stackzero"),
		uintRet:   mustOrdinal(uintg, "uint_ret"),
	}

	for i, f := range mod.Funcs {
		if f.Name == "" {
			continue
		}
		if _, dup := m.funcIdx[f.Name]; dup {
			return nil, fmt.Errorf("duplicate function name %q", f.Name)
		}
		m.funcIdx[f.Name] = i
	}

	if mod.Memory != nil {
		m.mem = NewMemory(mod.Memory.Min, mod.Memory.Max)
		for _, seg := range mod.Data {
			end := uint64(seg.Offset) + uint64(len(seg.Bytes))
			if end > uint64(len(m.mem.data)) {
				return nil, fmt.Errorf("data segment [%d,%d) exceeds memory of %d bytes",
					seg.Offset, end, len(m.mem.data))
			}
			copy(m.mem.data[seg.Offset:], seg.Bytes)
		}
	} else if len(mod.Data) > 0 {
		return nil, errors.New("data segments without a memory")
	}

	m.globals = make([]uint64, len(mod.Globals))
	for i, g := range mod.Globals {
		m.globals[i] = g.Init
	}

	log.Debugf("instantiated module: %d functions, %d globals", len(mod.Funcs), len(mod.Globals))
	return m, nil
}

// Memory returns the machine's linear memory, or nil.
func (m *Machine) Memory() *Memory {
	return m.mem
}

// Global returns the raw bits of global index i.
func (m *Machine) Global(i int) (uint64, bool) {
	if i < 0 || i >= len(m.globals) {
		return 0, false
	}
	return m.globals[i], true
}

// Stats returns the dispatch counters.
func (m *Machine) Stats() Stats {
	return m.stats
}

// Invoke runs a named function with boxed arguments, each value in raw-bit
// representation. The registry checkpoint runs first: an invocation must
// never start on tables whose layout can no longer be proven.
func (m *Machine) Invoke(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	m.reg.VerifyInitialization()
	fi, ok := m.funcIdx[name]
	if !ok {
		return nil, fmt.Errorf("function %q not defined", name)
	}
	return m.invoke(ctx, fi, args, 0)
}

func (m *Machine) invoke(ctx context.Context, fi int, args []uint64, depth int) ([]uint64, error) {
	f := &m.mod.Funcs[fi]
	if len(args) != len(f.Params) {
		return nil, fmt.Errorf("function %q takes %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	if f.Body == nil {
		m.stats.Calls++
		return m.slow.CallHost(ctx, f, args)
	}
	locals := m.boxedEntry(f, args)
	results, err := m.run(ctx, fi, locals, depth)
	if err != nil {
		return nil, err
	}
	m.returnExit(f)
	return results, nil
}

// helperStep routes one marshalling step through its verified table slot.
func (m *Machine) helperStep(g opcode.GroupID, ordinal uint32) uintptr {
	addr, ok := m.cfg.HandlerAddr(g, ordinal)
	if !ok {
		panic(fmt.Errorf("BUG: no table slot for %s ordinal %d", g, ordinal))
	}
	m.stats.HelperDispatches++
	return addr
}

// boxedEntry stages boxed arguments into the frame the way the argument
// interpreter does: one register slot per argument until the register files
// run out, then the stack slot, then the end marker.
func (m *Machine) boxedEntry(f *Func, args []uint64) []uint64 {
	locals := make([]uint64, len(f.Params)+len(f.Locals))
	copy(locals, args)

	ints, floats := 0, 0
	for _, p := range f.Params {
		switch {
		case p.isFloat() && floats < 8:
			m.helperStep(opcode.GroupArgumINT, uint32(8+floats))
			floats++
		case !p.isFloat() && ints < 8:
			m.helperStep(opcode.GroupArgumINT, uint32(ints))
			ints++
		default:
			m.helperStep(opcode.GroupArgumINT, m.helper.argStack)
		}
	}
	m.helperStep(opcode.GroupArgumINT, m.helper.argEnd)
	return locals
}

// returnExit stages results through the return value table. Every return
// walks it, whether the caller is boxed or another function in the module.
func (m *Machine) returnExit(f *Func) {
	ints, floats := 0, 0
	for _, r := range f.Results {
		switch {
		case r.isFloat() && floats < 8:
			m.helperStep(opcode.GroupUInt, uint32(8+floats))
			floats++
		case !r.isFloat() && ints < 8:
			m.helperStep(opcode.GroupUInt, uint32(ints))
			ints++
		default:
			m.helperStep(opcode.GroupUInt, m.helper.uintStack)
		}
	}
	m.helperStep(opcode.GroupUInt, m.helper.uintRet)
}

// callEntry stages an internal call's arguments through the call argument
// table: register moves, the end marker, then the call transfer itself.
func (m *Machine) callEntry(callee *Func) {
	ints, floats := 0, 0
	for _, p := range callee.Params {
		switch {
		case p.isFloat() && floats < 8:
			m.helperStep(opcode.GroupMInt, uint32(8+floats))
			floats++
		case !p.isFloat() && ints < 8:
			m.helperStep(opcode.GroupMInt, uint32(ints))
			ints++
		default:
			m.helperStep(opcode.GroupMInt, m.helper.mintStack)
		}
	}
	m.helperStep(opcode.GroupMInt, m.helper.mintEnd)
	m.helperStep(opcode.GroupMInt, m.helper.mintCall)
}
