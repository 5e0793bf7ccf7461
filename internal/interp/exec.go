package interp

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"runtime"

	"github.com/wasmkit/ipint/internal/leb128"
	"github.com/wasmkit/ipint/internal/moremath"
	"github.com/wasmkit/ipint/internal/opcode"
)

// Wire bytes the dispatch loop and the structural scan care about by name.
// The numeric run 0x45..0xc4 is registered positionally from opI32Eqz.
const (
	opUnreachable  = 0x00
	opNop          = 0x01
	opBlock        = 0x02
	opLoop         = 0x03
	opIf           = 0x04
	opElse         = 0x05
	opEnd          = 0x0b
	opBr           = 0x0c
	opBrIf         = 0x0d
	opBrTable      = 0x0e
	opReturn       = 0x0f
	opCall         = 0x10
	opCallIndirect = 0x11
	opDrop         = 0x1a
	opSelect       = 0x1b
	opSelectT      = 0x1c
	opLocalGet     = 0x20
	opLocalSet     = 0x21
	opLocalTee     = 0x22
	opGlobalGet    = 0x23
	opGlobalSet    = 0x24
	opI32Load      = 0x28
	opI64Store32   = 0x3e
	opMemorySize   = 0x3f
	opMemoryGrow   = 0x40
	opI32Const     = 0x41
	opI64Const     = 0x42
	opF32Const     = 0x43
	opF64Const     = 0x44
	opI32Eqz       = 0x45
	opI64Extend32S = 0xc4

	opGCPrefix     = 0xfb
	opConvPrefix   = 0xfc
	opSIMDPrefix   = 0xfd
	opAtomicPrefix = 0xfe
)

// callStackCeiling bounds frame depth the way a native stack guard would.
const callStackCeiling = 2048

// handler executes one instruction against the current activation.
type handler func(s *state) error

// label is one open structured control frame.
type label struct {
	isLoop bool
	cont   int // branch continuation pc
	height int // operand stack height at entry
	arity  int // values a forward branch carries
}

// state is one activation of the dispatch loop.
type state struct {
	m        *Machine
	ctx      context.Context
	f        *Func
	md       *metadata
	body     []byte
	pc       int
	depth    int
	locals   []uint64
	stack    []uint64
	labels   []label
	done     bool
	backedge bool
}

func (s *state) push(v uint64) { s.stack = append(s.stack, v) }

func (s *state) pop() uint64 {
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

func (s *state) immU32() (uint32, error) {
	v, n, err := leb128.LoadUint32(s.body[s.pc:])
	if err != nil {
		return 0, trap(TrapMalformed, s.f.Name)
	}
	s.pc += int(n)
	return v, nil
}

func (s *state) immS32() (int32, error) {
	v, n, err := leb128.LoadInt32(s.body[s.pc:])
	if err != nil {
		return 0, trap(TrapMalformed, s.f.Name)
	}
	s.pc += int(n)
	return v, nil
}

func (s *state) immS64() (int64, error) {
	v, n, err := leb128.LoadInt64(s.body[s.pc:])
	if err != nil {
		return 0, trap(TrapMalformed, s.f.Name)
	}
	s.pc += int(n)
	return v, nil
}

func (s *state) immByte() (byte, error) {
	if s.pc >= len(s.body) {
		return 0, trap(TrapMalformed, s.f.Name)
	}
	b := s.body[s.pc]
	s.pc++
	return b, nil
}

func (s *state) immF32() (uint64, error) {
	if s.pc+4 > len(s.body) {
		return 0, trap(TrapMalformed, s.f.Name)
	}
	v := binary.LittleEndian.Uint32(s.body[s.pc:])
	s.pc += 4
	return uint64(v), nil
}

func (s *state) immF64() (uint64, error) {
	if s.pc+8 > len(s.body) {
		return 0, trap(TrapMalformed, s.f.Name)
	}
	v := binary.LittleEndian.Uint64(s.body[s.pc:])
	s.pc += 8
	return v, nil
}

// memarg skips the alignment hint and returns the static offset.
func (s *state) memarg() (uint32, error) {
	if _, err := s.immU32(); err != nil {
		return 0, err
	}
	return s.immU32()
}

// run drives one frame through the dispatch loop until its body completes.
// Stack discipline is not re-validated per instruction, so a body the scan
// accepted but whose operand accounting is broken surfaces as a runtime
// error, converted to a malformed-stream trap rather than a crash.
func (m *Machine) run(ctx context.Context, fi int, locals []uint64, depth int) (results []uint64, err error) {
	f := &m.mod.Funcs[fi]
	if depth >= callStackCeiling {
		return nil, trap(TrapCallStackExhausted, f.Name)
	}
	md, err := m.metadataFor(fi)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				results, err = nil, trap(TrapMalformed, f.Name)
				return
			}
			panic(r)
		}
	}()

	s := &state{m: m, ctx: ctx, f: f, md: md, body: f.Body, locals: locals, depth: depth}
	m.stats.Calls++

	for !s.done {
		if s.pc >= len(s.body) {
			return nil, trap(TrapMalformed, f.Name)
		}
		op := s.body[s.pc]
		s.pc++
		if err := m.handlerFor(op)(s); err != nil {
			return nil, err
		}
		m.stats.Instructions++
		if s.backedge {
			s.backedge = false
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	n := len(f.Results)
	if len(s.stack) < n {
		return nil, trap(TrapMalformed, f.Name)
	}
	return s.stack[len(s.stack)-n:], nil
}

// handlerFor routes an opcode byte through its table slot: the slot address
// comes from the group anchor, and the handler index is recovered from that
// address. Both directions use the arithmetic the initializer checked.
func (m *Machine) handlerFor(op byte) handler {
	addr := m.base.Base + uintptr(op)*uintptr(m.base.Stride)
	return baseHandlers[(addr-m.base.Base)/uintptr(m.base.Stride)]
}

var baseHandlers = buildBaseHandlers()

func buildBaseHandlers() [256]handler {
	var t [256]handler
	for i := range t {
		op := byte(i)
		t[i] = func(s *state) error { return s.m.unsupportedTrap(op) }
	}

	t[opUnreachable] = execUnreachable
	t[opNop] = execNop
	t[opBlock] = execBlock
	t[opLoop] = execLoop
	t[opIf] = execIf
	t[opElse] = execElse
	t[opEnd] = execEnd
	t[opBr] = execBr
	t[opBrIf] = execBrIf
	t[opBrTable] = execBrTable
	t[opReturn] = execReturn
	t[opCall] = execCall
	t[opDrop] = execDrop
	t[opSelect] = execSelect
	t[opSelectT] = execSelectT
	t[opLocalGet] = execLocalGet
	t[opLocalSet] = execLocalSet
	t[opLocalTee] = execLocalTee
	t[opGlobalGet] = execGlobalGet
	t[opGlobalSet] = execGlobalSet
	t[opMemorySize] = execMemorySize
	t[opMemoryGrow] = execMemoryGrow
	t[opI32Const] = execI32Const
	t[opI64Const] = execI64Const
	t[opF32Const] = execF32Const
	t[opF64Const] = execF64Const
	t[opConvPrefix] = execConvPrefix

	for i, h := range memoryHandlers() {
		t[opI32Load+i] = h
	}
	for i, h := range numericHandlers() {
		t[opI32Eqz+i] = h
	}
	return t
}

func execUnreachable(s *state) error {
	return trap(TrapUnreachable, baseOpNames[opUnreachable])
}

func execNop(*state) error { return nil }

func execBlock(s *state) error {
	at := s.pc - 1
	meta, ok := s.md.blocks[at]
	if !ok {
		return trap(TrapMalformed, s.f.Name)
	}
	_, n, serr := scanBlockType(s.body[s.pc:])
	if serr != nil {
		return trap(TrapMalformed, s.f.Name)
	}
	s.pc += n
	s.labels = append(s.labels, label{cont: meta.endPC, height: len(s.stack), arity: meta.arity})
	return nil
}

func execLoop(s *state) error {
	at := s.pc - 1
	if _, ok := s.md.blocks[at]; !ok {
		return trap(TrapMalformed, s.f.Name)
	}
	_, n, serr := scanBlockType(s.body[s.pc:])
	if serr != nil {
		return trap(TrapMalformed, s.f.Name)
	}
	s.pc += n
	// A branch to a loop re-enters it, so the continuation is the first
	// body instruction and carries no values.
	s.labels = append(s.labels, label{isLoop: true, cont: s.pc, height: len(s.stack)})
	return nil
}

func execIf(s *state) error {
	at := s.pc - 1
	meta, ok := s.md.blocks[at]
	if !ok {
		return trap(TrapMalformed, s.f.Name)
	}
	_, n, serr := scanBlockType(s.body[s.pc:])
	if serr != nil {
		return trap(TrapMalformed, s.f.Name)
	}
	s.pc += n
	cond := s.pop()
	if cond != 0 {
		s.labels = append(s.labels, label{cont: meta.endPC, height: len(s.stack), arity: meta.arity})
		return nil
	}
	if meta.elsePC != 0 {
		s.labels = append(s.labels, label{cont: meta.endPC, height: len(s.stack), arity: meta.arity})
		s.pc = meta.elsePC
		return nil
	}
	s.pc = meta.endPC
	return nil
}

// execElse is only reached by falling out of the then arm: skip past end.
func execElse(s *state) error {
	if len(s.labels) == 0 {
		return trap(TrapMalformed, s.f.Name)
	}
	top := s.labels[len(s.labels)-1]
	s.labels = s.labels[:len(s.labels)-1]
	s.pc = top.cont
	return nil
}

func execEnd(s *state) error {
	if n := len(s.labels); n > 0 {
		s.labels = s.labels[:n-1]
		return nil
	}
	s.done = true
	return nil
}

func (s *state) branchTo(depth uint32) error {
	if int(depth) == len(s.labels) {
		// The outermost branch target is the function body itself.
		s.done = true
		return nil
	}
	if int(depth) > len(s.labels) {
		return trap(TrapMalformed, s.f.Name)
	}
	idx := len(s.labels) - 1 - int(depth)
	l := s.labels[idx]
	if l.isLoop {
		s.labels = s.labels[:idx+1]
		s.stack = s.stack[:l.height]
		s.pc = l.cont
		s.backedge = true
		return nil
	}
	copy(s.stack[l.height:], s.stack[len(s.stack)-l.arity:])
	s.stack = s.stack[:l.height+l.arity]
	s.labels = s.labels[:idx]
	s.pc = l.cont
	return nil
}

func execBr(s *state) error {
	d, err := s.immU32()
	if err != nil {
		return err
	}
	return s.branchTo(d)
}

func execBrIf(s *state) error {
	d, err := s.immU32()
	if err != nil {
		return err
	}
	if s.pop() != 0 {
		return s.branchTo(d)
	}
	return nil
}

func execBrTable(s *state) error {
	count, err := s.immU32()
	if err != nil {
		return err
	}
	targets := make([]uint32, count+1)
	for i := range targets {
		if targets[i], err = s.immU32(); err != nil {
			return err
		}
	}
	idx := uint32(s.pop())
	if idx > count {
		idx = count
	}
	return s.branchTo(targets[idx])
}

func execReturn(s *state) error {
	s.done = true
	return nil
}

func execCall(s *state) error {
	idx, err := s.immU32()
	if err != nil {
		return err
	}
	if int(idx) >= len(s.m.mod.Funcs) {
		return trap(TrapMalformed, s.f.Name)
	}
	callee := &s.m.mod.Funcs[idx]
	np := len(callee.Params)
	args := make([]uint64, np)
	copy(args, s.stack[len(s.stack)-np:])
	s.stack = s.stack[:len(s.stack)-np]

	s.m.callEntry(callee)
	var results []uint64
	if callee.Body == nil {
		s.m.stats.Calls++
		results, err = s.m.slow.CallHost(s.ctx, callee, args)
		if err == nil && len(results) != len(callee.Results) {
			err = fmt.Errorf("host function %q returned %d values, want %d",
				callee.Name, len(results), len(callee.Results))
		}
	} else {
		locals := make([]uint64, np+len(callee.Locals))
		copy(locals, args)
		results, err = s.m.run(s.ctx, int(idx), locals, s.depth+1)
	}
	if err != nil {
		return err
	}
	s.m.returnExit(callee)
	s.stack = append(s.stack, results...)
	return nil
}

func execDrop(s *state) error {
	s.pop()
	return nil
}

func execSelect(s *state) error {
	c := s.pop()
	v2 := s.pop()
	v1 := s.pop()
	if c != 0 {
		s.push(v1)
	} else {
		s.push(v2)
	}
	return nil
}

func execSelectT(s *state) error {
	count, err := s.immU32()
	if err != nil {
		return err
	}
	if int(count) > len(s.body)-s.pc {
		return trap(TrapMalformed, s.f.Name)
	}
	s.pc += int(count)
	if count != 1 {
		return trap(TrapUnsupported, baseOpNames[opSelectT])
	}
	return execSelect(s)
}

func execLocalGet(s *state) error {
	i, err := s.immU32()
	if err != nil {
		return err
	}
	if int(i) >= len(s.locals) {
		return trap(TrapMalformed, s.f.Name)
	}
	s.push(s.locals[i])
	return nil
}

func execLocalSet(s *state) error {
	i, err := s.immU32()
	if err != nil {
		return err
	}
	if int(i) >= len(s.locals) {
		return trap(TrapMalformed, s.f.Name)
	}
	s.locals[i] = s.pop()
	return nil
}

func execLocalTee(s *state) error {
	i, err := s.immU32()
	if err != nil {
		return err
	}
	if int(i) >= len(s.locals) {
		return trap(TrapMalformed, s.f.Name)
	}
	s.locals[i] = s.stack[len(s.stack)-1]
	return nil
}

func execGlobalGet(s *state) error {
	i, err := s.immU32()
	if err != nil {
		return err
	}
	if int(i) >= len(s.m.globals) {
		return trap(TrapMalformed, s.f.Name)
	}
	s.push(s.m.globals[i])
	return nil
}

func execGlobalSet(s *state) error {
	i, err := s.immU32()
	if err != nil {
		return err
	}
	if int(i) >= len(s.m.globals) {
		return trap(TrapMalformed, s.f.Name)
	}
	if !s.m.mod.Globals[i].Mutable {
		return trap(TrapImmutableGlobal, baseOpNames[opGlobalSet])
	}
	s.m.globals[i] = s.pop()
	return nil
}

func loadOp(name string, load func(m *Memory, ea uint64) (uint64, bool), ext func(uint64) uint64) handler {
	return func(s *state) error {
		off, err := s.memarg()
		if err != nil {
			return err
		}
		mem := s.m.mem
		if mem == nil {
			return trap(TrapMemoryOutOfBounds, name)
		}
		v, ok := load(mem, uint64(uint32(s.pop()))+uint64(off))
		if !ok {
			return trap(TrapMemoryOutOfBounds, name)
		}
		s.push(ext(v))
		return nil
	}
}

func storeOp(name string, store func(m *Memory, ea uint64, v uint64) bool) handler {
	return func(s *state) error {
		off, err := s.memarg()
		if err != nil {
			return err
		}
		v := s.pop()
		base := uint32(s.pop())
		mem := s.m.mem
		if mem == nil {
			return trap(TrapMemoryOutOfBounds, name)
		}
		if !store(mem, uint64(base)+uint64(off), v) {
			return trap(TrapMemoryOutOfBounds, name)
		}
		return nil
	}
}

func extNone(v uint64) uint64   { return v }
func extS8x32(v uint64) uint64  { return uint64(uint32(int32(int8(v)))) }
func extS16x32(v uint64) uint64 { return uint64(uint32(int32(int16(v)))) }
func extS8x64(v uint64) uint64  { return uint64(int64(int8(v))) }
func extS16x64(v uint64) uint64 { return uint64(int64(int16(v))) }
func extS32x64(v uint64) uint64 { return uint64(int64(int32(v))) }

// memoryHandlers covers the contiguous run 0x28..0x3e in wire order.
func memoryHandlers() []handler {
	return []handler{
		loadOp("i32_load_mem", (*Memory).loadU32, extNone),
		loadOp("i64_load_mem", (*Memory).loadU64, extNone),
		loadOp("f32_load_mem", (*Memory).loadU32, extNone),
		loadOp("f64_load_mem", (*Memory).loadU64, extNone),
		loadOp("i32_load8s_mem", (*Memory).loadU8, extS8x32),
		loadOp("i32_load8u_mem", (*Memory).loadU8, extNone),
		loadOp("i32_load16s_mem", (*Memory).loadU16, extS16x32),
		loadOp("i32_load16u_mem", (*Memory).loadU16, extNone),
		loadOp("i64_load8s_mem", (*Memory).loadU8, extS8x64),
		loadOp("i64_load8u_mem", (*Memory).loadU8, extNone),
		loadOp("i64_load16s_mem", (*Memory).loadU16, extS16x64),
		loadOp("i64_load16u_mem", (*Memory).loadU16, extNone),
		loadOp("i64_load32s_mem", (*Memory).loadU32, extS32x64),
		loadOp("i64_load32u_mem", (*Memory).loadU32, extNone),
		storeOp("i32_store_mem", (*Memory).store32),
		storeOp("i64_store_mem", (*Memory).store64),
		storeOp("f32_store_mem", (*Memory).store32),
		storeOp("f64_store_mem", (*Memory).store64),
		storeOp("i32_store8_mem", (*Memory).store8),
		storeOp("i32_store16_mem", (*Memory).store16),
		storeOp("i64_store8_mem", (*Memory).store8),
		storeOp("i64_store16_mem", (*Memory).store16),
		storeOp("i64_store32_mem", (*Memory).store32),
	}
}

func execMemorySize(s *state) error {
	if _, err := s.immByte(); err != nil {
		return err
	}
	if s.m.mem == nil {
		return trap(TrapMalformed, s.f.Name)
	}
	s.push(uint64(s.m.mem.Pages()))
	return nil
}

func execMemoryGrow(s *state) error {
	if _, err := s.immByte(); err != nil {
		return err
	}
	delta := uint32(s.pop())
	if s.m.mem == nil {
		return trap(TrapMalformed, s.f.Name)
	}
	old := s.m.slow.MemoryGrow(s.m.mem, delta)
	s.push(uint64(uint32(old)))
	return nil
}

func execI32Const(s *state) error {
	v, err := s.immS32()
	if err != nil {
		return err
	}
	s.push(uint64(uint32(v)))
	return nil
}

func execI64Const(s *state) error {
	v, err := s.immS64()
	if err != nil {
		return err
	}
	s.push(uint64(v))
	return nil
}

func execF32Const(s *state) error {
	v, err := s.immF32()
	if err != nil {
		return err
	}
	s.push(v)
	return nil
}

func execF64Const(s *state) error {
	v, err := s.immF64()
	if err != nil {
		return err
	}
	s.push(v)
	return nil
}

func bool01(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func i32un(fn func(uint32) uint32) handler {
	return func(s *state) error {
		s.push(uint64(fn(uint32(s.pop()))))
		return nil
	}
}

func i32bin(fn func(a, b uint32) uint32) handler {
	return func(s *state) error {
		b := uint32(s.pop())
		a := uint32(s.pop())
		s.push(uint64(fn(a, b)))
		return nil
	}
}

func i32binErr(fn func(a, b uint32) (uint32, error)) handler {
	return func(s *state) error {
		b := uint32(s.pop())
		a := uint32(s.pop())
		v, err := fn(a, b)
		if err != nil {
			return err
		}
		s.push(uint64(v))
		return nil
	}
}

func i32cmp(fn func(a, b uint32) bool) handler {
	return func(s *state) error {
		b := uint32(s.pop())
		a := uint32(s.pop())
		s.push(bool01(fn(a, b)))
		return nil
	}
}

func i64un(fn func(uint64) uint64) handler {
	return func(s *state) error {
		s.push(fn(s.pop()))
		return nil
	}
}

func i64bin(fn func(a, b uint64) uint64) handler {
	return func(s *state) error {
		b := s.pop()
		a := s.pop()
		s.push(fn(a, b))
		return nil
	}
}

func i64binErr(fn func(a, b uint64) (uint64, error)) handler {
	return func(s *state) error {
		b := s.pop()
		a := s.pop()
		v, err := fn(a, b)
		if err != nil {
			return err
		}
		s.push(v)
		return nil
	}
}

func i64cmp(fn func(a, b uint64) bool) handler {
	return func(s *state) error {
		b := s.pop()
		a := s.pop()
		s.push(bool01(fn(a, b)))
		return nil
	}
}

func f32un(fn func(float32) float32) handler {
	return func(s *state) error {
		v := math.Float32frombits(uint32(s.pop()))
		s.push(uint64(math.Float32bits(fn(v))))
		return nil
	}
}

func f32bin(fn func(a, b float32) float32) handler {
	return func(s *state) error {
		b := math.Float32frombits(uint32(s.pop()))
		a := math.Float32frombits(uint32(s.pop()))
		s.push(uint64(math.Float32bits(fn(a, b))))
		return nil
	}
}

func f32cmp(fn func(a, b float32) bool) handler {
	return func(s *state) error {
		b := math.Float32frombits(uint32(s.pop()))
		a := math.Float32frombits(uint32(s.pop()))
		s.push(bool01(fn(a, b)))
		return nil
	}
}

func f64un(fn func(float64) float64) handler {
	return func(s *state) error {
		s.push(math.Float64bits(fn(math.Float64frombits(s.pop()))))
		return nil
	}
}

func f64bin(fn func(a, b float64) float64) handler {
	return func(s *state) error {
		b := math.Float64frombits(s.pop())
		a := math.Float64frombits(s.pop())
		s.push(math.Float64bits(fn(a, b)))
		return nil
	}
}

func f64cmp(fn func(a, b float64) bool) handler {
	return func(s *state) error {
		b := math.Float64frombits(s.pop())
		a := math.Float64frombits(s.pop())
		s.push(bool01(fn(a, b)))
		return nil
	}
}

func truncOp(name string, from32 bool, conv func(f float64, name string) (uint64, error)) handler {
	return func(s *state) error {
		var f float64
		if from32 {
			f = float64(math.Float32frombits(uint32(s.pop())))
		} else {
			f = math.Float64frombits(s.pop())
		}
		v, err := conv(f, name)
		if err != nil {
			return err
		}
		s.push(v)
		return nil
	}
}

// Reinterpret casts move bits between the integer and float domains. The
// operand stack already holds raw bits, so they are no-ops here.
func execReinterpret(*state) error { return nil }

// numericHandlers covers the contiguous run 0x45..0xc4 in wire order.
func numericHandlers() []handler {
	return []handler{
		// 0x45: i32 comparisons
		i32un(func(v uint32) uint32 { return uint32(bool01(v == 0)) }),
		i32cmp(func(a, b uint32) bool { return a == b }),
		i32cmp(func(a, b uint32) bool { return a != b }),
		i32cmp(func(a, b uint32) bool { return int32(a) < int32(b) }),
		i32cmp(func(a, b uint32) bool { return a < b }),
		i32cmp(func(a, b uint32) bool { return int32(a) > int32(b) }),
		i32cmp(func(a, b uint32) bool { return a > b }),
		i32cmp(func(a, b uint32) bool { return int32(a) <= int32(b) }),
		i32cmp(func(a, b uint32) bool { return a <= b }),
		i32cmp(func(a, b uint32) bool { return int32(a) >= int32(b) }),
		i32cmp(func(a, b uint32) bool { return a >= b }),
		// 0x50: i64 comparisons
		i64un(func(v uint64) uint64 { return bool01(v == 0) }),
		i64cmp(func(a, b uint64) bool { return a == b }),
		i64cmp(func(a, b uint64) bool { return a != b }),
		i64cmp(func(a, b uint64) bool { return int64(a) < int64(b) }),
		i64cmp(func(a, b uint64) bool { return a < b }),
		i64cmp(func(a, b uint64) bool { return int64(a) > int64(b) }),
		i64cmp(func(a, b uint64) bool { return a > b }),
		i64cmp(func(a, b uint64) bool { return int64(a) <= int64(b) }),
		i64cmp(func(a, b uint64) bool { return a <= b }),
		i64cmp(func(a, b uint64) bool { return int64(a) >= int64(b) }),
		i64cmp(func(a, b uint64) bool { return a >= b }),
		// 0x5b: f32 comparisons
		f32cmp(func(a, b float32) bool { return a == b }),
		f32cmp(func(a, b float32) bool { return a != b }),
		f32cmp(func(a, b float32) bool { return a < b }),
		f32cmp(func(a, b float32) bool { return a > b }),
		f32cmp(func(a, b float32) bool { return a <= b }),
		f32cmp(func(a, b float32) bool { return a >= b }),
		// 0x61: f64 comparisons
		f64cmp(func(a, b float64) bool { return a == b }),
		f64cmp(func(a, b float64) bool { return a != b }),
		f64cmp(func(a, b float64) bool { return a < b }),
		f64cmp(func(a, b float64) bool { return a > b }),
		f64cmp(func(a, b float64) bool { return a <= b }),
		f64cmp(func(a, b float64) bool { return a >= b }),
		// 0x67: i32 arithmetic
		i32un(func(v uint32) uint32 { return uint32(bits.LeadingZeros32(v)) }),
		i32un(func(v uint32) uint32 { return uint32(bits.TrailingZeros32(v)) }),
		i32un(func(v uint32) uint32 { return uint32(bits.OnesCount32(v)) }),
		i32bin(func(a, b uint32) uint32 { return a + b }),
		i32bin(func(a, b uint32) uint32 { return a - b }),
		i32bin(func(a, b uint32) uint32 { return a * b }),
		i32binErr(i32DivS),
		i32binErr(i32DivU),
		i32binErr(i32RemS),
		i32binErr(i32RemU),
		i32bin(func(a, b uint32) uint32 { return a & b }),
		i32bin(func(a, b uint32) uint32 { return a | b }),
		i32bin(func(a, b uint32) uint32 { return a ^ b }),
		i32bin(func(a, b uint32) uint32 { return a << (b & 31) }),
		i32bin(func(a, b uint32) uint32 { return uint32(int32(a) >> (b & 31)) }),
		i32bin(func(a, b uint32) uint32 { return a >> (b & 31) }),
		i32bin(func(a, b uint32) uint32 { return bits.RotateLeft32(a, int(b&31)) }),
		i32bin(func(a, b uint32) uint32 { return bits.RotateLeft32(a, -int(b&31)) }),
		// 0x79: i64 arithmetic
		i64un(func(v uint64) uint64 { return uint64(bits.LeadingZeros64(v)) }),
		i64un(func(v uint64) uint64 { return uint64(bits.TrailingZeros64(v)) }),
		i64un(func(v uint64) uint64 { return uint64(bits.OnesCount64(v)) }),
		i64bin(func(a, b uint64) uint64 { return a + b }),
		i64bin(func(a, b uint64) uint64 { return a - b }),
		i64bin(func(a, b uint64) uint64 { return a * b }),
		i64binErr(i64DivS),
		i64binErr(i64DivU),
		i64binErr(i64RemS),
		i64binErr(i64RemU),
		i64bin(func(a, b uint64) uint64 { return a & b }),
		i64bin(func(a, b uint64) uint64 { return a | b }),
		i64bin(func(a, b uint64) uint64 { return a ^ b }),
		i64bin(func(a, b uint64) uint64 { return a << (b & 63) }),
		i64bin(func(a, b uint64) uint64 { return uint64(int64(a) >> (b & 63)) }),
		i64bin(func(a, b uint64) uint64 { return a >> (b & 63) }),
		i64bin(func(a, b uint64) uint64 { return bits.RotateLeft64(a, int(b&63)) }),
		i64bin(func(a, b uint64) uint64 { return bits.RotateLeft64(a, -int(b&63)) }),
		// 0x8b: f32 math
		f32un(func(v float32) float32 { return float32(math.Abs(float64(v))) }),
		f32un(func(v float32) float32 { return -v }),
		f32un(func(v float32) float32 { return float32(math.Ceil(float64(v))) }),
		f32un(func(v float32) float32 { return float32(math.Floor(float64(v))) }),
		f32un(func(v float32) float32 { return float32(math.Trunc(float64(v))) }),
		f32un(moremath.WasmCompatNearestF32),
		f32un(func(v float32) float32 { return float32(math.Sqrt(float64(v))) }),
		f32bin(func(a, b float32) float32 { return a + b }),
		f32bin(func(a, b float32) float32 { return a - b }),
		f32bin(func(a, b float32) float32 { return a * b }),
		f32bin(func(a, b float32) float32 { return a / b }),
		f32bin(moremath.WasmCompatMin32),
		f32bin(moremath.WasmCompatMax32),
		f32bin(func(a, b float32) float32 { return float32(math.Copysign(float64(a), float64(b))) }),
		// 0x99: f64 math
		f64un(math.Abs),
		f64un(func(v float64) float64 { return -v }),
		f64un(math.Ceil),
		f64un(math.Floor),
		f64un(math.Trunc),
		f64un(moremath.WasmCompatNearestF64),
		f64un(math.Sqrt),
		f64bin(func(a, b float64) float64 { return a + b }),
		f64bin(func(a, b float64) float64 { return a - b }),
		f64bin(func(a, b float64) float64 { return a * b }),
		f64bin(func(a, b float64) float64 { return a / b }),
		f64bin(moremath.WasmCompatMin64),
		f64bin(moremath.WasmCompatMax64),
		f64bin(math.Copysign),
		// 0xa7: conversions
		i64un(func(v uint64) uint64 { return uint64(uint32(v)) }),
		truncOp("i32_trunc_f32_s", true, truncS32),
		truncOp("i32_trunc_f32_u", true, truncU32),
		truncOp("i32_trunc_f64_s", false, truncS32),
		truncOp("i32_trunc_f64_u", false, truncU32),
		i64un(extS32x64),
		i64un(func(v uint64) uint64 { return uint64(uint32(v)) }),
		truncOp("i64_trunc_f32_s", true, truncS64),
		truncOp("i64_trunc_f32_u", true, truncU64),
		truncOp("i64_trunc_f64_s", false, truncS64),
		truncOp("i64_trunc_f64_u", false, truncU64),
		i64un(func(v uint64) uint64 { return uint64(math.Float32bits(float32(int32(uint32(v))))) }),
		i64un(func(v uint64) uint64 { return uint64(math.Float32bits(float32(uint32(v)))) }),
		i64un(func(v uint64) uint64 { return uint64(math.Float32bits(float32(int64(v)))) }),
		i64un(func(v uint64) uint64 { return uint64(math.Float32bits(float32(v))) }),
		i64un(func(v uint64) uint64 {
			return uint64(math.Float32bits(float32(math.Float64frombits(v))))
		}),
		i64un(func(v uint64) uint64 { return math.Float64bits(float64(int32(uint32(v)))) }),
		i64un(func(v uint64) uint64 { return math.Float64bits(float64(uint32(v))) }),
		i64un(func(v uint64) uint64 { return math.Float64bits(float64(int64(v))) }),
		i64un(func(v uint64) uint64 { return math.Float64bits(float64(v)) }),
		i64un(func(v uint64) uint64 {
			return math.Float64bits(float64(math.Float32frombits(uint32(v))))
		}),
		execReinterpret,
		execReinterpret,
		execReinterpret,
		execReinterpret,
		// 0xc0: sign extensions
		i64un(extS8x32),
		i64un(extS16x32),
		i64un(extS8x64),
		i64un(extS16x64),
		i64un(extS32x64),
	}
}

func i32DivS(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, trap(TrapDivisionByZero, "i32_div_s")
	}
	if int32(a) == math.MinInt32 && int32(b) == -1 {
		return 0, trap(TrapIntegerOverflow, "i32_div_s")
	}
	return uint32(int32(a) / int32(b)), nil
}

func i32DivU(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, trap(TrapDivisionByZero, "i32_div_u")
	}
	return a / b, nil
}

func i32RemS(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, trap(TrapDivisionByZero, "i32_rem_s")
	}
	return uint32(int32(a) % int32(b)), nil
}

func i32RemU(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, trap(TrapDivisionByZero, "i32_rem_u")
	}
	return a % b, nil
}

func i64DivS(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, trap(TrapDivisionByZero, "i64_div_s")
	}
	if int64(a) == math.MinInt64 && int64(b) == -1 {
		return 0, trap(TrapIntegerOverflow, "i64_div_s")
	}
	return uint64(int64(a) / int64(b)), nil
}

func i64DivU(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, trap(TrapDivisionByZero, "i64_div_u")
	}
	return a / b, nil
}

func i64RemS(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, trap(TrapDivisionByZero, "i64_rem_s")
	}
	return uint64(int64(a) % int64(b)), nil
}

func i64RemU(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, trap(TrapDivisionByZero, "i64_rem_u")
	}
	return a % b, nil
}

// Truncation bounds compare against integer-valued floats, so the edges
// below are exact in float64.

func truncS32(f float64, name string) (uint64, error) {
	if math.IsNaN(f) {
		return 0, trap(TrapInvalidConversion, name)
	}
	f = math.Trunc(f)
	if f < -2147483648 || f > 2147483647 {
		return 0, trap(TrapIntegerOverflow, name)
	}
	return uint64(uint32(int32(f))), nil
}

func truncU32(f float64, name string) (uint64, error) {
	if math.IsNaN(f) {
		return 0, trap(TrapInvalidConversion, name)
	}
	f = math.Trunc(f)
	if f < 0 || f > 4294967295 {
		return 0, trap(TrapIntegerOverflow, name)
	}
	return uint64(uint32(f)), nil
}

func truncS64(f float64, name string) (uint64, error) {
	if math.IsNaN(f) {
		return 0, trap(TrapInvalidConversion, name)
	}
	f = math.Trunc(f)
	if f < -9223372036854775808 || f >= 9223372036854775808 {
		return 0, trap(TrapIntegerOverflow, name)
	}
	return uint64(int64(f)), nil
}

func truncU64(f float64, name string) (uint64, error) {
	if math.IsNaN(f) {
		return 0, trap(TrapInvalidConversion, name)
	}
	f = math.Trunc(f)
	if f < 0 || f >= 18446744073709551616 {
		return 0, trap(TrapIntegerOverflow, name)
	}
	return uint64(f), nil
}

func satS32(f float64) uint64 {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Trunc(f)
	if f < -2147483648 {
		return uint64(uint32(0x80000000))
	}
	if f > 2147483647 {
		return 0x7fffffff
	}
	return uint64(uint32(int32(f)))
}

func satU32(f float64) uint64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	f = math.Trunc(f)
	if f > 4294967295 {
		return 0xffffffff
	}
	return uint64(uint32(f))
}

func satS64(f float64) uint64 {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Trunc(f)
	if f < -9223372036854775808 {
		return 0x8000000000000000
	}
	if f >= 9223372036854775808 {
		return 0x7fffffffffffffff
	}
	return uint64(int64(f))
}

func satU64(f float64) uint64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	f = math.Trunc(f)
	if f >= 18446744073709551616 {
		return math.MaxUint64
	}
	return uint64(f)
}

var convOpNames = func() []string {
	g := opcode.IPInt().Group(opcode.GroupConversion)
	names := make([]string, len(g.Entries))
	for i, e := range g.Entries {
		names[i] = e.Name
	}
	return names
}()

func execConvPrefix(s *state) error {
	sub, err := s.immU32()
	if err != nil {
		return err
	}
	name := fmt.Sprintf("conversion sub-opcode %d", sub)
	if int(sub) < len(convOpNames) {
		name = convOpNames[sub]
	}
	conv := s.m.conv
	if int(sub) >= conv.Count {
		return trap(TrapUnsupported, name)
	}
	// The sub-opcode routes through the conversion table the same way the
	// base byte does: slot address from the group anchor, ordinal
	// recovered from that address.
	addr := conv.Base + uintptr(sub)*uintptr(conv.Stride)
	sub = uint32((addr - conv.Base) / uintptr(conv.Stride))
	popF32 := func() float64 { return float64(math.Float32frombits(uint32(s.pop()))) }
	popF64 := func() float64 { return math.Float64frombits(s.pop()) }
	switch sub {
	case 0:
		s.push(satS32(popF32()))
	case 1:
		s.push(satU32(popF32()))
	case 2:
		s.push(satS32(popF64()))
	case 3:
		s.push(satU32(popF64()))
	case 4:
		s.push(satS64(popF32()))
	case 5:
		s.push(satU64(popF32()))
	case 6:
		s.push(satS64(popF64()))
	case 7:
		s.push(satU64(popF64()))
	case 10:
		return s.memoryCopy(name)
	case 11:
		return s.memoryFill(name)
	default:
		return trap(TrapUnsupported, name)
	}
	return nil
}

func (s *state) memoryCopy(name string) error {
	if s.pc+2 > len(s.body) {
		return trap(TrapMalformed, s.f.Name)
	}
	s.pc += 2
	n := uint64(uint32(s.pop()))
	src := uint64(uint32(s.pop()))
	dst := uint64(uint32(s.pop()))
	mem := s.m.mem
	if mem == nil {
		return trap(TrapMemoryOutOfBounds, name)
	}
	if src+n > uint64(len(mem.data)) || dst+n > uint64(len(mem.data)) {
		return trap(TrapMemoryOutOfBounds, name)
	}
	copy(mem.data[dst:dst+n], mem.data[src:src+n])
	return nil
}

func (s *state) memoryFill(name string) error {
	if s.pc+1 > len(s.body) {
		return trap(TrapMalformed, s.f.Name)
	}
	s.pc++
	n := uint64(uint32(s.pop()))
	val := byte(s.pop())
	dst := uint64(uint32(s.pop()))
	mem := s.m.mem
	if mem == nil {
		return trap(TrapMemoryOutOfBounds, name)
	}
	if dst+n > uint64(len(mem.data)) {
		return trap(TrapMemoryOutOfBounds, name)
	}
	b := mem.data[dst : dst+n]
	for i := range b {
		b[i] = val
	}
	return nil
}
