package interp

import (
	"errors"
	"fmt"

	"github.com/wasmkit/ipint/internal/features"
	"github.com/wasmkit/ipint/internal/leb128"
	"github.com/wasmkit/ipint/internal/opcode"
)

// baseOpNames maps wire bytes to catalogue names for trap reporting.
var baseOpNames = func() [256]string {
	var names [256]string
	for _, e := range opcode.IPInt().Group(opcode.GroupBase).Entries {
		names[e.Ordinal] = e.Name
	}
	return names
}()

// blockMeta records where a structured control instruction continues.
type blockMeta struct {
	op     byte
	arity  int
	elsePC int // first instruction of the else arm, or 0
	endPC  int // first instruction past the matching end
}

// metadata is the per-function side table the dispatch loop consults for
// control flow. In-place execution never rewrites the body, so branch
// targets have to be discovered by one structural scan up front.
type metadata struct {
	blocks map[int]blockMeta // keyed by the control opcode's offset
}

// scanError marks a body the structural scan cannot follow. unsupported
// distinguishes instructions outside the tier's executable set from a
// stream that is broken outright.
type scanError struct {
	off         int
	op          byte
	unsupported bool
	msg         string
}

func (e *scanError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.off, e.msg)
}

// scan builds the control side table of one function body. The body must
// close every structure and end with a final end opcode.
func scan(body []byte) (*metadata, error) {
	md := &metadata{blocks: make(map[int]blockMeta)}

	type open struct {
		op     byte
		pc     int
		arity  int
		elsePC int
	}
	var stack []open

	pc := 0
	for pc < len(body) {
		at := pc
		op := body[pc]
		pc++
		switch op {
		case opBlock, opLoop, opIf:
			arity, n, err := scanBlockType(body[pc:])
			if err != nil {
				err.off, err.op = at, op
				return nil, err
			}
			pc += n
			stack = append(stack, open{op: op, pc: at, arity: arity})
		case opElse:
			if len(stack) == 0 || stack[len(stack)-1].op != opIf {
				return nil, &scanError{off: at, op: op, msg: "else outside if"}
			}
			stack[len(stack)-1].elsePC = pc
		case opEnd:
			if len(stack) == 0 {
				if pc != len(body) {
					return nil, &scanError{off: at, op: op, msg: "instructions after the function end"}
				}
				return md, nil
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			md.blocks[top.pc] = blockMeta{op: top.op, arity: top.arity, elsePC: top.elsePC, endPC: pc}
		default:
			n, err := immSize(body[pc:], op)
			if err != nil {
				err.off, err.op = at, op
				return nil, err
			}
			pc += n
		}
	}
	return nil, &scanError{off: len(body), msg: "function body missing its final end"}
}

func scanBlockType(b []byte) (arity, n int, err *scanError) {
	if len(b) == 0 {
		return 0, 0, &scanError{msg: "truncated block type"}
	}
	switch ValType(b[0]) {
	case I32, I64, F32, F64:
		return 1, 1, nil
	}
	if b[0] == 0x40 {
		return 0, 1, nil
	}
	return 0, 0, &scanError{unsupported: true, msg: fmt.Sprintf("block type %#x", b[0])}
}

func sizeU32(b []byte) (int, *scanError) {
	_, n, err := leb128.LoadUint32(b)
	if err != nil {
		return 0, &scanError{msg: err.Error()}
	}
	return int(n), nil
}

func sizeS32(b []byte) (int, *scanError) {
	_, n, err := leb128.LoadInt32(b)
	if err != nil {
		return 0, &scanError{msg: err.Error()}
	}
	return int(n), nil
}

func sizeS64(b []byte) (int, *scanError) {
	_, n, err := leb128.LoadInt64(b)
	if err != nil {
		return 0, &scanError{msg: err.Error()}
	}
	return int(n), nil
}

// immSize returns how many immediate bytes follow op, so the scan can hop
// instruction to instruction without misreading immediates as opcodes.
func immSize(b []byte, op byte) (int, *scanError) {
	need := func(n int) (int, *scanError) {
		if len(b) < n {
			return 0, &scanError{msg: "truncated immediate"}
		}
		return n, nil
	}

	switch op {
	case opBr, opBrIf, opCall,
		opLocalGet, opLocalSet, opLocalTee, opGlobalGet, opGlobalSet:
		return sizeU32(b)
	case opCallIndirect:
		n1, err := sizeU32(b)
		if err != nil {
			return 0, err
		}
		n2, err := sizeU32(b[n1:])
		if err != nil {
			return 0, err
		}
		return n1 + n2, nil
	case opBrTable:
		count, n, err := leb128.LoadUint32(b)
		if err != nil {
			return 0, &scanError{msg: err.Error()}
		}
		total := int(n)
		for i := uint64(0); i <= uint64(count); i++ {
			m, serr := sizeU32(b[total:])
			if serr != nil {
				return 0, serr
			}
			total += m
		}
		return total, nil
	case opSelectT:
		count, n, err := leb128.LoadUint32(b)
		if err != nil {
			return 0, &scanError{msg: err.Error()}
		}
		return need(int(n) + int(count))
	case opMemorySize, opMemoryGrow:
		return need(1)
	case opI32Const:
		return sizeS32(b)
	case opI64Const:
		return sizeS64(b)
	case opF32Const:
		return need(4)
	case opF64Const:
		return need(8)
	case opConvPrefix:
		return convImmSize(b)
	}

	switch {
	case op >= opI32Load && op <= opI64Store32:
		n1, err := sizeU32(b)
		if err != nil {
			return 0, err
		}
		n2, err := sizeU32(b[n1:])
		if err != nil {
			return 0, err
		}
		return n1 + n2, nil
	case op == opUnreachable || op == opNop || op == opReturn || op == opDrop || op == opSelect:
		return 0, nil
	case op >= opI32Eqz && op <= opI64Extend32S:
		return 0, nil
	}
	return 0, &scanError{unsupported: true, msg: fmt.Sprintf("opcode %#02x", op)}
}

func convImmSize(b []byte) (int, *scanError) {
	sub, n, err := leb128.LoadUint32(b)
	if err != nil {
		return 0, &scanError{msg: err.Error()}
	}
	total := int(n)
	fixed := func(k int) (int, *scanError) {
		if len(b) < total+k {
			return 0, &scanError{msg: "truncated immediate"}
		}
		return total + k, nil
	}
	switch {
	case sub <= 7: // trunc_sat family
		return total, nil
	case sub == 8: // memory.init: data index, memory byte
		m, serr := sizeU32(b[total:])
		if serr != nil {
			return 0, serr
		}
		total += m
		return fixed(1)
	case sub == 9: // data.drop: data index
		m, serr := sizeU32(b[total:])
		if serr != nil {
			return 0, serr
		}
		return total + m, nil
	case sub == 10: // memory.copy: two memory bytes
		return fixed(2)
	case sub == 11: // memory.fill: memory byte
		return fixed(1)
	}
	return 0, &scanError{unsupported: true, msg: fmt.Sprintf("conversion sub-opcode %d", sub)}
}

// metadataFor returns the function's side table, scanning on first use.
// Scan failures surface as traps: the tier refuses bodies it cannot
// follow, naming the reason.
func (m *Machine) metadataFor(fi int) (*metadata, error) {
	if md := m.meta[fi]; md != nil {
		return md, nil
	}
	md, err := scan(m.mod.Funcs[fi].Body)
	if err != nil {
		var se *scanError
		if errors.As(err, &se) && se.unsupported {
			return nil, m.unsupportedTrap(se.op)
		}
		return nil, trap(TrapMalformed, m.mod.Funcs[fi].Name)
	}
	m.meta[fi] = md
	return md, nil
}

// unsupportedTrap distinguishes a capability that is switched off from an
// instruction the tier never executes.
func (m *Machine) unsupportedTrap(op byte) error {
	name := baseOpNames[op]
	if name == "" {
		name = fmt.Sprintf("opcode %#02x", op)
	}
	switch op {
	case opGCPrefix:
		if !features.Have(features.GC) {
			return trap(TrapFeatureDisabled, name)
		}
	case opSIMDPrefix:
		if !features.Have(features.SIMD) {
			return trap(TrapFeatureDisabled, name)
		}
	case opAtomicPrefix:
		if !features.Have(features.Atomics) {
			return trap(TrapFeatureDisabled, name)
		}
	}
	return trap(TrapUnsupported, name)
}
