package interp

import "fmt"

// TrapCode enumerates the ways execution can fault. Traps are ordinary
// errors to the embedder: the machine stays usable, only the faulting
// invocation is torn down.
type TrapCode uint8

const (
	TrapUnreachable TrapCode = iota
	TrapMemoryOutOfBounds
	TrapDivisionByZero
	TrapIntegerOverflow
	TrapInvalidConversion
	TrapImmutableGlobal
	TrapUnsupported
	TrapFeatureDisabled
	TrapMalformed
	TrapCallStackExhausted
)

func (c TrapCode) String() string {
	switch c {
	case TrapUnreachable:
		return "unreachable executed"
	case TrapMemoryOutOfBounds:
		return "out of bounds memory access"
	case TrapDivisionByZero:
		return "integer divide by zero"
	case TrapIntegerOverflow:
		return "integer overflow"
	case TrapInvalidConversion:
		return "invalid conversion to integer"
	case TrapImmutableGlobal:
		return "global is immutable"
	case TrapUnsupported:
		return "unsupported instruction"
	case TrapFeatureDisabled:
		return "feature disabled"
	case TrapMalformed:
		return "malformed instruction stream"
	case TrapCallStackExhausted:
		return "call stack exhausted"
	default:
		return fmt.Sprintf("trap %d", uint8(c))
	}
}

// TrapError is the error returned when execution faults. Opcode names the
// instruction that trapped.
type TrapError struct {
	Code   TrapCode
	Opcode string
}

func (e *TrapError) Error() string {
	if e.Opcode == "" {
		return "wasm trap: " + e.Code.String()
	}
	return fmt.Sprintf("wasm trap: %s (%s)", e.Code, e.Opcode)
}

func trap(code TrapCode, op string) error {
	return &TrapError{Code: code, Opcode: op}
}
