package opcode

// The marshalling families bridge the boxed calling convention and the
// machine one. Unlike the wasm groups they are not selected by instruction
// bytes: callers index them directly by argument position, so the entries
// are laid out register-by-register with the stack and terminator cases at
// the end.

// argumINT moves call arguments from the boxed frame into registers, one
// entry per integer and float argument register.
var argumintNames = []string{
	"argumint_a0", "argumint_a1", "argumint_a2", "argumint_a3",
	"argumint_a4", "argumint_a5", "argumint_a6", "argumint_a7",
	"argumint_fa0", "argumint_fa1", "argumint_fa2", "argumint_fa3",
	"argumint_fa4", "argumint_fa5", "argumint_fa6", "argumint_fa7",
	"argumint_stack",
	"argumint_end",
}

// mINT marshals outgoing call arguments from the value stack into the
// callee's frame.
var mintNames = []string{
	"mint_a0", "mint_a1", "mint_a2", "mint_a3",
	"mint_a4", "mint_a5", "mint_a6", "mint_a7",
	"mint_fa0", "mint_fa1", "mint_fa2", "mint_fa3",
	"mint_fa4", "mint_fa5", "mint_fa6", "mint_fa7",
	"mint_stackzero", "mint_stackeight",
	"mint_gap",
	"mint_call",
	"mint_end",
}

// uINT moves return values back onto the caller's value stack.
var uintNames = []string{
	"uint_r0", "uint_r1", "uint_r2", "uint_r3",
	"uint_r4", "uint_r5", "uint_r6", "uint_r7",
	"uint_fr0", "uint_fr1", "uint_fr2", "uint_fr3",
	"uint_fr4", "uint_fr5", "uint_fr6", "uint_fr7",
	"uint_stackzero", "uint_stackeight",
	"uint_ret",
}
