package table

import (
	"github.com/wasmkit/ipint/internal/asm"
)

// arm64Emitter produces AArch64 stub bodies as hand-encoded instruction
// words: a MOVZ/MOVK sequence materializing the marker in X0, then RET.
// Padding is BRK #0 so falling into a slot gap faults.
type arm64Emitter struct{}

const (
	arm64Ret = 0xd65f03c0
	arm64Brk = 0xd4200000
)

func (arm64Emitter) arch() string { return "arm64" }

func (arm64Emitter) stub(buf asm.Buffer, marker uint64) error {
	const rd = 0 // X0
	buf.WriteUint32(0xd2800000 | uint32(marker&0xffff)<<5 | rd)
	buf.WriteUint32(0xf2800000 | 1<<21 | uint32(marker>>16&0xffff)<<5 | rd)
	buf.WriteUint32(0xf2800000 | 2<<21 | uint32(marker>>32&0xffff)<<5 | rd)
	buf.WriteUint32(0xf2800000 | 3<<21 | uint32(marker>>48&0xffff)<<5 | rd)
	buf.WriteUint32(arm64Ret)
	return nil
}

func (arm64Emitter) pad(buf asm.Buffer, n int) {
	for ; n >= 4; n -= 4 {
		buf.WriteUint32(arm64Brk)
	}
	for ; n > 0; n-- {
		buf.WriteByte(0)
	}
}
