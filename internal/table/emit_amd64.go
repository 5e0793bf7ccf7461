package table

import (
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/wasmkit/ipint/internal/asm"
)

// amd64Emitter produces x86-64 stub bodies. Each stub loads its marker into
// AX and returns; slot filler is INT3 so a stray jump into padding traps
// immediately.
type amd64Emitter struct{}

func (amd64Emitter) arch() string { return "amd64" }

func (amd64Emitter) stub(buf asm.Buffer, marker uint64) error {
	b, err := goasm.NewBuilder("amd64", 64)
	if err != nil {
		return fmt.Errorf("failed to create a new assembly builder: %w", err)
	}

	mov := b.NewProg()
	mov.As = x86.AMOVQ
	mov.From.Type = obj.TYPE_CONST
	mov.From.Offset = int64(marker)
	mov.To.Type = obj.TYPE_REG
	mov.To.Reg = x86.REG_AX
	b.AddInstruction(mov)

	ret := b.NewProg()
	ret.As = obj.ARET
	b.AddInstruction(ret)

	_, err = buf.Write(b.Assemble())
	return err
}

func (amd64Emitter) pad(buf asm.Buffer, n int) {
	for i := 0; i < n; i++ {
		buf.WriteByte(0xcc) // INT3
	}
}
