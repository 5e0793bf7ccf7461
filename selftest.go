package ipint

import (
	"context"
	"fmt"

	"github.com/wasmkit/ipint/internal/interp"
)

// Errors a self test fails with before executing anything.
var (
	// ErrTierDisabled means this build or configuration carries no tier.
	ErrTierDisabled = interp.ErrTierDisabled
	// ErrNotInitialized means the tables were never built and verified.
	ErrNotInitialized = interp.ErrNotInitialized
)

// SelfTestReport summarizes one dispatch self test.
type SelfTestReport struct {
	// Instructions is the number of instruction dispatches performed.
	Instructions uint64
	// Calls counts function entries, including the outer invocation.
	Calls uint64
	// HelperDispatches counts steps through the marshalling tables.
	HelperDispatches uint64
}

const (
	selfTestN    = 10
	selfTestWant = 55
)

// selfTestModule returns a tiny module whose execution touches every leg of
// the dispatch path: control flow with a backedge, arithmetic, a
// cross-function call and the marshalling walks on both sides of it.
func selfTestModule() *interp.Module {
	// sum accumulates n, n-1, .. 1 with a loop backedge.
	sum := []byte{
		0x02, 0x40, // block
		0x03, 0x40, // loop
		0x20, 0x00, 0x45, // local.get 0; i32.eqz
		0x0d, 0x01, // br_if 1
		0x20, 0x01, 0x20, 0x00, 0x6a, 0x21, 0x01, // acc += n
		0x20, 0x00, 0x41, 0x01, 0x6b, 0x21, 0x00, // n -= 1
		0x0c, 0x00, // br 0
		0x0b,
		0x0b,
		0x20, 0x01, // local.get 1
		0x0b,
	}
	// run forwards its argument to sum.
	run := []byte{
		0x20, 0x00, // local.get 0
		0x10, 0x00, // call 0
		0x0b,
	}
	return &interp.Module{Funcs: []interp.Func{
		{
			Name:    "sum",
			Params:  []interp.ValType{interp.I32},
			Results: []interp.ValType{interp.I32},
			Locals:  []interp.ValType{interp.I32},
			Body:    sum,
		},
		{
			Name:    "run",
			Params:  []interp.ValType{interp.I32},
			Results: []interp.ValType{interp.I32},
			Body:    run,
		},
	}}
}

// SelfTest drives a canned function through the verified tables and checks
// its result, proving the dispatch arithmetic end to end rather than slot
// by slot. It fails with ErrTierDisabled on a disabled tier and
// ErrNotInitialized before initialization.
func (t *Tier) SelfTest(ctx context.Context) (SelfTestReport, error) {
	m, err := interp.New(selfTestModule(), t.reg)
	if err != nil {
		return SelfTestReport{}, err
	}
	got, err := m.Invoke(ctx, "run", selfTestN)
	if err != nil {
		return SelfTestReport{}, err
	}
	if len(got) != 1 || got[0] != selfTestWant {
		return SelfTestReport{}, fmt.Errorf("self test: sum(%d) returned %v, want %d", selfTestN, got, selfTestWant)
	}
	st := m.Stats()
	return SelfTestReport{
		Instructions:     st.Instructions,
		Calls:            st.Calls,
		HelperDispatches: st.HelperDispatches,
	}, nil
}
