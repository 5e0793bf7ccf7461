// Package fatal is the unrecoverable failure channel of the interpreter
// tier.
//
// A layout mismatch means the dispatch arithmetic the interpreter relies on
// is wrong, so there is nothing to recover: execution must not continue past
// the failing check. Failures therefore do not surface as error values
// anywhere; they all funnel into the single hook installed here, which must
// not return.
package fatal

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ipint.fatal")

// Hook receives the diagnostic for an unrecoverable condition. It must not
// return; implementations terminate the process or unwind the calling test.
type Hook func(msg string)

var (
	mu   sync.RWMutex
	hook Hook = exitHook
)

func exitHook(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}

// Swap installs h as the process fatal hook and returns the previous one.
// Embedders that cannot tolerate os.Exit install their own before the tier
// initializes; tests install one that panics a sentinel they recover.
func Swap(h Hook) Hook {
	if h == nil {
		panic(errors.New("BUG: nil fatal hook"))
	}
	mu.Lock()
	defer mu.Unlock()
	prev := hook
	hook = h
	return prev
}

// Abortf reports an unrecoverable condition through the installed hook.
//
// If the hook returns in spite of its contract, Abortf panics so the
// condition still cannot be ignored.
func Abortf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Critical(msg)

	mu.RLock()
	h := hook
	mu.RUnlock()
	h(msg)

	panic(errors.New("BUG: fatal hook returned: " + msg))
}
