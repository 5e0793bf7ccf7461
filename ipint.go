// Package ipint hosts the dispatch-table tier of an in-place WebAssembly
// interpreter: fixed-stride handler tables, a verified layout registry
// over them, and the process-wide lifecycle around both.
//
// Initialize builds the tables once and proves every handler landed on its
// computed slot; VerifyInitialization re-checks the group anchors later at
// negligible cost. Builds without the tier keep the same API surface and
// verification becomes a no-op.
package ipint

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/wasmkit/ipint/internal/dispatch"
	"github.com/wasmkit/ipint/internal/fatal"
	"github.com/wasmkit/ipint/internal/features"
	"github.com/wasmkit/ipint/internal/opcode"
	"github.com/wasmkit/ipint/internal/table"
)

// GroupLayout describes one opcode group's resolved placement.
type GroupLayout struct {
	// Group is the catalogue name, "base" or "simd" for example.
	Group string
	// Base is the raw address of handler zero, stripped of any pointer tag.
	Base uintptr
	// Stride is the fixed byte distance between neighboring handlers.
	Stride uint32
	// Handlers is the number of slots in the group.
	Handlers uint32
	// Digest fingerprints the group's frozen table image.
	Digest [32]byte
}

// Tier owns one set of dispatch tables and the registry that proved their
// layout. Most programs want the process-wide tier through Initialize; a
// separate Tier exists for tools that inspect layouts side by side.
type Tier struct {
	reg *dispatch.Registry
	tab *table.Tables
	log commonlog.Logger
}

// NewTier builds dispatch tables per config and initializes a verified
// layout registry over them. On builds without the tier the returned Tier
// is disabled and carries no tables.
func NewTier(c *TierConfig) (*Tier, error) {
	if c == nil {
		c = NewTierConfig()
	}
	if c.fatalHook != nil {
		fatal.Swap(c.fatalHook)
	}
	features.Enable(c.features...)

	t := &Tier{reg: newTierRegistry(c), log: commonlog.GetLogger(c.logName)}
	if !t.reg.Enabled() {
		t.log.Infof("dispatch tier disabled: %s", t.reg.DisabledReason())
		return t, nil
	}

	b := table.NewBuilder(opcode.IPInt())
	if c.tags != nil {
		b = b.WithTagScheme(c.tags)
	}
	tab, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("building dispatch tables: %w", err)
	}
	t.tab = tab
	t.reg.Initialize(tab)
	return t, nil
}

// Enabled reports whether this tier carries live tables.
func (t *Tier) Enabled() bool { return t.reg.Enabled() }

// Initialized reports whether layout verification completed.
func (t *Tier) Initialized() bool { return t.reg.Initialized() }

// VerifyInitialization re-checks the tier's group anchors against the
// addresses captured at initialization. On a disabled tier it returns
// without side effects.
func (t *Tier) VerifyInitialization() { t.reg.VerifyInitialization() }

// Layout describes each opcode group's placement in catalogue order, or
// nil before initialization.
func (t *Tier) Layout() []GroupLayout {
	cfg := t.reg.Config()
	if cfg == nil {
		return nil
	}
	groups := cfg.Groups()
	out := make([]GroupLayout, len(groups))
	for i, g := range groups {
		out[i] = GroupLayout{
			Group:    string(g.ID),
			Base:     g.Base,
			Stride:   g.Stride,
			Handlers: uint32(g.Count),
			Digest:   g.Digest,
		}
	}
	return out
}

// Close releases the table images. The tier is unusable afterwards; only
// tests and short-lived tools close tiers.
func (t *Tier) Close() error {
	if t.tab == nil {
		return nil
	}
	return t.tab.Close()
}

var (
	processMu   sync.Mutex
	processTier *Tier
)

// Initialize builds the process-wide tier and verifies its layout. Tables
// are write-once for the life of the process: initializing twice is a bug
// and aborts. On builds without the tier Initialize also aborts: an engine
// that reaches its dispatch startup on such a build has nothing to run on.
// Tools that only want to probe use NewTier, which degrades quietly.
func Initialize(c *TierConfig) error {
	t, err := NewTier(c)
	if err != nil {
		return err
	}
	if !t.reg.Enabled() {
		fatal.Abortf("cannot initialize dispatch tables: %s", t.reg.DisabledReason())
	}
	processMu.Lock()
	defer processMu.Unlock()
	if processTier != nil {
		_ = t.Close()
		fatal.Abortf("BUG: process dispatch tier initialized twice")
	}
	processTier = t
	return nil
}

// Initialized reports whether the process-wide tier is up and verified.
func Initialized() bool {
	if t := currentTier(); t != nil {
		return t.Initialized()
	}
	return false
}

// VerifyInitialization re-checks the process-wide tier. Builds without the
// tier return immediately; a supported build that never initialized
// aborts, since callers about to dispatch have nothing to dispatch into.
func VerifyInitialization() {
	if !TierSupported {
		return
	}
	t := currentTier()
	if t == nil {
		fatal.Abortf("dispatch tables were never initialized")
	}
	t.VerifyInitialization()
}

// Layout describes the process-wide tier's group placements, or nil if the
// tier is not initialized.
func Layout() []GroupLayout {
	if t := currentTier(); t != nil {
		return t.Layout()
	}
	return nil
}

func currentTier() *Tier {
	processMu.Lock()
	defer processMu.Unlock()
	return processTier
}

// resetProcessTier tears the singleton down so tests can initialize again.
func resetProcessTier() {
	processMu.Lock()
	defer processMu.Unlock()
	if processTier != nil {
		_ = processTier.Close()
		processTier = nil
	}
}
