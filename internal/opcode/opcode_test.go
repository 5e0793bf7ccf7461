package opcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIPIntCatalogueShape(t *testing.T) {
	c := IPInt()

	tests := []struct {
		id     GroupID
		stride uint32
		count  int
	}{
		{id: GroupBase, stride: WasmStride, count: 256},
		{id: GroupGC, stride: WasmStride, count: 31},
		{id: GroupConversion, stride: WasmStride, count: 18},
		{id: GroupSIMD, stride: WasmStride, count: 236},
		{id: GroupAtomic, stride: WasmStride, count: 67},
		{id: GroupArgumINT, stride: HelperStride, count: 18},
		{id: GroupMInt, stride: HelperStride, count: 21},
		{id: GroupUInt, stride: HelperStride, count: 19},
	}
	require.Equal(t, len(tests), len(c.Groups))

	for i, tc := range tests {
		tc := tc
		t.Run(string(tc.id), func(t *testing.T) {
			g := c.Groups[i]
			require.Equal(t, tc.id, g.ID)
			require.Equal(t, tc.stride, g.Stride)
			require.Equal(t, tc.count, g.Count())
			require.Equal(t, tc.count*int(tc.stride), g.TableSize())
			require.Same(t, g, c.Group(tc.id))
		})
	}

	require.Equal(t, 666, c.EntryCount())
	require.Nil(t, c.Group("no-such-group"))
}

func TestIPIntTableBytes(t *testing.T) {
	c := IPInt()

	sum := 0
	for _, g := range c.Groups {
		sum += g.TableSize()
	}
	require.Equal(t, sum, c.TableBytes())
	require.Equal(t, (256+31+18+236+67)*WasmStride+(18+21+19)*HelperStride, c.TableBytes())
}

func TestBaseGroupWireBytes(t *testing.T) {
	base := IPInt().Group(GroupBase)

	tests := []struct {
		wire uint32
		name string
	}{
		{wire: 0x00, name: "unreachable"},
		{wire: 0x0b, name: "end"},
		{wire: 0x10, name: "call"},
		{wire: 0x28, name: "i32_load_mem"},
		{wire: 0x41, name: "i32_const"},
		{wire: 0x6a, name: "i32_add"},
		{wire: 0xc4, name: "i64_extend32_s"},
		{wire: 0xd0, name: "ref_null_t"},
		{wire: PrefixGC, name: "gc_prefix"},
		{wire: PrefixConversion, name: "conversion_prefix"},
		{wire: PrefixSIMD, name: "simd_prefix"},
		{wire: PrefixAtomic, name: "atomic_prefix"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			e := base.Entries[tc.wire]
			require.False(t, e.Reserved)
			require.Equal(t, tc.name, e.Name)
			require.Equal(t, tc.wire, e.Ordinal)

			// The wire byte doubles as the dispatch ordinal.
			ord, ok := base.OrdinalOf(tc.name)
			require.True(t, ok)
			require.Equal(t, tc.wire, ord)
		})
	}
}

func TestBaseGroupReservedSlots(t *testing.T) {
	base := IPInt().Group(GroupBase)

	for _, wire := range []uint32{0x16, 0x1d, 0x27, 0xc5, 0xcf, 0xd7, 0xfa, 0xff} {
		e := base.Entries[wire]
		require.True(t, e.Reserved, "0x%02x should be reserved", wire)
		require.Equal(t, ReservedName, e.Name)
	}

	reserved := 0
	for _, e := range base.Entries {
		if e.Reserved {
			reserved++
		}
	}
	require.Equal(t, 53, reserved)
}

func TestPrefixGroupEndpoints(t *testing.T) {
	c := IPInt()

	tests := []struct {
		id          GroupID
		first, last string
	}{
		{id: GroupGC, first: "struct_new", last: "i31_get_u"},
		{id: GroupConversion, first: "i32_trunc_sat_f32_s", last: "table_fill"},
		{id: GroupSIMD, first: "simd_v128_load_mem", last: "simd_f64x2_convert_low_i32x4_u"},
		{id: GroupAtomic, first: "memory_atomic_notify", last: "i64_atomic_rmw32_cmpxchg_u"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.id), func(t *testing.T) {
			g := c.Group(tc.id)
			require.Equal(t, tc.first, g.Entries[0].Name)
			require.Equal(t, tc.last, g.Entries[g.Count()-1].Name)
			for _, e := range g.Entries {
				require.False(t, e.Reserved, "%s has no reserved slots", tc.id)
			}
		})
	}
}

func TestSymbols(t *testing.T) {
	base := IPInt().Group(GroupBase)

	require.Equal(t, "ipint_unreachable", base.Symbol(0))
	require.Equal(t, "ipint_unreachable", base.BaseSymbol())
	require.Equal(t, "ipint_i32_add_validate", base.ValidateSymbol(0x6a))
	require.Equal(t, "ipint_base_reserved_0x27", base.Symbol(0x27))
	require.Equal(t, "ipint_base_reserved_0x27_validate", base.ValidateSymbol(0x27))
}

func TestSymbolsUniqueAcrossCatalogue(t *testing.T) {
	c := IPInt()

	seen := make(map[string]GroupID, c.EntryCount()*2)
	for _, g := range c.Groups {
		for i := range g.Entries {
			for _, sym := range []string{g.Symbol(uint32(i)), g.ValidateSymbol(uint32(i))} {
				require.True(t, strings.HasPrefix(sym, "ipint_"), sym)
				prev, dup := seen[sym]
				require.False(t, dup, "symbol %s emitted by both %s and %s", sym, prev, g.ID)
				seen[sym] = g.ID
			}
		}
	}
}

func TestOrdinalOf(t *testing.T) {
	g := IPInt().Group(GroupMInt)

	ord, ok := g.OrdinalOf("mint_call")
	require.True(t, ok)
	require.Equal(t, "mint_call", g.Entries[ord].Name)

	_, ok = g.OrdinalOf("no_such_entry")
	require.False(t, ok)

	// Reserved slots are unnamed and must not resolve.
	_, ok = IPInt().Group(GroupBase).OrdinalOf(ReservedName)
	require.False(t, ok)
}

func TestNewGroupPanics(t *testing.T) {
	tests := []struct {
		name   string
		stride uint32
		names  []string
		exp    string
	}{
		{
			name:   "no entries",
			stride: 64,
			names:  nil,
			exp:    `BUG: group "g" has no entries`,
		},
		{
			name:   "zero stride",
			stride: 0,
			names:  []string{"a"},
			exp:    `BUG: group "g" stride 0 is not a power of two`,
		},
		{
			name:   "stride not a power of two",
			stride: 48,
			names:  []string{"a"},
			exp:    `BUG: group "g" stride 48 is not a power of two`,
		},
		{
			name:   "duplicate entry",
			stride: 64,
			names:  []string{"a", "b", "a"},
			exp:    `BUG: group "g" has duplicate entry "a"`,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.PanicsWithError(t, tc.exp, func() {
				NewGroup("g", tc.stride, tc.names)
			})
		})
	}
}

func TestNewCataloguePanics(t *testing.T) {
	g := NewGroup("g", 64, []string{"a"})

	require.PanicsWithError(t, `BUG: duplicate group "g" in catalogue`, func() {
		New(g, NewGroup("g", 64, []string{"b"}))
	})
	require.PanicsWithError(t, "BUG: nil group in catalogue", func() {
		New(g, nil)
	})
}

func TestNewGroupReservedSlots(t *testing.T) {
	g := NewGroup("g", 64, []string{"a", "", "b"})

	require.Equal(t, 3, g.Count())
	require.True(t, g.Entries[1].Reserved)
	require.Equal(t, "ipint_g_reserved_0x01", g.Symbol(1))
	require.Equal(t, uint32(1), g.Entries[1].Ordinal)
}
