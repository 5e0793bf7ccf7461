package opcode

// The prefixed groups are dense from ordinal zero; the wire sub-opcode of
// each entry is its position here.

var gcNames = []string{
	"struct_new", "struct_new_default", "struct_get",
	"struct_get_s", "struct_get_u", "struct_set",
	"array_new", "array_new_default", "array_new_fixed",
	"array_new_data", "array_new_elem", "array_get",
	"array_get_s", "array_get_u", "array_set",
	"array_len", "array_fill", "array_copy",
	"array_init_data", "array_init_elem", "ref_test",
	"ref_test_nullable", "ref_cast", "ref_cast_nullable",
	"br_on_cast", "br_on_cast_fail", "any_convert_extern",
	"extern_convert_any", "ref_i31", "i31_get_s",
	"i31_get_u",
}

var conversionNames = []string{
	"i32_trunc_sat_f32_s", "i32_trunc_sat_f32_u", "i32_trunc_sat_f64_s",
	"i32_trunc_sat_f64_u", "i64_trunc_sat_f32_s", "i64_trunc_sat_f32_u",
	"i64_trunc_sat_f64_s", "i64_trunc_sat_f64_u", "memory_init",
	"data_drop", "memory_copy", "memory_fill",
	"table_init", "elem_drop", "table_copy",
	"table_grow", "table_size", "table_fill",
}

var atomicNames = []string{
	"memory_atomic_notify", "memory_atomic_wait32", "memory_atomic_wait64",
	"atomic_fence", "i32_atomic_load", "i64_atomic_load",
	"i32_atomic_load8_u", "i32_atomic_load16_u", "i64_atomic_load8_u",
	"i64_atomic_load16_u", "i64_atomic_load32_u", "i32_atomic_store",
	"i64_atomic_store", "i32_atomic_store8_u", "i32_atomic_store16_u",
	"i64_atomic_store8_u", "i64_atomic_store16_u", "i64_atomic_store32_u",
	"i32_atomic_rmw_add", "i64_atomic_rmw_add", "i32_atomic_rmw8_add_u",
	"i32_atomic_rmw16_add_u", "i64_atomic_rmw8_add_u", "i64_atomic_rmw16_add_u",
	"i64_atomic_rmw32_add_u", "i32_atomic_rmw_sub", "i64_atomic_rmw_sub",
	"i32_atomic_rmw8_sub_u", "i32_atomic_rmw16_sub_u", "i64_atomic_rmw8_sub_u",
	"i64_atomic_rmw16_sub_u", "i64_atomic_rmw32_sub_u", "i32_atomic_rmw_and",
	"i64_atomic_rmw_and", "i32_atomic_rmw8_and_u", "i32_atomic_rmw16_and_u",
	"i64_atomic_rmw8_and_u", "i64_atomic_rmw16_and_u", "i64_atomic_rmw32_and_u",
	"i32_atomic_rmw_or", "i64_atomic_rmw_or", "i32_atomic_rmw8_or_u",
	"i32_atomic_rmw16_or_u", "i64_atomic_rmw8_or_u", "i64_atomic_rmw16_or_u",
	"i64_atomic_rmw32_or_u", "i32_atomic_rmw_xor", "i64_atomic_rmw_xor",
	"i32_atomic_rmw8_xor_u", "i32_atomic_rmw16_xor_u", "i64_atomic_rmw8_xor_u",
	"i64_atomic_rmw16_xor_u", "i64_atomic_rmw32_xor_u", "i32_atomic_rmw_xchg",
	"i64_atomic_rmw_xchg", "i32_atomic_rmw8_xchg_u", "i32_atomic_rmw16_xchg_u",
	"i64_atomic_rmw8_xchg_u", "i64_atomic_rmw16_xchg_u", "i64_atomic_rmw32_xchg_u",
	"i32_atomic_rmw_cmpxchg", "i64_atomic_rmw_cmpxchg", "i32_atomic_rmw8_cmpxchg_u",
	"i32_atomic_rmw16_cmpxchg_u", "i64_atomic_rmw8_cmpxchg_u", "i64_atomic_rmw16_cmpxchg_u",
	"i64_atomic_rmw32_cmpxchg_u",
}
