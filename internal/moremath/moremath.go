// Package moremath carries the float operations whose standard library
// counterparts disagree with WebAssembly numerics.
package moremath

import "math"

// math.Min doesn't comply with the Wasm spec, so we borrow from the original
// with a change that either one of NaN results in NaN even if another is -Inf.
// https://github.com/golang/go/blob/1d20a362d0ca4898d77865e314ef6f73582daef0/src/math/dim.go#L74-L91
func WasmCompatMin64(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

// math.Max doesn't comply with the Wasm spec, so we borrow from the original
// with a change that either one of NaN results in NaN even if another is Inf.
// https://github.com/golang/go/blob/1d20a362d0ca4898d77865e314ef6f73582daef0/src/math/dim.go#L42-L59
func WasmCompatMax64(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

// WasmCompatMin32 is WasmCompatMin64 on the single precision lane.
func WasmCompatMin32(x, y float32) float32 {
	if x != x || y != y {
		return float32(math.NaN())
	}
	return float32(WasmCompatMin64(float64(x), float64(y)))
}

// WasmCompatMax32 is WasmCompatMax64 on the single precision lane.
func WasmCompatMax32(x, y float32) float32 {
	if x != x || y != y {
		return float32(math.NaN())
	}
	return float32(WasmCompatMax64(float64(x), float64(y)))
}

// WasmCompatNearestF64 rounds to the nearest integer, ties to even, which
// is what f64.nearest requires. math.Round ties away from zero.
func WasmCompatNearestF64(f float64) float64 {
	return math.RoundToEven(f)
}

// WasmCompatNearestF32 is WasmCompatNearestF64 on the single precision
// lane. Rounding in double is exact here: every float32 above 2^23 is
// already an integer.
func WasmCompatNearestF32(f float32) float32 {
	return float32(math.RoundToEven(float64(f)))
}
