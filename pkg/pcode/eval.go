package pcode

import (
	"math"

	"github.com/oisee/pcodesimplify/pkg/value"
)

// evalFunc folds a single op-code given its output size, each input's
// byte size, and each input's raw bit pattern (already masked to its own
// size). It returns (foldedValue, ok); ok is false for op-codes this
// evaluator does not fold (LOAD/STORE/branches/calls/CALLOTHER/CPOOLREF
// and anything else with a side effect or an external dependency).
//
// This is a "flat array of function pointers indexed by op-code enum"
// dispatch table, in place of a virtual evaluateUnary/evaluateBinary
// method pair.
type evalFunc func(outSize int, inSizes []int, in []uint64) (uint64, bool)

var evalTable = buildEvalTable()

// Evaluate folds op over already-masked constant inputs. Used by
// collapse_constants and by the semantic-equivalence property-test
// helper in pkg/pcode/semcheck.
func Evaluate(op OpCode, outSize int, inSizes []int, in []uint64) (uint64, bool) {
	if int(op) >= len(evalTable) || evalTable[op] == nil {
		return 0, false
	}
	return evalTable[op](outSize, inSizes, in)
}

func buildEvalTable() []evalFunc {
	t := make([]evalFunc, CPUI_MAX+1)

	binArith := func(f func(a, b uint64) uint64) evalFunc {
		return func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
			if len(in) != 2 {
				return 0, false
			}
			return f(in[0], in[1]) & value.CalcMask(outSize), true
		}
	}
	binBool := func(f func(a, b uint64) bool) evalFunc {
		return func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
			if len(in) != 2 {
				return 0, false
			}
			if f(in[0], in[1]) {
				return 1, true
			}
			return 0, true
		}
	}

	t[COPY] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		return in[0] & value.CalcMask(outSize), true
	}
	t[INT_ADD] = binArith(func(a, b uint64) uint64 { return a + b })
	t[INT_SUB] = binArith(func(a, b uint64) uint64 { return a - b })
	t[INT_MULT] = binArith(func(a, b uint64) uint64 { return a * b })
	t[INT_AND] = binArith(func(a, b uint64) uint64 { return a & b })
	t[INT_OR] = binArith(func(a, b uint64) uint64 { return a | b })
	t[INT_XOR] = binArith(func(a, b uint64) uint64 { return a ^ b })
	t[BOOL_AND] = binArith(func(a, b uint64) uint64 { return a & b })
	t[BOOL_OR] = binArith(func(a, b uint64) uint64 { return a | b })
	t[BOOL_XOR] = binArith(func(a, b uint64) uint64 { return a ^ b })

	t[INT_DIV] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 || in[1] == 0 {
			return 0, false
		}
		return (in[0] / in[1]) & value.CalcMask(outSize), true
	}
	t[INT_REM] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 || in[1] == 0 {
			return 0, false
		}
		return (in[0] % in[1]) & value.CalcMask(outSize), true
	}
	t[INT_SDIV] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 || in[1] == 0 {
			return 0, false
		}
		a := int64(value.SignExtend(in[0], uint(8*inSizes[0]-1)))
		b := int64(value.SignExtend(in[1], uint(8*inSizes[1]-1)))
		return uint64(a/b) & value.CalcMask(outSize), true
	}
	t[INT_SREM] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 || in[1] == 0 {
			return 0, false
		}
		a := int64(value.SignExtend(in[0], uint(8*inSizes[0]-1)))
		b := int64(value.SignExtend(in[1], uint(8*inSizes[1]-1)))
		return uint64(a%b) & value.CalcMask(outSize), true
	}

	t[INT_NEGATE] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		return (^in[0]) & value.CalcMask(outSize), true
	}
	t[INT_2COMP] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		return (-in[0]) & value.CalcMask(outSize), true
	}
	t[BOOL_NEGATE] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		if in[0] == 0 {
			return 1, true
		}
		return 0, true
	}

	t[INT_LEFT] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		return value.ShiftLeft(in[0], in[1], outSize), true
	}
	t[INT_RIGHT] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		return value.ShiftRight(in[0], in[1], inSizes[0]), true
	}
	t[INT_SRIGHT] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		return value.ShiftRightArith(in[0], in[1], inSizes[0]), true
	}

	t[INT_EQUAL] = binBool(func(a, b uint64) bool { return a == b })
	t[INT_NOTEQUAL] = binBool(func(a, b uint64) bool { return a != b })
	t[INT_LESS] = binBool(func(a, b uint64) bool { return a < b })
	t[INT_LESSEQUAL] = binBool(func(a, b uint64) bool { return a <= b })
	t[INT_SLESS] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		a := int64(value.SignExtend(in[0], uint(8*inSizes[0]-1)))
		b := int64(value.SignExtend(in[1], uint(8*inSizes[0]-1)))
		if a < b {
			return 1, true
		}
		return 0, true
	}
	t[INT_SLESSEQUAL] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		a := int64(value.SignExtend(in[0], uint(8*inSizes[0]-1)))
		b := int64(value.SignExtend(in[1], uint(8*inSizes[0]-1)))
		if a <= b {
			return 1, true
		}
		return 0, true
	}

	t[INT_CARRY] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		mask := value.CalcMask(inSizes[0])
		if (in[0]+in[1])&^mask != (in[0]&^mask) || (in[0]+in[1])&mask < in[0]&mask {
			return 1, true
		}
		return 0, true
	}
	t[INT_SCARRY] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		bit := uint(8*inSizes[0] - 1)
		a := value.SignExtend(in[0], bit)
		b := value.SignExtend(in[1], bit)
		r := a + b
		signA, signB, signR := a>>63, b>>63, r>>63
		if signA == signB && signR != signA {
			return 1, true
		}
		return 0, true
	}
	t[INT_SBORROW] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		bit := uint(8*inSizes[0] - 1)
		a := value.SignExtend(in[0], bit)
		b := value.SignExtend(in[1], bit)
		r := a - b
		signA, signB, signR := a>>63, b>>63, r>>63
		if signA != signB && signR != signA {
			return 1, true
		}
		return 0, true
	}

	t[INT_ZEXT] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		return in[0] & value.CalcMask(outSize), true
	}
	t[INT_SEXT] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		return value.SignExtend(in[0], uint(8*inSizes[0]-1)) & value.CalcMask(outSize), true
	}

	t[SUBPIECE] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		shift := 8 * in[1]
		return (in[0] >> shift) & value.CalcMask(outSize), true
	}
	t[PIECE] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		loSize := inSizes[1]
		hi := in[0] << uint(8*loSize)
		return (hi | in[1]) & value.CalcMask(outSize), true
	}

	t[POPCOUNT] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		return uint64(value.PopCount(in[0], inSizes[0])), true
	}
	t[LZCOUNT] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		return uint64(value.CountLeadingZeros(in[0], inSizes[0])), true
	}

	t[FLOAT_NAN] = func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		f := bitsToFloat(in[0], inSizes[0])
		if math.IsNaN(f) {
			return 1, true
		}
		return 0, true
	}
	t[FLOAT_ADD] = floatBin(func(a, b float64) float64 { return a + b })
	t[FLOAT_SUB] = floatBin(func(a, b float64) float64 { return a - b })
	t[FLOAT_MULT] = floatBin(func(a, b float64) float64 { return a * b })
	t[FLOAT_DIV] = floatBin(func(a, b float64) float64 { return a / b })
	t[FLOAT_NEG] = floatUn(func(a float64) float64 { return -a })
	t[FLOAT_ABS] = floatUn(math.Abs)
	t[FLOAT_SQRT] = floatUn(math.Sqrt)

	return t
}

func bitsToFloat(bits uint64, size int) float64 {
	if size == 4 {
		return float64(math.Float32frombits(uint32(bits)))
	}
	return math.Float64frombits(bits)
}

func floatToBits(f float64, size int) uint64 {
	if size == 4 {
		return uint64(math.Float32bits(float32(f)))
	}
	return math.Float64bits(f)
}

func floatBin(f func(a, b float64) float64) evalFunc {
	return func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 2 {
			return 0, false
		}
		a := bitsToFloat(in[0], inSizes[0])
		b := bitsToFloat(in[1], inSizes[1])
		return floatToBits(f(a, b), outSize), true
	}
}

func floatUn(f func(a float64) float64) evalFunc {
	return func(outSize int, inSizes []int, in []uint64) (uint64, bool) {
		if len(in) != 1 {
			return 0, false
		}
		a := bitsToFloat(in[0], inSizes[0])
		return floatToBits(f(a), outSize), true
	}
}
