package ssa

import (
	"math"
	"strings"

	"jit/internal/opcode"
	"jit/internal/typesys"
)

// tryFold implements spec.md §8's constant-folding requirement: when every
// operand of a value-producing opcode is a Constant, compute the result at
// build time and hand back a (possibly hash-consed) constant Value instead
// of appending an instruction. It returns nil whenever folding does not
// apply — not a constant opcode, an operand isn't a Constant, or the
// opcode is one of the overflow-checking variants, which must keep their
// runtime overflow-detection semantics rather than silently wrapping.
func tryFold(f *Function, op opcode.Opcode, resultType *typesys.Type, src1, src2 *Value, data int64) *Value {
	desc := opcode.Describe(op)
	if strings.Contains(desc.Name, "ovf") {
		return nil
	}
	if src1 != nil && !src1.IsConstant() {
		return nil
	}
	if src2 != nil && !src2.IsConstant() {
		return nil
	}

	kind := typesys.Normalize(resultType).Kind()

	switch desc.Semantic {
	case opcode.OpAdd, opcode.OpSub, opcode.OpMul, opcode.OpDiv, opcode.OpRem,
		opcode.OpAnd, opcode.OpOr, opcode.OpXor, opcode.OpShl, opcode.OpShr, opcode.OpUshr:
		return foldBinary(f, desc.Semantic, kind, src1, src2)
	case opcode.OpNeg, opcode.OpNot:
		return foldUnary(f, desc.Semantic, kind, src1)
	case opcode.OpEq, opcode.OpNe, opcode.OpLt, opcode.OpLe, opcode.OpGt, opcode.OpGe:
		return foldCompare(f, desc.Semantic, typesys.Normalize(src1.Type).Kind(), src1, src2)
	default:
		return nil
	}
}

func isFloatKind(k typesys.Kind) bool {
	return k == typesys.Float32 || k == typesys.Float64 || k == typesys.NFloat
}

func isUnsignedKind(k typesys.Kind) bool {
	return k == typesys.UInt || k == typesys.ULong || k == typesys.UByte || k == typesys.UShort
}

func asFloat(v *Value) float64 {
	switch typesys.Normalize(v.Type).Kind() {
	case typesys.Float32:
		return float64(math.Float32frombits(uint32(v.ConstBits)))
	default:
		return math.Float64frombits(v.ConstBits)
	}
}

func asInt(v *Value) int64 {
	switch typesys.Normalize(v.Type).Kind() {
	case typesys.Long, typesys.ULong:
		return int64(v.ConstBits)
	default:
		return int64(int32(uint32(v.ConstBits)))
	}
}

func asUint(v *Value) uint64 {
	switch typesys.Normalize(v.Type).Kind() {
	case typesys.Long, typesys.ULong:
		return v.ConstBits
	default:
		return uint64(uint32(v.ConstBits))
	}
}

func foldBinary(f *Function, sem opcode.SemanticOp, kind typesys.Kind, src1, src2 *Value) *Value {
	if isFloatKind(kind) {
		a, b := asFloat(src1), asFloat(src2)
		var r float64
		switch sem {
		case opcode.OpAdd:
			r = a + b
		case opcode.OpSub:
			r = a - b
		case opcode.OpMul:
			r = a * b
		case opcode.OpDiv:
			if b == 0 {
				return nil
			}
			r = a / b
		case opcode.OpRem:
			if b == 0 {
				return nil
			}
			r = math.Mod(a, b)
		default:
			return nil
		}
		return makeFloatConst(f, kind, r)
	}

	if isUnsignedKind(kind) {
		a, b := asUint(src1), asUint(src2)
		var r uint64
		switch sem {
		case opcode.OpAdd:
			r = a + b
		case opcode.OpSub:
			r = a - b
		case opcode.OpMul:
			r = a * b
		case opcode.OpDiv:
			if b == 0 {
				return nil
			}
			r = a / b
		case opcode.OpRem:
			if b == 0 {
				return nil
			}
			r = a % b
		case opcode.OpAnd:
			r = a & b
		case opcode.OpOr:
			r = a | b
		case opcode.OpXor:
			r = a ^ b
		case opcode.OpShl:
			r = a << uint(b&63)
		case opcode.OpShr, opcode.OpUshr:
			r = a >> uint(b&63)
		default:
			return nil
		}
		return makeUintConst(f, kind, r)
	}

	a, b := asInt(src1), asInt(src2)
	var r int64
	switch sem {
	case opcode.OpAdd:
		r = a + b
	case opcode.OpSub:
		r = a - b
	case opcode.OpMul:
		r = a * b
	case opcode.OpDiv:
		if b == 0 {
			return nil
		}
		r = a / b
	case opcode.OpRem:
		if b == 0 {
			return nil
		}
		r = a % b
	case opcode.OpAnd:
		r = a & b
	case opcode.OpOr:
		r = a | b
	case opcode.OpXor:
		r = a ^ b
	case opcode.OpShl:
		r = a << uint(b&63)
	case opcode.OpShr:
		r = a >> uint(b&63)
	case opcode.OpUshr:
		r = int64(uint64(a) >> uint(b&63))
	default:
		return nil
	}
	return makeIntConst(f, kind, r)
}

func foldUnary(f *Function, sem opcode.SemanticOp, kind typesys.Kind, src1 *Value) *Value {
	if isFloatKind(kind) {
		a := asFloat(src1)
		if sem != opcode.OpNeg {
			return nil
		}
		return makeFloatConst(f, kind, -a)
	}
	a := asInt(src1)
	switch sem {
	case opcode.OpNeg:
		return makeIntConst(f, kind, -a)
	case opcode.OpNot:
		return makeIntConst(f, kind, ^a)
	default:
		return nil
	}
}

func foldCompare(f *Function, sem opcode.SemanticOp, operandKind typesys.Kind, src1, src2 *Value) *Value {
	var cmp int
	switch {
	case isFloatKind(operandKind):
		a, b := asFloat(src1), asFloat(src2)
		if math.IsNaN(a) || math.IsNaN(b) {
			// Unordered: every relational op except Ne is false.
			if sem == opcode.OpNe {
				return f.CreateIntConstant(1)
			}
			return f.CreateIntConstant(0)
		}
		cmp = floatCompare(a, b)
	case isUnsignedKind(operandKind):
		a, b := asUint(src1), asUint(src2)
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	default:
		a, b := asInt(src1), asInt(src2)
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	}

	var result bool
	switch sem {
	case opcode.OpEq:
		result = cmp == 0
	case opcode.OpNe:
		result = cmp != 0
	case opcode.OpLt:
		result = cmp < 0
	case opcode.OpLe:
		result = cmp <= 0
	case opcode.OpGt:
		result = cmp > 0
	case opcode.OpGe:
		result = cmp >= 0
	default:
		return nil
	}
	if result {
		return f.CreateIntConstant(1)
	}
	return f.CreateIntConstant(0)
}

func floatCompare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func makeFloatConst(f *Function, kind typesys.Kind, v float64) *Value {
	switch kind {
	case typesys.Float32:
		return f.CreateFloat32Constant(float32(v))
	case typesys.NFloat:
		return f.CreateNFloatConstant(v)
	default:
		return f.CreateFloat64Constant(v)
	}
}

func makeIntConst(f *Function, kind typesys.Kind, v int64) *Value {
	if kind == typesys.Long {
		return f.CreateLongConstant(v)
	}
	return f.CreateIntConstant(int32(v))
}

func makeUintConst(f *Function, kind typesys.Kind, v uint64) *Value {
	if kind == typesys.ULong {
		return f.createConstant(typesys.ULongType, v)
	}
	return f.CreateUIntConstant(uint32(v))
}
