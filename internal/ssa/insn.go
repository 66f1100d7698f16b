package ssa

import (
	"fmt"

	"jit/internal/opcode"
	"jit/internal/typesys"
)

// This file is the ergonomic layer spec.md §6 describes sitting on top of
// Emit/EmitValue/EmitBranch: one InsnXxx method per source-level
// operation, each picking the width/precision-specific opcode for its
// operands the way the teacher's addi/addf pair picks an int or float
// bytecode from the parsed operand types, generalized from two cases to
// the full opcode table.

func kindOf(v *Value) typesys.Kind { return typesys.Normalize(v.Type).Kind() }

// --- arithmetic ---

type binOpSet struct {
	i, u, l, ul opcode.Opcode
	f32, f64, nf opcode.Opcode
}

func (f *Function) emitBinArith(name string, ops binOpSet, src1, src2 *Value) (*Value, error) {
	k := kindOf(src1)
	var op opcode.Opcode
	var resultType *typesys.Type
	switch k {
	case typesys.Int:
		op, resultType = ops.i, typesys.IntType
	case typesys.UInt:
		op, resultType = ops.u, typesys.UIntType
	case typesys.Long:
		op, resultType = ops.l, typesys.LongType
	case typesys.ULong:
		op, resultType = ops.ul, typesys.ULongType
	case typesys.Float32:
		op, resultType = ops.f32, typesys.Float32Type
	case typesys.Float64:
		op, resultType = ops.f64, typesys.Float64Type
	case typesys.NFloat:
		op, resultType = ops.nf, typesys.NFloatType
	default:
		return nil, fmt.Errorf("%w: %s does not accept operand kind %v", ErrInvalidArgument, name, k)
	}
	return f.EmitValue(op, resultType, src1, src2, 0)
}

// InsnAdd implements spec.md §4.D's insn_add: a checked or unchecked
// integer/float add, chosen by the operands' normalized type.
func (f *Function) InsnAdd(src1, src2 *Value) (*Value, error) {
	return f.emitBinArith("add", binOpSet{opcode.AddI, opcode.AddU, opcode.AddL, opcode.AddL, opcode.AddF32, opcode.AddF64, opcode.AddNF}, src1, src2)
}

// InsnAddOvf is the overflow-checking variant of InsnAdd; folding never
// applies to it (tryFold rejects every *Ovf opcode) so it always emits.
func (f *Function) InsnAddOvf(src1, src2 *Value) (*Value, error) {
	return f.emitBinArith("add.ovf", binOpSet{opcode.AddIOvf, opcode.AddUOvf, opcode.AddLOvf, opcode.AddLOvf, opcode.AddF32, opcode.AddF64, opcode.AddNF}, src1, src2)
}

func (f *Function) InsnSub(src1, src2 *Value) (*Value, error) {
	return f.emitBinArith("sub", binOpSet{opcode.SubI, opcode.SubU, opcode.SubL, opcode.SubL, opcode.SubF32, opcode.SubF64, opcode.SubNF}, src1, src2)
}

func (f *Function) InsnSubOvf(src1, src2 *Value) (*Value, error) {
	return f.emitBinArith("sub.ovf", binOpSet{opcode.SubIOvf, opcode.SubUOvf, opcode.SubLOvf, opcode.SubLOvf, opcode.SubF32, opcode.SubF64, opcode.SubNF}, src1, src2)
}

func (f *Function) InsnMul(src1, src2 *Value) (*Value, error) {
	return f.emitBinArith("mul", binOpSet{opcode.MulI, opcode.MulU, opcode.MulL, opcode.MulL, opcode.MulF32, opcode.MulF64, opcode.MulNF}, src1, src2)
}

func (f *Function) InsnMulOvf(src1, src2 *Value) (*Value, error) {
	return f.emitBinArith("mul.ovf", binOpSet{opcode.MulIOvf, opcode.MulUOvf, opcode.MulLOvf, opcode.MulLOvf, opcode.MulF32, opcode.MulF64, opcode.MulNF}, src1, src2)
}

func (f *Function) InsnDiv(src1, src2 *Value) (*Value, error) {
	k := kindOf(src1)
	if k == typesys.UInt || k == typesys.ULong {
		return f.emitBinArith("div", binOpSet{opcode.DivU, opcode.DivU, opcode.DivUL, opcode.DivUL, opcode.DivF32, opcode.DivF64, opcode.DivNF}, src1, src2)
	}
	return f.emitBinArith("div", binOpSet{opcode.DivI, opcode.DivU, opcode.DivL, opcode.DivUL, opcode.DivF32, opcode.DivF64, opcode.DivNF}, src1, src2)
}

func (f *Function) InsnRem(src1, src2 *Value) (*Value, error) {
	k := kindOf(src1)
	if k == typesys.UInt || k == typesys.ULong {
		return f.emitBinArith("rem", binOpSet{opcode.RemU, opcode.RemU, opcode.RemUL, opcode.RemUL, opcode.RemF32, opcode.RemF64, opcode.RemNF}, src1, src2)
	}
	return f.emitBinArith("rem", binOpSet{opcode.RemI, opcode.RemU, opcode.RemL, opcode.RemUL, opcode.RemF32, opcode.RemF64, opcode.RemNF}, src1, src2)
}

// InsnNeg negates an integer or floating-point value.
func (f *Function) InsnNeg(src1 *Value) (*Value, error) {
	k := kindOf(src1)
	var op opcode.Opcode
	var rt *typesys.Type
	switch k {
	case typesys.Int, typesys.UInt:
		op, rt = opcode.NegI, typesys.IntType
	case typesys.Long, typesys.ULong:
		op, rt = opcode.NegL, typesys.LongType
	case typesys.Float32:
		op, rt = opcode.NegF32, typesys.Float32Type
	case typesys.Float64:
		op, rt = opcode.NegF64, typesys.Float64Type
	case typesys.NFloat:
		op, rt = opcode.NegNF, typesys.NFloatType
	default:
		return nil, fmt.Errorf("%w: neg does not accept operand kind %v", ErrInvalidArgument, k)
	}
	return f.EmitValue(op, rt, src1, nil, 0)
}

// --- bitwise / shift (integer only) ---

func (f *Function) emitIntBitwise(name string, iOp, lOp opcode.Opcode, src1, src2 *Value) (*Value, error) {
	k := kindOf(src1)
	switch k {
	case typesys.Int, typesys.UInt:
		return f.EmitValue(iOp, src1.Type, src1, src2, 0)
	case typesys.Long, typesys.ULong:
		return f.EmitValue(lOp, src1.Type, src1, src2, 0)
	default:
		return nil, fmt.Errorf("%w: %s requires an integer operand", ErrInvalidArgument, name)
	}
}

func (f *Function) InsnAnd(src1, src2 *Value) (*Value, error) { return f.emitIntBitwise("and", opcode.AndI, opcode.AndL, src1, src2) }
func (f *Function) InsnOr(src1, src2 *Value) (*Value, error)  { return f.emitIntBitwise("or", opcode.OrI, opcode.OrL, src1, src2) }
func (f *Function) InsnXor(src1, src2 *Value) (*Value, error) { return f.emitIntBitwise("xor", opcode.XorI, opcode.XorL, src1, src2) }
func (f *Function) InsnShl(src1, count *Value) (*Value, error) { return f.emitIntBitwise("shl", opcode.ShlI, opcode.ShlL, src1, count) }
func (f *Function) InsnShr(src1, count *Value) (*Value, error) { return f.emitIntBitwise("shr", opcode.ShrI, opcode.ShrL, src1, count) }
func (f *Function) InsnUshr(src1, count *Value) (*Value, error) { return f.emitIntBitwise("ushr", opcode.UshrI, opcode.UshrL, src1, count) }

// InsnNot implements bitwise complement.
func (f *Function) InsnNot(src1 *Value) (*Value, error) {
	switch kindOf(src1) {
	case typesys.Int, typesys.UInt:
		return f.EmitValue(opcode.NotI, src1.Type, src1, nil, 0)
	case typesys.Long, typesys.ULong:
		return f.EmitValue(opcode.NotL, src1.Type, src1, nil, 0)
	default:
		return nil, fmt.Errorf("%w: not requires an integer operand", ErrInvalidArgument)
	}
}

// --- comparisons ---

type cmpOpSet struct {
	i, u, l, ul opcode.Opcode
	f32, f64, nf opcode.Opcode
}

func (f *Function) emitCompare(name string, ops cmpOpSet, src1, src2 *Value) (*Value, error) {
	k := kindOf(src1)
	var op opcode.Opcode
	switch k {
	case typesys.Int:
		op = ops.i
	case typesys.UInt:
		op = ops.u
	case typesys.Long:
		op = ops.l
	case typesys.ULong:
		op = ops.ul
	case typesys.Float32:
		op = ops.f32
	case typesys.Float64:
		op = ops.f64
	case typesys.NFloat:
		op = ops.nf
	default:
		return nil, fmt.Errorf("%w: %s does not accept operand kind %v", ErrInvalidArgument, name, k)
	}
	return f.EmitValue(op, typesys.IntType, src1, src2, 0)
}

func (f *Function) InsnEq(a, b *Value) (*Value, error) {
	return f.emitCompare("eq", cmpOpSet{opcode.EqI, opcode.EqI, opcode.EqL, opcode.EqL, opcode.EqF32, opcode.EqF64, opcode.EqNF}, a, b)
}
func (f *Function) InsnNe(a, b *Value) (*Value, error) {
	return f.emitCompare("ne", cmpOpSet{opcode.NeI, opcode.NeI, opcode.NeL, opcode.NeL, opcode.NeF32, opcode.NeF64, opcode.NeNF}, a, b)
}
func (f *Function) InsnLt(a, b *Value) (*Value, error) {
	return f.emitCompare("lt", cmpOpSet{opcode.LtI, opcode.LtU, opcode.LtL, opcode.LtUL, opcode.LtF32, opcode.LtF64, opcode.LtNF}, a, b)
}
func (f *Function) InsnLe(a, b *Value) (*Value, error) {
	return f.emitCompare("le", cmpOpSet{opcode.LeI, opcode.LeU, opcode.LeL, opcode.LeUL, opcode.LeF32, opcode.LeF64, opcode.LeNF}, a, b)
}
func (f *Function) InsnGt(a, b *Value) (*Value, error) {
	return f.emitCompare("gt", cmpOpSet{opcode.GtI, opcode.GtU, opcode.GtL, opcode.GtUL, opcode.GtF32, opcode.GtF64, opcode.GtNF}, a, b)
}
func (f *Function) InsnGe(a, b *Value) (*Value, error) {
	return f.emitCompare("ge", cmpOpSet{opcode.GeI, opcode.GeU, opcode.GeL, opcode.GeUL, opcode.GeF32, opcode.GeF64, opcode.GeNF}, a, b)
}

// --- conversions ---

// InsnConvert converts src1 to dstType, choosing truncation, widening, or
// int/float crossing as the source and destination kinds require.
// checkOverflow requests the overflow-checking truncation opcode where one
// exists; it is ignored for conversions that have no overflow variant.
func (f *Function) InsnConvert(src1 *Value, dstType *typesys.Type, checkOverflow bool) (*Value, error) {
	from := kindOf(src1)
	to := typesys.Normalize(dstType).Kind()
	if from == to {
		return src1, nil
	}

	if !isFloatKind(from) && !isFloatKind(to) {
		op, ok := intTruncOpcode(to, checkOverflow)
		if !ok {
			// widening an integer is a no-op in this type system: every
			// integer value already occupies its full Go-backed width.
			return f.EmitValue(opcode.Copy, dstType, src1, nil, 0)
		}
		return f.EmitValue(op, dstType, src1, nil, 0)
	}
	if isFloatKind(from) && !isFloatKind(to) {
		var op opcode.Opcode
		switch from {
		case typesys.Float32:
			op = opcode.ConvFloat32ToInt
		case typesys.Float64:
			op = opcode.ConvFloat64ToInt
		default:
			op = opcode.ConvNFloatToInt
		}
		return f.EmitValue(op, typesys.IntType, src1, nil, 0)
	}
	if !isFloatKind(from) && isFloatKind(to) {
		op, ok := intToFloatOpcode(from, to)
		if !ok {
			return nil, fmt.Errorf("%w: no int-to-float conversion for %v -> %v", ErrInvalidArgument, from, to)
		}
		return f.EmitValue(op, dstType, src1, nil, 0)
	}
	op, ok := floatToFloatOpcode(from, to)
	if !ok {
		return nil, fmt.Errorf("%w: no float conversion for %v -> %v", ErrInvalidArgument, from, to)
	}
	return f.EmitValue(op, dstType, src1, nil, 0)
}

func intTruncOpcode(to typesys.Kind, checkOverflow bool) (opcode.Opcode, bool) {
	switch to {
	case typesys.SByte:
		if checkOverflow {
			return opcode.TruncSByteOvf, true
		}
		return opcode.TruncSByte, true
	case typesys.UByte:
		if checkOverflow {
			return opcode.TruncUByteOvf, true
		}
		return opcode.TruncUByte, true
	case typesys.Short:
		if checkOverflow {
			return opcode.TruncShortOvf, true
		}
		return opcode.TruncShort, true
	case typesys.UShort:
		if checkOverflow {
			return opcode.TruncUShortOvf, true
		}
		return opcode.TruncUShort, true
	case typesys.Int:
		if checkOverflow {
			return opcode.TruncIntOvf, true
		}
		return opcode.TruncInt, true
	case typesys.UInt:
		if checkOverflow {
			return opcode.TruncUIntOvf, true
		}
		return opcode.TruncUInt, true
	default:
		return 0, false
	}
}

func intToFloatOpcode(from, to typesys.Kind) (opcode.Opcode, bool) {
	signed := from == typesys.Int
	long := from == typesys.Long || from == typesys.ULong
	switch {
	case signed && to == typesys.Float32:
		return opcode.ConvIntToFloat32, true
	case signed && to == typesys.Float64:
		return opcode.ConvIntToFloat64, true
	case signed && to == typesys.NFloat:
		return opcode.ConvIntToNFloat, true
	case from == typesys.UInt && to == typesys.Float32:
		return opcode.ConvUIntToFloat32, true
	case from == typesys.UInt && to == typesys.Float64:
		return opcode.ConvUIntToFloat64, true
	case from == typesys.UInt && to == typesys.NFloat:
		return opcode.ConvUIntToNFloat, true
	case long && from == typesys.Long && to == typesys.Float32:
		return opcode.ConvLongToFloat32, true
	case long && from == typesys.Long && to == typesys.Float64:
		return opcode.ConvLongToFloat64, true
	case long && from == typesys.Long && to == typesys.NFloat:
		return opcode.ConvLongToNFloat, true
	case long && from == typesys.ULong && to == typesys.Float32:
		return opcode.ConvULongToFloat32, true
	case long && from == typesys.ULong && to == typesys.Float64:
		return opcode.ConvULongToFloat64, true
	case long && from == typesys.ULong && to == typesys.NFloat:
		return opcode.ConvULongToNFloat, true
	default:
		return 0, false
	}
}

func floatToFloatOpcode(from, to typesys.Kind) (opcode.Opcode, bool) {
	switch {
	case from == typesys.Float32 && to == typesys.Float64:
		return opcode.ConvFloat32ToFloat64, true
	case from == typesys.Float32 && to == typesys.NFloat:
		return opcode.ConvFloat32ToNFloat, true
	case from == typesys.Float64 && to == typesys.Float32:
		return opcode.ConvFloat64ToFloat32, true
	case from == typesys.Float64 && to == typesys.NFloat:
		return opcode.ConvFloat64ToNFloat, true
	case from == typesys.NFloat && to == typesys.Float32:
		return opcode.ConvNFloatToFloat32, true
	case from == typesys.NFloat && to == typesys.Float64:
		return opcode.ConvNFloatToFloat64, true
	default:
		return 0, false
	}
}

// --- math library ---

type mathOpSet struct {
	f32, f64, nf opcode.Opcode
}

func (f *Function) emitMathUnary(name string, ops mathOpSet, src1 *Value) (*Value, error) {
	k := kindOf(src1)
	var op opcode.Opcode
	switch k {
	case typesys.Float32:
		op = ops.f32
	case typesys.Float64:
		op = ops.f64
	case typesys.NFloat:
		op = ops.nf
	default:
		return nil, fmt.Errorf("%w: %s requires a floating-point operand", ErrInvalidArgument, name)
	}
	return f.EmitValue(op, src1.Type, src1, nil, 0)
}

func (f *Function) InsnSqrt(v *Value) (*Value, error) { return f.emitMathUnary("sqrt", mathOpSet{opcode.SqrtF32, opcode.SqrtF64, opcode.SqrtNF}, v) }
func (f *Function) InsnSin(v *Value) (*Value, error)  { return f.emitMathUnary("sin", mathOpSet{opcode.SinF32, opcode.SinF64, opcode.SinNF}, v) }
func (f *Function) InsnCos(v *Value) (*Value, error)  { return f.emitMathUnary("cos", mathOpSet{opcode.CosF32, opcode.CosF64, opcode.CosNF}, v) }
func (f *Function) InsnTan(v *Value) (*Value, error)  { return f.emitMathUnary("tan", mathOpSet{opcode.TanF32, opcode.TanF64, opcode.TanNF}, v) }
func (f *Function) InsnAcos(v *Value) (*Value, error) { return f.emitMathUnary("acos", mathOpSet{opcode.AcosF32, opcode.AcosF64, opcode.AcosNF}, v) }
func (f *Function) InsnAsin(v *Value) (*Value, error) { return f.emitMathUnary("asin", mathOpSet{opcode.AsinF32, opcode.AsinF64, opcode.AsinNF}, v) }
func (f *Function) InsnCeil(v *Value) (*Value, error) { return f.emitMathUnary("ceil", mathOpSet{opcode.CeilF32, opcode.CeilF64, opcode.CeilNF}, v) }
func (f *Function) InsnExp(v *Value) (*Value, error)  { return f.emitMathUnary("exp", mathOpSet{opcode.ExpF32, opcode.ExpF64, opcode.ExpNF}, v) }
func (f *Function) InsnLog(v *Value) (*Value, error)  { return f.emitMathUnary("log", mathOpSet{opcode.LogF32, opcode.LogF64, opcode.LogNF}, v) }
func (f *Function) InsnRint(v *Value) (*Value, error) { return f.emitMathUnary("rint", mathOpSet{opcode.RintF32, opcode.RintF64, opcode.RintNF}, v) }
func (f *Function) InsnRound(v *Value) (*Value, error) { return f.emitMathUnary("round", mathOpSet{opcode.RoundF32, opcode.RoundF64, opcode.RoundNF}, v) }

func (f *Function) emitMathBinary(name string, ops mathOpSet, a, b *Value) (*Value, error) {
	k := kindOf(a)
	var op opcode.Opcode
	switch k {
	case typesys.Float32:
		op = ops.f32
	case typesys.Float64:
		op = ops.f64
	case typesys.NFloat:
		op = ops.nf
	default:
		return nil, fmt.Errorf("%w: %s requires a floating-point operand", ErrInvalidArgument, name)
	}
	return f.EmitValue(op, a.Type, a, b, 0)
}

func (f *Function) InsnAtan2(a, b *Value) (*Value, error) { return f.emitMathBinary("atan2", mathOpSet{opcode.Atan2F32, opcode.Atan2F64, opcode.Atan2NF}, a, b) }
func (f *Function) InsnPow(a, b *Value) (*Value, error)   { return f.emitMathBinary("pow", mathOpSet{opcode.PowF32, opcode.PowF64, opcode.PowNF}, a, b) }

// InsnAbs implements the integer/float absolute-value family.
func (f *Function) InsnAbs(v *Value) (*Value, error) {
	switch kindOf(v) {
	case typesys.Int, typesys.UInt:
		return f.EmitValue(opcode.AbsI, typesys.IntType, v, nil, 0)
	case typesys.Long, typesys.ULong:
		return f.EmitValue(opcode.AbsL, typesys.LongType, v, nil, 0)
	case typesys.Float32:
		return f.EmitValue(opcode.AbsF32, typesys.Float32Type, v, nil, 0)
	case typesys.Float64:
		return f.EmitValue(opcode.AbsF64, typesys.Float64Type, v, nil, 0)
	case typesys.NFloat:
		return f.EmitValue(opcode.AbsNF, typesys.NFloatType, v, nil, 0)
	default:
		return nil, fmt.Errorf("%w: abs requires a numeric operand", ErrInvalidArgument)
	}
}

// InsnMin and InsnMax implement the two-operand numeric min/max family.
func (f *Function) InsnMin(a, b *Value) (*Value, error) { return f.emitMinMax("min", a, b) }
func (f *Function) InsnMax(a, b *Value) (*Value, error) { return f.emitMinMax("max", a, b) }

func (f *Function) emitMinMax(which string, a, b *Value) (*Value, error) {
	var set struct{ i, u, l, ul, f32, f64, nf opcode.Opcode }
	if which == "min" {
		set = struct{ i, u, l, ul, f32, f64, nf opcode.Opcode }{opcode.MinI, opcode.MinU, opcode.MinL, opcode.MinUL, opcode.MinF32, opcode.MinF64, opcode.MinNF}
	} else {
		set = struct{ i, u, l, ul, f32, f64, nf opcode.Opcode }{opcode.MaxI, opcode.MaxU, opcode.MaxL, opcode.MaxUL, opcode.MaxF32, opcode.MaxF64, opcode.MaxNF}
	}
	k := kindOf(a)
	var op opcode.Opcode
	switch k {
	case typesys.Int:
		op = set.i
	case typesys.UInt:
		op = set.u
	case typesys.Long:
		op = set.l
	case typesys.ULong:
		op = set.ul
	case typesys.Float32:
		op = set.f32
	case typesys.Float64:
		op = set.f64
	case typesys.NFloat:
		op = set.nf
	default:
		return nil, fmt.Errorf("%w: %s requires a numeric operand", ErrInvalidArgument, which)
	}
	return f.EmitValue(op, a.Type, a, b, 0)
}

// --- branches ---

// InsnBranch implements an unconditional jump.
func (f *Function) InsnBranch(lbl *Label) error {
	_, err := f.EmitBranch(opcode.Branch, nil, nil, lbl, 0)
	return err
}

// InsnBranchIfTrue/InsnBranchIfFalse branch on a boolean (Int) value.
func (f *Function) InsnBranchIfTrue(v *Value, lbl *Label) error {
	_, err := f.EmitBranch(opcode.BranchIfTrue, v, nil, lbl, 0)
	return err
}
func (f *Function) InsnBranchIfFalse(v *Value, lbl *Label) error {
	_, err := f.EmitBranch(opcode.BranchIfFalse, v, nil, lbl, 0)
	return err
}

// InsnBranchIfEq/Ne/Lt/Le/Gt/Ge emit a fused compare-and-branch without
// materializing an intermediate boolean value, per spec.md §4.D's
// compare-and-branch entries.
func (f *Function) InsnBranchIfEq(a, b *Value, lbl *Label) error { return f.branchCmp(opcode.BranchIfEq, a, b, lbl) }
func (f *Function) InsnBranchIfNe(a, b *Value, lbl *Label) error { return f.branchCmp(opcode.BranchIfNe, a, b, lbl) }
func (f *Function) InsnBranchIfLt(a, b *Value, lbl *Label) error { return f.branchCmp(opcode.BranchIfLt, a, b, lbl) }
func (f *Function) InsnBranchIfLe(a, b *Value, lbl *Label) error { return f.branchCmp(opcode.BranchIfLe, a, b, lbl) }
func (f *Function) InsnBranchIfGt(a, b *Value, lbl *Label) error { return f.branchCmp(opcode.BranchIfGt, a, b, lbl) }
func (f *Function) InsnBranchIfGe(a, b *Value, lbl *Label) error { return f.branchCmp(opcode.BranchIfGe, a, b, lbl) }

func (f *Function) branchCmp(op opcode.Opcode, a, b *Value, lbl *Label) error {
	_, err := f.EmitBranch(op, a, b, lbl, 0)
	return err
}

// --- calls ---

// InsnCallDirect calls target with args, returning the result value (nil
// for a void-returning target).
func (f *Function) InsnCallDirect(target *Function, args []*Value, flags opcode.CallFlags) (*Value, error) {
	retType := target.Signature.ReturnType()
	v, _, err := f.emitCall(opcode.CallDirect, nil, target, args, retType, flags)
	return v, err
}

// InsnCallIndirect calls through a computed function pointer addr, whose
// type supplies the signature (and thus the return type) for the call.
func (f *Function) InsnCallIndirect(addr *Value, sig *typesys.Type, args []*Value, flags opcode.CallFlags) (*Value, error) {
	v, _, err := f.emitCall(opcode.CallIndirect, addr, nil, args, sig.ReturnType(), flags)
	return v, err
}

// InsnCallNative calls a raw native function pointer not associated with
// any Function (e.g. a libc routine or a host callback registered with
// the context), per spec.md §4.D's call_native entry.
func (f *Function) InsnCallNative(addr *Value, sig *typesys.Type, args []*Value) (*Value, error) {
	v, _, err := f.emitCall(opcode.CallNative, addr, nil, args, sig.ReturnType(), opcode.CallNoThrow)
	return v, err
}

// InsnCallIntrinsic calls a back-end-provided helper routine identified by
// name (resolved by the compiler, not the IR) such as a software
// divide-by-zero check or a slow-path math function.
func (f *Function) InsnCallIntrinsic(name string, args []*Value, retType *typesys.Type) (*Value, error) {
	v, in, err := f.emitCall(opcode.CallIntrinsic, nil, nil, args, retType, opcode.CallNoThrow)
	if err == nil {
		in.Data = int64(len(f.intrinsicNames))
		f.intrinsicNames = append(f.intrinsicNames, name)
	}
	return v, err
}

// --- returns ---

// InsnReturn returns v, picking the opcode that matches its normalized
// type; InsnReturnVoid returns from a void-signatured function.
func (f *Function) InsnReturn(v *Value) error {
	var op opcode.Opcode
	switch kindOf(v) {
	case typesys.Int, typesys.UInt:
		op = opcode.ReturnInt
	case typesys.Long, typesys.ULong:
		op = opcode.ReturnLong
	case typesys.Float32:
		op = opcode.ReturnFloat32
	case typesys.Float64:
		op = opcode.ReturnFloat64
	case typesys.NFloat:
		op = opcode.ReturnNFloat
	default:
		return fmt.Errorf("%w: unsupported return kind %v", ErrInvalidArgument, kindOf(v))
	}
	_, err := f.Emit(op, nil, v, nil, 0)
	return err
}

func (f *Function) InsnReturnVoid() error {
	_, err := f.Emit(opcode.ReturnVoid, nil, nil, nil, 0)
	return err
}

// --- memory ---

// InsnLoadRelative loads a value of type t from addr+offset.
func (f *Function) InsnLoadRelative(addr *Value, offset int64, t *typesys.Type) (*Value, error) {
	return f.EmitValue(opcode.LoadRelative, t, addr, nil, offset)
}

// InsnStoreRelative stores value into addr+offset; the "dest" slot (addr)
// is read as well as implicitly written-through, per spec.md §3's
// "otherness" note, so it goes through Emit rather than EmitValue.
func (f *Function) InsnStoreRelative(addr *Value, offset int64, value *Value) error {
	_, err := f.Emit(opcode.StoreRelative, addr, value, nil, offset)
	return err
}

// InsnLoadElem/InsnStoreElem index into an array of element type t.
func (f *Function) InsnLoadElem(addr, index *Value, t *typesys.Type) (*Value, error) {
	return f.EmitValue(opcode.LoadElem, t, addr, index, 0)
}
func (f *Function) InsnStoreElem(addr, index, value *Value) error {
	_, err := f.Emit(opcode.StoreElem, addr, index, value, 0)
	return err
}

// InsnMemcpy/InsnMemmove/InsnMemset wrap the block-memory primitives;
// size is the byte count.
func (f *Function) InsnMemcpy(dst, src *Value, size int64) error {
	_, err := f.Emit(opcode.Memcpy, nil, dst, src, size)
	return err
}
func (f *Function) InsnMemmove(dst, src *Value, size int64) error {
	_, err := f.Emit(opcode.Memmove, nil, dst, src, size)
	return err
}
func (f *Function) InsnMemset(dst, value *Value, size int64) error {
	_, err := f.Emit(opcode.Memset, nil, dst, value, size)
	return err
}

// InsnAlloca reserves size bytes on the stack, returning a pointer to
// them; spec.md §4.D notes the allocation is only valid until the function
// returns.
func (f *Function) InsnAlloca(size *Value) (*Value, error) {
	return f.EmitValue(opcode.Alloca, typesys.VoidPtrType, size, nil, 0)
}

// --- debug ---

// InsnMarkOffset records a source-line/bytecode-offset marker at the
// current position for the debug-offset map (spec.md §4.I).
func (f *Function) InsnMarkOffset(offset int64) error {
	_, err := f.Emit(opcode.MarkOffset, nil, nil, nil, offset)
	return err
}

// InsnMarkBreakpoint marks the current position as a stable breakpoint
// location regardless of optimization.
func (f *Function) InsnMarkBreakpoint(id int64) error {
	_, err := f.Emit(opcode.MarkBreakpoint, nil, nil, nil, id)
	return err
}
