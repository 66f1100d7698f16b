package opcode

// set is a small helper so the init() table below reads as a sequence of
// one-line declarations instead of a sea of struct literals, the same
// compression the teacher applies when building strToInstrMap.
func set(op Opcode, name string, dest, src1, src2 OperandKind, sem SemanticOp, flags Flags) {
	table[op] = Descriptor{Name: name, Dest: dest, Src1: src1, Src2: src2, Semantic: sem, Flags: flags}
}

func init() {
	set(Nop, "nop", KindEmpty, KindEmpty, KindEmpty, OpNone, 0)

	// integer/unsigned/long arithmetic, overflow-checking variants
	arith := []struct {
		op   Opcode
		name string
		kind OperandKind
		sem  SemanticOp
	}{
		{AddI, "add.i", KindInt, OpAdd}, {AddIOvf, "add.ovf.i", KindInt, OpAdd},
		{AddU, "add.u", KindInt, OpAdd}, {AddUOvf, "add.ovf.u", KindInt, OpAdd},
		{AddL, "add.l", KindLong, OpAdd}, {AddLOvf, "add.ovf.l", KindLong, OpAdd},
		{SubI, "sub.i", KindInt, OpSub}, {SubIOvf, "sub.ovf.i", KindInt, OpSub},
		{SubU, "sub.u", KindInt, OpSub}, {SubUOvf, "sub.ovf.u", KindInt, OpSub},
		{SubL, "sub.l", KindLong, OpSub}, {SubLOvf, "sub.ovf.l", KindLong, OpSub},
		{MulI, "mul.i", KindInt, OpMul}, {MulIOvf, "mul.ovf.i", KindInt, OpMul},
		{MulU, "mul.u", KindInt, OpMul}, {MulUOvf, "mul.ovf.u", KindInt, OpMul},
		{MulL, "mul.l", KindLong, OpMul}, {MulLOvf, "mul.ovf.l", KindLong, OpMul},
		{DivI, "div.i", KindInt, OpDiv}, {DivU, "div.u", KindInt, OpDiv},
		{DivL, "div.l", KindLong, OpDiv}, {DivUL, "div.ul", KindLong, OpDiv},
		{RemI, "rem.i", KindInt, OpRem}, {RemU, "rem.u", KindInt, OpRem},
		{RemL, "rem.l", KindLong, OpRem}, {RemUL, "rem.ul", KindLong, OpRem},
		{NegI, "neg.i", KindInt, OpNeg}, {NegL, "neg.l", KindLong, OpNeg},
	}
	for _, a := range arith {
		flags := Flags(0)
		if a.sem != OpNeg {
			set(a.op, a.name, a.kind, a.kind, a.kind, a.sem, flags)
		} else {
			set(a.op, a.name, a.kind, a.kind, KindEmpty, a.sem, flags)
		}
	}

	// floating / native-float arithmetic (binary + unary negate), three precisions
	floatBinOps := []struct {
		base string
		sem  SemanticOp
		ops  [3]Opcode // f32, f64, nfloat
	}{
		{"add", OpAdd, [3]Opcode{AddF32, AddF64, AddNF}},
		{"sub", OpSub, [3]Opcode{SubF32, SubF64, SubNF}},
		{"mul", OpMul, [3]Opcode{MulF32, MulF64, MulNF}},
		{"div", OpDiv, [3]Opcode{DivF32, DivF64, DivNF}},
		{"rem", OpRem, [3]Opcode{RemF32, RemF64, RemNF}},           // IEEE remainder
		{"remieee", OpRem, [3]Opcode{RemIeeeF32, RemIeeeF64, RemIeeeNF}}, // fmod-style
	}
	prec := [3]OperandKind{KindFloat32, KindFloat64, KindNFloat}
	precName := [3]string{"f32", "f64", "nf"}
	for _, g := range floatBinOps {
		for i := 0; i < 3; i++ {
			set(g.ops[i], g.base+"."+precName[i], prec[i], prec[i], prec[i], g.sem, 0)
		}
	}
	negOps := [3]Opcode{NegF32, NegF64, NegNF}
	for i := 0; i < 3; i++ {
		set(negOps[i], "neg."+precName[i], prec[i], prec[i], KindEmpty, OpNeg, 0)
	}

	// bitwise / shift
	set(AndI, "and.i", KindInt, KindInt, KindInt, OpAnd, 0)
	set(AndL, "and.l", KindLong, KindLong, KindLong, OpAnd, 0)
	set(OrI, "or.i", KindInt, KindInt, KindInt, OpOr, 0)
	set(OrL, "or.l", KindLong, KindLong, KindLong, OpOr, 0)
	set(XorI, "xor.i", KindInt, KindInt, KindInt, OpXor, 0)
	set(XorL, "xor.l", KindLong, KindLong, KindLong, OpXor, 0)
	set(NotI, "not.i", KindInt, KindInt, KindEmpty, OpNot, 0)
	set(NotL, "not.l", KindLong, KindLong, KindEmpty, OpNot, 0)
	set(ShlI, "shl.i", KindInt, KindInt, KindInt, OpShl, 0)
	set(ShlL, "shl.l", KindLong, KindLong, KindInt, OpShl, 0)
	set(ShrI, "shr.i", KindInt, KindInt, KindInt, OpShr, 0)
	set(ShrL, "shr.l", KindLong, KindLong, KindInt, OpShr, 0)
	set(UshrI, "ushr.i", KindInt, KindInt, KindInt, OpUshr, 0)
	set(UshrL, "ushr.l", KindLong, KindLong, KindInt, OpUshr, 0)

	// conversions: truncate with optional overflow check
	truncs := []struct {
		op   Opcode
		name string
	}{
		{TruncSByte, "conv.i1"}, {TruncSByteOvf, "conv.ovf.i1"},
		{TruncUByte, "conv.u1"}, {TruncUByteOvf, "conv.ovf.u1"},
		{TruncShort, "conv.i2"}, {TruncShortOvf, "conv.ovf.i2"},
		{TruncUShort, "conv.u2"}, {TruncUShortOvf, "conv.ovf.u2"},
		{TruncInt, "conv.i4"}, {TruncIntOvf, "conv.ovf.i4"},
		{TruncUInt, "conv.u4"}, {TruncUIntOvf, "conv.ovf.u4"},
	}
	for _, c := range truncs {
		set(c.op, c.name, KindInt, KindAny, KindEmpty, OpConvert, 0)
	}
	intToFloat := []Opcode{ConvIntToFloat32, ConvIntToFloat64, ConvIntToNFloat, ConvUIntToFloat32, ConvUIntToFloat64, ConvUIntToNFloat,
		ConvLongToFloat32, ConvLongToFloat64, ConvLongToNFloat, ConvULongToFloat32, ConvULongToFloat64, ConvULongToNFloat}
	for i, op := range intToFloat {
		set(op, "conv.to.float", prec[i%3], KindAny, KindEmpty, OpConvert, 0)
	}
	floatToInt := []Opcode{ConvFloat32ToInt, ConvFloat64ToInt, ConvNFloatToInt}
	for _, op := range floatToInt {
		set(op, "conv.to.int", KindInt, KindAny, KindEmpty, OpConvert, 0)
	}
	floatToFloat := []struct {
		op   Opcode
		dest OperandKind
	}{
		{ConvFloat32ToFloat64, KindFloat64}, {ConvFloat32ToNFloat, KindNFloat},
		{ConvFloat64ToFloat32, KindFloat32}, {ConvFloat64ToNFloat, KindNFloat},
		{ConvNFloatToFloat32, KindFloat32}, {ConvNFloatToFloat64, KindFloat64},
	}
	for _, c := range floatToFloat {
		set(c.op, "conv.float", c.dest, KindAny, KindEmpty, OpConvert, 0)
	}

	// comparisons: signed/unsigned/float, producing a 0/1 Int
	cmp := []struct {
		op   Opcode
		kind OperandKind
		sem  SemanticOp
	}{
		{EqI, KindInt, OpEq}, {EqL, KindLong, OpEq}, {EqF32, KindFloat32, OpEq}, {EqF64, KindFloat64, OpEq}, {EqNF, KindNFloat, OpEq},
		{NeI, KindInt, OpNe}, {NeL, KindLong, OpNe}, {NeF32, KindFloat32, OpNe}, {NeF64, KindFloat64, OpNe}, {NeNF, KindNFloat, OpNe},
		{LtI, KindInt, OpLt}, {LtU, KindInt, OpLt}, {LtL, KindLong, OpLt}, {LtUL, KindLong, OpLt},
		{LtF32, KindFloat32, OpLt}, {LtF64, KindFloat64, OpLt}, {LtNF, KindNFloat, OpLt},
		{LeI, KindInt, OpLe}, {LeU, KindInt, OpLe}, {LeL, KindLong, OpLe}, {LeUL, KindLong, OpLe},
		{LeF32, KindFloat32, OpLe}, {LeF64, KindFloat64, OpLe}, {LeNF, KindNFloat, OpLe},
		{GtI, KindInt, OpGt}, {GtU, KindInt, OpGt}, {GtL, KindLong, OpGt}, {GtUL, KindLong, OpGt},
		{GtF32, KindFloat32, OpGt}, {GtF64, KindFloat64, OpGt}, {GtNF, KindNFloat, OpGt},
		{GeI, KindInt, OpGe}, {GeU, KindInt, OpGe}, {GeL, KindLong, OpGe}, {GeUL, KindLong, OpGe},
		{GeF32, KindFloat32, OpGe}, {GeF64, KindFloat64, OpGe}, {GeNF, KindNFloat, OpGe},
		{CmplF32, KindFloat32, OpCmpl}, {CmplF64, KindFloat64, OpCmpl}, {CmplNF, KindNFloat, OpCmpl},
		{CmpgF32, KindFloat32, OpCmpg}, {CmpgF64, KindFloat64, OpCmpg}, {CmpgNF, KindNFloat, OpCmpg},
	}
	for _, c := range cmp {
		set(c.op, "cmp", KindInt, c.kind, c.kind, c.sem, 0)
	}

	// math library, three precisions
	mathOps := []struct {
		base  string
		ops   [3]Opcode
		binary bool
	}{
		{"acos", [3]Opcode{AcosF32, AcosF64, AcosNF}, false},
		{"asin", [3]Opcode{AsinF32, AsinF64, AsinNF}, false},
		{"atan2", [3]Opcode{Atan2F32, Atan2F64, Atan2NF}, true},
		{"ceil", [3]Opcode{CeilF32, CeilF64, CeilNF}, false},
		{"cos", [3]Opcode{CosF32, CosF64, CosNF}, false},
		{"exp", [3]Opcode{ExpF32, ExpF64, ExpNF}, false},
		{"log", [3]Opcode{LogF32, LogF64, LogNF}, false},
		{"pow", [3]Opcode{PowF32, PowF64, PowNF}, true},
		{"rint", [3]Opcode{RintF32, RintF64, RintNF}, false},
		{"round", [3]Opcode{RoundF32, RoundF64, RoundNF}, false},
		{"sin", [3]Opcode{SinF32, SinF64, SinNF}, false},
		{"sqrt", [3]Opcode{SqrtF32, SqrtF64, SqrtNF}, false},
		{"tan", [3]Opcode{TanF32, TanF64, TanNF}, false},
	}
	for _, m := range mathOps {
		for i := 0; i < 3; i++ {
			src2 := KindEmpty
			if m.binary {
				src2 = prec[i]
			}
			set(m.ops[i], m.base, prec[i], prec[i], src2, OpMath, 0)
		}
	}
	set(AbsI, "abs.i", KindInt, KindInt, KindEmpty, OpMath, 0)
	set(AbsL, "abs.l", KindLong, KindLong, KindEmpty, OpMath, 0)
	abs := [3]Opcode{AbsF32, AbsF64, AbsNF}
	for i := 0; i < 3; i++ {
		set(abs[i], "abs", prec[i], prec[i], KindEmpty, OpMath, 0)
	}
	minmax := []struct {
		name string
		i, u, l, ul Opcode
	}{
		{"min", MinI, MinU, MinL, MinUL},
		{"max", MaxI, MaxU, MaxL, MaxUL},
	}
	for _, mm := range minmax {
		set(mm.i, mm.name+".i", KindInt, KindInt, KindInt, OpMath, 0)
		set(mm.u, mm.name+".u", KindInt, KindInt, KindInt, OpMath, 0)
		set(mm.l, mm.name+".l", KindLong, KindLong, KindLong, OpMath, 0)
		set(mm.ul, mm.name+".ul", KindLong, KindLong, KindLong, OpMath, 0)
	}
	minF := [3]Opcode{MinF32, MinF64, MinNF}
	maxF := [3]Opcode{MaxF32, MaxF64, MaxNF}
	for i := 0; i < 3; i++ {
		set(minF[i], "min", prec[i], prec[i], prec[i], OpMath, 0)
		set(maxF[i], "max", prec[i], prec[i], prec[i], OpMath, 0)
	}
	set(SignI, "sign.i", KindInt, KindInt, KindEmpty, OpMath, 0)
	set(SignL, "sign.l", KindInt, KindLong, KindEmpty, OpMath, 0)
	signF := [3]Opcode{SignF32, SignF64, SignNF}
	isNaN := [3]Opcode{IsNaNF32, IsNaNF64, IsNaNNF}
	isFinite := [3]Opcode{IsFiniteF32, IsFiniteF64, IsFiniteNF}
	isInf := [3]Opcode{IsInfF32, IsInfF64, IsInfNF}
	for i := 0; i < 3; i++ {
		set(signF[i], "sign", KindInt, prec[i], KindEmpty, OpMath, 0)
		set(isNaN[i], "isnan", KindInt, prec[i], KindEmpty, OpMath, 0)
		set(isFinite[i], "isfinite", KindInt, prec[i], KindEmpty, OpMath, 0)
		set(isInf[i], "isinf", KindInt, prec[i], KindEmpty, OpMath, 0)
	}

	// branches
	set(Branch, "br", KindEmpty, KindEmpty, KindEmpty, OpBranch, FlagBranch|FlagTerminator)
	set(BranchIfTrue, "brtrue", KindEmpty, KindInt, KindEmpty, OpBranch, FlagBranch)
	set(BranchIfFalse, "brfalse", KindEmpty, KindInt, KindEmpty, OpBranch, FlagBranch)
	brCmp := []struct {
		op  Opcode
		sem SemanticOp
	}{
		{BranchIfEq, OpEq}, {BranchIfNe, OpNe}, {BranchIfLt, OpLt},
		{BranchIfLe, OpLe}, {BranchIfGt, OpGt}, {BranchIfGe, OpGe},
	}
	for _, b := range brCmp {
		set(b.op, "br.cmp", KindEmpty, KindAny, KindAny, b.sem, FlagBranch)
	}
	set(AddressOfLabel, "address_of_label", KindPtr, KindEmpty, KindEmpty, OpAddressOfLabel, FlagAddressOfLabel)
	set(JumpTable, "jump_table", KindEmpty, KindInt, KindEmpty, OpJumpTable, FlagBranch|FlagJumpTable|FlagTerminator)

	// calls
	set(CallDirect, "call", KindAny, KindEmpty, KindEmpty, OpCall, FlagCall)
	set(CallIndirect, "call.indirect", KindAny, KindPtr, KindEmpty, OpCall, FlagCall)
	set(CallVtable, "call.vtable", KindAny, KindPtr, KindInt, OpCall, FlagCall)
	set(CallNative, "call.native", KindAny, KindPtr, KindEmpty, OpCall, FlagCall|FlagSideEffect)
	set(CallIntrinsic, "call.intrinsic", KindAny, KindEmpty, KindEmpty, OpCall, FlagCall|FlagSideEffect)

	// returns
	set(ReturnVoid, "ret.void", KindEmpty, KindEmpty, KindEmpty, OpNone, FlagSideEffect|FlagTerminator)
	set(ReturnInt, "ret.i", KindEmpty, KindInt, KindEmpty, OpNone, FlagSideEffect|FlagTerminator)
	set(ReturnLong, "ret.l", KindEmpty, KindLong, KindEmpty, OpNone, FlagSideEffect|FlagTerminator)
	set(ReturnFloat32, "ret.f32", KindEmpty, KindFloat32, KindEmpty, OpNone, FlagSideEffect|FlagTerminator)
	set(ReturnFloat64, "ret.f64", KindEmpty, KindFloat64, KindEmpty, OpNone, FlagSideEffect|FlagTerminator)
	set(ReturnNFloat, "ret.nf", KindEmpty, KindNFloat, KindEmpty, OpNone, FlagSideEffect|FlagTerminator)
	set(ReturnStructReg, "ret.struct", KindEmpty, KindAny, KindEmpty, OpNone, FlagSideEffect|FlagTerminator)
	set(PushReturnAreaPtr, "push_return_area_ptr", KindPtr, KindEmpty, KindEmpty, OpNone, FlagSideEffect)

	// exceptions
	set(Throw, "throw", KindEmpty, KindAny, KindEmpty, OpException, FlagSideEffect|FlagTerminator)
	set(Rethrow, "rethrow", KindEmpty, KindAny, KindEmpty, OpException, FlagSideEffect|FlagTerminator)
	set(LoadPC, "load_pc", KindPtr, KindEmpty, KindEmpty, OpException, 0)
	set(LoadExceptionPC, "load_exception_pc", KindPtr, KindEmpty, KindEmpty, OpException, 0)
	set(EnterFinally, "enter_finally", KindEmpty, KindEmpty, KindEmpty, OpException, FlagSideEffect)
	set(LeaveFinally, "leave_finally", KindEmpty, KindEmpty, KindEmpty, OpException, FlagSideEffect|FlagTerminator)
	set(CallFinally, "call_finally", KindEmpty, KindEmpty, KindEmpty, OpException, FlagSideEffect|FlagCall)
	set(EnterFilter, "enter_filter", KindEmpty, KindAny, KindEmpty, OpException, FlagSideEffect)
	set(LeaveFilter, "leave_filter", KindEmpty, KindAny, KindEmpty, OpException, FlagSideEffect|FlagTerminator)
	set(CallFilter, "call_filter", KindAny, KindEmpty, KindEmpty, OpException, FlagSideEffect|FlagCall)
	set(BranchIfPCNotInRange, "br_if_pc_not_in_range", KindEmpty, KindPtr, KindPtr, OpException, FlagBranch)
	set(RethrowUnhandled, "rethrow_unhandled", KindEmpty, KindEmpty, KindEmpty, OpException, FlagSideEffect|FlagTerminator)

	// memory
	set(LoadRelative, "load_relative", KindAny, KindPtr, KindEmpty, OpMemory, FlagHasNintArg)
	set(StoreRelative, "store_relative", KindPtr, KindAny, KindEmpty, OpMemory, FlagSideEffect|FlagHasNintArg|FlagDestIsSource)
	set(LoadElem, "load_elem", KindAny, KindPtr, KindInt, OpMemory, FlagHasNintArg)
	set(StoreElem, "store_elem", KindPtr, KindInt, KindAny, OpMemory, FlagSideEffect|FlagHasNintArg|FlagDestIsSource)
	set(LoadAbsolute, "load_absolute", KindAny, KindEmpty, KindEmpty, OpMemory, FlagHasNintArg)
	set(StoreAbsolute, "store_absolute", KindEmpty, KindAny, KindEmpty, OpMemory, FlagSideEffect|FlagHasNintArg)
	set(AddRelative, "add_relative", KindPtr, KindPtr, KindEmpty, OpAdd, FlagHasNintArg)
	set(Memcpy, "memcpy", KindEmpty, KindPtr, KindPtr, OpMemory, FlagSideEffect|FlagHasNintArg)
	set(Memmove, "memmove", KindEmpty, KindPtr, KindPtr, OpMemory, FlagSideEffect|FlagHasNintArg)
	set(Memset, "memset", KindEmpty, KindPtr, KindInt, OpMemory, FlagSideEffect|FlagHasNintArg)
	set(Alloca, "alloca", KindPtr, KindInt, KindEmpty, OpMemory, FlagSideEffect)

	// frame / ABI
	set(IncomingReg, "incoming_reg", KindAny, KindEmpty, KindEmpty, OpFrame, FlagHasNintArg)
	set(IncomingFramePosn, "incoming_frame_posn", KindAny, KindEmpty, KindEmpty, OpFrame, FlagHasNintArg)
	set(OutgoingReg, "outgoing_reg", KindEmpty, KindAny, KindEmpty, OpFrame, FlagSideEffect|FlagHasNintArg)
	set(OutgoingFramePosn, "outgoing_frame_posn", KindEmpty, KindAny, KindEmpty, OpFrame, FlagSideEffect|FlagHasNintArg)
	set(ReturnReg, "return_reg", KindAny, KindEmpty, KindEmpty, OpFrame, FlagHasNintArg)
	set(PushInt, "push_int", KindEmpty, KindInt, KindEmpty, OpFrame, FlagSideEffect)
	set(PushLong, "push_long", KindEmpty, KindLong, KindEmpty, OpFrame, FlagSideEffect)
	set(PushFloat, "push_float", KindEmpty, KindAny, KindEmpty, OpFrame, FlagSideEffect)
	set(PushStruct, "push_struct", KindEmpty, KindPtr, KindEmpty, OpFrame, FlagSideEffect|FlagHasNintArg)
	set(PopStack, "pop_stack", KindEmpty, KindEmpty, KindEmpty, OpFrame, FlagSideEffect|FlagHasNintArg)
	set(FlushSmallStruct, "flush_small_struct", KindEmpty, KindPtr, KindEmpty, OpFrame, FlagSideEffect)
	set(SetParam, "set_param", KindEmpty, KindAny, KindEmpty, OpFrame, FlagSideEffect|FlagHasNintArg)
	set(SetupForNested, "setup_for_nested", KindEmpty, KindEmpty, KindEmpty, OpFrame, FlagSideEffect|FlagHasNintArg)
	set(SetupForSibling, "setup_for_sibling", KindEmpty, KindEmpty, KindEmpty, OpFrame, FlagSideEffect|FlagHasNintArg)
	set(Import, "import", KindAny, KindEmpty, KindEmpty, OpFrame, FlagHasNintArg)

	// debug
	set(MarkOffset, "mark_offset", KindEmpty, KindEmpty, KindEmpty, OpDebug, FlagSideEffect|FlagHasNintArg)
	set(MarkBreakpoint, "mark_breakpoint", KindEmpty, KindEmpty, KindEmpty, OpDebug, FlagSideEffect|FlagHasNintArg)

	// misc
	set(Copy, "copy", KindAny, KindAny, KindEmpty, OpCopy, FlagRegMove)
	set(AddressOf, "address_of", KindPtr, KindAny, KindEmpty, OpAddressOf, 0)
}
