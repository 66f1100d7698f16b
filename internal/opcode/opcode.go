// Package opcode holds the static metadata table described in spec.md
// §4.D/§4.E: one Descriptor per Opcode, carrying operand kinds, the
// semantic operator it corresponds to for constant folding, and a flag
// word describing control-flow shape. It is the single source of truth
// both the IR builder (for validation/folding) and the back end (for
// dispatch) consult, mirroring libjit's jit-opcode.c restated as a Go
// table literal instead of a parallel array of C structs, in the spirit
// of the teacher's bytecode.go flat const block + lookup maps.
package opcode

// Opcode identifies one IR instruction kind. The numeric values are
// stable within a process but are not a wire format (unlike the
// teacher's Bytecode, which doubles as the VM's serialized encoding) —
// the code cache never persists them, so they may be renumbered freely.
type Opcode uint16

// OperandKind constrains which Value kinds an operand slot accepts, after
// typesys.Normalize/PromoteInt have run.
type OperandKind uint8

const (
	KindEmpty OperandKind = iota
	KindInt
	KindLong
	KindFloat32
	KindFloat64
	KindNFloat
	KindPtr
	KindAny
)

// SemanticOp is the operator a folding pass keys off of; opcodes that
// differ only in width or signedness (Addi vs Addl) share SemanticOp
// while differing in OperandKind.
type SemanticOp uint8

const (
	OpNone SemanticOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpAnd
	OpOr
	OpXor
	OpNot
	OpShl
	OpShr
	OpUshr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpCmpl
	OpCmpg
	OpConvert
	OpCopy
	OpAddressOf
	OpAddressOfLabel
	OpBranch
	OpCall
	OpJumpTable
	OpMath
	OpMemory
	OpFrame
	OpException
	OpDebug
)

// Flags bits describe the control-flow and dataflow shape of an opcode.
type Flags uint16

const (
	FlagBranch           Flags = 1 << iota // unconditionally or conditionally transfers control
	FlagCall                               // direct/indirect/native/intrinsic call
	FlagJumpTable                          // jump-table terminator
	FlagAddressOfLabel                     // produces the address of a label as a value
	FlagRegMove                            // pure register-to-register copy (folds trivially)
	FlagHasNintArg                         // carries an inline integer operand (offset, alignment, ...)
	FlagSideEffect                         // has an observable effect; never eligible for dead-store NOP rewrite
	FlagDestIsSource                       // "otherness": the dest operand is read, not just written (indirect store)
	FlagTerminator                         // ends the current block and opens a new one when emitted
	FlagNoThrowCandidate                   // calls only: flag word also carries no-throw/no-return/tail bits below
)

// Call-specific flag bits, independent of the structural Flags above;
// spec.md §4.D: "Each [call] has a flags word {no-throw, no-return, tail}."
type CallFlags uint8

const (
	CallNoThrow CallFlags = 1 << iota
	CallNoReturn
	CallTail
)

// Descriptor is the static record attached to every Opcode.
type Descriptor struct {
	Name     string
	Dest     OperandKind
	Src1     OperandKind
	Src2     OperandKind
	Semantic SemanticOp
	Flags    Flags
}

//go:generate true
const (
	Nop Opcode = iota

	// --- arithmetic: int/uint/long, overflow-checking variants ---
	AddI
	AddIOvf
	AddU
	AddUOvf
	AddL
	AddLOvf
	SubI
	SubIOvf
	SubU
	SubUOvf
	SubL
	SubLOvf
	MulI
	MulIOvf
	MulU
	MulUOvf
	MulL
	MulLOvf
	DivI
	DivU
	DivL
	DivUL
	RemI
	RemU
	RemL
	RemUL
	NegI
	NegL

	// --- float / native-float arithmetic ---
	AddF32
	AddF64
	AddNF
	SubF32
	SubF64
	SubNF
	MulF32
	MulF64
	MulNF
	DivF32
	DivF64
	DivNF
	RemF32 // IEEE remainder
	RemF64
	RemNF
	RemIeeeF32 // ordinary (fmod-style) remainder
	RemIeeeF64
	RemIeeeNF
	NegF32
	NegF64
	NegNF

	// --- bitwise / shift, int and long widths ---
	AndI
	AndL
	OrI
	OrL
	XorI
	XorL
	NotI
	NotL
	ShlI
	ShlL
	ShrI // arithmetic (signed)
	ShrL
	UshrI // logical (unsigned)
	UshrL

	// --- conversions ---
	TruncSByte
	TruncSByteOvf
	TruncUByte
	TruncUByteOvf
	TruncShort
	TruncShortOvf
	TruncUShort
	TruncUShortOvf
	TruncInt
	TruncIntOvf
	TruncUInt
	TruncUIntOvf
	ConvIntToFloat32
	ConvIntToFloat64
	ConvIntToNFloat
	ConvUIntToFloat32
	ConvUIntToFloat64
	ConvUIntToNFloat
	ConvLongToFloat32
	ConvLongToFloat64
	ConvLongToNFloat
	ConvULongToFloat32
	ConvULongToFloat64
	ConvULongToNFloat
	ConvFloat32ToInt
	ConvFloat64ToInt
	ConvNFloatToInt
	ConvFloat32ToFloat64
	ConvFloat32ToNFloat
	ConvFloat64ToFloat32
	ConvFloat64ToNFloat
	ConvNFloatToFloat32
	ConvNFloatToFloat64

	// --- comparisons: signed/unsigned/float, cmpl/cmpg NaN variants ---
	EqI
	EqL
	EqF32
	EqF64
	EqNF
	NeI
	NeL
	NeF32
	NeF64
	NeNF
	LtI
	LtU
	LtL
	LtUL
	LtF32
	LtF64
	LtNF
	LeI
	LeU
	LeL
	LeUL
	LeF32
	LeF64
	LeNF
	GtI
	GtU
	GtL
	GtUL
	GtF32
	GtF64
	GtNF
	GeI
	GeU
	GeL
	GeUL
	GeF32
	GeF64
	GeNF
	CmplF32 // NaN-is-less-than variant, used for cmpl-style opcodes
	CmplF64
	CmplNF
	CmpgF32 // NaN-is-greater-than variant
	CmpgF64
	CmpgNF

	// --- math library, three precisions each ---
	AcosF32
	AcosF64
	AcosNF
	AsinF32
	AsinF64
	AsinNF
	Atan2F32
	Atan2F64
	Atan2NF
	CeilF32
	CeilF64
	CeilNF
	CosF32
	CosF64
	CosNF
	ExpF32
	ExpF64
	ExpNF
	LogF32
	LogF64
	LogNF
	PowF32
	PowF64
	PowNF
	RintF32
	RintF64
	RintNF
	RoundF32
	RoundF64
	RoundNF
	SinF32
	SinF64
	SinNF
	SqrtF32
	SqrtF64
	SqrtNF
	TanF32
	TanF64
	TanNF
	AbsI
	AbsL
	AbsF32
	AbsF64
	AbsNF
	MinI
	MinU
	MinL
	MinUL
	MinF32
	MinF64
	MinNF
	MaxI
	MaxU
	MaxL
	MaxUL
	MaxF32
	MaxF64
	MaxNF
	SignI
	SignL
	SignF32
	SignF64
	SignNF
	IsNaNF32
	IsNaNF64
	IsNaNNF
	IsFiniteF32
	IsFiniteF64
	IsFiniteNF
	IsInfF32
	IsInfF64
	IsInfNF

	// --- branches ---
	Branch
	BranchIfTrue
	BranchIfFalse
	BranchIfEq
	BranchIfNe
	BranchIfLt
	BranchIfLe
	BranchIfGt
	BranchIfGe
	AddressOfLabel
	JumpTable

	// --- calls ---
	CallDirect
	CallIndirect
	CallVtable
	CallNative
	CallIntrinsic

	// --- returns ---
	ReturnVoid
	ReturnInt
	ReturnLong
	ReturnFloat32
	ReturnFloat64
	ReturnNFloat
	ReturnStructReg
	PushReturnAreaPtr

	// --- exceptions ---
	Throw
	Rethrow
	LoadPC
	LoadExceptionPC
	EnterFinally
	LeaveFinally
	CallFinally
	EnterFilter
	LeaveFilter
	CallFilter
	BranchIfPCNotInRange
	RethrowUnhandled

	// --- memory ---
	LoadRelative
	StoreRelative
	LoadElem
	StoreElem
	LoadAbsolute
	StoreAbsolute
	AddRelative
	Memcpy
	Memmove
	Memset
	Alloca

	// --- frame / ABI ---
	IncomingReg
	IncomingFramePosn
	OutgoingReg
	OutgoingFramePosn
	ReturnReg
	PushInt
	PushLong
	PushFloat
	PushStruct
	PopStack
	FlushSmallStruct
	SetParam
	SetupForNested
	SetupForSibling
	Import

	// --- debug ---
	MarkOffset
	MarkBreakpoint

	// --- misc, used internally by the builder/folder/liveness pass ---
	Copy
	AddressOf

	numOpcodes
)

var table [numOpcodes]Descriptor

// Describe returns the static descriptor for op.
func Describe(op Opcode) Descriptor { return table[op] }

// IsBranch reports whether op transfers control, conditionally or not.
func (d Descriptor) IsBranch() bool { return d.Flags&FlagBranch != 0 }

// IsCall reports whether op is one of the call opcodes.
func (d Descriptor) IsCall() bool { return d.Flags&FlagCall != 0 }

// IsTerminator reports whether emitting op ends the current block.
func (d Descriptor) IsTerminator() bool { return d.Flags&FlagTerminator != 0 }

// HasSideEffect reports whether op must never be rewritten to NOP by the
// liveness pass even when its destination is dead, per spec.md §4.F.
func (d Descriptor) HasSideEffect() bool { return d.Flags&FlagSideEffect != 0 }

// DestIsSource reports the "otherness" bit from spec.md §3's Instruction
// invariant: for opcodes like StoreRelative, the "dest" slot is read as
// well as (instead of) written, so liveness must treat it as a source.
func (d Descriptor) DestIsSource() bool { return d.Flags&FlagDestIsSource != 0 }
