package ssa

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"jit/internal/opcode"
	"jit/internal/typesys"
)

var (
	// ErrInvalidArgument covers every validation failure on emit: wrong
	// operand type, wrong arity, or a label from another function, per
	// spec.md §7's InvalidArgument taxonomy entry.
	ErrInvalidArgument = errors.New("ssa: invalid argument")
	ErrWrongFunction    = errors.New("ssa: value or label belongs to a different function")
)

// MetaEntry is one opaque (value, destructor) pair stored in a Function's
// or Context's metadata map, per spec.md §3 ("metadata map (opaque key ->
// value + destructor)").
type MetaEntry struct {
	Value   any
	Destroy func(any)
}

// Function holds one IR function: its signature, the blocks emitted so
// far, the arena of values it owns, and the lifecycle state spec.md §3
// describes (entry point, on-demand compiler callback, optimization
// level, recompilable flag, parent for nested closures).
type Function struct {
	Signature *typesys.Type

	blocks []*Block
	values []*Value
	params []*Value
	consts map[constKey]*Value

	curBlock *Block
	nextLbl  int

	// intrinsicNames maps the Data index stamped on a CallIntrinsic
	// instruction back to the intrinsic's name; the back end resolves the
	// name to a runtime helper address at compile time.
	intrinsicNames []string

	DontFold bool // mirrors the context option JIT_OPTION_DONT_FOLD

	Meta map[string]*MetaEntry

	EntryPoint   uintptr
	CodeSize     int
	OnDemand     func(*Function) error
	OptLevel     int
	Recompilable bool

	Name string

	// entryCell backs EntryCellAddr: a heap cell a back end can embed the
	// address of in generated code so a call site emitted before this
	// function's entry point is known (a self-recursive call, or a call
	// to a sibling function compiled later) can load-and-call through it
	// instead of a stale or zero immediate. Kept as a real Go pointer
	// field so the cell survives GC for as long as this Function does.
	entryCell *uintptr
}

// New creates a function with the given signature and a single, empty
// entry block. Mirrors spec.md §6's `jit_function_create`.
func New(sig *typesys.Type) *Function {
	f := &Function{
		Signature: sig,
		params:    make([]*Value, sig.NumParams()),
		consts:    make(map[constKey]*Value),
		Meta:      make(map[string]*MetaEntry),
	}
	f.curBlock = f.newBlockLocked()
	return f
}

// EntryCellAddr lazily allocates (on first use) a heap cell that always
// holds f's current entry point, and returns its address as a uintptr
// suitable for embedding directly into generated machine code as a
// call-through-pointer target.
func (f *Function) EntryCellAddr() uintptr {
	if f.entryCell == nil {
		f.entryCell = new(uintptr)
		*f.entryCell = f.EntryPoint
	}
	return uintptr(unsafe.Pointer(f.entryCell))
}

// PublishEntry records addr as f's entry point and, if any call site was
// ever emitted through EntryCellAddr, updates that cell too so calls
// emitted before compilation finished see the real address.
func (f *Function) PublishEntry(addr uintptr) {
	f.EntryPoint = addr
	if f.entryCell != nil {
		*f.entryCell = addr
	}
}

func (f *Function) newBlockLocked() *Block {
	b := &Block{id: len(f.blocks)}
	f.blocks = append(f.blocks, b)
	return b
}

// NewBlock starts a fresh block unconditionally, per spec.md §4.D
// ("new_block starts a fresh block unconditionally").
func (f *Function) NewBlock() *Block {
	b := f.newBlockLocked()
	f.curBlock = b
	return b
}

// Blocks returns the function's blocks in emission order.
func (f *Function) Blocks() []*Block { return f.blocks }

// EntryBlock returns the function's first block (spec.md §3: "exactly
// one block is the entry").
func (f *Function) EntryBlock() *Block { return f.blocks[0] }

// NewLabel allocates an undefined label.
func (f *Function) NewLabel() *Label {
	l := &Label{id: f.nextLbl}
	f.nextLbl++
	return l
}

// BindLabel implements spec.md §4.D's jit_insn_label: binds an undefined
// label to the current position, opening a new block first if the
// current one is non-empty (so the label always marks a block entry).
func (f *Function) BindLabel(l *Label) error {
	if l.block != nil {
		return fmt.Errorf("%w: label already bound", ErrInvalidArgument)
	}
	if !f.curBlock.Empty() {
		f.NewBlock()
	}
	l.block = f.curBlock
	f.curBlock.Label = l
	return nil
}

func (f *Function) newVal(t *typesys.Type, storage StorageClass) *Value {
	v := newValue(len(f.values), t, storage)
	f.values = append(f.values, v)
	return v
}

// CreateValue allocates a new temporary of type t.
func (f *Function) CreateValue(t *typesys.Type) *Value {
	return f.newVal(t, Temporary)
}

// CreateLocal allocates a new addressable local of type t.
func (f *Function) CreateLocal(t *typesys.Type) *Value {
	v := f.newVal(t, Local)
	v.SetAddressable()
	return v
}

// GetParam returns parameter n, creating the backing Value the first
// time it's requested (spec.md §4.D: "created lazily, typed per the
// signature").
func (f *Function) GetParam(n int) *Value {
	if n < 0 || n >= len(f.params) {
		return nil
	}
	if f.params[n] == nil {
		pt := f.Signature.Param(n)
		v := f.newVal(pt, Parameter)
		f.params[n] = v
	}
	return f.params[n]
}

// NumParams returns the signature's parameter count.
func (f *Function) NumParams() int { return len(f.params) }

// IntrinsicName returns the name registered for a CallIntrinsic
// instruction's Data index.
func (f *Function) IntrinsicName(idx int64) string {
	if idx < 0 || int(idx) >= len(f.intrinsicNames) {
		return ""
	}
	return f.intrinsicNames[idx]
}

// Values returns every value ever allocated in this function (its arena);
// used by the liveness pass to reset block-boundary flags and by a
// register allocator to size its data structures.
func (f *Function) Values() []*Value { return f.values }

type constKey struct {
	kind typesys.Kind
	bits uint64
}

// createConstant builds (or returns a hash-consed) constant value of the
// given type and raw bit pattern. Constants "may be hash-consed but are
// not required to be," per spec.md §3; we do cons scalar constants since
// it's nearly free and shrinks the value arena for const-heavy IR.
func (f *Function) createConstant(t *typesys.Type, bits uint64) *Value {
	key := constKey{kind: typesys.Normalize(t).Kind(), bits: bits}
	if v, ok := f.consts[key]; ok {
		return v
	}
	v := f.newVal(t, Constant)
	v.ConstBits = bits
	f.consts[key] = v
	return v
}

// CreateIntConstant creates an Int-typed constant.
func (f *Function) CreateIntConstant(val int32) *Value {
	return f.createConstant(typesys.IntType, uint64(uint32(val)))
}

// CreateUIntConstant creates a UInt-typed constant.
func (f *Function) CreateUIntConstant(val uint32) *Value {
	return f.createConstant(typesys.UIntType, uint64(val))
}

// CreateLongConstant creates a Long-typed constant.
func (f *Function) CreateLongConstant(val int64) *Value {
	return f.createConstant(typesys.LongType, uint64(val))
}

// CreateFloat32Constant creates a Float32-typed constant.
func (f *Function) CreateFloat32Constant(val float32) *Value {
	return f.createConstant(typesys.Float32Type, uint64(math.Float32bits(val)))
}

// CreateFloat64Constant creates a Float64-typed constant.
func (f *Function) CreateFloat64Constant(val float64) *Value {
	return f.createConstant(typesys.Float64Type, math.Float64bits(val))
}

// CreateNFloatConstant creates an NFloat-typed constant.
func (f *Function) CreateNFloatConstant(val float64) *Value {
	return f.createConstant(typesys.NFloatType, math.Float64bits(val))
}

// CreatePointerConstant creates a constant pointer value (e.g. the
// address of a native function, or a global).
func (f *Function) CreatePointerConstant(t *typesys.Type, addr uintptr) *Value {
	return f.createConstant(t, uint64(addr))
}

// belongsTo reports whether v was allocated from f's arena.
func (f *Function) owns(v *Value) bool {
	return v != nil && v.id >= 0 && v.id < len(f.values) && f.values[v.id] == v
}

// matches reports whether actual's normalized type satisfies the operand
// kind demanded by an opcode descriptor.
func matches(kind opcode.OperandKind, actual *typesys.Type) bool {
	if kind == opcode.KindEmpty {
		return actual == nil
	}
	if actual == nil {
		return false
	}
	if kind == opcode.KindAny {
		return true
	}
	n := typesys.Normalize(actual)
	switch kind {
	case opcode.KindInt:
		return n.Is(typesys.IntType) || n.Is(typesys.UIntType)
	case opcode.KindLong:
		return n.Is(typesys.LongType) || n.Is(typesys.ULongType)
	case opcode.KindFloat32:
		return n.Is(typesys.Float32Type)
	case opcode.KindFloat64:
		return n.Is(typesys.Float64Type)
	case opcode.KindNFloat:
		return n.Is(typesys.NFloatType)
	case opcode.KindPtr:
		return n.Is(typesys.LongType) && actual.Kind() == typesys.Pointer
	default:
		return false
	}
}

// Emit is the low-level, validated instruction-emission entry point for
// instructions with no produced value (stores, branches, calls used for
// effect, returns). It implements spec.md §4.D's "Validation on emit"
// paragraph and opens a new block after a terminator. Opcodes that
// produce a result should go through EmitValue instead, so constant
// folding can suppress the instruction entirely.
func (f *Function) Emit(op opcode.Opcode, dest, src1, src2 *Value, data int64) (*Instruction, error) {
	desc := opcode.Describe(op)

	for _, v := range []*Value{dest, src1, src2} {
		if v != nil && !f.owns(v) {
			return nil, fmt.Errorf("%w: operand from a different function", ErrWrongFunction)
		}
	}
	if src1 != nil && !matches(desc.Src1, src1.Type) {
		return nil, fmt.Errorf("%w: %s src1 type mismatch", ErrInvalidArgument, desc.Name)
	}
	if src2 != nil && !matches(desc.Src2, src2.Type) {
		return nil, fmt.Errorf("%w: %s src2 type mismatch", ErrInvalidArgument, desc.Name)
	}

	in := &Instruction{Op: op, Dest: dest, Src1: src1, Src2: src2, Data: data}
	f.curBlock.append(in)

	if desc.IsTerminator() {
		f.curBlock.EndsInDeadCode = true
		f.NewBlock()
	}
	return in, nil
}

// EmitValue emits an opcode that produces a result of type resultType,
// validating src1/src2 the same way Emit does. Unless DontFold is set and
// both operands are constants the opcode's folder understands, the result
// is computed immediately: spec.md §8 requires that
// insn_add(const 3, const 4) "yields a constant value of 7 with no
// emitted instruction." Otherwise a fresh temporary is allocated and the
// real instruction is appended.
func (f *Function) EmitValue(op opcode.Opcode, resultType *typesys.Type, src1, src2 *Value, data int64) (*Value, error) {
	desc := opcode.Describe(op)
	for _, v := range []*Value{src1, src2} {
		if v != nil && !f.owns(v) {
			return nil, fmt.Errorf("%w: operand from a different function", ErrWrongFunction)
		}
	}
	if src1 != nil && !matches(desc.Src1, src1.Type) {
		return nil, fmt.Errorf("%w: %s src1 type mismatch", ErrInvalidArgument, desc.Name)
	}
	if src2 != nil && !matches(desc.Src2, src2.Type) {
		return nil, fmt.Errorf("%w: %s src2 type mismatch", ErrInvalidArgument, desc.Name)
	}

	if !f.DontFold {
		if folded := tryFold(f, op, resultType, src1, src2, data); folded != nil {
			return folded, nil
		}
	}

	dest := f.CreateValue(resultType)
	in := &Instruction{Op: op, Dest: dest, Src1: src1, Src2: src2, Data: data}
	f.curBlock.append(in)
	return dest, nil
}

// EmitBranch emits a branch-family instruction targeting lbl, wiring up
// the block CFG edge as spec.md §3 requires ("zero or more predecessors
// and successors derived from terminator instructions").
func (f *Function) EmitBranch(op opcode.Opcode, src1, src2 *Value, lbl *Label, data int64) (*Instruction, error) {
	if lbl == nil {
		return nil, fmt.Errorf("%w: nil branch target", ErrInvalidArgument)
	}
	from := f.curBlock
	in, err := f.Emit(op, nil, src1, src2, data)
	if err != nil {
		return nil, err
	}
	in.Label = lbl
	// The edge is only resolvable once lbl is bound; resolveCFG (called
	// by liveness/codegen preparation) walks instructions and wires
	// Preds/Succs from (Instruction.Label.block) at that point for labels
	// bound after the branch that referenced them (forward jumps).
	if lbl.block != nil {
		addSucc(from, lbl.block)
	}
	return in, nil
}

// emitCall is the shared low-level path for every call-family opcode: it
// validates the callee address operand (nil for CallDirect, which carries
// the callee in target instead), allocates a result value when retType is
// non-nil, and records the argument list and call flags on the
// instruction for the back end to lower.
func (f *Function) emitCall(op opcode.Opcode, addr *Value, target *Function, args []*Value, retType *typesys.Type, flags opcode.CallFlags) (*Value, *Instruction, error) {
	desc := opcode.Describe(op)
	if addr != nil {
		if !f.owns(addr) {
			return nil, nil, fmt.Errorf("%w: operand from a different function", ErrWrongFunction)
		}
		if !matches(desc.Src1, addr.Type) {
			return nil, nil, fmt.Errorf("%w: %s callee type mismatch", ErrInvalidArgument, desc.Name)
		}
	}
	for _, a := range args {
		if a != nil && !f.owns(a) {
			return nil, nil, fmt.Errorf("%w: argument from a different function", ErrWrongFunction)
		}
	}

	var dest *Value
	if retType != nil && !retType.Is(typesys.VoidType) {
		dest = f.CreateValue(retType)
	}
	in := &Instruction{Op: op, Dest: dest, Src1: addr, CallTarget: target, Args: append([]*Value(nil), args...), Flag: int64(flags)}
	f.curBlock.append(in)
	return dest, in, nil
}

// ResolveCFG finalizes Preds/Succs for every branch whose target label
// was bound after the branch was emitted (a forward jump). Call this once
// after all IR for a function has been built and before running the
// liveness pass or compiling.
func (f *Function) ResolveCFG() {
	for _, b := range f.blocks {
		for _, in := range b.Instrs {
			if in.Label != nil && in.Label.block != nil {
				addSucc(b, in.Label.block)
			}
		}
		// Fall-through edge: a block that doesn't end in an unconditional
		// terminator flows into the next block in emission order.
		if !b.EndsInDeadCode {
			if idx := b.id + 1; idx < len(f.blocks) {
				addSucc(b, f.blocks[idx])
			}
		}
	}
}

