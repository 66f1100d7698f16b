package ssa

import "jit/internal/opcode"

// Label identifies a jump target. It starts undefined (block == nil) and
// becomes defined the first time the builder's Label method binds it to a
// position, matching spec.md §4.D's jit_insn_label.
type Label struct {
	id    int
	block *Block
}

// ID returns a stable, function-local identifier for the label.
func (l *Label) ID() int { return l.id }

// Defined reports whether the label has been bound to a block yet.
func (l *Label) Defined() bool { return l.block != nil }

// Block returns the block the label is bound to, or nil if undefined.
func (l *Label) Block() *Block { return l.block }

// LiveInfo is the per-operand live/next-use annotation spec.md §4.F asks
// the liveness pass to record directly on the instruction ("record in the
// instruction's flag word whether that value was live and whether it had
// a next-use at this point"). It is distinct from Value.Live/NextUse,
// which are overwritten continuously as the pass walks backward; this is
// a snapshot taken at the moment the instruction was visited.
type LiveInfo struct {
	DestWasLive, DestHadNextUse   bool
	Src1WasLive, Src1HadNextUse   bool
	Src2WasLive, Src2HadNextUse   bool
}

// Instruction is a single three-address IR instruction: an opcode, up to
// three value operands, an optional inline integer (Data), and an
// optional label target, per spec.md §3.
type Instruction struct {
	Op   opcode.Opcode
	Dest *Value
	Src1 *Value
	Src2 *Value
	Data int64
	Flag int64 // secondary inline data (e.g. call flags, compare-float precision bit)
	Label *Label

	// CallTarget and Args are populated for the call family: CallTarget
	// names the callee for CallDirect/CallVtable (Src1 carries the
	// address for CallIndirect/CallNative instead), and Args holds the
	// argument values in left-to-right order for every call opcode. The
	// back end lowers Args to the target ABI's push/register sequence.
	CallTarget *Function
	Args       []*Value

	Live LiveInfo

	// nopped records that the liveness pass rewrote this instruction to a
	// NOP in place (spec.md §4.F); the original opcode is kept around in
	// origOp purely so disassembly/debugging can show what was elided.
	nopped bool
	origOp opcode.Opcode
}

// IsNop reports whether the instruction is (or was rewritten to) a NOP.
func (in *Instruction) IsNop() bool { return in.Op == opcode.Nop }

// RewriteToNop implements the dead-store elimination spec.md §4.F
// describes: a side-effect-free instruction whose destination is dead on
// exit and has no later use becomes a NOP, in place, preserving its
// position in the block so label/branch targets referring to positions
// stay valid.
func (in *Instruction) RewriteToNop() {
	if in.nopped {
		return
	}
	in.origOp = in.Op
	in.Op = opcode.Nop
	in.Dest, in.Src1, in.Src2, in.Label = nil, nil, nil, nil
	in.nopped = true
}

// OriginalOpcode returns the opcode the instruction had before a NOP
// rewrite, or its current opcode if it was never rewritten.
func (in *Instruction) OriginalOpcode() opcode.Opcode {
	if in.nopped {
		return in.origOp
	}
	return in.Op
}
