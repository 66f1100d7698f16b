// Package backend defines the code-generation interface spec.md §4.H
// asks every architecture port to implement, and the small set of shared
// types (relocations, buffers) every port's emit_instruction trades in.
// internal/backend/amd64 is the one concrete implementation this module
// ships.
package backend

import (
	"jit/internal/opcode"
	"jit/internal/regs"
	"jit/internal/ssa"
	"jit/internal/typesys"
)

// Reloc records a branch or call site whose target offset was not yet
// known when it was emitted; fixup_branches patches these once every
// block's final address is fixed.
type Reloc struct {
	Site   int // byte offset of the 4-byte relative displacement field
	Target int // byte offset of the target within the same buffer
}

// Buffer is the append-only byte sink every back end writes into; it
// tracks the current write position so emit_prolog/emit_instruction/…
// can be called in sequence the way the code cache's start_method /
// alloc_aux split expects (code grows up from Base, aux data grows down
// from the top of the region).
type Buffer struct {
	Bytes []byte
	Pos   int
	Limit int // stop and signal overflow at this offset, inclusive upper bound
}

// Overflowed reports whether the last write reached Limit, the code
// cache's restart-needed signal (spec.md §4.H: "must cooperate with the
// code cache's overflow signal by stopping at limit").
func (b *Buffer) Overflowed() bool { return b.Pos >= b.Limit }

func (b *Buffer) emit(bytes ...byte) {
	for _, by := range bytes {
		if b.Pos >= b.Limit {
			return
		}
		if b.Pos >= len(b.Bytes) {
			return
		}
		b.Bytes[b.Pos] = by
		b.Pos++
	}
}

// RegAlloc is the minimal register-allocation state emit_instruction
// consults: a per-value stack-slot assignment plus a small pool of
// scratch registers used to stage operands. Methods on ssa.Function
// already expose Value.Slot()/SetSlot(); RegAlloc only adds the frame
// layout math (slot -> byte offset) on top, keeping the allocator itself
// language-neutral per spec.md §4.G.
type RegAlloc struct {
	Rules     regs.Rules
	SlotBase  int32 // frame offset of value-slot 0 (negative, growing down from rbp)
	SlotSize  int32
}

// Offset returns the frame-relative byte offset for value slot index i.
func (r RegAlloc) Offset(i int) int32 { return r.SlotBase - int32(i)*r.SlotSize }

// Backend is the per-architecture code-generation contract spec.md §4.H
// specifies. Every method writes into buf starting at buf.Pos, advancing
// it; callers must check buf.Overflowed() after each call and abandon the
// method (requesting a restart with a larger page) rather than continue
// writing into a saturated buffer.
type Backend interface {
	// EmitProlog writes the function entry sequence: it reserves ra's
	// frame, spills every incoming argument register to its value's slot,
	// and saves whatever callee-saved registers regUsageMask (a bitmask
	// over Rules.Registers indices) says the allocator actually used.
	EmitProlog(buf *Buffer, fn *ssa.Function, ra RegAlloc, regUsageMask uint64)
	EmitEpilog(buf *Buffer, ra RegAlloc, regUsageMask uint64)

	// EmitInstruction lowers one IR instruction, consulting ra for operand
	// homes. It returns any relocation the instruction produced (for a
	// branch/call whose target block hasn't been placed yet) so the
	// caller can resolve it once every block's address is final.
	EmitInstruction(buf *Buffer, fn *ssa.Function, in *ssa.Instruction, ra RegAlloc) (*Reloc, error)

	// FixupBranches patches every relative-displacement site recorded by
	// EmitInstruction once all block addresses are known.
	FixupBranches(buf *Buffer, relocs []Reloc)

	// PadBuffer writes architecture NOPs (or filler) until buf.Pos is a
	// multiple of align, stopping short (writing nothing) if doing so
	// would cross more than maxGap bytes.
	PadBuffer(buf *Buffer, align int, maxGap int)

	// ComputeParameterOffsets returns, for each parameter of sig, its
	// offset from the frame-pointer-relative incoming-argument area (the
	// same numbers emit_prolog used to spill register arguments and
	// insn_incoming_frame_posn reports to IR).
	ComputeParameterOffsets(sig *typesys.Type) []int32

	// CreateClosure writes the tiny forwarding stub function_to_closure
	// hands back to the host: it must tail-call target carrying userdata
	// the way a GC or libffi-style closure trampoline does.
	CreateClosure(buf *Buffer, target uintptr, userdata uintptr, abi typesys.ABI)

	// CreateRedirector writes a stub that reads a mutable function-pointer
	// cell and jumps through it, used so the on-demand compiler can
	// publish a real entry point without patching every call site.
	CreateRedirector(buf *Buffer, cell uintptr)

	// CreateIndirector writes a stub used for vtable/indirect dispatch
	// through an ABI-adapting trampoline rather than a direct jump.
	CreateIndirector(buf *Buffer, target uintptr, abi typesys.ABI)
}

// semanticKind classifies an opcode's operand width/precision for a back
// end that dispatches on spec.md §4.E's descriptor rather than the raw
// opcode number.
func semanticKind(op opcode.Opcode) typesys.Kind {
	desc := opcode.Describe(op)
	switch desc.Dest {
	case opcode.KindLong, opcode.KindPtr:
		return typesys.Long
	case opcode.KindFloat32:
		return typesys.Float32
	case opcode.KindFloat64:
		return typesys.Float64
	case opcode.KindNFloat:
		return typesys.NFloat
	default:
		return typesys.Int
	}
}
