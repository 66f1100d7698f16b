// Package liveness implements spec.md §4.F's backward liveness pass over
// a built ssa.Function: a standard iterative live-variable dataflow
// (liveOut[b] = union of successors' liveIn; liveIn[b] = (liveOut[b] -
// defs[b]) U uses[b]) using internal/memutil's bit set for the per-block
// sets, followed by a second backward walk that stamps the live/next-use
// snapshot onto every instruction and rewrites side-effect-free dead
// stores to NOPs in place. It plays the role the teacher's compile.go
// pass over parsed instructions plays for GVM, generalized from a single
// linear scan over bytecode to a real CFG.
package liveness

import (
	"jit/internal/memutil"
	"jit/internal/opcode"
	"jit/internal/ssa"
)

// Annotate runs the pass over f. It must be called after ssa.Function's
// IR is complete and ResolveCFG has wired block edges, and before the
// back end consumes Instruction.Live / Value.Live / Value.NextUse.
func Annotate(f *ssa.Function) {
	blocks := f.Blocks()
	n := len(f.Values())
	if n == 0 || len(blocks) == 0 {
		return
	}

	liveIn := make([]*memutil.BitSet, len(blocks))
	liveOut := make([]*memutil.BitSet, len(blocks))
	for i := range blocks {
		liveIn[i] = memutil.NewBitSet(n)
		liveOut[i] = memutil.NewBitSet(n)
	}

	// Fixed-point: start with every liveIn/liveOut empty (the conservative
	// block-boundary reset) and only grow, which is safe per the standard
	// backward dataflow correctness argument — each iteration either adds
	// bits or leaves the sets unchanged, so the loop terminates and the
	// result is the least fixed point.
	for changed := true; changed; {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			out := memutil.NewBitSet(n)
			for _, s := range b.Succs {
				out.Union(liveIn[s.ID()])
			}
			in := memutil.NewBitSet(n)
			in.Copy(out)
			// Walk instructions backward applying (out - def) U use.
			for j := len(b.Instrs) - 1; j >= 0; j-- {
				applyBackward(in, b.Instrs[j])
			}
			if !out.Equal(liveOut[i]) {
				liveOut[i] = out
				changed = true
			}
			if !in.Equal(liveIn[i]) {
				liveIn[i] = in
				changed = true
			}
		}
	}

	// Second pass: replay each block backward from its final liveOut,
	// stamping the per-instruction snapshot and rewriting dead stores.
	for i, b := range blocks {
		live := memutil.NewBitSet(n)
		live.Copy(liveOut[i])
		nextUse := memutil.NewBitSet(n)

		for j := len(b.Instrs) - 1; j >= 0; j-- {
			in := b.Instrs[j]
			if in.IsNop() {
				continue
			}
			desc := opcode.Describe(in.OriginalOpcode())

			in.Live.DestWasLive = in.Dest != nil && live.Test(in.Dest.ID())
			in.Live.DestHadNextUse = in.Dest != nil && nextUse.Test(in.Dest.ID())
			in.Live.Src1WasLive = in.Src1 != nil && live.Test(in.Src1.ID())
			in.Live.Src1HadNextUse = in.Src1 != nil && nextUse.Test(in.Src1.ID())
			in.Live.Src2WasLive = in.Src2 != nil && live.Test(in.Src2.ID())
			in.Live.Src2HadNextUse = in.Src2 != nil && nextUse.Test(in.Src2.ID())

			destDead := in.Dest != nil && !in.Live.DestWasLive && !in.Live.DestHadNextUse
			if destDead && !desc.HasSideEffect() && !desc.DestIsSource() && !desc.IsBranch() && !desc.IsCall() {
				in.RewriteToNop()
				continue
			}

			if in.Dest != nil {
				in.Dest.SetLive(in.Live.DestWasLive)
				in.Dest.SetNextUse(in.Live.DestHadNextUse)
				live.Clear(in.Dest.ID())
				nextUse.Clear(in.Dest.ID())
			}
			for _, src := range []*ssa.Value{in.Src1, in.Src2} {
				if src == nil {
					continue
				}
				if live.Test(src.ID()) {
					nextUse.Set(src.ID())
				}
				live.Set(src.ID())
				src.SetLive(true)
			}
			for _, v := range in.Args {
				if v == nil {
					continue
				}
				live.Set(v.ID())
				nextUse.Set(v.ID())
				v.SetLive(true)
			}
		}
	}
}

// applyBackward updates the running live set in place for one instruction
// during the block-level dataflow fixpoint: drop the destination (a def
// kills liveness above it), then add every source (a use generates
// liveness below it), matching the same def/use shape the annotate pass
// uses, but without touching Instruction/Value state.
func applyBackward(live *memutil.BitSet, in *ssa.Instruction) {
	if in.IsNop() {
		return
	}
	desc := opcode.Describe(in.OriginalOpcode())
	if in.Dest != nil && !desc.DestIsSource() {
		live.Clear(in.Dest.ID())
	}
	if in.Src1 != nil {
		live.Set(in.Src1.ID())
	}
	if in.Src2 != nil {
		live.Set(in.Src2.ID())
	}
	if desc.DestIsSource() && in.Dest != nil {
		live.Set(in.Dest.ID())
	}
	for _, v := range in.Args {
		if v != nil {
			live.Set(v.ID())
		}
	}
}

// Reset clears every value's transient live/next-use flags without
// recomputing them, for a caller that wants to drop stale annotations
// (e.g. before rebuilding a function's IR in place for recompilation).
func Reset(f *ssa.Function) {
	for _, v := range f.Values() {
		v.SetLive(false)
		v.SetNextUse(false)
	}
}
