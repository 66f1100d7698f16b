package liveness

import (
	"testing"

	"jit/internal/ssa"
	"jit/internal/typesys"
)

func assert(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Fatal(msg)
	}
}

// TestDeadStoreRewrittenToNop builds a value that is computed and never
// used, and checks Annotate rewrites its defining instruction to a NOP.
func TestDeadStoreRewrittenToNop(t *testing.T) {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, []*typesys.Type{typesys.IntType}, false)
	f := ssa.New(sig)

	p := f.GetParam(0)
	f.DontFold = true // force a real instruction instead of a constant fold
	if _, err := f.InsnAdd(p, p); err != nil {
		t.Fatal(err)
	}
	if err := f.InsnReturn(p); err != nil {
		t.Fatal(err)
	}
	f.ResolveCFG()
	Annotate(f)

	instrs := f.EntryBlock().Instrs
	assert(t, len(instrs) == 2, "expected add + return")
	assert(t, instrs[0].IsNop(), "dead add should have been rewritten to a NOP")
}

// TestLiveValueSurvives ensures a value that feeds the return is not
// rewritten, and is marked live at its defining instruction.
func TestLiveValueSurvives(t *testing.T) {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, []*typesys.Type{typesys.IntType}, false)
	f := ssa.New(sig)
	p := f.GetParam(0)
	f.DontFold = true
	sum, err := f.InsnAdd(p, p)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.InsnReturn(sum); err != nil {
		t.Fatal(err)
	}
	f.ResolveCFG()
	Annotate(f)

	instrs := f.EntryBlock().Instrs
	assert(t, !instrs[0].IsNop(), "add feeding the return must not be rewritten")
	assert(t, instrs[1].Live.Src1WasLive, "return's operand should be recorded live")
}
