package ssa

import (
	"testing"

	"jit/internal/typesys"
)

func assert(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Fatal(msg)
	}
}

func TestConstantFoldingAdd(t *testing.T) {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	f := New(sig)

	a := f.CreateIntConstant(3)
	b := f.CreateIntConstant(4)
	sum, err := f.InsnAdd(a, b)
	assert(t, err == nil, "InsnAdd returned an error")
	assert(t, sum.IsConstant(), "constant operands should fold")
	assert(t, sum.ConstBits == 7, "3+4 should fold to 7")
	assert(t, len(f.EntryBlock().Instrs) == 0, "a folded add must not emit an instruction")
}

func TestConstantFoldingDivByZeroDoesNotFold(t *testing.T) {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	f := New(sig)

	a := f.CreateIntConstant(10)
	zero := f.CreateIntConstant(0)
	_, err := f.InsnDiv(a, zero)
	assert(t, err == nil, "InsnDiv returned an error")
	assert(t, len(f.EntryBlock().Instrs) == 1, "division by a constant zero must emit a real instruction, not fold")
}

func TestDontFoldSuppressesFolding(t *testing.T) {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	f := New(sig)
	f.DontFold = true

	a := f.CreateIntConstant(3)
	b := f.CreateIntConstant(4)
	sum, err := f.InsnAdd(a, b)
	assert(t, err == nil, "InsnAdd returned an error")
	assert(t, !sum.IsConstant(), "DontFold must suppress constant folding")
	assert(t, len(f.EntryBlock().Instrs) == 1, "DontFold must still emit an instruction")
}

func TestOverflowVariantNeverFolds(t *testing.T) {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	f := New(sig)

	a := f.CreateIntConstant(3)
	b := f.CreateIntConstant(4)
	sum, err := f.InsnAddOvf(a, b)
	assert(t, err == nil, "InsnAddOvf returned an error")
	assert(t, !sum.IsConstant(), "overflow-checking opcodes must never fold")
	assert(t, len(f.EntryBlock().Instrs) == 1, "InsnAddOvf must emit a real instruction")
}

func TestBranchWiresCFGEdge(t *testing.T) {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.VoidType, nil, false)
	f := New(sig)

	lbl := f.NewLabel()
	cond := f.GetParam(0)
	_ = cond
	if err := f.InsnBranch(lbl); err != nil {
		t.Fatal(err)
	}
	if err := f.BindLabel(lbl); err != nil {
		t.Fatal(err)
	}
	if err := f.InsnReturnVoid(); err != nil {
		t.Fatal(err)
	}
	f.ResolveCFG()

	assert(t, len(f.Blocks()) == 2, "branch + bound label should produce two blocks")
	assert(t, len(f.Blocks()[0].Succs) == 1, "branch block should have one successor")
	assert(t, f.Blocks()[0].Succs[0] == f.Blocks()[1], "branch should target the label's block")
}

func TestCallDirectReturnsTypedValue(t *testing.T) {
	calleeSig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, []*typesys.Type{typesys.IntType}, false)
	callee := New(calleeSig)

	callerSig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	caller := New(callerSig)

	arg := caller.CreateIntConstant(5)
	result, err := caller.InsnCallDirect(callee, []*Value{arg}, 0)
	assert(t, err == nil, "InsnCallDirect returned an error")
	assert(t, result != nil, "a non-void call should produce a result value")
	assert(t, result.Type.Is(typesys.IntType), "result should carry the callee's return type")
	assert(t, len(caller.EntryBlock().Instrs) == 1, "a call is never folded")
}

func TestWrongFunctionValueRejected(t *testing.T) {
	sigA := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	sigB := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	a := New(sigA)
	b := New(sigB)

	foreign := a.CreateIntConstant(1)
	local := b.CreateIntConstant(2)
	_, err := b.InsnAdd(foreign, local)
	assert(t, err != nil, "an operand from a different function must be rejected")
}

func TestConstantHashConsing(t *testing.T) {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	f := New(sig)

	a := f.CreateIntConstant(42)
	b := f.CreateIntConstant(42)
	assert(t, a == b, "identical scalar constants should be hash-consed")
}
