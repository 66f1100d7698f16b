package jit

import (
	"reflect"
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

// buildMulAdd builds int mul_add(int x, int y, int z) { return x*y+z; },
// spec.md §8 scenario 1.
func buildMulAdd(ctx *Context) *Function {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, []*typesys.Type{typesys.IntType, typesys.IntType, typesys.IntType}, false)
	fn := ctx.CreateFunction(sig)
	f := fn.IR()
	x, y, z := f.GetParam(0), f.GetParam(1), f.GetParam(2)
	mul, err := f.InsnMul(x, y)
	if err != nil {
		panic(err)
	}
	sum, err := f.InsnAdd(mul, z)
	if err != nil {
		panic(err)
	}
	if err := f.InsnReturn(sum); err != nil {
		panic(err)
	}
	return fn
}

func TestMulAddEndToEnd(t *testing.T) {
	ctx := NewContext()
	ctx.BuildStart()
	fn := buildMulAdd(ctx)
	err := fn.Compile()
	ctx.BuildEnd()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct{ x, y, z, want int64 }{
		{3, 5, 2, 17},
		{13, 5, 7, 72},
		{2, 18, -3, 33},
	}
	for _, c := range cases {
		got, err := fn.Apply([]int64{c.x, c.y, c.z})
		if err != nil {
			t.Fatal(err)
		}
		assert(t, got == c.want, "mul_add result mismatch")
	}
}

// buildFactorial builds int fact(int n) { return n<=1 ? 1 : n*fact(n-1); },
// spec.md §8 scenario 2. The recursive call targets fn's own ssa.Function
// before fn is compiled, exercising the call-through-entry-cell path
// (internal/ssa's EntryCellAddr/PublishEntry) since the self entry point
// is still unknown at emission time.
func buildFactorial(ctx *Context) *Function {
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, []*typesys.Type{typesys.IntType}, false)
	fn := ctx.CreateFunction(sig)
	f := fn.IR()
	n := f.GetParam(0)

	one := f.CreateIntConstant(1)
	baseCase := f.NewLabel()
	if err := f.InsnBranchIfLe(n, one, baseCase); err != nil {
		panic(err)
	}

	nMinus1, err := f.InsnSub(n, one)
	if err != nil {
		panic(err)
	}
	sub, err := f.InsnCallDirect(f, []*ssa.Value{nMinus1}, 0)
	if err != nil {
		panic(err)
	}
	result, err := f.InsnMul(n, sub)
	if err != nil {
		panic(err)
	}
	if err := f.InsnReturn(result); err != nil {
		panic(err)
	}

	if err := f.BindLabel(baseCase); err != nil {
		panic(err)
	}
	if err := f.InsnReturn(one); err != nil {
		panic(err)
	}
	return fn
}

func TestFactorialEndToEnd(t *testing.T) {
	ctx := NewContext()
	ctx.BuildStart()
	fn := buildFactorial(ctx)
	err := fn.Compile()
	ctx.BuildEnd()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct{ n, want int64 }{
		{0, 1},
		{1, 1},
		{5, 120},
		{10, 3628800},
	}
	for _, c := range cases {
		got, err := fn.Apply([]int64{c.n})
		if err != nil {
			t.Fatal(err)
		}
		assert(t, got == c.want, "factorial result mismatch")
	}
}

// TestConstantLeafCompilesToMinimalCode covers spec.md §8 scenario 3: a
// leaf function that only returns a constant should have its
// constant-producing instruction folded away entirely (insn_add-style
// folding has no analogue here; the constant itself is emitted with no
// instruction per spec.md §3's hash-consing note), leaving return as the
// only real instruction in the block.
func TestConstantLeafCompilesToMinimalCode(t *testing.T) {
	ctx := NewContext()
	ctx.BuildStart()
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
	fn := ctx.CreateFunction(sig)
	f := fn.IR()
	seven := f.CreateIntConstant(7)
	if err := f.InsnReturn(seven); err != nil {
		t.Fatal(err)
	}
	if err := fn.Compile(); err != nil {
		t.Fatal(err)
	}
	ctx.BuildEnd()

	nonNop := 0
	for _, blk := range f.Blocks() {
		for _, in := range blk.Instrs {
			if !in.IsNop() {
				nonNop++
			}
		}
	}
	assert(t, nonNop == 1, "a constant-only leaf should lower to exactly one real instruction (the return)")

	got, err := fn.Apply(nil)
	if err != nil {
		t.Fatal(err)
	}
	assert(t, got == 7, "expected the folded constant to be returned")
}

// TestCacheOverflowYieldsCacheFull covers spec.md §8 scenario 4: with a
// tightly bounded page budget, eventually a method can no longer fit and
// every function compiled before that point remains callable.
func TestCacheOverflowYieldsCacheFull(t *testing.T) {
	ctx := NewContext()
	ctx.SetOption(OptionCachePageSize, 4096)
	ctx.SetOption(OptionCacheLimit, 4)

	var compiled []*Function
	var sawCacheFull bool
	for i := 0; i < 1024 && !sawCacheFull; i++ {
		ctx.BuildStart()
		sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, nil, false)
		fn := ctx.CreateFunction(sig)
		f := fn.IR()
		c := f.CreateIntConstant(int32(i))
		if err := f.InsnReturn(c); err != nil {
			t.Fatal(err)
		}
		err := fn.Compile()
		ctx.BuildEnd()
		if err != nil {
			if err == ErrCacheFull {
				sawCacheFull = true
				break
			}
			t.Fatal(err)
		}
		compiled = append(compiled, fn)
	}
	assert(t, len(compiled) > 0, "at least some methods should have been published before the cache filled")

	for i, fn := range compiled {
		got, err := fn.Apply(nil)
		if err != nil {
			t.Fatal(err)
		}
		assert(t, got == int64(i), "every previously published function must remain callable and correct")
	}
}

// nativeAdd stands in for the "user C function int add(int,int)" spec.md
// §8 scenario 5 names; grounded on the same reflect.ValueOf(fn).Pointer()
// technique the retrieval pack's JIT reference (launix-de/memcp's
// scm-jit.go) uses to obtain a callable address for a host function.
func nativeAdd(a, b int64) int64 { return a + b }

func TestCallNativeEndToEnd(t *testing.T) {
	ctx := NewContext()
	ctx.BuildStart()
	sig := typesys.CreateSignature(typesys.ABICdecl, typesys.IntType, []*typesys.Type{typesys.IntType, typesys.IntType}, false)
	fn := ctx.CreateFunction(sig)
	f := fn.IR()
	x, y := f.GetParam(0), f.GetParam(1)

	addr := reflect.ValueOf(nativeAdd).Pointer()
	addrConst := f.CreatePointerConstant(typesys.VoidPtrType, uintptr(addr))

	result, err := f.InsnCallNative(addrConst, sig, []*ssa.Value{x, y})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.InsnReturn(result); err != nil {
		t.Fatal(err)
	}
	err = fn.Compile()
	ctx.BuildEnd()
	if err != nil {
		t.Fatal(err)
	}

	got, err := fn.Apply([]int64{4, 9})
	if err != nil {
		t.Fatal(err)
	}
	assert(t, got == 13, "native call result mismatch")
}

// TestConcurrentBuildAndCall covers spec.md §8 scenario 6: build+compile
// on one goroutine inside a BuildStart/BuildEnd bracket, then read the
// entry point and call from another goroutine once BuildEnd has returned.
func TestConcurrentBuildAndCall(t *testing.T) {
	ctx := NewContext()
	done := make(chan *Function, 1)

	go func() {
		ctx.BuildStart()
		fn := buildMulAdd(ctx)
		if err := fn.Compile(); err != nil {
			t.Error(err)
		}
		ctx.BuildEnd()
		done <- fn
	}()

	fn := <-done
	got, err := fn.Apply([]int64{3, 5, 2})
	if err != nil {
		t.Fatal(err)
	}
	assert(t, got == 17, "concurrently compiled function should still compute the right result")
}
