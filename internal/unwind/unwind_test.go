package unwind

import (
	"testing"

	"jit/internal/codecache"
)

func assert(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Fatal(msg)
	}
}

func TestExplicitWalkerStepsThroughFramesAndStops(t *testing.T) {
	c := codecache.New(4096, 0)
	b, err := c.StartMethod(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	var dbg codecache.DebugMap
	dbg.Mark(0, 0)
	debug := dbg.Finish()
	r, err := c.EndMethod(b, 4, "fn-a", debug)
	if err != nil {
		t.Fatal(err)
	}

	frames := []Frame{
		{PC: r.Start + 1, FP: 0x1000},
		{PC: r.Start, FP: 0x2000},
	}
	w := NewExplicitWalker(c, frames)
	f0, err := w.Init()
	if err != nil {
		t.Fatal(err)
	}
	assert(t, f0.Owner == "fn-a", "innermost frame should resolve to the published region's owner")
	assert(t, f0.HasBytecode && f0.BytecodeAddr == 0, "expected bytecode mark 0 for offset within the method")

	f1, err := w.Next()
	if err != nil {
		t.Fatal(err)
	}
	assert(t, f1.Owner == "fn-a", "second frame is still inside the same region")

	_, err = w.Next()
	assert(t, err == ErrNoFrame, "walker should report no more frames once the list is exhausted")
}

func TestJumpOnlyValidForExplicitList(t *testing.T) {
	w := NewFramePointerWalker(nil, 0, 0)
	if err := w.Jump(0); err == nil {
		t.Fatal("Jump should fail on a frame-pointer-chain walker")
	}
}

func TestFramePointerWalkerStopsAtNilFrame(t *testing.T) {
	w := NewFramePointerWalker(nil, 0, 0)
	_, err := w.Init()
	assert(t, err == ErrNoFrame, "a zero frame pointer should immediately report no frame")
}
