// Package unwind implements the stack walker spec.md §4.K describes: given
// a starting PC/frame-pointer pair, step from callee to caller one frame
// at a time, resolving each PC back to the function that owns it via the
// code cache's index, stopping at the first frame outside any compiled
// function.
//
// It is grounded on the teacher's GVM call-stack handling (vm/vm.go's
// frame slice, popped on return) generalized from "the VM owns every
// frame in a slice it controls" to "frames live in raw native memory we
// only know the layout of by convention" — the frame-pointer-chain mode
// below is the native analogue of that same pop-on-return discipline.
package unwind

import (
	"errors"
	"unsafe"

	"jit/internal/codecache"
)

// ErrNoFrame is returned by Next once the walk has exhausted every frame
// (reached a PC the cache does not own, or a nil frame pointer).
var ErrNoFrame = errors.New("unwind: no more frames")

// Mode selects how Walker reads the next frame, mirroring spec.md §4.K's
// two supported strategies.
type Mode int

const (
	// FramePointerChain follows the standard x86-64 convention: each
	// frame's first 8 bytes hold the caller's saved frame pointer, and
	// the 8 bytes above that hold the return address. This requires the
	// back end to have emitted `push rbp; mov rbp, rsp` prologues, which
	// internal/backend/amd64 always does.
	FramePointerChain Mode = iota

	// ExplicitList walks a caller-supplied slice of (pc, fp) pairs
	// instead of dereferencing memory, for contexts where frames were
	// recorded at call time rather than chained through rbp (e.g. a
	// host-language native frame interleaved with compiled ones, which
	// spec.md §4.K calls out as not having a frame pointer record).
	ExplicitList
)

// Frame is one entry a Walker yields: the return PC, the frame pointer at
// that point, and (if resolvable) which function and bytecode offset it
// corresponds to.
type Frame struct {
	PC           uintptr
	FP           uintptr
	Owner        any
	BytecodeAddr int32
	HasBytecode  bool
}

// Walker steps backward through the call stack one frame at a time.
type Walker struct {
	cache *codecache.Cache
	mode  Mode

	pc, fp uintptr
	list   []Frame
	idx    int

	done bool
}

// NewFramePointerWalker begins a frame-pointer-chain walk at (pc, fp).
func NewFramePointerWalker(cache *codecache.Cache, pc, fp uintptr) *Walker {
	return &Walker{cache: cache, mode: FramePointerChain, pc: pc, fp: fp}
}

// NewExplicitWalker begins a walk over a pre-recorded list of frames,
// innermost (most recent call) first.
func NewExplicitWalker(cache *codecache.Cache, frames []Frame) *Walker {
	return &Walker{cache: cache, mode: ExplicitList, list: frames}
}

// Init resolves the walker's current position against the code cache
// without advancing, returning the innermost frame. Callers should call
// Init once before the first Next.
func (w *Walker) Init() (Frame, error) {
	switch w.mode {
	case ExplicitList:
		if len(w.list) == 0 {
			w.done = true
			return Frame{}, ErrNoFrame
		}
		return w.resolve(w.list[0].PC, w.list[0].FP), nil
	default:
		if w.fp == 0 {
			w.done = true
			return Frame{}, ErrNoFrame
		}
		return w.resolve(w.pc, w.fp), nil
	}
}

// Next advances to the caller's frame and returns it, or ErrNoFrame once
// the walk reaches a PC the code cache does not recognize (the boundary
// spec.md §4.K describes between compiled code and whatever called into
// it — a host trampoline, main, or a thread entry point).
func (w *Walker) Next() (Frame, error) {
	if w.done {
		return Frame{}, ErrNoFrame
	}
	switch w.mode {
	case ExplicitList:
		w.idx++
		if w.idx >= len(w.list) {
			w.done = true
			return Frame{}, ErrNoFrame
		}
		f := w.list[w.idx]
		return w.resolve(f.PC, f.FP), nil

	default:
		if w.fp == 0 {
			w.done = true
			return Frame{}, ErrNoFrame
		}
		callerFP := *(*uintptr)(unsafe.Pointer(w.fp))
		returnPC := *(*uintptr)(unsafe.Pointer(w.fp + unsafe.Sizeof(uintptr(0))))
		if callerFP == 0 || returnPC == 0 {
			w.done = true
			return Frame{}, ErrNoFrame
		}
		w.fp = callerFP
		w.pc = returnPC
		r := w.resolve(w.pc, w.fp)
		if r.Owner == nil {
			// Stepped outside any compiled function; this is the boundary,
			// not an error the caller needs reported differently, but we
			// still hand back the frame once so the caller can see the
			// raw PC before stopping.
			w.done = true
		}
		return r, nil
	}
}

func (w *Walker) resolve(pc, fp uintptr) Frame {
	f := Frame{PC: pc, FP: fp}
	if w.cache == nil {
		return f
	}
	region := w.cache.Lookup(pc)
	if region == nil {
		return f
	}
	f.Owner = region.Owner
	offs, idxs := codecache.DecodeDebugMap(region.Debug)
	if len(offs) > 0 {
		if idx, ok := codecache.LookupBytecode(offs, idxs, int32(pc-region.Start)); ok {
			f.BytecodeAddr = idx
			f.HasBytecode = true
		}
	}
	return f
}

// GetPC returns the walker's current PC without advancing.
func (w *Walker) GetPC() uintptr { return w.pc }

// GetFP returns the walker's current frame pointer without advancing.
func (w *Walker) GetFP() uintptr { return w.fp }

// Jump repositions an ExplicitList walker at a specific index, used by a
// debugger stepping back to a previously visited frame without rebuilding
// the walker (spec.md §4.K's "jump back to a saved frame" operation).
func (w *Walker) Jump(index int) error {
	if w.mode != ExplicitList {
		return errors.New("unwind: Jump is only valid for an ExplicitList walker")
	}
	if index < 0 || index >= len(w.list) {
		return ErrNoFrame
	}
	w.idx = index
	w.done = false
	return nil
}
