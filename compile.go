package jit

import (
	"fmt"

	"jit/internal/backend"
	"jit/internal/codecache"
	"jit/internal/liveness"
	"jit/internal/regs/amd64"
	"jit/internal/ssa"
)

// initialSizeGuess is the starting native-code size estimate fed to
// codecache.StartMethod, sized generously for the prolog/epilog plus a
// handful of instructions; the restart loop below doubles it on overflow
// rather than trying to estimate precisely, per spec.md §4.I's protocol.
const initialSizeGuess = 256

// compileFunction runs the liveness pass and then drives the
// start_method/emit/end_method restart loop spec.md §4.I and §4.J
// describe: on a RESTART (the buffer overflowed), the half-built page is
// aborted and the whole function is re-emitted into a larger one.
func compileFunction(ctx *Context, f *ssa.Function, ra backend.RegAlloc, be backend.Backend) (*codecache.Region, error) {
	f.ResolveCFG()
	liveness.Annotate(f)

	align := amd64.Rules.FunctionAlign
	sizeGuess := initialSizeGuess

	for attempt := 0; attempt < 16; attempt++ {
		region, err := tryCompileOnce(ctx, f, ra, be, sizeGuess, align)
		if err == errRestart {
			sizeGuess *= 2
			continue
		}
		if err != nil {
			return nil, err
		}
		return region, nil
	}
	return nil, fmt.Errorf("%w: exceeded restart attempts", ErrCacheFull)
}

func tryCompileOnce(ctx *Context, f *ssa.Function, ra backend.RegAlloc, be backend.Backend, sizeGuess, align int) (*codecache.Region, error) {
	b, err := ctx.cache.StartMethod(sizeGuess, align)
	if err == codecache.ErrTooBig {
		return nil, fmt.Errorf("%w: %v", ErrCacheFull, err)
	}
	if err == codecache.ErrCacheFull {
		return nil, ErrCacheFull
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}

	buf := &backend.Buffer{Bytes: b.Code(), Pos: 0, Limit: len(b.Code())}

	var regUsageMask uint64
	be.EmitProlog(buf, f, ra, regUsageMask)

	blockStart := make(map[int]int, len(f.Blocks()))
	type pendingReloc struct {
		reloc  backend.Reloc
		target *ssa.Block
	}
	var pending []pendingReloc
	var debug codecache.DebugMap

	for _, blk := range f.Blocks() {
		blockStart[blk.ID()] = buf.Pos
		for idx, in := range blk.Instrs {
			if in.IsNop() {
				continue
			}
			debug.Mark(int32(buf.Pos), int32(idx))
			reloc, err := be.EmitInstruction(buf, f, in, ra)
			if err != nil {
				ctx.cache.Abort(b)
				return nil, fmt.Errorf("%w: %v", ErrCompileError, err)
			}
			if buf.Overflowed() {
				ctx.cache.Abort(b)
				return nil, errRestart
			}
			if reloc != nil {
				target := blk
				if in.Label != nil && in.Label.Block() != nil {
					target = in.Label.Block()
				}
				pending = append(pending, pendingReloc{reloc: *reloc, target: target})
			}
		}
	}
	be.EmitEpilog(buf, ra, regUsageMask)
	if buf.Overflowed() {
		ctx.cache.Abort(b)
		return nil, errRestart
	}

	relocs := make([]backend.Reloc, len(pending))
	for i, p := range pending {
		start, ok := blockStart[p.target.ID()]
		if !ok {
			ctx.cache.Abort(b)
			return nil, fmt.Errorf("%w: branch target block never emitted", ErrCompileError)
		}
		p.reloc.Target = start
		relocs[i] = p.reloc
	}
	be.FixupBranches(buf, relocs)

	debugBytes := debug.Finish()
	auxOff, err := b.AllocAux(buf.Pos, len(debugBytes))
	if err == codecache.ErrRestart {
		ctx.cache.Abort(b)
		return nil, errRestart
	}
	if err != nil {
		ctx.cache.Abort(b)
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	copy(b.Code()[auxOff:], debugBytes)

	region, err := ctx.cache.EndMethod(b, buf.Pos, f, debugBytes)
	if err == codecache.ErrRestart {
		return nil, errRestart
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	return region, nil
}
