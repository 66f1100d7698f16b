// Package jit is the root orchestration layer spec.md §4.J describes: a
// Context owning a builder mutex, a cache mutex, and the code cache
// itself, plus the Function wrapper that ties an IR builder to its
// compiled entry point. It is grounded on the teacher's vm.go, which
// plays the analogous "one mutex-guarded runtime object owns every
// compiled artifact" role for GVM's interpreter, generalized from a
// single global VM instance to a context a host can create many of.
package jit

import (
	"errors"
	"fmt"
	"sync"

	"jit/internal/apply"
	"jit/internal/backend"
	backendamd64 "jit/internal/backend/amd64"
	"jit/internal/codecache"
	"jit/internal/liveness"
	regsamd64 "jit/internal/regs/amd64"
	"jit/internal/ssa"
	"jit/internal/typesys"
)

// Sentinel errors per spec.md §7's taxonomy.
var (
	ErrOutOfMemory     = errors.New("jit: out of memory")
	ErrCompileError    = errors.New("jit: back end rejected an instruction")
	ErrCacheFull       = errors.New("jit: code cache limit reached")
	ErrInvalidArgument = errors.New("jit: invalid argument")
	ErrNullReference   = errors.New("jit: null reference")

	// errRestart is the code cache's internal RESTART signal; it never
	// escapes the compile loop in compile.go.
	errRestart = errors.New("jit: internal restart signal")
)

// Option selects a per-context tunable set via SetOption/GetOption,
// mirroring spec.md §4.J's set_meta_numeric(JIT_OPTION_*) family.
type Option int

const (
	OptionCacheLimit Option = iota
	OptionCachePageSize
	OptionPreCompile
	OptionDontFold
	OptionDebugHook
)

// Context owns a code cache and every function built against it. The
// builder mutex serializes IR construction and compilation; the cache
// mutex (held inside codecache.Cache itself) serializes cache writes.
// Acquisition order is always builder-then-cache, per spec.md §5.
type Context struct {
	builderMu sync.Mutex

	cache *codecache.Cache

	options map[Option]int64

	meta map[string]*ssa.MetaEntry

	functions []*Function
}

const (
	defaultPageSize  = 0 // 0 means "use the OS page size", per codecache.New
	defaultPageLimit = 0 // 0 means unbounded, per spec.md's CACHE_LIMIT semantics
)

// NewContext creates a context with default options (unbounded cache,
// OS page size, folding enabled). Mirrors spec.md §6's context `create()`.
func NewContext() *Context {
	return &Context{
		cache:   codecache.New(defaultPageSize, defaultPageLimit),
		options: make(map[Option]int64),
		meta:    make(map[string]*ssa.MetaEntry),
	}
}

// Destroy releases every page the context's cache owns. The host must
// guarantee no compiled function from this context is executing on any
// thread, per spec.md §5's shared-resource policy.
func (c *Context) Destroy() {
	c.builderMu.Lock()
	defer c.builderMu.Unlock()
	c.cache = nil
	c.functions = nil
}

// BuildStart acquires the builder mutex, bracketing a sequence of
// function-construction and compilation calls.
func (c *Context) BuildStart() { c.builderMu.Lock() }

// BuildEnd releases the builder mutex. After BuildEnd returns, any
// function compiled during the bracket has its entry point safely
// observable by any other thread, per spec.md §5's ordering guarantee.
func (c *Context) BuildEnd() { c.builderMu.Unlock() }

// SetOption records a numeric per-context tunable. CacheLimit and
// CachePageSize only take effect for cache allocations made after the
// call (the cache itself is created once, in NewContext); setting them
// later than the first StartMethod is accepted but has no retroactive
// effect, matching a real libjit's "configure before first use" norm.
func (c *Context) SetOption(opt Option, value int64) {
	c.builderMu.Lock()
	defer c.builderMu.Unlock()
	if c.options == nil {
		c.options = make(map[Option]int64)
	}
	c.options[opt] = value
	if opt == OptionCacheLimit || opt == OptionCachePageSize {
		ps := int(c.options[OptionCachePageSize])
		limit := int(c.options[OptionCacheLimit])
		c.cache = codecache.New(ps, limit)
	}
}

// GetOption returns a previously set option, or 0 if never set.
func (c *Context) GetOption(opt Option) int64 {
	c.builderMu.Lock()
	defer c.builderMu.Unlock()
	return c.options[opt]
}

// SetMeta attaches an opaque (value, destructor) pair to the context
// under key, per spec.md §6's `set_meta(c,key,val,free)`.
func (c *Context) SetMeta(key string, value any, destroy func(any)) {
	c.builderMu.Lock()
	defer c.builderMu.Unlock()
	c.meta[key] = &ssa.MetaEntry{Value: value, Destroy: destroy}
}

// GetMeta returns the value stored under key, or nil if absent.
func (c *Context) GetMeta(key string) any {
	c.builderMu.Lock()
	defer c.builderMu.Unlock()
	if e, ok := c.meta[key]; ok {
		return e.Value
	}
	return nil
}

// Function wraps an ssa.Function with the context it belongs to and the
// compiled-code bookkeeping spec.md §3/§4.J describe: an on-demand
// compiler callback, the published code-cache region once compiled, and
// a registered native-call table for insn_call_native targets.
type Function struct {
	ctx *Context
	ir  *ssa.Function

	region   *codecache.Region
	compiled bool

	onDemand func(*Function) error

	ra backend.RegAlloc
	be backend.Backend
}

// CreateFunction creates a function with the given signature against ctx,
// mirroring spec.md §6's `function_create(c, sig)`. Must be called while
// the builder mutex is held (between BuildStart/BuildEnd).
func (c *Context) CreateFunction(sig *typesys.Type) *Function {
	f := &Function{
		ctx: c,
		ir:  ssa.New(sig),
		ra:  backend.RegAlloc{Rules: regsamd64.Rules, SlotBase: -8, SlotSize: 8},
		be:  backendamd64.Backend{},
	}
	if c.options[OptionDontFold] != 0 {
		f.ir.DontFold = true
	}
	c.functions = append(c.functions, f)
	return f
}

// IR exposes the underlying builder for insn_* calls.
func (f *Function) IR() *ssa.Function { return f.ir }

// SetOnDemand registers a callback invoked the first time this
// function's entry point is needed and is still null, per spec.md §4.J.
func (f *Function) SetOnDemand(cb func(*Function) error) {
	f.onDemand = cb
	f.ir.OnDemand = nil // the ssa-level hook is unused; Function.EnsureCompiled drives on-demand compilation directly
}

// Abandon discards f's builder state without publishing it to the cache,
// per spec.md §5's "free builder state without inserting the function
// into the cache." Must be called while the builder mutex is held.
func (f *Function) Abandon() {
	f.ir = nil
	f.compiled = false
	f.region = nil
}

// Compile runs the full liveness -> codegen -> publish pipeline and
// records the resulting entry point. Safe to call only while the
// builder mutex is held (the caller's BuildStart/BuildEnd bracket).
func (f *Function) Compile() error {
	if f.compiled {
		return nil
	}
	region, err := compileFunction(f.ctx, f.ir, f.ra, f.be)
	if err != nil {
		return err
	}
	f.region = region
	f.ir.PublishEntry(region.Start)
	f.ir.CodeSize = int(region.End - region.Start)
	f.compiled = true
	return nil
}

// EnsureCompiled implements spec.md §4.J's on-demand path: if the entry
// point is still null, it acquires the builder mutex, re-checks (in case
// another thread won the race), invokes the on-demand callback, then
// re-acquires the mutex to compile and publish.
//
// The callback runs with builderMu released. spec.md §9 requires nested
// on-demand compilation to be reentrant-safe: the callback for f may
// itself call EnsureCompiled on another function sharing ctx, and since
// sync.Mutex is never reentrant in Go, holding the lock across the
// callback would deadlock that nested call on the same goroutine.
// Releasing it instead means every EnsureCompiled call, nested or not,
// takes the same lock-check-unlock-callback-lock path; f.compiled is
// re-checked after each reacquire so a racing compile of the same
// function (from the callback itself or another goroutine) is a no-op
// rather than a double compile.
func (f *Function) EnsureCompiled() error {
	if f.compiled {
		return nil
	}
	f.ctx.builderMu.Lock()
	if f.compiled {
		f.ctx.builderMu.Unlock()
		return nil
	}
	cb := f.onDemand
	var cbErr error
	if cb != nil {
		f.ctx.builderMu.Unlock()
		cbErr = cb(f)
		f.ctx.builderMu.Lock()
	}
	defer f.ctx.builderMu.Unlock()
	if cbErr != nil {
		return fmt.Errorf("%w: on-demand compiler: %v", ErrCompileError, cbErr)
	}
	if f.compiled {
		return nil
	}
	return f.Compile()
}

// EntryPoint returns the function's published native entry address, or 0
// if not yet compiled.
func (f *Function) EntryPoint() uintptr {
	if !f.compiled {
		return 0
	}
	return f.region.Start
}

// CodeSize returns the compiled function's native code length in bytes.
func (f *Function) CodeSize() int {
	if !f.compiled {
		return 0
	}
	return int(f.region.End - f.region.Start)
}

// Signature returns the function's type signature.
func (f *Function) Signature() *typesys.Type { return f.ir.Signature }

// applyConfig is the one ABI configuration this module ships, per
// SPEC_FULL.md §6's note that the generator tool is out of scope and we
// hand-author the System V AMD64 record.
var applyConfig = apply.AMD64SysV
