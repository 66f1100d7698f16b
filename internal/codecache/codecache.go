// Package codecache implements the executable code cache spec.md §4.I
// describes: a set of W+X pages carved into method regions, a red-black
// tree mapping any PC back to the region (and so the function) that owns
// it, and the start_method/end_method/alloc_aux protocol a back end uses
// to emit one function at a time with an overflow-triggered restart.
//
// It is grounded on the teacher's approach to owning raw memory directly
// (internal/memutil, adapted from launix-de/memcp's scm-jit.go mmap/
// mprotect technique) generalized from one long-lived bytecode buffer to
// many independently-freeable method regions.
package codecache

import (
	"errors"
	"fmt"
	"sync"

	"jit/internal/memutil"
)

// Sentinel errors per spec.md §4.I / §7.
var (
	// ErrRestart signals that the method being built did not fit in its
	// page and must be retried with a larger page factor; it is not a
	// user-visible failure, only StartMethod/EndMethod's internal protocol.
	ErrRestart = errors.New("codecache: method build must restart with a larger page")

	// ErrTooBig means no page factor this cache supports is large enough,
	// a genuine failure distinct from ErrRestart.
	ErrTooBig = errors.New("codecache: method is too large for any supported page size")

	// ErrCacheFull means the cache's page budget (Limit) is exhausted.
	ErrCacheFull = errors.New("codecache: page limit reached")
)

// maxPageFactor bounds how many doublings StartMethod's restart loop will
// try before giving up with ErrTooBig; 2^maxPageFactor * pageSize is the
// largest single method region this cache will ever allocate.
const maxPageFactor = 6

// Region is one compiled method's published record: its native address
// range, the opaque owner the context layer uses to map back to a
// *jit.Function, and its compressed debug offset map.
type Region struct {
	Start, End uintptr
	Owner      any
	Debug      []byte
}

// page is one W+X mapping the cache owns. Code is written bottom-up from
// the start (writer), auxiliary data (debug maps, constant pools) is
// written top-down from the end (auxTop), the same split spec.md §4.I
// describes for alloc_aux's "grows down from the top of its page".
type page struct {
	mem     *memutil.ExecPages
	base    uintptr
	writer  int
	auxTop  int
	factor  int // size is pageSize << factor
}

func (p *page) free() int { return p.auxTop - p.writer }

// Cache owns every page and the PC index built over their method regions.
type Cache struct {
	mu        sync.Mutex
	pageSize  int
	limit     int // maximum total pages (in pageSize units); 0 means unbounded
	used      int // pages currently committed, counted in pageSize units
	pages     []*page
	tree      rbTree
	functions int
}

// New creates a cache with the given page granularity and an optional
// page budget (limitPages <= 0 means unbounded, per spec.md §7's
// OptionCacheLimit "0 disables the limit").
func New(pageSize, limitPages int) *Cache {
	if pageSize <= 0 {
		pageSize = memutil.PageSize
	}
	return &Cache{pageSize: pageSize, limit: limitPages}
}

// Builder tracks one in-progress method's write cursors across a
// StartMethod/EndMethod pair. A Builder must not outlive its EndMethod
// call; the back end writes into Code() directly between the two.
type Builder struct {
	c        *Cache
	pg       *page
	start    int // offset within pg where this method's code begins
	codeTop  int // current code write cursor, relative to pg.base
	auxFloor int // current aux write cursor, relative to pg.base
	fresh    bool // true if pg was allocated solely for this method
}

// Code returns the byte slice available for instruction emission, running
// from this method's start up to the current aux floor; writers must stop
// at len(Code()) and report overflow by returning codecache.ErrRestart-
// worthy state to StartMethod's caller (the back end's Buffer.Limit is set
// to exactly this length).
func (b *Builder) Code() []byte {
	return b.pg.mem.Bytes()[b.start:b.auxFloor]
}

// Base is the address instructions should treat as PC 0 for this method.
func (b *Builder) Base() uintptr { return b.pg.base + uintptr(b.start) }

// AllocAux reserves size bytes from the top of the page for non-code data
// (a debug map, a jump table, a constant pool) and returns their offset
// within Code(), or an error if the page is out of room — which the
// caller should treat exactly like a code-buffer overflow and restart.
// writerPos is the caller's current code-write cursor (an offset into
// Code(), i.e. relative to b.Base()), since the Builder itself does not
// observe the back end's writes as they happen.
func (b *Builder) AllocAux(writerPos, size int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("codecache: negative aux size %d", size)
	}
	newFloor := b.auxFloor - size
	if newFloor < b.start+writerPos {
		return 0, ErrRestart
	}
	b.auxFloor = newFloor
	return b.auxFloor - b.start, nil
}

// StartMethod begins building one method. minSize is the caller's best
// estimate of the native code size (from IR instruction count); the cache
// picks the smallest page factor whose free space can plausibly hold it,
// allocating a fresh page when no existing one has room. align is the
// function-entry alignment the architecture's Rules.FunctionAlign demands.
func (c *Cache) StartMethod(minSize, align int) (*Builder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, pg := range c.pages {
		start := alignUp(pg.writer, align)
		if start+minSize <= pg.auxTop {
			return &Builder{c: c, pg: pg, start: start, codeTop: start, auxFloor: pg.auxTop}, nil
		}
	}

	factor := 0
	for (c.pageSize << factor) < minSize {
		factor++
		if factor > maxPageFactor {
			return nil, ErrTooBig
		}
	}
	pg, err := c.allocPage(factor)
	if err != nil {
		return nil, err
	}
	start := alignUp(pg.writer, align)
	if start+minSize > pg.auxTop {
		return nil, ErrTooBig
	}
	return &Builder{c: c, pg: pg, start: start, codeTop: start, auxFloor: pg.auxTop, fresh: true}, nil
}

func (c *Cache) allocPage(factor int) (*page, error) {
	size := c.pageSize << factor
	pages := size / c.pageSize
	if c.limit > 0 && c.used+pages > c.limit {
		return nil, ErrCacheFull
	}
	mem, err := memutil.AllocExecPages(size)
	if err != nil {
		return nil, fmt.Errorf("codecache: %w", err)
	}
	pg := &page{mem: mem, base: mem.Base(), writer: 0, auxTop: len(mem.Bytes()), factor: factor}
	c.pages = append(c.pages, pg)
	c.used += pages
	return pg, nil
}

// EndMethod publishes the method built through b: it advances the page's
// write cursor past the actual code length written (codeLen, measured
// from b.Base()), records debug in the region, and inserts the region
// into the PC index so Lookup can find it.
//
// If codeLen (plus any aux already reserved) did not fit — the back end
// hit buf.Overflowed() mid-emission — callers must not call EndMethod at
// all; instead call Abort, which releases a freshly-allocated page back
// to the OS (refunding the budget) so the caller can retry with a larger
// minSize, matching spec.md §4.I's restart protocol.
func (c *Cache) EndMethod(b *Builder, codeLen int, owner any, debug []byte) (*Region, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := b.start + codeLen
	if end > b.auxFloor {
		return nil, ErrRestart
	}
	b.pg.writer = end
	b.pg.auxTop = b.auxFloor // any aux bytes this method reserved are now permanently consumed
	memutil.FlushICache(b.pg.base+uintptr(b.start), codeLen)

	r := &Region{
		Start: b.Base(),
		End:   b.pg.base + uintptr(end),
		Owner: owner,
		Debug: debug,
	}
	c.tree.insert(r)
	c.functions++
	return r, nil
}

// Abort releases a method build that overflowed without publishing
// anything; if the page was allocated solely for this attempt, it is
// unmapped and its budget refunded so StartMethod can retry with a
// larger page factor without leaking a half-used region.
func (c *Cache) Abort(b *Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.fresh {
		for i, pg := range c.pages {
			if pg == b.pg {
				c.pages = append(c.pages[:i], c.pages[i+1:]...)
				break
			}
		}
		c.used -= (c.pageSize << b.pg.factor) / c.pageSize
		b.pg.mem.Free()
	}
}

// Lookup returns the region containing pc, or nil if pc is not inside any
// published method (spec.md §4.I's "unwind and backtrace both need PC ->
// function in O(log n)").
func (c *Cache) Lookup(pc uintptr) *Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.find(pc)
}

// FunctionCount reports how many methods have been published, mainly for
// diagnostics and tests.
func (c *Cache) FunctionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.functions
}

// UsedPages reports the current page budget consumption in pageSize units.
func (c *Cache) UsedPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func alignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
