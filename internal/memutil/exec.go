package memutil

import (
	"errors"
	"syscall"
	"unsafe"
)

// ErrOutOfMemory is returned by AllocExecPages when the platform allocator
// cannot satisfy a request for W+X memory.
var ErrOutOfMemory = errors.New("memutil: out of memory")

// PageSize is the allocation granularity for AllocExecPages. It mirrors
// the OS page size rather than hard-coding 4096 so the page-factor math in
// the code cache stays correct on platforms with larger pages.
var PageSize = syscall.Getpagesize()

// ExecPages is a slice of anonymously-mapped memory that is simultaneously
// readable, writable, and executable, as spec.md §4.A requires. The
// technique (mmap a private anonymous region, then mark it RWX) is the one
// the retrieval pack's only JIT example uses for the same purpose; see
// launix-de/memcp's scm-jit.go, which mmaps with PROT_READ|PROT_WRITE and
// then mprotects to PROT_READ|PROT_EXEC. We ask for all three protections
// up front since libjit's page allocator never needs to toggle write
// protection off mid-method.
type ExecPages struct {
	buf []byte
}

// AllocExecPages reserves n pages (rounded up from size) of W+X memory.
func AllocExecPages(size int) (*ExecPages, error) {
	if size <= 0 {
		return nil, errors.New("memutil: non-positive allocation size")
	}
	n := RoundUpToPage(size)
	buf, err := syscall.Mmap(-1, 0, n,
		syscall.PROT_READ|syscall.PROT_WRITE|syscall.PROT_EXEC,
		syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, ErrOutOfMemory
	}
	return &ExecPages{buf: buf}, nil
}

// Bytes exposes the backing storage for writing emitted code into.
func (p *ExecPages) Bytes() []byte { return p.buf }

// Base returns the address of the first byte of the region, as a uintptr
// suitable for arithmetic against other recorded addresses (method start,
// relocation targets, and so on).
func (p *ExecPages) Base() uintptr {
	if len(p.buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&p.buf[0]))
}

// Free unmaps the region. Callers must guarantee no compiled function
// inside it is executing on any thread, per spec.md §5's shared-resource
// policy.
func (p *ExecPages) Free() error {
	if p.buf == nil {
		return nil
	}
	err := syscall.Munmap(p.buf)
	p.buf = nil
	return err
}

// RoundUpToPage rounds size up to the next multiple of PageSize.
func RoundUpToPage(size int) int {
	ps := PageSize
	return (size + ps - 1) &^ (ps - 1)
}

// FlushICache issues whatever fence is required to make bytes written to
// [base, base+size) visible to the instruction fetch unit. On amd64 the
// instruction and data caches are coherent, so this is a no-op; ports to
// architectures with separate I/D caches (the spec names PPC, SPARC, ARM,
// IA-64) would replace this with the appropriate cache-flush syscall or
// builtin. Kept as an explicit call site (rather than inlined at every
// write) so compile() has one place to invoke it between the last byte
// write and publishing the entry point, per spec.md §5's ordering
// guarantee.
func FlushICache(base uintptr, size int) {
	_ = base
	_ = size
}
