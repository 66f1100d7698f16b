// Package amd64 supplies the System V AMD64 register-and-frame table
// spec.md §4.G asks each architecture port to provide, grounded on the
// general-purpose/XMM register set and the System V calling convention's
// integer and SSE argument-register assignment.
package amd64

import "jit/internal/regs"

// Encoding numbers match the x86-64 ModRM/REX register field values, so
// the back end can use them directly when building instruction bytes.
const (
	RAX = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// XMM encodings share the same 0-15 numbering space in a separate
// register file; the back end distinguishes them by the register's
// IsFloat flag rather than by encoding range.
const (
	XMM0 = iota
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
)

// Rules is the register-and-frame-rule table for this architecture.
var Rules = regs.Rules{
	Registers: Register64Table(),

	NumGlobalRegs:    6, // rbx, r12-r15, rbp-when-not-needed-as-frame-ptr
	LoadStoreOnly:    false,
	PrologByteBudget: 16, // push rbp; mov rbp,rsp; sub rsp,imm32
	FunctionAlign:    16,
	UnalignedLoad:    true,

	IntParamRegs:   []int{RDI, RSI, RDX, RCX, R8, R9},
	FloatParamRegs: []int{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7},

	InitialStackOffset: 16, // saved return address + saved frame pointer
	InitialFrameSize:   16,
}

// Register64Table is a function (not a bare literal) because Go var
// initialization order would otherwise force RAX..R15 to be declared
// before Rules in the same file in a fragile way; wrapping it keeps the
// table construction self-contained and easy to extend per register.
func Register64Table() []regs.Register {
	return []regs.Register{
		{Name: "rax", Encoding: RAX, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "rcx", Encoding: RCX, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "rdx", Encoding: RDX, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "rbx", Encoding: RBX, Paired: -1, Flags: regs.IsWordGPR | regs.CalleeSaved | regs.Global},
		{Name: "rsp", Encoding: RSP, Paired: -1, Flags: regs.IsWordGPR | regs.Fixed | regs.StackPointer},
		{Name: "rbp", Encoding: RBP, Paired: -1, Flags: regs.IsWordGPR | regs.Fixed | regs.FramePointer},
		{Name: "rsi", Encoding: RSI, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "rdi", Encoding: RDI, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "r8", Encoding: R8, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "r9", Encoding: R9, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "r10", Encoding: R10, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "r11", Encoding: R11, Paired: -1, Flags: regs.IsWordGPR | regs.CallUsed},
		{Name: "r12", Encoding: R12, Paired: -1, Flags: regs.IsWordGPR | regs.CalleeSaved | regs.Global},
		{Name: "r13", Encoding: R13, Paired: -1, Flags: regs.IsWordGPR | regs.CalleeSaved | regs.Global},
		{Name: "r14", Encoding: R14, Paired: -1, Flags: regs.IsWordGPR | regs.CalleeSaved | regs.Global},
		{Name: "r15", Encoding: R15, Paired: -1, Flags: regs.IsWordGPR | regs.CalleeSaved | regs.Global},
		{Name: "xmm0", Encoding: XMM0, Paired: -1, Flags: regs.IsFloat | regs.CallUsed},
		{Name: "xmm1", Encoding: XMM1, Paired: -1, Flags: regs.IsFloat | regs.CallUsed},
		{Name: "xmm2", Encoding: XMM2, Paired: -1, Flags: regs.IsFloat | regs.CallUsed},
		{Name: "xmm3", Encoding: XMM3, Paired: -1, Flags: regs.IsFloat | regs.CallUsed},
		{Name: "xmm4", Encoding: XMM4, Paired: -1, Flags: regs.IsFloat | regs.CallUsed},
		{Name: "xmm5", Encoding: XMM5, Paired: -1, Flags: regs.IsFloat | regs.CallUsed},
		{Name: "xmm6", Encoding: XMM6, Paired: -1, Flags: regs.IsFloat | regs.CallUsed},
		{Name: "xmm7", Encoding: XMM7, Paired: -1, Flags: regs.IsFloat | regs.CallUsed},
	}
}
