// Package ssa implements spec.md §3/§4.D's function builder and IR: typed
// values, three-address instructions with up to three operands, basic
// blocks linked by labels, and the builder API that emits them. It plays
// the role the teacher's vm/compile.go plays for GVM's stack bytecode,
// generalized from "compile a line of assembly text" to "build a
// three-address SSA-flavored instruction stream."
package ssa

import "jit/internal/typesys"

// StorageClass is the home of a Value, fixed for its lifetime per
// spec.md §3's Value invariant ("a value's function, type, and storage
// class never change after creation").
type StorageClass uint8

const (
	Temporary StorageClass = iota
	Local
	Parameter
	Constant
	Global
)

// ValueFlags carries the persistent flags (set once, by the host) and the
// transient live/next-use flags the liveness pass recomputes every time
// it walks a block.
type ValueFlags uint8

const (
	FlagVolatile ValueFlags = 1 << iota
	FlagAddressable
	flagLive    // transient: recomputed by the liveness pass
	flagNextUse // transient: recomputed by the liveness pass
)

// noSlot is the sentinel meaning "the allocator has not assigned this
// value a home yet."
const noSlot = -1

// Value belongs to exactly one Function. See spec.md §3's Value entry.
type Value struct {
	id int // index into Function.values, stable for the value's lifetime

	Type    *typesys.Type
	Storage StorageClass

	// ConstBits holds the raw bit pattern of a scalar constant
	// (reinterpreted per Type.Kind()); ConstBytes holds the payload for
	// an aggregate constant. Only meaningful when Storage == Constant.
	ConstBits  uint64
	ConstBytes []byte

	flags ValueFlags

	// reg/slot are populated by a register allocator built on top of
	// this package; -1 means "not yet allocated." Neither field is read
	// or written by anything in this package beyond the accessors below.
	reg  int
	slot int
}

func newValue(id int, t *typesys.Type, storage StorageClass) *Value {
	return &Value{id: id, Type: t, Storage: storage, reg: noSlot, slot: noSlot}
}

// ID returns the value's stable index within its owning function.
func (v *Value) ID() int { return v.id }

// IsTemporary, IsLocal, IsConstant report the value's storage class;
// spec.md §6 lists these as part of the public Value surface.
func (v *Value) IsTemporary() bool { return v.Storage == Temporary }
func (v *Value) IsLocal() bool     { return v.Storage == Local }
func (v *Value) IsConstant() bool  { return v.Storage == Constant }

// SetVolatile/SetAddressable set the corresponding persistent flag.
func (v *Value) SetVolatile()    { v.flags |= FlagVolatile }
func (v *Value) SetAddressable() { v.flags |= FlagAddressable }
func (v *Value) IsVolatile() bool    { return v.flags&FlagVolatile != 0 }
func (v *Value) IsAddressable() bool { return v.flags&FlagAddressable != 0 }

// Reg/Slot and their setters are the handoff point to a register
// allocator: this package never reads them.
func (v *Value) Reg() int       { return v.reg }
func (v *Value) SetReg(r int)   { v.reg = r; v.slot = noSlot }
func (v *Value) Slot() int      { return v.slot }
func (v *Value) SetSlot(s int)  { v.slot = s; v.reg = noSlot }
func (v *Value) HasHome() bool  { return v.reg != noSlot || v.slot != noSlot }

// --- liveness-transient accessors. These are exported because the
// liveness pass lives in a separate package (internal/liveness) per
// spec.md §2's component split, but they are not meant for host callers:
// the values they expose are overwritten on every pass.

// Live reports the value's "live on exit" transient flag as of the last
// liveness pass.
func (v *Value) Live() bool { return v.flags&flagLive != 0 }

// NextUse reports the value's "has a later use in this block" transient
// flag as of the last liveness pass.
func (v *Value) NextUse() bool { return v.flags&flagNextUse != 0 }

// SetLive sets/clears the transient live flag.
func (v *Value) SetLive(b bool) {
	if b {
		v.flags |= flagLive
	} else {
		v.flags &^= flagLive
	}
}

// SetNextUse sets/clears the transient next-use flag.
func (v *Value) SetNextUse(b bool) {
	if b {
		v.flags |= flagNextUse
	} else {
		v.flags &^= flagNextUse
	}
}
