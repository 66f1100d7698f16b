// Package typesys implements the reference-counted, structurally
// composable type descriptor tree described in spec.md §3 and §4.B: a
// small DAG of primitives, pointers, structs/unions with computed layout,
// function signatures carrying an ABI, and tag wrappers carrying opaque
// user metadata. It is modeled on dpas-types.c from the libjit sources
// under _examples/original_source/dpas, generalized from a single
// front-end's type table into a standalone, reusable package.
package typesys

import (
	"sync/atomic"
	"unsafe"
)

// Kind identifies the shape of a Type. Values below FirstTagKind are
// built-in; a tag node's Kind is FirstTagKind plus its user-supplied tag
// number, exactly as spec.md §3 describes ("a tagged-wrapper kind ≥ a
// sentinel").
type Kind int32

const (
	Void Kind = iota
	SByte
	UByte
	Short
	UShort
	Int
	UInt
	Long
	ULong
	Float32
	Float64
	NFloat
	// NInt and NUInt are the native-word-size integer kinds; Normalize
	// maps them onto Int/UInt or Long/ULong depending on host word size.
	NInt
	NUInt
	Pointer
	Struct
	Union
	Signature

	// FirstTagKind is the sentinel past which Kind values identify a tag
	// wrapper; tag kind numbers supplied by callers are added to it.
	FirstTagKind Kind = 1000
)

// ABI selects the calling convention carried by a Signature type.
type ABI int

const (
	ABICdecl ABI = iota
	ABIVararg
	ABIStdcall
	ABIFastcall
)

// wordSize is the host's native integer width in bytes, used by Normalize
// and the layout algorithm. amd64 and arm64 are both 8; this is computed
// once from a constant-folded expression rather than probing at runtime,
// the same way the teacher precomputes constants instead of branching in
// a hot path.
const wordSize = 8 // uintptr(0) size on every 64-bit arch this library targets

// Component describes one field of a struct/union or one parameter of a
// signature. Offset is only meaningful for struct fields.
type Component struct {
	Name           string
	Type           *Type
	Offset         int32
	offsetExplicit bool
}

// Type is an immutable-after-finalization descriptor node. Layout (Size,
// Align, and field Offsets) is computed lazily and cached; see
// computeLayout. Types form a DAG through SubType (pointer element,
// signature return type, tag underlying type) and Components (struct
// fields, signature parameters) — never a cycle, so plain reference
// counting is sufficient (spec.md §9, "Reference-counted type graph").
type Type struct {
	kind Kind

	refCount int32 // atomic; pinned primitives never reach zero
	pinned   bool

	size  int32
	align int32

	sizeComputed   bool
	explicitSize   bool // prevents automatic shrinkage once set
	explicitAlign  bool
	layoutComputed bool

	subType    *Type
	components []*Component

	abi ABI // meaningful only when kind == Signature

	tagKind int
	tagData any
	tagFree func(any)
}

// Kind reports the descriptor's shape.
func (t *Type) Kind() Kind { return t.kind }

// newType allocates a zero-valued descriptor of the given kind with a
// single reference.
func newType(k Kind) *Type {
	return &Type{kind: k, refCount: 1}
}

// Copy increments the reference count and returns t, matching libjit's
// jit_type_copy: types are shared, not deep-copied, when "incref" is
// requested by a caller that wants to keep its own handle alive.
func (t *Type) Copy() *Type {
	if t == nil {
		return nil
	}
	if !t.pinned {
		atomic.AddInt32(&t.refCount, 1)
	}
	return t
}

// Free decrements the reference count, releasing the node (and dropping a
// reference on SubType and every component's Type) once it reaches zero.
// Free on a pinned primitive is a no-op, per spec.md §3.
func (t *Type) Free() {
	if t == nil || t.pinned {
		return
	}
	if atomic.AddInt32(&t.refCount, -1) > 0 {
		return
	}
	if t.subType != nil {
		t.subType.Free()
	}
	for _, c := range t.components {
		if c.Type != nil {
			c.Type.Free()
		}
	}
	if t.tagFree != nil {
		t.tagFree(t.tagData)
	}
}

// Ref reports the current reference count (1 for a freshly pinned
// primitive's *conceptual* count, though pinned nodes never actually
// decrement).
func (t *Type) Ref() int32 {
	if t == nil {
		return 0
	}
	return atomic.LoadInt32(&t.refCount)
}

// ---- constructors -------------------------------------------------------

// newAggregate builds a struct or union out of component fields. If
// incref is false the new type takes ownership of the field types (one
// reference each) rather than adding an additional one; out-of-memory is
// not modeled as a Go error (Go allocation failure is fatal, unlike the
// C original) but empty/nil fields are tolerated per spec.md's
// "invalid field indices are silently ignored" failure-mode spirit.
func newAggregate(kind Kind, fields []*Component, incref bool) *Type {
	t := newType(kind)
	t.components = make([]*Component, len(fields))
	for i, f := range fields {
		ft := f.Type
		if incref {
			ft = ft.Copy()
		}
		t.components[i] = &Component{Name: f.Name, Type: ft, Offset: f.Offset, offsetExplicit: f.offsetExplicit}
	}
	return t
}

// CreateStruct builds a struct type from ordered fields. Field offsets
// left unset are computed by computeLayout on first use.
func CreateStruct(fields []*Component, incref bool) *Type {
	return newAggregate(Struct, fields, incref)
}

// CreateUnion builds a union type; every field is conceptually at offset 0.
func CreateUnion(fields []*Component, incref bool) *Type {
	return newAggregate(Union, fields, incref)
}

// CreatePointer builds a pointer-to-elem type.
func CreatePointer(elem *Type, incref bool) *Type {
	t := newType(Pointer)
	if incref {
		elem = elem.Copy()
	}
	t.subType = elem
	t.size = wordSize
	t.align = wordSize
	t.sizeComputed = true
	t.layoutComputed = true
	return t
}

// CreateSignature builds a function-signature type: a return type plus
// ordered parameter types and an ABI selector.
func CreateSignature(abi ABI, ret *Type, params []*Type, incref bool) *Type {
	t := newType(Signature)
	t.abi = abi
	if incref {
		ret = ret.Copy()
	}
	t.subType = ret
	t.components = make([]*Component, len(params))
	for i, p := range params {
		pt := p
		if incref {
			pt = pt.Copy()
		}
		t.components[i] = &Component{Type: pt}
	}
	// A signature used as a value degrades to a native pointer (a code
	// address); see Normalize.
	t.size = wordSize
	t.align = wordSize
	t.sizeComputed = true
	t.layoutComputed = true
	return t
}

// CreateTagged wraps base in a tag node carrying kind tagKind and an
// opaque payload. free, if non-nil, runs on data when the tag node's
// reference count reaches zero. Tag nodes do not change layout: Size and
// Alignment forward to base.
func CreateTagged(base *Type, tagKind int, data any, free func(any), incref bool) *Type {
	t := newType(FirstTagKind + Kind(tagKind))
	t.tagKind = tagKind
	t.tagData = data
	t.tagFree = free
	if incref {
		base = base.Copy()
	}
	t.subType = base
	return t
}

// IsTagged reports whether t is a tag wrapper.
func (t *Type) IsTagged() bool { return t.kind >= FirstTagKind }

// TaggedKind returns the user tag number for a tag node (0 otherwise).
func (t *Type) TaggedKind() int {
	if !t.IsTagged() {
		return 0
	}
	return t.tagKind
}

// TaggedData returns the opaque payload attached to a tag node.
func (t *Type) TaggedData() any { return t.tagData }

// TaggedUnderlying returns the wrapped base type of a tag node, or t
// itself if it is not a tag.
func (t *Type) TaggedUnderlying() *Type {
	if t.IsTagged() {
		return t.subType
	}
	return t
}

// ---- setters -------------------------------------------------------------

// SetNames assigns component names in order; extras are ignored, a short
// list leaves trailing components unnamed — both silent, per spec.md
// §4.B's failure-mode note about setters on invalid indices.
func SetNames(t *Type, names []string) {
	for i, n := range names {
		if i >= len(t.components) {
			return
		}
		t.components[i].Name = n
	}
}

// SetSizeAndAlignment overrides computed layout. Passing -1 for either
// argument means "compute automatically" for that attribute. Setting an
// explicit size floors (never shrinks) the size computeLayout would
// otherwise pick; see computeLayout.
func SetSizeAndAlignment(t *Type, size, align int32) {
	if size >= 0 {
		t.size = size
		t.explicitSize = true
		t.sizeComputed = true
	} else {
		t.sizeComputed = false
	}
	if align >= 0 {
		t.align = align
		t.explicitAlign = true
	}
	t.layoutComputed = false
}

// SetOffset overrides the offset of field index idx, marking it explicit
// so computeLayout will not recompute it. Out-of-range indices are
// silently ignored.
func SetOffset(t *Type, idx int, offset int32) {
	if idx < 0 || idx >= len(t.components) {
		return
	}
	t.components[idx].Offset = offset
	t.components[idx].offsetExplicit = true
	t.layoutComputed = false
}

// ---- getters ---------------------------------------------------------

// Size returns the type's size in bytes, computing aggregate layout on
// first use.
func (t *Type) Size() int32 {
	ensureLayout(t)
	return t.size
}

// Alignment returns the type's required alignment in bytes.
func (t *Type) Alignment() int32 {
	ensureLayout(t)
	return t.align
}

// NumFields returns the number of struct/union fields (0 for any other kind).
func (t *Type) NumFields() int {
	if t.kind != Struct && t.kind != Union {
		return 0
	}
	return len(t.components)
}

// NumParams returns the number of signature parameters (0 for any other kind).
func (t *Type) NumParams() int {
	if t.kind != Signature {
		return 0
	}
	return len(t.components)
}

// Field returns field idx of a struct/union, or nil if idx is out of range.
func (t *Type) Field(idx int) *Component {
	if idx < 0 || idx >= len(t.components) {
		return nil
	}
	ensureLayout(t)
	return t.components[idx]
}

// Param returns parameter type idx of a signature, or nil if out of range.
func (t *Type) Param(idx int) *Type {
	if t.kind != Signature || idx < 0 || idx >= len(t.components) {
		return nil
	}
	return t.components[idx].Type
}

// ReturnType returns the return type of a signature, or nil.
func (t *Type) ReturnType() *Type {
	if t.kind != Signature {
		return nil
	}
	return t.subType
}

// ElemType returns the pointee type of a pointer, or nil.
func (t *Type) ElemType() *Type {
	if t.kind != Pointer {
		return nil
	}
	return t.subType
}

// SignatureABI returns the ABI selector of a signature type.
func (t *Type) SignatureABI() ABI {
	return t.abi
}

// Offset returns the byte offset of field idx of a struct; 0 for union
// fields and for out-of-range indices.
func (t *Type) Offset(idx int) int32 {
	f := t.Field(idx)
	if f == nil {
		return 0
	}
	return f.Offset
}

// Name returns the name of field/parameter idx, or "" if unset or out of range.
func (t *Type) Name(idx int) string {
	if idx < 0 || idx >= len(t.components) {
		return ""
	}
	return t.components[idx].Name
}

// pointerIdentity is used by the primitive-identity check: two handles
// refer to the same primitive iff they're the same pointer, per
// spec.md §4.B ("Primitive type identity is by pointer equality with
// pre-defined constants").
func pointerIdentity(a, b *Type) bool {
	return unsafe.Pointer(a) == unsafe.Pointer(b)
}

// Is reports whether t and other are identical by pointer (the only
// sound identity check for pinned primitives; aggregate/signature types
// are never hash-consed so structural equality is not implied).
func (t *Type) Is(other *Type) bool { return pointerIdentity(t, other) }
