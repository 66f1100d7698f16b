package typesys

// Pre-defined primitive nodes are process-wide constants with a pinned
// reference count, so Copy/Free on them are effectively no-ops, per
// spec.md §3 and §9 ("expose them as borrowed references from a
// module-level registry").
var (
	VoidType    = pinPrimitive(Void, 0, 1)
	SByteType   = pinPrimitive(SByte, 1, 1)
	UByteType   = pinPrimitive(UByte, 1, 1)
	ShortType   = pinPrimitive(Short, 2, 2)
	UShortType  = pinPrimitive(UShort, 2, 2)
	IntType     = pinPrimitive(Int, 4, 4)
	UIntType    = pinPrimitive(UInt, 4, 4)
	LongType    = pinPrimitive(Long, 8, 8)
	ULongType   = pinPrimitive(ULong, 8, 8)
	Float32Type = pinPrimitive(Float32, 4, 4)
	Float64Type = pinPrimitive(Float64, 8, 8)
	NFloatType  = pinPrimitive(NFloat, 8, 8) // host has no 80-bit extended type; see Normalize
	NIntType    = pinPrimitive(NInt, wordSize, wordSize)
	NUIntType   = pinPrimitive(NUInt, wordSize, wordSize)
	VoidPtrType = pinPrimitive(Pointer, wordSize, wordSize)
)

func pinPrimitive(k Kind, size, align int32) *Type {
	t := newType(k)
	t.size = size
	t.align = align
	t.sizeComputed = true
	t.layoutComputed = true
	t.explicitSize = true
	t.explicitAlign = true
	t.pinned = true
	t.refCount = 1
	return t
}

func init() {
	VoidPtrType.subType = nil // the generic "void *"; element type left unset intentionally
}

// IsPrimitive reports whether t is one of the pinned primitive constants
// above (pointer equality, per spec.md §4.B).
func IsPrimitive(t *Type) bool {
	switch t {
	case VoidType, SByteType, UByteType, ShortType, UShortType, IntType, UIntType,
		LongType, ULongType, Float32Type, Float64Type, NFloatType, NIntType, NUIntType, VoidPtrType:
		return true
	default:
		return false
	}
}

// IsInteger reports whether t's kind is an integer primitive.
func (t *Type) IsInteger() bool {
	switch t.kind {
	case SByte, UByte, Short, UShort, Int, UInt, Long, ULong, NInt, NUInt:
		return true
	default:
		return false
	}
}

// IsFloat reports whether t's kind is a floating-point primitive.
func (t *Type) IsFloat() bool {
	switch t.kind {
	case Float32, Float64, NFloat:
		return true
	default:
		return false
	}
}

// IsSigned reports whether an integer kind is signed.
func (t *Type) IsSigned() bool {
	switch t.kind {
	case SByte, Short, Int, Long, NInt:
		return true
	default:
		return false
	}
}

// Normalize implements spec.md §4.B's normalization rule, applied before
// opcode validation and ABI lowering: strip tag wrappers, map the
// native-int/native-uint primitives onto the fixed-size primitive matching
// the host word size, and map pointers and signatures-used-as-values onto
// the native-int primitive.
func Normalize(t *Type) *Type {
	u := t.TaggedUnderlying()
	switch u.kind {
	case NInt:
		if wordSize == 8 {
			return LongType
		}
		return IntType
	case NUInt:
		if wordSize == 8 {
			return ULongType
		}
		return UIntType
	case Pointer, Signature:
		if wordSize == 8 {
			return LongType
		}
		return IntType
	default:
		return u
	}
}

// PromoteInt implements spec.md §4.B's promote_int helper: integer
// primitives of 16 bits or fewer widen to Int for the purposes of
// argument passing and arithmetic opcode validation. Wider types, floats,
// and everything else pass through unchanged.
func PromoteInt(t *Type) *Type {
	n := Normalize(t)
	switch n.kind {
	case SByte, UByte, Short, UShort:
		return IntType
	default:
		return n
	}
}

// smallStructReturnMask[i] is set (bit 1) iff a struct of size i+1 bytes
// is returned in registers rather than through a hidden pointer, per
// spec.md §4.B's return_via_pointer table. This mirrors the amd64 System
// V ABI's classification for the sizes libjit's apply layer cares about:
// up to two eightbytes (16 bytes) fit in RAX:RDX (or XMM0:XMM1 for an
// all-float aggregate, which the backend distinguishes separately); larger
// aggregates always return via a hidden pointer.
var smallStructReturnMask uint32 = func() uint32 {
	var mask uint32
	for size := 1; size <= 16; size++ {
		mask |= 1 << uint(size-1)
	}
	return mask
}()

// ReturnViaPointer reports whether a struct/union of the given size must
// be lowered through a hidden pointer parameter rather than returned in
// registers, consulting the precomputed smallStructReturnMask.
func ReturnViaPointer(size int32) bool {
	if size <= 0 || size > 32 {
		return true
	}
	if size > 16 {
		return true
	}
	return smallStructReturnMask&(1<<uint(size-1)) == 0
}
