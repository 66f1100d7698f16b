package typesys

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestPrimitiveIdentity(t *testing.T) {
	assert(t, IntType.Is(IntType), "IntType should be identical to itself")
	assert(t, !IntType.Is(LongType), "IntType must not alias LongType")
	IntType.Free() // pinned: must not panic or mutate refcount
	assert(t, IntType.Ref() == 1, "pinned primitive refcount must stay at 1, got %d", IntType.Ref())
}

func TestStructLayoutBasic(t *testing.T) {
	st := CreateStruct([]*Component{
		{Name: "a", Type: UByteType},
		{Name: "b", Type: IntType},
		{Name: "c", Type: UByteType},
	}, true)

	assert(t, st.Offset(0) == 0, "field a offset = %d, want 0", st.Offset(0))
	assert(t, st.Offset(1) == 4, "field b offset = %d, want 4 (aligned up from 1)", st.Offset(1))
	assert(t, st.Offset(2) == 8, "field c offset = %d, want 8", st.Offset(2))
	assert(t, st.Size() == 12, "struct size = %d, want 12 (rounded to int alignment)", st.Size())

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		assert(t, f.Offset+f.Type.Size() <= st.Size(), "field %d overruns struct size", i)
	}
}

func TestStructExplicitSizeFloor(t *testing.T) {
	st := CreateStruct([]*Component{{Type: IntType}, {Type: IntType}}, true)
	SetSizeAndAlignment(st, 4, -1) // smaller than the 8 bytes actually needed
	assert(t, st.Size() == 8, "explicit size smaller than fields must be ignored in favor of computed size, got %d", st.Size())

	st2 := CreateStruct([]*Component{{Type: IntType}}, true)
	SetSizeAndAlignment(st2, 64, -1) // larger than computed
	assert(t, st2.Size() == 64, "explicit size larger than computed must be retained, got %d", st2.Size())
}

func TestUnionLayout(t *testing.T) {
	un := CreateUnion([]*Component{
		{Type: UByteType},
		{Type: IntType},
		{Type: Float64Type},
	}, true)
	assert(t, un.Size() == 8, "union size = %d, want 8 (widest member)", un.Size())
	for i := 0; i < un.NumFields(); i++ {
		assert(t, un.Offset(i) == 0, "union field %d offset = %d, want 0", i, un.Offset(i))
	}
}

func TestNormalizeAndPromote(t *testing.T) {
	assert(t, Normalize(NIntType).Is(LongType), "NInt should normalize to Long on a 64-bit host")
	assert(t, Normalize(CreatePointer(IntType, true)).Is(LongType), "pointer-as-value should normalize to Long")
	assert(t, PromoteInt(ShortType).Is(IntType), "Short must promote to Int")
	assert(t, PromoteInt(LongType).Is(LongType), "Long must not be touched by promotion")
}

func TestReturnViaPointer(t *testing.T) {
	assert(t, !ReturnViaPointer(8), "an 8-byte struct should return in registers")
	assert(t, !ReturnViaPointer(16), "a 16-byte struct should return in registers")
	assert(t, ReturnViaPointer(17), "a 17-byte struct must return via hidden pointer")
	assert(t, ReturnViaPointer(0), "a zero/invalid size must default to hidden pointer")
}

func TestSetOffsetInvalidIndexIgnored(t *testing.T) {
	st := CreateStruct([]*Component{{Type: IntType}}, true)
	SetOffset(st, 5, 40) // out of range, must be silently ignored
	assert(t, st.Offset(5) == 0, "out-of-range Offset getter must return 0")
}

func TestTaggedWrapperPreservesLayout(t *testing.T) {
	tagged := CreateTagged(IntType, 7, "meta", nil, true)
	assert(t, tagged.IsTagged(), "expected a tag node")
	assert(t, tagged.TaggedKind() == 7, "tag kind = %d, want 7", tagged.TaggedKind())
	assert(t, tagged.TaggedData() == "meta", "tag payload mismatch")
	assert(t, Normalize(tagged).Is(IntType), "normalizing a tag must strip it down to the underlying type")
}
