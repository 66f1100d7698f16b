package codecache

import "testing"

func assert(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Fatal(msg)
	}
}

func TestOffsetRoundTripsSmallAndLarge(t *testing.T) {
	cases := []int32{0, 1, -1, 63, -64, 64, -65, 8191, -8192, 8192, 1 << 20, -(1 << 20), 1 << 29, -(1 << 29), 1<<31 - 1, -(1 << 31)}
	for _, n := range cases {
		buf := EncodeOffset(nil, n)
		got, sentinel, consumed := DecodeOffset(buf, 0)
		assert(t, sentinel == NotSentinel, "unexpected sentinel decoding a real value")
		assert(t, consumed == len(buf), "consumed should equal encoded length")
		assert(t, got == n, "round trip mismatch")
	}
}

func TestSentinelsDoNotCollideWithRealValues(t *testing.T) {
	buf := EncodeSentinel(nil, EndMethod)
	_, sk, consumed := DecodeOffset(buf, 0)
	assert(t, sk == EndMethod, "expected EndMethod sentinel")
	assert(t, consumed == 1, "sentinel must be one byte")

	buf = EncodeSentinel(nil, EndChunk)
	_, sk, _ = DecodeOffset(buf, 0)
	assert(t, sk == EndChunk, "expected EndChunk sentinel")
}

func TestDebugMapRoundTrip(t *testing.T) {
	var d DebugMap
	d.Mark(0, 0)
	d.Mark(4, 1)
	d.Mark(12, 2)
	d.Mark(12, 3) // a pseudo-op that emits no code still advances bytecode index
	buf := d.Finish()

	offs, idxs := DecodeDebugMap(buf)
	assert(t, len(offs) == 4, "expected 4 marks")
	assert(t, offs[2] == 12 && idxs[2] == 2, "third mark mismatch")
	assert(t, offs[3] == 12 && idxs[3] == 3, "fourth mark mismatch")

	idx, ok := LookupBytecode(offs, idxs, 8)
	assert(t, ok, "lookup should find a containing mark")
	assert(t, idx == 1, "offset 8 falls between marks 1 (off 4) and 2 (off 12), should resolve to mark 1")
}

func TestStartEndMethodPublishesLookupableRegion(t *testing.T) {
	c := New(memPageSizeForTest(), 0)
	b, err := c.StartMethod(64, 16)
	if err != nil {
		t.Fatal(err)
	}
	code := b.Code()
	assert(t, len(code) >= 64, "expected at least the requested code room")
	copy(code, []byte{0x90, 0x90, 0xC3}) // nop; nop; ret

	r, err := c.EndMethod(b, 3, "owner-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	assert(t, r.End-r.Start == 3, "region should span exactly the published code length")

	found := c.Lookup(r.Start)
	assert(t, found != nil && found.Owner == "owner-1", "lookup at region start should find the method")
	found = c.Lookup(r.Start + 1)
	assert(t, found != nil && found.Owner == "owner-1", "lookup mid-region should find the method")
	found = c.Lookup(r.End)
	assert(t, found == nil, "lookup at end (exclusive) should miss")
}

func TestAllocAuxOverflowTriggersRestart(t *testing.T) {
	c := New(memPageSizeForTest(), 0)
	b, err := c.StartMethod(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.AllocAux(0, len(b.Code())+1)
	assert(t, err == ErrRestart, "aux request larger than remaining room must signal restart")
}

func TestCacheFullReturnsErrCacheFull(t *testing.T) {
	c := New(memPageSizeForTest(), 1)
	if _, err := c.StartMethod(memPageSizeForTest()*4, 16); err != ErrCacheFull && err != ErrTooBig {
		t.Fatalf("expected ErrCacheFull or ErrTooBig for an over-budget request, got %v", err)
	}
}

func TestAbortRefundsFreshPage(t *testing.T) {
	c := New(memPageSizeForTest(), 4)
	b, err := c.StartMethod(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	before := c.UsedPages()
	assert(t, before > 0, "starting a method should have committed at least one page")
	c.Abort(b)
	assert(t, c.UsedPages() == 0, "aborting the only method should refund its fresh page")
}

func TestRedBlackTreeStaysBalancedUnderManyInserts(t *testing.T) {
	var tree rbTree
	for i := 0; i < 500; i++ {
		tree.insert(&Region{Start: uintptr(i * 16), End: uintptr(i*16 + 16), Owner: i})
	}
	_, valid := tree.blackHeight()
	assert(t, valid, "red-black invariants must hold after 500 sequential inserts")
	r := tree.find(16 * 250)
	assert(t, r != nil && r.Owner == 250, "find should locate the exact region by address")
}

// memPageSizeForTest keeps test page sizes small and deterministic rather
// than depending on the host's real OS page size for arithmetic in these
// assertions.
func memPageSizeForTest() int { return 4096 }
