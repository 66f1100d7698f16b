package typesys

// ensureLayout computes size/alignment/offsets at most once per mutation,
// per spec.md §3's invariant. SetSizeAndAlignment and SetOffset both clear
// layoutComputed so the next getter call recomputes.
func ensureLayout(t *Type) {
	if t.layoutComputed {
		return
	}
	switch t.kind {
	case Struct:
		computeStructLayout(t)
	case Union:
		computeUnionLayout(t)
	default:
		// Primitives, pointers, and signatures already carry a fixed
		// size/alignment set at construction time.
	}
	t.layoutComputed = true
}

func roundUp(value, align int32) int32 {
	if align <= 1 {
		return value
	}
	return (value + align - 1) / align * align
}

// computeStructLayout implements spec.md §4.B's struct layout algorithm:
// scan fields in declaration order; each field's offset is either
// explicit or the current running size rounded up to the field's
// alignment (clamped to the struct's own explicit alignment, if any);
// final size is rounded up to the max of all field alignments. An
// explicit size floors (never shrinks) the computed size, matching
// spec.md §8's boundary behavior.
func computeStructLayout(t *Type) {
	var running int32
	var maxAlign int32 = 1

	for _, f := range t.components {
		fieldAlign := f.Type.Alignment()
		if t.explicitAlign && fieldAlign > t.align {
			fieldAlign = t.align
		}
		if fieldAlign < 1 {
			fieldAlign = 1
		}

		if f.offsetExplicit {
			running = maxInt32(running, f.Offset+f.Type.Size())
		} else {
			f.Offset = roundUp(running, fieldAlign)
			running = f.Offset + f.Type.Size()
		}

		if fieldAlign > maxAlign {
			maxAlign = fieldAlign
		}
	}

	computedSize := roundUp(running, maxAlign)
	if !t.explicitAlign {
		t.align = maxAlign
	}
	if t.explicitSize {
		if t.size < computedSize {
			t.size = computedSize
		}
		// else: explicit size already ≥ computed size; keep it (spec.md
		// §8: "with larger explicit size, retains the explicit one").
	} else {
		t.size = computedSize
	}
}

// computeUnionLayout implements spec.md §4.B's union rule: every field
// sits at offset 0, and the final size is the max over fields of that
// field's size rounded up to its own alignment.
func computeUnionLayout(t *Type) {
	var maxSize int32
	var maxAlign int32 = 1

	for _, f := range t.components {
		f.Offset = 0
		fieldAlign := f.Type.Alignment()
		if t.explicitAlign && fieldAlign > t.align {
			fieldAlign = t.align
		}
		if fieldAlign < 1 {
			fieldAlign = 1
		}
		size := roundUp(f.Type.Size(), fieldAlign)
		if size > maxSize {
			maxSize = size
		}
		if fieldAlign > maxAlign {
			maxAlign = fieldAlign
		}
	}

	if !t.explicitAlign {
		t.align = maxAlign
	}
	if t.explicitSize {
		if t.size < maxSize {
			t.size = maxSize
		}
	} else {
		t.size = maxSize
	}
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
