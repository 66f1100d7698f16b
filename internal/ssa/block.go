package ssa

// Block is an ordered instruction list with an entry label and
// predecessor/successor edges derived from its terminator, per spec.md
// §3. Exactly one block in a function is the entry; labels are unique
// within a function.
type Block struct {
	id    int
	Label *Label
	Instrs []*Instruction

	Preds []*Block
	Succs []*Block

	// EndsInDeadCode is set once a terminator (return, throw, unconditional
	// branch, jump table) has been emitted into the block; a subsequent
	// insn_* call opens a new block instead of appending here.
	EndsInDeadCode bool
}

// ID returns the block's function-local index (its emission order).
func (b *Block) ID() int { return b.id }

// Empty reports whether the block has no instructions yet.
func (b *Block) Empty() bool { return len(b.Instrs) == 0 }

func (b *Block) append(in *Instruction) {
	b.Instrs = append(b.Instrs, in)
}

func addSucc(from, to *Block) {
	for _, s := range from.Succs {
		if s == to {
			return
		}
	}
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}
