package pcode

// OpFlags is the bit set describing a PcodeOp's role and provenance.
type OpFlags uint32

const (
	OpMark OpFlags = 1 << iota
	OpCpoolTransformed
	OpCalculatedBool
	OpStopTypePropagation
	OpIndirectCreation
	OpIndirectSource
	OpPartialRoot
	OpPtrFlow
	OpRetCopy
	OpSpecialPrinting
	OpStoreUnmapped
	OpNoCollapse
	OpDead
)

// SeqNum totally orders ops within a block.
type SeqNum struct {
	Block *BasicBlock
	Order int
}

// PcodeOp is one IR instruction: an op-code, an ordered input vector, at
// most one output Varnode, a parent block, and a flag set.
type PcodeOp struct {
	ID     OpID
	Opcode OpCode
	Inputs []VarnodeID
	Output VarnodeID // NoVarnode if the op has no output

	Parent *BasicBlock
	Seq    SeqNum

	Addr uint64 // source address, for warnings/diagnostics

	Flags OpFlags
}

// IsDead reports whether op has been destroyed (destroyed ops stay in
// the arena, flagged; rules must ignore them).
func (op *PcodeOp) IsDead() bool { return op.Flags&OpDead != 0 }

// HasOutput reports whether op produces a Varnode.
func (op *PcodeOp) HasOutput() bool { return op.Output != NoVarnode }

// NumInputs returns the input arity.
func (op *PcodeOp) NumInputs() int { return len(op.Inputs) }
