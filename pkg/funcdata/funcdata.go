// Package funcdata implements the per-function IR container: the arena
// that owns every Varnode, PcodeOp, and BasicBlock, plus the mutation
// API that pkg/rules calls to rewrite the graph.
//
// Handles (pcode.VarnodeID / pcode.OpID) index into flat slices rather
// than Go pointers so the arena is the sole owner of every node — there
// are no shared-ownership cycles.
package funcdata

import (
	"fmt"

	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/value"
)

// FunctionData owns all Varnodes, ops, and blocks for one function, plus
// the phase flags that gate which rule groups may run.
type FunctionData struct {
	Name string

	varnodes []pcode.Varnode
	ops      []pcode.PcodeOp
	Blocks   []*pcode.BasicBlock

	constSpace *pcode.AddressSpace
	uniqSpace  *pcode.AddressSpace
	iopSpace   *pcode.AddressSpace

	TypeRecoveryStarted  bool
	TypeRecoveryExceeded bool
	DeadRemovalAllowed   map[*pcode.AddressSpace]bool

	seqCounter int
}

// New creates an empty function-data container.
func New(name string) *FunctionData {
	return &FunctionData{
		Name:               name,
		constSpace:         pcode.NewConstantSpace(),
		uniqSpace:          pcode.NewUniqueSpace(),
		iopSpace:           pcode.NewIOPSpace(),
		DeadRemovalAllowed: make(map[*pcode.AddressSpace]bool),
		// index 0 of each arena is reserved as the NoVarnode/NoOp sentinel.
		varnodes: make([]pcode.Varnode, 1),
		ops:      make([]pcode.PcodeOp, 1),
	}
}

// ConstSpace, UniqueSpace, IOPSpace expose the function's three
// always-present spaces.
func (fd *FunctionData) ConstSpace() *pcode.AddressSpace { return fd.constSpace }
func (fd *FunctionData) UniqueSpace() *pcode.AddressSpace { return fd.uniqSpace }
func (fd *FunctionData) IOPSpace() *pcode.AddressSpace    { return fd.iopSpace }

// Varnode dereferences a handle. Returns nil for NoVarnode.
func (fd *FunctionData) Varnode(id pcode.VarnodeID) *pcode.Varnode {
	if id == pcode.NoVarnode || int(id) >= len(fd.varnodes) {
		return nil
	}
	return &fd.varnodes[id]
}

// Op dereferences a handle. Returns nil for NoOp.
func (fd *FunctionData) Op(id pcode.OpID) *pcode.PcodeOp {
	if id == pcode.NoOp || int(id) >= len(fd.ops) {
		return nil
	}
	return &fd.ops[id]
}

func (fd *FunctionData) allocVarnode() pcode.VarnodeID {
	fd.varnodes = append(fd.varnodes, pcode.Varnode{})
	return pcode.VarnodeID(len(fd.varnodes) - 1)
}

func (fd *FunctionData) allocOp() pcode.OpID {
	fd.ops = append(fd.ops, pcode.PcodeOp{})
	return pcode.OpID(len(fd.ops) - 1)
}

// NewConstant returns a Varnode in constant space whose offset is
// value masked to size.
func (fd *FunctionData) NewConstant(size int, val uint64) pcode.VarnodeID {
	id := fd.allocVarnode()
	v := fd.Varnode(id)
	v.Space = fd.constSpace
	v.Size = size
	v.Offset = val & value.CalcMask(size)
	v.Flags = pcode.FlagConstant
	v.NZMask = v.Offset
	return id
}

// NewFree allocates a detached, ownerless Varnode (no def, not input,
// not constant) — used transiently while building a replacement before
// it is wired to a def (a "free" Varnode).
func (fd *FunctionData) NewFree(space *pcode.AddressSpace, size int) pcode.VarnodeID {
	id := fd.allocVarnode()
	v := fd.Varnode(id)
	v.Space = space
	v.Size = size
	v.Flags = pcode.FlagFree
	v.NZMask = value.CalcMask(size)
	return id
}

// NewUniqueOut allocates a fresh internal-temporary Varnode as op's
// output.
func (fd *FunctionData) NewUniqueOut(size int, op pcode.OpID) pcode.VarnodeID {
	id := fd.allocVarnode()
	v := fd.Varnode(id)
	v.Space = fd.uniqSpace
	v.Size = size
	v.Def = op
	v.NZMask = value.CalcMask(size)
	fd.setOutput(op, id)
	return id
}

// NewVarnodeOut allocates an addressable output at addr; addr-tied since it has a fixed memory-mapped location.
func (fd *FunctionData) NewVarnodeOut(size int, addr pcode.Address, op pcode.OpID) pcode.VarnodeID {
	id := fd.allocVarnode()
	v := fd.Varnode(id)
	v.Space = addr.Space
	v.Offset = addr.Offset
	v.Size = size
	v.Def = op
	v.Flags = pcode.FlagAddrTied
	v.NZMask = value.CalcMask(size)
	fd.setOutput(op, id)
	return id
}

// NewOp creates a detached op with nin empty input slots. The op is not yet attached to any block.
func (fd *FunctionData) NewOp(nin int, addr uint64) pcode.OpID {
	id := fd.allocOp()
	op := fd.Op(id)
	op.ID = id
	op.Inputs = make([]pcode.VarnodeID, nin)
	op.Addr = addr
	return id
}

// OpSetOpcode re-tags op. The caller must ensure arity/sizes still hold
// under the new op-code.
func (fd *FunctionData) OpSetOpcode(opID pcode.OpID, code pcode.OpCode) {
	fd.Op(opID).Opcode = code
}

// OpSetInput re-wires input slot of op to v, updating descendant sets
// on both the old and new Varnode.
func (fd *FunctionData) OpSetInput(opID pcode.OpID, v pcode.VarnodeID, slot int) {
	op := fd.Op(opID)
	if slot >= len(op.Inputs) {
		grown := make([]pcode.VarnodeID, slot+1)
		copy(grown, op.Inputs)
		op.Inputs = grown
	}
	if old := op.Inputs[slot]; old != pcode.NoVarnode {
		fd.removeDescendant(old, opID)
	}
	op.Inputs[slot] = v
	if v != pcode.NoVarnode {
		fd.addDescendant(v, opID)
		if vn := fd.Varnode(v); vn != nil {
			vn.Flags &^= pcode.FlagFree
		}
	}
}

// OpRemoveInput shrinks op's input vector, shifting higher slots down.
func (fd *FunctionData) OpRemoveInput(opID pcode.OpID, slot int) {
	op := fd.Op(opID)
	if slot >= len(op.Inputs) {
		return
	}
	fd.removeDescendant(op.Inputs[slot], opID)
	op.Inputs = append(op.Inputs[:slot], op.Inputs[slot+1:]...)
}

func (fd *FunctionData) setOutput(opID pcode.OpID, v pcode.VarnodeID) {
	op := fd.Op(opID)
	op.Output = v
	fd.Varnode(v).Flags |= pcode.FlagWritten
}

func (fd *FunctionData) addDescendant(v pcode.VarnodeID, opID pcode.OpID) {
	vn := fd.Varnode(v)
	if vn == nil {
		return
	}
	vn.Descendants = append(vn.Descendants, opID)
}

func (fd *FunctionData) removeDescendant(v pcode.VarnodeID, opID pcode.OpID) {
	vn := fd.Varnode(v)
	if vn == nil {
		return
	}
	for i, d := range vn.Descendants {
		if d == opID {
			vn.Descendants = append(vn.Descendants[:i], vn.Descendants[i+1:]...)
			return
		}
	}
}

// OpInsertBegin attaches op at the head of block's op list.
func (fd *FunctionData) OpInsertBegin(opID pcode.OpID, block *pcode.BasicBlock) {
	op := fd.Op(opID)
	op.Parent = block
	block.Ops = append([]pcode.OpID{opID}, block.Ops...)
	fd.renumber(block)
}

// OpInsertBefore attaches op immediately before ref in ref's block; when
// ref is not in any block, op is left unscheduled as well.
func (fd *FunctionData) OpInsertBefore(opID, ref pcode.OpID) {
	refOp := fd.Op(ref)
	block := refOp.Parent
	if block == nil {
		return
	}
	op := fd.Op(opID)
	op.Parent = block
	idx := indexOf(block.Ops, ref)
	block.Ops = insertAt(block.Ops, idx, opID)
	fd.renumber(block)
}

// OpInsertAfter attaches op immediately after ref in ref's block.
func (fd *FunctionData) OpInsertAfter(opID, ref pcode.OpID) {
	refOp := fd.Op(ref)
	block := refOp.Parent
	op := fd.Op(opID)
	op.Parent = block
	idx := indexOf(block.Ops, ref)
	block.Ops = insertAt(block.Ops, idx+1, opID)
	fd.renumber(block)
}

func indexOf(ops []pcode.OpID, target pcode.OpID) int {
	for i, o := range ops {
		if o == target {
			return i
		}
	}
	return len(ops)
}

func insertAt(ops []pcode.OpID, idx int, v pcode.OpID) []pcode.OpID {
	ops = append(ops, pcode.NoOp)
	copy(ops[idx+1:], ops[idx:])
	ops[idx] = v
	return ops
}

func (fd *FunctionData) renumber(block *pcode.BasicBlock) {
	for i, opID := range block.Ops {
		op := fd.Op(opID)
		op.Seq = pcode.SeqNum{Block: block, Order: i}
	}
}

// OpUninsert detaches op from its block while preserving its input/output
// edges — the op is still alive, just not
// scheduled in any block.
func (fd *FunctionData) OpUninsert(opID pcode.OpID) {
	op := fd.Op(opID)
	if op.Parent == nil {
		return
	}
	block := op.Parent
	idx := indexOf(block.Ops, opID)
	if idx < len(block.Ops) {
		block.Ops = append(block.Ops[:idx], block.Ops[idx+1:]...)
	}
	op.Parent = nil
	fd.renumber(block)
}

// OpDestroy unlinks all of op's edges and marks it dead; the op stays in
// the arena flagged OpDead, and an output Varnode left with no
// descendants is marked free.
func (fd *FunctionData) OpDestroy(opID pcode.OpID) {
	op := fd.Op(opID)
	if op.IsDead() {
		return
	}
	for slot := range op.Inputs {
		if op.Inputs[slot] != pcode.NoVarnode {
			fd.removeDescendant(op.Inputs[slot], opID)
		}
	}
	if op.Output != pcode.NoVarnode {
		out := fd.Varnode(op.Output)
		out.Def = pcode.NoOp
		if len(out.Descendants) == 0 {
			out.Flags |= pcode.FlagFree
		}
	}
	if op.Parent != nil {
		fd.OpUninsert(opID)
	}
	op.Flags |= pcode.OpDead
}

// TotalReplace rewires every descendant of old to read new instead, then
// old becomes unreachable.
func (fd *FunctionData) TotalReplace(old, new pcode.VarnodeID) {
	oldVn := fd.Varnode(old)
	descendants := append([]pcode.OpID(nil), oldVn.Descendants...)
	for _, opID := range descendants {
		op := fd.Op(opID)
		for slot, in := range op.Inputs {
			if in == old {
				fd.OpSetInput(opID, new, slot)
			}
		}
	}
}

// EarlyRemoval destroys op if it is a non-call op whose output has no
// descendants and whose space permits dead removal (the `early_removal`
// rule's contract, ).
func (fd *FunctionData) EarlyRemoval(opID pcode.OpID) bool {
	op := fd.Op(opID)
	if op.IsDead() || isCallLike(op.Opcode) {
		return false
	}
	if op.Output == pcode.NoVarnode {
		return false
	}
	out := fd.Varnode(op.Output)
	if !out.HasNoDescendants() {
		return false
	}
	if out.Flags&pcode.FlagAddrTied != 0 {
		return false
	}
	if !fd.DeadRemovalAllowed[out.Space] && out.Space != fd.uniqSpace {
		return false
	}
	fd.OpDestroy(opID)
	return true
}

func isCallLike(op pcode.OpCode) bool {
	switch op {
	case pcode.CALL, pcode.CALLIND, pcode.CALLOTHER, pcode.RETURN, pcode.BRANCHIND:
		return true
	}
	return false
}

// NewIndirectCreation inserts a fresh INDIRECT representing a value
// created by target.
func (fd *FunctionData) NewIndirectCreation(target pcode.OpID, addr pcode.Address, size int, possibleOut bool) pcode.OpID {
	opID := fd.NewOp(2, addr.Offset)
	op := fd.Op(opID)
	op.Opcode = pcode.INDIRECT
	op.Flags |= pcode.OpIndirectCreation
	iopVn := fd.allocVarnode()
	iv := fd.Varnode(iopVn)
	iv.Space = fd.iopSpace
	iv.Offset = uint64(target)
	iv.Size = fd.iopSpace.AddrSize
	fd.OpSetInput(opID, pcode.NoVarnode, 0)
	fd.OpSetInput(opID, iopVn, 1)
	if possibleOut {
		fd.NewVarnodeOut(size, addr, opID)
	} else {
		fd.NewUniqueOut(size, opID)
	}
	return opID
}

// OpUndoPtradd turns a PTRADD back into INT_ADD (+ INT_MULT if element
// size != 1). elsize is read from the PTRADD's third input (which must
// be a constant).
func (fd *FunctionData) OpUndoPtradd(opID pcode.OpID, keepBase bool) error {
	op := fd.Op(opID)
	if op.Opcode != pcode.PTRADD {
		return fmt.Errorf("funcdata: op_undo_ptradd: op %d is not PTRADD", opID)
	}
	elsizeVn := fd.Varnode(op.Inputs[2])
	if !elsizeVn.IsConstant() {
		return fmt.Errorf("funcdata: op_undo_ptradd: elsize operand not constant")
	}
	elsize := elsizeVn.ConstValue()
	fd.OpRemoveInput(opID, 2)
	if elsize == 1 {
		fd.OpSetOpcode(opID, pcode.INT_ADD)
		return nil
	}
	idx := op.Inputs[1]
	idxVn := fd.Varnode(idx)
	multOp := fd.NewOp(2, op.Addr)
	fd.OpSetOpcode(multOp, pcode.INT_MULT)
	fd.OpSetInput(multOp, idx, 0)
	fd.OpSetInput(multOp, fd.NewConstant(idxVn.Size, elsize), 1)
	scaled := fd.NewUniqueOut(idxVn.Size, multOp)
	fd.OpInsertBefore(multOp, opID)
	fd.OpSetInput(opID, scaled, 1)
	fd.OpSetOpcode(opID, pcode.INT_ADD)
	_ = keepBase
	return nil
}
