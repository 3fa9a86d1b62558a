package funcdata

import (
	"github.com/oisee/pcodesimplify/pkg/pcode"
)

// DistributeIntMultAdd rewrites (a+b)*c into a*c + b*c, returning
// success. multOp must be an
// INT_MULT whose first input is the output of an INT_ADD.
func (fd *FunctionData) DistributeIntMultAdd(multOp pcode.OpID) bool {
	mul := fd.Op(multOp)
	if mul.Opcode != pcode.INT_MULT || len(mul.Inputs) != 2 {
		return false
	}
	addVn := fd.Varnode(mul.Inputs[0])
	cVn := mul.Inputs[1]
	if addVn.Def == pcode.NoOp {
		return false
	}
	addOp := fd.Op(addVn.Def)
	if addOp.Opcode != pcode.INT_ADD || len(addOp.Inputs) != 2 {
		return false
	}
	a, b := addOp.Inputs[0], addOp.Inputs[1]
	size := addVn.Size

	mulA := fd.NewOp(2, mul.Addr)
	fd.OpSetOpcode(mulA, pcode.INT_MULT)
	fd.OpSetInput(mulA, a, 0)
	fd.OpSetInput(mulA, cVn, 1)
	outA := fd.NewUniqueOut(size, mulA)
	fd.OpInsertBefore(mulA, multOp)

	mulB := fd.NewOp(2, mul.Addr)
	fd.OpSetOpcode(mulB, pcode.INT_MULT)
	fd.OpSetInput(mulB, b, 0)
	fd.OpSetInput(mulB, cVn, 1)
	outB := fd.NewUniqueOut(size, mulB)
	fd.OpInsertBefore(mulB, multOp)

	fd.OpSetOpcode(multOp, pcode.INT_ADD)
	fd.OpSetInput(multOp, outA, 0)
	fd.OpSetInput(multOp, outB, 1)
	return true
}

// CollapseIntMultMult collapses (x*c)*d -> x*(c*d) where vn is the
// output of the inner (x*c) multiply and is consumed by exactly one
// outer INT_MULT by a constant d.
func (fd *FunctionData) CollapseIntMultMult(vn pcode.VarnodeID) bool {
	v := fd.Varnode(vn)
	if v.Def == pcode.NoOp || len(v.Descendants) != 1 {
		return false
	}
	inner := fd.Op(v.Def)
	if inner.Opcode != pcode.INT_MULT || len(inner.Inputs) != 2 {
		return false
	}
	cVn := fd.Varnode(inner.Inputs[1])
	if !cVn.IsConstant() {
		return false
	}
	outerID := v.Descendants[0]
	outer := fd.Op(outerID)
	if outer.Opcode != pcode.INT_MULT {
		return false
	}
	var dSlot int
	if outer.Inputs[0] == vn {
		dSlot = 1
	} else {
		dSlot = 0
	}
	dVn := fd.Varnode(outer.Inputs[dSlot])
	if !dVn.IsConstant() {
		return false
	}
	product := cVn.ConstValue() * dVn.ConstValue()
	x := inner.Inputs[0]
	newConst := fd.NewConstant(cVn.Size, product)
	fd.OpSetInput(outerID, x, 1-dSlot)
	fd.OpSetInput(outerID, newConst, dSlot)
	return true
}

// CSEPair is a candidate pair of syntactically-identical ops hashed the
// same way by CSEHash.
type CSEPair struct {
	First, Second pcode.OpID
}

// CSEEliminateList collapses duplicate ops: for each pair whose two ops
// are still structurally identical, the second op's output is replaced
// by the first's and the second op is destroyed. Returns the surviving
// Varnode for each eliminated pair, matching out's shape in the
// original API.
func (fd *FunctionData) CSEEliminateList(pairs []CSEPair) []pcode.VarnodeID {
	out := make([]pcode.VarnodeID, 0, len(pairs))
	for _, p := range pairs {
		first := fd.Op(p.First)
		second := fd.Op(p.Second)
		if first.IsDead() || second.IsDead() {
			continue
		}
		if !sameShape(first, second) {
			continue
		}
		fd.TotalReplace(second.Output, first.Output)
		fd.OpDestroy(p.Second)
		out = append(out, first.Output)
	}
	return out
}

func sameShape(a, b *pcode.PcodeOp) bool {
	if a.Opcode != b.Opcode || len(a.Inputs) != len(b.Inputs) {
		return false
	}
	for i := range a.Inputs {
		if a.Inputs[i] != b.Inputs[i] {
			return false
		}
	}
	return true
}
