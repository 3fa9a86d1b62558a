package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
)

// RuleTrivialShift collapses a shift by a constant at or beyond the
// operand's bit-width: INT_LEFT/INT_RIGHT produce 0, INT_SRIGHT never
// collapses to a plain constant since its result depends on the
// (unknown at fold time) sign of the operand unless the operand is
// itself constant, which collapse_constants already handles.
var RuleTrivialShift = rule.Rule{
	Name:   "trivial_shift",
	OpList: []pcode.OpCode{pcode.INT_LEFT, pcode.INT_RIGHT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		shamt, ok := constOf(fd, op.Inputs[1])
		in := fd.Varnode(op.Inputs[0])
		if !ok || shamt < uint64(8*in.Size) {
			return 0
		}
		zero := fd.NewConstant(fd.Varnode(op.Output).Size, 0)
		fd.TotalReplace(op.Output, zero)
		fd.OpDestroy(opID)
		return 1
	},
}

// RuleDoubleShift combines two same-direction constant shifts into one
// (INT_LEFT of INT_LEFT, or INT_RIGHT of INT_RIGHT); a combined amount at
// or beyond the output width folds to 0. Chains of opposite-direction
// shifts, and multiplies written as left shifts, are not matched.
var RuleDoubleShift = rule.Rule{
	Name:   "double_shift",
	OpList: []pcode.OpCode{pcode.INT_LEFT, pcode.INT_RIGHT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		outerAmt, ok := constOf(fd, op.Inputs[1])
		if !ok {
			return 0
		}
		inVn := fd.Varnode(op.Inputs[0])
		if inVn.Def == pcode.NoOp {
			return 0
		}
		inner := fd.Op(inVn.Def)
		if inner.Opcode != op.Opcode || len(inner.Inputs) != 2 || len(inVn.Descendants) != 1 {
			return 0
		}
		innerAmt, ok := constOf(fd, inner.Inputs[1])
		if !ok {
			return 0
		}
		total := outerAmt + innerAmt
		outSize := fd.Varnode(op.Output).Size
		if total >= uint64(8*outSize) {
			zero := fd.NewConstant(outSize, 0)
			fd.TotalReplace(op.Output, zero)
			fd.OpDestroy(opID)
			return 1
		}
		fd.OpSetInput(opID, inner.Inputs[0], 0)
		fd.OpSetInput(opID, fd.NewConstant(fd.Varnode(op.Inputs[1]).Size, total), 1)
		return 1
	},
}

// RuleDoubleArithShift saturates a chain of signed-right shifts at
// bit-width-1: an arithmetic shift by more than the width is equivalent
// to shifting by width-1, since it replicates the sign bit either way.
var RuleDoubleArithShift = rule.Rule{
	Name:   "double_arith_shift",
	OpList: []pcode.OpCode{pcode.INT_SRIGHT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		outerAmt, ok := constOf(fd, op.Inputs[1])
		if !ok {
			return 0
		}
		inVn := fd.Varnode(op.Inputs[0])
		if inVn.Def == pcode.NoOp {
			return 0
		}
		inner := fd.Op(inVn.Def)
		if inner.Opcode != pcode.INT_SRIGHT || len(inner.Inputs) != 2 || len(inVn.Descendants) != 1 {
			return 0
		}
		innerAmt, ok := constOf(fd, inner.Inputs[1])
		if !ok {
			return 0
		}
		width := uint64(8 * fd.Varnode(op.Output).Size)
		total := outerAmt + innerAmt
		if total > width-1 {
			total = width - 1
		}
		fd.OpSetInput(opID, inner.Inputs[0], 0)
		fd.OpSetInput(opID, fd.NewConstant(fd.Varnode(op.Inputs[1]).Size, total), 1)
		return 1
	},
}

// RuleConcatShift rewrites a right-shift of a PIECE by exactly the
// low-piece's bit width into a (Z|S)EXT of the high piece — the shift
// discards every bit of lo and leaves hi, reinterpreted at the output
// size. Larger shift amounts are not matched.
var RuleConcatShift = rule.Rule{
	Name:   "concat_shift",
	OpList: []pcode.OpCode{pcode.INT_RIGHT, pcode.INT_SRIGHT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		shamt, ok := constOf(fd, op.Inputs[1])
		if !ok {
			return 0
		}
		srcVn := fd.Varnode(op.Inputs[0])
		if srcVn.Def == pcode.NoOp {
			return 0
		}
		pieceOp := fd.Op(srcVn.Def)
		if pieceOp.Opcode != pcode.PIECE || len(pieceOp.Inputs) != 2 {
			return 0
		}
		loSize := fd.Varnode(pieceOp.Inputs[1]).Size
		if shamt != uint64(8*loSize) {
			return 0
		}
		hi := pieceOp.Inputs[0]
		hiSize := fd.Varnode(hi).Size
		outSize := fd.Varnode(op.Output).Size
		if hiSize == outSize {
			fd.TotalReplace(op.Output, hi)
			fd.OpDestroy(opID)
			return 1
		}
		if hiSize > outSize {
			return 0
		}
		newOp := pcode.INT_ZEXT
		if op.Opcode == pcode.INT_SRIGHT {
			newOp = pcode.INT_SEXT
		}
		fd.OpSetOpcode(opID, newOp)
		fd.OpRemoveInput(opID, 1)
		fd.OpSetInput(opID, hi, 0)
		return 1
	},
}
