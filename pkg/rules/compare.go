package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
)

// RuleLessEqual rewrites a<=b into !(b<a) is not performed here (that
// would grow op count); instead this canonicalizes the degenerate case
// where b is the maximum representable value of its width, which makes
// the comparison trivially true, and the mirrored minimum case for
// INT_LESS.
var RuleLessEqual = rule.Rule{
	Name:   "less_equal",
	OpList: []pcode.OpCode{pcode.INT_LESSEQUAL, pcode.INT_LESS},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		bv, ok := constOf(fd, op.Inputs[1])
		if !ok {
			return 0
		}
		out := fd.Varnode(op.Output)
		max := fd.Varnode(op.Inputs[0]).Mask()
		if op.Opcode == pcode.INT_LESSEQUAL && bv == max {
			fd.TotalReplace(op.Output, fd.NewConstant(out.Size, 1))
			fd.OpDestroy(opID)
			return 1
		}
		if op.Opcode == pcode.INT_LESS && bv == 0 {
			fd.TotalReplace(op.Output, fd.NewConstant(out.Size, 0))
			fd.OpDestroy(opID)
			return 1
		}
		return 0
	},
}

// RuleEqual2Zero rewrites INT_EQUAL/INT_NOTEQUAL against zero into
// BOOL_NEGATE(v)/v when v is already boolean-valued (nz_mask fits in one
// bit), avoiding a redundant comparison.
var RuleEqual2Zero = rule.Rule{
	Name:   "equal2zero",
	OpList: []pcode.OpCode{pcode.INT_EQUAL, pcode.INT_NOTEQUAL},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		a, b := op.Inputs[0], op.Inputs[1]
		bv, ok := constOf(fd, b)
		if !ok {
			return 0
		}
		av := fd.Varnode(a)
		if bv != 0 || av.NZMask > 1 {
			return 0
		}
		if op.Opcode == pcode.INT_NOTEQUAL {
			fd.TotalReplace(op.Output, a)
			fd.OpDestroy(opID)
			return 1
		}
		fd.OpSetOpcode(opID, pcode.BOOL_NEGATE)
		fd.OpRemoveInput(opID, 1)
		return 1
	},
}

// RuleNotDistribute pushes BOOL_NEGATE through a comparison by flipping
// to its negated comparison op-code, eliminating the separate negate.
var RuleNotDistribute = rule.Rule{
	Name:   "not_distribute",
	OpList: []pcode.OpCode{pcode.BOOL_NEGATE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 1 {
			return 0
		}
		srcVn := fd.Varnode(op.Inputs[0])
		if srcVn.Def == pcode.NoOp || len(srcVn.Descendants) != 1 {
			return 0
		}
		def := fd.Op(srcVn.Def)
		negated, ok := negateCompare(def.Opcode)
		if !ok {
			return 0
		}
		fd.TotalReplace(op.Output, op.Inputs[0])
		fd.OpSetOpcode(srcVn.Def, negated)
		fd.OpDestroy(opID)
		return 1
	},
}

func negateCompare(op pcode.OpCode) (pcode.OpCode, bool) {
	switch op {
	case pcode.INT_EQUAL:
		return pcode.INT_NOTEQUAL, true
	case pcode.INT_NOTEQUAL:
		return pcode.INT_EQUAL, true
	case pcode.INT_LESS:
		return pcode.INT_LESSEQUAL, false // no direct negation without operand swap; excluded
	}
	return pcode.CPUI_MAX, false
}

// RuleLess2Zero rewrites INT_SLESS(v, 0) into a sign-bit test: shift v
// right arithmetically by width-1 bits to replicate the sign bit, then
// mask to a single bit, avoiding the general comparator. The AND keeps the boolean result at exactly 0 or 1,
// since an arithmetic shift alone would leave all bits set when v is
// negative rather than just the low bit.
var RuleLess2Zero = rule.Rule{
	Name:   "less2zero",
	OpList: []pcode.OpCode{pcode.INT_SLESS},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		bv, ok := constOf(fd, op.Inputs[1])
		if !ok || bv != 0 {
			return 0
		}
		in := op.Inputs[0]
		width := fd.Varnode(in).Size
		outSize := fd.Varnode(op.Output).Size

		shiftOp := fd.NewOp(2, op.Addr)
		fd.OpSetOpcode(shiftOp, pcode.INT_SRIGHT)
		fd.OpSetInput(shiftOp, in, 0)
		fd.OpSetInput(shiftOp, fd.NewConstant(4, uint64(8*width-1)), 1)
		shifted := fd.NewUniqueOut(width, shiftOp)
		fd.OpInsertBefore(shiftOp, opID)

		narrowed := shifted
		if outSize != width {
			subOp := fd.NewOp(2, op.Addr)
			fd.OpSetOpcode(subOp, pcode.SUBPIECE)
			fd.OpSetInput(subOp, shifted, 0)
			fd.OpSetInput(subOp, fd.NewConstant(4, 0), 1)
			narrowed = fd.NewUniqueOut(outSize, subOp)
			fd.OpInsertBefore(subOp, opID)
		}

		fd.OpSetOpcode(opID, pcode.INT_AND)
		fd.OpSetInput(opID, narrowed, 0)
		fd.OpSetInput(opID, fd.NewConstant(outSize, 1), 1)
		return 1
	},
}
