package rules

import (
	"math/bits"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/value"
)

// RuleTermOrder canonicalizes the operand order of a commutative op so a
// constant operand always lands in slot 1, giving every other rule here
// a single shape to match against instead of two.
var RuleTermOrder = rule.Rule{
	Name: "term_order",
	OpList: []pcode.OpCode{
		pcode.INT_ADD, pcode.INT_MULT, pcode.INT_AND, pcode.INT_OR, pcode.INT_XOR,
		pcode.INT_EQUAL, pcode.INT_NOTEQUAL, pcode.BOOL_AND, pcode.BOOL_OR, pcode.BOOL_XOR,
	},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || !op.Opcode.IsCommutative() {
			return 0
		}
		a, b := op.Inputs[0], op.Inputs[1]
		_, aConst := constOf(fd, a)
		_, bConst := constOf(fd, b)
		if !aConst || bConst {
			return 0
		}
		fd.OpSetInput(opID, b, 0)
		fd.OpSetInput(opID, a, 1)
		return 1
	},
}

// RuleCollectTerms folds the degenerate sum-of-products case x+x into
// x*2, the simplest instance of coefficient collection: a later pass of
// term_order and collapse_constants can fold the resulting INT_MULT
// further if 2 combines with another constant factor.
var RuleCollectTerms = rule.Rule{
	Name:   "collect_terms",
	OpList: []pcode.OpCode{pcode.INT_ADD},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Inputs[0] != op.Inputs[1] || op.Output == pcode.NoVarnode {
			return 0
		}
		two := fd.NewConstant(fd.Varnode(op.Output).Size, 2)
		fd.OpSetOpcode(opID, pcode.INT_MULT)
		fd.OpSetInput(opID, two, 1)
		return 1
	},
}

// RuleMultNegOne prefers INT_2COMP(v) over INT_MULT(v, -1): the negate
// op-code is the canonical spelling this module's other rules (sign
// recovery, three_way_compare's negated addend) already special-case.
var RuleMultNegOne = rule.Rule{
	Name:   "mult_neg_one",
	OpList: []pcode.OpCode{pcode.INT_MULT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		cv, ok := constOf(fd, op.Inputs[1])
		size := fd.Varnode(op.Inputs[1]).Size
		if !ok || cv != value.CalcMask(size) {
			return 0
		}
		fd.OpSetOpcode(opID, pcode.INT_2COMP)
		fd.OpRemoveInput(opID, 1)
		return 1
	},
}

// RuleBooleanNegateDedup cancels a double BOOL_NEGATE: not_distribute
// already pushes a single negate into its source comparison, but a
// negate directly feeding another negate (no comparison in between)
// needs this separate cancellation.
var RuleBooleanNegateDedup = rule.Rule{
	Name:   "boolean_dedup",
	OpList: []pcode.OpCode{pcode.BOOL_NEGATE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 1 {
			return 0
		}
		srcVn := fd.Varnode(op.Inputs[0])
		if srcVn.Def == pcode.NoOp {
			return 0
		}
		def := fd.Op(srcVn.Def)
		if def.Opcode != pcode.BOOL_NEGATE || len(def.Inputs) != 1 {
			return 0
		}
		fd.TotalReplace(op.Output, def.Inputs[0])
		fd.OpDestroy(opID)
		return 1
	},
}

// RuleLzcountShiftBool recognizes LZCOUNT(x) >> log2(bit-width) and
// replaces it with x==0: the shift can only survive a nonzero result
// when every leading bit counted, which happens exactly when x is zero.
var RuleLzcountShiftBool = rule.Rule{
	Name:   "lzcount_shift_bool",
	OpList: []pcode.OpCode{pcode.INT_RIGHT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		shiftAmt, ok := constOf(fd, op.Inputs[1])
		if !ok {
			return 0
		}
		srcVn := fd.Varnode(op.Inputs[0])
		if srcVn.Def == pcode.NoOp {
			return 0
		}
		def := fd.Op(srcVn.Def)
		if def.Opcode != pcode.LZCOUNT || len(def.Inputs) != 1 {
			return 0
		}
		bitWidth := 8 * fd.Varnode(def.Inputs[0]).Size
		if bitWidth&(bitWidth-1) != 0 {
			return 0 // only power-of-two widths have a clean log2 shift amount
		}
		log2 := uint64(bits.Len(uint(bitWidth)) - 1)
		if shiftAmt != log2 {
			return 0
		}
		fd.OpSetOpcode(opID, pcode.INT_EQUAL)
		fd.OpSetInput(opID, def.Inputs[0], 0)
		fd.OpSetInput(opID, fd.NewConstant(fd.Varnode(def.Inputs[0]).Size, 0), 1)
		return 1
	},
}
