// Package rules is the rewrite catalogue: algebraic identities,
// mask/shift normalization, comparison canonicalization,
// division-by-constant recovery, pointer arithmetic, structured-data
// reconstruction, load/store rewrites, control-flow simplification, and
// miscellaneous peepholes. Each Rule is grounded on the bitmask
// read/write-set reasoning of a pruner (dead-write and self-load
// elimination) generalized from fixed register masks to the
// arbitrary-width nz_mask/consume_mask used here.
package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
)

// constOf returns the constant value of v's operand if it is a
// constant-space Varnode, and whether it was.
func constOf(fd *funcdata.FunctionData, v pcode.VarnodeID) (uint64, bool) {
	vn := fd.Varnode(v)
	if vn == nil || !vn.IsConstant() {
		return 0, false
	}
	return vn.ConstValue(), true
}

// RuleEarlyRemoval destroys any non-call op whose output has no
// descendants and whose space permits dead removal.
var RuleEarlyRemoval = rule.Rule{
	Name:   "early_removal",
	OpList: nil, // universal: dead-code elimination applies to every op-code
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		if fd.EarlyRemoval(opID) {
			return 1
		}
		return 0
	},
}

// RuleIdentityEl folds the additive/multiplicative/boolean identities:
// x+0->x, x|0->x, x^0->x, x*1->x, x*0->0, and their boolean variants.
var RuleIdentityEl = rule.Rule{
	Name:   "identity_el",
	OpList: []pcode.OpCode{pcode.INT_ADD, pcode.INT_OR, pcode.INT_XOR, pcode.INT_MULT, pcode.BOOL_AND, pcode.BOOL_OR},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		a, b := op.Inputs[0], op.Inputs[1]
		cv, isConst := constOf(fd, b)
		if !isConst {
			a, b = b, a
			cv, isConst = constOf(fd, b)
			if !isConst {
				return 0
			}
		}
		switch op.Opcode {
		case pcode.INT_ADD, pcode.INT_OR, pcode.INT_XOR, pcode.BOOL_OR:
			if cv == 0 {
				fd.TotalReplace(op.Output, a)
				fd.OpDestroy(opID)
				return 1
			}
		case pcode.INT_MULT:
			if cv == 1 {
				fd.TotalReplace(op.Output, a)
				fd.OpDestroy(opID)
				return 1
			}
			if cv == 0 {
				zero := fd.NewConstant(fd.Varnode(op.Output).Size, 0)
				fd.TotalReplace(op.Output, zero)
				fd.OpDestroy(opID)
				return 1
			}
		case pcode.BOOL_AND:
			if cv != 0 {
				fd.TotalReplace(op.Output, a)
				fd.OpDestroy(opID)
				return 1
			}
		}
		return 0
	},
}

// RuleTrivialArith folds ops whose two inputs are CSE-equal (the same
// Varnode read twice): x==x->true, x<x->false, x&x->x, x^x->0, etc..
var RuleTrivialArith = rule.Rule{
	Name: "trivial_arith",
	OpList: []pcode.OpCode{
		pcode.INT_EQUAL, pcode.INT_NOTEQUAL, pcode.INT_LESS, pcode.INT_LESSEQUAL,
		pcode.INT_SLESS, pcode.INT_SLESSEQUAL, pcode.INT_AND, pcode.INT_OR, pcode.INT_XOR,
		pcode.INT_SUB, pcode.BOOL_XOR,
	},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Inputs[0] != op.Inputs[1] || op.Output == pcode.NoVarnode {
			return 0
		}
		out := fd.Varnode(op.Output)
		switch op.Opcode {
		case pcode.INT_EQUAL, pcode.INT_LESSEQUAL, pcode.INT_SLESSEQUAL:
			fd.TotalReplace(op.Output, fd.NewConstant(out.Size, 1))
		case pcode.INT_NOTEQUAL, pcode.INT_LESS, pcode.INT_SLESS, pcode.BOOL_XOR, pcode.INT_SUB, pcode.INT_XOR:
			fd.TotalReplace(op.Output, fd.NewConstant(out.Size, 0))
		case pcode.INT_AND, pcode.INT_OR:
			fd.TotalReplace(op.Output, op.Inputs[0])
		default:
			return 0
		}
		fd.OpDestroy(opID)
		return 1
	},
}

// RuleCollapseConstants evaluates op via Evaluate when every input is
// constant, replacing it with a COPY of the folded constant.
var RuleCollapseConstants = rule.Rule{
	Name:   "collapse_constants",
	OpList: nil,
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if op.Flags&pcode.OpNoCollapse != 0 || op.Output == pcode.NoVarnode {
			return 0
		}
		if !isPureOpcode(op.Opcode) {
			return 0
		}
		ins := make([]uint64, len(op.Inputs))
		sizes := make([]int, len(op.Inputs))
		for i, v := range op.Inputs {
			cv, ok := constOf(fd, v)
			if !ok {
				return 0
			}
			ins[i] = cv
			sizes[i] = fd.Varnode(v).Size
		}
		out := fd.Varnode(op.Output)
		folded, ok := pcode.Evaluate(op.Opcode, out.Size, sizes, ins)
		if !ok {
			return 0
		}
		fd.TotalReplace(op.Output, fd.NewConstant(out.Size, folded))
		fd.OpDestroy(opID)
		return 1
	},
}

func isPureOpcode(op pcode.OpCode) bool {
	switch op {
	case pcode.LOAD, pcode.STORE, pcode.BRANCH, pcode.CBRANCH, pcode.BRANCHIND,
		pcode.CALL, pcode.CALLIND, pcode.CALLOTHER, pcode.RETURN,
		pcode.MULTIEQUAL, pcode.INDIRECT, pcode.CPOOLREF, pcode.NEW, pcode.SEGMENTOP:
		return false
	}
	return true
}

// RulePropagateCopy chases COPY chains: a descendant reading the output
// of a COPY is rewired to read the COPY's source directly.
var RulePropagateCopy = rule.Rule{
	Name:   "propagate_copy",
	OpList: []pcode.OpCode{pcode.COPY},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 1 || op.Output == pcode.NoVarnode {
			return 0
		}
		out := fd.Varnode(op.Output)
		if out.Flags&pcode.FlagAddrForce != 0 || out.Flags&pcode.FlagAddrTied != 0 {
			return 0
		}
		src := op.Inputs[0]
		if len(out.Descendants) == 0 {
			return 0
		}
		fd.TotalReplace(op.Output, src)
		fd.OpDestroy(opID)
		return 1
	},
}
