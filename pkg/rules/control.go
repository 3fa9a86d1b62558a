package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
)

// RuleConditionalMove recognizes a MULTIEQUAL merging two boolean values
// (output NZMask at most 1) where the controlling predecessor blocks
// differ only in a CBRANCH on a simple boolean condition c, and rewrites
// it as INT_OR(INT_AND(trueVal, c), INT_AND(falseVal, BOOL_NEGATE(c))) —
// the inverse of lowering a ternary to a branch. The three helper ops
// are inserted at the head of the merge block, since the IR here has no
// dedicated select op-code.
var RuleConditionalMove = rule.Rule{
	Name:   "conditional_move",
	OpList: []pcode.OpCode{pcode.MULTIEQUAL},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Parent == nil || op.Output == pcode.NoVarnode {
			return 0
		}
		block := op.Parent
		if block.InDegree() != 2 {
			return 0
		}
		pred0, pred1 := block.In[0], block.In[1]
		cond, trueIdx, ok := sharedCbranchCond(pred0, pred1, fd)
		if !ok {
			return 0
		}
		trueVal, falseVal := op.Inputs[trueIdx], op.Inputs[1-trueIdx]
		out := fd.Varnode(op.Output)
		if out.NZMask > 1 || fd.Varnode(trueVal).Size != out.Size || fd.Varnode(falseVal).Size != out.Size {
			return 0
		}

		negOp := fd.NewOp(1, op.Addr)
		fd.OpSetOpcode(negOp, pcode.BOOL_NEGATE)
		fd.OpSetInput(negOp, cond, 0)
		negOut := fd.NewUniqueOut(1, negOp)
		fd.OpInsertBegin(negOp, block)

		andTrue := fd.NewOp(2, op.Addr)
		fd.OpSetOpcode(andTrue, pcode.INT_AND)
		fd.OpSetInput(andTrue, trueVal, 0)
		fd.OpSetInput(andTrue, cond, 1)
		trueOut := fd.NewUniqueOut(out.Size, andTrue)
		fd.OpInsertAfter(andTrue, negOp)

		andFalse := fd.NewOp(2, op.Addr)
		fd.OpSetOpcode(andFalse, pcode.INT_AND)
		fd.OpSetInput(andFalse, falseVal, 0)
		fd.OpSetInput(andFalse, negOut, 1)
		falseOut := fd.NewUniqueOut(out.Size, andFalse)
		fd.OpInsertAfter(andFalse, andTrue)

		fd.OpSetOpcode(opID, pcode.INT_OR)
		fd.OpSetInput(opID, trueOut, 0)
		fd.OpSetInput(opID, falseOut, 1)
		fd.OpUninsert(opID)
		fd.OpInsertAfter(opID, andFalse)
		return 1
	},
}

// sharedCbranchCond recognizes the common if/else-diamond shape: pred0
// and pred1 each have exactly one predecessor, the same block P, whose
// last op is a CBRANCH. It reports P's condition Varnode and which of
// pred0/pred1 is reached on the true edge — by convention here, P.Out[0]
// is the false (fall-through) successor and P.Out[1] is the true
// (taken) successor, matching the op ordering CBRANCH's own MULTIEQUAL
// predecessors use elsewhere in this module.
func sharedCbranchCond(pred0, pred1 *pcode.BasicBlock, fd *funcdata.FunctionData) (pcode.VarnodeID, int, bool) {
	if pred0.InDegree() != 1 || pred1.InDegree() != 1 || pred0.In[0] != pred1.In[0] {
		return pcode.NoVarnode, 0, false
	}
	p := pred0.In[0]
	if len(p.Ops) == 0 || len(p.Out) != 2 {
		return pcode.NoVarnode, 0, false
	}
	last := fd.Op(p.Ops[len(p.Ops)-1])
	if last.Opcode != pcode.CBRANCH || len(last.Inputs) != 2 {
		return pcode.NoVarnode, 0, false
	}
	cond := last.Inputs[1]
	switch {
	case p.Out[1] == pred0:
		return cond, 0, true
	case p.Out[1] == pred1:
		return cond, 1, true
	}
	return pcode.NoVarnode, 0, false
}

// RuleMultiCollapse collapses a MULTIEQUAL with every input equal to
// the same Varnode into a direct use of that Varnode — when control
// flow merges but every path computed the identical value, the phi is
// pure overhead.
var RuleMultiCollapse = rule.Rule{
	Name:   "multi_collapse",
	OpList: []pcode.OpCode{pcode.MULTIEQUAL},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) < 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		first := op.Inputs[0]
		for _, in := range op.Inputs[1:] {
			if in != first {
				return 0
			}
		}
		fd.TotalReplace(op.Output, first)
		fd.OpDestroy(opID)
		return 1
	},
}
