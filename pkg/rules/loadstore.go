package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
)

// RuleStoreDead eliminates a STORE whose stored-to address is
// provably dead: an addr-tied output immediately overwritten before any
// intervening read, detected here as two STOREs to the same address
// Varnode back to back with nothing reading between them.
var RuleStoreDead = rule.Rule{
	Name:   "store_dead",
	OpList: []pcode.OpCode{pcode.STORE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 3 || op.Parent == nil {
			return 0
		}
		idx := indexInBlock(op.Parent, opID)
		if idx < 0 {
			return 0
		}
		for i := idx + 1; i < len(op.Parent.Ops); i++ {
			next := fd.Op(op.Parent.Ops[i])
			if next.IsDead() {
				continue
			}
			if next.Opcode == pcode.STORE && len(next.Inputs) == 3 && next.Inputs[1] == op.Inputs[1] {
				fd.OpDestroy(opID)
				return 1
			}
			if opReadsMemory(next) {
				return 0
			}
			if next.Opcode == pcode.LOAD || isCallOrBranch(next.Opcode) {
				return 0
			}
		}
		return 0
	},
}

// RuleIndirectCollapse collapses an INDIRECT whose guarding op (the op
// named by its iop-space second input) has already been destroyed into
// a plain COPY of its first input: once the op that would have forced
// an indirect effect through this value is gone, the placeholder no
// longer protects anything and downstream rules can see straight
// through it.
var RuleIndirectCollapse = rule.Rule{
	Name:   "indirect_collapse",
	OpList: []pcode.OpCode{pcode.INDIRECT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Inputs[0] == pcode.NoVarnode {
			return 0
		}
		iopVn := fd.Varnode(op.Inputs[1])
		if iopVn.Space != fd.IOPSpace() {
			return 0
		}
		target := pcode.OpID(iopVn.Offset)
		if !fd.Op(target).IsDead() {
			return 0
		}
		fd.OpRemoveInput(opID, 1)
		fd.OpSetOpcode(opID, pcode.COPY)
		return 1
	},
}

func indexInBlock(block *pcode.BasicBlock, opID pcode.OpID) int {
	for i, id := range block.Ops {
		if id == opID {
			return i
		}
	}
	return -1
}

func opReadsMemory(op *pcode.PcodeOp) bool {
	return op.Opcode == pcode.LOAD
}

func isCallOrBranch(op pcode.OpCode) bool {
	switch op {
	case pcode.CALL, pcode.CALLIND, pcode.CALLOTHER, pcode.BRANCH, pcode.CBRANCH, pcode.BRANCHIND, pcode.RETURN:
		return true
	}
	return false
}
