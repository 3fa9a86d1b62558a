package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/value"
)

// RuleAndMask uses nz_mask to collapse an INT_AND when the mask is a
// no-op (nz_mask already fits inside the constant) or the result is
// demonstrably zero.
var RuleAndMask = rule.Rule{
	Name:   "and_mask",
	OpList: []pcode.OpCode{pcode.INT_AND},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		a, b := op.Inputs[0], op.Inputs[1]
		maskVal, ok := constOf(fd, b)
		if !ok {
			a, b = b, a
			maskVal, ok = constOf(fd, b)
			if !ok {
				return 0
			}
		}
		out := fd.Varnode(op.Output)
		av := fd.Varnode(a)
		if av.NZMask&^maskVal == 0 {
			// every bit av could have set is already covered by the mask
			fd.TotalReplace(op.Output, a)
			fd.OpDestroy(opID)
			return 1
		}
		if av.NZMask&maskVal == 0 {
			fd.TotalReplace(op.Output, fd.NewConstant(out.Size, 0))
			fd.OpDestroy(opID)
			return 1
		}
		return 0
	},
}

// RuleOrMask is AND's dual for INT_OR: if the constant's bits are
// already a subset of what consumers observe being forced to 1 by
// nz_mask reasoning is unsound in general, but an OR-by-zero and an
// OR-by-all-ones both collapse cleanly.
var RuleOrMask = rule.Rule{
	Name:   "or_mask",
	OpList: []pcode.OpCode{pcode.INT_OR},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		a, b := op.Inputs[0], op.Inputs[1]
		cv, ok := constOf(fd, b)
		if !ok {
			a, b = b, a
			cv, ok = constOf(fd, b)
			if !ok {
				return 0
			}
		}
		out := fd.Varnode(op.Output)
		if cv == out.Mask() {
			fd.TotalReplace(op.Output, b)
			fd.OpDestroy(opID)
			return 1
		}
		if cv == 0 {
			fd.TotalReplace(op.Output, a)
			fd.OpDestroy(opID)
			return 1
		}
		return 0
	},
}

// RuleOrConsume drops bits of an INT_OR's constant operand that no
// descendant of the output can ever observe, using consume_mask. If the trimmed constant becomes zero, the OR
// collapses entirely via a follow-up identity_el pass.
var RuleOrConsume = rule.Rule{
	Name:   "or_consume",
	OpList: []pcode.OpCode{pcode.INT_OR},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		out := fd.Varnode(op.Output)
		if out.ConsumeMask == 0 || out.ConsumeMask == out.Mask() {
			return 0
		}
		for slot, in := range op.Inputs {
			cv, ok := constOf(fd, in)
			if !ok {
				continue
			}
			trimmed := cv & out.ConsumeMask
			if trimmed != cv {
				fd.OpSetInput(opID, fd.NewConstant(fd.Varnode(in).Size, trimmed), slot)
				return 1
			}
		}
		return 0
	},
}

// RulePiece2Zext rewrites PIECE(const-zero, v) into INT_ZEXT(v) — a
// structurally-zero high half is exactly what zero-extension means.
var RulePiece2Zext = rule.Rule{
	Name:   "piece2zext",
	OpList: []pcode.OpCode{pcode.PIECE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		hiVal, ok := constOf(fd, op.Inputs[0])
		if !ok || hiVal != 0 {
			return 0
		}
		fd.OpSetOpcode(opID, pcode.INT_ZEXT)
		fd.OpRemoveInput(opID, 0)
		return 1
	},
}

// RulePiece2Sext rewrites PIECE(v s>> (8*size(v)-1), v) into
// INT_SEXT(v): the high half is exactly the replicated sign bit of the
// low half.
var RulePiece2Sext = rule.Rule{
	Name:   "piece2sext",
	OpList: []pcode.OpCode{pcode.PIECE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		lo := op.Inputs[1]
		hiVn := fd.Varnode(op.Inputs[0])
		if hiVn.Def == pcode.NoOp {
			return 0
		}
		hiDef := fd.Op(hiVn.Def)
		if hiDef.Opcode != pcode.INT_SRIGHT || len(hiDef.Inputs) != 2 || hiDef.Inputs[0] != lo {
			return 0
		}
		shamt, ok := constOf(fd, hiDef.Inputs[1])
		loSize := fd.Varnode(lo).Size
		if !ok || shamt != uint64(8*loSize-1) {
			return 0
		}
		fd.OpSetOpcode(opID, pcode.INT_SEXT)
		fd.OpRemoveInput(opID, 0)
		return 1
	},
}

// RuleZextEliminate removes a redundant INT_ZEXT whose input and output
// share the same width; the extension collapses to a same-size
// reinterpretation, expressed as a COPY of the input.
var RuleZextEliminate = rule.Rule{
	Name:   "zext_eliminate",
	OpList: []pcode.OpCode{pcode.INT_ZEXT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 1 {
			return 0
		}
		in := fd.Varnode(op.Inputs[0])
		out := fd.Varnode(op.Output)
		if in.Size == out.Size {
			fd.TotalReplace(op.Output, op.Inputs[0])
			fd.OpDestroy(opID)
			return 1
		}
		return 0
	},
}

// RuleZextCommute pushes INT_ZEXT through a same-opcode commutative
// arithmetic op's constant operand so the extension happens once, on
// the narrow variable, rather than being duplicated — approximated here
// as narrowing a ZEXT(a)+ZEXT(b) pair, when both already share the same
// source width, into ZEXT(a+b) when no overflow is observable. Conservative: only fires when the addition's
// nz_mask proves no carry into the extended bits is possible.
var RuleZextCommute = rule.Rule{
	Name:   "zext_commute",
	OpList: []pcode.OpCode{pcode.INT_ADD},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		za, aOK := zextSource(fd, op.Inputs[0])
		zb, bOK := zextSource(fd, op.Inputs[1])
		if !aOK || !bOK {
			return 0
		}
		aSrc := fd.Varnode(za)
		bSrc := fd.Varnode(zb)
		if aSrc.Size != bSrc.Size {
			return 0
		}
		narrowMask := value.CalcMask(aSrc.Size)
		if aSrc.NZMask > narrowMask>>1 || bSrc.NZMask > narrowMask>>1 {
			// a possible carry into the extended bits — not safe to narrow
			return 0
		}
		addOp := fd.NewOp(2, op.Addr)
		fd.OpSetOpcode(addOp, pcode.INT_ADD)
		fd.OpSetInput(addOp, za, 0)
		fd.OpSetInput(addOp, zb, 1)
		sum := fd.NewUniqueOut(aSrc.Size, addOp)
		fd.OpInsertBefore(addOp, opID)
		fd.OpSetOpcode(opID, pcode.INT_ZEXT)
		fd.OpRemoveInput(opID, 1)
		fd.OpSetInput(opID, sum, 0)
		return 1
	},
}

func zextSource(fd *funcdata.FunctionData, v pcode.VarnodeID) (pcode.VarnodeID, bool) {
	vn := fd.Varnode(v)
	if vn.Def == pcode.NoOp {
		return pcode.NoVarnode, false
	}
	def := fd.Op(vn.Def)
	if def.Opcode != pcode.INT_ZEXT || len(def.Inputs) != 1 {
		return pcode.NoVarnode, false
	}
	return def.Inputs[0], true
}
