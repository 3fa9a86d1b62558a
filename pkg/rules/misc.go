package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/value"
)

// RuleSegment collapses a SEGMENTOP whose segment-selector input is the
// constant zero flat-model selector into a direct copy of the offset
// input, since a zero selector denotes "no segmentation" on every
// target this module has needed to model.
var RuleSegment = rule.Rule{
	Name:   "segment",
	OpList: []pcode.OpCode{pcode.SEGMENTOP},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 3 || op.Output == pcode.NoVarnode {
			return 0
		}
		sel, ok := constOf(fd, op.Inputs[1])
		if !ok || sel != 0 {
			return 0
		}
		fd.TotalReplace(op.Output, op.Inputs[2])
		fd.OpDestroy(opID)
		return 1
	},
}

// RuleCpoolFixup marks a CPOOLREF as cpool-transformed once its
// reference has been resolved to a constant-pool entry sufficiently
// that downstream rules should treat its output as opaque rather than
// re-deriving facts from its (now-stale) input operands. The constant-pool resolver itself is the out-of-scope
// type-factory collaborator this rule only flags for.
var RuleCpoolFixup = rule.Rule{
	Name:   "cpool_fixup",
	OpList: []pcode.OpCode{pcode.CPOOLREF},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if op.Flags&pcode.OpCpoolTransformed != 0 {
			return 0
		}
		op.Flags |= pcode.OpCpoolTransformed
		return 1
	},
}

// RuleFuncPtrEncoding clears the low alignment bits of a CALLIND target,
// undoing a target's "thumb-bit"-style function pointer tagging scheme
// so the decompiler's call graph resolves to the real function start
// address. The target is either a literal constant, or a general value
// p fed through INT_AND(p, mask) where mask clears exactly the
// alignment bits — the latter is the realistic case, since a truly
// constant call target would already have been folded by an earlier
// stage; rewriting it rewires the CALLIND to read p directly, discarding
// the AND.
var RuleFuncPtrEncoding = rule.Rule{
	Name:   "func_ptr_encoding",
	OpList: []pcode.OpCode{pcode.CALLIND},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		if opts.FuncPtrAlignBits <= 0 {
			return 0
		}
		op := fd.Op(opID)
		if len(op.Inputs) < 1 {
			return 0
		}
		target := op.Inputs[0]
		alignMask := (uint64(1) << uint(opts.FuncPtrAlignBits)) - 1

		if cv, ok := constOf(fd, target); ok {
			if cv&alignMask == 0 {
				return 0
			}
			fd.OpSetInput(opID, fd.NewConstant(fd.Varnode(target).Size, cv&^alignMask), 0)
			return 1
		}

		targetVn := fd.Varnode(target)
		if targetVn.Def == pcode.NoOp {
			return 0
		}
		andOp := fd.Op(targetVn.Def)
		if andOp.Opcode != pcode.INT_AND || len(andOp.Inputs) != 2 {
			return 0
		}
		p, maskIn := andOp.Inputs[0], andOp.Inputs[1]
		maskVal, ok := constOf(fd, maskIn)
		if !ok {
			p, maskIn = andOp.Inputs[1], andOp.Inputs[0]
			maskVal, ok = constOf(fd, maskIn)
		}
		if !ok {
			return 0
		}
		if maskVal&alignMask != 0 || maskVal|alignMask != value.CalcMask(fd.Varnode(maskIn).Size) {
			return 0
		}
		fd.OpSetInput(opID, p, 0)
		return 1
	},
}

// RuleLzcountPopcount folds POPCOUNT/LZCOUNT of a provably-zero operand
// (nz_mask is all-zero) to their well-defined constant results, since
// collapse_constants only fires when the operand is a literal constant
// and nz_mask can prove more than that.
var RuleLzcountPopcount = rule.Rule{
	Name:   "lzcount_popcount",
	OpList: []pcode.OpCode{pcode.POPCOUNT, pcode.LZCOUNT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 1 || op.Output == pcode.NoVarnode {
			return 0
		}
		in := fd.Varnode(op.Inputs[0])
		if in.NZMask != 0 {
			return 0
		}
		out := fd.Varnode(op.Output)
		result := uint64(0)
		if op.Opcode == pcode.LZCOUNT {
			result = uint64(8 * in.Size)
		}
		fd.TotalReplace(op.Output, fd.NewConstant(out.Size, result))
		fd.OpDestroy(opID)
		return 1
	},
}
