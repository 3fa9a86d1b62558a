package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/value"
)

// RuleSubpieceZext cancels SUBPIECE(INT_ZEXT(v), 0, size) back to v (or
// a narrower SUBPIECE of v) when the truncation lands entirely inside
// the original unextended width.
var RuleSubpieceZext = rule.Rule{
	Name:   "subpiece_zext",
	OpList: []pcode.OpCode{pcode.SUBPIECE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		shift, ok := constOf(fd, op.Inputs[1])
		if !ok || shift != 0 {
			return 0
		}
		srcVn := fd.Varnode(op.Inputs[0])
		if srcVn.Def == pcode.NoOp {
			return 0
		}
		zextOp := fd.Op(srcVn.Def)
		if zextOp.Opcode != pcode.INT_ZEXT || len(zextOp.Inputs) != 1 {
			return 0
		}
		inner := zextOp.Inputs[0]
		innerSize := fd.Varnode(inner).Size
		outSize := fd.Varnode(op.Output).Size
		if outSize == innerSize {
			fd.TotalReplace(op.Output, inner)
			fd.OpDestroy(opID)
			return 1
		}
		if outSize > innerSize {
			return 0
		}
		fd.OpSetInput(opID, inner, 0)
		return 1
	},
}

// RuleSubpieceCopy rewrites SUBPIECE(v, 0, size(v)) — a no-op truncation
// that reproduces the whole input — into a direct replacement with v,
// the SUBPIECE analogue of zext_eliminate.
var RuleSubpieceCopy = rule.Rule{
	Name:   "subpiece_copy",
	OpList: []pcode.OpCode{pcode.SUBPIECE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		shift, ok := constOf(fd, op.Inputs[1])
		if !ok || shift != 0 {
			return 0
		}
		src := op.Inputs[0]
		if fd.Varnode(src).Size != fd.Varnode(op.Output).Size {
			return 0
		}
		fd.TotalReplace(op.Output, src)
		fd.OpDestroy(opID)
		return 1
	},
}

// RuleSubpiecePiece simplifies SUBPIECE over a PIECE by selecting
// whichever side of the concatenation the truncation window falls
// entirely within, skipping the concatenation altogether; it declines when the window straddles both
// halves. Big-endian JoinRecord layouts swap which side is "low" in
// address terms — unresolved here; see the big-endian TODO below.
var RuleSubpiecePiece = rule.Rule{
	Name:   "subpiece_piece",
	OpList: []pcode.OpCode{pcode.SUBPIECE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		shift, ok := constOf(fd, op.Inputs[1])
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
		outSize := fd.Varnode(op.Output).Size
		// TODO: this only resolves the little-endian layout, where
		// SUBPIECE's byte shift counts up from the PIECE's low
		// (second) operand; the big-endian JoinRecord case inverts
		// which operand "shift 0" names and is not analyzed yet
		// (unresolved open question, see DESIGN.md).
		if shift == 0 && int(outSize) <= loSize {
			fd.OpSetInput(opID, pieceOp.Inputs[1], 0)
			return 1
		}
		if int64(shift) >= int64(loSize) && int(shift)+outSize <= loSize+fd.Varnode(pieceOp.Inputs[0]).Size {
			fd.OpSetInput(opID, pieceOp.Inputs[0], 0)
			fd.OpSetInput(opID, fd.NewConstant(fd.Varnode(op.Inputs[1]).Size, shift-uint64(loSize)), 1)
			return 1
		}
		return 0
	},
}

// RuleSubpieceAndDown pushes a SUBPIECE through an INT_AND by a
// constant mask, taking the overlapping slice of the mask instead of
// masking the full-width value first.
var RuleSubpieceAndDown = rule.Rule{
	Name:   "subpiece_and",
	OpList: []pcode.OpCode{pcode.SUBPIECE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		shift, ok := constOf(fd, op.Inputs[1])
		if !ok {
			return 0
		}
		srcVn := fd.Varnode(op.Inputs[0])
		if srcVn.Def == pcode.NoOp || len(srcVn.Descendants) != 1 {
			return 0
		}
		andOp := fd.Op(srcVn.Def)
		if andOp.Opcode != pcode.INT_AND || len(andOp.Inputs) != 2 {
			return 0
		}
		maskV, slot := uint64(0), -1
		if cv, ok := constOf(fd, andOp.Inputs[1]); ok {
			maskV, slot = cv, 0
		} else if cv, ok := constOf(fd, andOp.Inputs[0]); ok {
			maskV, slot = cv, 1
		} else {
			return 0
		}
		outSize := fd.Varnode(op.Output).Size
		slice := (maskV >> (8 * shift)) & value.CalcMask(outSize)
		narrowed := andOp.Inputs[slot]

		subNewOp := fd.NewOp(2, op.Addr)
		fd.OpSetOpcode(subNewOp, pcode.SUBPIECE)
		fd.OpSetInput(subNewOp, narrowed, 0)
		fd.OpSetInput(subNewOp, fd.NewConstant(fd.Varnode(op.Inputs[1]).Size, shift), 1)
		subOut := fd.NewUniqueOut(outSize, subNewOp)
		fd.OpInsertBefore(subNewOp, opID)

		fd.OpSetOpcode(opID, pcode.INT_AND)
		fd.OpSetInput(opID, subOut, 0)
		fd.OpSetInput(opID, fd.NewConstant(outSize, slice), 1)
		return 1
	},
}
