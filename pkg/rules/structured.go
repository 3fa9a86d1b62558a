package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/typeinfo"
)

// RulePieceStructure marks a PIECE whose output's recovered data type
// names an exact piece at its full byte range with OpSpecialPrinting,
// so later display/printing stages render it as a typed field
// construction instead of a raw concatenation. It fires once per op; the flag check makes it
// idempotent.
var RulePieceStructure = rule.Rule{
	Name:   "piece_structure",
	OpList: []pcode.OpCode{pcode.PIECE},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		if !opts.TypeRecoveryStarted {
			return 0
		}
		op := fd.Op(opID)
		if op.Flags&pcode.OpSpecialPrinting != 0 || len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		out := fd.Varnode(op.Output)
		dt, ok := out.DataType.(typeinfo.Datatype)
		if !ok {
			return 0
		}
		if _, exact := dt.GetExactPiece(0, out.Size); !exact {
			return 0
		}
		op.Flags |= pcode.OpSpecialPrinting
		return 1
	},
}

// RuleOrPiece2Copy rebuilds a PIECE from its shifted-OR spelling:
// INT_OR(INT_ZEXT(lo), INT_LEFT(INT_ZEXT(hi), 8*size(lo))), in either
// input order, becomes PIECE(hi, lo) — the reassembly a compiler
// sometimes uses in place of PIECE.
var RuleOrPiece2Copy = rule.Rule{
	Name:   "or_piece2copy",
	OpList: []pcode.OpCode{pcode.INT_OR},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		aVn := fd.Varnode(op.Inputs[0])
		bVn := fd.Varnode(op.Inputs[1])
		if aVn.Def == pcode.NoOp || bVn.Def == pcode.NoOp {
			return 0
		}
		aDef, bDef := fd.Op(aVn.Def), fd.Op(bVn.Def)
		if aDef.Opcode != pcode.INT_ZEXT || bDef.Opcode != pcode.INT_LEFT {
			aDef, bDef = bDef, aDef
			aVn, bVn = bVn, aVn
			op.Inputs[0], op.Inputs[1] = op.Inputs[1], op.Inputs[0]
		}
		if aDef.Opcode != pcode.INT_ZEXT || len(aDef.Inputs) != 1 {
			return 0
		}
		if bDef.Opcode != pcode.INT_LEFT || len(bDef.Inputs) != 2 {
			return 0
		}
		shiftAmt, ok := constOf(fd, bDef.Inputs[1])
		loSize := fd.Varnode(aDef.Inputs[0]).Size
		if !ok || shiftAmt != uint64(8*loSize) {
			return 0
		}
		hiZextVn := fd.Varnode(bDef.Inputs[0])
		if hiZextVn.Def == pcode.NoOp {
			return 0
		}
		hiZext := fd.Op(hiZextVn.Def)
		if hiZext.Opcode != pcode.INT_ZEXT || len(hiZext.Inputs) != 1 {
			return 0
		}
		fd.OpSetOpcode(opID, pcode.PIECE)
		fd.OpSetInput(opID, hiZext.Inputs[0], 0)
		fd.OpSetInput(opID, aDef.Inputs[0], 1)
		return 1
	},
}
