package rules

import (
	"testing"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/typeinfo"
)

func TestRulePieceStructureMarksExactPiece(t *testing.T) {
	fd := funcdata.New("f")
	hi := fd.NewFree(fd.UniqueSpace(), 2)
	lo := fd.NewFree(fd.UniqueSpace(), 2)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.PIECE)
	fd.OpSetInput(op, hi, 0)
	fd.OpSetInput(op, lo, 1)
	out := fd.NewUniqueOut(4, op)
	fd.Varnode(out).DataType = &typeinfo.Struct{
		Size: 4,
		Fields: []typeinfo.Field{
			{Name: "whole", Offset: 0, Type: &typeinfo.Primitive{Meta: typeinfo.UINT, Size: 4}},
		},
	}

	opts := &rule.Options{TypeRecoveryStarted: true}
	if n := RulePieceStructure.Apply(fd, op, opts); n == 0 {
		t.Fatal("RulePieceStructure declined on an exact whole-width piece")
	}
	if fd.Op(op).Flags&pcode.OpSpecialPrinting == 0 {
		t.Error("OpSpecialPrinting flag not set")
	}
	if n := RulePieceStructure.Apply(fd, op, opts); n != 0 {
		t.Errorf("RulePieceStructure fired again once already flagged, n=%d", n)
	}
}

func TestRulePieceStructureDeclinesBeforeTypeRecovery(t *testing.T) {
	fd := funcdata.New("f")
	hi := fd.NewFree(fd.UniqueSpace(), 2)
	lo := fd.NewFree(fd.UniqueSpace(), 2)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.PIECE)
	fd.OpSetInput(op, hi, 0)
	fd.OpSetInput(op, lo, 1)
	fd.NewUniqueOut(4, op)

	if n := RulePieceStructure.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RulePieceStructure fired before type recovery started, n=%d", n)
	}
}

func TestRuleOrPiece2CopyRecognizesShiftedAssembly(t *testing.T) {
	fd := funcdata.New("f")
	loSrc := fd.NewFree(fd.UniqueSpace(), 2)
	hiSrc := fd.NewFree(fd.UniqueSpace(), 2)

	loZextOp := fd.NewOp(1, 0)
	fd.OpSetOpcode(loZextOp, pcode.INT_ZEXT)
	fd.OpSetInput(loZextOp, loSrc, 0)
	loWide := fd.NewUniqueOut(4, loZextOp)

	hiZextOp := fd.NewOp(1, 0)
	fd.OpSetOpcode(hiZextOp, pcode.INT_ZEXT)
	fd.OpSetInput(hiZextOp, hiSrc, 0)
	hiWide := fd.NewUniqueOut(4, hiZextOp)

	shiftOp := fd.NewOp(2, 0)
	fd.OpSetOpcode(shiftOp, pcode.INT_LEFT)
	fd.OpSetInput(shiftOp, hiWide, 0)
	fd.OpSetInput(shiftOp, fd.NewConstant(1, 16), 1)
	shifted := fd.NewUniqueOut(4, shiftOp)

	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_OR)
	fd.OpSetInput(op, loWide, 0)
	fd.OpSetInput(op, shifted, 1)
	fd.NewUniqueOut(4, op)

	if n := RuleOrPiece2Copy.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleOrPiece2Copy declined on the shifted-reassembly idiom")
	}
	if fd.Op(op).Opcode != pcode.PIECE {
		t.Errorf("op.Opcode = %v, want PIECE", fd.Op(op).Opcode)
	}
	if fd.Op(op).Inputs[0] != hiSrc || fd.Op(op).Inputs[1] != loSrc {
		t.Errorf("op.Inputs = %v, want [%d %d] (hi, lo)", fd.Op(op).Inputs, hiSrc, loSrc)
	}
}

func TestRuleOrPiece2CopyDeclinesWithoutShiftedZext(t *testing.T) {
	fd := funcdata.New("f")
	a := fd.NewFree(fd.UniqueSpace(), 4)
	b := fd.NewFree(fd.UniqueSpace(), 4)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_OR)
	fd.OpSetInput(op, a, 0)
	fd.OpSetInput(op, b, 1)
	fd.NewUniqueOut(4, op)

	if n := RuleOrPiece2Copy.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleOrPiece2Copy fired on two plain free varnodes, n=%d", n)
	}
}
