package rules

import (
	"testing"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/pcode/semcheck"
	"github.com/oisee/pcodesimplify/pkg/rule"
)

func TestRuleTrivialShiftOutOfRange(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)
	shamt := fd.NewConstant(1, 8)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_LEFT)
	fd.OpSetInput(op, x, 0)
	fd.OpSetInput(op, shamt, 1)
	out := fd.NewUniqueOut(1, op)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, out, 0)

	if n := RuleTrivialShift.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleTrivialShift declined on a shift at the operand width")
	}
	foldedVn := fd.Varnode(fd.Op(consumer).Inputs[0])
	if !foldedVn.IsConstant() || foldedVn.ConstValue() != 0 {
		t.Errorf("out-of-range shift folded to %+v, want zero constant", foldedVn)
	}
}

func TestRuleTrivialShiftDeclinesInRange(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)
	shamt := fd.NewConstant(1, 4)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_LEFT)
	fd.OpSetInput(op, x, 0)
	fd.OpSetInput(op, shamt, 1)
	fd.NewUniqueOut(1, op)

	if n := RuleTrivialShift.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleTrivialShift fired on an in-range shift amount, n=%d", n)
	}
}

func TestRuleDoubleShiftCombinesSameDirection(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 4)

	inner := fd.NewOp(2, 0)
	fd.OpSetOpcode(inner, pcode.INT_LEFT)
	fd.OpSetInput(inner, x, 0)
	fd.OpSetInput(inner, fd.NewConstant(4, 2), 1)
	innerOut := fd.NewUniqueOut(4, inner)

	outer := fd.NewOp(2, 0)
	fd.OpSetOpcode(outer, pcode.INT_LEFT)
	fd.OpSetInput(outer, innerOut, 0)
	fd.OpSetInput(outer, fd.NewConstant(4, 3), 1)
	fd.NewUniqueOut(4, outer)

	if n := RuleDoubleShift.Apply(fd, outer, &rule.Options{}); n == 0 {
		t.Fatal("RuleDoubleShift declined on two same-direction shifts")
	}
	if fd.Op(outer).Inputs[0] != x {
		t.Errorf("outer.Inputs[0] = %d, want x (%d)", fd.Op(outer).Inputs[0], x)
	}
	amtVn := fd.Varnode(fd.Op(outer).Inputs[1])
	if !amtVn.IsConstant() || amtVn.ConstValue() != 5 {
		t.Errorf("combined shift amount = %+v, want constant 5", amtVn)
	}
}

func TestRuleDoubleShiftSemanticsPreserved(t *testing.T) {
	// Build (x << 2) << 3 and the rule's rewritten x << 5 in two
	// independent graphs, then check they fold to the same result for
	// every bit pattern in the fixed vector bank.
	before := funcdata.New("before")
	x := before.NewFree(before.UniqueSpace(), 4)
	inner := before.NewOp(2, 0)
	before.OpSetOpcode(inner, pcode.INT_LEFT)
	before.OpSetInput(inner, x, 0)
	before.OpSetInput(inner, before.NewConstant(4, 2), 1)
	innerOut := before.NewUniqueOut(4, inner)
	outer := before.NewOp(2, 0)
	before.OpSetOpcode(outer, pcode.INT_LEFT)
	before.OpSetInput(outer, innerOut, 0)
	before.OpSetInput(outer, before.NewConstant(4, 3), 1)
	beforeOut := before.NewUniqueOut(4, outer)

	after := funcdata.New("after")
	y := after.NewFree(after.UniqueSpace(), 4)
	combined := after.NewOp(2, 0)
	after.OpSetOpcode(combined, pcode.INT_LEFT)
	after.OpSetInput(combined, y, 0)
	after.OpSetInput(combined, after.NewConstant(4, 5), 1)
	afterOut := after.NewUniqueOut(4, combined)

	correspond := map[pcode.VarnodeID]pcode.VarnodeID{x: y}
	equivalent, _ := semcheck.ExhaustiveCheck(before, beforeOut, after, afterOut, correspond)
	if !equivalent {
		t.Error("(x<<2)<<3 and x<<5 are not semantically equivalent per ExhaustiveCheck")
	}
}

func TestRuleDoubleArithShiftSaturatesAtWidthMinusOne(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)

	inner := fd.NewOp(2, 0)
	fd.OpSetOpcode(inner, pcode.INT_SRIGHT)
	fd.OpSetInput(inner, x, 0)
	fd.OpSetInput(inner, fd.NewConstant(1, 5), 1)
	innerOut := fd.NewUniqueOut(1, inner)

	outer := fd.NewOp(2, 0)
	fd.OpSetOpcode(outer, pcode.INT_SRIGHT)
	fd.OpSetInput(outer, innerOut, 0)
	fd.OpSetInput(outer, fd.NewConstant(1, 5), 1)
	fd.NewUniqueOut(1, outer)

	if n := RuleDoubleArithShift.Apply(fd, outer, &rule.Options{}); n == 0 {
		t.Fatal("RuleDoubleArithShift declined on a combinable arithmetic-shift chain")
	}
	amtVn := fd.Varnode(fd.Op(outer).Inputs[1])
	if !amtVn.IsConstant() || amtVn.ConstValue() != 7 {
		t.Errorf("saturated shift amount = %+v, want constant 7 (width-1 for a 1-byte value)", amtVn)
	}
}

func TestRuleConcatShiftCollapsesToHighPiece(t *testing.T) {
	fd := funcdata.New("f")
	hi := fd.NewFree(fd.UniqueSpace(), 2)
	lo := fd.NewFree(fd.UniqueSpace(), 2)
	pieceOp := fd.NewOp(2, 0)
	fd.OpSetOpcode(pieceOp, pcode.PIECE)
	fd.OpSetInput(pieceOp, hi, 0)
	fd.OpSetInput(pieceOp, lo, 1)
	pieceOut := fd.NewUniqueOut(4, pieceOp)

	shiftOp := fd.NewOp(2, 0)
	fd.OpSetOpcode(shiftOp, pcode.INT_RIGHT)
	fd.OpSetInput(shiftOp, pieceOut, 0)
	fd.OpSetInput(shiftOp, fd.NewConstant(4, 16), 1)
	out := fd.NewUniqueOut(2, shiftOp)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, out, 0)

	if n := RuleConcatShift.Apply(fd, shiftOp, &rule.Options{}); n == 0 {
		t.Fatal("RuleConcatShift declined on a (hi:lo) >> 16 matching lo's width")
	}
	if fd.Op(consumer).Inputs[0] != hi {
		t.Errorf("consumer input = %d, want hi (%d)", fd.Op(consumer).Inputs[0], hi)
	}
}
