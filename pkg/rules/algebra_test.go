package rules

import (
	"testing"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/value"
)

func TestRuleTermOrderMovesConstantToSlotOne(t *testing.T) {
	fd := funcdata.New("f")
	v := fd.NewFree(fd.UniqueSpace(), 4)
	c := fd.NewConstant(4, 7)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_ADD)
	fd.OpSetInput(op, c, 0)
	fd.OpSetInput(op, v, 1)
	fd.NewUniqueOut(4, op)

	if n := RuleTermOrder.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleTermOrder declined on a constant-first commutative op")
	}
	if fd.Op(op).Inputs[0] != v || fd.Op(op).Inputs[1] != c {
		t.Errorf("op.Inputs = %v, want [%d %d] (v, c)", fd.Op(op).Inputs, v, c)
	}
}

func TestRuleTermOrderDeclinesWhenAlreadyOrdered(t *testing.T) {
	fd := funcdata.New("f")
	v := fd.NewFree(fd.UniqueSpace(), 4)
	c := fd.NewConstant(4, 7)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_ADD)
	fd.OpSetInput(op, v, 0)
	fd.OpSetInput(op, c, 1)
	fd.NewUniqueOut(4, op)

	if n := RuleTermOrder.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleTermOrder fired when the constant was already in slot 1, n=%d", n)
	}
}

func TestRuleCollectTermsFoldsSelfAddIntoMultiplyByTwo(t *testing.T) {
	fd := funcdata.New("f")
	v := fd.NewFree(fd.UniqueSpace(), 4)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_ADD)
	fd.OpSetInput(op, v, 0)
	fd.OpSetInput(op, v, 1)
	fd.NewUniqueOut(4, op)

	if n := RuleCollectTerms.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleCollectTerms declined on x+x")
	}
	rewritten := fd.Op(op)
	if rewritten.Opcode != pcode.INT_MULT {
		t.Errorf("op.Opcode = %v, want INT_MULT", rewritten.Opcode)
	}
	cv, ok := constOf(fd, rewritten.Inputs[1])
	if !ok || cv != 2 {
		t.Errorf("multiplier = %v, ok=%v, want 2", cv, ok)
	}
}

func TestRuleMultNegOneRewritesToTwosComplement(t *testing.T) {
	fd := funcdata.New("f")
	v := fd.NewFree(fd.UniqueSpace(), 4)
	negOne := fd.NewConstant(4, value.CalcMask(4))
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_MULT)
	fd.OpSetInput(op, v, 0)
	fd.OpSetInput(op, negOne, 1)
	fd.NewUniqueOut(4, op)

	if n := RuleMultNegOne.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleMultNegOne declined on INT_MULT(v, -1)")
	}
	rewritten := fd.Op(op)
	if rewritten.Opcode != pcode.INT_2COMP || len(rewritten.Inputs) != 1 || rewritten.Inputs[0] != v {
		t.Errorf("op = %+v, want INT_2COMP(v)", rewritten)
	}
}

func TestRuleMultNegOneDeclinesOnOtherConstant(t *testing.T) {
	fd := funcdata.New("f")
	v := fd.NewFree(fd.UniqueSpace(), 4)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_MULT)
	fd.OpSetInput(op, v, 0)
	fd.OpSetInput(op, fd.NewConstant(4, 3), 1)
	fd.NewUniqueOut(4, op)

	if n := RuleMultNegOne.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleMultNegOne fired on a non -1 multiplier, n=%d", n)
	}
}

func TestRuleBooleanNegateDedupCancelsDoubleNegate(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)
	inner := fd.NewOp(1, 0)
	fd.OpSetOpcode(inner, pcode.BOOL_NEGATE)
	fd.OpSetInput(inner, x, 0)
	innerOut := fd.NewUniqueOut(1, inner)

	outer := fd.NewOp(1, 0)
	fd.OpSetOpcode(outer, pcode.BOOL_NEGATE)
	fd.OpSetInput(outer, innerOut, 0)
	outerOut := fd.NewUniqueOut(1, outer)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, outerOut, 0)

	if n := RuleBooleanNegateDedup.Apply(fd, outer, &rule.Options{}); n == 0 {
		t.Fatal("RuleBooleanNegateDedup declined on BOOL_NEGATE(BOOL_NEGATE(x))")
	}
	if fd.Op(consumer).Inputs[0] != x {
		t.Errorf("consumer rewired to %d, want x (%d)", fd.Op(consumer).Inputs[0], x)
	}
}

func TestRuleLzcountShiftBoolRewritesToEqualZero(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 4) // 32 bits, log2(32) = 5
	lz := fd.NewOp(1, 0)
	fd.OpSetOpcode(lz, pcode.LZCOUNT)
	fd.OpSetInput(lz, x, 0)
	lzOut := fd.NewUniqueOut(4, lz)

	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_RIGHT)
	fd.OpSetInput(op, lzOut, 0)
	fd.OpSetInput(op, fd.NewConstant(1, 5), 1)
	fd.NewUniqueOut(4, op)

	if n := RuleLzcountShiftBool.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleLzcountShiftBool declined on LZCOUNT(x) >> 5 over a 32-bit x")
	}
	rewritten := fd.Op(op)
	if rewritten.Opcode != pcode.INT_EQUAL || rewritten.Inputs[0] != x {
		t.Errorf("op = %+v, want INT_EQUAL(x, 0)", rewritten)
	}
	cv, ok := constOf(fd, rewritten.Inputs[1])
	if !ok || cv != 0 {
		t.Errorf("comparand = %v, ok=%v, want 0", cv, ok)
	}
}

func TestRuleLzcountShiftBoolDeclinesOnWrongShiftAmount(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 4)
	lz := fd.NewOp(1, 0)
	fd.OpSetOpcode(lz, pcode.LZCOUNT)
	fd.OpSetInput(lz, x, 0)
	lzOut := fd.NewUniqueOut(4, lz)

	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_RIGHT)
	fd.OpSetInput(op, lzOut, 0)
	fd.OpSetInput(op, fd.NewConstant(1, 3), 1)
	fd.NewUniqueOut(4, op)

	if n := RuleLzcountShiftBool.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleLzcountShiftBool fired with a shift amount that doesn't match log2(bit-width), n=%d", n)
	}
}
