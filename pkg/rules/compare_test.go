package rules

import (
	"testing"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
)

func TestRuleLessEqualAtMax(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)
	max := fd.NewConstant(1, 0xFF)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_LESSEQUAL)
	fd.OpSetInput(op, x, 0)
	fd.OpSetInput(op, max, 1)
	out := fd.NewUniqueOut(1, op)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, out, 0)

	if n := RuleLessEqual.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleLessEqual declined on x<=MAX")
	}
	foldedVn := fd.Varnode(fd.Op(consumer).Inputs[0])
	if !foldedVn.IsConstant() || foldedVn.ConstValue() != 1 {
		t.Errorf("x<=MAX folded to %+v, want constant 1", foldedVn)
	}
}

func TestRuleLessEqualLessThanZero(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)
	zero := fd.NewConstant(1, 0)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_LESS)
	fd.OpSetInput(op, x, 0)
	fd.OpSetInput(op, zero, 1)
	out := fd.NewUniqueOut(1, op)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, out, 0)

	if n := RuleLessEqual.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleLessEqual declined on x<0 (unsigned, always false)")
	}
	foldedVn := fd.Varnode(fd.Op(consumer).Inputs[0])
	if !foldedVn.IsConstant() || foldedVn.ConstValue() != 0 {
		t.Errorf("x<0 folded to %+v, want constant 0", foldedVn)
	}
}

func TestRuleEqual2ZeroBooleanInput(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)
	fd.Varnode(x).NZMask = 1
	zero := fd.NewConstant(1, 0)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_EQUAL)
	fd.OpSetInput(op, x, 0)
	fd.OpSetInput(op, zero, 1)
	fd.NewUniqueOut(1, op)

	if n := RuleEqual2Zero.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleEqual2Zero declined on x==0 with x already boolean")
	}
	if fd.Op(op).Opcode != pcode.BOOL_NEGATE {
		t.Errorf("op.Opcode = %v, want BOOL_NEGATE", fd.Op(op).Opcode)
	}
}

func TestRuleEqual2ZeroNotEqualCollapsesToOperand(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)
	fd.Varnode(x).NZMask = 1
	zero := fd.NewConstant(1, 0)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_NOTEQUAL)
	fd.OpSetInput(op, x, 0)
	fd.OpSetInput(op, zero, 1)
	out := fd.NewUniqueOut(1, op)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, out, 0)

	if n := RuleEqual2Zero.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleEqual2Zero declined on x!=0 with x already boolean")
	}
	if fd.Op(consumer).Inputs[0] != x {
		t.Errorf("consumer rewired to %d, want x (%d)", fd.Op(consumer).Inputs[0], x)
	}
}

func TestRuleEqual2ZeroDeclinesNonBoolean(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 1)
	fd.Varnode(x).NZMask = 0xFF
	zero := fd.NewConstant(1, 0)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_EQUAL)
	fd.OpSetInput(op, x, 0)
	fd.OpSetInput(op, zero, 1)
	fd.NewUniqueOut(1, op)

	if n := RuleEqual2Zero.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleEqual2Zero fired when x is not known boolean, n=%d", n)
	}
}

func TestRuleNotDistribute(t *testing.T) {
	fd := funcdata.New("f")
	a := fd.NewFree(fd.UniqueSpace(), 4)
	b := fd.NewFree(fd.UniqueSpace(), 4)
	cmp := fd.NewOp(2, 0)
	fd.OpSetOpcode(cmp, pcode.INT_EQUAL)
	fd.OpSetInput(cmp, a, 0)
	fd.OpSetInput(cmp, b, 1)
	cmpOut := fd.NewUniqueOut(1, cmp)

	negOp := fd.NewOp(1, 0)
	fd.OpSetOpcode(negOp, pcode.BOOL_NEGATE)
	fd.OpSetInput(negOp, cmpOut, 0)
	negOut := fd.NewUniqueOut(1, negOp)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, negOut, 0)

	if n := RuleNotDistribute.Apply(fd, negOp, &rule.Options{}); n == 0 {
		t.Fatal("RuleNotDistribute declined on !(a==b)")
	}
	if fd.Op(cmp).Opcode != pcode.INT_NOTEQUAL {
		t.Errorf("comparison rewritten to %v, want INT_NOTEQUAL", fd.Op(cmp).Opcode)
	}
	if fd.Op(consumer).Inputs[0] != cmpOut {
		t.Errorf("consumer input = %d, want the comparison's own output (%d)", fd.Op(consumer).Inputs[0], cmpOut)
	}
}

func TestRuleLess2Zero(t *testing.T) {
	fd := funcdata.New("f")
	block := &pcode.BasicBlock{Index: 0}
	x := fd.NewFree(fd.UniqueSpace(), 1)
	zero := fd.NewConstant(1, 0)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_SLESS)
	fd.OpSetInput(op, x, 0)
	fd.OpSetInput(op, zero, 1)
	fd.NewUniqueOut(1, op)
	fd.OpInsertBegin(op, block)

	if n := RuleLess2Zero.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleLess2Zero declined on x s< 0")
	}
	if fd.Op(op).Opcode != pcode.INT_AND {
		t.Fatalf("op.Opcode = %v, want INT_AND", fd.Op(op).Opcode)
	}
	// the shift op should have been inserted just before op in the block
	if len(block.Ops) != 2 {
		t.Fatalf("block.Ops = %v, want 2 ops (shift + and)", block.Ops)
	}
	shiftOp := fd.Op(block.Ops[0])
	if shiftOp.Opcode != pcode.INT_SRIGHT {
		t.Errorf("inserted predecessor op = %v, want INT_SRIGHT", shiftOp.Opcode)
	}
}
