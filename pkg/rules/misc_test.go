package rules

import (
	"testing"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
)

func TestRuleSegmentCollapsesZeroSelector(t *testing.T) {
	fd := funcdata.New("f")
	base := fd.NewFree(fd.UniqueSpace(), 4)
	sel := fd.NewConstant(2, 0)
	offset := fd.NewFree(fd.UniqueSpace(), 4)
	op := fd.NewOp(3, 0)
	fd.OpSetOpcode(op, pcode.SEGMENTOP)
	fd.OpSetInput(op, base, 0)
	fd.OpSetInput(op, sel, 1)
	fd.OpSetInput(op, offset, 2)
	out := fd.NewUniqueOut(4, op)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, out, 0)

	if n := RuleSegment.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleSegment declined on a zero selector")
	}
	if fd.Op(consumer).Inputs[0] != offset {
		t.Errorf("consumer rewired to %d, want offset (%d)", fd.Op(consumer).Inputs[0], offset)
	}
}

func TestRuleSegmentDeclinesNonZeroSelector(t *testing.T) {
	fd := funcdata.New("f")
	base := fd.NewFree(fd.UniqueSpace(), 4)
	sel := fd.NewConstant(2, 3)
	offset := fd.NewFree(fd.UniqueSpace(), 4)
	op := fd.NewOp(3, 0)
	fd.OpSetOpcode(op, pcode.SEGMENTOP)
	fd.OpSetInput(op, base, 0)
	fd.OpSetInput(op, sel, 1)
	fd.OpSetInput(op, offset, 2)
	fd.NewUniqueOut(4, op)

	if n := RuleSegment.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleSegment fired on a non-zero selector, n=%d", n)
	}
}

func TestRuleCpoolFixupSetsFlagOnce(t *testing.T) {
	fd := funcdata.New("f")
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.CPOOLREF)

	if n := RuleCpoolFixup.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleCpoolFixup declined on a fresh CPOOLREF")
	}
	if fd.Op(op).Flags&pcode.OpCpoolTransformed == 0 {
		t.Error("OpCpoolTransformed flag not set")
	}
	if n := RuleCpoolFixup.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleCpoolFixup fired again once already flagged, n=%d", n)
	}
}

func TestRuleFuncPtrEncodingClearsAlignBits(t *testing.T) {
	fd := funcdata.New("f")
	target := fd.NewConstant(4, 0x1001)
	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.CALLIND)
	fd.OpSetInput(op, target, 0)

	opts := &rule.Options{FuncPtrAlignBits: 2}
	if n := RuleFuncPtrEncoding.Apply(fd, op, opts); n == 0 {
		t.Fatal("RuleFuncPtrEncoding declined on a tagged target")
	}
	newTarget := fd.Varnode(fd.Op(op).Inputs[0])
	if !newTarget.IsConstant() || newTarget.ConstValue() != 0x1000 {
		t.Errorf("cleared target = %+v, want 0x1000", newTarget)
	}
}

func TestRuleFuncPtrEncodingDeclinesWithoutOption(t *testing.T) {
	fd := funcdata.New("f")
	target := fd.NewConstant(4, 0x1001)
	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.CALLIND)
	fd.OpSetInput(op, target, 0)

	if n := RuleFuncPtrEncoding.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleFuncPtrEncoding fired with FuncPtrAlignBits unset, n=%d", n)
	}
}

func TestRuleFuncPtrEncodingDeclinesAlreadyAligned(t *testing.T) {
	fd := funcdata.New("f")
	target := fd.NewConstant(4, 0x1000)
	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.CALLIND)
	fd.OpSetInput(op, target, 0)

	opts := &rule.Options{FuncPtrAlignBits: 2}
	if n := RuleFuncPtrEncoding.Apply(fd, op, opts); n != 0 {
		t.Errorf("RuleFuncPtrEncoding fired on an already-aligned target, n=%d", n)
	}
}

// S6: CALLIND(p & ~3) with funcptr_align=2 strips the mask and calls p
// directly, even though p is a general (non-constant) value.
func TestRuleFuncPtrEncodingStripsAndThroughRegister(t *testing.T) {
	fd := funcdata.New("f")
	p := fd.NewFree(fd.UniqueSpace(), 4)
	andOp := fd.NewOp(2, 0)
	fd.OpSetOpcode(andOp, pcode.INT_AND)
	fd.OpSetInput(andOp, p, 0)
	fd.OpSetInput(andOp, fd.NewConstant(4, ^uint64(3)), 1)
	target := fd.NewUniqueOut(4, andOp)

	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.CALLIND)
	fd.OpSetInput(op, target, 0)

	opts := &rule.Options{FuncPtrAlignBits: 2}
	if n := RuleFuncPtrEncoding.Apply(fd, op, opts); n == 0 {
		t.Fatal("RuleFuncPtrEncoding declined on CALLIND(p & ~3) with a non-constant p")
	}
	if fd.Op(op).Inputs[0] != p {
		t.Errorf("CALLIND target = %d, want p (%d) directly", fd.Op(op).Inputs[0], p)
	}
}

func TestRuleFuncPtrEncodingDeclinesAndWithWrongMask(t *testing.T) {
	fd := funcdata.New("f")
	p := fd.NewFree(fd.UniqueSpace(), 4)
	andOp := fd.NewOp(2, 0)
	fd.OpSetOpcode(andOp, pcode.INT_AND)
	fd.OpSetInput(andOp, p, 0)
	fd.OpSetInput(andOp, fd.NewConstant(4, 0xFFFF0000), 1) // clears high bits, not alignment bits
	target := fd.NewUniqueOut(4, andOp)

	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.CALLIND)
	fd.OpSetInput(op, target, 0)

	opts := &rule.Options{FuncPtrAlignBits: 2}
	if n := RuleFuncPtrEncoding.Apply(fd, op, opts); n != 0 {
		t.Errorf("RuleFuncPtrEncoding fired on a mask that doesn't isolate the alignment bits, n=%d", n)
	}
}

func TestRuleLzcountPopcountFoldsZeroOperand(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 4)
	fd.Varnode(x).NZMask = 0
	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.POPCOUNT)
	fd.OpSetInput(op, x, 0)
	out := fd.NewUniqueOut(4, op)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, out, 0)

	if n := RuleLzcountPopcount.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleLzcountPopcount declined on POPCOUNT of a provably-zero operand")
	}
	foldedVn := fd.Varnode(fd.Op(consumer).Inputs[0])
	if !foldedVn.IsConstant() || foldedVn.ConstValue() != 0 {
		t.Errorf("POPCOUNT(0) folded to %+v, want 0", foldedVn)
	}
}

func TestRuleLzcountPopcountFoldsLzcountOfZero(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 4)
	fd.Varnode(x).NZMask = 0
	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.LZCOUNT)
	fd.OpSetInput(op, x, 0)
	out := fd.NewUniqueOut(4, op)
	consumer := fd.NewOp(1, 0)
	fd.OpSetInput(consumer, out, 0)

	if n := RuleLzcountPopcount.Apply(fd, op, &rule.Options{}); n == 0 {
		t.Fatal("RuleLzcountPopcount declined on LZCOUNT of a provably-zero operand")
	}
	foldedVn := fd.Varnode(fd.Op(consumer).Inputs[0])
	if !foldedVn.IsConstant() || foldedVn.ConstValue() != 32 {
		t.Errorf("LZCOUNT(0) over 4 bytes folded to %+v, want 32", foldedVn)
	}
}

func TestRuleLzcountPopcountDeclinesNonZeroNZMask(t *testing.T) {
	fd := funcdata.New("f")
	x := fd.NewFree(fd.UniqueSpace(), 4)
	fd.Varnode(x).NZMask = 0xFF
	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.POPCOUNT)
	fd.OpSetInput(op, x, 0)
	fd.NewUniqueOut(4, op)

	if n := RuleLzcountPopcount.Apply(fd, op, &rule.Options{}); n != 0 {
		t.Errorf("RuleLzcountPopcount fired when nz_mask doesn't prove zero, n=%d", n)
	}
}
