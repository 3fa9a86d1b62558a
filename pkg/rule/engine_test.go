package rule

import (
	"testing"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
)

// foldConstAdd replaces an INT_ADD of two constants with a single
// constant, the simplest possible fixed-point-reaching rule.
func foldConstAdd(fd *funcdata.FunctionData, opID pcode.OpID, opts *Options) int {
	op := fd.Op(opID)
	if op.Opcode != pcode.INT_ADD || len(op.Inputs) != 2 {
		return 0
	}
	a := fd.Varnode(op.Inputs[0])
	b := fd.Varnode(op.Inputs[1])
	if !a.IsConstant() || !b.IsConstant() {
		return 0
	}
	folded := fd.NewConstant(fd.Varnode(op.Output).Size, a.ConstValue()+b.ConstValue())
	fd.TotalReplace(op.Output, folded)
	fd.OpDestroy(opID)
	return 1
}

func buildAddChain(fd *funcdata.FunctionData, block *pcode.BasicBlock) pcode.VarnodeID {
	a := fd.NewConstant(4, 1)
	b := fd.NewConstant(4, 2)
	op := fd.NewOp(2, 0)
	fd.OpSetOpcode(op, pcode.INT_ADD)
	fd.OpSetInput(op, a, 0)
	fd.OpSetInput(op, b, 1)
	out := fd.NewUniqueOut(4, op)
	fd.OpInsertBegin(op, block)
	return out
}

func TestEngineRunsRuleToFixedPoint(t *testing.T) {
	fd := funcdata.New("f")
	block := &pcode.BasicBlock{Index: 0}
	fd.Blocks = append(fd.Blocks, block)
	out := buildAddChain(fd, block)

	e := NewEngine()
	e.AddGroup(Group{Name: "fold", Rules: []Rule{{Name: "fold-const-add", OpList: []pcode.OpCode{pcode.INT_ADD}, Apply: foldConstAdd}}, PassBudget: 4})
	warnings := e.Run(fd, &Options{})

	if warnings.Len() != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings.All())
	}
	_ = out
	if len(block.Ops) != 0 {
		t.Fatalf("block.Ops after folding = %v, want empty (the add was destroyed)", block.Ops)
	}
}

// neverConverges always reports a mutation, every pass, to exercise the
// pass-budget warning path.
func neverConverges(fd *funcdata.FunctionData, opID pcode.OpID, opts *Options) int {
	if fd.Op(opID).Opcode != pcode.COPY {
		return 0
	}
	return 1
}

func TestEngineWarnsWhenPassBudgetExceeded(t *testing.T) {
	fd := funcdata.New("f")
	block := &pcode.BasicBlock{Index: 0}
	fd.Blocks = append(fd.Blocks, block)
	a := fd.NewConstant(4, 1)
	op := fd.NewOp(1, 0)
	fd.OpSetOpcode(op, pcode.COPY)
	fd.OpSetInput(op, a, 0)
	fd.NewUniqueOut(4, op)
	fd.OpInsertBegin(op, block)

	e := NewEngine()
	e.AddGroup(Group{Name: GroupEarly, Rules: []Rule{{Name: "loop", OpList: []pcode.OpCode{pcode.COPY}, Apply: neverConverges}}, PassBudget: 3})
	warnings := e.Run(fd, &Options{})

	if warnings.Len() != 1 {
		t.Fatalf("warnings.Len() = %d, want 1", warnings.Len())
	}
	if warnings.All()[0].Kind != WarnBudgetExceeded {
		t.Errorf("warning kind = %v, want WarnBudgetExceeded", warnings.All()[0].Kind)
	}
}

func TestEngineSkipsDeadOpsMidPass(t *testing.T) {
	fd := funcdata.New("f")
	block := &pcode.BasicBlock{Index: 0}
	fd.Blocks = append(fd.Blocks, block)
	out := buildAddChain(fd, block)
	_ = out

	calls := 0
	countingRule := Rule{
		Name:   "count-then-destroy",
		OpList: []pcode.OpCode{pcode.INT_ADD},
		Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *Options) int {
			calls++
			fd.OpDestroy(opID)
			return 1
		},
	}

	e := NewEngine()
	e.AddGroup(Group{Name: "destroy", Rules: []Rule{countingRule}, PassBudget: 5})
	e.Run(fd, &Options{})

	if calls != 1 {
		t.Errorf("rule applied %d times, want exactly 1 (op is dead after the first application)", calls)
	}
}

func TestGroupDefaultsToOnePassWhenBudgetUnset(t *testing.T) {
	fd := funcdata.New("f")
	block := &pcode.BasicBlock{Index: 0}
	fd.Blocks = append(fd.Blocks, block)
	out := buildAddChain(fd, block)
	_ = out

	e := NewEngine()
	e.AddGroup(Group{Name: "fold", Rules: []Rule{{Name: "fold-const-add", OpList: []pcode.OpCode{pcode.INT_ADD}, Apply: foldConstAdd}}})
	e.Run(fd, &Options{})

	if len(block.Ops) != 0 {
		t.Fatal("a single pass should still be enough to fold one constant add")
	}
}
