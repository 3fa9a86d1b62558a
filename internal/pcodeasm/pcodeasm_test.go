package pcodeasm

import (
	"strings"
	"testing"

	"github.com/oisee/pcodesimplify/pkg/pcode"
)

func TestParseBuildsExpectedGraph(t *testing.T) {
	src := `
# x*2 + 1, constant-foldable once x is bound
v0 input 4
v1 const 4 2
v2 INT_MULT v0 v1 4
v3 const 4 1
v4 INT_ADD v2 v3 4
output v4
`
	fn, err := Parse(strings.NewReader(src), "t")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(fn.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(fn.Outputs))
	}
	out := fn.FD.Varnode(fn.Outputs[0])
	if out.Size != 4 {
		t.Fatalf("expected output size 4, got %d", out.Size)
	}
	addOp := fn.FD.Op(out.Def)
	if addOp.Opcode != pcode.INT_ADD {
		t.Fatalf("expected output def to be INT_ADD, got %v", addOp.Opcode)
	}
}

func TestParseRejectsUndeclaredOperand(t *testing.T) {
	src := "v0 INT_ADD v1 v2 4\n"
	if _, err := Parse(strings.NewReader(src), "t"); err == nil {
		t.Fatal("expected an error for undeclared operands")
	}
}

func TestParseRejectsUnknownOpcode(t *testing.T) {
	src := "v0 input 4\nv1 NOT_A_REAL_OP v0 4\n"
	if _, err := Parse(strings.NewReader(src), "t"); err == nil {
		t.Fatal("expected an error for an unknown op-code")
	}
}

func TestParseRejectsRedeclaration(t *testing.T) {
	src := "v0 input 4\nv0 input 4\n"
	if _, err := Parse(strings.NewReader(src), "t"); err == nil {
		t.Fatal("expected an error for redeclaring v0")
	}
}
