package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/typeinfo"
)

// ptrDatatype reads v's recovered pointer type, if any.
func ptrDatatype(fd *funcdata.FunctionData, v pcode.VarnodeID) (typeinfo.PointerDatatype, bool) {
	vn := fd.Varnode(v)
	if vn == nil || vn.DataType == nil {
		return nil, false
	}
	dt, ok := vn.DataType.(typeinfo.Datatype)
	if !ok {
		return nil, false
	}
	return typeinfo.AsPointer(dt)
}

// addTreeState walks a two-operand INT_ADD looking for a pointer-typed
// base and a constant or scaled-index offset term — a single-level
// version of an additive-tree-collecting engine, resolving one level at
// a time and relying on repeated application to fold deeper trees the
// same way repeated double_shift applications fold shift chains.
type addTreeState struct {
	base       pcode.VarnodeID
	baseType   typeinfo.PointerDatatype
	constOff   int64
	hasConst   bool
	index      pcode.VarnodeID
	indexScale int64
	hasIndex   bool
}

func analyzeAddTree(fd *funcdata.FunctionData, op *pcode.PcodeOp) (*addTreeState, bool) {
	if op.Opcode != pcode.INT_ADD || len(op.Inputs) != 2 {
		return nil, false
	}
	for _, perm := range [][2]int{{0, 1}, {1, 0}} {
		baseV, offV := op.Inputs[perm[0]], op.Inputs[perm[1]]
		pt, ok := ptrDatatype(fd, baseV)
		if !ok {
			continue
		}
		st := &addTreeState{base: baseV, baseType: pt}
		if cv, ok := constOf(fd, offV); ok {
			st.constOff = int64(cv)
			st.hasConst = true
			return st, true
		}
		offVn := fd.Varnode(offV)
		if offVn.Def != pcode.NoOp {
			if mul := fd.Op(offVn.Def); mul.Opcode == pcode.INT_MULT && len(mul.Inputs) == 2 {
				a, b := mul.Inputs[0], mul.Inputs[1]
				if cv, ok := constOf(fd, b); ok {
					st.index, st.indexScale, st.hasIndex = a, int64(cv), true
					return st, true
				}
				if cv, ok := constOf(fd, a); ok {
					st.index, st.indexScale, st.hasIndex = b, int64(cv), true
					return st, true
				}
			}
		}
		st.index, st.indexScale, st.hasIndex = offV, 1, true
		return st, true
	}
	return nil, false
}

// RulePtrArith recognizes pointer + (constant | scaled index) and
// rewrites it into PTRSUB (struct field access) or PTRADD (array
// element access), matching the recovered data type's shape.
var RulePtrArith = rule.Rule{
	Name:   "ptr_arith",
	OpList: []pcode.OpCode{pcode.INT_ADD},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		if !opts.TypeRecoveryStarted || opts.TypeRecoveryExceeded {
			return 0
		}
		op := fd.Op(opID)
		st, ok := analyzeAddTree(fd, op)
		if !ok || op.Output == pcode.NoVarnode {
			return 0
		}
		pointee := st.baseType.GetPtrTo()
		if pointee == nil {
			return 0
		}
		if st.hasConst {
			if _, _, fieldOK := pointee.GetSubType(st.constOff); fieldOK {
				fd.OpSetOpcode(opID, pcode.PTRSUB)
				fd.OpSetInput(opID, st.base, 0)
				fd.OpSetInput(opID, fd.NewConstant(fd.Varnode(op.Inputs[1]).Size, uint64(st.constOff)), 1)
				return 1
			}
			return 0
		}
		if st.hasIndex {
			_, _, elSize, arrOK := pointee.NearestArrayedComponentForward(0)
			if !arrOK || elSize != st.indexScale {
				return 0
			}
			fd.OpSetOpcode(opID, pcode.PTRADD)
			fd.OpSetInput(opID, st.base, 0)
			fd.OpSetInput(opID, st.index, 1)
			fd.OpSetInput(opID, fd.NewConstant(4, uint64(st.indexScale)), 2)
			return 1
		}
		return 0
	},
}

// RuleStructOffset0 collapses PTRSUB(ptr, 0) to ptr directly when the
// zero offset denotes the struct itself rather than a distinct field —
// pointer arithmetic by zero changes nothing.
var RuleStructOffset0 = rule.Rule{
	Name:   "struct_offset0",
	OpList: []pcode.OpCode{pcode.PTRSUB},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		off, ok := constOf(fd, op.Inputs[1])
		if !ok || off != 0 {
			return 0
		}
		fd.TotalReplace(op.Output, op.Inputs[0])
		fd.OpDestroy(opID)
		return 1
	},
}

// RulePtrsubUndo converts a PTRSUB back into a plain INT_ADD once type
// recovery can no longer justify treating it as structured field access
// the mirror image of op_undo_ptradd for the
// additive (rather than scaled) pointer form.
var RulePtrsubUndo = rule.Rule{
	Name:   "ptrsub_undo",
	OpList: []pcode.OpCode{pcode.PTRSUB},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		if !opts.TypeRecoveryExceeded {
			return 0
		}
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		fd.OpSetOpcode(opID, pcode.INT_ADD)
		return 1
	},
}

// RulePtraddUndo converts a PTRADD back into INT_ADD (+ INT_MULT when
// the element size isn't 1) once type recovery has given up, via
// funcdata.OpUndoPtradd.
var RulePtraddUndo = rule.Rule{
	Name:   "ptradd_undo",
	OpList: []pcode.OpCode{pcode.PTRADD},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		if !opts.TypeRecoveryExceeded {
			return 0
		}
		if err := fd.OpUndoPtradd(opID, true); err != nil {
			return 0
		}
		return 1
	},
}

// RulePushPtr combines two chained constant-offset PTRSUB ops
// (PTRSUB(PTRSUB(base, c1), c2), the inner one having no other reader)
// into a single PTRSUB carrying the summed offset, so nested field
// accesses don't leave a trail of intermediate pointers. PTRADD chains
// are not combined.
var RulePushPtr = rule.Rule{
	Name:   "push_ptr",
	OpList: []pcode.OpCode{pcode.PTRSUB},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		outerOff, ok := constOf(fd, op.Inputs[1])
		if !ok {
			return 0
		}
		baseVn := fd.Varnode(op.Inputs[0])
		if baseVn.Def == pcode.NoOp || len(baseVn.Descendants) != 1 {
			return 0
		}
		inner := fd.Op(baseVn.Def)
		if inner.Opcode != pcode.PTRSUB || len(inner.Inputs) != 2 {
			return 0
		}
		innerOff, ok := constOf(fd, inner.Inputs[1])
		if !ok {
			return 0
		}
		fd.OpSetInput(opID, inner.Inputs[0], 0)
		fd.OpSetInput(opID, fd.NewConstant(fd.Varnode(op.Inputs[1]).Size, outerOff+innerOff), 1)
		fd.OpDestroy(baseVn.Def)
		return 1
	},
}

// RulePtrFlow marks a PTRADD/PTRSUB whose output is read directly by a
// LOAD or STORE with OpPtrFlow, recording that this address computation
// is load/store-facing. No rule in this package reads the flag;
// RulePtrsubUndo and RulePtraddUndo convert flagged ops too.
var RulePtrFlow = rule.Rule{
	Name:   "ptr_flow",
	OpList: []pcode.OpCode{pcode.PTRADD, pcode.PTRSUB},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if op.Flags&pcode.OpPtrFlow != 0 || op.Output == pcode.NoVarnode {
			return 0
		}
		out := fd.Varnode(op.Output)
		for _, descID := range out.Descendants {
			desc := fd.Op(descID)
			if desc.Opcode == pcode.LOAD || desc.Opcode == pcode.STORE {
				op.Flags |= pcode.OpPtrFlow
				return 1
			}
		}
		return 0
	},
}
