package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/value"
)

// threeWayRelation names the relational replacement a decision-table
// entry selects, independent of which concrete op-code (signed or
// unsigned) realizes it.
type threeWayRelation int

const (
	relLess threeWayRelation = iota
	relGreater
	relLessEqual
	relGreaterEqual
	relEqual
	relNotEqual
	relFoldZero
	relFoldOne
)

// threeWayKey selects a decision-table row: lessPositive records which
// addend of the ZEXT-sum carried the strict "less" comparison (true) or
// the non-strict "less-or-equal" one (false); followOp/followConst name
// the op-code and constant the sum is tested against.
type threeWayKey struct {
	lessPositive bool
	followOp     pcode.OpCode
	followConst  int64
}

// threeWayTable is the 24-entry decision table (2 slot arrangements x 4
// follow-on op-codes x 3 follow-on constants) mapping the ZEXT(less) +
// ZEXT(lesseq)*(-1) idiom's consuming compare back to a single relation
// over the idiom's original two operands.
var threeWayTable = map[threeWayKey]threeWayRelation{
	{true, pcode.INT_SLESS, 0}:       relLess,
	{true, pcode.INT_SLESS, 1}:       relLessEqual,
	{true, pcode.INT_SLESS, -1}:      relFoldZero,
	{true, pcode.INT_SLESSEQUAL, 0}:  relLessEqual,
	{true, pcode.INT_SLESSEQUAL, 1}:  relFoldOne,
	{true, pcode.INT_SLESSEQUAL, -1}: relLess,
	{true, pcode.INT_EQUAL, 0}:       relEqual,
	{true, pcode.INT_EQUAL, 1}:       relGreater,
	{true, pcode.INT_EQUAL, -1}:      relLess,
	{true, pcode.INT_NOTEQUAL, 0}:    relNotEqual,
	{true, pcode.INT_NOTEQUAL, 1}:    relLessEqual,
	{true, pcode.INT_NOTEQUAL, -1}:   relGreaterEqual,

	{false, pcode.INT_SLESS, 0}:       relGreater,
	{false, pcode.INT_SLESS, 1}:       relGreaterEqual,
	{false, pcode.INT_SLESS, -1}:      relFoldZero,
	{false, pcode.INT_SLESSEQUAL, 0}:  relGreaterEqual,
	{false, pcode.INT_SLESSEQUAL, 1}:  relFoldOne,
	{false, pcode.INT_SLESSEQUAL, -1}: relGreater,
	{false, pcode.INT_EQUAL, 0}:       relEqual,
	{false, pcode.INT_EQUAL, 1}:       relLess,
	{false, pcode.INT_EQUAL, -1}:      relGreater,
	{false, pcode.INT_NOTEQUAL, 0}:    relNotEqual,
	{false, pcode.INT_NOTEQUAL, 1}:    relGreaterEqual,
	{false, pcode.INT_NOTEQUAL, -1}:   relLessEqual,
}

// zextCompareSource reports whether v is defined by an INT_ZEXT of a
// relational compare, returning that compare op.
func zextCompareSource(fd *funcdata.FunctionData, v pcode.VarnodeID) (*pcode.PcodeOp, bool) {
	src, ok := zextSource(fd, v)
	if !ok {
		return nil, false
	}
	vn := fd.Varnode(src)
	if vn.Def == pcode.NoOp {
		return nil, false
	}
	def := fd.Op(vn.Def)
	switch def.Opcode {
	case pcode.INT_LESS, pcode.INT_SLESS, pcode.INT_LESSEQUAL, pcode.INT_SLESSEQUAL:
		if len(def.Inputs) == 2 {
			return def, true
		}
	}
	return nil, false
}

// negatedZextCompareSource reports whether v is defined by
// INT_MULT(ZEXT(compare), -1) or its mult_neg_one-canonicalized form
// INT_2COMP(ZEXT(compare)) — both spellings are equivalent, and which
// one survives to this point depends on whether mult_neg_one has
// already run on the same pass.
func negatedZextCompareSource(fd *funcdata.FunctionData, v pcode.VarnodeID) (*pcode.PcodeOp, bool) {
	vn := fd.Varnode(v)
	if vn.Def == pcode.NoOp {
		return nil, false
	}
	def := fd.Op(vn.Def)
	if def.Opcode == pcode.INT_2COMP && len(def.Inputs) == 1 {
		return zextCompareSource(fd, def.Inputs[0])
	}
	if def.Opcode != pcode.INT_MULT || len(def.Inputs) != 2 {
		return nil, false
	}
	for _, perm := range [][2]int{{0, 1}, {1, 0}} {
		cmp, ok := zextCompareSource(fd, def.Inputs[perm[0]])
		if !ok {
			continue
		}
		negOne, ok := constOf(fd, def.Inputs[perm[1]])
		if !ok {
			continue
		}
		size := fd.Varnode(def.Inputs[perm[1]]).Size
		if negOne != value.CalcMask(size) {
			continue
		}
		return cmp, true
	}
	return nil, false
}

// strictnessAndSign reports whether cmp is the strict (<) or non-strict
// (<=) member of its pair, and whether it's a signed comparison.
func strictnessAndSign(cmp *pcode.PcodeOp) (strict, signed bool) {
	switch cmp.Opcode {
	case pcode.INT_LESS:
		return true, false
	case pcode.INT_SLESS:
		return true, true
	case pcode.INT_LESSEQUAL:
		return false, false
	case pcode.INT_SLESSEQUAL:
		return false, true
	}
	return false, false
}

// RuleThreeWayCompare recognizes the integer three-way-compare idiom
// `t = ZEXT(a<b) + ZEXT(a<=b)*(-1)` (or the lesseq-positive mirror),
// feeding a single descendant comparing t against a small constant, and
// collapses that descendant into a direct relation between a and b via
// threeWayTable, discarding the intermediate sum.
var RuleThreeWayCompare = rule.Rule{
	Name:   "three_way_compare",
	OpList: []pcode.OpCode{pcode.INT_SLESS, pcode.INT_SLESSEQUAL, pcode.INT_EQUAL, pcode.INT_NOTEQUAL},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 || op.Output == pcode.NoVarnode {
			return 0
		}
		tVn := fd.Varnode(op.Inputs[0])
		constRaw, ok := constOf(fd, op.Inputs[1])
		if !ok || tVn.Def == pcode.NoOp {
			return 0
		}
		sumOp := fd.Op(tVn.Def)
		if sumOp.Opcode != pcode.INT_ADD || len(sumOp.Inputs) != 2 {
			return 0
		}

		var lessCmp, lesseqCmp *pcode.PcodeOp
		var lessPositive bool
		for _, perm := range [][2]int{{0, 1}, {1, 0}} {
			posCmp, posOK := zextCompareSource(fd, sumOp.Inputs[perm[0]])
			negCmp, negOK := negatedZextCompareSource(fd, sumOp.Inputs[perm[1]])
			if !posOK || !negOK {
				continue
			}
			posStrict, posSigned := strictnessAndSign(posCmp)
			negStrict, negSigned := strictnessAndSign(negCmp)
			if posStrict == negStrict || posSigned != negSigned {
				continue
			}
			if posCmp.Inputs[0] != negCmp.Inputs[0] || posCmp.Inputs[1] != negCmp.Inputs[1] {
				continue
			}
			if posStrict {
				lessCmp, lesseqCmp, lessPositive = posCmp, negCmp, true
			} else {
				lessCmp, lesseqCmp, lessPositive = negCmp, posCmp, false
			}
			break
		}
		if lessCmp == nil || lesseqCmp == nil {
			return 0
		}
		_, signed := strictnessAndSign(lessCmp)
		a, b := lessCmp.Inputs[0], lessCmp.Inputs[1]

		size := fd.Varnode(op.Inputs[1]).Size
		sv := int64(value.SignExtend(constRaw, uint(8*size-1)))
		if sv < -1 || sv > 1 {
			return 0
		}
		rel, ok := threeWayTable[threeWayKey{lessPositive, op.Opcode, sv}]
		if !ok {
			return 0
		}

		lessOp := pcode.INT_LESS
		lesseqOp := pcode.INT_LESSEQUAL
		if signed {
			lessOp, lesseqOp = pcode.INT_SLESS, pcode.INT_SLESSEQUAL
		}
		out := fd.Varnode(op.Output)
		switch rel {
		case relFoldZero, relFoldOne:
			v := uint64(0)
			if rel == relFoldOne {
				v = 1
			}
			fd.TotalReplace(op.Output, fd.NewConstant(out.Size, v))
			fd.OpDestroy(opID)
			return 1
		case relLess:
			fd.OpSetOpcode(opID, lessOp)
			fd.OpSetInput(opID, a, 0)
			fd.OpSetInput(opID, b, 1)
		case relGreater:
			fd.OpSetOpcode(opID, lessOp)
			fd.OpSetInput(opID, b, 0)
			fd.OpSetInput(opID, a, 1)
		case relLessEqual:
			fd.OpSetOpcode(opID, lesseqOp)
			fd.OpSetInput(opID, a, 0)
			fd.OpSetInput(opID, b, 1)
		case relGreaterEqual:
			fd.OpSetOpcode(opID, lesseqOp)
			fd.OpSetInput(opID, b, 0)
			fd.OpSetInput(opID, a, 1)
		case relEqual:
			fd.OpSetOpcode(opID, pcode.INT_EQUAL)
			fd.OpSetInput(opID, a, 0)
			fd.OpSetInput(opID, b, 1)
		case relNotEqual:
			fd.OpSetOpcode(opID, pcode.INT_NOTEQUAL)
			fd.OpSetInput(opID, a, 0)
			fd.OpSetInput(opID, b, 1)
		default:
			return 0
		}
		return 1
	},
}
