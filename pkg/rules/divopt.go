package rules

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/value"
)

// magicUnsigned computes a reciprocal multiplier for unsigned division by
// d at bit width n, via the Hacker's Delight (ch. 10) iterative `magicu`
// search: it walks a doubling remainder sequence for both d and its
// complement nc = 2^n-1-(2^n-d mod d), growing the candidate shift p one
// bit at a time until the quotient/remainder pair proves the multiplier
// exact, and records whether the textbook "add" correction is needed
// along the way. Uint128 carries the intermediate q1/r1/q2/r2 terms,
// which can exceed 64 bits mid-loop at n=64 well before the loop's
// termination test fires. addFlag reports the add-correction case (the
// result still needs `(hi+x)>>s`, not a plain `hi>>s`); RuleDivOpt
// declines to fire when addFlag is set since it only reconstructs the
// plain form.
func magicUnsigned(d uint64, n uint) (m uint64, shift uint, addFlag bool) {
	if d < 2 || n == 0 || n > 64 {
		return 0, 0, true
	}
	one := value.U128FromUint64(1)
	twoN := one.Shl(n)
	dv := value.U128FromUint64(d)
	twoNminusD, _ := twoN.Sub(dv)
	_, rem := twoNminusD.DivMod(dv)
	twoNminus1, _ := twoN.Sub(one)
	nc, _ := twoNminus1.Sub(rem)

	p := n - 1
	pow2p := one.Shl(p)
	q1, r1 := pow2p.DivMod(nc)
	pow2pMinus1, _ := pow2p.Sub(one)
	q2, r2 := pow2pMinus1.DivMod(dv)

	add := false
	halfN := one.Shl(n - 1)
	halfNminus1, _ := halfN.Sub(one)
	for {
		p++
		if ncMinusR1, _ := nc.Sub(r1); r1.Cmp(ncMinusR1) >= 0 {
			q1 = q1.Shl(1)
			q1, _ = q1.Add(one)
			r1 = r1.Shl(1)
			r1, _ = r1.Sub(nc)
		} else {
			q1 = q1.Shl(1)
			r1 = r1.Shl(1)
		}
		r2Plus1, _ := r2.Add(one)
		if dMinusR2, _ := dv.Sub(r2); r2Plus1.Cmp(dMinusR2) >= 0 {
			if q2.Cmp(halfNminus1) >= 0 {
				add = true
			}
			q2 = q2.Shl(1)
			q2, _ = q2.Add(one)
			r2 = r2.Shl(1)
			r2, _ = r2.Add(one)
			r2, _ = r2.Sub(dv)
		} else {
			if q2.Cmp(halfN) >= 0 {
				add = true
			}
			q2 = q2.Shl(1)
			r2 = r2.Shl(1)
			r2, _ = r2.Add(one)
		}
		dMinus1, _ := dv.Sub(one)
		delta, _ := dMinus1.Sub(r2)
		if !(p < 2*n && (q1.Cmp(delta) < 0 || (q1.Cmp(delta) == 0 && r1.IsZero()))) {
			break
		}
	}
	mag, _ := q2.Add(one)
	if mag.Hi != 0 {
		return mag.Lo, p - n, true
	}
	return mag.Lo, p - n, add
}

// RuleDivOpt recognizes the widen-multiply/shift-right idiom a compiler
// emits for unsigned division by a constant divisor and rewrites it
// back to a plain INT_DIV, searching candidate divisors against the
// observed magic constant and shift amount via the 128-bit reciprocal
// recovery above. It matches:
//
//	hi = SUBPIECE(ZEXT(x) * ZEXT(M), size, size)
//	result = INT_RIGHT(hi, shift)
//
// and declines to fire on the "add" correction variant magicUnsigned
// reports, since that shape isn't recognized here.
var RuleDivOpt = rule.Rule{
	Name:   "div_opt",
	OpList: []pcode.OpCode{pcode.INT_RIGHT},
	Apply: func(fd *funcdata.FunctionData, opID pcode.OpID, opts *rule.Options) int {
		op := fd.Op(opID)
		if len(op.Inputs) != 2 {
			return 0
		}
		shift, ok := constOf(fd, op.Inputs[1])
		if !ok {
			return 0
		}
		hiVn := fd.Varnode(op.Inputs[0])
		if hiVn.Def == pcode.NoOp {
			return 0
		}
		subOp := fd.Op(hiVn.Def)
		if subOp.Opcode != pcode.SUBPIECE || len(subOp.Inputs) != 2 {
			return 0
		}
		size := hiVn.Size
		shiftAmt, ok := constOf(fd, subOp.Inputs[1])
		if !ok || shiftAmt != uint64(size) {
			return 0
		}
		wideVn := fd.Varnode(subOp.Inputs[0])
		if wideVn.Def == pcode.NoOp {
			return 0
		}
		multOp := fd.Op(wideVn.Def)
		if multOp.Opcode != pcode.INT_MULT || len(multOp.Inputs) != 2 {
			return 0
		}
		xSrc, ok1 := zextSource(fd, multOp.Inputs[0])
		mConst, ok2 := constOf(fd, multOp.Inputs[1])
		if !ok1 {
			xSrc, ok1 = zextSource(fd, multOp.Inputs[1])
			mConst, ok2 = constOf(fd, multOp.Inputs[0])
		}
		if !ok1 || !ok2 || fd.Varnode(xSrc).Size != size {
			return 0
		}
		width := uint(8 * size)
		for d := uint64(2); d < (uint64(1) << 16); d++ {
			m, s, addFlag := magicUnsigned(d, width)
			if addFlag || m != mConst || uint64(s) != shift {
				continue
			}
			fd.OpSetOpcode(opID, pcode.INT_DIV)
			fd.OpSetInput(opID, xSrc, 0)
			fd.OpSetInput(opID, fd.NewConstant(size, d), 1)
			return 1
		}
		return 0
	},
}
