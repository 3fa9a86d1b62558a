package semcheck

import (
	"hash/fnv"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
)

// Assignment binds free (non-constant, non-defined) Varnodes to a
// concrete value for one evaluation trial.
type Assignment map[pcode.VarnodeID]uint64

// Eval walks the definition tree rooted at v, folding every op along
// the way with pcode.Evaluate, substituting assign[id] for any Varnode
// with no def and no entry in assign treated as zero. It returns
// (value, ok); ok is false if any op on the path is not foldable (a
// LOAD, a call, or anything else Evaluate declines).
func Eval(fd *funcdata.FunctionData, v pcode.VarnodeID, assign Assignment) (uint64, bool) {
	vn := fd.Varnode(v)
	if vn == nil {
		return 0, false
	}
	if vn.IsConstant() {
		return vn.ConstValue(), true
	}
	if val, bound := assign[v]; bound {
		return val & vn.Mask(), true
	}
	if vn.Def == pcode.NoOp {
		return 0, true
	}
	op := fd.Op(vn.Def)
	ins := make([]uint64, len(op.Inputs))
	sizes := make([]int, len(op.Inputs))
	for i, in := range op.Inputs {
		val, ok := Eval(fd, in, assign)
		if !ok {
			return 0, false
		}
		ins[i] = val
		sizes[i] = fd.Varnode(in).Size
	}
	return pcode.Evaluate(op.Opcode, vn.Size, sizes, ins)
}

// freeVars collects every Varnode reachable from v's definition tree
// that has no def of its own (inputs, free temporaries) and is not a
// constant — these are the leaves an assignment must cover.
func freeVars(fd *funcdata.FunctionData, v pcode.VarnodeID, seen map[pcode.VarnodeID]bool, out *[]pcode.VarnodeID) {
	if seen[v] {
		return
	}
	seen[v] = true
	vn := fd.Varnode(v)
	if vn == nil || vn.IsConstant() {
		return
	}
	if vn.Def == pcode.NoOp {
		*out = append(*out, v)
		return
	}
	op := fd.Op(vn.Def)
	for _, in := range op.Inputs {
		freeVars(fd, in, seen, out)
	}
}

// FreeVars returns the deduplicated free leaves of v's definition tree,
// in first-encountered order (deterministic across calls on the same
// graph).
func FreeVars(fd *funcdata.FunctionData, v pcode.VarnodeID) []pcode.VarnodeID {
	var out []pcode.VarnodeID
	freeVars(fd, v, make(map[pcode.VarnodeID]bool), &out)
	return out
}

// QuickCheck is a fast, non-exhaustive equivalence test: it evaluates
// before and after against a handful of fixed Vectors, assigning each
// trial's vector uniformly to every free leaf on both sides. It cannot
// prove equivalence — two fragments that happen to agree on every
// vector but diverge elsewhere will pass — but it catches the large
// majority of unsound rewrites cheaply, the same role a rule's own
// smoke test plays before a slower check runs.
func QuickCheck(fdBefore *funcdata.FunctionData, before pcode.VarnodeID, fdAfter *funcdata.FunctionData, after pcode.VarnodeID) bool {
	beforeVars := FreeVars(fdBefore, before)
	afterVars := FreeVars(fdAfter, after)
	for trial := range Vectors {
		ab := make(Assignment, len(beforeVars))
		for _, id := range beforeVars {
			ab[id] = maskedVector(trial, fdBefore.Varnode(id).Size)
		}
		aa := make(Assignment, len(afterVars))
		for _, id := range afterVars {
			aa[id] = maskedVector(trial, fdAfter.Varnode(id).Size)
		}
		vb, okB := Eval(fdBefore, before, ab)
		va, okA := Eval(fdAfter, after, aa)
		if !okB || !okA {
			return false
		}
		if vb&fdBefore.Varnode(before).Mask() != va&fdAfter.Varnode(after).Mask() {
			return false
		}
	}
	return true
}

// ExhaustiveCheck sweeps every possible assignment of the free leaves
// shared between before and after, matched leaf-for-leaf by
// correspond (a caller-supplied mapping from a before-leaf to its
// after-leaf counterpart, since the two fragments live in different
// FunctionData graphs with unrelated VarnodeIDs). It reports
// (equivalent, exhaustive): exhaustive is false when the joint
// assignment space exceeds exhaustiveCap, in which case the caller
// should fall back to QuickCheck's verdict rather than trust a partial
// sweep as conclusive.
func ExhaustiveCheck(
	fdBefore *funcdata.FunctionData, before pcode.VarnodeID,
	fdAfter *funcdata.FunctionData, after pcode.VarnodeID,
	correspond map[pcode.VarnodeID]pcode.VarnodeID,
) (equivalent bool, exhaustive bool) {
	beforeVars := FreeVars(fdBefore, before)
	space := 1
	for _, id := range beforeVars {
		size := fdBefore.Varnode(id).Size
		bits := size * 8
		if bits > 20 {
			bits = 21 // a single >2.5-byte leaf alone exceeds the cap; treat as unbounded
		}
		space *= 1 << uint(bits)
		if space > exhaustiveCap {
			return QuickCheck(fdBefore, before, fdAfter, after), false
		}
	}

	counters := make([]uint64, len(beforeVars))
	limits := make([]uint64, len(beforeVars))
	for i, id := range beforeVars {
		limits[i] = fdBefore.Varnode(id).Mask() + 1
	}

	for {
		ab := make(Assignment, len(beforeVars))
		aa := make(Assignment, len(beforeVars))
		for i, id := range beforeVars {
			ab[id] = counters[i]
			if other, ok := correspond[id]; ok {
				aa[other] = counters[i]
			}
		}
		vb, okB := Eval(fdBefore, before, ab)
		va, okA := Eval(fdAfter, after, aa)
		if !okB || !okA {
			return false, true
		}
		if vb&fdBefore.Varnode(before).Mask() != va&fdAfter.Varnode(after).Mask() {
			return false, true
		}

		i := 0
		for ; i < len(counters); i++ {
			counters[i]++
			if counters[i] < limits[i] {
				break
			}
			counters[i] = 0
		}
		if i == len(counters) {
			return true, true
		}
	}
}

// FingerprintLen is the byte width of a Fingerprint.
const FingerprintLen = 8

// Fingerprint produces a compact hash of v's behavior across Vectors,
// cheap enough to compare many candidate rewrites against a target
// before paying for a full QuickCheck/ExhaustiveCheck pass. Two
// fragments with different fingerprints are definitely not equivalent;
// matching fingerprints are only a hint to run the slower check.
func Fingerprint(fd *funcdata.FunctionData, v pcode.VarnodeID) [FingerprintLen]byte {
	vars := FreeVars(fd, v)
	h := fnv.New64a()
	for trial := range Vectors {
		assign := make(Assignment, len(vars))
		for _, id := range vars {
			assign[id] = maskedVector(trial, fd.Varnode(id).Size)
		}
		val, ok := Eval(fd, v, assign)
		var b [9]byte
		if ok {
			b[0] = 1
			val &= fd.Varnode(v).Mask()
			for i := 0; i < 8; i++ {
				b[1+i] = byte(val >> (8 * i))
			}
		}
		h.Write(b[:])
	}
	var out [FingerprintLen]byte
	sum := h.Sum64()
	for i := 0; i < FingerprintLen; i++ {
		out[i] = byte(sum >> (8 * i))
	}
	return out
}
