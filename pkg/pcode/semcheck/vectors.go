// Package semcheck checks whether two p-code fragments compute the same
// value for every input, the way a rewrite rule's test wants to confirm
// "before" and "after" agree. There is no CPU to single-step here, so
// equivalence is checked directly against pcode.Evaluate over assigned
// leaf values rather than by executing two instruction sequences and
// diffing register files.
package semcheck

import "github.com/oisee/pcodesimplify/pkg/value"

// Vectors is a small, fixed bank of bit patterns chosen to surface the
// arithmetic edge cases a rewrite rule is most likely to get wrong:
// zero, all-ones, the single set bit at each end, sign bit set, and two
// alternating patterns. QuickCheck assigns one of these to every free
// leaf in a fragment per trial; it is a fast, non-exhaustive reject
// filter, not a proof.
var Vectors = []uint64{
	0x0000000000000000,
	0xFFFFFFFFFFFFFFFF,
	0x0000000000000001,
	0x8000000000000000,
	0x5555555555555555,
	0xAAAAAAAAAAAAAAAA,
	0x7FFFFFFFFFFFFFFF,
	0x0123456789ABCDEF,
}

// maskedVector returns Vectors[i] masked to size bytes.
func maskedVector(i int, size int) uint64 {
	return Vectors[i%len(Vectors)] & value.CalcMask(size)
}

// exhaustiveCap bounds the total assignment space ExhaustiveCheck will
// walk before giving up and reporting inconclusive rather than running
// an unbounded loop; one free byte-wide variable is 256 assignments,
// two are 65536, and the cap admits up to 2^20, so any single leaf
// wider than 20 bits is never swept.
const exhaustiveCap = 1 << 20
