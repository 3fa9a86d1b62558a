// Package irfuzz generates small, well-formed p-code expression graphs
// for property tests: def-use consistency, arity/size laws, and
// idempotence of a full simplification pass need many varied graphs,
// not a handful of hand-written fixtures.
package irfuzz

import (
	"math/rand/v2"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
)

// binaryOps is the menu of two-input arithmetic/logical op-codes Gen
// draws from; every one of them folds under pcode.Evaluate, so a
// generated graph is always a valid constant-folding/equivalence-check
// subject.
var binaryOps = []pcode.OpCode{
	pcode.INT_ADD, pcode.INT_SUB, pcode.INT_MULT,
	pcode.INT_AND, pcode.INT_OR, pcode.INT_XOR,
	pcode.INT_LEFT, pcode.INT_RIGHT, pcode.INT_SRIGHT,
}

var unaryOps = []pcode.OpCode{
	pcode.INT_NEGATE, pcode.INT_2COMP, pcode.BOOL_NEGATE,
}

// Gen builds a random expression DAG of roughly nodes ops in fd, each a
// draw from binaryOps/unaryOps over either a fresh free leaf Varnode, a
// random constant, or (with increasing likelihood as the graph grows)
// an already-built intermediate result — producing sharing, not just a
// tree. It returns the output Varnode of the final op.
//
// size is the byte width used for every Varnode in the graph; callers
// that want to exercise size-mismatch handling should build several
// small graphs at different sizes and combine them externally.
func Gen(rng *rand.Rand, fd *funcdata.FunctionData, nodes int, size int) pcode.VarnodeID {
	if nodes < 1 {
		nodes = 1
	}
	pool := []pcode.VarnodeID{
		fd.NewFree(fd.UniqueSpace(), size),
		fd.NewFree(fd.UniqueSpace(), size),
	}
	randLeaf := func() pcode.VarnodeID {
		r := rng.IntN(100)
		switch {
		case r < 40:
			return pool[rng.IntN(len(pool))]
		case r < 70:
			leaf := fd.NewFree(fd.UniqueSpace(), size)
			pool = append(pool, leaf)
			return leaf
		default:
			return fd.NewConstant(size, rng.Uint64())
		}
	}

	var last pcode.VarnodeID
	for i := 0; i < nodes; i++ {
		if rng.IntN(5) == 0 && len(unaryOps) > 0 {
			op := fd.NewOp(1, 0)
			fd.OpSetOpcode(op, unaryOps[rng.IntN(len(unaryOps))])
			fd.OpSetInput(op, randLeaf(), 0)
			last = fd.NewUniqueOut(size, op)
		} else {
			op := fd.NewOp(2, 0)
			fd.OpSetOpcode(op, binaryOps[rng.IntN(len(binaryOps))])
			fd.OpSetInput(op, randLeaf(), 0)
			fd.OpSetInput(op, randLeaf(), 1)
			last = fd.NewUniqueOut(size, op)
		}
		pool = append(pool, last)
	}
	return last
}

// GenMany builds count independent graphs of the given shape, returning
// one output Varnode per graph — useful for a loop-until-N-covered
// style property test that wants fresh graphs each iteration.
func GenMany(rng *rand.Rand, fd *funcdata.FunctionData, count, nodes, size int) []pcode.VarnodeID {
	out := make([]pcode.VarnodeID, count)
	for i := range out {
		out[i] = Gen(rng, fd, nodes, size)
	}
	return out
}
