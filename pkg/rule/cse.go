package rule

import (
	"hash/fnv"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
)

// CSEHash hashes an op's (opcode, input identities, output size) so
// that two syntactically-identical sub-trees land in the same bucket,
// rebucketed by structural identity rather than by execution outcome.
// The hash seed is fixed and deterministic, position-keyed over an
// op's fields rather than derived from anything call-site-specific.
func CSEHash(fd *funcdata.FunctionData, opID pcode.OpID) uint64 {
	op := fd.Op(opID)
	h := fnv.New64a()
	writeU64(h, uint64(op.Opcode))
	for _, in := range op.Inputs {
		writeU64(h, uint64(in))
	}
	if op.Output != pcode.NoVarnode {
		writeU64(h, uint64(fd.Varnode(op.Output).Size))
	}
	return h.Sum64()
}

func writeU64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}

// CSEBucket maps a structural hash to the candidate ops sharing it; a
// caller scans a bucket for exact structural duplicates before calling
// funcdata.CSEEliminateList.
type CSEBucket struct {
	m map[uint64][]pcode.OpID
}

// NewCSEBucket creates an empty bucket map.
func NewCSEBucket() *CSEBucket { return &CSEBucket{m: make(map[uint64][]pcode.OpID)} }

// Add registers op under its structural hash.
func (b *CSEBucket) Add(fd *funcdata.FunctionData, opID pcode.OpID) {
	h := CSEHash(fd, opID)
	b.m[h] = append(b.m[h], opID)
}

// Candidates returns every op sharing op's structural hash (including
// op itself).
func (b *CSEBucket) Candidates(fd *funcdata.FunctionData, opID pcode.OpID) []pcode.OpID {
	return b.m[CSEHash(fd, opID)]
}
