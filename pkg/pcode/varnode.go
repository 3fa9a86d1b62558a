package pcode

import "github.com/oisee/pcodesimplify/pkg/value"

// VarnodeID is an opaque handle into a FunctionData's Varnode arena.
// Handles, not pointers, are used throughout so the graph can live in a
// flat arena with no shared-ownership cycles.
type VarnodeID uint32

// OpID is an opaque handle into a FunctionData's PcodeOp arena.
type OpID uint32

// NoVarnode / NoOp are the zero-value sentinels for "no such handle".
const (
	NoVarnode VarnodeID = 0
	NoOp      OpID      = 0
)

// VarnodeFlags is the bit set describing a Varnode's provenance and role.
type VarnodeFlags uint32

const (
	FlagConstant VarnodeFlags = 1 << iota
	FlagInput
	FlagAddrTied
	FlagAddrForce
	FlagWritten
	FlagFree
	FlagSpacebase
	FlagPrecisLo
	FlagPrecisHi
	FlagProtoPartial
	FlagHeritageKnown
	FlagAutoLive
	FlagMark
)

// Varnode is an SSA-like value occupying [Offset, Offset+Size) bytes of
// Space. Def is NoOp when the Varnode is an input, a constant, or free.
type Varnode struct {
	Space *AddressSpace
	Offset uint64
	Size   int

	Def         OpID
	Descendants []OpID // multiset: an op may appear twice (two input slots)

	NZMask      uint64 // forward-propagated known-nonzero-bit mask
	ConsumeMask uint64 // backward-propagated "bits any descendant observes"

	Flags VarnodeFlags

	// DataType is an opaque handle into the type façade (pkg/typeinfo);
	// nil until type recovery resolves it.
	DataType interface{}
}

// IsConstant reports whether v lives in the constant space.
func (v *Varnode) IsConstant() bool { return v.Flags&FlagConstant != 0 }

// IsFree reports whether v has no def and is not an input/constant — a
// dangling Varnode that must not persist past the rewrite that created it.
func (v *Varnode) IsFree() bool { return v.Flags&FlagFree != 0 }

// IsInput reports whether v is a function input (no def, parameter or
// uninitialized-register read).
func (v *Varnode) IsInput() bool { return v.Flags&FlagInput != 0 }

// HasNoDescendants reports whether nothing reads v — the precondition
// for early_removal's dead-code check.
func (v *Varnode) HasNoDescendants() bool { return len(v.Descendants) == 0 }

// Mask is the all-ones mask for v's byte width.
func (v *Varnode) Mask() uint64 { return value.CalcMask(v.Size) }

// ConstValue returns the constant's value for a Varnode in the constant
// space. Callers must check IsConstant first.
func (v *Varnode) ConstValue() uint64 { return v.Offset & v.Mask() }
