package pcode

// SpaceType is the closed set of address-space kinds.
type SpaceType uint8

const (
	SpaceConstant SpaceType = iota
	SpaceProcessor
	SpaceRegister
	SpaceInternal // internal-temporary (unique)
	SpaceStackBase
	SpaceCode
	SpaceIOP // internal op-pointer space, used by INDIRECT's second input
	SpaceJoin
)

// AddressSpace identifies a named region of the address-space universe.
type AddressSpace struct {
	Name       string
	Index      int
	WordSize   int // bytes per addressable unit
	AddrSize   int // pointer width in bytes
	BigEndian  bool
	Type       SpaceType
	DeadCodeOK bool // per-space does_deadcode flag
}

// ByteToAddress converts a byte offset in this space to an address-unit
// offset, honoring WordSize.
func (s *AddressSpace) ByteToAddress(byteOffset uint64) uint64 {
	if s.WordSize <= 1 {
		return byteOffset
	}
	return byteOffset / uint64(s.WordSize)
}

// AddressToByte converts an address-unit offset to a byte offset.
func (s *AddressSpace) AddressToByte(addrOffset uint64) uint64 {
	if s.WordSize <= 1 {
		return addrOffset
	}
	return addrOffset * uint64(s.WordSize)
}

// Address is a (space, offset) pair: a location within an address space.
type Address struct {
	Space  *AddressSpace
	Offset uint64
}

// NewConstantSpace builds the distinguished constant space: constants'
// integer value is their offset.
func NewConstantSpace() *AddressSpace {
	return &AddressSpace{Name: "const", Type: SpaceConstant, WordSize: 1, AddrSize: 8}
}

// NewUniqueSpace builds the internal-temporary space used for unnamed
// intermediate Varnodes created by new_unique_out.
func NewUniqueSpace() *AddressSpace {
	return &AddressSpace{Name: "unique", Type: SpaceInternal, WordSize: 1, AddrSize: 8, DeadCodeOK: true}
}

// NewIOPSpace builds the IOP space whose "addresses" encode pointers to
// PcodeOps.
func NewIOPSpace() *AddressSpace {
	return &AddressSpace{Name: "iop", Type: SpaceIOP, WordSize: 1, AddrSize: 8}
}
