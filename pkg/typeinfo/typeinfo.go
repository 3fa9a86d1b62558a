// Package typeinfo is the read-only query façade onto the high-level
// symbol scope and data-type factory. The factory itself
// — scopes, symbol tables, the actual type database — is an external
// collaborator out of this module's scope; only the query interface the
// pointer-arithmetic rules need is specified here, as a small Go
// interface boundary to that collaborator.
package typeinfo

// Metatype is the closed set of data-type categories the pointer rules
// switch on.
type Metatype uint8

const (
	UNKNOWN Metatype = iota
	UINT
	INT
	PTR
	ARRAY
	STRUCT
	SPACEBASE
	FLOAT
)

// Datatype is the queried interface onto one data type. Implementations
// live in the (out-of-scope) type factory; this module only declares
// the contract pkg/rules' pointer-arithmetic subsystem relies on.
type Datatype interface {
	GetMetatype() Metatype
	GetSize() int
	GetAlignSize() int
	IsCharPrint() bool
	IsPieceStructured() bool
	IsVariableLength() bool
	IsFormalPointerRel() bool
	IsEnumType() bool

	// GetSubType returns the direct field/element at offset, and the
	// offset's remainder within that sub-type.
	GetSubType(offset int64) (sub Datatype, newOffset int64, ok bool)

	// NearestArrayedComponentBackward/Forward find the closest
	// enclosing array; RulePtrArith uses the Forward variant to resolve
	// a scaled index to an array element.
	NearestArrayedComponentBackward(offset int64) (sub Datatype, foundOffset int64, elSize int64, ok bool)
	NearestArrayedComponentForward(offset int64) (sub Datatype, foundOffset int64, elSize int64, ok bool)

	// GetExactPiece rebuilds a field type inside a CONCAT/PIECE tree.
	GetExactPiece(offset int64, size int) (Datatype, bool)
}

// PointerDatatype narrows Datatype for pointer types.
type PointerDatatype interface {
	Datatype
	GetPtrTo() Datatype
	GetWordSize() int
}

// PointerRelDatatype narrows Datatype for pointer-relative types: a
// pointer whose compile-time value is known to be an offset within a
// parent structure.
type PointerRelDatatype interface {
	Datatype
	GetParent() Datatype
	GetAddressOffset() int64
	GetByteOffset() int64
	EvaluateThruParent(off int64) (Datatype, int64, bool)
}

// AsPointer type-asserts d to PointerDatatype.
func AsPointer(d Datatype) (PointerDatatype, bool) {
	p, ok := d.(PointerDatatype)
	return p, ok
}

// AsPointerRel type-asserts d to PointerRelDatatype.
func AsPointerRel(d Datatype) (PointerRelDatatype, bool) {
	p, ok := d.(PointerRelDatatype)
	return p, ok
}
