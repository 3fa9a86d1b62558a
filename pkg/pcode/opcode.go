// Package pcode implements the p-code IR data model: address spaces,
// Varnodes, PcodeOps, basic blocks, and the constant-folding evaluator
// the rule catalogue calls into. It is the leaf layer of the engine —
// pkg/funcdata owns a graph of these types, and pkg/rules mutates that
// graph through pkg/funcdata's API.
package pcode

// OpCode is a stable integer enumeration over the p-code op-codes. The
// numbering is internal to this module; it is not required to match any
// particular lifter's wire encoding.
type OpCode uint8

const (
	COPY OpCode = iota
	INT_ADD
	INT_SUB
	INT_MULT
	INT_DIV
	INT_SDIV
	INT_REM
	INT_SREM
	INT_AND
	INT_OR
	INT_XOR
	INT_NEGATE
	INT_2COMP
	INT_LEFT
	INT_RIGHT
	INT_SRIGHT
	INT_EQUAL
	INT_NOTEQUAL
	INT_LESS
	INT_LESSEQUAL
	INT_SLESS
	INT_SLESSEQUAL
	INT_CARRY
	INT_SCARRY
	INT_SBORROW
	INT_ZEXT
	INT_SEXT
	SUBPIECE
	PIECE
	BOOL_AND
	BOOL_OR
	BOOL_XOR
	BOOL_NEGATE
	FLOAT_ADD
	FLOAT_SUB
	FLOAT_MULT
	FLOAT_DIV
	FLOAT_NEG
	FLOAT_ABS
	FLOAT_SQRT
	FLOAT_EQUAL
	FLOAT_NOTEQUAL
	FLOAT_LESS
	FLOAT_LESSEQUAL
	FLOAT_NAN
	FLOAT_FLOAT2FLOAT
	FLOAT_INT2FLOAT
	FLOAT_TRUNC
	FLOAT_CEIL
	FLOAT_FLOOR
	FLOAT_ROUND
	LOAD
	STORE
	BRANCH
	CBRANCH
	BRANCHIND
	CALL
	CALLIND
	CALLOTHER
	RETURN
	MULTIEQUAL
	INDIRECT
	PTRADD
	PTRSUB
	SEGMENTOP
	CPOOLREF
	NEW
	POPCOUNT
	LZCOUNT
	// CPUI_MAX is the sentinel one-past-the-last real op-code.
	CPUI_MAX
	// LABELBUILD belongs to the p-code-construction/injection subsystem,
	// an external collaborator; it is never produced or consumed
	// by anything in this module.
	LABELBUILD
)

var opNames = [...]string{
	COPY: "COPY", INT_ADD: "INT_ADD", INT_SUB: "INT_SUB", INT_MULT: "INT_MULT",
	INT_DIV: "INT_DIV", INT_SDIV: "INT_SDIV", INT_REM: "INT_REM", INT_SREM: "INT_SREM",
	INT_AND: "INT_AND", INT_OR: "INT_OR", INT_XOR: "INT_XOR", INT_NEGATE: "INT_NEGATE",
	INT_2COMP: "INT_2COMP", INT_LEFT: "INT_LEFT", INT_RIGHT: "INT_RIGHT", INT_SRIGHT: "INT_SRIGHT",
	INT_EQUAL: "INT_EQUAL", INT_NOTEQUAL: "INT_NOTEQUAL", INT_LESS: "INT_LESS",
	INT_LESSEQUAL: "INT_LESSEQUAL", INT_SLESS: "INT_SLESS", INT_SLESSEQUAL: "INT_SLESSEQUAL",
	INT_CARRY: "INT_CARRY", INT_SCARRY: "INT_SCARRY", INT_SBORROW: "INT_SBORROW",
	INT_ZEXT: "INT_ZEXT", INT_SEXT: "INT_SEXT", SUBPIECE: "SUBPIECE", PIECE: "PIECE",
	BOOL_AND: "BOOL_AND", BOOL_OR: "BOOL_OR", BOOL_XOR: "BOOL_XOR", BOOL_NEGATE: "BOOL_NEGATE",
	FLOAT_ADD: "FLOAT_ADD", FLOAT_SUB: "FLOAT_SUB", FLOAT_MULT: "FLOAT_MULT", FLOAT_DIV: "FLOAT_DIV",
	FLOAT_NEG: "FLOAT_NEG", FLOAT_ABS: "FLOAT_ABS", FLOAT_SQRT: "FLOAT_SQRT",
	FLOAT_EQUAL: "FLOAT_EQUAL", FLOAT_NOTEQUAL: "FLOAT_NOTEQUAL", FLOAT_LESS: "FLOAT_LESS",
	FLOAT_LESSEQUAL: "FLOAT_LESSEQUAL", FLOAT_NAN: "FLOAT_NAN",
	FLOAT_FLOAT2FLOAT: "FLOAT_FLOAT2FLOAT", FLOAT_INT2FLOAT: "FLOAT_INT2FLOAT",
	FLOAT_TRUNC: "FLOAT_TRUNC", FLOAT_CEIL: "FLOAT_CEIL", FLOAT_FLOOR: "FLOAT_FLOOR", FLOAT_ROUND: "FLOAT_ROUND",
	LOAD: "LOAD", STORE: "STORE", BRANCH: "BRANCH", CBRANCH: "CBRANCH", BRANCHIND: "BRANCHIND",
	CALL: "CALL", CALLIND: "CALLIND", CALLOTHER: "CALLOTHER", RETURN: "RETURN",
	MULTIEQUAL: "MULTIEQUAL", INDIRECT: "INDIRECT", PTRADD: "PTRADD", PTRSUB: "PTRSUB",
	SEGMENTOP: "SEGMENTOP", CPOOLREF: "CPOOLREF", NEW: "NEW", POPCOUNT: "POPCOUNT", LZCOUNT: "LZCOUNT",
	CPUI_MAX: "CPUI_MAX", LABELBUILD: "LABELBUILD",
}

// String renders the op-code's mnemonic, mirroring inst.Disassemble's
// role (a debug/print helper keyed off a flat array).
func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "OpCode(?)"
}

// IsCommutative reports whether operand order in in[0]/in[1] is
// semantically interchangeable — term_order/collect_terms rely on this
// to canonicalize commutative operators with constants pushed right.
func (op OpCode) IsCommutative() bool {
	switch op {
	case INT_ADD, INT_MULT, INT_AND, INT_OR, INT_XOR,
		INT_EQUAL, INT_NOTEQUAL, BOOL_AND, BOOL_OR, BOOL_XOR,
		FLOAT_ADD, FLOAT_MULT, FLOAT_EQUAL, FLOAT_NOTEQUAL:
		return true
	}
	return false
}

// IsBoolOut reports whether op always produces a 1-byte boolean result.
func (op OpCode) IsBoolOut() bool {
	switch op {
	case INT_EQUAL, INT_NOTEQUAL, INT_LESS, INT_LESSEQUAL, INT_SLESS, INT_SLESSEQUAL,
		INT_CARRY, INT_SCARRY, INT_SBORROW, BOOL_AND, BOOL_OR, BOOL_XOR, BOOL_NEGATE,
		FLOAT_EQUAL, FLOAT_NOTEQUAL, FLOAT_LESS, FLOAT_LESSEQUAL, FLOAT_NAN:
		return true
	}
	return false
}
