package typeinfo

// The types below are a small in-memory Datatype implementation used by
// pkg/rules' tests to exercise the pointer-arithmetic subsystem without
// a real type factory. Production callers supply their own Datatype
// backed by the real symbol/type database; nothing in pkg/rules depends
// on these concrete types.

// Field is one member of a Struct.
type Field struct {
	Name   string
	Offset int64
	Type   Datatype
}

// Struct is a minimal STRUCT Datatype.
type Struct struct {
	Name   string
	Size   int
	Align  int
	Fields []Field
}

func (s *Struct) GetMetatype() Metatype      { return STRUCT }
func (s *Struct) GetSize() int               { return s.Size }
func (s *Struct) GetAlignSize() int          { return s.Align }
func (s *Struct) IsCharPrint() bool          { return false }
func (s *Struct) IsPieceStructured() bool    { return true }
func (s *Struct) IsVariableLength() bool     { return false }
func (s *Struct) IsFormalPointerRel() bool   { return false }
func (s *Struct) IsEnumType() bool           { return false }

func (s *Struct) GetSubType(offset int64) (Datatype, int64, bool) {
	for _, f := range s.Fields {
		end := f.Offset + int64(f.Type.GetSize())
		if offset >= f.Offset && offset < end {
			return f.Type, offset - f.Offset, true
		}
	}
	return nil, 0, false
}

func (s *Struct) NearestArrayedComponentBackward(offset int64) (Datatype, int64, int64, bool) {
	var best *Field
	for i := range s.Fields {
		f := &s.Fields[i]
		if arr, ok := f.Type.(*Array); ok && f.Offset <= offset {
			if best == nil || f.Offset > best.Offset {
				best = f
				_ = arr
			}
		}
	}
	if best == nil {
		return nil, 0, 0, false
	}
	arr := best.Type.(*Array)
	return best.Type, best.Offset, int64(arr.ElemSize), true
}

func (s *Struct) NearestArrayedComponentForward(offset int64) (Datatype, int64, int64, bool) {
	var best *Field
	for i := range s.Fields {
		f := &s.Fields[i]
		if arr, ok := f.Type.(*Array); ok && f.Offset >= offset {
			if best == nil || f.Offset < best.Offset {
				best = f
				_ = arr
			}
		}
	}
	if best == nil {
		return nil, 0, 0, false
	}
	arr := best.Type.(*Array)
	return best.Type, best.Offset, int64(arr.ElemSize), true
}

func (s *Struct) GetExactPiece(offset int64, size int) (Datatype, bool) {
	sub, _, ok := s.GetSubType(offset)
	if !ok || sub.GetSize() != size {
		return nil, false
	}
	return sub, true
}

// Array is a minimal ARRAY Datatype.
type Array struct {
	ElemType Datatype
	ElemSize int
	Count    int
}

func (a *Array) GetMetatype() Metatype    { return ARRAY }
func (a *Array) GetSize() int             { return a.ElemSize * a.Count }
func (a *Array) GetAlignSize() int        { return a.ElemType.GetAlignSize() }
func (a *Array) IsCharPrint() bool        { return false }
func (a *Array) IsPieceStructured() bool  { return false }
func (a *Array) IsVariableLength() bool   { return false }
func (a *Array) IsFormalPointerRel() bool { return false }
func (a *Array) IsEnumType() bool         { return false }

func (a *Array) GetSubType(offset int64) (Datatype, int64, bool) {
	if offset < 0 || offset >= int64(a.GetSize()) {
		return nil, 0, false
	}
	return a.ElemType, offset % int64(a.ElemSize), true
}
func (a *Array) NearestArrayedComponentBackward(int64) (Datatype, int64, int64, bool) {
	return a, 0, int64(a.ElemSize), true
}
func (a *Array) NearestArrayedComponentForward(int64) (Datatype, int64, int64, bool) {
	return a, 0, int64(a.ElemSize), true
}
func (a *Array) GetExactPiece(offset int64, size int) (Datatype, bool) {
	if size != a.ElemSize {
		return nil, false
	}
	return a.ElemType, true
}

// Pointer is a minimal PTR Datatype.
type Pointer struct {
	To       Datatype
	WordSize int
	Size     int
}

func (p *Pointer) GetMetatype() Metatype    { return PTR }
func (p *Pointer) GetSize() int             { return p.Size }
func (p *Pointer) GetAlignSize() int        { return p.Size }
func (p *Pointer) IsCharPrint() bool        { return false }
func (p *Pointer) IsPieceStructured() bool  { return false }
func (p *Pointer) IsVariableLength() bool   { return false }
func (p *Pointer) IsFormalPointerRel() bool { return false }
func (p *Pointer) IsEnumType() bool         { return false }
func (p *Pointer) GetPtrTo() Datatype       { return p.To }
func (p *Pointer) GetWordSize() int         { return p.WordSize }
func (p *Pointer) GetSubType(int64) (Datatype, int64, bool) { return nil, 0, false }
func (p *Pointer) NearestArrayedComponentBackward(int64) (Datatype, int64, int64, bool) {
	return nil, 0, 0, false
}
func (p *Pointer) NearestArrayedComponentForward(int64) (Datatype, int64, int64, bool) {
	return nil, 0, 0, false
}
func (p *Pointer) GetExactPiece(int64, int) (Datatype, bool) { return nil, false }

// Primitive is a minimal UINT/INT/FLOAT leaf Datatype.
type Primitive struct {
	Meta Metatype
	Size int
}

func (p *Primitive) GetMetatype() Metatype    { return p.Meta }
func (p *Primitive) GetSize() int             { return p.Size }
func (p *Primitive) GetAlignSize() int        { return p.Size }
func (p *Primitive) IsCharPrint() bool        { return p.Meta == UINT && p.Size == 1 }
func (p *Primitive) IsPieceStructured() bool  { return false }
func (p *Primitive) IsVariableLength() bool   { return false }
func (p *Primitive) IsFormalPointerRel() bool { return false }
func (p *Primitive) IsEnumType() bool         { return false }
func (p *Primitive) GetSubType(int64) (Datatype, int64, bool) { return nil, 0, false }
func (p *Primitive) NearestArrayedComponentBackward(int64) (Datatype, int64, int64, bool) {
	return nil, 0, 0, false
}
func (p *Primitive) NearestArrayedComponentForward(int64) (Datatype, int64, int64, bool) {
	return nil, 0, 0, false
}
func (p *Primitive) GetExactPiece(int64, int) (Datatype, bool) { return nil, false }
