package wasm

// FullValType is a ValType enriched with an optional defined-type index,
// needed for typed function references and GC. It is the value the form
// checker pushes and pops on its abstract stack. The module's existing
// ExtValType already carries exactly this information (Kind, ValType, and
// a RefType with a heap-type index), so FullValType is an alias rather
// than a parallel type.
type FullValType = ExtValType

// FullRefType is a RefType (nullable flag + heap type) used on its own,
// outside a ValType slot — e.g. a table's element type or an element
// segment's declared type.
type FullRefType = RefType

// GcHeapBuiltin enumerates the abstract ("bottom"-free) heap types the GC
// proposal adds, decoded from a RefType's raw s33 HeapType field when it is
// negative (abstract) rather than a type index (non-negative).
type GcHeapBuiltin int64

// Builtin heap type codes, encoded as negative values of the s33 HeapType
// field per the GC proposal (mirrors the single-byte opcodes used
// elsewhere in the binary format, sign-extended into the LEB128 slot).
const (
	GcHeapFunc     GcHeapBuiltin = -0x10 // 0x70
	GcHeapExtern   GcHeapBuiltin = -0x11 // 0x6F
	GcHeapAny      GcHeapBuiltin = -0x12 // 0x6E
	GcHeapEq       GcHeapBuiltin = -0x13 // 0x6D
	GcHeapI31      GcHeapBuiltin = -0x14 // 0x6C
	GcHeapNoFunc   GcHeapBuiltin = -0x0D // 0x73
	GcHeapNoExtern GcHeapBuiltin = -0x0E // 0x72
	GcHeapNone     GcHeapBuiltin = -0x0F // 0x71
	GcHeapStruct   GcHeapBuiltin = -0x15 // 0x6B
	GcHeapArray    GcHeapBuiltin = -0x16 // 0x6A
)

// IsTypeIdx reports whether a RefType's HeapType names a defined type
// (non-negative index) rather than a builtin heap type.
func (r RefType) IsTypeIdx() bool {
	return r.HeapType >= 0
}

// Builtin returns the builtin heap type and true, or (0, false) if
// HeapType names a defined-type index instead.
func (r RefType) Builtin() (GcHeapBuiltin, bool) {
	if r.IsTypeIdx() {
		return 0, false
	}
	return GcHeapBuiltin(r.HeapType), true
}

// IsNumType reports whether v is one of i32/i64/f32/f64.
func IsNumType(v ValType) bool {
	switch v {
	case ValI32, ValI64, ValF32, ValF64:
		return true
	default:
		return false
	}
}

// IsVecType reports whether v is the v128 SIMD type.
func IsVecType(v ValType) bool {
	return v == ValV128
}

// IsRefType reports whether v denotes a reference value (including the
// extended GC reference space and the legacy funcref/externref types).
func IsRefType(v ValType) bool {
	switch v {
	case ValFuncRef, ValExtern, ValRefNull, ValRef,
		ValNullFuncRef, ValNullExternRef, ValNullRef,
		ValEqRef, ValI31Ref, ValStructRef, ValArrayRef, ValAnyRef:
		return true
	default:
		return false
	}
}
