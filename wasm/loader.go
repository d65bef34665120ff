package wasm

import (
	werrors "github.com/wippyai/wasm-runtime/errors"
	"github.com/wippyai/wasm-runtime/wasm/internal/binary"
)

// This file is the proposal-gated binary decoder described by the module
// pipeline: it turns bytes into Type Model values and refuses productions
// that are syntactically well-formed but require a disabled proposal. It is
// a generalization of the adjacent decode.go's type-section readers (which
// remain for the full module's unconditional parsing path) ported
// function-for-function from WasmEdge's Loader::loadType overloads
// (original_source/lib/loader/ast/type.cpp).

// LoadValType reads a single value-type byte (and its heap type, for GC
// reference encodings) and checks it against cfg's enabled proposals.
func LoadValType(r *binary.Reader, cfg Config, nodeAttr string) (ExtValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return ExtValType{}, wrapIOErr(err, r.Position(), nodeAttr)
	}

	switch b {
	case byte(ValI32), byte(ValI64), byte(ValF32), byte(ValF64):
		return ExtValType{Kind: ExtValKindSimple, ValType: ValType(b)}, nil

	case byte(ValV128):
		if err := cfg.RequireProposal(ProposalSIMD, werrors.KindMalformedValType, r.Position(), nodeAttr); err != nil {
			return ExtValType{}, err
		}
		return ExtValType{Kind: ExtValKindSimple, ValType: ValType(b)}, nil

	case byte(ValFuncRef):
		return ExtValType{Kind: ExtValKindSimple, ValType: ValType(b)}, nil

	case byte(ValExtern):
		if err := cfg.RequireProposal(ProposalReferenceTypes, werrors.KindMalformedValType, r.Position(), nodeAttr); err != nil {
			return ExtValType{}, err
		}
		return ExtValType{Kind: ExtValKindSimple, ValType: ValType(b)}, nil

	case byte(ValRefNull), byte(ValRef):
		if err := cfg.RequireProposal(ProposalFunctionReferences, werrors.KindMalformedValType, r.Position(), nodeAttr); err != nil {
			return ExtValType{}, err
		}
		heapType, err := r.ReadS64()
		if err != nil {
			return ExtValType{}, wrapIOErr(err, r.Position(), nodeAttr)
		}
		if heapType < 0 && GcHeapBuiltin(heapType) != GcHeapFunc && GcHeapBuiltin(heapType) != GcHeapNoFunc {
			if err := cfg.RequireProposal(ProposalGC, werrors.KindMalformedValType, r.Position(), nodeAttr); err != nil {
				return ExtValType{}, err
			}
		}
		return ExtValType{
			Kind:    ExtValKindRef,
			ValType: ValType(b),
			RefType: RefType{Nullable: b == byte(ValRefNull), HeapType: heapType},
		}, nil

	case byte(ValEqRef), byte(ValI31Ref), byte(ValStructRef), byte(ValArrayRef),
		byte(ValAnyRef), byte(ValNullRef), byte(ValNullExternRef):
		if err := cfg.RequireProposal(ProposalGC, werrors.KindMalformedValType, r.Position(), nodeAttr); err != nil {
			return ExtValType{}, err
		}
		return ExtValType{Kind: ExtValKindSimple, ValType: ValType(b)}, nil

	case byte(ValNullFuncRef):
		if err := cfg.RequireProposal(ProposalFunctionReferences, werrors.KindMalformedValType, r.Position(), nodeAttr); err != nil {
			return ExtValType{}, err
		}
		return ExtValType{Kind: ExtValKindSimple, ValType: ValType(b)}, nil

	default:
		return ExtValType{}, werrors.Decode(werrors.KindMalformedValType, r.Position(), nodeAttr, "unknown value type byte")
	}
}

// LoadFunctionType ports WasmEdge's Loader::loadType(FunctionType&): a
// vector of param value types, then a vector of result value types, the
// latter gated on MultiValue when it holds more than one entry.
func LoadFunctionType(r *binary.Reader, cfg Config) (FuncType, error) {
	paramCount, err := r.ReadU32()
	if err != nil {
		return FuncType{}, wrapIOErr(err, r.Position(), "Type_Function")
	}
	extParams := make([]ExtValType, paramCount)
	params := make([]ValType, paramCount)
	for i := uint32(0); i < paramCount; i++ {
		v, err := LoadValType(r, cfg, "Type_Function")
		if err != nil {
			return FuncType{}, err
		}
		extParams[i] = v
		params[i] = v.ValType
	}

	resultCount, err := r.ReadU32()
	if err != nil {
		return FuncType{}, wrapIOErr(err, r.Position(), "Type_Function")
	}
	if resultCount > 1 {
		if err := cfg.RequireProposal(ProposalMultiValue, werrors.KindMalformedValType, r.Position(), "Type_Function"); err != nil {
			return FuncType{}, err
		}
	}
	extResults := make([]ExtValType, resultCount)
	results := make([]ValType, resultCount)
	for i := uint32(0); i < resultCount; i++ {
		v, err := LoadValType(r, cfg, "Type_Function")
		if err != nil {
			return FuncType{}, err
		}
		extResults[i] = v
		results[i] = v.ValType
	}

	return FuncType{
		Params: params, Results: results,
		ExtParams: extParams, ExtResults: extResults,
	}, nil
}

// LoadStorageType reads a struct/array field's storage type: a packed
// i8/i16 byte, or a full value type.
func LoadStorageType(r *binary.Reader, cfg Config) (StorageType, error) {
	pos := r.Position()
	b, err := r.ReadByte()
	if err != nil {
		return StorageType{}, wrapIOErr(err, r.Position(), "Type_Function")
	}
	switch b {
	case PackedI8:
		return StorageType{Kind: StorageKindPacked, Packed: PackedI8}, nil
	case PackedI16:
		return StorageType{Kind: StorageKindPacked, Packed: PackedI16}, nil
	default:
		if err := r.Reset(pos); err != nil {
			return StorageType{}, err
		}
		v, err := LoadValType(r, cfg, "Type_Function")
		if err != nil {
			return StorageType{}, err
		}
		if v.Kind == ExtValKindRef {
			return StorageType{Kind: StorageKindRef, RefType: v.RefType}, nil
		}
		return StorageType{Kind: StorageKindVal, ValType: v.ValType}, nil
	}
}

// LoadFieldType ports Loader::loadType(FieldType&): mutability byte then
// storage type (the WasmEdge source reads mutability FIRST, storage type
// second — unlike LocalEntry/Global which read type then mutability).
func LoadFieldType(r *binary.Reader, cfg Config) (FieldType, error) {
	mut, err := r.ReadByte()
	if err != nil {
		return FieldType{}, wrapIOErr(err, r.Position(), "Type_Function")
	}
	st, err := LoadStorageType(r, cfg)
	if err != nil {
		return FieldType{}, err
	}
	return FieldType{Mutable: mut != 0, Type: st}, nil
}

// LoadStructType reads a vector of field types.
func LoadStructType(r *binary.Reader, cfg Config) (StructType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return StructType{}, wrapIOErr(err, r.Position(), "Type_Function")
	}
	fields := make([]FieldType, count)
	for i := uint32(0); i < count; i++ {
		ft, err := LoadFieldType(r, cfg)
		if err != nil {
			return StructType{}, err
		}
		fields[i] = ft
	}
	return StructType{Fields: fields}, nil
}

// LoadArrayType reads a single field type.
func LoadArrayType(r *binary.Reader, cfg Config) (ArrayType, error) {
	ft, err := LoadFieldType(r, cfg)
	if err != nil {
		return ArrayType{}, err
	}
	return ArrayType{Element: ft}, nil
}

// LoadStructuralType dispatches on the composite-type opcode byte: function
// (0x60), struct (0x5F), or array (0x5E).
func LoadStructuralType(r *binary.Reader, cfg Config) (CompType, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return CompType{}, wrapIOErr(err, r.Position(), "Type_Function")
	}
	switch kind {
	case FuncTypeByte:
		ft, err := LoadFunctionType(r, cfg)
		if err != nil {
			return CompType{}, err
		}
		return CompType{Kind: CompKindFunc, Func: &ft}, nil
	case StructTypeByte:
		st, err := LoadStructType(r, cfg)
		if err != nil {
			return CompType{}, err
		}
		return CompType{Kind: CompKindStruct, Struct: &st}, nil
	case ArrayTypeByte:
		at, err := LoadArrayType(r, cfg)
		if err != nil {
			return CompType{}, err
		}
		return CompType{Kind: CompKindArray, Array: &at}, nil
	default:
		return CompType{}, werrors.Decode(werrors.KindIntegerTooLong, r.Position(), "Type_Function",
			"unknown structural type opcode")
	}
}

// LoadSubType reads a vector of parent type indices followed by a
// structural type body.
func LoadSubType(r *binary.Reader, cfg Config, final bool) (SubType, error) {
	parentCount, err := r.ReadU32()
	if err != nil {
		return SubType{}, wrapIOErr(err, r.Position(), "Type_Function")
	}
	parents := make([]uint32, parentCount)
	for i := uint32(0); i < parentCount; i++ {
		parents[i], err = r.ReadU32()
		if err != nil {
			return SubType{}, wrapIOErr(err, r.Position(), "Type_Function")
		}
	}
	comp, err := LoadStructuralType(r, cfg)
	if err != nil {
		return SubType{}, err
	}
	return SubType{Parents: parents, CompType: comp, Final: final}, nil
}

// LoadDefinedType ports Loader::loadType(DefinedType&): dispatches on the
// leading tag byte to one of the legacy single-body encodings, a singleton
// Sub wrapped as a one-element Rec group, or a genuine Rec group.
func LoadDefinedType(r *binary.Reader, cfg Config) (TypeDef, error) {
	form, err := r.ReadByte()
	if err != nil {
		return TypeDef{}, wrapIOErr(err, r.Position(), "Type_Function")
	}

	switch form {
	case FuncTypeByte:
		ft, err := LoadFunctionType(r, cfg)
		if err != nil {
			return TypeDef{}, err
		}
		return TypeDef{Kind: TypeDefKindFunc, Func: &ft}, nil

	case StructTypeByte:
		if err := cfg.RequireProposal(ProposalGC, werrors.KindMalformedValType, r.Position(), "Type_Function"); err != nil {
			return TypeDef{}, err
		}
		st, err := LoadStructType(r, cfg)
		if err != nil {
			return TypeDef{}, err
		}
		sub := SubType{Final: true, CompType: CompType{Kind: CompKindStruct, Struct: &st}}
		return TypeDef{Kind: TypeDefKindSub, Sub: &sub}, nil

	case ArrayTypeByte:
		if err := cfg.RequireProposal(ProposalGC, werrors.KindMalformedValType, r.Position(), "Type_Function"); err != nil {
			return TypeDef{}, err
		}
		at, err := LoadArrayType(r, cfg)
		if err != nil {
			return TypeDef{}, err
		}
		sub := SubType{Final: true, CompType: CompType{Kind: CompKindArray, Array: &at}}
		return TypeDef{Kind: TypeDefKindSub, Sub: &sub}, nil

	case SubTypeByte, SubFinalByte:
		if err := cfg.RequireProposal(ProposalGC, werrors.KindMalformedValType, r.Position(), "Type_Function"); err != nil {
			return TypeDef{}, err
		}
		sub, err := LoadSubType(r, cfg, form == SubFinalByte)
		if err != nil {
			return TypeDef{}, err
		}
		// A lone Sub (as opposed to a Rec group) is represented, per the
		// open question in DESIGN.md, the same way downstream: wrapped as
		// a singleton Rec so callers never special-case arity one.
		return TypeDef{Kind: TypeDefKindRec, Rec: &RecType{Types: []SubType{sub}}}, nil

	case RecTypeByte:
		if err := cfg.RequireProposal(ProposalGC, werrors.KindMalformedValType, r.Position(), "Type_Function"); err != nil {
			return TypeDef{}, err
		}
		count, err := r.ReadU32()
		if err != nil {
			return TypeDef{}, wrapIOErr(err, r.Position(), "Type_Function")
		}
		subs := make([]SubType, count)
		for i := uint32(0); i < count; i++ {
			subForm, err := r.ReadByte()
			if err != nil {
				return TypeDef{}, wrapIOErr(err, r.Position(), "Type_Function")
			}
			switch subForm {
			case SubTypeByte, SubFinalByte:
				subs[i], err = LoadSubType(r, cfg, subForm == SubFinalByte)
			case FuncTypeByte:
				var ft FuncType
				ft, err = LoadFunctionType(r, cfg)
				subs[i] = SubType{Final: true, CompType: CompType{Kind: CompKindFunc, Func: &ft}}
			case StructTypeByte:
				var st StructType
				st, err = LoadStructType(r, cfg)
				subs[i] = SubType{Final: true, CompType: CompType{Kind: CompKindStruct, Struct: &st}}
			case ArrayTypeByte:
				var at ArrayType
				at, err = LoadArrayType(r, cfg)
				subs[i] = SubType{Final: true, CompType: CompType{Kind: CompKindArray, Array: &at}}
			default:
				err = werrors.Decode(werrors.KindIntegerTooLong, r.Position(), "Type_Function", "invalid subtype form in rec group")
			}
			if err != nil {
				return TypeDef{}, err
			}
		}
		return TypeDef{Kind: TypeDefKindRec, Rec: &RecType{Types: subs}}, nil

	default:
		return TypeDef{}, werrors.Decode(werrors.KindIntegerTooLong, r.Position(), "Type_Function",
			"unknown defined-type tag byte")
	}
}

// LoadMemoryType wraps LoadLimit, converting the spec-exact kind-byte Limit
// into the module's Limits representation.
func LoadMemoryType(r *binary.Reader, cfg Config) (MemoryType, error) {
	lim, err := LoadLimit(r, cfg)
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Limits: limitToLimits(lim)}, nil
}

// LoadTableType reads a reference type followed by a Limit.
func LoadTableType(r *binary.Reader, cfg Config) (TableType, error) {
	elem, err := LoadValType(r, cfg, "Type_Table")
	if err != nil {
		return TableType{}, err
	}
	if !IsRefType(elem.ValType) {
		return TableType{}, werrors.Decode(werrors.KindMalformedValType, r.Position(), "Type_Table",
			"table element type must be a reference type")
	}
	lim, err := LoadLimit(r, cfg)
	if err != nil {
		return TableType{}, err
	}
	tt := TableType{ElemType: byte(elem.ValType), Limits: limitToLimits(lim)}
	if elem.Kind == ExtValKindRef {
		rt := elem.RefType
		tt.RefElemType = &rt
	}
	return tt, nil
}

// LoadGlobalType reads a value type followed by a mutability byte, which
// must be 0x00 (Const) or 0x01 (Var).
func LoadGlobalType(r *binary.Reader, cfg Config) (GlobalType, error) {
	v, err := LoadValType(r, cfg, "Type_Global")
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, wrapIOErr(err, r.Position(), "Type_Global")
	}
	if mut != 0x00 && mut != 0x01 {
		return GlobalType{}, werrors.Decode(werrors.KindInvalidMut, r.Position(), "Type_Global", "mutability byte must be 0x00 or 0x01")
	}
	gt := GlobalType{ValType: v.ValType, Mutable: mut == 0x01}
	if v.Kind == ExtValKindRef {
		gt.ExtType = &v
	}
	return gt, nil
}

func limitToLimits(l Limit) Limits {
	lim := Limits{Min: uint64(l.Min), Shared: l.Shared}
	if l.Max != nil {
		max := uint64(*l.Max)
		lim.Max = &max
	}
	return lim
}
