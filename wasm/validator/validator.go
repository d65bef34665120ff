package validator

import (
	"github.com/wippyai/wasm-runtime/errors"
	"github.com/wippyai/wasm-runtime/wasm"
)

// VType is an abstract stack slot: either a known value type, or the
// polymorphic "bottom" type that stands for any type following an
// unconditional branch or unreachable. A nil VType is bottom.
type VType = *wasm.FullValType

func unreachableVType() VType { return nil }

func isNumType(v VType) bool {
	return v == nil || wasm.IsNumType(v.ValType)
}

func isRefType(v VType) bool {
	return v == nil || wasm.IsRefType(v.ValType)
}

func simple(v wasm.ValType) wasm.FullValType {
	return wasm.FullValType{Kind: wasm.ExtValKindSimple, ValType: v}
}

func vt(v wasm.ValType) VType {
	s := simple(v)
	return &s
}

// localType tracks a declared local's type together with whether it has
// been assigned yet; a defaultable type (anything but a non-nullable
// reference) is considered set from the start because it has a zero value.
type localType struct {
	valType wasm.FullValType
	isSet   bool
}

func isDefaultable(v wasm.FullValType) bool {
	if v.Kind != wasm.ExtValKindRef {
		return true
	}
	return v.RefType.Nullable
}

// CtrlFrame is one entry of the control-frame stack, tracking a
// structured instruction's (block/loop/if/try/try_table) start and end
// types, the height of the value stack at entry, and whether the rest of
// the frame's instructions are unreachable.
type CtrlFrame struct {
	StartTypes    []wasm.FullValType
	EndTypes      []wasm.FullValType
	Height        int
	IsUnreachable bool
	Opcode        byte
}

// FormChecker is an abstract interpreter for one function body (or one
// constant offset expression) against a module's index spaces.
type FormChecker struct {
	cfg wasm.Config

	types          [][2][]wasm.FullValType // [i] = {params, results}
	funcs          []uint32                // funcidx -> typeidx
	tables         []wasm.FullRefType
	mems           uint32
	globals        []globalEntry
	elems          []wasm.FullRefType
	numDatas       uint32
	refs           map[uint32]struct{}
	numImportFuncs uint32
	numImportGlobs uint32

	locals  []localType
	returns []wasm.FullValType

	ctrlStack []CtrlFrame
	valStack  []VType
}

type globalEntry struct {
	valType wasm.FullValType
	mutable bool
}

// NewFormChecker builds an empty FormChecker. cfg gates proposal-only
// instructions (e.g. GC struct/array instructions, typed function
// references, multi-value block types) the same way the decoder gates
// proposal-only productions.
func NewFormChecker(cfg wasm.Config) *FormChecker {
	return &FormChecker{cfg: cfg, refs: make(map[uint32]struct{})}
}

// Reset clears the running control/value stacks and, when cleanGlobal is
// true, the module index-space contexts as well — used between
// independent validation passes over the same module (e.g. one FormChecker
// reused across every function body, contexts kept, stacks cleared).
func (f *FormChecker) Reset(cleanGlobal bool) {
	f.ctrlStack = nil
	f.valStack = nil
	f.locals = nil
	f.returns = nil
	if cleanGlobal {
		f.types = nil
		f.funcs = nil
		f.tables = nil
		f.mems = 0
		f.globals = nil
		f.elems = nil
		f.numDatas = 0
		f.refs = make(map[uint32]struct{})
		f.numImportFuncs = 0
		f.numImportGlobs = 0
	}
}

// AddType registers a function type, extending the flat type index space.
func (f *FormChecker) AddType(ft wasm.FuncType) {
	params := extOrSimple(ft.ExtParams, ft.Params)
	results := extOrSimple(ft.ExtResults, ft.Results)
	f.types = append(f.types, [2][]wasm.FullValType{params, results})
}

func extOrSimple(ext []wasm.ExtValType, plain []wasm.ValType) []wasm.FullValType {
	if len(ext) > 0 {
		return ext
	}
	out := make([]wasm.FullValType, len(plain))
	for i, v := range plain {
		out[i] = simple(v)
	}
	return out
}

// AddFunc registers a function's type index, extending the flat function
// index space. isImport must be set while populating the imported
// functions, before any locally defined function is added.
func (f *FormChecker) AddFunc(typeIdx uint32, isImport bool) {
	f.funcs = append(f.funcs, typeIdx)
	if isImport {
		f.numImportFuncs++
	}
}

// AddTable registers a table's element reference type.
func (f *FormChecker) AddTable(tab wasm.TableType) {
	f.tables = append(f.tables, tableRefType(tab))
}

func tableRefType(tab wasm.TableType) wasm.FullRefType {
	if tab.RefElemType != nil {
		return *tab.RefElemType
	}
	return wasm.FullRefType{Nullable: true, HeapType: int64(int8(tab.ElemType))}
}

// AddMemory registers a memory, extending the memory count.
func (f *FormChecker) AddMemory(_ wasm.MemoryType) {
	f.mems++
}

// AddGlobal registers a global's value type and mutability. isImport must
// be set while populating the imported globals, before any locally
// defined global is added — Validate uses NumImportGlobals to forbid a
// global.get initializer expression from referencing a non-imported
// global.
func (f *FormChecker) AddGlobal(gt wasm.GlobalType, isImport bool) {
	var v wasm.FullValType
	if gt.ExtType != nil {
		v = *gt.ExtType
	} else {
		v = simple(gt.ValType)
	}
	f.globals = append(f.globals, globalEntry{valType: v, mutable: gt.Mutable})
	if isImport {
		f.numImportGlobs++
	}
}

// AddElem registers an element segment's declared reference type.
func (f *FormChecker) AddElem(e wasm.Element) {
	if e.RefType != nil {
		f.elems = append(f.elems, *e.RefType)
		return
	}
	if e.Type != 0 {
		f.elems = append(f.elems, wasm.FullRefType{Nullable: true, HeapType: int64(int8(e.Type))})
		return
	}
	f.elems = append(f.elems, wasm.FullRefType{Nullable: true, HeapType: int64(int8(wasm.ValFuncRef))})
}

// AddData registers a data segment, extending the data-segment count
// checked against data.drop/memory.init indices.
func (f *FormChecker) AddData(_ wasm.DataSegment) {
	f.numDatas++
}

// AddRef marks a function index as referenceable (its address has been
// taken by an element segment, a global initializer, or an export),
// which ref.func and call_ref's initializer-time counterpart require.
func (f *FormChecker) AddRef(funcIdx uint32) {
	f.refs[funcIdx] = struct{}{}
}

// AddLocal appends one local variable's declared type.
func (f *FormChecker) AddLocal(v wasm.FullValType) {
	f.locals = append(f.locals, localType{valType: v, isSet: isDefaultable(v)})
}

// Result returns the current abstract value stack, most useful for
// checking a constant expression's single residual value.
func (f *FormChecker) Result() []VType {
	return f.valStack
}

// VTypeToAST turns a VType back into a concrete FullValType for diagnostic
// reporting. Bottom (nil, the polymorphic type unreachable code pushes) has
// no single concrete type by definition; callers that reach here for a
// Bottom value are past the point where that distinction matters (e.g.
// formatting an error message after a mismatch already failed) and get the
// zero FullValType rather than a panic.
func VTypeToAST(v VType) wasm.FullValType {
	if v == nil {
		return wasm.FullValType{}
	}
	return *v
}

// Validate type-checks a function body (or constant expression) whose
// declared return types are retVals. It assumes every parameter and
// declared local has already been registered via AddLocal and that the
// module's index spaces are fully populated.
func (f *FormChecker) Validate(instrs []wasm.Instruction, retVals []wasm.FullValType) error {
	f.returns = retVals
	f.ctrlStack = nil
	f.valStack = nil
	f.pushCtrl(nil, retVals, wasm.OpEnd)
	return f.checkExpr(instrs)
}

func (f *FormChecker) checkExpr(instrs []wasm.Instruction) error {
	if err := f.checkInstrs(instrs); err != nil {
		return err
	}
	if len(f.ctrlStack) != 0 {
		return errors.Validate(errors.KindTypeCheckFailed, 0, "", "unterminated control structure")
	}
	return nil
}

func (f *FormChecker) checkInstrs(instrs []wasm.Instruction) error {
	for i := range instrs {
		if err := f.checkInstr(&instrs[i]); err != nil {
			return err
		}
	}
	return nil
}

// --- stack primitives ---

func (f *FormChecker) pushType(v VType) {
	f.valStack = append(f.valStack, v)
}

func (f *FormChecker) pushTypes(vs []wasm.FullValType) {
	for _, v := range vs {
		cp := v
		f.pushType(&cp)
	}
}

func (f *FormChecker) popType() (VType, error) {
	frame := &f.ctrlStack[len(f.ctrlStack)-1]
	if len(f.valStack) == frame.Height {
		if frame.IsUnreachable {
			return unreachableVType(), nil
		}
		return nil, errors.Validate(errors.KindTypeCheckFailed, 0, "", "value stack underflow past current label")
	}
	v := f.valStack[len(f.valStack)-1]
	f.valStack = f.valStack[:len(f.valStack)-1]
	return v, nil
}

func (f *FormChecker) popExpect(expect wasm.FullValType) (VType, error) {
	got, err := f.popType()
	if err != nil {
		return nil, err
	}
	if got == nil {
		return got, nil
	}
	if !valTypeEq(*got, expect) {
		return nil, errors.Validate(errors.KindTypeCheckFailed, 0, "",
			"expected "+expect.ValType.String()+", found "+got.ValType.String())
	}
	return got, nil
}

func (f *FormChecker) popTypes(expect []wasm.FullValType) error {
	for i := len(expect) - 1; i >= 0; i-- {
		if _, err := f.popExpect(expect[i]); err != nil {
			return err
		}
	}
	return nil
}

func valTypeEq(a, b wasm.FullValType) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == wasm.ExtValKindRef {
		if a.RefType.HeapType != b.RefType.HeapType {
			return false
		}
		// A non-nullable operand satisfies a nullable expectation, but
		// not the reverse.
		return a.RefType.Nullable == b.RefType.Nullable || !a.RefType.Nullable
	}
	return a.ValType == b.ValType
}

// stackTrans pops `take` (innermost last) and pushes `put`, treating an
// underflow into unreachable territory as satisfied by bottom.
func (f *FormChecker) stackTrans(take, put []wasm.FullValType) error {
	if err := f.popTypes(take); err != nil {
		return err
	}
	f.pushTypes(put)
	return nil
}

func (f *FormChecker) pushCtrl(in, out []wasm.FullValType, opcode byte) {
	f.ctrlStack = append(f.ctrlStack, CtrlFrame{
		StartTypes: append([]wasm.FullValType{}, in...),
		EndTypes:   append([]wasm.FullValType{}, out...),
		Height:     len(f.valStack),
		Opcode:     opcode,
	})
	f.pushTypes(in)
}

func (f *FormChecker) popCtrl() (CtrlFrame, error) {
	if len(f.ctrlStack) == 0 {
		return CtrlFrame{}, errors.Validate(errors.KindTypeCheckFailed, 0, "", "control stack underflow")
	}
	frame := f.ctrlStack[len(f.ctrlStack)-1]
	if err := f.popTypes(frame.EndTypes); err != nil {
		return CtrlFrame{}, err
	}
	if len(f.valStack) != frame.Height {
		return CtrlFrame{}, errors.Validate(errors.KindTypeCheckFailed, 0, "", "values remain on stack at end of block")
	}
	f.ctrlStack = f.ctrlStack[:len(f.ctrlStack)-1]
	return frame, nil
}

func getLabelTypes(frame CtrlFrame) []wasm.FullValType {
	if frame.Opcode == wasm.OpLoop {
		return frame.StartTypes
	}
	return frame.EndTypes
}

func (f *FormChecker) unreachable() {
	frame := &f.ctrlStack[len(f.ctrlStack)-1]
	f.valStack = f.valStack[:frame.Height]
	frame.IsUnreachable = true
}

func (f *FormChecker) labelAt(labelIdx uint32) (CtrlFrame, error) {
	if int(labelIdx) >= len(f.ctrlStack) {
		return CtrlFrame{}, errors.Validate(errors.KindTypeCheckFailed, 0, "", "branch depth exceeds control stack")
	}
	return f.ctrlStack[len(f.ctrlStack)-1-int(labelIdx)], nil
}

func (f *FormChecker) blockTypes(imm int32) ([]wasm.FullValType, []wasm.FullValType, error) {
	switch {
	case imm == wasm.BlockTypeVoid:
		return nil, nil, nil
	case imm < 0:
		return nil, []wasm.FullValType{simple(blockValType(imm))}, nil
	default:
		if int(imm) >= len(f.types) {
			return nil, nil, errors.Validate(errors.KindInvalidTypeIdx, 0, "Expression", "block type index out of bounds")
		}
		t := f.types[imm]
		return t[0], t[1], nil
	}
}

func blockValType(imm int32) wasm.ValType {
	switch imm {
	case -1:
		return wasm.ValI32
	case -2:
		return wasm.ValI64
	case -3:
		return wasm.ValF32
	case -4:
		return wasm.ValF64
	case -5:
		return wasm.ValV128
	case -16:
		return wasm.ValFuncRef
	case -17:
		return wasm.ValExtern
	default:
		return wasm.ValType(0)
	}
}
