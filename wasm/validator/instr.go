package validator

import (
	"github.com/wippyai/wasm-runtime/errors"
	"github.com/wippyai/wasm-runtime/wasm"
)

// checkInstr is the per-opcode abstract-interpretation step. Most numeric
// opcodes are dispatched through numericSig, a fixed input/output
// signature table; everything that consults module context (locals,
// globals, memories, tables, calls, structured control, GC) is handled
// individually below, following the same grouping
// original_source/include/validator/formchecker.h's checkInstr switch
// uses.
func (f *FormChecker) checkInstr(instr *wasm.Instruction) error {
	if sig, ok := numericSig[instr.Opcode]; ok {
		return f.stackTrans(sig.ins, sig.outs)
	}

	switch instr.Opcode {
	case wasm.OpUnreachable:
		f.unreachable()
		return nil

	case wasm.OpNop:
		return nil

	case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
		imm := instr.Imm.(wasm.BlockImm)
		in, out, err := f.blockTypes(imm.Type)
		if err != nil {
			return err
		}
		if instr.Opcode == wasm.OpIf {
			if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
				return err
			}
		}
		if err := f.popTypes(in); err != nil {
			return err
		}
		f.pushCtrl(in, out, instr.Opcode)
		return nil

	case wasm.OpElse:
		frame, err := f.popCtrl()
		if err != nil {
			return err
		}
		if frame.Opcode != wasm.OpIf {
			return errors.Validate(errors.KindTypeCheckFailed, 0, "Expression", "else without matching if")
		}
		f.pushCtrl(frame.StartTypes, frame.EndTypes, wasm.OpElse)
		return nil

	case wasm.OpEnd:
		ended, err := f.popCtrl()
		if err != nil {
			return err
		}
		if ended.Opcode == wasm.OpIf && !valTypesEq(ended.StartTypes, ended.EndTypes) {
			return errors.Validate(errors.KindTypeCheckFailed, 0, "Expression", "if without else must not change the value stack's shape")
		}
		if len(f.ctrlStack) > 0 {
			frame := f.ctrlStack[len(f.ctrlStack)-1]
			f.pushTypes(getLabelTypes(frame))
		}
		return nil

	case wasm.OpBr:
		imm := instr.Imm.(wasm.BranchImm)
		frame, err := f.labelAt(imm.LabelIdx)
		if err != nil {
			return err
		}
		if err := f.popTypes(getLabelTypes(frame)); err != nil {
			return err
		}
		f.unreachable()
		return nil

	case wasm.OpBrIf:
		imm := instr.Imm.(wasm.BranchImm)
		frame, err := f.labelAt(imm.LabelIdx)
		if err != nil {
			return err
		}
		if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
			return err
		}
		label := getLabelTypes(frame)
		if err := f.popTypes(label); err != nil {
			return err
		}
		f.pushTypes(label)
		return nil

	case wasm.OpBrTable:
		imm := instr.Imm.(wasm.BrTableImm)
		def, err := f.labelAt(imm.Default)
		if err != nil {
			return err
		}
		defLabel := getLabelTypes(def)
		if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
			return err
		}
		for _, l := range imm.Labels {
			frame, err := f.labelAt(l)
			if err != nil {
				return err
			}
			if len(getLabelTypes(frame)) != len(defLabel) {
				return errors.Validate(errors.KindTypeCheckFailed, 0, "Expression", "br_table arity mismatch between targets")
			}
		}
		if err := f.popTypes(defLabel); err != nil {
			return err
		}
		f.unreachable()
		return nil

	case wasm.OpReturn:
		if err := f.popTypes(f.returns); err != nil {
			return err
		}
		f.unreachable()
		return nil

	case wasm.OpCall:
		imm := instr.Imm.(wasm.CallImm)
		sig, err := f.funcSig(imm.FuncIdx)
		if err != nil {
			return err
		}
		return f.stackTrans(sig[0], sig[1])

	case wasm.OpCallIndirect:
		imm := instr.Imm.(wasm.CallIndirectImm)
		if int(imm.TableIdx) >= len(f.tables) {
			return errors.Validate(errors.KindInvalidTableIdx, 0, "Expression", "call_indirect table index out of bounds")
		}
		if int(imm.TypeIdx) >= len(f.types) {
			return errors.Validate(errors.KindInvalidTypeIdx, 0, "Expression", "call_indirect type index out of bounds")
		}
		if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
			return err
		}
		t := f.types[imm.TypeIdx]
		return f.stackTrans(t[0], t[1])

	case wasm.OpReturnCall:
		imm := instr.Imm.(wasm.CallImm)
		if err := f.cfg.RequireProposal(wasm.ProposalTailCall, errors.KindTypeCheckFailed, 0, "Expression"); err != nil {
			return err
		}
		sig, err := f.funcSig(imm.FuncIdx)
		if err != nil {
			return err
		}
		if err := f.popTypes(sig[0]); err != nil {
			return err
		}
		f.unreachable()
		return nil

	case wasm.OpReturnCallIndirect:
		imm := instr.Imm.(wasm.CallIndirectImm)
		if err := f.cfg.RequireProposal(wasm.ProposalTailCall, errors.KindTypeCheckFailed, 0, "Expression"); err != nil {
			return err
		}
		if int(imm.TypeIdx) >= len(f.types) {
			return errors.Validate(errors.KindInvalidTypeIdx, 0, "Expression", "return_call_indirect type index out of bounds")
		}
		if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
			return err
		}
		t := f.types[imm.TypeIdx]
		if err := f.popTypes(t[0]); err != nil {
			return err
		}
		f.unreachable()
		return nil

	case wasm.OpCallRef, wasm.OpReturnCallRef:
		imm := instr.Imm.(wasm.CallRefImm)
		if err := f.cfg.RequireProposal(wasm.ProposalFunctionReferences, errors.KindTypeCheckFailed, 0, "Expression"); err != nil {
			return err
		}
		if int(imm.TypeIdx) >= len(f.types) {
			return errors.Validate(errors.KindInvalidTypeIdx, 0, "Expression", "call_ref type index out of bounds")
		}
		t := f.types[imm.TypeIdx]
		ref := wasm.FullValType{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull,
			RefType: wasm.FullRefType{Nullable: true, HeapType: int64(imm.TypeIdx)}}
		if _, err := f.popExpect(ref); err != nil {
			return err
		}
		if instr.Opcode == wasm.OpReturnCallRef {
			if err := f.popTypes(t[0]); err != nil {
				return err
			}
			f.unreachable()
			return nil
		}
		return f.stackTrans(t[0], t[1])

	case wasm.OpDrop:
		_, err := f.popType()
		return err

	case wasm.OpSelect:
		if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
			return err
		}
		v1, err := f.popType()
		if err != nil {
			return err
		}
		v2, err := f.popType()
		if err != nil {
			return err
		}
		if !isNumType(v1) || !isNumType(v2) {
			return errors.Validate(errors.KindTypeCheckFailed, 0, "Expression", "untyped select requires numeric operands")
		}
		if v1 != nil {
			f.pushType(v1)
		} else {
			f.pushType(v2)
		}
		return nil

	case wasm.OpSelectType:
		imm := instr.Imm.(wasm.SelectTypeImm)
		want := extOrSimple(imm.ExtTypes, imm.Types)
		if len(want) != 1 {
			return errors.Validate(errors.KindTypeCheckFailed, 0, "Expression", "select expects exactly one declared type")
		}
		if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
			return err
		}
		if _, err := f.popExpect(want[0]); err != nil {
			return err
		}
		if _, err := f.popExpect(want[0]); err != nil {
			return err
		}
		cp := want[0]
		f.pushType(&cp)
		return nil

	case wasm.OpLocalGet:
		idx := instr.Imm.(wasm.LocalImm).LocalIdx
		l, err := f.localAt(idx)
		if err != nil {
			return err
		}
		cp := l.valType
		f.pushType(&cp)
		return nil

	case wasm.OpLocalSet:
		idx := instr.Imm.(wasm.LocalImm).LocalIdx
		l, err := f.localAt(idx)
		if err != nil {
			return err
		}
		if _, err := f.popExpect(l.valType); err != nil {
			return err
		}
		f.locals[idx].isSet = true
		return nil

	case wasm.OpLocalTee:
		idx := instr.Imm.(wasm.LocalImm).LocalIdx
		l, err := f.localAt(idx)
		if err != nil {
			return err
		}
		if _, err := f.popExpect(l.valType); err != nil {
			return err
		}
		f.locals[idx].isSet = true
		cp := l.valType
		f.pushType(&cp)
		return nil

	case wasm.OpGlobalGet:
		idx := instr.Imm.(wasm.GlobalImm).GlobalIdx
		g, err := f.globalAt(idx)
		if err != nil {
			return err
		}
		cp := g.valType
		f.pushType(&cp)
		return nil

	case wasm.OpGlobalSet:
		idx := instr.Imm.(wasm.GlobalImm).GlobalIdx
		g, err := f.globalAt(idx)
		if err != nil {
			return err
		}
		if !g.mutable {
			return errors.Validate(errors.KindImmutableGlobal, 0, "Expression", "global.set on an immutable global")
		}
		_, err = f.popExpect(g.valType)
		return err

	case wasm.OpTableGet:
		idx := instr.Imm.(wasm.TableImm).TableIdx
		rt, err := f.tableAt(idx)
		if err != nil {
			return err
		}
		if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
			return err
		}
		v := wasm.FullValType{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull, RefType: rt}
		f.pushType(&v)
		return nil

	case wasm.OpTableSet:
		idx := instr.Imm.(wasm.TableImm).TableIdx
		rt, err := f.tableAt(idx)
		if err != nil {
			return err
		}
		if _, err := f.popExpect(wasm.FullValType{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull, RefType: rt}); err != nil {
			return err
		}
		_, err = f.popExpect(simple(wasm.ValI32))
		return err

	case wasm.OpRefNull:
		imm := instr.Imm.(wasm.RefNullImm)
		v := wasm.FullValType{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull,
			RefType: wasm.FullRefType{Nullable: true, HeapType: imm.HeapType}}
		f.pushType(&v)
		return nil

	case wasm.OpRefIsNull:
		got, err := f.popType()
		if err != nil {
			return err
		}
		if !isRefType(got) {
			return errors.Validate(errors.KindTypeCheckFailed, 0, "Expression", "ref.is_null expects a reference operand")
		}
		f.pushType(vt(wasm.ValI32))
		return nil

	case wasm.OpRefFunc:
		idx := instr.Imm.(wasm.RefFuncImm).FuncIdx
		if _, ok := f.refs[idx]; !ok {
			return errors.Validate(errors.KindInvalidFuncIdx, 0, "Expression", "ref.func on a function index never referenced by an element or export")
		}
		v := wasm.FullValType{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull,
			RefType: wasm.FullRefType{Nullable: false, HeapType: int64(int8(wasm.ValFuncRef))}}
		f.pushType(&v)
		return nil

	case wasm.OpRefAsNonNull:
		got, err := f.popType()
		if err != nil {
			return err
		}
		if !isRefType(got) {
			return errors.Validate(errors.KindTypeCheckFailed, 0, "Expression", "ref.as_non_null expects a reference operand")
		}
		if got == nil {
			f.pushType(unreachableVType())
			return nil
		}
		nonNull := *got
		nonNull.RefType.Nullable = false
		f.pushType(&nonNull)
		return nil

	case wasm.OpRefEq:
		if err := f.cfg.RequireProposal(wasm.ProposalGC, errors.KindTypeCheckFailed, 0, "Expression"); err != nil {
			return err
		}
		eq := wasm.FullValType{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull,
			RefType: wasm.FullRefType{Nullable: true, HeapType: int64(wasm.HeapTypeEq)}}
		if _, err := f.popExpect(eq); err != nil {
			return err
		}
		if _, err := f.popExpect(eq); err != nil {
			return err
		}
		f.pushType(vt(wasm.ValI32))
		return nil

	case wasm.OpBrOnNull, wasm.OpBrOnNonNull:
		imm := instr.Imm.(wasm.BranchImm)
		frame, err := f.labelAt(imm.LabelIdx)
		if err != nil {
			return err
		}
		got, err := f.popType()
		if err != nil {
			return err
		}
		if !isRefType(got) {
			return errors.Validate(errors.KindTypeCheckFailed, 0, "Expression", "br_on_null/br_on_non_null expects a reference operand")
		}
		// The label's extra operands (everything but the branched-on
		// reference) pass through untouched on both the branch and
		// fall-through edges, so only the reference itself needs typing.
		// br_on_null branches on null and falls through non-null; the
		// fall-through case re-pushes a non-null ref. br_on_non_null
		// branches on non-null and falls through null; the fall-through
		// case has consumed the ref entirely.
		if instr.Opcode == wasm.OpBrOnNull {
			if got != nil {
				nonNull := *got
				nonNull.RefType.Nullable = false
				f.pushType(&nonNull)
			} else {
				f.pushType(got)
			}
		}
		return nil

	case wasm.OpMemorySize, wasm.OpMemoryGrow:
		if f.mems == 0 {
			return errors.Validate(errors.KindInvalidMemoryIdx, 0, "Expression", "no memory declared or imported")
		}
		if instr.Opcode == wasm.OpMemoryGrow {
			if _, err := f.popExpect(simple(wasm.ValI32)); err != nil {
				return err
			}
		}
		f.pushType(vt(wasm.ValI32))
		return nil

	case wasm.OpI32Const:
		f.pushType(vt(wasm.ValI32))
		return nil
	case wasm.OpI64Const:
		f.pushType(vt(wasm.ValI64))
		return nil
	case wasm.OpF32Const:
		f.pushType(vt(wasm.ValF32))
		return nil
	case wasm.OpF64Const:
		f.pushType(vt(wasm.ValF64))
		return nil

	case wasm.OpPrefixMisc:
		return f.checkMisc(instr.Imm.(wasm.MiscImm))

	case wasm.OpPrefixGC:
		return f.checkGC(instr.Imm.(wasm.GCImm))

	case wasm.OpPrefixSIMD:
		return f.checkSIMD(instr.Imm.(wasm.SIMDImm))

	case wasm.OpPrefixAtomic:
		return f.checkAtomic(instr.Imm.(wasm.AtomicImm))

	default:
		if sig, ok := memSig[instr.Opcode]; ok {
			if f.mems == 0 {
				return errors.Validate(errors.KindInvalidMemoryIdx, 0, "Expression", "no memory declared or imported")
			}
			return f.stackTrans(sig.ins, sig.outs)
		}
		return errors.Validate(errors.KindMalformedOpcode, 0, "Expression", "unsupported opcode")
	}
}

func valTypesEq(a, b []wasm.FullValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valTypeEq(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (f *FormChecker) funcSig(funcIdx uint32) ([2][]wasm.FullValType, error) {
	if int(funcIdx) >= len(f.funcs) {
		return [2][]wasm.FullValType{}, errors.Validate(errors.KindInvalidFuncIdx, 0, "Expression", "call on out-of-bounds function index")
	}
	typeIdx := f.funcs[funcIdx]
	if int(typeIdx) >= len(f.types) {
		return [2][]wasm.FullValType{}, errors.Validate(errors.KindInvalidTypeIdx, 0, "Expression", "function's type index out of bounds")
	}
	return f.types[typeIdx], nil
}

func (f *FormChecker) localAt(idx uint32) (localType, error) {
	if int(idx) >= len(f.locals) {
		return localType{}, errors.Validate(errors.KindInvalidLocalIdx, 0, "Expression", "local index out of bounds")
	}
	return f.locals[idx], nil
}

func (f *FormChecker) globalAt(idx uint32) (globalEntry, error) {
	if int(idx) >= len(f.globals) {
		return globalEntry{}, errors.Validate(errors.KindInvalidGlobalIdx, 0, "Expression", "global index out of bounds")
	}
	return f.globals[idx], nil
}

func (f *FormChecker) tableAt(idx uint32) (wasm.FullRefType, error) {
	if int(idx) >= len(f.tables) {
		return wasm.FullRefType{}, errors.Validate(errors.KindInvalidTableIdx, 0, "Expression", "table index out of bounds")
	}
	return f.tables[idx], nil
}
