package vm

import (
	"github.com/wippyai/wasm-runtime/errors"
	"github.com/wippyai/wasm-runtime/wasm"
)

// populateContext feeds the module's index spaces into the form checker,
// in the same order WasmEdge's Validator::validate walks a module's
// sections: types, then imports (which extend the func/table/memory/
// global index spaces before any locally defined item), then the local
// definitions, then elements/data, then the set of referenceable
// function indices.
func (v *VM) populateContext() error {
	for _, ft := range flattenFuncTypes(v.module) {
		v.checker.AddType(ft)
	}

	for _, imp := range v.module.Imports {
		switch imp.Desc.Kind {
		case wasm.KindFunc:
			v.checker.AddFunc(imp.Desc.TypeIdx, true)
		case wasm.KindTable:
			if imp.Desc.Table != nil {
				v.checker.AddTable(*imp.Desc.Table)
			}
		case wasm.KindMemory:
			if imp.Desc.Memory != nil {
				v.checker.AddMemory(*imp.Desc.Memory)
			}
		case wasm.KindGlobal:
			if imp.Desc.Global != nil {
				v.checker.AddGlobal(*imp.Desc.Global, true)
			}
		}
	}

	for _, typeIdx := range v.module.Funcs {
		v.checker.AddFunc(typeIdx, false)
	}
	for _, t := range v.module.Tables {
		v.checker.AddTable(t)
	}
	for _, m := range v.module.Memories {
		v.checker.AddMemory(m)
	}
	for _, g := range v.module.Globals {
		v.checker.AddGlobal(g.Type, false)
	}
	for _, e := range v.module.Elements {
		v.checker.AddElem(e)
	}
	for _, d := range v.module.Data {
		v.checker.AddData(d)
	}

	for _, exp := range v.module.Exports {
		if exp.Kind == wasm.KindFunc {
			v.checker.AddRef(exp.Idx)
		}
	}
	for _, e := range v.module.Elements {
		for _, fi := range e.FuncIdxs {
			v.checker.AddRef(fi)
		}
		for _, expr := range e.Exprs {
			for _, idx := range refFuncsIn(expr) {
				v.checker.AddRef(idx)
			}
		}
	}
	for _, g := range v.module.Globals {
		for _, idx := range refFuncsIn(g.Init) {
			v.checker.AddRef(idx)
		}
	}
	if v.module.Start != nil {
		v.checker.AddRef(*v.module.Start)
	}
	return nil
}

func refFuncsIn(code []byte) []uint32 {
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		return nil
	}
	var out []uint32
	for _, instr := range instrs {
		if instr.Opcode == wasm.OpRefFunc {
			out = append(out, instr.Imm.(wasm.RefFuncImm).FuncIdx)
		}
	}
	return out
}

// flattenFuncTypes expands the module's type index space into one
// FuncType per index, zero-valued for struct/array entries (the form
// checker only performs call-site arity/type checks against the
// function-type index space; GC struct/array field shapes are left to
// the decoder's structural validation, per DESIGN.md).
func flattenFuncTypes(m *wasm.Module) []wasm.FuncType {
	if len(m.TypeDefs) == 0 {
		return m.Types
	}
	var out []wasm.FuncType
	for i := range m.TypeDefs {
		td := &m.TypeDefs[i]
		switch td.Kind {
		case wasm.TypeDefKindFunc:
			out = append(out, *td.Func)
		case wasm.TypeDefKindSub:
			if td.Sub.CompType.Kind == wasm.CompKindFunc {
				out = append(out, *td.Sub.CompType.Func)
			} else {
				out = append(out, wasm.FuncType{})
			}
		case wasm.TypeDefKindRec:
			for j := range td.Rec.Types {
				sub := &td.Rec.Types[j]
				if sub.CompType.Kind == wasm.CompKindFunc {
					out = append(out, *sub.CompType.Func)
				} else {
					out = append(out, wasm.FuncType{})
				}
			}
		}
	}
	return out
}

func (v *VM) validateGlobals() error {
	for i := range v.module.Globals {
		g := &v.module.Globals[i]
		instrs, err := wasm.DecodeInstructions(g.Init)
		if err != nil {
			return errors.Decode(errors.KindMalformedOpcode, 0, "GlobalSection", err.Error())
		}
		retType := simpleOrExt(g.Type)
		v.checker.Reset(false)
		if err := v.checker.Validate(instrs, []wasm.FullValType{retType}); err != nil {
			return err
		}
	}
	return nil
}

func simpleOrExt(gt wasm.GlobalType) wasm.FullValType {
	if gt.ExtType != nil {
		return *gt.ExtType
	}
	return wasm.FullValType{Kind: wasm.ExtValKindSimple, ValType: gt.ValType}
}

func (v *VM) validateElements() error {
	for _, e := range v.module.Elements {
		if len(e.Offset) > 0 {
			instrs, err := wasm.DecodeInstructions(e.Offset)
			if err != nil {
				return errors.Decode(errors.KindMalformedOpcode, 0, "ElementSection", err.Error())
			}
			v.checker.Reset(false)
			if err := v.checker.Validate(instrs, []wasm.FullValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32}}); err != nil {
				return err
			}
		}
		for _, expr := range e.Exprs {
			instrs, err := wasm.DecodeInstructions(expr)
			if err != nil {
				return errors.Decode(errors.KindMalformedOpcode, 0, "ElementSection", err.Error())
			}
			v.checker.Reset(false)
			elemType := wasm.FullValType{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull}
			if e.RefType != nil {
				elemType.RefType = *e.RefType
			}
			if err := v.checker.Validate(instrs, []wasm.FullValType{elemType}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *VM) validateData() error {
	for _, d := range v.module.Data {
		if len(d.Offset) == 0 {
			continue
		}
		instrs, err := wasm.DecodeInstructions(d.Offset)
		if err != nil {
			return errors.Decode(errors.KindMalformedOpcode, 0, "DataSection", err.Error())
		}
		v.checker.Reset(false)
		if err := v.checker.Validate(instrs, []wasm.FullValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32}}); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) validateCode() error {
	numImportedFuncs := v.module.NumImportedFuncs()
	for i, body := range v.module.Code {
		funcIdx := numImportedFuncs + i
		ft := v.module.GetFuncType(uint32(funcIdx))
		if ft == nil {
			return errors.Validate(errors.KindInvalidFuncIdx, 0, "CodeSection", "function body has no matching type")
		}
		v.checker.Reset(false)
		params := extOrSimpleTypes(ft)
		for _, p := range params {
			v.checker.AddLocal(p)
		}
		for _, l := range body.Locals {
			t := wasm.FullValType{Kind: wasm.ExtValKindSimple, ValType: l.ValType}
			if l.ExtType != nil {
				t = *l.ExtType
			}
			for n := uint32(0); n < l.Count; n++ {
				v.checker.AddLocal(t)
			}
		}
		instrs, err := wasm.DecodeInstructions(body.Code)
		if err != nil {
			return errors.Decode(errors.KindMalformedOpcode, 0, "CodeSection", err.Error())
		}
		results := resultTypes(ft)
		if err := v.checker.Validate(instrs, results); err != nil {
			return err
		}
	}
	return nil
}

func extOrSimpleTypes(ft *wasm.FuncType) []wasm.FullValType {
	if len(ft.ExtParams) > 0 {
		return ft.ExtParams
	}
	out := make([]wasm.FullValType, len(ft.Params))
	for i, p := range ft.Params {
		out[i] = wasm.FullValType{Kind: wasm.ExtValKindSimple, ValType: p}
	}
	return out
}

func resultTypes(ft *wasm.FuncType) []wasm.FullValType {
	if len(ft.ExtResults) > 0 {
		return ft.ExtResults
	}
	out := make([]wasm.FullValType, len(ft.Results))
	for i, r := range ft.Results {
		out[i] = wasm.FullValType{Kind: wasm.ExtValKindSimple, ValType: r}
	}
	return out
}
