package validator

import "github.com/wippyai/wasm-runtime/wasm"

type sig struct {
	ins  []wasm.FullValType
	outs []wasm.FullValType
}

func un(t wasm.ValType) sig  { return sig{[]wasm.FullValType{simple(t)}, []wasm.FullValType{simple(t)}} }
func bin(t wasm.ValType) sig { return sig{[]wasm.FullValType{simple(t), simple(t)}, []wasm.FullValType{simple(t)}} }
func cmp(t wasm.ValType) sig {
	return sig{[]wasm.FullValType{simple(t), simple(t)}, []wasm.FullValType{simple(wasm.ValI32)}}
}
func eqz(t wasm.ValType) sig {
	return sig{[]wasm.FullValType{simple(t)}, []wasm.FullValType{simple(wasm.ValI32)}}
}
func conv(in, out wasm.ValType) sig {
	return sig{[]wasm.FullValType{simple(in)}, []wasm.FullValType{simple(out)}}
}

// numericSig covers every opcode whose stack effect depends only on its
// own type, not on module context: comparisons, arithmetic, bitwise,
// shifts/rotates, float unary/binary, numeric conversions and
// reinterpretations, and the sign-extension operators. Constants
// (i32.const etc.) are handled in checkInstr since they need the decoded
// immediate's presence, not its value.
var numericSig = map[byte]sig{
	wasm.OpI32Eqz: eqz(wasm.ValI32),
	wasm.OpI32Eq:  cmp(wasm.ValI32), wasm.OpI32Ne: cmp(wasm.ValI32),
	wasm.OpI32LtS: cmp(wasm.ValI32), wasm.OpI32LtU: cmp(wasm.ValI32),
	wasm.OpI32GtS: cmp(wasm.ValI32), wasm.OpI32GtU: cmp(wasm.ValI32),
	wasm.OpI32LeS: cmp(wasm.ValI32), wasm.OpI32LeU: cmp(wasm.ValI32),
	wasm.OpI32GeS: cmp(wasm.ValI32), wasm.OpI32GeU: cmp(wasm.ValI32),

	wasm.OpI64Eqz: eqz(wasm.ValI64),
	wasm.OpI64Eq: cmp(wasm.ValI64), wasm.OpI64Ne: cmp(wasm.ValI64),
	wasm.OpI64LtS: cmp(wasm.ValI64), wasm.OpI64LtU: cmp(wasm.ValI64),
	wasm.OpI64GtS: cmp(wasm.ValI64), wasm.OpI64GtU: cmp(wasm.ValI64),
	wasm.OpI64LeS: cmp(wasm.ValI64), wasm.OpI64LeU: cmp(wasm.ValI64),
	wasm.OpI64GeS: cmp(wasm.ValI64), wasm.OpI64GeU: cmp(wasm.ValI64),

	wasm.OpF32Eq: cmp(wasm.ValF32), wasm.OpF32Ne: cmp(wasm.ValF32),
	wasm.OpF32Lt: cmp(wasm.ValF32), wasm.OpF32Gt: cmp(wasm.ValF32),
	wasm.OpF32Le: cmp(wasm.ValF32), wasm.OpF32Ge: cmp(wasm.ValF32),

	wasm.OpF64Eq: cmp(wasm.ValF64), wasm.OpF64Ne: cmp(wasm.ValF64),
	wasm.OpF64Lt: cmp(wasm.ValF64), wasm.OpF64Gt: cmp(wasm.ValF64),
	wasm.OpF64Le: cmp(wasm.ValF64), wasm.OpF64Ge: cmp(wasm.ValF64),

	wasm.OpI32Clz: un(wasm.ValI32), wasm.OpI32Ctz: un(wasm.ValI32), wasm.OpI32Popcnt: un(wasm.ValI32),
	wasm.OpI32Add: bin(wasm.ValI32), wasm.OpI32Sub: bin(wasm.ValI32), wasm.OpI32Mul: bin(wasm.ValI32),
	wasm.OpI32DivS: bin(wasm.ValI32), wasm.OpI32DivU: bin(wasm.ValI32),
	wasm.OpI32RemS: bin(wasm.ValI32), wasm.OpI32RemU: bin(wasm.ValI32),
	wasm.OpI32And: bin(wasm.ValI32), wasm.OpI32Or: bin(wasm.ValI32), wasm.OpI32Xor: bin(wasm.ValI32),
	wasm.OpI32Shl: bin(wasm.ValI32), wasm.OpI32ShrS: bin(wasm.ValI32), wasm.OpI32ShrU: bin(wasm.ValI32),
	wasm.OpI32Rotl: bin(wasm.ValI32), wasm.OpI32Rotr: bin(wasm.ValI32),

	wasm.OpI64Clz: un(wasm.ValI64), wasm.OpI64Ctz: un(wasm.ValI64), wasm.OpI64Popcnt: un(wasm.ValI64),
	wasm.OpI64Add: bin(wasm.ValI64), wasm.OpI64Sub: bin(wasm.ValI64), wasm.OpI64Mul: bin(wasm.ValI64),
	wasm.OpI64DivS: bin(wasm.ValI64), wasm.OpI64DivU: bin(wasm.ValI64),
	wasm.OpI64RemS: bin(wasm.ValI64), wasm.OpI64RemU: bin(wasm.ValI64),
	wasm.OpI64And: bin(wasm.ValI64), wasm.OpI64Or: bin(wasm.ValI64), wasm.OpI64Xor: bin(wasm.ValI64),
	wasm.OpI64Shl: bin(wasm.ValI64), wasm.OpI64ShrS: bin(wasm.ValI64), wasm.OpI64ShrU: bin(wasm.ValI64),
	wasm.OpI64Rotl: bin(wasm.ValI64), wasm.OpI64Rotr: bin(wasm.ValI64),

	wasm.OpF32Abs: un(wasm.ValF32), wasm.OpF32Neg: un(wasm.ValF32), wasm.OpF32Ceil: un(wasm.ValF32),
	wasm.OpF32Floor: un(wasm.ValF32), wasm.OpF32Trunc: un(wasm.ValF32), wasm.OpF32Nearest: un(wasm.ValF32),
	wasm.OpF32Sqrt: un(wasm.ValF32),
	wasm.OpF32Add: bin(wasm.ValF32), wasm.OpF32Sub: bin(wasm.ValF32), wasm.OpF32Mul: bin(wasm.ValF32),
	wasm.OpF32Div: bin(wasm.ValF32), wasm.OpF32Min: bin(wasm.ValF32), wasm.OpF32Max: bin(wasm.ValF32),
	wasm.OpF32Copysign: bin(wasm.ValF32),

	wasm.OpF64Abs: un(wasm.ValF64), wasm.OpF64Neg: un(wasm.ValF64), wasm.OpF64Ceil: un(wasm.ValF64),
	wasm.OpF64Floor: un(wasm.ValF64), wasm.OpF64Trunc: un(wasm.ValF64), wasm.OpF64Nearest: un(wasm.ValF64),
	wasm.OpF64Sqrt: un(wasm.ValF64),
	wasm.OpF64Add: bin(wasm.ValF64), wasm.OpF64Sub: bin(wasm.ValF64), wasm.OpF64Mul: bin(wasm.ValF64),
	wasm.OpF64Div: bin(wasm.ValF64), wasm.OpF64Min: bin(wasm.ValF64), wasm.OpF64Max: bin(wasm.ValF64),
	wasm.OpF64Copysign: bin(wasm.ValF64),

	wasm.OpI32WrapI64:    conv(wasm.ValI64, wasm.ValI32),
	wasm.OpI32TruncF32S:  conv(wasm.ValF32, wasm.ValI32),
	wasm.OpI32TruncF32U:  conv(wasm.ValF32, wasm.ValI32),
	wasm.OpI32TruncF64S:  conv(wasm.ValF64, wasm.ValI32),
	wasm.OpI32TruncF64U:  conv(wasm.ValF64, wasm.ValI32),
	wasm.OpI64ExtendI32S: conv(wasm.ValI32, wasm.ValI64),
	wasm.OpI64ExtendI32U: conv(wasm.ValI32, wasm.ValI64),
	wasm.OpI64TruncF32S:  conv(wasm.ValF32, wasm.ValI64),
	wasm.OpI64TruncF32U:  conv(wasm.ValF32, wasm.ValI64),
	wasm.OpI64TruncF64S:  conv(wasm.ValF64, wasm.ValI64),
	wasm.OpI64TruncF64U:  conv(wasm.ValF64, wasm.ValI64),
	wasm.OpF32ConvertI32S: conv(wasm.ValI32, wasm.ValF32),
	wasm.OpF32ConvertI32U: conv(wasm.ValI32, wasm.ValF32),
	wasm.OpF32ConvertI64S: conv(wasm.ValI64, wasm.ValF32),
	wasm.OpF32ConvertI64U: conv(wasm.ValI64, wasm.ValF32),
	wasm.OpF32DemoteF64:   conv(wasm.ValF64, wasm.ValF32),
	wasm.OpF64ConvertI32S: conv(wasm.ValI32, wasm.ValF64),
	wasm.OpF64ConvertI32U: conv(wasm.ValI32, wasm.ValF64),
	wasm.OpF64ConvertI64S: conv(wasm.ValI64, wasm.ValF64),
	wasm.OpF64ConvertI64U: conv(wasm.ValI64, wasm.ValF64),
	wasm.OpF64PromoteF32:  conv(wasm.ValF32, wasm.ValF64),
	wasm.OpI32ReinterpretF32: conv(wasm.ValF32, wasm.ValI32),
	wasm.OpI64ReinterpretF64: conv(wasm.ValF64, wasm.ValI64),
	wasm.OpF32ReinterpretI32: conv(wasm.ValI32, wasm.ValF32),
	wasm.OpF64ReinterpretI64: conv(wasm.ValI64, wasm.ValF64),

	wasm.OpI32Extend8S:  un(wasm.ValI32),
	wasm.OpI32Extend16S: un(wasm.ValI32),
	wasm.OpI64Extend8S:  un(wasm.ValI64),
	wasm.OpI64Extend16S: un(wasm.ValI64),
	wasm.OpI64Extend32S: un(wasm.ValI64),
}

// memSig covers every ordinary (non-prefixed) load/store opcode, keyed by
// opcode byte. Memory-index validity (at least one declared/imported
// memory) is checked by the caller before consulting this table.
var memSig = map[byte]sig{
	wasm.OpI32Load: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI32)}},
	wasm.OpI64Load: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI64)}},
	wasm.OpF32Load: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValF32)}},
	wasm.OpF64Load: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValF64)}},
	wasm.OpI32Load8S:  {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI32)}},
	wasm.OpI32Load8U:  {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI32)}},
	wasm.OpI32Load16S: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI32)}},
	wasm.OpI32Load16U: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI32)}},
	wasm.OpI64Load8S:  {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI64)}},
	wasm.OpI64Load8U:  {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI64)}},
	wasm.OpI64Load16S: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI64)}},
	wasm.OpI64Load16U: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI64)}},
	wasm.OpI64Load32S: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI64)}},
	wasm.OpI64Load32U: {[]wasm.FullValType{simple(wasm.ValI32)}, []wasm.FullValType{simple(wasm.ValI64)}},

	wasm.OpI32Store:   {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValI32)}, nil},
	wasm.OpI64Store:   {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValI64)}, nil},
	wasm.OpF32Store:   {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValF32)}, nil},
	wasm.OpF64Store:   {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValF64)}, nil},
	wasm.OpI32Store8:  {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValI32)}, nil},
	wasm.OpI32Store16: {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValI32)}, nil},
	wasm.OpI64Store8:  {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValI64)}, nil},
	wasm.OpI64Store16: {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValI64)}, nil},
	wasm.OpI64Store32: {[]wasm.FullValType{simple(wasm.ValI32), simple(wasm.ValI64)}, nil},
}
