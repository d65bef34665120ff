// Package validator implements the instruction-level form checker: an
// abstract interpreter that walks a function body's instruction sequence
// and tracks an abstract value stack and control-frame stack to decide
// whether the sequence is well-typed, the way a type checker for a stack
// machine does rather than by executing it.
//
// A FormChecker is built against a module's index spaces (AddType,
// AddFunc, AddTable, AddMemory, AddGlobal, AddElem, AddData, AddRef) and
// then Validate is called once per function body, once per global/element
// offset expression, and once per data segment offset expression.
package validator
