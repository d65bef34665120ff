// Package vm is the pipeline facade: a staged workflow over the wasm
// decoder, the wasm/validator form checker, and the teacher's existing
// execution engine, matching the stage discipline of
// original_source/lib/vm/vm.cpp's VM::Stage state machine (Inited,
// Loaded, Validated, Instantiated). Every stage-advancing method checks
// the current stage first and returns a wrong-workflow error rather than
// silently reordering work.
package vm
