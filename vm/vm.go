package vm

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-runtime/engine"
	"github.com/wippyai/wasm-runtime/errors"
	"github.com/wippyai/wasm-runtime/wasm"
	"github.com/wippyai/wasm-runtime/wasm/validator"
)

// Stage is one state of the pipeline's workflow, advanced strictly in
// order by Load, Validate, and Instantiate.
type Stage int

const (
	Inited Stage = iota
	Loaded
	Validated
	Instantiated
)

func (s Stage) String() string {
	switch s {
	case Inited:
		return "inited"
	case Loaded:
		return "loaded"
	case Validated:
		return "validated"
	case Instantiated:
		return "instantiated"
	default:
		return "unknown"
	}
}

// VM is the pipeline facade described by the module: it owns one
// module's progression through Load, Validate, and Instantiate, and
// refuses to run a stage out of order.
type VM struct {
	stage  Stage
	cfg    wasm.Config
	logger *zap.Logger

	module  *wasm.Module
	checker *validator.FormChecker

	eng *engine.WazeroEngine
}

// New builds a VM in the Inited stage.
func New(cfg wasm.Config) *VM {
	return &VM{stage: Inited, cfg: cfg, logger: cfg.Logger(), checker: validator.NewFormChecker(cfg)}
}

// Stage returns the current stage.
func (v *VM) Stage() Stage { return v.stage }

// Load decodes data into a module, advancing Inited -> Loaded. Calling
// Load again from any later stage demotes back to Loaded, matching
// WasmEdge's VM allowing a fresh load to restart the pipeline.
func (v *VM) Load(data []byte) error {
	mod, err := wasm.ParseModuleWithConfig(data, v.cfg)
	if err != nil {
		return errors.Load("decode module", err)
	}
	if err := mod.Validate(); err != nil {
		return errors.Load("structural validation", err)
	}
	v.module = mod
	v.stage = Loaded
	v.logger.Debug("module loaded", zap.Int("types", mod.NumTypes()), zap.Int("funcs", len(mod.Funcs)))
	return nil
}

// Validate runs the form checker over every function body, global
// initializer, element-segment offset, and data-segment offset in the
// loaded module. Requires the Loaded stage; advances to Validated.
func (v *VM) Validate() error {
	if v.stage < Loaded {
		return errors.WrongWorkflow("Validate called before Load")
	}
	if err := v.populateContext(); err != nil {
		return err
	}
	if err := v.validateGlobals(); err != nil {
		return err
	}
	if err := v.validateElements(); err != nil {
		return err
	}
	if err := v.validateData(); err != nil {
		return err
	}
	if err := v.validateCode(); err != nil {
		return err
	}
	v.stage = Validated
	v.logger.Debug("module validated")
	return nil
}

// Instantiate delegates to the teacher's wazero-backed engine. This is
// an out-of-scope seam: instantiation and execution live downstream of
// this module's core, and this method exists only to demonstrate the
// pipeline facade's last stage transition. Requires the Validated stage;
// advances to Instantiated.
func (v *VM) Instantiate(ctx context.Context, raw []byte) error {
	if v.stage < Validated {
		return errors.WrongWorkflow("Instantiate called before Validate")
	}
	eng, err := engine.NewWazeroEngine(ctx)
	if err != nil {
		return errors.Instantiation(err)
	}
	if _, err := eng.LoadModule(ctx, raw); err != nil {
		return errors.Instantiation(err)
	}
	v.eng = eng
	v.stage = Instantiated
	v.logger.Debug("module instantiated")
	return nil
}

// Register models re-registering a module on a VM that has already
// instantiated one: WasmEdge's VM demotes its stage back to Validated
// rather than forbidding the call outright, since the engine-level state
// from the prior Instantiate is discarded but the decoded/validated
// module contexts remain usable.
func (v *VM) Register() error {
	if v.stage < Validated {
		return errors.WrongWorkflow("Register called before Validate")
	}
	if v.stage == Instantiated {
		v.stage = Validated
		v.logger.Debug("re-registration demoted stage to validated")
	}
	return nil
}

// Close releases the engine, if one was instantiated.
func (v *VM) Close(ctx context.Context) error {
	if v.eng == nil {
		return nil
	}
	return v.eng.Close(ctx)
}
