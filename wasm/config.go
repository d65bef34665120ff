package wasm

import (
	"github.com/wippyai/wasm-runtime/errors"
	"go.uber.org/zap"
)

// Proposal identifies a versioned WebAssembly extension whose syntax is
// opt-in. The decoder and form checker consult Config.HasProposal before
// admitting a production that only a proposal defines.
type Proposal int

const (
	ProposalImportExportMutGlobals Proposal = iota
	ProposalNonTrapFloatToInt
	ProposalSignExtensionOperators
	ProposalMultiValue
	ProposalBulkMemoryOperations
	ProposalReferenceTypes
	ProposalSIMD
	ProposalTailCall
	ProposalAnnotations
	ProposalMemory64
	ProposalExceptionHandling
	ProposalThreads
	ProposalFunctionReferences
	ProposalGC
	ProposalExtendedConst
	ProposalComponentModel
)

var proposalNames = map[Proposal]string{
	ProposalImportExportMutGlobals: "import/export-mutable-globals",
	ProposalNonTrapFloatToInt:      "non-trapping-float-to-int",
	ProposalSignExtensionOperators: "sign-extension-operators",
	ProposalMultiValue:             "multi-value",
	ProposalBulkMemoryOperations:   "bulk-memory-operations",
	ProposalReferenceTypes:         "reference-types",
	ProposalSIMD:                   "simd",
	ProposalTailCall:               "tail-call",
	ProposalAnnotations:            "annotations",
	ProposalMemory64:               "memory64",
	ProposalExceptionHandling:      "exception-handling",
	ProposalThreads:                "threads",
	ProposalFunctionReferences:     "function-references",
	ProposalGC:                     "gc",
	ProposalExtendedConst:          "extended-const",
	ProposalComponentModel:         "component-model",
}

func (p Proposal) String() string {
	if name, ok := proposalNames[p]; ok {
		return name
	}
	return "unknown-proposal"
}

// Config carries the set of enabled proposals consulted by the decoder and
// form checker. It is an immutable value; there is no global singleton, and
// it is passed by value (or reference where large) into every call that
// needs proposal-gating decisions.
type Config struct {
	enabled map[Proposal]bool
	logger  *zap.Logger
}

// ConfigOption mutates a Config under construction.
type ConfigOption func(*Config)

// WithProposal enables the given proposals.
func WithProposal(proposals ...Proposal) ConfigOption {
	return func(c *Config) {
		for _, p := range proposals {
			c.enabled[p] = true
		}
	}
}

// WithLogger attaches a structured logger the decoder and form checker
// use for diagnostic (non-error) tracing, e.g. which proposal gated a
// production. Defaults to zap.NewNop() when not supplied.
func WithLogger(logger *zap.Logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// Logger returns the configured diagnostic logger, or a no-op logger if
// none was set.
func (c Config) Logger() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// NewConfig builds a Config. With no options, every proposal is disabled
// except the "WASM 2.0" baseline (MultiValue, BulkMemoryOperations,
// ReferenceTypes, SignExtensionOperators, NonTrapFloatToInt,
// ImportExportMutGlobals) which the WebAssembly 2.0 core spec folded in.
func NewConfig(opts ...ConfigOption) Config {
	c := Config{enabled: make(map[Proposal]bool, len(proposalNames))}
	baseline := []Proposal{
		ProposalImportExportMutGlobals,
		ProposalNonTrapFloatToInt,
		ProposalSignExtensionOperators,
		ProposalMultiValue,
		ProposalBulkMemoryOperations,
		ProposalReferenceTypes,
	}
	for _, p := range baseline {
		c.enabled[p] = true
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NewConfigAll returns a Config with every known proposal enabled, useful
// for tests and for embedders that want maximal admission.
func NewConfigAll() Config {
	all := make([]Proposal, 0, len(proposalNames))
	for p := range proposalNames {
		all = append(all, p)
	}
	return NewConfig(WithProposal(all...))
}

// HasProposal reports whether p is enabled.
func (c Config) HasProposal(p Proposal) bool {
	return c.enabled[p]
}

// RequireProposal returns a NeedProposal error if p is disabled, naming the
// node attribute and byte offset that triggered the check.
func (c Config) RequireProposal(p Proposal, kind errors.Kind, offset int, nodeAttr string) error {
	if c.HasProposal(p) {
		return nil
	}
	return errors.NeedProposal(kind, p.String(), offset, nodeAttr)
}
