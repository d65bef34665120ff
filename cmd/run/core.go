package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wippyai/wasm-runtime/vm"
	"github.com/wippyai/wasm-runtime/wasm"
)

var proposalAliases = map[string]wasm.Proposal{
	"multi-value":      wasm.ProposalMultiValue,
	"bulk-memory":      wasm.ProposalBulkMemoryOperations,
	"reference-types":  wasm.ProposalReferenceTypes,
	"simd":             wasm.ProposalSIMD,
	"tail-call":        wasm.ProposalTailCall,
	"annotations":      wasm.ProposalAnnotations,
	"memory64":         wasm.ProposalMemory64,
	"exceptions":       wasm.ProposalExceptionHandling,
	"threads":          wasm.ProposalThreads,
	"function-refs":    wasm.ProposalFunctionReferences,
	"gc":               wasm.ProposalGC,
	"extended-const":   wasm.ProposalExtendedConst,
	"component-model":  wasm.ProposalComponentModel,
	"mutable-globals":  wasm.ProposalImportExportMutGlobals,
	"nontrap-f2i":      wasm.ProposalNonTrapFloatToInt,
	"sign-extension":   wasm.ProposalSignExtensionOperators,
}

func parseProposals(csv string) ([]wasm.Proposal, error) {
	if csv == "" {
		return nil, nil
	}
	var out []wasm.Proposal
	for _, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, ok := proposalAliases[name]
		if !ok {
			return nil, fmt.Errorf("unknown proposal %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}

// runCore drives a raw core module (not a component) through the vm
// pipeline facade's three stages, printing each transition. This is the
// CLI surface for the decoder/form-checker/engine pipeline, as distinct
// from the component-model path `run` above.
func runCore(wasmFile, proposalsCSV string) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	proposals, err := parseProposals(proposalsCSV)
	if err != nil {
		return err
	}
	cfg := wasm.NewConfig(wasm.WithProposal(proposals...))

	v := vm.New(cfg)

	if err := v.Load(data); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	fmt.Printf("loaded (%s)\n", v.Stage())

	if err := v.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	fmt.Printf("validated (%s)\n", v.Stage())

	if err := v.Instantiate(ctx, data); err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	fmt.Printf("instantiated (%s)\n", v.Stage())

	return v.Close(ctx)
}
