package wasm_test

import (
	"bytes"
	"testing"

	"github.com/wippyai/wasm-runtime/errors"
	"github.com/wippyai/wasm-runtime/wasm"
	"github.com/wippyai/wasm-runtime/wasm/internal/binary"
)

func TestLoadLimitSharedNoMaxGatedOnThreads(t *testing.T) {
	data := []byte{0x02, 0x01} // kind 0x02 (SharedNoMax), min=1
	r := binary.NewReader(bytes.NewReader(data))
	cfg := wasm.NewConfig(wasm.WithProposal(wasm.ProposalThreads))
	lim, err := wasm.LoadLimit(r, cfg)
	if err != nil {
		t.Fatalf("unexpected error with threads enabled: %v", err)
	}
	if !lim.Shared || lim.Max != nil {
		t.Errorf("expected shared-no-max limit, got %+v", lim)
	}

	r = binary.NewReader(bytes.NewReader(data))
	cfg = wasm.NewConfig()
	_, err = wasm.LoadLimit(r, cfg)
	if err == nil {
		t.Fatal("expected error for kind 0x02 without threads proposal")
	}
	werr, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if werr.Kind != errors.KindIntegerTooLarge {
		t.Errorf("got kind %v, want KindIntegerTooLarge", werr.Kind)
	}
}

func TestLoadLimitOverlongKindByteIsIntegerTooLong(t *testing.T) {
	for _, kindByte := range []byte{0x80, 0x81} {
		r := binary.NewReader(bytes.NewReader([]byte{kindByte, 0x01}))
		_, err := wasm.LoadLimit(r, wasm.NewConfig())
		if err == nil {
			t.Fatalf("kind byte 0x%02x: expected error", kindByte)
		}
		werr, ok := err.(*errors.Error)
		if !ok {
			t.Fatalf("kind byte 0x%02x: expected *errors.Error, got %T", kindByte, err)
		}
		if werr.Kind != errors.KindIntegerTooLong {
			t.Errorf("kind byte 0x%02x: got kind %v, want KindIntegerTooLong", kindByte, werr.Kind)
		}
	}
}

func TestLoadLimitUnknownKindByteIsIntegerTooLarge(t *testing.T) {
	r := binary.NewReader(bytes.NewReader([]byte{0x04, 0x01}))
	_, err := wasm.LoadLimit(r, wasm.NewConfig())
	if err == nil {
		t.Fatal("expected error for unknown limit kind byte")
	}
	werr, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if werr.Kind != errors.KindIntegerTooLarge {
		t.Errorf("got kind %v, want KindIntegerTooLarge", werr.Kind)
	}
}

func TestLoadLimitHasMinMax(t *testing.T) {
	data := []byte{0x01, 0x01, 0x05} // HasMinMax, min=1, max=5
	r := binary.NewReader(bytes.NewReader(data))
	lim, err := wasm.LoadLimit(r, wasm.NewConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lim.Min != 1 || lim.Max == nil || *lim.Max != 5 {
		t.Errorf("got %+v, want min=1 max=5", lim)
	}
}
