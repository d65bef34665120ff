package wasm

import (
	"errors"

	werrors "github.com/wippyai/wasm-runtime/errors"
	"github.com/wippyai/wasm-runtime/wasm/internal/binary"
)

// LimitKind tags the wire encoding of a Limit, per the core WebAssembly
// binary format plus the Threads proposal's shared-memory extension.
type LimitKind byte

const (
	LimitKindHasMin      LimitKind = 0x00
	LimitKindHasMinMax   LimitKind = 0x01
	LimitKindSharedNoMax LimitKind = 0x02 // ill-formed; see LoadLimit
	LimitKindShared      LimitKind = 0x03
)

// Limit describes size constraints for tables and memories in the core
// type model, distinct from Module's Limits (which additionally tracks the
// Memory64 proposal's bit-flag encoding for the full module pipeline).
// Shared implies Max is present; HasMin leaves Max absent rather than
// defaulting it to Min (see DESIGN.md's resolution of the loadLimit open
// question).
type Limit struct {
	Max    *uint32
	Min    uint32
	Shared bool
}

// LoadLimit reads a Limit from r, gating the ill-formed SharedNoMax kind on
// the Threads proposal as WasmEdge's Loader::loadLimit does: with Threads
// enabled the kind is reported as SharedMemoryNoMax, otherwise the kind
// byte looks like runaway LEB128 and is reported as IntegerTooLarge. Kind
// bytes 0x80/0x81 indicate a continuation bit set on what must be a single
// terminal byte, i.e. an overlong encoding, and are reported as
// IntegerTooLong.
func LoadLimit(r *binary.Reader, cfg Config) (Limit, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Limit{}, wrapIOErr(err, r.Position(), "Type_Limit")
	}

	var lim Limit
	switch LimitKind(kindByte) {
	case LimitKindHasMin:
		// Max stays nil: HasMin never carries a maximum.
	case LimitKindHasMinMax:
		lim.Max = new(uint32)
	case LimitKindSharedNoMax:
		if cfg.HasProposal(ProposalThreads) {
			return Limit{}, werrors.Decode(werrors.KindSharedMemoryNoMax, r.Position(), "Type_Limit",
				"shared memory without a maximum is ill-formed")
		}
		return Limit{}, werrors.Decode(werrors.KindIntegerTooLarge, r.Position(), "Type_Limit",
			"limit kind 0x02 requires the threads proposal")
	case LimitKindShared:
		lim.Shared = true
		lim.Max = new(uint32)
	default:
		if kindByte == 0x80 || kindByte == 0x81 {
			return Limit{}, werrors.Decode(werrors.KindIntegerTooLong, r.Position(), "Type_Limit",
				"overlong LEB128 in limit kind byte")
		}
		return Limit{}, werrors.Decode(werrors.KindIntegerTooLarge, r.Position(), "Type_Limit",
			"unknown limit kind byte")
	}

	min, err := r.ReadU32()
	if err != nil {
		return Limit{}, wrapIOErr(err, r.Position(), "Type_Limit")
	}
	lim.Min = min

	if lim.Max != nil {
		max, err := r.ReadU32()
		if err != nil {
			return Limit{}, wrapIOErr(err, r.Position(), "Type_Limit")
		}
		*lim.Max = max
	}

	return lim, nil
}

// wrapIOErr maps a raw reader error (EOF, LEB128 too long, LEB128 value too
// large for a u32) to the taxonomy's I/O error kinds.
func wrapIOErr(err error, offset int, nodeAttr string) error {
	if errors.Is(err, binary.ErrValueTooLarge) {
		return werrors.Decode(werrors.KindIntegerTooLarge, offset, nodeAttr, err.Error())
	}
	if errors.Is(err, binary.ErrOverflow) {
		return werrors.Decode(werrors.KindIntegerTooLong, offset, nodeAttr, err.Error())
	}
	return werrors.Decode(werrors.KindUnexpectedEnd, offset, nodeAttr, err.Error())
}
