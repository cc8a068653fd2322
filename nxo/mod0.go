package nxo

import (
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/encoding"
)

const mod0Magic = 0x30444F4D // "MOD0"

type mod0Raw struct {
	Magic           uint32
	DynamicOff      int32
	BssStartOff     int32
	BssEndOff       int32
	EhFrameHdrStart int32
	EhFrameHdrEnd   int32
	ModuleObjectOff int32
}

// MOD0 substitutes for the absent program/section header table: it carries
// the dynamic table offset and BSS bounds. All offsets are resolved into
// absolute memory offsets.
type MOD0 struct {
	Offset          uint64
	DynamicOffset   uint64
	BssStart        uint64
	BssSize         uint64
	EhFrameHdrStart uint64
	EhFrameHdrEnd   uint64
	ModuleObject    uint64
}

// ParseMOD0 follows the u32 pointer at text+4 to the MOD0 record.
func ParseMOD0(r *encoding.Reader, textOffset uint64) (*MOD0, error) {
	ptr, err := r.Uint32(textOffset + 4)
	if err != nil {
		return nil, errors.Wrap(err, "read MOD0 pointer")
	}
	base := uint64(ptr)
	var raw mod0Raw
	if err := r.ReadAt(base, &raw); err != nil {
		return nil, errors.Wrap(err, "read MOD0 record")
	}
	if raw.Magic != mod0Magic {
		return nil, errors.Errorf("bad MOD0 magic %#x", raw.Magic)
	}
	return &MOD0{
		Offset:          base,
		DynamicOffset:   rel(base, raw.DynamicOff),
		BssStart:        rel(base, raw.BssStartOff),
		BssSize:         rel(base, raw.BssEndOff) - rel(base, raw.BssStartOff),
		EhFrameHdrStart: rel(base, raw.EhFrameHdrStart),
		EhFrameHdrEnd:   rel(base, raw.EhFrameHdrEnd),
		ModuleObject:    rel(base, raw.ModuleObjectOff),
	}, nil
}

func rel(base uint64, off int32) uint64 {
	return uint64(int64(base) + int64(off))
}
