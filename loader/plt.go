package loader

import (
	"encoding/binary"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/arm64"
	"github.com/nxtools/nxld/nxo"
)

// setupRelocations recovers the PLT and GOT bounds, which no header
// describes. The GOT span is seeded from the PLT relocation offsets, the PLT
// from a scan of the text section for the stub idiom. Best effort: an image
// without the idiom simply ends up without .plt/.got sections.
func (b *Builder) setupRelocations() error {
	pltRelocs := b.hdr.PltRelocations()
	if len(pltRelocs) == 0 {
		level.Info(b.logger).Log("msg", "no plt relocations found")
		return nil
	}

	pltGotStart := pltRelocs[0].Offset
	pltGotEnd := pltRelocs[len(pltRelocs)-1].Offset + 8

	dyn := b.hdr.DynamicTable()
	if pltGotOff, ok := dyn.Value(nxo.DT_PLTGOT); ok {
		if err := b.sm.AddSection(".got.plt", pltGotOff, pltGotEnd-pltGotStart, true, false, false); err != nil {
			return err
		}
	}

	if err := b.scanPltStubs(pltGotStart, pltGotEnd); err != nil {
		return err
	}
	if len(b.pltEntries) == 0 {
		level.Info(b.logger).Log("msg", "no plt stubs recovered")
	} else {
		pltStart := b.pltEntries[0].off
		pltEnd := b.pltEntries[len(b.pltEntries)-1].off + 0x10
		if err := b.sm.AddSection(".plt", pltStart, pltEnd-pltStart, true, false, false); err != nil {
			return err
		}
	}

	return b.extendGot(pltGotEnd)
}

// scanPltStubs walks the text section for the trailing BR of the stub idiom
// and records every aligned candidate whose decoded GOT slot falls inside
// the seeded span.
func (b *Builder) scanPltStubs(gotStart, gotEnd uint64) error {
	text := b.hdr.Adapter().Section(nxo.SectionText)
	code, err := b.hdr.Reader().Bytes(text.Offset, text.Size)
	if err != nil {
		return errors.Wrap(err, "read text section")
	}

	// A stub needs its three leading instructions in front of the BR.
	last := 12
	for {
		pos := -1
		for i := last; i+4 <= len(code); i++ {
			if binary.LittleEndian.Uint32(code[i:]) == arm64.BrOpcode {
				pos = i
				break
			}
		}
		if pos == -1 {
			break
		}
		last = pos + 1
		if pos%4 != 0 {
			continue
		}
		off := pos - 12
		a := binary.LittleEndian.Uint32(code[off:])
		ldr := binary.LittleEndian.Uint32(code[off+4:])
		add := binary.LittleEndian.Uint32(code[off+8:])
		br := binary.LittleEndian.Uint32(code[off+12:])
		stubOff := text.Offset + uint64(off)
		target, ok := arm64.MatchPltStub(a, ldr, add, br, stubOff)
		if ok && gotStart <= target && target < gotEnd {
			b.pltEntries = append(b.pltEntries, pltEntry{off: stubOff, target: target})
		}
	}
	return nil
}

// extendGot grows the GOT past the PLT-owned span while relocations keep
// landing on consecutive 8-byte slots below the .init_array start. Without
// DT_INIT_ARRAY there is no bound to trust and no extension is attempted.
func (b *Builder) extendGot(pltGotEnd uint64) error {
	initArray, ok := b.hdr.DynamicTable().Value(nxo.DT_INIT_ARRAY)
	if !ok {
		return nil
	}
	relocs := b.hdr.Relocations()
	good := false
	gotEnd := pltGotEnd + 8
	for gotEnd < initArray {
		found := false
		for i := range relocs {
			if relocs[i].Offset == gotEnd {
				found = true
				break
			}
		}
		if !found {
			break
		}
		good = true
		gotEnd += 8
	}
	if !good {
		return nil
	}
	return b.sm.AddSection(".got", pltGotEnd, gotEnd-pltGotEnd, true, false, false)
}
