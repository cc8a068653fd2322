package loader

import (
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/nxo"
)

// performRelocations patches the committed image, then gives the recovered
// PLT stubs the names of the imports their GOT slots resolve to.
func (b *Builder) performRelocations() error {
	base := b.hdr.BaseAddress()
	mem := b.prog.Memory
	b.gotNameLookup = make(map[uint64]string)

	for _, reloc := range b.hdr.Relocations() {
		target := base + reloc.Offset
		switch reloc.Type {
		case nxo.R_AARCH64_GLOB_DAT, nxo.R_AARCH64_JUMP_SLOT, nxo.R_AARCH64_ABS64:
			if reloc.Sym == nil {
				// Upstream tooling drops some symbol references; other
				// loaders skip these relocations too.
				continue
			}
			if err := mem.WriteUint64(target, reloc.Sym.Value+base+uint64(reloc.Addend)); err != nil {
				return errors.Wrapf(err, "apply relocation at %#x", target)
			}
			if reloc.Addend == 0 {
				// This GOT slot now holds exactly the symbol's address,
				// making it a name candidate for a PLT stub target.
				b.gotNameLookup[reloc.Offset] = reloc.Sym.Name
			}
		case nxo.R_AARCH64_RELATIVE:
			if err := mem.WriteUint64(target, base+uint64(reloc.Addend)); err != nil {
				return errors.Wrapf(err, "apply relocation at %#x", target)
			}
		default:
			level.Info(b.logger).Log("msg", "unhandled relocation type",
				"type", fmt.Sprintf("%#x", reloc.Type))
		}
	}

	for _, entry := range b.pltEntries {
		name, ok := b.gotNameLookup[entry.target]
		if !ok {
			continue
		}
		if _, err := b.createSymbol(base+entry.off, name, false, false); err != nil {
			level.Warn(b.logger).Log("msg", "plt stub label failed", "name", name, "err", err)
		}
	}
	return nil
}
