package loader

import (
	"context"

	"github.com/go-kit/log/level"

	"github.com/nxtools/nxld/program"
)

// Imports get one-byte placeholder slots.
const undefEntrySize = 1

// setupImports declares the needed libraries and gives every undefined
// symbol a distinct address inside a synthetic EXTERNAL block appended past
// everything else. Cancellation is honored only at this stage boundary;
// earlier stages always run to completion.
func (b *Builder) setupImports(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.processImports()

	if b.undefSymbolCount == 0 {
		return nil
	}

	lastAddr := b.hdr.BaseAddress()
	if last := b.prog.Memory.LastAddress(); last > lastAddr {
		lastAddr = last
	}
	// One past the page boundary so the block does not land on an "end"
	// label at the edge of the previous region.
	addr := program.Align(lastAddr, 0x1000) + undefEntrySize

	block, err := b.prog.Memory.CreateUninitializedBlock("EXTERNAL", addr,
		uint64(b.undefSymbolCount)*undefEntrySize,
		program.PROT_READ|program.PROT_WRITE)
	if err != nil {
		level.Error(b.logger).Log("msg", "error creating external memory block", "err", err)
		return nil
	}
	block.SourceName = "NX Loader"
	block.Comment = "NOTE: This block is artificial and is used to make relocations work correctly"

	syms := b.hdr.Symbols()
	for i := range syms {
		sym := &syms[i]
		if !sym.IsUndefined() || sym.Name == "" {
			continue
		}
		// Give the symbol a real value pointing into the EXTERNAL block.
		sym.Value = addr
		b.evaluateSymbol(sym, addr, true)
		addr += undefEntrySize
	}
	return nil
}

func (b *Builder) processImports() {
	for _, lib := range b.hdr.NeededLibraries() {
		if err := b.prog.Externals.SetExternalPath(lib); err != nil {
			level.Error(b.logger).Log("msg", "bad library name", "name", lib)
		}
	}
}
