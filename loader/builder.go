// Package loader reconstructs a program image from a headerless Switch
// executable: it lays out segments, carves the dynamic-derived sections,
// resolves and names symbols, recovers the PLT and GOT by instruction
// pattern, applies relocations, and synthesizes placements for imports.
//
// A failed load leaves partial progress in place. That is deliberate: the
// consumer is an analyst who can re-run or finish annotating by hand, so no
// stage rolls back.
package loader

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/nxo"
	"github.com/nxtools/nxld/program"
)

// ImageBase is where every image is rebased.
const ImageBase uint64 = 0x7100000000

type pltEntry struct {
	off    uint64 // stub image offset
	target uint64 // GOT slot image offset the stub loads through
}

// Builder drives one load. Stages run strictly in sequence; the Builder is
// the program's only writer for the duration.
type Builder struct {
	logger log.Logger
	hdr    *nxo.Header
	prog   *program.Program
	sm     *sectionManager

	pltEntries       []pltEntry
	gotNameLookup    map[uint64]string
	undefSymbolCount int
}

func New(logger log.Logger, hdr *nxo.Header, prog *program.Program) *Builder {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Builder{
		logger: logger,
		hdr:    hdr,
		prog:   prog,
		sm: newSectionManager(logger, prog.Memory,
			hdr.Adapter().MemoryProvider(), hdr.BaseAddress()),
	}
}

// Load runs the pipeline. ctx is consulted once, at the import stage
// boundary; a load that has started relocating runs to completion.
func (b *Builder) Load(ctx context.Context) error {
	adapter := b.hdr.Adapter()

	if fp, err := nxo.Fingerprint(adapter.MemoryProvider()); err == nil {
		level.Info(b.logger).Log("msg", "loading image",
			"fingerprint", fmt.Sprintf("%016x", fp),
			"base", fmt.Sprintf("%#x", b.hdr.BaseAddress()))
	}

	text := adapter.Section(nxo.SectionText)
	rodata := adapter.Section(nxo.SectionRodata)
	data := adapter.Section(nxo.SectionData)
	b.sm.AddDeferredSection(".text", text.Offset, text.Size, true, false, true)
	b.sm.AddDeferredSection(".rodata", rodata.Offset, rodata.Size, true, false, false)
	b.sm.AddDeferredSection(".data", data.Offset, data.Size, true, true, false)

	mod0 := b.hdr.MOD0()
	if mod0 == nil {
		// Without MOD0 there is no dynamic section to find; map what we have.
		level.Warn(b.logger).Log("msg", "no MOD0 record, loading segments only")
		return b.sm.FinalizeSections()
	}

	dyn := b.hdr.DynamicTable()
	if err := b.sm.AddSection(".dynamic", mod0.DynamicOffset, dyn.Length(), true, true, false); err != nil {
		return err
	}
	for _, blk := range []struct {
		name            string
		offTag, sizeTag int64
	}{
		{".dynstr", nxo.DT_STRTAB, nxo.DT_STRSZ},
		{".init_array", nxo.DT_INIT_ARRAY, nxo.DT_INIT_ARRAYSZ},
		{".fini_array", nxo.DT_FINI_ARRAY, nxo.DT_FINI_ARRAYSZ},
		{".rela.dyn", nxo.DT_RELA, nxo.DT_RELASZ},
		{".rel.dyn", nxo.DT_REL, nxo.DT_RELSZ},
		{".rela.plt", nxo.DT_JMPREL, nxo.DT_PLTRELSZ},
	} {
		if err := b.addDynSection(blk.name, blk.offTag, blk.sizeTag); err != nil {
			return err
		}
	}
	if symOff, symSize := b.hdr.SymbolTable(); symSize > 0 {
		if err := b.sm.AddSectionInheritPerms(".dynsym", symOff, symSize); err != nil {
			return err
		}
	}

	if err := b.setupStringTable(); err != nil {
		return err
	}
	b.setupSymbolTable()
	if err := b.setupRelocations(); err != nil {
		return err
	}
	if err := b.sm.FinalizeSections(); err != nil {
		return err
	}
	if err := b.performRelocations(); err != nil {
		return err
	}
	if err := b.setupImports(ctx); err != nil {
		return err
	}

	if mod0.BssSize > 0 {
		_, err := b.prog.Memory.CreateUninitializedBlock(".bss",
			b.hdr.BaseAddress()+mod0.BssStart, mod0.BssSize,
			program.PROT_READ|program.PROT_WRITE)
		if err != nil {
			return errors.Wrap(err, "create .bss")
		}
	}
	return nil
}

// addDynSection carves one dynamic-derived section when both its offset and
// size tags are present. Absent tags are a normal outcome.
func (b *Builder) addDynSection(name string, offTag, sizeTag int64) error {
	dyn := b.hdr.DynamicTable()
	off, ok := dyn.Value(offTag)
	if !ok {
		return nil
	}
	size, ok := dyn.Value(sizeTag)
	if !ok || size == 0 {
		return nil
	}
	level.Debug(b.logger).Log("msg", "created dyn block", "name", name,
		"offset", fmt.Sprintf("%#x", off), "size", fmt.Sprintf("%#x", size))
	return b.sm.AddSection(name, off, size, true, false, false)
}
