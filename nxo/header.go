package nxo

import (
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/encoding"
)

// Header is the decoded view of one image: segment layout, MOD0, dynamic
// table, symbol and relocation tables. All offsets are flat memory offsets;
// addresses are formed by adding the image base.
type Header struct {
	adapter Adapter
	base    uint64
	reader  *encoding.Reader

	mod0       *MOD0
	dyn        *DynamicTable
	strtabOff  uint64
	strtabSize uint64
	symtabOff  uint64
	symtabSize uint64

	symbols   []SymbolRecord
	dynRelocs []RelocationRecord
	pltRelocs []RelocationRecord
	libraries []string
}

// ParseHeader decodes the dynamic metadata reachable through the image's
// MOD0 record. A missing MOD0 is not an error: the header then carries only
// the adapter's segment layout.
func ParseHeader(adapter Adapter, base uint64) (*Header, error) {
	h := &Header{
		adapter: adapter,
		base:    base,
		reader:  encoding.NewReader(adapter.MemoryProvider()),
	}
	h.mod0 = adapter.MOD0()
	if h.mod0 == nil {
		return h, nil
	}
	var err error
	h.dyn, err = ParseDynamicTable(h.reader, h.mod0.DynamicOffset)
	if err != nil {
		return nil, errors.Wrap(err, "parse dynamic table")
	}
	if err := h.parseSymbols(); err != nil {
		return nil, err
	}
	if err := h.parseRelocations(); err != nil {
		return nil, err
	}
	h.parseLibraries()
	return h, nil
}

func (h *Header) Adapter() Adapter {
	return h.adapter
}

func (h *Header) BaseAddress() uint64 {
	return h.base
}

func (h *Header) MOD0() *MOD0 {
	return h.mod0
}

func (h *Header) DynamicTable() *DynamicTable {
	return h.dyn
}

func (h *Header) Reader() *encoding.Reader {
	return h.reader
}

// StringTable returns the memory-offset range of the dynamic string table.
func (h *Header) StringTable() (off, size uint64) {
	return h.strtabOff, h.strtabSize
}

// SymbolTable returns the memory-offset range of the dynamic symbol table.
func (h *Header) SymbolTable() (off, size uint64) {
	return h.symtabOff, h.symtabSize
}

// Symbols returns the decoded symbol records in table order. The slice is
// shared: the import synthesizer rewrites Value fields in place.
func (h *Header) Symbols() []SymbolRecord {
	return h.symbols
}

// Relocations returns every dynamic relocation, the PLT subset last.
func (h *Header) Relocations() []RelocationRecord {
	out := make([]RelocationRecord, 0, len(h.dynRelocs)+len(h.pltRelocs))
	out = append(out, h.dynRelocs...)
	return append(out, h.pltRelocs...)
}

// PltRelocations returns the DT_JMPREL subset in table order.
func (h *Header) PltRelocations() []RelocationRecord {
	return h.pltRelocs
}

// NeededLibraries returns the DT_NEEDED names in table order.
func (h *Header) NeededLibraries() []string {
	return h.libraries
}

func (h *Header) parseSymbols() error {
	symtab, ok := h.dyn.Value(DT_SYMTAB)
	if !ok {
		return nil
	}
	strtab, _ := h.dyn.Value(DT_STRTAB)
	strsz, _ := h.dyn.Value(DT_STRSZ)
	syment, ok := h.dyn.Value(DT_SYMENT)
	if !ok || syment == 0 {
		syment = symbolEntrySize
	}
	h.strtabOff, h.strtabSize = strtab, strsz

	// No header records the symbol count. DT_HASH carries it as nchain;
	// otherwise fall back to the usual strtab-follows-symtab layout.
	var count uint64
	if hashOff, ok := h.dyn.Value(DT_HASH); ok {
		nchain, err := h.reader.Uint32(hashOff + 4)
		if err != nil {
			return errors.Wrap(err, "read DT_HASH nchain")
		}
		count = uint64(nchain)
	} else if strtab > symtab {
		count = (strtab - symtab) / syment
	}

	h.symbols = make([]SymbolRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		var raw elfSym
		if err := h.reader.ReadAt(symtab+i*syment, &raw); err != nil {
			return errors.Wrapf(err, "read symbol %d", i)
		}
		var name string
		if raw.Name != 0 && uint64(raw.Name) < strsz {
			var err error
			name, err = h.reader.CString(strtab+uint64(raw.Name), strsz-uint64(raw.Name))
			if err != nil {
				return errors.Wrapf(err, "read symbol %d name", i)
			}
		}
		h.symbols = append(h.symbols, SymbolRecord{
			Name:  name,
			Value: raw.Value,
			Size:  raw.Size,
			Info:  raw.Info,
			Shndx: raw.Shndx,
		})
	}
	h.symtabOff, h.symtabSize = symtab, count*syment
	return nil
}

func (h *Header) parseRelocations() error {
	if off, ok := h.dyn.Value(DT_RELA); ok {
		size, _ := h.dyn.Value(DT_RELASZ)
		recs, err := h.parseRela(off, size)
		if err != nil {
			return errors.Wrap(err, "parse .rela.dyn")
		}
		h.dynRelocs = append(h.dynRelocs, recs...)
	}
	if off, ok := h.dyn.Value(DT_REL); ok {
		size, _ := h.dyn.Value(DT_RELSZ)
		recs, err := h.parseRel(off, size)
		if err != nil {
			return errors.Wrap(err, "parse .rel.dyn")
		}
		h.dynRelocs = append(h.dynRelocs, recs...)
	}
	if off, ok := h.dyn.Value(DT_JMPREL); ok {
		size, _ := h.dyn.Value(DT_PLTRELSZ)
		var err error
		if relKind, ok := h.dyn.Value(DT_PLTREL); ok && relKind == DT_REL {
			h.pltRelocs, err = h.parseRel(off, size)
		} else {
			h.pltRelocs, err = h.parseRela(off, size)
		}
		if err != nil {
			return errors.Wrap(err, "parse .rela.plt")
		}
	}
	return nil
}

func (h *Header) parseRela(off, size uint64) ([]RelocationRecord, error) {
	count := size / relaEntrySize
	recs := make([]RelocationRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		var raw elfRela
		if err := h.reader.ReadAt(off+i*relaEntrySize, &raw); err != nil {
			return nil, errors.Wrapf(err, "read relocation %d", i)
		}
		recs = append(recs, RelocationRecord{
			Offset: raw.Off,
			Type:   uint32(raw.Info),
			Sym:    h.symbolAt(raw.Info >> 32),
			Addend: raw.Addend,
		})
	}
	return recs, nil
}

func (h *Header) parseRel(off, size uint64) ([]RelocationRecord, error) {
	count := size / relEntrySize
	recs := make([]RelocationRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		var raw elfRel
		if err := h.reader.ReadAt(off+i*relEntrySize, &raw); err != nil {
			return nil, errors.Wrapf(err, "read relocation %d", i)
		}
		recs = append(recs, RelocationRecord{
			Offset: raw.Off,
			Type:   uint32(raw.Info),
			Sym:    h.symbolAt(raw.Info >> 32),
		})
	}
	return recs, nil
}

func (h *Header) symbolAt(index uint64) *SymbolRecord {
	if index == 0 || index >= uint64(len(h.symbols)) {
		return nil
	}
	return &h.symbols[index]
}

func (h *Header) parseLibraries() {
	for _, v := range h.dyn.Values(DT_NEEDED) {
		if v >= h.strtabSize {
			continue
		}
		name, err := h.reader.CString(h.strtabOff+v, h.strtabSize-v)
		if err != nil || name == "" {
			continue
		}
		h.libraries = append(h.libraries, name)
	}
}
