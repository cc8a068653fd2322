package loader

import (
	"fmt"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/ianlancetaylor/demangle"

	"github.com/nxtools/nxld/nxo"
	"github.com/nxtools/nxld/program"
)

// setupSymbolTable classifies every symbol record. Undefined named symbols
// are imports and are only counted here; the import synthesizer places them
// once the rest of the image exists.
func (b *Builder) setupSymbolTable() {
	syms := b.hdr.Symbols()
	for i := range syms {
		sym := &syms[i]
		if sym.IsUndefined() && sym.Name != "" {
			b.undefSymbolCount++
			continue
		}
		b.evaluateSymbol(sym, b.hdr.BaseAddress()+sym.Value, false)
	}
}

// evaluateSymbol creates the label, entry-point flag and placeholder
// function for one symbol record. Failures are per-symbol: the one symbol
// is skipped and the load continues.
func (b *Builder) evaluateSymbol(sym *nxo.SymbolRecord, addr uint64, fakeExternal bool) {
	if sym.IsSection() || sym.Name == "" {
		return
	}
	st := b.prog.Symbols

	isPrimary := sym.IsFunction() || sym.IsObject() || sym.Size != 0
	if strings.Contains(sym.Name, "@") {
		// never make a versioned symbol primary
		isPrimary = false
	} else if !isPrimary && (sym.IsGlobal() || sym.IsWeak()) {
		isPrimary = st.PrimaryAt(addr) == nil
	}

	if _, err := b.createSymbol(addr, sym.Name, isPrimary, sym.IsAbsolute()); err != nil {
		level.Warn(b.logger).Log("msg", "skipping symbol", "name", sym.Name, "err", err)
		return
	}

	// Weak symbols are treated as global so other programs may link to them.
	if (sym.IsGlobal() || sym.IsWeak()) && !fakeExternal {
		st.AddExternalEntryPoint(addr)
	}

	if !sym.IsFunction() || b.prog.Functions.FunctionAt(addr) != nil {
		return
	}
	f := b.createOneByteFunction("", addr, false)
	if f == nil {
		return
	}
	if p := st.PrimaryAt(addr); p != nil {
		f.SetName(p.Name, p.Source)
	}
	if sig := demangle.Filter(sym.Name); sig != sym.Name {
		f.Signature = sig
	}
	if fakeExternal && !f.IsThunk() {
		ext, err := b.prog.Externals.AddFunction(program.UnknownLibrary, sym.Name, program.SourceImported)
		if err != nil {
			level.Warn(b.logger).Log("msg", "external declaration failed", "name", sym.Name, "err", err)
			return
		}
		f.SetThunk(ext)
		if f.Source() != program.SourceDefault {
			f.RevertNameToDefault()
		}
	}
}

func (b *Builder) createSymbol(addr uint64, name string, isPrimary, pinAbsolute bool) (*program.Symbol, error) {
	sym, err := b.prog.Symbols.CreateLabel(addr, name, program.SourceImported)
	if err != nil {
		return nil, err
	}
	if isPrimary {
		b.prog.Symbols.SetPrimary(sym)
	}
	if pinAbsolute && !sym.Pinned {
		sym.Pinned = true
	}
	return sym, nil
}

// createOneByteFunction places a minimal function object at addr, reusing an
// existing one.
func (b *Builder) createOneByteFunction(name string, addr uint64, isEntry bool) *program.Function {
	f := b.prog.Functions.FunctionAt(addr)
	if f == nil {
		var err error
		f, err = b.prog.Functions.CreateFunction(name, addr, program.SourceImported)
		if err != nil {
			level.Warn(b.logger).Log("msg", "function creation failed",
				"addr", fmt.Sprintf("%#x", addr), "err", err)
			return nil
		}
	}
	if name != "" {
		if _, err := b.createSymbol(addr, name, true, false); err != nil {
			level.Warn(b.logger).Log("msg", "function label failed", "name", name, "err", err)
		}
	}
	if isEntry {
		b.prog.Symbols.AddExternalEntryPoint(addr)
	}
	return f
}
