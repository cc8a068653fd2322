package nxo

// AArch64 dynamic relocation kinds handled by the engine. Anything else is
// reported and skipped.
const (
	R_AARCH64_ABS64     = 257
	R_AARCH64_GLOB_DAT  = 1025
	R_AARCH64_JUMP_SLOT = 1026
	R_AARCH64_RELATIVE  = 1027
)

const (
	relaEntrySize = 24
	relEntrySize  = 16
)

type elfRela struct {
	Off    uint64
	Info   uint64
	Addend int64
}

type elfRel struct {
	Off  uint64
	Info uint64
}

// RelocationRecord is one decoded dynamic relocation. Sym is nil when the
// record references symbol index 0 or an index outside the symbol table.
type RelocationRecord struct {
	Offset uint64
	Type   uint32
	Sym    *SymbolRecord
	Addend int64
}
