package nxo

// ELF st_info type and binding values, and the section indexes the engine
// cares about.
const (
	STT_NOTYPE  = 0
	STT_OBJECT  = 1
	STT_FUNC    = 2
	STT_SECTION = 3

	STB_LOCAL  = 0
	STB_GLOBAL = 1
	STB_WEAK   = 2

	SHN_UNDEF = 0
	SHN_ABS   = 0xFFF1
)

const symbolEntrySize = 24

type elfSym struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx uint16
	Value uint64
	Size  uint64
}

// SymbolRecord is one dynamic symbol table entry with its name already
// resolved out of the string table. Value is rewritten by the import
// synthesizer for undefined symbols.
type SymbolRecord struct {
	Name  string
	Value uint64
	Size  uint64
	Info  uint8
	Shndx uint16
}

func (s *SymbolRecord) Type() uint8 {
	return s.Info & 0xF
}

func (s *SymbolRecord) Binding() uint8 {
	return s.Info >> 4
}

func (s *SymbolRecord) IsSection() bool {
	return s.Type() == STT_SECTION
}

func (s *SymbolRecord) IsFunction() bool {
	return s.Type() == STT_FUNC
}

func (s *SymbolRecord) IsObject() bool {
	return s.Type() == STT_OBJECT
}

func (s *SymbolRecord) IsGlobal() bool {
	return s.Binding() == STB_GLOBAL
}

func (s *SymbolRecord) IsWeak() bool {
	return s.Binding() == STB_WEAK
}

func (s *SymbolRecord) IsAbsolute() bool {
	return s.Shndx == SHN_ABS
}

// IsUndefined reports a symbol defined in no section. Together with a
// non-empty name this marks an import candidate.
func (s *SymbolRecord) IsUndefined() bool {
	return s.Shndx == SHN_UNDEF
}
