package program

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

type SourceType int

const (
	SourceDefault SourceType = iota
	SourceImported
	SourceAnalysis
)

type Symbol struct {
	Name    string
	Addr    uint64
	Source  SourceType
	Primary bool
	Pinned  bool
}

// SymbolTable maps addresses to their labels. At most one label per address
// is primary; the first label created at an address starts out primary.
type SymbolTable struct {
	byAddr  map[uint64][]*Symbol
	entries map[uint64]struct{}
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		byAddr:  make(map[uint64][]*Symbol),
		entries: make(map[uint64]struct{}),
	}
}

// CreateLabel adds a label at addr. An identical existing label is returned
// instead of duplicated. Names must be non-empty with no whitespace or
// control characters.
func (st *SymbolTable) CreateLabel(addr uint64, name string, source SourceType) (*Symbol, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	for _, s := range st.byAddr[addr] {
		if s.Name == name && s.Source == source {
			return s, nil
		}
	}
	sym := &Symbol{Name: name, Addr: addr, Source: source}
	if st.PrimaryAt(addr) == nil {
		sym.Primary = true
	}
	st.byAddr[addr] = append(st.byAddr[addr], sym)
	return sym, nil
}

func (st *SymbolTable) At(addr uint64) []*Symbol {
	return st.byAddr[addr]
}

func (st *SymbolTable) PrimaryAt(addr uint64) *Symbol {
	for _, s := range st.byAddr[addr] {
		if s.Primary {
			return s
		}
	}
	return nil
}

// SetPrimary promotes sym under the label preference rules and reports
// whether sym is primary afterwards:
//
//   - versioned names (containing "@") are never promoted;
//   - markup names (leading "$") are never promoted;
//   - a name starting with a non-letter never displaces a non-default
//     primary starting with a letter.
func (st *SymbolTable) SetPrimary(sym *Symbol) bool {
	if sym == nil {
		return false
	}
	if sym.Primary {
		return true
	}
	if strings.Contains(sym.Name, "@") {
		return false
	}
	if strings.HasPrefix(sym.Name, "$") {
		return false
	}
	existing := st.PrimaryAt(sym.Addr)
	if !startsWithLetter(sym.Name) && existing != nil &&
		existing.Source != SourceDefault && startsWithLetter(existing.Name) {
		return false
	}
	if existing != nil {
		existing.Primary = false
	}
	sym.Primary = true
	return true
}

// RemoveLabel deletes sym. If sym was primary the oldest remaining label at
// the address takes over.
func (st *SymbolTable) RemoveLabel(sym *Symbol) {
	syms := st.byAddr[sym.Addr]
	i := slices.Index(syms, sym)
	if i < 0 {
		return
	}
	syms = slices.Delete(syms, i, i+1)
	if len(syms) == 0 {
		delete(st.byAddr, sym.Addr)
		return
	}
	st.byAddr[sym.Addr] = syms
	if sym.Primary {
		syms[0].Primary = true
	}
}

func (st *SymbolTable) Symbols(yield func(*Symbol) bool) {
	for _, syms := range st.byAddr {
		for _, s := range syms {
			if !yield(s) {
				return
			}
		}
	}
}

func (st *SymbolTable) AddExternalEntryPoint(addr uint64) {
	st.entries[addr] = struct{}{}
}

func (st *SymbolTable) IsExternalEntryPoint(addr uint64) bool {
	_, ok := st.entries[addr]
	return ok
}

func (st *SymbolTable) EntryPoints() []uint64 {
	out := make([]uint64, 0, len(st.entries))
	for addr := range st.entries {
		out = append(out, addr)
	}
	slices.Sort(out)
	return out
}

func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == utf8.RuneError {
			return false
		}
	}
	return true
}

func startsWithLetter(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsLetter(r)
}
