package program

import (
	"fmt"
	"maps"
	"slices"
)

// Function is a placeholder function object: an entry address, an optional
// name, and an optional thunk to an external location. Signature carries a
// demangled form when one is known.
type Function struct {
	Entry     uint64
	Signature string
	name      string
	source    SourceType
	thunk     *ExternalFunction
}

// Name returns the assigned name, or the default generated one.
func (f *Function) Name() string {
	if f.name == "" {
		return fmt.Sprintf("FUN_%08x", f.Entry)
	}
	return f.name
}

func (f *Function) Source() SourceType {
	return f.source
}

func (f *Function) IsThunk() bool {
	return f.thunk != nil
}

func (f *Function) ThunkedFunction() *ExternalFunction {
	return f.thunk
}

func (f *Function) SetThunk(ext *ExternalFunction) {
	f.thunk = ext
}

// SetName assigns the function's name, typically adopted from the primary
// label at its entry.
func (f *Function) SetName(name string, source SourceType) {
	f.name = name
	f.source = source
}

// RevertNameToDefault drops a promoted name back to default provenance.
func (f *Function) RevertNameToDefault() {
	f.name = ""
	f.source = SourceDefault
}

type FunctionManager struct {
	funcs map[uint64]*Function
}

func newFunctionManager() *FunctionManager {
	return &FunctionManager{funcs: make(map[uint64]*Function)}
}

func (fm *FunctionManager) FunctionAt(addr uint64) *Function {
	return fm.funcs[addr]
}

func (fm *FunctionManager) CreateFunction(name string, addr uint64, source SourceType) (*Function, error) {
	if fm.funcs[addr] != nil {
		return nil, ErrFunctionExists
	}
	if name == "" {
		source = SourceDefault
	} else if !ValidName(name) {
		return nil, ErrInvalidName
	}
	f := &Function{Entry: addr, name: name, source: source}
	fm.funcs[addr] = f
	return f, nil
}

func (fm *FunctionManager) Count() int {
	return len(fm.funcs)
}

func (fm *FunctionManager) Functions(yield func(*Function) bool) {
	for _, addr := range slices.Sorted(maps.Keys(fm.funcs)) {
		if !yield(fm.funcs[addr]) {
			return
		}
	}
}
