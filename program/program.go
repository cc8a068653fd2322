// Package program models the target of a load: one address space of named,
// permissioned memory blocks, a symbol table with a single primary label per
// address, placeholder functions, external library declarations, and typed
// data units. The loading engine is its only writer for the duration of a
// load; nothing here rolls back on failure.
package program

type Program struct {
	ImageBase uint64
	Memory    *Memory
	Symbols   *SymbolTable
	Functions *FunctionManager
	Externals *ExternalManager
	Listing   *Listing
}

func New(imageBase uint64) *Program {
	mem := &Memory{}
	return &Program{
		ImageBase: imageBase,
		Memory:    mem,
		Symbols:   newSymbolTable(),
		Functions: newFunctionManager(),
		Externals: newExternalManager(),
		Listing:   newListing(mem),
	}
}
