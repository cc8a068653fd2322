package program

import (
	"encoding/binary"
	"slices"
)

type Prot int

const (
	PROT_NONE Prot = 0
	PROT_READ Prot = 1 << (iota - 1)
	PROT_WRITE
	PROT_EXEC

	PROT_ALL = PROT_READ | PROT_WRITE | PROT_EXEC
)

func (p Prot) String() string {
	b := [3]byte{'-', '-', '-'}
	if p&PROT_READ != 0 {
		b[0] = 'r'
	}
	if p&PROT_WRITE != 0 {
		b[1] = 'w'
	}
	if p&PROT_EXEC != 0 {
		b[2] = 'x'
	}
	return string(b[:])
}

// Block is one committed region of the address space. Data is nil for
// uninitialized blocks.
type Block struct {
	Name       string
	Addr       uint64
	Size       uint64
	Prot       Prot
	Data       []byte
	SourceName string
	Comment    string
}

func (b *Block) End() uint64 {
	return b.Addr + b.Size - 1
}

func (b *Block) Contains(addr uint64) bool {
	return addr >= b.Addr && addr <= b.End()
}

// Memory is the single address space a load populates. Committed blocks are
// never removed: a failed load leaves its partial progress in place.
type Memory struct {
	blocks []*Block
}

// CreateInitializedBlock commits data at addr. Placement that would wrap the
// address space fails with ErrAddressOverflow, placement intersecting an
// existing block with ErrMemoryConflict.
func (m *Memory) CreateInitializedBlock(name string, addr uint64, data []byte, prot Prot) (*Block, error) {
	return m.createBlock(name, addr, uint64(len(data)), data, prot)
}

func (m *Memory) CreateUninitializedBlock(name string, addr, size uint64, prot Prot) (*Block, error) {
	return m.createBlock(name, addr, size, nil, prot)
}

func (m *Memory) createBlock(name string, addr, size uint64, data []byte, prot Prot) (*Block, error) {
	if size == 0 || addr+size-1 < addr {
		return nil, ErrAddressOverflow
	}
	end := addr + size - 1
	for _, b := range m.blocks {
		if addr <= b.End() && b.Addr <= end {
			return nil, ErrMemoryConflict
		}
	}
	block := &Block{Name: name, Addr: addr, Size: size, Prot: prot, Data: data}
	m.blocks = append(m.blocks, block)
	return block, nil
}

// Blocks returns the committed blocks ordered by ascending address,
// whatever order they were committed in.
func (m *Memory) Blocks() []*Block {
	slices.SortFunc(m.blocks, func(a, b *Block) int {
		switch {
		case a.Addr < b.Addr:
			return -1
		case a.Addr > b.Addr:
			return 1
		}
		return 0
	})
	return m.blocks
}

func (m *Memory) BlockAt(addr uint64) *Block {
	for _, b := range m.blocks {
		if b.Contains(addr) {
			return b
		}
	}
	return nil
}

// LastAddress is the highest committed address, or 0 with no blocks.
func (m *Memory) LastAddress() uint64 {
	var last uint64
	for _, b := range m.blocks {
		if end := b.End(); end > last {
			last = end
		}
	}
	return last
}

func (m *Memory) slice(addr, size uint64) ([]byte, error) {
	b := m.BlockAt(addr)
	if b == nil || b.Data == nil || addr+size-1 > b.End() {
		return nil, ErrMemoryAccess
	}
	off := addr - b.Addr
	return b.Data[off : off+size], nil
}

func (m *Memory) ReadAt(addr uint64, p []byte) error {
	src, err := m.slice(addr, uint64(len(p)))
	if err != nil {
		return err
	}
	copy(p, src)
	return nil
}

func (m *Memory) ReadUint64(addr uint64) (uint64, error) {
	b, err := m.slice(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *Memory) WriteUint64(addr, value uint64) error {
	b, err := m.slice(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
