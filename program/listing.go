package program

import (
	"bytes"
	"maps"
	"slices"
)

type DataType int

const (
	DataTerminatedString DataType = iota
)

// Data is one typed data unit. Length includes the NUL terminator for
// terminated strings; a string cut short by its block's end keeps the
// truncated length.
type Data struct {
	Addr   uint64
	Type   DataType
	Length int
	Value  string
}

type Listing struct {
	mem  *Memory
	data map[uint64]*Data
}

func newListing(mem *Memory) *Listing {
	return &Listing{mem: mem, data: make(map[uint64]*Data)}
}

func (l *Listing) DataAt(addr uint64) *Data {
	return l.data[addr]
}

// CreateTerminatedString materializes a NUL-terminated string unit at addr,
// reusing an existing equivalent unit.
func (l *Listing) CreateTerminatedString(addr uint64) (*Data, error) {
	if d, ok := l.data[addr]; ok {
		if d.Type == DataTerminatedString {
			return d, nil
		}
		return nil, ErrDataConflict
	}
	blk := l.mem.BlockAt(addr)
	if blk == nil || blk.Data == nil {
		return nil, ErrMemoryAccess
	}
	rest := blk.Data[addr-blk.Addr:]
	value := rest
	length := len(rest)
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		value = rest[:i]
		length = i + 1
	}
	d := &Data{Addr: addr, Type: DataTerminatedString, Length: length, Value: string(value)}
	l.data[addr] = d
	return d, nil
}

// Units returns all data units ordered by address.
func (l *Listing) Units() []*Data {
	out := make([]*Data, 0, len(l.data))
	for _, addr := range slices.Sorted(maps.Keys(l.data)) {
		out = append(out, l.data[addr])
	}
	return out
}
