package nxo

import (
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/encoding"
)

// Dynamic table tags used by the engine.
const (
	DT_NULL         = 0
	DT_NEEDED       = 1
	DT_PLTRELSZ     = 2
	DT_PLTGOT       = 3
	DT_HASH         = 4
	DT_STRTAB       = 5
	DT_SYMTAB       = 6
	DT_RELA         = 7
	DT_RELASZ       = 8
	DT_RELAENT      = 9
	DT_STRSZ        = 10
	DT_SYMENT       = 11
	DT_REL          = 17
	DT_RELSZ        = 18
	DT_PLTREL       = 20
	DT_JMPREL       = 23
	DT_INIT_ARRAY   = 25
	DT_FINI_ARRAY   = 26
	DT_INIT_ARRAYSZ = 27
	DT_FINI_ARRAYSZ = 28
)

const dynamicEntrySize = 16

// Runaway guard for images whose dynamic region lost its terminator.
const maxDynamicEntries = 4096

type DynamicEntry struct {
	Tag   int64
	Value uint64
}

// DynamicTable is a read-only view over the decoded dynamic entries.
// Querying an absent tag is a normal outcome, never an error.
type DynamicTable struct {
	entries []DynamicEntry
}

// ParseDynamicTable reads entries at off until the DT_NULL terminator.
func ParseDynamicTable(r *encoding.Reader, off uint64) (*DynamicTable, error) {
	var entries []DynamicEntry
	for i := 0; ; i++ {
		if i >= maxDynamicEntries {
			return nil, errors.New("dynamic table missing DT_NULL terminator")
		}
		var e DynamicEntry
		if err := r.ReadAt(off+uint64(i)*dynamicEntrySize, &e); err != nil {
			return nil, errors.Wrapf(err, "read dynamic entry %d", i)
		}
		if e.Tag == DT_NULL {
			break
		}
		entries = append(entries, e)
	}
	return &DynamicTable{entries: entries}, nil
}

// Length is the byte length of the table including the DT_NULL terminator.
func (t *DynamicTable) Length() uint64 {
	return uint64(len(t.entries)+1) * dynamicEntrySize
}

func (t *DynamicTable) Contains(tag int64) bool {
	_, ok := t.Value(tag)
	return ok
}

// Value returns the first entry with the given tag.
func (t *DynamicTable) Value(tag int64) (uint64, bool) {
	for _, e := range t.entries {
		if e.Tag == tag {
			return e.Value, true
		}
	}
	return 0, false
}

// Values returns every entry value with the given tag, in table order.
// DT_NEEDED is the one tag that legitimately repeats.
func (t *DynamicTable) Values(tag int64) []uint64 {
	var vals []uint64
	for _, e := range t.entries {
		if e.Tag == tag {
			vals = append(vals, e.Value)
		}
	}
	return vals
}

func (t *DynamicTable) Entries() []DynamicEntry {
	return t.entries
}
