package loader

import (
	"github.com/pkg/errors"
)

// setupStringTable materializes the dynamic string table as NUL-terminated
// string units, one per run. Re-running over an already-annotated range
// reuses the existing units.
func (b *Builder) setupStringTable() error {
	off, size := b.hdr.StringTable()
	if size == 0 {
		return nil
	}
	addr := b.hdr.BaseAddress() + off
	end := addr + size - 1
	for addr < end {
		d, err := b.prog.Listing.CreateTerminatedString(addr)
		if err != nil {
			return errors.Wrapf(err, "materialize string at %#x", addr)
		}
		addr += uint64(d.Length)
	}
	return nil
}
