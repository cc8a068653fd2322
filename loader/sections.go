package loader

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/nxo"
	"github.com/nxtools/nxld/program"
)

type pendingSection struct {
	name   string
	offset uint64
	length uint64
	prot   program.Prot
}

// sectionManager registers named sections in file-offset space and commits
// them as memory blocks at base+offset. Deferred sections wait until
// FinalizeSections and are carved around everything committed before them;
// this is how the covering text/rodata/data segments coexist with the
// dynamic-derived and PLT/GOT sections discovered inside their ranges.
type sectionManager struct {
	logger   log.Logger
	mem      *program.Memory
	provider nxo.ByteProvider
	base     uint64
	deferred []pendingSection
	lastProt program.Prot
}

func newSectionManager(logger log.Logger, mem *program.Memory, provider nxo.ByteProvider, base uint64) *sectionManager {
	return &sectionManager{
		logger:   logger,
		mem:      mem,
		provider: provider,
		base:     base,
	}
}

func makeProt(read, write, execute bool) program.Prot {
	var p program.Prot
	if read {
		p |= program.PROT_READ
	}
	if write {
		p |= program.PROT_WRITE
	}
	if execute {
		p |= program.PROT_EXEC
	}
	return p
}

func (sm *sectionManager) AddSection(name string, offset, length uint64, read, write, execute bool) error {
	sm.lastProt = makeProt(read, write, execute)
	return sm.commit(name, offset, length, sm.lastProt)
}

// AddSectionInheritPerms commits a section with the permission triple of the
// most recently added section.
func (sm *sectionManager) AddSectionInheritPerms(name string, offset, length uint64) error {
	return sm.commit(name, offset, length, sm.lastProt)
}

// AddDeferredSection registers a section whose commit waits until
// FinalizeSections.
func (sm *sectionManager) AddDeferredSection(name string, offset, length uint64, read, write, execute bool) {
	sm.lastProt = makeProt(read, write, execute)
	sm.deferred = append(sm.deferred, pendingSection{
		name:   name,
		offset: offset,
		length: length,
		prot:   sm.lastProt,
	})
}

func (sm *sectionManager) commit(name string, offset, length uint64, prot program.Prot) error {
	data := make([]byte, length)
	if _, err := sm.provider.ReadAt(data, int64(offset)); err != nil {
		return errors.Wrapf(err, "read section %s", name)
	}
	if _, err := sm.mem.CreateInitializedBlock(name, sm.base+offset, data, prot); err != nil {
		return errors.Wrapf(err, "commit section %s", name)
	}
	level.Debug(sm.logger).Log("msg", "committed section", "name", name, "offset", offset, "size", length, "prot", prot)
	return nil
}

// FinalizeSections commits every deferred section, skipping the subranges
// already occupied by earlier commits.
func (sm *sectionManager) FinalizeSections() error {
	for _, s := range sm.deferred {
		if err := sm.commitAround(s); err != nil {
			return err
		}
	}
	sm.deferred = nil
	return nil
}

type span struct {
	start, end uint64 // end exclusive
}

func (sm *sectionManager) commitAround(s pendingSection) error {
	if s.length == 0 {
		return nil
	}
	start := sm.base + s.offset
	end := start + s.length
	if end-1 < start {
		return errors.Wrapf(program.ErrAddressOverflow, "section %s", s.name)
	}
	var occupied []span
	for _, b := range sm.mem.Blocks() {
		occupied = append(occupied, span{b.Addr, b.End() + 1})
	}
	cur := start
	for _, o := range occupied {
		if o.end <= cur || o.start >= end {
			continue
		}
		if o.start > cur {
			if err := sm.commit(s.name, cur-sm.base, o.start-cur, s.prot); err != nil {
				return err
			}
		}
		if o.end > cur {
			cur = o.end
		}
		if cur >= end {
			return nil
		}
	}
	if cur < end {
		return sm.commit(s.name, cur-sm.base, end-cur, s.prot)
	}
	return nil
}
