package nxo

import (
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/encoding"
)

// NRO images are uncompressed and flat: file offsets equal memory offsets.
const nroMagic = 0x304F524E // "NRO0"

type nroSegment struct {
	Offset uint32
	Size   uint32
}

// Header fields starting at file offset 0x10.
type nroHeader struct {
	Magic   uint32
	Version uint32
	Size    uint32
	Flags   uint32
	Text    nroSegment
	Ro      nroSegment
	Data    nroSegment
	BssSize uint32
}

type NROAdapter struct {
	provider ByteProvider
	hdr      nroHeader
	mod0     *MOD0
}

func NewNROAdapter(provider ByteProvider) (*NROAdapter, error) {
	r := encoding.NewReader(provider)
	var hdr nroHeader
	if err := r.ReadAt(0x10, &hdr); err != nil {
		return nil, errors.Wrap(err, "read NRO header")
	}
	if hdr.Magic != nroMagic {
		return nil, errors.Errorf("bad NRO magic %#x", hdr.Magic)
	}
	a := &NROAdapter{provider: provider, hdr: hdr}
	a.mod0, _ = ParseMOD0(r, uint64(hdr.Text.Offset))
	return a, nil
}

func (a *NROAdapter) MemoryProvider() ByteProvider {
	return a.provider
}

func (a *NROAdapter) Section(typ SectionType) Section {
	var seg nroSegment
	switch typ {
	case SectionText:
		seg = a.hdr.Text
	case SectionRodata:
		seg = a.hdr.Ro
	case SectionData:
		seg = a.hdr.Data
	}
	return Section{Offset: uint64(seg.Offset), Size: uint64(seg.Size)}
}

func (a *NROAdapter) MOD0() *MOD0 {
	return a.mod0
}

func (a *NROAdapter) BssSize() uint64 {
	return uint64(a.hdr.BssSize)
}
