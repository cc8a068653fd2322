package nxo

import (
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/nxtools/nxld/encoding"
)

// NSO segments are individually LZ4-block-compressed and carry separate file
// and memory offsets. The adapter decompresses them into one flat image up
// front so the rest of the engine only ever sees memory offsets.
const nsoMagic = 0x304F534E // "NSO0"

const (
	nsoFlagTextCompress = 1 << 0
	nsoFlagRoCompress   = 1 << 1
	nsoFlagDataCompress = 1 << 2
)

type nsoSegment struct {
	FileOff uint32
	MemOff  uint32
	Size    uint32
}

type nsoHeader struct {
	Magic          uint32
	Version        uint32
	Reserved       uint32
	Flags          uint32
	Text           nsoSegment
	ModuleNameOff  uint32
	Ro             nsoSegment
	ModuleNameSize uint32
	Data           nsoSegment
	BssSize        uint32
	BuildID        [32]byte
	TextCompSize   uint32
	RoCompSize     uint32
	DataCompSize   uint32
}

type NSOAdapter struct {
	flat ByteProvider
	hdr  nsoHeader
	mod0 *MOD0
}

func NewNSOAdapter(provider ByteProvider) (*NSOAdapter, error) {
	r := encoding.NewReader(provider)
	var hdr nsoHeader
	if err := r.ReadAt(0, &hdr); err != nil {
		return nil, errors.Wrap(err, "read NSO header")
	}
	if hdr.Magic != nsoMagic {
		return nil, errors.Errorf("bad NSO magic %#x", hdr.Magic)
	}

	end := uint64(hdr.Text.MemOff) + uint64(hdr.Text.Size)
	if e := uint64(hdr.Ro.MemOff) + uint64(hdr.Ro.Size); e > end {
		end = e
	}
	if e := uint64(hdr.Data.MemOff) + uint64(hdr.Data.Size); e > end {
		end = e
	}
	img := make([]byte, end)

	segs := []struct {
		name       string
		seg        nsoSegment
		compSize   uint32
		compressed bool
	}{
		{".text", hdr.Text, hdr.TextCompSize, hdr.Flags&nsoFlagTextCompress != 0},
		{".rodata", hdr.Ro, hdr.RoCompSize, hdr.Flags&nsoFlagRoCompress != 0},
		{".data", hdr.Data, hdr.DataCompSize, hdr.Flags&nsoFlagDataCompress != 0},
	}
	for _, s := range segs {
		dst := img[s.seg.MemOff : uint64(s.seg.MemOff)+uint64(s.seg.Size)]
		if !s.compressed {
			if _, err := provider.ReadAt(dst, int64(s.seg.FileOff)); err != nil {
				return nil, errors.Wrapf(err, "read %s segment", s.name)
			}
			continue
		}
		src, err := r.Bytes(uint64(s.seg.FileOff), uint64(s.compSize))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s segment", s.name)
		}
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, errors.Wrapf(err, "decompress %s segment", s.name)
		}
		if uint32(n) != s.seg.Size {
			return nil, errors.Errorf("%s segment decompressed to %d bytes, want %d", s.name, n, s.seg.Size)
		}
	}

	a := &NSOAdapter{flat: NewBytesProvider(img), hdr: hdr}
	a.mod0, _ = ParseMOD0(encoding.NewReader(a.flat), uint64(hdr.Text.MemOff))
	return a, nil
}

func (a *NSOAdapter) MemoryProvider() ByteProvider {
	return a.flat
}

func (a *NSOAdapter) Section(typ SectionType) Section {
	var seg nsoSegment
	switch typ {
	case SectionText:
		seg = a.hdr.Text
	case SectionRodata:
		seg = a.hdr.Ro
	case SectionData:
		seg = a.hdr.Data
	}
	return Section{Offset: uint64(seg.MemOff), Size: uint64(seg.Size)}
}

func (a *NSOAdapter) MOD0() *MOD0 {
	return a.mod0
}

func (a *NSOAdapter) BssSize() uint64 {
	return uint64(a.hdr.BssSize)
}

func (a *NSOAdapter) BuildID() []byte {
	return a.hdr.BuildID[:]
}
