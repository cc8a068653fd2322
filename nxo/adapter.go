package nxo

import (
	"github.com/nxtools/nxld/encoding"
)

type SectionType int

const (
	SectionText SectionType = iota
	SectionRodata
	SectionData
)

type Section struct {
	Offset, Size uint64
}

// Adapter normalizes one on-disk format into a flat memory-offset space:
// segment bounds, the backing bytes, and the MOD0 record if the image
// carries one.
type Adapter interface {
	MemoryProvider() ByteProvider
	Section(typ SectionType) Section
	MOD0() *MOD0
}

// RawAdapter serves an image that is already laid out flat, with section
// bounds supplied by the caller. Used for pre-extracted images and tests.
type RawAdapter struct {
	provider ByteProvider
	sections [3]Section
	mod0     *MOD0
}

func NewRawAdapter(provider ByteProvider, text, rodata, data Section) *RawAdapter {
	a := &RawAdapter{
		provider: provider,
		sections: [3]Section{text, rodata, data},
	}
	a.mod0, _ = ParseMOD0(encoding.NewReader(provider), text.Offset)
	return a
}

func (a *RawAdapter) MemoryProvider() ByteProvider {
	return a.provider
}

func (a *RawAdapter) Section(typ SectionType) Section {
	return a.sections[typ]
}

func (a *RawAdapter) MOD0() *MOD0 {
	return a.mod0
}
