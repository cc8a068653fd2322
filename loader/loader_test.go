package loader

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nxtools/nxld/nxo"
	"github.com/nxtools/nxld/program"
)

// Synthetic image layout used across the loader tests.
const (
	testTextOff  = 0x0
	testTextSize = 0x1000
	testRoOff    = 0x1000
	testRoSize   = 0x1000
	testDataOff  = 0x2000
	testDataSize = 0x1000
	testImgSize  = 0x3000

	testMod0Off    = 0x800
	testSymtabOff  = 0x1000
	testRelaOff    = 0x1800
	testPltRelaOff = 0x1900
	testDynOff     = 0x2000
	testGotOff     = 0x2800
)

type testSym struct {
	name  string
	info  byte
	shndx uint16
	value uint64
	size  uint64
}

type testRel struct {
	off    uint64
	typ    uint32
	sym    int
	addend int64
}

type testImage struct {
	syms      []testSym
	relocs    []testRel
	pltRelocs []testRel
	needed    []string
	stubOff   uint64
	stubs     [][4]uint32
	initArray uint64
	bssStart  uint64
	bssEnd    uint64
}

func (ti *testImage) build(t *testing.T) *nxo.Header {
	t.Helper()
	img := make([]byte, testImgSize)
	le := binary.LittleEndian

	if ti.bssStart == 0 {
		ti.bssStart = testImgSize
		ti.bssEnd = testImgSize
	}

	// String table contents: symbol names then needed library names.
	strtab := []byte{0}
	nameIdx := make([]uint32, len(ti.syms))
	for i, s := range ti.syms {
		if s.name == "" {
			continue
		}
		nameIdx[i] = uint32(len(strtab))
		strtab = append(strtab, s.name...)
		strtab = append(strtab, 0)
	}
	libIdx := make([]uint32, len(ti.needed))
	for i, lib := range ti.needed {
		libIdx[i] = uint32(len(strtab))
		strtab = append(strtab, lib...)
		strtab = append(strtab, 0)
	}

	// .dynsym: a null entry followed by the test symbols. The string table
	// directly follows, which is also how the parser recovers the count.
	symCount := len(ti.syms) + 1
	strtabOff := uint64(testSymtabOff + symCount*24)
	for i, s := range ti.syms {
		off := testSymtabOff + (i+1)*24
		le.PutUint32(img[off:], nameIdx[i])
		img[off+4] = s.info
		le.PutUint16(img[off+6:], s.shndx)
		le.PutUint64(img[off+8:], s.value)
		le.PutUint64(img[off+16:], s.size)
	}
	copy(img[strtabOff:], strtab)

	writeRelas := func(off uint64, relocs []testRel) {
		for i, r := range relocs {
			o := off + uint64(i*24)
			le.PutUint64(img[o:], r.off)
			le.PutUint64(img[o+8:], uint64(r.sym)<<32|uint64(r.typ))
			le.PutUint64(img[o+16:], uint64(r.addend))
		}
	}
	writeRelas(testRelaOff, ti.relocs)
	writeRelas(testPltRelaOff, ti.pltRelocs)

	for i, words := range ti.stubs {
		off := ti.stubOff + uint64(i*16)
		for j, w := range words {
			le.PutUint32(img[off+uint64(j*4):], w)
		}
	}

	type dynEntry struct {
		tag int64
		val uint64
	}
	entries := []dynEntry{
		{nxo.DT_SYMTAB, testSymtabOff},
		{nxo.DT_SYMENT, 24},
		{nxo.DT_STRTAB, strtabOff},
		{nxo.DT_STRSZ, uint64(len(strtab))},
	}
	for _, li := range libIdx {
		entries = append(entries, dynEntry{nxo.DT_NEEDED, uint64(li)})
	}
	if len(ti.relocs) > 0 {
		entries = append(entries,
			dynEntry{nxo.DT_RELA, testRelaOff},
			dynEntry{nxo.DT_RELASZ, uint64(len(ti.relocs) * 24)})
	}
	if len(ti.pltRelocs) > 0 {
		entries = append(entries,
			dynEntry{nxo.DT_JMPREL, testPltRelaOff},
			dynEntry{nxo.DT_PLTRELSZ, uint64(len(ti.pltRelocs) * 24)},
			dynEntry{nxo.DT_PLTGOT, testGotOff})
	}
	if ti.initArray != 0 {
		entries = append(entries, dynEntry{nxo.DT_INIT_ARRAY, ti.initArray})
	}
	for i, e := range entries {
		off := testDynOff + i*16
		le.PutUint64(img[off:], uint64(e.tag))
		le.PutUint64(img[off+8:], e.val)
	}

	le.PutUint32(img[4:], testMod0Off)
	le.PutUint32(img[testMod0Off:], 0x30444F4D)
	le.PutUint32(img[testMod0Off+4:], uint32(int32(testDynOff-testMod0Off)))
	le.PutUint32(img[testMod0Off+8:], uint32(int32(ti.bssStart)-testMod0Off))
	le.PutUint32(img[testMod0Off+12:], uint32(int32(ti.bssEnd)-testMod0Off))

	adapter := nxo.NewRawAdapter(nxo.NewBytesProvider(img),
		nxo.Section{Offset: testTextOff, Size: testTextSize},
		nxo.Section{Offset: testRoOff, Size: testRoSize},
		nxo.Section{Offset: testDataOff, Size: testDataSize})
	require.NotNil(t, adapter.MOD0())

	hdr, err := nxo.ParseHeader(adapter, ImageBase)
	require.NoError(t, err)
	return hdr
}

// pltStub encodes the four-instruction trampoline whose GOT slot sits at
// page(stubOff)+slot.
func pltStub(slot uint64) [4]uint32 {
	return [4]uint32{
		0x90000010,                        // adrp x16, .
		0xF9400211 | uint32(slot>>3)<<10,  // ldr x17, [x16, #slot]
		0x91000210,                        // add x16, x16, #0
		0xD61F0220,                        // br x17
	}
}

func blockByName(mem *program.Memory, name string) *program.Block {
	for _, b := range mem.Blocks() {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func symbolNames(st *program.SymbolTable, addr uint64) []string {
	var names []string
	for _, s := range st.At(addr) {
		names = append(names, s.Name)
	}
	return names
}
