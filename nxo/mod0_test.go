package nxo

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nxtools/nxld/encoding"
)

func writeMOD0(img []byte, textOff, mod0Off uint64, dynamic, bssStart, bssEnd int32) {
	le := binary.LittleEndian
	le.PutUint32(img[textOff+4:], uint32(mod0Off))
	le.PutUint32(img[mod0Off:], mod0Magic)
	le.PutUint32(img[mod0Off+4:], uint32(dynamic))
	le.PutUint32(img[mod0Off+8:], uint32(bssStart))
	le.PutUint32(img[mod0Off+12:], uint32(bssEnd))
}

func TestParseMOD0(t *testing.T) {
	img := make([]byte, 0x1000)
	writeMOD0(img, 0, 0x200, 0x600, 0x800, 0x900)

	m, err := ParseMOD0(encoding.NewReader(NewBytesProvider(img)), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0x200), m.Offset)
	require.Equal(t, uint64(0x800), m.DynamicOffset)
	require.Equal(t, uint64(0xA00), m.BssStart)
	require.Equal(t, uint64(0x100), m.BssSize)
}

func TestParseMOD0NegativeOffsets(t *testing.T) {
	// Offsets are signed and may point below the record.
	img := make([]byte, 0x1000)
	writeMOD0(img, 0, 0x800, -0x100, 0x100, 0x100)

	m, err := ParseMOD0(encoding.NewReader(NewBytesProvider(img)), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0x700), m.DynamicOffset)
	require.Equal(t, uint64(0x900), m.BssStart)
	require.Zero(t, m.BssSize)
}

func TestParseMOD0BadMagic(t *testing.T) {
	img := make([]byte, 0x1000)
	writeMOD0(img, 0, 0x200, 0, 0, 0)
	binary.LittleEndian.PutUint32(img[0x200:], 0x11223344)

	_, err := ParseMOD0(encoding.NewReader(NewBytesProvider(img)), 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad MOD0 magic")
}

func TestParseMOD0PointerOutOfRange(t *testing.T) {
	img := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(img[4:], 0xFFFFFF)

	_, err := ParseMOD0(encoding.NewReader(NewBytesProvider(img)), 0)
	require.Error(t, err)
}
