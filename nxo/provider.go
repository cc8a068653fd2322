// Package nxo decodes the input side of a Switch executable image: the
// format-specific segment layout (NSO/NRO or an already-flattened raw image),
// the MOD0 record, and the dynamic metadata reachable through it. Everything
// is addressed in a flat ELF-like memory-offset space.
package nxo

import (
	"bytes"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ByteProvider is a length-bounded random access byte source.
type ByteProvider interface {
	io.ReaderAt
	Length() uint64
}

type bytesProvider struct {
	*bytes.Reader
}

func (p bytesProvider) Length() uint64 {
	return uint64(p.Size())
}

// NewBytesProvider wraps an in-memory image.
func NewBytesProvider(b []byte) ByteProvider {
	return bytesProvider{bytes.NewReader(b)}
}

// Fingerprint hashes the provider's full contents, giving the image a stable
// identity across repeated loads.
func Fingerprint(p ByteProvider) (uint64, error) {
	h := xxhash.New()
	_, err := io.Copy(h, io.NewSectionReader(p, 0, int64(p.Length())))
	if err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
