package encoding

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Reader decodes fixed-width little-endian records out of an io.ReaderAt.
type Reader struct {
	r io.ReaderAt
}

func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r}
}

func (r *Reader) Bytes(off, n uint64) ([]byte, error) {
	b := make([]byte, n)
	if _, err := r.r.ReadAt(b, int64(off)); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadAt decodes one record at off into the value pointed to by val.
func (r *Reader) ReadAt(off uint64, val any) error {
	b, err := r.Bytes(off, uint64(Sizeof(val)))
	if err != nil {
		return err
	}
	return Decode(b, val)
}

func (r *Reader) Uint32(off uint64) (uint32, error) {
	b, err := r.Bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64(off uint64) (uint64, error) {
	b, err := r.Bytes(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// CString reads a NUL-terminated string starting at off, reading no more
// than max bytes. A string truncated by max or end of input is returned
// without error.
func (r *Reader) CString(off, max uint64) (string, error) {
	var out []byte
	tmp := make([]byte, 64)
	for max > 0 {
		n := uint64(len(tmp))
		if n > max {
			n = max
		}
		read, err := r.r.ReadAt(tmp[:n], int64(off))
		if read > 0 {
			chunk := tmp[:read]
			if i := bytes.IndexByte(chunk, 0); i >= 0 {
				return string(append(out, chunk[:i]...)), nil
			}
			out = append(out, chunk...)
			off += uint64(read)
			max -= uint64(read)
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return "", err
		}
	}
	return string(out), nil
}
