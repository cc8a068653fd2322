package encoding

import (
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"
)

// handler copies one decoded unit out of b into the value at ptr and returns
// the number of bytes consumed. b is guaranteed to hold at least the unit's
// encoded size.
type handler = func(b []byte, ptr unsafe.Pointer) int

type planData struct {
	handler handler
	size    int
}

var (
	decodePlans sync.Map

	ErrNeedPointer = errors.New("encoding: decode target must be a pointer")
)

// Sizeof returns the encoded size of val's type: fixed-width little-endian
// fields at their declared widths, packed in declaration order.
func Sizeof(val any) int {
	typ := reflect2.TypeOf(val)
	if typ.Kind() == reflect.Pointer {
		typ = typ.(reflect2.PtrType).Elem()
	}
	return getPlan(typ).size
}

// Decode fills the integer, array or struct pointed to by val from the
// little-endian bytes in b.
func Decode(b []byte, val any) error {
	typ := reflect2.TypeOf(val)
	if typ.Kind() != reflect.Pointer {
		return ErrNeedPointer
	}
	data := getPlan(typ.(reflect2.PtrType).Elem())
	if len(b) < data.size {
		return io.ErrUnexpectedEOF
	}
	data.handler(b, reflect2.PtrOf(val))
	return nil
}

func getPlan(typ reflect2.Type) *planData {
	key := typ.RType()
	if v, ok := decodePlans.Load(key); ok {
		return v.(*planData)
	}
	unmarshal, size := decode(typ)
	data := &planData{unmarshal, size}
	decodePlans.Store(key, data)
	return data
}

func decode(typ reflect2.Type) (handler, int) {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return func(b []byte, ptr unsafe.Pointer) int {
			*(*byte)(ptr) = b[0]
			return 1
		}, 1
	case reflect.Int16, reflect.Uint16:
		return func(b []byte, ptr unsafe.Pointer) int {
			*(*uint16)(ptr) = binary.LittleEndian.Uint16(b)
			return 2
		}, 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return func(b []byte, ptr unsafe.Pointer) int {
			*(*uint32)(ptr) = binary.LittleEndian.Uint32(b)
			return 4
		}, 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return func(b []byte, ptr unsafe.Pointer) int {
			*(*uint64)(ptr) = binary.LittleEndian.Uint64(b)
			return 8
		}, 8
	case reflect.Array:
		return decodeArray(typ)
	case reflect.Struct:
		return decodeStruct(typ)
	}
	panic("encoding: unsupported type " + typ.String())
}

func decodeArray(typ reflect2.Type) (handler, int) {
	t := typ.Type1()
	count := t.Len()
	unmarshal, elemSize := decode(reflect2.Type2(t.Elem()))
	elemMem := int(t.Elem().Size())
	return func(b []byte, ptr unsafe.Pointer) int {
		var n int
		for i := 0; i < count; i++ {
			n += unmarshal(b[n:], unsafe.Add(ptr, i*elemMem))
		}
		return n
	}, count * elemSize
}

type fieldData struct {
	handler handler
	offset  int
}

func decodeStruct(typ reflect2.Type) (handler, int) {
	t := typ.Type1()
	count := t.NumField()
	fields := make([]fieldData, 0, count)
	var size int
	for i := 0; i < count; i++ {
		field := t.Field(i)
		if field.Tag.Get("encoding") == "ignore" {
			continue
		}
		unmarshal, fieldSize := decode(reflect2.Type2(field.Type))
		fields = append(fields, fieldData{unmarshal, int(field.Offset)})
		size += fieldSize
	}
	return func(b []byte, ptr unsafe.Pointer) int {
		var n int
		for _, data := range fields {
			n += data.handler(b[n:], unsafe.Add(ptr, data.offset))
		}
		return n
	}, size
}
