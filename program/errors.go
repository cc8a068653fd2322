package program

import "errors"

var (
	ErrAddressOverflow = errors.New("address range overflow")
	ErrMemoryConflict  = errors.New("memory block conflict")
	ErrMemoryAccess    = errors.New("address not in an initialized block")
	ErrInvalidName     = errors.New("invalid name")
	ErrDataConflict    = errors.New("conflicting data unit")
	ErrFunctionExists  = errors.New("function already exists")
)
