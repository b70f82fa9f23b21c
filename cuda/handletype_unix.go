//go:build unix

package cuda

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/gocuda/cudadriver"
)

// HandleTypeFileDescriptor imports a file descriptor referencing a memory object.
//
// On successful import, ownership of the file descriptor is transferred to the CUDA
// driver; performing any operation on it afterwards (including closing it) is
// undefined behavior. This package accordingly never closes it.
const HandleTypeFileDescriptor = HandleType(cudadriver.HandleTypeCodeOpaqueFD)

// Code converts to the native handle type code. It panics if t is not a variant of
// this platform -- constructing such a value is a caller error.
func (t HandleType) Code() cudadriver.HandleTypeCode {
	switch t {
	case HandleTypeFileDescriptor, HandleTypeNvSciBuf:
		return cudadriver.HandleTypeCode(t)
	}
	exceptions.Panicf("cuda.HandleType(%d) is not a valid external memory handle type on this platform", int(t))
	panic("unreachable")
}

// HandleTypeFromCode converts a native handle type code back to the platform's
// enumeration. It returns an error (it never panics) for codes that are unknown or
// not available on this platform.
func HandleTypeFromCode(code cudadriver.HandleTypeCode) (HandleType, error) {
	switch code {
	case cudadriver.HandleTypeCodeOpaqueFD:
		return HandleTypeFileDescriptor, nil
	case cudadriver.HandleTypeCodeNvSciBuf:
		return HandleTypeNvSciBuf, nil
	}
	return 0, errors.Errorf("external memory handle type code %d is unknown or not available on this platform", uint32(code))
}

// String implements fmt.Stringer.
func (t HandleType) String() string {
	switch t {
	case HandleTypeFileDescriptor:
		return "FileDescriptor"
	case HandleTypeNvSciBuf:
		return "NvSciBuf"
	}
	return fmt.Sprintf("HandleType(%d)", int(t))
}
