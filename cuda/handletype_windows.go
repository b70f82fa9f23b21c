//go:build windows

package cuda

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/gocuda/cudadriver"
)

// The windows family of handle kinds. The driver does NOT take ownership of NT
// handles on import: the application must release them, which ExternalMemory does
// when it is closed.
const (
	// HandleTypeOpaqueWin32 imports a shared NT handle referencing a memory object.
	HandleTypeOpaqueWin32 = HandleType(cudadriver.HandleTypeCodeOpaqueWin32)

	// HandleTypeOpaqueWin32KMT imports a globally shared KMT handle. KMT handles
	// hold no reference to the underlying object and become invalid when all other
	// references are destroyed.
	HandleTypeOpaqueWin32KMT = HandleType(cudadriver.HandleTypeCodeOpaqueWin32KMT)

	// HandleTypeD3D12Heap imports a shared NT handle to an ID3D12Heap object.
	HandleTypeD3D12Heap = HandleType(cudadriver.HandleTypeCodeD3D12Heap)

	// HandleTypeD3D12Resource imports a shared NT handle to an ID3D12Resource
	// object.
	HandleTypeD3D12Resource = HandleType(cudadriver.HandleTypeCodeD3D12Resource)

	// HandleTypeD3D11Resource imports a shared NT handle to an ID3D11Resource
	// object.
	HandleTypeD3D11Resource = HandleType(cudadriver.HandleTypeCodeD3D11Resource)

	// HandleTypeD3D11ResourceKMT imports a shared KMT handle to an ID3D11Resource
	// object.
	HandleTypeD3D11ResourceKMT = HandleType(cudadriver.HandleTypeCodeD3D11ResourceKMT)
)

// Code converts to the native handle type code. It panics if t is not a variant of
// this platform -- constructing such a value is a caller error.
func (t HandleType) Code() cudadriver.HandleTypeCode {
	switch t {
	case HandleTypeOpaqueWin32, HandleTypeOpaqueWin32KMT,
		HandleTypeD3D12Heap, HandleTypeD3D12Resource,
		HandleTypeD3D11Resource, HandleTypeD3D11ResourceKMT,
		HandleTypeNvSciBuf:
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
	case cudadriver.HandleTypeCodeOpaqueWin32,
		cudadriver.HandleTypeCodeOpaqueWin32KMT,
		cudadriver.HandleTypeCodeD3D12Heap,
		cudadriver.HandleTypeCodeD3D12Resource,
		cudadriver.HandleTypeCodeD3D11Resource,
		cudadriver.HandleTypeCodeD3D11ResourceKMT,
		cudadriver.HandleTypeCodeNvSciBuf:
		return HandleType(code), nil
	}
	return 0, errors.Errorf("external memory handle type code %d is unknown or not available on this platform", uint32(code))
}

// String implements fmt.Stringer.
func (t HandleType) String() string {
	switch t {
	case HandleTypeOpaqueWin32:
		return "OpaqueWin32"
	case HandleTypeOpaqueWin32KMT:
		return "OpaqueWin32KMT"
	case HandleTypeD3D12Heap:
		return "D3D12Heap"
	case HandleTypeD3D12Resource:
		return "D3D12Resource"
	case HandleTypeD3D11Resource:
		return "D3D11Resource"
	case HandleTypeD3D11ResourceKMT:
		return "D3D11ResourceKMT"
	case HandleTypeNvSciBuf:
		return "NvSciBuf"
	}
	return fmt.Sprintf("HandleType(%d)", int(t))
}
