//go:build cuda && cgo && windows

package cu

/*
#include <cuda.h>
*/
import "C"

import (
	"unsafe"

	"github.com/gomlx/gocuda/cudadriver"
)

// fillHandleDesc stores the raw handle into the descriptor's handle union. On
// windows every supported kind (NT handle, KMT handle, D3D shared handle, NvSciBuf
// object) is pointer sized and occupies the first word of the union.
func fillHandleDesc(desc *C.CUDA_EXTERNAL_MEMORY_HANDLE_DESC, handle uintptr, code cudadriver.HandleTypeCode) {
	_ = code
	*(*uintptr)(unsafe.Pointer(&desc.handle)) = handle
}
