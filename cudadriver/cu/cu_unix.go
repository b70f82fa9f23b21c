//go:build cuda && cgo && unix

package cu

/*
#include <cuda.h>
*/
import "C"

import (
	"unsafe"

	"github.com/gomlx/gocuda/cudadriver"
)

// fillHandleDesc stores the raw handle into the descriptor's handle union. On unix
// the handle is a file descriptor, except for NvSciBuf objects which are passed as a
// pointer.
func fillHandleDesc(desc *C.CUDA_EXTERNAL_MEMORY_HANDLE_DESC, handle uintptr, code cudadriver.HandleTypeCode) {
	if code == cudadriver.HandleTypeCodeNvSciBuf {
		*(*uintptr)(unsafe.Pointer(&desc.handle)) = handle // nvSciBufObject pointer
		return
	}
	*(*C.int)(unsafe.Pointer(&desc.handle)) = C.int(handle) // fd
}
