//go:build cuda && cgo

// Package cu implements cudadriver.Driver over the CUDA driver API via cgo.
//
// It is compiled only with the "cuda" build tag and registers itself as driver
// "cuda"; without the tag a stub registers in its place and fails construction with
// a clear error. Typical usage is a blank import:
//
//	import _ "github.com/gomlx/gocuda/cudadriver/cu"
package cu

/*
#cgo LDFLAGS: -lcuda
#include <cuda.h>
#include <string.h>
*/
import "C"

import (
	"math/bits"
	"unsafe"

	"github.com/gomlx/gocuda/cudadriver"
)

// Compile-time check:
var _ cudadriver.Driver = (*Driver)(nil)

func init() {
	cudadriver.Register("cuda", New)
}

// Driver is the cgo-backed CUDA driver. All methods issue the corresponding driver
// entry point synchronously on the calling thread.
type Driver struct{}

// New initializes the CUDA driver (cuInit) and returns it. The config string is
// currently unused.
func New(config string) (cudadriver.Driver, error) {
	if err := toError("cuInit", C.cuInit(0)); err != nil {
		return nil, err
	}
	return &Driver{}, nil
}

func toError(call string, result C.CUresult) error {
	return cudadriver.ErrorOrNil(call, cudadriver.Result(result))
}

func (d *Driver) DeviceGet(ordinal int) (cudadriver.Device, error) {
	var dev C.CUdevice
	if err := toError("cuDeviceGet", C.cuDeviceGet(&dev, C.int(ordinal))); err != nil {
		return 0, err
	}
	return cudadriver.Device(dev), nil
}

func (d *Driver) DevicePrimaryCtxRetain(dev cudadriver.Device) (cudadriver.Context, error) {
	var ctx C.CUcontext
	if err := toError("cuDevicePrimaryCtxRetain", C.cuDevicePrimaryCtxRetain(&ctx, C.CUdevice(dev))); err != nil {
		return 0, err
	}
	return cudadriver.Context(uintptr(unsafe.Pointer(ctx))), nil
}

func (d *Driver) CtxSetCurrent(ctx cudadriver.Context) error {
	return toError("cuCtxSetCurrent", C.cuCtxSetCurrent(C.CUcontext(unsafe.Pointer(ctx))))
}

func (d *Driver) ImportExternalMemory(handle uintptr, sizeBytes uint64, code cudadriver.HandleTypeCode) (cudadriver.ExternalMemory, error) {
	var desc C.CUDA_EXTERNAL_MEMORY_HANDLE_DESC
	C.memset(unsafe.Pointer(&desc), 0, C.sizeof_CUDA_EXTERNAL_MEMORY_HANDLE_DESC)
	desc._type = C.CUexternalMemoryHandleType(code)
	desc.size = C.ulonglong(sizeBytes)
	fillHandleDesc(&desc, handle, code)
	var mem C.CUexternalMemory
	if err := toError("cuImportExternalMemory", C.cuImportExternalMemory(&mem, &desc)); err != nil {
		return 0, err
	}
	return cudadriver.ExternalMemory(uintptr(unsafe.Pointer(mem))), nil
}

func (d *Driver) DestroyExternalMemory(mem cudadriver.ExternalMemory) error {
	return toError("cuDestroyExternalMemory",
		C.cuDestroyExternalMemory(C.CUexternalMemory(unsafe.Pointer(mem))))
}

func (d *Driver) ExternalMemoryGetMappedBuffer(mem cudadriver.ExternalMemory, offset, sizeBytes uint64) (cudadriver.DevicePtr, error) {
	var desc C.CUDA_EXTERNAL_MEMORY_BUFFER_DESC
	C.memset(unsafe.Pointer(&desc), 0, C.sizeof_CUDA_EXTERNAL_MEMORY_BUFFER_DESC)
	desc.offset = C.ulonglong(offset)
	desc.size = C.ulonglong(sizeBytes)
	var ptr C.CUdeviceptr
	err := toError("cuExternalMemoryGetMappedBuffer",
		C.cuExternalMemoryGetMappedBuffer(&ptr, C.CUexternalMemory(unsafe.Pointer(mem)), &desc))
	if err != nil {
		return 0, err
	}
	return cudadriver.DevicePtr(ptr), nil
}

func (d *Driver) ExternalMemoryGetMappedMipmappedArray(mem cudadriver.ExternalMemory, width, height uint64) (cudadriver.MipmappedArray, error) {
	var desc C.CUDA_EXTERNAL_MEMORY_MIPMAPPED_ARRAY_DESC
	C.memset(unsafe.Pointer(&desc), 0, C.sizeof_CUDA_EXTERNAL_MEMORY_MIPMAPPED_ARRAY_DESC)
	desc.arrayDesc.Width = C.size_t(width)
	desc.arrayDesc.Height = C.size_t(height)
	desc.arrayDesc.Format = C.CU_AD_FORMAT_UNSIGNED_INT8
	desc.arrayDesc.NumChannels = 1
	// Full mip chain for the given dimensions.
	desc.numLevels = C.uint(bits.Len64(max(width, height)))
	var arr C.CUmipmappedArray
	err := toError("cuExternalMemoryGetMappedMipmappedArray",
		C.cuExternalMemoryGetMappedMipmappedArray(&arr, C.CUexternalMemory(unsafe.Pointer(mem)), &desc))
	if err != nil {
		return 0, err
	}
	return cudadriver.MipmappedArray(uintptr(unsafe.Pointer(arr))), nil
}

func (d *Driver) MipmappedArrayGetLevel(arr cudadriver.MipmappedArray, level uint32) (cudadriver.Array, error) {
	var levelArr C.CUarray
	err := toError("cuMipmappedArrayGetLevel",
		C.cuMipmappedArrayGetLevel(&levelArr, C.CUmipmappedArray(unsafe.Pointer(arr)), C.uint(level)))
	if err != nil {
		return 0, err
	}
	return cudadriver.Array(uintptr(unsafe.Pointer(levelArr))), nil
}

func (d *Driver) MipmappedArrayDestroy(arr cudadriver.MipmappedArray) error {
	return toError("cuMipmappedArrayDestroy",
		C.cuMipmappedArrayDestroy(C.CUmipmappedArray(unsafe.Pointer(arr))))
}

func (d *Driver) MemFree(ptr cudadriver.DevicePtr) error {
	return toError("cuMemFree", C.cuMemFree(C.CUdeviceptr(ptr)))
}
