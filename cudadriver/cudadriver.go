// Package cudadriver defines the low-level surface of the CUDA driver consumed by
// package cuda, along with the registry of available driver implementations.
//
// The safe wrappers in package cuda never touch the native API directly: everything
// goes through the Driver interface declared here. The cgo-backed implementation lives
// in cudadriver/cu; a pure-Go in-memory implementation used for testing lives in
// cudadriver/drivertest.
//
// Every fallible call reports native failures as a *Error, carrying the driver entry
// point name and the native status code. See package cuda for how errors, caller
// contract violations and destruction-time failures are told apart.
package cudadriver

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
)

// Device is the native device ordinal handle (CUdevice).
type Device int

// Context is an opaque native context identifier (CUcontext).
type Context uintptr

// DevicePtr is a device memory address (CUdeviceptr).
type DevicePtr uint64

// ExternalMemory is an opaque native identifier of an imported external memory
// object (CUexternalMemory).
type ExternalMemory uintptr

// MipmappedArray is an opaque native identifier of a mipmapped array resource
// (CUmipmappedArray).
type MipmappedArray uintptr

// Array is an opaque native identifier of a (single level) array resource (CUarray).
// It is a plain value: levels obtained from a mipmapped array are destroyed with the
// mipmapped array itself, never individually.
type Array uintptr

// HandleTypeCode is the native code space of external memory handle kinds
// (CUexternalMemoryHandleType). Package cuda exposes the platform-filtered
// enumeration over these codes.
type HandleTypeCode uint32

// Native external memory handle type codes. The set a given build target can actually
// construct is restricted by cuda.HandleType; the full code space is declared here
// because the wire values are platform independent.
const (
	HandleTypeCodeOpaqueFD         HandleTypeCode = 1
	HandleTypeCodeOpaqueWin32      HandleTypeCode = 2
	HandleTypeCodeOpaqueWin32KMT   HandleTypeCode = 3
	HandleTypeCodeD3D12Heap        HandleTypeCode = 4
	HandleTypeCodeD3D12Resource    HandleTypeCode = 5
	HandleTypeCodeD3D11Resource    HandleTypeCode = 6
	HandleTypeCodeD3D11ResourceKMT HandleTypeCode = 7
	HandleTypeCodeNvSciBuf         HandleTypeCode = 8
)

// Driver is the set of native driver entry points this module relies on.
//
// All calls are synchronous and may block for the duration of the underlying driver
// operation. Implementations must be safe for concurrent use: the context-affinity
// rules live one layer up, in package cuda, which re-binds the owning context on the
// calling thread before operations that need it.
type Driver interface {
	// DeviceGet returns the device handle for the given ordinal (cuDeviceGet).
	DeviceGet(ordinal int) (Device, error)

	// DevicePrimaryCtxRetain retains the primary context of the device and returns
	// it (cuDevicePrimaryCtxRetain).
	DevicePrimaryCtxRetain(dev Device) (Context, error)

	// CtxSetCurrent makes ctx current on the calling thread (cuCtxSetCurrent).
	// It is idempotent and safe to call repeatedly and concurrently.
	CtxSetCurrent(ctx Context) error

	// ImportExternalMemory imports the OS-level memory handle of the given kind and
	// size (cuImportExternalMemory). The raw handle value is passed as a uintptr: a
	// file descriptor on unix, a HANDLE on windows.
	ImportExternalMemory(handle uintptr, sizeBytes uint64, code HandleTypeCode) (ExternalMemory, error)

	// DestroyExternalMemory destroys a previously imported external memory object
	// (cuDestroyExternalMemory). Any mapped buffers or mipmapped arrays obtained
	// from it must already have been released.
	DestroyExternalMemory(mem ExternalMemory) error

	// ExternalMemoryGetMappedBuffer maps [offset, offset+sizeBytes) of mem to a
	// device pointer (cuExternalMemoryGetMappedBuffer). The returned pointer is a
	// distinct resource, released with MemFree.
	ExternalMemoryGetMappedBuffer(mem ExternalMemory, offset, sizeBytes uint64) (DevicePtr, error)

	// ExternalMemoryGetMappedMipmappedArray maps mem as a width x height mipmapped
	// array (cuExternalMemoryGetMappedMipmappedArray). The returned resource is
	// released with MipmappedArrayDestroy.
	ExternalMemoryGetMappedMipmappedArray(mem ExternalMemory, width, height uint64) (MipmappedArray, error)

	// MipmappedArrayGetLevel returns the array of the given mip level
	// (cuMipmappedArrayGetLevel). The valid level range is known only to the
	// driver; out-of-range levels fail with a driver error.
	MipmappedArrayGetLevel(arr MipmappedArray, level uint32) (Array, error)

	// MipmappedArrayDestroy destroys a mipmapped array (cuMipmappedArrayDestroy).
	MipmappedArrayDestroy(arr MipmappedArray) error

	// MemFree frees a mapped device pointer (cuMemFree).
	MemFree(ptr DevicePtr) error
}

// Constructor takes a driver-specific config string (possibly empty) and returns a
// ready to use Driver.
type Constructor func(config string) (Driver, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a driver implementation under the given name, with a constructor that
// receives the configuration string passed to NewWithConfig.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// GOCUDA_DRIVER is the environment variable with the default driver configuration.
//
// The format is "<driver_name>:<driver_configuration>". "<driver_name>" is the name of
// a registered driver (e.g.: "cuda") and "<driver_configuration>" is driver specific.
const GOCUDA_DRIVER = "GOCUDA_DRIVER"

// New returns a Driver built from the default configuration:
//
//  1. The environment variable GOCUDA_DRIVER, if set.
//  2. The first registered driver, with an empty configuration.
//
// It panics if no driver implementation was registered.
func New() (Driver, error) {
	if config, found := os.LookupEnv(GOCUDA_DRIVER); found {
		return NewWithConfig(config)
	}
	return NewWithConfig("")
}

// NewWithConfig builds a Driver from a configuration string formatted as
// "<driver_name>:<driver_configuration>". An empty name selects the first registered
// driver.
//
// It panics if no driver implementation was registered.
func NewWithConfig(config string) (Driver, error) {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered CUDA drivers -- maybe import the default cgo one with import _ "github.com/gomlx/gocuda/cudadriver/cu"?`)
	}
	driverName := firstRegistered
	driverConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		driverName = config[:idx]
		driverConfig = config[idx+1:]
	}
	constructor, found := registeredConstructors[driverName]
	if !found {
		exceptions.Panicf("can't find CUDA driver %q for configuration %q given", driverName, config)
	}
	return constructor(driverConfig)
}
