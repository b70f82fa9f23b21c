package cuda

import "github.com/gomlx/gocuda/cudadriver"

// HandleType identifies the kind of OS-level (or cross-API) handle being imported as
// external memory.
//
// The enumeration is platform filtered: each build target only declares the variants
// the driver accepts there. HandleTypeFileDescriptor exists on unix only; the opaque
// win32 and Direct3D variants on windows only; HandleTypeNvSciBuf everywhere. Values
// are the native handle type codes, so the forward conversion (Code) is the identity
// over declared variants; the reverse (HandleTypeFromCode) rejects codes that are not
// a variant of this platform.
type HandleType cudadriver.HandleTypeCode

// HandleTypeNvSciBuf imports a NvSciBuf object, available on every platform family.
//
// If the NvSciBuf object is also mapped by other drivers, cross-driver coherence
// barriers (external semaphores) are the caller's responsibility -- out of scope for
// this package.
const HandleTypeNvSciBuf = HandleType(cudadriver.HandleTypeCodeNvSciBuf)
