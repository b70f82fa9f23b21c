package cuda

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/gomlx/gocuda/cudadriver"
)

// MappedBuffer is a device-pointer view over a byte range of imported external
// memory, usable like ordinary device memory.
//
// It is created by ExternalMemory.MapRange/MapAll, which it consumes: the MappedBuffer
// exclusively owns both the mapped device pointer (a distinct driver resource) and
// the underlying ExternalMemory, and releases both on Close -- the pointer is freed
// first, then the import is destroyed.
type MappedBuffer struct {
	devicePtr cudadriver.DevicePtr
	sizeBytes uint64
	mem       *ExternalMemory

	mu     sync.Mutex
	closed bool
}

// DevicePtr returns the mapped device pointer.
func (b *MappedBuffer) DevicePtr() cudadriver.DevicePtr { return b.devicePtr }

// SizeBytes returns the length of the mapped range in bytes.
func (b *MappedBuffer) SizeBytes() uint64 { return b.sizeBytes }

// Device returns the device the underlying memory was imported on.
func (b *MappedBuffer) Device() *Device { return b.mem.device }

// String implements fmt.Stringer.
func (b *MappedBuffer) String() string {
	return fmt.Sprintf("MappedBuffer(%s of %s)", humanize.IBytes(b.sizeBytes), b.mem)
}

// Close frees the mapped device pointer, re-binding the owning context first, and
// then destroys the external memory it consumed. Closing an already closed
// MappedBuffer is a no-op.
//
// As with ExternalMemory.Close, native failures on this path are unrecoverable and
// abort via klog.Fatalf.
func (b *MappedBuffer) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if err := b.mem.device.BindToThread(); err != nil {
		klog.Fatalf("cuda: binding context to free %s: %+v", b, err)
	}
	if err := b.mem.device.driver.MemFree(b.devicePtr); err != nil {
		klog.Fatalf("cuda: freeing %s: %+v", b, err)
	}
	b.closed = true
	b.mem.destroyConsumed()
}
