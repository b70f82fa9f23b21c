package cuda

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/gocuda/cudadriver"
)

// ExternalMemory is an imported external memory object.
//
// It is created by Device.ImportExternalMemory only. It owns the native import and,
// on the platform family where the driver does not take ownership of the OS handle
// (windows), also the retained OS handle; both are released together by Close.
//
// Go has no compile-time lifetimes, so the move/borrow discipline of the resource
// graph is enforced at runtime: MapRange consumes the ExternalMemory (any later use
// panics), MipmappedArray borrows it (Close panics while views are live).
type ExternalMemory struct {
	mem       cudadriver.ExternalMemory
	sizeBytes uint64
	device    *Device
	handle    retainedHandle // platform divergent, see externalmemory_{unix,windows}.go

	mu        sync.Mutex
	consumed  bool // moved into a MappedBuffer, which now owns the teardown
	destroyed bool
	views     int // live MipmappedArray borrows
}

// ImportExternalMemory imports an externally allocated memory object from its
// OS-level handle.
//
// sizeBytes must be the exact size of the underlying memory object: this is an
// unchecked precondition, the driver is free to misbehave on a mismatch.
//
// Ownership of the handle after a successful import is platform divergent. On unix
// the driver takes ownership of the file descriptor and the caller must not touch it
// again (closing it is undefined behavior). On windows the driver does not take
// ownership; the returned ExternalMemory retains the handle and closes it when it is
// itself closed, so the caller must not close it either.
//
// On failure no resource is created and the handle still belongs to the caller.
func (d *Device) ImportExternalMemory(handle OSHandle, sizeBytes uint64, handleType HandleType) (*ExternalMemory, error) {
	code := handleType.Code()
	if err := d.BindToThread(); err != nil {
		return nil, err
	}
	mem, err := d.driver.ImportExternalMemory(uintptr(handle), sizeBytes, code)
	if err != nil {
		return nil, errors.WithMessagef(err, "importing external memory (%s, %s) on device #%d",
			handleType, humanize.IBytes(sizeBytes), d.ordinal)
	}
	klog.V(1).Infof("cuda: imported external memory (%s, %s) on device #%d",
		handleType, humanize.IBytes(sizeBytes), d.ordinal)
	return &ExternalMemory{
		mem:       mem,
		sizeBytes: sizeBytes,
		device:    d,
		handle:    retainHandle(handle),
	}, nil
}

// SizeBytes returns the total size of the imported memory object, as declared at
// import time.
func (m *ExternalMemory) SizeBytes() uint64 { return m.sizeBytes }

// Device returns the device the memory was imported on.
func (m *ExternalMemory) Device() *Device { return m.device }

// String implements fmt.Stringer.
func (m *ExternalMemory) String() string {
	return fmt.Sprintf("ExternalMemory(%s)", humanize.IBytes(m.sizeBytes))
}

// AssertValid panics if m is nil, was consumed by MapRange/MapAll or was already
// closed.
func (m *ExternalMemory) AssertValid() {
	if m == nil {
		exceptions.Panicf("cuda.ExternalMemory is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertValidLocked()
}

func (m *ExternalMemory) assertValidLocked() {
	if m.consumed {
		exceptions.Panicf("%s was consumed by MapRange/MapAll and can no longer be used; the MappedBuffer owns it now", m)
	}
	if m.destroyed {
		exceptions.Panicf("%s was already closed", m)
	}
}

// MapAll maps the whole external memory, same as MapRange(0, SizeBytes()).
func (m *ExternalMemory) MapAll() (*MappedBuffer, error) {
	return m.MapRange(0, m.sizeBytes)
}

// MapRange maps the byte range [start, end) of the external memory to a device
// pointer and returns it as a MappedBuffer.
//
// MapRange consumes m: on success the MappedBuffer owns the external memory and
// releases it when closed, and every further use of m panics. Only one MappedBuffer
// can ever exist per import -- more restrictive than the driver requires, but it
// keeps the teardown ordering impossible to get wrong.
//
// It panics unless start <= end <= SizeBytes(); callers wanting graceful handling
// must validate the range themselves. A zero-length range is valid. Device alignment
// requirements on start are the driver's own and surface as driver errors.
func (m *ExternalMemory) MapRange(start, end uint64) (*MappedBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertValidLocked()
	if m.views > 0 {
		exceptions.Panicf("cannot consume %s while it has %d live mipmapped array view(s)", m, m.views)
	}
	if start > end || end > m.sizeBytes {
		exceptions.Panicf("invalid range [%d, %d) to map on %s", start, end, m)
	}
	devicePtr, err := m.device.driver.ExternalMemoryGetMappedBuffer(m.mem, start, end-start)
	if err != nil {
		return nil, errors.WithMessagef(err, "mapping range [%d, %d) of %s", start, end, m)
	}
	m.consumed = true
	return &MappedBuffer{
		devicePtr: devicePtr,
		sizeBytes: end - start,
		mem:       m,
	}, nil
}

// Close destroys the imported external memory object, re-binding the owning context
// first, and releases the retained OS handle where this layer owns it (windows).
// Closing an already closed ExternalMemory is a no-op.
//
// It panics if m was consumed by MapRange/MapAll (close the MappedBuffer instead) or
// if mipmapped array views created from m are still live.
//
// Teardown has no caller to report native failures to: they are treated as
// environment corruption and abort via klog.Fatalf.
func (m *ExternalMemory) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	if m.consumed {
		exceptions.Panicf("%s was consumed by MapRange/MapAll; close the MappedBuffer instead", m)
	}
	if m.views > 0 {
		exceptions.Panicf("cannot close %s while it has %d live mipmapped array view(s)", m, m.views)
	}
	m.destroyLocked()
}

// destroyConsumed is the teardown path driven by the owning MappedBuffer.
func (m *ExternalMemory) destroyConsumed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyLocked()
}

// destroyLocked destroys the native import and releases the retained OS handle,
// exactly once. m.mu must be held.
func (m *ExternalMemory) destroyLocked() {
	if err := m.device.BindToThread(); err != nil {
		klog.Fatalf("cuda: binding context to destroy %s: %+v", m, err)
	}
	if err := m.device.driver.DestroyExternalMemory(m.mem); err != nil {
		klog.Fatalf("cuda: destroying %s: %+v", m, err)
	}
	m.handle.release()
	m.destroyed = true
	klog.V(1).Infof("cuda: destroyed %s on device #%d", m, m.device.ordinal)
}

// releaseView drops one live mipmapped array borrow.
func (m *ExternalMemory) releaseView() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views--
}
