package cuda

import (
	"fmt"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/gocuda/cudadriver"
)

// MipmappedArray is a mipmapped-array view over imported external memory.
//
// Unlike MapRange, ExternalMemory.MipmappedArray only borrows its source: any number
// of views may coexist over the same import, each destroyed independently via Close,
// in any order -- but all of them before the source ExternalMemory itself is closed.
type MipmappedArray struct {
	arr           cudadriver.MipmappedArray
	width, height uint64
	mem           *ExternalMemory

	mu     sync.Mutex
	closed bool
}

// MipmappedArray maps the external memory as a width x height mipmapped array.
//
// It borrows m without consuming it: the call is repeatable and m remains usable,
// except that it cannot be consumed (MapRange) or closed while views are live.
// Dimensions exceeding the underlying allocation surface as a driver error.
func (m *ExternalMemory) MipmappedArray(width, height uint64) (*MipmappedArray, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertValidLocked()
	arr, err := m.device.driver.ExternalMemoryGetMappedMipmappedArray(m.mem, width, height)
	if err != nil {
		return nil, errors.WithMessagef(err, "mapping %s as %dx%d mipmapped array", m, width, height)
	}
	m.views++
	return &MipmappedArray{
		arr:    arr,
		width:  width,
		height: height,
		mem:    m,
	}, nil
}

// Width returns the width in elements the view was created with.
func (a *MipmappedArray) Width() uint64 { return a.width }

// Height returns the height in elements the view was created with.
func (a *MipmappedArray) Height() uint64 { return a.height }

// String implements fmt.Stringer.
func (a *MipmappedArray) String() string {
	return fmt.Sprintf("MipmappedArray(%dx%d of %s)", a.width, a.height, a.mem)
}

// Level returns the native array of the given mip level. If you don't know which
// level, you most likely want level 0.
//
// The depth of the mip chain is known only to the driver: out-of-range levels fail
// with a driver error, no local bound is enforced.
func (a *MipmappedArray) Level(level uint32) (cudadriver.Array, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		exceptions.Panicf("%s was already closed", a)
	}
	arr, err := a.mem.device.driver.MipmappedArrayGetLevel(a.arr, level)
	if err != nil {
		return 0, errors.WithMessagef(err, "getting level %d of %s", level, a)
	}
	return arr, nil
}

// Close destroys the native mipmapped array and releases the borrow on the source
// ExternalMemory. Closing an already closed view is a no-op.
//
// Native failure here is unrecoverable and aborts via klog.Fatalf.
func (a *MipmappedArray) Close() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	// TODO: this destroy is issued without re-binding the owning context, unlike
	// every other teardown path in this package. Revisit whether it needs a
	// BindToThread first; TestMipmappedArrayCloseDoesNotRebind pins the current
	// behavior.
	if err := a.mem.device.driver.MipmappedArrayDestroy(a.arr); err != nil {
		klog.Fatalf("cuda: destroying %s: %+v", a, err)
	}
	a.closed = true
	a.mem.releaseView()
}
