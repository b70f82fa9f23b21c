// Package cuda implements safe lifetime management over the CUDA driver's external
// memory interop: importing memory allocated outside the current process or API
// (Vulkan, Direct3D, shared-memory objects, NvSciBuf) and mapping it into device
// pointers or mipmapped arrays usable by compute kernels.
//
// The native driver is consumed strictly through the cudadriver.Driver interface;
// import _ "github.com/gomlx/gocuda/cudadriver/cu" for the default cgo-backed driver.
//
// Resource model:
//
//   - ExternalMemory owns one imported native object. Created by
//     Device.ImportExternalMemory, released by Close (or by the MappedBuffer that
//     consumed it).
//   - MappedBuffer is a device-pointer view over a byte range. ExternalMemory.MapRange
//     consumes the source: at most one MappedBuffer ever exists per import, and any
//     further use of the consumed ExternalMemory panics.
//   - MipmappedArray borrows its source without consuming it; any number may coexist,
//     but every view must be closed before the source is.
//
// Error conventions follow the rest of the GoMLX ecosystem: native driver failures are
// returned as errors (wrapping a *cudadriver.Error); caller contract violations, like
// an out-of-bounds map range or use of a consumed handle, panic with an exception (see
// github.com/gomlx/exceptions); failures on the teardown paths have no caller to
// report to and abort via klog.Fatalf.
package cuda

import (
	"github.com/pkg/errors"

	"github.com/gomlx/gocuda/cudadriver"
)

// Device represents one CUDA device with its retained primary context.
//
// It is shared (by pointer) across every resource derived from it and outlives them
// all; derived resources only ever ask for the context to be made current, never
// change it.
type Device struct {
	driver  cudadriver.Driver
	dev     cudadriver.Device
	ctx     cudadriver.Context
	ordinal int
}

// NewDevice returns the device with the given ordinal, with its primary context
// retained.
func NewDevice(driver cudadriver.Driver, ordinal int) (*Device, error) {
	dev, err := driver.DeviceGet(ordinal)
	if err != nil {
		return nil, errors.WithMessagef(err, "getting CUDA device #%d", ordinal)
	}
	ctx, err := driver.DevicePrimaryCtxRetain(dev)
	if err != nil {
		return nil, errors.WithMessagef(err, "retaining primary context of CUDA device #%d", ordinal)
	}
	return &Device{
		driver:  driver,
		dev:     dev,
		ctx:     ctx,
		ordinal: ordinal,
	}, nil
}

// BindToThread makes the device's context current on the calling thread.
//
// The current context is per-thread global state owned by the driver, so this must be
// re-established before every operation touching the device's memory -- all methods in
// this package that need it call BindToThread themselves.
func (d *Device) BindToThread() error {
	if err := d.driver.CtxSetCurrent(d.ctx); err != nil {
		return errors.WithMessagef(err, "binding context of CUDA device #%d to current thread", d.ordinal)
	}
	return nil
}

// Ordinal returns the device ordinal this Device was created with.
func (d *Device) Ordinal() int { return d.ordinal }

// Driver returns the underlying driver implementation.
func (d *Device) Driver() cudadriver.Driver { return d.driver }
