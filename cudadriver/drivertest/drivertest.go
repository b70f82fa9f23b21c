// Package drivertest implements a pure-Go, in-memory cudadriver.Driver for tests.
//
// It hands out synthetic non-null identifiers, tracks the liveness of every object it
// creates, records every native call in order (with its scalar arguments) and
// supports per-entry-point failure injection, so tests can assert both outcomes and
// the exact native call sequence without a GPU.
//
// The driver mimics the checks a real driver performs where the layers above rely on
// them: destroying an import with live mappings, mapping beyond the declared size,
// querying a mip level beyond the chain or double-destroying anything all fail with
// the corresponding native status code.
package drivertest

import (
	"math/bits"
	"sync"

	"github.com/gomlx/gocuda/cudadriver"
)

// Compile-time check:
var _ cudadriver.Driver = (*Driver)(nil)

func init() {
	cudadriver.Register("test", func(config string) (cudadriver.Driver, error) {
		return New(), nil
	})
}

// Call is one recorded native call: the driver entry point name and its scalar
// arguments in declaration order.
type Call struct {
	Name string
	Args []uint64
}

// Driver is the in-memory test driver. Create it with New; the zero value is not
// usable.
type Driver struct {
	mu    sync.Mutex
	calls []Call
	fail  map[string]cudadriver.Result
	next  uintptr

	ctx      cudadriver.Context
	memories map[cudadriver.ExternalMemory]*memObject
	buffers  map[cudadriver.DevicePtr]*bufObject
	arrays   map[cudadriver.MipmappedArray]*arrayObject

	// mipLevels fixes the chain depth of every created mipmapped array; 0 derives
	// it from the dimensions (full chain).
	mipLevels int
}

type memObject struct {
	handle    uintptr
	sizeBytes uint64
	code      cudadriver.HandleTypeCode
	destroyed bool
}

type bufObject struct {
	mem               cudadriver.ExternalMemory
	offset, sizeBytes uint64
	freed             bool
}

type arrayObject struct {
	mem           cudadriver.ExternalMemory
	width, height uint64
	levels        int
	levelArrays   map[uint32]cudadriver.Array
	destroyed     bool
}

// New returns an empty test driver.
func New() *Driver {
	return &Driver{
		fail:     make(map[string]cudadriver.Result),
		memories: make(map[cudadriver.ExternalMemory]*memObject),
		buffers:  make(map[cudadriver.DevicePtr]*bufObject),
		arrays:   make(map[cudadriver.MipmappedArray]*arrayObject),
	}
}

// SetMipLevels fixes the mip chain depth of arrays created afterwards. n == 0
// restores the default of a full chain derived from the dimensions.
func (d *Driver) SetMipLevels(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mipLevels = n
}

// FailWith makes every following native call with the given entry point name fail
// with the given status code, until cleared with result cudadriver.Success.
func (d *Driver) FailWith(call string, result cudadriver.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if result == cudadriver.Success {
		delete(d.fail, call)
		return
	}
	d.fail[call] = result
}

// Calls returns a copy of every native call recorded so far, in issue order.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls := make([]Call, len(d.calls))
	copy(calls, d.calls)
	return calls
}

// CallNames returns the entry point names of every recorded call, in issue order.
func (d *Driver) CallNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.calls))
	for ii, call := range d.calls {
		names[ii] = call.Name
	}
	return names
}

// CallCount returns how many calls to the given entry point were recorded.
func (d *Driver) CallCount(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, call := range d.calls {
		if call.Name == name {
			count++
		}
	}
	return count
}

// LastCall returns the latest recorded call to the given entry point.
func (d *Driver) LastCall(name string) (Call, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ii := len(d.calls) - 1; ii >= 0; ii-- {
		if d.calls[ii].Name == name {
			return d.calls[ii], true
		}
	}
	return Call{}, false
}

// LiveObjects returns how many imported memories, mapped buffers and mipmapped
// arrays are still live (created and not yet destroyed/freed).
func (d *Driver) LiveObjects() (memories, buffers, arrays int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.memories {
		if !m.destroyed {
			memories++
		}
	}
	for _, b := range d.buffers {
		if !b.freed {
			buffers++
		}
	}
	for _, a := range d.arrays {
		if !a.destroyed {
			arrays++
		}
	}
	return
}

// record appends the call and returns the injected failure for it, if any. d.mu must
// be held.
func (d *Driver) record(name string, args ...uint64) error {
	d.calls = append(d.calls, Call{Name: name, Args: args})
	if result, found := d.fail[name]; found {
		return &cudadriver.Error{Call: name, Result: result}
	}
	return nil
}

// token returns a fresh non-null identifier. d.mu must be held.
func (d *Driver) token() uintptr {
	d.next++
	return d.next
}

func (d *Driver) DeviceGet(ordinal int) (cudadriver.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuDeviceGet", uint64(ordinal)); err != nil {
		return 0, err
	}
	if ordinal < 0 {
		return 0, &cudadriver.Error{Call: "cuDeviceGet", Result: cudadriver.ErrorInvalidValue}
	}
	return cudadriver.Device(ordinal), nil
}

func (d *Driver) DevicePrimaryCtxRetain(dev cudadriver.Device) (cudadriver.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuDevicePrimaryCtxRetain", uint64(dev)); err != nil {
		return 0, err
	}
	if d.ctx == 0 {
		d.ctx = cudadriver.Context(d.token())
	}
	return d.ctx, nil
}

func (d *Driver) CtxSetCurrent(ctx cudadriver.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuCtxSetCurrent", uint64(ctx)); err != nil {
		return err
	}
	if ctx == 0 || ctx != d.ctx {
		return &cudadriver.Error{Call: "cuCtxSetCurrent", Result: cudadriver.ErrorInvalidContext}
	}
	return nil
}

func (d *Driver) ImportExternalMemory(handle uintptr, sizeBytes uint64, code cudadriver.HandleTypeCode) (cudadriver.ExternalMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuImportExternalMemory", uint64(handle), sizeBytes, uint64(code)); err != nil {
		return 0, err
	}
	if code < cudadriver.HandleTypeCodeOpaqueFD || code > cudadriver.HandleTypeCodeNvSciBuf {
		return 0, &cudadriver.Error{Call: "cuImportExternalMemory", Result: cudadriver.ErrorInvalidValue}
	}
	mem := cudadriver.ExternalMemory(d.token())
	d.memories[mem] = &memObject{handle: handle, sizeBytes: sizeBytes, code: code}
	return mem, nil
}

func (d *Driver) DestroyExternalMemory(mem cudadriver.ExternalMemory) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuDestroyExternalMemory", uint64(mem)); err != nil {
		return err
	}
	obj, found := d.memories[mem]
	if !found || obj.destroyed {
		return &cudadriver.Error{Call: "cuDestroyExternalMemory", Result: cudadriver.ErrorInvalidHandle}
	}
	for _, b := range d.buffers {
		if b.mem == mem && !b.freed {
			return &cudadriver.Error{Call: "cuDestroyExternalMemory", Result: cudadriver.ErrorInvalidValue}
		}
	}
	for _, a := range d.arrays {
		if a.mem == mem && !a.destroyed {
			return &cudadriver.Error{Call: "cuDestroyExternalMemory", Result: cudadriver.ErrorInvalidValue}
		}
	}
	obj.destroyed = true
	return nil
}

func (d *Driver) ExternalMemoryGetMappedBuffer(mem cudadriver.ExternalMemory, offset, sizeBytes uint64) (cudadriver.DevicePtr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuExternalMemoryGetMappedBuffer", uint64(mem), offset, sizeBytes); err != nil {
		return 0, err
	}
	obj, found := d.memories[mem]
	if !found || obj.destroyed {
		return 0, &cudadriver.Error{Call: "cuExternalMemoryGetMappedBuffer", Result: cudadriver.ErrorInvalidHandle}
	}
	if offset+sizeBytes > obj.sizeBytes {
		return 0, &cudadriver.Error{Call: "cuExternalMemoryGetMappedBuffer", Result: cudadriver.ErrorInvalidValue}
	}
	ptr := cudadriver.DevicePtr(d.token())
	d.buffers[ptr] = &bufObject{mem: mem, offset: offset, sizeBytes: sizeBytes}
	return ptr, nil
}

func (d *Driver) ExternalMemoryGetMappedMipmappedArray(mem cudadriver.ExternalMemory, width, height uint64) (cudadriver.MipmappedArray, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuExternalMemoryGetMappedMipmappedArray", uint64(mem), width, height); err != nil {
		return 0, err
	}
	obj, found := d.memories[mem]
	if !found || obj.destroyed {
		return 0, &cudadriver.Error{Call: "cuExternalMemoryGetMappedMipmappedArray", Result: cudadriver.ErrorInvalidHandle}
	}
	// One byte per element, a mock simplification.
	if width == 0 || height == 0 || width*height > obj.sizeBytes {
		return 0, &cudadriver.Error{Call: "cuExternalMemoryGetMappedMipmappedArray", Result: cudadriver.ErrorInvalidValue}
	}
	levels := d.mipLevels
	if levels == 0 {
		levels = bits.Len64(max(width, height)) // full chain: 1+floor(log2(n))
	}
	arr := cudadriver.MipmappedArray(d.token())
	d.arrays[arr] = &arrayObject{
		mem:         mem,
		width:       width,
		height:      height,
		levels:      levels,
		levelArrays: make(map[uint32]cudadriver.Array),
	}
	return arr, nil
}

func (d *Driver) MipmappedArrayGetLevel(arr cudadriver.MipmappedArray, level uint32) (cudadriver.Array, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuMipmappedArrayGetLevel", uint64(arr), uint64(level)); err != nil {
		return 0, err
	}
	obj, found := d.arrays[arr]
	if !found || obj.destroyed {
		return 0, &cudadriver.Error{Call: "cuMipmappedArrayGetLevel", Result: cudadriver.ErrorInvalidHandle}
	}
	if int(level) >= obj.levels {
		return 0, &cudadriver.Error{Call: "cuMipmappedArrayGetLevel", Result: cudadriver.ErrorInvalidValue}
	}
	levelArr, found := obj.levelArrays[level]
	if !found {
		levelArr = cudadriver.Array(d.token())
		obj.levelArrays[level] = levelArr
	}
	return levelArr, nil
}

func (d *Driver) MipmappedArrayDestroy(arr cudadriver.MipmappedArray) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuMipmappedArrayDestroy", uint64(arr)); err != nil {
		return err
	}
	obj, found := d.arrays[arr]
	if !found || obj.destroyed {
		return &cudadriver.Error{Call: "cuMipmappedArrayDestroy", Result: cudadriver.ErrorInvalidHandle}
	}
	obj.destroyed = true
	return nil
}

func (d *Driver) MemFree(ptr cudadriver.DevicePtr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("cuMemFree", uint64(ptr)); err != nil {
		return err
	}
	obj, found := d.buffers[ptr]
	if !found || obj.freed {
		return &cudadriver.Error{Call: "cuMemFree", Result: cudadriver.ErrorInvalidValue}
	}
	obj.freed = true
	return nil
}
