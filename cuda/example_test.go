//go:build unix

package cuda_test

import (
	"fmt"

	"github.com/janpfeifer/must"

	"github.com/gomlx/gocuda/cuda"
	"github.com/gomlx/gocuda/cudadriver/drivertest"
)

// Example runs the full external memory lifecycle against the in-memory test
// driver; with the cgo driver (import _ ".../cudadriver/cu" and build with
// -tags cuda) the handle would be a real memory object fd, e.g. exported by Vulkan.
func Example() {
	driver := drivertest.New()
	dev := must.M1(cuda.NewDevice(driver, 0))

	mem := must.M1(dev.ImportExternalMemory(cuda.OSHandle(3), 1024, cuda.HandleTypeFileDescriptor))
	fmt.Println(mem)

	// A mipmapped view borrows the import and is released independently.
	arr := must.M1(mem.MipmappedArray(16, 16))
	level0 := must.M1(arr.Level(0))
	fmt.Println(arr, "level 0:", level0 != 0)
	arr.Close()

	// Mapping consumes the import; closing the buffer releases everything.
	buf := must.M1(mem.MapRange(0, 512))
	fmt.Println(buf)
	buf.Close()

	// Output:
	// ExternalMemory(1.0 KiB)
	// MipmappedArray(16x16 of ExternalMemory(1.0 KiB)) level 0: true
	// MappedBuffer(512 B of ExternalMemory(1.0 KiB))
}
