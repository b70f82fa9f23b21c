package drivertest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/gocuda/cudadriver"
)

func TestLifecycleTracking(t *testing.T) {
	d := New()
	dev, err := d.DeviceGet(0)
	require.NoError(t, err)
	ctx, err := d.DevicePrimaryCtxRetain(dev)
	require.NoError(t, err)
	require.NoError(t, d.CtxSetCurrent(ctx))
	require.Error(t, d.CtxSetCurrent(0))

	mem, err := d.ImportExternalMemory(42, 1024, cudadriver.HandleTypeCodeOpaqueFD)
	require.NoError(t, err)

	ptr, err := d.ExternalMemoryGetMappedBuffer(mem, 0, 1024)
	require.NoError(t, err)
	require.NotZero(t, ptr)

	// The import cannot be destroyed under a live mapping.
	require.Error(t, d.DestroyExternalMemory(mem))

	require.NoError(t, d.MemFree(ptr))
	require.Error(t, d.MemFree(ptr)) // double free
	require.NoError(t, d.DestroyExternalMemory(mem))
	require.Error(t, d.DestroyExternalMemory(mem)) // double destroy

	memories, buffers, arrays := d.LiveObjects()
	require.Zero(t, memories)
	require.Zero(t, buffers)
	require.Zero(t, arrays)
}

func TestMappingBounds(t *testing.T) {
	d := New()
	mem, err := d.ImportExternalMemory(42, 100, cudadriver.HandleTypeCodeOpaqueFD)
	require.NoError(t, err)

	_, err = d.ExternalMemoryGetMappedBuffer(mem, 50, 51)
	require.Error(t, err)
	_, err = d.ExternalMemoryGetMappedBuffer(mem, 100, 0)
	require.NoError(t, err)

	_, err = d.ExternalMemoryGetMappedMipmappedArray(mem, 100, 100)
	require.Error(t, err) // 100x100 > 100 bytes
}

func TestMipChain(t *testing.T) {
	d := New()
	mem, err := d.ImportExternalMemory(42, 1<<20, cudadriver.HandleTypeCodeOpaqueFD)
	require.NoError(t, err)

	// Default: full chain, 1+floor(log2(16)) = 5 levels.
	arr, err := d.ExternalMemoryGetMappedMipmappedArray(mem, 16, 16)
	require.NoError(t, err)
	_, err = d.MipmappedArrayGetLevel(arr, 4)
	require.NoError(t, err)
	_, err = d.MipmappedArrayGetLevel(arr, 5)
	require.Error(t, err)

	d.SetMipLevels(4)
	arr, err = d.ExternalMemoryGetMappedMipmappedArray(mem, 16, 16)
	require.NoError(t, err)
	_, err = d.MipmappedArrayGetLevel(arr, 3)
	require.NoError(t, err)
	_, err = d.MipmappedArrayGetLevel(arr, 4)
	require.Error(t, err)
}

func TestFailureInjectionAndRecording(t *testing.T) {
	d := New()
	d.FailWith("cuImportExternalMemory", cudadriver.ErrorOutOfMemory)
	_, err := d.ImportExternalMemory(42, 1024, cudadriver.HandleTypeCodeOpaqueFD)
	require.Error(t, err)
	var driverErr *cudadriver.Error
	require.ErrorAs(t, err, &driverErr)
	require.Equal(t, cudadriver.ErrorOutOfMemory, driverErr.Result)

	// The failed call was still recorded, with its arguments.
	require.Equal(t, 1, d.CallCount("cuImportExternalMemory"))
	call, found := d.LastCall("cuImportExternalMemory")
	require.True(t, found)
	require.Equal(t, []uint64{42, 1024, uint64(cudadriver.HandleTypeCodeOpaqueFD)}, call.Args)

	d.FailWith("cuImportExternalMemory", cudadriver.Success)
	_, err = d.ImportExternalMemory(42, 1024, cudadriver.HandleTypeCodeOpaqueFD)
	require.NoError(t, err)
	require.Equal(t, []string{"cuImportExternalMemory", "cuImportExternalMemory"}, d.CallNames())
}
