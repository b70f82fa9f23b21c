//go:build unix

package cuda_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/gocuda/cuda"
	"github.com/gomlx/gocuda/cudadriver"
)

func TestHandleTypeCode(t *testing.T) {
	require.Equal(t, cudadriver.HandleTypeCodeOpaqueFD, cuda.HandleTypeFileDescriptor.Code())
	require.Equal(t, cudadriver.HandleTypeCodeNvSciBuf, cuda.HandleTypeNvSciBuf.Code())

	// Windows-only kinds are not constructible here; a forged value panics.
	require.Panics(t, func() { cuda.HandleType(cudadriver.HandleTypeCodeOpaqueWin32).Code() })
	require.Panics(t, func() { cuda.HandleType(0).Code() })
}

func TestHandleTypeFromCode(t *testing.T) {
	for code, want := range map[cudadriver.HandleTypeCode]cuda.HandleType{
		cudadriver.HandleTypeCodeOpaqueFD: cuda.HandleTypeFileDescriptor,
		cudadriver.HandleTypeCodeNvSciBuf: cuda.HandleTypeNvSciBuf,
	} {
		got, err := cuda.HandleTypeFromCode(code)
		require.NoError(t, err)
		require.Equal(t, want, got)
		// Round trip.
		require.Equal(t, code, got.Code())
	}

	// Codes of the other platform family fail (no panic), as do unknown codes.
	for _, code := range []cudadriver.HandleTypeCode{
		cudadriver.HandleTypeCodeOpaqueWin32,
		cudadriver.HandleTypeCodeD3D12Heap,
		0, 42,
	} {
		_, err := cuda.HandleTypeFromCode(code)
		require.Error(t, err)
	}
}

func TestHandleTypeString(t *testing.T) {
	require.Equal(t, "FileDescriptor", cuda.HandleTypeFileDescriptor.String())
	require.Equal(t, "NvSciBuf", cuda.HandleTypeNvSciBuf.String())
	require.Equal(t, "HandleType(7)", cuda.HandleType(7).String())
}
