package cudadriver_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/gocuda/cudadriver"
)

func TestResultString(t *testing.T) {
	require.Equal(t, "CUDA_SUCCESS", cudadriver.Success.String())
	require.Equal(t, "CUDA_ERROR_INVALID_VALUE", cudadriver.ErrorInvalidValue.String())
	require.Equal(t, "CUDA_ERROR_INVALID_CONTEXT", cudadriver.ErrorInvalidContext.String())
	require.Equal(t, "CUresult(12345)", cudadriver.Result(12345).String())
}

func TestErrorOrNil(t *testing.T) {
	require.NoError(t, cudadriver.ErrorOrNil("cuMemFree", cudadriver.Success))

	err := cudadriver.ErrorOrNil("cuImportExternalMemory", cudadriver.ErrorInvalidHandle)
	require.Error(t, err)
	require.Equal(t, "cuImportExternalMemory failed with CUDA_ERROR_INVALID_HANDLE", err.Error())

	// The typed error survives wrapping.
	wrapped := errors.WithMessage(err, "importing external memory")
	var driverErr *cudadriver.Error
	require.ErrorAs(t, wrapped, &driverErr)
	require.Equal(t, "cuImportExternalMemory", driverErr.Call)
	require.Equal(t, cudadriver.ErrorInvalidHandle, driverErr.Result)
}
