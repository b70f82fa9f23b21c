package cudadriver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/gocuda/cudadriver"
	"github.com/gomlx/gocuda/cudadriver/drivertest"
)

func TestRegistry(t *testing.T) {
	// Importing drivertest registers the "test" driver.
	driver, err := cudadriver.NewWithConfig("test")
	require.NoError(t, err)
	require.IsType(t, &drivertest.Driver{}, driver)

	driver, err = cudadriver.NewWithConfig("test:whatever config")
	require.NoError(t, err)
	require.NotNil(t, driver)

	require.Panics(t, func() { _, _ = cudadriver.NewWithConfig("no_such_driver:") })
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(cudadriver.GOCUDA_DRIVER, "test")
	driver, err := cudadriver.New()
	require.NoError(t, err)
	require.IsType(t, &drivertest.Driver{}, driver)
}
