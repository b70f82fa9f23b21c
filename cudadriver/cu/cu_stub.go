//go:build !cuda || !cgo

// Package cu implements cudadriver.Driver over the CUDA driver API via cgo.
//
// This is the stub compiled without the "cuda" build tag (or without cgo): it still
// registers driver "cuda" so selection errors are informative, but construction
// always fails.
package cu

import (
	"github.com/pkg/errors"

	"github.com/gomlx/gocuda/cudadriver"
)

func init() {
	cudadriver.Register("cuda", New)
}

// New always fails: this binary was built without CUDA support.
func New(config string) (cudadriver.Driver, error) {
	return nil, errors.New(`driver "cuda" is not available: rebuild with -tags cuda and cgo enabled`)
}
