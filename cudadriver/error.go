package cudadriver

import "fmt"

// Result is the native status code returned by every driver entry point (CUresult).
// CUDA_SUCCESS (0) is never carried inside an *Error.
type Result int

// Native status codes this module knows by name. The driver may return codes outside
// this list; they still flow through unchanged, only String falls back to the numeric
// form.
const (
	Success              Result = 0
	ErrorInvalidValue    Result = 1
	ErrorOutOfMemory     Result = 2
	ErrorNotInitialized  Result = 3
	ErrorDeinitialized   Result = 4
	ErrorInvalidContext  Result = 201
	ErrorOperatingSystem Result = 304
	ErrorInvalidHandle   Result = 400
	ErrorNotSupported    Result = 801
	ErrorUnknown         Result = 999
)

var resultNames = map[Result]string{
	Success:              "CUDA_SUCCESS",
	ErrorInvalidValue:    "CUDA_ERROR_INVALID_VALUE",
	ErrorOutOfMemory:     "CUDA_ERROR_OUT_OF_MEMORY",
	ErrorNotInitialized:  "CUDA_ERROR_NOT_INITIALIZED",
	ErrorDeinitialized:   "CUDA_ERROR_DEINITIALIZED",
	ErrorInvalidContext:  "CUDA_ERROR_INVALID_CONTEXT",
	ErrorOperatingSystem: "CUDA_ERROR_OPERATING_SYSTEM",
	ErrorInvalidHandle:   "CUDA_ERROR_INVALID_HANDLE",
	ErrorNotSupported:    "CUDA_ERROR_NOT_SUPPORTED",
	ErrorUnknown:         "CUDA_ERROR_UNKNOWN",
}

// String returns the driver's symbolic name of the code, or "CUresult(<n>)" for codes
// without a known name.
func (r Result) String() string {
	if name, found := resultNames[r]; found {
		return name
	}
	return fmt.Sprintf("CUresult(%d)", int(r))
}

// Error is the structured error reported for a failed native call. Call is the driver
// entry point name ("cuImportExternalMemory", ...), Result the native status code.
//
// Layers above wrap it with more context (see github.com/pkg/errors); use errors.As
// to recover the typed value.
type Error struct {
	Call   string
	Result Result
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s failed with %s", e.Call, e.Result)
}

// ErrorOrNil returns nil if r is Success, and a *Error for the given call otherwise.
func ErrorOrNil(call string, r Result) error {
	if r == Success {
		return nil
	}
	return &Error{Call: call, Result: r}
}
