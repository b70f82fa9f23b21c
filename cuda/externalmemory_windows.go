//go:build windows

package cuda

import (
	"golang.org/x/sys/windows"
	"k8s.io/klog/v2"
)

// OSHandle is the raw OS-level memory handle of this platform: an NT (or KMT)
// HANDLE.
type OSHandle windows.Handle

// closeOSHandle releases a retained handle. A variable so tests can count releases.
var closeOSHandle = func(h OSHandle) error {
	return windows.CloseHandle(windows.Handle(h))
}

// retainedHandle is the windows side of the platform-divergent handle ownership: the
// driver does not take ownership of the handle on import, so the ExternalMemory
// retains it and closes it exactly once, when the external memory itself is
// destroyed.
type retainedHandle struct {
	handle OSHandle
}

func retainHandle(h OSHandle) retainedHandle { return retainedHandle{handle: h} }

func (r retainedHandle) release() {
	if err := closeOSHandle(r.handle); err != nil {
		klog.Errorf("cuda: closing retained OS handle %#x: %v", uintptr(r.handle), err)
	}
}
