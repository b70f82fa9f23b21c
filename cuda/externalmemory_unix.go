//go:build unix

package cuda

// OSHandle is the raw OS-level memory handle of this platform: a file descriptor.
type OSHandle int

// retainedHandle is the unix side of the platform-divergent handle ownership: a
// successful import transfers ownership of the file descriptor to the driver, so
// nothing is retained here and release never closes anything -- closing the fd after
// the transfer is undefined behavior.
type retainedHandle struct{}

func retainHandle(OSHandle) retainedHandle { return retainedHandle{} }

func (retainedHandle) release() {}
