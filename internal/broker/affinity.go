package broker

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinWorkerThread locks the calling goroutine to its current OS thread and
// restricts it to a contiguous range of CPUs, one range per worker, so
// encoder children inherit a stable affinity instead of migrating across
// cores mid-encode. Best-effort: failures are silently ignored, since
// affinity is a scheduling hint, not a correctness requirement.
func pinWorkerThread(workerID, threadsPerWorker int) {
	if threadsPerWorker <= 0 {
		return
	}
	runtime.LockOSThread()

	numCPU := runtime.NumCPU()
	var set unix.CPUSet
	set.Zero()
	start := (workerID * threadsPerWorker) % numCPU
	for i := 0; i < threadsPerWorker; i++ {
		set.Set((start + i) % numCPU)
	}
	_ = unix.SchedSetaffinity(0, &set)
}
