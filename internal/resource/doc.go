// Package resource governs the memory and background IO of page caches.
//
//   - Memory: page arenas reserve their full size up front (non-blocking, fail-fast)
//   - Background slots: bound how many prefetch reads run at once
//   - IO: a token bucket paces prefetch reads so they do not starve foreground misses
//
// # Usage
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     1 << 30,
//	    MaxBackgroundWorkers: 2,
//	    IOLimitBytesPerSec:   64 << 20,
//	})
//
//	if err := rc.AcquireMemory(arenaSize); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(arenaSize)
//
//	if rc.TryAcquireBackground() {
//	    defer rc.ReleaseBackground()
//	    _ = rc.AcquireIO(ctx, pageSize)
//	}
//
// All methods are safe for concurrent use, and all of them are no-ops on a
// nil *Controller so limits stay optional.
package resource
