// Package mmap provides the off-heap memory behind the page cache and
// read-only file mappings for local blobs.
//
// # Usage
//
//	arena, err := mmap.NewArena(64, 512) // 64 slots of 512 bytes
//	if err != nil { ... }
//	defer arena.Close()
//
//	slot := arena.Slot(3)
//
//	m, err := mmap.Open("postings.dat") // read-only file view
//	data := m.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2), anonymous private mappings, madvise(2)
//   - Windows: CreateFileMapping/MapViewOfFile and VirtualAlloc (advice is a no-op)
//
// # Thread Safety
//
// Mapping and Arena may be read concurrently. Close is idempotent; callers must
// make sure nothing touches the memory after Close returns.
package mmap
