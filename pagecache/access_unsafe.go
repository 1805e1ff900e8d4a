//go:build (amd64 || arm64 || 386 || riscv64 || loong64 || ppc64le || wasm) && !purego

package pagecache

import "unsafe"

// Raw loads on little-endian targets. Offsets come from block headers that
// the skip-list codec has validated against the block size, so no bounds
// checks are performed here.

func loadUint32(b []byte, off int) uint32 {
	return *(*uint32)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), off))
}

func loadUint64(b []byte, off int) uint64 {
	return *(*uint64)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), off))
}

func loadUint64s(dst []uint64, b []byte, off int) {
	if len(dst) == 0 {
		return
	}
	src := unsafe.Slice((*uint64)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), off)), len(dst))
	copy(dst, src)
}
