//go:build !(amd64 || arm64 || 386 || riscv64 || loong64 || ppc64le || wasm) || purego

package pagecache

import "encoding/binary"

func loadUint32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

func loadUint64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off:])
}

func loadUint64s(dst []uint64, b []byte, off int) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint64(b[off+8*i:])
	}
}
