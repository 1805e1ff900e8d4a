// Package directio opens files for unbuffered, block-aligned reads.
//
// On Linux files are opened with O_DIRECT, on Darwin the F_NOCACHE flag is
// set after open. Other platforms, and file systems that reject O_DIRECT,
// fall back to ordinary buffered reads; callers can check File.Direct.
//
// Direct reads must use offsets, lengths and buffer addresses aligned to
// BlockSize. Memory from internal/mmap arenas satisfies the buffer rule.
package directio
