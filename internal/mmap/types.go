package mmap

import "errors"

// AccessPattern is a hint to the kernel about how mapped memory will be used.
type AccessPattern int

const (
	// AccessDefault applies no specific advice.
	AccessDefault AccessPattern = iota
	// AccessSequential expects forward sequential access.
	AccessSequential
	// AccessRandom expects random access.
	AccessRandom
	// AccessWillNeed expects access in the near future.
	AccessWillNeed
	// AccessDontNeed expects no access in the near future.
	AccessDontNeed
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for a negative file size or a non-positive allocation.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
