package skiplist

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// footerTrailerSize covers the three reserved bytes, the magic length byte
// and the block size that close every footer block.
const footerTrailerSize = 8

// MaxMagicLength is the longest magic word a footer can carry.
const MaxMagicLength = 255

func checkMagic(magic string) error {
	if len(magic) > MaxMagicLength || len(magic) >= BlockSize-HeaderSize-footerTrailerSize {
		return fmt.Errorf("%w: %d bytes", ErrMagicTooLong, len(magic))
	}
	return nil
}

// ValidateFooter checks that the last block of the size-byte file behind r
// is a footer carrying magic and this package's block size.
func ValidateFooter(r io.ReaderAt, size int64, magic string) error {
	if err := checkMagic(magic); err != nil {
		return err
	}
	if size < BlockSize || size%BlockSize != 0 {
		return fmt.Errorf("%w: file size %d", ErrBadFooter, size)
	}

	b := make([]byte, BlockSize)
	if _, err := r.ReadAt(b, size-BlockSize); err != nil {
		return fmt.Errorf("skiplist: read footer: %w", err)
	}

	if !DecodeHeader(b).IsFooter() {
		return fmt.Errorf("%w: last block is not a footer", ErrBadFooter)
	}
	if bs := byteOrder.Uint32(b[BlockSize-4:]); bs != BlockSize {
		return fmt.Errorf("%w: file has %d, expected %d", ErrBlockSizeMismatch, bs, BlockSize)
	}

	trailer := BlockSize - len(magic) - footerTrailerSize
	stored := int(b[BlockSize-5])
	if stored != len(magic) || !bytes.Equal(b[trailer:trailer+len(magic)], []byte(magic)) {
		return fmt.Errorf("%w: magic word mismatch", ErrBadFooter)
	}
	return nil
}

// ValidateFooterFile is ValidateFooter on the file at path.
func ValidateFooterFile(path, magic string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	return ValidateFooter(f, fi.Size(), magic)
}

// ReadFooterMagic returns the magic word stored in the footer of the file
// behind r, without knowing it in advance.
func ReadFooterMagic(r io.ReaderAt, size int64) (string, error) {
	if size < BlockSize || size%BlockSize != 0 {
		return "", fmt.Errorf("%w: file size %d", ErrBadFooter, size)
	}

	b := make([]byte, BlockSize)
	if _, err := r.ReadAt(b, size-BlockSize); err != nil {
		return "", fmt.Errorf("skiplist: read footer: %w", err)
	}
	if !DecodeHeader(b).IsFooter() {
		return "", fmt.Errorf("%w: last block is not a footer", ErrBadFooter)
	}

	n := int(b[BlockSize-5])
	trailer := BlockSize - n - footerTrailerSize
	if trailer < HeaderSize {
		return "", fmt.Errorf("%w: magic length %d", ErrBadFooter, n)
	}
	return string(b[trailer : trailer+n]), nil
}
