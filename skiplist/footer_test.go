package skiplist

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWithFooter(t *testing.T, magic string, opts ...Option) (string, int64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.skl")

	w, err := Create(path, opts...)
	require.NoError(t, err)

	keys, values := sequence(3)
	start, err := w.WriteList(keys, values)
	require.NoError(t, err)
	require.NoError(t, w.WriteFooter(magic))
	require.NoError(t, w.Close())
	return path, start
}

func TestFooter_Layout(t *testing.T) {
	path, _ := writeWithFooter(t, "ftstore")
	data := readFile(t, path)
	require.Len(t, data, 2*BlockSize)

	footer := data[BlockSize:]
	assert.Equal(t, Header{Flags: FlagFooterBlock}, DecodeHeader(footer))
	assert.Equal(t, "ftstore", string(footer[BlockSize-15:BlockSize-8]))
	assert.Equal(t, []byte{0, 0, 0, 7, 0, 2, 0, 0}, footer[BlockSize-8:])

	require.NoError(t, ValidateFooterFile(path, "ftstore"))

	magic, err := ReadFooterMagic(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "ftstore", magic)
}

func TestFooter_EndsOnAlignment(t *testing.T) {
	path, _ := writeWithFooter(t, "m", WithFileAlignment(4096))
	data := readFile(t, path)
	require.Len(t, data, 4096)
	assert.True(t, DecodeHeader(data[4096-BlockSize:]).IsFooter())
	assert.NoError(t, ValidateFooterFile(path, "m"))
}

func TestFooter_Validation(t *testing.T) {
	path, _ := writeWithFooter(t, "ftstore")
	data := readFile(t, path)

	assert.ErrorIs(t, ValidateFooterFile(path, "ftstorf"), ErrBadFooter)
	assert.ErrorIs(t, ValidateFooterFile(path, "other"), ErrBadFooter)
	assert.ErrorIs(t, ValidateFooterFile(path, strings.Repeat("x", 300)), ErrMagicTooLong)

	wrongSize := bytes.Clone(data)
	byteOrder.PutUint32(wrongSize[len(wrongSize)-4:], 4096)
	err := ValidateFooter(bytes.NewReader(wrongSize), int64(len(wrongSize)), "ftstore")
	assert.ErrorIs(t, err, ErrBlockSizeMismatch)

	err = ValidateFooter(bytes.NewReader(data[:100]), 100, "ftstore")
	assert.ErrorIs(t, err, ErrBadFooter)

	noFooter, _ := writeList(t, []uint64{1}, []uint64{1})
	assert.ErrorIs(t, ValidateFooterFile(noFooter, "ftstore"), ErrBadFooter)

	_, err = ReadFooterMagic(bytes.NewReader(readFile(t, noFooter)), BlockSize)
	assert.ErrorIs(t, err, ErrBadFooter)

	assert.Error(t, ValidateFooterFile(filepath.Join(t.TempDir(), "missing"), "ftstore"))
}

func TestFooter_MagicTooLong(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "long.skl"))
	require.NoError(t, err)

	assert.ErrorIs(t, w.WriteFooter(strings.Repeat("x", MaxMagicLength+1)), ErrMagicTooLong)
	// Rejected magic words leave the writer usable.
	require.NoError(t, w.WriteFooter(strings.Repeat("x", MaxMagicLength)))
	require.NoError(t, w.Close())
}

func TestFooter_NotReadableAsList(t *testing.T) {
	path, _ := writeWithFooter(t, "ftstore")
	fi, err := os.Stat(path)
	require.NoError(t, err)

	r := NewReader(openPool(t, path), fi.Size()-BlockSize)
	_, err = r.GetData(context.Background(), NewQueryBuffer(4))
	assert.ErrorIs(t, err, ErrCorruptBlock)

	views, err := ParseBlocks(context.Background(), openPool(t, path), 0)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, []uint64{7, 10, 13}, views[0].Keys)
}
