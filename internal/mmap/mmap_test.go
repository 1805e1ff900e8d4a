package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_OpenReadClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postings.dat")
	content := []byte("block-aligned postings")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())
	require.NoError(t, m.Advise(AccessRandom))

	buf := make([]byte, 8)
	n, err := m.ReadAt(buf, 14)
	require.NoError(t, err)
	assert.Equal(t, "postings", string(buf[:n]))

	n, err = m.ReadAt(buf, 18)
	assert.Equal(t, 4, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.ErrorIs(t, err, ErrInvalidOffset)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())

	_, err = m.ReadAt(buf, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMapping_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dat")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.Nil(t, m.Bytes())
}

func TestMapAnon_InvalidSize(t *testing.T) {
	_, err := MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = NewArena(0, 512)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestArena_Slots(t *testing.T) {
	a, err := NewArena(4, 512)
	require.NoError(t, err)

	assert.Equal(t, 4, a.Len())
	assert.Equal(t, 512, a.SlotSize())
	assert.Equal(t, 2048, a.Size())
	require.NoError(t, a.Advise(AccessRandom))

	for i := 0; i < a.Len(); i++ {
		s := a.Slot(i)
		require.Len(t, s, 512)
		assert.Equal(t, 512, cap(s))
		for j := range s {
			s[j] = byte(i)
		}
	}

	// Writes through one slot never leak into another.
	for i := 0; i < a.Len(); i++ {
		for _, b := range a.Slot(i) {
			require.Equal(t, byte(i), b)
		}
	}

	assert.Nil(t, a.Slot(-1))
	assert.Nil(t, a.Slot(4))

	require.NoError(t, a.Close())
	assert.Nil(t, a.Slot(0))
}
