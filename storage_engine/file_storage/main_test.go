package filestorage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"PagedDB/types"
)

// TestCreateCloseOpen checks that the configuration written at create time
// is read back verbatim after a close/open cycle.
func TestCreateCloseOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	fs := NewFileStorage()
	require.NoError(t, fs.Create(path, types.FileStorageConfig{ExtentSizeKB: 4}, true))
	require.NoError(t, fs.Close())

	fs = NewFileStorage()
	require.NoError(t, fs.Open(path))
	require.Equal(t, uint32(4), fs.Config().ExtentSizeKB)
	require.NoError(t, fs.Close())
}

// TestReserve checks that reserved extent ids are dense and consistent
// with the number of extents reserved.
func TestReserve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	fs := NewFileStorage()
	require.NoError(t, fs.Create(path, types.FileStorageConfig{ExtentSizeKB: 64}, true))

	tests := []struct {
		reserve uint32
		want    types.ExtentID
	}{
		{1, 1},
		{1, 2},
		{4, 3},
		{1, 7},
	}
	for _, tt := range tests {
		got, err := fs.Reserve(tt.reserve)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
	require.Equal(t, uint64(8), fs.Size())
	require.NoError(t, fs.Close())
}

// TestReadWrite writes 63 extents filled with one repeated character each,
// reopens the storage and asserts every byte survived.
func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	fs := NewFileStorage()
	require.NoError(t, fs.Create(path, types.FileStorageConfig{ExtentSizeKB: 64}, true))

	data := make([]byte, fs.ExtentSize())
	first, err := fs.Reserve(63)
	require.NoError(t, err)

	for extent := first; extent < first+63; extent++ {
		fill := byte('0' + extent%10)
		for i := range data {
			data[i] = fill
		}
		require.NoError(t, fs.Write(data, extent))
	}
	require.NoError(t, fs.Close())

	fs = NewFileStorage()
	require.NoError(t, fs.Open(path))
	for extent := first; extent < first+63; extent++ {
		require.NoError(t, fs.Read(data, extent))
		fill := byte('0' + extent%10)
		for i := range data {
			if data[i] != fill {
				t.Fatalf("extent %d byte %d: got %q, want %q", extent, i, data[i], fill)
			}
		}
	}
	require.NoError(t, fs.Close())
}

// TestErrors checks the failure taxonomy: out-of-bounds accesses and
// database overwrites must report the right sentinels.
func TestErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	fs := NewFileStorage()
	require.NoError(t, fs.Create(path, types.FileStorageConfig{ExtentSizeKB: 64}, true))

	data := make([]byte, fs.ExtentSize())
	require.ErrorIs(t, fs.Write(data, 63), types.ErrOutOfBoundsExtent)
	require.ErrorIs(t, fs.Read(data, 32), types.ErrOutOfBoundsExtent)
	require.ErrorIs(t, fs.Read(data, 0), types.ErrOutOfBoundsExtent)
	require.NoError(t, fs.Close())

	require.ErrorIs(t, NewFileStorage().Create(path, types.FileStorageConfig{ExtentSizeKB: 64}, false), types.ErrPathAlreadyExists)
}

// TestNotOpen checks that operations on a closed storage fail cleanly.
func TestNotOpen(t *testing.T) {
	fs := NewFileStorage()
	_, err := fs.Reserve(1)
	require.ErrorIs(t, err, types.ErrNotOpen)
	require.ErrorIs(t, fs.Close(), types.ErrNotOpen)
}

// TestHeaderChecksum corrupts a header byte on disk and expects the next
// open to refuse the file.
func TestHeaderChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	fs := NewFileStorage()
	require.NoError(t, fs.Create(path, types.FileStorageConfig{ExtentSizeKB: 4}, true))
	require.NoError(t, fs.Close())

	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = file.WriteAt([]byte{0xFF}, 0)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.ErrorIs(t, NewFileStorage().Open(path), types.ErrCorruptedPage)
}
