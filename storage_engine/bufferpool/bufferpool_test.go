package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	filestorage "PagedDB/storage_engine/file_storage"
	"PagedDB/types"
)

func newTestPool(t *testing.T, numFrames int) (*BufferPool, *filestorage.FileStorage) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	storage := filestorage.NewFileStorage()
	require.NoError(t, storage.Create(path, types.FileStorageConfig{ExtentSizeKB: 4}, true))
	t.Cleanup(func() { storage.Close() })

	pool, err := NewBufferPool(storage, numFrames)
	require.NoError(t, err)
	return pool, storage
}

// TestAllocReturnsPinnedZeroedFrame checks the alloc contract: a fresh
// extent, pin count 1, dirty, fully zeroed.
func TestAllocReturnsPinnedZeroedFrame(t *testing.T) {
	pool, storage := newTestPool(t, 4)

	handler, err := pool.Alloc()
	require.NoError(t, err)
	require.Equal(t, types.ExtentID(1), handler.ExtentID)
	require.Len(t, handler.Buffer, int(pool.GetPageSize()))
	for i, b := range handler.Buffer {
		if b != 0 {
			t.Fatalf("byte %d of fresh frame is %d, want 0", i, b)
		}
	}

	stats := pool.Stats()
	require.Equal(t, 1, stats.PinnedPages)
	require.Equal(t, 1, stats.DirtyPages)
	require.Equal(t, uint64(2), storage.Size())
}

// TestPinUnpinCounting checks pin accounting, including the unpin-at-zero
// failure.
func TestPinUnpinCounting(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	handler, err := pool.Alloc()
	require.NoError(t, err)

	second, err := pool.Pin(handler.ExtentID)
	require.NoError(t, err)
	require.Equal(t, handler.ExtentID, second.ExtentID)

	require.NoError(t, pool.Unpin(handler.ExtentID))
	require.NoError(t, pool.Unpin(handler.ExtentID))
	require.Error(t, pool.Unpin(handler.ExtentID))
}

// TestEvictionWritesDirtyBack fills a one-frame pool so every new page
// evicts the previous one, checks the evicted bytes reached disk, then
// re-pins and checks they survived the round trip.
func TestEvictionWritesDirtyBack(t *testing.T) {
	pool, storage := newTestPool(t, 1)

	first, err := pool.Alloc()
	require.NoError(t, err)
	first.Buffer[0] = 0xAB
	first.Buffer[len(first.Buffer)-1] = 0xCD
	require.NoError(t, pool.SetPageDirty(first.ExtentID))
	firstExtent := first.ExtentID
	require.NoError(t, pool.Unpin(firstExtent))

	// Takes the only frame, evicting and flushing the first extent.
	second, err := pool.Alloc()
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(second.ExtentID))

	onDisk := make([]byte, storage.ExtentSize())
	require.NoError(t, storage.Read(onDisk, firstExtent))
	require.Equal(t, byte(0xAB), onDisk[0])
	require.Equal(t, byte(0xCD), onDisk[len(onDisk)-1])

	reloaded, err := pool.Pin(firstExtent)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), reloaded.Buffer[0])
	require.Equal(t, byte(0xCD), reloaded.Buffer[len(reloaded.Buffer)-1])
	require.NoError(t, pool.Unpin(firstExtent))
}

// TestPoolExhausted checks that a fully pinned pool reports the retriable
// exhaustion error and recovers after an unpin.
func TestPoolExhausted(t *testing.T) {
	pool, _ := newTestPool(t, 2)

	first, err := pool.Alloc()
	require.NoError(t, err)
	_, err = pool.Alloc()
	require.NoError(t, err)

	_, err = pool.Alloc()
	require.ErrorIs(t, err, types.ErrPoolExhausted)

	require.NoError(t, pool.Unpin(first.ExtentID))
	_, err = pool.Alloc()
	require.NoError(t, err)
}

// TestReleaseReuse checks that a released extent is handed out again by
// Alloc instead of growing the file.
func TestReleaseReuse(t *testing.T) {
	pool, storage := newTestPool(t, 4)

	handler, err := pool.Alloc()
	require.NoError(t, err)
	extent := handler.ExtentID
	require.NoError(t, pool.Unpin(extent))
	require.NoError(t, pool.Release(extent))

	sizeBefore := storage.Size()
	again, err := pool.Alloc()
	require.NoError(t, err)
	require.Equal(t, extent, again.ExtentID)
	require.Equal(t, sizeBefore, storage.Size())
}

// TestReleasePinnedFails checks that a pinned extent cannot be released.
func TestReleasePinnedFails(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	handler, err := pool.Alloc()
	require.NoError(t, err)
	require.Error(t, pool.Release(handler.ExtentID))
}

// TestFlushAllPersists writes through a handler, flushes, and reads the
// extent back through the storage directly.
func TestFlushAllPersists(t *testing.T) {
	pool, storage := newTestPool(t, 4)

	handler, err := pool.Alloc()
	require.NoError(t, err)
	copy(handler.Buffer, []byte("written through the pool"))
	require.NoError(t, pool.SetPageDirty(handler.ExtentID))
	require.NoError(t, pool.FlushAll())

	data := make([]byte, storage.ExtentSize())
	require.NoError(t, storage.Read(data, handler.ExtentID))
	require.Equal(t, []byte("written through the pool"), data[:24])

	require.Zero(t, pool.Stats().DirtyPages)
}

// TestOperationsOnNonResident checks the bookkeeping errors for extents
// the pool does not hold.
func TestOperationsOnNonResident(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	require.Error(t, pool.Unpin(42))
	require.Error(t, pool.SetPageDirty(42))
}
