package bufferpool

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	filestorage "PagedDB/storage_engine/file_storage"
	"PagedDB/storage_engine/page"
	"PagedDB/types"
)

// ############################################# BUFFER POOL #############################################

// BufferPool caches extents in a fixed set of frames, enforcing pin counts
// and dirty write-back. New extents are materialized through the file
// storage's Reserve; evicted dirty frames are flushed through Write.
type BufferPool struct {
	storage *filestorage.FileStorage
	frames  []page.BufferFrame

	resident    map[types.ExtentID]int // extent -> frame index
	accessOrder []types.ExtentID       // LRU tracking: most recently used at end
	freeFrames  []int                  // frame indices not holding any extent
	freeExtents []types.ExtentID       // released extents, reused by Alloc

	// victims caches byte images of extents evicted while clean (or right
	// after write-back), so re-pinning them skips the disk read. Entries
	// always equal the on-disk bytes; a miss just costs one Read.
	victims *ristretto.Cache[uint64, []byte]

	victimHits uint64
	mu         sync.Mutex
}

// BufferPoolStats is a snapshot of pool occupancy.
type BufferPoolStats struct {
	TotalFrames   int
	ResidentPages int
	PinnedPages   int
	DirtyPages    int
	PageSize      uint32
	VictimHits    uint64
}
