package bufferpool

import (
	"log/slog"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"

	"PagedDB/logging"
	filestorage "PagedDB/storage_engine/file_storage"
	"PagedDB/storage_engine/page"
	"PagedDB/types"
)

/*
This file is the main file of the bufferpool.
The buffer pool maps extent ids to a fixed set of frames with LRU eviction
and holds the file storage for flushing dirty frames onto disk; on a miss
the storage loads the extent into a recycled frame.

The pin count is the eviction guard: only a frame with pin count zero may
be recycled, and a dirty victim is written back first. When every frame is
pinned the operation fails with ErrPoolExhausted, which the caller recovers
from by unpinning and retrying.

A ristretto cache keeps images of clean evicted extents around; pin misses
consult it before going to disk. Entries are dropped the moment the extent
is re-installed, released or reused, so the cache never holds bytes that
disagree with the frame or the file.
*/

// NewBufferPool creates a pool of numFrames frames over the given storage.
// The storage must already be open.
func NewBufferPool(storage *filestorage.FileStorage, numFrames int) (*BufferPool, error) {
	if numFrames <= 0 {
		return nil, errors.Errorf("buffer pool needs at least one frame, got %d", numFrames)
	}

	extentSize := storage.ExtentSize()
	victims, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		NumCounters: int64(numFrames) * 10,
		MaxCost:     int64(numFrames) * int64(extentSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "victim cache")
	}

	bp := &BufferPool{
		storage:     storage,
		frames:      make([]page.BufferFrame, numFrames),
		resident:    make(map[types.ExtentID]int, numFrames),
		accessOrder: make([]types.ExtentID, 0, numFrames),
		freeFrames:  make([]int, 0, numFrames),
		victims:     victims,
	}
	for i := range bp.frames {
		bp.frames[i].ExtentID = types.InvalidExtentID
		bp.frames[i].Data = make([]byte, extentSize)
		bp.freeFrames = append(bp.freeFrames, i)
	}
	return bp, nil
}

func (bp *BufferPool) log() *slog.Logger {
	return logging.WithComponent("bufferpool")
}

// Alloc takes a released extent if one is available, else reserves a new
// one, binds it to a frame with zeroed contents and pin count 1, and
// returns its handler. The frame starts dirty so a fresh
// page reaches disk even if it is never modified again.
func (bp *BufferPool) Alloc() (page.BufferHandler, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, err := bp.acquireFrame()
	if err != nil {
		return page.BufferHandler{}, err
	}

	var extent types.ExtentID
	if n := len(bp.freeExtents); n > 0 {
		extent = bp.freeExtents[n-1]
		bp.freeExtents = bp.freeExtents[:n-1]
	} else {
		extent, err = bp.storage.Reserve(1)
		if err != nil {
			bp.freeFrames = append(bp.freeFrames, frameIdx)
			return page.BufferHandler{}, err
		}
	}
	bp.victims.Del(uint64(extent))

	frame := &bp.frames[frameIdx]
	clear(frame.Data)
	frame.ExtentID = extent
	frame.PinCount = 1
	frame.IsDirty = true

	bp.resident[extent] = frameIdx
	bp.touch(extent)

	bp.log().Debug("alloc", "extent", extent)
	return page.BufferHandler{ExtentID: extent, Buffer: frame.Data}, nil
}

// Pin makes the given extent resident and returns its handler. A resident
// extent gains one pin; a non-resident one is loaded into a recycled frame
// with pin count 1.
func (bp *BufferPool) Pin(extent types.ExtentID) (page.BufferHandler, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if extent == types.InvalidExtentID {
		return page.BufferHandler{}, errors.Wrap(types.ErrOutOfBoundsExtent, "pin invalid extent")
	}

	if frameIdx, ok := bp.resident[extent]; ok {
		frame := &bp.frames[frameIdx]
		frame.PinCount++
		bp.touch(extent)
		bp.log().Debug("pin hit", "extent", extent, "pin_count", frame.PinCount)
		return page.BufferHandler{ExtentID: extent, Buffer: frame.Data}, nil
	}

	frameIdx, err := bp.acquireFrame()
	if err != nil {
		return page.BufferHandler{}, err
	}
	frame := &bp.frames[frameIdx]

	if image, ok := bp.victims.Get(uint64(extent)); ok && len(image) == len(frame.Data) {
		copy(frame.Data, image)
		bp.victimHits++
		bp.log().Debug("pin miss served from victim cache", "extent", extent)
	} else if err := bp.storage.Read(frame.Data, extent); err != nil {
		bp.freeFrames = append(bp.freeFrames, frameIdx)
		return page.BufferHandler{}, err
	}
	// The frame is authoritative from here on; the cached image must go.
	bp.victims.Del(uint64(extent))

	frame.ExtentID = extent
	frame.PinCount = 1
	frame.IsDirty = false

	bp.resident[extent] = frameIdx
	bp.touch(extent)

	bp.log().Debug("pin miss", "extent", extent)
	return page.BufferHandler{ExtentID: extent, Buffer: frame.Data}, nil
}

// Unpin drops one pin from the given extent. Unpinning a non-resident
// extent or one whose pin count is already zero is a caller bug.
func (bp *BufferPool) Unpin(extent types.ExtentID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, ok := bp.resident[extent]
	if !ok {
		return errors.Errorf("unpin: extent %d not resident", extent)
	}
	frame := &bp.frames[frameIdx]
	if frame.PinCount == 0 {
		return errors.Errorf("unpin: extent %d already unpinned", extent)
	}
	frame.PinCount--
	return nil
}

// SetPageDirty marks the resident frame holding the extent as modified, so
// eviction and FlushAll write it back.
func (bp *BufferPool) SetPageDirty(extent types.ExtentID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, ok := bp.resident[extent]
	if !ok {
		return errors.Errorf("setPageDirty: extent %d not resident", extent)
	}
	bp.frames[frameIdx].IsDirty = true
	return nil
}

// Release marks the extent as unused by the caller. Its frame (if any) is
// discarded without write-back and the extent id is remembered for reuse by
// a later Alloc. The file itself is never shrunk.
func (bp *BufferPool) Release(extent types.ExtentID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameIdx, ok := bp.resident[extent]; ok {
		frame := &bp.frames[frameIdx]
		if frame.PinCount > 0 {
			return errors.Errorf("release: extent %d still pinned", extent)
		}
		delete(bp.resident, extent)
		bp.dropFromOrder(extent)
		frame.Reset()
		bp.freeFrames = append(bp.freeFrames, frameIdx)
	}
	bp.victims.Del(uint64(extent))
	bp.freeExtents = append(bp.freeExtents, extent)

	bp.log().Debug("release", "extent", extent)
	return nil
}

// GetPageSize returns the extent size in bytes.
func (bp *BufferPool) GetPageSize() uint32 {
	return bp.storage.ExtentSize()
}

// acquireFrame returns the index of a frame ready to be rebound: a free one
// if available, otherwise the least recently used unpinned frame after
// flushing it if dirty. Assumes the pool lock is held.
func (bp *BufferPool) acquireFrame() (int, error) {
	if n := len(bp.freeFrames); n > 0 {
		idx := bp.freeFrames[n-1]
		bp.freeFrames = bp.freeFrames[:n-1]
		return idx, nil
	}

	for i := 0; i < len(bp.accessOrder); i++ {
		extent := bp.accessOrder[i]
		frameIdx, ok := bp.resident[extent]
		if !ok {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			i--
			continue
		}
		frame := &bp.frames[frameIdx]
		if frame.PinCount > 0 {
			continue
		}

		if frame.IsDirty {
			if err := bp.storage.Write(frame.Data, extent); err != nil {
				return 0, err
			}
			frame.IsDirty = false
		}

		// The frame now matches disk; park a copy in the victim cache
		// so an early re-pin skips the read.
		image := make([]byte, len(frame.Data))
		copy(image, frame.Data)
		bp.victims.Set(uint64(extent), image, int64(len(image)))

		bp.log().Debug("evict", "extent", extent)
		delete(bp.resident, extent)
		bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
		frame.Reset()
		return frameIdx, nil
	}

	return 0, errors.Wrap(types.ErrPoolExhausted, "all frames pinned")
}

// touch moves the extent to the most-recently-used end of the access order.
// Assumes the pool lock is held.
func (bp *BufferPool) touch(extent types.ExtentID) {
	bp.dropFromOrder(extent)
	bp.accessOrder = append(bp.accessOrder, extent)
}

func (bp *BufferPool) dropFromOrder(extent types.ExtentID) {
	for i, id := range bp.accessOrder {
		if id == extent {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
}
