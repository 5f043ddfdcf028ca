package bufferpool

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

/*
This file holds helper functions for the bufferpool.
*/

// FlushAll writes every dirty resident frame back to storage. Pinned frames
// are flushed too; their pins only guard eviction, not write-back.
func (bp *BufferPool) FlushAll() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for extent, frameIdx := range bp.resident {
		frame := &bp.frames[frameIdx]
		if !frame.IsDirty {
			continue
		}
		if err := bp.storage.Write(frame.Data, extent); err != nil {
			return err
		}
		frame.IsDirty = false
		bp.log().Debug("flush", "extent", extent)
	}
	return nil
}

// Stats returns current buffer pool statistics.
func (bp *BufferPool) Stats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		TotalFrames:   len(bp.frames),
		ResidentPages: len(bp.resident),
		PageSize:      bp.storage.ExtentSize(),
		VictimHits:    bp.victimHits,
	}
	for _, frameIdx := range bp.resident {
		frame := &bp.frames[frameIdx]
		if frame.PinCount > 0 {
			stats.PinnedPages++
		}
		if frame.IsDirty {
			stats.DirtyPages++
		}
	}
	return stats
}

func (s BufferPoolStats) String() string {
	return fmt.Sprintf("frames=%d resident=%d pinned=%d dirty=%d page=%s victim_hits=%d",
		s.TotalFrames, s.ResidentPages, s.PinnedPages, s.DirtyPages,
		humanize.IBytes(uint64(s.PageSize)), s.VictimHits)
}
