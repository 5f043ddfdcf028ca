package page

import (
	"PagedDB/types"
)

/*
This package holds the two structs shared between the buffer pool and the
access layers: the BufferFrame (pool-internal slot backing one extent) and
the BufferHandler (the capability handed to callers who pinned an extent).

Keeping them in a central package avoids an import cycle between the pool
and the tree, which both need to talk about the same buffer bytes.
*/

// BufferFrame is an in-memory slot backing one extent. Frames are owned by
// the buffer pool; only an unpinned frame may be evicted, and a dirty frame
// is written back before its slot is reused.
type BufferFrame struct {
	ExtentID types.ExtentID // extent currently held, InvalidExtentID if empty
	Data     []byte         // one extent worth of bytes
	PinCount int32
	IsDirty  bool
}

// Reset empties the frame so its slot can be handed out again. The backing
// buffer is kept and reused.
func (f *BufferFrame) Reset() {
	f.ExtentID = types.InvalidExtentID
	f.PinCount = 0
	f.IsDirty = false
}

// BufferHandler is the opaque reference returned to a caller who has pinned
// an extent. Holding a handler is proof of the pin: the Buffer slice aliases
// the frame's bytes and stays valid exactly until the matching unpin.
type BufferHandler struct {
	ExtentID types.ExtentID
	Buffer   []byte
}
