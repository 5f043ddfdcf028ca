package filestorage

import (
	"os"

	"PagedDB/types"
)

// ############################################# FILE STORAGE #############################################

// Header layout within extent 0. The payload is the config; the checksum
// covers the payload bytes and is verified on every open.
const (
	headerExtentSizeOffset = 0 // uint32, extent size in KiB
	headerPayloadSize      = 8 // config payload, zero padded
	headerChecksumOffset   = 8 // uint64, xxhash64 of the payload
	headerSize             = 16
)

// FileStorage persists fixed-size extents in a single file. Extent 0 holds
// the storage header; data extents start at 1. The unit of every read and
// write is one extent.
type FileStorage struct {
	file   *os.File
	path   string
	config types.FileStorageConfig
	size   uint64 // extent count, including the header extent
	filler []byte // one zeroed extent, reused by Reserve
}

// NewFileStorage returns an unopened FileStorage. Call Create or Open
// before any other operation.
func NewFileStorage() *FileStorage {
	return &FileStorage{}
}
