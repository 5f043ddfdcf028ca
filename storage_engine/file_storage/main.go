package filestorage

import (
	"encoding/binary"
	"log/slog"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"PagedDB/logging"
	"PagedDB/types"
)

/*
This is the main file of the file storage.
It owns:
The OS file handle (os.File)
Reading/writing raw bytes at extent offsets (ReadAt, WriteAt)
Extent reservation (append-style growth, zero filled)
The storage header in extent 0 (config + checksum)

Reserve is the only way the file grows. It returns the pre-call extent
count as the first new id, so ids are dense: reserve(n)=k makes
k..k+n-1 valid. The very first reserve after create returns 1, because
extent 0 is taken by the header.
*/

func (fs *FileStorage) log() *slog.Logger {
	return logging.WithComponent("file_storage")
}

// Create creates or truncates the database file at path, writes the storage
// header into extent 0 and leaves the storage open. Fails with
// ErrPathAlreadyExists when the path exists and overwrite is false.
func (fs *FileStorage) Create(path string, config types.FileStorageConfig, overwrite bool) error {
	if config.ExtentSizeKB == 0 {
		return errors.Wrap(types.ErrInvalidPath, "extent size must be non-zero")
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.Wrapf(types.ErrPathAlreadyExists, "create %s", path)
		}
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(types.ErrInvalidPath, "create %s: %v", path, err)
	}

	fs.file = file
	fs.path = path
	fs.config = config
	fs.size = 0
	fs.filler = make([]byte, config.ExtentSize())

	// Extent 0 belongs to the header. Reserving it first keeps the id
	// arithmetic uniform with every later reservation.
	if _, err := fs.Reserve(1); err != nil {
		return err
	}
	if err := fs.writeHeader(); err != nil {
		return err
	}
	if err := fs.file.Sync(); err != nil {
		return errors.Wrapf(types.ErrCriticalStorage, "sync %s: %v", path, err)
	}

	fs.log().Info("storage created", "path", path, "extent_size_kb", config.ExtentSizeKB)
	return nil
}

// Open opens an existing database file, reads the header from extent 0 and
// derives the extent count from the file size.
func (fs *FileStorage) Open(path string) error {
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return errors.Wrapf(types.ErrInvalidPath, "open %s: %v", path, err)
	}

	header := make([]byte, headerSize)
	if _, err := file.ReadAt(header, 0); err != nil {
		file.Close()
		return errors.Wrapf(types.ErrCorruptedPage, "open %s: short header: %v", path, err)
	}

	sum := xxhash.Sum64(header[:headerPayloadSize])
	if sum != binary.LittleEndian.Uint64(header[headerChecksumOffset:]) {
		file.Close()
		return errors.Wrapf(types.ErrCorruptedPage, "open %s: header checksum mismatch", path)
	}

	config := types.FileStorageConfig{
		ExtentSizeKB: binary.LittleEndian.Uint32(header[headerExtentSizeOffset:]),
	}
	if config.ExtentSizeKB == 0 {
		file.Close()
		return errors.Wrapf(types.ErrCorruptedPage, "open %s: zero extent size in header", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return errors.Wrapf(types.ErrCriticalStorage, "stat %s: %v", path, err)
	}

	fs.file = file
	fs.path = path
	fs.config = config
	fs.size = uint64(stat.Size()) / uint64(config.ExtentSize())
	fs.filler = make([]byte, config.ExtentSize())

	fs.log().Info("storage opened", "path", path, "extents", fs.size)
	return nil
}

// Close releases the OS file handle.
func (fs *FileStorage) Close() error {
	if fs.file == nil {
		return errors.Wrap(types.ErrNotOpen, "close")
	}
	if err := fs.file.Sync(); err != nil {
		return errors.Wrapf(types.ErrCriticalStorage, "sync on close: %v", err)
	}
	if err := fs.file.Close(); err != nil {
		return errors.Wrapf(types.ErrCriticalStorage, "close: %v", err)
	}
	fs.file = nil
	return nil
}

// Reserve atomically extends the file by numExtents zeroed extents and
// returns the id of the first new extent, which is the pre-call extent
// count.
func (fs *FileStorage) Reserve(numExtents uint32) (types.ExtentID, error) {
	if fs.file == nil {
		return types.InvalidExtentID, errors.Wrap(types.ErrNotOpen, "reserve")
	}
	if numExtents == 0 {
		return types.InvalidExtentID, errors.Wrap(types.ErrOutOfBoundsWrite, "reserve 0 extents")
	}

	first := types.ExtentID(fs.size)

	// Writing one filler extent at the final slot grows the whole range;
	// the skipped-over extents read back as zeros.
	lastOffset := int64(fs.size+uint64(numExtents)-1) * int64(fs.config.ExtentSize())
	if _, err := fs.file.WriteAt(fs.filler, lastOffset); err != nil {
		return types.InvalidExtentID, errors.Wrapf(types.ErrOutOfBoundsWrite, "reserve %d extents: %v", numExtents, err)
	}

	fs.size += uint64(numExtents)
	return first, nil
}

// Read fills data with the contents of the given extent. data must be
// exactly one extent long, and the extent must be a data extent in
// [1, Size()).
func (fs *FileStorage) Read(data []byte, extent types.ExtentID) error {
	if fs.file == nil {
		return errors.Wrap(types.ErrNotOpen, "read")
	}
	if extent == 0 || uint64(extent) >= fs.size {
		return errors.Wrapf(types.ErrOutOfBoundsExtent, "read extent %d of %d", extent, fs.size)
	}
	if len(data) != int(fs.config.ExtentSize()) {
		return errors.Wrapf(types.ErrOutOfBoundsRead, "read buffer is %d bytes, extent is %d", len(data), fs.config.ExtentSize())
	}

	offset := int64(extent) * int64(fs.config.ExtentSize())
	if _, err := fs.file.ReadAt(data, offset); err != nil {
		return errors.Wrapf(types.ErrOutOfBoundsRead, "read extent %d: %v", extent, err)
	}
	return nil
}

// Write stores data as the contents of the given extent. data must be
// exactly one extent long, and the extent must be a data extent in
// [1, Size()).
func (fs *FileStorage) Write(data []byte, extent types.ExtentID) error {
	if fs.file == nil {
		return errors.Wrap(types.ErrNotOpen, "write")
	}
	if extent == 0 || uint64(extent) >= fs.size {
		return errors.Wrapf(types.ErrOutOfBoundsExtent, "write extent %d of %d", extent, fs.size)
	}
	if len(data) != int(fs.config.ExtentSize()) {
		return errors.Wrapf(types.ErrOutOfBoundsWrite, "write buffer is %d bytes, extent is %d", len(data), fs.config.ExtentSize())
	}

	offset := int64(extent) * int64(fs.config.ExtentSize())
	if _, err := fs.file.WriteAt(data, offset); err != nil {
		return errors.Wrapf(types.ErrOutOfBoundsWrite, "write extent %d: %v", extent, err)
	}
	return nil
}

// Size returns the extent count, including the header extent.
func (fs *FileStorage) Size() uint64 {
	return fs.size
}

// Config returns the configuration stored in extent 0.
func (fs *FileStorage) Config() types.FileStorageConfig {
	return fs.config
}

// ExtentSize returns the extent size in bytes.
func (fs *FileStorage) ExtentSize() uint32 {
	return fs.config.ExtentSize()
}

// writeHeader serializes the config and its checksum into extent 0.
// Called only at create time; the header is never renegotiated.
func (fs *FileStorage) writeHeader() error {
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[headerExtentSizeOffset:], fs.config.ExtentSizeKB)
	binary.LittleEndian.PutUint64(header[headerChecksumOffset:], xxhash.Sum64(header[:headerPayloadSize]))

	if _, err := fs.file.WriteAt(header, 0); err != nil {
		return errors.Wrapf(types.ErrOutOfBoundsWrite, "write header: %v", err)
	}
	return nil
}
