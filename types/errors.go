package types

import "errors"

// ############################################# ERROR TAXONOMY #############################################

// Sentinel errors for the storage core. Call sites wrap these with context;
// callers classify with errors.Is. Errors originating in the file storage
// propagate unchanged through the buffer pool and the tree.
var (
	// ErrInvalidPath reports a path that cannot be opened or created.
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrPathAlreadyExists reports a create without overwrite on an
	// existing path.
	ErrPathAlreadyExists = errors.New("storage path already exists")

	// ErrOutOfBoundsExtent reports an extent id outside [1, size).
	ErrOutOfBoundsExtent = errors.New("extent id out of bounds")

	// ErrOutOfBoundsRead reports a read that could not complete at its
	// stated extent granularity.
	ErrOutOfBoundsRead = errors.New("out of bounds read")

	// ErrOutOfBoundsWrite reports a write that could not complete at its
	// stated extent granularity.
	ErrOutOfBoundsWrite = errors.New("out of bounds write")

	// ErrNotOpen reports an operation on a closed storage.
	ErrNotOpen = errors.New("storage not open")

	// ErrCriticalStorage reports an unrecoverable I/O failure.
	ErrCriticalStorage = errors.New("critical storage error")

	// ErrPoolExhausted reports that every buffer frame is pinned. The
	// caller may unpin and retry; this is never fatal.
	ErrPoolExhausted = errors.New("buffer pool exhausted")

	// ErrCorruptedPage reports a page whose header does not match what
	// the caller expects. Unrecoverable for that page.
	ErrCorruptedPage = errors.New("corrupted page")

	// ErrKeyNotFound is the non-exceptional miss result of tree lookups
	// and removals.
	ErrKeyNotFound = errors.New("key not found")
)
